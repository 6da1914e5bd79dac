package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/webos-remote/lgtv-go/pkg/persistence"
)

// fakeTV answers SSAP frames with the strings reply returns.
type fakeTV struct {
	srv *httptest.Server

	mu     sync.Mutex
	frames []map[string]any
}

func startFakeTV(t *testing.T, reply func(frame map[string]any) []string) *fakeTV {
	t.Helper()
	tv := &fakeTV{}
	upgrader := websocket.Upgrader{}

	tv.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var frame map[string]any
			if err := json.Unmarshal(data, &frame); err != nil {
				return
			}
			tv.mu.Lock()
			tv.frames = append(tv.frames, frame)
			tv.mu.Unlock()

			for _, out := range reply(frame) {
				if err := conn.WriteMessage(websocket.TextMessage, []byte(out)); err != nil {
					return
				}
			}
		}
	}))
	t.Cleanup(tv.srv.Close)
	return tv
}

func (tv *fakeTV) port() string {
	u, _ := url.Parse(tv.srv.URL)
	return u.Port()
}

func (tv *fakeTV) requests() []map[string]any {
	tv.mu.Lock()
	defer tv.mu.Unlock()
	var out []map[string]any
	for _, f := range tv.frames {
		if f["type"] == "request" {
			out = append(out, f)
		}
	}
	return out
}

// pairingTV grants key on register and acknowledges every request.
func pairingTV(key string) func(map[string]any) []string {
	return func(frame map[string]any) []string {
		switch frame["type"] {
		case "register":
			return []string{
				`{"type":"response","id":"register_0","payload":{"pairingType":"PROMPT","returnValue":true}}`,
				fmt.Sprintf(`{"type":"registered","id":"register_0","payload":{"client-key":%q}}`, key),
			}
		case "request":
			return []string{fmt.Sprintf(`{"type":"response","id":%q,"payload":{"returnValue":true,"uri":%q}}`, frame["id"], frame["uri"])}
		}
		return nil
	}
}

// testEnv isolates HOME and writes a fast settings file.
func testEnv(t *testing.T) (home, settingsPath string) {
	t.Helper()
	home = t.TempDir()
	t.Setenv("HOME", home)

	settingsPath = filepath.Join(home, "settings.yaml")
	data := []byte("settle_delay: 300ms\nhandshake_timeout: 2s\nscan:\n  confirm_timeout: 2s\n")
	require.NoError(t, os.WriteFile(settingsPath, data, 0600))
	return home, settingsPath
}

func run(t *testing.T, a *app, args ...string) (string, error) {
	t.Helper()
	if a == nil {
		a = newApp()
	}
	if a.lookupMAC == nil {
		a.lookupMAC = func(context.Context, string) (string, error) {
			return "", errors.New("no arp entry")
		}
	}

	var out, errOut bytes.Buffer
	root := newRootCmd(a)
	root.SetArgs(args)
	root.SetOut(&out)
	root.SetErr(&errOut)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err := root.ExecuteContext(ctx)
	a.close()
	return out.String(), err
}

func storeAt(home string) *persistence.ConfigStore {
	return persistence.NewConfigStore(filepath.Join(home, ".lgtv", "lgtv", "config", "config.json"))
}

func TestAuthPairsAndSaves(t *testing.T) {
	home, settingsPath := testEnv(t)
	tv := startFakeTV(t, pairingTV("fresh-key"))

	a := &app{lookupMAC: func(_ context.Context, ip string) (string, error) {
		assert.Equal(t, "127.0.0.1", ip)
		return "a8:23:fe:01:02:03", nil
	}}
	out, err := run(t, a, "auth", "127.0.0.1", "Bedroom", "--config", settingsPath, "--port", tv.port())
	require.NoError(t, err)

	assert.Contains(t, out, "PAIRING REQUEST SENT TO YOUR TV")
	assert.Contains(t, out, "PAIRING SUCCESSFUL")
	assert.Contains(t, out, "lgtv sw-info --name Bedroom")
	assert.NotContains(t, out, "fresh-key")

	cfg, err := storeAt(home).Load("Bedroom")
	require.NoError(t, err)
	assert.Equal(t, persistence.DeviceConfig{
		Name:      "Bedroom",
		IP:        "127.0.0.1",
		MAC:       "a8:23:fe:01:02:03",
		ClientKey: "fresh-key",
	}, *cfg)

	// The register frame must not carry a key, so the TV prompts.
	tv.mu.Lock()
	register := tv.frames[0]
	tv.mu.Unlock()
	payload, _ := register["payload"].(map[string]any)
	assert.NotContains(t, payload, "client-key")
}

func TestAuthReusesSavedIPAndMAC(t *testing.T) {
	home, settingsPath := testEnv(t)
	tv := startFakeTV(t, pairingTV("second-key"))

	require.NoError(t, storeAt(home).Save(persistence.DeviceConfig{
		Name: "Bedroom", IP: "127.0.0.1", MAC: "10:7b:44:aa:bb:cc", Hostname: "bedroom.local", ClientKey: "old-key",
	}))

	out, err := run(t, nil, "auth", "Bedroom", "--config", settingsPath, "--port", tv.port())
	require.NoError(t, err)
	assert.Contains(t, out, "Using saved IP 127.0.0.1 for Bedroom")

	cfg, err := storeAt(home).Load("Bedroom")
	require.NoError(t, err)
	assert.Equal(t, "second-key", cfg.ClientKey)
	assert.Equal(t, "10:7b:44:aa:bb:cc", cfg.MAC)
	assert.Equal(t, "bedroom.local", cfg.Hostname)
}

func TestAuthMissingIP(t *testing.T) {
	_, settingsPath := testEnv(t)

	_, err := run(t, nil, "auth", "Bedroom", "--config", settingsPath)
	require.Error(t, err)
	assert.Equal(t, "Missing IP address for Bedroom. Provide --ip-address or ensure the config already stores an IP.", err.Error())
}

func TestAuthFailurePrintsTroubleshooting(t *testing.T) {
	_, settingsPath := testEnv(t)
	tv := startFakeTV(t, func(frame map[string]any) []string {
		return []string{`{"type":"error","id":"register_0","error":"403 User rejected pairing"}`}
	})

	out, err := run(t, nil, "auth", "--ip-address", "127.0.0.1", "Bedroom", "--config", settingsPath, "--port", tv.port())
	require.Error(t, err)
	assert.Contains(t, out, "Pairing failed")
	assert.Contains(t, out, "Try with or without the --ssl flag")
}

func TestIntentCommandSendsRequest(t *testing.T) {
	home, settingsPath := testEnv(t)
	tv := startFakeTV(t, pairingTV("stored-key"))

	require.NoError(t, storeAt(home).Save(persistence.DeviceConfig{Name: "LGC1", IP: "127.0.0.1", ClientKey: "stored-key"}))

	out, err := run(t, nil, "set-volume", "15", "--config", settingsPath, "--port", tv.port())
	require.NoError(t, err)

	reqs := tv.requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "ssap://audio/setVolume", reqs[0]["uri"])
	assert.Equal(t, map[string]any{"volume": float64(15)}, reqs[0]["payload"])
	assert.Contains(t, out, `"returnValue": true`)
	assert.NotContains(t, out, "stored-key")
}

func TestIntentCommandValidatesBeforeConnecting(t *testing.T) {
	home, settingsPath := testEnv(t)
	tv := startFakeTV(t, pairingTV("k"))
	require.NoError(t, storeAt(home).Save(persistence.DeviceConfig{Name: "LGC1", IP: "127.0.0.1", ClientKey: "k"}))

	_, err := run(t, nil, "set-volume", "200", "--config", settingsPath, "--port", tv.port())
	require.Error(t, err)

	tv.mu.Lock()
	defer tv.mu.Unlock()
	assert.Empty(t, tv.frames)
}

func TestIntentCommandWithoutConfig(t *testing.T) {
	_, settingsPath := testEnv(t)

	_, err := run(t, nil, "volume-up", "--name", "Kitchen", "--config", settingsPath)
	require.Error(t, err)
	assert.Equal(t, "Configuration not found for TV 'Kitchen'. Please run auth first.", err.Error())
}

func TestNameDefaultsFromSettings(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	settingsPath := filepath.Join(home, "settings.yaml")
	require.NoError(t, os.WriteFile(settingsPath, []byte("default_name: Den\nssl: true\n"), 0600))

	a := newApp()
	_, err := run(t, a, "list", "--config", settingsPath)
	require.NoError(t, err)
	assert.Equal(t, "Den", a.flags.name)
	assert.True(t, a.flags.ssl)

	a = newApp()
	_, err = run(t, a, "list", "--config", settingsPath, "--name", "Kitchen")
	require.NoError(t, err)
	assert.Equal(t, "Kitchen", a.flags.name)
}

func TestInvalidSettingsFail(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	settingsPath := filepath.Join(home, "settings.yaml")
	require.NoError(t, os.WriteFile(settingsPath, []byte("scan:\n  concurrency: 0\n"), 0600))

	_, err := run(t, nil, "list", "--config", settingsPath)
	assert.Error(t, err)
}

func TestListAndForget(t *testing.T) {
	home, settingsPath := testEnv(t)

	out, err := run(t, nil, "list", "--config", settingsPath)
	require.NoError(t, err)
	assert.Contains(t, out, "No TVs configured")

	store := storeAt(home)
	require.NoError(t, store.Save(persistence.DeviceConfig{Name: "Bedroom", IP: "192.168.1.100", ClientKey: "k"}))
	require.NoError(t, store.Save(persistence.DeviceConfig{Name: "Den", IP: "192.168.1.101", MAC: "a8:23:fe:01:02:03"}))

	out, err = run(t, nil, "list", "--config", settingsPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Bedroom")
	assert.Contains(t, out, "192.168.1.101")
	assert.Contains(t, out, "a8:23:fe:01:02:03")

	out, err = run(t, nil, "forget", "Bedroom", "--config", settingsPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Removed Bedroom")

	_, err = store.Load("Bedroom")
	assert.ErrorIs(t, err, persistence.ErrNotFound)

	_, err = run(t, nil, "forget", "Bedroom", "--config", settingsPath)
	assert.Error(t, err)
}

func TestOnRequiresMAC(t *testing.T) {
	home, settingsPath := testEnv(t)
	require.NoError(t, storeAt(home).Save(persistence.DeviceConfig{Name: "LGC1", IP: "192.168.1.100"}))

	_, err := run(t, nil, "on", "--config", settingsPath)
	assert.ErrorIs(t, err, errMACRequired)
}

func TestOnSendsMagicPacket(t *testing.T) {
	home, settingsPath := testEnv(t)
	require.NoError(t, storeAt(home).Save(persistence.DeviceConfig{Name: "LGC1", IP: "192.168.1.100", MAC: "a8:23:fe:01:02:03"}))

	conn, err := net.ListenPacket("udp4", "127.0.0.1:0")
	require.NoError(t, err)
	defer conn.Close()

	out, err := run(t, nil, "on", "--config", settingsPath, "--broadcast", conn.LocalAddr().String())
	require.NoError(t, err)
	assert.Contains(t, out, "Wake-on-LAN packet sent to LGC1")

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, 256)
	n, _, err := conn.ReadFrom(buf)
	require.NoError(t, err)
	assert.Equal(t, 102, n)
}

func TestScanFindsTV(t *testing.T) {
	_, settingsPath := testEnv(t)
	tv := startFakeTV(t, func(frame map[string]any) []string {
		if frame["type"] == "register" {
			return []string{`{"type":"response","id":"register_0","payload":{"pairingType":"PROMPT","returnValue":true}}`}
		}
		return nil
	})

	out, err := run(t, nil, "scan", "--ip", "127.0.0.1-1", "--config", settingsPath, "--port", tv.port())
	require.NoError(t, err)

	assert.Contains(t, out, "Scanning range: 127.0.0.1-127.0.0.1 (1 addresses)")
	assert.Contains(t, out, "Found TV at 127.0.0.1")
	assert.Contains(t, out, "FOUND 1 TV(S)")
	assert.Contains(t, out, "LG webOS TV (connection successful)")
	assert.Contains(t, out, "lgtv auth 127.0.0.1 MyTV")
}

func TestScanDebugReportsEveryProbe(t *testing.T) {
	_, settingsPath := testEnv(t)
	tv := startFakeTV(t, func(frame map[string]any) []string {
		if frame["type"] == "register" {
			return []string{`{"type":"response","id":"register_0","payload":{"pairingType":"PROMPT","returnValue":true}}`}
		}
		return nil
	})

	out, err := run(t, nil, "scan", "--ip", "127.0.0.1-2", "--debug", "--config", settingsPath, "--port", tv.port())
	require.NoError(t, err)

	assert.Contains(t, out, "Fast probe 127.0.0.1: responded")
	assert.Contains(t, out, "Fast probe 127.0.0.2: no response")
	assert.Contains(t, out, "Confirming 1 candidate(s) with a full handshake (timeout 2s each)...")
	assert.Less(t, strings.Index(out, "Confirming 1 candidate(s)"), strings.Index(out, "Found TV at 127.0.0.1"))
}

func TestScanWithoutDebugHidesProbes(t *testing.T) {
	_, settingsPath := testEnv(t)
	tv := startFakeTV(t, func(frame map[string]any) []string {
		if frame["type"] == "register" {
			return []string{`{"type":"response","id":"register_0","payload":{"pairingType":"PROMPT","returnValue":true}}`}
		}
		return nil
	})

	out, err := run(t, nil, "scan", "--ip", "127.0.0.1-1", "--config", settingsPath, "--port", tv.port())
	require.NoError(t, err)

	assert.NotContains(t, out, "Fast probe 127.0.0.1")
	assert.Contains(t, out, "Confirming 1 candidate(s)")
}

func TestScanRejectsBadSeed(t *testing.T) {
	_, settingsPath := testEnv(t)

	_, err := run(t, nil, "scan", "--ip-address", "10.0.0.0/16", "--config", settingsPath)
	assert.Error(t, err)
}

func TestSetupGuide(t *testing.T) {
	_, settingsPath := testEnv(t)

	out, err := run(t, nil, "setup", "--config", settingsPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Step 1: Prerequisites")
	assert.Contains(t, out, "lgtv auth 192.168.1.100 LivingRoomTV --ssl")
}

func TestEveryIntentHasACommand(t *testing.T) {
	root := newRootCmd(newApp())
	for _, name := range []string{"sw-info", "set-volume", "mute", "open-youtube-url", "input-media-fast-forward", "on", "shell"} {
		cmd, _, err := root.Find([]string{name})
		if assert.NoError(t, err, name) {
			assert.Equal(t, name, cmd.Name())
		}
	}
}

func TestProtocolLogCapturesSession(t *testing.T) {
	home, settingsPath := testEnv(t)
	tv := startFakeTV(t, pairingTV("stored-key"))
	require.NoError(t, storeAt(home).Save(persistence.DeviceConfig{Name: "LGC1", IP: "127.0.0.1", ClientKey: "stored-key"}))

	capture := filepath.Join(home, "session.cap")
	_, err := run(t, nil, "volume-up", "--config", settingsPath, "--port", tv.port(), "--protocol-log", capture)
	require.NoError(t, err)

	info, err := os.Stat(capture)
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}
