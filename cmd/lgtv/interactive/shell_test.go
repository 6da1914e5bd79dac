package interactive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/webos-remote/lgtv-go/pkg/ssap"
	"github.com/webos-remote/lgtv-go/pkg/wire"
)

type call struct {
	uri     string
	payload string
}

type fakeSession struct {
	calls []call
	reply *wire.Message
	err   error
}

func (f *fakeSession) Request(_ context.Context, uri string, payload wire.Object) (*wire.Message, error) {
	c := call{uri: uri}
	if payload != nil {
		data, _ := json.Marshal(payload)
		c.payload = string(data)
	}
	f.calls = append(f.calls, c)
	return f.reply, f.err
}

func (f *fakeSession) Address() string   { return "192.168.1.100" }
func (f *fakeSession) State() ssap.State { return ssap.StateReady }

func newTestShell(session *fakeSession) (*Shell, *bytes.Buffer) {
	var buf bytes.Buffer
	return newShell(session, "LGC1", &buf), &buf
}

func TestExecuteIntent(t *testing.T) {
	session := &fakeSession{reply: &wire.Message{
		Type:    wire.TypeResponse,
		ID:      "1",
		Payload: wire.Object{"volume": wire.Int(12), "returnValue": wire.Bool(true)},
	}}
	sh, out := newTestShell(session)

	if sh.Execute(context.Background(), "audio-volume") {
		t.Fatal("Execute() requested exit")
	}
	if len(session.calls) != 1 || session.calls[0].uri != "ssap://audio/getVolume" {
		t.Fatalf("calls = %+v", session.calls)
	}
	if !strings.Contains(out.String(), `"volume": 12`) {
		t.Errorf("output = %q, want indented reply", out.String())
	}
}

func TestExecuteIntentJoinsSingleArgument(t *testing.T) {
	session := &fakeSession{}
	sh, _ := newTestShell(session)

	sh.Execute(context.Background(), "notification Dinner is   ready")

	if len(session.calls) != 1 {
		t.Fatalf("calls = %+v", session.calls)
	}
	if got, want := session.calls[0].payload, `{"message":"Dinner is ready"}`; got != want {
		t.Errorf("payload = %s, want %s", got, want)
	}
}

func TestExecuteIntentBadArgument(t *testing.T) {
	session := &fakeSession{}
	sh, out := newTestShell(session)

	sh.Execute(context.Background(), "set-volume loud")

	if len(session.calls) != 0 {
		t.Errorf("bad argument still sent %+v", session.calls)
	}
	if !strings.Contains(out.String(), "Error: bad argument") {
		t.Errorf("output = %q", out.String())
	}
}

func TestExecuteRequest(t *testing.T) {
	tests := []struct {
		line    string
		uri     string
		payload string
	}{
		{"request audio/getVolume", "ssap://audio/getVolume", ""},
		{"request ssap://audio/getVolume", "ssap://audio/getVolume", ""},
		{`request audio/setVolume {"volume": 10}`, "ssap://audio/setVolume", `{"volume":10}`},
		{`req system.launcher/launch {"id":"netflix","params":{"a":[1,2]}}`, "ssap://system.launcher/launch", `{"id":"netflix","params":{"a":[1,2]}}`},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			session := &fakeSession{}
			sh, _ := newTestShell(session)

			sh.Execute(context.Background(), tt.line)

			if len(session.calls) != 1 {
				t.Fatalf("calls = %+v", session.calls)
			}
			if session.calls[0].uri != tt.uri || session.calls[0].payload != tt.payload {
				t.Errorf("call = %+v, want %s %s", session.calls[0], tt.uri, tt.payload)
			}
		})
	}
}

func TestExecuteRequestErrors(t *testing.T) {
	session := &fakeSession{}
	sh, out := newTestShell(session)

	sh.Execute(context.Background(), "request")
	sh.Execute(context.Background(), "request audio/setVolume {not json")
	if len(session.calls) != 0 {
		t.Errorf("invalid requests were sent: %+v", session.calls)
	}
	if !strings.Contains(out.String(), "Usage: request") || !strings.Contains(out.String(), "Invalid JSON payload") {
		t.Errorf("output = %q", out.String())
	}

	session.err = fmt.Errorf("%w: 404 no such service", ssap.ErrCommandFailed)
	session.reply = &wire.Message{Type: wire.TypeError, ID: "1", Error: "404 no such service"}
	out.Reset()
	sh.Execute(context.Background(), "request bogus/uri")
	if !strings.Contains(out.String(), "Error: command failed") {
		t.Errorf("output = %q", out.String())
	}
	if strings.Contains(out.String(), "null") {
		t.Errorf("printed empty payload: %q", out.String())
	}
}

func TestExecuteBuiltins(t *testing.T) {
	sh, out := newTestShell(&fakeSession{})
	ctx := context.Background()

	if sh.Execute(ctx, "") {
		t.Error("empty line requested exit")
	}
	sh.Execute(ctx, "status")
	if !strings.Contains(out.String(), "LGC1 at 192.168.1.100: READY") {
		t.Errorf("status output = %q", out.String())
	}

	out.Reset()
	sh.Execute(ctx, "catalog")
	for _, want := range []string{"volume:", "set-volume LEVEL", "open-youtube-id VIDEO_ID"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("catalog output missing %q", want)
		}
	}

	out.Reset()
	sh.Execute(ctx, "frobnicate")
	if !strings.Contains(out.String(), "Unknown command: frobnicate") {
		t.Errorf("output = %q", out.String())
	}

	for _, cmd := range []string{"quit", "exit", "q", "EXIT"} {
		if !sh.Execute(ctx, cmd) {
			t.Errorf("Execute(%q) did not request exit", cmd)
		}
	}
}
