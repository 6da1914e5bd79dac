package remote

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/webos-remote/lgtv-go/pkg/wire"
)

type recordingSender struct {
	uri     string
	payload wire.Object
	err     error
}

func (s *recordingSender) SendCommand(_ context.Context, uri string, payload wire.Object) error {
	s.uri, s.payload = uri, payload
	return s.err
}

func payloadJSON(t *testing.T, p wire.Object) string {
	t.Helper()
	if p == nil {
		return ""
	}
	data, err := json.Marshal(p)
	require.NoError(t, err)
	return string(data)
}

func TestCatalogIntegrity(t *testing.T) {
	seen := make(map[string]bool)
	for _, in := range Catalog() {
		if seen[in.Name] {
			t.Errorf("duplicate intent %s", in.Name)
		}
		seen[in.Name] = true

		if !strings.HasPrefix(in.URI, "ssap://") {
			t.Errorf("%s: URI %q lacks ssap:// prefix", in.Name, in.URI)
		}
		if in.Short == "" || in.Group == "" {
			t.Errorf("%s: missing help text or group", in.Name)
		}
		if len(in.Args) > 0 && in.Build == nil {
			t.Errorf("%s: takes arguments but has no payload builder", in.Name)
		}
	}
	assert.Len(t, seen, 33)
}

func TestIntentPayloads(t *testing.T) {
	tests := []struct {
		name string
		args []string
		uri  string
		want string
	}{
		{"sw-info", nil, "ssap://com.webos.service.update/getCurrentSWInformation", ""},
		{"volume-up", nil, "ssap://audio/volumeUp", ""},
		{"off", nil, "ssap://system/turnOff", ""},
		{"set-volume", []string{"15"}, "ssap://audio/setVolume", `{"volume":15}`},
		{"mute", []string{"true"}, "ssap://audio/setMute", `{"mute":true}`},
		{"mute", []string{"false"}, "ssap://audio/setMute", `{"mute":false}`},
		{"screen-on", nil, "ssap://com.webos.service.tvpower/power/setPowerState", `{"state":"Screen On"}`},
		{"screen-off", nil, "ssap://com.webos.service.tvpower/power/setPowerState", `{"state":"Screen Off"}`},
		{"set-input", []string{"HDMI_1"}, "ssap://tv/switchInput", `{"inputId":"HDMI_1"}`},
		{"set-tv-channel", []string{"7_11_1"}, "ssap://tv/openChannel", `{"channelId":"7_11_1"}`},
		{"start-app", []string{"netflix"}, "ssap://system.launcher/launch", `{"id":"netflix"}`},
		{"close-app", []string{"netflix"}, "ssap://system.launcher/close", `{"id":"netflix"}`},
		{"open-browser-at", []string{"https://example.com"}, "ssap://system.launcher/open", `{"id":"com.webos.app.browser","target":"https://example.com"}`},
		{"notification", []string{"Hello"}, "ssap://system.notifications/createToast", `{"message":"Hello"}`},
		{
			"open-youtube-id", []string{"dQw4w9WgXcQ"}, "ssap://system.launcher/launch",
			`{"contentId":"dQw4w9WgXcQ","id":"youtube.leanback.v4","params":{"contentTarget":"https://www.youtube.com/tv?v=dQw4w9WgXcQ"}}`,
		},
		{
			"open-youtube-url", []string{"https://www.youtube.com/watch?v=dQw4w9WgXcQ&t=42"}, "ssap://system.launcher/launch",
			`{"contentId":"dQw4w9WgXcQ","id":"youtube.leanback.v4","params":{"contentTarget":"https://www.youtube.com/tv?v=dQw4w9WgXcQ"}}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in, ok := Lookup(tt.name)
			require.True(t, ok)

			s := &recordingSender{}
			require.NoError(t, Run(context.Background(), s, in, tt.args))
			assert.Equal(t, tt.uri, s.uri)
			if tt.want == "" {
				assert.Nil(t, s.payload)
			} else {
				assert.JSONEq(t, tt.want, payloadJSON(t, s.payload))
			}
		})
	}
}

func TestIntentBadArguments(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"set-volume", []string{"loud"}},
		{"set-volume", []string{"101"}},
		{"set-volume", []string{"-1"}},
		{"set-volume", nil},
		{"mute", []string{"maybe"}},
		{"volume-up", []string{"extra"}},
		{"set-input", []string{" "}},
		{"open-youtube-url", []string{"https://example.com/video"}},
		{"open-browser-at", []string{"a", "b"}},
	}
	for _, tt := range tests {
		in, ok := Lookup(tt.name)
		require.True(t, ok, tt.name)

		s := &recordingSender{}
		err := Run(context.Background(), s, in, tt.args)
		if !errors.Is(err, ErrBadArgument) {
			t.Errorf("Run(%s, %v) error = %v, want ErrBadArgument", tt.name, tt.args, err)
		}
		if s.uri != "" {
			t.Errorf("Run(%s, %v) sent a request despite bad arguments", tt.name, tt.args)
		}
	}
}

func TestRunPropagatesSendError(t *testing.T) {
	in, _ := Lookup("volume-up")
	sendErr := errors.New("not connected")
	err := Run(context.Background(), &recordingSender{err: sendErr}, in, nil)
	assert.ErrorIs(t, err, sendErr)
}

func TestLookupUnknown(t *testing.T) {
	_, ok := Lookup("self-destruct")
	assert.False(t, ok)
}

func TestYouTubeID(t *testing.T) {
	tests := []struct {
		url     string
		want    string
		wantErr bool
	}{
		{"https://www.youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ", false},
		{"https://www.youtube.com/watch?v=dQw4w9WgXcQ&list=PL1", "dQw4w9WgXcQ", false},
		{"https://youtu.be/dQw4w9WgXcQ", "dQw4w9WgXcQ", false},
		{"https://youtu.be/dQw4w9WgXcQ?t=10", "dQw4w9WgXcQ", false},
		{"https://www.youtube.com/watch?v=", "", true},
		{"https://vimeo.com/123", "", true},
	}
	for _, tt := range tests {
		got, err := YouTubeID(tt.url)
		if (err != nil) != tt.wantErr {
			t.Errorf("YouTubeID(%q) error = %v, wantErr %v", tt.url, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("YouTubeID(%q) = %q, want %q", tt.url, got, tt.want)
		}
	}
}

func TestCatalogReturnsCopy(t *testing.T) {
	c := Catalog()
	c[0].Name = "changed"
	in, ok := Lookup("sw-info")
	assert.True(t, ok)
	assert.Equal(t, "sw-info", in.Name)
}
