// Package remote maps remote-control intents to SSAP requests.
//
// Every intent is a fixed ssap:// URI plus an optional payload built from
// positional arguments. Run sends the request over any Sender, normally a
// connected *ssap.Client.
package remote

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/webos-remote/lgtv-go/pkg/wire"
)

// Intent errors.
var (
	ErrBadArgument   = errors.New("bad argument")
	ErrUnknownIntent = errors.New("unknown command")
)

// Intent groups, in help order.
const (
	GroupInfo   = "info"
	GroupVolume = "volume"
	GroupPower  = "power"
	GroupInput  = "input"
	GroupApps   = "apps"
	GroupMedia  = "media"
	GroupUtil   = "util"
)

// YouTubeAppID is the webOS YouTube app.
const YouTubeAppID = "youtube.leanback.v4"

// Intent is one remote-control action.
type Intent struct {
	Name  string
	Short string
	Group string

	// URI is the full ssap:// request URI.
	URI string

	// Args names the positional arguments, for usage text.
	Args []string

	// Build returns the payload for args, or nil for none. Nil Build
	// means the intent takes no arguments and sends no payload.
	Build func(args []string) (wire.Object, error)
}

// Sender sends one SSAP request.
type Sender interface {
	SendCommand(ctx context.Context, uri string, payload wire.Object) error
}

// Payload validates args and builds the intent's payload.
func (in Intent) Payload(args []string) (wire.Object, error) {
	if len(args) != len(in.Args) {
		return nil, fmt.Errorf("%w: %s takes %d argument(s), got %d", ErrBadArgument, in.Name, len(in.Args), len(args))
	}
	if in.Build == nil {
		return nil, nil
	}
	return in.Build(args)
}

// Run builds the payload for args and sends the intent's request.
func Run(ctx context.Context, s Sender, in Intent, args []string) error {
	payload, err := in.Payload(args)
	if err != nil {
		return err
	}
	return s.SendCommand(ctx, in.URI, payload)
}

// Lookup finds an intent by name.
func Lookup(name string) (Intent, bool) {
	for _, in := range catalog {
		if in.Name == name {
			return in, true
		}
	}
	return Intent{}, false
}

// Catalog returns every intent in help order.
func Catalog() []Intent {
	return append([]Intent(nil), catalog...)
}

func uri(path string) string {
	return wire.URIPrefix + path
}

func stringArg(key string) func([]string) (wire.Object, error) {
	return func(args []string) (wire.Object, error) {
		if strings.TrimSpace(args[0]) == "" {
			return nil, fmt.Errorf("%w: %s must not be empty", ErrBadArgument, key)
		}
		return wire.Object{key: wire.String(args[0])}, nil
	}
}

func fixed(payload wire.Object) func([]string) (wire.Object, error) {
	return func([]string) (wire.Object, error) {
		return payload, nil
	}
}

func buildVolume(args []string) (wire.Object, error) {
	v, err := strconv.Atoi(args[0])
	if err != nil || v < 0 || v > 100 {
		return nil, fmt.Errorf("%w: volume must be an integer from 0 to 100, got %q", ErrBadArgument, args[0])
	}
	return wire.Object{"volume": wire.Int(int64(v))}, nil
}

func buildMute(args []string) (wire.Object, error) {
	muted, err := strconv.ParseBool(args[0])
	if err != nil {
		return nil, fmt.Errorf("%w: mute state must be true or false, got %q", ErrBadArgument, args[0])
	}
	return wire.Object{"mute": wire.Bool(muted)}, nil
}

func buildBrowser(args []string) (wire.Object, error) {
	if strings.TrimSpace(args[0]) == "" {
		return nil, fmt.Errorf("%w: url must not be empty", ErrBadArgument)
	}
	return wire.Object{
		"target": wire.String(args[0]),
		"id":     wire.String("com.webos.app.browser"),
	}, nil
}

func buildYouTubeURL(args []string) (wire.Object, error) {
	id, err := YouTubeID(args[0])
	if err != nil {
		return nil, err
	}
	return youTubePayload(id), nil
}

func buildYouTubeID(args []string) (wire.Object, error) {
	if strings.TrimSpace(args[0]) == "" {
		return nil, fmt.Errorf("%w: video id must not be empty", ErrBadArgument)
	}
	return youTubePayload(args[0]), nil
}

func youTubePayload(id string) wire.Object {
	return wire.Object{
		"id":        wire.String(YouTubeAppID),
		"contentId": wire.String(id),
		"params": wire.ObjectValue(wire.Object{
			"contentTarget": wire.String("https://www.youtube.com/tv?v=" + id),
		}),
	}
}

// YouTubeID extracts the video id from a watch URL ("...?v=ID&...") or a
// short link ("youtu.be/ID?...").
func YouTubeID(url string) (string, error) {
	var id string
	if _, after, ok := strings.Cut(url, "v="); ok {
		id, _, _ = strings.Cut(after, "&")
	} else if _, after, ok := strings.Cut(url, "youtu.be/"); ok {
		id, _, _ = strings.Cut(after, "?")
	} else {
		return "", fmt.Errorf("%w: invalid YouTube URL %q", ErrBadArgument, url)
	}
	if id == "" {
		return "", fmt.Errorf("%w: invalid YouTube URL %q", ErrBadArgument, url)
	}
	return id, nil
}

var catalog = []Intent{
	{Name: "sw-info", Short: "Get software information", Group: GroupInfo, URI: uri("com.webos.service.update/getCurrentSWInformation")},
	{Name: "get-foreground-app-info", Short: "Get current foreground app", Group: GroupInfo, URI: uri("com.webos.service.applicationmanager/getForegroundAppInfo")},
	{Name: "get-system-info", Short: "Get system information", Group: GroupInfo, URI: uri("system/getSystemInfo")},
	{Name: "get-power-state", Short: "Get power state", Group: GroupInfo, URI: uri("com.webos.service.tvpower/power/getPowerState")},
	{Name: "list-apps", Short: "List all installed apps", Group: GroupInfo, URI: uri("com.webos.service.applicationmanager/listApps")},
	{Name: "list-inputs", Short: "List available inputs", Group: GroupInfo, URI: uri("tv/getExternalInputList")},
	{Name: "list-channels", Short: "List TV channels", Group: GroupInfo, URI: uri("tv/getChannelList")},
	{Name: "get-tv-channel", Short: "Get current channel", Group: GroupInfo, URI: uri("tv/getCurrentChannel")},
	{Name: "list-services", Short: "List available services", Group: GroupInfo, URI: uri("api/getServiceList")},

	{Name: "volume-up", Short: "Increase volume", Group: GroupVolume, URI: uri("audio/volumeUp")},
	{Name: "volume-down", Short: "Decrease volume", Group: GroupVolume, URI: uri("audio/volumeDown")},
	{Name: "set-volume", Short: "Set volume level", Group: GroupVolume, URI: uri("audio/setVolume"), Args: []string{"LEVEL"}, Build: buildVolume},
	{Name: "mute", Short: "Mute or unmute", Group: GroupVolume, URI: uri("audio/setMute"), Args: []string{"true|false"}, Build: buildMute},
	{Name: "audio-status", Short: "Get audio status", Group: GroupVolume, URI: uri("audio/getStatus")},
	{Name: "audio-volume", Short: "Get current volume", Group: GroupVolume, URI: uri("audio/getVolume")},

	{Name: "off", Short: "Turn TV off", Group: GroupPower, URI: uri("system/turnOff")},
	{Name: "screen-on", Short: "Turn screen on", Group: GroupPower, URI: uri("com.webos.service.tvpower/power/setPowerState"), Build: fixed(wire.Object{"state": wire.String("Screen On")})},
	{Name: "screen-off", Short: "Turn screen off", Group: GroupPower, URI: uri("com.webos.service.tvpower/power/setPowerState"), Build: fixed(wire.Object{"state": wire.String("Screen Off")})},

	{Name: "set-input", Short: "Switch to specific input", Group: GroupInput, URI: uri("tv/switchInput"), Args: []string{"INPUT_ID"}, Build: stringArg("inputId")},
	{Name: "input-channel-up", Short: "Channel up", Group: GroupInput, URI: uri("tv/channelUp")},
	{Name: "input-channel-down", Short: "Channel down", Group: GroupInput, URI: uri("tv/channelDown")},
	{Name: "set-tv-channel", Short: "Change to channel", Group: GroupInput, URI: uri("tv/openChannel"), Args: []string{"CHANNEL_ID"}, Build: stringArg("channelId")},

	{Name: "start-app", Short: "Launch an app", Group: GroupApps, URI: uri("system.launcher/launch"), Args: []string{"APP_ID"}, Build: stringArg("id")},
	{Name: "close-app", Short: "Close an app", Group: GroupApps, URI: uri("system.launcher/close"), Args: []string{"APP_ID"}, Build: stringArg("id")},

	{Name: "input-media-play", Short: "Media play", Group: GroupMedia, URI: uri("media.controls/play")},
	{Name: "input-media-pause", Short: "Media pause", Group: GroupMedia, URI: uri("media.controls/pause")},
	{Name: "input-media-stop", Short: "Media stop", Group: GroupMedia, URI: uri("media.controls/stop")},
	{Name: "input-media-rewind", Short: "Media rewind", Group: GroupMedia, URI: uri("media.controls/rewind")},
	{Name: "input-media-fast-forward", Short: "Media fast forward", Group: GroupMedia, URI: uri("media.controls/fastForward")},

	{Name: "open-browser-at", Short: "Open URL in TV browser", Group: GroupUtil, URI: uri("system.launcher/open"), Args: []string{"URL"}, Build: buildBrowser},
	{Name: "notification", Short: "Show notification", Group: GroupUtil, URI: uri("system.notifications/createToast"), Args: []string{"MESSAGE"}, Build: stringArg("message")},
	{Name: "open-youtube-url", Short: "Open YouTube video by URL", Group: GroupUtil, URI: uri("system.launcher/launch"), Args: []string{"URL"}, Build: buildYouTubeURL},
	{Name: "open-youtube-id", Short: "Open YouTube video by ID", Group: GroupUtil, URI: uri("system.launcher/launch"), Args: []string{"VIDEO_ID"}, Build: buildYouTubeID},
}
