package wire

// Manifest describes the client application to the TV during pairing.
type Manifest struct {
	ManifestVersion int            `json:"manifestVersion"`
	AppVersion      string         `json:"appVersion"`
	Signed          SignedManifest `json:"signed"`
}

// SignedManifest is the "signed" section of the manifest.
type SignedManifest struct {
	Created              string            `json:"created"`
	AppID                string            `json:"appId"`
	VendorID             string            `json:"vendorId"`
	LocalizedAppNames    map[string]string `json:"localizedAppNames"`
	LocalizedVendorNames map[string]string `json:"localizedVendorNames"`
	Permissions          []string          `json:"permissions"`
	Serial               string            `json:"serial"`
}

// Permissions requested during pairing.
var Permissions = []string{
	"TEST_SECURE",
	"CONTROL_INPUT_TEXT",
	"CONTROL_MOUSE_AND_KEYBOARD",
	"READ_INSTALLED_APPS",
	"READ_LGE_SDX",
	"READ_NOTIFICATIONS",
	"SEARCH",
	"WRITE_SETTINGS",
	"WRITE_NOTIFICATIONS",
	"CONTROL_POWER",
	"READ_CURRENT_CHANNEL",
	"READ_RUNNING_APPS",
	"READ_UPDATE_INFO",
	"UPDATE_FROM_REMOTE_APP",
	"READ_LGE_TV_INPUT_EVENTS",
	"READ_TV_CURRENT_TIME",
}

// DefaultManifest returns the fixed manifest sent with every register
// message. Each call returns fresh slices and maps.
func DefaultManifest() Manifest {
	return Manifest{
		ManifestVersion: 1,
		AppVersion:      "1.0.0",
		Signed: SignedManifest{
			Created:  "20240101",
			AppID:    "com.lge.test",
			VendorID: "com.lge",
			LocalizedAppNames: map[string]string{
				"":      "LG TV Controller",
				"en-US": "LG TV Controller",
			},
			LocalizedVendorNames: map[string]string{
				"": "LG Electronics",
			},
			Permissions: append([]string(nil), Permissions...),
			Serial:      "12345",
		},
	}
}
