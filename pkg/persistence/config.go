package persistence

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// Store errors.
var (
	ErrNotFound      = errors.New("configuration not found")
	ErrCorruptConfig = errors.New("unrecognized configuration file format")
)

// DeviceConfig is one paired TV. Fields are declared in key order so the
// encoded object has sorted keys.
type DeviceConfig struct {
	// ClientKey is the pairing key, absent until pairing succeeds.
	ClientKey string `json:"client-key,omitempty"`

	Hostname string `json:"hostname,omitempty"`
	IP       string `json:"ip"`

	// MAC is used for Wake-on-LAN.
	MAC string `json:"mac,omitempty"`

	Name string `json:"name"`
}

// DefaultConfigPath returns ~/.lgtv/lgtv/config/config.json.
func DefaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("locate home directory: %w", err)
	}
	return filepath.Join(home, ".lgtv", "lgtv", "config", "config.json"), nil
}

// ConfigStore manages the TV records file.
type ConfigStore struct {
	mu   sync.Mutex
	path string
}

// NewConfigStore creates a store backed by path.
func NewConfigStore(path string) *ConfigStore {
	return &ConfigStore{path: path}
}

// Path returns the backing file.
func (s *ConfigStore) Path() string {
	return s.path
}

// Load returns the record named name, or ErrNotFound.
func (s *ConfigStore) Load(name string) (*DeviceConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	configs, err := s.readLocked()
	if err != nil {
		return nil, err
	}
	for i := range configs {
		if configs[i].Name == name {
			return &configs[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
}

// LoadAll returns every record. Returns nil, nil if the file doesn't exist.
func (s *ConfigStore) LoadAll() ([]DeviceConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readLocked()
}

// Save inserts cfg, or replaces the record with the same name.
func (s *ConfigStore) Save(cfg DeviceConfig) error {
	if cfg.Name == "" {
		return errors.New("configuration name is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	configs, err := s.readLocked()
	if err != nil {
		return err
	}

	replaced := false
	for i := range configs {
		if configs[i].Name == cfg.Name {
			configs[i] = cfg
			replaced = true
			break
		}
	}
	if !replaced {
		configs = append(configs, cfg)
	}
	return s.writeLocked(configs)
}

// Delete removes the record named name. The file is removed when no
// records remain. Deleting an unknown name is not an error.
func (s *ConfigStore) Delete(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	configs, err := s.readLocked()
	if err != nil {
		return err
	}

	kept := configs[:0]
	for _, cfg := range configs {
		if cfg.Name != name {
			kept = append(kept, cfg)
		}
	}

	if len(kept) == 0 {
		err := os.Remove(s.path)
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return s.writeLocked(kept)
}

func (s *ConfigStore) readLocked() ([]DeviceConfig, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	configs, err := DecodeConfigs(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.path, err)
	}
	return configs, nil
}

// writeLocked writes configs to a temporary file and renames it over the
// store file.
func (s *ConfigStore) writeLocked(configs []DeviceConfig) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := EncodeConfigs(configs)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".config-*.json")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := tmp.Chmod(0600); err != nil {
		tmp.Close()
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, s.path)
}

// DecodeConfigs reads any of the three accepted shapes: an array, a single
// object with a name, or a map keyed by name. Entries of a map with no
// name of their own take the key, and are returned sorted by name.
func DecodeConfigs(data []byte) ([]DeviceConfig, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, nil
	}

	var list []DeviceConfig
	if err := json.Unmarshal(data, &list); err == nil {
		return list, nil
	}

	var single DeviceConfig
	if err := json.Unmarshal(data, &single); err == nil && single.Name != "" {
		return []DeviceConfig{single}, nil
	}

	var byName map[string]DeviceConfig
	if err := json.Unmarshal(data, &byName); err == nil && byName != nil {
		list = make([]DeviceConfig, 0, len(byName))
		for key, cfg := range byName {
			if cfg.Name == "" {
				cfg.Name = key
			}
			list = append(list, cfg)
		}
		sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
		return list, nil
	}

	return nil, ErrCorruptConfig
}

// EncodeConfigs renders configs as a two-space indented array.
func EncodeConfigs(configs []DeviceConfig) ([]byte, error) {
	if configs == nil {
		configs = []DeviceConfig{}
	}
	data, err := json.MarshalIndent(configs, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}
