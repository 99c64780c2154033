package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

const (
	defaultBaseURL        = "http://localhost:8080"
	defaultRequestTimeout = 30 * time.Second
	settingsFileName      = "tubedeskctl.toml"
	stateFileName         = "state.json"
)

// Settings is the tubedeskctl configuration file.
type Settings struct {
	BaseURL        string        `toml:"base_url"`
	StatePath      string        `toml:"state_path"`
	RequestTimeout time.Duration `toml:"request_timeout"`
}

// DefaultSettingsPath returns ~/.config/tubedesk/tubedeskctl.toml or the
// platform equivalent.
func DefaultSettingsPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("locate config directory: %w", err)
	}
	return filepath.Join(dir, "tubedesk", settingsFileName), nil
}

// LoadSettings reads path. A missing file yields the defaults; the state file
// defaults to state.json next to the settings file.
func LoadSettings(path string) (Settings, error) {
	settings := Settings{
		BaseURL:        defaultBaseURL,
		RequestTimeout: defaultRequestTimeout,
	}

	md, err := toml.DecodeFile(path, &settings)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return Settings{}, fmt.Errorf("read settings %s: %w", path, err)
	default:
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			keys := make([]string, len(undecoded))
			for i, key := range undecoded {
				keys[i] = key.String()
			}
			sort.Strings(keys)
			return Settings{}, fmt.Errorf("read settings %s: unknown keys %s", path, strings.Join(keys, ", "))
		}
	}

	settings.BaseURL = strings.TrimSpace(settings.BaseURL)
	if settings.BaseURL == "" {
		settings.BaseURL = defaultBaseURL
	}
	if settings.StatePath == "" {
		settings.StatePath = filepath.Join(filepath.Dir(path), stateFileName)
	}
	if settings.RequestTimeout <= 0 {
		settings.RequestTimeout = defaultRequestTimeout
	}
	return settings, nil
}
