// Package config loads the SDK settings from the environment, falling back
// to the persisted settings file written by "sasign configure".
package config

import (
	"context"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/sethvargo/go-envconfig"
	"github.com/subosito/gotenv"
)

// DefaultEndpoint is the public SAS token endpoint of the Planetary Computer.
const DefaultEndpoint = "https://planetarycomputer.microsoft.com/api/sas/v1/token"

const (
	settingsDir  = ".planetarycomputer"
	settingsFile = "settings.env"

	subscriptionKeyVar = "PC_SDK_SUBSCRIPTION_KEY"
)

// Settings holds the SDK configuration. Values are read from environment
// variables first, then from the settings file, so the environment can
// override persisted configuration.
type Settings struct {
	// Endpoint is the base URL of the SAS token service.
	Endpoint string `env:"PC_SDK_SAS_URL, default=https://planetarycomputer.microsoft.com/api/sas/v1/token"`

	// SubscriptionKey is the optional API subscription key attached to token
	// requests. An absent key is valid: requests are simply rate limited
	// more aggressively upstream.
	SubscriptionKey string `env:"PC_SDK_SUBSCRIPTION_KEY"`
}

// Load reads settings from the OS environment and the settings file.
func Load(ctx context.Context) (Settings, error) {
	return load(ctx, nil)
}

func load(ctx context.Context, lookup envconfig.Lookuper) (Settings, error) {
	if lookup == nil {
		lookup = envconfig.MultiLookuper(
			envconfig.OsLookuper(),
			fileLookuper(),
		)
	}

	var s Settings
	err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &s,
		Lookuper: lookup,
	})
	if err != nil {
		return s, fmt.Errorf("settings load failed: %w", err)
	}

	return s, nil
}

// SettingsPath returns the location of the persisted settings file,
// ~/.planetarycomputer/settings.env.
func SettingsPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot locate home directory: %w", err)
	}

	return filepath.Join(home, settingsDir, settingsFile), nil
}

// SaveSubscriptionKey persists the subscription key to the settings file,
// preserving any other entries already present. It returns the path written.
func SaveSubscriptionKey(key string) (string, error) {
	path, err := SettingsPath()
	if err != nil {
		return "", err
	}

	return path, saveSubscriptionKey(path, key)
}

func saveSubscriptionKey(path, key string) error {
	env := gotenv.Env{}
	if b, err := os.ReadFile(path); err == nil {
		env = gotenv.Parse(strings.NewReader(string(b)))
	}
	env[subscriptionKeyVar] = key

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("cannot create settings directory: %w", err)
	}

	var sb strings.Builder
	for _, k := range slices.Sorted(maps.Keys(env)) {
		fmt.Fprintf(&sb, "%s=%q\n", k, env[k])
	}

	if err := os.WriteFile(path, []byte(sb.String()), 0o600); err != nil {
		return fmt.Errorf("cannot write settings file: %w", err)
	}

	return nil
}

// fileLookuper exposes the settings file as an envconfig Lookuper. A missing
// or unreadable file yields an empty lookuper: the file is optional.
func fileLookuper() envconfig.Lookuper {
	path, err := SettingsPath()
	if err != nil {
		return envconfig.MapLookuper(nil)
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return envconfig.MapLookuper(nil)
	}

	return envconfig.MapLookuper(gotenv.Parse(strings.NewReader(string(b))))
}
