package config

import (
	"fmt"
	"net/url"
	"time"
)

type Config struct {
	API       APIConfig
	Storage   StorageConfig
	Dashboard DashboardConfig
	List      ListConfig
	Log       LogConfig
}

type APIConfig struct {
	BaseURL string
	Timeout string
}

type StorageConfig struct {
	DataDir string
}

type DashboardConfig struct {
	WindowDays int
}

type ListConfig struct {
	PageSize int
}

type LogConfig struct {
	Level string
}

func defaults() Config {
	return Config{
		API: APIConfig{
			BaseURL: "http://127.0.0.1:8000",
			Timeout: "30s",
		},
		Storage: StorageConfig{
			DataDir: defaultDataDir(),
		},
		Dashboard: DashboardConfig{
			WindowDays: 14,
		},
		List: ListConfig{
			PageSize: 20,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from the platform-native backend and
// environment variables.
//
// On macOS the backend is UserDefaults (domain: com.cvscreen.app).
// On Linux the backend is a JSON file at $XDG_CONFIG_HOME/cvscreen/config.json.
//
// Environment variables (CVSCREEN_*) override backend values on all
// platforms.
func Load() (Config, error) {
	return loadWith(newPlatformBackend())
}

func loadWith(b ConfigBackend) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)

	if _, err := url.ParseRequestURI(cfg.API.BaseURL); err != nil {
		return Config{}, fmt.Errorf("invalid api.base_url %q: %w", cfg.API.BaseURL, err)
	}
	if _, err := time.ParseDuration(cfg.API.Timeout); err != nil {
		return Config{}, fmt.Errorf("invalid api.timeout %q: %w", cfg.API.Timeout, err)
	}
	if cfg.Dashboard.WindowDays < 1 {
		return Config{}, fmt.Errorf("dashboard.window_days must be at least 1, got %d", cfg.Dashboard.WindowDays)
	}
	if cfg.List.PageSize < 1 || cfg.List.PageSize > 100 {
		return Config{}, fmt.Errorf("list.page_size must be between 1 and 100, got %d", cfg.List.PageSize)
	}

	return cfg, nil
}

// APITimeout returns the parsed request timeout. Load validates the value,
// so this cannot fail after a successful Load.
func (c Config) APITimeout() time.Duration {
	d, err := time.ParseDuration(c.API.Timeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}
