package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Backend struct {
		BaseURL         string `yaml:"base_url"`
		APIKey          string `yaml:"api_key"`
		CacheTTLSeconds int    `yaml:"cache_ttl_seconds"`
	} `yaml:"backend"`

	Redis struct {
		Address  string `yaml:"address"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`

	Session struct {
		Path   string       `yaml:"path"`
		Backup BackupConfig `yaml:"backup"`
	} `yaml:"session"`

	Server struct {
		Port int `yaml:"port"`
	} `yaml:"server"`

	Monitoring struct {
		HealthCheckPort   int  `yaml:"health_check_port"`
		PrometheusEnabled bool `yaml:"prometheus_enabled"`
		PrometheusPort    int  `yaml:"prometheus_port"`
	} `yaml:"monitoring"`

	Booking struct {
		OpenHour           int `yaml:"open_hour"`
		CloseHour          int `yaml:"close_hour"`
		SlotMinutes        int `yaml:"slot_minutes"`
		MaxAdvanceDays     int `yaml:"max_advance_days"`
		SuccessResetSecs   int `yaml:"success_reset_seconds"`
		SessionTimeoutMins int `yaml:"session_timeout_minutes"`
		SubmitPerMinute    int `yaml:"submit_per_minute"`
	} `yaml:"booking"`

	Locator struct {
		FallbackLat     float64 `yaml:"fallback_lat"`
		FallbackLng     float64 `yaml:"fallback_lng"`
		DefaultRadiusKm float64 `yaml:"default_radius_km"`
	} `yaml:"locator"`
}

// BackupConfig controls periodic copies of the session database.
type BackupConfig struct {
	Enabled       bool   `yaml:"enabled"`
	StoragePath   string `yaml:"storage_path"`
	IntervalHours int    `yaml:"interval_hours"`
	RetentionDays int    `yaml:"retention_days"`
}

func Load(path string) (*Config, error) {
	if path == "" {
		path = "configs/config.yaml"
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Support ${ENV_VAR} placeholders in YAML config.
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err = yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	if cfg.Backend.BaseURL == "" {
		return nil, fmt.Errorf("backend.base_url is required")
	}
	if cfg.Session.Path == "" {
		cfg.Session.Path = "data/barberclub_sessions.db"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8081
	}
	if cfg.Booking.OpenHour == 0 && cfg.Booking.CloseHour == 0 {
		cfg.Booking.OpenHour = 9
		cfg.Booking.CloseHour = 17
	}
	if cfg.Booking.SlotMinutes <= 0 {
		cfg.Booking.SlotMinutes = 30
	}
	if cfg.Booking.MaxAdvanceDays <= 0 {
		cfg.Booking.MaxAdvanceDays = 14
	}
	if cfg.Locator.FallbackLat == 0 && cfg.Locator.FallbackLng == 0 {
		// City center fallback used when geolocation is denied.
		cfg.Locator.FallbackLat = -23.5505
		cfg.Locator.FallbackLng = -46.6333
	}
	if cfg.Locator.DefaultRadiusKm <= 0 {
		cfg.Locator.DefaultRadiusKm = 10
	}
	if cfg.Session.Backup.Enabled {
		if cfg.Session.Backup.StoragePath == "" {
			cfg.Session.Backup.StoragePath = "data/backups"
		}
		if cfg.Session.Backup.IntervalHours <= 0 {
			cfg.Session.Backup.IntervalHours = 24
		}
	}

	return &cfg, nil
}

func (c *Config) SuccessResetDelay() time.Duration {
	if c.Booking.SuccessResetSecs <= 0 {
		return 3 * time.Second
	}
	return time.Duration(c.Booking.SuccessResetSecs) * time.Second
}

func (c *Config) SessionTimeout() time.Duration {
	if c.Booking.SessionTimeoutMins <= 0 {
		return 30 * time.Minute
	}
	return time.Duration(c.Booking.SessionTimeoutMins) * time.Minute
}

func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Backend.CacheTTLSeconds) * time.Second
}
