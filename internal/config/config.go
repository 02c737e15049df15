package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds service configuration loaded from YAML, .env and env.
type Config struct {
	ServerPort string

	WeatherAPIKey     string
	WeatherAPIURL     string
	WeatherAPITimeout time.Duration
	ValidateAPIKey    bool

	RequestTimeout time.Duration

	LocationProvider  string // "static" or "ip"
	StaticLatitude    float64
	StaticLongitude   float64
	LocationLookupURL string
	LocationTimeout   time.Duration

	AlertDelay               time.Duration
	MaxAlerts                int
	IgnoreOverlappingRefresh bool

	RefreshRateLimitRPS   float64
	RefreshRateLimitBurst int

	ShutdownTimeout            time.Duration
	ShutdownFetchTimeout       time.Duration
	ShutdownFetchCheckInterval time.Duration
}

type fileConfig struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`

	WeatherAPI struct {
		URL            string `yaml:"url"`
		Timeout        string `yaml:"timeout"`
		ValidateOnBoot *bool  `yaml:"validate_on_start"`
	} `yaml:"weather_api"`

	Request struct {
		Timeout string `yaml:"timeout"`
	} `yaml:"request"`

	Location struct {
		Provider  string   `yaml:"provider"`
		Latitude  *float64 `yaml:"latitude"`
		Longitude *float64 `yaml:"longitude"`
		LookupURL string   `yaml:"lookup_url"`
		Timeout   string   `yaml:"timeout"`
	} `yaml:"location"`

	Screen struct {
		AlertDelay               string `yaml:"alert_delay"`
		MaxAlerts                int    `yaml:"max_alerts"`
		IgnoreOverlappingRefresh bool   `yaml:"ignore_overlapping_refresh"`
	} `yaml:"screen"`

	Refresh struct {
		RateLimitRPS   float64 `yaml:"rate_limit_rps"`
		RateLimitBurst int     `yaml:"rate_limit_burst"`
	} `yaml:"refresh"`

	Shutdown struct {
		Timeout            string `yaml:"timeout"`
		FetchTimeout       string `yaml:"fetch_timeout"`
		FetchCheckInterval string `yaml:"fetch_check_interval"`
	} `yaml:"shutdown"`
}

type secretsFile struct {
	WeatherAPIKey string `yaml:"weather_api_key"`
}

// Load reads configuration from config/{ENV_NAME}.yaml (default dev) and config/secrets.yaml.
// A .env file in the working directory is loaded first without overriding variables
// already set. API key comes from WEATHER_API_KEY env or secrets file. Call from project root.
func Load() (*Config, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("config: get working directory: %w", err)
	}
	if err := godotenv.Load(filepath.Join(cwd, ".env")); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env file: %w", err)
	}

	env := os.Getenv("ENV_NAME")
	if env == "" {
		env = "dev"
	}

	configPath := filepath.Join(cwd, "config", env+".yaml")
	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s", configPath)
		}
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	cfg := &Config{}

	cfg.ServerPort = strings.TrimSpace(os.Getenv("PORT"))
	if cfg.ServerPort == "" {
		cfg.ServerPort = fc.Server.Port
	}
	if cfg.ServerPort == "" {
		cfg.ServerPort = "8080"
	}

	cfg.WeatherAPIKey = os.Getenv("WEATHER_API_KEY")
	if cfg.WeatherAPIKey == "" {
		secretsPath := filepath.Join(cwd, "config", "secrets.yaml")
		secretsData, err := os.ReadFile(secretsPath)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("read secrets file: %w", err)
			}
		} else {
			var sec secretsFile
			if err := yaml.Unmarshal(secretsData, &sec); err != nil {
				return nil, fmt.Errorf("parse secrets file: %w", err)
			}
			cfg.WeatherAPIKey = sec.WeatherAPIKey
		}
	}
	if cfg.WeatherAPIKey == "" {
		return nil, fmt.Errorf("WEATHER_API_KEY required (set env, .env or config/secrets.yaml weather_api_key)")
	}

	cfg.WeatherAPIURL = fc.WeatherAPI.URL
	if cfg.WeatherAPIURL == "" {
		cfg.WeatherAPIURL = "http://api.openweathermap.org/data/2.5/weather"
	}
	cfg.WeatherAPITimeout = parseDurationOrZero(fc.WeatherAPI.Timeout, 5*time.Second)
	cfg.ValidateAPIKey = true
	if fc.WeatherAPI.ValidateOnBoot != nil {
		cfg.ValidateAPIKey = *fc.WeatherAPI.ValidateOnBoot
	}

	cfg.RequestTimeout = parseDuration(fc.Request.Timeout, 5*time.Second)

	cfg.LocationProvider = strings.TrimSpace(strings.ToLower(os.Getenv("LOCATION_PROVIDER")))
	if cfg.LocationProvider == "" {
		cfg.LocationProvider = strings.TrimSpace(strings.ToLower(fc.Location.Provider))
	}
	if cfg.LocationProvider == "" {
		cfg.LocationProvider = "static"
	}
	if cfg.LocationProvider == "static" {
		if fc.Location.Latitude == nil || fc.Location.Longitude == nil {
			return nil, fmt.Errorf("location.latitude and location.longitude required for static provider")
		}
	}
	if fc.Location.Latitude != nil {
		cfg.StaticLatitude = *fc.Location.Latitude
	}
	if fc.Location.Longitude != nil {
		cfg.StaticLongitude = *fc.Location.Longitude
	}
	cfg.LocationLookupURL = strings.TrimSpace(fc.Location.LookupURL)
	cfg.LocationTimeout = parseDuration(fc.Location.Timeout, 5*time.Second)

	cfg.AlertDelay = parseDuration(fc.Screen.AlertDelay, 500*time.Millisecond)
	cfg.MaxAlerts = fc.Screen.MaxAlerts
	if cfg.MaxAlerts <= 0 {
		cfg.MaxAlerts = 20
	}
	cfg.IgnoreOverlappingRefresh = fc.Screen.IgnoreOverlappingRefresh

	cfg.RefreshRateLimitRPS = fc.Refresh.RateLimitRPS
	if cfg.RefreshRateLimitRPS < 0 {
		cfg.RefreshRateLimitRPS = 0
	}
	cfg.RefreshRateLimitBurst = fc.Refresh.RateLimitBurst
	if cfg.RefreshRateLimitBurst <= 0 {
		cfg.RefreshRateLimitBurst = 5
	}

	cfg.ShutdownTimeout = parseDuration(fc.Shutdown.Timeout, 10*time.Second)
	cfg.ShutdownFetchTimeout = parseDuration(fc.Shutdown.FetchTimeout, 10*time.Second)
	cfg.ShutdownFetchCheckInterval = parseDuration(fc.Shutdown.FetchCheckInterval, 100*time.Millisecond)

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// parseDuration parses a duration string and returns defaultVal if parsing fails or result is <= 0.
func parseDuration(s string, defaultVal time.Duration) time.Duration {
	d := parseDurationOrZero(s, defaultVal)
	if d <= 0 {
		return defaultVal
	}
	return d
}

// parseDurationOrZero parses a duration string, returning defaultVal on empty string or parse error.
// Returns zero or negative durations as-is (caller should handle fallback).
func parseDurationOrZero(s string, defaultVal time.Duration) time.Duration {
	s = strings.TrimSpace(s)
	if s == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return defaultVal
	}
	return d
}

// validate performs post-load validation of configuration values.
// RequestTimeout must cover one full location+weather flow; it is raised to
// LocationTimeout+WeatherAPITimeout when shorter.
func validate(cfg *Config) error {
	if cfg.WeatherAPITimeout <= 0 {
		return fmt.Errorf("weather_api.timeout must be positive")
	}
	if floor := cfg.LocationTimeout + cfg.WeatherAPITimeout; cfg.RequestTimeout < floor {
		cfg.RequestTimeout = floor
	}
	switch cfg.LocationProvider {
	case "static":
		if cfg.StaticLatitude < -90 || cfg.StaticLatitude > 90 {
			return fmt.Errorf("location.latitude must be within [-90, 90], got %v", cfg.StaticLatitude)
		}
		if cfg.StaticLongitude < -180 || cfg.StaticLongitude > 180 {
			return fmt.Errorf("location.longitude must be within [-180, 180], got %v", cfg.StaticLongitude)
		}
	case "ip":
		// lookup URL defaults in the location package
	default:
		return fmt.Errorf("location.provider must be static or ip, got %q", cfg.LocationProvider)
	}
	return nil
}
