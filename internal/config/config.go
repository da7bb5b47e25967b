// Package config loads vanconnectd configuration.
// Source priority (highest to lowest):
//  1. Environment variables (VANCONNECT_*)
//  2. The YAML file given with --config
//  3. Built-in defaults
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	BackendCookie = "cookie"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

type Routes struct {
	Login           string `yaml:"login"`
	Landing         string `yaml:"landing"`
	DriverDashboard string `yaml:"driver_dashboard"`
	AdminDashboard  string `yaml:"admin_dashboard"`
}

type DataServiceConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

type SessionConfig struct {
	// Backend: "cookie" (default) | "redis" | "memory"
	Backend    string `yaml:"backend"`
	CookieName string `yaml:"cookie_name"`
	// Secret signs cookie-backed sessions. Generated at startup when empty.
	Secret   string        `yaml:"secret"`
	RedisURL string        `yaml:"redis_url"`
	IdleTTL  time.Duration `yaml:"idle_ttl"`
	// SecureCookie marks the tab cookie Secure; enable behind HTTPS.
	SecureCookie bool `yaml:"secure_cookie"`
}

type MockAPIConfig struct {
	Listen string `yaml:"listen"`
	DBPath string `yaml:"db_path"`
}

type Config struct {
	Listen       string            `yaml:"listen"`
	DataService  DataServiceConfig `yaml:"data_service"`
	Routes       Routes            `yaml:"routes"`
	Session      SessionConfig     `yaml:"session"`
	LogDir       string            `yaml:"log_dir"`
	Debug        bool              `yaml:"debug"`
	SettingsPath string            `yaml:"settings_path"`
	MockAPI      MockAPIConfig     `yaml:"mockapi"`
}

func DefaultConfig() *Config {
	return &Config{
		Listen: ":8080",
		DataService: DataServiceConfig{
			BaseURL: "http://localhost:3000",
			Timeout: 10 * time.Second,
		},
		Routes: Routes{
			Login:           "/login",
			Landing:         "/",
			DriverDashboard: "/motorista",
			AdminDashboard:  "/admin",
		},
		Session: SessionConfig{
			Backend:    BackendCookie,
			CookieName: "vanconnect_tab",
			IdleTTL:    12 * time.Hour,
		},
		SettingsPath: "vanconnect_data/settings.json",
		MockAPI: MockAPIConfig{
			Listen: ":3000",
			DBPath: "vanconnect_data/db.json",
		},
	}
}

// Load reads path (if non-empty) over the defaults, then applies environment
// overrides and validates the result.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	strs := map[string]*string{
		"VANCONNECT_LISTEN":           &c.Listen,
		"VANCONNECT_API_BASE_URL":     &c.DataService.BaseURL,
		"VANCONNECT_SESSION_BACKEND":  &c.Session.Backend,
		"VANCONNECT_SESSION_SECRET":   &c.Session.Secret,
		"VANCONNECT_REDIS_URL":        &c.Session.RedisURL,
		"VANCONNECT_LOG_DIR":          &c.LogDir,
		"VANCONNECT_SETTINGS_PATH":    &c.SettingsPath,
		"VANCONNECT_MOCKAPI_LISTEN":   &c.MockAPI.Listen,
		"VANCONNECT_MOCKAPI_DB":       &c.MockAPI.DBPath,
		"VANCONNECT_LOGIN_PAGE":       &c.Routes.Login,
		"VANCONNECT_LANDING_PAGE":     &c.Routes.Landing,
		"VANCONNECT_DRIVER_DASHBOARD": &c.Routes.DriverDashboard,
		"VANCONNECT_ADMIN_DASHBOARD":  &c.Routes.AdminDashboard,
	}
	for key, dst := range strs {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	if v := os.Getenv("VANCONNECT_API_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("VANCONNECT_API_TIMEOUT: %w", err)
		}
		c.DataService.Timeout = d
	}
	if v := os.Getenv("VANCONNECT_DEBUG"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("VANCONNECT_DEBUG: %w", err)
		}
		c.Debug = b
	}
	return nil
}

func (c *Config) Validate() error {
	var errs []error
	if c.DataService.BaseURL == "" {
		errs = append(errs, errors.New("data_service.base_url is required"))
	}
	c.DataService.BaseURL = strings.TrimRight(c.DataService.BaseURL, "/")
	for name, r := range map[string]string{
		"routes.login":            c.Routes.Login,
		"routes.landing":          c.Routes.Landing,
		"routes.driver_dashboard": c.Routes.DriverDashboard,
		"routes.admin_dashboard":  c.Routes.AdminDashboard,
	} {
		if !strings.HasPrefix(r, "/") {
			errs = append(errs, fmt.Errorf("%s must be an absolute path, got %q", name, r))
		}
	}
	switch c.Session.Backend {
	case BackendCookie, BackendMemory:
	case BackendRedis:
		if c.Session.RedisURL == "" {
			errs = append(errs, errors.New("session.redis_url is required for the redis backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("invalid session.backend %q", c.Session.Backend))
	}
	if c.Session.CookieName == "" {
		errs = append(errs, errors.New("session.cookie_name is required"))
	}
	return errors.Join(errs...)
}
