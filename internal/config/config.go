package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/propdesk/cli/internal/session"
)

const (
	dirName    = "propdesk"
	fileName   = "config.json"
	dirPerms   = 0700
	filePerms  = 0600
	DefaultURL = "http://localhost:8080"

	DefaultPollInterval = 15 * time.Second
	DefaultHighlightTTL = 30 * time.Second
)

// Environment variables read by Resolve. PathEnv moves the config file.
const (
	PathEnv         = "PROPDESK_CONFIG"
	ServerEnv       = "PROPDESK_SERVER"
	TokenEnv        = "PROPDESK_TOKEN"
	RoleEnv         = "PROPDESK_ROLE"
	PollIntervalEnv = "PROPDESK_POLL_INTERVAL"
	HighlightTTLEnv = "PROPDESK_HIGHLIGHT_TTL"
)

// Duration is a time.Duration stored as a Go duration string ("15s").
type Duration time.Duration

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		var secs float64
		if err2 := json.Unmarshal(data, &secs); err2 != nil {
			return fmt.Errorf("duration: %w", err)
		}
		*d = Duration(secs * float64(time.Second))
		return nil
	}
	if s == "" {
		*d = 0
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// Config holds persisted CLI configuration.
type Config struct {
	ServerURL    string           `json:"server_url"`
	Token        string           `json:"token"`
	Role         string           `json:"role,omitempty"`
	User         *session.Profile `json:"user,omitempty"`
	PollInterval Duration         `json:"poll_interval,omitempty"`
	HighlightTTL Duration         `json:"highlight_ttl,omitempty"`
}

// Path returns the full path to the config file.
func Path() (string, error) {
	if p := os.Getenv(PathEnv); p != "" {
		return p, nil
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, dirName, fileName), nil
}

// Load reads the config from disk. Returns a default Config (not an error) if the file doesn't exist.
func Load() (*Config, error) {
	p, err := Path()
	if err != nil {
		return &Config{ServerURL: DefaultURL}, nil
	}
	data, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{ServerURL: DefaultURL}, nil
		}
		return nil, err
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", p, err)
	}
	if cfg.ServerURL == "" {
		cfg.ServerURL = DefaultURL
	}
	return &cfg, nil
}

// Save writes the config to disk, creating the directory if needed.
func Save(cfg *Config) error {
	p, err := Path()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), dirPerms); err != nil {
		return err
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(p, data, filePerms)
}

// Clear removes the config file.
func Clear() error {
	p, err := Path()
	if err != nil {
		return err
	}
	err = os.Remove(p)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// HasToken reports whether a token is configured.
func (c *Config) HasToken() bool {
	return c.Token != ""
}

// Session builds the API session from the stored credentials.
func (c *Config) Session() *session.Session {
	s := session.New(c.Token)
	if c.User != nil {
		p := *c.User
		s.Profile = &p
	}
	return s
}

// SetSession stores the credentials and profile of s. A nil session logs out.
func (c *Config) SetSession(s *session.Session) {
	if s == nil {
		c.Token = ""
		c.User = nil
		return
	}
	c.Token = s.Token
	c.User = nil
	if s.Profile != nil {
		p := *s.Profile
		c.User = &p
	}
}

// LoadDotEnv loads variables from the given .env files (".env" when none are
// named) without overriding ones already set. Missing files are ignored.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// Settings is the effective configuration after environment overrides.
// It is never written back to disk.
type Settings struct {
	ServerURL    string
	Token        string
	Role         string
	PollInterval time.Duration
	HighlightTTL time.Duration
}

// Resolve layers environment overrides over the persisted config and fills
// defaults for anything still unset.
func Resolve(c *Config) Settings {
	s := Settings{
		ServerURL:    getEnv(ServerEnv, c.ServerURL),
		Token:        getEnv(TokenEnv, c.Token),
		Role:         getEnv(RoleEnv, c.Role),
		PollInterval: getDurationEnv(PollIntervalEnv, time.Duration(c.PollInterval)),
		HighlightTTL: getDurationEnv(HighlightTTLEnv, time.Duration(c.HighlightTTL)),
	}
	if s.ServerURL == "" {
		s.ServerURL = DefaultURL
	}
	if s.Role == "" && c.User != nil {
		s.Role = c.User.Role
	}
	if s.PollInterval <= 0 {
		s.PollInterval = DefaultPollInterval
	}
	if s.HighlightTTL <= 0 {
		s.HighlightTTL = DefaultHighlightTTL
	}
	return s
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getDurationEnv(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return fallback
}
