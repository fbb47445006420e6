// Package config loads, validates and persists the gitlab-metrics
// configuration file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	dirName  = "gitlab-metrics"
	fileName = "config.yaml"

	// legacyPath is the pre-1.0 location in the working directory. Load falls
	// back to it and Save migrates to the user-scoped path.
	legacyPath = "config.yaml"

	// DefaultConcurrentRequests matches the gateway default.
	DefaultConcurrentRequests = 25
)

// ErrNotConfigured is returned by Load when no configuration file exists.
var ErrNotConfigured = errors.New(`no configuration found; run "gitlab-metrics configure" first`)

// Team is a named group of GitLab usernames.
type Team struct {
	Name      string   `yaml:"name"`
	Usernames []string `yaml:"usernames"`
	Default   bool     `yaml:"default,omitempty"`
}

// Config is the persisted application configuration.
type Config struct {
	GitLabURL          string `yaml:"gitlab_url"`
	AccessToken        string `yaml:"access_token"`
	ConcurrentRequests int    `yaml:"concurrent_requests"`
	Teams              []Team `yaml:"teams"`
}

// Path returns the user-scoped configuration file location.
func Path() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve user config dir: %w", err)
	}
	return filepath.Join(dir, dirName, fileName), nil
}

// Load reads the configuration, preferring the user-scoped path and falling
// back to the legacy working-directory file. A GITLAB_TOKEN variable, from
// the environment or a local .env file, overrides the stored token.
func Load() (*Config, error) {
	path, err := Path()
	if err != nil {
		return nil, err
	}

	cfg, err := LoadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		cfg, err = LoadFile(legacyPath)
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotConfigured
		}
	}
	if err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)
	if cfg.ConcurrentRequests < 1 {
		cfg.ConcurrentRequests = DefaultConcurrentRequests
	}
	return cfg, nil
}

// LoadFile reads and parses a configuration file from an explicit path.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return &cfg, nil
}

// Save writes cfg to the user-scoped path and removes the legacy
// working-directory file if one exists. It returns the path written.
func Save(cfg *Config) (string, error) {
	path, err := Path()
	if err != nil {
		return "", err
	}
	if err := SaveFile(cfg, path); err != nil {
		return "", err
	}
	if _, err := os.Stat(legacyPath); err == nil {
		_ = os.Remove(legacyPath)
	}
	return path, nil
}

// SaveFile writes cfg to an explicit path, creating parent directories.
func SaveFile(cfg *Config, path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("create config dir: %w", err)
		}
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	// 0600: the file holds an access token.
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write config %s: %w", path, err)
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	_ = godotenv.Load()
	if token := os.Getenv("GITLAB_TOKEN"); token != "" {
		cfg.AccessToken = token
	}
}

// Validate checks that the configuration can drive a collection run. Team
// usernames are trimmed and deduplicated in place, preserving order.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.GitLabURL) == "" {
		return errors.New("gitlab_url is required")
	}
	if c.AccessToken == "" {
		return errors.New("access_token is required (set it via configure or GITLAB_TOKEN)")
	}
	if c.ConcurrentRequests < 1 {
		return errors.New("concurrent_requests must be at least 1")
	}

	seen := map[string]bool{}
	for i := range c.Teams {
		team := &c.Teams[i]
		if strings.TrimSpace(team.Name) == "" {
			return errors.New("team name is required")
		}
		if seen[team.Name] {
			return fmt.Errorf("duplicate team %q", team.Name)
		}
		seen[team.Name] = true

		team.Usernames = dedupe(team.Usernames)
		if len(team.Usernames) == 0 {
			return fmt.Errorf("team %q has no usernames", team.Name)
		}
	}
	return nil
}

func dedupe(usernames []string) []string {
	seen := map[string]bool{}
	out := make([]string, 0, len(usernames))
	for _, username := range usernames {
		username = strings.TrimSpace(username)
		if username == "" || seen[username] {
			continue
		}
		seen[username] = true
		out = append(out, username)
	}
	return out
}

// Team returns the named team. With an empty name it returns the only team
// when exactly one is configured, or the team marked as default.
func (c *Config) Team(name string) (*Team, error) {
	if name != "" {
		for i := range c.Teams {
			if c.Teams[i].Name == name {
				return &c.Teams[i], nil
			}
		}
		return nil, fmt.Errorf("team %q not found", name)
	}

	if len(c.Teams) == 0 {
		return nil, errors.New("no teams configured; add one with configure --add-team")
	}
	if len(c.Teams) == 1 {
		return &c.Teams[0], nil
	}
	for i := range c.Teams {
		if c.Teams[i].Default {
			return &c.Teams[i], nil
		}
	}
	return nil, errors.New("no default team configured; pass --team")
}

// AddTeam appends a team. When markDefault is set, the default flag moves to
// the new team.
func (c *Config) AddTeam(team Team, markDefault bool) error {
	for _, existing := range c.Teams {
		if existing.Name == team.Name {
			return fmt.Errorf("team %q already exists", team.Name)
		}
	}
	team.Usernames = dedupe(team.Usernames)
	if len(team.Usernames) == 0 {
		return fmt.Errorf("team %q has no usernames", team.Name)
	}
	if markDefault || len(c.Teams) == 0 {
		for i := range c.Teams {
			c.Teams[i].Default = false
		}
		team.Default = true
	}
	c.Teams = append(c.Teams, team)
	return nil
}

// RemoveTeam deletes the named team. When the default team is removed and
// others remain, the first remaining team becomes the default.
func (c *Config) RemoveTeam(name string) error {
	for i := range c.Teams {
		if c.Teams[i].Name != name {
			continue
		}
		wasDefault := c.Teams[i].Default
		c.Teams = append(c.Teams[:i], c.Teams[i+1:]...)
		if wasDefault && len(c.Teams) > 0 {
			c.Teams[0].Default = true
		}
		return nil
	}
	return fmt.Errorf("team %q not found", name)
}

// SetDefaultTeam moves the default flag to the named team.
func (c *Config) SetDefaultTeam(name string) error {
	found := false
	for i := range c.Teams {
		c.Teams[i].Default = c.Teams[i].Name == name
		found = found || c.Teams[i].Default
	}
	if !found {
		return fmt.Errorf("team %q not found", name)
	}
	return nil
}
