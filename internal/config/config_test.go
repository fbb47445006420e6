package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		GitLabURL:          "https://gitlab.example.com",
		AccessToken:        "glpat-secret",
		ConcurrentRequests: 25,
		Teams: []Team{
			{Name: "backend", Usernames: []string{"alice", "bob"}, Default: true},
			{Name: "frontend", Usernames: []string{"carol"}},
		},
	}
}

func TestSaveFileLoadFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	original := validConfig()

	require.NoError(t, SaveFile(original, path))

	// The file holds an access token and must not be world readable.
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	loaded, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, original, loaded)
}

func TestLoadFileMissing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadFileInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("{not yaml"), 0o600))

	_, err := LoadFile(path)
	assert.ErrorContains(t, err, "parse config")
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("GITLAB_TOKEN", "env-token")

	cfg := validConfig()
	applyEnvOverrides(cfg)
	assert.Equal(t, "env-token", cfg.AccessToken)
}

func TestConfig_Validate(t *testing.T) {
	testCases := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "valid config",
			mutate: func(c *Config) {},
		},
		{
			name:    "missing url",
			mutate:  func(c *Config) { c.GitLabURL = " " },
			wantErr: "gitlab_url is required",
		},
		{
			name:    "missing token",
			mutate:  func(c *Config) { c.AccessToken = "" },
			wantErr: "access_token is required",
		},
		{
			name:    "zero concurrency",
			mutate:  func(c *Config) { c.ConcurrentRequests = 0 },
			wantErr: "concurrent_requests must be at least 1",
		},
		{
			name: "duplicate team",
			mutate: func(c *Config) {
				c.Teams = append(c.Teams, Team{Name: "backend", Usernames: []string{"dave"}})
			},
			wantErr: `duplicate team "backend"`,
		},
		{
			name: "team without usernames",
			mutate: func(c *Config) {
				c.Teams = []Team{{Name: "empty", Usernames: []string{" ", ""}}}
			},
			wantErr: `team "empty" has no usernames`,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(cfg)
			err := cfg.Validate()
			if tc.wantErr == "" {
				assert.NoError(t, err)
			} else {
				assert.ErrorContains(t, err, tc.wantErr)
			}
		})
	}
}

func TestConfig_ValidateDeduplicatesUsernames(t *testing.T) {
	cfg := validConfig()
	cfg.Teams = []Team{{Name: "backend", Usernames: []string{" alice ", "bob", "alice", "", "carol"}}}

	require.NoError(t, cfg.Validate())
	assert.Equal(t, []string{"alice", "bob", "carol"}, cfg.Teams[0].Usernames)
}

func TestConfig_TeamSelection(t *testing.T) {
	cfg := validConfig()

	named, err := cfg.Team("frontend")
	require.NoError(t, err)
	assert.Equal(t, "frontend", named.Name)

	byDefault, err := cfg.Team("")
	require.NoError(t, err)
	assert.Equal(t, "backend", byDefault.Name)

	_, err = cfg.Team("platform")
	assert.ErrorContains(t, err, `team "platform" not found`)

	single := &Config{Teams: []Team{{Name: "only", Usernames: []string{"alice"}}}}
	team, err := single.Team("")
	require.NoError(t, err)
	assert.Equal(t, "only", team.Name)

	none := &Config{}
	_, err = none.Team("")
	assert.ErrorContains(t, err, "no teams configured")
}

func TestConfig_AddRemoveDefaultTeam(t *testing.T) {
	cfg := &Config{}

	// The first team becomes the default automatically.
	require.NoError(t, cfg.AddTeam(Team{Name: "backend", Usernames: []string{"alice"}}, false))
	assert.True(t, cfg.Teams[0].Default)

	require.NoError(t, cfg.AddTeam(Team{Name: "frontend", Usernames: []string{"bob"}}, true))
	assert.False(t, cfg.Teams[0].Default)
	assert.True(t, cfg.Teams[1].Default)

	assert.ErrorContains(t, cfg.AddTeam(Team{Name: "backend", Usernames: []string{"x"}}, false), "already exists")

	require.NoError(t, cfg.SetDefaultTeam("backend"))
	assert.True(t, cfg.Teams[0].Default)
	assert.False(t, cfg.Teams[1].Default)
	assert.ErrorContains(t, cfg.SetDefaultTeam("platform"), "not found")

	// Removing the default team promotes the first remaining one.
	require.NoError(t, cfg.RemoveTeam("backend"))
	require.Len(t, cfg.Teams, 1)
	assert.Equal(t, "frontend", cfg.Teams[0].Name)
	assert.True(t, cfg.Teams[0].Default)

	assert.ErrorContains(t, cfg.RemoveTeam("backend"), "not found")
}
