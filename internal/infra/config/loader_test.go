package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runoshun/adw/internal/domain"
)

type fakeEnv map[string]string

func (e fakeEnv) get(key string) string { return e[key] }

func newTestLoader(t *testing.T, env fakeEnv) (*Loader, string, string) {
	t.Helper()
	repoRoot := t.TempDir()
	globalDir := t.TempDir()
	if env == nil {
		env = fakeEnv{}
	}
	return NewLoaderWithGlobalDir(repoRoot, globalDir, env.get), repoRoot, globalDir
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestLoader_Load_Defaults(t *testing.T) {
	loader, repoRoot, _ := newTestLoader(t, nil)

	cfg, err := loader.Load()
	require.NoError(t, err)

	assert.Equal(t, domain.DefaultUnitRetries, cfg.Retries.Unit)
	assert.Equal(t, domain.DefaultE2ERetries, cfg.Retries.E2E)
	assert.Equal(t, domain.DefaultPortPolicy(), cfg.Ports)
	assert.Equal(t, "npm install", cfg.Worktree.InstallCommand)
	assert.Equal(t, "e2e/*.spec.ts", cfg.E2E.Glob)
	assert.Equal(t, "claude", cfg.Claude.Path)
	assert.Equal(t, filepath.Join(repoRoot, "trees"), cfg.Project.TreesDir)
	assert.Equal(t, filepath.Join(repoRoot, "agents"), cfg.Project.AgentsDir)
	assert.Empty(t, cfg.Warnings)
}

func TestLoader_Load_Precedence(t *testing.T) {
	loader, repoRoot, globalDir := newTestLoader(t, fakeEnv{EnvLogLevel: "DEBUG"})
	writeFile(t, filepath.Join(globalDir, domain.ConfigFileName), `
[log]
level = "warn"

[retries]
unit = 6
e2e = 3

[ports]
backend_base = 4100
frontend_base = 4200
max_concurrent = 10
`)
	writeFile(t, domain.RepoConfigPath(repoRoot), `
[retries]
unit = 2

[project]
trees_dir = "worktrees"
`)

	cfg, err := loader.Load()
	require.NoError(t, err)

	assert.Equal(t, 2, cfg.Retries.Unit, "repo overrides global")
	assert.Equal(t, 3, cfg.Retries.E2E, "global value survives when repo is silent")
	assert.Equal(t, domain.PortPolicy{BackendBase: 4100, FrontendBase: 4200, MaxConcurrent: 10}, cfg.Ports)
	assert.Equal(t, "debug", cfg.Log.Level, "environment overrides files")
	assert.Equal(t, filepath.Join(repoRoot, "worktrees"), cfg.Project.TreesDir)
}

func TestLoader_Load_ExplicitFile(t *testing.T) {
	loader, repoRoot, _ := newTestLoader(t, nil)
	writeFile(t, domain.RepoConfigPath(repoRoot), "[retries]\nunit = 2\n")
	explicit := filepath.Join(t.TempDir(), "ci.toml")
	writeFile(t, explicit, "[retries]\nunit = 9\n")

	cfg, err := loader.WithFile(explicit).Load()
	require.NoError(t, err)
	assert.Equal(t, 9, cfg.Retries.Unit)

	_, err = loader.WithFile(filepath.Join(t.TempDir(), "missing.toml")).Load()
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoader_Load_Environment(t *testing.T) {
	loader, _, _ := newTestLoader(t, fakeEnv{
		EnvAPIKey:     "sk-test",
		EnvClaudePath: "/opt/claude",
		EnvGitHubPAT:  "ghp_x",
		EnvModelSet:   "heavy",
	})

	cfg, err := loader.Load()
	require.NoError(t, err)
	assert.Equal(t, "sk-test", cfg.Claude.APIKey)
	assert.Equal(t, "/opt/claude", cfg.Claude.Path)
	assert.Equal(t, "ghp_x", cfg.GitHub.Token)
	assert.Equal(t, domain.ModelSetHeavy, cfg.Claude.ModelSet)
}

func TestLoader_Load_UnknownKeysAreWarnings(t *testing.T) {
	loader, repoRoot, _ := newTestLoader(t, nil)
	writeFile(t, domain.RepoConfigPath(repoRoot), `
[retries]
unit = 5
typo = 1

[nonsense]
x = true
`)

	cfg, err := loader.Load()
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Retries.Unit, "known keys still apply")
	assert.Contains(t, cfg.Warnings, "unknown key in .adw.toml: retries.typo")
	found := false
	for _, w := range cfg.Warnings {
		if strings.HasPrefix(w, "unknown key in .adw.toml: nonsense") {
			found = true
		}
	}
	assert.True(t, found, "unknown table is reported: %v", cfg.Warnings)
}

func TestLoader_Load_InvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantMsg string
	}{
		{name: "zero retries", content: "[retries]\nunit = 0\n", wantMsg: "retries.unit"},
		{name: "bad model set", content: "[claude]\nmodel_set = \"premium\"\n", wantMsg: "claude.model_set"},
		{name: "port out of range", content: "[ports]\nbackend_base = 70000\n", wantMsg: "ports.backend_base"},
		{name: "no slots", content: "[ports]\nmax_concurrent = 0\n", wantMsg: "ports.max_concurrent"},
		{name: "bad level", content: "[log]\nlevel = \"loud\"\n", wantMsg: "log.level"},
		{name: "bad duration", content: "[worktree]\ncleanup_max_age = \"soon\"\n", wantMsg: "cleanup_max_age"},
		{name: "syntax", content: "[retries\n", wantMsg: "parse"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loader, repoRoot, _ := newTestLoader(t, nil)
			writeFile(t, domain.RepoConfigPath(repoRoot), tt.content)

			_, err := loader.Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestRequireWorkflow(t *testing.T) {
	cfg := domain.NewDefaultConfig()
	err := RequireWorkflow(cfg)
	require.ErrorIs(t, err, domain.ErrMissingConfig)
	assert.Contains(t, err.Error(), EnvAPIKey)

	cfg.Claude.APIKey = "sk"
	assert.NoError(t, RequireWorkflow(cfg))

	cfg.Claude.Path = ""
	err = RequireWorkflow(cfg)
	assert.Contains(t, err.Error(), EnvClaudePath)
}

func TestLoader_Sources(t *testing.T) {
	loader, repoRoot, globalDir := newTestLoader(t, nil)
	writeFile(t, domain.RepoConfigPath(repoRoot), "[log]\nlevel = \"info\"\n")

	sources := loader.Sources()
	require.Len(t, sources, 2)
	assert.Equal(t, filepath.Join(globalDir, domain.ConfigFileName), sources[0].Path)
	assert.False(t, sources[0].Exists)
	assert.True(t, sources[1].Exists)
	assert.Contains(t, sources[1].Content, "level")
}

func TestRender_OmitsSecrets(t *testing.T) {
	cfg := domain.NewDefaultConfig()
	cfg.Claude.APIKey = "sk-secret"
	cfg.GitHub.Token = "ghp_secret"

	out, err := Render(cfg)
	require.NoError(t, err)
	assert.NotContains(t, out, "sk-secret")
	assert.NotContains(t, out, "ghp_secret")
	assert.Contains(t, out, "[retries]")
	assert.Contains(t, out, "max_concurrent = 15")
}

func TestLoader_InitRepoConfig_RoundTrip(t *testing.T) {
	loader, repoRoot, _ := newTestLoader(t, nil)
	assert.False(t, loader.GetRepoConfigInfo().Exists)

	cfg := domain.NewDefaultConfig()
	cfg.Retries.Unit = 7
	require.NoError(t, loader.InitRepoConfig(cfg))

	info := loader.GetRepoConfigInfo()
	assert.True(t, info.Exists)
	assert.Equal(t, domain.RepoConfigPath(repoRoot), info.Path)

	loaded, err := loader.Load()
	require.NoError(t, err)
	assert.Equal(t, 7, loaded.Retries.Unit)
	assert.Empty(t, loaded.Warnings, "rendered config only uses known keys")
}

func TestLoader_InitGlobalConfig(t *testing.T) {
	loader, _, globalDir := newTestLoader(t, nil)
	require.NoError(t, loader.InitGlobalConfig(domain.NewDefaultConfig()))

	info := loader.GetGlobalConfigInfo()
	assert.True(t, info.Exists)
	assert.Equal(t, filepath.Join(globalDir, domain.ConfigFileName), info.Path)

	noGlobal := NewLoaderWithGlobalDir(t.TempDir(), "", fakeEnv{}.get)
	assert.ErrorIs(t, noGlobal.InitGlobalConfig(domain.NewDefaultConfig()), domain.ErrNoGlobalConfigDir)
	assert.Empty(t, noGlobal.GetGlobalConfigInfo().Path)
}
