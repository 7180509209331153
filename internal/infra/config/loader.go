// Package config provides configuration loading functionality.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"

	"github.com/runoshun/adw/internal/domain"
)

// Environment variables that override file settings.
const (
	EnvAPIKey     = "ANTHROPIC_API_KEY"
	EnvClaudePath = "CLAUDE_CODE_PATH"
	EnvGitHubPAT  = "GITHUB_PAT"
	EnvLogLevel   = "ADW_LOG_LEVEL"
	EnvModelSet   = "ADW_MODEL_SET"
)

// Ensure Loader implements domain.ConfigLoader.
var _ domain.ConfigLoader = (*Loader)(nil)

// Loader loads configuration from TOML files and the environment.
// Fields are ordered to minimize memory padding.
type Loader struct {
	getenv        func(string) string
	validate      *validator.Validate
	repoRoot      string // Repository root holding .adw.toml
	globalConfDir string // Path to global config directory (e.g., ~/.config/adw)
	explicitPath  string // File named by --config; must exist when set
}

// NewLoader creates a new Loader reading the real environment.
func NewLoader(repoRoot string) *Loader {
	return NewLoaderWithGlobalDir(repoRoot, defaultGlobalConfigDir(), os.Getenv)
}

// NewLoaderWithGlobalDir creates a new Loader with a custom global config
// directory and environment lookup. This is useful for testing.
func NewLoaderWithGlobalDir(repoRoot, globalConfDir string, getenv func(string) string) *Loader {
	return &Loader{
		getenv:        getenv,
		validate:      newValidator(),
		repoRoot:      repoRoot,
		globalConfDir: globalConfDir,
	}
}

// WithFile makes the loader read path after the repository config.
func (l *Loader) WithFile(path string) *Loader {
	l.explicitPath = path
	return l
}

// defaultGlobalConfigDir returns the default global config directory.
func defaultGlobalConfigDir() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		configHome = filepath.Join(home, ".config")
	}
	return domain.GlobalConfigDir(configHome)
}

// GlobalPath returns the global config file path, or "" when unavailable.
func (l *Loader) GlobalPath() string {
	if l.globalConfDir == "" {
		return ""
	}
	return filepath.Join(l.globalConfDir, domain.ConfigFileName)
}

// RepoPath returns the repository config file path.
func (l *Loader) RepoPath() string {
	if l.repoRoot == "" {
		return ""
	}
	return domain.RepoConfigPath(l.repoRoot)
}

// Load returns the effective configuration.
// Precedence: defaults <- global <- repo <- --config file <- environment.
// Unknown keys become warnings; invalid values are errors.
func (l *Loader) Load() (*domain.Config, error) {
	cfg := domain.NewDefaultConfig()

	for _, path := range []string{l.GlobalPath(), l.RepoPath()} {
		if path == "" {
			continue
		}
		if err := l.loadFile(path, cfg); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	}
	if l.explicitPath != "" {
		if err := l.loadFile(l.explicitPath, cfg); err != nil {
			return nil, err
		}
	}

	l.applyEnv(cfg)
	cfg.ResolvePaths(l.repoRoot)
	sort.Strings(cfg.Warnings)

	if err := l.Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadFile decodes path over cfg. Keys absent from the file keep their value.
func (l *Loader) loadFile(path string, cfg *domain.Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	err = dec.Decode(cfg)

	var strict *toml.StrictMissingError
	if errors.As(err, &strict) {
		for _, e := range strict.Errors {
			cfg.Warnings = append(cfg.Warnings,
				fmt.Sprintf("unknown key in %s: %s", filepath.Base(path), strings.Join(e.Key(), ".")))
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

func (l *Loader) applyEnv(cfg *domain.Config) {
	if v := l.getenv(EnvAPIKey); v != "" {
		cfg.Claude.APIKey = v
	}
	if v := l.getenv(EnvClaudePath); v != "" {
		cfg.Claude.Path = v
	}
	if v := l.getenv(EnvGitHubPAT); v != "" {
		cfg.GitHub.Token = v
	}
	if v := l.getenv(EnvLogLevel); v != "" {
		cfg.Log.Level = strings.ToLower(v)
	}
	if v := l.getenv(EnvModelSet); v != "" {
		cfg.Claude.ModelSet = domain.ModelSet(strings.ToLower(v))
	}
}

func newValidator() *validator.Validate {
	v := validator.New()
	// Report toml key names rather than Go field names.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("toml"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks value constraints declared on the config struct.
func (l *Loader) Validate(cfg *domain.Config) error {
	err := l.validate.Struct(cfg)
	if err == nil {
		if _, err := cfg.CleanupAge(); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate configuration: %w", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed on '%s' validation (got %v)", trimNamespace(fe.Namespace()), fe.Tag(), fe.Value()))
	}
	return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
}

// trimNamespace drops the root struct name: "Config.retries.unit" -> "retries.unit".
func trimNamespace(ns string) string {
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return ns
}

// RequireWorkflow checks the settings the test workflow cannot run without.
func RequireWorkflow(cfg *domain.Config) error {
	var missing []string
	if cfg.Claude.APIKey == "" {
		missing = append(missing, EnvAPIKey)
	}
	if cfg.Claude.Path == "" {
		missing = append(missing, EnvClaudePath)
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", domain.ErrMissingConfig, strings.Join(missing, ", "))
	}
	return nil
}
