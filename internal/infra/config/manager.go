package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"

	"github.com/runoshun/adw/internal/domain"
)

// Sources returns the config files the loader consults, in precedence order.
func (l *Loader) Sources() []domain.ConfigInfo {
	var infos []domain.ConfigInfo
	for _, path := range []string{l.GlobalPath(), l.RepoPath(), l.explicitPath} {
		if path != "" {
			infos = append(infos, getConfigInfo(path))
		}
	}
	return infos
}

// getConfigInfo reads a config file and returns its info.
func getConfigInfo(path string) domain.ConfigInfo {
	content, err := os.ReadFile(path)
	if err != nil {
		return domain.ConfigInfo{
			Path:   path,
			Exists: false,
		}
	}
	return domain.ConfigInfo{
		Path:    path,
		Content: string(content),
		Exists:  true,
	}
}

// Render encodes cfg as TOML. Secrets are never written.
func Render(cfg *domain.Config) (string, error) {
	var buf bytes.Buffer
	enc := toml.NewEncoder(&buf)
	enc.SetIndentTables(true)
	if err := enc.Encode(cfg); err != nil {
		return "", fmt.Errorf("encode config: %w", err)
	}
	return buf.String(), nil
}

// Ensure Loader implements domain.ConfigManager.
var _ domain.ConfigManager = (*Loader)(nil)

// GetRepoConfigInfo returns information about the repository config file.
func (l *Loader) GetRepoConfigInfo() domain.ConfigInfo {
	return getConfigInfo(l.RepoPath())
}

// GetGlobalConfigInfo returns information about the global config file.
func (l *Loader) GetGlobalConfigInfo() domain.ConfigInfo {
	path := l.GlobalPath()
	if path == "" {
		return domain.ConfigInfo{}
	}
	return getConfigInfo(path)
}

// InitRepoConfig writes cfg to .adw.toml at the repository root.
func (l *Loader) InitRepoConfig(cfg *domain.Config) error {
	return writeConfig(l.RepoPath(), cfg)
}

// InitGlobalConfig writes cfg to the global config file.
func (l *Loader) InitGlobalConfig(cfg *domain.Config) error {
	path := l.GlobalPath()
	if path == "" {
		return domain.ErrNoGlobalConfigDir
	}
	return writeConfig(path, cfg)
}

func writeConfig(path string, cfg *domain.Config) error {
	rendered, err := Render(cfg)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(rendered), 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
