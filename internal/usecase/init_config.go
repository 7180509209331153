package usecase

import (
	"context"
	"fmt"

	"github.com/runoshun/adw/internal/domain"
)

// InitConfigInput contains the input for the InitConfig use case.
type InitConfigInput struct {
	Config *domain.Config // Content to write; defaults when nil
	Global bool           // If true, initialize global config; otherwise repository config
	Force  bool           // Overwrite an existing file
}

// InitConfigOutput contains the output of the InitConfig use case.
type InitConfigOutput struct {
	Path string // Path to the created config file
}

// InitConfig writes a starter configuration file.
type InitConfig struct {
	configManager domain.ConfigManager
}

// NewInitConfig creates a new InitConfig use case.
func NewInitConfig(configManager domain.ConfigManager) *InitConfig {
	return &InitConfig{
		configManager: configManager,
	}
}

// Execute creates the configuration file. An existing file is only replaced
// with Force.
func (uc *InitConfig) Execute(_ context.Context, in InitConfigInput) (*InitConfigOutput, error) {
	cfg := in.Config
	if cfg == nil {
		cfg = domain.NewDefaultConfig()
	}

	info := uc.configManager.GetRepoConfigInfo()
	write := uc.configManager.InitRepoConfig
	if in.Global {
		info = uc.configManager.GetGlobalConfigInfo()
		write = uc.configManager.InitGlobalConfig
	}

	if info.Exists && !in.Force {
		return nil, fmt.Errorf("%w: %s", domain.ErrConfigExists, info.Path)
	}
	if err := write(cfg); err != nil {
		return nil, err
	}
	return &InitConfigOutput{Path: info.Path}, nil
}
