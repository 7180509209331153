// Package usecase contains the application use cases.
package usecase

import (
	"context"

	"github.com/runoshun/adw/internal/domain"
)

// ShowConfigInput contains the input for the ShowConfig use case.
type ShowConfigInput struct{}

// ShowConfigOutput contains the output of the ShowConfig use case.
type ShowConfigOutput struct {
	EffectiveConfig *domain.Config
	Sources         []domain.ConfigInfo // Files in precedence order
}

// ShowConfig displays configuration file information.
type ShowConfig struct {
	sources domain.ConfigSources
	loader  domain.ConfigLoader
}

// NewShowConfig creates a new ShowConfig use case.
func NewShowConfig(sources domain.ConfigSources, loader domain.ConfigLoader) *ShowConfig {
	return &ShowConfig{
		sources: sources,
		loader:  loader,
	}
}

// Execute retrieves configuration file information and the merged result.
func (uc *ShowConfig) Execute(_ context.Context, _ ShowConfigInput) (*ShowConfigOutput, error) {
	cfg, err := uc.loader.Load()
	if err != nil {
		return nil, err
	}
	return &ShowConfigOutput{
		Sources:         uc.sources.Sources(),
		EffectiveConfig: cfg,
	}, nil
}
