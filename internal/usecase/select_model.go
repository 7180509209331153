package usecase

import (
	"context"
	"errors"
	"strings"

	"github.com/runoshun/adw/internal/domain"
)

// SelectModelInput contains the input for the SelectModel use case.
type SelectModelInput struct {
	Command string
	Set     domain.ModelSet
	Force   domain.ModelName
}

// SelectModelOutput contains the output of the SelectModel use case.
type SelectModelOutput struct {
	Model      domain.ModelName
	Set        domain.ModelSet // Recommended set for the command
	Info       string
	CostFactor float64
	Heavy      bool
}

// SelectModel explains which model a slash command would run on.
type SelectModel struct {
	models *domain.ModelSelector
}

// NewSelectModel creates a new SelectModel use case.
func NewSelectModel(models *domain.ModelSelector) *SelectModel {
	return &SelectModel{models: models}
}

// Execute selects the model. A missing leading slash is added.
func (uc *SelectModel) Execute(_ context.Context, in SelectModelInput) (*SelectModelOutput, error) {
	command := strings.TrimSpace(in.Command)
	if command == "" {
		return nil, errors.New("command is required")
	}
	if !strings.HasPrefix(command, "/") {
		command = "/" + command
	}
	model := uc.models.Select(command, in.Set, in.Force)
	return &SelectModelOutput{
		Model:      model,
		Set:        uc.models.SetFor(command),
		Heavy:      uc.models.IsHeavy(command),
		CostFactor: domain.CostFactor(model),
		Info:       uc.models.Info(model, command),
	}, nil
}
