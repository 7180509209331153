package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// ModelName identifies a Claude model tier.
type ModelName string

// Supported models.
const (
	ModelSonnet ModelName = "sonnet"
	ModelOpus   ModelName = "opus"
	ModelHaiku  ModelName = "haiku"
)

// ModelSet is a cost/quality strategy.
type ModelSet string

// Model sets.
const (
	ModelSetBase  ModelSet = "base"
	ModelSetHeavy ModelSet = "heavy"
)

// Slash commands used by the test workflow.
const (
	CommandTest                 = "/test"
	CommandE2ETest              = "/e2e_test"
	CommandResolveFailedTest    = "/resolve_failed_test"
	CommandResolveFailedE2ETest = "/resolve_failed_e2e_test"
)

// heavyCommands need multi-step reasoning or long-form output.
var heavyCommands = []string{
	"/implement",
	"/feature",
	"/bug",
	"/chore",
	CommandResolveFailedTest,
	CommandResolveFailedE2ETest,
	"/document",
	"/prd",
	"/migration",
	"/edge_function",
}

// fastCommands are extraction, git and pattern-based tasks.
var fastCommands = []string{
	"/classify_issue",
	"/find_plan_file",
	"/generate_branch_name",
	"/commit",
	"/pull_request",
	"/validate",
	"/run_tests",
	"/design_audit",
	"/component",
	"/hook",
	"/rls_policy",
}

var modelSetDefaults = map[ModelSet]ModelName{
	ModelSetBase:  ModelSonnet,
	ModelSetHeavy: ModelOpus,
}

var costFactors = map[ModelName]float64{
	ModelHaiku:  0.04,
	ModelSonnet: 1.0,
	ModelOpus:   15.0,
}

// ModelSelector classifies commands into heavy and fast tiers.
// The tables are built once and never mutated afterwards.
type ModelSelector struct {
	heavy map[string]struct{}
	fast  map[string]struct{}
}

// NewModelSelector builds a selector from the builtin tables plus extras.
// A command listed in both extras ends up heavy.
func NewModelSelector(extraHeavy, extraFast []string) *ModelSelector {
	s := &ModelSelector{
		heavy: make(map[string]struct{}, len(heavyCommands)+len(extraHeavy)),
		fast:  make(map[string]struct{}, len(fastCommands)+len(extraFast)),
	}
	for _, c := range heavyCommands {
		s.heavy[c] = struct{}{}
	}
	for _, c := range extraHeavy {
		s.heavy[c] = struct{}{}
	}
	for _, c := range fastCommands {
		if _, ok := s.heavy[c]; !ok {
			s.fast[c] = struct{}{}
		}
	}
	for _, c := range extraFast {
		if _, ok := s.heavy[c]; !ok {
			s.fast[c] = struct{}{}
		}
	}
	return s
}

// Select returns the model for command.
// Precedence: force > set > heavy table > fast table > sonnet.
func (s *ModelSelector) Select(command string, set ModelSet, force ModelName) ModelName {
	if force != "" {
		return force
	}
	if set != "" {
		if m, ok := modelSetDefaults[set]; ok {
			return m
		}
	}
	if s.IsHeavy(command) {
		return ModelOpus
	}
	return ModelSonnet
}

// IsHeavy reports whether command is in the heavy table.
func (s *ModelSelector) IsHeavy(command string) bool {
	_, ok := s.heavy[command]
	return ok
}

// IsFast reports whether command is in the fast table.
func (s *ModelSelector) IsFast(command string) bool {
	_, ok := s.fast[command]
	return ok
}

// SetFor returns the recommended set for command.
func (s *ModelSelector) SetFor(command string) ModelSet {
	if s.IsHeavy(command) {
		return ModelSetHeavy
	}
	return ModelSetBase
}

// Info formats a one-line description of a model choice for logs.
func (s *ModelSelector) Info(model ModelName, command string) string {
	return fmt.Sprintf("Model: %s (%s set) | Command: %s | Cost factor: %sx",
		model, s.SetFor(command), command, formatFactor(CostFactor(model)))
}

// formatFactor keeps one decimal for whole factors: 1 -> "1.0", 0.04 -> "0.04".
func formatFactor(f float64) string {
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// CostFactor returns the price of model relative to sonnet.
func CostFactor(model ModelName) float64 {
	if f, ok := costFactors[model]; ok {
		return f
	}
	return 1.0
}

// ParseModelSet validates a set name. Empty input yields an empty set.
func ParseModelSet(s string) (ModelSet, error) {
	switch ModelSet(s) {
	case "", ModelSetBase, ModelSetHeavy:
		return ModelSet(s), nil
	}
	return "", fmt.Errorf("unknown model set %q (want base or heavy)", s)
}
