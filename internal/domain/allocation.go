package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// Default port policy. MaxConcurrent bounds how many workflows can run side by
// side before two of them share a port pair.
const (
	DefaultBackendPortBase  = 3100
	DefaultFrontendPortBase = 3200
	DefaultMaxConcurrent    = 15

	portPrefixLen = 4
	portPadChar   = "0"
)

// Port environment keys written to the ports file.
const (
	EnvBackendPort   = "PORT"
	EnvFrontendPort  = "VITE_PORT"
	EnvDevServerPort = "DEV_SERVER_PORT"
)

// PortAllocation is the pair of ports assigned to one workflow run.
type PortAllocation struct {
	Backend  int `json:"backend" yaml:"backend"`
	Frontend int `json:"frontend" yaml:"frontend"`
}

// PortPolicy maps run identifiers onto a fixed window of port pairs.
type PortPolicy struct {
	BackendBase   int `toml:"backend_base" validate:"min=1,max=65535"`
	FrontendBase  int `toml:"frontend_base" validate:"min=1,max=65535"`
	MaxConcurrent int `toml:"max_concurrent" validate:"min=1"`
}

// DefaultPortPolicy returns the 3100/3200 policy with 15 slots.
func DefaultPortPolicy() PortPolicy {
	return PortPolicy{
		BackendBase:   DefaultBackendPortBase,
		FrontendBase:  DefaultFrontendPortBase,
		MaxConcurrent: DefaultMaxConcurrent,
	}
}

// Allocate derives the port pair for runID.
// The first four characters are read as hex (short ids are right-padded with
// '0') and reduced modulo MaxConcurrent. Distinct ids can collide; the window
// size is the concurrency ceiling.
func (p PortPolicy) Allocate(runID string) (PortAllocation, error) {
	if p.MaxConcurrent <= 0 {
		return PortAllocation{}, fmt.Errorf("port policy: max concurrent must be positive, got %d", p.MaxConcurrent)
	}
	offset, err := portOffset(runID, p.MaxConcurrent)
	if err != nil {
		return PortAllocation{}, err
	}
	return PortAllocation{
		Backend:  p.BackendBase + offset,
		Frontend: p.FrontendBase + offset,
	}, nil
}

// AllocatePorts allocates with the default policy.
func AllocatePorts(runID string) (PortAllocation, error) {
	return DefaultPortPolicy().Allocate(runID)
}

func portOffset(runID string, slots int) (int, error) {
	prefix := runID
	if len(prefix) >= portPrefixLen {
		prefix = prefix[:portPrefixLen]
	} else {
		prefix += strings.Repeat(portPadChar, portPrefixLen-len(prefix))
	}
	n, err := strconv.ParseUint(prefix, 16, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not hexadecimal", ErrInvalidIdentifier, prefix)
	}
	return int(n % uint64(slots)), nil
}

// EnvVar is a single KEY=value pair.
type EnvVar struct {
	Key   string
	Value string
}

func (v EnvVar) String() string {
	return v.Key + "=" + v.Value
}

// Env returns the port variables in file order.
// The frontend port is exported twice because dev servers disagree on the name.
func (a PortAllocation) Env() []EnvVar {
	backend := strconv.Itoa(a.Backend)
	frontend := strconv.Itoa(a.Frontend)
	return []EnvVar{
		{Key: EnvBackendPort, Value: backend},
		{Key: EnvFrontendPort, Value: frontend},
		{Key: EnvDevServerPort, Value: frontend},
	}
}

// EnvFile renders the ports file content.
func (a PortAllocation) EnvFile() string {
	var b strings.Builder
	for _, v := range a.Env() {
		b.WriteString(v.String())
		b.WriteByte('\n')
	}
	return b.String()
}
