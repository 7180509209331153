package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllocatePorts(t *testing.T) {
	tests := []struct {
		name  string
		runID string
		want  PortAllocation
	}{
		{name: "hex prefix", runID: "a1b2c3d4", want: PortAllocation{Backend: 3109, Frontend: 3209}},
		{name: "zero", runID: "00000000", want: PortAllocation{Backend: 3100, Frontend: 3200}},
		{name: "short id padded", runID: "abc", want: PortAllocation{Backend: 3103, Frontend: 3203}},
		{name: "single char", runID: "1", want: PortAllocation{Backend: 3101, Frontend: 3201}},
		{name: "last slot", runID: "000e", want: PortAllocation{Backend: 3114, Frontend: 3214}},
		{name: "wraps", runID: "000f", want: PortAllocation{Backend: 3100, Frontend: 3200}},
		{name: "upper case", runID: "A1B2", want: PortAllocation{Backend: 3109, Frontend: 3209}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := AllocatePorts(tt.runID)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAllocatePorts_Deterministic(t *testing.T) {
	first, err := AllocatePorts("deadbeef")
	require.NoError(t, err)
	second, err := AllocatePorts("deadbeef")
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 100, first.Frontend-first.Backend)
}

func TestAllocatePorts_InvalidID(t *testing.T) {
	for _, id := range []string{"xyz", "nothex!", "g123"} {
		_, err := AllocatePorts(id)
		assert.ErrorIs(t, err, ErrInvalidIdentifier, id)
	}
}

func TestPortPolicy_Allocate(t *testing.T) {
	policy := PortPolicy{BackendBase: 8000, FrontendBase: 9000, MaxConcurrent: 4}

	got, err := policy.Allocate("0007")
	require.NoError(t, err)
	assert.Equal(t, PortAllocation{Backend: 8003, Frontend: 9003}, got)

	_, err = PortPolicy{BackendBase: 8000, FrontendBase: 9000}.Allocate("0007")
	assert.Error(t, err)
}

func TestPortAllocation_EnvFile(t *testing.T) {
	a := PortAllocation{Backend: 3105, Frontend: 3205}

	assert.Equal(t, "PORT=3105\nVITE_PORT=3205\nDEV_SERVER_PORT=3205\n", a.EnvFile())
	assert.Equal(t, []EnvVar{
		{Key: EnvBackendPort, Value: "3105"},
		{Key: EnvFrontendPort, Value: "3205"},
		{Key: EnvDevServerPort, Value: "3205"},
	}, a.Env())
}
