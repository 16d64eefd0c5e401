package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStaticFactsClearsVolatileFields(t *testing.T) {
	t.Parallel()

	snapshot := HardwareSnapshot{
		CPU:         CPUFacts{Model: "EPYC", PhysicalCores: 8, LogicalCores: 16},
		CollectedAt: time.Date(2025, 10, 9, 12, 0, 0, 0, time.UTC),
		Uptime:      time.Hour,
	}

	static := snapshot.StaticFacts()
	assert.True(t, static.CollectedAt.IsZero())
	assert.Zero(t, static.Uptime)
	assert.Equal(t, snapshot.CPU, static.CPU)
	assert.Equal(t, time.Hour, snapshot.Uptime)
}

func TestGPULabel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		gpu  GPUFacts
		want string
	}{
		{name: "vendor and model", gpu: GPUFacts{Vendor: "NVIDIA", Model: "A100"}, want: "NVIDIA A100"},
		{name: "vendor only", gpu: GPUFacts{Vendor: "AMD"}, want: "AMD"},
		{name: "model only", gpu: GPUFacts{Model: "Arc A770"}, want: "Arc A770"},
		{name: "nothing", gpu: GPUFacts{}, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.gpu.GPULabel())
		})
	}
}

func TestVerdictConstructors(t *testing.T) {
	t.Parallel()

	accepted := Accept(GenerationLegacy)
	assert.True(t, accepted.Accepted)
	assert.Equal(t, GenerationLegacy, accepted.Generation)
	assert.NoError(t, accepted.Err)

	rejected := Reject(GenerationOptimized, ErrOutOfRange)
	assert.False(t, rejected.Accepted)
	assert.ErrorIs(t, rejected.Err, ErrOutOfRange)
	assert.Equal(t, ErrOutOfRange.Error(), rejected.Reason)

	assert.Equal(t, "rejected", Reject(GenerationUnknown, nil).Reason)
}
