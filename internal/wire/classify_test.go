package wire

import (
	"testing"

	"github.com/bnema/nodetel/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyOptimizedRecord(t *testing.T) {
	t.Parallel()

	payload, err := Classify(`{"v":2,"d":{"u":3600},"m":{"c":true,"t":1760000000,"r":7},` +
		`"s":{"cp":4,"cl":8,"mg":16,"sg":512,"sd":1,"g":false,"os":"linux","vm":false,"ar":"amd64","hn":"w1"},"a":"node-1"}`)
	require.NoError(t, err)

	optimized, ok := payload.(OptimizedPayload)
	require.True(t, ok, "got %T", payload)
	assert.Equal(t, domain.GenerationOptimized, optimized.Generation())
	assert.Equal(t, float64(3600), optimized.Record.Dynamic.Liveness)
	assert.True(t, optimized.Record.Meta.StaticChanged)
	assert.Equal(t, float64(7), optimized.Record.Meta.Round)
	require.NotNil(t, optimized.Record.Static)
	assert.Equal(t, 16, optimized.Record.Static.MemoryGB)
	require.NotNil(t, optimized.Record.Static.Hostname)
	assert.Equal(t, "w1", *optimized.Record.Static.Hostname)
	assert.Equal(t, "node-1", optimized.Record.Sender)
}

func TestClassifyOptimizedWithoutDiscriminant(t *testing.T) {
	t.Parallel()

	payload, err := Classify(`{"d":{"u":1},"m":{"c":false,"t":1760000000,"r":0}}`)
	require.NoError(t, err)
	assert.IsType(t, OptimizedPayload{}, payload)
}

func TestClassifyLegacyRecord(t *testing.T) {
	t.Parallel()

	payload, err := Classify(`{"uptime":120.5,"timestamp":1704499200000,"cpuUsagePercent":12.5,"date":"2024-01-06",` +
		`"staticChanged":true,"hardware":{"physicalCores":2,"logicalCores":4,"memoryGB":8,"storageGB":256,` +
		`"storageDevices":1,"hasGPU":false,"platform":"linux","virtualized":true,"arch":"x64"}}`)
	require.NoError(t, err)

	legacy, ok := payload.(LegacyPayload)
	require.True(t, ok, "got %T", payload)
	assert.Equal(t, int64(1704499200), legacy.Record.UnixSeconds())
	require.NotNil(t, legacy.Record.Hardware)
	assert.Equal(t, "x64", legacy.Record.Hardware.Static().Arch)
	assert.True(t, legacy.Record.Hardware.Static().Virtualized)
}

func TestClassifyPlainSentinels(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{"alive", " heartbeat\n", `"online"`, "OK"} {
		payload, err := Classify(raw)
		require.NoError(t, err, raw)
		assert.IsType(t, PlainPayload{}, payload, raw)
	}
}

func TestClassifyRejections(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		raw     string
		wantErr error
	}{
		{name: "garbage", raw: "not json at all", wantErr: domain.ErrMalformedPayload},
		{name: "empty", raw: "", wantErr: domain.ErrMalformedPayload},
		{name: "array", raw: `[1,2,3]`, wantErr: domain.ErrUnknownFormat},
		{name: "null", raw: `null`, wantErr: domain.ErrUnknownFormat},
		{name: "unknown string", raw: `"hello"`, wantErr: domain.ErrUnknownFormat},
		{name: "unknown object", raw: `{"foo":1,"bar":2}`, wantErr: domain.ErrUnknownFormat},
		{name: "future version", raw: `{"v":3,"d":{"u":1},"m":{"c":false,"t":1,"r":0}}`, wantErr: domain.ErrUnknownFormat},
		{name: "meta missing round", raw: `{"d":{"u":1},"m":{"c":false,"t":1}}`, wantErr: domain.ErrUnknownFormat},
		{name: "legacy missing percent", raw: `{"uptime":1,"timestamp":1}`, wantErr: domain.ErrUnknownFormat},
		{name: "unknown static key", raw: `{"d":{"u":1},"m":{"c":true,"t":1,"r":0},"s":{"cp":1,"zz":1}}`, wantErr: domain.ErrMalformedPayload},
		{name: "unknown top-level key", raw: `{"d":{"u":1},"m":{"c":false,"t":1,"r":0},"x":1}`, wantErr: domain.ErrMalformedPayload},
		{name: "string core count", raw: `{"d":{"u":1},"m":{"c":true,"t":1,"r":0},"s":{"cp":"4"}}`, wantErr: domain.ErrMalformedPayload},
		{name: "legacy null uptime", raw: `{"uptime":null,"timestamp":1,"cpuUsagePercent":1}`, wantErr: domain.ErrMalformedPayload},
		{name: "trailing document", raw: `{"d":{"u":1},"m":{"c":false,"t":1,"r":0}} {}`, wantErr: domain.ErrMalformedPayload},
		{name: "capitalized version", raw: `{"V":3,"d":{"u":1},"m":{"c":false,"t":1,"r":0}}`, wantErr: domain.ErrMalformedPayload},
		{name: "capitalized block", raw: `{"d":{"u":0},"D":{"U":5},"m":{"c":false,"t":1,"r":0}}`, wantErr: domain.ErrMalformedPayload},
		{name: "capitalized static key", raw: `{"d":{"u":1},"m":{"c":true,"t":1,"r":0},"s":{"CP":1}}`, wantErr: domain.ErrMalformedPayload},
		{name: "repeated meta key", raw: `{"d":{"u":1},"m":{"c":false,"t":1,"r":0,"r":5}}`, wantErr: domain.ErrMalformedPayload},
		{name: "capitalized legacy hardware key", raw: `{"uptime":1,"timestamp":1,"cpuUsagePercent":1,"hardware":{"Arch":"amd64"}}`, wantErr: domain.ErrMalformedPayload},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload, err := Classify(tt.raw)
			require.Error(t, err)
			assert.Nil(t, payload)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestCheckKeysFollowsJSONTags(t *testing.T) {
	t.Parallel()

	assert.Contains(t, optimizedKeys, "v")
	assert.Contains(t, optimizedKeys["s"], "cm")
	assert.Contains(t, optimizedKeys["m"], "r")
	assert.Contains(t, legacyKeys["hardware"], "publicIP")

	require.NoError(t, checkKeys(`{"v":2,"d":{"u":1},"m":{"c":false,"t":1,"r":0},"s":{"cp":1}}`, optimizedKeys))
	assert.ErrorContains(t, checkKeys(`{"s":{"cp":1,"Cp":2}}`, optimizedKeys), `unknown key "s.Cp"`)
	assert.ErrorContains(t, checkKeys(`{"d":{"u":1},"d":{"u":2}}`, optimizedKeys), `duplicate key "d"`)
}
