package application

import (
	"fmt"
	"time"

	"github.com/bnema/nodetel/internal/domain"
	toml "github.com/pelletier/go-toml/v2"
)

const currentCacheSchemaVersion = 1

type cacheEntrySchema struct {
	Version      int            `toml:"version"`
	SnapshotHash string         `toml:"snapshot_hash"`
	CapturedAt   string         `toml:"captured_at"`
	Snapshot     snapshotSchema `toml:"snapshot"`
}

func (s cacheEntrySchema) validateVersion() error {
	if s.Version == 0 || s.Version > currentCacheSchemaVersion {
		return fmt.Errorf("unsupported hardware cache schema version %d (current %d)", s.Version, currentCacheSchemaVersion)
	}

	return nil
}

type snapshotSchema struct {
	CPU           cpuSchema     `toml:"cpu"`
	Memory        memorySchema  `toml:"memory"`
	Storage       storageSchema `toml:"storage"`
	GPU           gpuSchema     `toml:"gpu"`
	OS            osSchema      `toml:"os"`
	NetAdapter    string        `toml:"network_adapter,omitempty"`
	Arch          string        `toml:"arch"`
	Hostname      string        `toml:"hostname"`
	CollectedAt   string        `toml:"collected_at,omitempty"`
	UptimeSeconds int64         `toml:"uptime_seconds,omitempty"`
}

type cpuSchema struct {
	Model         string `toml:"model"`
	PhysicalCores int    `toml:"physical_cores"`
	LogicalCores  int    `toml:"logical_cores"`
	SpeedMHz      int    `toml:"speed_mhz,omitempty"`
}

type memorySchema struct {
	TotalGB int    `toml:"total_gb"`
	Type    string `toml:"type,omitempty"`
}

type storageSchema struct {
	TotalGB int `toml:"total_gb"`
	Devices int `toml:"devices"`
}

type gpuSchema struct {
	Present bool   `toml:"present"`
	Vendor  string `toml:"vendor,omitempty"`
	Model   string `toml:"model,omitempty"`
}

type osSchema struct {
	Platform    string `toml:"platform"`
	Distro      string `toml:"distro,omitempty"`
	Virtualized bool   `toml:"virtualized"`
}

func encodeCacheEntry(entry domain.CacheEntry) ([]byte, error) {
	data, err := toml.Marshal(cacheEntrySchema{
		Version:      currentCacheSchemaVersion,
		SnapshotHash: entry.SnapshotHash,
		CapturedAt:   formatTime(entry.CapturedAt),
		Snapshot:     toSnapshotSchema(entry.Snapshot),
	})
	if err != nil {
		return nil, fmt.Errorf("encode hardware cache: %w", err)
	}

	return data, nil
}

func decodeCacheEntry(data []byte) (domain.CacheEntry, error) {
	var schema cacheEntrySchema
	if err := toml.Unmarshal(data, &schema); err != nil {
		return domain.CacheEntry{}, fmt.Errorf("%w: decode: %v", domain.ErrCacheUnreadable, err)
	}
	if err := schema.validateVersion(); err != nil {
		return domain.CacheEntry{}, fmt.Errorf("%w: %v", domain.ErrCacheUnreadable, err)
	}
	if schema.SnapshotHash == "" {
		return domain.CacheEntry{}, fmt.Errorf("%w: missing snapshot hash", domain.ErrCacheUnreadable)
	}

	return domain.CacheEntry{
		SnapshotHash: schema.SnapshotHash,
		CapturedAt:   parseTime(schema.CapturedAt),
		Snapshot:     fromSnapshotSchema(schema.Snapshot),
	}, nil
}

// EncodeSnapshotTOML renders a snapshot in the same layout the cache and the
// fixture provider use.
func EncodeSnapshotTOML(snapshot domain.HardwareSnapshot) ([]byte, error) {
	data, err := toml.Marshal(toSnapshotSchema(snapshot))
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}

	return data, nil
}

// DecodeSnapshotTOML is the inverse of EncodeSnapshotTOML.
func DecodeSnapshotTOML(data []byte) (domain.HardwareSnapshot, error) {
	var schema snapshotSchema
	if err := toml.Unmarshal(data, &schema); err != nil {
		return domain.HardwareSnapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}

	return fromSnapshotSchema(schema), nil
}

func toSnapshotSchema(snapshot domain.HardwareSnapshot) snapshotSchema {
	return snapshotSchema{
		CPU: cpuSchema{
			Model:         snapshot.CPU.Model,
			PhysicalCores: snapshot.CPU.PhysicalCores,
			LogicalCores:  snapshot.CPU.LogicalCores,
			SpeedMHz:      snapshot.CPU.SpeedMHz,
		},
		Memory:  memorySchema{TotalGB: snapshot.Memory.TotalGB, Type: snapshot.Memory.Type},
		Storage: storageSchema{TotalGB: snapshot.Storage.TotalGB, Devices: snapshot.Storage.Devices},
		GPU: gpuSchema{
			Present: snapshot.GPU.Present,
			Vendor:  snapshot.GPU.Vendor,
			Model:   snapshot.GPU.Model,
		},
		OS: osSchema{
			Platform:    snapshot.OS.Platform,
			Distro:      snapshot.OS.Distro,
			Virtualized: snapshot.OS.Virtualized,
		},
		NetAdapter:    snapshot.Network.Adapter,
		Arch:          snapshot.System.Arch,
		Hostname:      snapshot.System.Hostname,
		CollectedAt:   formatTime(snapshot.CollectedAt),
		UptimeSeconds: int64(snapshot.Uptime / time.Second),
	}
}

func fromSnapshotSchema(schema snapshotSchema) domain.HardwareSnapshot {
	return domain.HardwareSnapshot{
		CPU: domain.CPUFacts{
			Model:         schema.CPU.Model,
			PhysicalCores: schema.CPU.PhysicalCores,
			LogicalCores:  schema.CPU.LogicalCores,
			SpeedMHz:      schema.CPU.SpeedMHz,
		},
		Memory:  domain.MemoryFacts{TotalGB: schema.Memory.TotalGB, Type: schema.Memory.Type},
		Storage: domain.StorageFacts{TotalGB: schema.Storage.TotalGB, Devices: schema.Storage.Devices},
		GPU: domain.GPUFacts{
			Present: schema.GPU.Present,
			Vendor:  schema.GPU.Vendor,
			Model:   schema.GPU.Model,
		},
		OS: domain.OSFacts{
			Platform:    schema.OS.Platform,
			Distro:      schema.OS.Distro,
			Virtualized: schema.OS.Virtualized,
		},
		Network:     domain.NetworkFacts{Adapter: schema.NetAdapter},
		System:      domain.SystemFacts{Arch: schema.Arch, Hostname: schema.Hostname},
		CollectedAt: parseTime(schema.CollectedAt),
		Uptime:      time.Duration(schema.UptimeSeconds) * time.Second,
	}
}

func parseTime(raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}

	parsed, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}
	}

	return parsed
}

func formatTime(value time.Time) string {
	if value.IsZero() {
		return ""
	}

	return value.UTC().Format(time.RFC3339)
}
