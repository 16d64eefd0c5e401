package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/bnema/nodetel/internal/domain"
	"gopkg.in/yaml.v3"
)

type outputFormat int

const (
	formatText outputFormat = iota
	formatJSON
	formatYAML
)

func pickFormat(asJSON, asYAML bool) (outputFormat, error) {
	switch {
	case asJSON && asYAML:
		return formatText, fmt.Errorf("--json and --yaml are mutually exclusive")
	case asJSON:
		return formatJSON, nil
	case asYAML:
		return formatYAML, nil
	default:
		return formatText, nil
	}
}

func writeJSON(w io.Writer, value any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(value)
}

func writeYAML(w io.Writer, value any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(value); err != nil {
		return err
	}
	return enc.Close()
}

type roundOutput struct {
	Round          uint64   `json:"round"`
	Liveness       uint64   `json:"liveness"`
	Payload        string   `json:"payload"`
	PayloadBytes   int      `json:"payload_bytes"`
	StaticIncluded bool     `json:"static_included"`
	Changed        bool     `json:"changed"`
	Reason         string   `json:"reason,omitempty"`
	Degradations   []string `json:"degradations,omitempty"`
	ProviderError  string   `json:"provider_error,omitempty"`
}

func toRoundOutput(result domain.RoundResult) roundOutput {
	out := roundOutput{
		Round:          result.Round,
		Liveness:       result.Liveness,
		Payload:        result.Payload,
		PayloadBytes:   len(result.Payload),
		StaticIncluded: result.StaticIncluded,
		Changed:        result.Change.HasChanged,
		Reason:         result.Change.Reason,
		Degradations:   result.Degradations,
	}
	if result.ProviderErr != nil {
		out.ProviderError = result.ProviderErr.Error()
	}
	return out
}

type verdictOutput struct {
	Accepted   bool   `json:"accepted"`
	Generation string `json:"generation"`
	Reason     string `json:"reason"`
	Round      uint64 `json:"round"`
	Sender     string `json:"sender,omitempty"`
}

type snapshotOutput struct {
	CPU struct {
		Model         string `json:"model" yaml:"model"`
		PhysicalCores int    `json:"physical_cores" yaml:"physical_cores"`
		LogicalCores  int    `json:"logical_cores" yaml:"logical_cores"`
		SpeedMHz      int    `json:"speed_mhz,omitempty" yaml:"speed_mhz,omitempty"`
	} `json:"cpu" yaml:"cpu"`
	Memory struct {
		TotalGB int    `json:"total_gb" yaml:"total_gb"`
		Type    string `json:"type,omitempty" yaml:"type,omitempty"`
	} `json:"memory" yaml:"memory"`
	Storage struct {
		TotalGB int `json:"total_gb" yaml:"total_gb"`
		Devices int `json:"devices" yaml:"devices"`
	} `json:"storage" yaml:"storage"`
	GPU struct {
		Present bool   `json:"present" yaml:"present"`
		Vendor  string `json:"vendor,omitempty" yaml:"vendor,omitempty"`
		Model   string `json:"model,omitempty" yaml:"model,omitempty"`
	} `json:"gpu" yaml:"gpu"`
	OS struct {
		Platform    string `json:"platform" yaml:"platform"`
		Distro      string `json:"distro,omitempty" yaml:"distro,omitempty"`
		Virtualized bool   `json:"virtualized" yaml:"virtualized"`
	} `json:"os" yaml:"os"`
	NetworkAdapter string `json:"network_adapter,omitempty" yaml:"network_adapter,omitempty"`
	Arch           string `json:"arch" yaml:"arch"`
	Hostname       string `json:"hostname" yaml:"hostname"`
	CollectedAt    string `json:"collected_at,omitempty" yaml:"collected_at,omitempty"`
	UptimeSeconds  int64  `json:"uptime_seconds,omitempty" yaml:"uptime_seconds,omitempty"`
}

func toSnapshotOutput(snapshot domain.HardwareSnapshot) snapshotOutput {
	var out snapshotOutput
	out.CPU.Model = snapshot.CPU.Model
	out.CPU.PhysicalCores = snapshot.CPU.PhysicalCores
	out.CPU.LogicalCores = snapshot.CPU.LogicalCores
	out.CPU.SpeedMHz = snapshot.CPU.SpeedMHz
	out.Memory.TotalGB = snapshot.Memory.TotalGB
	out.Memory.Type = snapshot.Memory.Type
	out.Storage.TotalGB = snapshot.Storage.TotalGB
	out.Storage.Devices = snapshot.Storage.Devices
	out.GPU.Present = snapshot.GPU.Present
	out.GPU.Vendor = snapshot.GPU.Vendor
	out.GPU.Model = snapshot.GPU.Model
	out.OS.Platform = snapshot.OS.Platform
	out.OS.Distro = snapshot.OS.Distro
	out.OS.Virtualized = snapshot.OS.Virtualized
	out.NetworkAdapter = snapshot.Network.Adapter
	out.Arch = snapshot.System.Arch
	out.Hostname = snapshot.System.Hostname
	out.UptimeSeconds = int64(snapshot.Uptime / time.Second)
	if !snapshot.CollectedAt.IsZero() {
		out.CollectedAt = snapshot.CollectedAt.UTC().Format(time.RFC3339)
	}
	return out
}

type cacheOutput struct {
	Cached       bool            `json:"cached" yaml:"cached"`
	SnapshotHash string          `json:"snapshot_hash,omitempty" yaml:"snapshot_hash,omitempty"`
	CapturedAt   string          `json:"captured_at,omitempty" yaml:"captured_at,omitempty"`
	Snapshot     *snapshotOutput `json:"snapshot,omitempty" yaml:"snapshot,omitempty"`
}

func toCacheOutput(entry *domain.CacheEntry) cacheOutput {
	if entry == nil {
		return cacheOutput{}
	}

	snapshot := toSnapshotOutput(entry.Snapshot)
	out := cacheOutput{Cached: true, SnapshotHash: entry.SnapshotHash, Snapshot: &snapshot}
	if !entry.CapturedAt.IsZero() {
		out.CapturedAt = entry.CapturedAt.UTC().Format(time.RFC3339)
	}
	return out
}

type livenessOutput struct {
	Liveness uint64 `json:"liveness"`
	LastTick string `json:"last_tick,omitempty"`
}
