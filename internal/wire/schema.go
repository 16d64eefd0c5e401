// Package wire defines the telemetry record formats exchanged between a
// reporting node and the validators that score it.
//
// Two structured generations exist. The optimized generation (v2) uses short
// keys and is what nodes emit today:
//
//	{"v":2,"d":{"u":3600},"m":{"c":false,"t":1760000000,"r":42}}
//
// The legacy generation uses long keys and carries a CPU usage percentage:
//
//	{"uptime":3600,"timestamp":1704499200,"cpuUsagePercent":12.5,"date":"2024-01-06"}
//
// A handful of bare sentinel strings from the earliest reporters make up the
// plain generation.
package wire

// Record is an optimized-generation record.
type Record struct {
	Version int     `json:"v,omitempty"`
	Dynamic Dynamic `json:"d"`
	Meta    Meta    `json:"m"`
	Static  *Static `json:"s,omitempty"`
	Sender  string  `json:"a,omitempty"`
}

type Dynamic struct {
	Liveness float64 `json:"u"`
}

// Meta numbers are float64 so a fractional value from another reporter
// reaches the range checks instead of failing to decode. Valid records carry
// whole numbers only.
type Meta struct {
	StaticChanged bool    `json:"c"`
	Timestamp     float64 `json:"t"`
	Round         float64 `json:"r"`
}

// Static is the compact hardware block. Optional labels are pointers so an
// empty string on the wire is distinguishable from an absent field.
type Static struct {
	CPUModel       *string `json:"cm,omitempty"`
	PhysicalCores  int     `json:"cp"`
	LogicalCores   int     `json:"cl"`
	SpeedMHz       int     `json:"cs,omitempty"`
	MemoryGB       int     `json:"mg"`
	MemoryType     *string `json:"mt,omitempty"`
	StorageGB      int     `json:"sg"`
	StorageDevices int     `json:"sd"`
	GPU            bool    `json:"g"`
	GPUModel       *string `json:"gm,omitempty"`
	Platform       string  `json:"os"`
	Distro         *string `json:"od,omitempty"`
	Virtualized    bool    `json:"vm"`
	Adapter        *string `json:"na,omitempty"`
	Address        *string `json:"ip,omitempty"`
	Arch           string  `json:"ar"`
	Hostname       *string `json:"hn,omitempty"`
}

// LegacyRecord is a legacy-generation record. Required numbers are pointers
// so a missing key is caught during classification.
type LegacyRecord struct {
	Uptime          *float64        `json:"uptime"`
	Timestamp       *float64        `json:"timestamp"`
	CPUUsagePercent *float64        `json:"cpuUsagePercent"`
	Round           *int64          `json:"round,omitempty"`
	Date            string          `json:"date,omitempty"`
	StaticChanged   bool            `json:"staticChanged,omitempty"`
	Address         string          `json:"address,omitempty"`
	Hardware        *LegacyHardware `json:"hardware,omitempty"`
}

type LegacyHardware struct {
	CPUModel       *string `json:"cpuModel,omitempty"`
	PhysicalCores  int     `json:"physicalCores"`
	LogicalCores   int     `json:"logicalCores"`
	CPUSpeedMHz    int     `json:"cpuSpeedMHz,omitempty"`
	MemoryGB       int     `json:"memoryGB"`
	MemoryType     *string `json:"memoryType,omitempty"`
	StorageGB      int     `json:"storageGB"`
	StorageDevices int     `json:"storageDevices"`
	HasGPU         bool    `json:"hasGPU"`
	GPUModel       *string `json:"gpuModel,omitempty"`
	Platform       string  `json:"platform"`
	Distro         *string `json:"distro,omitempty"`
	Virtualized    bool    `json:"virtualized"`
	NetworkAdapter *string `json:"networkAdapter,omitempty"`
	PublicIP       *string `json:"publicIP,omitempty"`
	Arch           string  `json:"arch"`
	Hostname       *string `json:"hostname,omitempty"`
}

// Static converts the verbose hardware block onto the compact one so both
// generations share the same bounds checks.
func (h LegacyHardware) Static() Static {
	return Static{
		CPUModel:       h.CPUModel,
		PhysicalCores:  h.PhysicalCores,
		LogicalCores:   h.LogicalCores,
		SpeedMHz:       h.CPUSpeedMHz,
		MemoryGB:       h.MemoryGB,
		MemoryType:     h.MemoryType,
		StorageGB:      h.StorageGB,
		StorageDevices: h.StorageDevices,
		GPU:            h.HasGPU,
		GPUModel:       h.GPUModel,
		Platform:       h.Platform,
		Distro:         h.Distro,
		Virtualized:    h.Virtualized,
		Adapter:        h.NetworkAdapter,
		Address:        h.PublicIP,
		Arch:           h.Arch,
		Hostname:       h.Hostname,
	}
}

// UnixSeconds returns the legacy timestamp in seconds. Some legacy reporters
// sent milliseconds; anything above 1e11 is treated as such.
func (r LegacyRecord) UnixSeconds() int64 {
	if r.Timestamp == nil {
		return 0
	}
	ts := *r.Timestamp
	if ts > 1e11 {
		ts /= 1000
	}
	return int64(ts)
}
