package wire

import "strings"

const (
	// MaxPayloadBytes is the hard ceiling for an encoded record.
	MaxPayloadBytes = 512

	// CurrentVersion is the discriminant written into optimized records.
	CurrentVersion = 2

	// MaxLivenessSeconds is one year of accumulated liveness.
	MaxLivenessSeconds = 365 * 24 * 60 * 60

	MaxRound = 1_000_000_000

	MinCores, MaxCores                   = 1, 256
	MinMemoryGB, MaxMemoryGB             = 1, 2048
	MinStorageGB, MaxStorageGB           = 1, 100_000
	MinStorageDevices, MaxStorageDevices = 1, 20
	MinSpeedMHz, MaxSpeedMHz             = 1, 10_000

	MaxSenderLength = 64

	// Unknown is written in place of a fact that could not be obtained.
	Unknown = "unknown"
)

// FieldLimit bounds a label: Max is what the encoder sends normally, Min is
// the shortest it will truncate to when the record overflows.
type FieldLimit struct {
	Max int
	Min int
}

var (
	CPUModelLimit   = FieldLimit{Max: 64, Min: 24}
	MemoryTypeLimit = FieldLimit{Max: 8, Min: 8}
	GPUModelLimit   = FieldLimit{Max: 48, Min: 16}
	DistroLimit     = FieldLimit{Max: 32, Min: 12}
	AdapterLimit    = FieldLimit{Max: 16, Min: 8}
	AddressLimit    = FieldLimit{Max: 45, Min: 45}
	HostnameLimit   = FieldLimit{Max: 32, Min: 12}
)

var platforms = map[string]struct{}{
	"linux":   {},
	"darwin":  {},
	"windows": {},
	"freebsd": {},
	"openbsd": {},
	"netbsd":  {},
	"android": {},
}

// x64 and ia32 are still sent by older reporters.
var architectures = map[string]struct{}{
	"amd64":   {},
	"arm64":   {},
	"386":     {},
	"arm":     {},
	"ppc64le": {},
	"s390x":   {},
	"riscv64": {},
	"loong64": {},
	"x64":     {},
	"ia32":    {},
}

func KnownPlatform(value string) bool {
	_, ok := platforms[value]
	return ok
}

func KnownArch(value string) bool {
	_, ok := architectures[value]
	return ok
}

// NormalizePlatform maps common spellings onto the wire's platform labels.
func NormalizePlatform(value string) string {
	value = strings.ToLower(strings.TrimSpace(value))
	switch value {
	case "macos", "osx", "mac":
		return "darwin"
	case "win32", "win", "windows_nt":
		return "windows"
	default:
		return value
	}
}

// NormalizeArch maps uname-style machine names onto the wire's arch labels.
func NormalizeArch(value string) string {
	value = strings.ToLower(strings.TrimSpace(value))
	switch value {
	case "x86_64", "x86-64":
		return "amd64"
	case "aarch64", "armv8":
		return "arm64"
	case "i386", "i686", "x86":
		return "386"
	case "armv7l", "armv6l":
		return "arm"
	default:
		return value
	}
}
