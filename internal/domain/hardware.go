package domain

import "time"

// HardwareSnapshot is one round's view of the node's mostly-static facts.
// Every field is best-effort: zero values mean "not probed".
type HardwareSnapshot struct {
	CPU     CPUFacts
	Memory  MemoryFacts
	Storage StorageFacts
	GPU     GPUFacts
	OS      OSFacts
	Network NetworkFacts
	System  SystemFacts

	// Volatile fields, never part of the change hash.
	CollectedAt time.Time
	Uptime      time.Duration
}

type CPUFacts struct {
	Model         string
	PhysicalCores int
	LogicalCores  int
	SpeedMHz      int
}

type MemoryFacts struct {
	TotalGB int
	Type    string
}

type StorageFacts struct {
	TotalGB int
	Devices int
}

type GPUFacts struct {
	Present bool
	Vendor  string
	Model   string
}

type OSFacts struct {
	Platform    string
	Distro      string
	Virtualized bool
}

type NetworkFacts struct {
	Adapter string
}

type SystemFacts struct {
	Arch     string
	Hostname string
}

// StaticFacts returns a copy of the snapshot with the volatile fields cleared.
func (s HardwareSnapshot) StaticFacts() HardwareSnapshot {
	s.CollectedAt = time.Time{}
	s.Uptime = 0
	return s
}

// GPULabel joins vendor and model, the way the wire format carries it.
func (g GPUFacts) GPULabel() string {
	switch {
	case g.Vendor == "":
		return g.Model
	case g.Model == "":
		return g.Vendor
	default:
		return g.Vendor + " " + g.Model
	}
}
