package domain

import "time"

// CacheEntry is the last snapshot the node transmitted, keyed by its hash.
// It is replaced wholesale, never patched.
type CacheEntry struct {
	SnapshotHash string
	Snapshot     HardwareSnapshot
	CapturedAt   time.Time
}

// ChangeReport is the cache's verdict for one round.
type ChangeReport struct {
	HasChanged bool
	Reason     string
	Previous   *HardwareSnapshot
}

// FormatGeneration identifies which wire schema a payload was written in.
type FormatGeneration string

const (
	GenerationUnknown   FormatGeneration = "unknown"
	GenerationOptimized FormatGeneration = "optimized"
	GenerationLegacy    FormatGeneration = "legacy"
	GenerationPlain     FormatGeneration = "plain"
)

// Verdict is the validator's answer. Only Accepted is contractual; Reason and
// Err exist for logs and the CLI.
type Verdict struct {
	Accepted   bool
	Generation FormatGeneration
	Reason     string
	Err        error
}

func Accept(generation FormatGeneration) Verdict {
	return Verdict{Accepted: true, Generation: generation, Reason: "accepted"}
}

func Reject(generation FormatGeneration, err error) Verdict {
	reason := "rejected"
	if err != nil {
		reason = err.Error()
	}
	return Verdict{Generation: generation, Reason: reason, Err: err}
}

// RoundResult is everything a single reporting round produced.
type RoundResult struct {
	Round          uint64
	Liveness       uint64
	Payload        string
	StaticIncluded bool
	Change         ChangeReport
	Degradations   []string
	ProviderErr    error
}
