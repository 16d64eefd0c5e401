package application

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/bnema/nodetel/internal/domain"
	"github.com/bnema/nodetel/internal/ports"
	"github.com/sirupsen/logrus"
)

const hardwareCacheKey = "telemetry/hardware-cache"

const (
	reasonFirstRun     = "first run"
	reasonUnchanged    = "unchanged"
	reasonFingerprint  = "hardware fingerprint changed"
	reasonCachePrefix  = "cache unavailable: "
	hashPrefix         = "sha256:"
	reasonSeparator    = "; "
	changedValueFormat = "%s: %v -> %v"
)

// ChangeDetectionCache remembers the last transmitted snapshot and decides
// whether the static facts need to go out again. It fails open: when in
// doubt it reports a change.
type ChangeDetectionCache struct {
	store ports.KeyValueStore
	clock ports.Clock
	log   logrus.FieldLogger
}

func NewChangeDetectionCache(store ports.KeyValueStore, clock ports.Clock, log logrus.FieldLogger) *ChangeDetectionCache {
	if clock == nil {
		clock = ports.SystemClock{}
	}
	if log == nil {
		log = logrus.StandardLogger()
	}

	return &ChangeDetectionCache{store: store, clock: clock, log: log.WithField("component", "hardware-cache")}
}

// Load returns the persisted entry. Any read or decode failure is reported
// as "no prior state".
func (c *ChangeDetectionCache) Load(ctx context.Context) (*domain.CacheEntry, bool) {
	entry, err := c.load(ctx)
	if err != nil {
		if !errors.Is(err, domain.ErrKeyNotFound) {
			c.log.WithError(err).Warn("ignoring unreadable hardware cache")
		}
		return nil, false
	}

	return &entry, true
}

// Save overwrites the entry with snapshot, its hash and the current time.
func (c *ChangeDetectionCache) Save(ctx context.Context, snapshot domain.HardwareSnapshot) error {
	hash, err := SnapshotHash(snapshot)
	if err != nil {
		return err
	}

	data, err := encodeCacheEntry(domain.CacheEntry{
		SnapshotHash: hash,
		Snapshot:     snapshot,
		CapturedAt:   c.clock.Now(),
	})
	if err != nil {
		return err
	}

	if err := c.store.Set(ctx, hardwareCacheKey, data); err != nil {
		return fmt.Errorf("save hardware cache: %w", err)
	}

	return nil
}

// Invalidate forgets the entry so the next round retransmits static facts.
func (c *ChangeDetectionCache) Invalidate(ctx context.Context) error {
	if err := c.store.Delete(ctx, hardwareCacheKey); err != nil {
		return fmt.Errorf("invalidate hardware cache: %w", err)
	}

	return nil
}

// CheckForChanges compares snapshot against the persisted entry and saves
// snapshot whenever it reports a change.
func (c *ChangeDetectionCache) CheckForChanges(ctx context.Context, snapshot domain.HardwareSnapshot) (report domain.ChangeReport) {
	defer func() {
		if r := recover(); r != nil {
			c.log.WithField("panic", r).Error("hardware change detection panicked")
			report = domain.ChangeReport{HasChanged: true, Reason: fmt.Sprintf("%s%v", reasonCachePrefix, r)}
		}
	}()

	currentHash, err := SnapshotHash(snapshot)
	if err != nil {
		return c.failOpen(err)
	}

	previous, err := c.load(ctx)
	switch {
	case errors.Is(err, domain.ErrKeyNotFound):
		c.saveChanged(ctx, snapshot)
		return domain.ChangeReport{HasChanged: true, Reason: reasonFirstRun}
	case err != nil:
		c.saveChanged(ctx, snapshot)
		return c.failOpen(err)
	}

	if previous.SnapshotHash == currentHash {
		return domain.ChangeReport{HasChanged: false, Reason: reasonUnchanged, Previous: &previous.Snapshot}
	}

	changes := DescribeChanges(previous.Snapshot, snapshot)
	reason := reasonFingerprint
	if len(changes) > 0 {
		reason = strings.Join(changes, reasonSeparator)
	}

	c.saveChanged(ctx, snapshot)
	c.log.WithField("reason", reason).Info("hardware facts changed")

	return domain.ChangeReport{HasChanged: true, Reason: reason, Previous: &previous.Snapshot}
}

func (c *ChangeDetectionCache) load(ctx context.Context) (domain.CacheEntry, error) {
	data, err := c.store.Get(ctx, hardwareCacheKey)
	if err != nil {
		if errors.Is(err, domain.ErrKeyNotFound) {
			return domain.CacheEntry{}, err
		}
		return domain.CacheEntry{}, fmt.Errorf("%w: %v", domain.ErrCacheUnreadable, err)
	}
	if len(data) == 0 {
		return domain.CacheEntry{}, domain.ErrKeyNotFound
	}

	return decodeCacheEntry(data)
}

func (c *ChangeDetectionCache) saveChanged(ctx context.Context, snapshot domain.HardwareSnapshot) {
	if err := c.Save(ctx, snapshot); err != nil {
		c.log.WithError(err).Warn("could not persist hardware cache; static facts will be resent next round")
	}
}

func (c *ChangeDetectionCache) failOpen(err error) domain.ChangeReport {
	c.log.WithError(err).Warn("hardware change detection failed open")
	return domain.ChangeReport{HasChanged: true, Reason: reasonCachePrefix + err.Error()}
}

// SnapshotHash hashes the static facts of snapshot. Volatile fields such as
// CollectedAt and Uptime never influence it.
func SnapshotHash(snapshot domain.HardwareSnapshot) (string, error) {
	canonical, err := json.Marshal(snapshot.StaticFacts())
	if err != nil {
		return "", fmt.Errorf("hash hardware snapshot: %w", err)
	}

	sum := sha256.Sum256(canonical)
	return hashPrefix + hex.EncodeToString(sum[:]), nil
}

// DescribeChanges lists the field-level differences worth telling an
// operator about.
func DescribeChanges(previous, current domain.HardwareSnapshot) []string {
	var changes []string
	add := func(label string, before, after any) {
		changes = append(changes, fmt.Sprintf(changedValueFormat, label, before, after))
	}

	if previous.CPU.Model != current.CPU.Model {
		add("CPU model", quoted(previous.CPU.Model), quoted(current.CPU.Model))
	}
	if previous.CPU.PhysicalCores != current.CPU.PhysicalCores || previous.CPU.LogicalCores != current.CPU.LogicalCores {
		add("CPU cores",
			fmt.Sprintf("%d/%d", previous.CPU.PhysicalCores, previous.CPU.LogicalCores),
			fmt.Sprintf("%d/%d", current.CPU.PhysicalCores, current.CPU.LogicalCores))
	}
	if previous.Memory.TotalGB != current.Memory.TotalGB {
		add("Memory size", fmt.Sprintf("%dGB", previous.Memory.TotalGB), fmt.Sprintf("%dGB", current.Memory.TotalGB))
	}
	if previous.Memory.Type != current.Memory.Type {
		add("Memory type", quoted(previous.Memory.Type), quoted(current.Memory.Type))
	}
	if previous.Storage.TotalGB != current.Storage.TotalGB {
		add("Storage size", fmt.Sprintf("%dGB", previous.Storage.TotalGB), fmt.Sprintf("%dGB", current.Storage.TotalGB))
	}
	if previous.Storage.Devices != current.Storage.Devices {
		add("Storage devices", previous.Storage.Devices, current.Storage.Devices)
	}
	if previous.GPU.Present != current.GPU.Present {
		add("GPU", presence(previous.GPU.Present), presence(current.GPU.Present))
	}
	if previous.GPU.GPULabel() != current.GPU.GPULabel() {
		add("GPU model", quoted(previous.GPU.GPULabel()), quoted(current.GPU.GPULabel()))
	}
	if previous.OS.Platform != current.OS.Platform {
		add("OS platform", quoted(previous.OS.Platform), quoted(current.OS.Platform))
	}
	if previous.OS.Virtualized != current.OS.Virtualized {
		add("Virtualization", previous.OS.Virtualized, current.OS.Virtualized)
	}
	if previous.System.Arch != current.System.Arch {
		add("Architecture", quoted(previous.System.Arch), quoted(current.System.Arch))
	}
	if previous.System.Hostname != current.System.Hostname {
		add("Hostname", quoted(previous.System.Hostname), quoted(current.System.Hostname))
	}

	return changes
}

func quoted(value string) string {
	if value == "" {
		return "none"
	}
	return fmt.Sprintf("%q", value)
}

func presence(present bool) string {
	if present {
		return "present"
	}
	return "absent"
}
