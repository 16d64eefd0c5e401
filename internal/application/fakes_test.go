package application

import (
	"context"
	"sync"
	"time"

	"github.com/bnema/nodetel/internal/domain"
)

type inMemoryStore struct {
	mu     sync.Mutex
	values map[string][]byte
}

func newInMemoryStore() *inMemoryStore {
	return &inMemoryStore{values: map[string][]byte{}}
}

func (s *inMemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	value, ok := s.values[key]
	if !ok {
		return nil, domain.ErrKeyNotFound
	}
	return append([]byte(nil), value...), nil
}

func (s *inMemoryStore) Set(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.values[key] = append([]byte(nil), value...)
	return nil
}

func (s *inMemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.values, key)
	return nil
}

type fixedClock struct {
	now time.Time
}

func (f fixedClock) Now() time.Time {
	return f.now
}

type steppingClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *steppingClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *steppingClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type staticResolver struct {
	address string
	err     error
}

func (r staticResolver) Resolve(context.Context) (string, error) {
	return r.address, r.err
}

var testNow = time.Date(2025, time.October, 9, 12, 0, 0, 0, time.UTC)

func sampleSnapshot() domain.HardwareSnapshot {
	return domain.HardwareSnapshot{
		CPU:     domain.CPUFacts{Model: "AMD EPYC 7763 64-Core Processor", PhysicalCores: 64, LogicalCores: 128, SpeedMHz: 2450},
		Memory:  domain.MemoryFacts{TotalGB: 256, Type: "DDR4"},
		Storage: domain.StorageFacts{TotalGB: 3840, Devices: 2},
		GPU:     domain.GPUFacts{Present: true, Vendor: "NVIDIA", Model: "A100"},
		OS:      domain.OSFacts{Platform: "linux", Distro: "Ubuntu 22.04.4 LTS"},
		Network: domain.NetworkFacts{Adapter: "eth0"},
		System:  domain.SystemFacts{Arch: "amd64", Hostname: "worker-17"},

		CollectedAt: testNow,
		Uptime:      36 * time.Hour,
	}
}
