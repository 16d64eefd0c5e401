package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bnema/nodetel/internal/domain"
	"github.com/bnema/nodetel/internal/ports"
	toml "github.com/pelletier/go-toml/v2"
	"github.com/sirupsen/logrus"
)

const (
	livenessKey                  = "telemetry/liveness"
	currentLivenessSchemaVersion = 1
	DefaultLivenessMaxGap        = time.Hour
)

type livenessSchema struct {
	Version  int    `toml:"version"`
	Value    uint64 `toml:"value"`
	LastTick string `toml:"last_tick"`
}

func (s livenessSchema) validateVersion() error {
	if s.Version == 0 || s.Version > currentLivenessSchemaVersion {
		return fmt.Errorf("unsupported liveness schema version %d (current %d)", s.Version, currentLivenessSchemaVersion)
	}

	return nil
}

type livenessState struct {
	value    uint64
	lastTick time.Time
}

// LivenessCounter accumulates the seconds a node has been reporting. Gaps
// longer than maxGap only count as maxGap, so a node that was off for a week
// does not claim the week.
type LivenessCounter struct {
	store  ports.KeyValueStore
	clock  ports.Clock
	maxGap time.Duration
	log    logrus.FieldLogger
}

func NewLivenessCounter(store ports.KeyValueStore, clock ports.Clock, maxGap time.Duration, log logrus.FieldLogger) *LivenessCounter {
	if clock == nil {
		clock = ports.SystemClock{}
	}
	if maxGap <= 0 {
		maxGap = DefaultLivenessMaxGap
	}
	if log == nil {
		log = logrus.StandardLogger()
	}

	return &LivenessCounter{store: store, clock: clock, maxGap: maxGap, log: log.WithField("component", "liveness")}
}

// Tick advances the counter by the whole seconds elapsed since the previous
// tick and returns the new value.
func (l *LivenessCounter) Tick(ctx context.Context) (uint64, error) {
	now := l.clock.Now()

	state, ok := l.read(ctx)
	if !ok {
		state = livenessState{value: 1, lastTick: now}
	} else {
		elapsed := now.Sub(state.lastTick)
		switch {
		case elapsed < 0:
			// Clock went backwards; restart the gap from now.
			state.lastTick = now
		case elapsed > l.maxGap:
			state.value += uint64(l.maxGap / time.Second)
			state.lastTick = now
		default:
			whole := elapsed.Truncate(time.Second)
			state.value += uint64(whole / time.Second)
			state.lastTick = state.lastTick.Add(whole)
		}
	}

	if err := l.write(ctx, state); err != nil {
		return state.value, err
	}

	return state.value, nil
}

// Current returns the counter without advancing it. A missing or unreadable
// state reads as zero.
func (l *LivenessCounter) Current(ctx context.Context) uint64 {
	state, ok := l.read(ctx)
	if !ok {
		return 0
	}

	return state.value
}

// LastTick returns when the counter last advanced.
func (l *LivenessCounter) LastTick(ctx context.Context) (time.Time, bool) {
	state, ok := l.read(ctx)
	if !ok {
		return time.Time{}, false
	}

	return state.lastTick, true
}

func (l *LivenessCounter) Reset(ctx context.Context) error {
	if err := l.store.Delete(ctx, livenessKey); err != nil {
		return fmt.Errorf("reset liveness: %w", err)
	}

	return nil
}

func (l *LivenessCounter) read(ctx context.Context) (livenessState, bool) {
	data, err := l.store.Get(ctx, livenessKey)
	if err != nil {
		if !errors.Is(err, domain.ErrKeyNotFound) {
			l.log.WithError(err).Warn("liveness state unreadable; starting over")
		}
		return livenessState{}, false
	}

	var schema livenessSchema
	if err := toml.Unmarshal(data, &schema); err != nil {
		l.log.WithError(err).Warn("liveness state corrupt; starting over")
		return livenessState{}, false
	}
	if err := schema.validateVersion(); err != nil {
		l.log.WithError(err).Warn("liveness state unsupported; starting over")
		return livenessState{}, false
	}

	lastTick := parseTime(schema.LastTick)
	if lastTick.IsZero() {
		return livenessState{}, false
	}

	return livenessState{value: schema.Value, lastTick: lastTick}, true
}

func (l *LivenessCounter) write(ctx context.Context, state livenessState) error {
	data, err := toml.Marshal(livenessSchema{
		Version:  currentLivenessSchemaVersion,
		Value:    state.value,
		LastTick: state.lastTick.UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return fmt.Errorf("encode liveness: %w", err)
	}

	if err := l.store.Set(ctx, livenessKey, data); err != nil {
		return fmt.Errorf("save liveness: %w", err)
	}

	return nil
}
