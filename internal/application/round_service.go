package application

import (
	"context"
	"fmt"
	"time"

	"github.com/bnema/nodetel/internal/domain"
	"github.com/bnema/nodetel/internal/ports"
	"github.com/sirupsen/logrus"
)

const DefaultCollectTimeout = 10 * time.Second

type RoundOptions struct {
	// Sender is stamped into every record. Empty means the persisted node id.
	Sender         string
	CollectTimeout time.Duration
}

// RoundService runs one reporting round end to end. It never returns an
// error: every failure shows up as a degraded RoundResult.
type RoundService struct {
	provider ports.HardwareFactsProvider
	store    ports.KeyValueStore
	cache    *ChangeDetectionCache
	encoder  *SubmissionEncoder
	liveness *LivenessCounter
	clock    ports.Clock
	opts     RoundOptions
	log      logrus.FieldLogger
}

func NewRoundService(
	provider ports.HardwareFactsProvider,
	store ports.KeyValueStore,
	cache *ChangeDetectionCache,
	encoder *SubmissionEncoder,
	liveness *LivenessCounter,
	clock ports.Clock,
	opts RoundOptions,
	log logrus.FieldLogger,
) *RoundService {
	if clock == nil {
		clock = ports.SystemClock{}
	}
	if opts.CollectTimeout <= 0 {
		opts.CollectTimeout = DefaultCollectTimeout
	}
	if log == nil {
		log = logrus.StandardLogger()
	}

	return &RoundService{
		provider: provider,
		store:    store,
		cache:    cache,
		encoder:  encoder,
		liveness: liveness,
		clock:    clock,
		opts:     opts,
		log:      log.WithField("component", "round"),
	}
}

func (s *RoundService) Run(ctx context.Context, round uint64) (result domain.RoundResult) {
	result.Round = round
	log := s.log.WithField("round", round)

	liveness, err := s.liveness.Tick(ctx)
	if err != nil {
		log.WithError(err).Warn("liveness not persisted")
	}
	result.Liveness = liveness

	snapshot, err := s.collect(ctx)
	if err != nil {
		log.WithError(err).Warn("hardware facts unavailable; sending dynamic facts only")
		result.ProviderErr = err
	}

	var requested *domain.HardwareSnapshot
	if snapshot != nil {
		result.Change = s.cache.CheckForChanges(ctx, *snapshot)
		if result.Change.HasChanged {
			requested = snapshot
		}
	}

	encoded := s.encoder.Encode(ctx, EncodeRequest{
		Liveness: liveness,
		Round:    round,
		Now:      s.clock.Now(),
		Snapshot: requested,
		Sender:   s.sender(ctx),
	})
	result.Payload = encoded.Payload
	result.StaticIncluded = encoded.StaticIncluded
	result.Degradations = encoded.Degradations

	if requested != nil && !encoded.StaticIncluded {
		if err := s.cache.Invalidate(ctx); err != nil {
			log.WithError(err).Warn("static facts were not sent and the cache could not be reset")
		}
	}

	log.WithFields(logrus.Fields{
		"liveness": liveness,
		"static":   encoded.StaticIncluded,
		"bytes":    len(encoded.Payload),
	}).Info("round encoded")

	return result
}

func (s *RoundService) collect(ctx context.Context) (snapshot *domain.HardwareSnapshot, err error) {
	if s.provider == nil {
		return nil, domain.ErrHardwareUnavailable
	}

	defer func() {
		if r := recover(); r != nil {
			snapshot, err = nil, fmt.Errorf("%w: provider panic: %v", domain.ErrHardwareUnavailable, r)
		}
	}()

	collectCtx, cancel := context.WithTimeout(ctx, s.opts.CollectTimeout)
	defer cancel()

	collected, err := s.provider.Collect(collectCtx)
	if err != nil {
		return nil, fmt.Errorf("collect hardware facts: %w", err)
	}

	return &collected, nil
}

func (s *RoundService) sender(ctx context.Context) string {
	if s.opts.Sender != "" {
		return s.opts.Sender
	}
	if s.store == nil {
		return ""
	}

	id, err := NodeID(ctx, s.store)
	if err != nil {
		s.log.WithError(err).Warn("node id unavailable; record carries no sender")
		return ""
	}

	return id
}
