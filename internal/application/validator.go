package application

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/bnema/nodetel/internal/domain"
	"github.com/bnema/nodetel/internal/ports"
	"github.com/bnema/nodetel/internal/wire"
	"github.com/sirupsen/logrus"
)

const (
	DefaultSkewTolerance  = 6 * time.Hour
	DefaultRoundTolerance = 1

	maxLegacyDateSkewDays = 2
	maxFutureDrift        = 365 * 24 * time.Hour
)

// earliestTimestamp predates every reporter release; anything older is a
// broken clock rather than skew.
var earliestTimestamp = time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC)

type ValidatorOptions struct {
	// SkewTolerance is how far a record's timestamp may drift from the
	// validator's clock in either direction.
	SkewTolerance time.Duration
	// RoundTolerance is how many rounds a record's round may differ from
	// the round it is validated in.
	RoundTolerance uint64
	// AllowPlainSentinels accepts the bare sentinel strings of the plain
	// generation.
	AllowPlainSentinels bool
}

func DefaultValidatorOptions() ValidatorOptions {
	return ValidatorOptions{
		SkewTolerance:       DefaultSkewTolerance,
		RoundTolerance:      DefaultRoundTolerance,
		AllowPlainSentinels: true,
	}
}

// SubmissionValidator decides whether a received record is acceptable. It
// is a pure function of its inputs and the clock.
type SubmissionValidator struct {
	clock ports.Clock
	opts  ValidatorOptions
	log   logrus.FieldLogger
}

func NewSubmissionValidator(clock ports.Clock, opts ValidatorOptions, log logrus.FieldLogger) *SubmissionValidator {
	if clock == nil {
		clock = ports.SystemClock{}
	}
	if opts.SkewTolerance <= 0 {
		opts.SkewTolerance = DefaultSkewTolerance
	}
	if log == nil {
		log = logrus.StandardLogger()
	}

	return &SubmissionValidator{clock: clock, opts: opts, log: log.WithField("component", "validator")}
}

// Validate reports whether payload is acceptable for round from senderID.
func (v *SubmissionValidator) Validate(payload string, round uint64, senderID string) bool {
	return v.Inspect(payload, round, senderID).Accepted
}

// Inspect is Validate with the reason attached.
func (v *SubmissionValidator) Inspect(payload string, round uint64, senderID string) (verdict domain.Verdict) {
	defer func() {
		if r := recover(); r != nil {
			verdict = domain.Reject(domain.GenerationUnknown, fmt.Errorf("validator panic: %v", r))
		}
		if !verdict.Accepted {
			v.log.WithFields(logrus.Fields{
				"sender":     senderID,
				"round":      round,
				"generation": verdict.Generation,
				"reason":     verdict.Reason,
			}).Debug("submission rejected")
		}
	}()

	if len(payload) > wire.MaxPayloadBytes {
		return domain.Reject(domain.GenerationUnknown,
			fmt.Errorf("%w: %d bytes", domain.ErrPayloadTooLarge, len(payload)))
	}

	classified, err := wire.Classify(payload)
	if err != nil {
		return domain.Reject(domain.GenerationUnknown, err)
	}

	now := v.clock.Now()
	switch p := classified.(type) {
	case wire.OptimizedPayload:
		err = v.checkOptimized(p.Record, round, senderID, now)
	case wire.LegacyPayload:
		err = v.checkLegacy(p.Record, round, senderID, now)
	case wire.PlainPayload:
		if !v.opts.AllowPlainSentinels {
			err = fmt.Errorf("%w: plain sentinel %q not accepted", domain.ErrUnknownFormat, p.Sentinel)
		}
	default:
		return domain.Reject(domain.GenerationUnknown, domain.ErrUnknownFormat)
	}

	if err != nil {
		return domain.Reject(classified.Generation(), err)
	}

	return domain.Accept(classified.Generation())
}

func (v *SubmissionValidator) checkOptimized(record wire.Record, round uint64, senderID string, now time.Time) error {
	timestamp, err := wholeNumber("timestamp", record.Meta.Timestamp)
	if err != nil {
		return err
	}
	recordRound, err := wholeNumber("round", record.Meta.Round)
	if err != nil {
		return err
	}
	if err := v.checkUniversal(record.Dynamic.Liveness, timestamp, &recordRound, round, now); err != nil {
		return err
	}
	if err := checkSender(record.Sender, senderID); err != nil {
		return err
	}
	if record.Static != nil {
		if err := record.Static.Check(); err != nil {
			return fmt.Errorf("static block: %w", err)
		}
	}

	return checkConsistency(record.Meta.StaticChanged, record.Static != nil)
}

func (v *SubmissionValidator) checkLegacy(record wire.LegacyRecord, round uint64, senderID string, now time.Time) error {
	percent := *record.CPUUsagePercent
	if math.IsNaN(percent) || percent < 0 || percent > 100 {
		return fmt.Errorf("%w: cpu usage %v%% outside [0, 100]", domain.ErrOutOfRange, percent)
	}

	timestamp := record.UnixSeconds()
	if err := v.checkUniversal(*record.Uptime, timestamp, record.Round, round, now); err != nil {
		return err
	}
	if err := checkSender(record.Address, senderID); err != nil {
		return err
	}
	if record.Hardware != nil {
		if err := record.Hardware.Static().Check(); err != nil {
			return fmt.Errorf("hardware block: %w", err)
		}
	}
	if err := checkConsistency(record.StaticChanged, record.Hardware != nil); err != nil {
		return err
	}

	if record.Date == "" {
		return nil
	}
	date, err := wire.ParseLegacyDate(record.Date)
	if err != nil {
		return err
	}
	if days := wire.CalendarDaysApart(date, time.Unix(timestamp, 0)); days > maxLegacyDateSkewDays {
		return fmt.Errorf("%w: date %s is %d days from timestamp", domain.ErrInconsistent, record.Date, days)
	}

	return nil
}

func (v *SubmissionValidator) checkUniversal(liveness float64, timestamp int64, recordRound *int64, round uint64, now time.Time) error {
	if math.IsNaN(liveness) || liveness <= 0 {
		return fmt.Errorf("%w: liveness %v is not positive", domain.ErrOutOfRange, liveness)
	}
	if liveness > wire.MaxLivenessSeconds {
		return fmt.Errorf("%w: liveness %v exceeds %d", domain.ErrOutOfRange, liveness, wire.MaxLivenessSeconds)
	}

	stamped := time.Unix(timestamp, 0)
	if stamped.Before(earliestTimestamp) || stamped.After(now.Add(maxFutureDrift)) {
		return fmt.Errorf("%w: timestamp %d is implausible", domain.ErrOutOfRange, timestamp)
	}
	skew := now.Sub(stamped)
	if skew < 0 {
		skew = -skew
	}
	if skew > v.opts.SkewTolerance {
		return fmt.Errorf("%w: timestamp %d is %s from validator clock", domain.ErrOutOfRange, timestamp, skew)
	}

	if round > wire.MaxRound {
		return fmt.Errorf("%w: validating round %d exceeds %d", domain.ErrOutOfRange, round, wire.MaxRound)
	}
	if recordRound == nil {
		return nil
	}
	if *recordRound < 0 || *recordRound > wire.MaxRound {
		return fmt.Errorf("%w: round %d outside [0, %d]", domain.ErrOutOfRange, *recordRound, wire.MaxRound)
	}
	distance := uint64(*recordRound) - round
	if uint64(*recordRound) < round {
		distance = round - uint64(*recordRound)
	}
	if distance > v.opts.RoundTolerance {
		return fmt.Errorf("%w: record round %d, validating round %d", domain.ErrInconsistent, *recordRound, round)
	}

	return nil
}

// wholeNumber converts a wire number that must be integral.
func wholeNumber(name string, value float64) (int64, error) {
	if math.IsNaN(value) || math.IsInf(value, 0) || value != math.Trunc(value) {
		return 0, fmt.Errorf("%w: %s %v is not a whole number", domain.ErrOutOfRange, name, value)
	}
	if value < math.MinInt64 || value >= math.MaxInt64 {
		return 0, fmt.Errorf("%w: %s %v overflows", domain.ErrOutOfRange, name, value)
	}
	return int64(value), nil
}

func checkSender(recordSender, senderID string) error {
	if len(recordSender) > wire.MaxSenderLength {
		return fmt.Errorf("%w: sender is %d bytes", domain.ErrOutOfRange, len(recordSender))
	}
	if recordSender == "" || senderID == "" {
		return nil
	}
	if !strings.EqualFold(recordSender, senderID) {
		return fmt.Errorf("%w: record sender %q does not match %q", domain.ErrInconsistent, recordSender, senderID)
	}
	return nil
}

func checkConsistency(flag, hasStatic bool) error {
	switch {
	case flag && !hasStatic:
		return fmt.Errorf("%w: static flag set without static block", domain.ErrInconsistent)
	case !flag && hasStatic:
		return fmt.Errorf("%w: static block present with flag unset", domain.ErrInconsistent)
	default:
		return nil
	}
}
