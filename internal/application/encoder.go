package application

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/bnema/nodetel/internal/domain"
	"github.com/bnema/nodetel/internal/ports"
	"github.com/bnema/nodetel/internal/wire"
	"github.com/sirupsen/logrus"
)

const defaultLookupTimeout = 2 * time.Second

const (
	degradeSenderTooLong   = "sender too long"
	degradeStaticInvalid   = "static facts incomplete"
	degradeSenderDropped   = "sender dropped"
	degradeLabelsTruncated = "static labels truncated"
	degradeStaticDropped   = "static block dropped"
	degradeAddressUnknown  = "address lookup failed"
	degradeEncoderPanic    = "encoder panic"
	degradeOverBudget      = "record exceeds budget"
)

type EncodeRequest struct {
	Liveness uint64
	Round    uint64
	Now      time.Time
	Snapshot *domain.HardwareSnapshot
	Sender   string
}

type EncodeResult struct {
	Payload        string
	StaticIncluded bool
	Degradations   []string
}

// SubmissionEncoder packs a round into an optimized record no larger than
// wire.MaxPayloadBytes. It never fails: problems degrade the record instead.
type SubmissionEncoder struct {
	resolver      ports.AddressResolver
	lookupTimeout time.Duration
	log           logrus.FieldLogger
}

// NewSubmissionEncoder builds an encoder. resolver may be nil, in which case
// records carry no address.
func NewSubmissionEncoder(resolver ports.AddressResolver, lookupTimeout time.Duration, log logrus.FieldLogger) *SubmissionEncoder {
	if lookupTimeout <= 0 {
		lookupTimeout = defaultLookupTimeout
	}
	if log == nil {
		log = logrus.StandardLogger()
	}

	return &SubmissionEncoder{
		resolver:      resolver,
		lookupTimeout: lookupTimeout,
		log:           log.WithField("component", "encoder"),
	}
}

func (e *SubmissionEncoder) Encode(ctx context.Context, req EncodeRequest) (result EncodeResult) {
	defer func() {
		if r := recover(); r != nil {
			e.log.WithField("panic", r).Error("encoder panicked; sending dynamic facts only")
			result = e.dynamicOnly(req, degradeEncoderPanic)
		}
	}()

	var degradations []string
	record := baseRecord(req)

	if req.Sender != "" {
		// Invalid bytes would come back from the wire as U+FFFD and grow.
		sender := strings.ToValidUTF8(req.Sender, "\uFFFD")
		if len(sender) <= wire.MaxSenderLength {
			record.Sender = sender
		} else {
			degradations = append(degradations, degradeSenderTooLong)
		}
	}

	var static *wire.Static
	if req.Snapshot != nil {
		address, ok := e.lookupAddress(ctx)
		if !ok {
			degradations = append(degradations, degradeAddressUnknown)
		}

		candidate := compactStatic(*req.Snapshot, address, false)
		if err := candidate.Check(); err != nil {
			degradations = append(degradations, fmt.Sprintf("%s: %v", degradeStaticInvalid, err))
		} else {
			static = &candidate
		}
	}
	record.Static = static
	record.Meta.StaticChanged = static != nil

	payload, fits := marshalRecord(record)
	if !fits && record.Sender != "" {
		record.Sender = ""
		degradations = append(degradations, degradeSenderDropped)
		payload, fits = marshalRecord(record)
	}
	if !fits && record.Static != nil {
		shrunk := compactStatic(*req.Snapshot, derefOr(record.Static.Address, ""), true)
		record.Static = &shrunk
		degradations = append(degradations, degradeLabelsTruncated)
		payload, fits = marshalRecord(record)
	}
	if !fits && record.Static != nil {
		record.Static = nil
		record.Meta.StaticChanged = false
		degradations = append(degradations, degradeStaticDropped)
		payload, fits = marshalRecord(record)
	}
	if !fits {
		e.log.WithField("bytes", len(payload)).Error("dynamic record does not fit the payload budget")
		return EncodeResult{Degradations: append(degradations, degradeOverBudget)}
	}

	if len(degradations) > 0 {
		e.log.WithField("degradations", degradations).Debug("record degraded")
	}

	return EncodeResult{
		Payload:        payload,
		StaticIncluded: record.Static != nil,
		Degradations:   degradations,
	}
}

// lookupAddress makes the single time-boxed address lookup allowed per
// record. The resolver runs on its own goroutine so a resolver ignoring ctx
// still cannot hold the round past the timeout.
func (e *SubmissionEncoder) lookupAddress(ctx context.Context) (string, bool) {
	if e.resolver == nil {
		return "", true
	}

	lookupCtx, cancel := context.WithTimeout(ctx, e.lookupTimeout)
	defer cancel()

	type lookup struct {
		address string
		err     error
	}
	done := make(chan lookup, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- lookup{err: fmt.Errorf("resolver panic: %v", r)}
			}
		}()
		address, err := e.resolver.Resolve(lookupCtx)
		done <- lookup{address: address, err: err}
	}()

	select {
	case res := <-done:
		if res.err != nil {
			e.log.WithError(res.err).Debug("address lookup failed")
			return wire.Unknown, false
		}
		address := strings.TrimSpace(res.address)
		if net.ParseIP(address) == nil {
			e.log.WithField("address", address).Debug("address lookup returned a non-IP value")
			return wire.Unknown, false
		}
		return address, true
	case <-lookupCtx.Done():
		e.log.WithField("timeout", e.lookupTimeout).Debug("address lookup timed out")
		return wire.Unknown, false
	}
}

func (e *SubmissionEncoder) dynamicOnly(req EncodeRequest, reason string) EncodeResult {
	payload, fits := marshalRecord(baseRecord(req))
	if !fits {
		return EncodeResult{Degradations: []string{reason, degradeOverBudget}}
	}
	return EncodeResult{Payload: payload, Degradations: []string{reason}}
}

func baseRecord(req EncodeRequest) wire.Record {
	return wire.Record{
		Version: wire.CurrentVersion,
		Dynamic: wire.Dynamic{Liveness: float64(req.Liveness)},
		Meta: wire.Meta{
			Timestamp: float64(req.Now.Unix()),
			Round:     float64(req.Round),
		},
	}
}

// compactStatic maps a snapshot onto the compact key scheme. With minimal
// set, labels are cut to their shortest informative length.
func compactStatic(snapshot domain.HardwareSnapshot, address string, minimal bool) wire.Static {
	limit := func(l wire.FieldLimit) int {
		if minimal {
			return l.Min
		}
		return l.Max
	}

	static := wire.Static{
		CPUModel:       wire.Label(snapshot.CPU.Model, limit(wire.CPUModelLimit)),
		PhysicalCores:  snapshot.CPU.PhysicalCores,
		LogicalCores:   snapshot.CPU.LogicalCores,
		SpeedMHz:       snapshot.CPU.SpeedMHz,
		MemoryGB:       snapshot.Memory.TotalGB,
		MemoryType:     wire.Label(snapshot.Memory.Type, limit(wire.MemoryTypeLimit)),
		StorageGB:      snapshot.Storage.TotalGB,
		StorageDevices: snapshot.Storage.Devices,
		GPU:            snapshot.GPU.Present,
		GPUModel:       wire.Label(snapshot.GPU.GPULabel(), limit(wire.GPUModelLimit)),
		Platform:       wire.NormalizePlatform(snapshot.OS.Platform),
		Distro:         wire.Label(snapshot.OS.Distro, limit(wire.DistroLimit)),
		Virtualized:    snapshot.OS.Virtualized,
		Adapter:        wire.Label(snapshot.Network.Adapter, limit(wire.AdapterLimit)),
		Arch:           wire.NormalizeArch(snapshot.System.Arch),
		Hostname:       wire.Label(snapshot.System.Hostname, limit(wire.HostnameLimit)),
	}
	if address != "" {
		static.Address = wire.Label(address, wire.AddressLimit.Max)
	}
	if static.SpeedMHz < wire.MinSpeedMHz || static.SpeedMHz > wire.MaxSpeedMHz {
		static.SpeedMHz = 0
	}

	return static
}

func marshalRecord(record wire.Record) (string, bool) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(record); err != nil {
		return "", false
	}

	payload := string(bytes.TrimRight(buf.Bytes(), "\n"))
	return payload, len(payload) <= wire.MaxPayloadBytes
}

func derefOr(value *string, fallback string) string {
	if value == nil {
		return fallback
	}
	return *value
}
