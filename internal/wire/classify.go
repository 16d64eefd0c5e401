package wire

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/bnema/nodetel/internal/domain"
)

// Payload is a classified record. The concrete types are OptimizedPayload,
// LegacyPayload and PlainPayload.
type Payload interface {
	Generation() domain.FormatGeneration
	payload()
}

type OptimizedPayload struct {
	Record Record
}

type LegacyPayload struct {
	Record LegacyRecord
}

type PlainPayload struct {
	Sentinel string
}

func (OptimizedPayload) Generation() domain.FormatGeneration { return domain.GenerationOptimized }
func (LegacyPayload) Generation() domain.FormatGeneration    { return domain.GenerationLegacy }
func (PlainPayload) Generation() domain.FormatGeneration     { return domain.GenerationPlain }

func (OptimizedPayload) payload() {}
func (LegacyPayload) payload()    {}
func (PlainPayload) payload()     {}

var plainSentinels = map[string]struct{}{
	"alive":     {},
	"online":    {},
	"heartbeat": {},
	"ok":        {},
}

// IsPlainSentinel reports whether value is one of the bare strings early
// reporters sent instead of a structured record.
func IsPlainSentinel(value string) bool {
	_, ok := plainSentinels[strings.ToLower(strings.TrimSpace(value))]
	return ok
}

// Classify parses raw and decides which generation it belongs to. The
// optimized shape is tried before the legacy one. A structurally valid
// document that matches neither is ErrUnknownFormat.
func Classify(raw string) (Payload, error) {
	trimmed := strings.TrimSpace(raw)

	var document any
	if err := json.Unmarshal([]byte(trimmed), &document); err != nil {
		if IsPlainSentinel(trimmed) {
			return PlainPayload{Sentinel: strings.ToLower(trimmed)}, nil
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedPayload, err)
	}

	switch value := document.(type) {
	case string:
		if IsPlainSentinel(value) {
			return PlainPayload{Sentinel: strings.ToLower(strings.TrimSpace(value))}, nil
		}
		return nil, fmt.Errorf("%w: bare string %q", domain.ErrUnknownFormat, value)
	case map[string]any:
		return classifyObject(trimmed, value)
	default:
		return nil, fmt.Errorf("%w: top-level %T", domain.ErrUnknownFormat, document)
	}
}

func classifyObject(raw string, fields map[string]any) (Payload, error) {
	if version, ok := fields["v"]; ok {
		if number, isNumber := version.(float64); !isNumber || number != CurrentVersion {
			return nil, fmt.Errorf("%w: version %v", domain.ErrUnknownFormat, version)
		}
	}

	switch {
	case looksOptimized(fields):
		var record Record
		if err := decodeStrict(raw, &record, optimizedKeys); err != nil {
			return nil, fmt.Errorf("%w: optimized record: %v", domain.ErrMalformedPayload, err)
		}
		if record.Version != 0 && record.Version != CurrentVersion {
			return nil, fmt.Errorf("%w: version %d", domain.ErrUnknownFormat, record.Version)
		}
		return OptimizedPayload{Record: record}, nil
	case looksLegacy(fields):
		var record LegacyRecord
		if err := decodeStrict(raw, &record, legacyKeys); err != nil {
			return nil, fmt.Errorf("%w: legacy record: %v", domain.ErrMalformedPayload, err)
		}
		if record.Uptime == nil || record.Timestamp == nil || record.CPUUsagePercent == nil {
			return nil, fmt.Errorf("%w: legacy record has null required fields", domain.ErrMalformedPayload)
		}
		return LegacyPayload{Record: record}, nil
	default:
		return nil, domain.ErrUnknownFormat
	}
}

func looksOptimized(fields map[string]any) bool {
	dynamic, ok := fields["d"].(map[string]any)
	if !ok || !hasKeys(dynamic, "u") {
		return false
	}
	meta, ok := fields["m"].(map[string]any)
	return ok && hasKeys(meta, "c", "t", "r")
}

func looksLegacy(fields map[string]any) bool {
	return hasKeys(fields, "uptime", "timestamp", "cpuUsagePercent")
}

func hasKeys(fields map[string]any, keys ...string) bool {
	for _, key := range keys {
		if _, ok := fields[key]; !ok {
			return false
		}
	}
	return true
}

// decodeStrict rejects unknown, case-folded or repeated keys at any depth and
// trailing documents.
func decodeStrict(raw string, out any, allowed keySet) error {
	if err := checkKeys(raw, allowed); err != nil {
		return err
	}

	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return errors.New("trailing data after record")
	}
	return nil
}
