package report

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/bnema/nodetel/internal/domain"
	"github.com/bnema/nodetel/internal/wire"
	"github.com/charmbracelet/lipgloss"
)

type RenderOptions struct {
	Now    time.Time
	Sender string
	Round  uint64
}

func renderRound(result domain.RoundResult, opts RenderOptions, s styles) string {
	lines := []string{
		s.title.Render(fmt.Sprintf("Round %d", result.Round)),
		s.header.Render(fmt.Sprintf("liveness: %s", formatLiveness(result.Liveness))),
	}

	lines = append(lines, field(s, "static facts", staticLabel(result)))
	lines = append(lines, payloadSizeLine(len(result.Payload), s))

	if result.ProviderErr != nil {
		lines = append(lines, s.warning.Render("hardware unavailable: "+result.ProviderErr.Error()))
	}
	for _, degradation := range result.Degradations {
		lines = append(lines, s.warning.Render("degraded: "+degradation))
	}

	lines = append(lines, s.section.Render(s.payload.Render(result.Payload)))

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func staticLabel(result domain.RoundResult) string {
	switch {
	case result.StaticIncluded && result.Change.Reason != "":
		return "included (" + result.Change.Reason + ")"
	case result.StaticIncluded:
		return "included"
	case result.Change.HasChanged:
		return "withheld"
	default:
		return "unchanged"
	}
}

func renderVerdict(verdict domain.Verdict, opts RenderOptions, s styles) string {
	status := s.warning.Render("REJECTED")
	if verdict.Accepted {
		status = s.accepted.Render("ACCEPTED")
	}

	lines := []string{
		lipgloss.JoinHorizontal(lipgloss.Top, s.title.Render("Submission "), status),
		field(s, "format", string(verdict.Generation)),
	}
	if opts.Round > 0 {
		lines = append(lines, field(s, "round", fmt.Sprintf("%d", opts.Round)))
	}
	if opts.Sender != "" {
		lines = append(lines, field(s, "sender", opts.Sender))
	}
	if !verdict.Accepted {
		lines = append(lines, field(s, "reason", verdict.Reason))
	}

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func renderSnapshot(snapshot domain.HardwareSnapshot, opts RenderOptions, s styles) string {
	lines := []string{s.title.Render("Hardware snapshot")}
	if !snapshot.CollectedAt.IsZero() {
		lines = append(lines, s.header.Render("collected "+formatAge(snapshot.CollectedAt, opts.Now)))
	}

	return lipgloss.JoinVertical(lipgloss.Left, append(lines, snapshotLines(snapshot, s)...)...)
}

func renderCacheEntry(entry *domain.CacheEntry, opts RenderOptions, s styles) string {
	lines := []string{s.title.Render("Hardware cache")}
	if entry == nil {
		lines = append(lines, s.empty.Render("No snapshot cached; the next round sends static facts."))
		return lipgloss.JoinVertical(lipgloss.Left, lines...)
	}

	lines = append(lines,
		s.header.Render("hash: "+entry.SnapshotHash),
		s.header.Render("captured "+formatAge(entry.CapturedAt, opts.Now)),
	)

	return lipgloss.JoinVertical(lipgloss.Left, append(lines, snapshotLines(entry.Snapshot, s)...)...)
}

func snapshotLines(snapshot domain.HardwareSnapshot, s styles) []string {
	cpu := fmt.Sprintf("%s, %d cores / %d threads", orUnknown(snapshot.CPU.Model), snapshot.CPU.PhysicalCores, snapshot.CPU.LogicalCores)
	if snapshot.CPU.SpeedMHz > 0 {
		cpu += fmt.Sprintf(" @ %d MHz", snapshot.CPU.SpeedMHz)
	}

	memory := fmt.Sprintf("%d GB", snapshot.Memory.TotalGB)
	if snapshot.Memory.Type != "" {
		memory += " " + snapshot.Memory.Type
	}

	gpu := "none"
	if snapshot.GPU.Present {
		gpu = orUnknown(snapshot.GPU.GPULabel())
	}

	osLabel := orUnknown(snapshot.OS.Platform)
	if snapshot.OS.Distro != "" {
		osLabel += " (" + snapshot.OS.Distro + ")"
	}
	if snapshot.OS.Virtualized {
		osLabel += " [virtualized]"
	}

	return []string{
		field(s, "cpu", cpu),
		field(s, "memory", memory),
		field(s, "storage", fmt.Sprintf("%d GB on %d device(s)", snapshot.Storage.TotalGB, snapshot.Storage.Devices)),
		field(s, "gpu", gpu),
		field(s, "os", osLabel),
		field(s, "network", orUnknown(snapshot.Network.Adapter)),
		field(s, "system", fmt.Sprintf("%s / %s", orUnknown(snapshot.System.Arch), orUnknown(snapshot.System.Hostname))),
	}
}

func field(s styles, key, value string) string {
	return lipgloss.JoinHorizontal(lipgloss.Top, s.key.Render(key+":"), " ", s.detail.Render(value))
}

func payloadSizeLine(size int, s styles) string {
	used := float64(size) / wire.MaxPayloadBytes * 100
	meta := lipgloss.NewStyle().
		Foreground(interpolateColor(used, 0, 100)).
		Render(fmt.Sprintf("%d/%d bytes", size, wire.MaxPayloadBytes))

	return lipgloss.JoinHorizontal(
		lipgloss.Top,
		s.key.Render("payload:"),
		" ",
		renderProgressBar(used, 24, s),
		" ",
		meta,
	)
}

func renderProgressBar(usedPercent float64, width int, s styles) string {
	if width <= 0 {
		return ""
	}

	filled := int(math.Round(float64(width) * clampPercent(usedPercent) / 100))
	filled = min(max(filled, 0), width)

	return lipgloss.JoinHorizontal(
		lipgloss.Top,
		s.barBracket.Render("["),
		s.barFill.Render(strings.Repeat("=", filled)),
		s.barEmpty.Render(strings.Repeat("-", width-filled)),
		s.barBracket.Render("]"),
	)
}

func clampPercent(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// interpolateColor walks the 240-255 greyscale ramp.
func interpolateColor(value, min, max float64) lipgloss.Color {
	if max == min {
		return lipgloss.Color("255")
	}

	normalized := (value - min) / (max - min)
	if normalized < 0 {
		normalized = 0
	}
	if normalized > 1 {
		normalized = 1
	}

	return lipgloss.Color(fmt.Sprintf("%d", int(240+15*normalized)))
}

func formatLiveness(seconds uint64) string {
	if seconds == 0 {
		return "0s"
	}
	return fmt.Sprintf("%s (%ds)", time.Duration(seconds)*time.Second, seconds)
}

func formatAge(at, now time.Time) string {
	if at.IsZero() {
		return "at an unknown time"
	}
	if now.IsZero() || at.After(now) {
		return "at " + at.UTC().Format(time.RFC3339)
	}

	age := now.Sub(at).Round(time.Second)
	return fmt.Sprintf("%s ago (%s)", age, at.UTC().Format(time.RFC3339))
}

func orUnknown(value string) string {
	if strings.TrimSpace(value) == "" {
		return wire.Unknown
	}
	return value
}
