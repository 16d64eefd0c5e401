// Package system collects hardware facts from the Linux /proc and /sys trees.
// It reads through an fs.FS rooted at "/" so tests can hand it a fake tree.
// Every probe is best-effort; a fact that cannot be read stays at its zero
// value.
package system

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path"
	"regexp"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/bnema/nodetel/internal/domain"
	"github.com/bnema/nodetel/internal/ports"
)

const (
	cpuInfoPath   = "proc/cpuinfo"
	memInfoPath   = "proc/meminfo"
	uptimePath    = "proc/uptime"
	hostnamePath  = "proc/sys/kernel/hostname"
	osReleasePath = "etc/os-release"
	blockDir      = "sys/block"
	netDir        = "sys/class/net"
	drmDir        = "sys/class/drm"
	dmiVendorPath = "sys/class/dmi/id/sys_vendor"
	maxFreqPath   = "sys/devices/system/cpu/cpu0/cpufreq/cpuinfo_max_freq"
	routePath     = "proc/net/route"

	sectorBytes = 512
	bytesPerGB  = 1 << 30
	kibPerGB    = 1 << 20
)

// Virtual block devices that do not represent storage.
var ignoredBlockPrefixes = []string{"loop", "ram", "zram", "dm-", "md", "sr", "fd", "nbd"}

// Interfaces that come and go with containers, VMs and tunnels.
var virtualNetPrefixes = []string{"lo", "veth", "docker", "br-", "virbr", "vnet", "tun", "tap", "cni", "flannel", "cali", "vxlan", "kube", "wg", "zt"}

// "@ 2.40GHz" at the end of an x86 model name is the rated clock.
var ratedClockPattern = regexp.MustCompile(`@\s*([0-9]+(?:\.[0-9]+)?)\s*([GM])Hz`)

var gpuVendors = map[string]string{
	"0x10de": "NVIDIA",
	"0x1002": "AMD",
	"0x8086": "Intel",
	"0x1af4": "Virtio",
	"0x15ad": "VMware",
	"0x1234": "QEMU",
}

var hypervisorVendors = []string{"qemu", "kvm", "vmware", "innotek", "xen", "microsoft corporation", "amazon ec2", "google", "parallels"}

type Provider struct {
	fsys     fs.FS
	goos     string
	goarch   string
	clock    ports.Clock
	hostname func() (string, error)
}

var _ ports.HardwareFactsProvider = (*Provider)(nil)

// NewProvider reads the real filesystem of the running host.
func NewProvider() *Provider {
	provider := NewProviderFS(os.DirFS("/"), runtime.GOOS, runtime.GOARCH, nil)
	provider.hostname = os.Hostname
	return provider
}

func NewProviderFS(fsys fs.FS, goos, goarch string, clock ports.Clock) *Provider {
	if clock == nil {
		clock = ports.SystemClock{}
	}

	return &Provider{fsys: fsys, goos: goos, goarch: goarch, clock: clock}
}

func (p *Provider) Collect(ctx context.Context) (domain.HardwareSnapshot, error) {
	if p.goos != "linux" && p.goos != "android" {
		return domain.HardwareSnapshot{}, fmt.Errorf("%w: no probes for %s", domain.ErrHardwareUnavailable, p.goos)
	}

	snapshot := domain.HardwareSnapshot{
		OS:          domain.OSFacts{Platform: p.goos},
		System:      domain.SystemFacts{Arch: p.goarch},
		CollectedAt: p.clock.Now(),
	}

	cpuinfo, cpuErr := fs.ReadFile(p.fsys, cpuInfoPath)
	meminfo, memErr := fs.ReadFile(p.fsys, memInfoPath)
	if cpuErr != nil && memErr != nil {
		return domain.HardwareSnapshot{}, fmt.Errorf("%w: %v", domain.ErrHardwareUnavailable, cpuErr)
	}

	var cpuFlags []string
	if cpuErr == nil {
		snapshot.CPU, cpuFlags = parseCPUInfo(cpuinfo)
	}
	snapshot.CPU.SpeedMHz = p.ratedSpeedMHz(snapshot.CPU.Model)
	if memErr == nil {
		snapshot.Memory.TotalGB = parseMemTotalGB(meminfo)
	}

	probes := []func(*domain.HardwareSnapshot){
		p.probeStorage,
		p.probeGPU,
		p.probeNetwork,
		p.probeSystem,
		func(s *domain.HardwareSnapshot) { s.OS.Virtualized = p.virtualized(cpuFlags) },
	}
	for _, probe := range probes {
		if err := ctx.Err(); err != nil {
			return domain.HardwareSnapshot{}, err
		}
		probe(&snapshot)
	}

	return snapshot, nil
}

func parseCPUInfo(data []byte) (domain.CPUFacts, []string) {
	var facts domain.CPUFacts
	var flags []string

	type coreKey struct{ physical, core string }
	cores := map[coreKey]struct{}{}
	packages := map[string]int{}
	var physicalID, coreID string
	coresPerPackage := 0

	flush := func() {
		if coreID != "" {
			cores[coreKey{physicalID, coreID}] = struct{}{}
		}
		physicalID, coreID = "", ""
	}

	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		key, value, ok := splitField(scanner.Text(), ':')
		if !ok {
			if strings.TrimSpace(scanner.Text()) == "" {
				flush()
			}
			continue
		}

		switch key {
		case "processor":
			facts.LogicalCores++
		case "model name", "Model", "cpu model":
			if facts.Model == "" {
				facts.Model = value
			}
		case "physical id":
			physicalID = value
			packages[value]++
		case "core id":
			coreID = value
		case "cpu cores":
			if n, err := strconv.Atoi(value); err == nil && coresPerPackage == 0 {
				coresPerPackage = n
			}
		case "flags", "Features":
			if flags == nil {
				flags = strings.Fields(value)
			}
		}
	}
	flush()

	switch {
	case len(cores) > 0:
		facts.PhysicalCores = len(cores)
	case coresPerPackage > 0 && len(packages) > 0:
		facts.PhysicalCores = coresPerPackage * len(packages)
	default:
		facts.PhysicalCores = facts.LogicalCores
	}

	return facts, flags
}

// ratedSpeedMHz reports the maximum clock rather than the "cpu MHz" line,
// which follows frequency scaling and would change the snapshot every round.
func (p *Provider) ratedSpeedMHz(model string) int {
	if khz, err := p.readInt(maxFreqPath); err == nil && khz > 0 {
		return int(math.Round(float64(khz) / 1000))
	}

	match := ratedClockPattern.FindStringSubmatch(model)
	if match == nil {
		return 0
	}
	value, err := strconv.ParseFloat(match[1], 64)
	if err != nil {
		return 0
	}
	if match[2] == "G" {
		value *= 1000
	}
	return int(math.Round(value))
}

func parseMemTotalGB(data []byte) int {
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		key, value, ok := splitField(scanner.Text(), ':')
		if !ok || key != "MemTotal" {
			continue
		}

		kib, err := strconv.ParseFloat(strings.TrimSpace(strings.TrimSuffix(value, "kB")), 64)
		if err != nil || kib <= 0 {
			return 0
		}
		return max(1, int(math.Round(kib/kibPerGB)))
	}

	return 0
}

func (p *Provider) probeStorage(s *domain.HardwareSnapshot) {
	entries, err := fs.ReadDir(p.fsys, blockDir)
	if err != nil {
		return
	}

	var totalBytes float64
	for _, entry := range entries {
		name := entry.Name()
		if ignoredBlockDevice(name) {
			continue
		}

		sectors, err := p.readInt(path.Join(blockDir, name, "size"))
		if err != nil || sectors <= 0 {
			continue
		}
		s.Storage.Devices++
		totalBytes += float64(sectors) * sectorBytes
	}

	if totalBytes > 0 {
		s.Storage.TotalGB = max(1, int(math.Round(totalBytes/bytesPerGB)))
	}
}

func ignoredBlockDevice(name string) bool {
	for _, prefix := range ignoredBlockPrefixes {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}

func (p *Provider) probeGPU(s *domain.HardwareSnapshot) {
	entries, err := fs.ReadDir(p.fsys, drmDir)
	if err != nil {
		return
	}

	for _, entry := range entries {
		name := entry.Name()
		// card0, card1, ... but not connectors such as card0-HDMI-A-1.
		if !strings.HasPrefix(name, "card") || strings.Contains(name, "-") {
			continue
		}

		vendorID, err := p.readTrimmed(path.Join(drmDir, name, "device", "vendor"))
		if err != nil {
			continue
		}

		s.GPU.Present = true
		if vendor, ok := gpuVendors[strings.ToLower(vendorID)]; ok {
			s.GPU.Vendor = vendor
		}
		if s.GPU.Vendor == "NVIDIA" || s.GPU.Vendor == "AMD" {
			break
		}
	}
}

// probeNetwork picks the interface carrying the default route, or else the
// first physical-looking interface by name. Link state is ignored so an
// interface going up or down does not change the snapshot.
func (p *Provider) probeNetwork(s *domain.HardwareSnapshot) {
	if adapter := p.defaultRouteInterface(); adapter != "" {
		s.Network.Adapter = adapter
		return
	}

	entries, err := fs.ReadDir(p.fsys, netDir)
	if err != nil {
		return
	}

	var names []string
	for _, entry := range entries {
		if !virtualInterface(entry.Name()) {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)
	if len(names) > 0 {
		s.Network.Adapter = names[0]
	}
}

// defaultRouteInterface reads /proc/net/route and returns the non-virtual
// interface of the lowest-metric default route.
func (p *Provider) defaultRouteInterface() string {
	data, err := fs.ReadFile(p.fsys, routePath)
	if err != nil {
		return ""
	}

	best, bestMetric := "", int64(math.MaxInt64)
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Scan() // header
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 7 || fields[1] != "00000000" || virtualInterface(fields[0]) {
			continue
		}
		metric, err := strconv.ParseInt(fields[6], 10, 64)
		if err != nil {
			continue
		}
		if metric < bestMetric || (metric == bestMetric && fields[0] < best) {
			best, bestMetric = fields[0], metric
		}
	}
	return best
}

func virtualInterface(name string) bool {
	for _, prefix := range virtualNetPrefixes {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}

func (p *Provider) probeSystem(s *domain.HardwareSnapshot) {
	if hostname, err := p.readTrimmed(hostnamePath); err == nil {
		s.System.Hostname = hostname
	} else if p.hostname != nil {
		if hostname, err := p.hostname(); err == nil {
			s.System.Hostname = hostname
		}
	}

	if release, err := fs.ReadFile(p.fsys, osReleasePath); err == nil {
		s.OS.Distro = parseOSRelease(release)
	}

	if raw, err := p.readTrimmed(uptimePath); err == nil {
		if fields := strings.Fields(raw); len(fields) > 0 {
			if seconds, err := strconv.ParseFloat(fields[0], 64); err == nil {
				s.Uptime = time.Duration(seconds * float64(time.Second))
			}
		}
	}
}

func (p *Provider) virtualized(cpuFlags []string) bool {
	for _, flag := range cpuFlags {
		if flag == "hypervisor" {
			return true
		}
	}

	vendor, err := p.readTrimmed(dmiVendorPath)
	if err != nil {
		return false
	}
	vendor = strings.ToLower(vendor)
	for _, known := range hypervisorVendors {
		if strings.Contains(vendor, known) {
			return true
		}
	}
	return false
}

func parseOSRelease(data []byte) string {
	values := map[string]string{}
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		key, value, ok := splitField(scanner.Text(), '=')
		if !ok {
			continue
		}
		values[key] = strings.Trim(value, `"'`)
	}

	if pretty := values["PRETTY_NAME"]; pretty != "" {
		return pretty
	}
	return strings.TrimSpace(values["NAME"] + " " + values["VERSION_ID"])
}

func splitField(line string, sep byte) (string, string, bool) {
	idx := strings.IndexByte(line, sep)
	if idx <= 0 {
		return "", "", false
	}
	return strings.TrimSpace(line[:idx]), strings.TrimSpace(line[idx+1:]), true
}

func (p *Provider) readTrimmed(name string) (string, error) {
	data, err := fs.ReadFile(p.fsys, name)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

func (p *Provider) readInt(name string) (int64, error) {
	raw, err := p.readTrimmed(name)
	if err != nil {
		return 0, err
	}
	return strconv.ParseInt(raw, 10, 64)
}
