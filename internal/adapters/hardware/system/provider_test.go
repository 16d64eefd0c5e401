package system

import (
	"context"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	filestore "github.com/bnema/nodetel/internal/adapters/kv/file"
	"github.com/bnema/nodetel/internal/application"
	"github.com/bnema/nodetel/internal/domain"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedClock struct{ now time.Time }

func (f fixedClock) Now() time.Time { return f.now }

const twoSocketCPUInfo = `processor	: 0
model name	: Intel(R) Xeon(R) CPU E5-2680 v4 @ 2.40GHz
cpu MHz		: 2399.998
physical id	: 0
core id		: 0
cpu cores	: 2
flags		: fpu vme de pse hypervisor sse4_2

processor	: 1
model name	: Intel(R) Xeon(R) CPU E5-2680 v4 @ 2.40GHz
cpu MHz		: 2399.998
physical id	: 0
core id		: 0
cpu cores	: 2

processor	: 2
model name	: Intel(R) Xeon(R) CPU E5-2680 v4 @ 2.40GHz
physical id	: 0
core id		: 1
cpu cores	: 2

processor	: 3
model name	: Intel(R) Xeon(R) CPU E5-2680 v4 @ 2.40GHz
physical id	: 1
core id		: 0
cpu cores	: 2
`

func hostTree() fstest.MapFS {
	return fstest.MapFS{
		"proc/cpuinfo":                        {Data: []byte(twoSocketCPUInfo)},
		"proc/meminfo":                        {Data: []byte("MemTotal:       65840244 kB\nMemFree:         1234 kB\n")},
		"proc/uptime":                         {Data: []byte("3600.50 7000.10\n")},
		"proc/sys/kernel/hostname":            {Data: []byte("worker-17\n")},
		"etc/os-release":                      {Data: []byte("NAME=\"Ubuntu\"\nVERSION_ID=\"22.04\"\nPRETTY_NAME=\"Ubuntu 22.04.4 LTS\"\n")},
		"sys/block/nvme0n1/size":              {Data: []byte("1953525168\n")},
		"sys/block/sda/size":                  {Data: []byte("3907029168\n")},
		"sys/block/loop0/size":                {Data: []byte("1024\n")},
		"sys/block/sr0/size":                  {Data: []byte("0\n")},
		"sys/class/net/lo/operstate":          {Data: []byte("unknown\n")},
		"sys/class/net/eth1/operstate":        {Data: []byte("down\n")},
		"sys/class/net/eth0/operstate":        {Data: []byte("up\n")},
		"sys/class/drm/card0/device/vendor":   {Data: []byte("0x8086\n")},
		"sys/class/drm/card0-HDMI-A-1/status": {Data: []byte("connected\n")},
		"sys/class/drm/card1/device/vendor":   {Data: []byte("0x10de\n")},
		"sys/class/dmi/id/sys_vendor":         {Data: []byte("Dell Inc.\n")},
	}
}

func TestCollectReadsHostTree(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, time.October, 9, 12, 0, 0, 0, time.UTC)
	provider := NewProviderFS(hostTree(), "linux", "amd64", fixedClock{now: now})

	snapshot, err := provider.Collect(context.Background())
	require.NoError(t, err)

	assert.Equal(t, domain.CPUFacts{
		Model:         "Intel(R) Xeon(R) CPU E5-2680 v4 @ 2.40GHz",
		PhysicalCores: 3,
		LogicalCores:  4,
		SpeedMHz:      2400,
	}, snapshot.CPU)
	assert.Equal(t, 63, snapshot.Memory.TotalGB)
	assert.Equal(t, domain.StorageFacts{TotalGB: 2795, Devices: 2}, snapshot.Storage)
	assert.Equal(t, domain.GPUFacts{Present: true, Vendor: "NVIDIA"}, snapshot.GPU)
	assert.Equal(t, domain.OSFacts{Platform: "linux", Distro: "Ubuntu 22.04.4 LTS", Virtualized: true}, snapshot.OS)
	assert.Equal(t, "eth0", snapshot.Network.Adapter)
	assert.Equal(t, domain.SystemFacts{Arch: "amd64", Hostname: "worker-17"}, snapshot.System)
	assert.Equal(t, now, snapshot.CollectedAt)
	assert.Equal(t, 3600*time.Second+500*time.Millisecond, snapshot.Uptime)
}

func TestCollectDetectsHypervisorFromDMI(t *testing.T) {
	t.Parallel()

	tree := fstest.MapFS{
		"proc/cpuinfo":                {Data: []byte("processor : 0\nmodel name : Virtual CPU\n")},
		"proc/meminfo":                {Data: []byte("MemTotal: 1000000 kB\n")},
		"sys/class/dmi/id/sys_vendor": {Data: []byte("QEMU\n")},
	}

	snapshot, err := NewProviderFS(tree, "linux", "arm64", nil).Collect(context.Background())
	require.NoError(t, err)

	assert.True(t, snapshot.OS.Virtualized)
	assert.Equal(t, 1, snapshot.CPU.PhysicalCores)
	assert.Equal(t, 1, snapshot.Memory.TotalGB)
	assert.False(t, snapshot.GPU.Present)
	assert.Zero(t, snapshot.Storage.Devices)
}

func TestCollectFallsBackToCoresPerPackage(t *testing.T) {
	t.Parallel()

	cpuinfo := "processor : 0\nphysical id : 0\ncpu cores : 8\n\nprocessor : 1\nphysical id : 1\ncpu cores : 8\n"
	tree := fstest.MapFS{"proc/cpuinfo": {Data: []byte(cpuinfo)}}

	snapshot, err := NewProviderFS(tree, "linux", "amd64", nil).Collect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 16, snapshot.CPU.PhysicalCores)
	assert.Equal(t, 2, snapshot.CPU.LogicalCores)
}

func TestCollectFailsWithoutProcTree(t *testing.T) {
	t.Parallel()

	_, err := NewProviderFS(fstest.MapFS{}, "linux", "amd64", nil).Collect(context.Background())
	assert.ErrorIs(t, err, domain.ErrHardwareUnavailable)
}

func TestCollectRejectsUnsupportedPlatforms(t *testing.T) {
	t.Parallel()

	_, err := NewProviderFS(hostTree(), "windows", "amd64", nil).Collect(context.Background())
	require.ErrorIs(t, err, domain.ErrHardwareUnavailable)
	assert.ErrorContains(t, err, "windows")
}

func TestCollectStopsOnCanceledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewProviderFS(hostTree(), "linux", "amd64", nil).Collect(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestParseOSReleaseWithoutPrettyName(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Alpine Linux 3.20.1", parseOSRelease([]byte("NAME='Alpine Linux'\nVERSION_ID=3.20.1\n")))
	assert.Empty(t, parseOSRelease([]byte("# comment only\n")))
}

func TestCollectPrefersRatedMaximumClock(t *testing.T) {
	t.Parallel()

	tree := hostTree()
	tree["sys/devices/system/cpu/cpu0/cpufreq/cpuinfo_max_freq"] = &fstest.MapFile{Data: []byte("3500000\n")}

	snapshot, err := NewProviderFS(tree, "linux", "amd64", nil).Collect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3500, snapshot.CPU.SpeedMHz)

	tree = fstest.MapFS{"proc/cpuinfo": {Data: []byte("processor : 0\nmodel name : ARMv8 Processor\ncpu MHz : 1800.000\n")}}
	snapshot, err = NewProviderFS(tree, "linux", "arm64", nil).Collect(context.Background())
	require.NoError(t, err)
	assert.Zero(t, snapshot.CPU.SpeedMHz)
}

func TestFrequencyScalingDoesNotChangeCachedSnapshot(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	logger, _ := test.NewNullLogger()
	now := time.Date(2025, time.October, 9, 12, 0, 0, 0, time.UTC)
	cache := application.NewChangeDetectionCache(filestore.NewStore(t.TempDir()), fixedClock{now: now}, logger)

	var reasons []string
	for _, mhz := range []string{"2399.998", "2399.998", "1200.000", "3100.452"} {
		tree := hostTree()
		tree["proc/cpuinfo"] = &fstest.MapFile{Data: []byte(strings.ReplaceAll(twoSocketCPUInfo, "2399.998", mhz))}

		snapshot, err := NewProviderFS(tree, "linux", "amd64", fixedClock{now: now}).Collect(ctx)
		require.NoError(t, err)
		reasons = append(reasons, cache.CheckForChanges(ctx, snapshot).Reason)
	}

	assert.Equal(t, "first run", reasons[0])
	for _, reason := range reasons[1:] {
		assert.Equal(t, "unchanged", reason)
	}
}

func TestCollectIgnoresVirtualInterfacesAndLinkState(t *testing.T) {
	t.Parallel()

	adapterWith := func(dockerState, enpState string) string {
		tree := hostTree()
		delete(tree, "sys/class/net/eth0/operstate")
		delete(tree, "sys/class/net/eth1/operstate")
		tree["sys/class/net/docker0/operstate"] = &fstest.MapFile{Data: []byte(dockerState + "\n")}
		tree["sys/class/net/br-5c1f/operstate"] = &fstest.MapFile{Data: []byte(dockerState + "\n")}
		tree["sys/class/net/veth12ab/operstate"] = &fstest.MapFile{Data: []byte(dockerState + "\n")}
		tree["sys/class/net/enp3s0/operstate"] = &fstest.MapFile{Data: []byte(enpState + "\n")}

		snapshot, err := NewProviderFS(tree, "linux", "amd64", nil).Collect(context.Background())
		require.NoError(t, err)
		return snapshot.Network.Adapter
	}

	assert.Equal(t, "enp3s0", adapterWith("up", "up"))
	assert.Equal(t, "enp3s0", adapterWith("down", "up"))
	assert.Equal(t, "enp3s0", adapterWith("up", "down"))
}

func TestCollectPrefersDefaultRouteInterface(t *testing.T) {
	t.Parallel()

	route := "Iface\tDestination\tGateway\tFlags\tRefCnt\tUse\tMetric\tMask\tMTU\tWindow\tIRTT\n" +
		"docker0\t00000000\t010011AC\t0003\t0\t0\t0\t00000000\t0\t0\t0\n" +
		"eth0\t0000A8C0\t00000000\t0001\t0\t0\t100\t00FFFFFF\t0\t0\t0\n" +
		"eth1\t00000000\t0101A8C0\t0003\t0\t0\t600\t00000000\t0\t0\t0\n" +
		"eth0\t00000000\t0101A8C0\t0003\t0\t0\t700\t00000000\t0\t0\t0\n"

	tree := hostTree()
	tree["proc/net/route"] = &fstest.MapFile{Data: []byte(route)}

	snapshot, err := NewProviderFS(tree, "linux", "amd64", nil).Collect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "eth1", snapshot.Network.Adapter)
}
