package systemmonitor

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/Octogonapus/NetBenchmark/target"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const procStat1 = `cpu  100 10 50 800 20 5 5 10 0 0
cpu0 50 5 25 400 10 2 3 5 0 0
intr 1234
`

const procStat2 = `cpu  160 10 70 900 20 5 5 30 0 0
cpu0 80 5 35 450 10 2 3 15 0 0
intr 1240
`

const procMeminfo = `MemTotal:        1000 kB
MemFree:          200 kB
MemAvailable:     600 kB
Buffers:          100 kB
Cached:           100 kB
SwapCached:         0 kB
SwapTotal:        400 kB
SwapFree:         300 kB
SReclaimable:     100 kB
HugePages_Total:    0
`

const procNetDev = `Inter-|   Receive                                                |  Transmit
 face |bytes    packets errs drop fifo frame compressed multicast|bytes    packets errs drop fifo colls carrier compressed
    lo:    1000      10    0    0    0     0          0         0     1000      10    0    0    0     0       0          0
  eth0:  500000     400    2    3    0     0          0         0   250000     300    0    0    0     0       0          0
`

type procTarget struct {
	mu    sync.Mutex
	stats []string
	calls int
}

func (p *procTarget) RunCommand(ctx context.Context, cmd *target.Command) (*target.CommandResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := ""
	switch cmd.Args[0] {
	case "/proc/stat":
		out = p.stats[p.calls%len(p.stats)]
		p.calls++
	case "/proc/meminfo":
		out = procMeminfo
	case "/proc/net/dev":
		out = procNetDev
	}
	return &target.CommandResult{Stdout: []byte(out)}, nil
}

func (p *procTarget) CopyFileTo(io.Reader, string) error { return nil }
func (p *procTarget) RemoveFile(string) error            { return nil }

func TestParseCPUTimeStat(t *testing.T) {
	ts, err := parseCPUTimeStat([]byte(procStat1))
	require.NoError(t, err)
	assert.Equal(t, 100, ts.user)
	assert.Equal(t, 800, ts.idle)
	assert.Equal(t, 10, ts.steal)
	assert.Equal(t, 1000, ts.totalCPUTime())

	_, err = parseCPUTimeStat([]byte("intr 1\n"))
	assert.Error(t, err)
	_, err = parseCPUTimeStat([]byte("cpu  1 2 3\n"))
	assert.Error(t, err)
	_, err = parseCPUTimeStat([]byte("cpu  1 2 3 x 5 6 7 8 9 10\n"))
	assert.Error(t, err)
}

func TestAppendCPUMetrics(t *testing.T) {
	mon := NewSystemMonitor(&procTarget{}, 0).(*systemMonitor)
	prev, err := parseCPUTimeStat([]byte(procStat1))
	require.NoError(t, err)
	curr, err := parseCPUTimeStat([]byte(procStat2))
	require.NoError(t, err)

	now := time.UnixMilli(42)
	mon.appendCPUMetrics(now, curr, prev)
	sm := mon.GetSystemMeasurements()
	require.Len(t, sm.CpuUsageUser, 1)
	assert.Equal(t, int64(42), sm.CpuUsageUser[0].Time)
	assert.InDelta(t, 30.0, sm.CpuUsageUser[0].Value, 1e-9)
	assert.InDelta(t, 10.0, sm.CpuUsageSystem[0].Value, 1e-9)
	assert.InDelta(t, 50.0, sm.CpuUsageIdle[0].Value, 1e-9)
	assert.InDelta(t, 10.0, sm.CpuUsageSteal[0].Value, 1e-9)

	// No elapsed ticks, no sample.
	mon.appendCPUMetrics(now, curr, curr)
	assert.Len(t, sm.CpuUsageUser, 1)
}

func TestAppendMemoryMetrics(t *testing.T) {
	mon := NewSystemMonitor(&procTarget{}, 0).(*systemMonitor)
	mon.appendMemoryMetrics(time.UnixMilli(1), []byte(procMeminfo))
	sm := mon.GetSystemMeasurements()

	require.Len(t, sm.MemUsedBytes, 1)
	assert.Equal(t, 500*1024, sm.MemUsedBytes[0].Value)
	assert.InDelta(t, 50.0, sm.MemUsedPct[0].Value, 1e-9)
	assert.Equal(t, 600*1024, sm.MemAvailBytes[0].Value)
	assert.InDelta(t, 60.0, sm.MemAvailPct[0].Value, 1e-9)
	assert.Equal(t, 100*1024, sm.SwapUsedBytes[0].Value)
	assert.InDelta(t, 25.0, sm.SwapUsedPct[0].Value, 1e-9)
}

func TestAppendMemoryMetricsNoSwap(t *testing.T) {
	mon := NewSystemMonitor(&procTarget{}, 0).(*systemMonitor)
	mon.appendMemoryMetrics(time.UnixMilli(1), []byte("MemTotal: 100 kB\nMemFree: 50 kB\n"))
	sm := mon.GetSystemMeasurements()
	require.Len(t, sm.SwapUsedPct, 1)
	assert.Equal(t, 0.0, sm.SwapUsedPct[0].Value)

	mon.appendMemoryMetrics(time.UnixMilli(2), []byte("garbage\n"))
	assert.Len(t, sm.MemUsedBytes, 1)
}

func TestParseNetDev(t *testing.T) {
	entries := parseNetDev([]byte(procNetDev))
	require.Len(t, entries, 2)
	assert.Equal(t, netDevEntry{
		iface:       "eth0",
		recvBytes:   500000,
		recvPackets: 400,
		recvErrs:    2,
		recvDrop:    3,
		sendBytes:   250000,
		sendPackets: 300,
	}, entries[1])
}

func TestMonitorCollectsSamples(t *testing.T) {
	mon := NewSystemMonitor(&procTarget{stats: []string{procStat1, procStat2}}, 10*time.Millisecond)
	require.NoError(t, mon.StartMonitoring(context.Background()))
	time.Sleep(100 * time.Millisecond)
	mon.StopMonitoring()
	mon.WaitUntilStopped()

	sm := mon.GetSystemMeasurements()
	assert.NotEmpty(t, sm.CpuUsageUser)
	assert.NotEmpty(t, sm.MemUsedBytes)
	assert.NotEmpty(t, sm.NetBytesRecv)
	assert.Equal(t, "lo", sm.NetBytesRecv[0].DeviceName)
}

func TestStopBeforeStart(t *testing.T) {
	mon := NewSystemMonitor(&procTarget{}, 0)
	mon.StopMonitoring()
	mon.WaitUntilStopped()
	assert.Empty(t, mon.GetSystemMeasurements().CpuUsageUser)
}
