package systemmonitor

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Octogonapus/NetBenchmark/report"
)

type cpuTimeStat struct {
	user      int
	nice      int
	system    int
	idle      int
	iowait    int
	irq       int
	softIrq   int
	steal     int
	guest     int
	guestNice int
}

// guest and guestNice are already part of user and nice.
func (ts *cpuTimeStat) totalCPUTime() int {
	return ts.user + ts.system + ts.nice + ts.iowait + ts.irq + ts.softIrq + ts.steal + ts.idle
}

// parseCPUTimeStat reads the aggregate "cpu " line of /proc/stat.
func parseCPUTimeStat(buf []byte) (*cpuTimeStat, error) {
	for _, line := range strings.Split(string(buf), "\n") {
		if !strings.HasPrefix(line, "cpu ") {
			continue
		}

		parts := strings.Fields(line)[1:]
		if len(parts) < 10 {
			return nil, fmt.Errorf("cpu line has %d fields, want 10", len(parts))
		}
		values := make([]int, 10)
		for i := range values {
			v, err := strconv.Atoi(parts[i])
			if err != nil {
				return nil, fmt.Errorf("parsing cpu field %d failed: %w", i, err)
			}
			values[i] = v
		}
		return &cpuTimeStat{
			user:      values[0],
			nice:      values[1],
			system:    values[2],
			idle:      values[3],
			iowait:    values[4],
			irq:       values[5],
			softIrq:   values[6],
			steal:     values[7],
			guest:     values[8],
			guestNice: values[9],
		}, nil
	}
	return nil, fmt.Errorf("no cpu line")
}

func (mon *systemMonitor) appendCPUMetrics(now time.Time, curr *cpuTimeStat, prev *cpuTimeStat) {
	delta := float64(curr.totalCPUTime() - prev.totalCPUTime())
	if delta <= 0 {
		return
	}

	series := []struct {
		dst   *[]report.Measurement[float64]
		ticks int
	}{
		{&mon.sm.CpuUsageUser, (curr.user - prev.user) - (curr.guest - prev.guest)},
		{&mon.sm.CpuUsageSystem, curr.system - prev.system},
		{&mon.sm.CpuUsageIdle, curr.idle - prev.idle},
		{&mon.sm.CpuUsageNice, (curr.nice - prev.nice) - (curr.guestNice - prev.guestNice)},
		{&mon.sm.CpuUsageIowait, curr.iowait - prev.iowait},
		{&mon.sm.CpuUsageIrq, curr.irq - prev.irq},
		{&mon.sm.CpuUsageSoftIrq, curr.softIrq - prev.softIrq},
		{&mon.sm.CpuUsageSteal, curr.steal - prev.steal},
		{&mon.sm.CpuUsageGuest, curr.guest - prev.guest},
		{&mon.sm.CpuUsageGuestNice, curr.guestNice - prev.guestNice},
	}
	for _, s := range series {
		*s.dst = append(*s.dst, report.Measurement[float64]{
			Time:  now.UnixMilli(),
			Value: 100 * float64(s.ticks) / delta,
		})
	}
}
