package systemmonitor

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/Octogonapus/NetBenchmark/report"
)

// parseMeminfo returns /proc/meminfo values in bytes, keyed by field name.
func parseMeminfo(buf []byte) map[string]int {
	out := map[string]int{}
	for _, line := range strings.Split(string(buf), "\n") {
		key, rest, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		parts := strings.Fields(rest)
		if len(parts) == 0 {
			continue
		}
		value, err := strconv.Atoi(parts[0])
		if err != nil {
			continue
		}
		if len(parts) > 1 && parts[1] == "kB" {
			value *= 1024
		}
		out[key] = value
	}
	return out
}

func (mon *systemMonitor) appendMemoryMetrics(now time.Time, buf []byte) {
	info := parseMeminfo(buf)
	total := info["MemTotal"]
	if total == 0 {
		return
	}
	cached := info["Cached"] + info["SReclaimable"]
	used := total - info["MemFree"] - info["Buffers"] - cached
	available := info["MemAvailable"]
	swapUsed := info["SwapTotal"] - info["SwapFree"] - info["SwapCached"]
	swapUsedPct := 100 * float64(swapUsed) / float64(info["SwapTotal"])
	if math.IsNaN(swapUsedPct) || math.IsInf(swapUsedPct, 0) {
		swapUsedPct = 0
	}

	t := now.UnixMilli()
	mon.sm.MemUsedBytes = append(mon.sm.MemUsedBytes, report.Measurement[int]{Time: t, Value: used})
	mon.sm.MemUsedPct = append(mon.sm.MemUsedPct, report.Measurement[float64]{Time: t, Value: 100 * float64(used) / float64(total)})
	mon.sm.MemAvailBytes = append(mon.sm.MemAvailBytes, report.Measurement[int]{Time: t, Value: available})
	mon.sm.MemAvailPct = append(mon.sm.MemAvailPct, report.Measurement[float64]{Time: t, Value: 100 * float64(available) / float64(total)})
	mon.sm.SwapUsedBytes = append(mon.sm.SwapUsedBytes, report.Measurement[int]{Time: t, Value: swapUsed})
	mon.sm.SwapUsedPct = append(mon.sm.SwapUsedPct, report.Measurement[float64]{Time: t, Value: swapUsedPct})
}
