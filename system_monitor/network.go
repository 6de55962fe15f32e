package systemmonitor

import (
	"strconv"
	"strings"
	"time"

	"github.com/Octogonapus/NetBenchmark/report"
)

type netDevEntry struct {
	iface       string
	recvBytes   int
	recvPackets int
	recvErrs    int
	recvDrop    int
	sendBytes   int
	sendPackets int
}

// parseNetDev reads the per-interface counters of /proc/net/dev, skipping the two header lines.
func parseNetDev(buf []byte) []netDevEntry {
	entries := []netDevEntry{}
	for _, line := range strings.Split(string(buf), "\n") {
		iface, counters, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		parts := strings.Fields(counters)
		if len(parts) != 16 {
			continue
		}
		values := make([]int, len(parts))
		valid := true
		for i, p := range parts {
			v, err := strconv.Atoi(p)
			if err != nil {
				valid = false
				break
			}
			values[i] = v
		}
		if !valid {
			continue
		}
		entries = append(entries, netDevEntry{
			iface:       strings.TrimSpace(iface),
			recvBytes:   values[0],
			recvPackets: values[1],
			recvErrs:    values[2],
			recvDrop:    values[3],
			sendBytes:   values[8],
			sendPackets: values[9],
		})
	}
	return entries
}

func (mon *systemMonitor) appendNetworkMetrics(now time.Time, buf []byte) {
	t := now.UnixMilli()
	for _, e := range parseNetDev(buf) {
		m := func(v int) report.DeviceMeasurement[int] {
			return report.DeviceMeasurement[int]{DeviceName: e.iface, Measurement: report.Measurement[int]{Time: t, Value: v}}
		}
		mon.sm.NetBytesSent = append(mon.sm.NetBytesSent, m(e.sendBytes))
		mon.sm.NetBytesRecv = append(mon.sm.NetBytesRecv, m(e.recvBytes))
		mon.sm.NetPacketsSent = append(mon.sm.NetPacketsSent, m(e.sendPackets))
		mon.sm.NetPacketsRecv = append(mon.sm.NetPacketsRecv, m(e.recvPackets))
		mon.sm.NetErrsRecv = append(mon.sm.NetErrsRecv, m(e.recvErrs))
		mon.sm.NetDropRecv = append(mon.sm.NetDropRecv, m(e.recvDrop))
	}
}
