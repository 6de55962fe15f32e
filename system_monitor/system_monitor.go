package systemmonitor

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Octogonapus/NetBenchmark/report"
	"github.com/Octogonapus/NetBenchmark/target"
)

type SystemMonitor interface {
	StartMonitoring(ctx context.Context) error
	StopMonitoring()
	WaitUntilStopped()
	GetSystemMeasurements() *report.SystemMeasurements
}

type systemMonitor struct {
	target   target.Target
	interval time.Duration
	cancel   context.CancelFunc
	wg       *sync.WaitGroup
	sm       *report.SystemMeasurements
}

var DefaultInterval = 1 * time.Second
var maxJitter = 1 * time.Second

// How long a single /proc read may take before the sample is skipped.
var readTimeout = 5 * time.Second

func NewSystemMonitor(target target.Target, interval time.Duration) SystemMonitor {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &systemMonitor{
		target:   target,
		interval: interval,
		cancel:   func() {},
		wg:       &sync.WaitGroup{},
		sm:       &report.SystemMeasurements{},
	}
}

func (mon *systemMonitor) StartMonitoring(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	mon.cancel = cancel
	mon.wg.Add(1)
	go mon.runMonitor(ctx)
	return nil
}

func (mon *systemMonitor) StopMonitoring() {
	mon.cancel()
}

func (mon *systemMonitor) WaitUntilStopped() {
	mon.wg.Wait()
}

// Only valid after WaitUntilStopped returns.
func (mon *systemMonitor) GetSystemMeasurements() *report.SystemMeasurements {
	return mon.sm
}

func (mon *systemMonitor) runMonitor(ctx context.Context) {
	defer mon.wg.Done()

	var prevCPU *cpuTimeStat
	ticker := time.NewTicker(mon.interval)
	defer ticker.Stop()
	lastWakeTime := time.Now()
	for {
		jitter := time.Since(lastWakeTime) - mon.interval
		if jitter > maxJitter {
			slog.Warn("SystemMonitor: jitter exceeded maximum", slog.Int64("jitterMs", jitter.Milliseconds()), slog.Int64("maxJitterMs", maxJitter.Milliseconds()))
		}
		lastWakeTime = time.Now()

		buf := mon.readProc(ctx, "/proc/stat")
		currCPU, err := parseCPUTimeStat(buf)
		if err != nil {
			slog.Debug("SystemMonitor: skipping CPU sample", slog.String("error", err.Error()))
		}
		if prevCPU != nil && currCPU != nil {
			mon.appendCPUMetrics(time.Now(), currCPU, prevCPU)
		}
		prevCPU = currCPU

		buf = mon.readProc(ctx, "/proc/meminfo")
		if buf != nil {
			mon.appendMemoryMetrics(time.Now(), buf)
		}

		buf = mon.readProc(ctx, "/proc/net/dev")
		if buf != nil {
			mon.appendNetworkMetrics(time.Now(), buf)
		}

		select {
		case <-ctx.Done():
			slog.Debug("SystemMonitor: stopped")
			return
		case <-ticker.C:
		}
	}
}

func (mon *systemMonitor) readProc(ctx context.Context, file string) []byte {
	res, err := mon.target.RunCommand(ctx, &target.Command{Name: "cat", Args: []string{file}, Timeout: readTimeout})
	if err != nil {
		if ctx.Err() == nil {
			slog.Warn("SystemMonitor: failed to run command", slog.String("file", file), slog.String("error", err.Error()))
		}
		return nil
	}
	if res.ExitCode != 0 || res.TimedOut {
		slog.Warn("SystemMonitor: failed to read file", slog.String("file", file), slog.Int("exitCode", res.ExitCode), slog.String("output", string(res.Stderr)))
		return nil
	}
	return res.Stdout
}
