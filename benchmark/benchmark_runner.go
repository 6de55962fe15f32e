package benchmark

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Octogonapus/NetBenchmark/report"
	systemmonitor "github.com/Octogonapus/NetBenchmark/system_monitor"
)

type benchmarkRunner struct {
	b               Benchmark
	sm              systemmonitor.SystemMonitor
	ctx             *BenchmarkContext
	runs            int
	monitorInterval time.Duration
}

// Helps implement a benchmark orchestrator. Handles the system monitor and repetitions.
// Wrap each benchmark in this interface via NewBenchmarkRunner.
type BenchmarkRunner interface {
	// Set up the benchmark and supporting machinery (e.g. system monitor).
	SetUp(ctx *BenchmarkContext) error

	// Run the benchmark and supporting machinery. Failures are reported through the returned report's Error.
	Run(ctx context.Context) *report.BenchmarkReport

	// Tear down the benchmark.
	TearDown() error
}

type BenchmarkOutput struct {
	Result   any
	Summary  any // optional
	Metadata []any
}

// Errors that carry the tool output explaining them implement this interface.
type outputCarrier interface {
	CapturedOutput() string
}

func NewBenchmarkRunner(b Benchmark, runs int, monitorInterval time.Duration) BenchmarkRunner {
	return &benchmarkRunner{b: b, runs: max(runs, 1), monitorInterval: monitorInterval}
}

func (br *benchmarkRunner) SetUp(ctx *BenchmarkContext) error {
	slog.Info("starting benchmark setup", slog.String("name", br.b.GetName()))
	br.ctx = ctx
	br.sm = systemmonitor.NewSystemMonitor(ctx.Target, br.monitorInterval)

	err := br.b.SetUp(ctx)
	if err != nil {
		return fmt.Errorf("setting up benchmark failed: %w", err)
	}

	slog.Info("finished benchmark setup", slog.String("name", br.b.GetName()))
	return nil
}

func (br *benchmarkRunner) TearDown() error {
	err := br.b.TearDown()
	if err != nil {
		return fmt.Errorf("tearing down benchmark failed: %w", err)
	}
	return nil
}

func (br *benchmarkRunner) Run(ctx context.Context) *report.BenchmarkReport {
	slog.Info("starting benchmark", slog.String("name", br.b.GetName()))
	rep := &report.BenchmarkReport{Name: br.b.GetName()}
	rep.Input = br.b.GetInput()

	cmd, err := br.b.GetCommand()
	if err != nil {
		rep.Error = fmt.Errorf("getting benchmark command failed: %w", err).Error()
		return rep
	}
	slog.Debug("benchmark command", slog.String("name", br.b.GetName()), slog.String("command", cmd.String()))

	meta := map[string]string{"command": cmd.String()}
	rep.Metadata = []any{meta}

	err = br.sm.StartMonitoring(ctx)
	if err != nil {
		rep.Error = fmt.Errorf("starting SystemMonitor failed: %w", err).Error()
		return rep
	}
	defer func() {
		br.sm.StopMonitoring()
		br.sm.WaitUntilStopped()
		rep.SystemMeasurements = br.sm.GetSystemMeasurements()
	}()

	for i := range br.runs {
		res, err := br.ctx.Target.RunCommand(ctx, cmd)
		if err != nil {
			slog.Error("running benchmark command failed", slog.String("name", br.b.GetName()), slog.Int("run", i), slog.String("error", err.Error()))
			rep.Error = fmt.Errorf("running benchmark failed: %w", err).Error()
			return rep
		}
		slog.Debug(
			"running benchmark command finished",
			slog.String("name", br.b.GetName()),
			slog.Int("run", i),
			slog.Int("exitCode", res.ExitCode),
			slog.Bool("timedOut", res.TimedOut),
			slog.String("stdout", string(res.Stdout)),
			slog.String("stderr", string(res.Stderr)),
		)

		benchOut, err := br.b.ParseCommandOutput(res)
		if err != nil {
			rep.Error = fmt.Errorf("parsing benchmark output failed: %w", err).Error()
			var oc outputCarrier
			if errors.As(err, &oc) {
				rep.ErrorOutput = oc.CapturedOutput()
			}
			slog.Error("benchmark failed", slog.String("name", br.b.GetName()), slog.Int("run", i), slog.String("error", rep.Error))
			return rep
		}

		rep.Results = append(rep.Results, benchOut.Result)
		if benchOut.Summary != nil {
			rep.Summaries = append(rep.Summaries, benchOut.Summary)
		}
		rep.Metadata = append(rep.Metadata, benchOut.Metadata...)
	}

	slog.Info("finished benchmark", slog.String("name", br.b.GetName()))
	return rep
}
