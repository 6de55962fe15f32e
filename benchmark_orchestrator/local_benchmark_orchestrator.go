package benchmarkorchestrator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"github.com/Octogonapus/NetBenchmark/benchmark"
	"github.com/Octogonapus/NetBenchmark/report"
	"github.com/Octogonapus/NetBenchmark/target"
	"github.com/alitto/pond"
	"github.com/google/uuid"
	"github.com/schollz/progressbar/v3"
)

const ReportFileName = "report.json"

type LocalBenchmarkOrchestratorInput struct {
	// Where every benchmark runs. A LocalTarget or an SSHTarget.
	Target target.Target

	// If set, the report is uploaded after it is written.
	Uploader report.Uploader

	// Progress output. Stderr by default.
	ProgressWriter io.Writer

	// How many times to check that the target is reachable before giving up. 1 by default.
	ReachabilityAttempts int
	ReachabilityInterval time.Duration
}

type entry struct {
	b          benchmark.Benchmark
	btype      string
	background bool
	runner     benchmark.BenchmarkRunner
	setUpErr   error

	needsTearDown bool
}

type localBenchmarkOrchestrator struct {
	input   *LocalBenchmarkOrchestratorInput
	entries []*entry
	cfg     *BenchmarkConfig
}

func NewLocalBenchmarkOrchestrator(input *LocalBenchmarkOrchestratorInput) (*localBenchmarkOrchestrator, error) {
	if input.Target == nil {
		return nil, fmt.Errorf("a target is required")
	}
	if input.ProgressWriter == nil {
		input.ProgressWriter = os.Stderr
	}
	return &localBenchmarkOrchestrator{input: input}, nil
}

func (o *localBenchmarkOrchestrator) AddBenchmark(b benchmark.Benchmark, btype string, background bool) error {
	o.entries = append(o.entries, &entry{b: b, btype: btype, background: background})
	return nil
}

func (o *localBenchmarkOrchestrator) SetUp(cfg *BenchmarkConfig) error {
	o.cfg = cfg
	if o.cfg.Runs <= 0 {
		o.cfg.Runs = 1
	}

	err := os.MkdirAll(o.cfg.ResultDir, fs.ModePerm)
	if err != nil {
		return err
	}

	err = o.waitForTargetReachable()
	if err != nil {
		return err
	}

	for _, e := range o.entries {
		runs := o.cfg.Runs
		if e.background {
			runs = 1
		}
		e.runner = benchmark.NewBenchmarkRunner(e.b, runs, o.cfg.MonitorInterval)
	}

	// Foreground benchmarks are set up right before they run since they all write to the same working directory.
	for _, e := range o.entries {
		if e.background {
			o.setUp(e)
		}
	}
	return nil
}

func (o *localBenchmarkOrchestrator) setUp(e *entry) {
	ctx := &benchmark.BenchmarkContext{Target: o.input.Target, WorkDir: o.cfg.WorkDir}
	e.setUpErr = e.runner.SetUp(ctx)
	if e.setUpErr != nil {
		slog.Error("benchmark setup failed", slog.String("benchmarkName", e.b.GetName()), slog.String("error", e.setUpErr.Error()))
		return
	}
	e.needsTearDown = true
}

func (o *localBenchmarkOrchestrator) tearDown(e *entry) error {
	if !e.needsTearDown {
		return nil
	}
	e.needsTearDown = false
	err := e.runner.TearDown()
	if err != nil {
		slog.Error("benchmark teardown failed", slog.String("benchmarkName", e.b.GetName()), slog.String("error", err.Error()))
	}
	return err
}

func (o *localBenchmarkOrchestrator) waitForTargetReachable() error {
	attempts := max(o.input.ReachabilityAttempts, 1)
	var err error
	for i := 0; i < attempts; i++ {
		var res *target.CommandResult
		res, err = o.input.Target.RunCommand(context.Background(), &target.Command{Name: "true", Timeout: 30 * time.Second})
		if err == nil && res.ExitCode == 0 && !res.TimedOut {
			return nil
		}
		if err == nil {
			err = fmt.Errorf("reachability check exited with %d", res.ExitCode)
		}
		slog.Debug("target reachability check failed", slog.Int("attempt", i), slog.String("error", err.Error()))
		if i+1 < attempts {
			time.Sleep(o.input.ReachabilityInterval)
		}
	}
	return fmt.Errorf("target is not reachable: %w", err)
}

func (o *localBenchmarkOrchestrator) run(ctx context.Context, e *entry) *report.BenchmarkReport {
	var rep *report.BenchmarkReport
	if e.setUpErr != nil {
		rep = &report.BenchmarkReport{
			Name:  e.b.GetName(),
			Input: e.b.GetInput(),
			Error: e.setUpErr.Error(),
		}
	} else {
		rep = e.runner.Run(ctx)
	}
	rep.Type = e.btype
	rep.Background = e.background
	return rep
}

func (o *localBenchmarkOrchestrator) RunBenchmarks() (*Report, error) {
	if o.cfg == nil {
		return nil, fmt.Errorf("orchestrator is not set up")
	}

	rep := &Report{
		ID:        uuid.NewString(),
		StartedAt: time.Now().UTC(),
		Config:    o.cfg,
		Reports:   make([]*report.BenchmarkReport, len(o.entries)),
	}
	ctx := context.Background()

	background := []int{}
	foreground := []int{}
	for i, e := range o.entries {
		if e.background {
			background = append(background, i)
		} else {
			foreground = append(foreground, i)
		}
	}

	var pool *pond.WorkerPool
	if len(background) > 0 {
		pool = pond.New(len(background), 0, pond.MinWorkers(len(background)))
		for _, i := range background {
			pool.Submit(func() {
				rep.Reports[i] = o.run(ctx, o.entries[i])
			})
		}
		slog.Info("started background benchmarks", slog.Int("count", len(background)), slog.Duration("startDelay", o.cfg.ServerStartDelay))
		time.Sleep(o.cfg.ServerStartDelay)
	}

	// Foreground benchmarks share the working directory, so they run one at a time.
	p := progressbar.NewOptions(len(foreground),
		progressbar.OptionSetWriter(o.input.ProgressWriter),
		progressbar.OptionSetDescription("Running benchmarks:"),
		progressbar.OptionShowCount(),
	)
	for _, i := range foreground {
		e := o.entries[i]
		o.setUp(e)
		rep.Reports[i] = o.run(ctx, e)
		err := o.tearDown(e)
		if err != nil && !rep.Reports[i].Failed() {
			rep.Reports[i].Error = err.Error()
		}
		_ = p.Add(1)
	}
	_ = p.Finish()

	if pool != nil {
		pool.StopAndWait()
	}

	for _, r := range rep.Reports {
		if r.Failed() {
			slog.Error("benchmark failed",
				slog.String("benchmark", r.Name),
				slog.String("type", r.Type),
				slog.String("error", r.Error),
			)
		}
	}

	localPath, err := report.WriteJSON(o.cfg.ResultDir, ReportFileName, rep)
	if err != nil {
		return rep, fmt.Errorf("writing report failed: %w", err)
	}
	slog.Info("wrote report", slog.String("path", localPath), slog.String("id", rep.ID))

	if o.input.Uploader != nil {
		err = o.input.Uploader.Upload(ctx, rep.ID+"/"+ReportFileName, localPath)
		if err != nil {
			return rep, err
		}
	}
	return rep, nil
}

func (o *localBenchmarkOrchestrator) TearDown() error {
	errs := []error{}
	for _, e := range o.entries {
		err := o.tearDown(e)
		if err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
