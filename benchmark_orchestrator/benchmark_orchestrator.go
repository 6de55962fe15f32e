package benchmarkorchestrator

import (
	"time"

	"github.com/Octogonapus/NetBenchmark/benchmark"
	"github.com/Octogonapus/NetBenchmark/report"
)

type BenchmarkConfig struct {
	// Where report.json is written.
	ResultDir string

	// Working directory on the target, shared by all benchmarks.
	WorkDir string

	// Number of times to run each foreground benchmark. 1 by default.
	Runs int

	// How long background benchmarks get to start before the foreground benchmarks run.
	ServerStartDelay time.Duration

	MonitorInterval time.Duration

	// Human readable description of where the benchmarks ran. Only included in the report.
	TargetDesc string
}

type Report struct {
	ID        string
	StartedAt time.Time
	Config    *BenchmarkConfig
	Reports   []*report.BenchmarkReport
}

// Runs benchmarks on a target.
type BenchmarkOrchestrator interface {
	// Add a benchmark to be ran later. Background benchmarks run concurrently with everything else.
	AddBenchmark(b benchmark.Benchmark, btype string, background bool) error

	// Set up the environment and every benchmark.
	SetUp(*BenchmarkConfig) error

	// Run benchmarks and return a report.
	RunBenchmarks() (*Report, error)

	// Tear down every benchmark.
	TearDown() error
}
