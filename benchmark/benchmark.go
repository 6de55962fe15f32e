package benchmark

import (
	"fmt"
	"slices"
	"strings"

	"github.com/Octogonapus/NetBenchmark/target"
)

type BenchmarkContext struct {
	Target target.Target

	// Directory on the target that holds generated files such as the workload profile.
	// Benchmarks sharing a WorkDir must not run concurrently.
	WorkDir string
}

type Benchmark interface {
	// Set up the benchmark. Input is validated and generated files are written here so that
	// malformed input fails before any process is spawned.
	SetUp(*BenchmarkContext) error

	// Return the command to run the benchmark.
	GetCommand() (*target.Command, error)

	// Parse the entire result of running the benchmark command.
	ParseCommandOutput(res *target.CommandResult) (*BenchmarkOutput, error)

	// Remove anything SetUp left on the target.
	TearDown() error

	// A human-friendly name the user can set for this benchmark. Only used for debugging/printing.
	GetName() string

	// Any input given to this benchmark by the user. Included in the benchmark's report. Not used for anything else.
	GetInput() map[string]any
}

type BenchmarkType string

type benchmarkFactory func(map[string]any) (Benchmark, error)

var benchmarks map[BenchmarkType]benchmarkFactory

// All benchmarks must register themselves at module load time so that deserialization can create a benchmark of that type.
func RegisterBenchmark(btype string, f benchmarkFactory) {
	if benchmarks == nil {
		benchmarks = map[BenchmarkType]benchmarkFactory{}
	}
	benchmarks[BenchmarkType(btype)] = f
}

// RegisteredTypes returns the registered benchmark types in sorted order.
func RegisteredTypes() []string {
	types := make([]string, 0, len(benchmarks))
	for t := range benchmarks {
		types = append(types, string(t))
	}
	slices.Sort(types)
	return types
}

type SerializedBenchmark struct {
	Type  BenchmarkType  `yaml:"type" json:"type"`
	Input map[string]any `yaml:"input" json:"input"`

	// Background benchmarks (e.g. passive servers) run concurrently with the foreground benchmarks.
	Background bool `yaml:"background" json:"background"`
}

type BenchmarkFile []SerializedBenchmark

func DeserializeBenchmark(sb *SerializedBenchmark) (Benchmark, error) {
	f, ok := benchmarks[sb.Type]
	if !ok {
		return nil, fmt.Errorf("unknown benchmark type: %q (known types: %s)", sb.Type, strings.Join(RegisteredTypes(), ", "))
	}

	return f(sb.Input)
}
