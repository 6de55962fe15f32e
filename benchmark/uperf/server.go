package uperf

import (
	"fmt"
	"time"

	"github.com/Octogonapus/NetBenchmark/benchmark"
	"github.com/Octogonapus/NetBenchmark/target"
	"github.com/Octogonapus/NetBenchmark/util"
)

// Seconds a passive server runs for when the input does not say.
const DefaultRunDuration = 60

// A server that exits before its run duration is a process failure.
var ErrServerExited = fmt.Errorf("%w: server exited on its own", ErrProcessFailure)

type ServerInput struct {
	Name string

	// Seconds the server runs before it is killed. Being killed is the expected outcome.
	RunDuration int

	Env    map[string]string
	Binary string
}

// A passive server produces no measurements.
type ServerResult struct{}

type server struct {
	input *ServerInput
	ctx   *benchmark.BenchmarkContext
}

func init() {
	for _, btype := range []string{"uperf_server", "iperf_server"} {
		benchmark.RegisterBenchmark(btype, func(a map[string]any) (benchmark.Benchmark, error) {
			input := &ServerInput{}
			err := decodeInput(a, input)
			if err != nil {
				return nil, fmt.Errorf("can't convert input to ServerInput: %w", err)
			}
			return NewServer(input)
		})
	}
}

func NewServer(input *ServerInput) (benchmark.Benchmark, error) {
	if input.Binary == "" {
		input.Binary = DefaultBinary
	}
	if input.RunDuration == 0 {
		input.RunDuration = DefaultRunDuration
	}
	if input.RunDuration < 0 {
		return nil, fmt.Errorf("run duration must be positive, got %d", input.RunDuration)
	}
	return &server{input: input}, nil
}

func (b *server) SetUp(ctx *benchmark.BenchmarkContext) error {
	b.ctx = ctx
	return nil
}

func (b *server) GetCommand() (*target.Command, error) {
	if b.ctx == nil {
		return nil, fmt.Errorf("benchmark is not set up")
	}
	return &target.Command{
		Name:    b.input.Binary,
		Args:    []string{"-s"},
		Env:     b.input.Env,
		Dir:     workDir(b.ctx),
		Timeout: time.Duration(b.input.RunDuration) * time.Second,
	}, nil
}

func (b *server) ParseCommandOutput(res *target.CommandResult) (*benchmark.BenchmarkOutput, error) {
	if res.TimedOut {
		return &benchmark.BenchmarkOutput{Result: ServerResult{}}, nil
	}
	return nil, &OutputError{
		Err:    ErrServerExited,
		Reason: fmt.Sprintf("exit code %d", res.ExitCode),
		Output: string(res.Stdout) + string(res.Stderr),
	}
}

func (b *server) TearDown() error {
	return nil
}

func (b *server) GetName() string {
	return b.input.Name
}

func (b *server) GetInput() map[string]any {
	return util.StructMap(b.input)
}
