package uperf

import (
	"context"
	"testing"
	"time"

	"github.com/Octogonapus/NetBenchmark/benchmark"
	"github.com/Octogonapus/NetBenchmark/target"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServerCommand(t *testing.T) {
	for _, btype := range []string{"uperf_server", "iperf_server"} {
		t.Run(btype, func(t *testing.T) {
			b := newTestClient(t, btype, map[string]any{"name": "srv"})
			require.NoError(t, b.SetUp(&benchmark.BenchmarkContext{Target: target.NewLocalTarget()}))

			cmd, err := b.GetCommand()
			require.NoError(t, err)
			assert.Equal(t, &target.Command{Name: "uperf", Args: []string{"-s"}, Dir: ".", Timeout: 60 * time.Second}, cmd)
			assert.Equal(t, "srv", b.GetName())
			assert.Equal(t, DefaultRunDuration, b.GetInput()["RunDuration"])
		})
	}
}

func TestServerTimeoutIsSuccess(t *testing.T) {
	b := newTestClient(t, "uperf_server", map[string]any{"name": "srv", "runduration": 5})
	require.NoError(t, b.SetUp(&benchmark.BenchmarkContext{Target: target.NewLocalTarget()}))

	out, err := b.ParseCommandOutput(&target.CommandResult{ExitCode: -1, TimedOut: true})
	require.NoError(t, err)
	assert.Equal(t, ServerResult{}, out.Result)
}

func TestServerExitIsFailure(t *testing.T) {
	b := newTestClient(t, "iperf_server", map[string]any{"name": "srv"})
	require.NoError(t, b.SetUp(&benchmark.BenchmarkContext{Target: target.NewLocalTarget()}))

	_, err := b.ParseCommandOutput(&target.CommandResult{ExitCode: 1, Stdout: []byte("bind: "), Stderr: []byte("address in use")})
	oe := requireOutputError(t, err, ErrServerExited)
	assert.ErrorIs(t, err, ErrProcessFailure)
	assert.Equal(t, "bind: address in use", oe.Output)
	assert.Contains(t, oe.Error(), "exit code 1")
}

func TestServerRejectsBadInput(t *testing.T) {
	_, err := benchmark.DeserializeBenchmark(&benchmark.SerializedBenchmark{Type: "uperf_server", Input: map[string]any{"runduration": -1}})
	assert.Error(t, err)
	_, err = benchmark.DeserializeBenchmark(&benchmark.SerializedBenchmark{Type: "uperf_server", Input: map[string]any{"port": 1}})
	assert.Error(t, err)
}

// A server killed at the end of its run duration is reported as a success by the runner.
func TestServerRunnerWithLocalTarget(t *testing.T) {
	b, err := NewServer(&ServerInput{Name: "sleeper", Binary: "sleep", RunDuration: 1})
	require.NoError(t, err)
	srv := b.(*server)

	br := benchmark.NewBenchmarkRunner(&fixedArgsServer{server: srv, args: []string{"10"}}, 1, time.Hour)
	require.NoError(t, br.SetUp(&benchmark.BenchmarkContext{Target: target.NewLocalTarget(), WorkDir: t.TempDir()}))
	rep := br.Run(context.Background())
	assert.False(t, rep.Failed(), rep.Error)
	assert.Equal(t, []any{ServerResult{}}, rep.Results)
}

// fixedArgsServer swaps the server's "-s" for args, so any long-running binary can stand in for uperf.
type fixedArgsServer struct {
	*server
	args []string
}

func (f *fixedArgsServer) GetCommand() (*target.Command, error) {
	cmd, err := f.server.GetCommand()
	if err != nil {
		return nil, err
	}
	cmd.Args = f.args
	return cmd, nil
}
