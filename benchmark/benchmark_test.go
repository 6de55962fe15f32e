package benchmark

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/Octogonapus/NetBenchmark/target"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTarget struct {
	mu   sync.Mutex
	cmds []*target.Command
	res  *target.CommandResult
	err  error
}

func (f *fakeTarget) RunCommand(ctx context.Context, cmd *target.Command) (*target.CommandResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if cmd.Name == "cat" {
		return &target.CommandResult{}, nil
	}
	f.cmds = append(f.cmds, cmd)
	return f.res, f.err
}

func (f *fakeTarget) CopyFileTo(io.Reader, string) error { return nil }
func (f *fakeTarget) RemoveFile(string) error            { return nil }

type capturedErr struct{ output string }

func (e *capturedErr) Error() string          { return "tool failed" }
func (e *capturedErr) CapturedOutput() string { return e.output }

type fakeBenchmark struct {
	setUp    bool
	tornDown bool
	parseErr error
}

func (b *fakeBenchmark) SetUp(*BenchmarkContext) error { b.setUp = true; return nil }
func (b *fakeBenchmark) GetCommand() (*target.Command, error) {
	return &target.Command{Name: "tool", Args: []string{"-x"}}, nil
}
func (b *fakeBenchmark) ParseCommandOutput(res *target.CommandResult) (*BenchmarkOutput, error) {
	if b.parseErr != nil {
		return nil, fmt.Errorf("parse: %w", b.parseErr)
	}
	return &BenchmarkOutput{Result: string(res.Stdout), Summary: len(res.Stdout)}, nil
}
func (b *fakeBenchmark) TearDown() error          { b.tornDown = true; return nil }
func (b *fakeBenchmark) GetName() string          { return "fake" }
func (b *fakeBenchmark) GetInput() map[string]any { return map[string]any{"k": "v"} }

func init() {
	RegisterBenchmark("fake", func(input map[string]any) (Benchmark, error) {
		if input["fail"] == true {
			return nil, errors.New("bad input")
		}
		return &fakeBenchmark{}, nil
	})
}

func TestDeserializeBenchmark(t *testing.T) {
	b, err := DeserializeBenchmark(&SerializedBenchmark{Type: "fake"})
	require.NoError(t, err)
	assert.Equal(t, "fake", b.GetName())

	_, err = DeserializeBenchmark(&SerializedBenchmark{Type: "fake", Input: map[string]any{"fail": true}})
	assert.EqualError(t, err, "bad input")

	_, err = DeserializeBenchmark(&SerializedBenchmark{Type: "nope"})
	assert.ErrorContains(t, err, `unknown benchmark type: "nope"`)
	assert.Contains(t, RegisteredTypes(), "fake")
}

func TestParseBenchmarkFile(t *testing.T) {
	bf, err := ParseBenchmarkFile([]byte(`
- type: fake
  background: true
  input:
    name: server
- type: fake
`))
	require.NoError(t, err)
	require.Len(t, bf, 2)
	assert.True(t, bf[0].Background)
	assert.Equal(t, "server", bf[0].Input["name"])
	assert.NotNil(t, bf[1].Input)

	bf, err = ParseBenchmarkFile([]byte(`[{"type": "fake", "input": {"name": "json"}}]`))
	require.NoError(t, err)
	assert.Equal(t, "json", bf[0].Input["name"])

	for _, data := range []string{"[]", "- input: {}", "- type: nope", "{not a list"} {
		_, err := ParseBenchmarkFile([]byte(data))
		assert.Error(t, err, data)
	}
}

func TestRunnerRun(t *testing.T) {
	tgt := &fakeTarget{res: &target.CommandResult{Stdout: []byte("out")}}
	b := &fakeBenchmark{}
	br := NewBenchmarkRunner(b, 3, time.Hour)
	require.NoError(t, br.SetUp(&BenchmarkContext{Target: tgt, WorkDir: t.TempDir()}))
	assert.True(t, b.setUp)

	rep := br.Run(context.Background())
	assert.False(t, rep.Failed(), rep.Error)
	assert.Equal(t, "fake", rep.Name)
	assert.Equal(t, []any{"out", "out", "out"}, rep.Results)
	assert.Equal(t, []any{3, 3, 3}, rep.Summaries)
	assert.Equal(t, map[string]string{"command": "tool -x"}, rep.Metadata[0])
	assert.NotNil(t, rep.SystemMeasurements)
	assert.Len(t, tgt.cmds, 3)

	require.NoError(t, br.TearDown())
	assert.True(t, b.tornDown)
}

func TestRunnerParseFailureKeepsOutput(t *testing.T) {
	tgt := &fakeTarget{res: &target.CommandResult{Stdout: []byte("out")}}
	br := NewBenchmarkRunner(&fakeBenchmark{parseErr: &capturedErr{output: "full log"}}, 2, time.Hour)
	require.NoError(t, br.SetUp(&BenchmarkContext{Target: tgt}))

	rep := br.Run(context.Background())
	assert.True(t, rep.Failed())
	assert.Contains(t, rep.Error, "tool failed")
	assert.Equal(t, "full log", rep.ErrorOutput)
	assert.Empty(t, rep.Results)
	assert.Len(t, tgt.cmds, 1)
}

func TestRunnerCommandError(t *testing.T) {
	tgt := &fakeTarget{err: &target.LaunchError{Binary: "tool", Err: errors.New("not found")}}
	br := NewBenchmarkRunner(&fakeBenchmark{}, 1, time.Hour)
	require.NoError(t, br.SetUp(&BenchmarkContext{Target: tgt}))

	rep := br.Run(context.Background())
	assert.True(t, rep.Failed())
	assert.Contains(t, rep.Error, "running benchmark failed")
	assert.Empty(t, rep.ErrorOutput)
}
