package uperf

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"regexp"
	"time"

	"github.com/Octogonapus/NetBenchmark/benchmark"
	"github.com/Octogonapus/NetBenchmark/profile"
	"github.com/Octogonapus/NetBenchmark/target"
	"github.com/Octogonapus/NetBenchmark/util"
	"github.com/hashicorp/go-version"
	"github.com/mitchellh/mapstructure"
)

const DefaultBinary = "uperf"

// The transaction whose samples the uperf client reports by default.
const DefaultTransaction = 2

type ClientInput struct {
	Name    string
	Profile map[string]any

	// Only samples of this transaction are kept. Zero keeps all of them. Unset means the
	// benchmark type's default.
	Transaction *int

	// Added to the client's environment, for profiles parameterized through $VARIABLES.
	Env map[string]string

	// Seconds. Zero means no timeout. A client that times out has failed.
	Timeout int

	// If set, the installed uperf must be at least this version.
	MinVersion string

	Binary string
}

type client struct {
	input       *ClientInput
	mode        Mode
	transaction int
	prof        *profile.Profile
	ctx         *benchmark.BenchmarkContext
	profilePath string
}

func init() {
	benchmark.RegisterBenchmark("uperf", func(a map[string]any) (benchmark.Benchmark, error) {
		return newClientFromMap(a, SimpleMode, DefaultTransaction)
	})
	benchmark.RegisterBenchmark("iperf", func(a map[string]any) (benchmark.Benchmark, error) {
		return newClientFromMap(a, LatencyMode, 0)
	})
}

func newClientFromMap(a map[string]any, mode Mode, transaction int) (benchmark.Benchmark, error) {
	input := &ClientInput{}
	err := decodeInput(a, input)
	if err != nil {
		return nil, fmt.Errorf("can't convert input to ClientInput: %w", err)
	}
	if input.Transaction == nil {
		input.Transaction = &transaction
	}
	return NewClient(input, mode)
}

// NewClient compiles the input's profile. A malformed profile fails here, before anything runs.
func NewClient(input *ClientInput, mode Mode) (benchmark.Benchmark, error) {
	if input.Binary == "" {
		input.Binary = DefaultBinary
	}
	if input.Timeout < 0 {
		return nil, fmt.Errorf("timeout must not be negative, got %d", input.Timeout)
	}
	if input.MinVersion != "" {
		_, err := version.NewVersion(input.MinVersion)
		if err != nil {
			return nil, fmt.Errorf("bad minimum version %q: %w", input.MinVersion, err)
		}
	}
	transaction := 0
	if input.Transaction != nil {
		transaction = *input.Transaction
	}
	if transaction < 0 {
		return nil, fmt.Errorf("transaction must not be negative, got %d", transaction)
	}

	prof, err := profile.Decode(input.Profile)
	if err != nil {
		return nil, fmt.Errorf("invalid profile: %w", err)
	}

	return &client{input: input, mode: mode, transaction: transaction, prof: prof}, nil
}

func (b *client) SetUp(ctx *benchmark.BenchmarkContext) error {
	b.ctx = ctx
	b.profilePath = path.Join(workDir(ctx), profile.FileName)

	if b.input.MinVersion != "" {
		err := checkVersion(ctx.Target, b.input.Binary, b.input.MinVersion)
		if err != nil {
			return err
		}
	}

	err := profile.WriteFile(ctx.Target, b.profilePath, b.prof)
	if err != nil {
		return err
	}
	slog.Debug("wrote uperf profile", slog.String("name", b.input.Name), slog.String("path", b.profilePath))
	return nil
}

func (b *client) GetCommand() (*target.Command, error) {
	if b.ctx == nil {
		return nil, fmt.Errorf("benchmark is not set up")
	}
	return &target.Command{
		Name:    b.input.Binary,
		Args:    []string{"-vaR", "-i", "1", "-m", b.profilePath},
		Env:     b.input.Env,
		Dir:     workDir(b.ctx),
		Timeout: time.Duration(b.input.Timeout) * time.Second,
	}, nil
}

func (b *client) ParseCommandOutput(res *target.CommandResult) (*benchmark.BenchmarkOutput, error) {
	if res.TimedOut {
		return nil, &OutputError{
			Err:    ErrProcessFailure,
			Reason: fmt.Sprintf("client did not finish within %ds", b.input.Timeout),
			Output: string(res.Stdout) + "\n" + string(res.Stderr),
		}
	}
	err := CheckRun(res)
	if err != nil {
		return nil, err
	}

	result, err := Extract(res.Stdout, ExtractOptions{Mode: b.mode, Transaction: b.transaction, ProfileName: b.prof.Name})
	if err != nil {
		return nil, err
	}

	out := &benchmark.BenchmarkOutput{Result: result}
	meta := map[string]any{"profileName": result.ProfileName, "exitCode": res.ExitCode}
	if b.mode == LatencyMode {
		out.Summary = SummarizeAll(result)
		meta["transactions"] = len(result.Transactions)
	} else {
		meta["samples"] = result.Samples.Len()
	}
	out.Metadata = []any{meta}
	return out, nil
}

func (b *client) TearDown() error {
	if b.ctx == nil {
		return nil
	}
	return profile.Remove(b.ctx.Target, b.profilePath)
}

func (b *client) GetName() string {
	return b.input.Name
}

func (b *client) GetInput() map[string]any {
	return util.StructMap(b.input)
}

func workDir(ctx *benchmark.BenchmarkContext) string {
	if ctx.WorkDir == "" {
		return "."
	}
	return ctx.WorkDir
}

var versionRe = regexp.MustCompile(`\d+\.\d+(\.\d+)?`)

func checkVersion(t target.Target, binary string, minVersion string) error {
	res, err := t.RunCommand(context.Background(), &target.Command{Name: binary, Args: []string{"-V"}, Timeout: 10 * time.Second})
	if err != nil {
		return fmt.Errorf("checking %s version failed: %w", binary, err)
	}
	out := string(res.Stdout) + string(res.Stderr)
	found := versionRe.FindString(out)
	if found == "" {
		return fmt.Errorf("can't find a version in %s -V output: %q", binary, out)
	}

	installed, err := version.NewVersion(found)
	if err != nil {
		return fmt.Errorf("can't parse %s version %q: %w", binary, found, err)
	}
	want, err := version.NewVersion(minVersion)
	if err != nil {
		return fmt.Errorf("bad minimum version %q: %w", minVersion, err)
	}
	if installed.LessThan(want) {
		return fmt.Errorf("%s version %s is older than the required %s", binary, installed, want)
	}
	slog.Debug("found uperf version", slog.String("binary", binary), slog.String("version", installed.String()))
	return nil
}

func decodeInput(input map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:      out,
		ErrorUnused: true,
		DecodeHook:  profile.RejectFractionalHook,
	})
	if err != nil {
		return err
	}
	return dec.Decode(input)
}
