package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/Octogonapus/NetBenchmark/benchmark"
	_ "github.com/Octogonapus/NetBenchmark/benchmark/uperf"
	benchmarkorchestrator "github.com/Octogonapus/NetBenchmark/benchmark_orchestrator"
	"github.com/Octogonapus/NetBenchmark/profile"
	"github.com/Octogonapus/NetBenchmark/report"
	"github.com/Octogonapus/NetBenchmark/target"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/joho/godotenv"
)

type benchmarkFiles []string

func (bfs *benchmarkFiles) String() string {
	return strings.Join(*bfs, ",")
}

func (bfs *benchmarkFiles) Set(value string) error {
	*bfs = append(*bfs, value)
	return nil
}

func main() {
	bfiles := benchmarkFiles{}
	flag.Var(&bfiles, "benchmark-file", fmt.Sprintf("A YAML or JSON file listing benchmarks. Can be used multiple times; all benchmarks will be loaded. At least one is required. Benchmark types: %s. Profile flowop types: %s.", strings.Join(benchmark.RegisteredTypes(), ", "), profile.ExplainFlowOps()))
	workDir := flag.String("work-dir", ".", "The working directory on the target. Generated profiles are written here.")
	resultDir := flag.String("result-dir", "results", "Save the report into this directory.")
	runs := flag.Int("runs", 1, "How many times to run each foreground benchmark.")
	sshHost := flag.String("ssh-host", "", "Run benchmarks on this host over SSH instead of locally.")
	sshUser := flag.String("ssh-user", "root", "The SSH user.")
	sshPort := flag.Int("ssh-port", 22, "The SSH port.")
	sshKey := flag.String("ssh-key", "", "Path to the SSH private key. Required with -ssh-host.")
	envFile := flag.String("env-file", "", "Load environment variables from this file before anything else.")
	reportBucket := flag.String("report-bucket", "", "If set, upload the report to this S3 bucket.")
	reportPrefix := flag.String("report-prefix", "net-benchmarks/", "Key prefix for uploaded reports.")
	serverStartDelay := flag.Duration("server-start-delay", 2*time.Second, "How long background benchmarks (servers) get to start before the other benchmarks run.")
	monitorInterval := flag.Duration("monitor-interval", time.Second, "How often to sample system measurements on the target.")
	logLevel := flag.String("log-level", "info", "One of: debug, info, warn, error.")
	flag.Parse()

	level := slog.LevelInfo
	err := level.UnmarshalText([]byte(*logLevel))
	if err != nil {
		panic(fmt.Errorf("bad log-level: %w", err))
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	if *envFile != "" {
		err = godotenv.Load(*envFile)
		if err != nil {
			panic(fmt.Errorf("loading env file failed: %w", err))
		}
	}

	if len(bfiles) == 0 {
		panic(fmt.Errorf("benchmark-file is a required flag"))
	}

	var tgt target.Target
	targetDesc := "local"
	if *sshHost != "" {
		if *sshKey == "" {
			panic(fmt.Errorf("ssh-key is required with ssh-host"))
		}
		tgt, err = target.NewSSHTarget(*sshUser, *sshHost, *sshPort, *sshKey)
		if err != nil {
			panic(err)
		}
		targetDesc = fmt.Sprintf("%s@%s:%d", *sshUser, *sshHost, *sshPort)
	} else {
		tgt = target.NewLocalTarget()
	}

	var uploader report.Uploader
	if *reportBucket != "" {
		cfg, err := config.LoadDefaultConfig(context.Background())
		if err != nil {
			panic(err)
		}
		uploader = report.NewS3Uploader(&report.S3UploaderInput{
			AwsConfig: cfg,
			Bucket:    *reportBucket,
			Prefix:    *reportPrefix,
		})
	}

	orch, err := benchmarkorchestrator.NewLocalBenchmarkOrchestrator(&benchmarkorchestrator.LocalBenchmarkOrchestratorInput{
		Target:               tgt,
		Uploader:             uploader,
		ReachabilityAttempts: 3,
		ReachabilityInterval: 10 * time.Second,
	})
	if err != nil {
		panic(err)
	}

	for _, bf := range bfiles {
		benchmarks, err := benchmark.LoadBenchmarkFile(bf)
		if err != nil {
			panic(err)
		}
		for _, sb := range benchmarks {
			b, err := benchmark.DeserializeBenchmark(&sb)
			if err != nil {
				panic(fmt.Errorf("%s: %w", bf, err))
			}
			err = orch.AddBenchmark(b, string(sb.Type), sb.Background)
			if err != nil {
				panic(err)
			}
		}
	}

	err = orch.SetUp(&benchmarkorchestrator.BenchmarkConfig{
		ResultDir:        *resultDir,
		WorkDir:          *workDir,
		Runs:             *runs,
		ServerStartDelay: *serverStartDelay,
		MonitorInterval:  *monitorInterval,
		TargetDesc:       targetDesc,
	})
	defer orch.TearDown()
	if err != nil {
		panic(err)
	}

	rep, err := orch.RunBenchmarks()
	if err != nil {
		panic(err)
	}

	failed := 0
	for _, r := range rep.Reports {
		if r.Failed() {
			failed++
		}
	}
	slog.Info("finished", slog.String("id", rep.ID), slog.Int("benchmarks", len(rep.Reports)), slog.Int("failed", failed))
}
