package uperf

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/Octogonapus/NetBenchmark/target"
)

var (
	ErrProcessFailure  = errors.New("uperf run failed")
	ErrNoProfileMarker = errors.New("could not find profile name")
	ErrNoSamples       = errors.New("no results found")
)

// OutputError is returned for failed runs and unparseable output. Output holds the full captured text.
type OutputError struct {
	Err    error
	Reason string
	Output string
}

func (e *OutputError) Error() string {
	if e.Reason == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %s", e.Err.Error(), e.Reason)
}

func (e *OutputError) Unwrap() error {
	return e.Err
}

func (e *OutputError) CapturedOutput() string {
	return e.Output
}

var (
	profileMarkerRe = regexp.MustCompile(`running profile:(.+) \.\.\.`)
	sampleRe        = regexp.MustCompile(`timestamp_ms:([\d.]+) name:Txn(\d+) nr_bytes:(\d+) nr_ops:(\d+)`)

	failureMarkers = []string{"aborted", "WARNING: Errors detected during run"}
)

// CheckRun rejects a run whose output must not be parsed.
func CheckRun(res *target.CommandResult) error {
	if len(res.Stderr) > 0 {
		return &OutputError{
			Err:    ErrProcessFailure,
			Reason: "stderr is not empty",
			Output: string(res.Stdout) + "\n" + string(res.Stderr),
		}
	}
	for _, marker := range failureMarkers {
		if bytes.Contains(res.Stdout, []byte(marker)) {
			return &OutputError{
				Err:    ErrProcessFailure,
				Reason: fmt.Sprintf("errors found in run (%q)", marker),
				Output: string(res.Stdout),
			}
		}
	}
	return nil
}

type Mode int

const (
	// Keep every selected record as (bytes, ops) in one series.
	SimpleMode Mode = iota

	// Group records per transaction, drop leading zero-op records and compute ns_per_op.
	LatencyMode
)

type ExtractOptions struct {
	Mode Mode

	// Only records of TxnN are kept. Zero keeps every transaction.
	Transaction int

	// If set, the run marker must name this profile.
	ProfileName string
}

type Sample struct {
	TimestampMs int64  `json:"timestamp_ms"`
	Transaction int    `json:"transaction"`
	Bytes       int64  `json:"bytes"`
	Ops         int64  `json:"ops"`
	NsPerOp     *int64 `json:"ns_per_op,omitempty"` // latency mode only
}

// Timeseries maps a scaled timestamp to its sample. Keys keep the order they were first seen in.
//
// Keys are the tool's fractional millisecond reading multiplied by 1000 and truncated, which makes
// them unique integers. They are not microseconds.
type Timeseries struct {
	keys    []int64
	samples map[int64]Sample
}

func NewTimeseries() *Timeseries {
	return &Timeseries{samples: map[int64]Sample{}}
}

// Set stores the sample. A key seen before keeps its position.
func (ts *Timeseries) Set(s Sample) {
	if _, ok := ts.samples[s.TimestampMs]; !ok {
		ts.keys = append(ts.keys, s.TimestampMs)
	}
	ts.samples[s.TimestampMs] = s
}

func (ts *Timeseries) Get(key int64) (Sample, bool) {
	s, ok := ts.samples[key]
	return s, ok
}

func (ts *Timeseries) Keys() []int64 {
	return append([]int64(nil), ts.keys...)
}

// Samples returns the samples in key order.
func (ts *Timeseries) Samples() []Sample {
	out := make([]Sample, 0, len(ts.keys))
	for _, k := range ts.keys {
		out = append(out, ts.samples[k])
	}
	return out
}

func (ts *Timeseries) Len() int {
	return len(ts.keys)
}

func (ts *Timeseries) MarshalJSON() ([]byte, error) {
	buf := bytes.Buffer{}
	buf.WriteByte('{')
	for i, k := range ts.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteString(`"` + strconv.FormatInt(k, 10) + `":`)
		v, err := json.Marshal(ts.samples[k])
		if err != nil {
			return nil, err
		}
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

type RunResult struct {
	ProfileName string `json:"profile_name"`

	// Set in simple mode.
	Samples *Timeseries `json:"samples,omitempty"`

	// Set in latency mode, keyed by transaction index.
	Transactions map[int]*Timeseries `json:"transactions,omitempty"`
}

type record struct {
	timestamp   int64
	transaction int
	bytes       int64
	ops         int64
}

func parseRecords(text string, transaction int) ([]record, error) {
	matches := sampleRe.FindAllStringSubmatch(text, -1)
	records := make([]record, 0, len(matches))
	for _, m := range matches {
		txn, err := strconv.Atoi(m[2])
		if err != nil {
			return nil, fmt.Errorf("bad transaction index %q: %w", m[2], err)
		}
		if transaction != 0 && txn != transaction {
			continue
		}
		ts, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			return nil, fmt.Errorf("bad timestamp %q: %w", m[1], err)
		}
		nrBytes, err := strconv.ParseInt(m[3], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("bad byte count %q: %w", m[3], err)
		}
		nrOps, err := strconv.ParseInt(m[4], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("bad op count %q: %w", m[4], err)
		}
		records = append(records, record{
			timestamp:   int64(ts * 1000),
			transaction: txn,
			bytes:       nrBytes,
			ops:         nrOps,
		})
	}
	return records, nil
}

// Extract parses the verbose output of a uperf client run into a time series.
func Extract(raw []byte, opts ExtractOptions) (*RunResult, error) {
	text := string(raw)

	m := profileMarkerRe.FindStringSubmatch(text)
	if m == nil {
		return nil, &OutputError{Err: ErrNoProfileMarker, Output: text}
	}
	name := m[1]
	if opts.ProfileName != "" && strings.TrimSpace(name) != opts.ProfileName {
		return nil, &OutputError{
			Err:    ErrNoProfileMarker,
			Reason: fmt.Sprintf("expected profile %q, found %q", opts.ProfileName, name),
			Output: text,
		}
	}

	records, err := parseRecords(text, opts.Transaction)
	if err != nil {
		return nil, &OutputError{Err: ErrNoSamples, Reason: err.Error(), Output: text}
	}
	if len(records) == 0 {
		return nil, &OutputError{Err: ErrNoSamples, Output: text}
	}

	res := &RunResult{ProfileName: name}
	switch opts.Mode {
	case SimpleMode:
		res.Samples = NewTimeseries()
		for _, r := range records {
			res.Samples.Set(Sample{TimestampMs: r.timestamp, Transaction: r.transaction, Bytes: r.bytes, Ops: r.ops})
		}
	case LatencyMode:
		res.Transactions = latencySeries(records)
	default:
		return nil, fmt.Errorf("unknown extraction mode %d", opts.Mode)
	}
	return res, nil
}

func latencySeries(records []record) map[int]*Timeseries {
	out := map[int]*Timeseries{}
	last := map[int]int64{}
	for _, r := range records {
		prev, seen := last[r.transaction]
		if r.ops != 0 || seen {
			var nsPerOp int64
			if r.ops != 0 && seen {
				nsPerOp = 1000 * (r.timestamp - prev) / r.ops
			}
			if out[r.transaction] == nil {
				out[r.transaction] = NewTimeseries()
			}
			out[r.transaction].Set(Sample{
				TimestampMs: r.timestamp,
				Transaction: r.transaction,
				Bytes:       r.bytes,
				Ops:         r.ops,
				NsPerOp:     &nsPerOp,
			})
		}
		last[r.transaction] = r.timestamp
	}
	return out
}
