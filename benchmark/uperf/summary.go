package uperf

import (
	"log/slog"
	"slices"

	"github.com/HdrHistogram/hdrhistogram-go"
)

// Upper bound for recorded ns_per_op values (one minute per operation).
const maxTrackableNs = int64(60_000_000_000)

type LatencySummary struct {
	Transaction int     `json:"transaction"`
	Samples     int64   `json:"samples"` // samples with a non-zero ns_per_op
	MeanNs      float64 `json:"mean_ns"`
	P50Ns       int64   `json:"p50_ns"`
	P90Ns       int64   `json:"p90_ns"`
	P99Ns       int64   `json:"p99_ns"`
	MaxNs       int64   `json:"max_ns"`
	TotalBytes  int64   `json:"total_bytes"`
	TotalOps    int64   `json:"total_ops"`
}

func Summarize(transaction int, ts *Timeseries) *LatencySummary {
	h := hdrhistogram.New(1, maxTrackableNs, 3)
	sum := &LatencySummary{Transaction: transaction}
	for _, s := range ts.Samples() {
		sum.TotalBytes += s.Bytes
		sum.TotalOps += s.Ops
		if s.NsPerOp == nil || *s.NsPerOp <= 0 {
			continue
		}
		// Values are clamped into the histogram's range, so this only fails if that range changes.
		err := h.RecordValue(min(*s.NsPerOp, maxTrackableNs))
		if err != nil {
			slog.Debug("dropped latency sample", slog.Int64("nsPerOp", *s.NsPerOp), slog.String("error", err.Error()))
		}
	}

	sum.Samples = h.TotalCount()
	if sum.Samples == 0 {
		return sum
	}
	sum.MeanNs = h.Mean()
	sum.P50Ns = h.ValueAtQuantile(50)
	sum.P90Ns = h.ValueAtQuantile(90)
	sum.P99Ns = h.ValueAtQuantile(99)
	sum.MaxNs = h.Max()
	return sum
}

// SummarizeAll returns one summary per transaction, ordered by transaction index.
func SummarizeAll(res *RunResult) []*LatencySummary {
	txns := make([]int, 0, len(res.Transactions))
	for txn := range res.Transactions {
		txns = append(txns, txn)
	}
	slices.Sort(txns)

	out := []*LatencySummary{}
	for _, txn := range txns {
		out = append(out, Summarize(txn, res.Transactions[txn]))
	}
	return out
}
