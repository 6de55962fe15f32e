package report

type Measurement[T any] struct {
	Time  int64
	Value T
}

type DeviceMeasurement[T any] struct {
	DeviceName  string
	Measurement Measurement[T]
}

type SystemMeasurements struct {
	CpuUsageUser      []Measurement[float64]
	CpuUsageSystem    []Measurement[float64]
	CpuUsageIdle      []Measurement[float64]
	CpuUsageNice      []Measurement[float64]
	CpuUsageIowait    []Measurement[float64]
	CpuUsageIrq       []Measurement[float64]
	CpuUsageSoftIrq   []Measurement[float64]
	CpuUsageSteal     []Measurement[float64]
	CpuUsageGuest     []Measurement[float64]
	CpuUsageGuestNice []Measurement[float64]

	MemUsedBytes  []Measurement[int]
	MemUsedPct    []Measurement[float64]
	MemAvailBytes []Measurement[int]
	MemAvailPct   []Measurement[float64]
	SwapUsedBytes []Measurement[int]
	SwapUsedPct   []Measurement[float64]

	NetBytesSent   []DeviceMeasurement[int]
	NetBytesRecv   []DeviceMeasurement[int]
	NetPacketsSent []DeviceMeasurement[int]
	NetPacketsRecv []DeviceMeasurement[int]
	NetErrsRecv    []DeviceMeasurement[int]
	NetDropRecv    []DeviceMeasurement[int]
}

type BenchmarkReport struct {
	Name        string
	Type        string
	Background  bool
	Metadata    []any // one entry for each repetition, after the command entry
	Input       map[string]any
	Error       string // non-empty iff the benchmark failed
	ErrorOutput string // the captured tool output that explains Error, if any
	Results     []any  // one entry for each repetition
	// Per-run latency summaries, if the benchmark computes them.
	Summaries          []any
	SystemMeasurements *SystemMeasurements
}

func (r *BenchmarkReport) Failed() bool {
	return r.Error != ""
}
