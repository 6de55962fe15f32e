package profile

import (
	"fmt"
	"slices"
)

type FlowOpType string

const (
	Connect    FlowOpType = "connect"
	Accept     FlowOpType = "accept"
	Disconnect FlowOpType = "disconnect"
	Read       FlowOpType = "read"
	Write      FlowOpType = "write"
	Recv       FlowOpType = "recv"
	SendTo     FlowOpType = "sendto"
	SendFile   FlowOpType = "sendfile"
	SendFileV  FlowOpType = "sendfilev"
	NOP        FlowOpType = "NOP"
	Think      FlowOpType = "think"
)

type Protocol string

const (
	TCP   Protocol = "tcp"
	UDP   Protocol = "udp"
	SSL   Protocol = "ssl"
	SCTP  Protocol = "sctp"
	VSOCK Protocol = "vsock"
)

var allProtocols = []Protocol{TCP, UDP, SSL, SCTP, VSOCK}

type ThinkMode string

const (
	Idle ThinkMode = "idle"
	Busy ThinkMode = "busy"
)

const (
	DefaultRemoteHost = "127.0.0.1"
	DefaultSizeKiB    = 64
	DefaultDirectory  = "./files"
)

// FlowOp is one typed action in a transaction. The set of implementations is closed; see
// Options for how each one renders.
type FlowOp interface {
	FlowOpType() FlowOpType
	validate() error
}

// Common holds the options every flowop accepts.
type Common struct {
	// The number of times this flowop is executed.
	Count *int `mapstructure:"count"`
	// Experimental in uperf: run this flowop at the given rate for the transaction's iterations or duration.
	Rate *int `mapstructure:"rate"`
}

func (c *Common) validate() error {
	if err := positive("count", c.Count); err != nil {
		return err
	}
	return positive("rate", c.Rate)
}

// ConnectionFlowOp opens (connect) or accepts (accept) a connection.
type ConnectionFlowOp struct {
	Kind   FlowOpType `mapstructure:"type"`
	Common `mapstructure:",squash"`

	RemoteHost string   `mapstructure:"remotehost"`
	Protocol   Protocol `mapstructure:"protocol"`
	TCPNoDelay bool     `mapstructure:"tcp_nodelay"`
	// SO_SNDBUF / SO_RCVBUF size.
	WindowSizeKiB *int `mapstructure:"wndsz"`
	// The OpenSSL engine, only meaningful for ssl.
	SSLEngine *string `mapstructure:"engine"`
}

// DataFlowOp moves a message over an open connection: read, write, recv or sendto.
type DataFlowOp struct {
	Kind   FlowOpType `mapstructure:"type"`
	Common `mapstructure:",squash"`

	// Message size, or the minimum when RandomSizeMaxKiB is set.
	SizeKiB          int  `mapstructure:"size"`
	RandomSizeMaxKiB *int `mapstructure:"randsize_max"`
	// Size used by the server side for asymmetrical messages.
	ReceiveSizeKiB *int `mapstructure:"rsize"`
	// A failure of this flowop doesn't abort the run (e.g. UDP drops).
	CanFail     bool    `mapstructure:"canfail"`
	NonBlocking bool    `mapstructure:"non_blocking"`
	PollTimeout *string `mapstructure:"poll_timeout"`
	// Thread private connection name.
	ConnectionID *int `mapstructure:"conn"`
}

// FileFlowOp transfers files with sendfile or sendfilev.
type FileFlowOp struct {
	Kind   FlowOpType `mapstructure:"type"`
	Common `mapstructure:",squash"`

	// Searched recursively for readable files.
	Directory string `mapstructure:"dir"`
	// Files per sendfilev call.
	FileCount int `mapstructure:"nfiles"`
	// Only used when FileCount is 1.
	ChunkSizeKiB *int `mapstructure:"size"`
}

type DisconnectFlowOp struct {
	Common `mapstructure:",squash"`

	ConnectionID *int `mapstructure:"conn"`
}

type NOPFlowOp struct {
	Common `mapstructure:",squash"`
}

// ThinkFlowOp idles the thread or spins the CPU.
type ThinkFlowOp struct {
	Common `mapstructure:",squash"`

	Mode     ThinkMode `mapstructure:"think_type"`
	Duration *string   `mapstructure:"duration"`
}

func (op *ConnectionFlowOp) FlowOpType() FlowOpType { return op.Kind }
func (op *DataFlowOp) FlowOpType() FlowOpType       { return op.Kind }
func (op *FileFlowOp) FlowOpType() FlowOpType       { return op.Kind }
func (op *DisconnectFlowOp) FlowOpType() FlowOpType { return Disconnect }
func (op *NOPFlowOp) FlowOpType() FlowOpType        { return NOP }
func (op *ThinkFlowOp) FlowOpType() FlowOpType      { return Think }

func NewConnect(remoteHost string, protocol Protocol) *ConnectionFlowOp {
	return &ConnectionFlowOp{Kind: Connect, RemoteHost: remoteHost, Protocol: protocol}
}

func NewAccept(remoteHost string, protocol Protocol) *ConnectionFlowOp {
	return &ConnectionFlowOp{Kind: Accept, RemoteHost: remoteHost, Protocol: protocol}
}

func newData(kind FlowOpType, sizeKiB int) *DataFlowOp {
	return &DataFlowOp{Kind: kind, SizeKiB: sizeKiB}
}

func NewRead(sizeKiB int) *DataFlowOp   { return newData(Read, sizeKiB) }
func NewWrite(sizeKiB int) *DataFlowOp  { return newData(Write, sizeKiB) }
func NewRecv(sizeKiB int) *DataFlowOp   { return newData(Recv, sizeKiB) }
func NewSendTo(sizeKiB int) *DataFlowOp { return newData(SendTo, sizeKiB) }

func NewSendFile(dir string) *FileFlowOp {
	return &FileFlowOp{Kind: SendFile, Directory: dir, FileCount: 1}
}

func NewSendFileV(dir string, nfiles int) *FileFlowOp {
	return &FileFlowOp{Kind: SendFileV, Directory: dir, FileCount: nfiles}
}

func NewDisconnect() *DisconnectFlowOp { return &DisconnectFlowOp{} }

func NewNOP() *NOPFlowOp { return &NOPFlowOp{} }

func NewThink(mode ThinkMode, duration *string) *ThinkFlowOp {
	return &ThinkFlowOp{Mode: mode, Duration: duration}
}

// Returned by validate on a nil variant pointer.
var errNilFlowOp = NewValidation("flowops", "flowop is nil")

func (op *ConnectionFlowOp) validate() error {
	if op == nil {
		return errNilFlowOp
	}
	if op.Kind != Connect && op.Kind != Accept {
		return NewValidation("type", fmt.Sprintf("%q is not a connection flowop", op.Kind))
	}
	if op.RemoteHost == "" {
		return NewValidation("remotehost", "remotehost is empty")
	}
	if !slices.Contains(allProtocols, op.Protocol) {
		return NewValidation("protocol", fmt.Sprintf("unknown protocol: %q", op.Protocol))
	}
	return op.Common.validate()
}

func (op *DataFlowOp) validate() error {
	if op == nil {
		return errNilFlowOp
	}
	switch op.Kind {
	case Read, Write, Recv, SendTo:
	default:
		return NewValidation("type", fmt.Sprintf("%q is not a data flowop", op.Kind))
	}
	if op.SizeKiB < 0 {
		return NewValidation("size", fmt.Sprintf("size can't be negative, got %d", op.SizeKiB))
	}
	if op.RandomSizeMaxKiB != nil && *op.RandomSizeMaxKiB < op.SizeKiB {
		return NewValidation("randsize_max", fmt.Sprintf("randsize_max %d is smaller than size %d", *op.RandomSizeMaxKiB, op.SizeKiB))
	}
	return op.Common.validate()
}

func (op *FileFlowOp) validate() error {
	if op == nil {
		return errNilFlowOp
	}
	if op.Kind != SendFile && op.Kind != SendFileV {
		return NewValidation("type", fmt.Sprintf("%q is not a file flowop", op.Kind))
	}
	if op.Directory == "" {
		return NewValidation("dir", "dir is empty")
	}
	if op.FileCount <= 0 {
		return NewValidation("nfiles", fmt.Sprintf("nfiles must be positive, got %d", op.FileCount))
	}
	return op.Common.validate()
}

func (op *DisconnectFlowOp) validate() error {
	if op == nil {
		return errNilFlowOp
	}
	return op.Common.validate()
}

func (op *NOPFlowOp) validate() error {
	if op == nil {
		return errNilFlowOp
	}
	return op.Common.validate()
}

func (op *ThinkFlowOp) validate() error {
	if op == nil {
		return errNilFlowOp
	}
	if op.Mode != Idle && op.Mode != Busy {
		return NewValidation("think_type", fmt.Sprintf("unknown think type: %q", op.Mode))
	}
	return op.Common.validate()
}
