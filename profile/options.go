package profile

import "fmt"

// Options renders the uperf option tokens for op, in the order uperf documents them:
// count and rate first, then the variant's own fields. Unset optional fields and false
// flags produce no token.
func Options(op FlowOp) []string {
	switch op := op.(type) {
	case *ConnectionFlowOp:
		return connectionOptions(op)
	case *DataFlowOp:
		return dataOptions(op)
	case *FileFlowOp:
		return fileOptions(op)
	case *DisconnectFlowOp:
		return appendConn(commonOptions(&op.Common), op.ConnectionID)
	case *NOPFlowOp:
		return commonOptions(&op.Common)
	case *ThinkFlowOp:
		return thinkOptions(op)
	}
	return nil
}

func commonOptions(c *Common) []string {
	options := []string{}
	if c.Count != nil {
		options = append(options, fmt.Sprintf("count=%d", *c.Count))
	}
	if c.Rate != nil {
		options = append(options, fmt.Sprintf("rate=%d", *c.Rate))
	}
	return options
}

func connectionOptions(op *ConnectionFlowOp) []string {
	options := commonOptions(&op.Common)
	options = append(options, "remotehost="+op.RemoteHost)
	options = append(options, "protocol="+string(op.Protocol))
	if op.TCPNoDelay {
		options = append(options, "tcp_nodelay")
	}
	if op.WindowSizeKiB != nil {
		options = append(options, fmt.Sprintf("wndsz=%dk", *op.WindowSizeKiB))
	}
	if op.SSLEngine != nil {
		options = append(options, "engine="+*op.SSLEngine)
	}
	return options
}

func dataOptions(op *DataFlowOp) []string {
	options := commonOptions(&op.Common)
	if op.RandomSizeMaxKiB == nil {
		options = append(options, fmt.Sprintf("size=%dk", op.SizeKiB))
	} else {
		options = append(options, fmt.Sprintf("size=rand(%dk, %dk)", op.SizeKiB, *op.RandomSizeMaxKiB))
	}
	if op.ReceiveSizeKiB != nil {
		options = append(options, fmt.Sprintf("rsize=%dk", *op.ReceiveSizeKiB))
	}
	if op.CanFail {
		options = append(options, "canfail")
	}
	if op.NonBlocking {
		options = append(options, "non_blocking")
	}
	if op.PollTimeout != nil {
		options = append(options, "poll_timeout="+*op.PollTimeout)
	}
	return appendConn(options, op.ConnectionID)
}

func fileOptions(op *FileFlowOp) []string {
	options := commonOptions(&op.Common)
	options = append(options, "dir="+op.Directory)
	options = append(options, fmt.Sprintf("nfiles=%d", op.FileCount))
	if op.FileCount == 1 && op.ChunkSizeKiB != nil {
		options = append(options, fmt.Sprintf("size=%dk", *op.ChunkSizeKiB))
	}
	return options
}

func thinkOptions(op *ThinkFlowOp) []string {
	options := commonOptions(&op.Common)
	options = append(options, string(op.Mode))
	if op.Duration != nil {
		options = append(options, "duration="+*op.Duration)
	}
	return options
}

func appendConn(options []string, conn *int) []string {
	if conn != nil {
		options = append(options, fmt.Sprintf("conn=%d", *conn))
	}
	return options
}
