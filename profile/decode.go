package profile

import (
	"fmt"
	"maps"
	"math"
	"reflect"
	"slices"
	"strings"

	"github.com/mitchellh/mapstructure"
)

type flowOpFactory func() FlowOp

// Each factory returns the flowop with uperf's defaults filled in, so a field left out of the
// input renders exactly like the same field set to its default.
var allFlowOps = map[FlowOpType]flowOpFactory{
	Connect:    func() FlowOp { return NewConnect(DefaultRemoteHost, TCP) },
	Accept:     func() FlowOp { return NewAccept(DefaultRemoteHost, TCP) },
	Disconnect: func() FlowOp { return NewDisconnect() },
	Read:       func() FlowOp { return NewRead(DefaultSizeKiB) },
	Write:      func() FlowOp { return NewWrite(DefaultSizeKiB) },
	Recv:       func() FlowOp { return NewRecv(DefaultSizeKiB) },
	SendTo:     func() FlowOp { return NewSendTo(DefaultSizeKiB) },
	SendFile:   func() FlowOp { return NewSendFile(DefaultDirectory) },
	SendFileV:  func() FlowOp { return NewSendFileV(DefaultDirectory, 1) },
	NOP:        func() FlowOp { return NewNOP() },
	Think:      func() FlowOp { return NewThink(Idle, nil) },
}

type rawProfile struct {
	Name   string     `mapstructure:"name"`
	Groups []rawGroup `mapstructure:"groups"`
}

type rawGroup struct {
	NThreads     *int             `mapstructure:"nthreads"`
	NProcs       *int             `mapstructure:"nprocs"`
	Transactions []rawTransaction `mapstructure:"transactions"`
}

type rawTransaction struct {
	Iterations *int             `mapstructure:"iterations"`
	Duration   *string          `mapstructure:"duration"`
	Rate       *int             `mapstructure:"rate"`
	FlowOps    []map[string]any `mapstructure:"flowops"`
}

// Decode builds a validated Profile from caller input, typically a map read from a YAML or
// JSON benchmark file. Flowops are selected by their "type" key.
func Decode(input map[string]any) (*Profile, error) {
	raw := rawProfile{}
	err := decodeStrict(input, &raw)
	if err != nil {
		return nil, NewValidationWrap("profile", "can't decode profile", err)
	}

	p := &Profile{Name: raw.Name}
	for i, rg := range raw.Groups {
		g := Group{NThreads: rg.NThreads, NProcs: rg.NProcs}
		for j, rt := range rg.Transactions {
			t := Transaction{Iterations: rt.Iterations, Duration: rt.Duration, Rate: rt.Rate}
			for k, rawOp := range rt.FlowOps {
				op, err := DecodeFlowOp(rawOp)
				if err != nil {
					return nil, fmt.Errorf("group %d: transaction %d: flowop %d: %w", i, j, k, err)
				}
				t.FlowOps = append(t.FlowOps, op)
			}
			g.Transactions = append(g.Transactions, t)
		}
		p.Groups = append(p.Groups, g)
	}

	err = p.Validate()
	if err != nil {
		return nil, err
	}
	return p, nil
}

func DecodeFlowOp(input map[string]any) (FlowOp, error) {
	kind, ok := input["type"].(string)
	if !ok {
		return nil, NewValidation("type", "flowop has no type")
	}
	factory, ok := allFlowOps[FlowOpType(kind)]
	if !ok {
		return nil, NewValidation("type", fmt.Sprintf("unknown flowop type: %s", kind))
	}

	fields := maps.Clone(input)
	delete(fields, "type")
	op := factory()
	err := decodeStrict(fields, op)
	if err != nil {
		return nil, NewValidationWrap("flowop", fmt.Sprintf("can't decode %s flowop", kind), err)
	}
	return op, nil
}

func ExplainFlowOps() string {
	kinds := []string{}
	for kind := range allFlowOps {
		kinds = append(kinds, "\""+string(kind)+"\"")
	}
	slices.Sort(kinds)
	return strings.Join(kinds, ", ")
}

// RejectFractionalHook is a mapstructure decode hook that refuses to truncate a float with a
// fractional part into an integer field. YAML and JSON numbers often arrive as float64.
func RejectFractionalHook(from reflect.Type, to reflect.Type, data any) (any, error) {
	switch to.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
	default:
		return data, nil
	}
	var f float64
	switch v := data.(type) {
	case float64:
		f = v
	case float32:
		f = float64(v)
	default:
		return data, nil
	}
	if f != math.Trunc(f) {
		return nil, fmt.Errorf("%v is not an integer", f)
	}
	return data, nil
}

func decodeStrict(input any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:      out,
		ErrorUnused: true,
		DecodeHook:  RejectFractionalHook,
	})
	if err != nil {
		return err
	}
	return dec.Decode(input)
}
