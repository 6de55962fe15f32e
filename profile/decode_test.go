package profile

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestDecode(t *testing.T) {
	t.Run("yaml profile", func(t *testing.T) {
		src := `
name: rr
groups:
  - nprocs: 2
    transactions:
      - iterations: 1
        flowops:
          - type: connect
            remotehost: 10.0.0.2
            protocol: udp
      - duration: 30s
        flowops:
          - type: write
            size: 1
            randsize_max: 4
            canfail: true
          - type: think
            think_type: busy
            duration: 1ms
          - type: sendfilev
            dir: /data
            nfiles: 5
      - iterations: 1
        flowops:
          - type: disconnect
            conn: 1
`
		input := map[string]any{}
		require.NoError(t, yaml.Unmarshal([]byte(src), &input))

		p, err := Decode(input)
		require.NoError(t, err)
		assert.Equal(t, "rr", p.Name)
		require.Len(t, p.Groups, 1)
		assert.Equal(t, 2, *p.Groups[0].NProcs)
		assert.Nil(t, p.Groups[0].NThreads)

		txns := p.Groups[0].Transactions
		require.Len(t, txns, 3)
		assert.Equal(t, NewConnect("10.0.0.2", UDP), txns[0].FlowOps[0])
		assert.Equal(t, "30s", *txns[1].Duration)

		write := txns[1].FlowOps[0].(*DataFlowOp)
		assert.Equal(t, Write, write.Kind)
		assert.Equal(t, 1, write.SizeKiB)
		assert.Equal(t, 4, *write.RandomSizeMaxKiB)
		assert.True(t, write.CanFail)

		assert.Equal(t, NewThink(Busy, String("1ms")), txns[1].FlowOps[1])
		assert.Equal(t, NewSendFileV("/data", 5), txns[1].FlowOps[2])
		assert.Equal(t, 1, *txns[2].FlowOps[0].(*DisconnectFlowOp).ConnectionID)
	})

	t.Run("json numbers", func(t *testing.T) {
		p, err := Decode(map[string]any{
			"name": "j",
			"groups": []any{map[string]any{
				"nthreads": float64(4),
				"transactions": []any{map[string]any{
					"rate":    float64(10),
					"flowops": []any{map[string]any{"type": "read", "count": float64(2)}},
				}},
			}},
		})
		require.NoError(t, err)
		assert.Equal(t, 4, *p.Groups[0].NThreads)
		assert.Equal(t, []string{"count=2", "size=64k"}, Options(p.Groups[0].Transactions[0].FlowOps[0]))
	})
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name  string
		input map[string]any
		field string
	}{
		{"unknown flowop", flowopInput(map[string]any{"type": "teleport"}), "type"},
		{"missing type", flowopInput(map[string]any{"size": 1}), "type"},
		{"unknown key", flowopInput(map[string]any{"type": "read", "sise": 1}), "flowop"},
		{"connection key on data flowop", flowopInput(map[string]any{"type": "write", "remotehost": "h"}), "flowop"},
		{"unknown profile key", map[string]any{"name": "p", "grups": []any{}}, "profile"},
		{"threads and procs", map[string]any{"name": "p", "groups": []any{map[string]any{"nthreads": 1, "nprocs": 1}}}, "nthreads"},
		{"fractional size", flowopInput(map[string]any{"type": "write", "size": 0.5}), "flowop"},
		{"fractional iterations", map[string]any{"name": "p", "groups": []any{map[string]any{"transactions": []any{map[string]any{"iterations": 2.9, "flowops": []any{map[string]any{"type": "NOP"}}}}}}}, "profile"},
		{"fractional nthreads", map[string]any{"name": "p", "groups": []any{map[string]any{"nthreads": 1.7}}}, "profile"},
		{"empty transaction", map[string]any{"name": "p", "groups": []any{map[string]any{"transactions": []any{map[string]any{"iterations": 1}}}}}, "flowops"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.input)
			var ve *ValidationError
			require.True(t, errors.As(err, &ve), "expected ValidationError, got %v", err)
			assert.Equal(t, tt.field, ve.Field)
		})
	}
}

func flowopInput(op map[string]any) map[string]any {
	return map[string]any{
		"name": "p",
		"groups": []any{map[string]any{
			"transactions": []any{map[string]any{"flowops": []any{op}}},
		}},
	}
}

func TestDecodeWholeFloats(t *testing.T) {
	input := flowopInput(map[string]any{"type": "write", "size": 8.0})
	input["groups"].([]any)[0].(map[string]any)["nthreads"] = 4.0

	p, err := Decode(input)
	require.NoError(t, err)
	assert.Equal(t, 4, *p.Groups[0].NThreads)
	assert.Equal(t, 8, p.Groups[0].Transactions[0].FlowOps[0].(*DataFlowOp).SizeKiB)
}

func TestExplainFlowOps(t *testing.T) {
	explained := ExplainFlowOps()
	for kind := range allFlowOps {
		assert.Contains(t, explained, "\""+string(kind)+"\"")
	}
}
