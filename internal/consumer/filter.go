package consumer

import (
	"encoding/binary"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/cel-go/cel"
)

// Filter wraps a compiled CEL program evaluated per record. A disabled
// filter matches everything.
type Filter struct {
	prog    cel.Program
	enabled bool
}

// NewFilter compiles expr. The empty expression yields a disabled filter.
// Expressions see partition, sequence, ts_ms, size, text, json, event_type,
// event_id, and now_ms.
func NewFilter(expr string) (Filter, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return Filter{}, nil
	}
	env, err := cel.NewEnv(
		cel.Variable("partition", cel.IntType),
		cel.Variable("sequence", cel.IntType),
		cel.Variable("ts_ms", cel.IntType),
		cel.Variable("size", cel.IntType),
		cel.Variable("text", cel.StringType),
		cel.Variable("json", cel.DynType),
		cel.Variable("event_type", cel.StringType),
		cel.Variable("event_id", cel.StringType),
		cel.Variable("now_ms", cel.IntType),
	)
	if err != nil {
		return Filter{}, err
	}
	ast, iss := env.Parse(expr)
	if iss != nil && iss.Err() != nil {
		return Filter{}, iss.Err()
	}
	checked, iss2 := env.Check(ast)
	if iss2 != nil && iss2.Err() != nil {
		return Filter{}, iss2.Err()
	}
	prog, err := env.Program(checked)
	if err != nil {
		return Filter{}, err
	}
	return Filter{prog: prog, enabled: true}, nil
}

// Eval evaluates the expression against one record. Evaluation errors count
// as no match.
func (f Filter) Eval(partition int, sequence uint64, header, payload []byte, eventType, eventID string) bool {
	if !f.enabled {
		return true
	}
	var ts int64
	if len(header) >= 8 {
		ts = int64(binary.BigEndian.Uint64(header[:8]))
	}
	var jsonObj any
	_ = json.Unmarshal(payload, &jsonObj)
	out, _, err := f.prog.Eval(map[string]any{
		"partition":  int64(partition),
		"sequence":   int64(sequence),
		"ts_ms":      ts,
		"size":       int64(len(payload)),
		"text":       string(payload),
		"json":       jsonObj,
		"event_type": eventType,
		"event_id":   eventID,
		"now_ms":     time.Now().UnixMilli(),
	})
	if err != nil {
		return false
	}
	b, ok := out.Value().(bool)
	return ok && b
}
