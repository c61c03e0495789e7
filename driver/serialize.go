package driver

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"

	"yqlang/value"
)

// rangeTypeTag marks a JSON object produced from a Range value so
// Deserialize can tell it apart from a user Object with the same shape.
const rangeTypeTag = "$range"

// Serialize persists mem's globals as `{"<global-name>": <json-value>}`.
// Only JSON-representable kinds survive: Integer, Float, Boolean, Null,
// String, List, Object, Range. Closures, BoundProcedures, Builtins, and
// Regexes are dropped silently at the per-value level; Serialize reports
// them back as a non-fatal *SerializationError so a caller can log them,
// but still returns the serialized bytes for everything that did convert.
func Serialize(mem *value.Memory) ([]byte, *SerializationError) {
	out := make(map[string]interface{}, len(mem.GlobalNames))
	var dropped []string

	for i, name := range mem.GlobalNames {
		j, ok := toJSON(mem, mem.Globals[i])
		if !ok {
			dropped = append(dropped, name)
			continue
		}
		out[name] = j
	}

	data, err := json.Marshal(out)
	if err != nil {
		dropped = append(dropped, fmt.Sprintf("(marshal error: %s)", err))
		data = []byte("{}")
	}

	var serErr *SerializationError
	if len(dropped) > 0 {
		serErr = &SerializationError{Message: "some globals could not be persisted", Dropped: dropped}
	}
	return data, serErr
}

// Deserialize loads persisted globals (as produced by Serialize) into mem.
// Names absent from mem's symbol table, or not present in data, are left at
// their zero value (Null, per DefineGlobal's lifecycle). An empty or nil
// data is a valid "no prior state" input for a script's first run.
func Deserialize(data []byte, mem *value.Memory) error {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw map[string]interface{}
	if err := dec.Decode(&raw); err != nil {
		return fmt.Errorf("🗃️ malformed persisted state: %w", err)
	}

	for name, j := range raw {
		idx, ok := mem.GlobalIndex[name]
		if !ok {
			continue
		}
		mem.Globals[idx] = fromJSON(mem, j)
	}
	return nil
}

func toJSON(mem *value.Memory, v value.Value) (interface{}, bool) {
	switch t := v.(type) {
	case value.Null:
		return nil, true
	case value.Boolean:
		return bool(t), true
	case value.Integer:
		return int64(t), true
	case value.Float:
		return float64(t), true
	case value.Str:
		return string(mem.StringCellAt(t.Ptr).Runes), true
	case value.List:
		cell := mem.ListCellAt(t.Ptr)
		out := make([]interface{}, 0, len(cell.Elements))
		for _, e := range cell.Elements {
			j, ok := toJSON(mem, e)
			if !ok {
				continue
			}
			out = append(out, j)
		}
		return out, true
	case value.Obj:
		cell := mem.ObjectCellAt(t.Ptr)
		out := make(map[string]interface{}, len(cell.Keys))
		keys := append([]string(nil), cell.Keys...)
		sort.Strings(keys)
		for _, k := range keys {
			val, _ := cell.Get(k)
			j, ok := toJSON(mem, val)
			if !ok {
				continue
			}
			out[k] = j
		}
		return out, true
	case value.Range:
		return map[string]interface{}{
			rangeTypeTag: true,
			"begin":      t.Begin,
			"end":        t.End,
			"inclusive":  t.Inclusive,
			"char":       t.Char,
		}, true
	default:
		// Closure, BoundProcedure, Builtin, Regex: not JSON-representable.
		return nil, false
	}
}

func fromJSON(mem *value.Memory, j interface{}) value.Value {
	switch t := j.(type) {
	case nil:
		return value.Null{}
	case bool:
		return value.Boolean(t)
	case string:
		return mem.NewString(t)
	case json.Number:
		if n, err := t.Int64(); err == nil {
			return value.Integer(n)
		}
		f, _ := t.Float64()
		return value.Float(f)
	case float64:
		// Only reachable if a caller decoded without UseNumber.
		if f := t; f == float64(int64(f)) {
			return value.Integer(int64(f))
		}
		return value.Float(t)
	case []interface{}:
		elems := make([]value.Value, len(t))
		for i, e := range t {
			elems[i] = fromJSON(mem, e)
		}
		return mem.NewList(elems)
	case map[string]interface{}:
		if isRange, _ := t[rangeTypeTag].(bool); isRange {
			return value.Range{
				Begin:     asInt64(t["begin"]),
				End:       asInt64(t["end"]),
				Inclusive: asBool(t["inclusive"]),
				Char:      asBool(t["char"]),
			}
		}
		obj := mem.NewObject()
		cell := mem.ObjectCellAt(obj.Ptr)
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			cell.Set(k, fromJSON(mem, t[k]))
		}
		return obj
	default:
		return value.Null{}
	}
}

func asInt64(v interface{}) int64 {
	switch t := v.(type) {
	case json.Number:
		n, _ := t.Int64()
		return n
	case float64:
		return int64(t)
	case int64:
		return t
	default:
		n, _ := strconv.ParseInt(fmt.Sprint(v), 10, 64)
		return n
	}
}

func asBool(v interface{}) bool {
	b, _ := v.(bool)
	return b
}
