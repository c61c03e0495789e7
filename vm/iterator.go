package vm

import (
	"fmt"

	"yqlang/value"
)

// iterFrame is the VM-internal cursor behind a `for` loop. It is never a
// value.Value variant — iteration state lives entirely on the VM's iterator
// stack, scoped to the loop that pushed it.
type iterFrame struct {
	kind      iterKind
	list      []value.Value
	runes     []rune
	begin     int64
	end       int64
	inclusive bool
	char      bool
	objKeys   []string
	obj       *value.ObjectCell
	pos       int
}

type iterKind int

const (
	iterList iterKind = iota
	iterString
	iterRange
	iterObject
)

// newIterFrame snapshots v's current contents into a cursor. Lists and
// strings are snapshotted at push time, so mutating them mid-loop does not
// perturb the iteration; for an object only the key list is snapshotted,
// and each key's value is read when that key is visited.
func newIterFrame(mem *value.Memory, v value.Value) (*iterFrame, error) {
	switch t := v.(type) {
	case value.List:
		cell := mem.ListCellAt(t.Ptr)
		elems := make([]value.Value, len(cell.Elements))
		copy(elems, cell.Elements)
		return &iterFrame{kind: iterList, list: elems}, nil

	case value.Str:
		cell := mem.StringCellAt(t.Ptr)
		runes := make([]rune, len(cell.Runes))
		copy(runes, cell.Runes)
		return &iterFrame{kind: iterString, runes: runes}, nil

	case value.Range:
		return &iterFrame{kind: iterRange, begin: t.Begin, end: t.End, inclusive: t.Inclusive, char: t.Char}, nil

	case value.Obj:
		cell := mem.ObjectCellAt(t.Ptr)
		keys := make([]string, len(cell.Keys))
		copy(keys, cell.Keys)
		return &iterFrame{kind: iterObject, objKeys: keys, obj: cell}, nil

	default:
		return nil, fmt.Errorf("value of kind %s is not iterable", t.Kind())
	}
}

// next returns the loop variable's value for the current position and
// advances the cursor, or ok=false once exhausted.
func (it *iterFrame) next(mem *value.Memory) (value.Value, bool) {
	switch it.kind {
	case iterList:
		if it.pos >= len(it.list) {
			return nil, false
		}
		v := it.list[it.pos]
		it.pos++
		return v, true

	case iterString:
		if it.pos >= len(it.runes) {
			return nil, false
		}
		v := mem.NewString(string(it.runes[it.pos]))
		it.pos++
		return v, true

	case iterRange:
		cur := it.begin + int64(it.pos)
		if it.inclusive {
			if cur > it.end {
				return nil, false
			}
		} else if cur >= it.end {
			return nil, false
		}
		it.pos++
		if it.char {
			return mem.NewString(string(rune(cur))), true
		}
		return value.Integer(cur), true

	case iterObject:
		if it.pos >= len(it.objKeys) {
			return nil, false
		}
		key := it.objKeys[it.pos]
		it.pos++
		val, _ := it.obj.Get(key)
		pair := mem.NewList([]value.Value{mem.NewString(key), val})
		return pair, true

	default:
		return nil, false
	}
}
