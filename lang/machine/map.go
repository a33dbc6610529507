package machine

import (
	"fmt"

	"github.com/dolthub/swiss"
)

// Map is ZED's map/dict value, backed by a swiss (open-addressed hash)
// table rather than Go's builtin map: open addressing avoids the builtin
// map's per-bucket overhead for the small, short-lived maps a record
// processing script builds per record.
type Map struct {
	m *swiss.Map[Value, Value]
}

var _ Value = (*Map)(nil)

// NewMap returns an empty map with initial capacity for at least size
// entries.
func NewMap(size int) *Map {
	if size < 1 {
		size = 1
	}
	return &Map{m: swiss.NewMap[Value, Value](uint32(size))}
}

func (m *Map) String() string { return fmt.Sprintf("map(%d)", m.m.Count()) }
func (*Map) Type() string     { return "map" }
func (m *Map) Truth() bool    { return m.m.Count() > 0 }

func (m *Map) Get(k Value) (Value, bool) { return m.m.Get(k) }
func (m *Map) Set(k, v Value)            { m.m.Put(k, v) }
func (m *Map) Len() int                  { return int(m.m.Count()) }

// Each calls f for every key/value pair. Iteration order is unspecified,
// matching the swiss table's own iteration guarantees.
func (m *Map) Each(f func(k, v Value) bool) {
	m.m.Iter(f)
}
