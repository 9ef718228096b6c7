package mergeop

import (
	"sync"
	"sync/atomic"
)

// IDAllocator hands out 16-bit merge ids unique to one daemon (spec.md
// §4.2: "drawn from a counter unique to the submitting daemon"). Wrap
// around at 2^16 is intentional and documented as acceptable: collisions
// are improbable at that space and recoverable by retry (spec.md §9).
type IDAllocator struct {
	counter uint32
}

// Next returns the next merge id for this daemon.
func (a *IDAllocator) Next() MergeID {
	v := atomic.AddUint32(&a.counter, 1)
	return MergeID(uint16(v))
}

// Map is the process-wide (per-daemon) table from merge id to the
// starting offset the engine resolved for it (spec.md §4.2, §5, §9): "a
// small process-wide map keyed by merge_id... must be protected from
// concurrent access... entries should be taken-with-erase by the caller
// immediately after reading back the updated key".
type Map struct {
	mu      sync.Mutex
	offsets map[MergeID]int64
}

// NewMap builds an empty merge-id map, scoped to one DaemonContext.
func NewMap() *Map {
	return &Map{offsets: make(map[MergeID]int64)}
}

// Publish deposits the previous file size (the reserved interval's start
// offset) under id. Called by the engine once resolution assigns the
// reservation; never by RPC handlers directly.
func (m *Map) Publish(id MergeID, offset int64) {
	m.mu.Lock()
	m.offsets[id] = offset
	m.mu.Unlock()
}

// TakeAndErase retrieves and removes the offset published for id. The
// caller that originated the increase_size(append=true) operand calls
// this exactly once, after a subsequent blocking read of the key (spec.md
// §4.2, §5).
func (m *Map) TakeAndErase(id MergeID) (int64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	offset, ok := m.offsets[id]
	if ok {
		delete(m.offsets, id)
	}
	return offset, ok
}
