package sgraph

import "fmt"

// handle addresses a slot in an arena. The generation changes every time a slot is
// freed, so a handle to a removed value never resolves to whatever replaced it.
// Generations start at 1, which keeps the zero handle invalid.
type handle struct {
	index uint32
	gen   uint32
}

func (h handle) valid() bool { return h.gen != 0 }

type slot[T any] struct {
	gen  uint32
	live bool
	val  T
}

// arena is a slot map with a free list.
type arena[T any] struct {
	slots []slot[T]
	free  []uint32
	live  int
}

func (a *arena[T]) insert(v T) handle {
	if n := len(a.free); n > 0 {
		idx := a.free[n-1]
		a.free = a.free[:n-1]
		s := &a.slots[idx]
		s.live = true
		s.val = v
		a.live++
		return handle{index: idx, gen: s.gen}
	}
	a.slots = append(a.slots, slot[T]{gen: 1, live: true, val: v})
	a.live++
	return handle{index: uint32(len(a.slots) - 1), gen: 1}
}

func (a *arena[T]) get(h handle) (*T, bool) {
	if int(h.index) >= len(a.slots) {
		return nil, false
	}
	s := &a.slots[h.index]
	if !s.live || s.gen != h.gen {
		return nil, false
	}
	return &s.val, true
}

func (a *arena[T]) remove(h handle) bool {
	if _, ok := a.get(h); !ok {
		return false
	}
	s := &a.slots[h.index]
	var zero T
	s.val = zero
	s.live = false
	s.gen++
	a.free = append(a.free, h.index)
	a.live--
	return true
}

// each visits live values in slot order until fn returns false.
func (a *arena[T]) each(fn func(h handle, v *T) bool) {
	for i := range a.slots {
		s := &a.slots[i]
		if !s.live {
			continue
		}
		if !fn(handle{index: uint32(i), gen: s.gen}, &s.val) {
			return
		}
	}
}

func (a *arena[T]) len() int { return a.live }

// NodeID is an opaque node handle. The zero value refers to no node.
type NodeID struct{ h handle }

// IsZero reports whether id is the zero handle.
func (id NodeID) IsZero() bool { return !id.h.valid() }

func (id NodeID) String() string {
	if id.IsZero() {
		return "n-"
	}
	return fmt.Sprintf("n%d.%d", id.h.index, id.h.gen)
}

// MarshalText renders the handle for snapshots.
func (id NodeID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }

// EdgeID is an opaque edge handle. The zero value refers to no edge.
type EdgeID struct{ h handle }

// IsZero reports whether id is the zero handle.
func (id EdgeID) IsZero() bool { return !id.h.valid() }

func (id EdgeID) String() string {
	if id.IsZero() {
		return "e-"
	}
	return fmt.Sprintf("e%d.%d", id.h.index, id.h.gen)
}

// MarshalText renders the handle for snapshots.
func (id EdgeID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }
