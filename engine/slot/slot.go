// Package slot implements a fixed-capacity index allocator. Scene resources
// (instances, geometry records, material slots) each draw their GPU table
// index from one of these, so a slot handed out is never handed out again
// until it has been released.
package slot

import (
	"errors"
	"math/bits"
)

// ErrSlotsExhausted is returned by Acquire when every slot in the range is in use.
var ErrSlotsExhausted = errors.New("slot: all slots in use")

// Allocator hands out integer slots from the fixed range [0, capacity).
// The lowest free slot is always preferred, which keeps device tables indexed
// by slot densely packed near the front.
type Allocator struct {
	capacity uint32
	used     uint32
	words    []uint64 // bit i set means slot i is in use
}

// NewAllocator creates an allocator covering slots 0 through capacity-1.
//
// Parameters:
//   - capacity: the number of slots to manage
//
// Returns:
//   - *Allocator: the newly created allocator with all slots free
func NewAllocator(capacity uint32) *Allocator {
	return &Allocator{
		capacity: capacity,
		words:    make([]uint64, (capacity+63)/64),
	}
}

// Acquire finds the lowest free slot, marks it in use, and returns it.
//
// Returns:
//   - uint32: the acquired slot index
//   - error: ErrSlotsExhausted if no slot is free
func (a *Allocator) Acquire() (uint32, error) {
	for w, word := range a.words {
		if word == ^uint64(0) {
			continue
		}
		bit := uint32(bits.TrailingZeros64(^word))
		s := uint32(w)*64 + bit
		if s >= a.capacity {
			// Free bits past capacity live only in the tail word.
			break
		}
		a.words[w] = word | (1 << bit)
		a.used++
		return s, nil
	}
	return 0, ErrSlotsExhausted
}

// Release returns a slot to the free pool.
//
// Parameters:
//   - s: the slot index to release
//
// Returns:
//   - bool: true if the slot was in use and is now free, false if it was
//     out of range or already free
func (a *Allocator) Release(s uint32) bool {
	if s >= a.capacity {
		return false
	}
	w, bit := s/64, s%64
	if a.words[w]&(1<<bit) == 0 {
		return false
	}
	a.words[w] &^= 1 << bit
	a.used--
	return true
}

// InUse reports whether a slot is currently allocated.
//
// Parameters:
//   - s: the slot index to query
//
// Returns:
//   - bool: true if the slot is in use
func (a *Allocator) InUse(s uint32) bool {
	if s >= a.capacity {
		return false
	}
	return a.words[s/64]&(1<<(s%64)) != 0
}

// Count returns the number of slots currently in use.
//
// Returns:
//   - uint32: the in-use slot count
func (a *Allocator) Count() uint32 {
	return a.used
}

// Capacity returns the total number of slots managed by this allocator.
//
// Returns:
//   - uint32: the slot capacity
func (a *Allocator) Capacity() uint32 {
	return a.capacity
}

// Reset frees every slot at once.
func (a *Allocator) Reset() {
	for i := range a.words {
		a.words[i] = 0
	}
	a.used = 0
}
