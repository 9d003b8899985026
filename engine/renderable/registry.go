package renderable

import (
	"sync"
	"sync/atomic"
)

type registryEntry struct {
	node Node
	gen  uint64
}

type registry struct {
	mu      sync.RWMutex
	nextID  uint64
	nextGen uint64
	entries map[uint64]registryEntry
}

// Registry tracks nodes by stable integer ID and issues generation-checked
// weak references to them. A reference resolves only while the registration
// it was issued for is live; removing or re-registering the node expires
// every reference issued before. Safe for concurrent use.
type Registry interface {
	// Add registers a node and returns a weak reference to it. A node whose
	// ID is 0 is assigned the next free ID; a node carrying an ID replaces
	// any live registration under that ID, expiring references issued for
	// the previous registration.
	//
	// Parameters:
	//   - n: the node to register, must not be nil
	//
	// Returns:
	//   - WeakRef: a reference resolving to n until it is removed
	Add(n Node) WeakRef

	// Get looks up a registered node by ID.
	//
	// Parameters:
	//   - id: the node ID
	//
	// Returns:
	//   - Node: the registered node, or nil
	//   - bool: true if the ID is live
	Get(id uint64) (Node, bool)

	// Ref issues a weak reference for a live registration.
	//
	// Parameters:
	//   - id: the node ID
	//
	// Returns:
	//   - WeakRef: a reference to the node, zero if the ID is not live
	//   - bool: true if the ID is live
	Ref(id uint64) (WeakRef, bool)

	// Remove drops a registration, expiring every reference issued for it.
	// The node itself is untouched.
	//
	// Parameters:
	//   - id: the node ID
	//
	// Returns:
	//   - bool: true if the ID was live
	Remove(id uint64) bool

	// Count returns the number of live registrations.
	//
	// Returns:
	//   - int: the registration count
	Count() int

	// Clear drops every registration, expiring all outstanding references.
	Clear()
}

var _ Registry = &registry{}

// NewRegistry creates an empty node registry. IDs start at 1; 0 is reserved
// to mean "never registered".
//
// Returns:
//   - Registry: the newly created registry
func NewRegistry() Registry {
	return &registry{
		nextID:  1,
		entries: make(map[uint64]registryEntry),
	}
}

func (r *registry) Add(n Node) WeakRef {
	if n == nil {
		panic("renderable: cannot register a nil node")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if n.ID() == 0 {
		n.SetID(atomic.AddUint64(&r.nextID, 1) - 1)
	}

	// Generations are drawn from a single counter, so a reference issued for
	// an earlier registration of the same ID can never match again.
	r.nextGen++
	r.entries[n.ID()] = registryEntry{node: n, gen: r.nextGen}
	return WeakRef{registry: r, id: n.ID(), gen: r.nextGen}
}

func (r *registry) Get(id uint64) (Node, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.entries[id]
	if !ok {
		return nil, false
	}
	return entry.node, true
}

func (r *registry) Ref(id uint64) (WeakRef, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.entries[id]
	if !ok {
		return WeakRef{}, false
	}
	return WeakRef{registry: r, id: id, gen: entry.gen}, true
}

func (r *registry) Remove(id uint64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[id]; !ok {
		return false
	}
	delete(r.entries, id)
	return true
}

func (r *registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

func (r *registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = make(map[uint64]registryEntry)
}

// WeakRef is a non-owning reference to a registered node. It carries the node
// ID and the generation of the registration it was issued for. The zero
// WeakRef never resolves.
type WeakRef struct {
	registry *registry
	id       uint64
	gen      uint64
}

// ID returns the referenced node's ID. The ID stays readable after the
// reference expires, which is what lets callers remove scene resources for a
// node that has already been destroyed.
//
// Returns:
//   - uint64: the node ID, 0 for the zero WeakRef
func (w WeakRef) ID() uint64 {
	return w.id
}

// Resolve returns the referenced node if the registration is still live.
//
// Returns:
//   - Node: the node, or nil if the reference expired
//   - bool: true if the reference is live
func (w WeakRef) Resolve() (Node, bool) {
	if w.registry == nil {
		return nil, false
	}
	w.registry.mu.RLock()
	defer w.registry.mu.RUnlock()
	entry, ok := w.registry.entries[w.id]
	if !ok || entry.gen != w.gen {
		return nil, false
	}
	return entry.node, true
}
