package eve

import (
	"slices"
	"sync"
)

// Instance is one live occurrence of a node.
type Instance interface {
	InstanceID() int
	Kind() string
	// Release closes the instance's receiver and senders.
	Release()
}

// Source instances produce items without input.
type Source interface {
	Instance
	// Next produces at most one item and reports false once exhausted.
	Next() bool
}

// Normal instances consume their receiver.
type Normal interface {
	Instance
	Poll() PollResult
}

// Bucket holds the live instances of one kind.
type Bucket struct {
	mu        sync.Mutex
	instances map[int]Instance
}

// Len returns the number of live instances.
func (b *Bucket) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.instances)
}

// Has reports whether the instance with id is live.
func (b *Bucket) Has(id int) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.instances[id]
	return ok
}

// IDs returns the live instance ids in ascending order.
func (b *Bucket) IDs() []int {
	b.mu.Lock()
	defer b.mu.Unlock()
	ids := make([]int, 0, len(b.instances))
	for id := range b.instances {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Registry groups instances by kind.
//
// Locking is two-level: mu guards the bucket map and each Bucket guards its
// own instances. A caller takes mu first, releases it, and only then takes
// a bucket lock. No instance or channel lock is held while either is
// taken.
type Registry struct {
	mu      sync.RWMutex
	kinds   []string
	buckets map[string]*Bucket
}

// NewRegistry creates a registry with an empty bucket per kind.
func NewRegistry(kinds ...string) *Registry {
	r := &Registry{buckets: make(map[string]*Bucket)}
	for _, k := range kinds {
		r.bucket(k)
	}
	return r
}

// Bucket returns the bucket for kind, creating it if needed.
func (r *Registry) Bucket(kind string) *Bucket {
	r.mu.RLock()
	b, ok := r.buckets[kind]
	r.mu.RUnlock()
	if ok {
		return b
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.bucket(kind)
}

// bucket must be called with mu held for writing.
func (r *Registry) bucket(kind string) *Bucket {
	if b, ok := r.buckets[kind]; ok {
		return b
	}
	b := &Bucket{instances: make(map[int]Instance)}
	r.buckets[kind] = b
	r.kinds = append(r.kinds, kind)
	return b
}

// Add registers inst under its kind.
func (r *Registry) Add(inst Instance) {
	b := r.Bucket(inst.Kind())
	b.mu.Lock()
	defer b.mu.Unlock()
	b.instances[inst.InstanceID()] = inst
}

// Remove unregisters inst.
func (r *Registry) Remove(inst Instance) {
	b := r.Bucket(inst.Kind())
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.instances, inst.InstanceID())
}

// Kinds returns the registered kinds in registration order.
func (r *Registry) Kinds() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.kinds)
}

// Instances returns every live instance, kind by kind, ids ascending.
func (r *Registry) Instances() []Instance {
	var out []Instance
	for _, kind := range r.Kinds() {
		b := r.Bucket(kind)
		b.mu.Lock()
		ids := make([]int, 0, len(b.instances))
		for id := range b.instances {
			ids = append(ids, id)
		}
		slices.Sort(ids)
		for _, id := range ids {
			out = append(out, b.instances[id])
		}
		b.mu.Unlock()
	}
	return out
}

// Len returns the number of live instances.
func (r *Registry) Len() int {
	n := 0
	for _, kind := range r.Kinds() {
		n += r.Bucket(kind).Len()
	}
	return n
}

// Register adds inst to r and returns it, keeping its concrete type.
func Register[I Instance](r *Registry, inst I) I {
	r.Add(inst)
	return inst
}
