package eve

import (
	"fmt"
	"runtime"
	"sync"
)

// PollResult is the outcome of ticking a Normal instance.
type PollResult int

const (
	// PollData means an item was received and handled.
	PollData PollResult = iota
	// PollEmpty means nothing was queued; the instance is retried next pass.
	PollEmpty
	// PollClosed means the receiver is closed; nothing was handled.
	PollClosed
)

// Poll receives at most one item from r and hands it to handle.
func Poll[T any](r *Receiver[T], handle func(T)) PollResult {
	v, status := r.TryRecv()
	switch status {
	case RecvOK:
		handle(v)
		return PollData
	case RecvEmpty:
		return PollEmpty
	default:
		return PollClosed
	}
}

// Thread is a cooperative scheduler over a fixed set of instances. It never
// blocks on input: an instance with an empty open channel is polled again on
// every pass until its channel closes.
type Thread struct {
	ID       int
	registry *Registry
	sources  []Source
	normals  []Normal
	progress bool
}

// NewThread creates an empty thread removing retired instances from reg.
func NewThread(id int, reg *Registry) *Thread {
	return &Thread{ID: id, registry: reg}
}

func (t *Thread) AddSource(s Source) { t.sources = append(t.sources, s) }
func (t *Thread) AddNormal(n Normal) { t.normals = append(t.normals, n) }

// Sources returns the live source instances.
func (t *Thread) Sources() []Source { return t.sources }

// Normals returns the live normal instances.
func (t *Thread) Normals() []Normal { return t.normals }

// TickSource lets s produce once. An exhausted source is retired and
// reported dead.
func (t *Thread) TickSource(s Source) bool {
	if s.Next() {
		t.progress = true
		return true
	}
	t.retire(s)
	return false
}

// TickNormal polls n once. A closed instance is retired and reported dead.
func (t *Thread) TickNormal(n Normal) bool {
	switch n.Poll() {
	case PollData:
		t.progress = true
		return true
	case PollEmpty:
		return true
	default:
		t.retire(n)
		return false
	}
}

// retire removes inst from the registry and releases its channels. It runs
// after inst returned from Next or Poll, so no channel lock is held.
func (t *Thread) retire(inst Instance) {
	t.registry.Remove(inst)
	inst.Release()
	t.progress = true
}

// Pass ticks every source then every normal instance once, dropping retired
// instances in a single compaction per list. It returns the number of live
// instances left.
func (t *Thread) Pass() int {
	t.progress = false

	sources := t.sources[:0]
	for _, s := range t.sources {
		if t.TickSource(s) {
			sources = append(sources, s)
		}
	}
	clear(t.sources[len(sources):])
	t.sources = sources

	normals := t.normals[:0]
	for _, n := range t.normals {
		if t.TickNormal(n) {
			normals = append(normals, n)
		}
	}
	clear(t.normals[len(normals):])
	t.normals = normals

	return len(t.sources) + len(t.normals)
}

// Run makes passes until one finds no live instance.
func (t *Thread) Run() {
	for t.Pass() > 0 {
		if !t.progress {
			runtime.Gosched()
		}
	}
}

// Partition deals the registered instances out to n threads in round-robin
// order. The assignment is fixed for the life of the threads.
func Partition(n int, reg *Registry) []*Thread {
	n = max(n, 1)
	threads := make([]*Thread, n)
	for i := range threads {
		threads[i] = NewThread(i, reg)
	}
	for i, inst := range reg.Instances() {
		t := threads[i%n]
		switch inst := inst.(type) {
		case Source:
			t.AddSource(inst)
		case Normal:
			t.AddNormal(inst)
		default:
			panic(fmt.Sprintf("eve: instance %s/%d is neither a source nor a normal instance", inst.Kind(), inst.InstanceID()))
		}
	}
	return threads
}

// RunAll runs every thread on its own goroutine and waits for all of them.
func RunAll(threads []*Thread) {
	var wg sync.WaitGroup
	for _, t := range threads {
		wg.Add(1)
		go func() {
			defer wg.Done()
			t.Run()
		}()
	}
	wg.Wait()
}
