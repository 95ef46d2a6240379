package eve

import (
	"errors"
	"sync"
)

// ErrDisconnected is returned by Send once the receiving instance is gone.
var ErrDisconnected = errors.New("eve: receiver disconnected")

// RecvStatus is the outcome of a non-blocking receive.
type RecvStatus int

const (
	RecvOK RecvStatus = iota
	RecvEmpty
	// RecvClosed means every sender is released and the queue is drained.
	RecvClosed
)

type channel[T any] struct {
	mu      sync.Mutex
	queue   []T
	head    int
	senders int
	gone    bool
}

// Receiver is the single consuming end of an unbounded multi-producer
// channel.
type Receiver[T any] struct {
	ch *channel[T]
}

// Sender is one producing end. Each Sender is owned by one instance.
type Sender[T any] struct {
	ch       *channel[T]
	released bool
}

// NewReceiver creates a channel with no senders yet.
func NewReceiver[T any]() *Receiver[T] {
	return &Receiver[T]{ch: &channel[T]{}}
}

// Sender attaches a new producer to the channel.
func (r *Receiver[T]) Sender() *Sender[T] {
	r.ch.mu.Lock()
	defer r.ch.mu.Unlock()
	r.ch.senders++
	return &Sender[T]{ch: r.ch}
}

// TryRecv never blocks.
func (r *Receiver[T]) TryRecv() (T, RecvStatus) {
	var zero T
	c := r.ch
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.head < len(c.queue) {
		v := c.queue[c.head]
		c.queue[c.head] = zero
		c.head++
		if c.head == len(c.queue) {
			c.queue, c.head = c.queue[:0], 0
		} else if c.head > len(c.queue)/2 {
			n := copy(c.queue, c.queue[c.head:])
			clear(c.queue[n:])
			c.queue, c.head = c.queue[:n], 0
		}
		return v, RecvOK
	}
	if c.senders == 0 {
		return zero, RecvClosed
	}
	return zero, RecvEmpty
}

// Close disconnects the receiver; later sends fail and queued items are
// dropped.
func (r *Receiver[T]) Close() {
	c := r.ch
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gone = true
	clear(c.queue)
	c.queue, c.head = nil, 0
}

// Send enqueues v without blocking.
func (s *Sender[T]) Send(v T) error {
	c := s.ch
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gone || s.released {
		return ErrDisconnected
	}
	c.queue = append(c.queue, v)
	return nil
}

// Close releases the sender. The receiver reports RecvClosed once all of
// its senders are released and the queue is empty.
func (s *Sender[T]) Close() {
	c := s.ch
	c.mu.Lock()
	defer c.mu.Unlock()
	if s.released {
		return
	}
	s.released = true
	c.senders--
}
