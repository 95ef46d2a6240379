package streams

import (
	"slices"
	"sync"
)

// Copy broadcasts one stream to any number of subscribers. Items are kept
// in a shared buffer behind a single lock; every subscriber reads through
// its own cursor, so a slow subscriber holds back memory but not the other
// subscribers.
type Copy[T any] struct {
	in   Stream[T]
	once sync.Once

	mu   sync.Mutex
	cond *sync.Cond
	buf  []T
	base int // absolute index of buf[0]
	done bool
	subs []*cursor
}

type cursor struct {
	pos int
}

// NewCopy wraps in. The input starts when the first subscriber starts.
func NewCopy[T any](in Stream[T]) *Copy[T] {
	c := &Copy[T]{in: in}
	c.cond = sync.NewCond(&c.mu)
	return c
}

// Subscribe returns a fresh stream that receives every item the input
// produces from now on, exactly once.
func (c *Copy[T]) Subscribe() Stream[T] {
	c.mu.Lock()
	sub := &cursor{pos: c.base + len(c.buf)}
	c.subs = append(c.subs, sub)
	c.mu.Unlock()

	return Stream[T]{start: func() <-chan T {
		c.once.Do(c.pump)
		out := make(chan T)
		go func() {
			defer close(out)
			defer c.unsubscribe(sub)
			for {
				v, ok := c.next(sub)
				if !ok {
					return
				}
				out <- v
			}
		}()
		return out
	}}
}

func (c *Copy[T]) pump() {
	src := c.in.Start()
	go func() {
		for v := range src {
			c.mu.Lock()
			c.buf = append(c.buf, v)
			c.cond.Broadcast()
			c.mu.Unlock()
		}
		c.mu.Lock()
		c.done = true
		c.cond.Broadcast()
		c.mu.Unlock()
	}()
}

func (c *Copy[T]) next(sub *cursor) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for sub.pos >= c.base+len(c.buf) && !c.done {
		c.cond.Wait()
	}
	if sub.pos >= c.base+len(c.buf) {
		var zero T
		return zero, false
	}
	v := c.buf[sub.pos-c.base]
	sub.pos++
	c.compact()
	return v, true
}

func (c *Copy[T]) unsubscribe(sub *cursor) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subs = slices.DeleteFunc(c.subs, func(s *cursor) bool { return s == sub })
	c.compact()
}

// compact drops the prefix every subscriber has read. c.mu must be held.
func (c *Copy[T]) compact() {
	low := c.base + len(c.buf)
	for _, s := range c.subs {
		low = min(low, s.pos)
	}
	if drop := low - c.base; drop > 0 {
		clear(c.buf[:drop])
		c.buf = c.buf[drop:]
		c.base = low
	}
}
