package eve

import "errors"

// SenderGroup delivers to the instances of one successor node, one item
// per instance in turn.
type SenderGroup[T any] struct {
	senders []*Sender[T]
	next    int
}

// Add appends a sender for one more successor instance.
func (g *SenderGroup[T]) Add(s *Sender[T]) {
	g.senders = append(g.senders, s)
}

// Len returns the number of connected senders.
func (g *SenderGroup[T]) Len() int { return len(g.senders) }

// Send hands v to the next instance in round-robin order, wrapping around.
// Senders whose receiver has gone are dropped. It reports whether any
// instance took v.
func (g *SenderGroup[T]) Send(v T) bool {
	for len(g.senders) > 0 {
		if g.next >= len(g.senders) {
			g.next = 0
		}
		s := g.senders[g.next]
		err := s.Send(v)
		if err == nil {
			g.next = (g.next + 1) % len(g.senders)
			return true
		}
		if !errors.Is(err, ErrDisconnected) {
			return false
		}
		s.Close()
		g.senders = append(g.senders[:g.next], g.senders[g.next+1:]...)
	}
	return false
}

// Close releases every sender in the group.
func (g *SenderGroup[T]) Close() {
	for _, s := range g.senders {
		s.Close()
	}
	g.senders = nil
}

// OutPort is an output port of one instance: one SenderGroup per distinct
// successor node.
type OutPort[T any] struct {
	groups []*SenderGroup[T]
}

// NewOutPort returns a port with no successors.
func NewOutPort[T any]() *OutPort[T] {
	return &OutPort[T]{}
}

// Group adds a successor node and returns its sender group.
func (p *OutPort[T]) Group() *SenderGroup[T] {
	g := &SenderGroup[T]{}
	p.groups = append(p.groups, g)
	return g
}

// Send delivers v to one instance of every successor node. It reports
// whether at least one instance took it.
func (p *OutPort[T]) Send(v T) bool {
	sent := false
	for _, g := range p.groups {
		if g.Send(v) {
			sent = true
		}
	}
	return sent
}

// Connected reports whether any successor instance is still reachable.
func (p *OutPort[T]) Connected() bool {
	for _, g := range p.groups {
		if g.Len() > 0 {
			return true
		}
	}
	return false
}

// Close releases every sender of the port.
func (p *OutPort[T]) Close() {
	for _, g := range p.groups {
		g.Close()
	}
}
