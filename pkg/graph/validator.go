package graph

import (
	"fmt"
	"strconv"
	"strings"
)

// LintError describes a structural problem in a graph.
type LintError struct {
	Node    string
	Message string
}

func (e LintError) Error() string {
	if e.Node != "" {
		return fmt.Sprintf("node %q: %s", e.Node, e.Message)
	}
	return e.Message
}

// Validate checks a graph for problems that would make generated code
// wrong. It returns every problem found, not just the first.
func Validate(g *Graph) []LintError {
	var errs []LintError

	if len(g.Nodes()) == 0 {
		return []LintError{{Message: "graph has no nodes"}}
	}

	// Generated identifiers are derived from names, so two names that map
	// to the same identifier would collide in the output.
	idents := make(map[string]string)
	for _, n := range g.Nodes() {
		id := Ident(n.Name)
		if other, ok := idents[id]; ok {
			errs = append(errs, LintError{Node: n.Name, Message: fmt.Sprintf("name maps to the same identifier %q as node %q", id, other)})
			continue
		}
		idents[id] = n.Name
	}

	for _, n := range g.Nodes() {
		if n.Input != NoPort && g.ports[n.Input].MsgType == "" {
			errs = append(errs, LintError{Node: n.Name, Message: "input port has no message type"})
		}
		for _, p := range n.Outputs {
			if g.ports[p].MsgType == "" {
				errs = append(errs, LintError{Node: n.Name, Message: fmt.Sprintf("output port %q has no message type", g.ports[p].Name)})
			}
		}
		if raw, ok := n.Attrs["instances"]; ok {
			if c, err := strconv.Atoi(raw); err != nil || c < 1 {
				errs = append(errs, LintError{Node: n.Name, Message: fmt.Sprintf("instances must be a positive integer, got %q", raw)})
			}
		}
	}

	for _, e := range g.Edges() {
		from, to := g.ports[e.From], g.ports[e.To]
		if from.MsgType != "" && to.MsgType != "" && from.MsgType != to.MsgType {
			errs = append(errs, LintError{Message: fmt.Sprintf("edge %s -> %s: message type %q does not match %q",
				g.PortString(e.From), g.PortString(e.To), from.MsgType, to.MsgType)})
		}
	}

	flat := g
	if g.HasHierarchy() {
		var err error
		if flat, err = g.Flatten(); err != nil {
			return append(errs, LintError{Message: fmt.Sprintf("flatten: %v", err)})
		}
	}
	if len(flat.Sources()) == 0 {
		errs = append(errs, LintError{Message: "graph has no source node"})
	}
	if err := DetectCycles(flat); err != nil {
		errs = append(errs, LintError{Message: err.Error()})
	}
	return errs
}

// ValidateErr calls Validate and returns nil if there are no errors, or a
// combined error listing all of them.
func ValidateErr(g *Graph) error {
	errs := Validate(g)
	if len(errs) == 0 {
		return nil
	}
	msgs := make([]string, len(errs))
	for i, e := range errs {
		msgs[i] = e.Error()
	}
	return fmt.Errorf("graph validation failed:\n  %s", strings.Join(msgs, "\n  "))
}

// DetectCycles reports the first cycle found by a depth-first search over
// node successors, naming the nodes on it.
func DetectCycles(g *Graph) error {
	const (
		unvisited = iota
		inProgress
		done
	)
	state := make([]int, len(g.nodes))
	var stack []NodeID

	var visit func(n NodeID) error
	visit = func(n NodeID) error {
		switch state[n] {
		case done:
			return nil
		case inProgress:
			var names []string
			start := 0
			for i, s := range stack {
				if s == n {
					start = i
				}
			}
			for _, s := range stack[start:] {
				names = append(names, g.nodes[s].Name)
			}
			names = append(names, g.nodes[n].Name)
			return fmt.Errorf("cycle detected: %s", strings.Join(names, " -> "))
		}
		state[n] = inProgress
		stack = append(stack, n)
		for _, s := range g.Successors(n) {
			if err := visit(s); err != nil {
				return err
			}
		}
		stack = stack[:len(stack)-1]
		state[n] = done
		return nil
	}

	for _, n := range g.nodes {
		if err := visit(n.ID); err != nil {
			return err
		}
	}
	return nil
}
