package reduce

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotSupported is returned for graphs that still contain composite
// nodes. Callers flatten the graph first.
var ErrNotSupported = errors.New("hierarchical pipeline generation is not supported")

// CycleError reports a cycle through the named nodes. The first and last
// entries of Path are the same node.
type CycleError struct {
	Path []string
}

func (e *CycleError) Error() string {
	return "cycle detected: " + strings.Join(e.Path, " -> ")
}

// NameError reports two distinct elements whose generated names coincide,
// e.g. nodes "a-b" and "a_b". Nodes lists the node names behind each.
type NameError struct {
	Name  string
	Nodes [2][]string
}

func (e *NameError) Error() string {
	return fmt.Sprintf("generated name %q is shared by [%s] and [%s]; rename one of the nodes",
		e.Name, strings.Join(e.Nodes[0], " "), strings.Join(e.Nodes[1], " "))
}
