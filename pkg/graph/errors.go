package graph

import "fmt"

// EdgeError is returned by Connect for an edge whose endpoints violate the
// hierarchy rules.
type EdgeError struct {
	From   string
	To     string
	Reason string
}

func (e *EdgeError) Error() string {
	if e.From == "" && e.To == "" {
		return "invalid edge: " + e.Reason
	}
	return fmt.Sprintf("invalid edge %s -> %s: %s", e.From, e.To, e.Reason)
}
