// Package eve is the scheduler runtime of thread-target programs: unbounded
// non-blocking channels, round-robin output ports, a per-kind instance
// registry and cooperative threads that run until every source is
// exhausted. The thread back-end copies these sources into every generated
// package.
package eve

import "embed"

// Sources holds the runtime files emitted into generated packages.
//
//go:embed channel.go port.go registry.go thread.go
var Sources embed.FS

// SourceFiles lists the files in Sources in emission order.
var SourceFiles = []string{"channel.go", "port.go", "registry.go", "thread.go"}
