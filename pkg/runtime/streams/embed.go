// Package streams is the combinator runtime of stream-target programs:
// lazy streams with Source, Map, Merge, Copy, ForEach and Join. The stream
// back-end copies these sources into every generated package.
package streams

import "embed"

// Sources holds the runtime files emitted into generated packages.
//
//go:embed stream.go copy.go
var Sources embed.FS

// SourceFiles lists the files in Sources in emission order.
var SourceFiles = []string{"stream.go", "copy.go"}
