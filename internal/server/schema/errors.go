package schema

import "errors"

// Graph errors. All of them are fatal to the apply step and are reported to
// the operator as-is; the resolver never repairs a graph.
var (
	ErrDuplicateIdentifier = errors.New("duplicate migration identifier")
	ErrUnknownDependency   = errors.New("unknown migration dependency")
	ErrCycleDetected       = errors.New("migration dependency cycle")
	ErrUnresolvedFork      = errors.New("unresolved migration fork")
	ErrInvalidNode         = errors.New("invalid migration node")
)
