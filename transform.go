package transcache

import (
	"context"
	"io"
)

// Transform is the unit of work being cached.
//
// Run reads the full input payload from input and writes its result to
// output. Output may be produced in any number of chunks of any size; the
// caller preserves write order when assembling the final payload. Run
// terminates exactly once: a nil return signals success, a non-nil return
// signals failure, and output written before a failure is discarded.
//
// Transforms must be deterministic. The cache cannot detect a
// non-deterministic transform; it simply serves whichever result was stored
// first for a given input and configuration.
type Transform interface {
	Run(ctx context.Context, input io.Reader, output io.Writer) error
}

// TransformFunc adapts a function to the Transform interface.
type TransformFunc func(ctx context.Context, input io.Reader, output io.Writer) error

// Run implements Transform.
func (f TransformFunc) Run(ctx context.Context, input io.Reader, output io.Writer) error {
	return f(ctx, input, output)
}
