// Package testutil provides scripted transforms and stores for tests.
package testutil

import (
	"context"
	"io"
	"sync"
	"sync/atomic"

	"github.com/meigma/transcache/cache"
)

// MockTransform is a scripted transform that records its invocations.
//
// On each Run it drains the input, emits the configured output chunks in
// order, and terminates with Err. A MockTransform may back any number of
// invocations; per-run state is not retained between calls.
type MockTransform struct {
	// Chunks are emitted in order on every run.
	Chunks [][]byte

	// Err, when set, terminates the run with a failure after the chunks
	// are emitted.
	Err error

	runs   atomic.Int64
	mu     sync.Mutex
	inputs [][]byte
}

// Run implements transcache.Transform.
func (m *MockTransform) Run(_ context.Context, input io.Reader, output io.Writer) error {
	m.runs.Add(1)

	in, err := io.ReadAll(input)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.inputs = append(m.inputs, in)
	m.mu.Unlock()

	for _, chunk := range m.Chunks {
		if _, err := output.Write(chunk); err != nil {
			return err
		}
	}
	return m.Err
}

// Runs reports how many times the transform was invoked.
func (m *MockTransform) Runs() int64 {
	return m.runs.Load()
}

// Inputs returns the payloads received so far, one per run.
func (m *MockTransform) Inputs() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]byte, len(m.inputs))
	copy(out, m.inputs)
	return out
}

// GateTransform blocks inside Run until released, for tests that need an
// invocation held in flight.
type GateTransform struct {
	// Output is written once the gate opens.
	Output []byte

	// Started receives one token each time Run begins.
	Started chan struct{}

	// Release holds Run open until it is closed or receives a token.
	Release chan struct{}

	runs atomic.Int64
}

// Run implements transcache.Transform.
func (g *GateTransform) Run(_ context.Context, input io.Reader, output io.Writer) error {
	g.runs.Add(1)
	if _, err := io.Copy(io.Discard, input); err != nil {
		return err
	}
	if g.Started != nil {
		g.Started <- struct{}{}
	}
	if g.Release != nil {
		<-g.Release
	}
	_, err := output.Write(g.Output)
	return err
}

// Runs reports how many times the transform was invoked.
func (g *GateTransform) Runs() int64 {
	return g.runs.Load()
}

// FailStore is a store whose writes fail. Reads always miss.
type FailStore struct {
	// PutErr is returned from every Put.
	PutErr error
}

// Get implements cache.Store.
func (s *FailStore) Get(string) ([]byte, bool) {
	return nil, false
}

// Put implements cache.Store.
func (s *FailStore) Put(string, []byte) error {
	return s.PutErr
}

// CountingStore wraps a Store and counts operations.
type CountingStore struct {
	cache.Store

	gets atomic.Int64
	puts atomic.Int64
}

// NewCountingStore wraps base with operation counters.
func NewCountingStore(base cache.Store) *CountingStore {
	return &CountingStore{Store: base}
}

// Get implements cache.Store.
func (s *CountingStore) Get(name string) ([]byte, bool) {
	s.gets.Add(1)
	return s.Store.Get(name)
}

// Put implements cache.Store.
func (s *CountingStore) Put(name string, content []byte) error {
	s.puts.Add(1)
	return s.Store.Put(name, content)
}

// Gets reports the number of Get calls.
func (s *CountingStore) Gets() int64 {
	return s.gets.Load()
}

// Puts reports the number of Put calls.
func (s *CountingStore) Puts() int64 {
	return s.puts.Load()
}
