package queue

import (
	"context"
	"sync/atomic"

	"github.com/shaban/filterchain/graph"
)

// graphState is the published, audio-thread-visible view of the current
// compiled graph: a Graph plus the Runtime over it, swapped atomically
// so the audio thread never observes a half-built graph.
type graphState struct {
	g  *graph.Graph
	rt *graph.Runtime
}

// Dispatcher serializes graph compiles and resets onto a Queue's worker
// goroutine and publishes the result for the audio thread to read
// lock-free via Current.
type Dispatcher struct {
	compiler *graph.Compiler
	state    atomic.Pointer[graphState]
	Q        *Queue
}

// NewDispatcher wires compiler to q (creating a default queue if q is nil).
func NewDispatcher(compiler *graph.Compiler, q *Queue) *Dispatcher {
	if q == nil {
		q = New(32)
	}
	return &Dispatcher{compiler: compiler, Q: q}
}

func (d *Dispatcher) Start() { d.Q.Start() }
func (d *Dispatcher) Close() {
	d.Q.Close()
	if s := d.state.Load(); s != nil && s.g != nil {
		_ = s.g.Close()
	}
}

// Current returns the currently published Graph and Runtime, safe to
// call from the audio thread without blocking. Both are nil before the
// first successful Compile.
func (d *Dispatcher) Current() (*graph.Graph, *graph.Runtime) {
	s := d.state.Load()
	if s == nil {
		return nil, nil
	}
	return s.g, s.rt
}

// Compile builds a new graph from desc and, on success, atomically
// publishes it and tears down whatever graph it replaces. Runs on the
// dispatcher's worker so it never races another Compile or Reset.
func (d *Dispatcher) Compile(desc *graph.Description, channelsCapture, channelsPlayback int) (*graph.Graph, []string, error) {
	var (
		built    *graph.Graph
		warnings []string
	)
	err := d.RunSync(func(ctx context.Context) error {
		g, w, err := d.compiler.Compile(desc, channelsCapture, channelsPlayback)
		warnings = w
		if err != nil {
			return err
		}
		built = g
		old := d.state.Swap(&graphState{g: g, rt: graph.NewRuntime(g)})
		if old != nil && old.g != nil {
			_ = old.g.Close()
		}
		return nil
	})
	if err != nil {
		return nil, warnings, err
	}
	return built, warnings, nil
}

// Reset deactivates then re-activates every instance of the current
// graph, draining plugin state without a full recompile. Callers must
// ensure the audio stream is paused before calling this.
func (d *Dispatcher) Reset() error {
	return d.RunSync(func(ctx context.Context) error {
		s := d.state.Load()
		if s == nil || s.rt == nil {
			return nil
		}
		return s.rt.Reset()
	})
}

// RunSync enqueues fn and blocks until it completes, returning its error.
func (d *Dispatcher) RunSync(fn Func) error {
	if d == nil || d.Q == nil {
		return fn(context.Background())
	}
	done := make(chan error, 1)
	if err := d.Q.Enqueue(Func(func(ctx context.Context) error {
		err := fn(ctx)
		select {
		case done <- err:
		default:
		}
		return err
	})); err != nil {
		return err
	}
	select {
	case err := <-done:
		return err
	case <-d.Q.ctx.Done():
		return context.Canceled
	}
}
