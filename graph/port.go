package graph

import "github.com/shaban/filterchain/registry"

// NoExternal marks a Port's External field when the port is not bound to
// a graph boundary channel.
const NoExternal = -1

// ControlCell is the scalar storage backing one control port. It is a
// single-element array rather than a bare float32 so that its address is
// stable and can be handed to a plugin's ConnectControlPort as a slice
// view without an extra allocation or indirection.
type ControlCell struct {
	v [1]float32
}

// Slice returns a length-1 view over the cell's storage, suitable for
// connecting to a plugin as if it were a one-sample audio buffer — the
// same calling convention LADSPA and friends use for control ports.
func (c *ControlCell) Slice() []float32 { return c.v[:] }

// Ptr returns the address of the cell's value.
func (c *ControlCell) Ptr() *float32 { return &c.v[0] }

func (c *ControlCell) Get() float32  { return c.v[0] }
func (c *ControlCell) Set(v float32) { c.v[0] = v }

// Port is one vertex-local port: it knows its owning node, its kind, its
// index both within its kind and within the descriptor's combined port
// list, its fan-out (Links), whether it is exposed at the graph boundary,
// and — for control ports — the scalar cell a plugin reads from in place.
type Port struct {
	Node          *Node
	Name          string
	Kind          registry.PortKind
	IndexInKind   int
	DescPortIndex int

	Links []*Link
	// External holds the index at which this port is exposed at the
	// graph boundary, or NoExternal.
	External int

	// Control is non-nil only for control-in / control-out ports.
	Control *ControlCell

	// Buffers holds one audio buffer per replicated instance. Only
	// populated for audio-output ports, and only once the scheduler
	// allocates it (lazily, at compile time).
	Buffers [][]float32
}

// NLinks reports the port's current fan-out / fan-in count.
func (p *Port) NLinks() int { return len(p.Links) }

func newPort(n *Node, name string, kind registry.PortKind, indexInKind, descIdx int) *Port {
	return &Port{
		Node:          n,
		Name:          name,
		Kind:          kind,
		IndexInKind:   indexInKind,
		DescPortIndex: descIdx,
		External:      NoExternal,
	}
}
