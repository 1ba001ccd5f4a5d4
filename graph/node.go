package graph

import (
	"fmt"

	"github.com/shaban/filterchain/registry"
)

// Node is one compiled vertex: a descriptor shared (by refcount) with
// every other node wired to the same plugin/label, plus N parallel
// instances — N is the replication factor, resolved once at compile time
// and shared by every node of the graph: the capture channel count
// divided by the number of graph input ports.
type Node struct {
	Name       string
	Descriptor *registry.Descriptor
	Config     []byte

	AudioIn    []*Port
	AudioOut   []*Port
	ControlIn  []*Port
	ControlOut []*Port

	Instances []registry.Handle

	// inDegree / visited are scratch state for the P5 topological sort
	// and are reset at the start of each compile.
	inDegree int
	visited  bool
}

func newNode(name string, d *registry.Descriptor, config []byte) *Node {
	n := &Node{Name: name, Descriptor: d, Config: config}
	for i, idx := range d.AudioInIdx {
		n.AudioIn = append(n.AudioIn, newPort(n, d.Ports[idx].Name, registry.AudioIn, i, idx))
	}
	for i, idx := range d.AudioOutIdx {
		n.AudioOut = append(n.AudioOut, newPort(n, d.Ports[idx].Name, registry.AudioOut, i, idx))
	}
	for i, idx := range d.ControlInIdx {
		p := newPort(n, d.Ports[idx].Name, registry.ControlIn, i, idx)
		p.Control = &ControlCell{}
		p.Control.Set(float32(d.Defaults[i]))
		n.ControlIn = append(n.ControlIn, p)
	}
	for i, idx := range d.ControlOutIdx {
		p := newPort(n, d.Ports[idx].Name, registry.ControlOut, i, idx)
		p.Control = &ControlCell{}
		n.ControlOut = append(n.ControlOut, p)
	}
	return n
}

// PortByName resolves a port by its descriptor-declared name, searching
// audio ports before control ports (names do not collide across a real
// descriptor, but the search order is deterministic regardless).
func (n *Node) PortByName(name string) (*Port, error) {
	for _, p := range n.AudioIn {
		if p.Name == name {
			return p, nil
		}
	}
	for _, p := range n.AudioOut {
		if p.Name == name {
			return p, nil
		}
	}
	for _, p := range n.ControlIn {
		if p.Name == name {
			return p, nil
		}
	}
	for _, p := range n.ControlOut {
		if p.Name == name {
			return p, nil
		}
	}
	return nil, fmt.Errorf("node %q: no such port %q", n.Name, name)
}

// N reports the node's replication factor, i.e. how many parallel
// instances it runs as. Zero until the compiler's replication phase runs.
func (n *Node) N() int { return len(n.Instances) }
