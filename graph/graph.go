// Package graph compiles a declarative node/edge description into an
// executable dataflow graph and runs it block-by-block without
// allocating on the hot path.
package graph

import (
	"fmt"

	"github.com/shaban/filterchain/registry"
)

// MuxBinding names one (port, instance) pair a graph boundary channel
// reads from or writes to.
type MuxBinding struct {
	Port     *Port
	Instance int
}

// ScheduleEntry is one node-instance pair in the flat execution order.
type ScheduleEntry struct {
	Node     *Node
	Instance int
}

// Graph is a compiled, runnable filter chain: nodes, the links between
// them resolved into a schedule, and the mux tables that bridge the
// graph's audio-in/audio-out ports to the host's capture/playback
// channels.
type Graph struct {
	registry *registry.PluginRegistry

	Nodes []*Node
	Links []*Link

	// Schedule is the flat execution order, one entry per (node, instance)
	// pair, in topological order (P5). Its length is Σ(nodes) × N.
	Schedule []ScheduleEntry

	// ControlPorts lists every control port in schedule order, the order
	// ControlBridge parameter discovery walks.
	ControlPorts []*Port

	// InputMux[i] lists the (port, instance) that channel i of the host's
	// capture buffer feeds; OutputMux[i] lists the (port, instance) that
	// writes channel i of the host's playback buffer directly. The
	// compiler puts at most one binding in each slot; an empty slot drops
	// the capture channel or silences the playback channel.
	InputMux  [][]MuxBinding
	OutputMux [][]MuxBinding

	// Positions carries the description's optional informational labels
	// for playback channels (e.g. "FL", "FR", "LFE"); purely advisory,
	// it does not affect routing. Indexed like OutputMux.
	Positions []string

	NumCaptureChannels  int
	NumPlaybackChannels int
	SampleRate          float64
	BlockSize           int

	// CaptureGain / PlaybackGain are synthetic whole-chain control ports
	// the graph itself owns (not any node's): CaptureGain scales the
	// capture samples fed to the graph's input ports before the schedule
	// runs, and PlaybackGain scales the host's playback buffer after the
	// schedule runs.
	CaptureGain  *ControlCell
	PlaybackGain *ControlCell

	// controlParams indexes every control port by its "<node>:<port>"
	// name for the control bridge, or bare "<port>" for an anonymous
	// (unnamed) node.
	controlParams map[string]*Port
}

func newGraph(reg *registry.PluginRegistry) *Graph {
	g := &Graph{
		registry:      reg,
		CaptureGain:   &ControlCell{},
		PlaybackGain:  &ControlCell{},
		controlParams: make(map[string]*Port),
	}
	g.CaptureGain.Set(1)
	g.PlaybackGain.Set(1)
	return g
}

func controlParamName(n *Node, portName string) string {
	if n.Name == "" {
		return portName
	}
	return n.Name + ":" + portName
}

func (g *Graph) registerControlParams(n *Node) {
	for _, p := range n.ControlIn {
		g.controlParams[controlParamName(n, p.Name)] = p
	}
	for _, p := range n.ControlOut {
		g.controlParams[controlParamName(n, p.Name)] = p
	}
}

// ControlParam looks up a control port by its "<node>:<port>" name.
func (g *Graph) ControlParam(name string) (*Port, bool) {
	p, ok := g.controlParams[name]
	return p, ok
}

// ControlParams returns every known "<node>:<port>" name, for discovery.
func (g *Graph) ControlParams() []string {
	names := make([]string, 0, len(g.controlParams))
	for name := range g.controlParams {
		names = append(names, name)
	}
	return names
}

// NodeByName finds a compiled node, or reports an error.
func (g *Graph) NodeByName(name string) (*Node, error) {
	for _, n := range g.Nodes {
		if n.Name == name {
			return n, nil
		}
	}
	return nil, fmt.Errorf("graph: no such node %q", name)
}

// Close tears down every instance (Deactivate + Cleanup) and releases
// every descriptor and plugin the graph holds, in the mirror order of
// how the compiler acquired them.
func (g *Graph) Close() error {
	var firstErr error
	for _, n := range g.Nodes {
		vt := n.Descriptor.VTable
		for _, h := range n.Instances {
			if vt.Deactivate != nil {
				if err := vt.Deactivate(h); err != nil && firstErr == nil {
					firstErr = err
				}
			}
			if vt.Cleanup != nil {
				if err := vt.Cleanup(h); err != nil && firstErr == nil {
					firstErr = err
				}
			}
		}
		g.registry.ReleaseDescriptor(n.Descriptor)
		g.registry.ReleasePlugin(n.Descriptor.Plugin)
	}
	return firstErr
}
