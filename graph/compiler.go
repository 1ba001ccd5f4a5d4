package graph

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shaban/filterchain/ferrors"
	"github.com/shaban/filterchain/logging"
	"github.com/shaban/filterchain/registry"
)

// Compiler turns a Description into a runnable Graph. It never runs on
// the audio thread — only the control thread compiles graphs.
type Compiler struct {
	Registry   *registry.PluginRegistry
	SampleRate float64

	// MaxInstances caps the replication factor a compile will accept. Zero
	// (or negative) falls back to the package ceiling MaxInstances.
	MaxInstances int

	// Logger, if set, receives every compile-time warning (unknown
	// control name, forced N=1, ...) as it's produced. Compile also
	// returns the full list regardless.
	Logger logging.Logger
}

func (c *Compiler) maxInstances() int {
	if c.MaxInstances > 0 && c.MaxInstances < MaxInstances {
		return c.MaxInstances
	}
	return MaxInstances
}

func (c *Compiler) warn(warnings *[]string, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	*warnings = append(*warnings, msg)
	if c.Logger != nil {
		c.Logger.Warnf("%s", msg)
	}
}

// Compile parses desc into an executable Graph sized to the given
// capture/playback channel counts. On any error the graph is rolled back:
// every instance created so far is deactivated and cleaned up, and no
// partial graph escapes to the caller.
func (c *Compiler) Compile(desc *Description, channelsCapture, channelsPlayback int) (g *Graph, warnings []string, err error) {
	g = newGraph(c.Registry)
	built := g

	defer func() {
		if err != nil {
			built.rollback()
			g = nil
		}
	}()

	if len(desc.Nodes) == 0 {
		return nil, warnings, ferrors.New(ferrors.ConfigError, "EMPTY_GRAPH", "description has no nodes")
	}

	if err = c.phase1Materialize(g, desc, &warnings); err != nil {
		return nil, warnings, err
	}
	if err = c.phase2Links(g, desc.Links); err != nil {
		return nil, warnings, err
	}

	nIn, nOut, err := boundaryCounts(g, desc)
	if err != nil {
		return nil, warnings, err
	}

	n, err := c.phase3Instantiate(g, nIn, nOut, channelsCapture, channelsPlayback, &warnings)
	if err != nil {
		return nil, warnings, err
	}
	if err = c.phase4Expose(g, desc, nIn, nOut, n); err != nil {
		return nil, warnings, err
	}
	if err = c.phase5Schedule(g); err != nil {
		return nil, warnings, err
	}

	g.NumCaptureChannels = channelsCapture
	g.NumPlaybackChannels = channelsPlayback
	g.SampleRate = c.SampleRate
	g.Positions = desc.Positions
	return g, warnings, nil
}

// rollback deactivates and cleans up every instance created so far. Safe
// to call on a graph that never made it past P1 (no instances exist yet).
func (g *Graph) rollback() {
	for _, n := range g.Nodes {
		vt := n.Descriptor.VTable
		for _, h := range n.Instances {
			if vt.Deactivate != nil {
				_ = vt.Deactivate(h)
			}
			if vt.Cleanup != nil {
				_ = vt.Cleanup(h)
			}
		}
		g.registry.ReleaseDescriptor(n.Descriptor)
	}
}

// phase1Materialize resolves every NodeSpec to a Descriptor, allocates its
// Node and ports, and applies control overrides by name.
func (c *Compiler) phase1Materialize(g *Graph, desc *Description, warnings *[]string) error {
	for _, spec := range desc.Nodes {
		typ := spec.Type
		if typ == "" {
			return ferrors.New(ferrors.ConfigError, "MISSING_TYPE", "node %q missing type", spec.Name)
		}
		plugin := spec.Plugin
		if typ == "builtin" {
			plugin = "builtin"
		}
		if plugin == "" {
			return ferrors.New(ferrors.ConfigError, "MISSING_PLUGIN", "node %q missing plugin path", spec.Name)
		}
		if spec.Label == "" {
			return ferrors.New(ferrors.ConfigError, "MISSING_LABEL", "node %q missing label", spec.Name)
		}

		p, err := c.Registry.Load(typ, plugin)
		if err != nil {
			return err
		}
		d, err := c.Registry.Descriptor(p, spec.Label, c.SampleRate)
		if err != nil {
			return err
		}

		n := newNode(spec.Name, d, spec.Config)
		g.Nodes = append(g.Nodes, n)
		g.registerControlParams(n)

		for name, val := range spec.Control {
			port, found := findControlIn(n, name)
			if !found {
				c.warn(warnings, "node %q: unknown control name %q ignored", spec.Name, name)
				continue
			}
			port.Control.Set(float32(val))
		}
	}
	return nil
}

func findControlIn(n *Node, name string) (*Port, bool) {
	for _, p := range n.ControlIn {
		if p.Name == name {
			return p, true
		}
	}
	return nil, false
}

// phase2Links resolves every LinkSpec against the node list, enforcing
// the single-incoming-link and audio-only rules.
func (c *Compiler) phase2Links(g *Graph, specs []LinkSpec) error {
	if len(g.Nodes) == 0 {
		return nil
	}
	first := g.Nodes[0]
	last := g.Nodes[len(g.Nodes)-1]

	for _, spec := range specs {
		out, err := resolvePortRef(g.Nodes, spec.Output, last, registry.AudioOut)
		if err != nil {
			return err
		}
		in, err := resolvePortRef(g.Nodes, spec.Input, first, registry.AudioIn)
		if err != nil {
			return err
		}
		if len(in.Links) != 0 {
			return ferrors.New(ferrors.ConfigError, "IN_USE", "input port %q:%q already linked", in.Node.Name, in.Name)
		}

		link := &Link{Output: out, Input: in}
		g.Links = append(g.Links, link)
		out.Links = append(out.Links, link)
		in.Links = append(in.Links, link)
		in.Node.inDegree++
	}
	return nil
}

// resolvePortRef resolves a PortRef ("node:port", bare "port", or a
// decimal index) against defaultNode when no "node:" prefix is present.
func resolvePortRef(nodes []*Node, ref string, defaultNode *Node, kind registry.PortKind) (*Port, error) {
	node := defaultNode
	token := ref
	if idx := strings.IndexByte(ref, ':'); idx >= 0 {
		name := ref[:idx]
		token = ref[idx+1:]
		found := false
		for _, n := range nodes {
			if n.Name == name {
				node = n
				found = true
				break
			}
		}
		if !found {
			return nil, ferrors.New(ferrors.ConfigError, "UNKNOWN_NODE", "no such node %q in port ref %q", name, ref)
		}
	}
	if node == nil {
		return nil, ferrors.New(ferrors.ConfigError, "UNKNOWN_NODE", "no default node available for port ref %q", ref)
	}

	var list []*Port
	if kind == registry.AudioOut {
		list = node.AudioOut
	} else {
		list = node.AudioIn
	}

	if i, err := strconv.Atoi(token); err == nil && i >= 0 && i < len(list) {
		return list[i], nil
	}
	for _, p := range list {
		if p.Name == token {
			return p, nil
		}
	}
	return nil, ferrors.New(ferrors.ConfigError, "UNKNOWN_PORT", "node %q has no %s port %q", node.Name, kind, token)
}

// boundaryCounts resolves n_in/n_out: the length of desc.Inputs/Outputs
// when given, else the first node's audio-in count / the last node's
// audio-out count. Both must be > 0.
func boundaryCounts(g *Graph, desc *Description) (nIn, nOut int, err error) {
	first := g.Nodes[0]
	last := g.Nodes[len(g.Nodes)-1]

	if desc.Inputs != nil {
		nIn = len(desc.Inputs)
	} else {
		nIn = len(first.AudioIn)
	}
	if desc.Outputs != nil {
		nOut = len(desc.Outputs)
	} else {
		nOut = len(last.AudioOut)
	}
	if nIn == 0 || nOut == 0 {
		return 0, 0, ferrors.New(ferrors.ConfigError, "NO_BOUNDARY_PORTS", "n_in=%d, n_out=%d", nIn, nOut)
	}
	return nIn, nOut, nil
}

// phase3Instantiate computes the replication factor N, creates N
// instances per node at the runtime sample rate, pre-wires every port to
// the shared scratch buffers, connects control ports to their cells, and
// activates every instance.
func (c *Compiler) phase3Instantiate(g *Graph, nIn, nOut, channelsCapture, channelsPlayback int, warnings *[]string) (n int, err error) {
	n = channelsCapture / nIn
	if channelsPlayback/nOut != n {
		return 0, ferrors.New(ferrors.ConfigError, "CHANNEL_MISMATCH",
			"channels_capture=%d / n_in=%d != channels_playback=%d / n_out=%d", channelsCapture, nIn, channelsPlayback, nOut)
	}
	if n == 0 {
		c.warn(warnings, "replication factor computed as 0 (channels_capture=%d < n_in=%d); forcing N=1, some channels will be unconnected", channelsCapture, nIn)
		n = 1
	}
	if max := c.maxInstances(); n > max {
		return 0, ferrors.New(ferrors.CapacityError, "TOO_MANY_INSTANCES", "replication factor %d exceeds MAX_INSTANCES %d", n, max)
	}

	for _, node := range g.Nodes {
		d := node.Descriptor
		vt := d.VTable
		for i := 0; i < n; i++ {
			h, err := vt.Instantiate(c.SampleRate, node.Config)
			if err != nil {
				return 0, ferrors.Wrap(ferrors.ResourceError, "INSTANTIATE_FAILED", err, "node %q instance %d", node.Name, i)
			}
			node.Instances = append(node.Instances, h)

			for _, p := range node.AudioIn {
				if err := vt.ConnectAudioPort(h, p.DescPortIndex, silence); err != nil {
					return 0, err
				}
			}
			for _, p := range node.AudioOut {
				if err := vt.ConnectAudioPort(h, p.DescPortIndex, discard); err != nil {
					return 0, err
				}
			}
			if vt.ConnectControlPort != nil {
				for _, p := range node.ControlIn {
					if err := vt.ConnectControlPort(h, p.DescPortIndex, p.Control.Ptr()); err != nil {
						return 0, err
					}
				}
				for _, p := range node.ControlOut {
					if err := vt.ConnectControlPort(h, p.DescPortIndex, p.Control.Ptr()); err != nil {
						return 0, err
					}
				}
			}
		}
		if vt.Activate != nil {
			for _, h := range node.Instances {
				if err := vt.Activate(h); err != nil {
					return 0, ferrors.Wrap(ferrors.ResourceError, "ACTIVATE_FAILED", err, "node %q", node.Name)
				}
			}
		}
	}
	return n, nil
}

// phase4Expose builds the input/output mux tables from desc.Inputs /
// desc.Outputs, defaulting to the first node's audio-in ports and the
// last node's audio-out ports in order when absent.
func (c *Compiler) phase4Expose(g *Graph, desc *Description, nIn, nOut, n int) error {
	first := g.Nodes[0]
	last := g.Nodes[len(g.Nodes)-1]

	inPorts, err := resolveBoundaryPorts(g.Nodes, desc.Inputs, first, nIn, registry.AudioIn)
	if err != nil {
		return err
	}
	outPorts, err := resolveBoundaryPorts(g.Nodes, desc.Outputs, last, nOut, registry.AudioOut)
	if err != nil {
		return err
	}

	g.InputMux = make([][]MuxBinding, nIn*n)
	for j, p := range inPorts {
		if p == nil {
			continue
		}
		if err := markExternal(p, j); err != nil {
			return err
		}
		for i := 0; i < n; i++ {
			g.InputMux[i*nIn+j] = []MuxBinding{{Port: p, Instance: i}}
		}
	}

	g.OutputMux = make([][]MuxBinding, nOut*n)
	for j, p := range outPorts {
		if p == nil {
			continue
		}
		if err := markExternal(p, j); err != nil {
			return err
		}
		for i := 0; i < n; i++ {
			g.OutputMux[i*nOut+j] = []MuxBinding{{Port: p, Instance: i}}
		}
	}
	return nil
}

func markExternal(p *Port, index int) error {
	if p.External != NoExternal {
		return ferrors.New(ferrors.ConfigError, "IN_USE", "port %q:%q already exposed externally", p.Node.Name, p.Name)
	}
	if len(p.Links) != 0 {
		return ferrors.New(ferrors.ConfigError, "IN_USE", "port %q:%q is already linked, cannot also expose externally", p.Node.Name, p.Name)
	}
	p.External = index
	return nil
}

// resolveBoundaryPorts returns one port per logical boundary slot, in
// order; a nil refs slice defaults to defaultNode's ports of kind, in
// declaration order; a nil entry in refs yields a nil slot (channel
// dropped).
func resolveBoundaryPorts(nodes []*Node, refs []*string, defaultNode *Node, want int, kind registry.PortKind) ([]*Port, error) {
	if refs == nil {
		var list []*Port
		if kind == registry.AudioIn {
			list = defaultNode.AudioIn
		} else {
			list = defaultNode.AudioOut
		}
		out := make([]*Port, len(list))
		copy(out, list)
		return out, nil
	}
	out := make([]*Port, len(refs))
	for i, ref := range refs {
		if ref == nil {
			continue
		}
		p, err := resolvePortRef(nodes, *ref, defaultNode, kind)
		if err != nil {
			return nil, err
		}
		out[i] = p
	}
	return out, nil
}

// phase5Schedule topologically orders the node DAG (Kahn's algorithm,
// ties broken by insertion order), wires every link's input port to its
// peer's per-instance output buffer, allocates output buffers, and
// builds the flat execution schedule and control-port table.
func (c *Compiler) phase5Schedule(g *Graph) error {
	remaining := len(g.Nodes)
	for remaining > 0 {
		progressed := false
		for _, node := range g.Nodes {
			if node.visited || node.inDegree > 0 {
				continue
			}
			node.visited = true
			remaining--
			progressed = true

			vt := node.Descriptor.VTable
			n := node.N()

			for _, p := range node.AudioIn {
				if len(p.Links) == 0 {
					continue
				}
				peer := p.Links[0].Output
				for i := 0; i < n; i++ {
					if err := vt.ConnectAudioPort(node.Instances[i], p.DescPortIndex, peer.Buffers[i]); err != nil {
						return err
					}
				}
			}

			for i := 0; i < n; i++ {
				g.Schedule = append(g.Schedule, ScheduleEntry{Node: node, Instance: i})
			}

			for _, p := range node.AudioOut {
				if p.Buffers == nil {
					p.Buffers = make([][]float32, n)
					for i := range p.Buffers {
						p.Buffers[i] = make([]float32, ScratchBlockFrames)
					}
				}
				for i := 0; i < n; i++ {
					if err := vt.ConnectAudioPort(node.Instances[i], p.DescPortIndex, p.Buffers[i]); err != nil {
						return err
					}
				}
				for _, link := range p.Links {
					link.Input.Node.inDegree--
				}
			}

			g.ControlPorts = append(g.ControlPorts, node.ControlIn...)
			g.ControlPorts = append(g.ControlPorts, node.ControlOut...)
		}
		if !progressed {
			return ferrors.New(ferrors.ConfigError, "CYCLIC_GRAPH", "graph contains a cycle")
		}
	}
	return nil
}
