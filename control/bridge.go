// Package control implements the bridge between the non-real-time
// control surface and a compiled graph's control ports.
package control

import (
	"encoding/json"

	"github.com/shaban/filterchain/graph"
	"github.com/shaban/filterchain/logging"
	"github.com/shaban/filterchain/queue"
	"github.com/shaban/filterchain/registry"
)

// ParamType classifies a control port's value for a control-surface UI.
type ParamType int

const (
	ParamFloat ParamType = iota
	ParamInt
	ParamBool
)

// ParamInfo describes one discovered parameter.
type ParamInfo struct {
	Name string
	Type ParamType
	Min  float64
	Max  float64
}

// Param is one (name, value) pair, the wire shape for Snapshot/ApplyJSON.
type Param struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// Bridge accepts control-value updates and surfaces them into the
// currently published graph's control ports. It holds no graph state of
// its own — every call reads the dispatcher's current publication, so a
// recompile is picked up on the next call with no extra wiring.
type Bridge struct {
	d      *queue.Dispatcher
	logger logging.Logger
}

// New wires a Bridge to the graphs a Dispatcher publishes, logging
// through logger. A nil logger is replaced with logging.Nop.
func New(d *queue.Dispatcher, logger logging.Logger) *Bridge {
	if logger == nil {
		logger = logging.Nop{}
	}
	return &Bridge{d: d, logger: logger}
}

func paramName(p *graph.Port) string {
	if p.Node.Name == "" {
		return p.Name
	}
	return p.Node.Name + ":" + p.Name
}

// Params lists every discoverable parameter, in graph.control_port order,
// led by the two graph-owned synthetic gain parameters also reported by
// Snapshot.
func (b *Bridge) Params() []ParamInfo {
	g, _ := b.d.Current()
	if g == nil {
		return nil
	}
	out := make([]ParamInfo, 0, len(g.ControlPorts)+2)
	out = append(out,
		ParamInfo{Name: "capture_gain", Type: ParamFloat, Min: 0.0, Max: 2.0},
		ParamInfo{Name: "playback_gain", Type: ParamFloat, Min: 0.0, Max: 2.0},
	)
	for _, p := range g.ControlPorts {
		def := p.Node.Descriptor.Ports[p.DescPortIndex]
		typ := ParamFloat
		switch {
		case def.Min == def.Max:
			typ = ParamBool
		case def.Hint.Has(registry.HintBoolean):
			typ = ParamBool
		case def.Hint.Has(registry.HintInteger):
			typ = ParamInt
		}
		out = append(out, ParamInfo{Name: paramName(p), Type: typ, Min: def.Min, Max: def.Max})
	}
	return out
}

// Set finds the named parameter, coerces value, and writes it if it
// differs from the current cell value, returning the number changed (0
// or 1). Unknown names are ignored. Also exposes the two graph-owned
// synthetic gain parameters, "capture_gain" and "playback_gain".
func (b *Bridge) Set(name string, value float64) int {
	g, _ := b.d.Current()
	if g == nil {
		return 0
	}
	cell := b.resolveCell(g, name)
	if cell == nil {
		b.logger.Warnf("Set: unknown parameter %q ignored", name)
		return 0
	}
	if float64(cell.Get()) == value {
		return 0
	}
	cell.Set(float32(value))
	return 1
}

func (b *Bridge) resolveCell(g *graph.Graph, name string) *graph.ControlCell {
	switch name {
	case "capture_gain":
		return g.CaptureGain
	case "playback_gain":
		return g.PlaybackGain
	}
	if p, ok := g.ControlParam(name); ok {
		return p.Control
	}
	return nil
}

// Snapshot emits every parameter's current value, in a stable order.
func (b *Bridge) Snapshot() []Param {
	g, _ := b.d.Current()
	if g == nil {
		return nil
	}
	out := make([]Param, 0, len(g.ControlPorts)+2)
	out = append(out, Param{Name: "capture_gain", Value: float64(g.CaptureGain.Get())})
	out = append(out, Param{Name: "playback_gain", Value: float64(g.PlaybackGain.Get())})
	for _, p := range g.ControlPorts {
		out = append(out, Param{Name: paramName(p), Value: float64(p.Control.Get())})
	}
	return out
}

// SnapshotJSON marshals Snapshot deterministically.
func (b *Bridge) SnapshotJSON() ([]byte, error) {
	return json.Marshal(b.Snapshot())
}

// ApplyJSON parses a snapshot-shaped blob, applies every entry via Set,
// and — if anything changed — returns the fresh snapshot bytes so the
// caller can push it back to observers.
func (b *Bridge) ApplyJSON(data []byte) (changed int, snapshot []byte, err error) {
	var params []Param
	if err := json.Unmarshal(data, &params); err != nil {
		return 0, nil, err
	}
	for _, p := range params {
		changed += b.Set(p.Name, p.Value)
	}
	if changed == 0 {
		return 0, nil, nil
	}
	snapshot, err = b.SnapshotJSON()
	return changed, snapshot, err
}
