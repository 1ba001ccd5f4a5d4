package graph

import "encoding/json"

// Description is the declarative graph description the compiler consumes,
// the JSON shape described for the graph description external interface:
// nodes plus optional links and boundary bindings.
type Description struct {
	Nodes   []NodeSpec  `json:"nodes"`
	Links   []LinkSpec  `json:"links,omitempty"`
	Inputs  []*string   `json:"inputs,omitempty"`
	Outputs []*string   `json:"outputs,omitempty"`
	// Positions carries an optional informational channel label per
	// playback channel (e.g. "FL", "FR"); purely advisory metadata that
	// does not affect compilation. It is copied onto Graph.Positions; the
	// control bridge does not report it.
	Positions []string `json:"positions,omitempty"`
}

// NodeSpec describes one graph vertex before compilation.
type NodeSpec struct {
	Type    string             `json:"type"`
	Name    string             `json:"name,omitempty"`
	Plugin  string             `json:"plugin,omitempty"`
	Label   string             `json:"label"`
	Config  json.RawMessage    `json:"config,omitempty"`
	Control map[string]float64 `json:"control,omitempty"`
}

// LinkSpec names one edge by port reference; each side is either
// "<node_name>:<port_name>", a bare port name, or a decimal port index,
// resolved against a default node depending on which side it's on (see
// the compiler's link-resolution phase).
type LinkSpec struct {
	Output string `json:"output"`
	Input  string `json:"input"`
}
