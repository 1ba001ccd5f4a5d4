package graph

import (
	"errors"
	"testing"

	"github.com/shaban/filterchain/builtin"
	"github.com/shaban/filterchain/ferrors"
	"github.com/shaban/filterchain/registry"
)

func newTestCompiler() *Compiler {
	reg := registry.New(map[string]registry.Loader{"builtin": builtin.Loader{}})
	return &Compiler{Registry: reg, SampleRate: 48000}
}

func strp(s string) *string { return &s }

func mkChannels(n, frames int) [][]float32 {
	out := make([][]float32, n)
	for i := range out {
		out[i] = make([]float32, frames)
	}
	return out
}

// Scenario 1: identity copy, stereo in/out via replication.
func TestCompileIdentityCopy(t *testing.T) {
	c := newTestCompiler()
	desc := &Description{
		Nodes: []NodeSpec{{Type: "builtin", Name: "c", Label: "copy"}},
	}
	g, warnings, err := c.Compile(desc, 2, 2)
	if err != nil {
		t.Fatalf("compile: %v (warnings=%v)", err, warnings)
	}
	defer g.Close()

	if got := len(g.Schedule); got != 2 {
		t.Fatalf("schedule length = %d, want 2", got)
	}

	rt := NewRuntime(g)
	capture := [][]float32{{1, 2, 3}, {4, 5, 6}}
	playback := mkChannels(2, 3)
	if err := rt.Process(capture, playback); err != nil {
		t.Fatalf("process: %v", err)
	}
	want := [][]float32{{1, 2, 3}, {4, 5, 6}}
	for ch := range want {
		for i := range want[ch] {
			if playback[ch][i] != want[ch][i] {
				t.Fatalf("channel %d sample %d = %v, want %v", ch, i, playback[ch][i], want[ch][i])
			}
		}
	}
}

// Scenario 2: gain mixer.
func TestCompileGainMixer(t *testing.T) {
	c := newTestCompiler()
	desc := &Description{
		Nodes: []NodeSpec{{
			Type: "builtin", Name: "mixer", Label: "mixer",
			Control: map[string]float64{"Gain 1": 0.5, "Gain 2": 0.25},
		}},
		Inputs:  []*string{strp("mixer:In 1"), strp("mixer:In 2")},
		Outputs: []*string{strp("mixer:Out")},
	}
	g, _, err := c.Compile(desc, 2, 1)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	defer g.Close()

	rt := NewRuntime(g)
	capture := [][]float32{{1, 1, 1}, {4, 4, 4}}
	playback := mkChannels(1, 3)
	if err := rt.Process(capture, playback); err != nil {
		t.Fatalf("process: %v", err)
	}
	for i, v := range playback[0] {
		if v != 1.5 {
			t.Fatalf("sample %d = %v, want 1.5", i, v)
		}
	}
}

// Scenario 3: replication with no explicit boundary.
func TestCompileReplication(t *testing.T) {
	c := newTestCompiler()
	desc := &Description{
		Nodes: []NodeSpec{{Type: "builtin", Name: "c", Label: "copy"}},
	}
	g, _, err := c.Compile(desc, 2, 2)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	defer g.Close()
	if g.Nodes[0].N() != 2 {
		t.Fatalf("N = %d, want 2", g.Nodes[0].N())
	}
	if len(g.Schedule) != 2 {
		t.Fatalf("schedule length = %d, want 2", len(g.Schedule))
	}
}

// Scenario 4: fan-out requires copy / two links into one input fails.
func TestCompileFanOutAndInUse(t *testing.T) {
	c := newTestCompiler()
	fanOut := &Description{
		Nodes: []NodeSpec{
			{Type: "builtin", Name: "A", Label: "copy"},
			{Type: "builtin", Name: "B", Label: "copy"},
			{Type: "builtin", Name: "C", Label: "copy"},
		},
		Links: []LinkSpec{
			{Output: "A:Out", Input: "B:In"},
			{Output: "A:Out", Input: "C:In"},
		},
	}
	if _, _, err := c.Compile(fanOut, 1, 1); err != nil {
		t.Fatalf("fan-out compile: %v", err)
	}

	c2 := newTestCompiler()
	conflict := &Description{
		Nodes: []NodeSpec{
			{Type: "builtin", Name: "A", Label: "copy"},
			{Type: "builtin", Name: "B", Label: "copy"},
			{Type: "builtin", Name: "D", Label: "copy"},
		},
		Links: []LinkSpec{
			{Output: "A:Out", Input: "B:In"},
			{Output: "D:Out", Input: "B:In"},
		},
	}
	_, _, err := c2.Compile(conflict, 1, 1)
	if err == nil {
		t.Fatalf("expected IN_USE error, got nil")
	}
}

// Scenario 5: external re-use of the same port fails.
func TestCompileExternalReuseFails(t *testing.T) {
	c := newTestCompiler()
	desc := &Description{
		Nodes:  []NodeSpec{{Type: "builtin", Name: "A", Label: "copy"}},
		Inputs: []*string{strp("A:In"), strp("A:In")},
	}
	// 2 capture channels over 2 inputs and 1 playback channel over 1
	// output give N=1 on both sides, so compilation reaches port exposure.
	_, _, err := c.Compile(desc, 2, 1)
	if err == nil {
		t.Fatalf("expected IN_USE error, got nil")
	}
	var fe *ferrors.Error
	if !errors.As(err, &fe) || fe.Code != "IN_USE" {
		t.Fatalf("expected IN_USE error, got %v", err)
	}
}

// Scenario 6: control update + snapshot round trip.
func TestControlUpdateRoundTrip(t *testing.T) {
	c := newTestCompiler()
	desc := &Description{
		Nodes: []NodeSpec{{Type: "builtin", Name: "biquad1", Label: "lowpass"}},
	}
	g, _, err := c.Compile(desc, 1, 1)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	defer g.Close()

	before := map[string]float32{}
	for name := range g.controlParams {
		p, _ := g.ControlParam(name)
		before[name] = p.Control.Get()
	}

	p, ok := g.ControlParam("biquad1:Freq")
	if !ok {
		t.Fatalf("biquad1:Freq not found")
	}
	p.Control.Set(1000)

	for name, v := range before {
		if name == "biquad1:Freq" {
			continue
		}
		p, _ := g.ControlParam(name)
		if p.Control.Get() != v {
			t.Fatalf("unrelated control %q changed from %v to %v", name, v, p.Control.Get())
		}
	}
	if got, _ := g.ControlParam("biquad1:Freq"); got.Control.Get() != 1000 {
		t.Fatalf("biquad1:Freq = %v, want 1000", got.Control.Get())
	}
}

// Boundary: channel mismatch.
func TestCompileChannelMismatch(t *testing.T) {
	c := newTestCompiler()
	desc := &Description{
		Nodes: []NodeSpec{{
			Type: "builtin", Name: "mixer", Label: "mixer",
		}},
		Inputs:  []*string{strp("mixer:In 1"), strp("mixer:In 2")},
		Outputs: []*string{strp("mixer:Out")},
	}
	if _, _, err := c.Compile(desc, 2, 2); err == nil {
		t.Fatalf("expected ConfigError for channel mismatch, got nil")
	}
}

// Boundary: replication factor above MAX_INSTANCES is a CapacityError.
func TestCompileCapacityError(t *testing.T) {
	c := newTestCompiler()
	desc := &Description{
		Nodes: []NodeSpec{{Type: "builtin", Name: "c", Label: "copy"}},
	}
	_, _, err := c.Compile(desc, MaxInstances+1, MaxInstances+1)
	if err == nil {
		t.Fatalf("expected CapacityError, got nil")
	}
}

// Boundary: a cycle among links fails CYCLIC_GRAPH.
func TestCompileCyclicGraph(t *testing.T) {
	c := newTestCompiler()
	// A (mixer) and B form the cycle; A's free "In 2" and the unlinked
	// node C serve as the graph boundary so exposure succeeds and the
	// failure comes from scheduling.
	desc := &Description{
		Nodes: []NodeSpec{
			{Type: "builtin", Name: "A", Label: "mixer"},
			{Type: "builtin", Name: "B", Label: "copy"},
			{Type: "builtin", Name: "C", Label: "copy"},
		},
		Links: []LinkSpec{
			{Output: "A:Out", Input: "B:In"},
			{Output: "B:Out", Input: "A:In 1"},
		},
		Inputs:  []*string{strp("A:In 2")},
		Outputs: []*string{strp("C:Out")},
	}
	_, _, err := c.Compile(desc, 1, 1)
	if err == nil {
		t.Fatalf("expected CYCLIC_GRAPH error, got nil")
	}
	var fe *ferrors.Error
	if !errors.As(err, &fe) || fe.Code != "CYCLIC_GRAPH" {
		t.Fatalf("expected CYCLIC_GRAPH error, got %v", err)
	}
}
