package filterchain

import (
	"strings"
	"testing"

	"github.com/shaban/filterchain/config"
	"github.com/shaban/filterchain/graph"
	"github.com/shaban/filterchain/internal/testutil"
)

func strp(s string) *string { return &s }

func newTestEngine(t *testing.T, capture, playback int) *Engine {
	t.Helper()
	e, err := NewEngine(EngineConfig{Preferences: config.Preferences{
		LatencyHint:      config.LatencyLow,
		ChannelsCapture:  capture,
		ChannelsPlayback: playback,
	}})
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	t.Cleanup(func() { e.Close() })
	return e
}

func TestEngineCompileAndProcessGainMixer(t *testing.T) {
	e := newTestEngine(t, 2, 1)

	desc := &graph.Description{
		Nodes: []graph.NodeSpec{{
			Type: "builtin", Name: "mixer", Label: "mixer",
			Control: map[string]float64{"Gain 1": 0.5, "Gain 2": 0.25},
		}},
		Inputs:  []*string{strp("mixer:In 1"), strp("mixer:In 2")},
		Outputs: []*string{strp("mixer:Out")},
	}
	if err := e.Compile(desc); err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if !strings.Contains(e.Name(), "filterchain") {
		t.Fatalf("Name() = %q", e.Name())
	}

	capture := [][]float32{{1, 1, 1}, {4, 4, 4}}
	playback := [][]float32{{0, 0, 0}}
	if err := e.Process(capture, playback); err != nil {
		t.Fatalf("Process: %v", err)
	}
	for i, v := range playback[0] {
		if v != 1.5 {
			t.Fatalf("sample %d = %v, want 1.5", i, v)
		}
	}
}

func TestEngineProcessBeforeCompileFails(t *testing.T) {
	e := newTestEngine(t, 1, 1)
	capture := [][]float32{{0, 0}}
	playback := [][]float32{{0, 0}}
	if err := e.Process(capture, playback); err == nil {
		t.Fatalf("expected error processing before any Compile")
	}
}

func TestEngineIdentityCopyProcess(t *testing.T) {
	e := newTestEngine(t, 1, 1)

	desc := &graph.Description{
		Nodes: []graph.NodeSpec{{Type: "builtin", Name: "c", Label: "copy"}},
	}
	if err := e.Compile(desc); err != nil {
		t.Fatalf("Compile: %v", err)
	}

	capture := [][]float32{{1, 2, 3}}
	playback := [][]float32{{0, 0, 0}}
	if err := e.Process(capture, playback); err != nil {
		t.Fatalf("Process: %v", err)
	}
	testutil.AssertRMSAbove(t, playback[0], 1.9)
	for i, v := range capture[0] {
		if playback[0][i] != v {
			t.Fatalf("playback[%d] = %v, want %v", i, playback[0][i], v)
		}
	}
}

func TestEngineStartRequiresCompile(t *testing.T) {
	e := newTestEngine(t, 1, 1)
	if err := e.Start(); err == nil {
		t.Fatalf("expected error starting before any Compile")
	}
	desc := &graph.Description{Nodes: []graph.NodeSpec{{Type: "builtin", Name: "c", Label: "copy"}}}
	if err := e.Compile(desc); err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if err := e.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !e.IsRunning() {
		t.Fatalf("IsRunning() = false after Start")
	}
}

func TestSerializerRoundTrip(t *testing.T) {
	e := newTestEngine(t, 1, 1)

	desc := &graph.Description{
		Nodes: []graph.NodeSpec{{Type: "builtin", Name: "bq", Label: "lowpass"}},
	}
	if err := e.Compile(desc); err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if changed := e.Bridge().Set("bq:Freq", 500); changed != 1 {
		t.Fatalf("Set bq:Freq changed = %d, want 1", changed)
	}

	s := NewSerializer(e)
	blob, err := s.SaveToJSON(desc)
	if err != nil {
		t.Fatalf("SaveToJSON: %v", err)
	}

	// Recompile to a fresh default (Freq back to its descriptor default),
	// then restore from the saved blob and confirm the value comes back.
	if err := e.Compile(desc); err != nil {
		t.Fatalf("Compile (reset): %v", err)
	}
	for _, p := range e.Bridge().Snapshot() {
		if p.Name == "bq:Freq" && p.Value == 500 {
			t.Fatalf("bq:Freq unexpectedly still 500 after recompiling from a plain description")
		}
	}

	if err := s.LoadFromJSON(blob); err != nil {
		t.Fatalf("LoadFromJSON: %v", err)
	}
	found := false
	for _, p := range e.Bridge().Snapshot() {
		if p.Name == "bq:Freq" && p.Value == 500 {
			found = true
		}
	}
	if !found {
		t.Fatalf("bq:Freq not restored to 500")
	}
}
