package builtin

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/shaban/filterchain/registry"
)

func portIndex(raw *registry.RawDescriptor, name string) int {
	for i, p := range raw.Ports {
		if p.Name == name {
			return i
		}
	}
	return -1
}

func connectAudio(t *testing.T, raw *registry.RawDescriptor, h registry.Handle, name string, buf []float32) {
	t.Helper()
	idx := portIndex(raw, name)
	if idx < 0 {
		t.Fatalf("no such port %q on %q", name, raw.Label)
	}
	if err := raw.VTable.ConnectAudioPort(h, idx, buf); err != nil {
		t.Fatalf("connect audio %q: %v", name, err)
	}
}

func connectControl(t *testing.T, raw *registry.RawDescriptor, h registry.Handle, name string, cell *float32) {
	t.Helper()
	idx := portIndex(raw, name)
	if idx < 0 {
		t.Fatalf("no such port %q on %q", name, raw.Label)
	}
	if err := raw.VTable.ConnectControlPort(h, idx, cell); err != nil {
		t.Fatalf("connect control %q: %v", name, err)
	}
}

func TestMixerSumsWeightedInputs(t *testing.T) {
	raw, err := library{}.MakeDescriptor("mixer")
	if err != nil {
		t.Fatalf("MakeDescriptor: %v", err)
	}
	h, err := raw.VTable.Instantiate(48000, nil)
	if err != nil {
		t.Fatalf("Instantiate: %v", err)
	}

	in1 := []float32{1, 1, 1}
	in2 := []float32{4, 4, 4}
	out := make([]float32, 3)
	gain1 := float32(0.5)
	gain2 := float32(0.25)

	connectAudio(t, raw, h, "In 1", in1)
	connectAudio(t, raw, h, "In 2", in2)
	connectAudio(t, raw, h, "Out", out)
	connectControl(t, raw, h, "Gain 1", &gain1)
	connectControl(t, raw, h, "Gain 2", &gain2)

	if err := raw.VTable.Run(h, 3); err != nil {
		t.Fatalf("Run: %v", err)
	}
	for i, v := range out {
		if v != 1.5 {
			t.Fatalf("out[%d] = %v, want 1.5", i, v)
		}
	}
}

func TestCopyIsIdentity(t *testing.T) {
	raw, _ := library{}.MakeDescriptor("copy")
	h, _ := raw.VTable.Instantiate(48000, nil)

	in := []float32{1, 2, 3}
	out := make([]float32, 3)
	connectAudio(t, raw, h, "In", in)
	connectAudio(t, raw, h, "Out", out)

	if err := raw.VTable.Run(h, 3); err != nil {
		t.Fatalf("Run: %v", err)
	}
	for i, v := range out {
		if v != in[i] {
			t.Fatalf("out[%d] = %v, want %v", i, v, in[i])
		}
	}
}

func TestBiquadLowpassAttenuatesHighFrequency(t *testing.T) {
	raw, _ := library{}.MakeDescriptor("lowpass")
	h, _ := raw.VTable.Instantiate(48000, nil)

	const n = 512
	in := make([]float32, n)
	out := make([]float32, n)
	freq := float32(200)
	q := float32(0.707)
	gain := float32(0)
	connectAudio(t, raw, h, "In", in)
	connectAudio(t, raw, h, "Out", out)
	connectControl(t, raw, h, "Freq", &freq)
	connectControl(t, raw, h, "Q", &q)
	connectControl(t, raw, h, "Gain", &gain)

	for i := range in {
		in[i] = float32(math.Sin(2 * math.Pi * 20000 * float64(i) / 48000))
	}
	if err := raw.VTable.Run(h, n); err != nil {
		t.Fatalf("Run: %v", err)
	}

	var inEnergy, outEnergy float64
	// Skip the filter's settling region before comparing steady-state energy.
	for i := n / 2; i < n; i++ {
		inEnergy += float64(in[i]) * float64(in[i])
		outEnergy += float64(out[i]) * float64(out[i])
	}
	if outEnergy >= inEnergy*0.1 {
		t.Fatalf("lowpass did not attenuate high frequency: in energy %v, out energy %v", inEnergy, outEnergy)
	}
}

func TestConvolverDiracIsIdentity(t *testing.T) {
	cfg, _ := json.Marshal(map[string]any{"source": "dirac", "length": 1})
	raw, _ := library{}.MakeDescriptor("convolver")
	h, err := raw.VTable.Instantiate(48000, cfg)
	if err != nil {
		t.Fatalf("Instantiate: %v", err)
	}

	in := []float32{1, 2, 3, 4}
	out := make([]float32, 4)
	connectAudio(t, raw, h, "In", in)
	connectAudio(t, raw, h, "Out", out)

	if err := raw.VTable.Run(h, len(in)); err != nil {
		t.Fatalf("Run: %v", err)
	}
	for i, v := range out {
		if math.Abs(float64(v-in[i])) > 1e-4 {
			t.Fatalf("out[%d] = %v, want ~%v", i, v, in[i])
		}
	}
}

func TestDelayProducesExpectedLag(t *testing.T) {
	cfg, _ := json.Marshal(delayConfig{MaxDelay: 1})
	raw, _ := library{}.MakeDescriptor("delay")
	h, err := raw.VTable.Instantiate(48000, cfg)
	if err != nil {
		t.Fatalf("Instantiate: %v", err)
	}

	const n = 100
	in := make([]float32, n)
	in[0] = 1
	out := make([]float32, n)
	delaySeconds := float32(10.0 / 48000.0)
	connectAudio(t, raw, h, "In", in)
	connectAudio(t, raw, h, "Out", out)
	connectControl(t, raw, h, "Delay (s)", &delaySeconds)

	if err := raw.VTable.Run(h, n); err != nil {
		t.Fatalf("Run: %v", err)
	}

	peak := 0
	peakVal := float32(0)
	for i, v := range out {
		if v > peakVal {
			peakVal = v
			peak = i
		}
	}
	if peak < 8 || peak > 12 {
		t.Fatalf("impulse peak at sample %d, want near 10", peak)
	}
}

func TestBuiltinLoaderUnknownLabel(t *testing.T) {
	if _, err := (library{}).MakeDescriptor("nonexistent"); err == nil {
		t.Fatalf("expected error for unknown label")
	}
}
