package builtin

import (
	"math"

	"github.com/cwbudde/algo-dsp/dsp/filter/biquad"
	"github.com/shaban/filterchain/registry"
)

// The eight biquad shapes share one port layout (In, Out, Freq, Q, Gain)
// and one Direct-Form-II-Transposed section from algo-dsp; only the
// coefficient derivation differs per shape, following the RBJ Audio EQ
// Cookbook formulas.
const (
	biquadPortInIdx   = 0
	biquadPortOutIdx  = 1
	biquadPortFreqIdx = 2
	biquadPortQIdx    = 3
	biquadPortGainIdx = 4
)

var biquadLabels = []string{
	"lowpass", "highpass", "bandpass", "lowshelf",
	"highshelf", "peaking", "notch", "allpass",
}

func biquadDescriptor(label string) *registry.RawDescriptor {
	return &registry.RawDescriptor{
		Label: label,
		Ports: []registry.PortDef{
			{Name: "In", Kind: registry.AudioIn},
			{Name: "Out", Kind: registry.AudioOut},
			{Name: "Freq", Kind: registry.ControlIn, Default: 1000, Min: 20, Max: 20000},
			{Name: "Q", Kind: registry.ControlIn, Default: 0.707, Min: 0.1, Max: 10},
			{Name: "Gain", Kind: registry.ControlIn, Default: 0, Min: -24, Max: 24},
		},
		VTable: registry.VTable{
			Instantiate:        biquadInstantiateFor(label),
			Activate:           noopActivate,
			Deactivate:         noopActivate,
			Cleanup:            noopActivate,
			ConnectAudioPort:   biquadConnectAudio,
			ConnectControlPort: biquadConnectControl,
			Run:                biquadRun,
		},
	}
}

type biquadHandle struct {
	base
	shape                  string
	sampleRate             float64
	section                *biquad.Section
	lastFreq, lastQ, lastG float32
	scratch                [MaxBlockFrames]float64
}

func biquadInstantiateFor(shape string) func(float64, []byte) (registry.Handle, error) {
	return func(sampleRate float64, config []byte) (registry.Handle, error) {
		h := &biquadHandle{
			base:       newBase(),
			shape:      shape,
			sampleRate: sampleRate,
			section:    biquad.NewSection(biquad.Coefficients{B0: 1}),
		}
		return h, nil
	}
}

func biquadConnectAudio(h registry.Handle, portIndex int, buf []float32) error {
	return h.(*biquadHandle).connectAudio(portIndex, buf)
}

func biquadConnectControl(h registry.Handle, portIndex int, cell *float32) error {
	return h.(*biquadHandle).connectControl(portIndex, cell)
}

func biquadRun(h registry.Handle, sampleCount int) error {
	b := h.(*biquadHandle)
	in := b.audioBuf(biquadPortInIdx)
	out := b.audioBuf(biquadPortOutIdx)
	n := sampleCount
	if len(in) < n {
		n = len(in)
	}
	if len(out) < n {
		n = len(out)
	}
	if n > len(b.scratch) {
		n = len(b.scratch)
	}

	freq := b.controlValue(biquadPortFreqIdx, 1000)
	q := b.controlValue(biquadPortQIdx, 0.707)
	gain := b.controlValue(biquadPortGainIdx, 0)
	if freq != b.lastFreq || q != b.lastQ || gain != b.lastG {
		b.section.Coefficients = rbjCoefficients(b.shape, b.sampleRate, float64(freq), float64(q), float64(gain))
		b.lastFreq, b.lastQ, b.lastG = freq, q, gain
	}

	scratch := b.scratch[:n]
	for i := 0; i < n; i++ {
		scratch[i] = float64(in[i])
	}
	b.section.ProcessBlock(scratch)
	for i := 0; i < n; i++ {
		out[i] = float32(scratch[i])
	}
	return nil
}

// rbjCoefficients derives Direct-Form-II-Transposed biquad coefficients
// per Robert Bristow-Johnson's Audio EQ Cookbook, re-run whenever Freq, Q,
// or Gain changes (coefficients are recomputed per SR change implicitly,
// since sampleRate is fixed for the lifetime of an instance).
func rbjCoefficients(shape string, sampleRate, freq, q, gainDB float64) biquad.Coefficients {
	if freq <= 0 {
		freq = 1
	}
	if freq > sampleRate/2-1 {
		freq = sampleRate/2 - 1
	}
	if q <= 0 {
		q = 0.707
	}

	w0 := 2 * math.Pi * freq / sampleRate
	cosW0, sinW0 := math.Cos(w0), math.Sin(w0)
	alpha := sinW0 / (2 * q)
	a := math.Pow(10, gainDB/40)

	var b0, b1, b2, a0, a1, a2 float64

	switch shape {
	case "lowpass":
		b0 = (1 - cosW0) / 2
		b1 = 1 - cosW0
		b2 = (1 - cosW0) / 2
		a0 = 1 + alpha
		a1 = -2 * cosW0
		a2 = 1 - alpha
	case "highpass":
		b0 = (1 + cosW0) / 2
		b1 = -(1 + cosW0)
		b2 = (1 + cosW0) / 2
		a0 = 1 + alpha
		a1 = -2 * cosW0
		a2 = 1 - alpha
	case "bandpass":
		b0 = alpha
		b1 = 0
		b2 = -alpha
		a0 = 1 + alpha
		a1 = -2 * cosW0
		a2 = 1 - alpha
	case "notch":
		b0 = 1
		b1 = -2 * cosW0
		b2 = 1
		a0 = 1 + alpha
		a1 = -2 * cosW0
		a2 = 1 - alpha
	case "allpass":
		b0 = 1 - alpha
		b1 = -2 * cosW0
		b2 = 1 + alpha
		a0 = 1 + alpha
		a1 = -2 * cosW0
		a2 = 1 - alpha
	case "peaking":
		b0 = 1 + alpha*a
		b1 = -2 * cosW0
		b2 = 1 - alpha*a
		a0 = 1 + alpha/a
		a1 = -2 * cosW0
		a2 = 1 - alpha/a
	case "lowshelf":
		sq := 2 * math.Sqrt(a) * alpha
		b0 = a * ((a + 1) - (a-1)*cosW0 + sq)
		b1 = 2 * a * ((a - 1) - (a+1)*cosW0)
		b2 = a * ((a + 1) - (a-1)*cosW0 - sq)
		a0 = (a + 1) + (a-1)*cosW0 + sq
		a1 = -2 * ((a - 1) + (a+1)*cosW0)
		a2 = (a + 1) + (a-1)*cosW0 - sq
	case "highshelf":
		sq := 2 * math.Sqrt(a) * alpha
		b0 = a * ((a + 1) + (a-1)*cosW0 + sq)
		b1 = -2 * a * ((a - 1) + (a+1)*cosW0)
		b2 = a * ((a + 1) + (a-1)*cosW0 - sq)
		a0 = (a + 1) - (a-1)*cosW0 + sq
		a1 = 2 * ((a - 1) - (a+1)*cosW0)
		a2 = (a + 1) - (a-1)*cosW0 - sq
	default:
		// Identity if somehow asked for an unknown shape.
		b0, a0 = 1, 1
	}

	return biquad.Coefficients{
		B0: b0 / a0, B1: b1 / a0, B2: b2 / a0,
		A1: a1 / a0, A2: a2 / a0,
	}
}
