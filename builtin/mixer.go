package builtin

import (
	"strconv"

	"github.com/cwbudde/algo-vecmath"
	"github.com/shaban/filterchain/registry"
)

// Mixer ports: 8 audio inputs, 8 parallel gain controls, 1 audio output.
// An unconnected input port is pre-wired to the shared SILENCE buffer by
// the compiler, so Run still scales and sums it (as zeros) every block;
// only an input with a nil buffer or a zero gain is skipped.
const (
	mixerNumInputs = 8

	mixerPortOutIdx = mixerNumInputs * 2 // audio-out sits after the 8 ins + 8 gains
)

func mixerInPortIdx(i int) int   { return i }
func mixerGainPortIdx(i int) int { return mixerNumInputs + i }

func mixerDescriptor() *registry.RawDescriptor {
	ports := make([]registry.PortDef, 0, mixerNumInputs*2+1)
	for i := 0; i < mixerNumInputs; i++ {
		ports = append(ports, registry.PortDef{Name: inputPortName(i), Kind: registry.AudioIn})
	}
	for i := 0; i < mixerNumInputs; i++ {
		ports = append(ports, registry.PortDef{
			Name: gainPortName(i), Kind: registry.ControlIn,
			Default: 1.0, Min: 0.0, Max: 2.0,
		})
	}
	ports = append(ports, registry.PortDef{Name: "Out", Kind: registry.AudioOut})

	return &registry.RawDescriptor{
		Label: "mixer",
		Ports: ports,
		VTable: registry.VTable{
			Instantiate:        mixerInstantiate,
			Activate:           noopActivate,
			Deactivate:         noopActivate,
			Cleanup:            noopActivate,
			ConnectAudioPort:   mixerConnectAudio,
			ConnectControlPort: mixerConnectControl,
			Run:                mixerRun,
		},
	}
}

func inputPortName(i int) string { return "In " + strconv.Itoa(i+1) }
func gainPortName(i int) string  { return "Gain " + strconv.Itoa(i+1) }

// mixerHandle keeps float64 scratch buffers so the per-input scale-and-sum
// can run through vecmath.ScaleBlock/AddBlockInPlace, which only operate on
// float64. Buffers are sized once at Instantiate so Run never allocates.
type mixerHandle struct {
	base
	in64  []float64
	sum64 []float64
}

func mixerInstantiate(sampleRate float64, config []byte) (registry.Handle, error) {
	return &mixerHandle{
		base:  newBase(),
		in64:  make([]float64, MaxBlockFrames),
		sum64: make([]float64, MaxBlockFrames),
	}, nil
}

func mixerConnectAudio(h registry.Handle, portIndex int, buf []float32) error {
	return h.(*mixerHandle).connectAudio(portIndex, buf)
}

func mixerConnectControl(h registry.Handle, portIndex int, cell *float32) error {
	return h.(*mixerHandle).connectControl(portIndex, cell)
}

func mixerRun(h registry.Handle, sampleCount int) error {
	m := h.(*mixerHandle)
	out := m.audioBuf(mixerPortOutIdx)
	n := sampleCount
	if n > len(out) {
		n = len(out)
	}
	if n > MaxBlockFrames {
		n = MaxBlockFrames
	}
	sum := m.sum64[:n]
	for i := range sum {
		sum[i] = 0
	}

	for i := 0; i < mixerNumInputs; i++ {
		in := m.audioBuf(mixerInPortIdx(i))
		if in == nil {
			continue
		}
		gain := m.controlValue(mixerGainPortIdx(i), 1.0)
		if gain == 0 {
			continue
		}
		width := n
		if width > len(in) {
			width = len(in)
		}
		in64 := m.in64[:width]
		for j, v := range in[:width] {
			in64[j] = float64(v)
		}
		vecmath.ScaleBlock(in64, in64, float64(gain))
		vecmath.AddBlockInPlace(sum[:width], in64)
	}

	for j, v := range sum {
		out[j] = float32(v)
	}
	return nil
}

func noopActivate(registry.Handle) error { return nil }
