// Package builtin implements the small DSP primitive library the core
// ships out of the box: mixer, copy, the eight biquad filter types,
// convolver, and delay. Each is expressed against the same Descriptor
// contract the ladspa and lv2 loaders produce, so the graph compiler
// treats built-ins uniformly with third-party plugins.
package builtin

// MaxBlockFrames bounds the scratch buffers built-ins preallocate at
// Instantiate time, keeping Run allocation-free for any real-time block
// size actually seen in practice.
const MaxBlockFrames = 4096

// base holds the per-instance port wiring every built-in shares: which
// buffer or cell is currently connected at each absolute port index.
type base struct {
	audio   map[int][]float32
	control map[int]*float32
}

func newBase() base {
	return base{audio: make(map[int][]float32), control: make(map[int]*float32)}
}

func (b *base) connectAudio(portIndex int, buf []float32) error {
	b.audio[portIndex] = buf
	return nil
}

func (b *base) connectControl(portIndex int, cell *float32) error {
	b.control[portIndex] = cell
	return nil
}

func (b *base) audioBuf(portIndex int) []float32 { return b.audio[portIndex] }

func (b *base) controlValue(portIndex int, def float32) float32 {
	if c := b.control[portIndex]; c != nil {
		return *c
	}
	return def
}
