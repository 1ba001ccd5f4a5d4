package graph

// Runtime executes one compiled Graph's schedule once per block. It is
// the only piece of this package meant to run on the audio thread: its
// Process method never allocates, never blocks, and never constructs a
// descriptor.
type Runtime struct {
	Graph *Graph

	// scratch holds one pre-allocated buffer per capture channel, used
	// only when CaptureGain is not 1 (the common case needs no copy: the
	// plugin is pointed directly at the host's capture buffer).
	scratch [][]float32
}

// NewRuntime builds a Runtime for g, pre-allocating the capture-gain
// scratch buffers so Process never allocates.
func NewRuntime(g *Graph) *Runtime {
	scratch := make([][]float32, g.NumCaptureChannels)
	for i := range scratch {
		scratch[i] = make([]float32, ScratchBlockFrames)
	}
	return &Runtime{Graph: g, scratch: scratch}
}

// Process runs one block. capture and playback are planar: one slice per
// channel, length NumCaptureChannels / NumPlaybackChannels respectively.
// A channel-count mismatch is treated as a dropped block (RuntimeSkip):
// Process returns nil having touched nothing.
func (rt *Runtime) Process(capture, playback [][]float32) error {
	g := rt.Graph
	if len(capture) != g.NumCaptureChannels || len(playback) != g.NumPlaybackChannels {
		return nil
	}

	outSize := ScratchBlockFrames
	for _, ch := range capture {
		if len(ch) < outSize {
			outSize = len(ch)
		}
	}
	for _, ch := range playback {
		if len(ch) < outSize {
			outSize = len(ch)
		}
	}
	if outSize < 0 {
		outSize = 0
	}

	captureGain := g.CaptureGain.Get()
	for i, bindings := range g.InputMux {
		if i >= len(capture) || len(bindings) == 0 {
			continue
		}
		buf := capture[i][:outSize]
		if captureGain != 1 {
			s := rt.scratch[i][:outSize]
			for k, v := range buf {
				s[k] = v * captureGain
			}
			buf = s
		}
		for _, b := range bindings {
			vt := b.Port.Node.Descriptor.VTable
			h := b.Port.Node.Instances[b.Instance]
			if err := vt.ConnectAudioPort(h, b.Port.DescPortIndex, buf); err != nil {
				return err
			}
		}
	}

	for j, bindings := range g.OutputMux {
		if j >= len(playback) {
			continue
		}
		dst := playback[j][:outSize]
		if len(bindings) == 0 {
			for k := range dst {
				dst[k] = 0
			}
			continue
		}
		for _, b := range bindings {
			vt := b.Port.Node.Descriptor.VTable
			h := b.Port.Node.Instances[b.Instance]
			if err := vt.ConnectAudioPort(h, b.Port.DescPortIndex, dst); err != nil {
				return err
			}
		}
	}

	for _, entry := range g.Schedule {
		vt := entry.Node.Descriptor.VTable
		h := entry.Node.Instances[entry.Instance]
		if err := vt.Run(h, outSize); err != nil {
			return err
		}
	}

	playbackGain := g.PlaybackGain.Get()
	if playbackGain != 1 {
		for j, bindings := range g.OutputMux {
			if j >= len(playback) || len(bindings) == 0 {
				continue
			}
			dst := playback[j][:outSize]
			for k := range dst {
				dst[k] *= playbackGain
			}
		}
	}
	return nil
}

// Reset deactivates then re-activates every instance in the graph,
// draining and re-priming plugin state without recompiling. Used for the
// graph-reset operation while the stream is paused.
func (rt *Runtime) Reset() error {
	for _, n := range rt.Graph.Nodes {
		vt := n.Descriptor.VTable
		for _, h := range n.Instances {
			if vt.Deactivate != nil {
				if err := vt.Deactivate(h); err != nil {
					return err
				}
			}
		}
		for _, h := range n.Instances {
			if vt.Activate != nil {
				if err := vt.Activate(h); err != nil {
					return err
				}
			}
		}
	}
	return nil
}
