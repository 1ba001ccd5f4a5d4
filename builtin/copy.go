package builtin

import "github.com/shaban/filterchain/registry"

const (
	copyPortInIdx  = 0
	copyPortOutIdx = 1
)

func copyDescriptor() *registry.RawDescriptor {
	return &registry.RawDescriptor{
		Label: "copy",
		Ports: []registry.PortDef{
			{Name: "In", Kind: registry.AudioIn},
			{Name: "Out", Kind: registry.AudioOut},
		},
		VTable: registry.VTable{
			Instantiate:        copyInstantiate,
			Activate:           noopActivate,
			Deactivate:         noopActivate,
			Cleanup:            noopActivate,
			ConnectAudioPort:   copyConnectAudio,
			ConnectControlPort: nil,
			Run:                copyRun,
		},
	}
}

type copyHandle struct{ base }

func copyInstantiate(sampleRate float64, config []byte) (registry.Handle, error) {
	return &copyHandle{base: newBase()}, nil
}

func copyConnectAudio(h registry.Handle, portIndex int, buf []float32) error {
	return h.(*copyHandle).connectAudio(portIndex, buf)
}

func copyRun(h registry.Handle, sampleCount int) error {
	c := h.(*copyHandle)
	in := c.audioBuf(copyPortInIdx)
	out := c.audioBuf(copyPortOutIdx)
	n := sampleCount
	if len(in) < n {
		n = len(in)
	}
	if len(out) < n {
		n = len(out)
	}
	copy(out[:n], in[:n])
	return nil
}
