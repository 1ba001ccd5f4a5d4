package builtin

import (
	"encoding/json"

	"github.com/cwbudde/algo-dsp/dsp/delay"
	"github.com/shaban/filterchain/registry"
)

const (
	delayPortInIdx    = 0
	delayPortOutIdx   = 1
	delayPortDelayIdx = 2

	defaultMaxDelaySeconds = 2.0
)

// delayConfig is the node config blob's shape for the delay built-in.
type delayConfig struct {
	MaxDelay float64 `json:"max-delay"`
}

func delayDescriptor() *registry.RawDescriptor {
	return &registry.RawDescriptor{
		Label: "delay",
		Ports: []registry.PortDef{
			{Name: "In", Kind: registry.AudioIn},
			{Name: "Out", Kind: registry.AudioOut},
			{Name: "Delay (s)", Kind: registry.ControlIn, Default: 0, Min: 0, Max: defaultMaxDelaySeconds},
		},
		VTable: registry.VTable{
			Instantiate:        delayInstantiate,
			Activate:           noopActivate,
			Deactivate:         delayDeactivate,
			Cleanup:            noopActivate,
			ConnectAudioPort:   delayConnectAudio,
			ConnectControlPort: delayConnectControl,
			Run:                delayRun,
		},
	}
}

type delayHandle struct {
	base
	sampleRate float64
	maxDelay   float64
	line       *delay.Line
}

func delayInstantiate(sampleRate float64, config []byte) (registry.Handle, error) {
	cfg := delayConfig{MaxDelay: defaultMaxDelaySeconds}
	if len(config) > 0 {
		if err := json.Unmarshal(config, &cfg); err != nil {
			return nil, err
		}
		if cfg.MaxDelay <= 0 {
			cfg.MaxDelay = defaultMaxDelaySeconds
		}
	}

	size := int(cfg.MaxDelay*sampleRate) + 1
	line, err := delay.New(size)
	if err != nil {
		return nil, err
	}

	return &delayHandle{base: newBase(), sampleRate: sampleRate, maxDelay: cfg.MaxDelay, line: line}, nil
}

func delayDeactivate(h registry.Handle) error {
	h.(*delayHandle).line.Reset()
	return nil
}

func delayConnectAudio(h registry.Handle, portIndex int, buf []float32) error {
	return h.(*delayHandle).connectAudio(portIndex, buf)
}

func delayConnectControl(h registry.Handle, portIndex int, cell *float32) error {
	return h.(*delayHandle).connectControl(portIndex, cell)
}

func delayRun(h registry.Handle, sampleCount int) error {
	d := h.(*delayHandle)
	in := d.audioBuf(delayPortInIdx)
	out := d.audioBuf(delayPortOutIdx)
	n := sampleCount
	if len(in) < n {
		n = len(in)
	}
	if len(out) < n {
		n = len(out)
	}

	delaySeconds := float64(d.controlValue(delayPortDelayIdx, 0))
	if delaySeconds < 0 {
		delaySeconds = 0
	}
	if delaySeconds > d.maxDelay {
		delaySeconds = d.maxDelay
	}
	delaySamples := delaySeconds * d.sampleRate

	for i := 0; i < n; i++ {
		d.line.Write(float64(in[i]))
		out[i] = float32(d.line.ReadFractional(delaySamples))
	}
	return nil
}
