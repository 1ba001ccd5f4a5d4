package builtin

import (
	"encoding/json"
	"fmt"

	"github.com/cwbudde/algo-dsp/dsp/conv"
	"github.com/cwbudde/algo-dsp/dsp/delay"
	"github.com/cwbudde/algo-dsp/dsp/filter/hilbert"
	"github.com/shaban/filterchain/registry"
)

const (
	convolverPortInIdx  = 0
	convolverPortOutIdx = 1
)

// convolverConfig is the node config blob's shape for the convolver
// built-in: partitioned-FFT block sizing plus either a synthetic kernel
// source or a reference to an externally-decoded one.
//
// Decoding an arbitrary audio file into a kernel is outside this core's
// scope (the capture/playback transport is an external collaborator); a
// "source: file" config therefore makes Instantiate fail, and Kernel lets a
// caller that already has the samples (e.g. the control thread, after
// decoding a file itself) supply them directly.
type convolverConfig struct {
	BlockSize int       `json:"blocksize"`
	TailSize  int       `json:"tailsize"`
	Gain      float64   `json:"gain"`
	Delay     float64   `json:"delay"`
	Offset    int       `json:"offset"`
	Length    int       `json:"length"`
	Channel   int       `json:"channel"`
	Source    string    `json:"source"` // "dirac", "hilbert", "file", or "" (= Kernel)
	Kernel    []float64 `json:"kernel,omitempty"`
}

func convolverDescriptor() *registry.RawDescriptor {
	return &registry.RawDescriptor{
		Label: "convolver",
		Ports: []registry.PortDef{
			{Name: "In", Kind: registry.AudioIn},
			{Name: "Out", Kind: registry.AudioOut},
		},
		VTable: registry.VTable{
			Instantiate:        convolverInstantiate,
			Activate:           noopActivate,
			Deactivate:         convolverDeactivate,
			Cleanup:            noopActivate,
			ConnectAudioPort:   convolverConnectAudio,
			ConnectControlPort: nil,
			Run:                convolverRun,
		},
	}
}

type convolverHandle struct {
	base
	conv    *conv.PartitionedConvolution
	predly  *delay.Line
	gain    float64
	scratch [MaxBlockFrames]float64
	out     [MaxBlockFrames]float64
}

func convolverInstantiate(sampleRate float64, config []byte) (registry.Handle, error) {
	cfg := convolverConfig{BlockSize: 64, TailSize: 16384, Gain: 1.0}
	if len(config) > 0 {
		if err := json.Unmarshal(config, &cfg); err != nil {
			return nil, err
		}
	}

	kernel, err := buildKernel(cfg)
	if err != nil {
		return nil, err
	}

	minOrder := truncLog2(cfg.BlockSize)
	maxOrder := truncLog2(cfg.TailSize)
	if maxOrder < minOrder {
		maxOrder = minOrder
	}

	pc, err := conv.NewPartitionedConvolution(kernel, minOrder, maxOrder)
	if err != nil {
		return nil, fmt.Errorf("convolver: %w", err)
	}

	h := &convolverHandle{base: newBase(), conv: pc, gain: cfg.Gain}
	if cfg.Delay > 0 {
		size := int(cfg.Delay*sampleRate) + 1
		line, err := delay.New(size)
		if err != nil {
			return nil, err
		}
		h.predly = line
	}
	return h, nil
}

func buildKernel(cfg convolverConfig) ([]float64, error) {
	switch cfg.Source {
	case "", "kernel":
		if len(cfg.Kernel) == 0 {
			return nil, fmt.Errorf("convolver: empty kernel")
		}
		return sliceWindow(cfg.Kernel, cfg.Offset, cfg.Length), nil
	case "dirac":
		n := cfg.Length
		if n <= 0 {
			n = 1
		}
		k := make([]float64, n)
		k[0] = 1
		return k, nil
	case "hilbert":
		n := cfg.Length
		if n <= 0 {
			n = 63
		}
		transition := 0.05
		coeffs, err := hilbert.DesignCoefficients(n, transition)
		if err != nil {
			return nil, fmt.Errorf("convolver: hilbert kernel: %w", err)
		}
		return coeffs, nil
	case "file":
		return nil, fmt.Errorf("convolver: file-sourced kernels must be decoded by the host and passed via \"kernel\"")
	default:
		return nil, fmt.Errorf("convolver: unknown source %q", cfg.Source)
	}
}

func sliceWindow(k []float64, offset, length int) []float64 {
	if offset < 0 {
		offset = 0
	}
	if offset > len(k) {
		offset = len(k)
	}
	end := len(k)
	if length > 0 && offset+length < end {
		end = offset + length
	}
	return k[offset:end]
}

// truncLog2 returns floor(log2(n)) for n >= 1, clamped to at least 0.
func truncLog2(n int) int {
	order := 0
	for (1 << (order + 1)) <= n {
		order++
	}
	return order
}

func convolverDeactivate(h registry.Handle) error {
	h.(*convolverHandle).conv.Reset()
	return nil
}

func convolverConnectAudio(h registry.Handle, portIndex int, buf []float32) error {
	return h.(*convolverHandle).connectAudio(portIndex, buf)
}

func convolverRun(h registry.Handle, sampleCount int) error {
	c := h.(*convolverHandle)
	in := c.audioBuf(convolverPortInIdx)
	out := c.audioBuf(convolverPortOutIdx)
	n := sampleCount
	if len(in) < n {
		n = len(in)
	}
	if len(out) < n {
		n = len(out)
	}
	if n > len(c.scratch) {
		n = len(c.scratch)
	}

	scratch := c.scratch[:n]
	for i := 0; i < n; i++ {
		x := float64(in[i])
		if c.predly != nil {
			c.predly.Write(x)
			x = c.predly.Read(c.predly.Len() - 1)
		}
		scratch[i] = x
	}

	outBuf := c.out[:n]
	if err := c.conv.ProcessBlock(scratch, outBuf); err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		out[i] = float32(outBuf[i] * c.gain)
	}
	return nil
}
