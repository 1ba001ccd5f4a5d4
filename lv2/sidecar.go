package lv2

import (
	"encoding/json"
	"os"
	"strings"

	"github.com/shaban/filterchain/ferrors"
	"github.com/shaban/filterchain/registry"
)

// sidecarPort is the JSON shape of one port entry in a plugin's sidecar
// file. kind mirrors the LV2 turtle vocabulary's lv2:InputPort/OutputPort
// crossed with lv2:AudioPort/ControlPort, spelled as a flat string because
// we're not parsing turtle (see package doc).
type sidecarPort struct {
	Name    string  `json:"name"`
	Kind    string  `json:"kind"` // "audio_in" | "audio_out" | "control_in" | "control_out"
	Default float64 `json:"default"`
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
	Boolean bool    `json:"boolean"`
	Integer bool    `json:"integer"`
	SampleR bool    `json:"sampleRate"`
}

// sidecarPlugin is one plugin's entry in the sidecar file, keyed by URI.
type sidecarPlugin struct {
	URI   string        `json:"uri"`
	Ports []sidecarPort `json:"ports"`
}

type sidecarFile struct {
	Plugins []sidecarPlugin `json:"plugins"`
}

// sidecarPath derives plugin.so -> plugin.lv2.json.
func sidecarPath(soPath string) string {
	if i := strings.LastIndex(soPath, "."); i >= 0 {
		return soPath[:i] + ".lv2.json"
	}
	return soPath + ".lv2.json"
}

func loadSidecar(soPath string) (*sidecarFile, error) {
	data, err := os.ReadFile(sidecarPath(soPath))
	if err != nil {
		return nil, ferrors.Wrap(ferrors.LoadError, "SIDECAR_MISSING", err, "read LV2 sidecar for %q", soPath)
	}
	var sf sidecarFile
	if err := json.Unmarshal(data, &sf); err != nil {
		return nil, ferrors.Wrap(ferrors.LoadError, "SIDECAR_INVALID", err, "parse LV2 sidecar for %q", soPath)
	}
	return &sf, nil
}

func (sf *sidecarFile) plugin(uri string) (*sidecarPlugin, bool) {
	for i := range sf.Plugins {
		if sf.Plugins[i].URI == uri {
			return &sf.Plugins[i], true
		}
	}
	return nil, false
}

func portDefs(ports []sidecarPort) ([]registry.PortDef, error) {
	out := make([]registry.PortDef, len(ports))
	for i, p := range ports {
		var kind registry.PortKind
		switch p.Kind {
		case "audio_in":
			kind = registry.AudioIn
		case "audio_out":
			kind = registry.AudioOut
		case "control_in":
			kind = registry.ControlIn
		case "control_out":
			kind = registry.ControlOut
		default:
			return nil, ferrors.New(ferrors.LoadError, "BAD_SIDECAR_PORT", "unknown port kind %q for %q", p.Kind, p.Name)
		}
		var hint registry.Hint
		if p.Boolean {
			hint |= registry.HintBoolean
		}
		if p.Integer {
			hint |= registry.HintInteger
		}
		if p.SampleR {
			hint |= registry.HintSampleRate
		}
		out[i] = registry.PortDef{Name: p.Name, Kind: kind, Default: p.Default, Min: p.Min, Max: p.Max, Hint: hint}
	}
	return out, nil
}
