package lv2

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/shaban/filterchain/registry"
)

func writeSidecar(t *testing.T, soPath string, sf sidecarFile) {
	t.Helper()
	data := []byte(`{"plugins":[{"uri":"` + sf.Plugins[0].URI + `","ports":[`)
	for i, p := range sf.Plugins[0].Ports {
		if i > 0 {
			data = append(data, ',')
		}
		data = append(data, []byte(`{"name":"`+p.Name+`","kind":"`+p.Kind+`","default":0,"min":0,"max":1}`)...)
	}
	data = append(data, []byte(`]}]}`)...)
	if err := os.WriteFile(sidecarPath(soPath), data, 0644); err != nil {
		t.Fatalf("write sidecar: %v", err)
	}
}

func TestSidecarPathDerivation(t *testing.T) {
	got := sidecarPath("/plugins/amp.so")
	want := "/plugins/amp.lv2.json"
	if got != want {
		t.Fatalf("sidecarPath = %q, want %q", got, want)
	}
}

func TestLoadSidecarAndPortDefs(t *testing.T) {
	dir := t.TempDir()
	so := filepath.Join(dir, "amp.so")
	writeSidecar(t, so, sidecarFile{Plugins: []sidecarPlugin{{
		URI: "http://example.org/amp",
		Ports: []sidecarPort{
			{Name: "In", Kind: "audio_in"},
			{Name: "Out", Kind: "audio_out"},
			{Name: "Gain", Kind: "control_in"},
		},
	}}})

	sf, err := loadSidecar(so)
	if err != nil {
		t.Fatalf("loadSidecar: %v", err)
	}
	sp, ok := sf.plugin("http://example.org/amp")
	if !ok {
		t.Fatalf("plugin not found in sidecar")
	}
	defs, err := portDefs(sp.Ports)
	if err != nil {
		t.Fatalf("portDefs: %v", err)
	}
	if len(defs) != 3 {
		t.Fatalf("len(defs) = %d, want 3", len(defs))
	}
	if defs[0].Kind != registry.AudioIn || defs[1].Kind != registry.AudioOut || defs[2].Kind != registry.ControlIn {
		t.Fatalf("unexpected port kinds: %+v", defs)
	}
}

func TestLoadSidecarMissingFile(t *testing.T) {
	if _, err := loadSidecar(filepath.Join(t.TempDir(), "missing.so")); err == nil {
		t.Fatalf("expected error for missing sidecar")
	}
}

func TestPortDefsRejectsUnknownKind(t *testing.T) {
	if _, err := portDefs([]sidecarPort{{Name: "X", Kind: "bogus"}}); err == nil {
		t.Fatalf("expected error for unknown port kind")
	}
}
