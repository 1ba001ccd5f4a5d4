package ladspa

import (
	"os"
	"testing"

	"github.com/shaban/filterchain/internal/testutil"
)

// TestLoadRealPlugin exercises the dlopen path against an actual LADSPA
// shared object. Most environments don't have one installed, so this is
// opt-in: set FILTERCHAIN_LADSPA_TEST=1, FILTERCHAIN_LADSPA_TEST_PLUGIN to
// a .so path, and FILTERCHAIN_LADSPA_TEST_LABEL to a label it exports.
func TestLoadRealPlugin(t *testing.T) {
	testutil.SkipUnlessEnv(t, "FILTERCHAIN_LADSPA_TEST", "1")

	path := os.Getenv("FILTERCHAIN_LADSPA_TEST_PLUGIN")
	label := os.Getenv("FILTERCHAIN_LADSPA_TEST_LABEL")
	if path == "" || label == "" {
		t.Skip("FILTERCHAIN_LADSPA_TEST_PLUGIN and FILTERCHAIN_LADSPA_TEST_LABEL must be set")
	}

	lib, err := (Loader{}).Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	defer lib.Close()

	raw, err := lib.MakeDescriptor(label)
	if err != nil {
		t.Fatalf("MakeDescriptor: %v", err)
	}
	if len(raw.Ports) == 0 {
		t.Fatalf("expected at least one port")
	}

	h, err := raw.VTable.Instantiate(48000, nil)
	if err != nil {
		t.Fatalf("Instantiate: %v", err)
	}
	if err := raw.VTable.Activate(h); err != nil {
		t.Fatalf("Activate: %v", err)
	}
	if err := raw.VTable.Deactivate(h); err != nil {
		t.Fatalf("Deactivate: %v", err)
	}
	if err := raw.VTable.Cleanup(h); err != nil {
		t.Fatalf("Cleanup: %v", err)
	}
}

func TestLoadUnsupportedPath(t *testing.T) {
	if _, err := (Loader{}).Load("/nonexistent/path/to/plugin.so"); err == nil {
		t.Fatalf("expected error loading nonexistent library")
	}
}

func TestLadspaDefault(t *testing.T) {
	cases := []struct {
		name   string
		hint   int
		lo, hi float64
		want   float64
	}{
		{"none falls back to lower bound", hintDefaultNone, 0, 20, 0},
		{"minimum", hintDefaultMinimum, 0, 20, 0},
		{"maximum", hintDefaultMaximum, 0, 20, 20},
		{"middle linear", hintDefaultMiddle, 0, 20, 10},
		{"zero", hintDefault0, -5, 5, 0},
		{"one", hintDefault1, 0, 5, 1},
		{"hundred", hintDefault100, 0, 1000, 100},
		{"440", hintDefault440, 0, 1000, 440},
		{"middle logarithmic", hintDefaultMiddle | hintLog, 20, 20000, 632.4555320336759},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := ladspaDefault(c.hint, c.lo, c.hi)
			if diff := got - c.want; diff > 1e-6 || diff < -1e-6 {
				t.Fatalf("ladspaDefault(%#x, %v, %v) = %v, want %v", c.hint, c.lo, c.hi, got, c.want)
			}
		})
	}
}
