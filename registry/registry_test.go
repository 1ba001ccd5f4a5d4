package registry

import "testing"

type fakeLibrary struct {
	closed     bool
	makeCalls  int
	failLabels map[string]bool
}

func (f *fakeLibrary) Close() error { f.closed = true; return nil }

func (f *fakeLibrary) MakeDescriptor(label string) (*RawDescriptor, error) {
	f.makeCalls++
	if f.failLabels[label] {
		return nil, errNotFound
	}
	return &RawDescriptor{
		Label: label,
		Ports: []PortDef{
			{Name: "In", Kind: AudioIn},
			{Name: "Out", Kind: AudioOut},
			{Name: "Gain", Kind: ControlIn, Default: 1, Min: 0, Max: 2},
			{Name: "Rate", Kind: ControlIn, Default: 1, Min: 0, Max: 1, Hint: HintSampleRate},
		},
		VTable: VTable{
			Instantiate: func(sr float64, cfg []byte) (Handle, error) { return &struct{}{}, nil },
		},
	}, nil
}

type errString string

func (e errString) Error() string { return string(e) }

const errNotFound = errString("not found")

type fakeLoader struct{ lib *fakeLibrary }

func (l *fakeLoader) Load(path string) (Library, error) { return l.lib, nil }

func newTestRegistry() (*PluginRegistry, *fakeLibrary) {
	lib := &fakeLibrary{failLabels: map[string]bool{}}
	reg := New(map[string]Loader{"fake": &fakeLoader{lib: lib}})
	return reg, lib
}

func TestLoadCachesByTypeAndPath(t *testing.T) {
	reg, _ := newTestRegistry()

	p1, err := reg.Load("fake", "/plugins/a.so")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	p2, err := reg.Load("fake", "/plugins/a.so")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if p1 != p2 {
		t.Fatalf("expected cached plugin instance, got distinct pointers")
	}

	p3, err := reg.Load("fake", "/plugins/b.so")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if p3 == p1 {
		t.Fatalf("expected distinct plugin for distinct path")
	}
}

func TestLoadUnsupportedType(t *testing.T) {
	reg, _ := newTestRegistry()
	if _, err := reg.Load("nope", "/x"); err == nil {
		t.Fatalf("expected UNSUPPORTED_TYPE error, got nil")
	}
}

func TestDescriptorSharesByLabelAndScalesSampleRateHint(t *testing.T) {
	reg, lib := newTestRegistry()
	p, _ := reg.Load("fake", "/plugins/a.so")

	d1, err := reg.Descriptor(p, "lowpass", 48000)
	if err != nil {
		t.Fatalf("descriptor: %v", err)
	}
	d2, err := reg.Descriptor(p, "lowpass", 48000)
	if err != nil {
		t.Fatalf("descriptor: %v", err)
	}
	if d1 != d2 {
		t.Fatalf("expected shared descriptor for same label")
	}
	if lib.makeCalls != 1 {
		t.Fatalf("MakeDescriptor called %d times, want 1", lib.makeCalls)
	}

	if d1.NumAudioIn() != 1 || d1.NumAudioOut() != 1 || d1.NumControlIn() != 2 {
		t.Fatalf("unexpected port partition: in=%d out=%d controlIn=%d", d1.NumAudioIn(), d1.NumAudioOut(), d1.NumControlIn())
	}

	// Rate is index 1 within ControlInIdx (after Gain) and carries the
	// sample-rate hint, so its default of 1 should scale to 48000.
	if got := d1.Defaults[1]; got != 48000 {
		t.Fatalf("sample-rate-scaled default = %v, want 48000", got)
	}
	if got := d1.Defaults[0]; got != 1 {
		t.Fatalf("unscaled default = %v, want 1", got)
	}
}

func TestDescriptorNotFound(t *testing.T) {
	reg, lib := newTestRegistry()
	lib.failLabels["missing"] = true
	p, _ := reg.Load("fake", "/plugins/a.so")

	if _, err := reg.Descriptor(p, "missing", 48000); err == nil {
		t.Fatalf("expected NOT_FOUND error, got nil")
	}
}

func TestReleaseDescriptorAndPluginCascade(t *testing.T) {
	reg, lib := newTestRegistry()
	p, _ := reg.Load("fake", "/plugins/a.so")

	d1, _ := reg.Descriptor(p, "lowpass", 48000)
	_, _ = reg.Descriptor(p, "lowpass", 48000) // bump refcount to 2

	reg.ReleaseDescriptor(d1)
	if lib.closed {
		t.Fatalf("library closed too early")
	}

	reg.ReleaseDescriptor(d1)
	// Descriptor's refcount is now 0: it was removed from the plugin, and
	// the plugin's own refcount (1 for Load + 1 for the descriptor's
	// back-ref) drops to 1 after this cascade, so the library should
	// still be open pending the initial Load's own release.
	if lib.closed {
		t.Fatalf("library closed while still referenced by Load")
	}

	reg.ReleasePlugin(p)
	if !lib.closed {
		t.Fatalf("library not closed after final release")
	}
}
