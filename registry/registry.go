// Package registry caches loaded plugin libraries and dispenses the
// Descriptors they expose. Descriptors from the same library share one
// library handle: sharing matters because third-party loaders are
// expensive and often stateful (see Plugin).
package registry

import (
	"fmt"
	"sync"

	"github.com/shaban/filterchain/ferrors"
)

// Library is the loaded form of one plugin file: it can mint a
// RawDescriptor for a label and release its own resources on Close.
type Library interface {
	MakeDescriptor(label string) (*RawDescriptor, error)
	Close() error
}

// Loader resolves a plugin path into a Library for one type-tag
// ("builtin", "ladspa", "lv2", ...).
type Loader interface {
	Load(path string) (Library, error)
}

// Plugin is a loaded plugin library: identity (type-tag, path), refcount,
// and the Descriptors it has dispensed so far. A Plugin is freed iff its
// refcount reaches zero AND its descriptor list is empty, since descriptors
// hold a back-reference that keeps the library alive.
type Plugin struct {
	Type string
	Path string

	mu          sync.Mutex
	refcount    int32
	lib         Library
	descriptors []*Descriptor
}

type pluginKey struct {
	typ  string
	path string
}

// PluginRegistry caches Plugins by (type, path) and hands out refcounted
// Descriptors. Only the control thread touches a PluginRegistry.
type PluginRegistry struct {
	mu      sync.Mutex
	cache   map[pluginKey]*Plugin
	loaders map[string]Loader
}

// New creates a registry with the given type-tag -> Loader mapping.
func New(loaders map[string]Loader) *PluginRegistry {
	return &PluginRegistry{
		cache:   make(map[pluginKey]*Plugin),
		loaders: loaders,
	}
}

// Load resolves (type, path) to a cached Plugin, bumping its refcount, or
// loads it fresh via the registered Loader for type.
func (r *PluginRegistry) Load(typ, path string) (*Plugin, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := pluginKey{typ: typ, path: path}
	if p, ok := r.cache[key]; ok {
		p.mu.Lock()
		p.refcount++
		p.mu.Unlock()
		return p, nil
	}

	loader, ok := r.loaders[typ]
	if !ok {
		return nil, ferrors.New(ferrors.ConfigError, "UNSUPPORTED_TYPE", "no loader registered for plugin type %q", typ)
	}

	lib, err := loader.Load(path)
	if err != nil {
		return nil, ferrors.Wrap(ferrors.LoadError, "LOAD_FAILED", err, "load plugin %q at %q", typ, path)
	}

	p := &Plugin{Type: typ, Path: path, refcount: 1, lib: lib}
	r.cache[key] = p
	return p, nil
}

// Descriptor returns the Descriptor for label on plugin, bumping its
// refcount if already dispensed, or minting and caching a new one.
// Applies the SAMPLE_RATE hint to compute scaled control-port defaults.
func (r *PluginRegistry) Descriptor(p *Plugin, label string, sampleRate float64) (*Descriptor, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, d := range p.descriptors {
		if d.Label == label {
			d.refcount++
			return d, nil
		}
	}

	raw, err := p.lib.MakeDescriptor(label)
	if err != nil {
		return nil, ferrors.Wrap(ferrors.LoadError, "NOT_FOUND", err, "plugin %q has no label %q", p.Path, label)
	}

	audioIn, audioOut, controlIn, controlOut := partitionPorts(raw.Ports)
	defaults := make([]float64, len(controlIn))
	for i, idx := range controlIn {
		def := raw.Ports[idx].Default
		if raw.Ports[idx].Hint.Has(HintSampleRate) {
			def *= sampleRate
		}
		defaults[i] = def
	}

	d := &Descriptor{
		Plugin:        p,
		Label:         label,
		refcount:      1,
		Ports:         raw.Ports,
		AudioInIdx:    audioIn,
		AudioOutIdx:   audioOut,
		ControlInIdx:  controlIn,
		ControlOutIdx: controlOut,
		Defaults:      defaults,
		VTable:        raw.VTable,
	}
	p.descriptors = append(p.descriptors, d)
	p.refcount++ // descriptor holds a back-ref on the plugin
	return d, nil
}

// ReleaseDescriptor decrements d's refcount, removing it from its parent
// plugin's list and releasing one plugin ref once it reaches zero.
func (r *PluginRegistry) ReleaseDescriptor(d *Descriptor) {
	if d == nil {
		return
	}
	p := d.Plugin
	p.mu.Lock()
	d.refcount--
	freed := d.refcount <= 0
	if freed {
		for i, cand := range p.descriptors {
			if cand == d {
				p.descriptors = append(p.descriptors[:i], p.descriptors[i+1:]...)
				break
			}
		}
	}
	p.mu.Unlock()
	if freed {
		r.ReleasePlugin(p)
	}
}

// ReleasePlugin decrements p's refcount, closing its Library and dropping
// it from the cache once the count reaches zero and it holds no
// descriptors.
func (r *PluginRegistry) ReleasePlugin(p *Plugin) {
	if p == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	p.mu.Lock()
	p.refcount--
	shouldFree := p.refcount <= 0 && len(p.descriptors) == 0
	p.mu.Unlock()

	if !shouldFree {
		return
	}
	delete(r.cache, pluginKey{typ: p.Type, path: p.Path})
	if err := p.lib.Close(); err != nil {
		// Closing a library is best-effort; nothing downstream depends on it.
		_ = fmt.Errorf("close plugin library %q: %w", p.Path, err)
	}
}
