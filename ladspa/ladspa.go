// Package ladspa loads LADSPA plugins (the Linux Audio Developer's Simple
// Plugin API) through dlopen/dlsym and exposes each label as a
// registry.RawDescriptor, the same contract the builtin package implements.
// Only the instantiate/connect_port/activate/run/deactivate/cleanup
// function-pointer contract is consumed — no manifest parsing, no
// run_adding path.
package ladspa

/*
#cgo LDFLAGS: -ldl
#include <stdlib.h>
#include "cladspa.h"
*/
import "C"

import (
	"math"
	"unsafe"

	"github.com/shaban/filterchain/ferrors"
	"github.com/shaban/filterchain/registry"
)

const (
	portInput    = 1 << 0
	portOutput   = 1 << 1
	portControl  = 1 << 2
	portAudio    = 1 << 3
	hintToggled  = 1 << 2
	hintSampleRt = 1 << 3
	hintInteger  = 1 << 5
	hintLog      = 1 << 4

	hintDefaultMask    = 0x3C0
	hintDefaultNone    = 0x000
	hintDefaultMinimum = 0x040
	hintDefaultLow     = 0x080
	hintDefaultMiddle  = 0x0C0
	hintDefaultHigh    = 0x100
	hintDefaultMaximum = 0x140
	hintDefault0       = 0x200
	hintDefault1       = 0x240
	hintDefault100     = 0x280
	hintDefault440     = 0x2C0
)

// ladspaDefault resolves a LADSPA port's LADSPA_HINT_DEFAULT_* bits (the
// spec only ever documents the lower bound; real plugins use these bits
// to say what their actual default is, logarithmically spaced between
// bounds when LADSPA_HINT_LOGARITHMIC is also set) against its bounds.
func ladspaDefault(hintDescriptor int, lower, upper float64) float64 {
	logarithmic := hintDescriptor&hintLog != 0 && lower > 0 && upper > 0
	mid := func() float64 {
		if logarithmic {
			return math.Sqrt(lower * upper)
		}
		return 0.5 * (lower + upper)
	}
	low := func() float64 {
		if logarithmic {
			return math.Exp(0.75*math.Log(lower) + 0.25*math.Log(upper))
		}
		return 0.75*lower + 0.25*upper
	}
	high := func() float64 {
		if logarithmic {
			return math.Exp(0.25*math.Log(lower) + 0.75*math.Log(upper))
		}
		return 0.25*lower + 0.75*upper
	}

	switch hintDescriptor & hintDefaultMask {
	case hintDefaultMinimum:
		return lower
	case hintDefaultLow:
		return low()
	case hintDefaultMiddle:
		return mid()
	case hintDefaultHigh:
		return high()
	case hintDefaultMaximum:
		return upper
	case hintDefault0:
		return 0
	case hintDefault1:
		return 1
	case hintDefault100:
		return 100
	case hintDefault440:
		return 440
	case hintDefaultNone:
		fallthrough
	default:
		return lower
	}
}

// Loader implements registry.Loader for LADSPA shared objects.
type Loader struct{}

func (Loader) Load(path string) (registry.Library, error) {
	cpath := C.CString(path)
	defer C.free(unsafe.Pointer(cpath))

	handle := C.dlopen(cpath, C.RTLD_NOW)
	if handle == nil {
		return nil, ferrors.New(ferrors.LoadError, "DLOPEN_FAILED", "dlopen %q: %s", path, C.GoString(C.dlerror()))
	}

	sym := C.CString("ladspa_descriptor")
	defer C.free(unsafe.Pointer(sym))
	fn := C.dlsym(handle, sym)
	if fn == nil {
		C.dlclose(handle)
		return nil, ferrors.New(ferrors.LoadError, "NO_ENTRY_POINT", "%q has no ladspa_descriptor symbol", path)
	}

	return &library{handle: handle, descriptorFn: fn}, nil
}

type library struct {
	handle       unsafe.Pointer
	descriptorFn unsafe.Pointer
}

func (l *library) Close() error {
	if C.dlclose(l.handle) != 0 {
		return ferrors.New(ferrors.ResourceError, "DLCLOSE_FAILED", "%s", C.GoString(C.dlerror()))
	}
	return nil
}

// MakeDescriptor scans the library's index-addressed descriptor table for
// one whose Label matches, the same linear search every LADSPA host does.
func (l *library) MakeDescriptor(label string) (*registry.RawDescriptor, error) {
	for i := C.ulong(0); ; i++ {
		d := C.call_ladspa_descriptor(l.descriptorFn, i)
		if d == nil {
			break
		}
		if C.GoString(d.Label) != label {
			continue
		}
		return l.translate(d), nil
	}
	return nil, ferrors.New(ferrors.LoadError, "LABEL_NOT_FOUND", "no LADSPA plugin labeled %q", label)
}

func (l *library) translate(d *C.LADSPA_Descriptor) *registry.RawDescriptor {
	n := int(d.PortCount)
	descs := unsafe.Slice(d.PortDescriptors, n)
	names := unsafe.Slice(d.PortNames, n)
	hints := unsafe.Slice(d.PortRangeHints, n)

	ports := make([]registry.PortDef, n)
	for i := 0; i < n; i++ {
		pd := descs[i]
		var kind registry.PortKind
		switch {
		case pd&portAudio != 0 && pd&portInput != 0:
			kind = registry.AudioIn
		case pd&portAudio != 0 && pd&portOutput != 0:
			kind = registry.AudioOut
		case pd&portControl != 0 && pd&portInput != 0:
			kind = registry.ControlIn
		default:
			kind = registry.ControlOut
		}

		h := hints[i]
		var hint registry.Hint
		if h.HintDescriptor&hintToggled != 0 {
			hint |= registry.HintBoolean
		}
		if h.HintDescriptor&hintInteger != 0 {
			hint |= registry.HintInteger
		}
		if h.HintDescriptor&hintSampleRt != 0 {
			hint |= registry.HintSampleRate
		}

		lower, upper := float64(h.LowerBound), float64(h.UpperBound)
		ports[i] = registry.PortDef{
			Name:    C.GoString(names[i]),
			Kind:    kind,
			Default: ladspaDefault(int(h.HintDescriptor), lower, upper),
			Min:     lower,
			Max:     upper,
			Hint:    hint,
		}
	}

	return &registry.RawDescriptor{
		Label: C.GoString(d.Label),
		Ports: ports,
		VTable: registry.VTable{
			Instantiate:        instantiateFn(d),
			Activate:           activateFn(d),
			Deactivate:         deactivateFn(d),
			Cleanup:            cleanupFn(d),
			ConnectAudioPort:   connectFn(d),
			ConnectControlPort: connectControlFn(d),
			Run:                runFn(d),
		},
	}
}
