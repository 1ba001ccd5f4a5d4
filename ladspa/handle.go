package ladspa

/*
#include "cladspa.h"
*/
import "C"

import (
	"unsafe"

	"github.com/shaban/filterchain/ferrors"
	"github.com/shaban/filterchain/registry"
)

// instance pairs one instantiated LADSPA_Handle with the descriptor whose
// function pointers drive it. connect_port stores the raw data pointer
// inside the plugin's own instance memory and reads it again on every Run,
// so the buffers handed to ConnectAudioPort/ConnectControlPort must stay at
// a fixed address for the node's lifetime — true here because the graph
// compiler allocates every port buffer once at compile time.
type instance struct {
	desc *C.LADSPA_Descriptor
	h    C.LADSPA_Handle
}

func instantiateFailed(d *C.LADSPA_Descriptor) error {
	return ferrors.New(ferrors.LoadError, "INSTANTIATE_FAILED", "LADSPA plugin %q returned a null handle", C.GoString(d.Label))
}

func instantiateFn(d *C.LADSPA_Descriptor) func(float64, []byte) (registry.Handle, error) {
	return func(sampleRate float64, _ []byte) (registry.Handle, error) {
		h := C.call_instantiate(d, C.ulong(sampleRate))
		if h == nil {
			return nil, instantiateFailed(d)
		}
		return &instance{desc: d, h: h}, nil
	}
}

func activateFn(d *C.LADSPA_Descriptor) func(registry.Handle) error {
	return func(rh registry.Handle) error {
		i := rh.(*instance)
		C.call_activate(i.desc, i.h)
		return nil
	}
}

func deactivateFn(d *C.LADSPA_Descriptor) func(registry.Handle) error {
	return func(rh registry.Handle) error {
		i := rh.(*instance)
		C.call_deactivate(i.desc, i.h)
		return nil
	}
}

func cleanupFn(d *C.LADSPA_Descriptor) func(registry.Handle) error {
	return func(rh registry.Handle) error {
		i := rh.(*instance)
		C.call_cleanup(i.desc, i.h)
		return nil
	}
}

func connectFn(d *C.LADSPA_Descriptor) func(registry.Handle, int, []float32) error {
	return func(rh registry.Handle, portIndex int, buf []float32) error {
		i := rh.(*instance)
		var ptr *C.LADSPA_Data
		if len(buf) > 0 {
			ptr = (*C.LADSPA_Data)(unsafe.Pointer(&buf[0]))
		}
		C.call_connect_port(i.desc, i.h, C.ulong(portIndex), ptr)
		return nil
	}
}

func connectControlFn(d *C.LADSPA_Descriptor) func(registry.Handle, int, *float32) error {
	return func(rh registry.Handle, portIndex int, cell *float32) error {
		i := rh.(*instance)
		ptr := (*C.LADSPA_Data)(unsafe.Pointer(cell))
		C.call_connect_port(i.desc, i.h, C.ulong(portIndex), ptr)
		return nil
	}
}

func runFn(d *C.LADSPA_Descriptor) func(registry.Handle, int) error {
	return func(rh registry.Handle, sampleCount int) error {
		i := rh.(*instance)
		C.call_run(i.desc, i.h, C.ulong(sampleCount))
		return nil
	}
}
