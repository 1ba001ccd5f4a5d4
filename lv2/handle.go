package lv2

/*
#include <stdlib.h>
#include "clv2.h"
*/
import "C"

import (
	"unsafe"

	"github.com/shaban/filterchain/ferrors"
	"github.com/shaban/filterchain/registry"
)

// instance pairs one instantiated LV2_Handle with the descriptor whose
// function pointers drive it. Like the LADSPA bridge, connect_port stores
// the raw data pointer for later run() calls, so buffers must stay at a
// fixed address for the node's lifetime.
type instance struct {
	desc *C.LV2_Descriptor
	h    C.LV2_Handle
}

func instantiateFn(d *C.LV2_Descriptor, bundlePath string) func(float64, []byte) (registry.Handle, error) {
	return func(sampleRate float64, _ []byte) (registry.Handle, error) {
		cbundle := C.CString(bundlePath)
		defer C.free(unsafe.Pointer(cbundle))

		h := C.call_lv2_instantiate(d, C.double(sampleRate), cbundle)
		if h == nil {
			return nil, ferrors.New(ferrors.LoadError, "INSTANTIATE_FAILED", "LV2 plugin %q returned a null handle", C.GoString(d.URI))
		}
		return &instance{desc: d, h: h}, nil
	}
}

func activateFn(d *C.LV2_Descriptor) func(registry.Handle) error {
	return func(rh registry.Handle) error {
		i := rh.(*instance)
		C.call_lv2_activate(i.desc, i.h)
		return nil
	}
}

func deactivateFn(d *C.LV2_Descriptor) func(registry.Handle) error {
	return func(rh registry.Handle) error {
		i := rh.(*instance)
		C.call_lv2_deactivate(i.desc, i.h)
		return nil
	}
}

func cleanupFn(d *C.LV2_Descriptor) func(registry.Handle) error {
	return func(rh registry.Handle) error {
		i := rh.(*instance)
		C.call_lv2_cleanup(i.desc, i.h)
		return nil
	}
}

func connectFn(d *C.LV2_Descriptor) func(registry.Handle, int, []float32) error {
	return func(rh registry.Handle, portIndex int, buf []float32) error {
		i := rh.(*instance)
		var ptr *C.float
		if len(buf) > 0 {
			ptr = (*C.float)(unsafe.Pointer(&buf[0]))
		}
		C.call_lv2_connect_port(i.desc, i.h, C.uint32_t(portIndex), ptr)
		return nil
	}
}

func connectControlFn(d *C.LV2_Descriptor) func(registry.Handle, int, *float32) error {
	return func(rh registry.Handle, portIndex int, cell *float32) error {
		i := rh.(*instance)
		ptr := (*C.float)(unsafe.Pointer(cell))
		C.call_lv2_connect_port(i.desc, i.h, C.uint32_t(portIndex), ptr)
		return nil
	}
}

func runFn(d *C.LV2_Descriptor) func(registry.Handle, int) error {
	return func(rh registry.Handle, sampleCount int) error {
		i := rh.(*instance)
		C.call_lv2_run(i.desc, i.h, C.uint32_t(sampleCount))
		return nil
	}
}
