// Package lv2 loads LV2 plugins through dlopen/dlsym and exposes each URI
// as a registry.RawDescriptor, the same contract the builtin package
// implements. LV2 normally describes its ports through a turtle manifest
// bundled alongside the shared object; parsing turtle is out of scope, so
// this loader instead reads port metadata from a JSON sidecar file next to
// the .so (see sidecar.go). Only the
// instantiate/connect_port/activate/run/deactivate/cleanup function-pointer
// contract is consumed from the binary itself.
package lv2

/*
#cgo LDFLAGS: -ldl
#include <stdlib.h>
#include "clv2.h"
*/
import "C"

import (
	"path/filepath"
	"unsafe"

	"github.com/shaban/filterchain/ferrors"
	"github.com/shaban/filterchain/registry"
)

// Loader implements registry.Loader for LV2 shared objects.
type Loader struct{}

func (Loader) Load(path string) (registry.Library, error) {
	cpath := C.CString(path)
	defer C.free(unsafe.Pointer(cpath))

	handle := C.dlopen(cpath, C.RTLD_NOW)
	if handle == nil {
		return nil, ferrors.New(ferrors.LoadError, "DLOPEN_FAILED", "dlopen %q: %s", path, C.GoString(C.dlerror()))
	}

	sym := C.CString("lv2_descriptor")
	defer C.free(unsafe.Pointer(sym))
	fn := C.dlsym(handle, sym)
	if fn == nil {
		C.dlclose(handle)
		return nil, ferrors.New(ferrors.LoadError, "NO_ENTRY_POINT", "%q has no lv2_descriptor symbol", path)
	}

	sidecar, err := loadSidecar(path)
	if err != nil {
		C.dlclose(handle)
		return nil, err
	}

	return &library{
		path:         path,
		bundlePath:   filepath.Dir(path),
		handle:       handle,
		descriptorFn: fn,
		sidecar:      sidecar,
	}, nil
}

type library struct {
	path         string
	bundlePath   string
	handle       unsafe.Pointer
	descriptorFn unsafe.Pointer
	sidecar      *sidecarFile
}

func (l *library) Close() error {
	if C.dlclose(l.handle) != 0 {
		return ferrors.New(ferrors.ResourceError, "DLCLOSE_FAILED", "%s", C.GoString(C.dlerror()))
	}
	return nil
}

// MakeDescriptor treats label as the plugin's LV2 URI: LV2 plugins are
// identified by URI, not by a short label like LADSPA.
func (l *library) MakeDescriptor(uri string) (*registry.RawDescriptor, error) {
	sp, ok := l.sidecar.plugin(uri)
	if !ok {
		return nil, ferrors.New(ferrors.LoadError, "SIDECAR_URI_NOT_FOUND", "sidecar for %q has no entry for %q", l.path, uri)
	}
	ports, err := portDefs(sp.Ports)
	if err != nil {
		return nil, err
	}

	for i := C.uint32_t(0); ; i++ {
		d := C.call_lv2_descriptor(l.descriptorFn, i)
		if d == nil {
			break
		}
		if C.GoString(d.URI) != uri {
			continue
		}
		return l.translate(d, ports), nil
	}
	return nil, ferrors.New(ferrors.LoadError, "URI_NOT_FOUND", "no LV2 plugin with URI %q in %q", uri, l.path)
}

func (l *library) translate(d *C.LV2_Descriptor, ports []registry.PortDef) *registry.RawDescriptor {
	return &registry.RawDescriptor{
		Label: C.GoString(d.URI),
		Ports: ports,
		VTable: registry.VTable{
			Instantiate:        instantiateFn(d, l.bundlePath),
			Activate:           activateFn(d),
			Deactivate:         deactivateFn(d),
			Cleanup:            cleanupFn(d),
			ConnectAudioPort:   connectFn(d),
			ConnectControlPort: connectControlFn(d),
			Run:                runFn(d),
		},
	}
}
