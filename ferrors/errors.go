// Package ferrors defines the error taxonomy shared by the plugin registry,
// the graph compiler, and the control bridge.
package ferrors

import "fmt"

// Kind classifies a compile-time or load-time failure, per the error kinds
// enumerated for the graph compiler and plugin registry.
type Kind int

const (
	// ConfigError covers malformed descriptions, unknown types, unknown
	// ports, duplicate external exposure, ports already linked, and cycles.
	ConfigError Kind = iota
	// LoadError covers missing plugin files, unresolved symbols, and
	// labels not found in a loaded library.
	LoadError
	// CapacityError covers replication factors above the instance cap and
	// channel counts that exceed what the runtime can address.
	CapacityError
	// ResourceError covers allocation failures and plugin instantiation
	// failures reported by a descriptor's Instantiate hook.
	ResourceError
)

func (k Kind) String() string {
	switch k {
	case ConfigError:
		return "ConfigError"
	case LoadError:
		return "LoadError"
	case CapacityError:
		return "CapacityError"
	case ResourceError:
		return "ResourceError"
	default:
		return "UnknownError"
	}
}

// Error is a typed error carrying a machine-checkable Kind and a short Code
// (e.g. "CYCLIC_GRAPH", "IN_USE") alongside a human-readable message.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s(%s): %s", e.Kind, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// New builds an Error with no wrapped cause.
func New(kind Kind, code, format string, args ...any) *Error {
	return &Error{Kind: kind, Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap builds an Error around an existing cause, preserving it for errors.Is/As.
func Wrap(kind Kind, code string, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Code: code, Message: fmt.Sprintf(format, args...), Err: err}
}

// Is reports whether err is a *Error of the given kind, unwrapping as needed.
func Is(err error, kind Kind) bool {
	for err != nil {
		if fe, ok := err.(*Error); ok {
			if fe.Kind == kind {
				return true
			}
			err = fe.Err
			continue
		}
		break
	}
	return false
}
