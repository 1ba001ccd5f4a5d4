// Package filterchain ties the registry, graph, queue, and control
// packages together into the engine facade a host embeds: load a
// description, compile it, process blocks, and push control updates.
package filterchain

import (
	"errors"
	"fmt"

	"github.com/shaban/filterchain/ferrors"
)

// ErrorHandler receives diagnostics the Engine reports outside a return
// value: Engine.Compile passes each compile warning to it. Errors from
// Engine.Process (a plugin's Run failing mid-block) are returned to the
// caller and are not routed through the handler.
type ErrorHandler interface {
	HandleError(error)
}

// describe surfaces a ferrors.Error's Kind and Code when err carries one
// (ConfigError, LoadError, CapacityError, ResourceError), falling back
// to the bare error text for anything else.
func describe(err error) string {
	var fe *ferrors.Error
	if errors.As(err, &fe) {
		if fe.Code != "" {
			return fmt.Sprintf("%s(%s): %s", fe.Kind, fe.Code, fe.Message)
		}
		return fmt.Sprintf("%s: %s", fe.Kind, fe.Message)
	}
	return err.Error()
}

// DefaultErrorHandler prints to stdout, matching the teacher's own
// default handler.
type DefaultErrorHandler struct{}

func (h *DefaultErrorHandler) HandleError(err error) {
	fmt.Printf("filterchain: %s\n", describe(err))
}

// LoggingErrorHandler wraps another handler and additionally logs errors
// through a caller-supplied logger.
type LoggingErrorHandler struct {
	underlying ErrorHandler
	logger     func(error)
}

func NewLoggingErrorHandler(underlying ErrorHandler, logger func(error)) *LoggingErrorHandler {
	return &LoggingErrorHandler{underlying: underlying, logger: logger}
}

func (h *LoggingErrorHandler) HandleError(err error) {
	if h.logger != nil {
		h.logger(err)
	}
	if h.underlying != nil {
		h.underlying.HandleError(err)
	}
}

// PanicErrorHandler panics on any error; useful in tests and development.
type PanicErrorHandler struct{}

func (h *PanicErrorHandler) HandleError(err error) {
	panic(fmt.Sprintf("filterchain error: %s", describe(err)))
}
