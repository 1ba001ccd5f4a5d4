package filterchain

import (
	"fmt"
	"sync"

	"github.com/shaban/filterchain/builtin"
	"github.com/shaban/filterchain/config"
	"github.com/shaban/filterchain/control"
	"github.com/shaban/filterchain/graph"
	"github.com/shaban/filterchain/ladspa"
	"github.com/shaban/filterchain/logging"
	"github.com/shaban/filterchain/lv2"
	"github.com/shaban/filterchain/queue"
	"github.com/shaban/filterchain/registry"
)

// EngineInitState tracks the facade's lifecycle: created, then compiled at
// least once, then actively processing.
type EngineInitState int

const (
	EngineCreated EngineInitState = iota
	GraphCompiled
	EngineRunning
)

// EngineConfig configures a new Engine.
type EngineConfig struct {
	Preferences  config.Preferences
	ErrorHandler ErrorHandler   // defaults to DefaultErrorHandler
	Logger       logging.Logger // defaults to logging.NewStdLogger()
}

// Engine is the top-level facade a host embeds: it owns the plugin
// registry, the compile/reset dispatcher, and the control bridge, and
// exposes the small surface a host actually needs — Compile, Process,
// Reset, and the control operations — without exposing the graph and
// runtime packages directly.
type Engine struct {
	mu sync.RWMutex

	name     string
	settings config.Settings

	registry   *registry.PluginRegistry
	compiler   *graph.Compiler
	dispatcher *queue.Dispatcher
	bridge     *control.Bridge

	errorHandler ErrorHandler
	initState    EngineInitState
	warnings     []string
}

// NewEngine creates an Engine with the builtin, ladspa, and lv2 loaders
// registered, resolves cfg.Preferences into concrete settings, and starts
// the compile/reset dispatcher.
func NewEngine(cfg EngineConfig) (*Engine, error) {
	settings := config.Resolve(cfg.Preferences)

	if cfg.ErrorHandler == nil {
		cfg.ErrorHandler = &DefaultErrorHandler{}
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.NewStdLogger()
	}

	reg := registry.New(map[string]registry.Loader{
		"builtin": builtin.Loader{},
		"ladspa":  ladspa.Loader{},
		"lv2":     lv2.Loader{},
	})

	compiler := &graph.Compiler{
		Registry:     reg,
		SampleRate:   settings.SampleRate,
		MaxInstances: settings.MaxInstances,
		Logger:       cfg.Logger,
	}

	d := queue.NewDispatcher(compiler, nil)
	d.Start()

	e := &Engine{
		name:         "filterchain",
		settings:     settings,
		registry:     reg,
		compiler:     compiler,
		dispatcher:   d,
		errorHandler: cfg.ErrorHandler,
		initState:    EngineCreated,
	}
	e.bridge = control.New(d, cfg.Logger)
	return e, nil
}

// Name returns the engine's diagnostic name.
func (e *Engine) Name() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.name
}

// SetName sets the engine's diagnostic name.
func (e *Engine) SetName(name string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.name = name
}

// Settings returns the resolved engine settings.
func (e *Engine) Settings() config.Settings {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.settings
}

// Compile builds a new graph from desc and atomically publishes it,
// replacing whatever graph is currently active. Blocks until the compile
// finishes on the dispatcher's worker.
func (e *Engine) Compile(desc *graph.Description) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	_, warnings, err := e.dispatcher.Compile(desc, e.settings.ChannelsCapture, e.settings.ChannelsPlayback)
	e.warnings = warnings
	for _, w := range warnings {
		e.errorHandler.HandleError(fmt.Errorf("compile warning: %s", w))
	}
	if err != nil {
		return fmt.Errorf("compile graph: %w", err)
	}
	e.initState = GraphCompiled
	return nil
}

// Warnings returns the warnings collected by the most recent Compile.
func (e *Engine) Warnings() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.warnings
}

// Process runs one block through the currently published graph. Safe to
// call from the audio thread: it never blocks and never allocates.
func (e *Engine) Process(capture, playback [][]float32) error {
	g, rt := e.dispatcher.Current()
	if g == nil || rt == nil {
		return fmt.Errorf("filterchain: no graph compiled yet")
	}
	return rt.Process(capture, playback)
}

// Reset deactivates then re-activates every plugin instance in the current
// graph, draining internal filter state without a full recompile. Callers
// must pause the audio stream before calling this.
func (e *Engine) Reset() error {
	if err := e.dispatcher.Reset(); err != nil {
		return fmt.Errorf("reset graph: %w", err)
	}
	return nil
}

// Bridge exposes the control-surface bridge for the currently published
// graph — parameter discovery, get/set, and snapshotting.
func (e *Engine) Bridge() *control.Bridge {
	return e.bridge
}

// Start marks the engine as actively processing. Purely a bookkeeping
// transition for hosts that want to query IsRunning; Process works
// regardless of this flag.
func (e *Engine) Start() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.initState == EngineCreated {
		return fmt.Errorf("filterchain: cannot start before the first Compile")
	}
	e.initState = EngineRunning
	return nil
}

func (e *Engine) IsRunning() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.initState == EngineRunning
}

// Close tears down the dispatcher and releases the currently published
// graph's plugin instances and descriptor references.
func (e *Engine) Close() error {
	e.dispatcher.Close()
	return nil
}
