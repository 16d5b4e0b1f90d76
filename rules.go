package rules

import (
	"context"
	"errors"
	"log/slog"

	"github.com/aretw0/rules/internal/logging"
	"github.com/aretw0/rules/internal/runtime"
	"github.com/aretw0/rules/pkg/domain"
	"github.com/aretw0/rules/pkg/dsl"
	"github.com/aretw0/rules/pkg/expression"
	"github.com/aretw0/rules/pkg/loader"
	"github.com/aretw0/rules/pkg/plugins"
	"github.com/aretw0/rules/pkg/ports"
)

// Result is the outcome of one evaluation.
type Result = runtime.Result

// Engine is the high-level entry point for the rules library.
// It wraps the plugin registry and the evaluator behind a simplified API.
type Engine struct {
	registry  *expression.Registry
	evaluator *runtime.Evaluator
	hooks     domain.LifecycleHooks
	saver     ports.AutoSaver
	logger    *slog.Logger
	refine    bool
	builtins  bool
	custom    []customPlugin
}

type customPlugin struct {
	def  domain.PluginDefinition
	ctor expression.Constructor
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = e.hooks.Merge(hooks)
	}
}

// WithStore sets where auto-saved variables go.
func WithStore(saver ports.AutoSaver) Option {
	return func(e *Engine) {
		e.saver = saver
	}
}

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithPlugin registers a custom plugin next to the built-in ones.
func WithPlugin(def domain.PluginDefinition, ctor expression.Constructor) Option {
	return func(e *Engine) {
		e.custom = append(e.custom, customPlugin{def: def, ctor: ctor})
	}
}

// WithoutBuiltins leaves out the built-in conditions and actions. The
// composites are always available.
func WithoutBuiltins() Option {
	return func(e *Engine) {
		e.builtins = false
	}
}

// WithoutRefinement skips context refinement before each evaluation.
func WithoutRefinement() Option {
	return func(e *Engine) {
		e.refine = false
	}
}

// New creates an engine with the built-in plugins registered.
func New(opts ...Option) (*Engine, error) {
	e := &Engine{
		logger:   logging.NewNop(),
		refine:   true,
		builtins: true,
	}
	for _, opt := range opts {
		opt(e)
	}

	e.registry = expression.NewRegistry(expression.WithRegistryLogger(e.logger))
	var errs []error
	if e.builtins {
		errs = append(errs, plugins.Register(e.registry))
	}
	for _, p := range e.custom {
		errs = append(errs, e.registry.Register(p.def, p.ctor))
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	e.evaluator = runtime.NewEvaluator(
		runtime.WithLogger(e.logger),
		runtime.WithHooks(e.hooks),
		runtime.WithSaver(e.saver),
		runtime.WithRefine(e.refine),
	)
	return e, nil
}

// Registry returns the plugin registry.
func (e *Engine) Registry() *expression.Registry {
	return e.registry
}

// Build creates a tree from a configuration map.
func (e *Engine) Build(config map[string]any) (expression.Expression, error) {
	return e.registry.Create(config)
}

// Compile creates a tree from a DSL builder.
func (e *Engine) Compile(b dsl.Buildable) (expression.Expression, error) {
	return dsl.Compile(e.registry, b)
}

// Load creates a tree from YAML or JSON bytes.
func (e *Engine) Load(data []byte, format loader.Format) (expression.Expression, error) {
	return loader.Load(e.registry, data, format)
}

// LoadFile creates a tree from a .yaml, .yml or .json file.
func (e *Engine) LoadFile(path string) (expression.Expression, error) {
	return loader.LoadFile(e.registry, path)
}

// Evaluate runs a tree root against the given input variables.
func (e *Engine) Evaluate(ctx context.Context, root expression.Expression, vars ...domain.Variable) (*Result, error) {
	return e.evaluator.Run(ctx, root, vars...)
}
