// Package runtime hosts rule evaluation: it refines a tree against the
// variables a caller supplies, executes it against a fresh ExecutionState
// and auto-saves the results.
package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/rules/internal/logging"
	"github.com/aretw0/rules/pkg/domain"
	"github.com/aretw0/rules/pkg/expression"
	"github.com/aretw0/rules/pkg/ports"
	"github.com/aretw0/rules/pkg/schema"
	"github.com/aretw0/rules/pkg/state"
)

// Evaluator runs expression trees.
type Evaluator struct {
	logger *slog.Logger
	hooks  domain.LifecycleHooks
	saver  ports.AutoSaver
	refine bool
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Evaluator) {
		e.logger = logger
	}
}

// WithHooks adds lifecycle callbacks. Repeated calls are merged.
func WithHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Evaluator) {
		e.hooks = e.hooks.Merge(hooks)
	}
}

// WithSaver sets the auto-save collaborator.
func WithSaver(saver ports.AutoSaver) Option {
	return func(e *Evaluator) {
		e.saver = saver
	}
}

// WithRefine toggles context refinement before execution. On by default.
func WithRefine(refine bool) Option {
	return func(e *Evaluator) {
		e.refine = refine
	}
}

// NewEvaluator creates an evaluator.
func NewEvaluator(opts ...Option) *Evaluator {
	e := &Evaluator{
		logger: logging.NewNop(),
		refine: true,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Result is the outcome of one Run.
type Result struct {
	ExecutionID string                     `json:"execution_id"`
	Outcome     domain.Outcome             `json:"outcome"`
	Variables   map[string]domain.Variable `json:"variables"`
	Statuses    map[string]domain.Status   `json:"statuses"`
	Duration    time.Duration              `json:"duration"`
}

// Run evaluates a tree root against the given input variables. An input
// whose value does not satisfy its type fails with domain.ErrTypeMismatch
// before anything runs.
//
// Refinement updates the tree in place, so a tree must not be shared by
// concurrent Runs while refinement is on.
func (e *Evaluator) Run(ctx context.Context, root expression.Expression, vars ...domain.Variable) (*Result, error) {
	if root == nil {
		return nil, fmt.Errorf("expression is nil")
	}
	if root.Root() != root {
		return nil, fmt.Errorf("%s (%s): %w", root.PluginID(), root.UUID(), domain.ErrNotRoot)
	}

	st := state.New(
		state.WithSaver(e.saver),
		state.WithHooks(e.hooks),
		state.WithLogger(e.logger),
		state.WithVariables(vars...),
	)
	if err := st.Validate(); err != nil {
		return nil, fmt.Errorf("input variables: %w", err)
	}
	if e.refine {
		root.RefineContextDefinitions(st.Schema())
	}
	logger := st.Logger().With("plugin", root.PluginID(), "config_entity", root.ConfigEntityID())
	logger.Info("evaluation started", "variables", len(vars))

	start := time.Now()
	out, err := expression.Evaluate(ctx, root, st)
	if err != nil {
		logger.Error("evaluation failed", "error", err, "duration", time.Since(start))
		return nil, fmt.Errorf("evaluate %s: %w", root.Label(), err)
	}
	if err := st.AutoSave(ctx); err != nil {
		logger.Error("auto-save failed", "error", err)
		return nil, fmt.Errorf("auto-save: %w", err)
	}

	res := &Result{
		ExecutionID: st.ID(),
		Outcome:     out,
		Variables:   st.Snapshot(),
		Statuses:    st.Statuses(),
		Duration:    time.Since(start),
	}
	logger.Info("evaluation finished", "outcome", out.String(), "duration", res.Duration)
	return res, nil
}

// Available maps input variables to their types for refinement.
func Available(vars []domain.Variable) map[string]schema.Type {
	out := make(map[string]schema.Type, len(vars))
	for _, v := range vars {
		if v.Type == nil {
			out[v.Name] = schema.Any()
			continue
		}
		out[v.Name] = v.Type
	}
	return out
}
