package expression

import (
	"context"
	"log/slog"
	"time"

	"github.com/aretw0/rules/pkg/domain"
	"github.com/aretw0/rules/pkg/ports"
	"github.com/aretw0/rules/pkg/state"
)

// ExecuteOption configures the state created by Execute.
type ExecuteOption func(*executeConfig)

type executeConfig struct {
	saver  ports.AutoSaver
	hooks  domain.LifecycleHooks
	logger *slog.Logger
}

// WithSaver sets the collaborator that receives auto-saved variables.
func WithSaver(saver ports.AutoSaver) ExecuteOption {
	return func(c *executeConfig) { c.saver = saver }
}

// WithHooks registers lifecycle callbacks.
func WithHooks(hooks domain.LifecycleHooks) ExecuteOption {
	return func(c *executeConfig) { c.hooks = hooks }
}

// WithLogger sets the execution logger.
func WithLogger(logger *slog.Logger) ExecuteOption {
	return func(c *executeConfig) { c.logger = logger }
}

// Execute evaluates e against a fresh, empty ExecutionState and then
// auto-saves the variables registered during evaluation. Nothing is saved
// when evaluation fails.
func Execute(ctx context.Context, e Expression, opts ...ExecuteOption) (domain.Outcome, error) {
	var cfg executeConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	stateOpts := []state.Option{state.WithSaver(cfg.saver), state.WithHooks(cfg.hooks)}
	if cfg.logger != nil {
		stateOpts = append(stateOpts, state.WithLogger(cfg.logger))
	}
	st := state.New(stateOpts...)

	out, err := Evaluate(ctx, e, st)
	if err != nil {
		return out, err
	}
	if err := st.AutoSave(ctx); err != nil {
		return out, err
	}
	return out, nil
}

// Evaluate runs e against st. It records the node status on the state and
// fires the state's lifecycle hooks around ExecuteWithState. Composites call
// it for each child.
func Evaluate(ctx context.Context, e Expression, st *state.ExecutionState) (domain.Outcome, error) {
	if err := ctx.Err(); err != nil {
		return domain.Outcome{}, err
	}

	hooks := st.Hooks()
	event := &domain.ExpressionEvent{
		EventBase: domain.EventBase{Timestamp: time.Now(), Type: domain.EventEnter, ExecutionID: st.ID()},
		PluginID:  e.PluginID(),
		UUID:      e.UUID(),
		Kind:      e.Kind(),
	}
	st.MarkStatus(e.UUID(), domain.StatusExecuting)
	if hooks.OnEnter != nil {
		hooks.OnEnter(ctx, event)
	}

	start := time.Now()
	out, err := e.ExecuteWithState(ctx, st)
	elapsed := time.Since(start)

	if err != nil {
		st.MarkStatus(e.UUID(), domain.StatusFailed)
	} else {
		st.MarkStatus(e.UUID(), domain.StatusCompleted)
	}
	st.Logger().Debug("expression evaluated",
		"plugin", e.PluginID(),
		"uuid", e.UUID(),
		"outcome", out.String(),
		"duration", elapsed,
		"error", err,
	)

	if hooks.OnLeave != nil {
		hooks.OnLeave(ctx, &domain.ExpressionEvent{
			EventBase: domain.EventBase{Timestamp: time.Now(), Type: domain.EventLeave, ExecutionID: st.ID()},
			PluginID:  e.PluginID(),
			UUID:      e.UUID(),
			Kind:      e.Kind(),
			Outcome:   out,
			Err:       err,
			Duration:  elapsed,
		})
	}
	return out, err
}
