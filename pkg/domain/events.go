package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventEnter    EventType = "expression_enter"
	EventLeave    EventType = "expression_leave"
	EventAutoSave EventType = "variable_auto_save"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp   time.Time `json:"timestamp"`
	Type        EventType `json:"type"`
	ExecutionID string    `json:"execution_id"`
}

// ExpressionEvent represents entry into or exit from one expression.
// Outcome, Err and Duration are only set on leave.
type ExpressionEvent struct {
	EventBase
	PluginID string        `json:"plugin_id"`
	UUID     string        `json:"uuid"`
	Kind     Kind          `json:"kind"`
	Outcome  Outcome       `json:"outcome"`
	Err      error         `json:"-"`
	Duration time.Duration `json:"duration,omitempty"`
}

// VariableEvent represents a variable handed to the auto-save collaborator.
type VariableEvent struct {
	EventBase
	Name string `json:"name"`
	Type string `json:"type"`
	Err  error  `json:"-"`
}

// LifecycleHooks defines callbacks for evaluation observability.
type LifecycleHooks struct {
	OnEnter    func(context.Context, *ExpressionEvent)
	OnLeave    func(context.Context, *ExpressionEvent)
	OnAutoSave func(context.Context, *VariableEvent)
}

// Merge returns hooks that call h first and then other.
func (h LifecycleHooks) Merge(other LifecycleHooks) LifecycleHooks {
	return LifecycleHooks{
		OnEnter:    chainExpression(h.OnEnter, other.OnEnter),
		OnLeave:    chainExpression(h.OnLeave, other.OnLeave),
		OnAutoSave: chainVariable(h.OnAutoSave, other.OnAutoSave),
	}
}

func chainExpression(a, b func(context.Context, *ExpressionEvent)) func(context.Context, *ExpressionEvent) {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return func(ctx context.Context, e *ExpressionEvent) {
		a(ctx, e)
		b(ctx, e)
	}
}

func chainVariable(a, b func(context.Context, *VariableEvent)) func(context.Context, *VariableEvent) {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return func(ctx context.Context, e *VariableEvent) {
		a(ctx, e)
		b(ctx, e)
	}
}
