package state

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/aretw0/rules/internal/logging"
	"github.com/aretw0/rules/pkg/domain"
	"github.com/aretw0/rules/pkg/ports"
	"github.com/aretw0/rules/pkg/schema"
	"github.com/google/uuid"
)

// ExecutionState holds the variables of one top-level evaluation.
// It is threaded by pointer through the whole expression subtree and is not
// safe for concurrent use: independent evaluations use independent states.
type ExecutionState struct {
	id        string
	variables map[string]domain.Variable
	autoSave  []string
	saveIndex map[string]struct{}
	statuses  map[string]domain.Status

	saver  ports.AutoSaver
	hooks  domain.LifecycleHooks
	logger *slog.Logger
}

// Option configures an ExecutionState.
type Option func(*ExecutionState)

// WithSaver sets the collaborator that receives auto-saved variables.
func WithSaver(saver ports.AutoSaver) Option {
	return func(s *ExecutionState) {
		s.saver = saver
	}
}

// WithHooks registers lifecycle callbacks fired by the expressions that run
// against this state.
func WithHooks(hooks domain.LifecycleHooks) Option {
	return func(s *ExecutionState) {
		s.hooks = hooks
	}
}

// WithLogger sets a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *ExecutionState) {
		s.logger = logger
	}
}

// WithID overrides the generated execution id.
func WithID(id string) Option {
	return func(s *ExecutionState) {
		s.id = id
	}
}

// WithVariables pre-seeds variables. Top-level Execute never uses it; hosts
// that evaluate against known input do. Values are normalized like Set does
// but not validated; hosts call Validate before evaluating.
func WithVariables(vars ...domain.Variable) Option {
	return func(s *ExecutionState) {
		for _, v := range vars {
			if v.Type == nil {
				v.Type = schema.Any()
			}
			v.Value = schema.Normalize(v.Type, v.Value)
			s.variables[v.Name] = v
		}
	}
}

// New creates an empty execution state.
func New(opts ...Option) *ExecutionState {
	s := &ExecutionState{
		id:        uuid.NewString(),
		variables: make(map[string]domain.Variable),
		saveIndex: make(map[string]struct{}),
		statuses:  make(map[string]domain.Status),
		logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ID returns the execution id.
func (s *ExecutionState) ID() string { return s.id }

// Hooks returns the lifecycle callbacks registered for this execution.
func (s *ExecutionState) Hooks() domain.LifecycleHooks { return s.hooks }

// Logger returns the state logger, tagged with the execution id.
func (s *ExecutionState) Logger() *slog.Logger {
	return s.logger.With("execution_id", s.id)
}

// Get returns the value of a variable.
func (s *ExecutionState) Get(name string) (any, error) {
	v, err := s.Variable(name)
	if err != nil {
		return nil, err
	}
	return v.Value, nil
}

// Variable returns a variable with its type.
func (s *ExecutionState) Variable(name string) (domain.Variable, error) {
	v, ok := s.variables[name]
	if !ok {
		return domain.Variable{}, &domain.UndefinedVariableError{Name: name}
	}
	return v, nil
}

// Has reports whether a variable is set.
func (s *ExecutionState) Has(name string) bool {
	_, ok := s.variables[name]
	return ok
}

// Set inserts or overwrites a variable; the last writer wins. A nil dataType
// means "any". A value that does not satisfy dataType is rejected and the
// state is left unchanged.
func (s *ExecutionState) Set(name string, value any, dataType schema.Type) error {
	if name == "" {
		return fmt.Errorf("variable name is empty")
	}
	if dataType == nil {
		dataType = schema.Any()
	}
	value = schema.Normalize(dataType, value)
	if err := dataType.Validate(value); err != nil {
		return fmt.Errorf("%w: variable %q: %w", domain.ErrTypeMismatch, name, err)
	}
	s.variables[name] = domain.Variable{Name: name, Value: value, Type: dataType}
	return nil
}

// Names returns the variable names in sorted order.
func (s *ExecutionState) Names() []string {
	names := make([]string, 0, len(s.variables))
	for name := range s.variables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Snapshot returns a copy of all variables.
func (s *ExecutionState) Snapshot() map[string]domain.Variable {
	out := make(map[string]domain.Variable, len(s.variables))
	for k, v := range s.variables {
		out[k] = v
	}
	return out
}

// Schema returns the types of all variables currently set.
func (s *ExecutionState) Schema() schema.Schema {
	out := make(schema.Schema, len(s.variables))
	for k, v := range s.variables {
		out[k] = v.Type
	}
	return out
}

// Validate checks every variable against its type. All failures are
// reported together as a *schema.AggregateError wrapped with
// domain.ErrTypeMismatch.
func (s *ExecutionState) Validate() error {
	values := make(map[string]any, len(s.variables))
	for k, v := range s.variables {
		values[k] = v.Value
	}
	if err := schema.Validate(s.Schema(), values); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrTypeMismatch, err)
	}
	return nil
}

// RegisterAutoSave marks a variable to be handed to the saver when the
// top-level execution completes. Registration order is kept; duplicates are
// ignored.
func (s *ExecutionState) RegisterAutoSave(name string) {
	if _, ok := s.saveIndex[name]; ok {
		return
	}
	s.saveIndex[name] = struct{}{}
	s.autoSave = append(s.autoSave, name)
}

// AutoSaveNames returns the registered names in registration order.
func (s *ExecutionState) AutoSaveNames() []string {
	return append([]string(nil), s.autoSave...)
}

// AutoSave hands every registered variable to the saver. Names never set are
// skipped. Without a saver this is a no-op. Save failures do not stop the
// remaining saves; they are joined into the returned error.
func (s *ExecutionState) AutoSave(ctx context.Context) error {
	if s.saver == nil {
		return nil
	}

	logger := s.Logger()
	var errs []error
	for _, name := range s.autoSave {
		v, ok := s.variables[name]
		if !ok {
			logger.Debug("auto-save skipped, variable never set", "variable", name)
			continue
		}

		err := s.saver.Save(ctx, v)
		if s.hooks.OnAutoSave != nil {
			s.hooks.OnAutoSave(ctx, &domain.VariableEvent{
				EventBase: domain.EventBase{Timestamp: time.Now(), Type: domain.EventAutoSave, ExecutionID: s.id},
				Name:      name,
				Type:      v.TypeName(),
				Err:       err,
			})
		}
		if err != nil {
			logger.Error("auto-save failed", "variable", name, "error", err)
			errs = append(errs, fmt.Errorf("auto-save %q: %w", name, err))
			continue
		}
		logger.Debug("variable auto-saved", "variable", name, "type", v.TypeName())
	}
	return errors.Join(errs...)
}

// MarkStatus records the lifecycle status of one node for this execution.
func (s *ExecutionState) MarkStatus(nodeUUID string, status domain.Status) {
	s.statuses[nodeUUID] = status
}

// Status returns the status recorded for a node, and whether it ran at all.
func (s *ExecutionState) Status(nodeUUID string) (domain.Status, bool) {
	st, ok := s.statuses[nodeUUID]
	return st, ok
}

// Statuses returns a copy of every status recorded so far, keyed by node UUID.
func (s *ExecutionState) Statuses() map[string]domain.Status {
	out := make(map[string]domain.Status, len(s.statuses))
	for k, v := range s.statuses {
		out[k] = v
	}
	return out
}
