package ports

import (
	"context"

	"github.com/aretw0/rules/pkg/domain"
)

// AutoSaver receives the variables an execution registered for auto-save.
// It is the persistence collaborator handed to an ExecutionState; the engine
// never reads back through it.
type AutoSaver interface {
	Save(ctx context.Context, v domain.Variable) error
}

// VariableStore is an AutoSaver that can also read its contents back.
type VariableStore interface {
	AutoSaver

	// Load retrieves a variable by name.
	// Returns domain.ErrVariableNotFound if it does not exist.
	Load(ctx context.Context, name string) (domain.Variable, error)

	// Delete removes a variable. Deleting an unknown name is not an error.
	Delete(ctx context.Context, name string) error

	// List returns the stored variable names in sorted order.
	List(ctx context.Context) ([]string, error)
}

// AutoSaverFunc adapts a function to the AutoSaver interface.
type AutoSaverFunc func(ctx context.Context, v domain.Variable) error

func (f AutoSaverFunc) Save(ctx context.Context, v domain.Variable) error {
	return f(ctx, v)
}
