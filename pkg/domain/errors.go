package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidDefinition matches every *InvalidDefinitionError.
	ErrInvalidDefinition = errors.New("invalid context definition")

	// ErrUndefinedVariable matches every *UndefinedVariableError.
	ErrUndefinedVariable = errors.New("undefined variable")

	// ErrUnsupportedFormHandler matches every *UnsupportedFormHandlerError.
	ErrUnsupportedFormHandler = errors.New("unsupported form handler")

	// ErrUnknownPlugin is returned when no plugin is registered under an id.
	ErrUnknownPlugin = errors.New("unknown plugin")

	// ErrDuplicatePlugin is returned when a plugin id is registered twice.
	ErrDuplicatePlugin = errors.New("plugin already registered")

	// ErrInvalidConfiguration is returned when plugin options cannot be decoded.
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// ErrTypeMismatch is returned when a value does not satisfy its data type.
	ErrTypeMismatch = errors.New("type mismatch")

	// ErrAlreadyAdopted is returned when SetRoot is called on a node that already has a parent.
	ErrAlreadyAdopted = errors.New("expression already has a root")

	// ErrCycle is returned when a root link would make a node its own ancestor.
	ErrCycle = errors.New("expression tree cycle")

	// ErrNotRoot is returned when top-level execution is requested on a nested node.
	ErrNotRoot = errors.New("expression is not a tree root")

	// ErrVariableNotFound is returned by variable stores for unknown names.
	ErrVariableNotFound = errors.New("variable not found")
)

// InvalidDefinitionError reports malformed context-definition configuration.
type InvalidDefinitionError struct {
	Name   string
	Reason string
	Err    error
}

func (e *InvalidDefinitionError) Error() string {
	msg := fmt.Sprintf("invalid context definition %q: %s", e.Name, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *InvalidDefinitionError) Unwrap() error { return e.Err }

func (e *InvalidDefinitionError) Is(target error) bool { return target == ErrInvalidDefinition }

// UndefinedVariableError reports a read of a variable that was never set.
type UndefinedVariableError struct {
	Name string
	// Plugin is the id of the expression that performed the read, if known.
	Plugin string
}

func (e *UndefinedVariableError) Error() string {
	if e.Plugin != "" {
		return fmt.Sprintf("%s: variable %q is not defined", e.Plugin, e.Name)
	}
	return fmt.Sprintf("variable %q is not defined", e.Name)
}

func (e *UndefinedVariableError) Is(target error) bool { return target == ErrUndefinedVariable }

// UnsupportedFormHandlerError reports a form handler name with no registered factory.
type UnsupportedFormHandlerError struct {
	Plugin  string
	Handler string
}

func (e *UnsupportedFormHandlerError) Error() string {
	return fmt.Sprintf("plugin %s: form handler %q is not registered", e.Plugin, e.Handler)
}

func (e *UnsupportedFormHandlerError) Is(target error) bool {
	return target == ErrUnsupportedFormHandler
}
