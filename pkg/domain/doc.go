/*
Package domain contains the core vocabulary of the rules engine.

It defines the entities shared by every layer: context definitions (the typed
input and output slots of an expression), variables, execution outcomes,
plugin metadata, dependency references, lifecycle events and the error
taxonomy. This package is kept pure and free of I/O.

# Key Entities

  - ContextDefinition: one named, typed slot; built from configuration with CreateFromArray.
  - Variable: a named value tagged with a schema.Type.
  - Outcome: what executing an expression produced (condition boolean or action success).
  - PluginDefinition: static metadata registered with each expression plugin.
  - LifecycleHooks: callbacks fired around each expression and auto-save.

# Errors

InvalidDefinitionError, UndefinedVariableError and UnsupportedFormHandlerError
are structured; each also matches its sentinel (ErrInvalidDefinition,
ErrUndefinedVariable, ErrUnsupportedFormHandler) through errors.Is.
*/
package domain
