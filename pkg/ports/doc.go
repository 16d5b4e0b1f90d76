/*
Package ports defines the driven ports (interfaces) of the rules engine.

These interfaces decouple expression evaluation from external collaborators,
allowing the engine to hand auto-saved variables to memory, Redis or SQLite
without knowing which.

# Key Interfaces

  - AutoSaver: receives variables registered for auto-save when a top-level execution completes.
  - VariableStore: an AutoSaver that can also load, delete and list what it saved.
  - FormHandler: builds the configuration form of an expression.

RunVariableStoreContract is the shared test suite every VariableStore adapter runs.
*/
package ports
