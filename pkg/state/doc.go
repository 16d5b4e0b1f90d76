// Package state implements the ExecutionState: the typed variable scope one
// top-level evaluation threads through its expression tree.
//
// A state is created per evaluation, mutated in tree order by the expressions
// that run against it, and finally flushed: variables registered with
// RegisterAutoSave are handed to a ports.AutoSaver by AutoSave.
package state
