package domain

// Kind is the category of an expression plugin.
type Kind string

const (
	// KindCondition evaluates to a boolean.
	KindCondition Kind = "condition"
	// KindAction performs an effect; success is its only result.
	KindAction Kind = "action"
	// KindRuleSet composes other expressions.
	KindRuleSet Kind = "rule_set"
)

// Status is the lifecycle position of one expression node.
//
//	Configured -> Refined -> Executing -> Completed | Failed
//
// Refined is optional; Failed is only reachable from Executing.
type Status string

const (
	StatusConfigured Status = "configured"
	StatusRefined    Status = "refined"
	StatusExecuting  Status = "executing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)
