package domain

import "fmt"

// Outcome is the result of executing one expression.
// Conditions report their boolean in Passed; actions report Passed=true on
// success (failures are returned as errors); rule sets aggregate.
type Outcome struct {
	Kind   Kind `json:"kind"`
	Passed bool `json:"passed"`
}

// ConditionResult wraps a boolean evaluation.
func ConditionResult(passed bool) Outcome {
	return Outcome{Kind: KindCondition, Passed: passed}
}

// ActionDone is the outcome of an action that completed.
func ActionDone() Outcome {
	return Outcome{Kind: KindAction, Passed: true}
}

func (o Outcome) String() string {
	return fmt.Sprintf("%s(%t)", o.Kind, o.Passed)
}
