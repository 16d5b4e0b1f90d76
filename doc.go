/*
Package rules is a composable rule evaluator: trees of conditions and actions
configured as data and evaluated against typed variables.

Every node of a tree is an expression created by a plugin. Conditions answer
a boolean, actions change the execution state, and rule sets (and, or,
action set, rule) compose other expressions. Nodes declare the variables they
read (context definitions) and write (provided definitions); configuration can
map those slots to other variable names, supply literal values, negate a
condition, or mark written variables for auto-save once evaluation succeeds.

# Usage

	package main

	import (
		"context"
		"fmt"
		"log"

		"github.com/aretw0/rules"
		"github.com/aretw0/rules/pkg/dsl"
		"github.com/aretw0/rules/pkg/domain"
		"github.com/aretw0/rules/pkg/schema"
	)

	func main() {
		eng, err := rules.New()
		if err != nil {
			log.Fatal(err)
		}

		tree, err := eng.Compile(dsl.Rule("Adult").
			If(dsl.Condition("data_comparison").Map("data", "age").Value("value", 18).With("operator", ">=")).
			Then(dsl.Action("variable_set").With("name", "adult").With("type", "bool").Value("value", true)))
		if err != nil {
			log.Fatal(err)
		}

		res, err := eng.Evaluate(context.Background(), tree,
			domain.Variable{Name: "age", Type: schema.Int(), Value: 21})
		if err != nil {
			log.Fatal(err)
		}
		fmt.Println(res.Outcome.Passed, res.Variables["adult"].Value)
	}

Trees can also be loaded from YAML or JSON with Engine.Load and
Engine.LoadFile. The cmd/rules binary wraps the same engine as a CLI and an
HTTP server.
*/
package rules
