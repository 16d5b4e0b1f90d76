/*
Package expression implements rule trees: composable nodes that read typed
variables from an ExecutionState, evaluate, and write results back.

Every node embeds Base, which carries the plugin metadata, the configuration,
the context definitions (inputs) and provided definitions (outputs), and the
link to the tree root. Concrete plugins add ExecuteWithState.

# Trees

Composites own their children in order. Linking a child with SetRoot merges
it into the parent's arena, so Root is a walk over parent handles. The
built-in composites are:

  - rules_and: passes when every child passes; stops at the first failure; empty fails.
  - rules_or: passes when any child passes; child errors count as failures; empty passes.
  - rules_action_set: runs every child; the first error aborts.
  - rules_rule: a condition set followed by an action set.

# Lifecycle

	Configured -> Refined -> Executing -> Completed | Failed

RefineContextDefinitions narrows inputs declared as "any" to the types of the
variables available upstream. Execute evaluates a node against a fresh state
and then hands the variables registered for auto-save to the saver.

# Plugins

A Registry maps plugin ids to constructors. Create reads the "id" key of a
configuration mapping; composites use the registry to build nested children.
*/
package expression
