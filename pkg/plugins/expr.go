package plugins

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/aretw0/rules/pkg/domain"
	"github.com/aretw0/rules/pkg/expression"
	"github.com/aretw0/rules/pkg/state"
	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

func expressionDefinition() domain.PluginDefinition {
	return domain.PluginDefinition{
		ID:          ExpressionID,
		Label:       "Expression",
		Description: "Evaluates a boolean expression against the execution variables.",
		Kind:        domain.KindCondition,
		FormClass:   expression.ConfigurationForm,
	}
}

// exprCache compiles expressions once per registry.
type exprCache struct {
	mu    sync.RWMutex
	cache map[string]*vm.Program
}

func newExprCache() *exprCache {
	return &exprCache{cache: make(map[string]*vm.Program)}
}

func (c *exprCache) compile(source string) (*vm.Program, error) {
	c.mu.RLock()
	if prog, ok := c.cache[source]; ok {
		c.mu.RUnlock()
		return prog, nil
	}
	c.mu.RUnlock()

	prog, err := expr.Compile(source,
		expr.AllowUndefinedVariables(),
		expr.AsBool(),
	)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.cache[source] = prog
	c.mu.Unlock()
	return prog, nil
}

func (c *exprCache) size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.cache)
}

func (c *exprCache) constructor() expression.Constructor {
	return func(_ expression.Factory, def domain.PluginDefinition, config map[string]any) (expression.Expression, error) {
		return build(&exprCondition{cache: c}, def, config)
	}
}

type exprCondition struct {
	leaf
	cache   *exprCache
	program *vm.Program
}

func (c *exprCondition) DefaultConfiguration() map[string]any {
	return map[string]any{"expression": "true"}
}

func (c *exprCondition) ApplyConfiguration(config map[string]any) error {
	var opts struct {
		Expression string `mapstructure:"expression"`
	}
	if err := expression.Decode(config, &opts); err != nil {
		return err
	}
	source := strings.TrimSpace(opts.Expression)
	if source == "" {
		return optionError(ExpressionID, "expression is empty")
	}
	prog, err := c.cache.compile(source)
	if err != nil {
		return optionError(ExpressionID, "compile %q: %v", source, err)
	}
	c.program = prog
	return nil
}

// ExecuteWithState runs the program with every state variable in scope.
// Context definitions, when declared, are resolved first and shadow state
// variables of the same name.
func (c *exprCondition) ExecuteWithState(_ context.Context, st *state.ExecutionState) (domain.Outcome, error) {
	env := make(map[string]any)
	for name, v := range st.Snapshot() {
		env[name] = v.Value
	}
	values, err := c.ContextValues(st)
	if err != nil {
		return domain.Outcome{}, err
	}
	for name, v := range values {
		env[name] = v
	}

	result, err := expr.Run(c.program, env)
	if err != nil {
		return domain.Outcome{}, fmt.Errorf("%s: %w", ExpressionID, err)
	}
	passed, ok := result.(bool)
	if !ok {
		return domain.Outcome{}, fmt.Errorf("%w: %s: result is %T, not bool", domain.ErrTypeMismatch, ExpressionID, result)
	}
	return c.ConditionResult(passed), nil
}
