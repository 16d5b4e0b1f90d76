package expression

import (
	"fmt"

	"github.com/aretw0/rules/pkg/domain"
	"github.com/aretw0/rules/pkg/schema"
)

// ExpressionsKey holds the ordered child configurations of a composite.
const ExpressionsKey = "expressions"

// Composite is an expression that owns an ordered list of children.
type Composite struct {
	Base
	factory  Factory
	children []Expression
}

// InitComposite is Init for composites; f builds the children listed under
// ExpressionsKey.
func (c *Composite) InitComposite(self Expression, f Factory, def domain.PluginDefinition, config map[string]any) error {
	c.factory = f
	return c.Init(self, def, config)
}

func (c *Composite) composite() *Composite { return c }

// ApplyConfiguration rebuilds the children from ExpressionsKey when present.
func (c *Composite) ApplyConfiguration(config map[string]any) error {
	configs, err := ChildConfigs(config, ExpressionsKey)
	if err != nil {
		return err
	}
	delete(config, ExpressionsKey)
	if configs == nil {
		return nil
	}
	children, err := c.build(configs)
	if err != nil {
		return err
	}
	if err := distinctUUIDs(children); err != nil {
		return err
	}
	for _, old := range c.children {
		old.base().release()
	}
	c.children = nil
	for _, child := range children {
		if err := c.AddExpression(child); err != nil {
			return err
		}
	}
	return nil
}

func (c *Composite) build(configs []map[string]any) ([]Expression, error) {
	if c.factory == nil {
		return nil, fmt.Errorf("%w: composite %s has no factory for nested expressions", domain.ErrInvalidConfiguration, c.def.ID)
	}
	out := make([]Expression, 0, len(configs))
	for i, cfg := range configs {
		child, err := c.factory.Create(cfg)
		if err != nil {
			return nil, fmt.Errorf("child %d: %w", i, err)
		}
		out = append(out, child)
	}
	return out, nil
}

func distinctUUIDs(children []Expression) error {
	seen := make(map[string]struct{})
	for _, child := range children {
		for _, n := range child.base().tree.nodes {
			if n == nil {
				continue
			}
			if _, ok := seen[n.uuid]; ok {
				return fmt.Errorf("%w: uuid %q is used twice", domain.ErrInvalidConfiguration, n.uuid)
			}
			seen[n.uuid] = struct{}{}
		}
	}
	return nil
}

// AddExpression appends a child and links it under this composite.
func (c *Composite) AddExpression(child Expression) error {
	if child == nil {
		return fmt.Errorf("%s: child is nil", c.def.ID)
	}
	if err := child.SetRoot(c.self); err != nil {
		return err
	}
	c.children = append(c.children, child)
	return nil
}

// Expressions returns the children in evaluation order.
func (c *Composite) Expressions() []Expression {
	return append([]Expression(nil), c.children...)
}

// Configuration includes the configuration of every child under ExpressionsKey.
func (c *Composite) Configuration() map[string]any {
	out := c.Base.Configuration()
	children := make([]any, 0, len(c.children))
	for _, child := range c.children {
		children = append(children, child.Configuration())
	}
	out[ExpressionsKey] = children
	return out
}

// CalculateDependencies is the union of the children's dependencies.
func (c *Composite) CalculateDependencies() domain.DependencySet {
	deps := c.Base.CalculateDependencies()
	for _, child := range c.children {
		deps.Merge(child.CalculateDependencies())
	}
	return deps
}

// RefineContextDefinitions refines the children in order. Each child sees
// the variables provided by the siblings before it.
func (c *Composite) RefineContextDefinitions(available map[string]schema.Type) {
	c.Base.RefineContextDefinitions(available)
	scope := make(map[string]schema.Type, len(available))
	for k, v := range available {
		scope[k] = v
	}
	for _, child := range c.children {
		child.RefineContextDefinitions(scope)
		for name, t := range ProvidedVariables(child) {
			scope[name] = t
		}
	}
}

func (c *Composite) providedVariables() map[string]schema.Type {
	out := c.Base.providedVariables()
	for _, child := range c.children {
		for name, t := range ProvidedVariables(child) {
			out[name] = t
		}
	}
	return out
}

// Walk visits e and its descendants depth-first, in evaluation order.
// Returning false from fn skips the children of that node.
func Walk(e Expression, fn func(e Expression, depth int) bool) {
	walk(e, 0, fn)
}

func walk(e Expression, depth int, fn func(Expression, int) bool) {
	if !fn(e, depth) {
		return
	}
	c, ok := e.(interface{ composite() *Composite })
	if !ok {
		return
	}
	for _, child := range c.composite().children {
		walk(child, depth+1, fn)
	}
}
