package dsl

// Buildable produces an expression configuration.
type Buildable interface {
	Build() map[string]any
}

// NodeBuilder provides a fluent API for configuring one expression.
type NodeBuilder struct {
	id       string
	options  map[string]any
	children []Buildable
	ifs      []Buildable
	thens    []Buildable
	nested   string
}

func newNode(id, nested string) *NodeBuilder {
	return &NodeBuilder{id: id, options: make(map[string]any), nested: nested}
}

// With sets a plugin option.
func (n *NodeBuilder) With(key string, value any) *NodeBuilder {
	n.options[key] = value
	return n
}

// Label sets the display label.
func (n *NodeBuilder) Label(label string) *NodeBuilder {
	return n.With("label", label)
}

// Context declares an input slot, e.g. Context("age", Def("int")).
func (n *NodeBuilder) Context(name string, def map[string]any) *NodeBuilder {
	n.section("context_definitions")[name] = def
	return n
}

// Provides declares an output slot.
func (n *NodeBuilder) Provides(name string, def map[string]any) *NodeBuilder {
	n.section("provided_definitions")[name] = def
	return n
}

// Map reads the input slot def from a differently named variable.
func (n *NodeBuilder) Map(def, variable string) *NodeBuilder {
	n.section("context_mapping")[def] = variable
	return n
}

// Value fills the input slot def with a literal.
func (n *NodeBuilder) Value(def string, value any) *NodeBuilder {
	n.section("context_values")[def] = value
	return n
}

// MapOutput writes the output slot def to a differently named variable.
func (n *NodeBuilder) MapOutput(def, variable string) *NodeBuilder {
	n.section("provides_mapping")[def] = variable
	return n
}

// AutoSave marks outputs to be saved when the execution completes.
func (n *NodeBuilder) AutoSave(names ...string) *NodeBuilder {
	existing, _ := n.options["auto_save"].([]any)
	for _, name := range names {
		existing = append(existing, name)
	}
	n.options["auto_save"] = existing
	return n
}

// Negate inverts a condition.
func (n *NodeBuilder) Negate() *NodeBuilder {
	return n.With("negate", true)
}

// Add appends children to a condition or action set.
func (n *NodeBuilder) Add(children ...Buildable) *NodeBuilder {
	n.children = append(n.children, children...)
	return n
}

// If appends conditions to a rule.
func (n *NodeBuilder) If(conditions ...Buildable) *NodeBuilder {
	n.ifs = append(n.ifs, conditions...)
	return n
}

// Then appends actions to a rule.
func (n *NodeBuilder) Then(actions ...Buildable) *NodeBuilder {
	n.thens = append(n.thens, actions...)
	return n
}

// Build returns the configuration mapping. Each call returns a fresh map.
func (n *NodeBuilder) Build() map[string]any {
	out := make(map[string]any, len(n.options)+2)
	for k, v := range n.options {
		out[k] = copyOption(v)
	}
	out["id"] = n.id

	switch n.nested {
	case nestedRule:
		out["conditions"] = buildAll(n.ifs)
		out["actions"] = buildAll(n.thens)
	case nestedSet:
		out["expressions"] = buildAll(n.children)
	}
	return out
}

func (n *NodeBuilder) section(key string) map[string]any {
	m, ok := n.options[key].(map[string]any)
	if !ok {
		m = make(map[string]any)
		n.options[key] = m
	}
	return m
}

func buildAll(items []Buildable) []any {
	out := make([]any, 0, len(items))
	for _, item := range items {
		out = append(out, item.Build())
	}
	return out
}

func copyOption(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = copyOption(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = copyOption(val)
		}
		return out
	}
	return v
}
