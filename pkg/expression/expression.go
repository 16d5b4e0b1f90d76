package expression

import (
	"context"
	"fmt"
	"sort"

	"github.com/aretw0/rules/pkg/domain"
	"github.com/aretw0/rules/pkg/ports"
	"github.com/aretw0/rules/pkg/schema"
	"github.com/aretw0/rules/pkg/state"
	"github.com/google/uuid"
)

// Expression is one node of a rule tree.
//
// Implementations embed Base, which supplies everything except
// ExecuteWithState. The unexported accessor keeps the set of implementations
// closed to types built on Base.
type Expression interface {
	PluginID() string
	UUID() string
	Kind() domain.Kind
	Label() string
	Definition() domain.PluginDefinition

	Configuration() map[string]any
	Configure(config map[string]any) error
	DefaultConfiguration() map[string]any

	ContextDefinitions() map[string]*domain.ContextDefinition
	ProvidedDefinitions() map[string]*domain.ContextDefinition
	CalculateDependencies() domain.DependencySet
	RefineContextDefinitions(available map[string]schema.Type)

	Root() Expression
	SetRoot(root Expression) error
	ConfigEntityID() string
	SetConfigEntityID(id string)
	FormHandler() ports.FormHandler
	Status() domain.Status

	ExecuteWithState(ctx context.Context, st *state.ExecutionState) (domain.Outcome, error)

	base() *Base
}

// Configurer is implemented by variants that decode their own options.
// ApplyConfiguration receives the merged configuration before it is
// committed; returning an error leaves the node unchanged.
type Configurer interface {
	ApplyConfiguration(config map[string]any) error
}

// baseOptions are the configuration keys every expression understands.
type baseOptions struct {
	Label           string            `mapstructure:"label"`
	ContextMapping  map[string]string `mapstructure:"context_mapping"`
	ContextValues   map[string]any    `mapstructure:"context_values"`
	ProvidesMapping map[string]string `mapstructure:"provides_mapping"`
	AutoSave        []string          `mapstructure:"auto_save"`
	Negate          bool              `mapstructure:"negate"`
}

// Base carries the state shared by every expression: plugin metadata,
// configuration, context definitions and the link to the tree root.
type Base struct {
	self Expression
	def  domain.PluginDefinition
	uuid string

	configuration map[string]any
	options       baseOptions
	context       map[string]*domain.ContextDefinition
	refined       map[string]*domain.ContextDefinition
	provides      map[string]*domain.ContextDefinition
	overridden    []string

	configEntityID string
	status         domain.Status
	form           ports.FormHandler

	tree  *arena
	index int
}

// Init binds the concrete expression, copies the plugin metadata and applies
// the initial configuration. Every variant constructor calls it once.
func (b *Base) Init(self Expression, def domain.PluginDefinition, config map[string]any) error {
	if self == nil || self.base() != b {
		return fmt.Errorf("expression %s: self must embed this Base", def.ID)
	}
	if def.ID == "" {
		return fmt.Errorf("%w: plugin definition has no id", domain.ErrInvalidConfiguration)
	}
	b.self = self
	b.def = def
	b.uuid = uuid.NewString()
	newArena(b)
	return b.Configure(config)
}

func (b *Base) base() *Base { return b }

// PluginID returns the id the plugin was registered under.
func (b *Base) PluginID() string { return b.def.ID }

// UUID identifies this node within its tree.
func (b *Base) UUID() string { return b.uuid }

// Kind returns the plugin category.
func (b *Base) Kind() domain.Kind { return b.def.Kind }

// Definition returns the static plugin metadata.
func (b *Base) Definition() domain.PluginDefinition { return b.def }

// Label returns the configured label, the plugin label, or "<plugin id>"
// when neither is set.
func (b *Base) Label() string {
	if b.options.Label != "" {
		return b.options.Label
	}
	if b.def.Label != "" {
		return b.def.Label
	}
	return "<" + b.def.ID + ">"
}

// Configuration returns {id: plugin id} merged with the stored configuration.
// The result is a deep copy.
func (b *Base) Configuration() map[string]any {
	out := copyMap(b.configuration)
	out["id"] = b.def.ID
	return out
}

// DefaultConfiguration is empty; variants override it.
func (b *Base) DefaultConfiguration() map[string]any {
	return map[string]any{}
}

// Configure replaces the configuration. Missing keys take their defaults.
// The "context_definitions" and "provided_definitions" keys are laid over the
// plugin's static definitions, winning on name collision. On error the node
// keeps its previous configuration.
func (b *Base) Configure(config map[string]any) error {
	merged := copyMap(b.self.DefaultConfiguration())
	for k, v := range config {
		if k == "id" {
			continue
		}
		merged[k] = copyValue(v)
	}

	var overridden []string
	ctxDefs, err := layDefinitions(b.def.Context, merged, "context_definitions", &overridden)
	if err != nil {
		return err
	}
	provDefs, err := layDefinitions(b.def.Provides, merged, "provided_definitions", &overridden)
	if err != nil {
		return err
	}

	var opts baseOptions
	if err := Decode(merged, &opts); err != nil {
		return fmt.Errorf("%w: %s: %w", domain.ErrInvalidConfiguration, b.def.ID, err)
	}
	id, _ := merged["uuid"].(string)
	if id != "" && id != b.uuid && b.tree.holds(id, b) {
		return fmt.Errorf("%w: %s: uuid %q is already used in this tree", domain.ErrInvalidConfiguration, b.def.ID, id)
	}
	if c, ok := b.self.(Configurer); ok {
		if err := c.ApplyConfiguration(merged); err != nil {
			return fmt.Errorf("%s: %w", b.def.ID, err)
		}
	}

	if id != "" {
		b.uuid = id
	}
	b.configuration = merged
	b.options = opts
	b.context = ctxDefs
	b.provides = provDefs
	b.refined = nil
	b.overridden = overridden
	b.status = domain.StatusConfigured
	return nil
}

func layDefinitions(static map[string]*domain.ContextDefinition, config map[string]any, key string, overridden *[]string) (map[string]*domain.ContextDefinition, error) {
	defs := domain.CloneDefinitions(static)
	raw, ok := config[key]
	if !ok || raw == nil {
		return defs, nil
	}
	m, ok := domain.AsMap(raw)
	if !ok {
		return nil, &domain.InvalidDefinitionError{Name: key, Reason: fmt.Sprintf("expected a mapping, got %T", raw)}
	}
	parsed, err := domain.CreateDefinitions(m)
	if err != nil {
		return nil, err
	}
	for name, def := range parsed {
		if _, ok := defs[name]; ok {
			*overridden = append(*overridden, key+"."+name)
		}
		defs[name] = def
	}
	sort.Strings(*overridden)
	return defs, nil
}

// DecodeConfiguration decodes the stored configuration into out.
func (b *Base) DecodeConfiguration(out any) error {
	return Decode(b.configuration, out)
}

// ContextDefinitions returns the input slots, refined when refinement ran.
func (b *Base) ContextDefinitions() map[string]*domain.ContextDefinition {
	if b.refined != nil {
		return domain.CloneDefinitions(b.refined)
	}
	return domain.CloneDefinitions(b.context)
}

// ProvidedDefinitions returns the output slots.
func (b *Base) ProvidedDefinitions() map[string]*domain.ContextDefinition {
	return domain.CloneDefinitions(b.provides)
}

// CalculateDependencies returns an empty set.
func (b *Base) CalculateDependencies() domain.DependencySet {
	return domain.NewDependencySet()
}

// RefineContextDefinitions narrows every context definition declared as
// "any" to the type of the variable it reads, when that variable is
// available. Refinement always starts from the declared definitions, so
// repeated calls with the same input give the same result.
func (b *Base) RefineContextDefinitions(available map[string]schema.Type) {
	refined := make(map[string]*domain.ContextDefinition, len(b.context))
	for name, def := range b.context {
		refined[name] = def
		if def.Explicit() {
			continue
		}
		if t, ok := available[b.ContextVariableName(name)]; ok && !schema.IsAny(t) {
			refined[name] = def.WithDataType(t)
		}
	}
	b.refined = refined
	b.status = domain.StatusRefined
}

// Root returns the top-most ancestor, or the node itself when it was never adopted.
func (b *Base) Root() Expression {
	return b.tree.root(b.index).self
}

// SetRoot links this node under root. A node can be adopted once; linking a
// node under one of its own descendants fails, and so does a subtree that
// repeats a uuid of the target tree.
func (b *Base) SetRoot(root Expression) error {
	if root == nil {
		return fmt.Errorf("%s: root is nil", b.def.ID)
	}
	parent := root.base()
	if b.tree.parents[b.index] != noParent {
		return fmt.Errorf("%s: %w", b.def.ID, domain.ErrAlreadyAdopted)
	}
	if parent.tree == b.tree {
		return fmt.Errorf("%s: %w", b.def.ID, domain.ErrCycle)
	}
	if id := parent.tree.collision(b.tree); id != "" {
		return fmt.Errorf("%w: %s: uuid %q is already used in this tree", domain.ErrInvalidConfiguration, b.def.ID, id)
	}
	parent.tree.adopt(parent, b)
	return nil
}

// IsRoot reports whether the node has no parent.
func (b *Base) IsRoot() bool {
	return b.tree.parents[b.index] == noParent
}

func (b *Base) ConfigEntityID() string { return b.configEntityID }

func (b *Base) SetConfigEntityID(id string) { b.configEntityID = id }

// FormHandler returns the handler resolved from the plugin's form class, or
// nil when the plugin has none.
func (b *Base) FormHandler() ports.FormHandler { return b.form }

// Status returns Configured or Refined. Per-evaluation statuses are kept on
// the ExecutionState.
func (b *Base) Status() domain.Status { return b.status }

// Negated reports whether the "negate" option is set.
func (b *Base) Negated() bool { return b.options.Negate }

// ConditionResult builds a condition outcome, applying "negate".
func (b *Base) ConditionResult(passed bool) domain.Outcome {
	return domain.ConditionResult(passed != b.options.Negate)
}
