package expression

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/aretw0/rules/internal/logging"
	"github.com/aretw0/rules/pkg/domain"
	"github.com/aretw0/rules/pkg/ports"
)

// Factory creates expressions from configuration. Composites receive one to
// build their children.
type Factory interface {
	Create(config map[string]any) (Expression, error)
}

// Constructor creates one plugin instance from its metadata and configuration.
type Constructor func(f Factory, def domain.PluginDefinition, config map[string]any) (Expression, error)

type registration struct {
	def  domain.PluginDefinition
	ctor Constructor
}

// Registry manages the available expression plugins and form handlers.
type Registry struct {
	mu      sync.RWMutex
	plugins map[string]registration
	forms   map[string]FormFactory
	logger  *slog.Logger
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithRegistryLogger sets the logger used while creating expressions.
func WithRegistryLogger(logger *slog.Logger) RegistryOption {
	return func(r *Registry) {
		r.logger = logger
	}
}

// NewRegistry creates a registry holding the built-in composites and the
// default configuration form.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		plugins: make(map[string]registration),
		forms:   make(map[string]FormFactory),
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}

	r.RegisterForm(ConfigurationForm, NewConfigurationForm)
	for _, c := range []struct {
		def  domain.PluginDefinition
		ctor Constructor
	}{
		{domain.PluginDefinition{ID: AndID, Label: "And", Description: "Passes when every condition passes.", Kind: domain.KindRuleSet, FormClass: ConfigurationForm}, newAndSet},
		{domain.PluginDefinition{ID: OrID, Label: "Or", Description: "Passes when any condition passes.", Kind: domain.KindRuleSet, FormClass: ConfigurationForm}, newOrSet},
		{domain.PluginDefinition{ID: ActionSetID, Label: "Action set", Description: "Runs actions in order.", Kind: domain.KindRuleSet, FormClass: ConfigurationForm}, newActionSet},
		{domain.PluginDefinition{ID: RuleID, Label: "Rule", Description: "Runs actions when its conditions pass.", Kind: domain.KindRuleSet, FormClass: ConfigurationForm}, newRule},
	} {
		_ = r.Register(c.def, c.ctor)
	}
	return r
}

// Register adds a plugin. Registering an id twice fails.
func (r *Registry) Register(def domain.PluginDefinition, ctor Constructor) error {
	if def.ID == "" {
		return fmt.Errorf("%w: plugin id is empty", domain.ErrInvalidConfiguration)
	}
	if ctor == nil {
		return fmt.Errorf("%w: plugin %s has no constructor", domain.ErrInvalidConfiguration, def.ID)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.plugins[def.ID]; ok {
		return fmt.Errorf("%w: %s", domain.ErrDuplicatePlugin, def.ID)
	}
	r.plugins[def.ID] = registration{def: def, ctor: ctor}
	return nil
}

// RegisterForm adds a form handler factory under a form class name.
// An existing factory with the same name is replaced.
func (r *Registry) RegisterForm(name string, f FormFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.forms[name] = f
}

// Create builds an expression from a configuration whose "id" key names the plugin.
func (r *Registry) Create(config map[string]any) (Expression, error) {
	id, _ := config["id"].(string)
	if id == "" {
		return nil, fmt.Errorf("%w: configuration has no plugin id", domain.ErrUnknownPlugin)
	}
	return r.CreateWith(id, config)
}

// CreateWith builds an expression of the given plugin.
func (r *Registry) CreateWith(id string, config map[string]any) (Expression, error) {
	r.mu.RLock()
	reg, ok := r.plugins[id]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownPlugin, id)
	}
	if config == nil {
		config = map[string]any{}
	}

	e, err := reg.ctor(r, reg.def, config)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", id, err)
	}

	b := e.base()
	for _, name := range b.overridden {
		r.logger.Debug("static definition overridden by configuration", "plugin", id, "definition", name)
	}
	b.form = r.resolveForm(e)
	return e, nil
}

func (r *Registry) resolveForm(e Expression) ports.FormHandler {
	class := e.Definition().FormClass
	if class == "" {
		return nil
	}
	r.mu.RLock()
	f, ok := r.forms[class]
	r.mu.RUnlock()
	if !ok {
		err := &domain.UnsupportedFormHandlerError{Plugin: e.PluginID(), Handler: class}
		r.logger.Warn("form handler unavailable", "plugin", e.PluginID(), "error", err)
		return nil
	}
	return f(e)
}

// Definitions returns the metadata of every plugin, sorted by id.
func (r *Registry) Definitions() []domain.PluginDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.PluginDefinition, 0, len(r.plugins))
	for _, reg := range r.plugins {
		out = append(out, reg.def)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Definition returns the metadata of one plugin.
func (r *Registry) Definition(id string) (domain.PluginDefinition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	reg, ok := r.plugins[id]
	return reg.def, ok
}
