package domain

// PluginDefinition is the static metadata of an expression plugin, declared
// once when the plugin is registered.
type PluginDefinition struct {
	ID          string `json:"id"`
	Label       string `json:"label"`
	Description string `json:"description,omitempty"`
	Kind        Kind   `json:"kind"`

	// FormClass names a form handler factory registered alongside the plugins.
	// Empty means the plugin has no form.
	FormClass string `json:"form_class,omitempty"`

	// Context and Provides are the built-in input and output slots. Caller
	// configuration may add to or replace them by name.
	Context  map[string]*ContextDefinition `json:"context,omitempty"`
	Provides map[string]*ContextDefinition `json:"provides,omitempty"`
}
