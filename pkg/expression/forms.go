package expression

import (
	"sort"

	"github.com/aretw0/rules/pkg/domain"
	"github.com/aretw0/rules/pkg/ports"
)

// ConfigurationForm is the form class of the generic configuration form.
const ConfigurationForm = "configuration_form"

// FormFactory builds the form handler of one expression.
type FormFactory func(e Expression) ports.FormHandler

type configurationForm struct {
	e Expression
}

// NewConfigurationForm lists the context slots, provided slots and default
// options of an expression.
func NewConfigurationForm(e Expression) ports.FormHandler {
	return &configurationForm{e: e}
}

func (f *configurationForm) Form() domain.Form {
	form := domain.Form{Plugin: f.e.PluginID(), Label: f.e.Label(), Fields: []domain.FormField{}}

	form.Fields = append(form.Fields, definitionFields(domain.SectionContext, f.e.ContextDefinitions())...)
	form.Fields = append(form.Fields, definitionFields(domain.SectionProvides, f.e.ProvidedDefinitions())...)

	defaults := f.e.DefaultConfiguration()
	keys := make([]string, 0, len(defaults))
	for k := range defaults {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		form.Fields = append(form.Fields, domain.FormField{
			Name:    k,
			Section: domain.SectionOptions,
			Type:    optionType(defaults[k]),
			Default: defaults[k],
		})
	}
	return form
}

func definitionFields(section string, defs map[string]*domain.ContextDefinition) []domain.FormField {
	out := make([]domain.FormField, 0, len(defs))
	for _, name := range sortedNames(defs) {
		def := defs[name]
		field := domain.FormField{
			Name:        name,
			Section:     section,
			Label:       def.Label(),
			Description: def.Description(),
			Type:        def.DataType().Name(),
			Required:    def.Required(),
		}
		if v, ok := def.DefaultValue(); ok {
			field.Default = v
		}
		out = append(out, field)
	}
	return out
}

func optionType(v any) string {
	switch v.(type) {
	case string:
		return "string"
	case bool:
		return "bool"
	case int, int64:
		return "int"
	case float64:
		return "float"
	case []any, []string:
		return "[any]"
	case map[string]any:
		return "map"
	default:
		return "any"
	}
}
