package domain

// FormField describes one editable setting of an expression.
type FormField struct {
	Name        string `json:"name"`
	Section     string `json:"section"`
	Label       string `json:"label,omitempty"`
	Description string `json:"description,omitempty"`
	Type        string `json:"type"`
	Required    bool   `json:"required"`
	Default     any    `json:"default,omitempty"`
}

// Form sections.
const (
	SectionContext  = "context"
	SectionProvides = "provides"
	SectionOptions  = "options"
)

// Form is the editing surface of one configured expression.
type Form struct {
	Plugin string      `json:"plugin"`
	Label  string      `json:"label"`
	Fields []FormField `json:"fields"`
}
