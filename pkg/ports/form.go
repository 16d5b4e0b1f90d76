package ports

import "github.com/aretw0/rules/pkg/domain"

// FormHandler builds the configuration form of one expression.
type FormHandler interface {
	Form() domain.Form
}
