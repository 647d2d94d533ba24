// Package phone checks phone numbers supplied during registration.
package phone

import (
	"github.com/go-playground/validator/v10"
)

// Validator accepts international numbers in E.164 form: a leading '+'
// followed by 7 to 15 digits, the first of which is a non-zero country code
// digit.
type Validator struct {
	v *validator.Validate
}

func NewValidator() *Validator {
	return &Validator{v: validator.New(validator.WithRequiredStructEnabled())}
}

// IsValidFormat reports whether phoneNumber is a well-formed E.164 number.
func (p *Validator) IsValidFormat(phoneNumber string) bool {
	return p.v.Var(phoneNumber, "required,e164,startsnotwith=+0") == nil
}
