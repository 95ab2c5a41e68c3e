package mock

import "github.com/Webictbyleo/capsule"

var _ capsule.Validator = (*Validator)(nil)

// Validator is a mock implementation of capsule.Validator.
type Validator struct {
	ValidateFn func(data []byte, expected capsule.Category, contentType string) capsule.ValidationOutcome
}

func (v *Validator) Validate(data []byte, expected capsule.Category, contentType string) capsule.ValidationOutcome {
	return v.ValidateFn(data, expected, contentType)
}
