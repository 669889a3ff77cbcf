package validation

import (
	validatorv10 "github.com/go-playground/validator/v10"
)

// New returns a configured validator.
// Only the batch envelope is validated; embed contents are parsed leniently by the normalizer.
func New() *validatorv10.Validate {
	return validatorv10.New()
}
