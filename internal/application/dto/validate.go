package dto

import "github.com/go-playground/validator/v10"

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate valida un DTO contra sus tags `validate`.
func Validate(s any) error {
	return validate.Struct(s)
}
