// Package validation checks use case inputs against their struct tags.
package validation

import (
	"fmt"
	"reflect"
	"strings"

	domainerrors "planhub/internal/domain/errors"
	"planhub/internal/errors"

	"github.com/go-playground/validator/v10"
)

// Validator reports tag violations as domain validation errors.
type Validator struct {
	validate *validator.Validate
}

// New builds a validator that names fields by their json tag.
func New() *Validator {
	validate := validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return field.Name
		}

		return name
	})

	return &Validator{validate: validate}
}

// Struct validates s. Violations come back as ErrValidationFailed carrying
// one "field: rule" entry per failed field.
func (v *Validator) Struct(s any) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return errors.Wrap(err, "validate input")
	}

	details := make([]string, 0, len(fieldErrs))
	for _, fieldErr := range fieldErrs {
		details = append(details, describe(fieldErr))
	}

	return domainerrors.ErrValidationFailed.WithDetails(strings.Join(details, "; "))
}

func describe(fieldErr validator.FieldError) string {
	switch fieldErr.Tag() {
	case "required":
		return fmt.Sprintf("%s: is required", fieldErr.Field())
	case "email":
		return fmt.Sprintf("%s: must be a valid email address", fieldErr.Field())
	case "max":
		return fmt.Sprintf("%s: must be at most %s long", fieldErr.Field(), fieldErr.Param())
	case "min", "gte", "gt":
		return fmt.Sprintf("%s: must be %s %s", fieldErr.Field(), fieldErr.Tag(), fieldErr.Param())
	default:
		return fmt.Sprintf("%s: failed %s", fieldErr.Field(), fieldErr.Tag())
	}
}
