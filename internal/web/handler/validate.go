package handler

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Validator is shared by all form handlers.
var Validator = validator.New() //nolint:gochecknoglobals

// FieldError is one failed validation rule of a form field.
type FieldError struct {
	Field string
	Tag   string
	Value any
}

// ValidateForm checks form against its validate tags.
func ValidateForm(form any) []FieldError {
	err := Validator.Struct(form)
	if err == nil {
		return nil
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return []FieldError{{Field: "form", Tag: err.Error()}}
	}

	out := make([]FieldError, 0, len(validationErrors))
	for _, ve := range validationErrors {
		out = append(out, FieldError{Field: ve.Field(), Tag: ve.Tag(), Value: ve.Value()})
	}

	return out
}

// FormErrorMessage joins field errors into one line for the page.
func FormErrorMessage(errs []FieldError) string {
	parts := make([]string, len(errs))
	for i, fe := range errs {
		parts[i] = "Field '" + fe.Field + "' failed validation tag '" + fe.Tag + "'"
	}

	return strings.Join(parts, "; ")
}
