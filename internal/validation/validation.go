// Package validation runs struct-tag checks on client forms before any
// network call and converts failures into apperror.ValidationFailed.
package validation

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/jeepedia/jeepedia/internal/apperror"
)

var (
	validate   = validator.New()
	camelSplit = regexp.MustCompile("([a-z0-9])([A-Z])")
)

// Struct validates v and returns a field-scoped validation error, or nil.
func Struct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperror.Invalid("form", err.Error())
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		name := FieldName(fe.Field())
		fields[name] = message(name, fe)
	}
	return apperror.ValidationFailed(fields)
}

// FieldName converts a Go field name to the snake_case form name.
func FieldName(goName string) string {
	return strings.ToLower(camelSplit.ReplaceAllString(goName, "${1}_${2}"))
}

func message(name string, fe validator.FieldError) string {
	label := strings.ReplaceAll(name, "_", " ")
	switch fe.Tag() {
	case "required":
		return label + " is required"
	case "email":
		return label + " must be a valid email address"
	case "min":
		if fe.Kind().String() == "string" {
			return fmt.Sprintf("%s must be at least %s characters", label, fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s", label, fe.Param())
	case "max":
		if fe.Kind().String() == "string" {
			return fmt.Sprintf("%s must be at most %s characters", label, fe.Param())
		}
		return fmt.Sprintf("%s must be at most %s", label, fe.Param())
	default:
		return label + " is invalid"
	}
}
