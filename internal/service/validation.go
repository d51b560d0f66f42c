package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/and161185/focus-vault/internal/errs"
)

var validate = validator.New()

// RegisterInput is the registration form.
type RegisterInput struct {
	Name     string `validate:"required,max=100"`
	Email    string `validate:"required,email,max=254"`
	Password string `validate:"required,min=4,max=128"`
}

// ProjectInput is the project creation form.
type ProjectInput struct {
	Name        string `validate:"required,max=100"`
	Description string `validate:"max=500"`
	Color       string `validate:"omitempty,max=32,printascii"`
}

// check validates a struct and folds field errors into one ErrValidation.
func check(v any) error {
	if err := validate.Struct(v); err != nil {
		var ve validator.ValidationErrors
		if errors.As(err, &ve) {
			msgs := make([]string, 0, len(ve))
			for _, fe := range ve {
				msgs = append(msgs, fieldError(fe))
			}
			return fmt.Errorf("%w: %s", errs.ErrValidation, strings.Join(msgs, "; "))
		}
		return fmt.Errorf("%w: %v", errs.ErrValidation, err)
	}
	return nil
}

func fieldError(fe validator.FieldError) string {
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "email":
		return field + " must be a valid email"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed validation (%s)", field, fe.Tag())
	}
}
