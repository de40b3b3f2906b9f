// Package validation wraps go-playground/validator so that failures surface as
// domain.ValidationError naming the first failing field.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/bloggera/bloggera/internal/domain"
)

// Validator wraps the go-playground validator with custom rules
type Validator struct {
	validator *validator.Validate
	messages  map[string]string
}

// New creates a validator that names fields by their `field` tag, then their json tag.
func New() *Validator {
	validate := validator.New(validator.WithRequiredStructEnabled())

	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		if name := fld.Tag.Get("field"); name != "" {
			return name
		}
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return strings.ToLower(fld.Name)
		}
		return name
	})

	return &Validator{validator: validate, messages: make(map[string]string)}
}

// Register adds a custom rule with the message reported when it fails.
func (v *Validator) Register(tag, message string, fn validator.Func) error {
	if err := v.validator.RegisterValidation(tag, fn); err != nil {
		return fmt.Errorf("registering %s: %w", tag, err)
	}
	v.messages[tag] = message
	return nil
}

// Validate checks a struct and returns a *domain.ValidationError for the first failing field.
// Fields are checked in declaration order.
func (v *Validator) Validate(i any) error {
	err := v.validator.Struct(i)
	if err == nil {
		return nil
	}

	var errs validator.ValidationErrors
	if !errors.As(err, &errs) || len(errs) == 0 {
		return fmt.Errorf("validating %T: %w", i, err)
	}

	first := errs[0]
	return domain.NewValidationError(first.Field(), v.message(first))
}

func (v *Validator) message(fe validator.FieldError) string {
	field := fe.Field()
	if msg, ok := v.messages[fe.Tag()]; ok {
		return strings.ReplaceAll(msg, "{field}", field)
	}

	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("select at least %s %s", fe.Param(), field)
		}
		return fmt.Sprintf("%s must be at least %s characters long", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters long", field, fe.Param())
	case "email":
		return fmt.Sprintf("%s must be a valid email address", field)
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}
