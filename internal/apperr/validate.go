package apperr

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

func init() {
	// report json field names instead of Go field names
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
}

// ValidateStruct runs the `validate` tags on s and converts failures
// into a *ValidationError with one entry per offending field.
func ValidateStruct(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	verr := &ValidationError{Fields: make(map[string]string, len(fieldErrs))}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		field := fe.Field()
		var msg string
		switch fe.Tag() {
		case "required":
			msg = "this field is required"
		case "min":
			msg = "must be at least " + fe.Param() + " characters"
		case "max":
			msg = "must be at most " + fe.Param() + " characters"
		case "email":
			msg = "must be a valid email"
		case "eqfield":
			msg = "does not match " + strings.ToLower(fe.Param())
		case "oneof":
			msg = "must be one of: " + fe.Param()
		default:
			msg = "is invalid"
		}
		verr.Fields[field] = msg
		msgs = append(msgs, field+" "+msg)
	}
	verr.Message = strings.Join(msgs, ", ")
	return verr
}
