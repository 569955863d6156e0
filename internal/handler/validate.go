package handler

import (
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"stitchdesk/internal/apperr"
	"stitchdesk/internal/models"
)

var validatorsOnce sync.Once

// registerValidators adds the custom binding tags and makes field errors
// report JSON names.
func registerValidators() {
	validatorsOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name == "" {
				return f.Name
			}
			return name
		})
		_ = v.RegisterValidation("itemtype", func(fl validator.FieldLevel) bool {
			return models.ItemType(fl.Field().String()).Valid()
		})
		_ = v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
			return validPhone(fl.Field().String())
		})
	})
}

// validPhone accepts 7 to 15 digits with the usual separators. A blank
// value passes so the service can report it as missing.
func validPhone(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return true
	}
	digits := 0
	for i, r := range s {
		switch {
		case r >= '0' && r <= '9':
			digits++
		case r == '+' && i == 0:
		case r == ' ' || r == '-' || r == '(' || r == ')':
		default:
			return false
		}
	}
	return digits >= 7 && digits <= 15
}

var tagMessages = map[string]string{
	"required": "This field is required.",
	"email":    "Enter a valid email address.",
	"phone":    "Enter a valid phone number.",
	"itemtype": "Must be one of BLOUSE, SAREE, DRESS, OTHER.",
}

// bindError turns a binding failure into a field map.
func bindError(err error) error {
	var (
		ves validator.ValidationErrors
		se  *json.SyntaxError
		ute *json.UnmarshalTypeError
	)
	switch {
	case errors.As(err, &ves):
		out := &apperr.Validation{}
		for _, fe := range ves {
			out.Add(fieldPath(fe), fieldMessage(fe))
		}
		return out
	case errors.As(err, &ute):
		field := ute.Field
		if field == "" {
			field = "non_field_errors"
		}
		return apperr.Invalid(field, "Invalid value.")
	case errors.As(err, &se):
		return apperr.Invalid("non_field_errors", "Malformed JSON.")
	}
	return apperr.Invalid("non_field_errors", err.Error())
}

// fieldPath drops the request struct name from the namespace.
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func fieldMessage(fe validator.FieldError) string {
	if msg, ok := tagMessages[fe.Tag()]; ok {
		return msg
	}
	switch fe.Tag() {
	case "min":
		if fe.Kind() == reflect.String {
			return "Ensure this field has at least " + fe.Param() + " characters."
		}
		return "Ensure this value is greater than or equal to " + fe.Param() + "."
	case "max":
		if fe.Kind() == reflect.String {
			return "Ensure this field has no more than " + fe.Param() + " characters."
		}
		return "Ensure this value is less than or equal to " + fe.Param() + "."
	case "oneof":
		return "Must be one of: " + fe.Param() + "."
	}
	return "Invalid value."
}
