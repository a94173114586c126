// Package validator wraps go-playground/validator with JSON field names and
// a field -> message map suitable for API error details.
package validator

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

var phoneRe = regexp.MustCompile(`^[0-9]{10}$`)

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())

	// report fields by their json/form name
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		for _, tag := range []string{"json", "form"} {
			name := strings.SplitN(fld.Tag.Get(tag), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name != "" {
				return name
			}
		}
		return fld.Name
	})

	registerCustomValidators()
}

func registerCustomValidators() {
	// ten digit phone number
	_ = validate.RegisterValidation("phone10", func(fl validator.FieldLevel) bool {
		return phoneRe.MatchString(fl.Field().String())
	})
	// non-blank after trimming
	_ = validate.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
}

func ValidateStruct(s any) error {
	return validate.Struct(s)
}

func GetValidator() *validator.Validate {
	return validate
}

// Fields runs ValidateStruct and converts failures into a map keyed by
// the field namespace without the struct name (items[0].name).  A nil map
// means s is valid.  Errors that are not validation errors are returned.
func Fields(s any) (map[string]string, error) {
	err := validate.Struct(s)
	if err == nil {
		return nil, nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil, err
	}
	out := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		key := fe.Namespace()
		if i := strings.IndexByte(key, '.'); i >= 0 {
			key = key[i+1:]
		}
		if _, seen := out[key]; !seen {
			out[key] = message(fe)
		}
	}
	return out, nil
}

func message(fe validator.FieldError) string {
	f := fe.Field()
	switch fe.Tag() {
	case "required", "notblank":
		return fmt.Sprintf("%s is required", f)
	case "email":
		return "Invalid email format"
	case "phone10":
		return "Phone number must be 10 digits"
	case "min":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("%s must contain at least %s entries", f, fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s", f, fe.Param())
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s cannot exceed %s characters", f, fe.Param())
		}
		return fmt.Sprintf("%s must be at most %s", f, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be %s or greater", f, fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be %s or less", f, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", f, fe.Param())
	}
	return fmt.Sprintf("%s is invalid", f)
}
