package validator

import (
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var (
	once     sync.Once
	validate *validator.Validate
)

// ValidationError represents a single field validation failure.
type ValidationError struct {
	Field string       `json:"field"`
	Tag   string       `json:"tag"`
	Param string       `json:"param"`
	Kind  reflect.Kind `json:"-"`
}

// Message renders the failure for API clients and import reports.
func (e ValidationError) Message() string {
	field := strings.ToLower(strings.ReplaceAll(e.Field, "_", " "))
	if field == "" {
		field = "field"
	}

	switch e.Tag {
	case "required":
		return field + " is required"
	case "email":
		return field + " must be a valid email address"
	case "uuid4":
		return field + " must be a valid UUID"
	case "min", "max":
		bound := "at least"
		if e.Tag == "max" {
			bound = "at most"
		}
		switch e.Kind {
		case reflect.String:
			return fmt.Sprintf("%s must be %s %s characters", field, bound, e.Param)
		case reflect.Slice, reflect.Array, reflect.Map:
			return fmt.Sprintf("%s must contain %s %s items", field, bound, e.Param)
		default:
			return fmt.Sprintf("%s must be %s %s", field, bound, e.Param)
		}
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", field, e.Param)
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, e.Param)
	case "lte":
		return fmt.Sprintf("%s must be less than or equal to %s", field, e.Param)
	case "lt":
		return fmt.Sprintf("%s must be less than %s", field, e.Param)
	}
	if e.Param != "" {
		return fmt.Sprintf("%s failed validation: %s=%s", field, e.Tag, e.Param)
	}
	return fmt.Sprintf("%s failed validation: %s", field, e.Tag)
}

// ValidationErrors collects multiple validation failures.
type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return "validation failed"
	}

	parts := make([]string, len(v))
	for i, err := range v {
		parts[i] = err.Message()
	}
	return strings.Join(parts, "; ")
}

// ValidateStruct validates a struct using registered rules.
func ValidateStruct(s any) error {
	err := getValidator().Struct(s)
	if err == nil {
		return nil
	}

	ve, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}

	failures := make(ValidationErrors, 0, len(ve))
	for _, fe := range ve {
		failures = append(failures, ValidationError{
			Field: fe.Field(),
			Tag:   fe.Tag(),
			Param: fe.Param(),
			Kind:  fe.Kind(),
		})
	}
	return failures
}

// RegisterValidation exposes underlying validator custom rules.
func RegisterValidation(tag string, fn validator.Func) error {
	return getValidator().RegisterValidation(tag, fn)
}

func getValidator() *validator.Validate {
	once.Do(func() {
		validate = validator.New()
		validate.RegisterTagNameFunc(jsonFieldName)
		// Money fields are decimals; expose them to numeric rules (gte, lte, lt) as floats.
		validate.RegisterCustomTypeFunc(func(field reflect.Value) any {
			if d, ok := field.Interface().(decimal.Decimal); ok {
				f, _ := d.Float64()
				return f
			}
			return nil
		}, decimal.Decimal{})
	})
	return validate
}

func jsonFieldName(fld reflect.StructField) string {
	name := fld.Tag.Get("json")
	if name == "" {
		return fld.Name
	}
	if comma := strings.Index(name, ","); comma != -1 {
		name = name[:comma]
	}
	if name == "-" || name == "" {
		return fld.Name
	}
	return name
}
