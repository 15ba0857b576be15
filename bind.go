package logos

// Query parameter binding with struct tag validation via
// go-playground/validator/v10.

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())

	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		if name := strings.SplitN(fld.Tag.Get("query"), ",", 2)[0]; name != "" && name != "-" {
			return name
		}
		return fld.Name
	})
}

func formatFieldError(tag, param string) string {
	switch tag {
	case "required":
		return "required"
	case "max":
		return "must be at most " + param + " characters"
	case "oneof":
		return "must be one of: " + param
	default:
		if param != "" {
			return tag + "=" + param
		}
		return tag
	}
}

// Query decodes query parameters into dest, a pointer to a struct whose
// string fields carry `query` tags, and validates it. It returns false after
// recording a 400 with SetError when decoding or validation fails.
func Query(r *http.Request, dest any) bool {
	if err := decodeQuery(r, dest); err != nil {
		SetError(r, ErrBadRequest.With("Invalid query parameters"))
		return false
	}

	if err := validate.Struct(dest); err != nil {
		SetError(r, NewValidationError(translateErrors(err)))
		return false
	}

	return true
}

func translateErrors(err error) []FieldError {
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) {
		return []FieldError{{
			Code:    "validation",
			Message: err.Error(),
		}}
	}
	result := make([]FieldError, len(errs))
	for i, e := range errs {
		result[i] = FieldError{
			Param:   e.Field(),
			Code:    e.Tag(),
			Message: formatFieldError(e.Tag(), e.Param()),
		}
	}
	return result
}

func decodeQuery(r *http.Request, dest any) error {
	rv := reflect.ValueOf(dest)
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		return fmt.Errorf("dest must be non-nil pointer to struct")
	}
	v := rv.Elem()
	if v.Kind() != reflect.Struct {
		return fmt.Errorf("dest must be pointer to struct, got pointer to %s", v.Kind())
	}
	t := v.Type()

	query := r.URL.Query()

	for i := range t.NumField() {
		structField := t.Field(i)
		tag := structField.Tag.Get("query")
		if tag == "" || tag == "-" {
			continue
		}

		fieldVal := v.Field(i)
		if !fieldVal.CanSet() {
			continue
		}

		name := strings.SplitN(tag, ",", 2)[0]
		value := query.Get(name)
		if value == "" {
			continue
		}

		if err := setField(fieldVal, value); err != nil {
			return fmt.Errorf("invalid value for %s: %w", name, err)
		}
	}

	return nil
}

func setField(field reflect.Value, value string) error {
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	default:
		return fmt.Errorf("unsupported type: %s", field.Kind())
	}
	return nil
}
