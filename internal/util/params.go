package util

import (
	"fmt"
	"reflect"
	"strings"
)

// ValidationError reports a keyword argument that does not match its declaration.
type ValidationError struct {
	Field   string
	Value   any
	Message string
}

// Error implements the error interface for ValidationError.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

type param struct {
	name        string
	typ         string
	description string
	required    bool
}

// params reflects the exported fields of a struct. Field names come from the
// json tag; fields without omitempty and not pointers are required.
func params(args any) []param {
	t := reflect.TypeOf(args)
	if t == nil {
		return nil
	}
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil
	}

	out := make([]param, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}
		tag := field.Tag.Get("json")
		if tag == "-" {
			continue
		}
		name := field.Name
		if n, _, _ := strings.Cut(tag, ","); n != "" {
			name = n
		}
		out = append(out, param{
			name:        name,
			typ:         jsonType(field.Type),
			description: field.Tag.Get("description"),
			required:    !hasOmitEmpty(tag) && field.Type.Kind() != reflect.Ptr,
		})
	}
	return out
}

// ParameterSummary describes the fields of an argument struct as
// name -> "type" or "type, description" for tool listings. Optional fields
// are marked with a trailing "(optional)".
func ParameterSummary(args any) map[string]any {
	summary := map[string]any{}
	for _, p := range params(args) {
		s := p.typ
		if p.description != "" {
			s += ", " + p.description
		}
		if !p.required {
			s += " (optional)"
		}
		summary[p.name] = s
	}
	return summary
}

// ValidateKwargs checks kwargs against the fields of an argument struct:
// required fields must be present and present values must have the declared
// JSON type. Unknown keys are allowed.
func ValidateKwargs(kwargs map[string]any, args any) error {
	for _, p := range params(args) {
		v, ok := kwargs[p.name]
		if !ok {
			if p.required {
				return &ValidationError{Field: p.name, Message: "required field is missing"}
			}
			continue
		}
		if !isValidType(v, p.typ) {
			return &ValidationError{Field: p.name, Value: v, Message: fmt.Sprintf("expected type %s, got %T", p.typ, v)}
		}
	}
	return nil
}

func jsonType(t reflect.Type) string {
	switch t.Kind() {
	case reflect.String:
		return "string"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return "integer"
	case reflect.Float32, reflect.Float64:
		return "number"
	case reflect.Bool:
		return "boolean"
	case reflect.Slice, reflect.Array:
		return "array"
	case reflect.Map, reflect.Struct:
		return "object"
	case reflect.Ptr:
		return jsonType(t.Elem())
	default:
		return "string"
	}
}

func hasOmitEmpty(tag string) bool {
	parts := strings.Split(tag, ",")
	for _, part := range parts[1:] {
		if strings.TrimSpace(part) == "omitempty" {
			return true
		}
	}
	return false
}

func isValidType(value any, expected string) bool {
	if value == nil {
		return true
	}
	switch expected {
	case "string":
		_, ok := value.(string)
		return ok
	case "integer":
		switch v := value.(type) {
		case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
			return true
		case float64:
			return v == float64(int64(v))
		}
		return false
	case "number":
		switch value.(type) {
		case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
			return true
		}
		return false
	case "boolean":
		_, ok := value.(bool)
		return ok
	case "array":
		_, ok := value.([]any)
		return ok
	case "object":
		_, ok := value.(map[string]any)
		return ok
	default:
		return true
	}
}
