// Copyright (C) 2024 the quixsi maintainers
// See root-dir/LICENSE for more information

package form

import (
	"fmt"
	"net/url"
	"reflect"
	"strconv"
	"strings"
)

// Unmarshal fills the tagged fields of target from input. Fields are matched
// by their `form` tag; a `default` tag is used when the key is absent or
// empty. Only the first value of a key is used.
func Unmarshal(input url.Values, target any) error {
	val := reflect.ValueOf(target)
	if val.Kind() != reflect.Ptr || val.IsNil() {
		return &InvalidUnmarshalError{Type: reflect.TypeOf(target)}
	}

	v := val.Elem()
	if v.Kind() != reflect.Struct {
		return &InvalidUnmarshalError{Type: reflect.TypeOf(target)}
	}
	ttype := v.Type()
	for i := 0; i < v.NumField(); i++ {
		field := ttype.Field(i)
		fieldName := field.Tag.Get("form")
		if fieldName == "" || fieldName == "-" || !field.IsExported() {
			continue
		}

		raw := input.Get(fieldName)
		if raw == "" {
			def, ok := field.Tag.Lookup("default")
			if !ok {
				continue
			}
			raw = def
		}

		fieldVal := v.Field(i)
		switch field.Type.Kind() {
		case reflect.String:
			fieldVal.SetString(raw)
		case reflect.Bool:
			fieldVal.SetBool(strings.ToLower(raw) == "true" || raw == "on")
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, field.Type.Bits())
			if err != nil {
				return &FieldError{Field: fieldName, Err: err}
			}
			fieldVal.SetInt(n)
		default:
			return &FieldError{Field: fieldName, Err: fmt.Errorf("unsupported kind %s", field.Type.Kind())}
		}
	}
	return nil
}

type FieldError struct {
	Field string
	Err   error
}

func (e *FieldError) Error() string {
	return "form: field " + e.Field + ": " + e.Err.Error()
}

func (e *FieldError) Unwrap() error { return e.Err }

type InvalidUnmarshalError struct {
	Type reflect.Type
}

func (e *InvalidUnmarshalError) Error() string {
	if e.Type == nil {
		return "form: Unmarshal(nil)"
	}

	if e.Type.Kind() != reflect.Pointer {
		return "form: Unmarshal(non-pointer " + e.Type.String() + ")"
	}
	if e.Type.Elem().Kind() != reflect.Struct {
		return "form: Unmarshal(non-struct " + e.Type.String() + ")"
	}
	return "form: Unmarshal(nil " + e.Type.String() + ")"
}
