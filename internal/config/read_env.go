package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
)

// tagName is the struct tag carrying the environment variable name.
const tagName = "env"

// lookupEnv is swapped out in tests.
var lookupEnv = os.LookupEnv

// parse fills conf from the environment.  Fields without an `env` tag are
// skipped; a field tagged `required:"true"` must be present and non-empty.
func parse[T any](conf *T) error {
	cType := reflect.TypeOf(conf).Elem()
	if cType.Kind() != reflect.Struct {
		return fmt.Errorf("conf type %v is not a struct", cType)
	}

	cVal := reflect.ValueOf(conf).Elem()

	for i := 0; i < cType.NumField(); i++ {
		field := cType.Field(i)
		varName, ok := field.Tag.Lookup(tagName)
		if !ok {
			continue
		}

		value, ok := lookupEnv(varName)
		if !ok || value == "" {
			if field.Tag.Get("required") == "true" {
				return fmt.Errorf("environment variable %s is required", varName)
			}
			continue
		}

		fieldVal := cVal.Field(i)
		if !fieldVal.CanSet() {
			continue
		}

		if err := setValue(fieldVal, value); err != nil {
			return fmt.Errorf("parse %s: %w", varName, err)
		}
	}
	return nil
}

func setValue(fv reflect.Value, in string) error {
	switch fv.Kind() {
	case reflect.String:
		fv.SetString(in)

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(in, 10, fv.Type().Bits())
		if err != nil {
			return err
		}
		fv.SetInt(n)

	case reflect.Bool:
		b, err := strconv.ParseBool(in)
		if err != nil {
			return err
		}
		fv.SetBool(b)

	default:
		return fmt.Errorf("unsupported field kind %v", fv.Kind())
	}
	return nil
}
