package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// validate names fields by their koanf key, so errors read like the YAML.
var validate = func() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("koanf"), ",")
		if name == "-" {
			return ""
		}

		return name
	})

	return v
}()

// Message per validate tag. %s is the tag parameter.
var tagMessages = map[string]string{
	"required":    "is required",
	"required_if": "is required when %s",
	"min":         "must be at least %s",
	"max":         "must be at most %s",
	"oneof":       "must be one of: %s",
	"url":         "must be a valid URL",
	"gtefield":    "must not be lower than %s",
}

// Validate reports every invalid key, one per line. The service refuses to
// start on error.
func (c *Config) Validate() error {
	var problems []error

	if err := validate.Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return fmt.Errorf("validating config: %w", err)
		}

		for _, fe := range fieldErrs {
			problems = append(problems, errors.New(describe(fe)))
		}
	}

	if _, err := c.Database.DataSourceName(); err != nil {
		problems = append(problems, err)
	}

	if len(problems) == 0 {
		return nil
	}

	return fmt.Errorf("config validation failed:\n%w", errors.Join(problems...))
}

// describe renders "server.port must be at most 65535". The namespace starts
// with the root type name, which is dropped.
func describe(fe validator.FieldError) string {
	_, key, _ := strings.Cut(fe.Namespace(), ".")
	key = strings.ToLower(key)

	msg, ok := tagMessages[fe.Tag()]
	if !ok {
		return key + " failed validation: " + fe.Tag()
	}

	if strings.Contains(msg, "%s") {
		msg = fmt.Sprintf(msg, fe.Param())
	}

	return key + " " + msg
}
