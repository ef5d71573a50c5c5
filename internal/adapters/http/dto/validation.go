package dto

import (
	"cmp"
	"errors"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// queryValidator reports fields by their query name.
var queryValidator = func() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("form"), ",")
		if name == "-" {
			return ""
		}

		return cmp.Or(name, f.Name)
	})

	return v
}()

// BindQuery fills v from the query string and checks its validate tags. On
// failure it writes the 400 envelope and returns false; the handler just
// returns.
func BindQuery(c *gin.Context, v any) bool {
	fields, ok := bindQuery(c, v)
	if !ok {
		RespondWithValidationErrors(c, fields)
	}

	return ok
}

func bindQuery(c *gin.Context, v any) (map[string]string, bool) {
	if err := c.ShouldBindQuery(v); err != nil {
		return map[string]string{"query": "malformed query parameters"}, false
	}

	if err := queryValidator.Struct(v); err != nil {
		return fieldMessages(err), false
	}

	return nil, true
}

// fieldMessages turns validator errors into query name -> message.
func fieldMessages(err error) map[string]string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return map[string]string{"query": err.Error()}
	}

	out := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		out[fe.Field()] = tagMessage(fe)
	}

	return out
}

func tagMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "this field is required"
	case "uuid":
		return "must be a valid UUID"
	case "gte":
		return "must be greater than or equal to " + fe.Param()
	case "lte":
		return "must be less than or equal to " + fe.Param()
	case "oneof":
		return "must be one of: " + fe.Param()
	default:
		return "failed validation: " + fe.Tag()
	}
}
