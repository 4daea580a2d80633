package http

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

var validate = newValidator()

// Codes are upper-cased by the domain layer, so either case passes here.
var currencyCode = regexp.MustCompile(`^[A-Za-z]{3}$`)

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("currency", func(fl validator.FieldLevel) bool {
		return currencyCode.MatchString(strings.TrimSpace(fl.Field().String()))
	})
	// Report fields by their wire name so messages match what the client sent.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		for _, tag := range []string{"json", "query"} {
			name := strings.SplitN(f.Tag.Get(tag), ",", 2)[0]
			if name != "" && name != "-" {
				return name
			}
		}
		return f.Name
	})
	return v
}

// ReadAndValidateRequest binds the request, fills `default` tags and runs
// `validate` tags. It returns nil on success, otherwise the details for a 400.
func ReadAndValidateRequest(c echo.Context, req interface{}) []ValidationError {
	if err := c.Bind(req); err != nil {
		return toValidationErrors(err)
	}
	if err := defaults.Set(req); err != nil {
		return toValidationErrors(err)
	}
	if err := validate.StructCtx(c.Request().Context(), req); err != nil {
		return toValidationErrors(err)
	}
	return nil
}

func toValidationErrors(err error) []ValidationError {
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		out := make([]ValidationError, 0, len(fieldErrs))
		for _, fe := range fieldErrs {
			out = append(out, describe(fe))
		}
		return out
	}

	msg := err.Error()
	var he *echo.HTTPError
	if errors.As(err, &he) {
		msg = fmt.Sprint(he.Message)
	}
	return []ValidationError{{Code: "ERR_UNKNOWN", Message: msg}}
}

// rule renders one validator tag. param names the key the tag's argument is
// reported under, if any.
type rule struct {
	format string
	param  string
}

var rules = map[string]rule{
	"required": {format: "%[1]s is required"},
	"currency": {format: "%[1]s must be a 3-letter ISO currency code"},
	"nefield":  {format: "%[1]s must differ from %[2]s", param: "other"},
	"min":      {format: "%[1]s must be at least %[2]s", param: "min"},
	"gte":      {format: "%[1]s must be at least %[2]s", param: "min"},
	"max":      {format: "%[1]s must be at most %[2]s", param: "max"},
	"lte":      {format: "%[1]s must be at most %[2]s", param: "max"},
	"gt":       {format: "%[1]s must be greater than %[2]s", param: "value"},
	"lt":       {format: "%[1]s must be less than %[2]s", param: "value"},
	"oneof":    {format: "%[1]s must be one of: %[2]s", param: "options"},
}

func describe(fe validator.FieldError) ValidationError {
	ve := ValidationError{
		Code:  "ERR_" + strings.ToUpper(fe.Tag()),
		Field: fe.Field(),
	}

	r, ok := rules[fe.Tag()]
	if !ok {
		ve.Message = fmt.Sprintf("%s failed validation: %s", fe.Field(), fe.Tag())
		return ve
	}

	arg := fe.Param()
	if fe.Tag() == "oneof" {
		arg = strings.ReplaceAll(arg, " ", ", ")
	}
	ve.Message = fmt.Sprintf(r.format, fe.Field(), arg)
	if (fe.Tag() == "min" || fe.Tag() == "max") && fe.Kind() == reflect.String {
		ve.Message += " characters"
	}

	switch {
	case r.param == "options":
		ve.Params = map[string]interface{}{"options": strings.Fields(fe.Param())}
	case r.param != "":
		ve.Params = map[string]interface{}{r.param: fe.Param()}
	}
	return ve
}
