package validator

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/jwalitptl/servicebook/pkg/errors"
)

var registerOnce sync.Once

// Register makes gin's binding validator report fields by their json or form
// names. Safe to call more than once.
func Register() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
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
	})
}

// BindError turns a gin binding failure into an InvalidPayload error with a
// readable message.
func BindError(err error) *errors.AppError {
	return errors.InvalidPayload(Describe(err))
}

// Describe renders validation and decoding errors as one sentence per field.
func Describe(err error) string {
	var verrs validator.ValidationErrors
	if stderrors.As(err, &verrs) {
		msgs := make([]string, 0, len(verrs))
		for _, e := range verrs {
			msgs = append(msgs, describeField(e))
		}
		return strings.Join(msgs, " ")
	}

	var typeErr *json.UnmarshalTypeError
	if stderrors.As(err, &typeErr) {
		return fmt.Sprintf("Field '%s' must be a %s.", typeErr.Field, typeErr.Type.String())
	}

	var syntaxErr *json.SyntaxError
	if stderrors.As(err, &syntaxErr) {
		return "Request body is not valid JSON."
	}

	return err.Error()
}

func describeField(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return fmt.Sprintf("Field '%s' is required.", e.Field())
	case "max":
		if e.Kind() == reflect.Slice {
			return fmt.Sprintf("Field '%s' must have at most %s entries.", e.Field(), e.Param())
		}
		return fmt.Sprintf("Field '%s' must be at most %s characters.", e.Field(), e.Param())
	case "min":
		return fmt.Sprintf("Field '%s' must be at least %s.", e.Field(), e.Param())
	default:
		return fmt.Sprintf("Field '%s' failed the '%s' check.", e.Field(), e.Tag())
	}
}
