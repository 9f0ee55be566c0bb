package prism

import (
	"errors"
	"reflect"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/putto11262002/prism/core"
)

var validate *validator.Validate
var uniTrans *ut.UniversalTranslator

func init() {

	validate = validator.New()
	en := en.New()
	uniTrans = ut.New(en, en)
	enTrans, _ := uniTrans.GetTranslator("en")

	// fields are reported by their label, falling back to the lowercased name
	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		if label := field.Tag.Get("label"); label != "" {
			return label
		}
		return strings.ToLower(field.Name)
	})

	validate.RegisterValidation("port", func(fl validator.FieldLevel) bool {
		port, ok := fl.Field().Interface().(int)
		if !ok {
			return false
		}
		return port > 0 && port <= 65535
	})

	validate.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		s, ok := fl.Field().Interface().(string)
		if !ok {
			return false
		}
		return strings.TrimSpace(s) != ""
	})

	validate.RegisterValidation("theme", func(fl validator.FieldLevel) bool {
		s, ok := fl.Field().Interface().(string)
		return ok && core.Theme(s).Valid()
	})

	validate.RegisterValidation("invitecode", func(fl validator.FieldLevel) bool {
		s, ok := fl.Field().Interface().(string)
		return ok && core.IsValidInviteCode(s)
	})

	registerTranslation(enTrans, "required", "{0} is a required field")
	registerTranslation(enTrans, "required_if", "{0} is a required field")
	registerTranslation(enTrans, "port", "{0} must be a valid port number")
	registerTranslation(enTrans, "notblank", "{0} cannot be empty")
	registerTranslation(enTrans, "theme", "{0} must be one of dark, light or system")
	registerTranslation(enTrans, "invitecode", "{0} can only contain up to 32 letters and numbers")
	registerTranslation(enTrans, "alphanum", "{0} can only contain letters and numbers")
	registerTranslation(enTrans, "oneof", "{0} must be one of {1}")
	registerTranslation(enTrans, "min", "{0} must be at least {1}")
	registerTranslation(enTrans, "max", "{0} must be at most {1}")
}

func registerTranslation(trans ut.Translator, tag, text string) {
	validate.RegisterTranslation(tag, trans, func(ut ut.Translator) error {
		return ut.Add(tag, text, true)
	}, func(ut ut.Translator, fe validator.FieldError) string {
		t, _ := ut.T(tag, fe.Field(), fe.Param())
		return t
	})
}

// ValidationAppError converts the first validator failure in err into a
// ValidationError suitable for the viewer. Other errors are returned as is.
func ValidationAppError(err error) error {
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) || len(errs) == 0 {
		return err
	}
	trans, _ := uniTrans.GetTranslator("en")
	fe := errs[0]
	msg := fe.Translate(trans)
	return core.NewAppError(core.ValidationError, msg, map[string]any{"field": snakeCase(fe.StructField())})
}

// snakeCase turns a Go field name such as InviteCode into invite_code.
func snakeCase(s string) string {
	var sb strings.Builder
	for i, c := range s {
		if unicode.IsUpper(c) {
			if i > 0 {
				sb.WriteByte('_')
			}
			c = unicode.ToLower(c)
		}
		sb.WriteRune(c)
	}
	return sb.String()
}

// validatePayload validates v and returns a ValidationError on failure.
func validatePayload(v any) error {
	if err := validate.Struct(v); err != nil {
		return ValidationAppError(err)
	}
	return nil
}
