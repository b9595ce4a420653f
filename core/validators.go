package core

import (
	"reflect"
	"strings"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

// CustomValidation pairs a validation tag with its check and its English message.
// A nil Func only overrides the message of a built-in tag.
type CustomValidation struct {
	Tag  string
	Text string
	Func validator.Func
}

const requiredText = "this field is required"

var coreValidations = []CustomValidation{
	{Tag: "subject", Text: "{0} must be a known subject", Func: func(fl validator.FieldLevel) bool {
		return Subject(fl.Field().String()).Valid()
	}},
	{Tag: "level", Text: "{0} must be one of A1, A2, B1, B2, C1, C2", Func: func(fl validator.FieldLevel) bool {
		return Level(fl.Field().String()).Valid()
	}},
	{Tag: "money", Text: "{0} must be between 0.00 and " + MaxMoney.String(), Func: func(fl validator.FieldLevel) bool {
		m := Money(fl.Field().Int())
		return m >= 0 && m <= MaxMoney
	}},
	{Tag: "required", Text: requiredText},
	{Tag: "required_with", Text: requiredText},
}

// InitValidators sets up the shared validator: English messages, JSON field names and the
// catalog tags. Packages with their own tags call RegisterValidations afterwards.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = en_translations.RegisterDefaultTranslations(validate, translator)

	validate.RegisterTagNameFunc(jsonFieldName)
	RegisterValidations(validate, translator, coreValidations...)
}

// RegisterValidations registers each validation and its translation.
func RegisterValidations(validate *validator.Validate, translator ut.Translator, validations ...CustomValidation) {
	for _, v := range validations {
		override := v.Func == nil
		if !override {
			_ = validate.RegisterValidation(v.Tag, v.Func)
		}
		tag, text := v.Tag, v.Text
		_ = validate.RegisterTranslation(
			tag, translator,
			func(t ut.Translator) error { return t.Add(tag, text, override) },
			func(t ut.Translator, fe validator.FieldError) string {
				s, _ := t.T(tag, fe.Field())
				return s
			},
		)
	}
}

func jsonFieldName(fld reflect.StructField) string {
	name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
	if name == "-" {
		return ""
	}
	return name
}
