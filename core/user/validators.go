package user

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/ozgesheedu/ozgeshe/core"
)

// InitValidators registers the `role` tag. core.InitValidators must run first.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	core.RegisterValidations(validate, translator, core.CustomValidation{
		Tag:  "role",
		Text: "{0} must be one of ADMIN, TEACHER, STUDENT",
		Func: func(fl validator.FieldLevel) bool { return Role(fl.Field().String()).Valid() },
	})
}
