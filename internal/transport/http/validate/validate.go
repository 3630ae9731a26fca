package validate

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"

	"github.com/baechuer/contacts-service/internal/domain"
)

// Validator runs struct-tag validation and converts failures into domain errors.
type Validator struct {
	v     *validator.Validate
	trans ut.Translator
}

func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	// report json names, not Go field names
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})

	_ = v.RegisterValidation("subscription", func(fl validator.FieldLevel) bool {
		_, err := domain.ParseSubscription(fl.Field().String())
		return err == nil
	})
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})

	english := en.New()
	uni := ut.New(english, english)
	trans, _ := uni.GetTranslator("en")
	_ = en_translations.RegisterDefaultTranslations(v, trans)

	_ = v.RegisterTranslation("subscription", trans, func(ut ut.Translator) error {
		return ut.Add("subscription", "{0} must be one of starter, pro, business", true)
	}, func(ut ut.Translator, fe validator.FieldError) string {
		t, _ := ut.T("subscription", fe.Field())
		return t
	})
	_ = v.RegisterTranslation("notblank", trans, func(ut ut.Translator) error {
		return ut.Add("notblank", "{0} must not be blank", true)
	}, func(ut ut.Translator, fe validator.FieldError) string {
		t, _ := ut.T("notblank", fe.Field())
		return t
	})

	return &Validator{v: v, trans: trans}
}

// Struct validates s. The first failing field decides the error code:
// a missing value maps to missing_field, anything else to invalid_field.
func (val *Validator) Struct(s any) error {
	err := val.v.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return domain.ErrInternal(err)
	}

	fe := verrs[0]
	field := fe.Field()
	if fe.Tag() == "required" {
		return domain.ErrMissingField(field)
	}
	if fe.Tag() == "subscription" {
		return domain.ErrInvalidSubscription(fmt.Sprint(fe.Value()))
	}
	return domain.ErrInvalidField(field, fe.Translate(val.trans))
}
