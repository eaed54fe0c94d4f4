// Package validation applies payload schemas before any write reaches the
// access layer. Failures come back as apperr validation errors carrying one
// message per field, keyed by the JSON field name.
package validation

import (
	"errors"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/isekhard17/academia-sekhard/internal/apperr"

	"github.com/go-playground/locales/es"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	es_translations "github.com/go-playground/validator/v10/translations/es"
)

const (
	subjectCodeTag = "subjectcode"
	isoDateTag     = "isodate"
	notBlankTag    = "notblank"

	DateLayout = "2006-01-02"
)

var subjectCodeRegex = regexp.MustCompile(`^[A-Z]{2,3}\d{2,4}$`)

var customMessages = map[string]string{
	subjectCodeTag: "debe tener 2 o 3 letras seguidas de 2 a 4 dígitos (ej. TI2024)",
	isoDateTag:     "debe ser una fecha con formato YYYY-MM-DD",
	notBlankTag:    "no puede estar vacío",
}

type Validator struct {
	validate   *validator.Validate
	translator ut.Translator
}

func New() *Validator {
	validate := validator.New(validator.WithRequiredStructEnabled())

	locale := es.New()
	uni := ut.New(locale, locale)
	translator, _ := uni.GetTranslator("es")
	_ = es_translations.RegisterDefaultTranslations(validate, translator)

	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = validate.RegisterValidation(subjectCodeTag, subjectCodeValidation)
	_ = validate.RegisterValidation(isoDateTag, isoDateValidation)
	_ = validate.RegisterValidation(notBlankTag, notBlankValidation)

	registerFn := func(ut.Translator) error { return nil }
	for tag := range customMessages {
		_ = validate.RegisterTranslation(tag, translator, registerFn, translateCustom)
	}

	return &Validator{validate: validate, translator: translator}
}

// Struct validates s and returns an *apperr.Error of kind validation, or nil.
func (v *Validator) Struct(s any) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperr.Invalid("body", err.Error())
	}

	fields := make([]apperr.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, apperr.FieldError{
			Field:   fieldPath(fe),
			Message: fe.Translate(v.translator),
		})
	}
	return apperr.Validation(fields)
}

// Var validates a single value under the given field name.
func (v *Validator) Var(field string, value any, tag string) error {
	err := v.validate.Var(value, tag)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		msg := strings.TrimSpace(strings.TrimPrefix(verrs[0].Translate(v.translator), verrs[0].Field()))
		return apperr.Invalid(field, msg)
	}
	return apperr.Invalid(field, err.Error())
}

// fieldPath drops the root struct name from the namespace so nested fields
// read "evaluacion.nombre" instead of "CreateInput.evaluacion.nombre".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func translateCustom(_ ut.Translator, fe validator.FieldError) string {
	if msg, ok := customMessages[fe.Tag()]; ok {
		return fe.Field() + " " + msg
	}
	return fe.Error()
}

// NormalizeSubjectCode trims and upper-cases a subject code so lower-case
// input is accepted.
func NormalizeSubjectCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func subjectCodeValidation(fl validator.FieldLevel) bool {
	return subjectCodeRegex.MatchString(fl.Field().String())
}

func isoDateValidation(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	if len(s) != len(DateLayout) {
		return false
	}
	_, err := time.Parse(DateLayout, s)
	return err == nil
}

func notBlankValidation(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}

// ParseDate parses a YYYY-MM-DD value, returning a validation error for field
// on failure.
func ParseDate(field, value string) (time.Time, error) {
	if len(value) != len(DateLayout) {
		return time.Time{}, apperr.Invalid(field, customMessages[isoDateTag])
	}
	t, err := time.Parse(DateLayout, value)
	if err != nil {
		return time.Time{}, apperr.Invalid(field, customMessages[isoDateTag])
	}
	return t, nil
}
