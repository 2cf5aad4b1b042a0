// Package validation checks inputs against their validate tags and reports
// failures as field-level AppErrors keyed by JSON name.
package validation

import (
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
	"github.com/zatekoja/tutorscheduler/backend/internal/domain/entities"
	apperrors "github.com/zatekoja/tutorscheduler/backend/pkg/errors"
)

const (
	notBlankTag = "notblank"
	roleTag     = "role"
	statusTag   = "booking_status"
	maxBytesTag = "maxbytes"
)

var (
	validate   *validator.Validate
	translator ut.Translator
)

func init() {
	validate = validator.New()

	english := en.New()
	uni := ut.New(english, english)
	translator, _ = uni.GetTranslator("en")
	_ = en_translations.RegisterDefaultTranslations(validate, translator)

	// report JSON field names
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = validate.RegisterValidation(notBlankTag, notBlank)
	_ = validate.RegisterValidation(roleTag, validRole)
	_ = validate.RegisterValidation(statusTag, validStatus)
	_ = validate.RegisterValidation(maxBytesTag, maxBytes)

	noop := func(ut.Translator) error { return nil }
	for _, tag := range []string{notBlankTag, roleTag, statusTag, maxBytesTag} {
		_ = validate.RegisterTranslation(tag, translator, noop, translateCustom)
	}
}

func translateCustom(_ ut.Translator, fe validator.FieldError) string {
	switch fe.Tag() {
	case notBlankTag:
		return fe.Field() + " cannot be blank"
	case roleTag:
		return fe.Field() + " must be one of [student tutor]"
	case statusTag:
		return entities.MsgInvalidStatus
	case maxBytesTag:
		return fe.Field() + " must be at most " + fe.Param() + " bytes"
	default:
		return fe.Field() + " is invalid"
	}
}

func notBlank(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}

func validRole(fl validator.FieldLevel) bool {
	return entities.Role(fl.Field().String()).Valid()
}

func validStatus(fl validator.FieldLevel) bool {
	return entities.BookingStatus(fl.Field().String()).Valid()
}

// maxBytes bounds the encoded length, not the rune count
func maxBytes(fl validator.FieldLevel) bool {
	n, err := strconv.Atoi(fl.Param())
	if err != nil {
		return false
	}
	return len(fl.Field().String()) <= n
}

// Struct checks v against its validate tags
func Struct(v interface{}) error {
	return fieldErrors(validate.Struct(v))
}

// Field checks a single value against tag and reports it under name
func Field(name string, value interface{}, tag string) error {
	err := validate.Var(value, tag)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return apperrors.NewValidationError(err.Error())
	}
	// Var errors carry no field name, so the translation starts with a space
	return apperrors.NewFieldValidationError("validation failed", map[string]string{
		name: name + verrs[0].Translate(translator),
	})
}

func fieldErrors(err error) error {
	if err == nil {
		return nil
	}

	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return apperrors.NewValidationError(err.Error())
	}

	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = fe.Translate(translator)
	}

	// a lone status error keeps the message clients already match on
	if len(verrs) == 1 && verrs[0].Tag() == statusTag {
		return apperrors.NewFieldValidationError(entities.MsgInvalidStatus, fields)
	}
	return apperrors.NewFieldValidationError("validation failed", fields)
}
