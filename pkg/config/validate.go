package config

import (
	stderrors "errors"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/matzehuels/parcyl/pkg/errors"
	"github.com/matzehuels/parcyl/pkg/version"
)

var (
	validateOnce  sync.Once
	metaValidator *validator.Validate
)

func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			return f.Tag.Get("ini")
		})
		_ = v.RegisterValidation("pep440", func(fl validator.FieldLevel) bool {
			return version.Valid(fl.Field().String())
		})
		_ = v.RegisterValidation("pkgname", func(fl validator.FieldLevel) bool {
			return errors.ValidatePackageName(fl.Field().String()) == nil
		})
		metaValidator = v
	})
	return metaValidator
}

// validate checks m against its struct tags. Every failing field is named
// in the returned [errors.ErrCodeInvalidConfig] error.
func validate(m Metadata) error {
	err := validatorInstance().Struct(m)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !stderrors.As(err, &verrs) {
		return errors.Wrap(errors.ErrCodeInvalidConfig, err, "[%s]", MetadataSection)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fe.Field()+": "+describe(fe))
	}
	return errors.New(errors.ErrCodeInvalidConfig, "[%s] %s", MetadataSection, strings.Join(msgs, "; "))
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "pep440":
		return "invalid version " + quote(fe.Value())
	case "pkgname":
		return "invalid package name " + quote(fe.Value())
	case "email":
		return "invalid email address " + quote(fe.Value())
	case "url":
		return "invalid URL " + quote(fe.Value())
	}
	return "failed " + fe.Tag()
}

func quote(v any) string {
	s, _ := v.(string)
	return `"` + s + `"`
}
