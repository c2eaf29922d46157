package validator

import (
	"errors"
	"fmt"
	"strings"

	"github.com/aerae/accelerator/internal/ingestion"
	"github.com/go-playground/validator/v10"
)

type ErrInvalidField struct {
	error
}

func NewErrInvalidField(format string, args ...any) *ErrInvalidField {
	return &ErrInvalidField{fmt.Errorf(format, args...)}
}

// fieldError turns the first failed rule of a validation error into a message a client can act on.
func fieldError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}

	fe := verrs[0]
	name := jsonName(fe)
	switch fe.Tag() {
	case "required":
		return NewErrInvalidField("%s is required", name)
	case "github_url":
		if urlErr := ingestion.ValidateURL(fmt.Sprint(fe.Value())); urlErr != nil {
			return NewErrInvalidField("%s: %s", name, urlErr.Error())
		}
		return NewErrInvalidField("%s is not a valid repository url", name)
	case "prompt":
		return NewErrInvalidField("%s must not be blank", name)
	case "max":
		return NewErrInvalidField("%s is longer than %s characters", name, fe.Param())
	default:
		return NewErrInvalidField("%s failed the %s rule", name, fe.Tag())
	}
}

func jsonName(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		ns = ns[i+1:]
	}
	return ns
}
