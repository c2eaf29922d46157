package validator

import (
	"strings"

	"github.com/aerae/accelerator/internal/ingestion"
	"github.com/go-playground/validator/v10"
)

func githubURLValidator(fl validator.FieldLevel) bool {
	val, ok := fl.Field().Interface().(string)
	if !ok {
		return false
	}
	return ingestion.ValidateURL(val) == nil
}

func notBlankValidator(fl validator.FieldLevel) bool {
	val, ok := fl.Field().Interface().(string)
	if !ok {
		return false
	}
	return strings.TrimSpace(val) != ""
}
