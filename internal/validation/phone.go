// Package validation holds request validation shared by handlers and services.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/ttacon/libphonenumber"
)

// ErrInvalidPhone is returned for numbers that do not parse or are not valid in their region
var ErrInvalidPhone = errors.New("invalid phone number")

// NormalizePhone parses raw in the context of region and returns it in E.164 form.
// Numbers written with a leading + are accepted from any region.
func NormalizePhone(raw, region string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", nil
	}
	num, err := libphonenumber.Parse(raw, region)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidPhone, err)
	}
	if !libphonenumber.IsValidNumber(num) {
		return "", ErrInvalidPhone
	}
	return libphonenumber.Format(num, libphonenumber.E164), nil
}

// New returns a validator that reports JSON field names and knows the
// "phone" tag for the given default region
func New(phoneRegion string) *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		value := fl.Field().String()
		if value == "" {
			return true
		}
		_, err := NormalizePhone(value, phoneRegion)
		return err == nil
	})
	return v
}
