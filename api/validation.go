package api

import (
	"regexp"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var (
	personNamePattern  = regexp.MustCompile(`^[\p{L}][\p{L} '\-]*$`)
	phoneSymbolPattern = regexp.MustCompile(`^\+?[0-9 ()\-]+$`)

	registerOnce sync.Once
)

const (
	minPhoneDigits = 10
	maxPhoneDigits = 15
)

// registerValidators adds the person_name and phone tags to gin's validator.
func registerValidators() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		_ = v.RegisterValidation("person_name", func(fl validator.FieldLevel) bool {
			return validPersonName(fl.Field().String())
		})
		_ = v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
			return validPhone(fl.Field().String())
		})
	})
}

// validPersonName accepts letters, spaces, hyphens and apostrophes.
func validPersonName(name string) bool {
	return personNamePattern.MatchString(name)
}

// validPhone accepts 10 to 15 digits with an optional leading plus and
// spaces, dashes or parentheses as separators.
func validPhone(phone string) bool {
	if !phoneSymbolPattern.MatchString(phone) {
		return false
	}
	digits := 0
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			digits++
		}
	}
	return digits >= minPhoneDigits && digits <= maxPhoneDigits
}
