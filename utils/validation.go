package utils

import (
	"sync"
	"unicode"
	"unicode/utf8"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// MaxUsernameLen bounds display names in runes.
const MaxUsernameLen = 32

var registerOnce sync.Once

// ValidUsername reports whether name may be used as a display name.
// Letters of any script, digits, '-' and '_' are allowed, so a name is also
// always a safe file name.
func ValidUsername(name string) bool {
	n := utf8.RuneCountInString(name)
	if n == 0 || n > MaxUsernameLen {
		return false
	}
	for _, r := range name {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '_' {
			continue
		}
		return false
	}
	return true
}

// RegisterValidators installs the custom "username" tag on gin's validator.
func RegisterValidators() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		_ = v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
			return ValidUsername(fl.Field().String())
		})
	})
}
