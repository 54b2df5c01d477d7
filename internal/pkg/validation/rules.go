package validation

import (
	"fmt"
	"regexp"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/yigit/coursereg/internal/app/models"
)

// Validation rule patterns
var (
	// Usernames are student numbers, staff ids or plain handles
	UsernamePattern = `^[A-Za-z0-9_.\-]{3,50}$`

	// Password min length
	PasswordMinLength = 8

	// Name validation min/max length
	NameMinLength = 1
	NameMaxLength = 100
)

// CompiledPatterns caches compiled regex patterns for better performance
var CompiledPatterns = struct {
	Username *regexp.Regexp
}{
	Username: regexp.MustCompile(UsernamePattern),
}

// String validation
type StringValidation struct {
	Value    string
	MinLen   int
	MaxLen   int
	Required bool
	Pattern  *regexp.Regexp
}

// NewStringValidation creates a new string validation
func NewStringValidation(value string) *StringValidation {
	return &StringValidation{
		Value:    value,
		Required: true,
	}
}

// WithMinLength sets minimum length
func (v *StringValidation) WithMinLength(min int) *StringValidation {
	v.MinLen = min
	return v
}

// WithMaxLength sets maximum length
func (v *StringValidation) WithMaxLength(max int) *StringValidation {
	v.MaxLen = max
	return v
}

// WithPattern sets regex pattern
func (v *StringValidation) WithPattern(pattern *regexp.Regexp) *StringValidation {
	v.Pattern = pattern
	return v
}

// WithRequired sets if field is required
func (v *StringValidation) WithRequired(required bool) *StringValidation {
	v.Required = required
	return v
}

// Validate performs validation
func (v *StringValidation) Validate() bool {
	if v.Value == "" {
		return !v.Required
	}
	if v.MinLen > 0 && len(v.Value) < v.MinLen {
		return false
	}
	if v.MaxLen > 0 && len(v.Value) > v.MaxLen {
		return false
	}
	if v.Pattern != nil && !v.Pattern.MatchString(v.Value) {
		return false
	}
	return true
}

// ValidPassword applies the password policy.
func ValidPassword(password string) bool {
	return NewStringValidation(password).WithMinLength(PasswordMinLength).WithMaxLength(72).Validate()
}

// ValidUsername applies the username policy.
func ValidUsername(username string) bool {
	return NewStringValidation(username).WithPattern(CompiledPatterns.Username).Validate()
}

// Register adds the custom struct tags used by request DTOs:
//
//	weekday      1..7
//	course_type  one of models.CourseTypes
//	username     UsernamePattern
func Register(v *validator.Validate) error {
	rules := map[string]validator.Func{
		"weekday": func(fl validator.FieldLevel) bool {
			d := fl.Field().Int()
			return d >= 1 && d <= 7
		},
		"course_type": func(fl validator.FieldLevel) bool {
			return models.CourseType(fl.Field().String()).Valid()
		},
		"username": func(fl validator.FieldLevel) bool {
			return ValidUsername(fl.Field().String())
		},
	}
	for tag, fn := range rules {
		if err := v.RegisterValidation(tag, fn); err != nil {
			return fmt.Errorf("register %s validator: %w", tag, err)
		}
	}
	return nil
}

// RegisterGinValidators installs the custom tags on gin's binding engine.
func RegisterGinValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return fmt.Errorf("unexpected gin validator engine %T", binding.Validator.Engine())
	}
	return Register(v)
}
