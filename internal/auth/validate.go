package auth

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
)

// MinPasswordLength is the shortest password the policy accepts
const MinPasswordLength = 8

// PasswordSpecials are the characters that satisfy the special-character rule
const PasswordSpecials = `!@#$%^&*()_+-=[]{};':"\|,.<>/?`

// PasswordTag is the struct tag name of the password policy rule
const PasswordTag = "password"

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := RegisterPasswordRule(v); err != nil {
		panic(err)
	}
	return v
}

// RegisterPasswordRule installs the password policy as the "password" tag
func RegisterPasswordRule(v *validator.Validate) error {
	return v.RegisterValidation(PasswordTag, func(fl validator.FieldLevel) bool {
		return CheckPassword(fl.Field().String()) == ""
	})
}

// CheckPassword returns the first policy rule the password breaks, or "" when it passes
func CheckPassword(password string) string {
	if strings.TrimSpace(password) == "" {
		return "Password is required"
	}
	if len(password) < MinPasswordLength {
		return fmt.Sprintf("Password must be at least %d characters long", MinPasswordLength)
	}

	var upper, lower, digit, special bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case strings.ContainsRune(PasswordSpecials, r):
			special = true
		}
	}

	switch {
	case !upper:
		return "Password must contain at least one uppercase letter (A-Z)"
	case !lower:
		return "Password must contain at least one lowercase letter (a-z)"
	case !digit:
		return "Password must contain at least one digit (0-9)"
	case !special:
		return "Password must contain at least one special character (" + PasswordSpecials + ")"
	}
	return ""
}

// ValidatePassword checks the password policy and returns a ValidationFailed error on violation
func ValidatePassword(password string) error {
	if msg := CheckPassword(password); msg != "" {
		return NewError(KindValidationFailed, 0, msg, nil)
	}
	return nil
}

// Validate runs struct-tag validation and converts failures to ValidationFailed
func Validate(v any) error {
	if err := validate.Struct(v); err != nil {
		return NewError(KindValidationFailed, 0, DescribeValidation(err), err)
	}
	return nil
}

// DescribeValidation turns a validator error into a message for the first failing field
func DescribeValidation(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err.Error()
	}
	return describe(verrs[0])
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "email":
		return fmt.Sprintf("%s must be a valid email address", fe.Field())
	case "len":
		return fmt.Sprintf("%s must be exactly %s characters", fe.Field(), fe.Param())
	case "numeric":
		return fmt.Sprintf("%s must be numeric", fe.Field())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
	case PasswordTag:
		if s, ok := fe.Value().(string); ok {
			if msg := CheckPassword(s); msg != "" {
				return msg
			}
		}
	}
	return fmt.Sprintf("%s failed the '%s' rule", fe.Field(), fe.Tag())
}
