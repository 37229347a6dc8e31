package auth

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckPassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
		want     string
	}{
		{name: "valid", password: "Str0ng!pass", want: ""},
		{name: "empty", password: "   ", want: "Password is required"},
		{name: "too short", password: "Ab1!", want: "Password must be at least 8 characters long"},
		{name: "no uppercase", password: "weak1!pass", want: "Password must contain at least one uppercase letter (A-Z)"},
		{name: "no lowercase", password: "WEAK1!PASS", want: "Password must contain at least one lowercase letter (a-z)"},
		{name: "no digit", password: "Weak!pass", want: "Password must contain at least one digit (0-9)"},
		{name: "no special", password: "Weak1pass", want: "Password must contain at least one special character (" + PasswordSpecials + ")"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CheckPassword(tt.password))
		})
	}
}

func TestValidatePassword_ReturnsValidationFailed(t *testing.T) {
	err := ValidatePassword("short")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrValidationFailed))
	assert.Equal(t, KindValidationFailed, KindOf(err))
}

func TestValidate_Credentials(t *testing.T) {
	err := Validate(Credentials{Email: "not-an-email", Password: "x"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrValidationFailed)
	assert.Contains(t, err.Error(), "Email must be a valid email address")

	err = Validate(Credentials{Email: "user@example.com"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Password is required")

	assert.NoError(t, Validate(Credentials{Email: "user@example.com", Password: "anything"}))
}

func TestValidate_PasswordTag(t *testing.T) {
	type form struct {
		Password string `validate:"required,password"`
	}

	err := Validate(form{Password: "alllowercase1!"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "uppercase letter")

	assert.NoError(t, Validate(form{Password: "Str0ng!pass"}))
}

func TestError_Format(t *testing.T) {
	err := NewError(KindServer, 503, "maintenance", nil)
	assert.Equal(t, "server (status 503): maintenance", err.Error())
	assert.ErrorIs(t, err, ErrServer)
	assert.NotErrorIs(t, err, ErrUnauthenticated)

	cause := errors.New("dial tcp: refused")
	wrapped := NewError(KindNetwork, 0, "", cause)
	assert.Equal(t, "network: dial tcp: refused", wrapped.Error())
	assert.ErrorIs(t, wrapped, cause)
	assert.ErrorIs(t, wrapped, ErrNetwork)
}
