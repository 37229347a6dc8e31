package auth

import "time"

// Status is the authentication state of a session
type Status string

const (
	StatusAnonymous      Status = "anonymous"
	StatusAuthenticating Status = "authenticating"
	StatusAuthenticated  Status = "authenticated"
	StatusRefreshing     Status = "refreshing"
)

// Provider identifies how the account signs in
type Provider string

const (
	ProviderLocal  Provider = "LOCAL"
	ProviderGoogle Provider = "GOOGLE"
	ProviderGithub Provider = "GITHUB"
)

// User is the identity record returned by the backend
type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      string    `json:"role,omitempty"`
	Provider  Provider  `json:"provider,omitempty"`
	Image     string    `json:"image,omitempty"`
	Mobile    string    `json:"mobile,omitempty"`
	Enabled   bool      `json:"enabled"`
	CreatedAt time.Time `json:"createdAt,omitzero"`
	UpdatedAt time.Time `json:"updatedAt,omitzero"`
}

// Credentials is the email/password pair exchanged at login
type Credentials struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// TokenResponse is the body of a successful login or refresh
type TokenResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken,omitempty"`
	TokenType    string `json:"tokenType,omitempty"`
	ExpiresIn    int64  `json:"expiresIn,omitempty"`
	User         *User  `json:"user,omitempty"`
}

// LogoutOptions controls how a session is ended.
// Silent skips the backend call; it is used after a refresh has already failed.
type LogoutOptions struct {
	Silent bool
}

// Snapshot is a point-in-time copy of session state safe to hand to observers
type Snapshot struct {
	Status        Status `json:"status"`
	User          *User  `json:"user,omitempty"`
	HasCredential bool   `json:"hasCredential"`
}
