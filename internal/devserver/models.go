package devserver

import (
	"time"

	"github.com/oklog/ulid/v2"
	"gorm.io/gorm"

	"github.com/userauth-app/authclient/internal/auth"
)

// OTP purposes
const (
	PurposeRegister = "register"
	PurposeReset    = "reset"
)

// BaseModel provides common fields and auto-generated ULID for all models
type BaseModel struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(26)"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
}

// BeforeCreate generates a ULID for the ID field if it's empty
func (b *BaseModel) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = ulid.Make().String()
	}
	return nil
}

// ServerSettings is a singleton row holding the generated JWT secret when
// none is configured, so tokens survive restarts
type ServerSettings struct {
	BaseModel
	JWTSecret string `gorm:"type:varchar(64);not null"`
}

// User is an account. Local accounts stay disabled until their
// registration OTP is verified.
type User struct {
	BaseModel
	Email        string    `gorm:"uniqueIndex;not null"`
	PasswordHash string    `gorm:"not null"`
	Name         string    `gorm:"not null"`
	Role         string    `gorm:"not null;default:USER"`
	Provider     string    `gorm:"not null;default:LOCAL"`
	Image        string
	Mobile       string
	Enabled      bool      `gorm:"not null;default:false"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime"`
}

// DTO converts the row into the shape clients receive
func (u *User) DTO() auth.User {
	return auth.User{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Role:      u.Role,
		Provider:  auth.Provider(u.Provider),
		Image:     u.Image,
		Mobile:    u.Mobile,
		Enabled:   u.Enabled,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

// RefreshToken is one opaque refresh credential. Only its hash is stored.
// Rotation revokes the old row and points it at its replacement.
type RefreshToken struct {
	BaseModel
	UserID     string    `gorm:"index;not null"`
	TokenHash  string    `gorm:"uniqueIndex;not null"`
	ExpiresAt  time.Time `gorm:"not null"`
	Revoked    bool      `gorm:"not null;default:false"`
	ReplacedBy string
}

// Usable reports whether the token may still be exchanged
func (r *RefreshToken) Usable(now time.Time) bool {
	return !r.Revoked && now.Before(r.ExpiresAt)
}

// OTP is a hashed one-time code for registration or password reset
type OTP struct {
	BaseModel
	Email     string    `gorm:"index;not null"`
	Purpose   string    `gorm:"not null"`
	CodeHash  string    `gorm:"not null"`
	ExpiresAt time.Time `gorm:"not null"`
	Used      bool      `gorm:"not null;default:false"`
}

// UserSettings stores a user's preferences document as JSON
type UserSettings struct {
	BaseModel
	UserID    string    `gorm:"uniqueIndex;not null"`
	Data      string    `gorm:"type:text;not null"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

// AutoMigrate runs database migrations for all models
func AutoMigrate(db *gorm.DB) error {
	models := []interface{}{
		&ServerSettings{}, &User{}, &RefreshToken{}, &OTP{}, &UserSettings{},
	}

	return db.AutoMigrate(models...)
}

// FindByID safely finds a record by string ID
func FindByID[T any](db *gorm.DB, id string, model *T) error {
	return db.Where("id = ?", id).First(model).Error
}
