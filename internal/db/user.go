package db

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// User roles. Legacy accounts may also carry IsSuperuser without the
// superadmin role; both escalate identically.
const (
	RoleSuperadmin = "superadmin"
	RoleUser       = "user"
)

// User is an operator account of the back office.
type User struct {
	ID           string `gorm:"primaryKey;size:36"`
	Email        string `gorm:"uniqueIndex;not null"`
	Username     string `gorm:"uniqueIndex;not null"`
	Password     string `gorm:"not null"`
	Role         string `gorm:"not null;default:user"`
	IsSuperuser  bool   `gorm:"not null;default:false"`
	IsActive     bool   `gorm:"not null;default:true"`
	OTP          *string
	OTPCreatedAt *time.Time
	// TokenVersion is embedded in issued JWTs; bumping it on password
	// change invalidates every outstanding token.
	TokenVersion int `gorm:"not null;default:0"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// BeforeCreate assigns a UUID primary key when none is set.
func (u *User) BeforeCreate(*gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

// IsUnrestricted reports whether the user bypasses the permission matrix.
func (u *User) IsUnrestricted() bool {
	return u.Role == RoleSuperadmin || u.IsSuperuser
}

// EnsureSuperadmin creates a superadmin account when the email, username and
// password are all non-empty and no account exists for the email yet.
func EnsureSuperadmin(email, username, password string) error {
	trimmedEmail := strings.TrimSpace(email)
	trimmedUser := strings.TrimSpace(username)
	trimmedPassword := strings.TrimSpace(password)
	if trimmedEmail == "" || trimmedUser == "" || trimmedPassword == "" {
		return nil
	}

	if DB == nil {
		return errors.New("database not initialized")
	}

	var existing User
	if err := DB.Where("email = ?", trimmedEmail).First(&existing).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		hashed, err := bcrypt.GenerateFromPassword([]byte(trimmedPassword), bcrypt.DefaultCost)
		if err != nil {
			return err
		}

		return DB.Create(&User{
			Email:       trimmedEmail,
			Username:    trimmedUser,
			Password:    string(hashed),
			Role:        RoleSuperadmin,
			IsSuperuser: true,
			IsActive:    true,
		}).Error
	}

	return nil
}
