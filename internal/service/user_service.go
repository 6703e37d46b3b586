package service

import (
	"crypto/rand"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"
	"unicode"

	"github.com/backoffice/internal/db"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	ErrEmailTaken         = errors.New("email already registered")
	ErrUsernameTaken      = errors.New("username already taken")
	ErrWeakPassword       = errors.New("password does not meet the strength policy")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrWrongPassword      = errors.New("current password is incorrect")
	ErrAccountDisabled    = errors.New("account is deactivated")
	ErrUserNotFound       = errors.New("user not found")
	ErrNoOTPPending       = errors.New("no OTP requested for this email")
	ErrOTPMismatch        = errors.New("invalid OTP")
	ErrOTPExpired         = errors.New("OTP has expired")
	ErrOTPDelivery        = errors.New("failed to send OTP")
	ErrNotSuperadmin      = errors.New("only super admins can delete users")
	ErrSelfDeletion       = errors.New("cannot delete your own account")
	ErrTargetSuperadmin   = errors.New("cannot delete super admin accounts")
)

// otpTTL is the validity window of a password-reset code.
const otpTTL = 10 * time.Minute

// dummyHash keeps Authenticate doing a bcrypt comparison even when the
// email is unknown, so both failure paths cost the same.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("backoffice-dummy"), bcrypt.DefaultCost)

// UserService wraps account and credential operations.
type UserService struct {
	db     *gorm.DB
	mailer Mailer
}

// RegisterInput carries the fields accepted when creating an account.
type RegisterInput struct {
	Email        string
	Username     string
	Password     string
	Role         string
	WelcomeEmail bool
}

// NewUserService creates a UserService instance.
func NewUserService(gdb *gorm.DB, mailer Mailer) *UserService {
	return &UserService{db: gdb, mailer: mailer}
}

// Register creates a new account after uniqueness and password checks.
// The optional welcome mail carries the plaintext password; delivery failure
// is logged and swallowed, never failing the registration.
func (s *UserService) Register(input RegisterInput) (*db.User, error) {
	email := strings.TrimSpace(strings.ToLower(input.Email))
	username := strings.TrimSpace(input.Username)
	if email == "" || username == "" {
		return nil, errors.New("email and username are required")
	}

	role := input.Role
	if role == "" {
		role = db.RoleUser
	}
	if role != db.RoleUser && role != db.RoleSuperadmin {
		return nil, fmt.Errorf("invalid role %q", role)
	}

	var existing db.User
	if err := s.db.Where("email = ?", email).First(&existing).Error; err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if err := s.db.Where("username = ?", username).First(&existing).Error; err == nil {
		return nil, ErrUsernameTaken
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	if err := validatePassword(input.Password, email, username); err != nil {
		return nil, err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := db.User{
		Email:    email,
		Username: username,
		Password: string(hashed),
		Role:     role,
		IsActive: true,
	}
	if err := s.db.Create(&user).Error; err != nil {
		return nil, err
	}

	if input.WelcomeEmail {
		if err := s.sendWelcomeEmail(&user, input.Password); err != nil {
			log.Printf("failed to send welcome email to %s: %v", user.Email, err)
		}
	}

	return &user, nil
}

// Authenticate verifies the email/password pair.
func (s *UserService) Authenticate(email, password string) (*db.User, error) {
	email = strings.TrimSpace(strings.ToLower(email))

	var user db.User
	if err := s.db.Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Burn a comparison anyway so the miss costs the same.
			_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	if !user.IsActive {
		return nil, ErrAccountDisabled
	}

	return &user, nil
}

// ChangePassword rotates the caller's password. Bumping TokenVersion
// invalidates every token issued against the old password.
func (s *UserService) ChangePassword(user *db.User, oldPassword, newPassword string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(oldPassword)); err != nil {
		return ErrWrongPassword
	}

	if err := validatePassword(newPassword, user.Email, user.Username); err != nil {
		return err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		updates := map[string]any{
			"password":      string(hashed),
			"token_version": gorm.Expr("token_version + 1"),
		}
		if err := tx.Model(&db.User{}).Where("id = ?", user.ID).Updates(updates).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", user.ID).First(user).Error
	})
}

// RequestPasswordReset issues a 6-digit OTP and mails it. An unknown email
// is a silent success so the endpoint cannot be used to probe accounts.
// When delivery fails the OTP is cleared again and ErrOTPDelivery returned.
func (s *UserService) RequestPasswordReset(email string) error {
	email = strings.TrimSpace(strings.ToLower(email))

	var user db.User
	if err := s.db.Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return err
	}

	if !user.IsActive {
		return ErrAccountDisabled
	}

	otp, err := generateOTP()
	if err != nil {
		return err
	}

	now := time.Now()
	if err := s.db.Model(&user).Updates(map[string]any{
		"otp":            otp,
		"otp_created_at": now,
	}).Error; err != nil {
		return err
	}

	body := fmt.Sprintf("Your OTP for password reset is: %s. This OTP will expire in 10 minutes.", otp)
	if err := s.mailer.Send(user.Email, "Password Reset OTP", body); err != nil {
		log.Printf("failed to send OTP to %s: %v", user.Email, err)
		if clearErr := s.clearOTP(user.ID); clearErr != nil {
			return clearErr
		}
		return ErrOTPDelivery
	}

	return nil
}

// VerifyPasswordReset consumes a pending OTP and sets a new password.
// The code is single-use: success and expiry both clear the stored fields.
func (s *UserService) VerifyPasswordReset(email, otp, newPassword string) error {
	email = strings.TrimSpace(strings.ToLower(email))

	var user db.User
	if err := s.db.Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return err
	}

	if !user.IsActive {
		return ErrAccountDisabled
	}

	if user.OTP == nil || *user.OTP == "" {
		return ErrNoOTPPending
	}

	if *user.OTP != otp {
		return ErrOTPMismatch
	}

	if user.OTPCreatedAt == nil || time.Since(*user.OTPCreatedAt) > otpTTL {
		if err := s.clearOTP(user.ID); err != nil {
			return err
		}
		return ErrOTPExpired
	}

	if err := validatePassword(newPassword, user.Email, user.Username); err != nil {
		return err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		return tx.Model(&db.User{}).Where("id = ?", user.ID).Updates(map[string]any{
			"password":       string(hashed),
			"otp":            nil,
			"otp_created_at": nil,
			"token_version":  gorm.Expr("token_version + 1"),
		}).Error
	})
}

// Delete removes a user and everything they own. Only an unrestricted actor
// may delete; unrestricted targets and self-deletion are always rejected.
func (s *UserService) Delete(actor *db.User, targetID string) error {
	if !actor.IsUnrestricted() {
		return ErrNotSuperadmin
	}

	if targetID == actor.ID {
		return ErrSelfDeletion
	}

	var target db.User
	if err := s.db.Where("id = ?", targetID).First(&target).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return err
	}

	if target.IsUnrestricted() {
		return ErrTargetSuperadmin
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", target.ID).Delete(&db.PagePermission{}).Error; err != nil {
			return err
		}

		var commentIDs []uint
		if err := tx.Model(&db.Comment{}).Where("user_id = ?", target.ID).Pluck("id", &commentIDs).Error; err != nil {
			return err
		}
		if len(commentIDs) > 0 {
			if err := tx.Where("comment_id IN ?", commentIDs).Delete(&db.CommentHistory{}).Error; err != nil {
				return err
			}
			if err := tx.Where("id IN ?", commentIDs).Delete(&db.Comment{}).Error; err != nil {
				return err
			}
		}

		// Audit rows on other people's comments keep their content but
		// lose the dangling modifier reference.
		if err := tx.Model(&db.CommentHistory{}).Where("modified_by = ?", target.ID).
			Update("modified_by", nil).Error; err != nil {
			return err
		}

		return tx.Delete(&target).Error
	})
}

// List returns every account ordered by creation time.
func (s *UserService) List() ([]db.User, error) {
	var users []db.User
	if err := s.db.Order("created_at asc").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

// Get loads one user by id.
func (s *UserService) Get(id string) (*db.User, error) {
	var user db.User
	if err := s.db.Where("id = ?", id).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// UpdateUsername changes the caller's display name, keeping it unique.
func (s *UserService) UpdateUsername(user *db.User, username string) error {
	username = strings.TrimSpace(username)
	if username == "" {
		return errors.New("username is required")
	}

	var existing db.User
	if err := s.db.Where("username = ? AND id <> ?", username, user.ID).First(&existing).Error; err == nil {
		return ErrUsernameTaken
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	if err := s.db.Model(user).Update("username", username).Error; err != nil {
		return err
	}
	user.Username = username
	return nil
}

func (s *UserService) clearOTP(userID string) error {
	return s.db.Model(&db.User{}).Where("id = ?", userID).Updates(map[string]any{
		"otp":            nil,
		"otp_created_at": nil,
	}).Error
}

func (s *UserService) sendWelcomeEmail(user *db.User, password string) error {
	body := fmt.Sprintf(`Hello %s,

Your account has been successfully created on our platform.

Here are your login details:
- Email: %s
- Password: %s
- Role: %s

Please log in and change your password for security reasons.

If you have any questions, please contact our support team.

Best regards,
The Team`, user.Username, user.Email, password, user.Role)

	return s.mailer.Send(user.Email, "Welcome to Our Platform - Your Account Details", body)
}

// validatePassword enforces the strength policy: at least 8 characters,
// at least one letter and one digit, and not equal to the email or username.
func validatePassword(password, email, username string) error {
	if len(password) < 8 {
		return ErrWeakPassword
	}

	var hasLetter, hasDigit bool
	for _, r := range password {
		switch {
		case unicode.IsLetter(r):
			hasLetter = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	if !hasLetter || !hasDigit {
		return ErrWeakPassword
	}

	lowered := strings.ToLower(password)
	if lowered == strings.ToLower(email) || lowered == strings.ToLower(username) {
		return ErrWeakPassword
	}

	return nil
}

// generateOTP draws a 6-digit numeric code from crypto/rand.
func generateOTP() (string, error) {
	const digits = "0123456789"

	buf := make([]byte, 6)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating OTP: %w", err)
	}

	code := make([]byte, len(buf))
	for i, b := range buf {
		code[i] = digits[int(b)%len(digits)]
	}
	return string(code), nil
}
