package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/backoffice/internal/auth"
	"github.com/backoffice/internal/service"
	"github.com/gin-gonic/gin"
)

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
	Role     string `json:"role"`
}

type refreshRequest struct {
	Refresh string `json:"refresh" binding:"required"`
}

type registerRequest struct {
	Email             string `json:"email" binding:"required"`
	Username          string `json:"username" binding:"required"`
	Password          string `json:"password" binding:"required"`
	Role              string `json:"role"`
	SendPasswordEmail *bool  `json:"send_password_email"`
}

type profileUpdateRequest struct {
	Username string `json:"username" binding:"required"`
}

type changePasswordRequest struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required"`
}

type resetRequestRequest struct {
	Email string `json:"email" binding:"required"`
}

type resetVerifyRequest struct {
	Email       string `json:"email" binding:"required"`
	OTP         string `json:"otp" binding:"required"`
	NewPassword string `json:"new_password" binding:"required"`
}

// Login authenticates by email and password and issues a token pair. When
// the request names an expected role, a mismatch is rejected so each portal
// only signs in its own tier.
func (a *API) Login(c *gin.Context) {
	var req loginRequest
	if !bindJSON(c, &req, "email and password are required") {
		return
	}

	user, err := a.users.Authenticate(req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidCredentials):
			respondError(c, http.StatusUnauthorized, "no active account found with the given credentials")
		case errors.Is(err, service.ErrAccountDisabled):
			respondError(c, http.StatusUnauthorized, "this account is deactivated")
		default:
			respondError(c, http.StatusInternalServerError, "login failed")
		}
		return
	}

	if req.Role != "" && user.Role != req.Role {
		c.JSON(http.StatusForbidden, gin.H{
			"detail": fmt.Sprintf("Invalid login portal. Please login through your appropriate login portal. Expected role: %s", user.Role),
		})
		return
	}

	pair, err := auth.GenerateTokenPair(user, a.jwtSecret, a.accessTTL, a.refreshTTL)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "failed to issue tokens")
		return
	}

	profile, err := a.userResponse(user)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "failed to load permissions")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"access":  pair.Access,
		"refresh": pair.Refresh,
		"user":    profile,
	})
}

// RefreshToken rotates a refresh token into a fresh token pair.
func (a *API) RefreshToken(c *gin.Context) {
	var req refreshRequest
	if !bindJSON(c, &req, "refresh token is required") {
		return
	}

	claims, err := auth.ParseToken(req.Refresh, a.jwtSecret)
	if err != nil || claims.TokenType != auth.TokenTypeRefresh {
		respondError(c, http.StatusUnauthorized, "token is invalid or expired")
		return
	}

	user, err := a.users.Get(claims.Subject)
	if err != nil {
		respondError(c, http.StatusUnauthorized, "token is invalid or expired")
		return
	}

	if !user.IsActive || user.TokenVersion != claims.TokenVersion {
		respondError(c, http.StatusUnauthorized, "token is invalid or expired")
		return
	}

	pair, err := auth.GenerateTokenPair(user, a.jwtSecret, a.accessTTL, a.refreshTTL)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "failed to issue tokens")
		return
	}

	c.JSON(http.StatusOK, gin.H{"access": pair.Access, "refresh": pair.Refresh})
}

// Register creates a new account. Admin only; the welcome mail with the
// initial credentials is sent unless explicitly disabled.
func (a *API) Register(c *gin.Context) {
	var req registerRequest
	if !bindJSON(c, &req, "email, username and password are required") {
		return
	}

	welcome := true
	if req.SendPasswordEmail != nil {
		welcome = *req.SendPasswordEmail
	}

	user, err := a.users.Register(service.RegisterInput{
		Email:        req.Email,
		Username:     req.Username,
		Password:     req.Password,
		Role:         req.Role,
		WelcomeEmail: welcome,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEmailTaken):
			respondError(c, http.StatusBadRequest, "a user with this email already exists")
		case errors.Is(err, service.ErrUsernameTaken):
			respondError(c, http.StatusBadRequest, "a user with this username already exists")
		case errors.Is(err, service.ErrWeakPassword):
			respondError(c, http.StatusBadRequest, "use a strong password")
		default:
			respondError(c, http.StatusBadRequest, "failed to create user")
		}
		return
	}

	profile, err := a.userResponse(user)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "failed to load permissions")
		return
	}

	c.JSON(http.StatusCreated, profile)
}

// GetProfile returns the caller's own profile.
func (a *API) GetProfile(c *gin.Context) {
	user := currentUser(c)

	profile, err := a.userResponse(user)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "failed to load permissions")
		return
	}
	c.JSON(http.StatusOK, profile)
}

// UpdateProfile changes the caller's username.
func (a *API) UpdateProfile(c *gin.Context) {
	user := currentUser(c)

	var req profileUpdateRequest
	if !bindJSON(c, &req, "username is required") {
		return
	}

	if err := a.users.UpdateUsername(user, req.Username); err != nil {
		if errors.Is(err, service.ErrUsernameTaken) {
			respondError(c, http.StatusBadRequest, "a user with this username already exists")
			return
		}
		respondError(c, http.StatusBadRequest, "failed to update profile")
		return
	}

	c.JSON(http.StatusOK, gin.H{"username": user.Username})
}

// ChangePassword rotates the caller's password.
func (a *API) ChangePassword(c *gin.Context) {
	user := currentUser(c)

	var req changePasswordRequest
	if !bindJSON(c, &req, "old and new passwords are required") {
		return
	}

	if err := a.users.ChangePassword(user, req.OldPassword, req.NewPassword); err != nil {
		switch {
		case errors.Is(err, service.ErrWrongPassword):
			respondError(c, http.StatusBadRequest, "current password is incorrect")
		case errors.Is(err, service.ErrWeakPassword):
			respondError(c, http.StatusBadRequest, "use a strong password")
		default:
			respondError(c, http.StatusInternalServerError, "failed to update password")
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Password updated successfully"})
}

// RequestPasswordReset issues an OTP. The response never reveals whether
// the email exists.
func (a *API) RequestPasswordReset(c *gin.Context) {
	var req resetRequestRequest
	if !bindJSON(c, &req, "invalid email address") {
		return
	}

	if err := a.users.RequestPasswordReset(req.Email); err != nil {
		switch {
		case errors.Is(err, service.ErrAccountDisabled):
			respondError(c, http.StatusBadRequest, "this account is deactivated, please contact administrator")
		case errors.Is(err, service.ErrOTPDelivery):
			respondError(c, http.StatusInternalServerError, "failed to send OTP, please try again later")
		default:
			respondError(c, http.StatusInternalServerError, "failed to process reset request")
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "If the email exists in our system, an OTP has been sent"})
}

// VerifyPasswordReset consumes an OTP and sets the new password.
func (a *API) VerifyPasswordReset(c *gin.Context) {
	var req resetVerifyRequest
	if !bindJSON(c, &req, "email, otp and new password are required") {
		return
	}

	if err := a.users.VerifyPasswordReset(req.Email, req.OTP, req.NewPassword); err != nil {
		switch {
		case errors.Is(err, service.ErrUserNotFound):
			respondError(c, http.StatusNotFound, "user account not found")
		case errors.Is(err, service.ErrAccountDisabled):
			respondError(c, http.StatusBadRequest, "this account is deactivated, please contact administrator")
		case errors.Is(err, service.ErrNoOTPPending):
			respondError(c, http.StatusBadRequest, "no OTP requested for this email, please request a new OTP")
		case errors.Is(err, service.ErrOTPMismatch):
			respondError(c, http.StatusBadRequest, "invalid OTP, please check the code and try again")
		case errors.Is(err, service.ErrOTPExpired):
			respondError(c, http.StatusBadRequest, "OTP has expired, please request a new OTP")
		case errors.Is(err, service.ErrWeakPassword):
			respondError(c, http.StatusBadRequest, "please use a strong password")
		default:
			respondError(c, http.StatusInternalServerError, "failed to reset password")
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Password has been reset successfully. You can now login with your new password."})
}
