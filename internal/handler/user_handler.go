package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/backoffice/internal/service"
	"github.com/gin-gonic/gin"
)

type userDeleteRequest struct {
	UserID string `json:"user_id" binding:"required"`
}

// ListUsers returns every account with its expanded permissions. Admin only.
func (a *API) ListUsers(c *gin.Context) {
	users, err := a.users.List()
	if err != nil {
		respondError(c, http.StatusInternalServerError, "failed to list users")
		return
	}

	response := make([]gin.H, 0, len(users))
	for i := range users {
		profile, err := a.userResponse(&users[i])
		if err != nil {
			respondError(c, http.StatusInternalServerError, "failed to load permissions")
			return
		}
		response = append(response, profile)
	}

	c.JSON(http.StatusOK, response)
}

// DeleteUser removes an account by id. Self-deletion and superadmin targets
// are validation failures, not authorization ones, so the portal can show
// an actionable message.
func (a *API) DeleteUser(c *gin.Context) {
	actor := currentUser(c)

	var req userDeleteRequest
	if !bindJSON(c, &req, "user_id is required") {
		return
	}

	target, err := a.users.Get(req.UserID)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			respondError(c, http.StatusNotFound, "user not found")
			return
		}
		respondError(c, http.StatusInternalServerError, "failed to delete user")
		return
	}
	targetEmail := target.Email

	if err := a.users.Delete(actor, req.UserID); err != nil {
		switch {
		case errors.Is(err, service.ErrNotSuperadmin):
			respondError(c, http.StatusForbidden, "only super admins can delete users")
		case errors.Is(err, service.ErrSelfDeletion):
			respondError(c, http.StatusBadRequest, "you cannot delete your own account")
		case errors.Is(err, service.ErrTargetSuperadmin):
			respondError(c, http.StatusBadRequest, "cannot delete super admin accounts")
		case errors.Is(err, service.ErrUserNotFound):
			respondError(c, http.StatusNotFound, "user not found")
		default:
			respondError(c, http.StatusInternalServerError, "failed to delete user")
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": fmt.Sprintf("User %s has been deleted successfully.", targetEmail)})
}
