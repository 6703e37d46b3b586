package handler

import (
	"errors"
	"net/http"

	"github.com/backoffice/internal/db"
	"github.com/backoffice/internal/service"
	"github.com/gin-gonic/gin"
)

type grantRequest struct {
	UserID    string `json:"user" binding:"required"`
	Page      string `json:"page" binding:"required"`
	CanView   bool   `json:"can_view"`
	CanEdit   bool   `json:"can_edit"`
	CanCreate bool   `json:"can_create"`
	CanDelete bool   `json:"can_delete"`
}

type grantUpdateRequest struct {
	CanView   bool `json:"can_view"`
	CanEdit   bool `json:"can_edit"`
	CanCreate bool `json:"can_create"`
	CanDelete bool `json:"can_delete"`
}

type bulkPermissionsRequest struct {
	UserID      string                     `json:"user_id" binding:"required"`
	Permissions map[string]map[string]bool `json:"permissions" binding:"required"`
}

// ListGrants returns every stored grant row. Admin only.
func (a *API) ListGrants(c *gin.Context) {
	grants, err := a.perms.ListGrants()
	if err != nil {
		respondError(c, http.StatusInternalServerError, "failed to list permissions")
		return
	}

	response := make([]gin.H, 0, len(grants))
	for i := range grants {
		response = append(response, grantResponse(&grants[i]))
	}
	c.JSON(http.StatusOK, response)
}

// CreateGrant upserts the capability tuple for one (user, page) pair.
func (a *API) CreateGrant(c *gin.Context) {
	var req grantRequest
	if !bindJSON(c, &req, "user and page are required") {
		return
	}

	grant, err := a.perms.SetGrants(req.UserID, db.Page(req.Page), service.Capabilities{
		View:   req.CanView,
		Edit:   req.CanEdit,
		Create: req.CanCreate,
		Delete: req.CanDelete,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUnknownPage):
			respondError(c, http.StatusBadRequest, "invalid page")
		case errors.Is(err, service.ErrUserNotFound):
			respondError(c, http.StatusBadRequest, "user does not exist")
		default:
			respondError(c, http.StatusInternalServerError, "failed to save permission")
		}
		return
	}

	c.JSON(http.StatusCreated, grantResponse(grant))
}

// GetGrant returns one grant row by id.
func (a *API) GetGrant(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid permission id")
		return
	}

	grant, err := a.perms.GetGrant(id)
	if err != nil {
		if errors.Is(err, service.ErrGrantNotFound) {
			respondError(c, http.StatusNotFound, "permission not found")
			return
		}
		respondError(c, http.StatusInternalServerError, "failed to load permission")
		return
	}

	c.JSON(http.StatusOK, grantResponse(grant))
}

// UpdateGrant replaces the capability tuple of an existing grant row.
func (a *API) UpdateGrant(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid permission id")
		return
	}

	var req grantUpdateRequest
	if !bindJSON(c, &req, "invalid permission payload") {
		return
	}

	grant, err := a.perms.UpdateGrant(id, service.Capabilities{
		View:   req.CanView,
		Edit:   req.CanEdit,
		Create: req.CanCreate,
		Delete: req.CanDelete,
	})
	if err != nil {
		if errors.Is(err, service.ErrGrantNotFound) {
			respondError(c, http.StatusNotFound, "permission not found")
			return
		}
		respondError(c, http.StatusInternalServerError, "failed to update permission")
		return
	}

	c.JSON(http.StatusOK, grantResponse(grant))
}

// DeleteGrant removes one grant row.
func (a *API) DeleteGrant(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid permission id")
		return
	}

	if err := a.perms.DeleteGrant(id); err != nil {
		if errors.Is(err, service.ErrGrantNotFound) {
			respondError(c, http.StatusNotFound, "permission not found")
			return
		}
		respondError(c, http.StatusInternalServerError, "failed to delete permission")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Permission deleted successfully"})
}

// UpdateUserPermissions bulk-upserts a user's grants across several pages,
// validating the whole payload before writing any of it.
func (a *API) UpdateUserPermissions(c *gin.Context) {
	var req bulkPermissionsRequest
	if !bindJSON(c, &req, "user_id and permissions are required") {
		return
	}

	grants, err := a.perms.BulkUpdate(req.UserID, req.Permissions)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUnknownPage), errors.Is(err, service.ErrUnknownCapability):
			respondError(c, http.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrUserNotFound):
			respondError(c, http.StatusNotFound, "user not found")
		default:
			respondError(c, http.StatusInternalServerError, "failed to update permissions")
		}
		return
	}

	permissions := make(gin.H, len(grants))
	for page, caps := range grants {
		permissions[string(page)] = caps
	}

	c.JSON(http.StatusOK, gin.H{
		"message":     "Permissions updated successfully",
		"user_id":     req.UserID,
		"permissions": permissions,
	})
}

// MyPermissions returns the caller's effective capability map.
func (a *API) MyPermissions(c *gin.Context) {
	user := currentUser(c)

	grants, err := a.perms.AllGrants(user)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "failed to load permissions")
		return
	}

	response := make(gin.H, len(grants))
	for page, caps := range grants {
		response[string(page)] = caps
	}
	c.JSON(http.StatusOK, response)
}
