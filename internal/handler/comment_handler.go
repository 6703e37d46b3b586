package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/backoffice/internal/db"
	"github.com/backoffice/internal/service"
	"github.com/gin-gonic/gin"
)

type commentCreateRequest struct {
	Page    string `json:"page" binding:"required"`
	Content string `json:"content" binding:"required"`
}

type commentUpdateRequest struct {
	Content string `json:"content" binding:"required"`
}

// ListComments returns the comments of one page, newest first. Without a
// page query or without the view capability the list is simply empty.
func (a *API) ListComments(c *gin.Context) {
	user := currentUser(c)
	page := db.Page(c.Query("page"))

	comments, err := a.comments.List(user, page)
	if err != nil {
		if errors.Is(err, service.ErrUnknownPage) {
			respondError(c, http.StatusBadRequest, "invalid page")
			return
		}
		respondError(c, http.StatusInternalServerError, "failed to list comments")
		return
	}

	response := make([]gin.H, 0, len(comments))
	for i := range comments {
		response = append(response, commentResponse(&comments[i], a.comments.RenderContent(comments[i].Content)))
	}
	c.JSON(http.StatusOK, response)
}

// CreateComment adds a comment to a page, gated on the create capability.
func (a *API) CreateComment(c *gin.Context) {
	user := currentUser(c)

	var req commentCreateRequest
	if !bindJSON(c, &req, "page and content are required") {
		return
	}

	comment, err := a.comments.Create(user, db.Page(req.Page), req.Content)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUnknownPage):
			respondError(c, http.StatusBadRequest, "invalid page")
		case errors.Is(err, service.ErrEmptyContent):
			respondError(c, http.StatusBadRequest, "comment content cannot be empty")
		case errors.Is(err, service.ErrPermissionDenied):
			respondError(c, http.StatusForbidden, "you don't have permission to create comments on this page")
		default:
			respondError(c, http.StatusBadRequest, "failed to create comment")
		}
		return
	}

	c.JSON(http.StatusCreated, commentResponse(comment, a.comments.RenderContent(comment.Content)))
}

// GetComment returns one comment, gated on the view capability.
func (a *API) GetComment(c *gin.Context) {
	user := currentUser(c)

	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid comment id")
		return
	}

	comment, err := a.comments.Get(user, id)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrCommentNotFound):
			respondError(c, http.StatusNotFound, "comment not found")
		case errors.Is(err, service.ErrPermissionDenied):
			respondError(c, http.StatusForbidden, "you don't have permission to view comments on this page")
		default:
			respondError(c, http.StatusInternalServerError, "failed to load comment")
		}
		return
	}

	c.JSON(http.StatusOK, commentResponse(comment, a.comments.RenderContent(comment.Content)))
}

// UpdateComment rewrites a comment's content, gated on the edit capability.
// Real changes are recorded in the history ledger.
func (a *API) UpdateComment(c *gin.Context) {
	user := currentUser(c)

	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid comment id")
		return
	}

	var req commentUpdateRequest
	if !bindJSON(c, &req, "content is required") {
		return
	}

	comment, err := a.comments.Update(user, id, req.Content)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrCommentNotFound):
			respondError(c, http.StatusNotFound, "comment not found")
		case errors.Is(err, service.ErrPermissionDenied):
			respondError(c, http.StatusForbidden, "you don't have permission to edit comments on this page")
		case errors.Is(err, service.ErrEmptyContent):
			respondError(c, http.StatusBadRequest, "comment content cannot be empty")
		default:
			respondError(c, http.StatusInternalServerError, "failed to update comment")
		}
		return
	}

	c.JSON(http.StatusOK, commentResponse(comment, a.comments.RenderContent(comment.Content)))
}

// DeleteComment removes a comment, gated on the delete capability.
func (a *API) DeleteComment(c *gin.Context) {
	user := currentUser(c)

	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid comment id")
		return
	}

	if err := a.comments.Delete(user, id); err != nil {
		switch {
		case errors.Is(err, service.ErrCommentNotFound):
			respondError(c, http.StatusNotFound, "comment not found")
		case errors.Is(err, service.ErrPermissionDenied):
			respondError(c, http.StatusForbidden, "you don't have permission to delete comments on this page")
		default:
			respondError(c, http.StatusInternalServerError, "failed to delete comment")
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Comment deleted successfully"})
}

// ListCommentHistory returns the edit-history ledger, optionally filtered
// by comment_id. Admin only.
func (a *API) ListCommentHistory(c *gin.Context) {
	user := currentUser(c)

	var commentID uint
	if raw := c.Query("comment_id"); raw != "" {
		parsed, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			respondError(c, http.StatusBadRequest, "invalid comment_id")
			return
		}
		commentID = uint(parsed)
	}

	a.respondHistory(c, user, commentID)
}

// GetCommentHistory returns the history of one comment. Superadmin only.
func (a *API) GetCommentHistory(c *gin.Context) {
	user := currentUser(c)

	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid comment id")
		return
	}

	a.respondHistory(c, user, id)
}

func (a *API) respondHistory(c *gin.Context, user *db.User, commentID uint) {
	entries, err := a.comments.History(user, commentID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrPermissionDenied):
			respondError(c, http.StatusForbidden, "permission denied")
		case errors.Is(err, service.ErrCommentNotFound):
			respondError(c, http.StatusNotFound, "comment not found")
		default:
			respondError(c, http.StatusInternalServerError, "failed to load comment history")
		}
		return
	}

	response := make([]gin.H, 0, len(entries))
	for i := range entries {
		response = append(response, historyResponse(&entries[i]))
	}
	c.JSON(http.StatusOK, response)
}
