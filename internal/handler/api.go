package handler

import (
	"time"

	"github.com/backoffice/internal/db"
	"github.com/backoffice/internal/service"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// API bundles shared dependencies for HTTP handlers.
type API struct {
	db         *gorm.DB
	users      *service.UserService
	perms      *service.PermissionService
	comments   *service.CommentService
	jwtSecret  string
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewAPI constructs a handler set with shared services.
func NewAPI(gdb *gorm.DB, mailer service.Mailer, jwtSecret string, accessTTL, refreshTTL time.Duration) *API {
	perms := service.NewPermissionService(gdb)

	return &API{
		db:         gdb,
		users:      service.NewUserService(gdb, mailer),
		perms:      perms,
		comments:   service.NewCommentService(gdb, perms),
		jwtSecret:  jwtSecret,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

// DB exposes the underlying gorm instance.
func (a *API) DB() *gorm.DB {
	return a.db
}

// userResponse serializes a user with their expanded permissions map.
func (a *API) userResponse(user *db.User) (gin.H, error) {
	grants, err := a.perms.AllGrants(user)
	if err != nil {
		return nil, err
	}

	permissions := make(gin.H, len(grants))
	for page, caps := range grants {
		permissions[string(page)] = caps
	}

	return gin.H{
		"id":          user.ID,
		"username":    user.Username,
		"email":       user.Email,
		"role":        user.Role,
		"permissions": permissions,
		"created_at":  user.CreatedAt,
	}, nil
}

func commentResponse(comment *db.Comment, contentHTML string) gin.H {
	resp := gin.H{
		"id":           comment.ID,
		"page":         comment.Page,
		"user":         comment.UserID,
		"content":      comment.Content,
		"content_html": contentHTML,
		"created_at":   comment.CreatedAt,
		"updated_at":   comment.UpdatedAt,
	}
	if comment.Author != nil {
		resp["user_email"] = comment.Author.Email
		resp["user_name"] = comment.Author.Username
	}
	return resp
}

func historyResponse(entry *db.CommentHistory) gin.H {
	resp := gin.H{
		"id":          entry.ID,
		"comment":     entry.CommentID,
		"modified_by": entry.ModifiedBy,
		"old_content": entry.OldContent,
		"new_content": entry.NewContent,
		"modified_at": entry.ModifiedAt,
	}
	if entry.Modifier != nil {
		resp["modified_by_email"] = entry.Modifier.Email
		resp["modified_by_name"] = entry.Modifier.Username
	}
	return resp
}

func grantResponse(grant *db.PagePermission) gin.H {
	return gin.H{
		"id":         grant.ID,
		"user":       grant.UserID,
		"page":       grant.Page,
		"can_view":   grant.CanView,
		"can_edit":   grant.CanEdit,
		"can_create": grant.CanCreate,
		"can_delete": grant.CanDelete,
		"created_at": grant.CreatedAt,
		"updated_at": grant.UpdatedAt,
	}
}
