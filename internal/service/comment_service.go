package service

import (
	"bytes"
	"errors"
	"strings"

	"github.com/backoffice/internal/db"
	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
	"gorm.io/gorm"
)

var (
	ErrEmptyContent     = errors.New("comment content cannot be empty")
	ErrCommentNotFound  = errors.New("comment not found")
	ErrPermissionDenied = errors.New("permission denied")
)

var (
	markdownEngine = goldmark.New(
		goldmark.WithExtensions(extension.GFM, extension.Linkify, extension.Table),
		goldmark.WithRendererOptions(html.WithHardWraps(), html.WithXHTML()),
	)
	sanitizer = bluemonday.UGCPolicy()
)

// CommentService owns page comments and their edit-history audit trail.
// Every operation consults the permission gate before touching data.
type CommentService struct {
	db    *gorm.DB
	perms *PermissionService
}

// NewCommentService creates a CommentService instance.
func NewCommentService(gdb *gorm.DB, perms *PermissionService) *CommentService {
	return &CommentService{db: gdb, perms: perms}
}

// RenderContent converts comment markdown into sanitized HTML for display.
func (s *CommentService) RenderContent(content string) string {
	var buf bytes.Buffer
	if err := markdownEngine.Convert([]byte(content), &buf); err != nil {
		return ""
	}
	return sanitizer.Sanitize(buf.String())
}

// List returns the page's comments newest-first. A missing page or a viewer
// without the view capability yields an empty list, not an error.
func (s *CommentService) List(user *db.User, page db.Page) ([]db.Comment, error) {
	if page == "" {
		return []db.Comment{}, nil
	}
	if !db.ValidPage(page) {
		return nil, ErrUnknownPage
	}

	allowed, err := s.perms.Can(user, page, CapView)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return []db.Comment{}, nil
	}

	var comments []db.Comment
	if err := s.db.Preload("Author").
		Where("page = ?", page).
		Order("created_at desc").
		Order("id desc").
		Find(&comments).Error; err != nil {
		return nil, err
	}
	return comments, nil
}

// Get loads one comment, gated on the view capability for its page.
func (s *CommentService) Get(user *db.User, id uint) (*db.Comment, error) {
	var comment db.Comment
	if err := s.db.Preload("Author").First(&comment, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCommentNotFound
		}
		return nil, err
	}

	allowed, err := s.perms.Can(user, comment.Page, CapView)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, ErrPermissionDenied
	}

	return &comment, nil
}

// Create adds a comment to a page for users holding the create capability.
func (s *CommentService) Create(user *db.User, page db.Page, content string) (*db.Comment, error) {
	if !db.ValidPage(page) {
		return nil, ErrUnknownPage
	}

	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrEmptyContent
	}

	allowed, err := s.perms.Can(user, page, CapCreate)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, ErrPermissionDenied
	}

	comment := db.Comment{Page: page, UserID: user.ID, Content: content}
	if err := s.db.Create(&comment).Error; err != nil {
		return nil, err
	}
	comment.Author = user
	return &comment, nil
}

// Update rewrites a comment's content for users holding the edit capability
// on its page. A history row is appended in the same transaction, but only
// when the trimmed content actually changes; a no-op edit writes nothing.
func (s *CommentService) Update(user *db.User, id uint, newContent string) (*db.Comment, error) {
	var comment db.Comment
	if err := s.db.Preload("Author").First(&comment, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCommentNotFound
		}
		return nil, err
	}

	allowed, err := s.perms.Can(user, comment.Page, CapEdit)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, ErrPermissionDenied
	}

	newContent = strings.TrimSpace(newContent)
	if newContent == "" {
		return nil, ErrEmptyContent
	}

	if newContent == comment.Content {
		return &comment, nil
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		modifiedBy := user.ID
		history := db.CommentHistory{
			CommentID:  comment.ID,
			ModifiedBy: &modifiedBy,
			OldContent: comment.Content,
			NewContent: newContent,
		}
		if err := tx.Create(&history).Error; err != nil {
			return err
		}

		return tx.Model(&comment).Update("content", newContent).Error
	})
	if err != nil {
		return nil, err
	}

	comment.Content = newContent
	return &comment, nil
}

// Delete removes a comment and its history for users holding the delete
// capability on its page.
func (s *CommentService) Delete(user *db.User, id uint) error {
	var comment db.Comment
	if err := s.db.First(&comment, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrCommentNotFound
		}
		return err
	}

	allowed, err := s.perms.Can(user, comment.Page, CapDelete)
	if err != nil {
		return err
	}
	if !allowed {
		return ErrPermissionDenied
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("comment_id = ?", comment.ID).Delete(&db.CommentHistory{}).Error; err != nil {
			return err
		}
		return tx.Delete(&comment).Error
	})
}

// History lists edit-history entries newest-first, for unrestricted actors
// only. A zero commentID returns the full trail across all comments.
func (s *CommentService) History(actor *db.User, commentID uint) ([]db.CommentHistory, error) {
	if !actor.IsUnrestricted() {
		return nil, ErrPermissionDenied
	}

	query := s.db.Preload("Modifier").Order("modified_at desc").Order("id desc")
	if commentID != 0 {
		var comment db.Comment
		if err := s.db.First(&comment, commentID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrCommentNotFound
			}
			return nil, err
		}
		query = query.Where("comment_id = ?", commentID)
	}

	var entries []db.CommentHistory
	if err := query.Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}
