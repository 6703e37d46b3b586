package service

import (
	"errors"
	"fmt"

	"github.com/backoffice/internal/db"
	"gorm.io/gorm"
)

var (
	ErrUnknownPage       = errors.New("unknown page")
	ErrUnknownCapability = errors.New("unknown capability")
	ErrGrantNotFound     = errors.New("permission grant not found")
)

// Capability actions gate the comment endpoints.
const (
	CapView   = "view"
	CapEdit   = "edit"
	CapCreate = "create"
	CapDelete = "delete"
)

// Capabilities is the four-boolean tuple stored per (user, page).
type Capabilities struct {
	View   bool `json:"view"`
	Edit   bool `json:"edit"`
	Create bool `json:"create"`
	Delete bool `json:"delete"`
}

// AllCapabilities is what unrestricted users hold on every page.
var AllCapabilities = Capabilities{View: true, Edit: true, Create: true, Delete: true}

// Allows reports whether the tuple includes the given action.
func (c Capabilities) Allows(action string) bool {
	switch action {
	case CapView:
		return c.View
	case CapEdit:
		return c.Edit
	case CapCreate:
		return c.Create
	case CapDelete:
		return c.Delete
	default:
		return false
	}
}

// PermissionService owns the per-user, per-page capability matrix and the
// authorization decisions derived from it.
type PermissionService struct {
	db *gorm.DB
}

// NewPermissionService creates a PermissionService instance.
func NewPermissionService(gdb *gorm.DB) *PermissionService {
	return &PermissionService{db: gdb}
}

// ValidateGrantMap turns a raw page -> capability -> bool payload into typed
// grants, rejecting unknown pages and capability keys. Missing capability
// keys default to false.
func (s *PermissionService) ValidateGrantMap(raw map[string]map[string]bool) (map[db.Page]Capabilities, error) {
	grants := make(map[db.Page]Capabilities, len(raw))
	for rawPage, caps := range raw {
		page := db.Page(rawPage)
		if !db.ValidPage(page) {
			return nil, fmt.Errorf("%w: %s", ErrUnknownPage, rawPage)
		}

		var tuple Capabilities
		for key, enabled := range caps {
			switch key {
			case CapView:
				tuple.View = enabled
			case CapEdit:
				tuple.Edit = enabled
			case CapCreate:
				tuple.Create = enabled
			case CapDelete:
				tuple.Delete = enabled
			default:
				return nil, fmt.Errorf("%w: %s", ErrUnknownCapability, key)
			}
		}
		grants[page] = tuple
	}
	return grants, nil
}

// SetGrants upserts the capability tuple for one (user, page) pair. The
// stored row is replaced wholesale, never merged.
func (s *PermissionService) SetGrants(userID string, page db.Page, caps Capabilities) (*db.PagePermission, error) {
	if !db.ValidPage(page) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPage, page)
	}

	var user db.User
	if err := s.db.Where("id = ?", userID).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	var grant db.PagePermission
	err := s.db.Transaction(func(tx *gorm.DB) error {
		err := tx.Where("user_id = ? AND page = ?", userID, page).First(&grant).Error
		if err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
			grant = db.PagePermission{UserID: userID, Page: page}
		}

		grant.CanView = caps.View
		grant.CanEdit = caps.Edit
		grant.CanCreate = caps.Create
		grant.CanDelete = caps.Delete
		return tx.Save(&grant).Error
	})
	if err != nil {
		return nil, err
	}
	return &grant, nil
}

// BulkUpdate upserts grants for several pages of one user in a single
// transaction. The whole payload is validated before anything is written.
func (s *PermissionService) BulkUpdate(userID string, raw map[string]map[string]bool) (map[db.Page]Capabilities, error) {
	grants, err := s.ValidateGrantMap(raw)
	if err != nil {
		return nil, err
	}

	var user db.User
	if err := s.db.Where("id = ?", userID).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		for page, caps := range grants {
			var grant db.PagePermission
			err := tx.Where("user_id = ? AND page = ?", userID, page).First(&grant).Error
			if err != nil {
				if !errors.Is(err, gorm.ErrRecordNotFound) {
					return err
				}
				grant = db.PagePermission{UserID: userID, Page: page}
			}

			grant.CanView = caps.View
			grant.CanEdit = caps.Edit
			grant.CanCreate = caps.Create
			grant.CanDelete = caps.Delete
			if err := tx.Save(&grant).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return grants, nil
}

// EffectiveCapabilities resolves what the user may do on the page right now.
// Unrestricted users hold everything regardless of stored grants; everyone
// else gets their stored row, or all-false when none exists.
func (s *PermissionService) EffectiveCapabilities(user *db.User, page db.Page) (Capabilities, error) {
	if !db.ValidPage(page) {
		return Capabilities{}, fmt.Errorf("%w: %s", ErrUnknownPage, page)
	}

	if user.IsUnrestricted() {
		return AllCapabilities, nil
	}

	var grant db.PagePermission
	if err := s.db.Where("user_id = ? AND page = ?", user.ID, page).First(&grant).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Capabilities{}, nil
		}
		return Capabilities{}, err
	}

	return Capabilities{
		View:   grant.CanView,
		Edit:   grant.CanEdit,
		Create: grant.CanCreate,
		Delete: grant.CanDelete,
	}, nil
}

// AllGrants returns the user's full permission map for rendering. The map
// is sparse for plain users and covers every page for unrestricted ones.
func (s *PermissionService) AllGrants(user *db.User) (map[db.Page]Capabilities, error) {
	if user.IsUnrestricted() {
		grants := make(map[db.Page]Capabilities, len(db.Pages))
		for _, page := range db.Pages {
			grants[page] = AllCapabilities
		}
		return grants, nil
	}

	var rows []db.PagePermission
	if err := s.db.Where("user_id = ?", user.ID).Find(&rows).Error; err != nil {
		return nil, err
	}

	grants := make(map[db.Page]Capabilities, len(rows))
	for _, row := range rows {
		grants[row.Page] = Capabilities{
			View:   row.CanView,
			Edit:   row.CanEdit,
			Create: row.CanCreate,
			Delete: row.CanDelete,
		}
	}
	return grants, nil
}

// Can is the authorization gate consulted before every comment operation.
// It re-reads grant state on each call so permission changes take effect
// immediately.
func (s *PermissionService) Can(user *db.User, page db.Page, action string) (bool, error) {
	caps, err := s.EffectiveCapabilities(user, page)
	if err != nil {
		return false, err
	}
	return caps.Allows(action), nil
}

// ListGrants returns every stored grant row for the admin screens.
func (s *PermissionService) ListGrants() ([]db.PagePermission, error) {
	var rows []db.PagePermission
	if err := s.db.Order("user_id asc").Order("page asc").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// GetGrant loads one grant row by id.
func (s *PermissionService) GetGrant(id uint) (*db.PagePermission, error) {
	var grant db.PagePermission
	if err := s.db.First(&grant, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrGrantNotFound
		}
		return nil, err
	}
	return &grant, nil
}

// UpdateGrant replaces the capability tuple of an existing grant row.
func (s *PermissionService) UpdateGrant(id uint, caps Capabilities) (*db.PagePermission, error) {
	var grant db.PagePermission
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&grant, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrGrantNotFound
			}
			return err
		}

		grant.CanView = caps.View
		grant.CanEdit = caps.Edit
		grant.CanCreate = caps.Create
		grant.CanDelete = caps.Delete
		return tx.Save(&grant).Error
	})
	if err != nil {
		return nil, err
	}
	return &grant, nil
}

// DeleteGrant removes one grant row.
func (s *PermissionService) DeleteGrant(id uint) error {
	result := s.db.Delete(&db.PagePermission{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrGrantNotFound
	}
	return nil
}
