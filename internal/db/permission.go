package db

import "time"

// PagePermission stores the capability grant of one user on one page.
// At most one row exists per (user, page) pair; updates replace the full
// four-capability tuple.
type PagePermission struct {
	ID        uint   `gorm:"primaryKey"`
	UserID    string `gorm:"size:36;not null;uniqueIndex:idx_page_permissions_user_page"`
	Page      Page   `gorm:"size:50;not null;uniqueIndex:idx_page_permissions_user_page"`
	CanView   bool   `gorm:"not null;default:false"`
	CanEdit   bool   `gorm:"not null;default:false"`
	CanCreate bool   `gorm:"not null;default:false"`
	CanDelete bool   `gorm:"not null;default:false"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
