package db

import "time"

// Comment is a note left by an operator on one of the business pages.
type Comment struct {
	ID        uint   `gorm:"primaryKey"`
	Page      Page   `gorm:"size:50;not null;index"`
	UserID    string `gorm:"size:36;not null;index"`
	Content   string `gorm:"not null"`
	CreatedAt time.Time
	UpdatedAt time.Time

	Author *User `gorm:"foreignKey:UserID"`
}

// CommentHistory is an append-only audit record written whenever a
// comment's content actually changes. ModifiedBy outlives the modifying
// user; it is nulled when that account is deleted.
type CommentHistory struct {
	ID         uint    `gorm:"primaryKey"`
	CommentID  uint    `gorm:"not null;index"`
	ModifiedBy *string `gorm:"size:36"`
	OldContent string  `gorm:"not null"`
	NewContent string  `gorm:"not null"`
	ModifiedAt time.Time `gorm:"autoCreateTime"`

	Modifier *User `gorm:"foreignKey:ModifiedBy"`
}
