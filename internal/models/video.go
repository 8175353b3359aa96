package models

import "time"

// Video is a registered upload. The object itself lives in external
// storage; Path is the storage key the analysis stages reference.
type Video struct {
	ID          string    `gorm:"primaryKey;size:36" json:"id"`
	UserID      uint      `gorm:"index;not null" json:"user_id"`
	User        *User     `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Path        string    `gorm:"uniqueIndex;size:500;not null" json:"path"`
	Title       string    `gorm:"size:200" json:"title"`
	ContentType string    `gorm:"size:100" json:"content_type"`
	SizeBytes   int64     `json:"size_bytes"`
	CreatedAt   time.Time `gorm:"index" json:"created_at"`
}

func (Video) TableName() string { return "videos" }
