package models

import "time"

// Article is a news article of the federation.
type Article struct {
	ID          uint64     `gorm:"primaryKey"`
	Slug        string     `gorm:"size:200;not null;uniqueIndex"`
	Title       string     `gorm:"size:200;not null"`
	Body        string     `gorm:"type:text"`
	Published   bool       `gorm:"index"`
	PublishedAt *time.Time `gorm:"index"`
	AuthorID    *uint64    `gorm:"index"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// TableName specifies the database table name for the Article model.
func (Article) TableName() string {
	return "articles"
}
