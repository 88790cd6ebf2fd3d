package models

import "time"

// Poll is a single question attached one-to-one to an Announcement.
// It is never updated after creation.
type Poll struct {
	// ID is the unique identifier for the poll.
	ID uint64 `gorm:"primaryKey"`
	// AnnouncementID references the owning announcement.
	AnnouncementID uint64 `gorm:"uniqueIndex;not null"`
	// Question is the non-empty poll question.
	Question string `gorm:"size:500;not null"`
	// Options are the selectable answers, in creation order.
	Options []PollOption `gorm:"foreignKey:PollID;constraint:OnDelete:CASCADE"`
	// CreatedAt is the timestamp when the poll was created (managed by GORM).
	CreatedAt time.Time
}

// TableName specifies the database table name for the Poll model.
func (Poll) TableName() string {
	return "poll_announcements"
}

// PollOption is one selectable answer of a Poll.
type PollOption struct {
	// ID is the unique identifier for the option.
	ID uint64 `gorm:"primaryKey"`
	// PollID references the owning poll.
	PollID uint64 `gorm:"index;not null"`
	// OptionText is the non-empty answer text.
	OptionText string `gorm:"size:300;not null"`
	// Position is the zero based creation order within the poll.
	Position int `gorm:"not null;default:0"`
}

// TableName specifies the database table name for the PollOption model.
func (PollOption) TableName() string {
	return "poll_options"
}

// PollVote is one user's choice in one poll.
// PollID duplicates the option's poll so that storage can enforce a single
// vote per (poll, user) with a unique index.
type PollVote struct {
	// ID is the unique identifier for the vote.
	ID uint64 `gorm:"primaryKey"`
	// PollID references the poll the voted option belongs to.
	PollID uint64 `gorm:"not null;uniqueIndex:idx_poll_votes_poll_user"`
	// PollOptionID references the chosen option.
	PollOptionID uint64 `gorm:"not null;index"`
	// UserID references the voter. The user row may no longer exist.
	UserID uint64 `gorm:"not null;uniqueIndex:idx_poll_votes_poll_user;index"`
	// CreatedAt is the time of the latest vote or revote.
	CreatedAt time.Time
}

// TableName specifies the database table name for the PollVote model.
func (PollVote) TableName() string {
	return "poll_votes"
}
