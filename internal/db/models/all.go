package models

// All returns every model in dependency order, for AutoMigrate.
func All() []any {
	return []any{
		&User{},
		&Setting{},
		&Announcement{},
		&Poll{},
		&PollOption{},
		&PollVote{},
		&Event{},
		&EventRegistration{},
		&Barangay{},
		&Official{},
		&Article{},
		&LegislativeDocument{},
		&Notification{},
	}
}
