package poll

import "errors"

var (
	// ErrDBNil is returned when the engine has no database connection.
	ErrDBNil = errors.New("database connection is nil")
	// ErrEmptyQuestion is returned when the poll question is blank.
	ErrEmptyQuestion = errors.New("poll question can not be empty")
	// ErrQuestionTooLong is returned when the question exceeds MaxQuestionLength.
	ErrQuestionTooLong = errors.New("poll question is too long")
	// ErrNotEnoughOptions is returned when fewer than two non-blank options remain.
	ErrNotEnoughOptions = errors.New("at least two options required")
	// ErrOptionTooLong is returned when an option exceeds MaxOptionLength.
	ErrOptionTooLong = errors.New("poll option is too long")
	// ErrOptionNotFound is returned when a vote references an unknown option.
	ErrOptionNotFound = errors.New("poll option not found")
	// ErrAnnouncementNotFound is returned when creating a poll for an unknown announcement.
	ErrAnnouncementNotFound = errors.New("announcement not found")
	// ErrPollExists is returned when the announcement already carries a poll.
	ErrPollExists = errors.New("announcement already has a poll")
)

// ValidationError marks a rejected poll definition. Nothing was written.
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string {
	return e.Err.Error()
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// IsValidationError reports whether err is a rejected poll definition.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
