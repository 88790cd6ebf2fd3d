// Package notification manages per-user inbox messages.
package notification

import (
	"context"
	"errors"
	"strings"
	"time"

	pkgerrors "github.com/pkg/errors"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/db/controller/paging"
	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/db/models"
	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/rbac"
)

// batchSize bounds the rows per INSERT when fanning out.
const batchSize = 200

var (
	// ErrDBNil is returned when the database connection is nil.
	ErrDBNil = errors.New("database connection is nil")
	// ErrNotFound is returned when the notification does not exist or belongs to another user.
	ErrNotFound = errors.New("notification not found")
	// ErrTitleEmpty is returned when a message has no title.
	ErrTitleEmpty = errors.New("notification title is required")
)

// Message is the content sent to every recipient.
type Message struct {
	Kind    string
	Title   string
	Message string
	Link    string
	Data    map[string]any
}

// Audience selects recipients. An empty audience means every active user.
type Audience struct {
	Role     rbac.Role
	Barangay string
	UserIDs  []uint64
}

// Inbox returns the notifications of a user, newest first.
func Inbox(ctx context.Context, db *gorm.DB, userID uint64, unreadOnly bool, p paging.Params) (paging.Result[models.Notification], error) {
	if db == nil {
		return paging.Result[models.Notification]{}, ErrDBNil
	}

	q := db.WithContext(ctx).Model(&models.Notification{}).Where("user_id = ?", userID)
	if unreadOnly {
		q = q.Where("read_at IS NULL")
	}

	res, err := paging.Find[models.Notification](q.Order("created_at DESC, id DESC"), p)

	return res, pkgerrors.Wrap(err, "list notifications")
}

// UnreadCount returns how many notifications the user has not opened.
func UnreadCount(ctx context.Context, db *gorm.DB, userID uint64) (int64, error) {
	if db == nil {
		return 0, ErrDBNil
	}

	var n int64
	err := db.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND read_at IS NULL", userID).
		Count(&n).Error

	return n, pkgerrors.Wrap(err, "count unread notifications")
}

// MarkRead marks one notification of the user as read and returns it.
// Marking an already read notification keeps the first ReadAt.
func MarkRead(ctx context.Context, db *gorm.DB, userID, id uint64, now time.Time) (*models.Notification, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	var n models.Notification

	err := db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&n).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}

	if err != nil {
		return nil, pkgerrors.Wrap(err, "get notification")
	}

	if n.ReadAt != nil {
		return &n, nil
	}

	now = now.UTC()
	if err := db.WithContext(ctx).Model(&n).Update("read_at", now).Error; err != nil {
		return nil, pkgerrors.Wrap(err, "mark notification read")
	}

	n.ReadAt = &now

	return &n, nil
}

// MarkAllRead marks every unread notification of the user and returns how many changed.
func MarkAllRead(ctx context.Context, db *gorm.DB, userID uint64, now time.Time) (int64, error) {
	if db == nil {
		return 0, ErrDBNil
	}

	res := db.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND read_at IS NULL", userID).
		Update("read_at", now.UTC())

	return res.RowsAffected, pkgerrors.Wrap(res.Error, "mark all notifications read")
}

// Delete removes one notification of the user.
func Delete(ctx context.Context, db *gorm.DB, userID, id uint64) error {
	if db == nil {
		return ErrDBNil
	}

	res := db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).Delete(&models.Notification{})
	if res.Error != nil {
		return pkgerrors.Wrap(res.Error, "delete notification")
	}

	if res.RowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

// Recipients resolves an audience to active user ids.
func Recipients(ctx context.Context, db *gorm.DB, a Audience) ([]uint64, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	q := db.WithContext(ctx).Model(&models.User{}).Where("active = ?", true)

	if a.Role != "" {
		q = q.Where("role = ?", a.Role)
	}

	if b := strings.TrimSpace(a.Barangay); b != "" {
		q = q.Where("LOWER(barangay) = ?", strings.ToLower(b))
	}

	if len(a.UserIDs) > 0 {
		q = q.Where("id IN ?", a.UserIDs)
	}

	var ids []uint64
	err := q.Order("id").Pluck("id", &ids).Error

	return ids, pkgerrors.Wrap(err, "resolve recipients")
}

// Send delivers msg to every recipient of the audience and returns the number of rows written.
func Send(ctx context.Context, db *gorm.DB, a Audience, msg Message) (int, error) {
	if db == nil {
		return 0, ErrDBNil
	}

	msg.Title = strings.TrimSpace(msg.Title)
	if msg.Title == "" {
		return 0, ErrTitleEmpty
	}

	if msg.Kind == "" {
		msg.Kind = "general"
	}

	ids, err := Recipients(ctx, db, a)
	if err != nil {
		return 0, err
	}

	if len(ids) == 0 {
		return 0, nil
	}

	var data datatypes.JSONMap
	if len(msg.Data) > 0 {
		data = datatypes.JSONMap(msg.Data)
	}

	rows := make([]models.Notification, 0, len(ids))
	for _, id := range ids {
		rows = append(rows, models.Notification{
			UserID:  id,
			Kind:    msg.Kind,
			Title:   msg.Title,
			Message: strings.TrimSpace(msg.Message),
			Link:    msg.Link,
			Data:    data,
		})
	}

	if err := db.WithContext(ctx).CreateInBatches(&rows, batchSize).Error; err != nil {
		return 0, pkgerrors.Wrap(err, "insert notifications")
	}

	return len(rows), nil
}
