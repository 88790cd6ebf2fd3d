// Package article provides the persistence operations of news articles.
package article

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	pkgerrors "github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/db/controller/paging"
	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/db/models"
)

var (
	// ErrDBNil is returned when the database connection is nil.
	ErrDBNil = errors.New("database connection is nil")
	// ErrNotFound is returned when an article does not exist.
	ErrNotFound = errors.New("article not found")
	// ErrTitleEmpty is returned when an article has no title.
	ErrTitleEmpty = errors.New("article title can not be empty")
)

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

// Input holds the editable fields of an article.
type Input struct {
	Title     string
	Body      string
	Published bool
}

// Slugify turns a title into a lowercase, dash separated url segment.
func Slugify(title string) string {
	s := strings.Trim(nonSlug.ReplaceAllString(strings.ToLower(title), "-"), "-")
	if s == "" {
		return "article"
	}

	if len(s) > 180 {
		s = strings.TrimRight(s[:180], "-")
	}

	return s
}

// List returns articles newest first. Unless includeDrafts is set only
// published articles are returned.
func List(ctx context.Context, db *gorm.DB, includeDrafts bool, p paging.Params) (paging.Result[models.Article], error) {
	if db == nil {
		return paging.Result[models.Article]{}, ErrDBNil
	}

	q := db.WithContext(ctx).Model(&models.Article{})
	if !includeDrafts {
		q = q.Where("published = ?", true)
	}

	res, err := paging.Find[models.Article](q.Order("COALESCE(published_at, created_at) DESC, id DESC"), p)

	return res, pkgerrors.Wrap(err, "list articles")
}

// GetBySlug returns the article with slug.
func GetBySlug(ctx context.Context, db *gorm.DB, slug string) (*models.Article, error) {
	return first(ctx, db, "slug = ?", slug)
}

// Get returns the article with id.
func Get(ctx context.Context, db *gorm.DB, id uint64) (*models.Article, error) {
	return first(ctx, db, "id = ?", id)
}

func first(ctx context.Context, db *gorm.DB, query string, arg any) (*models.Article, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	var a models.Article

	err := db.WithContext(ctx).Where(query, arg).First(&a).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}

	if err != nil {
		return nil, pkgerrors.Wrap(err, "get article")
	}

	return &a, nil
}

// Create inserts an article with a slug unique among all articles.
func Create(ctx context.Context, db *gorm.DB, authorID uint64, in Input, now time.Time) (*models.Article, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, ErrTitleEmpty
	}

	a := &models.Article{Title: title, Body: in.Body, Published: in.Published}
	if authorID != 0 {
		a.AuthorID = &authorID
	}

	if in.Published {
		a.PublishedAt = &now
	}

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		slug, err := uniqueSlug(tx, Slugify(title))
		if err != nil {
			return err
		}

		a.Slug = slug

		return pkgerrors.Wrap(tx.Create(a).Error, "insert article")
	})
	if err != nil {
		return nil, err
	}

	return a, nil
}

// Update replaces title, body and the published flag. The slug is kept so
// shared links stay valid. PublishedAt is set on first publication.
func Update(ctx context.Context, db *gorm.DB, id uint64, in Input, now time.Time) (*models.Article, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, ErrTitleEmpty
	}

	a, err := Get(ctx, db, id)
	if err != nil {
		return nil, err
	}

	a.Title = title
	a.Body = in.Body
	a.Published = in.Published

	if in.Published && a.PublishedAt == nil {
		a.PublishedAt = &now
	}

	if err := db.WithContext(ctx).Save(a).Error; err != nil {
		return nil, pkgerrors.Wrap(err, "update article")
	}

	return a, nil
}

// Delete removes an article.
func Delete(ctx context.Context, db *gorm.DB, id uint64) error {
	if db == nil {
		return ErrDBNil
	}

	res := db.WithContext(ctx).Delete(&models.Article{}, id)
	if res.Error != nil {
		return pkgerrors.Wrap(res.Error, "delete article")
	}

	if res.RowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

func uniqueSlug(tx *gorm.DB, base string) (string, error) {
	var taken []string
	if err := tx.Model(&models.Article{}).Where("slug = ? OR slug LIKE ?", base, base+"-%").Pluck("slug", &taken).Error; err != nil {
		return "", pkgerrors.Wrap(err, "lookup slugs")
	}

	used := make(map[string]struct{}, len(taken))
	for _, s := range taken {
		used[s] = struct{}{}
	}

	slug := base
	for i := 2; ; i++ {
		if _, ok := used[slug]; !ok {
			return slug, nil
		}

		slug = fmt.Sprintf("%s-%d", base, i)
	}
}
