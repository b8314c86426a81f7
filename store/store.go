// Package store is the persistence layer for users, posts and replies.
// Every write is a single statement; callers authorize before calling.
package store

import (
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	// ErrNotFound is returned when a lookup matches no row.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicateKey is returned when a unique column already holds the value.
	ErrDuplicateKey = errors.New("duplicate key")
)

// SortOption selects the post listing order.
type SortOption string

const (
	SortByDate  SortOption = "date"
	SortByLikes SortOption = "likes"
)

// ParseSortOption maps a query value onto a SortOption; unknown values sort by date.
func ParseSortOption(s string) SortOption {
	if SortOption(s) == SortByLikes {
		return SortByLikes
	}
	return SortByDate
}

// now is the write timestamp, truncated so every driver round-trips it unchanged.
func now() time.Time {
	return time.Now().UTC().Truncate(time.Second)
}

// eq builds a quoted equality condition; the schema keeps some camelCase column
// names that an unquoted raw condition would fold on postgres.
func eq(column string, value interface{}) clause.Eq {
	return clause.Eq{Column: clause.Column{Name: column}, Value: value}
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case isDuplicateKey(err):
		return ErrDuplicateKey
	default:
		return err
	}
}

// isDuplicateKey covers drivers that do not go through gorm's error translator.
func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "duplicate entry") ||
		strings.Contains(msg, "duplicate key")
}
