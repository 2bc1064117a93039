package database

import (
	"errors"
	"time"
)

var ErrNotFound = errors.New("not found")

// Filter narrows a history query. Zero values mean "no constraint".
type Filter struct {
	UnreadOnly bool
	Source     string // matches any source attributed to the item
	From       time.Time
	To         time.Time
	Text       string // case-insensitive match on title and summary
	Limit      int
	Offset     int
}

type Stats struct {
	Total    int
	Unread   int
	Notified int
}

// SourceStatus is the fetch health of one configured source.
type SourceStatus struct {
	Name                string
	URL                 string
	Kind                string
	LastFetchedAt       *time.Time
	LastSuccessAt       *time.Time
	ConsecutiveFailures int
	LastError           string
	ItemCount           int
	CreatedAt           time.Time
	UpdatedAt           time.Time
}
