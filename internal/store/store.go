// Package store persists announcements and leaderboard scores.
package store

import (
	"context"
	"errors"

	"hackweb/internal/model"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("store: not found")

// ErrInvalid wraps validation failures on input params.
var ErrInvalid = errors.New("store: invalid input")

// AnnouncementParams holds the writable fields of an announcement.
type AnnouncementParams struct {
	Title  string
	Body   string
	Author string
	Pinned bool
}

// ScoreParams holds a leaderboard submission.
type ScoreParams struct {
	Name    string
	Score   int
	MaxTile int
}

// Store defines the persistence interface used by the web layer.
type Store interface {
	// CreateAnnouncement stores a new announcement and returns it.
	CreateAnnouncement(ctx context.Context, p AnnouncementParams) (*model.Announcement, error)
	// GetAnnouncement returns ErrNotFound for unknown ids.
	GetAnnouncement(ctx context.Context, id string) (*model.Announcement, error)
	// ListAnnouncements returns pinned items first, then newest first.
	ListAnnouncements(ctx context.Context, limit int) ([]model.Announcement, error)
	UpdateAnnouncement(ctx context.Context, id string, p AnnouncementParams) (*model.Announcement, error)
	DeleteAnnouncement(ctx context.Context, id string) error

	// SubmitScore records a finished game.
	SubmitScore(ctx context.Context, p ScoreParams) (*model.Score, error)
	// TopScores returns the best scores, highest first.
	TopScores(ctx context.Context, limit int) ([]model.Score, error)

	Close() error
}
