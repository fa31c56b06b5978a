package model

import "time"

// Event is a single schedule item shown on the event timeline.
//
// Column is a zero-based placement hint. The arrangement algorithm does not
// consult it; callers that want hint-aware ordering sort by it first.
type Event struct {
	ID          string `json:"id" yaml:"id"`
	Title       string `json:"title" yaml:"title"`
	Description string `json:"description" yaml:"description"`
	Location    string `json:"location" yaml:"location"`
	Speaker     string `json:"speaker,omitempty" yaml:"speaker,omitempty"`

	// Category only drives display styling (e.g. "workshop", "meal").
	Category string `json:"category" yaml:"category"`
	// Hidden events are kept out of the public schedule.
	Hidden bool `json:"hidden,omitempty" yaml:"hidden,omitempty"`
	Column int  `json:"column" yaml:"column"`

	Start time.Time `json:"start" yaml:"start"`
	End   time.Time `json:"end" yaml:"end"`
}

// Duration returns End - Start.
func (e Event) Duration() time.Duration {
	return e.End.Sub(e.Start)
}

// Announcement is a news item posted by organizers.
type Announcement struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Author    string    `json:"author,omitempty"`
	Pinned    bool      `json:"pinned"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Score is a single leaderboard entry for the 2048 game.
type Score struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Score     int       `json:"score"`
	MaxTile   int       `json:"max_tile,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
