package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"

	"hackweb/internal/model"
)

const (
	maxTitleLen = 200
	maxNameLen  = 32

	// Fixed-width so that TEXT ordering matches time ordering.
	timeLayout = "2006-01-02T15:04:05.000000000Z07:00"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB

	entropyMu sync.Mutex
	entropy   *ulid.MonotonicEntropy
}

// NewSQLiteStore opens or creates a SQLite database at the given path.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// SQLite prefers a single writer.
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{
		db:      db,
		entropy: ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0),
	}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) newID() string {
	s.entropyMu.Lock()
	defer s.entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), s.entropy).String()
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS announcements (
		id         TEXT PRIMARY KEY,
		title      TEXT NOT NULL,
		body       TEXT NOT NULL,
		author     TEXT,
		pinned     INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_announcements_order ON announcements(pinned DESC, created_at DESC);

	CREATE TABLE IF NOT EXISTS scores (
		id         TEXT PRIMARY KEY,
		name       TEXT NOT NULL,
		score      INTEGER NOT NULL,
		max_tile   INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_scores_score ON scores(score DESC);
	`
	_, err := s.db.Exec(schema)
	return err
}

func validateAnnouncement(p *AnnouncementParams) error {
	p.Title = strings.TrimSpace(p.Title)
	p.Author = strings.TrimSpace(p.Author)
	if p.Title == "" {
		return fmt.Errorf("%w: title is required", ErrInvalid)
	}
	if utf8.RuneCountInString(p.Title) > maxTitleLen {
		return fmt.Errorf("%w: title longer than %d characters", ErrInvalid, maxTitleLen)
	}
	if strings.TrimSpace(p.Body) == "" {
		return fmt.Errorf("%w: body is required", ErrInvalid)
	}
	return nil
}

func (s *SQLiteStore) CreateAnnouncement(ctx context.Context, p AnnouncementParams) (*model.Announcement, error) {
	if err := validateAnnouncement(&p); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	a := &model.Announcement{
		ID:        s.newID(),
		Title:     p.Title,
		Body:      p.Body,
		Author:    p.Author,
		Pinned:    p.Pinned,
		CreatedAt: now,
		UpdatedAt: now,
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO announcements (id, title, body, author, pinned, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.Title, a.Body, a.Author, boolInt(a.Pinned),
		now.Format(timeLayout), now.Format(timeLayout))
	if err != nil {
		return nil, fmt.Errorf("insert announcement: %w", err)
	}
	return a, nil
}

func (s *SQLiteStore) GetAnnouncement(ctx context.Context, id string) (*model.Announcement, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, title, body, author, pinned, created_at, updated_at
		 FROM announcements WHERE id = ?`, id)
	a, err := scanAnnouncement(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (s *SQLiteStore) ListAnnouncements(ctx context.Context, limit int) ([]model.Announcement, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, body, author, pinned, created_at, updated_at
		 FROM announcements
		 ORDER BY pinned DESC, created_at DESC, id DESC
		 LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.Announcement, 0)
	for rows.Next() {
		a, err := scanAnnouncement(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) UpdateAnnouncement(ctx context.Context, id string, p AnnouncementParams) (*model.Announcement, error) {
	if err := validateAnnouncement(&p); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`UPDATE announcements SET title = ?, body = ?, author = ?, pinned = ?, updated_at = ?
		 WHERE id = ?`,
		p.Title, p.Body, p.Author, boolInt(p.Pinned), now.Format(timeLayout), id)
	if err != nil {
		return nil, fmt.Errorf("update announcement: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrNotFound
	}
	return s.GetAnnouncement(ctx, id)
}

func (s *SQLiteStore) DeleteAnnouncement(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM announcements WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete announcement: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) SubmitScore(ctx context.Context, p ScoreParams) (*model.Score, error) {
	name := strings.TrimSpace(p.Name)
	if name == "" || utf8.RuneCountInString(name) > maxNameLen {
		return nil, fmt.Errorf("%w: name must be 1-%d characters", ErrInvalid, maxNameLen)
	}
	if p.Score < 0 || p.MaxTile < 0 {
		return nil, fmt.Errorf("%w: score must be non-negative", ErrInvalid)
	}

	now := time.Now().UTC()
	sc := &model.Score{
		ID:        s.newID(),
		Name:      name,
		Score:     p.Score,
		MaxTile:   p.MaxTile,
		CreatedAt: now,
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO scores (id, name, score, max_tile, created_at) VALUES (?, ?, ?, ?, ?)`,
		sc.ID, sc.Name, sc.Score, sc.MaxTile, now.Format(timeLayout))
	if err != nil {
		return nil, fmt.Errorf("insert score: %w", err)
	}
	return sc, nil
}

func (s *SQLiteStore) TopScores(ctx context.Context, limit int) ([]model.Score, error) {
	if limit <= 0 {
		limit = 10
	}
	// Earlier submissions win ties.
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, score, max_tile, created_at FROM scores
		 ORDER BY score DESC, created_at ASC, id ASC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.Score, 0)
	for rows.Next() {
		var sc model.Score
		var created string
		if err := rows.Scan(&sc.ID, &sc.Name, &sc.Score, &sc.MaxTile, &created); err != nil {
			return nil, err
		}
		sc.CreatedAt, _ = time.Parse(timeLayout, created)
		out = append(out, sc)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAnnouncement(sc scanner) (*model.Announcement, error) {
	var a model.Announcement
	var author sql.NullString
	var pinned int
	var created, updated string
	if err := sc.Scan(&a.ID, &a.Title, &a.Body, &author, &pinned, &created, &updated); err != nil {
		return nil, err
	}
	a.Author = author.String
	a.Pinned = pinned != 0
	a.CreatedAt, _ = time.Parse(timeLayout, created)
	a.UpdatedAt, _ = time.Parse(timeLayout, updated)
	return &a, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
