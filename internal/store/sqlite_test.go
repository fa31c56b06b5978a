package store

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestAnnouncementCRUD(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	a, err := s.CreateAnnouncement(ctx, AnnouncementParams{Title: "  Welcome  ", Body: "Doors open at 9", Author: "Org"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if a.ID == "" || a.Title != "Welcome" {
		t.Errorf("unexpected announcement: %+v", a)
	}

	got, err := s.GetAnnouncement(ctx, a.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Body != "Doors open at 9" || got.Author != "Org" {
		t.Errorf("unexpected stored announcement: %+v", got)
	}

	upd, err := s.UpdateAnnouncement(ctx, a.ID, AnnouncementParams{Title: "Welcome!", Body: "Doors open at 8", Pinned: true})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if !upd.Pinned || upd.Body != "Doors open at 8" || upd.UpdatedAt.Before(upd.CreatedAt) {
		t.Errorf("unexpected update result: %+v", upd)
	}

	if err := s.DeleteAnnouncement(ctx, a.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.GetAnnouncement(ctx, a.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
	if err := s.DeleteAnnouncement(ctx, a.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound on second delete, got %v", err)
	}
	if _, err := s.UpdateAnnouncement(ctx, "missing", AnnouncementParams{Title: "x", Body: "y"}); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound on update, got %v", err)
	}
}

func TestAnnouncementValidation(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	cases := []AnnouncementParams{
		{Title: "", Body: "body"},
		{Title: "title", Body: "   "},
		{Title: strings.Repeat("x", maxTitleLen+1), Body: "body"},
	}
	for _, p := range cases {
		if _, err := s.CreateAnnouncement(ctx, p); !errors.Is(err, ErrInvalid) {
			t.Errorf("CreateAnnouncement(%q) = %v, want ErrInvalid", p.Title, err)
		}
	}
}

func TestListAnnouncementsOrder(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	first, _ := s.CreateAnnouncement(ctx, AnnouncementParams{Title: "first", Body: "b"})
	pinned, _ := s.CreateAnnouncement(ctx, AnnouncementParams{Title: "pinned", Body: "b", Pinned: true})
	latest, _ := s.CreateAnnouncement(ctx, AnnouncementParams{Title: "latest", Body: "b"})

	list, err := s.ListAnnouncements(ctx, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("expected 3, got %d", len(list))
	}
	want := []string{pinned.ID, latest.ID, first.ID}
	for i, id := range want {
		if list[i].ID != id {
			t.Errorf("position %d: got %s (%s), want %s", i, list[i].ID, list[i].Title, id)
		}
	}

	limited, _ := s.ListAnnouncements(ctx, 1)
	if len(limited) != 1 {
		t.Errorf("expected limit to apply, got %d", len(limited))
	}
}

func TestLeaderboard(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	for _, p := range []ScoreParams{
		{Name: "ada", Score: 1200, MaxTile: 128},
		{Name: "linus", Score: 5000, MaxTile: 512},
		{Name: "grace", Score: 1200, MaxTile: 128},
	} {
		if _, err := s.SubmitScore(ctx, p); err != nil {
			t.Fatalf("submit %s: %v", p.Name, err)
		}
	}

	top, err := s.TopScores(ctx, 2)
	if err != nil {
		t.Fatalf("top: %v", err)
	}
	if len(top) != 2 {
		t.Fatalf("expected 2 scores, got %d", len(top))
	}
	if top[0].Name != "linus" || top[1].Name != "ada" {
		t.Errorf("unexpected order: %s, %s", top[0].Name, top[1].Name)
	}
}

func TestSubmitScoreValidation(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	for _, p := range []ScoreParams{
		{Name: "  ", Score: 10},
		{Name: strings.Repeat("n", maxNameLen+1), Score: 10},
		{Name: "neg", Score: -1},
	} {
		if _, err := s.SubmitScore(ctx, p); !errors.Is(err, ErrInvalid) {
			t.Errorf("SubmitScore(%+v) = %v, want ErrInvalid", p, err)
		}
	}
}
