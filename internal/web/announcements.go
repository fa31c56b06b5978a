package web

import (
	"net/http"

	"hackweb/internal/model"
	"hackweb/internal/store"
)

type announcementRequest struct {
	Title  string `json:"title"`
	Body   string `json:"body"`
	Author string `json:"author"`
	Pinned bool   `json:"pinned"`
}

func (req announcementRequest) params() store.AnnouncementParams {
	return store.AnnouncementParams{
		Title:  req.Title,
		Body:   req.Body,
		Author: req.Author,
		Pinned: req.Pinned,
	}
}

func (s *Server) handleListAnnouncements(w http.ResponseWriter, r *http.Request) {
	limit := parseIntDefault(r.URL.Query().Get("limit"), 50)
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	items, err := s.store.ListAnnouncements(r.Context(), limit)
	if err != nil {
		storeError(w, err, "list announcements")
		return
	}
	if items == nil {
		items = []model.Announcement{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"announcements": items})
}

func (s *Server) handleGetAnnouncement(w http.ResponseWriter, r *http.Request) {
	a, err := s.store.GetAnnouncement(r.Context(), r.PathValue("id"))
	if err != nil {
		storeError(w, err, "get announcement")
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (s *Server) handleCreateAnnouncement(w http.ResponseWriter, r *http.Request) {
	var req announcementRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	a, err := s.store.CreateAnnouncement(r.Context(), req.params())
	if err != nil {
		storeError(w, err, "create announcement")
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

func (s *Server) handleUpdateAnnouncement(w http.ResponseWriter, r *http.Request) {
	var req announcementRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	a, err := s.store.UpdateAnnouncement(r.Context(), r.PathValue("id"), req.params())
	if err != nil {
		storeError(w, err, "update announcement")
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (s *Server) handleDeleteAnnouncement(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteAnnouncement(r.Context(), r.PathValue("id")); err != nil {
		storeError(w, err, "delete announcement")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
