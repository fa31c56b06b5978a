package web

import (
	"errors"
	"net/http"

	"hackweb/internal/game"
	"hackweb/internal/model"
	"hackweb/internal/store"
)

// Boards larger than this are refused to bound per-request work.
const maxBoardSize = 8

type newGameRequest struct {
	Size int    `json:"size"`
	Seed *int64 `json:"seed,omitempty"`
}

type moveRequest struct {
	Grid      game.Grid `json:"grid"`
	Direction string    `json:"direction"`
	Seed      *int64    `json:"seed,omitempty"`
}

type moveResponse struct {
	game.StepResult
	MaxTile int `json:"max_tile"`
}

type scoreRequest struct {
	Name    string `json:"name"`
	Score   int    `json:"score"`
	MaxTile int    `json:"max_tile"`
}

func (s *Server) placerFor(seed *int64) game.Placer {
	if seed == nil {
		return s.placer
	}
	return game.NewRandomPlacer(*seed, s.config().Game.FourChance)
}

func (s *Server) handleNewGame(w http.ResponseWriter, r *http.Request) {
	var req newGameRequest
	if r.ContentLength != 0 && !decodeJSON(w, r, &req) {
		return
	}
	size := req.Size
	if size == 0 {
		size = s.config().Game.Size
	}
	if size < 2 || size > maxBoardSize {
		writeError(w, http.StatusBadRequest, "size must be between 2 and 8")
		return
	}

	g, err := game.New(size, size, s.placerFor(req.Seed))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, moveResponse{
		StepResult: game.StepResult{Grid: g},
		MaxTile:    g.MaxTile(),
	})
}

func (s *Server) handleMove(w http.ResponseWriter, r *http.Request) {
	if !s.moveRL.allow(clientIP(r)) {
		writeError(w, http.StatusTooManyRequests, "too many moves")
		return
	}

	var req moveRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	dir, err := game.ParseDirection(req.Direction)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(req.Grid) > maxBoardSize || (len(req.Grid) > 0 && len(req.Grid[0]) > maxBoardSize) {
		writeError(w, http.StatusBadRequest, "board too large")
		return
	}

	res, err := game.Step(req.Grid, dir, s.placerFor(req.Seed))
	if err != nil {
		var se *game.ShapeError
		if errors.As(err, &se) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "move failed")
		return
	}
	writeJSON(w, http.StatusOK, moveResponse{StepResult: res, MaxTile: res.Grid.MaxTile()})
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	limit := parseIntDefault(r.URL.Query().Get("limit"), s.config().Leaderboard.Limit)
	if limit <= 0 || limit > 100 {
		limit = s.config().Leaderboard.Limit
	}
	scores, err := s.store.TopScores(r.Context(), limit)
	if err != nil {
		storeError(w, err, "top scores")
		return
	}
	if scores == nil {
		scores = []model.Score{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"scores": scores})
}

func (s *Server) handleSubmitScore(w http.ResponseWriter, r *http.Request) {
	if !s.submitRL.allow(clientIP(r)) {
		writeError(w, http.StatusTooManyRequests, "too many submissions, try again later")
		return
	}
	var req scoreRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	sc, err := s.store.SubmitScore(r.Context(), store.ScoreParams{
		Name:    req.Name,
		Score:   req.Score,
		MaxTile: req.MaxTile,
	})
	if err != nil {
		storeError(w, err, "submit score")
		return
	}
	writeJSON(w, http.StatusCreated, sc)
}
