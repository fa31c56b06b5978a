// Package game implements the tile mechanics of the 2048 mini-game.
// Every operation returns a fresh grid; inputs are never modified.
package game

import (
	"errors"
	"fmt"
	"strings"
)

// Grid is a rectangular board. 0 is an empty cell; any other value is a tile.
type Grid [][]int

// Direction of a move.
type Direction string

const (
	Left  Direction = "left"
	Right Direction = "right"
	Up    Direction = "up"
	Down  Direction = "down"
)

var ErrUnknownDirection = errors.New("game: unknown direction")

// ParseDirection accepts "left", "right", "up", "down" and the arrow-key
// names sent by the browser ("ArrowLeft", ...).
func ParseDirection(s string) (Direction, error) {
	d := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), "Arrow"))
	switch Direction(d) {
	case Left, Right, Up, Down:
		return Direction(d), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownDirection, s)
}

// MaxTileValue is the largest tile a grid may hold. Tiles of this value do
// not merge.
const MaxTileValue = 1 << 30

// ShapeError reports a grid that is empty, ragged or holds negative or
// oversized cells.
type ShapeError struct {
	Row    int
	Col    int
	Reason string
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("game: bad grid shape at row %d col %d: %s", e.Row, e.Col, e.Reason)
}

// Validate checks that g has at least one cell, that all rows have the same
// length and that every cell is within [0, MaxTileValue].
func (g Grid) Validate() error {
	if len(g) == 0 || len(g[0]) == 0 {
		return &ShapeError{Reason: "grid has no cells"}
	}
	width := len(g[0])
	for r, row := range g {
		if len(row) != width {
			return &ShapeError{Row: r, Col: len(row), Reason: fmt.Sprintf("row length %d, want %d", len(row), width)}
		}
		for c, v := range row {
			if v < 0 {
				return &ShapeError{Row: r, Col: c, Reason: fmt.Sprintf("negative tile %d", v)}
			}
			if v > MaxTileValue {
				return &ShapeError{Row: r, Col: c, Reason: fmt.Sprintf("tile %d above %d", v, MaxTileValue)}
			}
		}
	}
	return nil
}

// Clone returns a deep copy.
func (g Grid) Clone() Grid {
	out := make(Grid, len(g))
	for i, row := range g {
		out[i] = append([]int(nil), row...)
	}
	return out
}

// Equal reports whether a and b have the same shape and contents.
func Equal(a, b Grid) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if len(a[i]) != len(b[i]) {
			return false
		}
		for j := range a[i] {
			if a[i][j] != b[i][j] {
				return false
			}
		}
	}
	return true
}

// MaxTile returns the largest tile value on the board.
func (g Grid) MaxTile() int {
	best := 0
	for _, row := range g {
		for _, v := range row {
			best = max(best, v)
		}
	}
	return best
}

// NewGrid returns an empty rows x cols board.
func NewGrid(rows, cols int) (Grid, error) {
	if rows <= 0 || cols <= 0 {
		return nil, &ShapeError{Row: rows, Col: cols, Reason: "dimensions must be positive"}
	}
	g := make(Grid, rows)
	for i := range g {
		g[i] = make([]int, cols)
	}
	return g, nil
}
