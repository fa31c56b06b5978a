package game

import (
	"errors"
	"math/rand"
	"sync"
)

// Cell addresses one board position.
type Cell struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// Placer decides where a new tile goes and what value it gets.
// empty is never empty when ChooseEmptyCell is called.
type Placer interface {
	ChooseEmptyCell(empty []Cell) (Cell, int)
}

var ErrBadPlacement = errors.New("game: placer chose an occupied or unknown cell")

// RandomPlacer picks uniformly among empty cells and spawns a 4 with
// probability FourChance, otherwise a 2. Safe for concurrent use.
type RandomPlacer struct {
	FourChance float64

	mu  sync.Mutex
	rnd *rand.Rand
}

// NewRandomPlacer returns a placer seeded with seed, so tests and replays
// are deterministic.
func NewRandomPlacer(seed int64, fourChance float64) *RandomPlacer {
	return &RandomPlacer{
		FourChance: fourChance,
		rnd:        rand.New(rand.NewSource(seed)),
	}
}

func (p *RandomPlacer) ChooseEmptyCell(empty []Cell) (Cell, int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	cell := empty[p.rnd.Intn(len(empty))]
	if p.rnd.Float64() < p.FourChance {
		return cell, 4
	}
	return cell, 2
}

// FirstEmptyPlacer always fills the first empty cell in row-major order.
type FirstEmptyPlacer struct {
	// Value defaults to 2.
	Value int
}

func (p FirstEmptyPlacer) ChooseEmptyCell(empty []Cell) (Cell, int) {
	v := p.Value
	if v <= 0 {
		v = 2
	}
	return empty[0], v
}

// EmptyCells lists zero cells in row-major order.
func EmptyCells(g Grid) []Cell {
	var out []Cell
	for r, row := range g {
		for c, v := range row {
			if v == 0 {
				out = append(out, Cell{Row: r, Col: c})
			}
		}
	}
	return out
}

// PlaceRandomTile returns a copy of g with one previously empty cell set by
// p. A full grid is returned unchanged (as a copy).
func PlaceRandomTile(g Grid, p Placer) (Grid, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}
	out := g.Clone()
	empty := EmptyCells(out)
	if len(empty) == 0 {
		return out, nil
	}

	cell, v := p.ChooseEmptyCell(empty)
	if v <= 0 || cell.Row < 0 || cell.Row >= len(out) ||
		cell.Col < 0 || cell.Col >= len(out[cell.Row]) || out[cell.Row][cell.Col] != 0 {
		return nil, ErrBadPlacement
	}
	out[cell.Row][cell.Col] = v
	return out, nil
}

// IsGameOver is true when no cell is empty and no two horizontally or
// vertically adjacent cells are equal. It does not simulate moves.
func IsGameOver(g Grid) (bool, error) {
	if err := g.Validate(); err != nil {
		return false, err
	}
	for r, row := range g {
		for c, v := range row {
			if v == 0 {
				return false, nil
			}
			if v >= MaxTileValue {
				continue
			}
			if c+1 < len(row) && row[c+1] == v {
				return false, nil
			}
			if r+1 < len(g) && g[r+1][c] == v {
				return false, nil
			}
		}
	}
	return true, nil
}
