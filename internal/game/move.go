package game

// Move applies a move in dir. It returns the new grid and the score gained,
// which is the sum of all tiles produced by merges.
func Move(g Grid, dir Direction) (Grid, int, error) {
	switch dir {
	case Left:
		return MoveLeft(g)
	case Right:
		return MoveRight(g)
	case Up:
		return MoveUp(g)
	case Down:
		return MoveDown(g)
	}
	return nil, 0, ErrUnknownDirection
}

// MoveLeft slides every row towards column 0. Equal neighbours merge once
// per move: [2,2,2,0] becomes [4,2,0,0].
func MoveLeft(g Grid) (Grid, int, error) {
	if err := g.Validate(); err != nil {
		return nil, 0, err
	}
	out, score := slideRows(g)
	return out, score, nil
}

// MoveRight mirrors MoveLeft: each row is reversed, slid left and reversed
// back.
func MoveRight(g Grid) (Grid, int, error) {
	if err := g.Validate(); err != nil {
		return nil, 0, err
	}
	out, score := slideRows(mirror(g))
	return mirror(out), score, nil
}

// MoveUp is MoveLeft on the transposed grid.
func MoveUp(g Grid) (Grid, int, error) {
	if err := g.Validate(); err != nil {
		return nil, 0, err
	}
	out, score := slideRows(transpose(g))
	return transpose(out), score, nil
}

// MoveDown is MoveRight on the transposed grid.
func MoveDown(g Grid) (Grid, int, error) {
	if err := g.Validate(); err != nil {
		return nil, 0, err
	}
	out, score := slideRows(mirror(transpose(g)))
	return transpose(mirror(out)), score, nil
}

func slideRows(g Grid) (Grid, int) {
	out := make(Grid, len(g))
	total := 0
	for i, row := range g {
		var s int
		out[i], s = slideRow(row)
		total += s
	}
	return out, total
}

// slideRow compacts non-zero tiles to the left, merges equal neighbours
// once, compacts again and pads with zeros to the original length.
func slideRow(row []int) ([]int, int) {
	vals := compact(row)
	score := 0
	for i := 0; i+1 < len(vals); i++ {
		// Tiles at the ceiling no longer merge, so results stay valid.
		if vals[i] != vals[i+1] || vals[i] >= MaxTileValue {
			continue
		}
		vals[i] *= 2
		vals[i+1] = 0
		score += vals[i]
		i++
	}
	vals = compact(vals)

	out := make([]int, len(row))
	copy(out, vals)
	return out, score
}

func compact(row []int) []int {
	out := make([]int, 0, len(row))
	for _, v := range row {
		if v != 0 {
			out = append(out, v)
		}
	}
	return out
}

func mirror(g Grid) Grid {
	out := make(Grid, len(g))
	for i, row := range g {
		r := make([]int, len(row))
		for j, v := range row {
			r[len(row)-1-j] = v
		}
		out[i] = r
	}
	return out
}

func transpose(g Grid) Grid {
	rows, cols := len(g), len(g[0])
	out := make(Grid, cols)
	for c := range out {
		out[c] = make([]int, rows)
		for r := 0; r < rows; r++ {
			out[c][r] = g[r][c]
		}
	}
	return out
}
