package game

// StartTiles is how many tiles a new board begins with.
const StartTiles = 2

// New returns a rows x cols board with StartTiles tiles placed by p.
func New(rows, cols int, p Placer) (Grid, error) {
	g, err := NewGrid(rows, cols)
	if err != nil {
		return nil, err
	}
	for i := 0; i < StartTiles; i++ {
		if g, err = PlaceRandomTile(g, p); err != nil {
			return nil, err
		}
	}
	return g, nil
}

// StepResult is the outcome of one player turn.
type StepResult struct {
	Grid       Grid `json:"grid"`
	ScoreDelta int  `json:"score_delta"`
	Moved      bool `json:"moved"`
	GameOver   bool `json:"game_over"`
}

// Step plays one turn: move in dir, spawn a tile if anything changed, then
// check for a terminal board.
func Step(g Grid, dir Direction, p Placer) (StepResult, error) {
	moved, score, err := Move(g, dir)
	if err != nil {
		return StepResult{}, err
	}

	res := StepResult{Grid: moved, ScoreDelta: score}
	if !Equal(g, moved) {
		res.Moved = true
		if res.Grid, err = PlaceRandomTile(moved, p); err != nil {
			return StepResult{}, err
		}
	}

	res.GameOver, err = IsGameOver(res.Grid)
	if err != nil {
		return StepResult{}, err
	}
	return res, nil
}
