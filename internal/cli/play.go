package cli

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"hackweb/internal/game"
)

func init() {
	cmd := &cobra.Command{
		Use:   "play",
		Short: "Play 2048 in the terminal",
		Long:  "Read moves from stdin, one per line: w/a/s/d, h/j/k/l or left/right/up/down. q quits.",
		Args:  cobra.NoArgs,
		RunE:  runPlay,
	}
	cmd.Flags().Int64("seed", 0, "Random seed (default: current time)")
	cmd.Flags().Int("size", 4, "Board size")
	cmd.Flags().Float64("four-chance", 0.1, "Probability that a new tile is a 4")

	RootCmd.AddCommand(cmd)
}

var keyDirections = map[string]game.Direction{
	"w": game.Up, "k": game.Up,
	"a": game.Left, "h": game.Left,
	"s": game.Down, "j": game.Down,
	"d": game.Right, "l": game.Right,
}

func runPlay(cmd *cobra.Command, _ []string) error {
	seed, _ := cmd.Flags().GetInt64("seed")
	size, _ := cmd.Flags().GetInt("size")
	fourChance, _ := cmd.Flags().GetFloat64("four-chance")
	if !cmd.Flags().Changed("seed") {
		seed = time.Now().UnixNano()
	}

	placer := game.NewRandomPlacer(seed, fourChance)
	grid, err := game.New(size, size, placer)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	score := 0
	printBoard(out, grid, score)

	in := bufio.NewScanner(cmd.InOrStdin())
	for in.Scan() {
		key := strings.ToLower(strings.TrimSpace(in.Text()))
		if key == "" {
			continue
		}
		if key == "q" || key == "quit" {
			break
		}
		dir, ok := keyDirections[key]
		if !ok {
			if dir, err = game.ParseDirection(key); err != nil {
				fmt.Fprintf(out, "unknown move %q\n", key)
				continue
			}
		}

		res, err := game.Step(grid, dir, placer)
		if err != nil {
			return err
		}
		grid = res.Grid
		score += res.ScoreDelta
		if !res.Moved {
			fmt.Fprintln(out, "nothing moved")
			continue
		}
		printBoard(out, grid, score)
		if res.GameOver {
			fmt.Fprintf(out, "game over: score %d, best tile %d\n", score, grid.MaxTile())
			return nil
		}
	}
	if err := in.Err(); err != nil {
		return err
	}
	fmt.Fprintf(out, "final score %d\n", score)
	return nil
}

func printBoard(w io.Writer, g game.Grid, score int) {
	width := len(strconv.Itoa(g.MaxTile()))
	if width < 4 {
		width = 4
	}
	fmt.Fprintf(w, "score %d\n", score)
	for _, row := range g {
		cells := make([]string, len(row))
		for i, v := range row {
			s := "."
			if v != 0 {
				s = strconv.Itoa(v)
			}
			cells[i] = fmt.Sprintf("%*s", width, s)
		}
		fmt.Fprintln(w, strings.Join(cells, " "))
	}
}
