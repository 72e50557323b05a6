// Command analyze prints quick, human-readable difficulty heuristics for the
// presets in the configs directory (built-in presets included). For each
// preset it generates a number of seeded boards and summarizes mine density,
// the number of zero openings, the 3BV (minimum reveals to clear) and the
// chance that a random safe first click lands on an opening.
package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"

	"github.com/wricardo/minesweeper/game/config"
	"github.com/wricardo/minesweeper/game/engine"
)

// Analysis summarizes the sampled boards of one preset.
type Analysis struct {
	ConfigID     string
	Name         string
	Rows         int
	Cols         int
	Mines        int
	Samples      int
	Density      float64
	AvgOpenings  float64
	AvgThreeBV   float64
	MinThreeBV   int
	MaxThreeBV   int
	ZeroStartPct float64
}

func analyzeConfig(cfg *engine.GameConfig, samples int, seed uint64) (*Analysis, error) {
	if samples <= 0 {
		return nil, fmt.Errorf("samples must be positive, got %d", samples)
	}

	a := &Analysis{
		ConfigID: cfg.ID,
		Name:     cfg.Name,
		Rows:     cfg.Rows,
		Cols:     cfg.Cols,
		Mines:    cfg.Mines,
		Samples:  samples,
	}

	var openings, threeBV, zeros, safe int
	for i := 0; i < samples; i++ {
		game, err := engine.NewGameFromConfig(cfg, engine.WithSeed(seed+uint64(i)))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", cfg.ID, err)
		}
		if i == 0 {
			a.Density = engine.MineDensity(game)
		}

		bv := engine.ThreeBV(game)
		if i == 0 || bv < a.MinThreeBV {
			a.MinThreeBV = bv
		}
		if bv > a.MaxThreeBV {
			a.MaxThreeBV = bv
		}
		threeBV += bv
		openings += engine.Openings(game)

		z, s := zeroCells(game)
		zeros += z
		safe += s
	}

	a.AvgOpenings = float64(openings) / float64(samples)
	a.AvgThreeBV = float64(threeBV) / float64(samples)
	if safe > 0 {
		a.ZeroStartPct = 100 * float64(zeros) / float64(safe)
	}
	return a, nil
}

// zeroCells counts safe cells with no adjacent mines, and all safe cells
func zeroCells(game *engine.GameState) (zeros, safe int) {
	for r := 0; r < game.Rows; r++ {
		for c := 0; c < game.Cols; c++ {
			at := engine.Coord{Row: r, Col: c}
			if game.Cells[r][c].Mine {
				continue
			}
			safe++
			if n, err := game.AdjacentMineCount(at); err == nil && n == 0 {
				zeros++
			}
		}
	}
	return zeros, safe
}

// analyzeAll samples every preset known to the manager concurrently. Results
// keep the manager's ordering.
func analyzeAll(ctx context.Context, manager *config.Manager, samples int, seed uint64) ([]*Analysis, error) {
	infos, err := manager.ListConfigs()
	if err != nil {
		return nil, err
	}

	results := make([]*Analysis, len(infos))
	g, ctx := errgroup.WithContext(ctx)
	for i, info := range infos {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			cfg, err := manager.LoadConfig(info.ConfigID)
			if err != nil {
				return err
			}
			a, err := analyzeConfig(cfg, samples, seed)
			if err != nil {
				return err
			}
			results[i] = a
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func printAnalysis(w io.Writer, a *Analysis) {
	fmt.Fprintf(w, "\n=== Analyzing %s ===\n", a.ConfigID)
	fmt.Fprintf(w, "Name: %s\n", a.Name)
	fmt.Fprintf(w, "Grid Size: %d x %d\n", a.Rows, a.Cols)
	fmt.Fprintf(w, "Mines: %d (density %.1f%%)\n", a.Mines, a.Density*100)
	fmt.Fprintf(w, "Samples: %d\n", a.Samples)
	fmt.Fprintf(w, "Avg Openings: %.2f\n", a.AvgOpenings)
	fmt.Fprintf(w, "Avg 3BV: %.2f (min %d, max %d)\n", a.AvgThreeBV, a.MinThreeBV, a.MaxThreeBV)
	fmt.Fprintf(w, "Zero-cell first click: %.1f%%\n", a.ZeroStartPct)

	if a.AvgOpenings == 0 {
		fmt.Fprintf(w, "⚠️  WARNING: no openings on any sampled board, every game starts with a guess\n")
	} else {
		fmt.Fprintf(w, "✅ Boards average %.1f openings\n", a.AvgOpenings)
	}
}

func newCommand(out io.Writer) *cli.Command {
	return &cli.Command{
		Name:  "analyze",
		Usage: "sample seeded boards for every preset and print difficulty metrics",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "dir",
				Aliases: []string{"d"},
				Value:   "configs",
				Usage:   "directory containing preset files",
				Sources: cli.EnvVars("CONFIG_DIR"),
			},
			&cli.IntFlag{
				Name:    "samples",
				Aliases: []string{"n"},
				Value:   200,
				Usage:   "boards generated per preset",
			},
			&cli.Uint64Flag{
				Name:  "seed",
				Value: 1,
				Usage: "seed of the first sampled board",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			manager, err := config.NewManager(cmd.String("dir"))
			if err != nil {
				return err
			}
			results, err := analyzeAll(ctx, manager, int(cmd.Int("samples")), cmd.Uint64("seed"))
			if err != nil {
				return err
			}
			for _, a := range results {
				printAnalysis(out, a)
			}
			return nil
		},
	}
}

func main() {
	if err := newCommand(os.Stdout).Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
