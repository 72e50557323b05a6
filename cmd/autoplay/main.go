// Command autoplay plays Minesweeper against a running game server through
// its REST API. Each attempt resets the session, applies every move the
// visible numbers prove safe in bulk, and falls back to the least risky
// guess when no deduction is left. It stops at the first victory or after
// the configured number of attempts.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v3"

	"github.com/wricardo/minesweeper/game/engine"
)

var log = logrus.WithField("component", "autoplay")

// playOptions bounds a single attempt
type playOptions struct {
	MaxMoves int
	Delay    time.Duration
}

// attemptResult summarizes one played game
type attemptResult struct {
	Board   *engine.BoardView
	Moves   int
	Guesses int
}

// play runs the strategy on the current board until the game ends, the move
// budget is spent, or the strategy has nothing left to try.
func play(ctx context.Context, client *Client, strategy *Strategy, board *engine.BoardView, opts playOptions) (*attemptResult, error) {
	result := &attemptResult{Board: board}

	for !result.Board.Status.Terminal() && result.Moves < opts.MaxMoves {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		if moves := strategy.NextMoves(result.Board); len(moves) > 0 {
			if remaining := opts.MaxMoves - result.Moves; len(moves) > remaining {
				moves = moves[:remaining]
			}
			bulk, err := client.BulkMoves(ctx, moves)
			if err != nil {
				return result, err
			}
			result.Board = bulk.Board
			result.Moves += bulk.MovesExecuted
			log.WithFields(logrus.Fields{
				"executed": bulk.MovesExecuted,
				"status":   bulk.Status,
			}).Debug("applied deductions")
		} else {
			guess, ok := strategy.Guess(result.Board)
			if !ok {
				break
			}
			moveResult, err := client.Move(ctx, guess)
			if err != nil {
				return result, err
			}
			result.Board = moveResult.Board
			result.Moves++
			result.Guesses++
			log.WithFields(logrus.Fields{
				"coord":   guess.Coord.String(),
				"changed": len(moveResult.Changed),
				"status":  moveResult.Status,
			}).Debug("guessed")
		}

		if opts.Delay > 0 {
			select {
			case <-ctx.Done():
				return result, ctx.Err()
			case <-time.After(opts.Delay):
			}
		}
	}
	return result, nil
}

// openSession resumes the saved or requested session, or creates a new one
// and remembers its ID in sessionFile.
func openSession(ctx context.Context, client *Client, resumeID, sessionFile, configID string) error {
	if resumeID == "" && sessionFile != "" {
		if data, err := os.ReadFile(sessionFile); err == nil {
			resumeID = strings.TrimSpace(string(data))
		}
	}

	if resumeID != "" {
		_, err := client.Resume(ctx, resumeID)
		if err == nil {
			log.WithField("session", resumeID).Info("resuming session")
			return nil
		}
		log.WithError(err).WithField("session", resumeID).Warn("failed to resume session, creating a new one")
	}

	session, err := client.CreateSession(ctx, configID)
	if err != nil {
		return err
	}
	log.WithFields(logrus.Fields{
		"session": session.ID,
		"config":  session.ConfigName,
	}).Info("session created")

	if sessionFile != "" {
		if err := os.WriteFile(sessionFile, []byte(session.ID), 0644); err != nil {
			log.WithError(err).Warn("failed to save session ID")
		}
	}
	return nil
}

// run plays up to maxAttempts games and reports whether one was won
func run(ctx context.Context, client *Client, strategy *Strategy, maxAttempts int, opts playOptions) (bool, error) {
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		board, err := client.Reset(ctx)
		if err != nil {
			return false, err
		}

		result, err := play(ctx, client, strategy, board, opts)
		if err != nil {
			return false, err
		}

		fields := logrus.Fields{
			"attempt":  fmt.Sprintf("%d/%d", attempt, maxAttempts),
			"moves":    result.Moves,
			"guesses":  result.Guesses,
			"revealed": result.Board.Revealed,
			"status":   result.Board.Status,
		}
		if result.Board.Status == engine.Won {
			log.WithFields(fields).WithField("session", client.SessionID()).Info("🎉 VICTORY")
			return true, nil
		}
		log.WithFields(fields).Info("attempt finished")
	}
	return false, nil
}

func newCommand() *cli.Command {
	return &cli.Command{
		Name:  "autoplay",
		Usage: "play minesweeper sessions through the REST API",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "url", Value: "http://localhost:8080", Usage: "game server URL", Sources: cli.EnvVars("MINES_API_URL")},
			&cli.StringFlag{Name: "config", Usage: "preset to play (server default when empty)"},
			&cli.StringFlag{Name: "continue", Usage: "resume playing an existing session by ID"},
			&cli.StringFlag{Name: "session-file", Value: ".session", Usage: "file remembering the session between runs"},
			&cli.IntFlag{Name: "max-moves", Value: 3000, Usage: "maximum moves per attempt"},
			&cli.IntFlag{Name: "max-attempts", Value: 100, Usage: "maximum attempts before giving up"},
			&cli.IntFlag{Name: "delay", Usage: "delay between requests in milliseconds"},
			&cli.Uint64Flag{Name: "seed", Value: uint64(time.Now().UnixNano()), Usage: "seed for guesses"},
			&cli.BoolFlag{Name: "v", Usage: "verbose output"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.Bool("v") {
				logrus.SetLevel(logrus.DebugLevel)
			}

			url := cmd.String("url")
			log.WithField("url", url).Info("connecting to game server")
			client := NewClient(url)

			if err := openSession(ctx, client, cmd.String("continue"), cmd.String("session-file"), cmd.String("config")); err != nil {
				return err
			}

			opts := playOptions{
				MaxMoves: int(cmd.Int("max-moves")),
				Delay:    time.Duration(cmd.Int("delay")) * time.Millisecond,
			}
			won, err := run(ctx, client, NewStrategy(cmd.Uint64("seed")), int(cmd.Int("max-attempts")), opts)
			if err != nil {
				return err
			}
			if !won {
				return fmt.Errorf("failed to win after %d attempts (session %s)", cmd.Int("max-attempts"), client.SessionID())
			}
			return nil
		},
	}
}

func main() {
	if err := newCommand().Run(context.Background(), os.Args); err != nil {
		log.WithError(err).Fatal("autoplay stopped")
	}
}
