package engine

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidCoordinate    = errors.New("invalid coordinate")
	ErrInvalidConfiguration = errors.New("invalid configuration")
	ErrUnknownAction        = errors.New("unknown action")
	ErrTooManyMoves         = errors.New("too many moves")
)

// InvalidCoordinateError is returned when a coordinate lies outside the board
type InvalidCoordinateError struct {
	Coord Coord
	Rows  int
	Cols  int
}

func (e *InvalidCoordinateError) Error() string {
	return fmt.Sprintf("coordinate out of range - %s - board %dx%d", e.Coord, e.Rows, e.Cols)
}

func (e *InvalidCoordinateError) Unwrap() error {
	return ErrInvalidCoordinate
}

// InvalidConfigurationError is returned when a board cannot be constructed
type InvalidConfigurationError struct {
	Rows   int
	Cols   int
	Mines  int
	Reason string
}

func (e *InvalidConfigurationError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("cannot construct board %dx%d with %d mines: %s", e.Rows, e.Cols, e.Mines, e.Reason)
	}
	switch {
	case e.Rows < MinDimension || e.Rows > MaxDimension:
		return fmt.Sprintf("cannot create a board with %d rows (must be between %d and %d)", e.Rows, MinDimension, MaxDimension)
	case e.Cols < MinDimension || e.Cols > MaxDimension:
		return fmt.Sprintf("cannot create a board with %d columns (must be between %d and %d)", e.Cols, MinDimension, MaxDimension)
	case e.Mines < 0:
		return fmt.Sprintf("cannot create a board with negative amount of mines: %d", e.Mines)
	case e.Mines >= e.Rows*e.Cols:
		return fmt.Sprintf("not enough space for %d mines (%d >= %d * %d)", e.Mines, e.Mines, e.Rows, e.Cols)
	default:
		return "cannot construct board: unknown error"
	}
}

func (e *InvalidConfigurationError) Unwrap() error {
	return ErrInvalidConfiguration
}

// checkDimensions validates board parameters
func checkDimensions(rows, cols, mines int) error {
	if rows < MinDimension || rows > MaxDimension ||
		cols < MinDimension || cols > MaxDimension ||
		mines < 0 || mines >= rows*cols {
		return &InvalidConfigurationError{Rows: rows, Cols: cols, Mines: mines}
	}
	return nil
}
