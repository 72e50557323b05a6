package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/wricardo/minesweeper/game/engine"
)

// gameServiceImpl implements the GameService interface
type gameServiceImpl struct {
	sessions SessionManager
	configs  ConfigManager
	records  RecordStore
	log      *logrus.Entry
	mu       sync.RWMutex
}

// NewGameService creates a new game service instance
func NewGameService(sessions SessionManager, configs ConfigManager) GameService {
	return NewGameServiceWithRecords(sessions, configs, nil)
}

// NewGameServiceWithRecords creates a game service that stores every finished
// game in records. A nil store disables Stats and RecentGames.
func NewGameServiceWithRecords(sessions SessionManager, configs ConfigManager, records RecordStore) GameService {
	return &gameServiceImpl{
		sessions: sessions,
		configs:  configs,
		records:  records,
		log:      logrus.WithField("component", "service"),
	}
}

// getConfigID returns the config_id for a config, used for consistent API responses
func (s *gameServiceImpl) getConfigID(config *engine.GameConfig) string {
	if config == nil {
		return "default"
	}
	if config.ID != "" {
		return config.ID
	}
	availableConfigs, err := s.configs.ListConfigs()
	if err == nil {
		for _, cfg := range availableConfigs {
			if cfg.Name == config.Name {
				return cfg.ConfigID
			}
		}
	}
	if config.Name == "" {
		return "default"
	}
	return config.Name
}

func (s *gameServiceImpl) sessionInfo(sess *Session) *SessionInfo {
	return &SessionInfo{
		ID:             sess.ID,
		ConfigName:     s.getConfigID(sess.Config),
		CreatedAt:      sess.CreatedAt,
		LastAccessedAt: sess.LastAccessedAt,
		Board:          sess.Engine.View(),
		GameConfig:     sess.Config,
		TotalMoves:     sess.Engine.TotalMoves(),
		DurationMs:     sess.Engine.Duration().Milliseconds(),
	}
}

// getSession looks up a session and refreshes its access time. Callers must
// hold s.mu for writing since sessionInfo reads the access time under s.mu.
func (s *gameServiceImpl) getSession(sessionID string) (*Session, error) {
	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session %s: %w", sessionID, err)
	}
	s.sessions.UpdateLastAccessed(sessionID)
	return sess, nil
}

// CreateSession creates a new game session
func (s *gameServiceImpl) CreateSession(ctx context.Context, configName string) (*SessionInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var config *engine.GameConfig
	var err error
	if configName != "" {
		config, err = s.configs.LoadConfig(configName)
		if err != nil {
			if errors.Is(err, ErrConfigNotFound) {
				availableConfigs, listErr := s.configs.ListConfigs()
				if listErr == nil && len(availableConfigs) > 0 {
					configIDs := make([]string, 0, len(availableConfigs))
					for _, cfg := range availableConfigs {
						configIDs = append(configIDs, cfg.ConfigID)
					}
					return nil, fmt.Errorf("config '%s': %w. Available configs: %v", configName, ErrConfigNotFound, configIDs)
				}
				return nil, fmt.Errorf("config '%s': %w. Use /api/configs to list available configurations", configName, ErrConfigNotFound)
			}
			return nil, fmt.Errorf("failed to load config %s: %w", configName, err)
		}
	} else {
		config = s.configs.GetDefault()
	}

	// Let session manager generate a proper 4-character ID
	sess, err := s.sessions.Create("", config)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	info := s.sessionInfo(sess)
	if configName != "" {
		info.ConfigName = configName
	}

	s.log.WithFields(logrus.Fields{
		"session": sess.ID,
		"config":  info.ConfigName,
		"rows":    config.Rows,
		"cols":    config.Cols,
		"mines":   config.Mines,
	}).Info("session created")

	return info, nil
}

// GetSession retrieves session information
func (s *gameServiceImpl) GetSession(ctx context.Context, sessionID string) (*SessionInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}
	return s.sessionInfo(sess), nil
}

// ListSessions returns all active sessions
func (s *gameServiceImpl) ListSessions(ctx context.Context) ([]*SessionInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sessions := s.sessions.List()
	result := make([]*SessionInfo, 0, len(sessions))
	for _, sess := range sessions {
		result = append(result, s.sessionInfo(sess))
	}

	return result, nil
}

// DeleteSession removes a session
func (s *gameServiceImpl) DeleteSession(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.sessions.Delete(sessionID); err != nil {
		return fmt.Errorf("session %s: %w", sessionID, err)
	}
	return nil
}

// Reveal uncovers a cell
func (s *gameServiceImpl) Reveal(ctx context.Context, sessionID string, c engine.Coord) (*MoveResult, error) {
	return s.Move(ctx, sessionID, engine.Move{Action: engine.ActionReveal, Coord: c}, false)
}

// ToggleFlag flips the flag on a cell
func (s *gameServiceImpl) ToggleFlag(ctx context.Context, sessionID string, c engine.Coord) (*MoveResult, error) {
	return s.Move(ctx, sessionID, engine.Move{Action: engine.ActionFlag, Coord: c}, false)
}

// MassReveal chords on a revealed number
func (s *gameServiceImpl) MassReveal(ctx context.Context, sessionID string, c engine.Coord) (*MoveResult, error) {
	return s.Move(ctx, sessionID, engine.Move{Action: engine.ActionChord, Coord: c}, false)
}

// Move executes a single move for a session
func (s *gameServiceImpl) Move(ctx context.Context, sessionID string, move engine.Move, reset bool) (*MoveResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}

	events := []GameEvent{}
	if reset {
		// A move the fresh board would reject must not discard the current one
		if err := sess.Engine.GetState().CheckMove(move); err != nil {
			return nil, fmt.Errorf("%s: %w", move, err)
		}
		if _, err := sess.Engine.Reset(); err != nil {
			return nil, fmt.Errorf("failed to reset game: %w", err)
		}
		events = append(events, resetEvent())
	}

	wasOver := sess.Engine.IsGameOver()
	out, err := sess.Engine.Do(move)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", move, err)
	}

	state := sess.Engine.GetState()
	result := &MoveResult{
		Success: out.Effective(),
		Action:  out.Action,
		Coord:   out.Coord,
		Status:  out.Status,
		Changed: state.CellViews(out.Changed),
		Board:   state.View(),
		Message: describeOutcome(state, out),
		Events:  append(events, outcomeEvents(out, state)...),
	}

	if !wasOver && out.Status.Terminal() {
		s.recordGame(ctx, sess)
	}

	if err := s.sessions.Save(sessionID); err != nil {
		s.log.WithError(err).WithField("session", sessionID).Warn("failed to persist session after move")
	}

	return result, nil
}

// BulkMoves executes multiple moves in sequence
func (s *gameServiceImpl) BulkMoves(ctx context.Context, sessionID string, moves []engine.Move, reset bool) (*BulkMoveResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}

	result := &BulkMoveResult{
		RequestedMoves: len(moves),
		Events:         make([]GameEvent, 0),
		Success:        true,
	}

	if reset {
		if _, err := sess.Engine.Reset(); err != nil {
			return nil, fmt.Errorf("failed to reset game: %w", err)
		}
		result.Events = append(result.Events, resetEvent())
	}

	// Limit moves to prevent abuse
	if len(moves) > engine.MaxBulkMoves {
		result.Truncated = true
		result.Limit = engine.MaxBulkMoves
		moves = moves[:engine.MaxBulkMoves]
	}

	wasOver := sess.Engine.IsGameOver()
	outcomes, moveErr := sess.Engine.BulkMoves(moves)
	state := sess.Engine.GetState()

	for i, out := range outcomes {
		result.MovesExecuted++
		result.Events = append(result.Events, outcomeEvents(out, state)...)
		result.Steps = append(result.Steps, StepInfo{
			Idx:       i + 1,
			Action:    out.Action,
			Coord:     out.Coord,
			Changed:   len(out.Changed),
			Effective: out.Effective(),
			Status:    out.Status,
		})
	}

	switch {
	case moveErr != nil:
		result.Success = false
		result.StoppedOnMove = len(outcomes) + 1
		result.StoppedReason = moveErr.Error()
		switch {
		case errors.Is(moveErr, engine.ErrInvalidCoordinate):
			result.StopReasonCode = StopInvalidCoordinate
		case errors.Is(moveErr, engine.ErrUnknownAction):
			result.StopReasonCode = StopUnknownAction
		}
	case len(outcomes) < len(moves):
		if len(outcomes) == 0 && wasOver {
			result.StopReasonCode = StopGameOver
			result.StoppedReason = "game is already over"
			result.StoppedOnMove = 1
		} else {
			result.StopReasonCode = stopCode(state.Status)
			result.StoppedReason = fmt.Sprintf("game %s on move %d", state.Status, len(outcomes))
			result.StoppedOnMove = len(outcomes)
		}
	case state.Status.Terminal():
		result.StopReasonCode = stopCode(state.Status)
	}

	result.Board = state.View()
	result.Status = state.Status
	result.GameOver = state.Status.Terminal()
	result.Message = bulkMessage(result)

	if !wasOver && result.GameOver {
		s.recordGame(ctx, sess)
	}

	if err := s.sessions.Save(sessionID); err != nil {
		s.log.WithError(err).WithField("session", sessionID).Warn("failed to persist session after bulk moves")
	}

	return result, nil
}

// Reset starts a new board for a session, keeping its config
func (s *gameServiceImpl) Reset(ctx context.Context, sessionID string) (*engine.BoardView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}

	state, err := sess.Engine.Reset()
	if err != nil {
		return nil, fmt.Errorf("failed to reset game: %w", err)
	}

	if err := s.sessions.Save(sessionID); err != nil {
		s.log.WithError(err).WithField("session", sessionID).Warn("failed to persist session after reset")
	}

	return state.View(), nil
}

// GetBoard retrieves the current board view
func (s *gameServiceImpl) GetBoard(ctx context.Context, sessionID string) (*engine.BoardView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}
	return sess.Engine.View(), nil
}

// GetCell retrieves the view of a single cell
func (s *gameServiceImpl) GetCell(ctx context.Context, sessionID string, c engine.Coord) (*engine.CellView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}
	view, err := sess.Engine.CellView(c)
	if err != nil {
		return nil, err
	}
	return &view, nil
}

// GetMoveHistory returns paginated move history
func (s *gameServiceImpl) GetMoveHistory(ctx context.Context, sessionID string, opts HistoryOptions) (*HistoryResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session %s: %w", sessionID, err)
	}

	history := sess.Engine.GetMoveHistory()
	total := len(history)

	// Apply defaults
	if opts.Page < 1 {
		opts.Page = 1
	}
	if opts.Limit <= 0 {
		opts.Limit = 20
	}
	if opts.Limit > 100 {
		opts.Limit = 100
	}
	if opts.Order == "" {
		opts.Order = "desc"
	}

	totalPages := (total + opts.Limit - 1) / opts.Limit
	if totalPages == 0 {
		totalPages = 1
	}

	start := (opts.Page - 1) * opts.Limit
	end := start + opts.Limit
	if end > total {
		end = total
	}

	var moves []engine.MoveHistoryEntry
	if opts.Order == "desc" {
		// Most recent first
		for i := total - 1 - start; i >= 0 && i >= total-end; i-- {
			moves = append(moves, history[i])
		}
	} else if start < total {
		moves = history[start:end]
	}

	if moves == nil {
		moves = []engine.MoveHistoryEntry{}
	}

	return &HistoryResponse{
		Moves:       moves,
		TotalMoves:  total,
		Page:        opts.Page,
		PageSize:    opts.Limit,
		TotalPages:  totalPages,
		HasNext:     opts.Page < totalPages,
		HasPrevious: opts.Page > 1,
	}, nil
}

// ListConfigs returns available game configurations
func (s *gameServiceImpl) ListConfigs(ctx context.Context) ([]*ConfigInfo, error) {
	return s.configs.ListConfigs()
}

// LoadConfig loads a specific game configuration
func (s *gameServiceImpl) LoadConfig(ctx context.Context, configName string) (*engine.GameConfig, error) {
	return s.configs.LoadConfig(configName)
}

// SaveConfig saves a game configuration to disk
func (s *gameServiceImpl) SaveConfig(ctx context.Context, configName string, config *engine.GameConfig) error {
	return s.configs.SaveConfig(configName, config)
}

// Stats aggregates finished games, for one config or all of them when configID is empty
func (s *gameServiceImpl) Stats(ctx context.Context, configID string) (*Stats, error) {
	if s.records == nil {
		return nil, ErrRecordsDisabled
	}
	return s.records.Stats(ctx, configID)
}

// RecentGames returns the most recently finished games
func (s *gameServiceImpl) RecentGames(ctx context.Context, limit int) ([]*GameRecord, error) {
	if s.records == nil {
		return nil, ErrRecordsDisabled
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.records.Recent(ctx, limit)
}

// recordGame stores a game that has just reached a terminal status
func (s *gameServiceImpl) recordGame(ctx context.Context, sess *Session) {
	state := sess.Engine.GetState()
	entry := s.log.WithFields(logrus.Fields{
		"session": sess.ID,
		"status":  state.Status,
		"moves":   len(sess.Engine.GetCurrentMoves()),
	})
	entry.Info("game finished")

	if s.records == nil {
		return
	}

	record := &GameRecord{
		SessionID:  sess.ID,
		ConfigID:   s.getConfigID(sess.Config),
		Rows:       state.Rows,
		Cols:       state.Cols,
		Mines:      state.MineCount,
		Status:     state.Status,
		Moves:      len(sess.Engine.GetCurrentMoves()),
		Revealed:   state.RevealedSafe,
		DurationMs: sess.Engine.Duration().Milliseconds(),
		FinishedAt: time.Now(),
	}
	if err := s.records.SaveRecord(ctx, record); err != nil {
		entry.WithError(err).Warn("failed to record finished game")
	}
}

func resetEvent() GameEvent {
	return GameEvent{
		Type:      EventReset,
		Message:   "Game reset with a new mine layout",
		Timestamp: time.Now(),
	}
}

// outcomeEvents generates events from a move outcome
func outcomeEvents(out engine.Outcome, state *engine.GameState) []GameEvent {
	if !out.Effective() {
		return nil
	}

	now := time.Now()
	coord := out.Coord
	events := []GameEvent{}

	switch out.Action {
	case engine.ActionReveal:
		if len(out.Changed) > 1 {
			events = append(events, GameEvent{
				Type:      EventCascade,
				Message:   fmt.Sprintf("Revealed %d cells from %s", len(out.Changed), coord),
				Timestamp: now,
				Coord:     &coord,
			})
		} else {
			events = append(events, GameEvent{
				Type:      EventReveal,
				Message:   fmt.Sprintf("Revealed %s", coord),
				Timestamp: now,
				Coord:     &coord,
			})
		}
	case engine.ActionFlag:
		if out.Flagged {
			events = append(events, GameEvent{
				Type:      EventFlag,
				Message:   fmt.Sprintf("Flagged %s", coord),
				Timestamp: now,
				Coord:     &coord,
			})
		} else {
			events = append(events, GameEvent{
				Type:      EventUnflag,
				Message:   fmt.Sprintf("Removed flag from %s", coord),
				Timestamp: now,
				Coord:     &coord,
			})
		}
	case engine.ActionChord:
		events = append(events, GameEvent{
			Type:      EventChord,
			Message:   fmt.Sprintf("Chord on %s revealed %d cells", coord, len(out.Changed)),
			Timestamp: now,
			Coord:     &coord,
		})
	}

	switch out.Status {
	case engine.Won:
		events = append(events, GameEvent{
			Type:      EventWon,
			Message:   "All safe cells revealed!",
			Timestamp: now,
		})
	case engine.Lost:
		event := GameEvent{
			Type:      EventLost,
			Message:   "Stepped on a mine",
			Timestamp: now,
		}
		if state.Exploded != nil {
			exploded := *state.Exploded
			event.Coord = &exploded
			event.Message = fmt.Sprintf("Stepped on a mine at %s", exploded)
		}
		events = append(events, event)
	}

	return events
}

// describeOutcome returns a human-readable message for a move outcome
func describeOutcome(state *engine.GameState, out engine.Outcome) string {
	switch out.Status {
	case engine.Won:
		if out.Effective() {
			return "All safe cells revealed. You win!"
		}
		return "Game is already won. Reset to play again."
	case engine.Lost:
		if out.Effective() {
			return fmt.Sprintf("Boom! Mine at %s. Game over.", *state.Exploded)
		}
		return "Game is already lost. Reset to play again."
	}

	cell := state.Cells[out.Coord.Row][out.Coord.Col]
	switch out.Action {
	case engine.ActionReveal:
		switch {
		case out.Effective():
			return fmt.Sprintf("Revealed %d cell(s)", len(out.Changed))
		case cell.Flagged:
			return fmt.Sprintf("Cell %s is flagged. Remove the flag before revealing it.", out.Coord)
		default:
			return fmt.Sprintf("Cell %s is already revealed", out.Coord)
		}
	case engine.ActionFlag:
		switch {
		case !out.Effective():
			return fmt.Sprintf("Cell %s is revealed and cannot be flagged", out.Coord)
		case out.Flagged:
			return fmt.Sprintf("Flagged %s", out.Coord)
		default:
			return fmt.Sprintf("Removed flag from %s", out.Coord)
		}
	case engine.ActionChord:
		if out.Effective() {
			return fmt.Sprintf("Chord revealed %d cell(s)", len(out.Changed))
		}
		return fmt.Sprintf("Chord on %s had no effect: it needs a revealed number with exactly that many flagged neighbours", out.Coord)
	}
	return ""
}

func stopCode(status engine.Status) string {
	switch status {
	case engine.Won:
		return StopWon
	case engine.Lost:
		return StopLost
	default:
		return StopGameOver
	}
}

func bulkMessage(result *BulkMoveResult) string {
	switch result.Status {
	case engine.Won:
		return fmt.Sprintf("Executed %d/%d moves. You win!", result.MovesExecuted, result.RequestedMoves)
	case engine.Lost:
		return fmt.Sprintf("Executed %d/%d moves. Stepped on a mine.", result.MovesExecuted, result.RequestedMoves)
	}
	if result.StoppedReason != "" {
		return fmt.Sprintf("Executed %d/%d moves. Stopped: %s", result.MovesExecuted, result.RequestedMoves, result.StoppedReason)
	}
	return fmt.Sprintf("Executed %d/%d moves", result.MovesExecuted, result.RequestedMoves)
}
