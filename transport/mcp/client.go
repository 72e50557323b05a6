package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jpillora/backoff"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cast"

	"github.com/wricardo/minesweeper/game/engine"
	"github.com/wricardo/minesweeper/game/service"
)

const (
	// Attempts per API call when the server cannot be reached
	maxAttempts = 3
)

// APIError is a non-2xx answer from the REST API
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("API error: %d", e.StatusCode)
}

// Client is a thin MCP client that proxies to the REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	mcpServer  *server.MCPServer
	backoff    backoff.Backoff
	log        *logrus.Entry
}

// NewClient creates a new MCP client that calls the REST API
func NewClient(baseURL string) *Client {
	c := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		backoff: backoff.Backoff{
			Min:    100 * time.Millisecond,
			Max:    2 * time.Second,
			Factor: 2,
			Jitter: true,
		},
		log: logrus.WithField("component", "mcp"),
	}

	c.initMCPServer()
	return c
}

// initMCPServer initializes the MCP server with all tools
func (c *Client) initMCPServer() {
	c.mcpServer = server.NewMCPServer(
		"Minesweeper",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions(`Minesweeper - MCP Interface

This is a thin client that proxies all requests to the REST API server.

GAME OBJECTIVE:
Reveal every cell that is not a mine. Revealing a mine loses the game.
Numbers tell how many of the 8 neighbours are mines.

AVAILABLE TOOLS:
- create_session / list_sessions / get_session: manage games
- board: show the board as a text grid
- reveal / flag / chord: single moves (row, col are 0-based)
- bulk_moves: several moves at once, stops when the game ends
- reset_game: new mine layout with the same preset
- move_history: view past moves
- list_configs: available presets (beginner, intermediate, expert, ...)
- stats: finished game statistics
- game_instructions: rules and board legend
- describe_cell: details and neighbourhood of one cell

NOTE: the 'intent' parameter on move tools serves as rubber duck debugging - explain your reasoning!`),
	)

	c.registerTools()
}

// Schema helpers

func stringProp(description string) map[string]interface{} {
	return map[string]interface{}{"type": "string", "description": description}
}

func intProp(description string) map[string]interface{} {
	return map[string]interface{}{"type": "integer", "description": description}
}

func boolProp(description string) map[string]interface{} {
	return map[string]interface{}{"type": "boolean", "description": description}
}

func sessionSchema(extra map[string]interface{}, required ...string) mcp.ToolInputSchema {
	props := map[string]interface{}{
		"session_id": stringProp("Session ID"),
	}
	for k, v := range extra {
		props[k] = v
	}
	return mcp.ToolInputSchema{
		Type:       "object",
		Properties: props,
		Required:   append([]string{"session_id"}, required...),
	}
}

func moveSchema() mcp.ToolInputSchema {
	return sessionSchema(map[string]interface{}{
		"row":    intProp("Row of the cell (0-based)"),
		"col":    intProp("Column of the cell (0-based)"),
		"intent": stringProp("Brief explanation of the intent behind this move (serves as a rubber duck to help explain your reasoning)"),
		"reset":  boolProp("Reset the game before the move"),
	}, "row", "col")
}

// registerTools registers all MCP tools
func (c *Client) registerTools() {
	// Session management
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "create_session",
		Description: "Create a new game session with optional preset selection",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"config_id": stringProp("Preset to use, e.g. beginner, intermediate, expert (optional)"),
			},
		},
	}, c.handleCreateSession)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_sessions",
		Description: "List all active game sessions",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListSessions)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "get_session",
		Description: "Get details of a specific session including its board",
		InputSchema: sessionSchema(nil),
	}, c.handleGetSession)

	// Game operations
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "board",
		Description: "Show the current board as a text grid",
		InputSchema: sessionSchema(nil),
	}, c.handleBoard)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "reveal",
		Description: "Reveal a cell. Zero cells open their neighbourhood automatically; revealing a mine loses",
		InputSchema: moveSchema(),
	}, c.moveHandler(engine.ActionReveal))

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "flag",
		Description: "Toggle a flag on a hidden cell. Flagged cells cannot be revealed",
		InputSchema: moveSchema(),
	}, c.moveHandler(engine.ActionFlag))

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "chord",
		Description: "On a revealed number whose flagged neighbours equal the number, reveal all other hidden neighbours",
		InputSchema: moveSchema(),
	}, c.moveHandler(engine.ActionChord))

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "bulk_moves",
		Description: fmt.Sprintf("Execute up to %d moves in order. Each move is \"reveal R C\", \"flag R C\", \"chord R C\" (or r/f/c) or an object {action,row,col}. Stops when the game ends", engine.MaxBulkMoves),
		InputSchema: sessionSchema(map[string]interface{}{
			"moves": map[string]interface{}{
				"type":        "array",
				"description": "Moves to execute, e.g. [\"f 0 1\", \"r 2 2\"]",
			},
			"intent": stringProp("Brief explanation of the plan behind these moves"),
			"reset":  boolProp("Reset the game before the moves"),
		}, "moves"),
	}, c.handleBulkMoves)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "reset_game",
		Description: "Start over with a new mine layout (same preset)",
		InputSchema: sessionSchema(nil),
	}, c.handleReset)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "move_history",
		Description: "Get paginated move history",
		InputSchema: sessionSchema(map[string]interface{}{
			"page":  intProp("Page number (default 1)"),
			"limit": intProp("Moves per page (default 20)"),
			"order": map[string]interface{}{
				"type":        "string",
				"enum":        []string{"asc", "desc"},
				"description": "Sort order (default desc)",
			},
		}),
	}, c.handleMoveHistory)

	// Configuration and records
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_configs",
		Description: "List available board presets",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListConfigs)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "stats",
		Description: "Statistics of finished games, optionally for one preset",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"config_id": stringProp("Preset to filter on (optional)"),
				"recent":    intProp("Number of recent games to list (default 5)"),
			},
		},
	}, c.handleStats)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "game_instructions",
		Description: "Get the rules, the board legend and playing tips",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleGameInstructions)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "describe_cell",
		Description: "Describe one cell and its neighbourhood (flags, hidden cells, whether a chord is possible)",
		InputSchema: sessionSchema(map[string]interface{}{
			"row": intProp("Row of the cell (0-based)"),
			"col": intProp("Column of the cell (0-based)"),
		}, "row", "col"),
	}, c.handleDescribeCell)
}

// GetMCPServer returns the underlying MCP server for serving
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// WaitReady polls the health endpoint until the API answers or ctx is done
func (c *Client) WaitReady(ctx context.Context) error {
	b := c.backoff
	for {
		err := c.apiCall(ctx, "GET", "/api/health", nil, nil)
		if err == nil {
			return nil
		}

		d := b.Duration()
		c.log.WithError(err).WithField("retry_in", d).Debug("API not ready")
		select {
		case <-ctx.Done():
			return fmt.Errorf("API at %s not ready: %w", c.baseURL, err)
		case <-time.After(d):
		}
	}
}

// Helper methods for API calls

// retryable reports whether a failed request can be sent again. GETs are
// always safe to repeat; other methods only when the connection was never
// established, so a move is not applied twice.
func retryable(method string, err error) bool {
	if method == http.MethodGet {
		return true
	}
	var opErr *net.OpError
	return errors.As(err, &opErr) && opErr.Op == "dial"
}

// apiCall performs a request, retrying with backoff while the server cannot
// be reached. API errors are returned as *APIError and never retried.
func (c *Client) apiCall(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	var data []byte
	if body != nil {
		var err error
		if data, err = json.Marshal(body); err != nil {
			return err
		}
	}

	b := c.backoff
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		var reqBody io.Reader
		if data != nil {
			reqBody = bytes.NewReader(data)
		}

		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
		if err != nil {
			return err
		}
		if data != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			if ctx.Err() != nil || attempt == maxAttempts || !retryable(method, err) {
				break
			}
			d := b.Duration()
			c.log.WithError(err).WithFields(logrus.Fields{
				"path":    path,
				"attempt": attempt,
			}).Debug("API call failed, retrying")
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(d):
			}
			continue
		}

		return decodeResponse(resp, result)
	}

	return lastErr
}

func decodeResponse(resp *http.Response, result interface{}) error {
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp map[string]string
		json.NewDecoder(resp.Body).Decode(&errResp)
		return &APIError{StatusCode: resp.StatusCode, Message: errResp["error"]}
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}
	return nil
}

func sessionPath(sessionID string, parts ...string) string {
	return "/api/sessions/" + url.PathEscape(sessionID) + strings.Join(parts, "")
}

func toolError(err error) *mcp.CallToolResult {
	return mcp.NewToolResultError(err.Error())
}

// requireSession extracts the session_id argument
func requireSession(args map[string]interface{}) (string, error) {
	id := strings.TrimSpace(cast.ToString(args["session_id"]))
	if id == "" {
		return "", errors.New("session_id is required")
	}
	return id, nil
}

// requireCoord extracts row and col, accepting numbers or numeric strings
func requireCoord(args map[string]interface{}) (engine.Coord, error) {
	if args["row"] == nil || args["col"] == nil {
		return engine.Coord{}, errors.New("row and col are required")
	}
	row, err := cast.ToIntE(args["row"])
	if err != nil {
		return engine.Coord{}, fmt.Errorf("invalid row: %w", err)
	}
	col, err := cast.ToIntE(args["col"])
	if err != nil {
		return engine.Coord{}, fmt.Errorf("invalid col: %w", err)
	}
	return engine.Coord{Row: row, Col: col}, nil
}

// Tool handlers

func (c *Client) handleCreateSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	configID := cast.ToString(args["config_id"])
	if configID == "" {
		configID = cast.ToString(args["config_name"])
	}

	body := map[string]string{}
	if configID != "" {
		body["config_id"] = configID
	}

	var session service.SessionInfo
	if err := c.apiCall(ctx, "POST", "/api/sessions", body, &session); err != nil {
		return toolError(err), nil
	}

	result := fmt.Sprintf("Created session: %s\nConfig: %s\n\n%s", session.ID, session.ConfigName, formatBoard(session.Board))
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleListSessions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var response struct {
		Count    int                   `json:"count"`
		Sessions []service.SessionInfo `json:"sessions"`
	}

	if err := c.apiCall(ctx, "GET", "/api/sessions", nil, &response); err != nil {
		return toolError(err), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Active Sessions (%d):\n\n", response.Count)
	for _, s := range response.Sessions {
		status := "unknown"
		if s.Board != nil {
			status = string(s.Board.Status)
		}
		fmt.Fprintf(&b, "- %s (Config: %s, Status: %s, Moves: %d, Created: %s)\n",
			s.ID, s.ConfigName, status, s.TotalMoves, s.CreatedAt.Format("15:04:05"))
	}

	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleGetSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, err := requireSession(request.GetArguments())
	if err != nil {
		return toolError(err), nil
	}

	var session service.SessionInfo
	if err := c.apiCall(ctx, "GET", sessionPath(sessionID), nil, &session); err != nil {
		return toolError(err), nil
	}

	return mcp.NewToolResultText(formatSessionInfo(&session)), nil
}

func (c *Client) handleBoard(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, err := requireSession(request.GetArguments())
	if err != nil {
		return toolError(err), nil
	}

	var board engine.BoardView
	if err := c.apiCall(ctx, "GET", sessionPath(sessionID, "/board"), nil, &board); err != nil {
		return toolError(err), nil
	}

	return mcp.NewToolResultText(formatBoard(&board)), nil
}

func (c *Client) moveHandler(action engine.Action) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := request.GetArguments()
		sessionID, err := requireSession(args)
		if err != nil {
			return toolError(err), nil
		}
		coord, err := requireCoord(args)
		if err != nil {
			return toolError(err), nil
		}

		// Intent parameter serves as rubber duck debugging - we don't need to process it further
		_ = args["intent"]

		body := map[string]interface{}{
			"row":   coord.Row,
			"col":   coord.Col,
			"reset": cast.ToBool(args["reset"]),
		}

		var result service.MoveResult
		if err := c.apiCall(ctx, "POST", sessionPath(sessionID, "/", string(action)), body, &result); err != nil {
			return toolError(err), nil
		}

		return mcp.NewToolResultText(formatMoveResult(&result)), nil
	}
}

func (c *Client) handleBulkMoves(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	sessionID, err := requireSession(args)
	if err != nil {
		return toolError(err), nil
	}

	rawMoves, err := cast.ToSliceE(args["moves"])
	if err != nil || len(rawMoves) == 0 {
		return mcp.NewToolResultError("moves must be a non-empty array"), nil
	}

	moves := make([]engine.Move, 0, len(rawMoves))
	for i, raw := range rawMoves {
		move, err := parseMove(raw)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("move %d: %v", i+1, err)), nil
		}
		moves = append(moves, move)
	}

	body := map[string]interface{}{
		"moves": moves,
		"reset": cast.ToBool(args["reset"]),
	}

	var result service.BulkMoveResult
	if err := c.apiCall(ctx, "POST", sessionPath(sessionID, "/moves"), body, &result); err != nil {
		return toolError(err), nil
	}

	return mcp.NewToolResultText(formatBulkMoveResult(sessionID, &result)), nil
}

func (c *Client) handleReset(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, err := requireSession(request.GetArguments())
	if err != nil {
		return toolError(err), nil
	}

	var response struct {
		Message string            `json:"message"`
		Board   *engine.BoardView `json:"board"`
	}

	if err := c.apiCall(ctx, "POST", sessionPath(sessionID, "/reset"), nil, &response); err != nil {
		return toolError(err), nil
	}

	result := fmt.Sprintf("%s\n\n%s", response.Message, formatBoard(response.Board))
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleMoveHistory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	sessionID, err := requireSession(args)
	if err != nil {
		return toolError(err), nil
	}

	params := url.Values{}
	if page := cast.ToInt(args["page"]); page > 0 {
		params.Set("page", cast.ToString(page))
	}
	if limit := cast.ToInt(args["limit"]); limit > 0 {
		params.Set("limit", cast.ToString(limit))
	}
	if order := cast.ToString(args["order"]); order != "" {
		params.Set("order", order)
	}

	path := sessionPath(sessionID, "/history")
	if len(params) > 0 {
		path += "?" + params.Encode()
	}

	var history service.HistoryResponse
	if err := c.apiCall(ctx, "GET", path, nil, &history); err != nil {
		return toolError(err), nil
	}

	return mcp.NewToolResultText(formatHistory(&history)), nil
}

func (c *Client) handleListConfigs(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var configs []service.ConfigInfo
	if err := c.apiCall(ctx, "GET", "/api/configs", nil, &configs); err != nil {
		return toolError(err), nil
	}

	var b strings.Builder
	b.WriteString("Available Configurations:\n\n")
	for _, config := range configs {
		fmt.Fprintf(&b, "• %s (config_id: %s)\n  %s\n  Grid: %dx%d, Mines: %d\n\n",
			config.Name, config.ConfigID, config.Description, config.Rows, config.Cols, config.Mines)
	}

	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleStats(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	recent := 5
	if args["recent"] != nil {
		recent = cast.ToInt(args["recent"])
	}
	params := url.Values{}
	params.Set("recent", cast.ToString(recent))
	if configID := cast.ToString(args["config_id"]); configID != "" {
		params.Set("config", configID)
	}

	var response struct {
		Stats  *service.Stats        `json:"stats"`
		Recent []*service.GameRecord `json:"recent"`
	}
	if err := c.apiCall(ctx, "GET", "/api/stats?"+params.Encode(), nil, &response); err != nil {
		return toolError(err), nil
	}

	return mcp.NewToolResultText(formatStats(response.Stats, response.Recent)), nil
}

func (c *Client) handleGameInstructions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(gameInstructions), nil
}

func (c *Client) handleDescribeCell(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	sessionID, err := requireSession(args)
	if err != nil {
		return toolError(err), nil
	}
	coord, err := requireCoord(args)
	if err != nil {
		return toolError(err), nil
	}

	var cell engine.CellView
	path := sessionPath(sessionID, fmt.Sprintf("/cells/%d/%d", coord.Row, coord.Col))
	if err := c.apiCall(ctx, "GET", path, nil, &cell); err != nil {
		return toolError(err), nil
	}

	var board engine.BoardView
	if err := c.apiCall(ctx, "GET", sessionPath(sessionID, "/board"), nil, &board); err != nil {
		return toolError(err), nil
	}

	return mcp.NewToolResultText(describeCell(&board, cell)), nil
}

const gameInstructions = `MINESWEEPER - GAME INSTRUCTIONS

OBJECTIVE:
Reveal every cell that does not hide a mine. The game is won the moment the
last safe cell is revealed and lost the moment a mine is revealed.

COORDINATES:
Cells are addressed by (row, col), both 0-based. Row 0 is the top row and
col 0 the leftmost column.

BOARD LEGEND:
  #  hidden cell
  F  flagged cell
  .  revealed cell with no adjacent mines
  1-8 revealed cell with that many adjacent mines
  *  mine (only shown once the game is over)
  X  the mine that was revealed and lost the game

MOVES:
- reveal: opens a hidden cell. A cell with no adjacent mines also opens all
  of its neighbours, repeating until numbered cells form the border.
- flag: toggles a flag on a hidden cell. Flagged cells cannot be revealed,
  not even by cascades, until the flag is removed.
- chord: on a revealed number whose count of flagged neighbours equals the
  number, reveals every other hidden neighbour. A wrong flag makes the chord
  reveal a mine.
- Moves on a finished game, on revealed cells, or on flagged cells (for
  reveal) change nothing.

STRATEGY TIPS:
1. Start near the middle; large openings give the most information.
2. A number equal to its hidden neighbours means all of them are mines.
3. A number equal to its flagged neighbours means the rest are safe - chord it.
4. Use describe_cell to see flag and hidden counts around a number.
5. bulk_moves saves round trips once you have worked out several safe cells.

PRESETS:
beginner 8x8 with 10 mines, intermediate 16x16 with 40, expert 16x30 with 99.
Use list_configs for everything available on this server.`
