package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/wricardo/xiangqi/game/engine"
	"github.com/wricardo/xiangqi/game/service"
)

// Client is a thin MCP client that proxies to the REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	mcpServer  *server.MCPServer
}

// NewClient creates a new MCP client that calls the REST API
func NewClient(baseURL string) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}

	c.initMCPServer()
	return c
}

// initMCPServer initializes the MCP server with all tools
func (c *Client) initMCPServer() {
	c.mcpServer = server.NewMCPServer(
		"Xiangqi Server",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions(`Xiangqi Server - MCP Interface

This is a read-only view of a running Xiangqi (Chinese chess) server. Games
are played by connected peers over WebSocket; these tools inspect the lobby
and games and analyze positions.

AVAILABLE TOOLS:
- server_status: Player, game and connection counts
- list_players: Logged-in players and whether they are in a game
- list_games: Running and finished games
- game_state: Board and status of one game
- move_history: Paginated moves of one game
- analyze_position: Check, mate and legal moves for a layout
- rules: Piece movement rules and layout notation`),
	)

	c.registerTools()
}

// registerTools registers all MCP tools
func (c *Client) registerTools() {
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "server_status",
		Description: "Get registry sizes, open connections and uptime",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleServerStatus)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_players",
		Description: "List all logged-in players",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListPlayers)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_games",
		Description: "List game sessions, most recently active first",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"limit": map[string]interface{}{
					"type":        "number",
					"description": "Maximum number of games to return (optional)",
				},
			},
		},
	}, c.handleListGames)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "game_state",
		Description: "Get the board, side to move and status of a game",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"game_id": map[string]interface{}{
					"type":        "string",
					"description": "Game ID",
				},
			},
			Required: []string{"game_id"},
		},
	}, c.handleGameState)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "move_history",
		Description: "Get the moves of a game with pagination",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"game_id": map[string]interface{}{
					"type":        "string",
					"description": "Game ID",
				},
				"page": map[string]interface{}{
					"type":        "number",
					"description": "Page number (default 1)",
				},
				"limit": map[string]interface{}{
					"type":        "number",
					"description": "Moves per page (default 20, max 100)",
				},
				"order": map[string]interface{}{
					"type":        "string",
					"enum":        []string{"asc", "desc"},
					"description": "asc for oldest first, desc for most recent first",
				},
			},
			Required: []string{"game_id"},
		},
	}, c.handleMoveHistory)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "analyze_position",
		Description: "Analyze a position given as ten layout rows",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"layout": map[string]interface{}{
					"type": "array",
					"items": map[string]interface{}{
						"type": "string",
					},
					"description": "Ten rows of nine characters, row 0 (Black's back rank) first",
				},
				"turn": map[string]interface{}{
					"type":        "string",
					"enum":        []string{"red", "black"},
					"description": "Side to move (default red)",
				},
			},
			Required: []string{"layout"},
		},
	}, c.handleAnalyzePosition)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "rules",
		Description: "Get Xiangqi movement rules and the layout notation",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleRules)
}

// GetMCPServer returns the underlying MCP server for serving
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// Helper methods for API calls

func (c *Client) apiCall(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp map[string]string
		json.NewDecoder(resp.Body).Decode(&errResp)
		if msg, ok := errResp["error"]; ok {
			if code := errResp["code"]; code != "" {
				return fmt.Errorf("%s (%s)", msg, code)
			}
			return fmt.Errorf("%s", msg)
		}
		return fmt.Errorf("API error: %d", resp.StatusCode)
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}

	return nil
}

func arguments(request mcp.CallToolRequest) map[string]interface{} {
	args, _ := request.Params.Arguments.(map[string]interface{})
	if args == nil {
		return map[string]interface{}{}
	}
	return args
}

// Tool handlers

func (c *Client) handleServerStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var st service.Status
	if err := c.apiCall(ctx, "GET", "/api/status", nil, &st); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("Server Status\nUptime: %s\nConnections: %d\nPlayers: %d\nGames: %d\nPending invitations: %d\n",
		st.Uptime, st.Connections, st.Players, st.Sessions, st.Invitations)
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleListPlayers(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var response struct {
		Count   int              `json:"count"`
		Players []service.Player `json:"players"`
	}
	if err := c.apiCall(ctx, "GET", "/api/players", nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Players (%d):\n\n", response.Count)
	for _, p := range response.Players {
		fmt.Fprintf(&b, "- %s (%s, %s)\n", p.Name, p.ID, p.Status)
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleListGames(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	path := "/api/games"
	if limit, ok := args["limit"].(float64); ok && limit > 0 {
		path += "?limit=" + strconv.Itoa(int(limit))
	}

	var response struct {
		Count int                   `json:"count"`
		Total int                   `json:"total"`
		Games []service.SessionInfo `json:"games"`
	}
	if err := c.apiCall(ctx, "GET", path, nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Games (%d of %d):\n\n", response.Count, response.Total)
	for _, g := range response.Games {
		fmt.Fprintf(&b, "- %s\n", formatSessionLine(&g))
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleGameState(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	gameID, _ := args["game_id"].(string)
	if gameID == "" {
		return mcp.NewToolResultError("game_id is required"), nil
	}

	var info service.SessionInfo
	if err := c.apiCall(ctx, "GET", "/api/games/"+url.PathEscape(gameID), nil, &info); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatSessionInfo(&info)), nil
}

func (c *Client) handleMoveHistory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	gameID, _ := args["game_id"].(string)
	if gameID == "" {
		return mcp.NewToolResultError("game_id is required"), nil
	}

	query := url.Values{}
	if page, ok := args["page"].(float64); ok && page > 0 {
		query.Set("page", strconv.Itoa(int(page)))
	}
	if limit, ok := args["limit"].(float64); ok && limit > 0 {
		query.Set("limit", strconv.Itoa(int(limit)))
	}
	if order, ok := args["order"].(string); ok && order != "" {
		query.Set("order", order)
	}

	path := "/api/games/" + url.PathEscape(gameID) + "/history"
	if len(query) > 0 {
		path += "?" + query.Encode()
	}

	var history service.HistoryResponse
	if err := c.apiCall(ctx, "GET", path, nil, &history); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatHistory(&history)), nil
}

func (c *Client) handleAnalyzePosition(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	raw, _ := args["layout"].([]interface{})
	layout := make([]string, 0, len(raw))
	for _, r := range raw {
		if row, ok := r.(string); ok {
			layout = append(layout, row)
		}
	}
	turn, _ := args["turn"].(string)
	if turn == "" {
		turn = "red"
	}

	body := map[string]interface{}{
		"layout": layout,
		"turn":   turn,
	}

	var analysis engine.Analysis
	if err := c.apiCall(ctx, "POST", "/api/analyze", body, &analysis); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatAnalysis(&analysis)), nil
}

func (c *Client) handleRules(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(rulesText), nil
}

const rulesText = `Xiangqi Rules

BOARD:
10 rows by 9 columns. Row 0 is Black's back rank, row 9 is Red's.
The river lies between rows 4 and 5. Each palace spans columns 3-5,
rows 0-2 for Black and rows 7-9 for Red. Red moves first.

PIECES:
- General (G): one step orthogonally, never leaves the palace
- Advisor (A): one step diagonally, never leaves the palace
- Elephant (E): exactly two steps diagonally, never crosses the river,
  blocked if the point in between is occupied
- Horse (H): one step orthogonally then one diagonally outward,
  blocked if the orthogonal point is occupied
- Chariot (R): any distance orthogonally, no jumping
- Cannon (C): moves like a chariot, captures by jumping exactly one piece
- Soldier (S): one step forward; after crossing the river also sideways

SPECIAL RULES:
- A move may not leave your own general in check
- The two generals may not face each other on an open file
- No legal move while in check is checkmate; without check it is
  stalemate, and the stalemated side loses
- Repeating a position three times or a long run without captures
  ends the game in a draw

LAYOUT NOTATION:
Ten rows of nine characters, row 0 first. Uppercase is Red, lowercase
is Black, '.' is empty. Letters: g a e h r c s.
Opening position:
rheagaehr
.........
.c.....c.
s.s.s.s.s
.........
.........
S.S.S.S.S
.C.....C.
.........
RHEAGAEHR
`

// Formatting helpers

func formatSessionLine(info *service.SessionInfo) string {
	line := fmt.Sprintf("%s: %s (red) vs %s (black), %s, %d moves",
		info.ID, info.RedName, info.BlackName, info.Status, info.MoveCount)
	if info.Result != nil {
		line += ", " + formatResult(info.Result)
	}
	return line
}

func formatSessionInfo(info *service.SessionInfo) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Game %s\n", info.ID)
	fmt.Fprintf(&b, "Red: %s (%s)\n", info.RedName, info.RedPlayer)
	fmt.Fprintf(&b, "Black: %s (%s)\n", info.BlackName, info.BlackPlayer)
	fmt.Fprintf(&b, "Status: %s\n", info.Status)
	fmt.Fprintf(&b, "Moves: %d\n", info.MoveCount)
	if info.Result != nil {
		fmt.Fprintf(&b, "Result: %s\n", formatResult(info.Result))
	} else {
		fmt.Fprintf(&b, "To move: %s\n", info.Turn)
	}
	if info.State != nil {
		b.WriteString("\n")
		b.WriteString(formatGameState(info.State))
	}
	return b.String()
}

func formatGameState(state *engine.GameState) string {
	var b strings.Builder
	b.WriteString(formatBoard(&state.Board))
	if last := state.LastMove(); last != nil {
		fmt.Fprintf(&b, "\nLast move: %s\n", last)
	}
	return b.String()
}

// formatBoard renders the board with row and column indices
func formatBoard(board *engine.Board) string {
	var b strings.Builder
	b.WriteString("   012345678\n")
	for r, row := range board.Layout() {
		fmt.Fprintf(&b, "%d  %s\n", r, row)
		if r == 4 {
			b.WriteString("   ~~~~~~~~~\n")
		}
	}
	return b.String()
}

func formatResult(r *engine.GameResult) string {
	if r.IsDraw() {
		return fmt.Sprintf("draw (%s)", r.Status)
	}
	s := fmt.Sprintf("%s wins by %s", r.Winner, r.Status)
	if r.Reason != "" {
		s += ": " + r.Reason
	}
	return s
}

func formatHistory(history *service.HistoryResponse) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Move History for %s (Page %d/%d, Total: %d moves)\n\n",
		history.GameID, history.Page, history.TotalPages, history.TotalMoves)
	for _, m := range history.Moves {
		fmt.Fprintf(&b, "%3d. %-5s %s\n", m.Ply, m.Side, m.Move)
	}
	if history.HasNext {
		b.WriteString("\nMore moves on the next page\n")
	}
	return b.String()
}

func formatAnalysis(a *engine.Analysis) string {
	var b strings.Builder
	fmt.Fprintf(&b, "To move: %s\n", a.Turn)
	fmt.Fprintf(&b, "Pieces: red %d, black %d\n", a.RedPieces, a.BlackPieces)
	switch {
	case a.Checkmate:
		fmt.Fprintf(&b, "Checkmate: %s has no legal move while in check\n", a.Turn)
	case a.Stalemate:
		fmt.Fprintf(&b, "Stalemate: %s has no legal move and loses\n", a.Turn)
	case a.InCheck:
		fmt.Fprintf(&b, "%s is in check\n", a.Turn)
	}
	if a.GeneralsFacing {
		b.WriteString("Generals face each other on an open file\n")
	}
	fmt.Fprintf(&b, "Legal moves (%d):\n", len(a.LegalMoves))
	for _, m := range a.LegalMoves {
		fmt.Fprintf(&b, "- %s\n", m)
	}
	return b.String()
}
