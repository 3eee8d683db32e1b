package service

import (
	"time"

	"github.com/wricardo/game2048/game/engine"
)

// Limits
const (
	MaxBulkMoves     = 100
	MaxAutoplaySteps = 1000
)

// Event types
const (
	EventMove     = "move"
	EventNoMove   = "no_move"
	EventGameOver = "game_over"
	EventNewBest  = "new_best"
	EventUndo     = "undo"
	EventNewGame  = "new_game"
	EventImport   = "import"
)

// GameState is the view of a session's game returned to clients
type GameState struct {
	Board         engine.Board `json:"board"`
	Size          int          `json:"size"`
	Score         int          `json:"score"`
	Best          int          `json:"best"`
	MaxTile       int          `json:"max_tile"`
	EmptyCells    int          `json:"empty_cells"`
	GameOver      bool         `json:"game_over"`
	CanUndo       bool         `json:"can_undo"`
	UndoDepth     int          `json:"undo_depth"`
	TotalMoves    int          `json:"total_moves"`
	PossibleMoves []string     `json:"possible_moves"`
	Message       string       `json:"message,omitempty"`
}

// SessionInfo provides information about a game session
type SessionInfo struct {
	ID             string         `json:"id"`
	ConfigName     string         `json:"config_name"`
	CreatedAt      time.Time      `json:"created_at"`
	LastAccessedAt time.Time      `json:"last_accessed_at"`
	GameState      *GameState     `json:"game_state"`
	GameConfig     *engine.Config `json:"game_config"`
}

// MoveResult contains the result of a move operation
type MoveResult struct {
	Success   bool        `json:"success"`
	Direction string      `json:"direction"`
	ScoreGain int         `json:"score_gain"`
	GameState *GameState  `json:"game_state"`
	Message   string      `json:"message"`
	Events    []GameEvent `json:"events,omitempty"`
}

// BulkMoveResult contains the result of several moves, requested or chosen
// by an auto-player
type BulkMoveResult struct {
	MovesExecuted  int         `json:"moves_executed"`
	RequestedMoves int         `json:"requested_moves"`
	ChangedMoves   int         `json:"changed_moves"`
	Strategy       string      `json:"strategy,omitempty"`
	StartScore     int         `json:"start_score"`
	EndScore       int         `json:"end_score"`
	ScoreDelta     int         `json:"score_delta"`
	Steps          []StepInfo  `json:"steps,omitempty"`
	StoppedReason  string      `json:"stopped_reason,omitempty"`
	GameOver       bool        `json:"game_over"`
	GameState      *GameState  `json:"game_state"`
	Events         []GameEvent `json:"events"`
	Truncated      bool        `json:"truncated,omitempty"`
	Limit          int         `json:"limit,omitempty"`
}

// StepInfo is a compact record of one executed move
type StepInfo struct {
	Idx       int    `json:"idx"`
	Dir       string `json:"dir"`
	Changed   bool   `json:"changed"`
	ScoreGain int    `json:"score_gain"`
	Score     int    `json:"score"`
	MaxTile   int    `json:"max_tile"`
}

// GameEvent represents something that happened in a session
type GameEvent struct {
	Type      string    `json:"type"`
	SessionID string    `json:"session_id"`
	Message   string    `json:"message,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Direction string    `json:"direction,omitempty"`
	ScoreGain int       `json:"score_gain,omitempty"`
	Score     int       `json:"score"`
	Best      int       `json:"best"`
	MaxTile   int       `json:"max_tile"`
}

// MoveHistoryEntry records a single move attempt
type MoveHistoryEntry struct {
	Direction  string `json:"direction"`
	Changed    bool   `json:"changed"`
	ScoreGain  int    `json:"score_gain"`
	Score      int    `json:"score"`
	MaxTile    int    `json:"max_tile"`
	Timestamp  int64  `json:"timestamp"`
	MoveNumber int    `json:"move_number"`
}

// HistoryOptions configures move history retrieval
type HistoryOptions struct {
	Page  int    `json:"page"`
	Limit int    `json:"limit"`
	Order string `json:"order"` // "asc" or "desc"
}

// HistoryResponse contains paginated move history
type HistoryResponse struct {
	Moves       []MoveHistoryEntry `json:"moves"`
	TotalMoves  int                `json:"total_moves"`
	Page        int                `json:"page"`
	PageSize    int                `json:"page_size"`
	TotalPages  int                `json:"total_pages"`
	HasNext     bool               `json:"has_next"`
	HasPrevious bool               `json:"has_previous"`
}

// ConfigInfo provides information about a rule variant
type ConfigInfo struct {
	Filename        string  `json:"filename,omitempty"`
	ConfigID        string  `json:"config_id"` // The identifier to use for session creation
	Name            string  `json:"name"`
	Description     string  `json:"description"`
	Size            int     `json:"size"`
	StartTiles      int     `json:"start_tiles"`
	FourProbability float64 `json:"four_probability"`
}
