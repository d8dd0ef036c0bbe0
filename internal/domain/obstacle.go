package domain

// ObstacleStatus is the lifecycle stage of the obstacles round.
type ObstacleStatus string

const (
	ObstacleIdle        ObstacleStatus = "IDLE"
	ObstacleShowRow     ObstacleStatus = "SHOW_ROW"
	ObstacleThinking    ObstacleStatus = "THINKING"
	ObstacleRowGrading  ObstacleStatus = "ROW_GRADING"
	ObstacleCnvGuessing ObstacleStatus = "CNV_GUESSING"
	ObstacleFinished    ObstacleStatus = "FINISHED"
)

const (
	// ObstacleRows is the number of answerable rows, each guarding one
	// corner piece of the image.
	ObstacleRows = 4
	// ObstaclePieces counts the four corner pieces plus the center
	// keyword piece.
	ObstaclePieces = 5
	// ObstacleCenterPiece is the index of the center piece.
	ObstacleCenterPiece = 4
)

// ObstacleAnswer is one player's free-text answer for the active row.
type ObstacleAnswer struct {
	Text        string `json:"text"`
	SubmittedAt int64  `json:"submitted_at"`
}

// ObstacleBuzz is one queued keyword-guess attempt.
type ObstacleBuzz struct {
	PlayerID   string `json:"player_id"`
	PlayerName string `json:"player_name"`
	Order      int    `json:"order"`
	BuzzedAt   int64  `json:"buzzed_at"`
	Processed  bool   `json:"processed"`
}

// ObstacleState holds the state of the obstacles round. Row questions and
// answers are not stored here; they live in the backing resource and only
// revealed content is mirrored into the state tree.
type ObstacleState struct {
	Status ObstacleStatus `json:"status"`

	ImageURL       string               `json:"image_url"`
	ImageRevealed  bool                 `json:"image_revealed"`
	RevealedPieces [ObstaclePieces]bool `json:"revealed_pieces"`

	Keyword string `json:"keyword"`

	SelectedRow     int    `json:"selected_row"` // -1 when no row is active
	RowQuestion     string `json:"row_question"`
	RowAnswerLength int    `json:"row_answer_length"`

	RowLengths  [ObstacleRows]int    `json:"row_lengths"`  // 0 until the row is first selected
	RowContents [ObstacleRows]string `json:"row_contents"` // "" until revealed
	RowRevealed [ObstacleRows]bool   `json:"row_revealed"`
	RowSkipped  [ObstacleRows]bool   `json:"row_skipped"`

	TimeLeft int `json:"time_left"`

	Answers  map[string]ObstacleAnswer `json:"answers"`  // player id -> answer
	Gradings map[string]string         `json:"gradings"` // player id -> verdict

	BuzzQueue  []ObstacleBuzz `json:"buzz_queue"`
	BuzzLocked bool           `json:"buzz_locked"`

	EliminatedIDs []string `json:"eliminated_ids"`
}

// NewObstacleState returns the canonical starting state for the round.
func NewObstacleState() *ObstacleState {
	return &ObstacleState{
		Status:      ObstacleIdle,
		SelectedRow: -1,
		Answers:     map[string]ObstacleAnswer{},
		Gradings:    map[string]string{},
	}
}

func (s *ObstacleState) withDefaults() {
	if s.Status == "" {
		s.Status = ObstacleIdle
	}
	if s.SelectedRow < -1 || s.SelectedRow >= ObstacleRows {
		s.SelectedRow = -1
	}
	if s.Answers == nil {
		s.Answers = map[string]ObstacleAnswer{}
	}
	if s.Gradings == nil {
		s.Gradings = map[string]string{}
	}
}

// IsEliminated reports whether the player is barred from keyword guessing.
func (s *ObstacleState) IsEliminated(playerID string) bool {
	for _, id := range s.EliminatedIDs {
		if id == playerID {
			return true
		}
	}
	return false
}

// Eliminate adds the player to the eliminated set exactly once.
func (s *ObstacleState) Eliminate(playerID string) {
	if !s.IsEliminated(playerID) {
		s.EliminatedIDs = append(s.EliminatedIDs, playerID)
	}
}

// PendingBuzz returns the unprocessed buzz entry for the player, or nil.
func (s *ObstacleState) PendingBuzz(playerID string) *ObstacleBuzz {
	for i := range s.BuzzQueue {
		if s.BuzzQueue[i].PlayerID == playerID && !s.BuzzQueue[i].Processed {
			return &s.BuzzQueue[i]
		}
	}
	return nil
}

// RowClosed reports whether the row has reached a terminal outcome.
func (s *ObstacleState) RowClosed(row int) bool {
	return s.RowRevealed[row] || s.RowSkipped[row]
}

// RevealedCorners counts revealed corner pieces, the keyword scoring input.
func (s *ObstacleState) RevealedCorners() int {
	n := 0
	for i := 0; i < ObstacleCenterPiece; i++ {
		if s.RevealedPieces[i] {
			n++
		}
	}
	return n
}

// ClearActiveRow drops the selected row and its transient answers/gradings.
func (s *ObstacleState) ClearActiveRow() {
	s.SelectedRow = -1
	s.RowQuestion = ""
	s.RowAnswerLength = 0
	s.TimeLeft = 0
	s.Answers = map[string]ObstacleAnswer{}
	s.Gradings = map[string]string{}
}
