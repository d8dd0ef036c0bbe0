package domain

// WarmUpStatus is the lifecycle stage of a warm-up turn.
type WarmUpStatus string

const (
	WarmUpIdle     WarmUpStatus = "IDLE"
	WarmUpReady    WarmUpStatus = "READY"
	WarmUpPlaying  WarmUpStatus = "PLAYING"
	WarmUpFinished WarmUpStatus = "FINISHED"
)

// Verdicts a moderator can give on an answer.
const (
	VerdictCorrect = "CORRECT"
	VerdictWrong   = "WRONG"
	VerdictPass    = "PASS"
	VerdictNone    = "NONE"
)

// WarmUpQuestion is one entry of a warm-up question pack.
type WarmUpQuestion struct {
	ID          string `json:"id"`
	Content     string `json:"content"`
	Description string `json:"description,omitempty"`
}

// WarmUpState holds the state of the warm-up round. A pack is played by at
// most one player ever and a player plays at most one pack ever; the bindings
// maps record that permanently for the lifetime of the match.
type WarmUpState struct {
	Status WarmUpStatus `json:"status"`

	PlayerID   string `json:"player_id"`
	PlayerName string `json:"player_name"`
	PackID     string `json:"pack_id"`
	PackName   string `json:"pack_name"`

	Questions     []WarmUpQuestion `json:"questions,omitempty"`
	QuestionIndex int              `json:"question_index"`
	Question      WarmUpQuestion   `json:"question"`

	TimeLeft  int `json:"time_left"`
	TurnScore int `json:"turn_score"`

	LastVerdict   string `json:"last_verdict"`
	LastVerdictAt int64  `json:"last_verdict_at"`

	// Uncommitted MC selection mirrored to clients for display only.
	PreviewPlayerID   string `json:"preview_player_id"`
	PreviewPlayerName string `json:"preview_player_name"`
	PreviewPackID     string `json:"preview_pack_id"`
	PreviewPackName   string `json:"preview_pack_name"`

	PackBindings   map[string]string `json:"pack_bindings"`   // pack id -> player id
	PlayerBindings map[string]string `json:"player_bindings"` // player id -> pack id
}

// NewWarmUpState returns the canonical starting state for the round.
func NewWarmUpState() *WarmUpState {
	return &WarmUpState{
		Status:         WarmUpIdle,
		PackBindings:   map[string]string{},
		PlayerBindings: map[string]string{},
	}
}

func (s *WarmUpState) withDefaults() {
	if s.Status == "" {
		s.Status = WarmUpIdle
	}
	if s.PackBindings == nil {
		s.PackBindings = map[string]string{}
	}
	if s.PlayerBindings == nil {
		s.PlayerBindings = map[string]string{}
	}
	if s.QuestionIndex < 0 {
		s.QuestionIndex = 0
	}
	if s.QuestionIndex > len(s.Questions) {
		s.QuestionIndex = len(s.Questions)
	}
}
