package domain

// FinishStatus is the lifecycle stage of the finish line round.
type FinishStatus string

const (
	FinishIdle            FinishStatus = "IDLE"
	FinishPackSelection   FinishStatus = "PACK_SELECTION"
	FinishStarSelection   FinishStatus = "STAR_SELECTION"
	FinishPlayingQuestion FinishStatus = "PLAYING_QUESTION"
	FinishFinished        FinishStatus = "FINISHED"
)

// MediaTypeVideo marks questions whose timer waits for playback to end.
const MediaTypeVideo = "video"

// FinishAnswer is a submitted answer awaiting or carrying a verdict. An empty
// Verdict means the answer is parked pending moderator review.
type FinishAnswer struct {
	PlayerID    string `json:"player_id"`
	Text        string `json:"text"`
	SubmittedAt int64  `json:"submitted_at"`
	Verdict     string `json:"verdict"`
}

// FinishQuestion is one question of an assigned pack. The pack's point value
// is stamped on every question at generation time.
type FinishQuestion struct {
	ID            string         `json:"id"`
	Value         int            `json:"value"`
	Text          string         `json:"text"`
	MediaURL      string         `json:"media_url,omitempty"`
	MediaType     string         `json:"media_type,omitempty"`
	Answer        string         `json:"answer,omitempty"` // reference answer for the MC
	StarActivated bool           `json:"star_activated"`
	OwnerAnswer   *FinishAnswer  `json:"owner_answer,omitempty"`
	Steals        []FinishAnswer `json:"steals,omitempty"`
}

// PendingSteal returns the ungraded steal attempt, or nil. At most one may
// exist at a time.
func (q *FinishQuestion) PendingSteal() *FinishAnswer {
	for i := range q.Steals {
		if q.Steals[i].Verdict == "" {
			return &q.Steals[i]
		}
	}
	return nil
}

// StealBy returns the steal attempt submitted by the player, or nil.
func (q *FinishQuestion) StealBy(playerID string) *FinishAnswer {
	for i := range q.Steals {
		if q.Steals[i].PlayerID == playerID {
			return &q.Steals[i]
		}
	}
	return nil
}

// FinishPack is the question pack currently owned by the selecting player.
type FinishPack struct {
	ID        string           `json:"id"`
	Value     int              `json:"value"`
	OwnerID   string           `json:"owner_id"`
	OwnerName string           `json:"owner_name"`
	Questions []FinishQuestion `json:"questions"`
}

// FinishBuzz is one queued steal-buzz attempt.
type FinishBuzz struct {
	PlayerID   string `json:"player_id"`
	PlayerName string `json:"player_name"`
	BuzzedAt   int64  `json:"buzzed_at"`
}

// FinishLineState holds the state of the finish line round.
type FinishLineState struct {
	Status FinishStatus `json:"status"`

	SelectingPlayerID string `json:"selecting_player_id"`

	StarUsedIDs []string `json:"star_used_ids"` // permanent for the whole match

	AvailablePacks map[int]int `json:"available_packs"` // point value -> remaining count

	CurrentPack   *FinishPack `json:"current_pack,omitempty"`
	QuestionIndex int         `json:"question_index"` // -1 when no question is active

	TimerRunning bool `json:"timer_running"`
	TimeLeft     int  `json:"time_left"`
	WaitingVideo bool `json:"waiting_video"`

	BuzzerEnabled bool         `json:"buzzer_enabled"`
	BuzzQueue     []FinishBuzz `json:"buzz_queue"`
	StealerID     string       `json:"stealer_id"`

	FinishedPlayerIDs []string `json:"finished_player_ids"`
}

// NewFinishLineState returns the canonical starting state for the round.
func NewFinishLineState() *FinishLineState {
	return &FinishLineState{
		Status:         FinishIdle,
		QuestionIndex:  -1,
		AvailablePacks: map[int]int{},
	}
}

func (s *FinishLineState) withDefaults() {
	if s.Status == "" {
		s.Status = FinishIdle
	}
	if s.AvailablePacks == nil {
		s.AvailablePacks = map[int]int{}
	}
	if s.CurrentPack == nil {
		s.QuestionIndex = -1
	} else if s.QuestionIndex >= len(s.CurrentPack.Questions) {
		s.QuestionIndex = len(s.CurrentPack.Questions) - 1
	}
}

// ActiveQuestion returns the question at the current index, or nil.
func (s *FinishLineState) ActiveQuestion() *FinishQuestion {
	if s.CurrentPack == nil || s.QuestionIndex < 0 || s.QuestionIndex >= len(s.CurrentPack.Questions) {
		return nil
	}
	return &s.CurrentPack.Questions[s.QuestionIndex]
}

// HasStarUsed reports whether the player has spent their one-time star.
func (s *FinishLineState) HasStarUsed(playerID string) bool {
	for _, id := range s.StarUsedIDs {
		if id == playerID {
			return true
		}
	}
	return false
}

// UseStar records the player's star use exactly once.
func (s *FinishLineState) UseStar(playerID string) {
	if !s.HasStarUsed(playerID) {
		s.StarUsedIDs = append(s.StarUsedIDs, playerID)
	}
}

// HasFinished reports whether the player already completed their full turn.
func (s *FinishLineState) HasFinished(playerID string) bool {
	for _, id := range s.FinishedPlayerIDs {
		if id == playerID {
			return true
		}
	}
	return false
}

// MarkFinished appends the player to the finished list exactly once.
func (s *FinishLineState) MarkFinished(playerID string) {
	if !s.HasFinished(playerID) {
		s.FinishedPlayerIDs = append(s.FinishedPlayerIDs, playerID)
	}
}

// InBuzzQueue reports whether the player already buzzed this window.
func (s *FinishLineState) InBuzzQueue(playerID string) bool {
	for _, b := range s.BuzzQueue {
		if b.PlayerID == playerID {
			return true
		}
	}
	return false
}

// RemoveFromBuzzQueue drops the player's buzz entry if present.
func (s *FinishLineState) RemoveFromBuzzQueue(playerID string) {
	queue := s.BuzzQueue[:0]
	for _, b := range s.BuzzQueue {
		if b.PlayerID != playerID {
			queue = append(queue, b)
		}
	}
	s.BuzzQueue = queue
}

// ClearBuzzer tears down the whole buzzer apparatus for the question.
func (s *FinishLineState) ClearBuzzer() {
	s.BuzzerEnabled = false
	s.BuzzQueue = nil
	s.StealerID = ""
}
