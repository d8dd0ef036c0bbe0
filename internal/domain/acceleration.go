package domain

// AccelerationStatus is the lifecycle stage of the acceleration round.
type AccelerationStatus string

const (
	AccelerationIdle     AccelerationStatus = "IDLE"
	AccelerationPlaying  AccelerationStatus = "PLAYING"
	AccelerationGrading  AccelerationStatus = "GRADING"
	AccelerationFinished AccelerationStatus = "FINISHED"
)

// AccelerationQuestions is the fixed number of questions in the round.
const AccelerationQuestions = 4

// NoAnswerText is recorded for players who did not submit before timeout.
const NoAnswerText = "(no answer)"

// AccelerationQuestion is one media question of the round.
type AccelerationQuestion struct {
	Number   int    `json:"number"`
	Text     string `json:"text"`
	MediaURL string `json:"media_url,omitempty"`
	Answer   string `json:"answer,omitempty"` // reference answer for the MC
}

// AccelerationAnswer is one player's submission for the active question.
// Correct stays nil until the moderator grades it; Points is recomputed from
// the full answer set on every grade.
type AccelerationAnswer struct {
	ID          string `json:"id"`
	PlayerID    string `json:"player_id"`
	PlayerName  string `json:"player_name"`
	Text        string `json:"text"`
	SubmittedAt int64  `json:"submitted_at"`
	TimeLeft    int    `json:"time_left"` // seconds remaining at submission
	Correct     *bool  `json:"correct,omitempty"`
	Points      int    `json:"points"`
}

// AccelerationState holds the state of the acceleration round.
type AccelerationState struct {
	Status AccelerationStatus `json:"status"`

	QuestionNumber int                  `json:"question_number"` // 0 before start, then 1..4
	Question       AccelerationQuestion `json:"question"`

	TimerRunning bool `json:"timer_running"`
	TimeLeft     int  `json:"time_left"`

	Answers []AccelerationAnswer `json:"answers"`
}

// NewAccelerationState returns the canonical starting state for the round.
func NewAccelerationState() *AccelerationState {
	return &AccelerationState{Status: AccelerationIdle}
}

func (s *AccelerationState) withDefaults() {
	if s.Status == "" {
		s.Status = AccelerationIdle
	}
	if s.QuestionNumber < 0 {
		s.QuestionNumber = 0
	}
	if s.QuestionNumber > AccelerationQuestions {
		s.QuestionNumber = AccelerationQuestions
	}
	if s.Answers == nil {
		s.Answers = []AccelerationAnswer{}
	}
}

// AnswerBy returns the answer submitted by the player for the active
// question, or nil if they have not submitted.
func (s *AccelerationState) AnswerBy(playerID string) *AccelerationAnswer {
	for i := range s.Answers {
		if s.Answers[i].PlayerID == playerID {
			return &s.Answers[i]
		}
	}
	return nil
}
