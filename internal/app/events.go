package app

// EventKind identifies advisory events emitted alongside state mutations.
// These are hints for client UI refresh; the full-state snapshot broadcast
// after every mutation remains the ground truth.
type EventKind string

const (
	EventBuzz           EventKind = "buzz"
	EventPreview        EventKind = "preview"
	EventScoreChanged   EventKind = "score_changed"
	EventRoundFinished  EventKind = "round_finished"
	EventTimerExpired   EventKind = "timer_expired"
	EventStealAwarded   EventKind = "steal_awarded"
	EventAnswerReceived EventKind = "answer_received"
)

// Event is an advisory event with optional targeted recipients.
type Event struct {
	Kind       EventKind
	Payload    any
	Recipients []string // user ids; empty means broadcast
}

// BuzzPayload announces that a player just buzzed.
type BuzzPayload struct {
	Round      string `json:"round"`
	PlayerID   string `json:"player_id"`
	PlayerName string `json:"player_name"`
	Order      int    `json:"order,omitempty"`
}

// PreviewPayload mirrors the moderator's uncommitted warm-up selection.
type PreviewPayload struct {
	PlayerID   string `json:"player_id"`
	PlayerName string `json:"player_name"`
	PackID     string `json:"pack_id"`
	PackName   string `json:"pack_name"`
}

// ScoreChangedPayload announces a ranking-relevant score delta.
type ScoreChangedPayload struct {
	PlayerID string `json:"player_id"`
	Category string `json:"category"`
	Delta    int    `json:"delta"`
}

// RoundFinishedPayload announces that a round reached its terminal status.
type RoundFinishedPayload struct {
	Round string `json:"round"`
}

// TimerExpiredPayload announces that a round countdown reached zero.
type TimerExpiredPayload struct {
	Round string `json:"round"`
}

// AnswerReceivedPayload announces a submission without carrying its text.
type AnswerReceivedPayload struct {
	Round    string `json:"round"`
	PlayerID string `json:"player_id"`
}
