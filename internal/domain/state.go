package domain

// Phase represents the active segment of the match.
type Phase string

const (
	// PhaseIdle is the pre-game state before any round has started.
	PhaseIdle Phase = "IDLE"
	// PhaseWarmUp is the individual rapid-fire question round.
	PhaseWarmUp Phase = "WARMUP"
	// PhaseObstacles is the hidden-image keyword round.
	PhaseObstacles Phase = "OBSTACLES"
	// PhaseAcceleration is the speed-ranked media question round.
	PhaseAcceleration Phase = "ACCELERATION"
	// PhaseFinish is the pack-selection finale round.
	PhaseFinish Phase = "FINISH"
)

// Round tags one of the four playable rounds, used for timer ownership.
type Round string

const (
	RoundWarmUp       Round = "warmup"
	RoundObstacles    Round = "obstacles"
	RoundAcceleration Round = "acceleration"
	RoundFinish       Round = "finish"
)

// Score categories tracked per player. The total is adjusted alongside the
// category so a single atomic wallet call carries both.
const (
	CategoryWarmUp       = "warmup"
	CategoryObstacles    = "obstacle"
	CategoryAcceleration = "acceleration"
	CategoryFinish       = "finish"
	CategoryTotal        = "total"
)

// Match is the root aggregate for the single active match. Round sub-states
// stay nil until the round has been entered at least once.
type Match struct {
	Phase     Phase `json:"phase"`
	UpdatedAt int64 `json:"updated_at"` // unix millis of last mutation

	WarmUp       *WarmUpState       `json:"warmup,omitempty"`
	Obstacles    *ObstacleState     `json:"obstacles,omitempty"`
	Acceleration *AccelerationState `json:"acceleration,omitempty"`
	Finish       *FinishLineState   `json:"finish,omitempty"`
}

// NewMatch returns a fresh match in the idle phase with no round state.
func NewMatch() *Match {
	return &Match{Phase: PhaseIdle}
}

// WithDefaults rehydrates a match loaded from storage, filling any field an
// older document may be missing so partial documents load cleanly.
func (m *Match) WithDefaults() *Match {
	if m.Phase == "" {
		m.Phase = PhaseIdle
	}
	if m.WarmUp != nil {
		m.WarmUp.withDefaults()
	}
	if m.Obstacles != nil {
		m.Obstacles.withDefaults()
	}
	if m.Acceleration != nil {
		m.Acceleration.withDefaults()
	}
	if m.Finish != nil {
		m.Finish.withDefaults()
	}
	return m
}
