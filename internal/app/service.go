package app

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/giangittb112000/olympia-sub000/internal/config"
	"github.com/giangittb112000/olympia-sub000/internal/domain"
	"github.com/giangittb112000/olympia-sub000/internal/ports"
)

// Errors shared across round services. Every admissibility failure is a
// sentinel so the transport layer can surface it to the acting client
// without mutating state.
var (
	ErrWrongStatus      = errors.New("action not admissible in current round status")
	ErrWrongPhase       = errors.New("round is not the active phase")
	ErrUnknownPlayer    = errors.New("player not found")
	ErrAlreadySubmitted = errors.New("answer already submitted")
	ErrBadVerdict       = errors.New("unknown verdict")
)

// Service contains the quiz match use-cases. All methods mutate state
// exclusively through the coordinator and return advisory events for the
// transport layer to dispatch; the full-state snapshot broadcast after every
// successful call is handled by the caller.
type Service struct {
	coord   *Coordinator
	players ports.PlayerDirectory
	bank    ports.QuestionBank
	cfg     *config.RoundConfig

	newID func() string
}

// NewService constructs a Service with the required collaborators. cfg may
// be nil to use defaults.
func NewService(coord *Coordinator, players ports.PlayerDirectory, bank ports.QuestionBank, cfg *config.RoundConfig) *Service {
	if cfg == nil {
		cfg = config.GetRoundConfig()
	}
	return &Service{
		coord:   coord,
		players: players,
		bank:    bank,
		cfg:     cfg,
		newID:   uuid.NewString,
	}
}

// Coordinator exposes the underlying coordinator for snapshot reads.
func (s *Service) Coordinator() *Coordinator {
	return s.coord
}

// SetPhase transitions the match to the given phase, initializing the
// round's sub-state when it is entered for the first time. Entering the
// obstacles phase also loads the configured resource into the fresh state.
func (s *Service) SetPhase(ctx context.Context, phase domain.Phase) ([]Event, error) {
	switch phase {
	case domain.PhaseIdle, domain.PhaseWarmUp, domain.PhaseObstacles, domain.PhaseAcceleration, domain.PhaseFinish:
	default:
		return nil, ErrWrongPhase
	}

	firstObstacleEntry := phase == domain.PhaseObstacles && s.coord.Snapshot().Obstacles == nil
	s.coord.SetPhase(phase)

	if firstObstacleEntry {
		res, err := s.bank.ObstacleResource(ctx)
		if err == nil {
			s.coord.MutateObstacles(func(o *domain.ObstacleState) {
				o.ImageURL = res.ImageURL
				o.Keyword = res.Keyword
			})
		}
		// A resource lookup miss degrades to an empty board rather than
		// blocking the phase change; row selection will retry the read.
	}
	return nil, nil
}

// Tick advances the coordinator countdowns by one second and applies the
// round-specific expiry behavior for any countdown that reached zero.
// playerIDs are the currently connected contestant ids, needed to record
// missing-answer sentinels at acceleration timeout. The changed result tells
// the caller whether a snapshot broadcast is warranted.
func (s *Service) Tick(ctx context.Context, playerIDs []string) (events []Event, changed bool) {
	expired, changed := s.coord.TickCountdowns()
	for _, round := range expired {
		events = append(events, Event{Kind: EventTimerExpired, Payload: TimerExpiredPayload{Round: string(round)}})
		switch round {
		case domain.RoundWarmUp:
			events = append(events, s.warmUpExpire()...)
		case domain.RoundObstacles:
			events = append(events, s.obstacleExpire()...)
		case domain.RoundAcceleration:
			events = append(events, s.accelerationExpire(playerIDs)...)
		case domain.RoundFinish:
			s.finishExpire()
		}
	}
	return events, changed
}

func (s *Service) nowMillis() int64 {
	return s.coord.Now()
}
