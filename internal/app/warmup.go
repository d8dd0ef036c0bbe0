package app

import (
	"context"
	"errors"

	"github.com/giangittb112000/olympia-sub000/internal/domain"
)

var (
	ErrPackAlreadyPlayed   = errors.New("pack already bound to another player")
	ErrPlayerAlreadyPlayed = errors.New("player already bound to another pack")
	ErrPackEmpty           = errors.New("pack has no questions")
)

// WarmUpPreview mirrors the moderator's in-progress selection to all clients
// before setup commits it. Display only, overwritten freely.
func (s *Service) WarmUpPreview(playerID, playerName, packID, packName string) ([]Event, error) {
	if s.coord.Snapshot().Phase != domain.PhaseWarmUp {
		return nil, ErrWrongPhase
	}
	s.coord.MutateWarmUp(func(w *domain.WarmUpState) {
		w.PreviewPlayerID = playerID
		w.PreviewPlayerName = playerName
		w.PreviewPackID = packID
		w.PreviewPackName = packName
	})
	return []Event{{
		Kind: EventPreview,
		Payload: PreviewPayload{
			PlayerID:   playerID,
			PlayerName: playerName,
			PackID:     packID,
			PackName:   packName,
		},
	}}, nil
}

// WarmUpSetup binds the pack to the player and prepares the turn. The
// pack/player binding is permanent for the match: a pack is played by at
// most one player ever and a player plays at most one pack ever. Re-setup
// with the same pair is allowed.
func (s *Service) WarmUpSetup(ctx context.Context, playerID, packID string) ([]Event, error) {
	m := s.coord.Snapshot()
	if m.Phase != domain.PhaseWarmUp || m.WarmUp == nil {
		return nil, ErrWrongPhase
	}
	w := m.WarmUp

	if bound, ok := w.PackBindings[packID]; ok && bound != playerID {
		return nil, ErrPackAlreadyPlayed
	}
	if bound, ok := w.PlayerBindings[playerID]; ok && bound != packID {
		return nil, ErrPlayerAlreadyPlayed
	}

	info, err := s.players.Lookup(ctx, playerID)
	if err != nil {
		return nil, ErrUnknownPlayer
	}
	pack, err := s.bank.WarmUpPack(ctx, packID)
	if err != nil {
		return nil, err
	}
	if len(pack.Questions) == 0 {
		return nil, ErrPackEmpty
	}

	s.coord.MutateWarmUp(func(w *domain.WarmUpState) {
		w.Status = domain.WarmUpReady
		w.PlayerID = playerID
		w.PlayerName = info.Name
		w.PackID = pack.ID
		w.PackName = pack.Name
		w.Questions = pack.Questions
		w.QuestionIndex = 0
		w.Question = pack.Questions[0]
		w.TimeLeft = s.cfg.WarmUpSeconds
		w.TurnScore = 0
		w.LastVerdict = ""
		w.LastVerdictAt = 0
		w.PreviewPlayerID = ""
		w.PreviewPlayerName = ""
		w.PreviewPackID = ""
		w.PreviewPackName = ""

		w.PackBindings[packID] = playerID
		w.PlayerBindings[playerID] = packID
	})
	return nil, nil
}

// WarmUpStart begins the turn and its countdown.
func (s *Service) WarmUpStart() ([]Event, error) {
	m := s.coord.Snapshot()
	if m.Phase != domain.PhaseWarmUp || m.WarmUp == nil {
		return nil, ErrWrongPhase
	}
	if m.WarmUp.Status != domain.WarmUpReady {
		return nil, ErrWrongStatus
	}
	s.coord.MutateWarmUp(func(w *domain.WarmUpState) {
		w.Status = domain.WarmUpPlaying
	})
	s.coord.StartCountdown(domain.RoundWarmUp)
	return nil, nil
}

// WarmUpGrade records the moderator's verdict for the current question. A
// correct answer grants the fixed reward, persisted through the player
// directory immediately. Every verdict advances to the next question; an
// exhausted pack ends the turn.
func (s *Service) WarmUpGrade(ctx context.Context, verdict string) ([]Event, error) {
	m := s.coord.Snapshot()
	if m.Phase != domain.PhaseWarmUp || m.WarmUp == nil {
		return nil, ErrWrongPhase
	}
	w := m.WarmUp
	if w.Status != domain.WarmUpPlaying {
		return nil, ErrWrongStatus
	}
	switch verdict {
	case domain.VerdictCorrect, domain.VerdictWrong, domain.VerdictPass:
	default:
		return nil, ErrBadVerdict
	}

	var events []Event
	if verdict == domain.VerdictCorrect {
		if err := s.players.AddScore(ctx, w.PlayerID, domain.CategoryWarmUp, domain.WarmUpCorrectPoints); err != nil {
			return nil, err
		}
		events = append(events, Event{
			Kind: EventScoreChanged,
			Payload: ScoreChangedPayload{
				PlayerID: w.PlayerID,
				Category: domain.CategoryWarmUp,
				Delta:    domain.WarmUpCorrectPoints,
			},
		})
	}

	now := s.nowMillis()
	s.coord.MutateWarmUp(func(w *domain.WarmUpState) {
		if verdict == domain.VerdictCorrect {
			w.TurnScore += domain.WarmUpCorrectPoints
		}
		w.LastVerdict = verdict
		w.LastVerdictAt = now

		w.QuestionIndex++
		if w.QuestionIndex >= len(w.Questions) {
			w.Status = domain.WarmUpFinished
		} else {
			w.Question = w.Questions[w.QuestionIndex]
		}
	})
	if s.coord.Snapshot().WarmUp.Status == domain.WarmUpFinished {
		s.coord.StopCountdown(domain.RoundWarmUp)
		events = append(events, Event{Kind: EventRoundFinished, Payload: RoundFinishedPayload{Round: string(domain.RoundWarmUp)}})
	}
	return events, nil
}

// WarmUpReset returns the round to idle for the next turn. The permanent
// pack/player bindings survive.
func (s *Service) WarmUpReset() ([]Event, error) {
	m := s.coord.Snapshot()
	if m.Phase != domain.PhaseWarmUp || m.WarmUp == nil {
		return nil, ErrWrongPhase
	}
	s.coord.StopCountdown(domain.RoundWarmUp)
	s.coord.MutateWarmUp(func(w *domain.WarmUpState) {
		packs, players := w.PackBindings, w.PlayerBindings
		*w = *domain.NewWarmUpState()
		w.PackBindings = packs
		w.PlayerBindings = players
	})
	return nil, nil
}

// warmUpExpire ends the turn unconditionally when the countdown hits zero,
// regardless of how many questions remain.
func (s *Service) warmUpExpire() []Event {
	s.coord.MutateWarmUp(func(w *domain.WarmUpState) {
		w.Status = domain.WarmUpFinished
		w.TimeLeft = 0
	})
	return []Event{{Kind: EventRoundFinished, Payload: RoundFinishedPayload{Round: string(domain.RoundWarmUp)}}}
}
