package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/giangittb112000/olympia-sub000/internal/domain"
)

var ErrNoResource = errors.New("round resource not configured")

func (s *Service) acceleration() (*domain.AccelerationState, error) {
	m := s.coord.Snapshot()
	if m.Phase != domain.PhaseAcceleration || m.Acceleration == nil {
		return nil, ErrWrongPhase
	}
	return m.Acceleration, nil
}

func (s *Service) accelerationQuestion(ctx context.Context, number int) (domain.AccelerationQuestion, error) {
	res, err := s.bank.AccelerationResource(ctx)
	if err != nil {
		return domain.AccelerationQuestion{}, err
	}
	if number < 1 || number > len(res.Questions) {
		return domain.AccelerationQuestion{}, ErrNoResource
	}
	q := res.Questions[number-1]
	q.Number = number
	return q, nil
}

// AccelerationStartRound loads question one and opens it for play. The
// countdown is started separately.
func (s *Service) AccelerationStartRound(ctx context.Context) ([]Event, error) {
	a, err := s.acceleration()
	if err != nil {
		return nil, err
	}
	if a.Status != domain.AccelerationIdle {
		return nil, ErrWrongStatus
	}
	q, err := s.accelerationQuestion(ctx, 1)
	if err != nil {
		return nil, err
	}
	s.coord.MutateAcceleration(func(a *domain.AccelerationState) {
		a.Status = domain.AccelerationPlaying
		a.QuestionNumber = 1
		a.Question = q
		a.Answers = nil
		a.TimeLeft = s.cfg.AccelerationSeconds
		a.TimerRunning = false
	})
	return nil, nil
}

// AccelerationStartTimer begins the countdown for the active question.
func (s *Service) AccelerationStartTimer() ([]Event, error) {
	a, err := s.acceleration()
	if err != nil {
		return nil, err
	}
	if a.Status != domain.AccelerationPlaying || a.QuestionNumber == 0 {
		return nil, ErrWrongStatus
	}
	s.coord.MutateAcceleration(func(a *domain.AccelerationState) {
		a.TimerRunning = true
	})
	s.coord.StartCountdown(domain.RoundAcceleration)
	return nil, nil
}

// AccelerationSubmitAnswer records a player's answer for the active
// question, at most once per player per question. Submissions are accepted
// only while the countdown is running - up to and including the instant the
// timer reaches zero, deliberately allowing a last-moment race to register -
// never in the window between the question being shown and the timer start.
func (s *Service) AccelerationSubmitAnswer(ctx context.Context, playerID, text string) ([]Event, error) {
	a, err := s.acceleration()
	if err != nil {
		return nil, err
	}
	if a.Status != domain.AccelerationPlaying || !a.TimerRunning {
		return nil, ErrWrongStatus
	}
	if a.AnswerBy(playerID) != nil {
		return nil, ErrAlreadySubmitted
	}

	info, err := s.players.Lookup(ctx, playerID)
	if err != nil {
		return nil, ErrUnknownPlayer
	}

	now := s.nowMillis()
	s.coord.MutateAcceleration(func(a *domain.AccelerationState) {
		a.Answers = append(a.Answers, domain.AccelerationAnswer{
			ID:          s.newID(),
			PlayerID:    playerID,
			PlayerName:  info.Name,
			Text:        text,
			SubmittedAt: now,
			TimeLeft:    a.TimeLeft,
		})
	})
	return []Event{{
		Kind:    EventAnswerReceived,
		Payload: AnswerReceivedPayload{Round: string(domain.RoundAcceleration), PlayerID: playerID},
	}}, nil
}

// accelerationExpire records the missing-answer sentinel for every connected
// player without a submission and moves the question into grading, so each
// player has exactly one answer record once grading begins.
func (s *Service) accelerationExpire(playerIDs []string) []Event {
	now := s.nowMillis()
	s.coord.MutateAcceleration(func(a *domain.AccelerationState) {
		for _, pid := range playerIDs {
			if a.AnswerBy(pid) != nil {
				continue
			}
			a.Answers = append(a.Answers, domain.AccelerationAnswer{
				ID:          s.newID(),
				PlayerID:    pid,
				Text:        domain.NoAnswerText,
				SubmittedAt: now,
				TimeLeft:    0,
			})
		}
		a.TimerRunning = false
		a.TimeLeft = 0
		a.Status = domain.AccelerationGrading
	})
	return nil
}

// AccelerationGrade marks one player's answer and recomputes points for the
// whole question from the full answer set, ranked by submission time. Any
// previously credited points that no longer hold are retracted, so grading
// order never affects the final distribution. A directory failure is
// reported alongside the emitted events but never rolls back the committed
// grade.
func (s *Service) AccelerationGrade(ctx context.Context, playerID string, correct bool) ([]Event, error) {
	a, err := s.acceleration()
	if err != nil {
		return nil, err
	}
	if a.Status != domain.AccelerationGrading {
		return nil, ErrWrongStatus
	}
	if a.AnswerBy(playerID) == nil {
		return nil, ErrNoAnswer
	}

	graded := make([]domain.AccelerationAnswer, len(a.Answers))
	copy(graded, a.Answers)
	for i := range graded {
		if graded[i].PlayerID == playerID {
			v := correct
			graded[i].Correct = &v
		}
	}
	points, deltas := domain.RecomputeAccelerationPoints(graded)

	// Commit the verdict and recomputed points before touching the
	// directory. Stored points are the reference the next recompute diffs
	// against, so they must always record what was issued; committing first
	// means a transient directory failure costs one wallet write, never a
	// double credit on the moderator's retry.
	s.coord.MutateAcceleration(func(a *domain.AccelerationState) {
		a.Answers = graded
		for i := range a.Answers {
			a.Answers[i].Points = points[i]
		}
	})

	var events []Event
	var walletErr error
	for _, d := range deltas {
		if err := s.players.AddScore(ctx, d.PlayerID, domain.CategoryAcceleration, int64(d.Delta)); err != nil {
			walletErr = errors.Join(walletErr, fmt.Errorf("apply score for %s: %w", d.PlayerID, err))
		}
		events = append(events, Event{
			Kind:    EventScoreChanged,
			Payload: ScoreChangedPayload{PlayerID: d.PlayerID, Category: domain.CategoryAcceleration, Delta: d.Delta},
		})
	}
	return events, walletErr
}

// AccelerationNextQuestion advances to the next question, or finishes the
// round after the last one. Valid only from grading.
func (s *Service) AccelerationNextQuestion(ctx context.Context) ([]Event, error) {
	a, err := s.acceleration()
	if err != nil {
		return nil, err
	}
	if a.Status != domain.AccelerationGrading {
		return nil, ErrWrongStatus
	}
	if a.QuestionNumber >= domain.AccelerationQuestions {
		s.coord.MutateAcceleration(func(a *domain.AccelerationState) {
			a.Status = domain.AccelerationFinished
		})
		return []Event{{Kind: EventRoundFinished, Payload: RoundFinishedPayload{Round: string(domain.RoundAcceleration)}}}, nil
	}

	q, err := s.accelerationQuestion(ctx, a.QuestionNumber+1)
	if err != nil {
		return nil, err
	}
	s.coord.MutateAcceleration(func(a *domain.AccelerationState) {
		a.QuestionNumber++
		a.Question = q
		a.Answers = nil
		a.TimeLeft = s.cfg.AccelerationSeconds
		a.TimerRunning = false
		a.Status = domain.AccelerationPlaying
	})
	return nil, nil
}

// AccelerationReset returns the round to a blank idle state.
func (s *Service) AccelerationReset() ([]Event, error) {
	if _, err := s.acceleration(); err != nil {
		return nil, err
	}
	s.coord.StopCountdown(domain.RoundAcceleration)
	s.coord.MutateAcceleration(func(a *domain.AccelerationState) {
		*a = *domain.NewAccelerationState()
	})
	return nil, nil
}
