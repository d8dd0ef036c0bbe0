package app

import (
	"context"
	"errors"

	"github.com/giangittb112000/olympia-sub000/internal/domain"
)

var (
	ErrNotYourTurn      = errors.New("not the designated selecting player")
	ErrAlreadyFinished  = errors.New("player already completed their turn")
	ErrNoPacksLeft      = errors.New("no packs of this value remain")
	ErrBadPackValue     = errors.New("unknown pack value")
	ErrNotOwner         = errors.New("only the pack owner may answer")
	ErrOwnerCannotBuzz  = errors.New("the pack owner cannot buzz for a steal")
	ErrStarAlreadyUsed  = errors.New("star already spent")
	ErrNoPendingAnswer  = errors.New("no pending answer to judge")
	ErrBuzzerDisabled   = errors.New("buzzer window is not open")
	ErrBuzzerNotAllowed = errors.New("buzzer requires a judged-wrong owner answer")
	ErrNotInQueue       = errors.New("player has not buzzed")
	ErrStealPending     = errors.New("a steal attempt is already pending")
	ErrNotSelected      = errors.New("player is not the selected stealer")
	ErrNoPendingSteal   = errors.New("no pending steal to judge")
	ErrNoActiveQuestion = errors.New("no question is active")
	ErrNotWaitingVideo  = errors.New("question is not waiting for video end")
	ErrBankExhausted    = errors.New("question bank exhausted")
)

func (s *Service) finish() (*domain.FinishLineState, error) {
	m := s.coord.Snapshot()
	if m.Phase != domain.PhaseFinish || m.Finish == nil {
		return nil, ErrWrongPhase
	}
	return m.Finish, nil
}

// FinishStartRound opens pack selection with a fresh pack inventory.
func (s *Service) FinishStartRound() ([]Event, error) {
	f, err := s.finish()
	if err != nil {
		return nil, err
	}
	if f.Status != domain.FinishIdle {
		return nil, ErrWrongStatus
	}
	s.coord.MutateFinish(func(f *domain.FinishLineState) {
		f.Status = domain.FinishPackSelection
		f.AvailablePacks = map[int]int{}
		for _, v := range s.cfg.FinishPackValues {
			f.AvailablePacks[v] = s.cfg.FinishPacksPerValue
		}
	})
	return nil, nil
}

// FinishSelectTurnPlayer designates which player selects the next pack.
func (s *Service) FinishSelectTurnPlayer(ctx context.Context, playerID string) ([]Event, error) {
	f, err := s.finish()
	if err != nil {
		return nil, err
	}
	if f.Status != domain.FinishPackSelection {
		return nil, ErrWrongStatus
	}
	if f.HasFinished(playerID) {
		return nil, ErrAlreadyFinished
	}
	if _, err := s.players.Lookup(ctx, playerID); err != nil {
		return nil, ErrUnknownPlayer
	}
	s.coord.MutateFinish(func(f *domain.FinishLineState) {
		f.SelectingPlayerID = playerID
	})
	return nil, nil
}

// FinishSelectPack assigns a pack of the requested value to the selecting
// player: inventory is decremented, questions are drawn from the bank (and
// marked used there), and the pack value is stamped on each question. The
// turn then moves to star selection unless the player already spent their
// star, in which case the first question activates directly.
func (s *Service) FinishSelectPack(ctx context.Context, playerID string, value int) ([]Event, error) {
	f, err := s.finish()
	if err != nil {
		return nil, err
	}
	if f.Status != domain.FinishPackSelection {
		return nil, ErrWrongStatus
	}
	if playerID != f.SelectingPlayerID {
		return nil, ErrNotYourTurn
	}
	if f.HasFinished(playerID) {
		return nil, ErrAlreadyFinished
	}
	if !s.cfg.ValidFinishPackValue(value) {
		return nil, ErrBadPackValue
	}
	if f.AvailablePacks[value] <= 0 {
		return nil, ErrNoPacksLeft
	}

	info, err := s.players.Lookup(ctx, playerID)
	if err != nil {
		return nil, ErrUnknownPlayer
	}
	drawn, err := s.bank.DrawFinishQuestions(ctx, s.cfg.FinishQuestionsPerPack)
	if err != nil {
		return nil, err
	}
	if len(drawn) < s.cfg.FinishQuestionsPerPack {
		return nil, ErrBankExhausted
	}

	questions := make([]domain.FinishQuestion, len(drawn))
	for i, q := range drawn {
		questions[i] = domain.FinishQuestion{
			ID:        q.ID,
			Value:     value,
			Text:      q.Text,
			MediaURL:  q.MediaURL,
			MediaType: q.MediaType,
			Answer:    q.Answer,
		}
	}

	starSpent := f.HasStarUsed(playerID)
	s.coord.MutateFinish(func(f *domain.FinishLineState) {
		f.AvailablePacks[value]--
		f.CurrentPack = &domain.FinishPack{
			ID:        s.newID(),
			Value:     value,
			OwnerID:   playerID,
			OwnerName: info.Name,
			Questions: questions,
		}
		f.QuestionIndex = 0
		if starSpent {
			s.activateFinishQuestion(f)
		} else {
			f.Status = domain.FinishStarSelection
		}
	})
	return nil, nil
}

// activateFinishQuestion arms the current question: the timer auto-starts
// unless the question carries video media, in which case it is withheld
// until the video-ended signal arrives. Must run inside a finish mutation.
func (s *Service) activateFinishQuestion(f *domain.FinishLineState) {
	q := f.ActiveQuestion()
	f.Status = domain.FinishPlayingQuestion
	f.TimeLeft = s.cfg.FinishSeconds(f.CurrentPack.Value)
	f.ClearBuzzer()
	if q != nil && q.MediaType == domain.MediaTypeVideo {
		f.WaitingVideo = true
		f.TimerRunning = false
		return
	}
	f.WaitingVideo = false
	f.TimerRunning = true
	s.coord.StartCountdown(domain.RoundFinish)
}

// FinishConfirmStar spends the owner's one-time star on the current
// question, doubling its value on a correct answer.
func (s *Service) FinishConfirmStar(playerID string) ([]Event, error) {
	f, err := s.finish()
	if err != nil {
		return nil, err
	}
	if f.Status != domain.FinishStarSelection {
		return nil, ErrWrongStatus
	}
	if f.CurrentPack == nil || playerID != f.CurrentPack.OwnerID {
		return nil, ErrNotOwner
	}
	if f.HasStarUsed(playerID) {
		return nil, ErrStarAlreadyUsed
	}
	s.coord.MutateFinish(func(f *domain.FinishLineState) {
		f.UseStar(playerID)
		if q := f.ActiveQuestion(); q != nil {
			q.StarActivated = true
		}
		s.activateFinishQuestion(f)
	})
	return nil, nil
}

// FinishSkipStar declines the star for the current question.
func (s *Service) FinishSkipStar(playerID string) ([]Event, error) {
	f, err := s.finish()
	if err != nil {
		return nil, err
	}
	if f.Status != domain.FinishStarSelection {
		return nil, ErrWrongStatus
	}
	if f.CurrentPack == nil || playerID != f.CurrentPack.OwnerID {
		return nil, ErrNotOwner
	}
	s.coord.MutateFinish(func(f *domain.FinishLineState) {
		s.activateFinishQuestion(f)
	})
	return nil, nil
}

// FinishVideoEnded releases the withheld timer once the client reports the
// question's video finished playing.
func (s *Service) FinishVideoEnded() ([]Event, error) {
	f, err := s.finish()
	if err != nil {
		return nil, err
	}
	if f.Status != domain.FinishPlayingQuestion {
		return nil, ErrWrongStatus
	}
	if !f.WaitingVideo {
		return nil, ErrNotWaitingVideo
	}
	s.coord.MutateFinish(func(f *domain.FinishLineState) {
		f.WaitingVideo = false
		f.TimerRunning = true
	})
	s.coord.StartCountdown(domain.RoundFinish)
	return nil, nil
}

// FinishSubmitOwnerAnswer parks the owner's answer pending moderator review.
// It never auto-scores, and a second submission is rejected outright.
func (s *Service) FinishSubmitOwnerAnswer(playerID, text string) ([]Event, error) {
	f, err := s.finish()
	if err != nil {
		return nil, err
	}
	if f.Status != domain.FinishPlayingQuestion {
		return nil, ErrWrongStatus
	}
	q := f.ActiveQuestion()
	if q == nil {
		return nil, ErrNoActiveQuestion
	}
	if f.CurrentPack == nil || playerID != f.CurrentPack.OwnerID {
		return nil, ErrNotOwner
	}
	if q.OwnerAnswer != nil {
		return nil, ErrAlreadySubmitted
	}

	now := s.nowMillis()
	s.coord.MutateFinish(func(f *domain.FinishLineState) {
		if q := f.ActiveQuestion(); q != nil {
			q.OwnerAnswer = &domain.FinishAnswer{PlayerID: playerID, Text: text, SubmittedAt: now}
		}
	})
	return []Event{{
		Kind:    EventAnswerReceived,
		Payload: AnswerReceivedPayload{Round: string(domain.RoundFinish), PlayerID: playerID},
	}}, nil
}

// FinishJudgeOwnerAnswer grades the owner's pending answer: the question
// value (doubled by the star) on correct, the value's tier penalty on wrong.
// Judging stops the timer.
func (s *Service) FinishJudgeOwnerAnswer(ctx context.Context, correct bool) ([]Event, error) {
	f, err := s.finish()
	if err != nil {
		return nil, err
	}
	if f.Status != domain.FinishPlayingQuestion {
		return nil, ErrWrongStatus
	}
	q := f.ActiveQuestion()
	if q == nil {
		return nil, ErrNoActiveQuestion
	}
	if q.OwnerAnswer == nil || q.OwnerAnswer.Verdict != "" {
		return nil, ErrNoPendingAnswer
	}

	points := domain.FinishOwnerPoints(q.Value, q.StarActivated, correct)
	ownerID := f.CurrentPack.OwnerID
	if err := s.players.AddScore(ctx, ownerID, domain.CategoryFinish, int64(points)); err != nil {
		return nil, err
	}

	s.coord.StopCountdown(domain.RoundFinish)
	verdict := domain.VerdictWrong
	if correct {
		verdict = domain.VerdictCorrect
	}
	s.coord.MutateFinish(func(f *domain.FinishLineState) {
		if q := f.ActiveQuestion(); q != nil {
			q.OwnerAnswer.Verdict = verdict
		}
		f.TimerRunning = false
	})
	return []Event{{
		Kind:    EventScoreChanged,
		Payload: ScoreChangedPayload{PlayerID: ownerID, Category: domain.CategoryFinish, Delta: points},
	}}, nil
}

// FinishEnableBuzzer opens the steal window. Allowed only after the owner's
// answer was judged wrong.
func (s *Service) FinishEnableBuzzer() ([]Event, error) {
	f, err := s.finish()
	if err != nil {
		return nil, err
	}
	if f.Status != domain.FinishPlayingQuestion {
		return nil, ErrWrongStatus
	}
	q := f.ActiveQuestion()
	if q == nil {
		return nil, ErrNoActiveQuestion
	}
	if q.OwnerAnswer == nil || q.OwnerAnswer.Verdict != domain.VerdictWrong {
		return nil, ErrBuzzerNotAllowed
	}
	s.coord.MutateFinish(func(f *domain.FinishLineState) {
		f.BuzzerEnabled = true
		f.BuzzQueue = nil
		f.StealerID = ""
	})
	return nil, nil
}

// FinishBuzz queues a non-owner player's steal buzz, once per window.
func (s *Service) FinishBuzz(ctx context.Context, playerID string) ([]Event, error) {
	f, err := s.finish()
	if err != nil {
		return nil, err
	}
	if !f.BuzzerEnabled {
		return nil, ErrBuzzerDisabled
	}
	if f.CurrentPack != nil && playerID == f.CurrentPack.OwnerID {
		return nil, ErrOwnerCannotBuzz
	}
	if f.InBuzzQueue(playerID) {
		return nil, ErrAlreadyBuzzed
	}

	info, err := s.players.Lookup(ctx, playerID)
	if err != nil {
		return nil, ErrUnknownPlayer
	}
	now := s.nowMillis()
	s.coord.MutateFinish(func(f *domain.FinishLineState) {
		f.BuzzQueue = append(f.BuzzQueue, domain.FinishBuzz{PlayerID: playerID, PlayerName: info.Name, BuzzedAt: now})
	})
	return []Event{{
		Kind:    EventBuzz,
		Payload: BuzzPayload{Round: string(domain.RoundFinish), PlayerID: playerID, PlayerName: info.Name},
	}}, nil
}

// FinishSelectStealer grants the steal attempt to one queued buzzer.
func (s *Service) FinishSelectStealer(playerID string) ([]Event, error) {
	f, err := s.finish()
	if err != nil {
		return nil, err
	}
	if !f.BuzzerEnabled {
		return nil, ErrBuzzerDisabled
	}
	if !f.InBuzzQueue(playerID) {
		return nil, ErrNotInQueue
	}
	q := f.ActiveQuestion()
	if q == nil {
		return nil, ErrNoActiveQuestion
	}
	if q.PendingSteal() != nil {
		return nil, ErrStealPending
	}
	s.coord.MutateFinish(func(f *domain.FinishLineState) {
		f.StealerID = playerID
	})
	return nil, nil
}

// FinishSubmitStealAnswer parks the selected stealer's single answer pending
// review, exactly like the owner flow.
func (s *Service) FinishSubmitStealAnswer(playerID, text string) ([]Event, error) {
	f, err := s.finish()
	if err != nil {
		return nil, err
	}
	if f.StealerID == "" || playerID != f.StealerID {
		return nil, ErrNotSelected
	}
	q := f.ActiveQuestion()
	if q == nil {
		return nil, ErrNoActiveQuestion
	}
	if q.PendingSteal() != nil || q.StealBy(playerID) != nil {
		return nil, ErrAlreadySubmitted
	}

	now := s.nowMillis()
	s.coord.MutateFinish(func(f *domain.FinishLineState) {
		if q := f.ActiveQuestion(); q != nil {
			q.Steals = append(q.Steals, domain.FinishAnswer{PlayerID: playerID, Text: text, SubmittedAt: now})
		}
	})
	return []Event{{
		Kind:    EventAnswerReceived,
		Payload: AnswerReceivedPayload{Round: string(domain.RoundFinish), PlayerID: playerID},
	}}, nil
}

// FinishJudgeSteal grades the pending steal attempt. Success pays the
// stealer the question value and tears down the whole buzzer apparatus;
// failure costs the stealer the tier penalty and only removes them from the
// queue, leaving the window open for another contender. The owner is never
// affected either way.
func (s *Service) FinishJudgeSteal(ctx context.Context, correct bool) ([]Event, error) {
	f, err := s.finish()
	if err != nil {
		return nil, err
	}
	q := f.ActiveQuestion()
	if q == nil {
		return nil, ErrNoActiveQuestion
	}
	pending := q.PendingSteal()
	if pending == nil {
		return nil, ErrNoPendingSteal
	}

	stealerID := pending.PlayerID
	stealerDelta, _ := domain.FinishStealDeltas(q.Value, correct)
	if err := s.players.AddScore(ctx, stealerID, domain.CategoryFinish, int64(stealerDelta)); err != nil {
		return nil, err
	}

	verdict := domain.VerdictWrong
	if correct {
		verdict = domain.VerdictCorrect
	}
	s.coord.MutateFinish(func(f *domain.FinishLineState) {
		q := f.ActiveQuestion()
		if q == nil {
			return
		}
		if p := q.PendingSteal(); p != nil {
			p.Verdict = verdict
		}
		if correct {
			f.ClearBuzzer()
		} else {
			f.RemoveFromBuzzQueue(stealerID)
			f.StealerID = ""
		}
	})

	events := []Event{{
		Kind:    EventScoreChanged,
		Payload: ScoreChangedPayload{PlayerID: stealerID, Category: domain.CategoryFinish, Delta: stealerDelta},
	}}
	if correct {
		events = append(events, Event{Kind: EventStealAwarded, Payload: BuzzPayload{Round: string(domain.RoundFinish), PlayerID: stealerID}})
	}
	return events, nil
}

// FinishNextQuestion advances within the pack, or closes the owner's turn
// after the last question and returns to pack selection. Mid-pack advances
// reset the per-question transients and recompute whether the next question
// starts with star selection.
func (s *Service) FinishNextQuestion() ([]Event, error) {
	f, err := s.finish()
	if err != nil {
		return nil, err
	}
	if f.Status != domain.FinishPlayingQuestion {
		return nil, ErrWrongStatus
	}
	if f.CurrentPack == nil {
		return nil, ErrNoActiveQuestion
	}

	s.coord.StopCountdown(domain.RoundFinish)
	ownerID := f.CurrentPack.OwnerID
	lastQuestion := f.QuestionIndex+1 >= len(f.CurrentPack.Questions)

	s.coord.MutateFinish(func(f *domain.FinishLineState) {
		if lastQuestion {
			f.MarkFinished(ownerID)
			f.CurrentPack = nil
			f.QuestionIndex = -1
			f.SelectingPlayerID = ""
			f.TimerRunning = false
			f.WaitingVideo = false
			f.ClearBuzzer()
			f.Status = domain.FinishPackSelection
			return
		}
		f.QuestionIndex++
		f.TimerRunning = false
		f.WaitingVideo = false
		f.ClearBuzzer()
		if f.HasStarUsed(ownerID) {
			s.activateFinishQuestion(f)
		} else {
			f.Status = domain.FinishStarSelection
		}
	})
	return nil, nil
}

// FinishRoundEnd closes the whole round. Explicit moderator action.
func (s *Service) FinishRoundEnd() ([]Event, error) {
	if _, err := s.finish(); err != nil {
		return nil, err
	}
	s.coord.StopCountdown(domain.RoundFinish)
	s.coord.MutateFinish(func(f *domain.FinishLineState) {
		f.Status = domain.FinishFinished
		f.TimerRunning = false
		f.ClearBuzzer()
	})
	return []Event{{Kind: EventRoundFinished, Payload: RoundFinishedPayload{Round: string(domain.RoundFinish)}}}, nil
}

// FinishReset wipes the round except the match-wide permanent star set.
func (s *Service) FinishReset() ([]Event, error) {
	if _, err := s.finish(); err != nil {
		return nil, err
	}
	s.coord.StopCountdown(domain.RoundFinish)
	s.coord.MutateFinish(func(f *domain.FinishLineState) {
		stars := f.StarUsedIDs
		*f = *domain.NewFinishLineState()
		f.StarUsedIDs = stars
	})
	return nil, nil
}

// finishExpire freezes the timer at zero; judging stays with the moderator.
func (s *Service) finishExpire() {
	s.coord.MutateFinish(func(f *domain.FinishLineState) {
		f.TimerRunning = false
		f.TimeLeft = 0
	})
}
