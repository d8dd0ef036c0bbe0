package app

import (
	"context"
	"errors"
	"unicode/utf8"

	"github.com/giangittb112000/olympia-sub000/internal/domain"
)

var (
	ErrRowOutOfRange   = errors.New("row index out of range")
	ErrRowClosed       = errors.New("row already revealed or skipped")
	ErrNoActiveRow     = errors.New("no row is active")
	ErrNoAnswer        = errors.New("player has no answer to grade")
	ErrEliminated      = errors.New("player is barred from keyword guessing")
	ErrAlreadyBuzzed   = errors.New("player already has a pending buzz")
	ErrNoPendingBuzz   = errors.New("player has no pending buzz")
	ErrPieceOutOfRange = errors.New("piece index out of range")
)

func (s *Service) obstacles() (*domain.ObstacleState, error) {
	m := s.coord.Snapshot()
	if m.Phase != domain.PhaseObstacles || m.Obstacles == nil {
		return nil, ErrWrongPhase
	}
	return m.Obstacles, nil
}

// ObstacleSelectRow opens a row for play. Rows that already reached a
// terminal outcome cannot be selected again.
func (s *Service) ObstacleSelectRow(ctx context.Context, row int) ([]Event, error) {
	o, err := s.obstacles()
	if err != nil {
		return nil, err
	}
	if row < 0 || row >= domain.ObstacleRows {
		return nil, ErrRowOutOfRange
	}
	if o.Status != domain.ObstacleIdle {
		return nil, ErrWrongStatus
	}
	if o.RowClosed(row) {
		return nil, ErrRowClosed
	}

	res, err := s.bank.ObstacleResource(ctx)
	if err != nil {
		return nil, err
	}
	length := utf8.RuneCountInString(res.Rows[row].Answer)

	s.coord.MutateObstacles(func(o *domain.ObstacleState) {
		o.Status = domain.ObstacleShowRow
		o.SelectedRow = row
		o.RowQuestion = res.Rows[row].Question
		o.RowAnswerLength = length
		o.RowLengths[row] = length
		o.TimeLeft = s.cfg.ObstacleRowSeconds
		o.Answers = map[string]domain.ObstacleAnswer{}
		o.Gradings = map[string]string{}
		o.ImageURL = res.ImageURL
		o.Keyword = res.Keyword
	})
	return nil, nil
}

// ObstacleStartRowTimer begins the thinking countdown for the active row.
func (s *Service) ObstacleStartRowTimer() ([]Event, error) {
	o, err := s.obstacles()
	if err != nil {
		return nil, err
	}
	if o.Status != domain.ObstacleShowRow {
		return nil, ErrWrongStatus
	}
	s.coord.MutateObstacles(func(o *domain.ObstacleState) {
		o.Status = domain.ObstacleThinking
	})
	s.coord.StartCountdown(domain.RoundObstacles)
	return nil, nil
}

// ObstacleSubmitAnswer records a player's free-text row answer. A repeat
// submission overwrites the previous one; only the final text is graded.
// Eliminated players may still answer rows - elimination only bars keyword
// guesses.
func (s *Service) ObstacleSubmitAnswer(playerID, text string) ([]Event, error) {
	o, err := s.obstacles()
	if err != nil {
		return nil, err
	}
	if o.Status != domain.ObstacleThinking {
		return nil, ErrWrongStatus
	}
	now := s.nowMillis()
	s.coord.MutateObstacles(func(o *domain.ObstacleState) {
		o.Answers[playerID] = domain.ObstacleAnswer{Text: text, SubmittedAt: now}
	})
	return []Event{{
		Kind:    EventAnswerReceived,
		Payload: AnswerReceivedPayload{Round: string(domain.RoundObstacles), PlayerID: playerID},
	}}, nil
}

// ObstacleToGrading moves the active row into grading without auto-judging.
func (s *Service) ObstacleToGrading() ([]Event, error) {
	o, err := s.obstacles()
	if err != nil {
		return nil, err
	}
	if o.Status != domain.ObstacleThinking {
		return nil, ErrWrongStatus
	}
	s.coord.StopCountdown(domain.RoundObstacles)
	s.coord.MutateObstacles(func(o *domain.ObstacleState) {
		o.Status = domain.ObstacleRowGrading
	})
	return nil, nil
}

// obstacleExpire is the countdown-driven path into grading.
func (s *Service) obstacleExpire() []Event {
	s.coord.MutateObstacles(func(o *domain.ObstacleState) {
		o.Status = domain.ObstacleRowGrading
		o.TimeLeft = 0
	})
	return nil
}

// ObstacleGradeRow grades one player's row answer. A correct grade pays the
// fixed reward and, as a side effect, reveals the row's image piece and
// content - the only path that reveals a piece from a row answer.
func (s *Service) ObstacleGradeRow(ctx context.Context, playerID string, correct bool) ([]Event, error) {
	o, err := s.obstacles()
	if err != nil {
		return nil, err
	}
	if o.Status != domain.ObstacleRowGrading {
		return nil, ErrWrongStatus
	}
	if o.SelectedRow < 0 {
		return nil, ErrNoActiveRow
	}
	if _, ok := o.Answers[playerID]; !ok {
		return nil, ErrNoAnswer
	}

	var events []Event
	row := o.SelectedRow
	var content string
	if correct {
		res, err := s.bank.ObstacleResource(ctx)
		if err != nil {
			return nil, err
		}
		content = res.Rows[row].Answer
		if err := s.players.AddScore(ctx, playerID, domain.CategoryObstacles, domain.ObstacleRowPoints); err != nil {
			return nil, err
		}
		events = append(events, Event{
			Kind: EventScoreChanged,
			Payload: ScoreChangedPayload{
				PlayerID: playerID,
				Category: domain.CategoryObstacles,
				Delta:    domain.ObstacleRowPoints,
			},
		})
	}

	s.coord.MutateObstacles(func(o *domain.ObstacleState) {
		if correct {
			o.Gradings[playerID] = domain.VerdictCorrect
			o.RevealedPieces[row] = true
			o.RowContents[row] = content
			o.RowRevealed[row] = true
		} else {
			o.Gradings[playerID] = domain.VerdictWrong
		}
	})
	return events, nil
}

// ObstacleFinishRow closes the active row revealing its content but no
// piece.
func (s *Service) ObstacleFinishRow(ctx context.Context) ([]Event, error) {
	o, err := s.obstacles()
	if err != nil {
		return nil, err
	}
	if o.SelectedRow < 0 {
		return nil, ErrNoActiveRow
	}
	switch o.Status {
	case domain.ObstacleShowRow, domain.ObstacleThinking, domain.ObstacleRowGrading:
	default:
		return nil, ErrWrongStatus
	}

	res, err := s.bank.ObstacleResource(ctx)
	if err != nil {
		return nil, err
	}
	row := o.SelectedRow

	s.coord.StopCountdown(domain.RoundObstacles)
	s.coord.MutateObstacles(func(o *domain.ObstacleState) {
		o.RowContents[row] = res.Rows[row].Answer
		o.RowRevealed[row] = true
		o.Status = domain.ObstacleIdle
		o.ClearActiveRow()
	})
	return nil, nil
}

// ObstacleDismissRow closes the active row with no reveal at all, marking it
// skipped. A skipped row is excluded from scoring entirely.
func (s *Service) ObstacleDismissRow() ([]Event, error) {
	o, err := s.obstacles()
	if err != nil {
		return nil, err
	}
	if o.SelectedRow < 0 {
		return nil, ErrNoActiveRow
	}
	switch o.Status {
	case domain.ObstacleShowRow, domain.ObstacleThinking, domain.ObstacleRowGrading:
	default:
		return nil, ErrWrongStatus
	}
	row := o.SelectedRow

	s.coord.StopCountdown(domain.RoundObstacles)
	s.coord.MutateObstacles(func(o *domain.ObstacleState) {
		o.RowSkipped[row] = true
		o.Status = domain.ObstacleIdle
		o.ClearActiveRow()
	})
	return nil, nil
}

// ObstacleCloseRow closes a graded row without further reveals.
func (s *Service) ObstacleCloseRow() ([]Event, error) {
	o, err := s.obstacles()
	if err != nil {
		return nil, err
	}
	if o.Status != domain.ObstacleRowGrading {
		return nil, ErrWrongStatus
	}
	s.coord.MutateObstacles(func(o *domain.ObstacleState) {
		o.Status = domain.ObstacleIdle
		o.ClearActiveRow()
	})
	return nil, nil
}

// ObstacleRevealPiece is the moderator's manual reveal of a single piece.
func (s *Service) ObstacleRevealPiece(idx int) ([]Event, error) {
	if _, err := s.obstacles(); err != nil {
		return nil, err
	}
	if idx < 0 || idx >= domain.ObstaclePieces {
		return nil, ErrPieceOutOfRange
	}
	s.coord.MutateObstacles(func(o *domain.ObstacleState) {
		o.RevealedPieces[idx] = true
	})
	return nil, nil
}

// ObstacleRevealImage reveals the whole image.
func (s *Service) ObstacleRevealImage() ([]Event, error) {
	if _, err := s.obstacles(); err != nil {
		return nil, err
	}
	s.coord.MutateObstacles(func(o *domain.ObstacleState) {
		o.ImageRevealed = true
	})
	return nil, nil
}

// ObstacleBuzzKeyword queues a keyword-guess attempt. The first buzz cancels
// any running row timer and locks normal row activity; later buzzes append
// to the queue in arrival order for the moderator to process one at a time.
func (s *Service) ObstacleBuzzKeyword(ctx context.Context, playerID string) ([]Event, error) {
	o, err := s.obstacles()
	if err != nil {
		return nil, err
	}
	if o.Status == domain.ObstacleFinished {
		return nil, ErrWrongStatus
	}
	if o.IsEliminated(playerID) {
		return nil, ErrEliminated
	}
	if o.PendingBuzz(playerID) != nil {
		return nil, ErrAlreadyBuzzed
	}

	info, err := s.players.Lookup(ctx, playerID)
	if err != nil {
		return nil, ErrUnknownPlayer
	}

	s.coord.StopCountdown(domain.RoundObstacles)
	now := s.nowMillis()
	var order int
	s.coord.MutateObstacles(func(o *domain.ObstacleState) {
		order = len(o.BuzzQueue) + 1
		o.BuzzQueue = append(o.BuzzQueue, domain.ObstacleBuzz{
			PlayerID:   playerID,
			PlayerName: info.Name,
			Order:      order,
			BuzzedAt:   now,
		})
		o.BuzzLocked = true
		o.Status = domain.ObstacleCnvGuessing
	})
	return []Event{{
		Kind:    EventBuzz,
		Payload: BuzzPayload{Round: string(domain.RoundObstacles), PlayerID: playerID, PlayerName: info.Name, Order: order},
	}}, nil
}

// ObstacleJudgeKeyword judges one queued keyword guess. A correct guess is
// terminal for the whole round: the reward tier depends on how many corner
// pieces were already revealed, and the keyword, every piece and every row
// content are revealed in full - including rows that were never played,
// whose answers come from the backing resource. A wrong guess eliminates the
// player from further keyword attempts, releases the lock and returns the
// round to row play.
func (s *Service) ObstacleJudgeKeyword(ctx context.Context, playerID string, correct bool) ([]Event, error) {
	o, err := s.obstacles()
	if err != nil {
		return nil, err
	}
	buzz := o.PendingBuzz(playerID)
	if buzz == nil {
		return nil, ErrNoPendingBuzz
	}

	if !correct {
		s.coord.MutateObstacles(func(o *domain.ObstacleState) {
			o.Eliminate(playerID)
			if b := o.PendingBuzz(playerID); b != nil {
				b.Processed = true
			}
			o.BuzzLocked = false
			o.Status = domain.ObstacleIdle
			o.ClearActiveRow()
		})
		return nil, nil
	}

	res, err := s.bank.ObstacleResource(ctx)
	if err != nil {
		return nil, err
	}
	points := domain.ObstacleKeywordPoints(o.RevealedCorners())
	if err := s.players.AddScore(ctx, playerID, domain.CategoryObstacles, int64(points)); err != nil {
		return nil, err
	}

	s.coord.StopCountdown(domain.RoundObstacles)
	s.coord.MutateObstacles(func(o *domain.ObstacleState) {
		for i := range o.RevealedPieces {
			o.RevealedPieces[i] = true
		}
		o.ImageRevealed = true
		for i := 0; i < domain.ObstacleRows; i++ {
			o.RowContents[i] = res.Rows[i].Answer
			o.RowLengths[i] = utf8.RuneCountInString(res.Rows[i].Answer)
			o.RowRevealed[i] = true
		}
		o.Keyword = res.Keyword
		o.Status = domain.ObstacleFinished
		o.BuzzQueue = nil
		o.BuzzLocked = false
		o.ClearActiveRow()
	})
	return []Event{
		{
			Kind:    EventScoreChanged,
			Payload: ScoreChangedPayload{PlayerID: playerID, Category: domain.CategoryObstacles, Delta: points},
		},
		{
			Kind:    EventRoundFinished,
			Payload: RoundFinishedPayload{Round: string(domain.RoundObstacles)},
		},
	}, nil
}

// ObstacleReset wipes the round back to a fresh board.
func (s *Service) ObstacleReset(ctx context.Context) ([]Event, error) {
	if _, err := s.obstacles(); err != nil {
		return nil, err
	}
	s.coord.StopCountdown(domain.RoundObstacles)

	fresh := domain.NewObstacleState()
	if res, err := s.bank.ObstacleResource(ctx); err == nil {
		fresh.ImageURL = res.ImageURL
		fresh.Keyword = res.Keyword
	}
	s.coord.MutateObstacles(func(o *domain.ObstacleState) {
		*o = *fresh
	})
	return nil, nil
}
