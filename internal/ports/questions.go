package ports

import (
	"context"

	"github.com/giangittb112000/olympia-sub000/internal/domain"
)

// WarmUpPack is a configured warm-up question pack.
type WarmUpPack struct {
	ID        string
	Name      string
	Questions []domain.WarmUpQuestion
}

// ObstacleRowSource is the authoritative question/answer pair for one row.
type ObstacleRowSource struct {
	Question string
	Answer   string
}

// ObstacleResource is the latest configured obstacles round resource.
type ObstacleResource struct {
	ImageURL string
	Keyword  string
	Rows     [domain.ObstacleRows]ObstacleRowSource
}

// AccelerationResource is the latest configured acceleration question set.
type AccelerationResource struct {
	Questions []domain.AccelerationQuestion
}

// FinishBankQuestion is one not-yet-used entry of the finish line bank.
type FinishBankQuestion struct {
	ID        string
	Text      string
	MediaURL  string
	MediaType string
	Answer    string
}

// QuestionBank reads the configured question resources for each round.
// DrawFinishQuestions marks the drawn entries used so they are not reissued
// within the match.
type QuestionBank interface {
	WarmUpPack(ctx context.Context, packID string) (WarmUpPack, error)
	ObstacleResource(ctx context.Context) (ObstacleResource, error)
	AccelerationResource(ctx context.Context) (AccelerationResource, error)
	DrawFinishQuestions(ctx context.Context, n int) ([]FinishBankQuestion, error)
}
