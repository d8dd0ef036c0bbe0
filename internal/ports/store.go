package ports

import (
	"context"

	"github.com/giangittb112000/olympia-sub000/internal/domain"
)

// MatchStore persists the full state tree of the single active match. It is
// the durability/recovery path only; the in-memory coordinator state is the
// writer of truth during a live match.
type MatchStore interface {
	// SaveActive upserts the active match document in full.
	SaveActive(ctx context.Context, m *domain.Match) error

	// LoadActive returns the most recently persisted active match, or
	// (nil, nil) when no match has ever been persisted.
	LoadActive(ctx context.Context) (*domain.Match, error)
}
