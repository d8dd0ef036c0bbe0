package ports

import "context"

// PlayerInfo is a directory entry: display name plus current score totals
// keyed by category (see domain.Category* constants).
type PlayerInfo struct {
	ID     string
	Name   string
	Scores map[string]int64
}

// PlayerDirectory resolves player identities and applies score deltas. The
// match core never computes running totals itself; it always issues deltas
// and each AddScore call must be atomic.
type PlayerDirectory interface {
	// Lookup returns the player's name and current score totals.
	Lookup(ctx context.Context, playerID string) (PlayerInfo, error)

	// AddScore applies a delta to one category and the overall total in a
	// single atomic operation.
	AddScore(ctx context.Context, playerID, category string, delta int64) error
}
