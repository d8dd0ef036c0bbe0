package nakama

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/heroiclabs/nakama-common/runtime"

	"github.com/giangittb112000/olympia-sub000/internal/domain"
	"github.com/giangittb112000/olympia-sub000/internal/ports"
)

// NakamaPlayerDirectory implements ports.PlayerDirectory on Nakama accounts.
// Per-round score totals live in the account wallet keyed by category, so an
// AddScore call is one atomic WalletUpdate covering the category and the
// overall total together.
type NakamaPlayerDirectory struct {
	nk runtime.NakamaModule
}

func NewNakamaPlayerDirectory(nk runtime.NakamaModule) *NakamaPlayerDirectory {
	return &NakamaPlayerDirectory{nk: nk}
}

func (d *NakamaPlayerDirectory) Lookup(ctx context.Context, playerID string) (ports.PlayerInfo, error) {
	account, err := d.nk.AccountGetId(ctx, playerID)
	if err != nil {
		return ports.PlayerInfo{}, fmt.Errorf("failed to get account: %w", err)
	}

	var wallet map[string]int64
	if err := json.Unmarshal([]byte(account.Wallet), &wallet); err != nil {
		return ports.PlayerInfo{}, fmt.Errorf("failed to unmarshal wallet: %w", err)
	}

	name := account.User.DisplayName
	if name == "" {
		name = account.User.Username
	}
	scores := map[string]int64{}
	for _, cat := range []string{
		domain.CategoryWarmUp,
		domain.CategoryObstacles,
		domain.CategoryAcceleration,
		domain.CategoryFinish,
		domain.CategoryTotal,
	} {
		scores[cat] = wallet[cat]
	}
	return ports.PlayerInfo{ID: playerID, Name: name, Scores: scores}, nil
}

func (d *NakamaPlayerDirectory) AddScore(ctx context.Context, playerID, category string, delta int64) error {
	if delta == 0 {
		return nil
	}

	changes := map[string]int64{
		category:             delta,
		domain.CategoryTotal: delta,
	}
	metadata := map[string]interface{}{
		"reason":   "quiz_score",
		"category": category,
	}
	if _, _, err := d.nk.WalletUpdate(ctx, playerID, changes, metadata, true); err != nil {
		return fmt.Errorf("failed to update score for player %s: %w", playerID, err)
	}
	return nil
}
