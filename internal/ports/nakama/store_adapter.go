package nakama

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/heroiclabs/nakama-common/runtime"

	"github.com/giangittb112000/olympia-sub000/internal/domain"
)

const (
	storageCollection = "olympia"
	activeMatchKey    = "active_match"
)

// NakamaMatchStore implements ports.MatchStore on Nakama's storage engine.
// The whole state tree lives in one document so every save is atomic.
type NakamaMatchStore struct {
	nk runtime.NakamaModule
}

func NewNakamaMatchStore(nk runtime.NakamaModule) *NakamaMatchStore {
	return &NakamaMatchStore{nk: nk}
}

func (s *NakamaMatchStore) SaveActive(ctx context.Context, m *domain.Match) error {
	value, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to marshal match state: %w", err)
	}

	_, err = s.nk.StorageWrite(ctx, []*runtime.StorageWrite{{
		Collection:      storageCollection,
		Key:             activeMatchKey,
		Value:           string(value),
		PermissionRead:  runtime.STORAGE_PERMISSION_NO_READ,
		PermissionWrite: runtime.STORAGE_PERMISSION_NO_WRITE,
	}})
	if err != nil {
		return fmt.Errorf("failed to write match state: %w", err)
	}
	return nil
}

func (s *NakamaMatchStore) LoadActive(ctx context.Context) (*domain.Match, error) {
	objects, err := s.nk.StorageRead(ctx, []*runtime.StorageRead{{
		Collection: storageCollection,
		Key:        activeMatchKey,
	}})
	if err != nil {
		return nil, fmt.Errorf("failed to read match state: %w", err)
	}
	if len(objects) == 0 {
		return nil, nil
	}

	var m domain.Match
	if err := json.Unmarshal([]byte(objects[0].Value), &m); err != nil {
		return nil, fmt.Errorf("failed to unmarshal match state: %w", err)
	}
	return &m, nil
}
