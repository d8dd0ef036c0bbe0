package app

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/giangittb112000/olympia-sub000/internal/config"
	"github.com/giangittb112000/olympia-sub000/internal/domain"
	"github.com/giangittb112000/olympia-sub000/internal/ports"
)

type scoreCall struct {
	playerID string
	category string
	delta    int64
}

type fakeDirectory struct {
	players map[string]ports.PlayerInfo
	calls   []scoreCall
	failAdd bool
	failFor map[string]bool
}

func newFakeDirectory(ids ...string) *fakeDirectory {
	d := &fakeDirectory{players: map[string]ports.PlayerInfo{}}
	for _, id := range ids {
		d.players[id] = ports.PlayerInfo{ID: id, Name: "name-" + id, Scores: map[string]int64{}}
	}
	return d
}

func (d *fakeDirectory) Lookup(_ context.Context, playerID string) (ports.PlayerInfo, error) {
	info, ok := d.players[playerID]
	if !ok {
		return ports.PlayerInfo{}, fmt.Errorf("no such player: %s", playerID)
	}
	return info, nil
}

func (d *fakeDirectory) AddScore(_ context.Context, playerID, category string, delta int64) error {
	if d.failAdd || d.failFor[playerID] {
		return fmt.Errorf("directory unavailable")
	}
	info, ok := d.players[playerID]
	if !ok {
		return fmt.Errorf("no such player: %s", playerID)
	}
	info.Scores[category] += delta
	info.Scores[domain.CategoryTotal] += delta
	d.calls = append(d.calls, scoreCall{playerID: playerID, category: category, delta: delta})
	return nil
}

func (d *fakeDirectory) total(playerID, category string) int64 {
	return d.players[playerID].Scores[category]
}

type fakeBank struct {
	warmUpPacks map[string]ports.WarmUpPack
	obstacle    ports.ObstacleResource
	accel       ports.AccelerationResource
	finishBank  []ports.FinishBankQuestion
	drawCursor  int
}

func (b *fakeBank) WarmUpPack(_ context.Context, packID string) (ports.WarmUpPack, error) {
	pack, ok := b.warmUpPacks[packID]
	if !ok {
		return ports.WarmUpPack{}, fmt.Errorf("no such pack: %s", packID)
	}
	return pack, nil
}

func (b *fakeBank) ObstacleResource(context.Context) (ports.ObstacleResource, error) {
	return b.obstacle, nil
}

func (b *fakeBank) AccelerationResource(context.Context) (ports.AccelerationResource, error) {
	return b.accel, nil
}

func (b *fakeBank) DrawFinishQuestions(_ context.Context, n int) ([]ports.FinishBankQuestion, error) {
	if b.drawCursor+n > len(b.finishBank) {
		return nil, fmt.Errorf("finish bank exhausted")
	}
	drawn := b.finishBank[b.drawCursor : b.drawCursor+n]
	b.drawCursor += n
	return drawn, nil
}

type memStore struct {
	saved    []byte
	saveN    int
	failSave bool
}

func (s *memStore) SaveActive(_ context.Context, m *domain.Match) error {
	if s.failSave {
		return fmt.Errorf("storage unavailable")
	}
	data, err := json.Marshal(m)
	if err != nil {
		return err
	}
	s.saved = data
	s.saveN++
	return nil
}

func (s *memStore) LoadActive(context.Context) (*domain.Match, error) {
	if s.saved == nil {
		return nil, nil
	}
	var m domain.Match
	if err := json.Unmarshal(s.saved, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

func defaultFakeBank() *fakeBank {
	return &fakeBank{
		warmUpPacks: map[string]ports.WarmUpPack{
			"pack-1": {
				ID:   "pack-1",
				Name: "Pack One",
				Questions: []domain.WarmUpQuestion{
					{ID: "q1", Content: "first"},
					{ID: "q2", Content: "second"},
					{ID: "q3", Content: "third"},
				},
			},
			"pack-2": {
				ID:   "pack-2",
				Name: "Pack Two",
				Questions: []domain.WarmUpQuestion{
					{ID: "q4", Content: "fourth"},
				},
			},
		},
		obstacle: ports.ObstacleResource{
			ImageURL: "https://cdn.example.com/obstacle.png",
			Keyword:  "LIGHTHOUSE",
			Rows: [domain.ObstacleRows]ports.ObstacleRowSource{
				{Question: "row one?", Answer: "TOWER"},
				{Question: "row two?", Answer: "LAMP"},
				{Question: "row three?", Answer: "COAST"},
				{Question: "row four?", Answer: "BEACON"},
			},
		},
		accel: ports.AccelerationResource{
			Questions: []domain.AccelerationQuestion{
				{Text: "accel one", MediaURL: "https://cdn.example.com/a1.mp4", Answer: "A1"},
				{Text: "accel two", Answer: "A2"},
				{Text: "accel three", Answer: "A3"},
				{Text: "accel four", Answer: "A4"},
			},
		},
		finishBank: []ports.FinishBankQuestion{
			{ID: "f1", Text: "finish one", Answer: "F1"},
			{ID: "f2", Text: "finish two", Answer: "F2"},
			{ID: "f3", Text: "finish three", Answer: "F3"},
			{ID: "f4", Text: "finish four", MediaURL: "https://cdn.example.com/f4.mp4", MediaType: "video", Answer: "F4"},
			{ID: "f5", Text: "finish five", Answer: "F5"},
			{ID: "f6", Text: "finish six", Answer: "F6"},
			{ID: "f7", Text: "finish seven", Answer: "F7"},
			{ID: "f8", Text: "finish eight", Answer: "F8"},
			{ID: "f9", Text: "finish nine", Answer: "F9"},
		},
	}
}

type testRig struct {
	svc   *Service
	coord *Coordinator
	dir   *fakeDirectory
	bank  *fakeBank
	store *memStore
	clock int64
}

func newTestRig(t *testing.T, playerIDs ...string) *testRig {
	t.Helper()
	rig := &testRig{
		dir:   newFakeDirectory(playerIDs...),
		bank:  defaultFakeBank(),
		store: &memStore{},
	}
	rig.coord = NewCoordinator(rig.store)
	rig.coord.now = func() int64 {
		rig.clock++
		return rig.clock * 1000
	}
	rig.svc = NewService(rig.coord, rig.dir, rig.bank, config.DefaultRoundConfig())
	nextID := 0
	rig.svc.newID = func() string {
		nextID++
		return fmt.Sprintf("id-%d", nextID)
	}
	return rig
}

func (r *testRig) mustPhase(t *testing.T, phase domain.Phase) {
	t.Helper()
	if _, err := r.svc.SetPhase(context.Background(), phase); err != nil {
		t.Fatalf("set phase %s error: %v", phase, err)
	}
}

func TestSetPhaseRejectsUnknownPhase(t *testing.T) {
	rig := newTestRig(t)
	if _, err := rig.svc.SetPhase(context.Background(), domain.Phase("INTERMISSION")); err != ErrWrongPhase {
		t.Fatalf("err = %v, want ErrWrongPhase", err)
	}
}

func TestSetPhasePreservesRoundProgressOnReentry(t *testing.T) {
	rig := newTestRig(t, "p1")
	rig.mustPhase(t, domain.PhaseWarmUp)
	ctx := context.Background()

	if _, err := rig.svc.WarmUpSetup(ctx, "p1", "pack-1"); err != nil {
		t.Fatalf("setup error: %v", err)
	}
	rig.mustPhase(t, domain.PhaseObstacles)
	rig.mustPhase(t, domain.PhaseWarmUp)

	w := rig.coord.Snapshot().WarmUp
	if w.Status != domain.WarmUpReady || w.PlayerID != "p1" {
		t.Fatalf("warm-up progress lost on re-entry: status=%s player=%s", w.Status, w.PlayerID)
	}
}

func TestSetPhaseObstaclesLoadsResource(t *testing.T) {
	rig := newTestRig(t)
	rig.mustPhase(t, domain.PhaseObstacles)

	o := rig.coord.Snapshot().Obstacles
	if o.ImageURL != rig.bank.obstacle.ImageURL {
		t.Fatalf("image url not loaded: %q", o.ImageURL)
	}
	if o.Keyword != rig.bank.obstacle.Keyword {
		t.Fatalf("keyword not loaded: %q", o.Keyword)
	}
}
