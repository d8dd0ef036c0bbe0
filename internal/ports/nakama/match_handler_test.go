package nakama

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/heroiclabs/nakama-common/runtime"

	"github.com/giangittb112000/olympia-sub000/internal/app"
	"github.com/giangittb112000/olympia-sub000/internal/domain"
	"github.com/giangittb112000/olympia-sub000/internal/ports"
)

// noopLogger implements runtime.Logger for tests that only need to satisfy
// the interface.
type noopLogger struct{}

func (noopLogger) Debug(string, ...interface{}) {}
func (noopLogger) Info(string, ...interface{})  {}
func (noopLogger) Warn(string, ...interface{})  {}
func (noopLogger) Error(string, ...interface{}) {}
func (noopLogger) WithField(string, interface{}) runtime.Logger {
	return noopLogger{}
}
func (noopLogger) WithFields(map[string]interface{}) runtime.Logger {
	return noopLogger{}
}
func (noopLogger) Fields() map[string]interface{} {
	return nil
}

// mockDispatcher records match dispatcher calls for assertions.
type mockDispatcher struct {
	broadcastCount int
	labelUpdates   int
	kicked         int
	lastOpCode     int64
	lastData       []byte
	opCodes        []int64
}

func (md *mockDispatcher) BroadcastMessage(opCode int64, data []byte, presences []runtime.Presence, sender runtime.Presence, reliable bool) error {
	md.broadcastCount++
	md.lastOpCode = opCode
	md.lastData = append([]byte(nil), data...)
	md.opCodes = append(md.opCodes, opCode)
	return nil
}

func (md *mockDispatcher) BroadcastMessageDeferred(opCode int64, data []byte, presences []runtime.Presence, sender runtime.Presence, reliable bool) error {
	return nil
}

func (md *mockDispatcher) MatchKick(presences []runtime.Presence) error {
	md.kicked += len(presences)
	return nil
}

func (md *mockDispatcher) MatchLabelUpdate(label string) error {
	md.labelUpdates++
	return nil
}

type fakePresence struct {
	userID    string
	sessionID string
}

func (p fakePresence) GetUserId() string                 { return p.userID }
func (p fakePresence) GetSessionId() string              { return p.sessionID }
func (p fakePresence) GetNodeId() string                 { return "node-1" }
func (p fakePresence) GetHidden() bool                   { return false }
func (p fakePresence) GetPersistence() bool              { return true }
func (p fakePresence) GetUsername() string               { return p.userID }
func (p fakePresence) GetStatus() string                 { return "" }
func (p fakePresence) GetReason() runtime.PresenceReason { return runtime.PresenceReasonUnknown }

type fakeMatchData struct {
	fakePresence
	opCode int64
	data   []byte
}

func (d fakeMatchData) GetOpCode() int64      { return d.opCode }
func (d fakeMatchData) GetData() []byte       { return d.data }
func (d fakeMatchData) GetReliable() bool     { return true }
func (d fakeMatchData) GetReceiveTime() int64 { return 0 }

type stubDirectory struct{}

func (stubDirectory) Lookup(_ context.Context, playerID string) (ports.PlayerInfo, error) {
	return ports.PlayerInfo{ID: playerID, Name: "name-" + playerID, Scores: map[string]int64{}}, nil
}

func (stubDirectory) AddScore(context.Context, string, string, int64) error {
	return nil
}

type stubBank struct{}

func (stubBank) WarmUpPack(_ context.Context, packID string) (ports.WarmUpPack, error) {
	return ports.WarmUpPack{
		ID:        packID,
		Name:      "Pack",
		Questions: []domain.WarmUpQuestion{{ID: "q1", Content: "question"}},
	}, nil
}

func (stubBank) ObstacleResource(context.Context) (ports.ObstacleResource, error) {
	return ports.ObstacleResource{ImageURL: "img", Keyword: "KEY"}, nil
}

func (stubBank) AccelerationResource(context.Context) (ports.AccelerationResource, error) {
	return ports.AccelerationResource{Questions: []domain.AccelerationQuestion{{Text: "q"}}}, nil
}

func (stubBank) DrawFinishQuestions(_ context.Context, n int) ([]ports.FinishBankQuestion, error) {
	drawn := make([]ports.FinishBankQuestion, n)
	for i := range drawn {
		drawn[i] = ports.FinishBankQuestion{ID: fmt.Sprintf("f%d", i+1), Text: "q", Answer: "a"}
	}
	return drawn, nil
}

type countingStore struct {
	saves int
}

func (s *countingStore) SaveActive(context.Context, *domain.Match) error {
	s.saves++
	return nil
}

func (s *countingStore) LoadActive(context.Context) (*domain.Match, error) {
	return nil, nil
}

func newTestMatchState(store ports.MatchStore) *MatchState {
	if store == nil {
		store = &countingStore{}
	}
	return &MatchState{
		Presences: make(map[string]runtime.Presence),
		Roles:     make(map[string]string),
		Svc:       app.NewService(app.NewCoordinator(store), stubDirectory{}, stubBank{}, nil),
	}
}

func TestMatchJoinAttemptRecordsRole(t *testing.T) {
	handler := &matchHandler{}
	state := newTestMatchState(nil)

	result, allowed, _ := handler.MatchJoinAttempt(context.Background(), noopLogger{}, nil, nil, &mockDispatcher{}, 1,
		state, fakePresence{userID: "mod-1", sessionID: "s1"}, map[string]string{"role": RoleModerator})
	if !allowed {
		t.Fatal("moderator join should be allowed")
	}
	if got := result.(*MatchState).Roles["mod-1"]; got != RoleModerator {
		t.Fatalf("role = %s, want moderator", got)
	}
}

func TestMatchJoinAttemptRejectsSecondModerator(t *testing.T) {
	handler := &matchHandler{}
	state := newTestMatchState(nil)
	state.Roles["mod-1"] = RoleModerator

	_, allowed, reason := handler.MatchJoinAttempt(context.Background(), noopLogger{}, nil, nil, &mockDispatcher{}, 1,
		state, fakePresence{userID: "mod-2", sessionID: "s2"}, map[string]string{"role": RoleModerator})
	if allowed {
		t.Fatal("second moderator must be rejected")
	}
	if reason == "" {
		t.Fatal("expected a rejection reason")
	}

	// The same moderator reconnecting is fine.
	_, allowed, _ = handler.MatchJoinAttempt(context.Background(), noopLogger{}, nil, nil, &mockDispatcher{}, 1,
		state, fakePresence{userID: "mod-1", sessionID: "s3"}, map[string]string{"role": RoleModerator})
	if !allowed {
		t.Fatal("moderator reconnect should be allowed")
	}
}

func TestMatchJoinAttemptRejectsUnknownRole(t *testing.T) {
	handler := &matchHandler{}
	state := newTestMatchState(nil)

	_, allowed, _ := handler.MatchJoinAttempt(context.Background(), noopLogger{}, nil, nil, &mockDispatcher{}, 1,
		state, fakePresence{userID: "u1", sessionID: "s1"}, map[string]string{"role": "producer"})
	if allowed {
		t.Fatal("unknown role must be rejected")
	}
}

func TestMatchJoinKicksStaleSession(t *testing.T) {
	handler := &matchHandler{}
	dispatcher := &mockDispatcher{}
	state := newTestMatchState(nil)
	state.Roles["p1"] = RolePlayer
	state.Presences["p1"] = fakePresence{userID: "p1", sessionID: "old"}

	handler.MatchJoin(context.Background(), noopLogger{}, nil, nil, dispatcher, 1, state,
		[]runtime.Presence{fakePresence{userID: "p1", sessionID: "new"}})

	if dispatcher.kicked != 1 {
		t.Fatalf("kicked = %d, want the stale session kicked", dispatcher.kicked)
	}
	if got := state.Presences["p1"].GetSessionId(); got != "new" {
		t.Fatalf("session = %s, want new", got)
	}
}

func TestMatchLoopModeratorSetPhase(t *testing.T) {
	handler := &matchHandler{}
	dispatcher := &mockDispatcher{}
	store := &countingStore{}
	state := newTestMatchState(store)
	state.Roles["mod-1"] = RoleModerator
	state.Presences["mod-1"] = fakePresence{userID: "mod-1", sessionID: "s1"}

	payload, _ := json.Marshal(setPhaseRequest{Phase: string(domain.PhaseWarmUp)})
	msg := fakeMatchData{
		fakePresence: fakePresence{userID: "mod-1", sessionID: "s1"},
		opCode:       OpSetPhase,
		data:         payload,
	}

	handler.MatchLoop(context.Background(), noopLogger{}, nil, nil, dispatcher, 1, state, []runtime.MatchData{msg})

	if got := state.Svc.Coordinator().Snapshot().Phase; got != domain.PhaseWarmUp {
		t.Fatalf("phase = %s, want WARMUP", got)
	}
	var sawSnapshot bool
	for _, op := range dispatcher.opCodes {
		if op == OpSnapshot {
			sawSnapshot = true
		}
	}
	if !sawSnapshot {
		t.Fatal("expected a snapshot broadcast after a successful mutation")
	}
	if dispatcher.labelUpdates == 0 {
		t.Fatal("expected a label update after the phase change")
	}
	if store.saves == 0 {
		t.Fatal("expected the state to be persisted")
	}
}

func TestMatchLoopRejectsNonModeratorMutation(t *testing.T) {
	handler := &matchHandler{}
	dispatcher := &mockDispatcher{}
	state := newTestMatchState(nil)
	state.Roles["g1"] = RoleGuest
	state.Presences["g1"] = fakePresence{userID: "g1", sessionID: "s1"}

	payload, _ := json.Marshal(setPhaseRequest{Phase: string(domain.PhaseWarmUp)})
	msg := fakeMatchData{
		fakePresence: fakePresence{userID: "g1", sessionID: "s1"},
		opCode:       OpSetPhase,
		data:         payload,
	}

	handler.MatchLoop(context.Background(), noopLogger{}, nil, nil, dispatcher, 1, state, []runtime.MatchData{msg})

	if got := state.Svc.Coordinator().Snapshot().Phase; got != domain.PhaseIdle {
		t.Fatalf("phase = %s, guest must not mutate", got)
	}
	if dispatcher.lastOpCode != OpError {
		t.Fatalf("last op = %d, want an error sent to the sender", dispatcher.lastOpCode)
	}
}

func TestPlayerIDsRequireLivePresence(t *testing.T) {
	state := newTestMatchState(nil)
	state.Roles["mod-1"] = RoleModerator
	state.Roles["p1"] = RolePlayer
	state.Roles["p2"] = RolePlayer
	state.Presences["mod-1"] = fakePresence{userID: "mod-1", sessionID: "s1"}
	state.Presences["p1"] = fakePresence{userID: "p1", sessionID: "s2"}

	ids := state.PlayerIDs()
	if len(ids) != 1 || ids[0] != "p1" {
		t.Fatalf("player ids = %v, want only the player with a live presence", ids)
	}
}

func TestRoleRejectionErrorMessages(t *testing.T) {
	handler := &matchHandler{}
	dispatcher := &mockDispatcher{}
	state := newTestMatchState(nil)
	state.Roles["g1"] = RoleGuest
	state.Presences["g1"] = fakePresence{userID: "g1", sessionID: "s1"}
	ctx := context.Background()

	payload, _ := json.Marshal(setPhaseRequest{Phase: string(domain.PhaseWarmUp)})
	msg := fakeMatchData{
		fakePresence: fakePresence{userID: "g1", sessionID: "s1"},
		opCode:       OpSetPhase,
		data:         payload,
	}
	handler.MatchLoop(ctx, noopLogger{}, nil, nil, dispatcher, 1, state, []runtime.MatchData{msg})

	var perr errorPayload
	if err := json.Unmarshal(dispatcher.lastData, &perr); err != nil {
		t.Fatalf("unmarshal error payload: %v", err)
	}
	if perr.Message != errModeratorOnly.Error() {
		t.Fatalf("message = %q, want %q", perr.Message, errModeratorOnly.Error())
	}

	msg = fakeMatchData{
		fakePresence: fakePresence{userID: "g1", sessionID: "s1"},
		opCode:       OpObstacleBuzz,
	}
	handler.MatchLoop(ctx, noopLogger{}, nil, nil, dispatcher, 2, state, []runtime.MatchData{msg})

	if err := json.Unmarshal(dispatcher.lastData, &perr); err != nil {
		t.Fatalf("unmarshal error payload: %v", err)
	}
	if perr.Message != errPlayerOnly.Error() {
		t.Fatalf("message = %q, want %q", perr.Message, errPlayerOnly.Error())
	}
}

func TestMatchLoopPlayerActsAsSender(t *testing.T) {
	handler := &matchHandler{}
	dispatcher := &mockDispatcher{}
	state := newTestMatchState(nil)
	state.Roles["mod-1"] = RoleModerator
	state.Roles["p1"] = RolePlayer
	state.Presences["mod-1"] = fakePresence{userID: "mod-1", sessionID: "s1"}
	state.Presences["p1"] = fakePresence{userID: "p1", sessionID: "s2"}
	ctx := context.Background()

	if _, err := state.Svc.SetPhase(ctx, domain.PhaseObstacles); err != nil {
		t.Fatalf("set phase error: %v", err)
	}

	msg := fakeMatchData{
		fakePresence: fakePresence{userID: "p1", sessionID: "s2"},
		opCode:       OpObstacleBuzz,
	}
	handler.MatchLoop(ctx, noopLogger{}, nil, nil, dispatcher, 1, state, []runtime.MatchData{msg})

	o := state.Svc.Coordinator().Snapshot().Obstacles
	if len(o.BuzzQueue) != 1 || o.BuzzQueue[0].PlayerID != "p1" {
		t.Fatalf("buzz queue = %+v, want the sender's buzz", o.BuzzQueue)
	}
}

func TestMatchSignalPromotesRole(t *testing.T) {
	handler := &matchHandler{}
	state := newTestMatchState(nil)
	state.Roles["g1"] = RoleGuest

	_, response := handler.MatchSignal(context.Background(), noopLogger{}, nil, nil, &mockDispatcher{}, 1,
		state, `{"user_id":"g1","role":"monitor"}`)
	if response != `{"ok":true}` {
		t.Fatalf("response = %s", response)
	}
	if got := state.Roles["g1"]; got != RoleMonitor {
		t.Fatalf("role = %s, want monitor", got)
	}
}

func TestMatchSignalRejectsSecondModerator(t *testing.T) {
	handler := &matchHandler{}
	state := newTestMatchState(nil)
	state.Roles["mod-1"] = RoleModerator

	_, response := handler.MatchSignal(context.Background(), noopLogger{}, nil, nil, &mockDispatcher{}, 1,
		state, `{"user_id":"u2","role":"moderator"}`)
	if response == `{"ok":true}` {
		t.Fatal("second moderator must not be assignable")
	}
}

func TestMatchLabelMarshal(t *testing.T) {
	payload, err := json.Marshal(MatchLabel{Game: "olympia", Phase: string(domain.PhaseWarmUp)})
	if err != nil {
		t.Fatalf("marshal label error: %v", err)
	}
	if string(payload) != `{"game":"olympia","phase":"WARMUP"}` {
		t.Fatalf("label = %s", payload)
	}
}
