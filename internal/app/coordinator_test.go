package app

import (
	"context"
	"testing"

	"github.com/giangittb112000/olympia-sub000/internal/domain"
)

func TestCountdownGuardKillsStaleTimer(t *testing.T) {
	rig := newTestRig(t, "p1")
	rig.mustPhase(t, domain.PhaseWarmUp)
	ctx := context.Background()

	if _, err := rig.svc.WarmUpSetup(ctx, "p1", "pack-1"); err != nil {
		t.Fatalf("setup error: %v", err)
	}
	if _, err := rig.svc.WarmUpStart(); err != nil {
		t.Fatalf("start error: %v", err)
	}
	before := rig.coord.Snapshot().WarmUp.TimeLeft

	// Leaving the phase invalidates the guard; the next tick self-terminates
	// the countdown without touching state.
	rig.mustPhase(t, domain.PhaseObstacles)
	expired, changed := rig.coord.TickCountdowns()
	if len(expired) != 0 || changed {
		t.Fatalf("expired=%v changed=%v, want stale timer to die silently", expired, changed)
	}
	if rig.coord.CountdownRunning(domain.RoundWarmUp) {
		t.Fatal("stale countdown should be terminated")
	}
	if got := rig.coord.Snapshot().WarmUp.TimeLeft; got != before {
		t.Fatalf("time left = %d, want untouched %d", got, before)
	}
}

func TestCountdownRestartSupersedes(t *testing.T) {
	rig := newTestRig(t)
	rig.coord.StartCountdown(domain.RoundWarmUp)
	first := rig.coord.countdowns[domain.RoundWarmUp]

	rig.coord.StartCountdown(domain.RoundWarmUp)
	second := rig.coord.countdowns[domain.RoundWarmUp]
	if first == second {
		t.Fatal("restart must replace the countdown instance")
	}
	if second.generation <= first.generation {
		t.Fatalf("generations %d then %d, want strictly increasing", first.generation, second.generation)
	}
}

func TestPersistRestoreRoundTrip(t *testing.T) {
	rig := newTestRig(t, "p1")
	ctx := context.Background()
	startAcceleration(t, rig)

	if _, err := rig.svc.AccelerationSubmitAnswer(ctx, "p1", "alpha"); err != nil {
		t.Fatalf("submit error: %v", err)
	}
	if err := rig.coord.Persist(ctx); err != nil {
		t.Fatalf("persist error: %v", err)
	}

	restored := NewCoordinator(rig.store)
	ok, err := restored.Restore(ctx)
	if err != nil {
		t.Fatalf("restore error: %v", err)
	}
	if !ok {
		t.Fatal("expected a persisted match")
	}

	m := restored.Snapshot()
	if m.Phase != domain.PhaseAcceleration {
		t.Fatalf("phase = %s, want ACCELERATION", m.Phase)
	}
	a := m.Acceleration
	if a == nil || len(a.Answers) != 1 || a.Answers[0].Text != "alpha" {
		t.Fatalf("acceleration state lost: %+v", a)
	}
	// Timers never resume after a restart.
	if a.TimerRunning {
		t.Fatal("restored timer must be frozen")
	}
	if restored.CountdownRunning(domain.RoundAcceleration) {
		t.Fatal("no countdown may survive a restart")
	}
}

func TestRestoreWithoutPersistedMatch(t *testing.T) {
	coord := NewCoordinator(&memStore{})
	ok, err := coord.Restore(context.Background())
	if err != nil {
		t.Fatalf("restore error: %v", err)
	}
	if ok {
		t.Fatal("fresh store should restore nothing")
	}
	if coord.Snapshot().Phase != domain.PhaseIdle {
		t.Fatal("fresh coordinator should stay idle")
	}
}

func TestPersistFailureDoesNotBlockMutations(t *testing.T) {
	store := &memStore{failSave: true}
	coord := NewCoordinator(store)
	ctx := context.Background()

	coord.SetPhase(domain.PhaseWarmUp)
	if err := coord.Persist(ctx); err == nil {
		t.Fatal("expected persist error")
	}
	// State keeps advancing; the next successful persist writes it in full.
	coord.MutateWarmUp(func(w *domain.WarmUpState) {
		w.Status = domain.WarmUpReady
	})
	store.failSave = false
	if err := coord.Persist(ctx); err != nil {
		t.Fatalf("persist error: %v", err)
	}

	loaded, err := store.LoadActive(ctx)
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	if loaded.WarmUp == nil || loaded.WarmUp.Status != domain.WarmUpReady {
		t.Fatal("full merged state should be persisted after recovery")
	}
}
