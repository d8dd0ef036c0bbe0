package app

import (
	"context"
	"time"

	"github.com/giangittb112000/olympia-sub000/internal/domain"
	"github.com/giangittb112000/olympia-sub000/internal/ports"
)

// Coordinator owns the authoritative in-memory state tree of the single
// active match. All round services mutate through it; it mirrors every state
// to the match store and drives the per-round countdowns. It is not safe for
// concurrent use: the match loop guarantees one mutation at a time.
type Coordinator struct {
	match *domain.Match
	store ports.MatchStore
	now   func() int64 // unix millis

	countdowns map[domain.Round]*countdown
	generation uint64
}

// countdown is a once-per-second decrementing timer for one round. It holds
// the generation it was started with so a superseded instance can never be
// confused with its replacement.
type countdown struct {
	generation uint64
	active     bool
}

// NewCoordinator constructs a coordinator with a fresh idle match.
func NewCoordinator(store ports.MatchStore) *Coordinator {
	return &Coordinator{
		match:      domain.NewMatch(),
		store:      store,
		now:        func() int64 { return time.Now().UnixMilli() },
		countdowns: map[domain.Round]*countdown{},
	}
}

// Snapshot returns the in-memory state tree. Callers must treat it as
// read-only; all writes go through the mutation methods.
func (c *Coordinator) Snapshot() *domain.Match {
	return c.match
}

// Now returns the coordinator clock in unix millis.
func (c *Coordinator) Now() int64 {
	return c.now()
}

func (c *Coordinator) touch() {
	c.match.UpdatedAt = c.now()
}

// SetPhase transitions the active phase. The target round's sub-state is
// initialized to its canonical starting values only when the round has never
// been entered; re-entering preserves progress already made in this match.
func (c *Coordinator) SetPhase(phase domain.Phase) {
	c.match.Phase = phase
	switch phase {
	case domain.PhaseWarmUp:
		if c.match.WarmUp == nil {
			c.match.WarmUp = domain.NewWarmUpState()
		}
	case domain.PhaseObstacles:
		if c.match.Obstacles == nil {
			c.match.Obstacles = domain.NewObstacleState()
		}
	case domain.PhaseAcceleration:
		if c.match.Acceleration == nil {
			c.match.Acceleration = domain.NewAccelerationState()
		}
	case domain.PhaseFinish:
		if c.match.Finish == nil {
			c.match.Finish = domain.NewFinishLineState()
		}
	}
	c.touch()
}

// MutateWarmUp runs fn against the warm-up state. The round must have been
// entered; fn is the only writer and runs on the single mutation thread.
func (c *Coordinator) MutateWarmUp(fn func(*domain.WarmUpState)) {
	if c.match.WarmUp == nil {
		c.match.WarmUp = domain.NewWarmUpState()
	}
	fn(c.match.WarmUp)
	c.touch()
}

// MutateObstacles runs fn against the obstacles state.
func (c *Coordinator) MutateObstacles(fn func(*domain.ObstacleState)) {
	if c.match.Obstacles == nil {
		c.match.Obstacles = domain.NewObstacleState()
	}
	fn(c.match.Obstacles)
	c.touch()
}

// MutateAcceleration runs fn against the acceleration state.
func (c *Coordinator) MutateAcceleration(fn func(*domain.AccelerationState)) {
	if c.match.Acceleration == nil {
		c.match.Acceleration = domain.NewAccelerationState()
	}
	fn(c.match.Acceleration)
	c.touch()
}

// MutateFinish runs fn against the finish line state.
func (c *Coordinator) MutateFinish(fn func(*domain.FinishLineState)) {
	if c.match.Finish == nil {
		c.match.Finish = domain.NewFinishLineState()
	}
	fn(c.match.Finish)
	c.touch()
}

// StartCountdown begins a one-tick-per-second countdown for the round,
// superseding any countdown already running for it. The remaining seconds
// live in the round state's TimeLeft field; the coordinator only tracks
// liveness and generation.
func (c *Coordinator) StartCountdown(round domain.Round) {
	c.generation++
	c.countdowns[round] = &countdown{generation: c.generation, active: true}
}

// StopCountdown cancels the round's countdown if one is running.
func (c *Coordinator) StopCountdown(round domain.Round) {
	if cd, ok := c.countdowns[round]; ok {
		cd.active = false
	}
}

// CountdownRunning reports whether a live countdown exists for the round.
func (c *Coordinator) CountdownRunning(round domain.Round) bool {
	cd, ok := c.countdowns[round]
	return ok && cd.active
}

// TickCountdowns advances every live countdown by one second. Each tick
// re-validates the authoritative round status before mutating: a countdown
// whose guard no longer holds self-terminates without touching state, which
// is how a stale timer from a superseded round dies harmlessly. It returns
// the rounds that reached zero this tick and whether any state changed.
func (c *Coordinator) TickCountdowns() (expired []domain.Round, changed bool) {
	for round, cd := range c.countdowns {
		if !cd.active {
			continue
		}
		if !c.countdownGuard(round) {
			cd.active = false
			continue
		}
		left := c.decrementTimeLeft(round)
		changed = true
		if left <= 0 {
			cd.active = false
			expired = append(expired, round)
		}
	}
	if changed {
		c.touch()
	}
	return expired, changed
}

// countdownGuard checks that the round is still in a status where its
// countdown is allowed to run.
func (c *Coordinator) countdownGuard(round domain.Round) bool {
	m := c.match
	switch round {
	case domain.RoundWarmUp:
		return m.Phase == domain.PhaseWarmUp && m.WarmUp != nil && m.WarmUp.Status == domain.WarmUpPlaying
	case domain.RoundObstacles:
		return m.Phase == domain.PhaseObstacles && m.Obstacles != nil && m.Obstacles.Status == domain.ObstacleThinking
	case domain.RoundAcceleration:
		return m.Phase == domain.PhaseAcceleration && m.Acceleration != nil &&
			m.Acceleration.Status == domain.AccelerationPlaying && m.Acceleration.TimerRunning
	case domain.RoundFinish:
		return m.Phase == domain.PhaseFinish && m.Finish != nil &&
			m.Finish.Status == domain.FinishPlayingQuestion && m.Finish.TimerRunning && !m.Finish.WaitingVideo
	}
	return false
}

func (c *Coordinator) decrementTimeLeft(round domain.Round) int {
	switch round {
	case domain.RoundWarmUp:
		if c.match.WarmUp.TimeLeft > 0 {
			c.match.WarmUp.TimeLeft--
		}
		return c.match.WarmUp.TimeLeft
	case domain.RoundObstacles:
		if c.match.Obstacles.TimeLeft > 0 {
			c.match.Obstacles.TimeLeft--
		}
		return c.match.Obstacles.TimeLeft
	case domain.RoundAcceleration:
		if c.match.Acceleration.TimeLeft > 0 {
			c.match.Acceleration.TimeLeft--
		}
		return c.match.Acceleration.TimeLeft
	case domain.RoundFinish:
		if c.match.Finish.TimeLeft > 0 {
			c.match.Finish.TimeLeft--
		}
		return c.match.Finish.TimeLeft
	}
	return 0
}

// Persist mirrors the full in-memory state tree to the match store. Failures
// are returned for logging but must never block the mutation or broadcast
// path; the next successful persist writes the full merged state, so a
// transient failure loses at most the latest tick on a crash.
func (c *Coordinator) Persist(ctx context.Context) error {
	if c.store == nil {
		return nil
	}
	return c.store.SaveActive(ctx, c.match)
}

// Restore loads the most recently persisted active match, if any, and
// rehydrates it with explicit defaults for fields missing from older
// documents. Countdowns are never restored: a timer from before a restart
// must not resume ticking.
func (c *Coordinator) Restore(ctx context.Context) (bool, error) {
	if c.store == nil {
		return false, nil
	}
	m, err := c.store.LoadActive(ctx)
	if err != nil {
		return false, err
	}
	if m == nil {
		return false, nil
	}
	c.match = m.WithDefaults()
	// Any "running" flags persisted mid-countdown are cleared so the timer
	// stays frozen until the moderator restarts it.
	if c.match.Acceleration != nil {
		c.match.Acceleration.TimerRunning = false
	}
	if c.match.Finish != nil {
		c.match.Finish.TimerRunning = false
	}
	return true, nil
}
