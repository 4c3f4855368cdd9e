// Package phase derives the current workflow phase (vote → order → result)
// from the session settings and the clock, and broadcasts phase changes.
package phase

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/lunchvote/api/internal/clock"
	"github.com/lunchvote/api/internal/enum"
	"github.com/lunchvote/api/internal/state"
)

// Default deadline policy, applied when no explicit cutoff is configured:
// voting closes at 17:00 the day before the base date; ordering closes at
// 10:00 on the base date, or also 17:00 the day before when the session
// requires preordering.
const (
	defaultVoteHour     = 17
	defaultOrderHour    = 10
	defaultPreorderHour = 17
)

// Times are the resolved deadline instants for a base date.
type Times struct {
	Vote  time.Time // zero in direct mode
	Order time.Time
}

// Deadlines computes the concrete vote and order deadlines for s in loc.
// An explicit HH:MM cutoff overrides the time of day only; the day each
// deadline falls on follows the default policy.
func Deadlines(s state.Settings, loc *time.Location) (Times, error) {
	base, err := time.ParseInLocation("2006-01-02", s.BaseDate, loc)
	if err != nil {
		return Times{}, fmt.Errorf("parse base date %q: %w", s.BaseDate, err)
	}
	dayBefore := base.AddDate(0, 0, -1)

	var t Times
	if s.Mode != enum.ModeDirect {
		t.Vote = at(dayBefore, defaultVoteHour, 0, loc)
		if h, m, ok := parseCutoff(s.VoteCutoff); ok {
			t.Vote = at(dayBefore, h, m, loc)
		}
	}

	orderDay, orderHour := base, defaultOrderHour
	if s.RequiresPreorder {
		orderDay, orderHour = dayBefore, defaultPreorderHour
	}
	t.Order = at(orderDay, orderHour, 0, loc)
	if h, m, ok := parseCutoff(s.OrderCutoff); ok {
		t.Order = at(orderDay, h, m, loc)
	}
	return t, nil
}

func at(day time.Time, hour, minute int, loc *time.Location) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, loc)
}

func parseCutoff(cutoff string) (hour, minute int, ok bool) {
	if cutoff == "" {
		return 0, 0, false
	}
	if _, err := fmt.Sscanf(cutoff, "%d:%d", &hour, &minute); err != nil {
		return 0, 0, false
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, 0, false
	}
	return hour, minute, true
}

// Resolve computes the phase for s at now, honoring explicit lock flags
// before the clock. Vote mode runs vote → order → result; direct mode runs
// order → result.
func Resolve(s state.Settings, now time.Time, t Times) string {
	if s.Mode == enum.ModeDirect {
		if s.OrderLocked || !now.Before(t.Order) {
			return enum.PhaseResult
		}
		return enum.PhaseOrder
	}
	if !s.VoteLocked && now.Before(t.Vote) {
		return enum.PhaseVote
	}
	if !s.OrderLocked && now.Before(t.Order) {
		return enum.PhaseOrder
	}
	return enum.PhaseResult
}

// SettingsSource is the slice of the state repository the engine needs.
type SettingsSource interface {
	Settings() state.Settings
	PatchSettings(p state.SettingsPatch) error
	SetPhaseHook(fn func())
}

// Engine owns phase resolution for one session. It re-evaluates once per
// minute while running, and synchronously whenever a phase-relevant setting
// changes (the repository calls back through SetPhaseHook).
type Engine struct {
	repo SettingsSource
	clk  clock.Clock
	bus  *state.Bus

	mu   sync.Mutex
	last state.PhaseInfo
	seen bool
}

// NewEngine creates an Engine and registers it as the repository's phase
// hook.
func NewEngine(repo SettingsSource, clk clock.Clock, bus *state.Bus) *Engine {
	if clk == nil {
		clk = clock.System{}
	}
	e := &Engine{repo: repo, clk: clk, bus: bus}
	repo.SetPhaseHook(func() { e.Recheck() })
	return e
}

// Current resolves the phase right now without broadcasting.
func (e *Engine) Current() state.PhaseInfo {
	return e.compute()
}

func (e *Engine) compute() state.PhaseInfo {
	s := e.repo.Settings()
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		log.Printf("ERROR: load timezone %q: %v (falling back to UTC)", s.Timezone, err)
		loc = time.UTC
	}
	info := state.PhaseInfo{Phase: enum.PhaseResult, OrderLocked: s.OrderLocked}
	t, err := Deadlines(s, loc)
	if err != nil {
		// Unparseable base date: treat the session as closed rather than
		// guessing a schedule.
		log.Printf("ERROR: compute deadlines: %v", err)
		return info
	}
	info.Phase = Resolve(s, e.clk.Now(), t)
	if !t.Vote.IsZero() {
		info.Deadlines.Vote = t.Vote.Format(time.RFC3339)
	}
	info.Deadlines.Order = t.Order.Format(time.RFC3339)
	return info
}

// Recheck re-resolves the phase and broadcasts when it differs from the
// last broadcast (or when nothing was broadcast yet).
func (e *Engine) Recheck() {
	info := e.compute()
	e.mu.Lock()
	changed := !e.seen || info != e.last
	e.last = info
	e.seen = true
	e.mu.Unlock()
	if changed {
		e.bus.PublishPhase(info)
	}
}

// LockVote forces progression out of the vote phase regardless of the
// clock. Persists and re-broadcasts.
func (e *Engine) LockVote() error {
	locked := true
	return e.repo.PatchSettings(state.SettingsPatch{VoteLocked: &locked})
}

// LockOrder forces progression to the result phase. Persists and
// re-broadcasts.
func (e *Engine) LockOrder() error {
	locked := true
	return e.repo.PatchSettings(state.SettingsPatch{OrderLocked: &locked})
}

// Run re-evaluates the phase once per minute until ctx is cancelled.
func (e *Engine) Run(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.Recheck()
		}
	}
}
