// Package state owns the canonical in-memory session state: the snapshot
// shape, its load/merge/persist cycle, and every mutating operation. All
// other components (auth gate, phase engine, handlers) operate through the
// Repository; nothing else holds a reference to live state.
package state

import (
	"context"
	"errors"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lunchvote/api/internal/clock"
	"github.com/lunchvote/api/internal/enum"
)

// Validation errors. Rejected before any mutation; no partial writes.
var (
	ErrEmptyDate    = errors.New("date is required")
	ErrEmptyName    = errors.New("name is required")
	ErrNoRestaurant = errors.New("restaurant selection is required")
	ErrEmptyOrder   = errors.New("order has no items")
	ErrInvalidMode  = errors.New("mode must be vote or direct")
)

// Store reads and writes full state snapshots. Read returns (nil, nil) when
// no snapshot exists yet.
type Store interface {
	Read(ctx context.Context) (*Snapshot, error)
	Write(ctx context.Context, snap *Snapshot) error
}

// Options configures a Repository.
type Options struct {
	Local  Store // required: synchronous cache of record
	Remote Store // optional: best-effort replication target
	Bus    *Bus
	Clock  clock.Clock

	// CascadeOnRemove deletes a participant's historical vote/order entries
	// when the participant is removed from the roster. Off by default; the
	// ledgers then keep referencing the removed name, which is harmless.
	CascadeOnRemove bool

	// RemoteTimeout bounds each remote write. Defaults to 10s.
	RemoteTimeout time.Duration
}

// Repository is the single authoritative owner of session state. Mutators
// follow one discipline: mutate under the lock, write the local cache
// synchronously, then release the lock before the remote write and the
// change notification. A slow or failed remote write never blocks the next
// local operation.
type Repository struct {
	mu   sync.Mutex
	snap *Snapshot

	local         Store
	remote        Store
	bus           *Bus
	clk           clock.Clock
	cascade       bool
	remoteTimeout time.Duration
	phaseHook     func()

	// Remote flush guard: at most one in-flight remote write. A mutation
	// arriving mid-flight parks its snapshot in pending; intermediate
	// snapshots are skipped and the latest state wins on the next write.
	flushMu  sync.Mutex
	flushing bool
	pending  *Snapshot
}

// NewRepository creates a Repository. Call Load before use.
func NewRepository(opts Options) *Repository {
	if opts.Bus == nil {
		opts.Bus = NewBus()
	}
	if opts.Clock == nil {
		opts.Clock = clock.System{}
	}
	if opts.RemoteTimeout <= 0 {
		opts.RemoteTimeout = 10 * time.Second
	}
	return &Repository{
		local:         opts.Local,
		remote:        opts.Remote,
		bus:           opts.Bus,
		clk:           opts.Clock,
		cascade:       opts.CascadeOnRemove,
		remoteTimeout: opts.RemoteTimeout,
	}
}

// Bus returns the notification bus.
func (r *Repository) Bus() *Bus { return r.bus }

// SetPhaseHook registers the callback invoked after any settings mutation
// that touches a phase-relevant field. The phase engine registers itself
// here so phase is recomputed synchronously on such changes.
func (r *Repository) SetPhaseHook(fn func()) {
	r.mu.Lock()
	r.phaseHook = fn
	r.mu.Unlock()
}

// Load populates the repository from the local cache, falling back to the
// remote store and finally to the default state. It never returns an error:
// load failures degrade to defaults so the session always starts with a
// fully shaped state object.
func (r *Repository) Load(ctx context.Context) *Snapshot {
	var snap *Snapshot
	if s, err := r.local.Read(ctx); err != nil {
		log.Printf("ERROR: read local snapshot: %v", err)
	} else {
		snap = s
	}
	if snap == nil && r.remote != nil {
		rctx, cancel := context.WithTimeout(ctx, r.remoteTimeout)
		if s, err := r.remote.Read(rctx); err != nil {
			log.Printf("ERROR: read remote snapshot: %v", err)
		} else {
			snap = s
		}
		cancel()
	}
	if snap == nil {
		snap = Default()
	}
	snap.Normalize()

	bootstrap := false
	if snap.Settings.BaseDate == "" {
		snap.Settings.BaseDate = clock.DateIn(r.clk.Now(), r.locationFor(snap.Settings.Timezone))
		bootstrap = true
	}

	r.mu.Lock()
	r.snap = snap
	r.mu.Unlock()

	if bootstrap {
		if err := r.local.Write(ctx, snap.Clone()); err != nil {
			log.Printf("ERROR: local snapshot write: %v", err)
		}
	}
	return snap.Clone()
}

// Snapshot returns a deep copy of the current state.
func (r *Repository) Snapshot() *Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snap.Clone()
}

// Settings returns a copy of the current settings.
func (r *Repository) Settings() Settings {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snap.Clone().Settings
}

// update runs fn against live state under the lock, then commits: local
// cache write before returning, remote write fire-and-forget, change event
// after the lock is released. fn returning an error aborts with no write.
func (r *Repository) update(notify bool, fn func(*Snapshot) error) error {
	r.mu.Lock()
	if err := fn(r.snap); err != nil {
		r.mu.Unlock()
		return err
	}
	snap := r.snap.Clone()
	if err := r.local.Write(context.Background(), snap); err != nil {
		log.Printf("ERROR: local snapshot write: %v", err)
	}
	r.mu.Unlock()

	r.scheduleFlush(snap)
	if notify {
		r.bus.PublishState(snap)
	}
	return nil
}

// scheduleFlush replicates snap to the remote store with at most one write
// in flight. Completion is not awaited by callers; optimistic local-first.
func (r *Repository) scheduleFlush(snap *Snapshot) {
	if r.remote == nil {
		return
	}
	r.flushMu.Lock()
	if r.flushing {
		r.pending = snap
		r.flushMu.Unlock()
		return
	}
	r.flushing = true
	r.flushMu.Unlock()
	go r.flush(snap)
}

func (r *Repository) flush(snap *Snapshot) {
	for {
		ctx, cancel := context.WithTimeout(context.Background(), r.remoteTimeout)
		err := r.remote.Write(ctx, snap)
		cancel()
		if err != nil {
			log.Printf("ERROR: remote sync failed (state persisted locally): %v", err)
		}
		r.flushMu.Lock()
		if r.pending != nil {
			snap = r.pending
			r.pending = nil
			r.flushMu.Unlock()
			continue
		}
		r.flushing = false
		r.flushMu.Unlock()
		return
	}
}

// WaitForFlush blocks until no remote write is in flight. Test helper and
// shutdown aid; production callers never wait on replication.
func (r *Repository) WaitForFlush(timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		r.flushMu.Lock()
		idle := !r.flushing
		r.flushMu.Unlock()
		if idle {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return false
}

// ── Settings ──

// SettingsPatch is a shallow patch over Settings; nil fields are untouched.
type SettingsPatch struct {
	Mode             *string `json:"mode,omitempty"`
	RequiresPreorder *bool   `json:"requiresPreorder,omitempty"`
	BaseDate         *string `json:"baseDate,omitempty"`
	Timezone         *string `json:"timezone,omitempty"`
	VoteCutoff       *string `json:"voteCutoff,omitempty"`
	OrderCutoff      *string `json:"orderCutoff,omitempty"`
	VoteLocked       *bool   `json:"voteLocked,omitempty"`
	OrderLocked      *bool   `json:"orderLocked,omitempty"`
	Backup           *Backup `json:"backup,omitempty"`
}

func (p SettingsPatch) phaseRelevant() bool {
	return p.Mode != nil || p.RequiresPreorder != nil || p.BaseDate != nil ||
		p.Timezone != nil || p.VoteCutoff != nil || p.OrderCutoff != nil ||
		p.VoteLocked != nil || p.OrderLocked != nil
}

// PatchSettings merges p shallowly into the settings. Mutations touching
// phase-relevant fields re-trigger phase computation synchronously.
func (r *Repository) PatchSettings(p SettingsPatch) error {
	if p.Mode != nil && *p.Mode != enum.ModeVote && *p.Mode != enum.ModeDirect {
		return ErrInvalidMode
	}
	err := r.update(true, func(s *Snapshot) error {
		if p.Mode != nil {
			s.Settings.Mode = *p.Mode
		}
		if p.RequiresPreorder != nil {
			s.Settings.RequiresPreorder = *p.RequiresPreorder
		}
		if p.BaseDate != nil {
			s.Settings.BaseDate = *p.BaseDate
		}
		if p.Timezone != nil && *p.Timezone != "" {
			s.Settings.Timezone = *p.Timezone
		}
		if p.VoteCutoff != nil {
			s.Settings.VoteCutoff = *p.VoteCutoff
		}
		if p.OrderCutoff != nil {
			s.Settings.OrderCutoff = *p.OrderCutoff
		}
		if p.VoteLocked != nil {
			s.Settings.VoteLocked = *p.VoteLocked
		}
		if p.OrderLocked != nil {
			s.Settings.OrderLocked = *p.OrderLocked
		}
		if p.Backup != nil {
			s.Settings.Backup = *p.Backup
		}
		return nil
	})
	if err != nil {
		return err
	}
	if p.phaseRelevant() {
		r.mu.Lock()
		hook := r.phaseHook
		r.mu.Unlock()
		if hook != nil {
			hook()
		}
	}
	return nil
}

// ── Roster ──

// Names returns the roster, sorted ascending.
func (r *Repository) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string{}, r.snap.Names...)
}

// AddNames merges names into the roster: trimmed, empties dropped,
// deduplicated, sorted ascending. Parsing of raw delimited text is the
// caller's job; this only takes the split list.
func (r *Repository) AddNames(names []string) {
	_ = r.update(true, func(s *Snapshot) error {
		set := make(map[string]bool, len(s.Names)+len(names))
		for _, n := range s.Names {
			set[n] = true
		}
		for _, n := range names {
			n = strings.TrimSpace(n)
			if n != "" {
				set[n] = true
			}
		}
		merged := make([]string, 0, len(set))
		for n := range set {
			merged = append(merged, n)
		}
		sort.Strings(merged)
		s.Names = merged
		return nil
	})
}

// RemoveName drops a participant from the roster. With CascadeOnRemove set,
// the participant's historical vote and order entries are deleted too.
func (r *Repository) RemoveName(name string) {
	_ = r.update(true, func(s *Snapshot) error {
		kept := s.Names[:0]
		for _, n := range s.Names {
			if n != name {
				kept = append(kept, n)
			}
		}
		s.Names = kept
		if r.cascade {
			for _, byName := range s.Votes {
				delete(byName, name)
			}
			for _, byName := range s.Orders {
				delete(byName, name)
			}
		}
		return nil
	})
}

// ── Restaurants & menus ──

// Restaurants lists the catalog; activeOnly filters archived entries.
func (r *Repository) Restaurants(activeOnly bool) []Restaurant {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Restaurant, 0, len(r.snap.Restaurants))
	for _, rest := range r.snap.Restaurants {
		if activeOnly && rest.Status == enum.RestaurantArchived {
			continue
		}
		out = append(out, rest)
	}
	return out
}

// RestaurantByID looks up a catalog entry.
func (r *Repository) RestaurantByID(id string) (Restaurant, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rest := range r.snap.Restaurants {
		if rest.ID == id {
			return rest, true
		}
	}
	return Restaurant{}, false
}

// UpsertRestaurant replaces the entry with a matching ID or appends a new
// one. An empty ID is assigned at creation and never reused.
func (r *Repository) UpsertRestaurant(rest Restaurant) Restaurant {
	if rest.ID == "" {
		rest.ID = uuid.NewString()
	}
	if rest.Status == "" {
		rest.Status = enum.RestaurantOpen
	}
	_ = r.update(true, func(s *Snapshot) error {
		for i := range s.Restaurants {
			if s.Restaurants[i].ID == rest.ID {
				s.Restaurants[i] = rest
				return nil
			}
		}
		s.Restaurants = append(s.Restaurants, rest)
		return nil
	})
	return rest
}

// RemoveRestaurant deletes a restaurant and its menu. Historical votes and
// orders keep referencing the ID; the vote summary simply stops showing it.
func (r *Repository) RemoveRestaurant(id string) {
	_ = r.update(true, func(s *Snapshot) error {
		kept := s.Restaurants[:0]
		for _, rest := range s.Restaurants {
			if rest.ID != id {
				kept = append(kept, rest)
			}
		}
		s.Restaurants = kept
		delete(s.Menus, id)
		return nil
	})
}

// Menus returns all menus keyed by restaurant ID.
func (r *Repository) Menus() map[string]Menu {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snap.Clone().Menus
}

// SetMenu stores a restaurant's menu, minting IDs for categories and items
// that lack one. Returned warnings flag orphaned category references; they
// are logged here and surfaced to the caller, never treated as fatal.
func (r *Repository) SetMenu(restaurantID string, m Menu) []string {
	if m.Categories == nil {
		m.Categories = []Category{}
	}
	if m.Items == nil {
		m.Items = []Item{}
	}
	for i := range m.Categories {
		if m.Categories[i].ID == "" {
			m.Categories[i].ID = uuid.NewString()
		}
	}
	for i := range m.Items {
		if m.Items[i].ID == "" {
			m.Items[i].ID = uuid.NewString()
		}
		for j := range m.Items[i].OptionGroups {
			if m.Items[i].OptionGroups[j].ID == "" {
				m.Items[i].OptionGroups[j].ID = uuid.NewString()
			}
		}
	}
	warnings := MenuWarnings(m)
	for _, w := range warnings {
		log.Printf("WARN: menu %s: %s", restaurantID, w)
	}
	_ = r.update(true, func(s *Snapshot) error {
		s.Menus[restaurantID] = cloneMenu(m)
		return nil
	})
	return warnings
}

// ── PIN bookkeeping (used by the auth gate) ──

// PinStatus reports the stored digest, failure count, and lockout instant
// (epoch ms, 0 when not locked).
func (r *Repository) PinStatus() (hash string, attempts int, lockoutAt int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.snap.Settings.PinHash != nil {
		hash = *r.snap.Settings.PinHash
	}
	if r.snap.Settings.PinLockout != nil {
		lockoutAt = *r.snap.Settings.PinLockout
	}
	return hash, r.snap.Settings.PinAttempts, lockoutAt
}

// SetPinHash stores a new digest and resets the attempt counter and lockout.
func (r *Repository) SetPinHash(hash string) {
	_ = r.update(true, func(s *Snapshot) error {
		s.Settings.PinHash = &hash
		s.Settings.PinAttempts = 0
		s.Settings.PinLockout = nil
		return nil
	})
}

// RecordPinFailure persists a failed attempt. lockoutAt > 0 sets a lockout.
// Verification failures persist silently: no change event fires.
func (r *Repository) RecordPinFailure(attempts int, lockoutAt int64) {
	_ = r.update(false, func(s *Snapshot) error {
		s.Settings.PinAttempts = attempts
		if lockoutAt > 0 {
			s.Settings.PinLockout = &lockoutAt
		} else {
			s.Settings.PinLockout = nil
		}
		return nil
	})
}

// ClearPinFailures resets the attempt counter after a successful verify.
func (r *Repository) ClearPinFailures() {
	_ = r.update(false, func(s *Snapshot) error {
		s.Settings.PinAttempts = 0
		s.Settings.PinLockout = nil
		return nil
	})
}

// ── internal helpers ──

func (r *Repository) locationFor(tz string) *time.Location {
	loc, err := time.LoadLocation(tz)
	if err != nil {
		log.Printf("ERROR: load timezone %q: %v (falling back to UTC)", tz, err)
		return time.UTC
	}
	return loc
}

// Location resolves the configured timezone.
func (r *Repository) Location() *time.Location {
	return r.locationFor(r.Settings().Timezone)
}
