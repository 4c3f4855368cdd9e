package state

import "sync"

// Bus is the typed in-process notification seam between the engine and its
// consumers (WebSocket hub, announcer). Two event kinds exist: a state
// change carrying a cloned snapshot, and a phase change carrying the
// resolved phase and deadlines. Publishing is synchronous; subscribers must
// not block.
type Bus struct {
	mu        sync.RWMutex
	stateSubs []func(*Snapshot)
	phaseSubs []func(PhaseInfo)
}

// NewBus creates an empty Bus.
func NewBus() *Bus {
	return &Bus{}
}

// SubscribeState registers fn to receive every state-changed event.
func (b *Bus) SubscribeState(fn func(*Snapshot)) {
	b.mu.Lock()
	b.stateSubs = append(b.stateSubs, fn)
	b.mu.Unlock()
}

// SubscribePhase registers fn to receive every phase-changed event.
func (b *Bus) SubscribePhase(fn func(PhaseInfo)) {
	b.mu.Lock()
	b.phaseSubs = append(b.phaseSubs, fn)
	b.mu.Unlock()
}

// PublishState delivers a state-changed event. The snapshot must already be
// a clone; subscribers may retain it.
func (b *Bus) PublishState(snap *Snapshot) {
	b.mu.RLock()
	subs := b.stateSubs
	b.mu.RUnlock()
	for _, fn := range subs {
		fn(snap)
	}
}

// PublishPhase delivers a phase-changed event.
func (b *Bus) PublishPhase(info PhaseInfo) {
	b.mu.RLock()
	subs := b.phaseSubs
	b.mu.RUnlock()
	for _, fn := range subs {
		fn(info)
	}
}
