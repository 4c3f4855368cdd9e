// Package auth gates admin access: a PIN digest with brute-force lockout
// stored in the session settings, and short-lived JWTs issued once the PIN
// verifies.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/lunchvote/api/internal/clock"
	"github.com/lunchvote/api/internal/enum"
	"golang.org/x/crypto/bcrypt"
)

const (
	// MinPinLength is enforced at SetPin; UIs should enforce it earlier.
	MinPinLength = 4

	maxAttempts   = 5
	lockoutWindow = 5 * time.Minute
)

// ErrPinTooShort rejects PINs under MinPinLength characters.
var ErrPinTooShort = errors.New("pin must be at least 4 characters")

// CredentialStore is the slice of the state repository the gate needs.
type CredentialStore interface {
	PinStatus() (hash string, attempts int, lockoutAt int64)
	SetPinHash(hash string)
	RecordPinFailure(attempts int, lockoutAt int64)
	ClearPinFailures()
}

// Verdict is the structured result of a PIN check. Never delivered as an
// error: the UI decides messaging, including showing the unlock time.
type Verdict struct {
	OK       bool   `json:"ok"`
	Reason   string `json:"reason,omitempty"`
	UnlockAt int64  `json:"unlockAt,omitempty"` // epoch ms, set when locked
}

// Gate verifies PINs against the stored digest with attempt counting and a
// timed lockout. State transitions persist immediately through the store;
// failures persist without firing a change event.
type Gate struct {
	store CredentialStore
	clk   clock.Clock
}

// NewGate creates a Gate.
func NewGate(store CredentialStore, clk clock.Clock) *Gate {
	if clk == nil {
		clk = clock.System{}
	}
	return &Gate{store: store, clk: clk}
}

// SetPin stores a one-way digest of pin and resets the attempt counter and
// lockout. The digest is bcrypt, so every stored hash carries its own salt;
// it lives inside the snapshot and verifies identically on any device.
func (g *Gate) SetPin(pin string) error {
	if len(pin) < MinPinLength {
		return ErrPinTooShort
	}
	digest, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash pin: %w", err)
	}
	g.store.SetPinHash(string(digest))
	return nil
}

// Verify checks pin against the stored digest.
//
// With no digest set it returns ok with reason "not_set": the first-run
// bootstrap signal, after which the caller must force SetPin. During a
// lockout it refuses without consuming an attempt. Otherwise a mismatch
// increments the counter; the fifth consecutive failure starts a five
// minute lockout and resets the counter.
func (g *Gate) Verify(pin string) Verdict {
	hash, attempts, lockoutAt := g.store.PinStatus()
	if hash == "" {
		return Verdict{OK: true, Reason: enum.PinReasonNotSet}
	}
	now := g.clk.Now().UnixMilli()
	if lockoutAt > 0 && now < lockoutAt {
		return Verdict{OK: false, Reason: enum.PinReasonLocked, UnlockAt: lockoutAt}
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(pin)) == nil {
		g.store.ClearPinFailures()
		return Verdict{OK: true}
	}
	attempts++
	var lockout int64
	if attempts >= maxAttempts {
		lockout = now + lockoutWindow.Milliseconds()
		attempts = 0
	}
	g.store.RecordPinFailure(attempts, lockout)
	return Verdict{OK: false, Reason: enum.PinReasonIncorrect}
}

// PinSet reports whether a digest is stored.
func (g *Gate) PinSet() bool {
	hash, _, _ := g.store.PinStatus()
	return hash != ""
}
