// Package notify pushes session announcements to a Telegram group: phase
// transitions as they happen, and the call-in summary once the session
// reaches the result phase. Entirely optional; a nil Announcer is inert.
package notify

import (
	"fmt"
	"log"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/lunchvote/api/internal/enum"
	"github.com/lunchvote/api/internal/state"
	"github.com/lunchvote/api/internal/summary"
)

// SnapshotSource provides the current snapshot for result summaries.
type SnapshotSource interface {
	Snapshot() *state.Snapshot
	Settings() state.Settings
}

// Announcer sends session events to one chat.
type Announcer struct {
	bot    *tgbotapi.BotAPI
	chatID int64
	repo   SnapshotSource
}

// New creates an Announcer, or returns an error when the token is rejected.
func New(token string, chatID int64, repo SnapshotSource) (*Announcer, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram init: %w", err)
	}
	return &Announcer{bot: bot, chatID: chatID, repo: repo}, nil
}

// Bind subscribes the announcer to phase changes on bus.
func (a *Announcer) Bind(bus *state.Bus) {
	if a == nil {
		return
	}
	bus.SubscribePhase(a.announcePhase)
}

func (a *Announcer) announcePhase(info state.PhaseInfo) {
	var text string
	switch info.Phase {
	case enum.PhaseVote:
		text = fmt.Sprintf("Voting is open. Votes close at %s.", info.Deadlines.Vote)
	case enum.PhaseOrder:
		text = fmt.Sprintf("Ordering is open. Orders close at %s.", info.Deadlines.Order)
	case enum.PhaseResult:
		snap := a.repo.Snapshot()
		text = fmt.Sprintf("Ordering closed.\n\n%s", summary.Phone(snap, snap.Settings.BaseDate))
	default:
		return
	}
	a.send(text)
}

func (a *Announcer) send(text string) {
	msg := tgbotapi.NewMessage(a.chatID, text)
	if _, err := a.bot.Send(msg); err != nil {
		log.Printf("ERROR: telegram send: %v", err)
	}
}
