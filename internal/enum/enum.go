package enum

// ── Session state machine ──

// Workflow phase for a business date. Linear within a date; a new base date
// starts over at vote (or order in direct mode).
const (
	PhaseVote   = "vote"
	PhaseOrder  = "order"
	PhaseResult = "result"
)

// Session mode. Direct mode skips voting entirely.
const (
	ModeVote   = "vote"
	ModeDirect = "direct"
)

// ── Catalog labels (persisted in snapshots) ──

const (
	RestaurantOpen     = "open"
	RestaurantClosed   = "closed"
	RestaurantSoldOut  = "soldout"
	RestaurantArchived = "archived"
)

const (
	OptionGroupSingle   = "single"
	OptionGroupMultiple = "multiple"
)

// ── Auth verdict reasons ──

const (
	PinReasonNotSet    = "not_set"
	PinReasonIncorrect = "incorrect"
	PinReasonLocked    = "locked"
)
