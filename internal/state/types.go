package state

// Snapshot is the full serialized session state. This shape is the wire
// contract for the local cache and every remote store and must round-trip
// losslessly, including snapshots written by earlier deployments.
type Snapshot struct {
	Settings    Settings                     `json:"settings"`
	Restaurants []Restaurant                 `json:"restaurants"`
	Menus       map[string]Menu              `json:"menus"`
	Names       []string                     `json:"names"`
	Votes       map[string]map[string]string `json:"votes"`  // date -> participant -> restaurant ID
	Orders      map[string]map[string]Order  `json:"orders"` // date -> participant -> order
}

// Settings is the singleton session configuration.
type Settings struct {
	Mode             string  `json:"mode"` // enum.ModeVote or enum.ModeDirect
	RequiresPreorder bool    `json:"requiresPreorder"`
	BaseDate         string  `json:"baseDate"` // YYYY-MM-DD, the active business date
	Timezone         string  `json:"timezone"`
	VoteCutoff       string  `json:"voteCutoff,omitempty"`  // HH:MM override, optional
	OrderCutoff      string  `json:"orderCutoff,omitempty"` // HH:MM override, optional
	VoteLocked       bool    `json:"voteLocked"`
	OrderLocked      bool    `json:"orderLocked"`
	PinHash          *string `json:"pinHash"`
	PinAttempts      int     `json:"pinAttempts"`
	PinLockout       *int64  `json:"pinLockout"` // epoch ms, nil when not locked
	Backup           Backup  `json:"backup"`
}

// Backup configures the remote replication target.
type Backup struct {
	Enabled bool   `json:"enabled"`
	URL     string `json:"url"`
}

// Restaurant is a catalog entry. IDs are assigned at creation and never
// reused; historical votes may reference a restaurant that was later removed.
type Restaurant struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	RequiresPreorder bool   `json:"requiresPreorder"`
	Status           string `json:"status"` // enum.Restaurant*
}

// Menu holds a restaurant's offerings, keyed in the snapshot by restaurant ID.
type Menu struct {
	Name       string     `json:"name"`
	MenuImages []string   `json:"menuImages,omitempty"`
	Categories []Category `json:"categories"`
	Items      []Item     `json:"items"`
}

// Category groups items inside a menu.
type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Item is an orderable menu entry.
type Item struct {
	ID           string        `json:"id"`
	CategoryID   string        `json:"categoryId"`
	Name         string        `json:"name"`
	BasePrice    float64       `json:"basePrice"`
	Unit         string        `json:"unit,omitempty"`
	ImageURL     string        `json:"imageUrl,omitempty"`
	OptionGroups []OptionGroup `json:"optionGroups,omitempty"`
}

// OptionGroup is a set of item options, single- or multiple-select.
type OptionGroup struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Type    string   `json:"type"` // enum.OptionGroup*
	Options []Option `json:"options"`
}

// Option adjusts the unit price of an item.
type Option struct {
	Name            string  `json:"name"`
	PriceAdjustment float64 `json:"priceAdjustment"`
}

// Order is one participant's order for one date.
type Order struct {
	RestaurantID string      `json:"restaurantId"`
	Items        []OrderLine `json:"items"`
	Note         string      `json:"note"`
	Paid         bool        `json:"paid"`
	Subtotal     float64     `json:"subtotal"`
}

// OrderLine is one line of an order. Price is the final unit price with
// option adjustments already applied; it is computed when the line is added
// and never re-derived from the menu.
type OrderLine struct {
	ID          string  `json:"id"`
	OrderItemID string  `json:"orderItemId,omitempty"`
	Name        string  `json:"name"`
	Qty         int     `json:"qty"`
	Price       float64 `json:"price"`
	Options     string  `json:"options,omitempty"` // readable join of selected option names
}

// VoteTally is one row of a vote summary: a known restaurant and how many
// votes it received on a date.
type VoteTally struct {
	Restaurant
	Count int `json:"count"`
}

// Totals is the payment reconciliation view for a date.
type Totals struct {
	ClassTotal float64  `json:"classTotal"`
	Unpaid     []string `json:"unpaid"`
	Missing    []string `json:"missing"`
}

// PhaseInfo is the payload of a phase-change notification.
type PhaseInfo struct {
	Phase       string    `json:"phase"`
	Deadlines   Deadlines `json:"deadlines"`
	OrderLocked bool      `json:"orderLocked"`
}

// Deadlines are the concrete cutoff instants for the active base date.
type Deadlines struct {
	Vote  string `json:"vote"`  // RFC 3339, empty in direct mode
	Order string `json:"order"` // RFC 3339
}
