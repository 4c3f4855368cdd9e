package state

import (
	"encoding/json"
	"fmt"

	"github.com/lunchvote/api/internal/enum"
)

// DefaultTimezone is used when a snapshot carries no timezone.
const DefaultTimezone = "Asia/Taipei"

// Default returns the documented default state: vote mode, no PIN, empty
// collections. Every load failure degrades to a fresh copy of this.
func Default() *Snapshot {
	return &Snapshot{
		Settings: Settings{
			Mode:     enum.ModeVote,
			Timezone: DefaultTimezone,
		},
		Restaurants: []Restaurant{},
		Menus:       map[string]Menu{},
		Names:       []string{},
		Votes:       map[string]map[string]string{},
		Orders:      map[string]map[string]Order{},
	}
}

// Decode deserializes a stored snapshot, filling every missing field with
// its default. A partial payload (an older deployment's snapshot, or a
// remote endpoint that dropped fields) never leaves a collection nil or a
// settings field zeroed out: unmarshalling starts from Default, so absent
// keys keep their defaults, and Normalize repairs whatever remains.
func Decode(raw []byte) (*Snapshot, error) {
	s := Default()
	if err := json.Unmarshal(raw, s); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	s.Normalize()
	return s, nil
}

// Encode serializes a snapshot for storage.
func Encode(s *Snapshot) ([]byte, error) {
	raw, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return raw, nil
}

// Normalize repairs shape drift in place: nil collections become empty,
// blank settings fall back to defaults. It never fails; data-integrity
// problems inside menus are reported by MenuWarnings instead.
func (s *Snapshot) Normalize() {
	if s.Settings.Mode != enum.ModeVote && s.Settings.Mode != enum.ModeDirect {
		s.Settings.Mode = enum.ModeVote
	}
	if s.Settings.Timezone == "" {
		s.Settings.Timezone = DefaultTimezone
	}
	if s.Restaurants == nil {
		s.Restaurants = []Restaurant{}
	}
	if s.Menus == nil {
		s.Menus = map[string]Menu{}
	}
	for id, m := range s.Menus {
		if m.Categories == nil {
			m.Categories = []Category{}
		}
		if m.Items == nil {
			m.Items = []Item{}
		}
		s.Menus[id] = m
	}
	if s.Names == nil {
		s.Names = []string{}
	}
	if s.Votes == nil {
		s.Votes = map[string]map[string]string{}
	}
	for date, byName := range s.Votes {
		if byName == nil {
			s.Votes[date] = map[string]string{}
		}
	}
	if s.Orders == nil {
		s.Orders = map[string]map[string]Order{}
	}
	for date, byName := range s.Orders {
		if byName == nil {
			s.Orders[date] = map[string]Order{}
			continue
		}
		for name, order := range byName {
			if order.Items == nil {
				order.Items = []OrderLine{}
				byName[name] = order
			}
		}
	}
}

// Clone returns a deep copy. Snapshots handed to subscribers and stores are
// always clones, so no consumer can reach back into live repository state.
func (s *Snapshot) Clone() *Snapshot {
	out := &Snapshot{
		Settings:    s.Settings,
		Restaurants: make([]Restaurant, len(s.Restaurants)),
		Menus:       make(map[string]Menu, len(s.Menus)),
		Names:       append([]string{}, s.Names...),
		Votes:       make(map[string]map[string]string, len(s.Votes)),
		Orders:      make(map[string]map[string]Order, len(s.Orders)),
	}
	if s.Settings.PinHash != nil {
		hash := *s.Settings.PinHash
		out.Settings.PinHash = &hash
	}
	if s.Settings.PinLockout != nil {
		lockout := *s.Settings.PinLockout
		out.Settings.PinLockout = &lockout
	}
	copy(out.Restaurants, s.Restaurants)
	for id, m := range s.Menus {
		out.Menus[id] = cloneMenu(m)
	}
	for date, byName := range s.Votes {
		votes := make(map[string]string, len(byName))
		for name, rid := range byName {
			votes[name] = rid
		}
		out.Votes[date] = votes
	}
	for date, byName := range s.Orders {
		orders := make(map[string]Order, len(byName))
		for name, order := range byName {
			order.Items = append([]OrderLine{}, order.Items...)
			orders[name] = order
		}
		out.Orders[date] = orders
	}
	return out
}

func cloneMenu(m Menu) Menu {
	m.MenuImages = append([]string{}, m.MenuImages...)
	m.Categories = append([]Category{}, m.Categories...)
	items := make([]Item, len(m.Items))
	for i, item := range m.Items {
		groups := make([]OptionGroup, len(item.OptionGroups))
		for j, g := range item.OptionGroups {
			g.Options = append([]Option{}, g.Options...)
			groups[j] = g
		}
		item.OptionGroups = groups
		items[i] = item
	}
	m.Items = items
	return m
}

// MenuWarnings reports items whose categoryId references no category in the
// same menu. Orphaned items are tolerated (they render under no category);
// the warning exists so admins can repair the menu.
func MenuWarnings(m Menu) []string {
	known := make(map[string]bool, len(m.Categories))
	for _, c := range m.Categories {
		known[c.ID] = true
	}
	var warnings []string
	for _, item := range m.Items {
		if item.CategoryID != "" && !known[item.CategoryID] {
			warnings = append(warnings, fmt.Sprintf("item %q references unknown category %q", item.Name, item.CategoryID))
		}
	}
	return warnings
}
