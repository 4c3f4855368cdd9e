// Package summary renders the share texts the caller pastes into a group
// chat or reads over the phone. Pure functions over a snapshot, so output
// is deterministic and golden-testable.
package summary

import (
	"fmt"
	"sort"
	"strings"

	"github.com/lunchvote/api/internal/state"
	"github.com/shopspring/decimal"
)

// Line renders the chat-paste summary for a date: orders grouped by
// restaurant, each participant's items and subtotal, then the class total
// and who still owes. An empty date renders an explicit placeholder, never
// blank output.
func Line(snap *state.Snapshot, date string) string {
	orders := snap.Orders[date]
	if len(orders) == 0 {
		return fmt.Sprintf("No orders yet for %s.", date)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Lunch orders %s\n", date)

	classTotal := decimal.Zero
	var unpaid []string
	for _, rid := range restaurantOrder(snap, orders) {
		fmt.Fprintf(&b, "\n[%s]\n", restaurantName(snap, rid))
		for _, name := range participantsFor(orders, rid) {
			o := orders[name]
			fmt.Fprintf(&b, "- %s: %s - $%s\n", name, joinItems(o.Items), money(o.Subtotal))
		}
	}
	for name, o := range orders {
		classTotal = classTotal.Add(decimal.NewFromFloat(o.Subtotal))
		if !o.Paid {
			unpaid = append(unpaid, name)
		}
	}
	sort.Strings(unpaid)

	fmt.Fprintf(&b, "\nClass total: $%s\n", classTotal.Round(2).String())
	if len(unpaid) > 0 {
		fmt.Fprintf(&b, "Unpaid: %s\n", strings.Join(unpaid, ", "))
	}
	var missing []string
	for _, name := range snap.Names {
		if _, ok := orders[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		fmt.Fprintf(&b, "Missing: %s\n", strings.Join(missing, ", "))
	}
	return b.String()
}

// Phone renders the call-in summary for a date: per restaurant, aggregated
// item quantities and the amount due, ready to read to the restaurant.
func Phone(snap *state.Snapshot, date string) string {
	orders := snap.Orders[date]
	if len(orders) == 0 {
		return fmt.Sprintf("No orders yet for %s.", date)
	}

	var b strings.Builder
	for i, rid := range restaurantOrder(snap, orders) {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "Call-in for %s (%s):\n", restaurantName(snap, rid), date)

		type lineKey struct{ name, options string }
		counts := map[lineKey]int{}
		var keys []lineKey
		total := decimal.Zero
		for _, name := range participantsFor(orders, rid) {
			o := orders[name]
			total = total.Add(decimal.NewFromFloat(o.Subtotal))
			for _, line := range o.Items {
				k := lineKey{line.Name, line.Options}
				if _, seen := counts[k]; !seen {
					keys = append(keys, k)
				}
				counts[k] += line.Qty
			}
		}
		sort.Slice(keys, func(i, j int) bool {
			if keys[i].name != keys[j].name {
				return keys[i].name < keys[j].name
			}
			return keys[i].options < keys[j].options
		})
		for _, k := range keys {
			if k.options != "" {
				fmt.Fprintf(&b, "- %s (%s) x%d\n", k.name, k.options, counts[k])
			} else {
				fmt.Fprintf(&b, "- %s x%d\n", k.name, counts[k])
			}
		}
		fmt.Fprintf(&b, "Total: $%s\n", total.Round(2).String())
	}
	return b.String()
}

// restaurantOrder lists the restaurant IDs referenced by orders, catalog
// entries first in catalog order, unknown (since removed) IDs after, sorted.
func restaurantOrder(snap *state.Snapshot, orders map[string]state.Order) []string {
	referenced := map[string]bool{}
	for _, o := range orders {
		referenced[o.RestaurantID] = true
	}
	var ids []string
	for _, r := range snap.Restaurants {
		if referenced[r.ID] {
			ids = append(ids, r.ID)
			delete(referenced, r.ID)
		}
	}
	var unknown []string
	for id := range referenced {
		unknown = append(unknown, id)
	}
	sort.Strings(unknown)
	return append(ids, unknown...)
}

func restaurantName(snap *state.Snapshot, id string) string {
	for _, r := range snap.Restaurants {
		if r.ID == id {
			return r.Name
		}
	}
	return id
}

func participantsFor(orders map[string]state.Order, restaurantID string) []string {
	var names []string
	for name, o := range orders {
		if o.RestaurantID == restaurantID {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

func joinItems(items []state.OrderLine) string {
	parts := make([]string, 0, len(items))
	for _, line := range items {
		part := fmt.Sprintf("%s x%d", line.Name, line.Qty)
		if line.Options != "" {
			part = fmt.Sprintf("%s (%s) x%d", line.Name, line.Options, line.Qty)
		}
		parts = append(parts, part)
	}
	if len(parts) == 0 {
		return "no items"
	}
	return strings.Join(parts, ", ")
}

func money(v float64) string {
	return decimal.NewFromFloat(v).Round(2).String()
}
