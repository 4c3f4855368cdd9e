package state

import (
	"sort"

	"github.com/shopspring/decimal"
)

// SetOrder stores a participant's order for a date, replacing any previous
// item list wholesale. Items are normalized (negative prices clamped,
// zero-quantity lines dropped) and the subtotal is recomputed from the
// normalized lines; a subtotal carried on the input is never trusted. The
// paid flag of an existing order survives resubmission.
func (r *Repository) SetOrder(date, name string, o Order) (Order, error) {
	if date == "" {
		return Order{}, ErrEmptyDate
	}
	if name == "" {
		return Order{}, ErrEmptyName
	}
	if o.RestaurantID == "" {
		return Order{}, ErrNoRestaurant
	}
	norm := normalizeOrder(o)
	if len(norm.Items) == 0 {
		return Order{}, ErrEmptyOrder
	}
	err := r.update(true, func(s *Snapshot) error {
		byName, ok := s.Orders[date]
		if !ok {
			byName = map[string]Order{}
			s.Orders[date] = byName
		}
		if prev, exists := byName[name]; exists {
			norm.Paid = prev.Paid
		}
		byName[name] = norm
		return nil
	})
	if err != nil {
		return Order{}, err
	}
	return norm, nil
}

func normalizeOrder(o Order) Order {
	items := make([]OrderLine, 0, len(o.Items))
	subtotal := decimal.Zero
	for _, line := range o.Items {
		if line.Qty <= 0 {
			continue
		}
		if line.Price < 0 {
			line.Price = 0
		}
		price := decimal.NewFromFloat(line.Price)
		subtotal = subtotal.Add(price.Mul(decimal.NewFromInt(int64(line.Qty))))
		items = append(items, line)
	}
	o.Items = items
	o.Subtotal = subtotal.Round(2).InexactFloat64()
	return o
}

// SetPaymentStatus flips only the paid flag of an existing order. No-op
// (returning false) when no order exists for the key.
func (r *Repository) SetPaymentStatus(date, name string, paid bool) bool {
	updated := false
	_ = r.update(true, func(s *Snapshot) error {
		byName, ok := s.Orders[date]
		if !ok {
			return nil
		}
		order, ok := byName[name]
		if !ok {
			return nil
		}
		order.Paid = paid
		byName[name] = order
		updated = true
		return nil
	})
	return updated
}

// Order returns one participant's order for a date.
func (r *Repository) Order(date, name string) (Order, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.snap.Orders[date][name]
	if ok {
		o.Items = append([]OrderLine{}, o.Items...)
	}
	return o, ok
}

// Orders returns all orders for a date, keyed by participant.
func (r *Repository) Orders(date string) map[string]Order {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := map[string]Order{}
	for name, o := range r.snap.Orders[date] {
		o.Items = append([]OrderLine{}, o.Items...)
		out[name] = o
	}
	return out
}

// ComputeTotals derives the reconciliation view for a date, fresh on every
// call: the class total over all subtotals, participants with an unpaid
// order, and roster participants with no order at all. Name lists are
// sorted ascending for stable output.
func (r *Repository) ComputeTotals(date string) Totals {
	r.mu.Lock()
	defer r.mu.Unlock()
	totals := Totals{Unpaid: []string{}, Missing: []string{}}
	classTotal := decimal.Zero
	byName := r.snap.Orders[date]
	for name, o := range byName {
		classTotal = classTotal.Add(decimal.NewFromFloat(o.Subtotal))
		if !o.Paid {
			totals.Unpaid = append(totals.Unpaid, name)
		}
	}
	for _, name := range r.snap.Names {
		if _, ok := byName[name]; !ok {
			totals.Missing = append(totals.Missing, name)
		}
	}
	sort.Strings(totals.Unpaid)
	sort.Strings(totals.Missing)
	totals.ClassTotal = classTotal.Round(2).InexactFloat64()
	return totals
}

// OrderHistory returns every order bucket, keyed by date. Dashboard feed.
func (r *Repository) OrderHistory() map[string]map[string]Order {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snap.Clone().Orders
}
