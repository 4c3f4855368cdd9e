package state

import "github.com/lunchvote/api/internal/clock"

// ClearOldRecords purges vote and order buckets dated strictly before
// today − days (today resolved in the configured timezone). Date keys are
// YYYY-MM-DD, so lexicographic comparison is correct; a bucket exactly at
// the cutoff survives. Irreversible: confirmation is the caller's job.
// Returns the number of buckets removed.
func (r *Repository) ClearOldRecords(days int) int {
	removed := 0
	_ = r.update(true, func(s *Snapshot) error {
		loc := r.locationFor(s.Settings.Timezone)
		cutoff := clock.DateIn(r.clk.Now().AddDate(0, 0, -days), loc)
		for date := range s.Votes {
			if date < cutoff {
				delete(s.Votes, date)
				removed++
			}
		}
		for date := range s.Orders {
			if date < cutoff {
				delete(s.Orders, date)
				removed++
			}
		}
		return nil
	})
	return removed
}
