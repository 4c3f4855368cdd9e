package state

// RecordVote stores a participant's restaurant choice for a date. One vote
// per participant per date; re-voting overwrites. The restaurant ID is not
// validated against the catalog: historical votes are allowed to reference a
// restaurant that was later removed, and write-time validation is a
// presentation concern.
func (r *Repository) RecordVote(date, name, restaurantID string) error {
	if date == "" {
		return ErrEmptyDate
	}
	if name == "" {
		return ErrEmptyName
	}
	if restaurantID == "" {
		return ErrNoRestaurant
	}
	return r.update(true, func(s *Snapshot) error {
		byName, ok := s.Votes[date]
		if !ok {
			byName = map[string]string{}
			s.Votes[date] = byName
		}
		byName[name] = restaurantID
		return nil
	})
}

// Votes returns the participant → restaurant map for a date.
func (r *Repository) Votes(date string) map[string]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := map[string]string{}
	for name, rid := range r.snap.Votes[date] {
		out[name] = rid
	}
	return out
}

// VoteSummary tallies a date's votes per currently known restaurant, in
// catalog order. Every known restaurant appears, archived or not, even at
// count zero; votes for restaurants since removed from the catalog are not
// reported. Sorting is the caller's responsibility.
func (r *Repository) VoteSummary(date string) []VoteTally {
	r.mu.Lock()
	defer r.mu.Unlock()
	tallies := make([]VoteTally, len(r.snap.Restaurants))
	index := make(map[string]int, len(r.snap.Restaurants))
	for i, rest := range r.snap.Restaurants {
		tallies[i] = VoteTally{Restaurant: rest}
		index[rest.ID] = i
	}
	for _, rid := range r.snap.Votes[date] {
		if i, ok := index[rid]; ok {
			tallies[i].Count++
		}
	}
	return tallies
}

// VoteHistory returns every vote bucket, keyed by date. Dashboard feed.
func (r *Repository) VoteHistory() map[string]map[string]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snap.Clone().Votes
}
