package leaderboard

import "sort"

// Entry is one ranked row returned by TopN.
type Entry struct {
	Username string `json:"username"`
	Value    int64  `json:"value"`
}

// Board maintains cumulative per-participant counters with insertion order
// preserved for tie breaking. Not safe for concurrent use; the engine
// serializes access.
type Board struct {
	values map[string]int64
	order  []string
}

func New() *Board {
	return &Board{values: make(map[string]int64)}
}

// Add increments the participant's counter, creating it at zero if absent.
func (b *Board) Add(username string, delta int64) {
	if _, ok := b.values[username]; !ok {
		b.order = append(b.order, username)
	}
	b.values[username] += delta
}

// TopN returns the n highest-value entries sorted descending by value, ties
// broken by first-insertion order. The sort is recomputed on each call;
// fine for bounded leaderboard sizes.
func (b *Board) TopN(n int) []Entry {
	entries := make([]Entry, 0, len(b.order))
	for _, username := range b.order {
		entries = append(entries, Entry{Username: username, Value: b.values[username]})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Value > entries[j].Value
	})
	if n >= 0 && len(entries) > n {
		entries = entries[:n]
	}
	return entries
}

// Len reports the number of tracked participants.
func (b *Board) Len() int { return len(b.order) }

// Reset drops all counters.
func (b *Board) Reset() {
	b.values = make(map[string]int64)
	b.order = nil
}
