package botdetect

import (
	"sort"
	"strconv"
	"sync"
	"time"
)

// DefaultHistoryLimit caps retained per-participant message history so the
// O(n²) similarity pass stays bounded under long sessions. 0 disables the
// cap.
const DefaultHistoryLimit = 50

// DefaultRescoreEvery triggers a rescore on every third message.
const DefaultRescoreEvery = 3

type Options struct {
	Scorer       *Scorer
	HistoryLimit int
	RescoreEvery int
}

// Tracker owns one behavior record per participant. All mutation goes
// through Observe under the tracker mutex; events and summary reads may
// come from different goroutines.
type Tracker struct {
	mu           sync.Mutex
	users        map[string]*Record
	scorer       *Scorer
	historyLimit int
	rescoreEvery int
}

func NewTracker(opts Options) *Tracker {
	scorer := opts.Scorer
	if scorer == nil {
		scorer = NewScorer(nil)
	}
	rescore := opts.RescoreEvery
	if rescore <= 0 {
		rescore = DefaultRescoreEvery
	}
	return &Tracker{
		users:        make(map[string]*Record),
		scorer:       scorer,
		historyLimit: opts.HistoryLimit,
		rescoreEvery: rescore,
	}
}

// Observation is the post-append view of a sender's record.
type Observation struct {
	Score    int
	Class    Classification
	Rescored bool
}

// Observe appends one chat message to the sender's record, creating the
// record on first contact, and rescores at every rescoreEvery-th message.
func (t *Tracker) Observe(username, text string, ts time.Time) Observation {
	t.mu.Lock()
	defer t.mu.Unlock()

	r, ok := t.users[username]
	if !ok {
		r = newRecord(username)
		t.users[username] = r
	}
	r.observe(text, ts, t.historyLimit)

	obs := Observation{Score: r.Score, Class: r.Class}
	if r.TotalMessages >= minMessages && r.TotalMessages%t.rescoreEvery == 0 {
		r.Score, r.Class = t.scorer.Score(r)
		obs = Observation{Score: r.Score, Class: r.Class, Rescored: true}
	}
	return obs
}

// Reset drops all records; called at session start.
func (t *Tracker) Reset() {
	t.mu.Lock()
	t.users = make(map[string]*Record)
	t.mu.Unlock()
}

// Len reports the number of tracked participants.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.users)
}

// BotEntry is one row of the ranked bot list.
type BotEntry struct {
	Username       string         `json:"username"`
	BotScore       int            `json:"botScore"`
	Classification Classification `json:"classification"`
	MessageCount   int            `json:"messageCount"`
	RepetitionRate string         `json:"repetitionRate"`
}

// Summary is the on-demand rollup over all behavior records.
type Summary struct {
	TotalUsers    int        `json:"totalUsers"`
	SuspectedBots int        `json:"suspectedBots"`
	ConfirmedBots int        `json:"confirmedBots"`
	BotPercentage string     `json:"botPercentage"`
	BotList       []BotEntry `json:"botList"`
}

// Summary recomputes the bot rollup: suspected covers scores in [30,80),
// confirmed covers 80 and above, and BotList ranks the top 20 scorers at
// or above 30.
func (t *Tracker) Summary() Summary {
	t.mu.Lock()
	defer t.mu.Unlock()

	s := Summary{TotalUsers: len(t.users), BotPercentage: "0"}
	var flagged []*Record
	for _, r := range t.users {
		switch {
		case r.Score >= 80:
			s.ConfirmedBots++
		case r.Score >= 30:
			s.SuspectedBots++
		}
		if r.Score >= 30 {
			flagged = append(flagged, r)
		}
	}

	sort.SliceStable(flagged, func(i, j int) bool {
		return flagged[i].Score > flagged[j].Score
	})
	if len(flagged) > 20 {
		flagged = flagged[:20]
	}
	for _, r := range flagged {
		s.BotList = append(s.BotList, BotEntry{
			Username:       r.Username,
			BotScore:       r.Score,
			Classification: r.Class,
			MessageCount:   r.TotalMessages,
			RepetitionRate: r.RepetitionRate(),
		})
	}

	if s.TotalUsers > 0 {
		pct := float64(s.ConfirmedBots+s.SuspectedBots) / float64(s.TotalUsers) * 100
		s.BotPercentage = strconv.FormatFloat(pct, 'f', 1, 64)
	}
	return s
}
