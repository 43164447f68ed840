package botdetect

import (
	"fmt"
	"testing"
	"time"
)

func TestObserveRescoreCadence(t *testing.T) {
	tr := NewTracker(Options{})
	ts := time.Date(2025, 6, 1, 20, 0, 0, 0, time.UTC)

	obs := tr.Observe("bot123", "hi", ts)
	if obs.Rescored {
		t.Fatalf("no rescore expected on first message")
	}
	obs = tr.Observe("bot123", "hi", ts.Add(time.Second))
	if obs.Rescored || obs.Score != 0 || obs.Class != Human {
		t.Fatalf("expected default score before third message, got %+v", obs)
	}

	obs = tr.Observe("bot123", "hi", ts.Add(2*time.Second))
	if !obs.Rescored {
		t.Fatalf("expected rescore on third message")
	}
	third := obs.Score
	if third <= 0 {
		t.Fatalf("expected positive score for repetitive sender, got %d", third)
	}

	// Messages 4 and 5 keep the last computed value.
	obs = tr.Observe("bot123", "hi", ts.Add(3*time.Second))
	if obs.Rescored || obs.Score != third {
		t.Fatalf("expected held score %d, got %+v", third, obs)
	}
	obs = tr.Observe("bot123", "hi", ts.Add(4*time.Second))
	if obs.Rescored {
		t.Fatalf("no rescore expected on fifth message")
	}
	obs = tr.Observe("bot123", "hi", ts.Add(5*time.Second))
	if !obs.Rescored {
		t.Fatalf("expected rescore on sixth message")
	}
}

func TestSummaryBuckets(t *testing.T) {
	tr := NewTracker(Options{})
	tr.mu.Lock()
	for i, score := range []int{0, 10, 35, 64, 85, 92} {
		name := fmt.Sprintf("u%d", i)
		r := newRecord(name)
		r.TotalMessages = 6
		r.unique["x"] = struct{}{}
		r.Score = score
		r.Class = Classify(score)
		tr.users[name] = r
	}
	tr.mu.Unlock()

	s := tr.Summary()
	if s.TotalUsers != 6 {
		t.Fatalf("total users: %d", s.TotalUsers)
	}
	if s.SuspectedBots != 2 {
		t.Fatalf("suspected: got %d want 2", s.SuspectedBots)
	}
	if s.ConfirmedBots != 2 {
		t.Fatalf("confirmed: got %d want 2", s.ConfirmedBots)
	}
	if s.BotPercentage != "66.7" {
		t.Fatalf("percentage: got %q want 66.7", s.BotPercentage)
	}
	if len(s.BotList) != 4 {
		t.Fatalf("bot list length: got %d want 4", len(s.BotList))
	}
	if s.BotList[0].BotScore != 92 || s.BotList[3].BotScore != 35 {
		t.Fatalf("bot list not ranked: %+v", s.BotList)
	}
}

func TestSummaryCapsListAtTwenty(t *testing.T) {
	tr := NewTracker(Options{})
	tr.mu.Lock()
	for i := 0; i < 25; i++ {
		name := fmt.Sprintf("b%d", i)
		r := newRecord(name)
		r.TotalMessages = 3
		r.Score = 40 + i
		r.Class = Classify(r.Score)
		tr.users[name] = r
	}
	tr.mu.Unlock()

	s := tr.Summary()
	if len(s.BotList) != 20 {
		t.Fatalf("expected bot list capped at 20, got %d", len(s.BotList))
	}
}

func TestHistoryCapKeepsCountsExact(t *testing.T) {
	tr := NewTracker(Options{HistoryLimit: 5})
	ts := time.Date(2025, 6, 1, 20, 0, 0, 0, time.UTC)
	for i := 0; i < 12; i++ {
		tr.Observe("chatter", fmt.Sprintf("message %d", i), ts.Add(time.Duration(i)*time.Minute))
	}

	tr.mu.Lock()
	r := tr.users["chatter"]
	tr.mu.Unlock()

	if len(r.Messages) != 5 || len(r.Timestamps) != 5 {
		t.Fatalf("expected history trimmed to 5, got %d/%d", len(r.Messages), len(r.Timestamps))
	}
	if r.TotalMessages != 12 {
		t.Fatalf("expected exact total 12, got %d", r.TotalMessages)
	}
	if r.UniqueCount() != 12 {
		t.Fatalf("expected exact unique count 12, got %d", r.UniqueCount())
	}
}

func TestResetDropsRecords(t *testing.T) {
	tr := NewTracker(Options{})
	tr.Observe("someone", "hello", time.Now())
	tr.Reset()
	if tr.Len() != 0 {
		t.Fatalf("expected empty tracker after reset, got %d", tr.Len())
	}
}
