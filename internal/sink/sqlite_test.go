package sink

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func TestSQLiteSinkWriteAndList(t *testing.T) {
	path := filepath.Join(t.TempDir(), "archive.db")
	s, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()

	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	rows := []ChatRow{
		{Ts: base, Username: "maria", Text: "love this", Sentiment: "positive", SentimentScore: 0.6, BotScore: 5, Classification: "human"},
		{Ts: base.Add(time.Second), Username: "bot123", Text: "follow me", Sentiment: "neutral", SentimentScore: 0, BotScore: 88, Classification: "confirmed_bot"},
	}
	for _, row := range rows {
		if err := s.Write(row); err != nil {
			t.Fatalf("write: %v", err)
		}
	}

	n, err := s.Count(context.Background())
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 rows, got %d", n)
	}

	got, err := s.ListRecent(context.Background(), 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(got))
	}
	// Newest first.
	if got[0].Username != "bot123" || got[0].Classification != "confirmed_bot" {
		t.Fatalf("unexpected first row: %+v", got[0])
	}
	if !got[0].Ts.Equal(base.Add(time.Second)) {
		t.Fatalf("timestamp did not round-trip: %s", got[0].Ts)
	}
	if got[1].Text != "love this" || got[1].SentimentScore != 0.6 {
		t.Fatalf("unexpected second row: %+v", got[1])
	}
}

func TestSQLiteSinkListLimit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "archive.db")
	s, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()

	base := time.Now().UTC()
	for i := 0; i < 5; i++ {
		if err := s.Write(ChatRow{Ts: base.Add(time.Duration(i) * time.Second), Username: "u", Text: "m"}); err != nil {
			t.Fatalf("write: %v", err)
		}
	}

	got, err := s.ListRecent(context.Background(), 3)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected limit 3, got %d", len(got))
	}
}
