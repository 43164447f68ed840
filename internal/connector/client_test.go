package connector

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"nhooyr.io/websocket"

	"github.com/you/livepulse/internal/core"
)

func TestDecodeFrame(t *testing.T) {
	typ, payload, err := decodeFrame([]byte(`{"type":"chat","data":{"uniqueId":"u","comment":"hi"}}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if typ != "chat" {
		t.Fatalf("type: %q", typ)
	}
	if !strings.Contains(string(payload), "uniqueId") {
		t.Fatalf("payload: %s", payload)
	}

	if _, _, err := decodeFrame([]byte(`{"data":{}}`)); err == nil {
		t.Fatalf("expected error for missing type")
	}
	if _, _, err := decodeFrame([]byte(`nope`)); err == nil {
		t.Fatalf("expected error for invalid json")
	}
}

func TestBuildFeedURL(t *testing.T) {
	got, err := buildFeedURL("ws://bridge:9000/feed", "streamer")
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if got != "ws://bridge:9000/feed?username=streamer" {
		t.Fatalf("unexpected url: %q", got)
	}

	got, err = buildFeedURL("ws://bridge:9000/feed", "")
	if err != nil || got != "ws://bridge:9000/feed" {
		t.Fatalf("unexpected url without username: %q (%v)", got, err)
	}
}

func TestRunDeliversEvents(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("username"); got != "streamer" {
			t.Errorf("username query: %q", got)
		}
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "")
		_ = conn.Write(r.Context(), websocket.MessageText,
			[]byte(`{"type":"like","data":{"uniqueId":"fan","likeCount":4}}`))
		// Hold the connection open until the client goes away.
		_, _, _ = conn.Read(r.Context())
	}))
	defer srv.Close()

	feedURL := "ws" + strings.TrimPrefix(srv.URL, "http")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var (
		mu       sync.Mutex
		got      []core.Event
		sawOpen  bool
		statusCh = make(chan struct{}, 1)
	)
	client := New(Config{FeedURL: feedURL, Username: "streamer"}, func(ev core.Event) {
		mu.Lock()
		got = append(got, ev)
		mu.Unlock()
		cancel()
	}, func(connected bool, err error) {
		mu.Lock()
		if connected {
			sawOpen = true
		}
		mu.Unlock()
		select {
		case statusCh <- struct{}{}:
		default:
		}
	})

	if err := client.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context cancellation, got %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if !sawOpen {
		t.Fatalf("expected connected status callback")
	}
	if len(got) != 1 {
		t.Fatalf("expected one event, got %d", len(got))
	}
	ev := got[0]
	if ev.Kind != core.KindLike || ev.Participant != "fan" || ev.Like.Count != 4 {
		t.Fatalf("unexpected event: %+v", ev)
	}
}

func TestRunRequiresFeedURL(t *testing.T) {
	client := New(Config{}, nil, nil)
	if err := client.Run(context.Background()); err == nil {
		t.Fatalf("expected error for missing feed url")
	}
}
