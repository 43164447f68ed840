package httpapi

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/you/livepulse/internal/core"
	"github.com/you/livepulse/internal/sink"
)

type fakeSource struct{}

func (fakeSource) AttachSnapshots(time.Time) []core.Snapshot {
	return []core.Snapshot{{Type: core.SnapStats, Payload: map[string]any{"viewers": 3}}}
}

func (fakeSource) StatsSnapshot(time.Time) core.Snapshot {
	return core.Snapshot{Type: core.SnapStats, Payload: map[string]any{"viewers": 3}}
}

func (fakeSource) LeaderboardsSnapshot() core.Snapshot {
	return core.Snapshot{Type: core.SnapLeaderboards, Payload: map[string]any{"topCommenters": []any{}}}
}

func (fakeSource) BotStatsSnapshot() core.Snapshot {
	return core.Snapshot{Type: core.SnapBotStats, Payload: map[string]any{"totalUsers": 0}}
}

func (fakeSource) TimeseriesSnapshot() core.Snapshot {
	return core.Snapshot{Type: core.SnapTimeseries, Payload: map[string]any{"comments": []any{}}}
}

type fakeArchive struct {
	rows []sink.ChatRow
}

func (f *fakeArchive) Count(context.Context) (int64, error) {
	return int64(len(f.rows)), nil
}

func (f *fakeArchive) ListRecent(_ context.Context, limit int) ([]sink.ChatRow, error) {
	if limit > len(f.rows) {
		limit = len(f.rows)
	}
	return f.rows[:limit], nil
}

func newTestServer(t *testing.T, archive Archive, opts Options) (*Server, *httptest.Server) {
	t.Helper()
	srv := New(fakeSource{}, archive, opts)
	ts := httptest.NewServer(srv.httpServer.Handler)
	t.Cleanup(ts.Close)
	return srv, ts
}

func TestHealthz(t *testing.T) {
	_, ts := newTestServer(t, nil, Options{})

	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status: %d", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if string(body) != "ok" {
		t.Fatalf("body: %q", body)
	}
}

func TestStatsEndpoint(t *testing.T) {
	_, ts := newTestServer(t, nil, Options{})

	resp, err := http.Get(ts.URL + "/stats")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()

	var payload map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload["viewers"] != float64(3) {
		t.Fatalf("unexpected payload: %v", payload)
	}
}

func TestChatLogDisabledWithoutArchive(t *testing.T) {
	_, ts := newTestServer(t, nil, Options{})

	resp, err := http.Get(ts.URL + "/chatlog")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestChatLogWithArchive(t *testing.T) {
	archive := &fakeArchive{rows: []sink.ChatRow{
		{Username: "maria", Text: "hello"},
		{Username: "bot123", Text: "spam"},
	}}
	_, ts := newTestServer(t, archive, Options{})

	resp, err := http.Get(ts.URL + "/chatlog?limit=1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()

	var rows []sink.ChatRow
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(rows) != 1 || rows[0].Username != "maria" {
		t.Fatalf("unexpected rows: %+v", rows)
	}

	resp, err = http.Get(ts.URL + "/chatlog/count")
	if err != nil {
		t.Fatalf("count get: %v", err)
	}
	defer resp.Body.Close()
	var count map[string]int64
	if err := json.NewDecoder(resp.Body).Decode(&count); err != nil {
		t.Fatalf("count decode: %v", err)
	}
	if count["count"] != 2 {
		t.Fatalf("unexpected count: %v", count)
	}
}

func TestRateLimit(t *testing.T) {
	_, ts := newTestServer(t, nil, Options{RateLimitRPS: 1, RateLimitBurst: 1})

	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("first request status: %d", resp.StatusCode)
	}

	resp, err = http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", resp.StatusCode)
	}
}

func TestCORSRejectsUnknownOrigin(t *testing.T) {
	_, ts := newTestServer(t, nil, Options{CORSOrigins: []string{"https://dash.test"}})

	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/stats", nil)
	req.Header.Set("Origin", "https://evil.test")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", resp.StatusCode)
	}

	req, _ = http.NewRequest(http.MethodGet, ts.URL+"/stats", nil)
	req.Header.Set("Origin", "https://dash.test")
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "https://dash.test" {
		t.Fatalf("allow origin header: %q", got)
	}
}

func TestStreamAttachAndBroadcast(t *testing.T) {
	srv, ts := newTestServer(t, nil, Options{})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/stream", nil)
	req.Header.Set("Accept", "text/event-stream")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	defer resp.Body.Close()

	reader := bufio.NewReader(resp.Body)
	readEvent := func() (string, string) {
		t.Helper()
		var event, data string
		for {
			line, err := reader.ReadString('\n')
			if err != nil {
				t.Fatalf("read stream: %v", err)
			}
			line = strings.TrimRight(line, "\n")
			switch {
			case strings.HasPrefix(line, "event: "):
				event = strings.TrimPrefix(line, "event: ")
			case strings.HasPrefix(line, "data: "):
				data = strings.TrimPrefix(line, "data: ")
			case line == "" && event != "":
				return event, data
			}
		}
	}

	// Attach sequence arrives first.
	event, data := readEvent()
	if event != core.SnapStats {
		t.Fatalf("expected attach stats event, got %q", event)
	}
	if !strings.Contains(data, "viewers") {
		t.Fatalf("attach data: %s", data)
	}

	srv.Broadcast(core.Snapshot{Type: core.SnapChatMessage, Payload: map[string]any{"comment": "hi"}})

	event, data = readEvent()
	if event != core.SnapChatMessage {
		t.Fatalf("expected chat event, got %q", event)
	}
	if !strings.Contains(data, "hi") {
		t.Fatalf("chat data: %s", data)
	}
}

func TestInfoEndpoint(t *testing.T) {
	_, ts := newTestServer(t, nil, Options{Build: BuildInfo{Version: "1.2.3", Revision: "abc"}})

	resp, err := http.Get(ts.URL + "/info")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()

	var info map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if info["version"] != "1.2.3" || info["rev"] != "abc" {
		t.Fatalf("unexpected info: %v", info)
	}
}
