package config

import (
	"encoding/json"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Sinks []string
	Sink  SinkConfig
	Feed  FeedConfig
	HTTP  HTTPConfig
	Bot   BotConfig
	Win   WindowConfig
}

type SinkConfig struct {
	SQLite     SQLiteConfig
	BatchSize  int
	FlushMaxMS int
}

type SQLiteConfig struct {
	Path string
}

type FeedConfig struct {
	URL      string
	Username string
}

type HTTPConfig struct {
	Addr        string
	CORSOrigins []string
}

type BotConfig struct {
	PatternsFile string
	HistoryLimit int
	RescoreEvery int
}

type WindowConfig struct {
	Minutes      int
	TickSecs     int
	RolloverSecs int
}

const (
	defaultSQLitePath   = "livepulse.db"
	defaultBatchSize    = 1
	defaultFlushMS      = 0
	defaultHistoryLimit = 50
	defaultRescoreEvery = 3
	defaultWindowMins   = 60
	defaultTickSecs     = 10
	defaultRolloverSecs = 60
)

func Load() Config {
	cfg := Config{}

	cfg.Sinks = splitList(os.Getenv("LIVEPULSE_SINKS"))

	cfg.Sink.SQLite.Path = strings.TrimSpace(os.Getenv("LIVEPULSE_SINK_SQLITE_PATH"))
	if cfg.Sink.SQLite.Path == "" {
		cfg.Sink.SQLite.Path = defaultSQLitePath
	}
	cfg.Sink.BatchSize = readInt("LIVEPULSE_SINK_BATCH_SIZE", defaultBatchSize)
	cfg.Sink.FlushMaxMS = readInt("LIVEPULSE_SINK_FLUSH_MAX_MS", defaultFlushMS)

	cfg.Feed.URL = strings.TrimSpace(os.Getenv("LIVEPULSE_FEED_URL"))
	cfg.Feed.Username = strings.TrimSpace(os.Getenv("LIVEPULSE_USERNAME"))

	cfg.HTTP.Addr = strings.TrimSpace(os.Getenv("LIVEPULSE_HTTP_ADDR"))
	cfg.HTTP.CORSOrigins = splitList(os.Getenv("LIVEPULSE_HTTP_CORS_ORIGINS"))

	cfg.Bot.PatternsFile = strings.TrimSpace(os.Getenv("LIVEPULSE_BOT_PATTERNS_FILE"))
	cfg.Bot.HistoryLimit = readIntMinZero("LIVEPULSE_BOT_HISTORY_LIMIT", defaultHistoryLimit)
	cfg.Bot.RescoreEvery = readInt("LIVEPULSE_BOT_RESCORE_EVERY", defaultRescoreEvery)

	cfg.Win.Minutes = readInt("LIVEPULSE_WINDOW_MINUTES", defaultWindowMins)
	cfg.Win.TickSecs = readInt("LIVEPULSE_TICK_SECS", defaultTickSecs)
	cfg.Win.RolloverSecs = readInt("LIVEPULSE_ROLLOVER_SECS", defaultRolloverSecs)

	return cfg
}

func splitList(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	parts := strings.FieldsFunc(raw, func(r rune) bool {
		switch r {
		case ',', ';', ' ', '\t', '\n':
			return true
		}
		return false
	})
	out := make([]string, 0, len(parts))
	seen := make(map[string]struct{}, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		key := strings.ToLower(p)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, p)
	}
	return out
}

func readInt(name string, def int) int {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	if n <= 0 {
		return def
	}
	return n
}

// readIntMinZero is readInt but zero is a valid value (used where zero
// means "disabled").
func readIntMinZero(name string, def int) int {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	if n < 0 {
		return def
	}
	return n
}

func (c Config) HasSink(name string) bool {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, s := range c.Sinks {
		if strings.ToLower(strings.TrimSpace(s)) == name {
			return true
		}
	}
	return false
}

func (c Config) FlushInterval() time.Duration {
	if c.Sink.FlushMaxMS <= 0 {
		return 0
	}
	return time.Duration(c.Sink.FlushMaxMS) * time.Millisecond
}

func (c Config) Batch() int {
	if c.Sink.BatchSize <= 0 {
		return defaultBatchSize
	}
	return c.Sink.BatchSize
}

func (c Config) TickInterval() time.Duration {
	return time.Duration(c.Win.TickSecs) * time.Second
}

func (c Config) RolloverInterval() time.Duration {
	return time.Duration(c.Win.RolloverSecs) * time.Second
}

type Summary struct {
	Sinks        []string `json:"sinks"`
	SQLitePath   string   `json:"sqlite_path"`
	BatchSize    int      `json:"batch"`
	FlushMaxMS   int      `json:"flush_ms"`
	FeedURL      string   `json:"feed_url"`
	Username     string   `json:"username,omitempty"`
	HTTPAddr     string   `json:"http_addr,omitempty"`
	PatternsFile string   `json:"patterns_file,omitempty"`
	HistoryLimit int      `json:"history_limit"`
	RescoreEvery int      `json:"rescore_every"`
	WindowMins   int      `json:"window_minutes"`
	TickSecs     int      `json:"tick_secs"`
	RolloverSecs int      `json:"rollover_secs"`
}

func (c Config) Summary() Summary {
	return Summary{
		Sinks:        append([]string(nil), c.Sinks...),
		SQLitePath:   c.Sink.SQLite.Path,
		BatchSize:    c.Sink.BatchSize,
		FlushMaxMS:   c.Sink.FlushMaxMS,
		FeedURL:      c.Feed.URL,
		Username:     c.Feed.Username,
		HTTPAddr:     c.HTTP.Addr,
		PatternsFile: c.Bot.PatternsFile,
		HistoryLimit: c.Bot.HistoryLimit,
		RescoreEvery: c.Bot.RescoreEvery,
		WindowMins:   c.Win.Minutes,
		TickSecs:     c.Win.TickSecs,
		RolloverSecs: c.Win.RolloverSecs,
	}
}

func (c Config) SummaryJSON() []byte {
	summary := struct {
		Config Summary `json:"config_summary"`
	}{Config: c.Summary()}
	data, _ := json.Marshal(summary)
	return data
}
