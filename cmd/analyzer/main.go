package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/you/livepulse/internal/botdetect"
	"github.com/you/livepulse/internal/config"
	"github.com/you/livepulse/internal/connector"
	"github.com/you/livepulse/internal/core"
	"github.com/you/livepulse/internal/engine"
	"github.com/you/livepulse/internal/httpapi"
	"github.com/you/livepulse/internal/sink"
	"github.com/you/livepulse/internal/version"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	var (
		versionFlag     bool
		feedURL         string
		username        string
		dbPath          string
		patternsFile    string
		historyLimit    int
		rescoreEvery    int
		httpAddr        string
		httpCorsOrigins string
		httpRateRPS     int
		httpRateBurst   int
		httpAccessLog   bool
	)

	flag.BoolVar(&versionFlag, "version", false, "Print build version and exit")
	flag.StringVar(&feedURL, "feed-url", "", "Broadcast bridge websocket URL (e.g., ws://bridge:9000/feed)")
	flag.StringVar(&username, "username", "", "Broadcaster handle to analyze")
	flag.StringVar(&dbPath, "sqlite", "livepulse.db", "Path to SQLite chat archive file")
	flag.StringVar(&patternsFile, "bot-patterns-file", "", "Path to bot username pattern file (one regexp per line)")
	flag.IntVar(&historyLimit, "bot-history-limit", 50, "Per-user message history cap for bot scoring (0 disables)")
	flag.IntVar(&rescoreEvery, "bot-rescore-every", 3, "Rescore a user every Nth message")
	flag.StringVar(&httpAddr, "http-addr", "", "HTTP status/stream address (e.g., :8765)")
	flag.StringVar(&httpCorsOrigins, "http-cors-origins", "", "Comma-separated list of allowed CORS origins")
	flag.IntVar(&httpRateRPS, "http-rate-rps", 20, "Maximum HTTP requests per second per client")
	flag.IntVar(&httpRateBurst, "http-rate-burst", 40, "Burst size for HTTP rate limiter")
	flag.BoolVar(&httpAccessLog, "http-access-log", true, "Log HTTP access records")
	flag.Parse()

	if versionFlag {
		fmt.Printf(
			"analyzer version: %s (commit %s, built %s)\n",
			version.Version,
			version.Commit,
			version.BuildTime,
		)
		os.Exit(0)
	}

	overrides := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) {
		overrides[f.Name] = true
	})

	cfg := config.Load()

	if overrides["feed-url"] {
		cfg.Feed.URL = strings.TrimSpace(feedURL)
	}
	if overrides["username"] {
		cfg.Feed.Username = strings.TrimSpace(username)
	}
	if overrides["sqlite"] {
		cfg.Sink.SQLite.Path = strings.TrimSpace(dbPath)
		if !cfg.HasSink("sqlite") {
			cfg.Sinks = append(cfg.Sinks, "sqlite")
		}
	}
	if overrides["bot-patterns-file"] {
		cfg.Bot.PatternsFile = strings.TrimSpace(patternsFile)
	}
	if overrides["bot-history-limit"] && historyLimit >= 0 {
		cfg.Bot.HistoryLimit = historyLimit
	}
	if overrides["bot-rescore-every"] && rescoreEvery > 0 {
		cfg.Bot.RescoreEvery = rescoreEvery
	}
	if overrides["http-addr"] {
		cfg.HTTP.Addr = strings.TrimSpace(httpAddr)
	}
	if overrides["http-cors-origins"] {
		cfg.HTTP.CORSOrigins = nil
		for _, origin := range strings.Split(httpCorsOrigins, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				cfg.HTTP.CORSOrigins = append(cfg.HTTP.CORSOrigins, origin)
			}
		}
	}

	if cfg.Feed.URL == "" {
		log.Fatal("analyzer: feed url is required (set LIVEPULSE_FEED_URL or -feed-url)")
	}

	log.Printf("%s", cfg.SummaryJSON())

	patterns := botdetect.DefaultPatterns()
	if cfg.Bot.PatternsFile != "" {
		if err := patterns.LoadFile(cfg.Bot.PatternsFile); err != nil {
			log.Fatalf("analyzer: load bot patterns: %v", err)
		}
		if err := patterns.Watch(cfg.Bot.PatternsFile); err != nil {
			slog.Error("analyzer: watch bot patterns", "err", err)
		}
	}

	eng := engine.New(engine.Options{
		WindowCapacity: cfg.Win.Minutes,
		Rollover:       cfg.RolloverInterval(),
		Tracker: botdetect.Options{
			Scorer:       botdetect.NewScorer(patterns),
			HistoryLimit: cfg.Bot.HistoryLimit,
			RescoreEvery: cfg.Bot.RescoreEvery,
		},
		Username: cfg.Feed.Username,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Printf("analyzer: received %s, shutting down", sig)
		cancel()
	}()

	var (
		sinkDB   *sink.SQLiteSink
		writer   sink.Writer
		buffered *sink.BufferedWriter
	)

	if cfg.HasSink("sqlite") {
		db, err := sink.OpenSQLite(cfg.Sink.SQLite.Path)
		if err != nil {
			log.Fatalf("analyzer: open sqlite: %v", err)
		}
		sinkDB = db
		if err := sinkDB.Ping(); err != nil {
			log.Fatalf("analyzer: ping sqlite: %v", err)
		}
		writer = sinkDB
		defer func() {
			if err := sinkDB.Close(); err != nil {
				log.Printf("analyzer: closing archive: %v", err)
			}
		}()
	}

	if writer != nil && (cfg.Batch() > 1 || cfg.FlushInterval() > 0) {
		buffered = sink.NewBufferedWriter(writer, sink.BufferedOptions{
			BatchSize:     cfg.Batch(),
			FlushInterval: cfg.FlushInterval(),
		})
		writer = buffered
		defer func() {
			if err := buffered.Close(); err != nil {
				log.Printf("analyzer: flush chat archive: %v", err)
			}
		}()
	}

	build := httpapi.BuildInfo{Version: version.Version, Revision: version.Commit}
	if version.BuildTime != "" && version.BuildTime != "unknown" {
		if t, err := time.Parse(time.RFC3339, version.BuildTime); err == nil {
			build.BuiltAt = t
		}
	}

	var api *httpapi.Server
	if cfg.HTTP.Addr != "" {
		var archive httpapi.Archive
		if sinkDB != nil {
			archive = sinkDB
		}
		api = httpapi.New(eng, archive, httpapi.Options{
			Addr:            cfg.HTTP.Addr,
			CORSOrigins:     cfg.HTTP.CORSOrigins,
			RateLimitRPS:    httpRateRPS,
			RateLimitBurst:  httpRateBurst,
			EnableAccessLog: httpAccessLog,
			Build:           build,
			ConfigSummary:   cfg.SummaryJSON(),
		})
		go func() {
			if err := api.Start(); err != nil {
				log.Fatalf("analyzer: http api: %v", err)
			}
		}()
		log.Printf("analyzer: http api ready on %s", cfg.HTTP.Addr)
	}

	var metrics *httpapi.Metrics
	if api != nil {
		metrics = api.Metrics()
	}

	dispatch := func(snaps []core.Snapshot) {
		for _, snap := range snaps {
			if api != nil {
				api.Broadcast(snap)
			}
			if snap.Type != core.SnapChatMessage {
				continue
			}
			msg, ok := snap.Payload.(engine.ChatMessage)
			if !ok {
				continue
			}
			metrics.RecordBotDetection(string(botdetect.Classify(msg.BotScore)))
			if writer == nil {
				continue
			}
			ts := time.Now().UTC()
			if t, err := time.Parse(time.RFC3339, msg.Timestamp); err == nil {
				ts = t
			}
			row := sink.ChatRow{
				Ts:             ts,
				Username:       msg.Username,
				Text:           msg.Message,
				Sentiment:      msg.Sentiment,
				SentimentScore: msg.SentimentScore,
				BotScore:       float64(msg.BotScore),
				Classification: string(botdetect.Classify(msg.BotScore)),
			}
			if err := writer.Write(row); err != nil {
				log.Printf("analyzer: archive chat message: %v", err)
				metrics.IncArchiveErrors()
			}
		}
	}

	var sessionOnce sync.Once

	client := connector.New(connector.Config{
		FeedURL:  cfg.Feed.URL,
		Username: cfg.Feed.Username,
	}, func(ev core.Event) {
		metrics.RecordEvent(string(ev.Kind))
		dispatch(eng.Handle(ev))
	}, func(connected bool, err error) {
		// The session starts on the first successful attach; reconnects
		// keep accumulating into the same session.
		if connected {
			sessionOnce.Do(func() {
				eng.StartSession(time.Now().UTC())
			})
		}
		errMsg := ""
		if err != nil {
			errMsg = err.Error()
		}
		dispatch([]core.Snapshot{eng.Status(connected, errMsg)})
	})

	go func() {
		if err := client.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("analyzer: connector exited: %v", err)
			cancel()
		}
	}()
	log.Printf("analyzer: connector started for %s", cfg.Feed.URL)

	ticker := time.NewTicker(cfg.TickInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if api != nil {
				shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
				if err := api.Shutdown(shutdownCtx); err != nil {
					log.Printf("analyzer: http api shutdown: %v", err)
				}
				cancelShutdown()
			}
			// allow the connector goroutine to finish cleanly
			time.Sleep(100 * time.Millisecond)
			log.Printf("analyzer: shutdown complete")
			return
		case <-ticker.C:
			dispatch(eng.Tick(time.Now().UTC()))
		}
	}
}
