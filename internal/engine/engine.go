// Package engine owns all per-session aggregation state and derives
// outbound snapshots from canonical events. Handlers return snapshots
// instead of delivering them; delivery is the caller's job.
package engine

import (
	"strconv"
	"sync"
	"time"

	"github.com/you/livepulse/internal/botdetect"
	"github.com/you/livepulse/internal/core"
	"github.com/you/livepulse/internal/leaderboard"
	"github.com/you/livepulse/internal/revenue"
	"github.com/you/livepulse/internal/sentiment"
	"github.com/you/livepulse/internal/timeseries"
)

// DefaultRollover is the wall-clock span of one accumulation interval.
const DefaultRollover = time.Minute

// TopNSize is the slice length of leaderboard and bot-list snapshots.
const TopNSize = 10

type Options struct {
	WindowCapacity int
	Rollover       time.Duration
	Tracker        botdetect.Options
	Revenue        revenue.Config
	Analyzer       *sentiment.Analyzer
	Username       string // broadcaster handle, echoed in status snapshots
}

type globalStats struct {
	viewers          int64
	likes            int64
	totalGifts       int64
	followers        int64
	shares           int64
	totalComments    int64
	totalDiamonds    int64
	peakViewers      int64
	uniqueViewers    map[string]struct{}
	uniqueCommenters map[string]struct{}
}

type intervalStats struct {
	comments int64
	likes    int64
	gifts    int64
	start    time.Time
}

// Engine serializes all mutation of the aggregation state behind one
// mutex; events and rollover ticks may arrive from different goroutines.
type Engine struct {
	opts Options

	mu           sync.Mutex
	started      bool
	connected    bool
	sessionStart time.Time
	stats        globalStats
	interval     intervalStats
	window       *timeseries.Window
	commenters   *leaderboard.Board
	donors       *leaderboard.Board
	tracker      *botdetect.Tracker
	sentStats    sentiment.Stats
	analyzer     *sentiment.Analyzer
	revenueCfg   revenue.Config
}

func New(opts Options) *Engine {
	if opts.Rollover <= 0 {
		opts.Rollover = DefaultRollover
	}
	if opts.Revenue == (revenue.Config{}) {
		opts.Revenue = revenue.DefaultConfig()
	}
	analyzer := opts.Analyzer
	if analyzer == nil {
		analyzer = sentiment.NewAnalyzer()
	}
	return &Engine{
		opts:       opts,
		window:     timeseries.New(opts.WindowCapacity),
		commenters: leaderboard.New(),
		donors:     leaderboard.New(),
		tracker:    botdetect.NewTracker(opts.Tracker),
		analyzer:   analyzer,
		revenueCfg: opts.Revenue,
		stats: globalStats{
			uniqueViewers:    make(map[string]struct{}),
			uniqueCommenters: make(map[string]struct{}),
		},
	}
}

// StartSession resets every aggregate to its empty state. A second start
// replaces the previous session entirely.
func (e *Engine) StartSession(now time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.started = true
	e.connected = true
	e.sessionStart = now
	e.stats = globalStats{
		uniqueViewers:    make(map[string]struct{}),
		uniqueCommenters: make(map[string]struct{}),
	}
	e.interval = intervalStats{start: now}
	e.window.Reset()
	e.commenters.Reset()
	e.donors.Reset()
	e.tracker.Reset()
	e.sentStats = sentiment.Stats{}
}

// Handle folds one canonical event into the session state and returns the
// snapshots it produced, in emission order.
func (e *Engine) Handle(ev core.Event) []core.Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch ev.Kind {
	case core.KindChat:
		return e.handleChat(ev)
	case core.KindGift:
		return e.handleGift(ev)
	case core.KindLike:
		return e.handleLike(ev)
	case core.KindFollow:
		e.stats.followers++
		return []core.Snapshot{{Type: core.SnapFollow, Payload: FollowNotice{Username: ev.Participant}}}
	case core.KindShare:
		e.stats.shares++
		return []core.Snapshot{{Type: core.SnapShare, Payload: ShareNotice{Username: ev.Participant, Total: e.stats.shares}}}
	case core.KindViewerCount:
		e.stats.viewers = ev.ViewerCount.Count
		if e.stats.viewers > e.stats.peakViewers {
			e.stats.peakViewers = e.stats.viewers
		}
		return []core.Snapshot{{Type: core.SnapViewers, Payload: ViewersNotice{Count: e.stats.viewers, Peak: e.stats.peakViewers}}}
	case core.KindJoin:
		e.stats.uniqueViewers[ev.Participant] = struct{}{}
		return []core.Snapshot{{Type: core.SnapMemberJoin, Payload: MemberJoin{
			Username:      ev.Participant,
			UniqueViewers: len(e.stats.uniqueViewers),
		}}}
	case core.KindQuestion:
		return []core.Snapshot{{Type: core.SnapQuestion, Payload: QuestionNotice{
			Username:  ev.Participant,
			Question:  ev.Question.Text,
			Timestamp: formatTS(ev.Ts),
		}}}
	case core.KindStreamEnd:
		e.connected = false
		return []core.Snapshot{{Type: core.SnapStreamEnd, Payload: StreamEnd{
			Duration:   e.sessionMinutes(ev.Ts),
			FinalStats: e.statsUpdate(ev.Ts),
		}}}
	case core.KindError:
		e.connected = false
		msg := ""
		if ev.Error != nil {
			msg = ev.Error.Message
		}
		return []core.Snapshot{{Type: core.SnapStatus, Payload: Status{Connected: false, Error: msg}}}
	}
	return nil
}

func (e *Engine) handleChat(ev core.Event) []core.Snapshot {
	text := ev.Chat.Text

	e.stats.totalComments++
	e.stats.uniqueCommenters[ev.Participant] = struct{}{}
	e.interval.comments++
	e.commenters.Add(ev.Participant, 1)

	obs := e.tracker.Observe(ev.Participant, text, ev.Ts)

	label, score := e.analyzer.Analyze(text)
	e.sentStats.Record(label, score)

	out := []core.Snapshot{
		{Type: core.SnapChatMessage, Payload: ChatMessage{
			Username:       ev.Participant,
			Message:        text,
			ProfilePicture: ev.Chat.AvatarURL,
			Timestamp:      formatTS(ev.Ts),
			Sentiment:      string(label),
			SentimentScore: score,
			BotScore:       obs.Score,
			IsBot:          obs.Class != botdetect.Human,
		}},
		{Type: core.SnapSentiment, Payload: e.sentStats.Snapshot()},
		{Type: core.SnapLeaderboards, Payload: e.leaderboards()},
	}
	if obs.Rescored {
		out = append(out, core.Snapshot{Type: core.SnapBotStats, Payload: e.botStats()})
	}
	return out
}

func (e *Engine) handleGift(ev core.Event) []core.Snapshot {
	g := ev.Gift
	diamondValue := g.DiamondsPerUnit * g.RepeatCount

	e.stats.totalGifts += g.RepeatCount
	e.stats.totalDiamonds += diamondValue
	e.interval.gifts += g.RepeatCount
	e.donors.Add(ev.Participant, diamondValue)

	perGift := e.revenueCfg.Calculate(diamondValue)

	return []core.Snapshot{
		{Type: core.SnapGift, Payload: GiftNotice{
			Username:       ev.Participant,
			GiftName:       g.Name,
			GiftImage:      g.ImageURL,
			Count:          g.RepeatCount,
			Diamonds:       g.DiamondsPerUnit,
			TotalValue:     diamondValue,
			ProfilePicture: g.AvatarURL,
			Revenue: GiftRevenue{
				USD:             perGift.TotalUSD,
				CreatorEarnings: perGift.CreatorEarnings,
			},
		}},
		{Type: core.SnapStats, Payload: e.statsUpdate(ev.Ts)},
		{Type: core.SnapRevenue, Payload: e.revenueCfg.Project(
			e.stats.totalDiamonds, e.sessionElapsed(ev.Ts), e.stats.viewers,
		)},
		{Type: core.SnapLeaderboards, Payload: e.leaderboards()},
	}
}

func (e *Engine) handleLike(ev core.Event) []core.Snapshot {
	count := ev.Like.Count
	e.stats.likes += count
	e.interval.likes += count
	return []core.Snapshot{{Type: core.SnapLike, Payload: LikeNotice{
		Username: ev.Participant,
		Count:    count,
		Total:    e.stats.likes,
	}}}
}

// Tick drives the coarse rollover poll. When at least one rollover span
// has elapsed since the interval started, the interval is appended to the
// window and reset; rollover timing may drift by up to one tick.
func (e *Engine) Tick(now time.Time) []core.Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.started || now.Sub(e.interval.start) < e.opts.Rollover {
		return nil
	}

	e.window.Append(timeseries.Point{
		Comments: e.interval.comments,
		Likes:    e.interval.likes,
		Gifts:    e.interval.gifts,
		Viewers:  e.stats.viewers,
		Ts:       now,
	})

	engagement := "0"
	if e.stats.viewers > 0 {
		rate := float64(e.interval.comments+e.interval.likes) / float64(e.stats.viewers) * 100
		engagement = strconv.FormatFloat(rate, 'f', 2, 64)
	}

	update := MetricsUpdate{
		CommentsPerMinute: e.interval.comments,
		LikesPerMinute:    e.interval.likes,
		GiftsPerMinute:    e.interval.gifts,
		EngagementRate:    engagement,
	}
	e.interval = intervalStats{start: now}

	return []core.Snapshot{{Type: core.SnapMetrics, Payload: update}}
}

// AttachSnapshots returns the catch-up set sent to a newly attached
// subscriber: current stats, the full time-series window and the
// leaderboards.
func (e *Engine) AttachSnapshots(now time.Time) []core.Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	return []core.Snapshot{
		{Type: core.SnapStats, Payload: e.statsUpdate(now)},
		{Type: core.SnapTimeseries, Payload: e.window.Snapshot()},
		{Type: core.SnapLeaderboards, Payload: e.leaderboards()},
	}
}

// Status reports the connection state as a snapshot.
func (e *Engine) Status(connected bool, errMsg string) core.Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.connected = connected
	st := Status{Connected: connected, Username: e.opts.Username, Error: errMsg}
	if connected && !e.sessionStart.IsZero() {
		st.StartTime = formatTS(e.sessionStart)
	}
	return core.Snapshot{Type: core.SnapStatus, Payload: st}
}

// StatsSnapshot exposes the current stats for REST reads.
func (e *Engine) StatsSnapshot(now time.Time) core.Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return core.Snapshot{Type: core.SnapStats, Payload: e.statsUpdate(now)}
}

// LeaderboardsSnapshot exposes the current top-N views.
func (e *Engine) LeaderboardsSnapshot() core.Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return core.Snapshot{Type: core.SnapLeaderboards, Payload: e.leaderboards()}
}

// BotStatsSnapshot exposes the current bot summary.
func (e *Engine) BotStatsSnapshot() core.Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return core.Snapshot{Type: core.SnapBotStats, Payload: e.botStats()}
}

// TimeseriesSnapshot exposes the full rolling window.
func (e *Engine) TimeseriesSnapshot() core.Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return core.Snapshot{Type: core.SnapTimeseries, Payload: e.window.Snapshot()}
}

// callers hold e.mu for everything below.

func (e *Engine) statsUpdate(now time.Time) StatsUpdate {
	return StatsUpdate{
		Viewers:          e.stats.viewers,
		Likes:            e.stats.likes,
		TotalGifts:       e.stats.totalGifts,
		Followers:        e.stats.followers,
		Shares:           e.stats.shares,
		TotalComments:    e.stats.totalComments,
		TotalDiamonds:    e.stats.totalDiamonds,
		PeakViewers:      e.stats.peakViewers,
		UniqueViewers:    len(e.stats.uniqueViewers),
		UniqueCommenters: len(e.stats.uniqueCommenters),
		SessionDuration:  e.sessionMinutes(now),
	}
}

func (e *Engine) leaderboards() Leaderboards {
	return Leaderboards{
		TopCommenters: e.commenters.TopN(TopNSize),
		TopDonors:     e.donors.TopN(TopNSize),
	}
}

func (e *Engine) botStats() BotStatsUpdate {
	summary := e.tracker.Summary()
	if len(summary.BotList) > TopNSize {
		summary.BotList = summary.BotList[:TopNSize]
	}
	return BotStatsUpdate{Summary: summary}
}

func (e *Engine) sessionElapsed(now time.Time) time.Duration {
	if e.sessionStart.IsZero() {
		return 0
	}
	return now.Sub(e.sessionStart)
}

func (e *Engine) sessionMinutes(now time.Time) float64 {
	return e.sessionElapsed(now).Minutes()
}
