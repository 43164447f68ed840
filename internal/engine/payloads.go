package engine

import (
	"time"

	"github.com/you/livepulse/internal/botdetect"
	"github.com/you/livepulse/internal/leaderboard"
	"github.com/you/livepulse/internal/revenue"
	"github.com/you/livepulse/internal/timeseries"
)

// Wire payloads for outbound snapshots. Field names are part of the
// subscriber contract; consumers render them directly.

type StatsUpdate struct {
	Viewers          int64   `json:"viewers"`
	Likes            int64   `json:"likes"`
	TotalGifts       int64   `json:"totalGifts"`
	Followers        int64   `json:"followers"`
	Shares           int64   `json:"shares"`
	TotalComments    int64   `json:"totalComments"`
	TotalDiamonds    int64   `json:"totalDiamonds"`
	PeakViewers      int64   `json:"peakViewers"`
	UniqueViewers    int     `json:"uniqueViewers"`
	UniqueCommenters int     `json:"uniqueCommenters"`
	SessionDuration  float64 `json:"sessionDuration"` // minutes
}

type ChatMessage struct {
	Username       string  `json:"username"`
	Message        string  `json:"message"`
	ProfilePicture string  `json:"profilePicture,omitempty"`
	Timestamp      string  `json:"timestamp"`
	Sentiment      string  `json:"sentiment"`
	SentimentScore float64 `json:"sentimentScore"`
	BotScore       int     `json:"botScore"`
	IsBot          bool    `json:"isBot"`
}

type BotStatsUpdate struct {
	botdetect.Summary
}

type GiftNotice struct {
	Username       string      `json:"username"`
	GiftName       string      `json:"giftName"`
	GiftImage      string      `json:"giftImage,omitempty"`
	Count          int64       `json:"count"`
	Diamonds       int64       `json:"diamonds"`
	TotalValue     int64       `json:"totalValue"`
	ProfilePicture string      `json:"profilePicture,omitempty"`
	Revenue        GiftRevenue `json:"revenue"`
}

type GiftRevenue struct {
	USD             string `json:"usd"`
	CreatorEarnings string `json:"creatorEarnings"`
}

type LikeNotice struct {
	Username string `json:"username"`
	Count    int64  `json:"count"`
	Total    int64  `json:"total"`
}

type FollowNotice struct {
	Username string `json:"username"`
}

type ShareNotice struct {
	Username string `json:"username"`
	Total    int64  `json:"total"`
}

type ViewersNotice struct {
	Count int64 `json:"count"`
	Peak  int64 `json:"peak"`
}

type MemberJoin struct {
	Username      string `json:"username"`
	UniqueViewers int    `json:"uniqueViewers"`
}

type QuestionNotice struct {
	Username  string `json:"username"`
	Question  string `json:"question"`
	Timestamp string `json:"timestamp"`
}

type MetricsUpdate struct {
	CommentsPerMinute int64  `json:"commentsPerMinute"`
	LikesPerMinute    int64  `json:"likesPerMinute"`
	GiftsPerMinute    int64  `json:"giftsPerMinute"`
	EngagementRate    string `json:"engagementRate"`
}

type Leaderboards struct {
	TopCommenters []leaderboard.Entry `json:"topCommenters"`
	TopDonors     []leaderboard.Entry `json:"topDonors"`
}

type StreamEnd struct {
	Duration   float64     `json:"duration"` // minutes
	FinalStats StatsUpdate `json:"finalStats"`
}

type Status struct {
	Connected bool   `json:"connected"`
	Username  string `json:"username,omitempty"`
	StartTime string `json:"startTime,omitempty"`
	Error     string `json:"error,omitempty"`
}

type RevenueUpdate = revenue.Projection

type TimeseriesUpdate = timeseries.Data

func formatTS(ts time.Time) string {
	return ts.UTC().Format(time.RFC3339)
}
