package botdetect

import (
	"strconv"
	"strings"
	"time"
)

// Classification buckets a bot score via fixed thresholds.
type Classification string

const (
	Human        Classification = "human"
	Suspicious   Classification = "suspicious"
	LikelyBot    Classification = "likely_bot"
	ConfirmedBot Classification = "confirmed_bot"
)

// Classify maps a score to its classification. Thresholds: 80/60/30.
func Classify(score int) Classification {
	switch {
	case score >= 80:
		return ConfirmedBot
	case score >= 60:
		return LikelyBot
	case score >= 30:
		return Suspicious
	default:
		return Human
	}
}

// Record is the per-participant behavior history. Created on the first chat
// message and kept for the whole session. Score and Class hold the last
// computed values between rescoring points.
type Record struct {
	Username      string
	Messages      []string
	Timestamps    []time.Time
	Intervals     []float64 // seconds between consecutive messages
	TotalMessages int
	Score         int
	Class         Classification

	unique map[string]struct{}
}

func newRecord(username string) *Record {
	return &Record{
		Username: username,
		Class:    Human,
		unique:   make(map[string]struct{}),
	}
}

// observe appends one message. historyLimit bounds the retained
// message/timestamp/interval slices (0 disables the cap); counters stay
// exact regardless.
func (r *Record) observe(text string, ts time.Time, historyLimit int) {
	if len(r.Timestamps) > 0 {
		r.Intervals = append(r.Intervals, ts.Sub(r.Timestamps[len(r.Timestamps)-1]).Seconds())
	}
	r.Messages = append(r.Messages, text)
	r.Timestamps = append(r.Timestamps, ts)
	r.unique[strings.ToLower(strings.TrimSpace(text))] = struct{}{}
	r.TotalMessages++

	if historyLimit > 0 && len(r.Messages) > historyLimit {
		r.Messages = r.Messages[1:]
		r.Timestamps = r.Timestamps[1:]
		if len(r.Intervals) > 0 {
			r.Intervals = r.Intervals[1:]
		}
	}
}

// UniqueCount reports the number of distinct normalized messages.
func (r *Record) UniqueCount() int { return len(r.unique) }

// RepetitionRate formats the repeated-message share as a one-decimal
// percentage string.
func (r *Record) RepetitionRate() string {
	if r.TotalMessages == 0 {
		return "0.0"
	}
	rate := (1 - float64(len(r.unique))/float64(r.TotalMessages)) * 100
	return strconv.FormatFloat(rate, 'f', 1, 64)
}
