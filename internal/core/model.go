package core

import "time"

// EventKind tags the canonical event variants produced by the connector.
type EventKind string

const (
	KindChat        EventKind = "chat"
	KindGift        EventKind = "gift"
	KindLike        EventKind = "like"
	KindFollow      EventKind = "follow"
	KindShare       EventKind = "share"
	KindViewerCount EventKind = "viewers"
	KindJoin        EventKind = "join"
	KindQuestion    EventKind = "question"
	KindStreamEnd   EventKind = "stream_end"
	KindError       EventKind = "error"
)

// Event is the canonical form every upstream payload is normalized into.
// Only the payload matching Kind is non-nil.
type Event struct {
	Kind        EventKind
	Ts          time.Time // receipt timestamp
	Participant string    // empty for viewer-count, stream-end and error events

	Chat        *ChatPayload
	Gift        *GiftPayload
	Like        *LikePayload
	ViewerCount *ViewerCountPayload
	Question    *QuestionPayload
	Error       *ErrorPayload
}

type ChatPayload struct {
	Text      string
	AvatarURL string
}

type GiftPayload struct {
	GiftID          int64
	Name            string
	ImageURL        string
	RepeatCount     int64
	RepeatEnd       bool
	DiamondsPerUnit int64
	AvatarURL       string
}

type LikePayload struct {
	Count int64
}

type ViewerCountPayload struct {
	Count int64
}

type QuestionPayload struct {
	Text string
}

type ErrorPayload struct {
	Message string
}

// Snapshot is the outbound envelope pushed to subscribers. Payload must be
// JSON-marshalable; Type matches the channel names consumers subscribe to.
type Snapshot struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// Snapshot types emitted by the engine.
const (
	SnapStats        = "stats-update"
	SnapChatMessage  = "chat-message"
	SnapBotStats     = "bot-stats-update"
	SnapSentiment    = "sentiment-update"
	SnapLeaderboards = "leaderboards-update"
	SnapGift         = "gift"
	SnapLike         = "like"
	SnapFollow       = "follow"
	SnapShare        = "share"
	SnapViewers      = "viewers"
	SnapMemberJoin   = "member-join"
	SnapQuestion     = "question"
	SnapMetrics      = "metrics-update"
	SnapRevenue      = "revenue-update"
	SnapStreamEnd    = "stream-end"
	SnapStatus       = "status"
	SnapTimeseries   = "timeseries-update"
)
