// Package normalize maps heterogeneous upstream payloads into canonical
// events. Bridge feeds expose the same value under several names and
// nesting levels depending on protocol version; each extractor probes an
// ordered fallback chain and degrades to a documented neutral default
// rather than failing.
package normalize

import (
	"encoding/json"
	"time"

	"github.com/you/livepulse/internal/core"
)

// DefaultGiftName is used when no source field yields a gift name.
const DefaultGiftName = "Gift"

// Event decodes one raw frame payload into a canonical event. Unknown
// frame types yield an Event with empty Kind, which callers drop.
func Event(frameType string, data []byte, now time.Time) core.Event {
	var m map[string]any
	_ = json.Unmarshal(data, &m)

	ev := core.Event{Ts: now, Participant: str(m, "uniqueId", "unique_id", "userId")}

	switch frameType {
	case "chat", "comment":
		ev.Kind = core.KindChat
		ev.Chat = &core.ChatPayload{
			Text:      str(m, "comment", "text", "message"),
			AvatarURL: str(m, "profilePictureUrl", "profile_picture_url"),
		}
	case "gift":
		ev.Kind = core.KindGift
		ev.Gift = normalizeGift(m)
	case "like":
		ev.Kind = core.KindLike
		count := num(m, "likeCount", "like_count", "count")
		if count <= 0 {
			count = 1
		}
		ev.Like = &core.LikePayload{Count: count}
	case "follow":
		ev.Kind = core.KindFollow
	case "share":
		ev.Kind = core.KindShare
	case "roomUser", "viewers":
		ev.Kind = core.KindViewerCount
		ev.Participant = ""
		ev.ViewerCount = &core.ViewerCountPayload{Count: num(m, "viewerCount", "viewer_count", "count")}
	case "member", "join":
		ev.Kind = core.KindJoin
	case "question":
		ev.Kind = core.KindQuestion
		ev.Question = &core.QuestionPayload{Text: str(m, "questionText", "question_text", "text")}
	case "streamEnd", "stream_end":
		ev.Kind = core.KindStreamEnd
		ev.Participant = ""
	case "error":
		ev.Kind = core.KindError
		ev.Participant = ""
		ev.Error = &core.ErrorPayload{Message: str(m, "message", "error")}
	}

	return ev
}

func normalizeGift(m map[string]any) *core.GiftPayload {
	g := &core.GiftPayload{
		GiftID:      num(m, "giftId", "gift_id"),
		RepeatCount: num(m, "repeatCount"),
		AvatarURL:   str(m, "profilePictureUrl", "profile_picture_url"),
	}
	if g.GiftID == 0 {
		g.GiftID = nestedNum(m, "gift", "id")
	}
	if g.RepeatCount == 0 {
		g.RepeatCount = nestedNum(m, "gift", "repeat_count")
	}
	if g.RepeatCount <= 0 {
		g.RepeatCount = 1
	}

	g.RepeatEnd = num(m, "repeatEnd") == 1 || nestedNum(m, "gift", "repeat_end") == 1

	// The per-unit diamond value moves between protocol versions; probe in
	// documented order and fall back to zero.
	g.DiamondsPerUnit = num(m, "diamondCount")
	if g.DiamondsPerUnit == 0 {
		g.DiamondsPerUnit = nestedNum(m, "gift", "diamond_count")
	}
	if g.DiamondsPerUnit == 0 {
		g.DiamondsPerUnit = nestedNum(m, "gift", "diamondCount")
	}
	if g.DiamondsPerUnit == 0 {
		g.DiamondsPerUnit = nestedNum(m, "extendedGiftInfo", "diamond_count")
	}

	g.Name = str(m, "giftName")
	if g.Name == "" {
		g.Name = nestedStr(m, "gift", "name")
	}
	if g.Name == "" {
		g.Name = DefaultGiftName
	}

	g.ImageURL = str(m, "giftPictureUrl")
	if g.ImageURL == "" {
		g.ImageURL = firstURL(m, "gift", "image")
	}
	if g.ImageURL == "" {
		g.ImageURL = firstURL(m, "gift", "icon")
	}

	return g
}

func str(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if v, ok := m[k].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

func num(m map[string]any, keys ...string) int64 {
	for _, k := range keys {
		if n, ok := asInt(m[k]); ok {
			return n
		}
	}
	return 0
}

func nested(m map[string]any, key string) map[string]any {
	sub, _ := m[key].(map[string]any)
	return sub
}

func nestedNum(m map[string]any, key, field string) int64 {
	if sub := nested(m, key); sub != nil {
		if n, ok := asInt(sub[field]); ok {
			return n
		}
	}
	return 0
}

func nestedStr(m map[string]any, key, field string) string {
	if sub := nested(m, key); sub != nil {
		if v, ok := sub[field].(string); ok {
			return v
		}
	}
	return ""
}

// firstURL returns the first entry of gift.<key>.url_list, the shape TikTok
// uses for image assets.
func firstURL(m map[string]any, key, asset string) string {
	sub := nested(m, key)
	if sub == nil {
		return ""
	}
	assetMap, _ := sub[asset].(map[string]any)
	if assetMap == nil {
		return ""
	}
	list, _ := assetMap["url_list"].([]any)
	if len(list) == 0 {
		return ""
	}
	url, _ := list[0].(string)
	return url
}

func asInt(v any) (int64, bool) {
	switch n := v.(type) {
	case float64:
		return int64(n), true
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return i, true
		}
	case int:
		return int64(n), true
	case int64:
		return n, true
	}
	return 0, false
}
