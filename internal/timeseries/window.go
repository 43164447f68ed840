package timeseries

import "time"

// DefaultCapacity bounds the rolling window to one hour of per-minute
// rollups.
const DefaultCapacity = 60

// Point is one per-minute rollup appended at interval rollover.
type Point struct {
	Comments int64
	Likes    int64
	Gifts    int64
	Viewers  int64
	Ts       time.Time
}

// Data is the wire form of the full window: five parallel sequences,
// oldest first.
type Data struct {
	CommentsPerMinute []int64  `json:"commentsPerMinute"`
	LikesPerMinute    []int64  `json:"likesPerMinute"`
	GiftsPerMinute    []int64  `json:"giftsPerMinute"`
	ViewerHistory     []int64  `json:"viewerHistory"`
	Timestamps        []string `json:"timestamps"`
}

// Window is a fixed-capacity FIFO of rollup points. Not safe for concurrent
// use; the engine serializes access.
type Window struct {
	capacity int
	points   []Point
}

func New(capacity int) *Window {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Window{capacity: capacity}
}

// Append adds a rollup point, evicting the oldest entry once the window is
// full.
func (w *Window) Append(p Point) {
	w.points = append(w.points, p)
	if len(w.points) > w.capacity {
		w.points = w.points[1:]
	}
}

func (w *Window) Len() int { return len(w.points) }

// Snapshot renders the window as parallel series with RFC3339 timestamps.
func (w *Window) Snapshot() Data {
	d := Data{
		CommentsPerMinute: make([]int64, 0, len(w.points)),
		LikesPerMinute:    make([]int64, 0, len(w.points)),
		GiftsPerMinute:    make([]int64, 0, len(w.points)),
		ViewerHistory:     make([]int64, 0, len(w.points)),
		Timestamps:        make([]string, 0, len(w.points)),
	}
	for _, p := range w.points {
		d.CommentsPerMinute = append(d.CommentsPerMinute, p.Comments)
		d.LikesPerMinute = append(d.LikesPerMinute, p.Likes)
		d.GiftsPerMinute = append(d.GiftsPerMinute, p.Gifts)
		d.ViewerHistory = append(d.ViewerHistory, p.Viewers)
		d.Timestamps = append(d.Timestamps, p.Ts.UTC().Format(time.RFC3339))
	}
	return d
}

// Reset drops all points.
func (w *Window) Reset() { w.points = nil }
