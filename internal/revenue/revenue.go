package revenue

import (
	"strconv"
	"time"
)

// Config holds the diamond conversion rates. Defaults mirror the public
// TikTok payout split.
type Config struct {
	DiamondToUSD float64
	CreatorCut   float64
	PlatformCut  float64
}

func DefaultConfig() Config {
	return Config{
		DiamondToUSD: 0.005,
		CreatorCut:   0.50,
		PlatformCut:  0.50,
	}
}

// Breakdown is the monetary view of a diamond total. Amounts are formatted
// with two decimals, matching what subscribers render directly.
type Breakdown struct {
	Diamonds        int64  `json:"diamonds"`
	TotalUSD        string `json:"totalUSD"`
	CreatorEarnings string `json:"creatorEarnings"`
	TiktokEarnings  string `json:"tiktokEarnings"`
}

// Projection extends a Breakdown with linear extrapolations over the
// elapsed session time.
type Projection struct {
	Breakdown
	RevenuePerMinute string `json:"revenuePerMinute"`
	RevenuePerViewer string `json:"revenuePerViewer"`
	ProjectedHourly  string `json:"projectedHourly"`
	ProjectedDaily   string `json:"projectedDaily"`
}

// Calculate converts a cumulative diamond total to USD amounts.
func (c Config) Calculate(diamonds int64) Breakdown {
	total := float64(diamonds) * c.DiamondToUSD
	return Breakdown{
		Diamonds:        diamonds,
		TotalUSD:        format2(total),
		CreatorEarnings: format2(total * c.CreatorCut),
		TiktokEarnings:  format2(total * c.PlatformCut),
	}
}

// Project extrapolates the cumulative total over the session duration. The
// divisor is clamped to one minute so projections are defined before the
// first minute elapses.
func (c Config) Project(diamonds int64, elapsed time.Duration, viewers int64) Projection {
	total := float64(diamonds) * c.DiamondToUSD
	minutes := elapsed.Minutes()
	if minutes < 1 {
		minutes = 1
	}

	p := Projection{
		Breakdown:        c.Calculate(diamonds),
		RevenuePerMinute: format2(total / minutes),
		RevenuePerViewer: "0",
		ProjectedHourly:  format2(total / minutes * 60),
		ProjectedDaily:   format2(total / minutes * 60 * 24),
	}
	if viewers > 0 {
		p.RevenuePerViewer = strconv.FormatFloat(total/float64(viewers), 'f', 4, 64)
	}
	return p
}

func format2(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
