package revenue

import (
	"testing"
	"time"
)

func TestCalculateSplit(t *testing.T) {
	br := DefaultConfig().Calculate(1000)
	if br.TotalUSD != "5.00" {
		t.Fatalf("total: got %q want 5.00", br.TotalUSD)
	}
	if br.CreatorEarnings != "2.50" {
		t.Fatalf("creator: got %q want 2.50", br.CreatorEarnings)
	}
	if br.TiktokEarnings != "2.50" {
		t.Fatalf("platform: got %q want 2.50", br.TiktokEarnings)
	}
	if br.Diamonds != 1000 {
		t.Fatalf("diamonds echoed wrong: %d", br.Diamonds)
	}
}

func TestProjectMinimumDivisor(t *testing.T) {
	// 10 seconds in: divisor clamps to one minute, so per-minute equals the
	// cumulative total.
	p := DefaultConfig().Project(1000, 10*time.Second, 0)
	if p.RevenuePerMinute != "5.00" {
		t.Fatalf("per-minute: got %q want 5.00", p.RevenuePerMinute)
	}
	if p.ProjectedHourly != "300.00" {
		t.Fatalf("hourly: got %q want 300.00", p.ProjectedHourly)
	}
	if p.ProjectedDaily != "7200.00" {
		t.Fatalf("daily: got %q want 7200.00", p.ProjectedDaily)
	}
	if p.RevenuePerViewer != "0" {
		t.Fatalf("per-viewer with no viewers: got %q want 0", p.RevenuePerViewer)
	}
}

func TestProjectElapsed(t *testing.T) {
	p := DefaultConfig().Project(2000, 10*time.Minute, 100)
	if p.RevenuePerMinute != "1.00" {
		t.Fatalf("per-minute: got %q want 1.00", p.RevenuePerMinute)
	}
	if p.RevenuePerViewer != "0.1000" {
		t.Fatalf("per-viewer: got %q want 0.1000", p.RevenuePerViewer)
	}
}
