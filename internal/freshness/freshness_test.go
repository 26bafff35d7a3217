package freshness

import (
	"testing"
	"time"
)

var utc = NewClassifier(nil)

func ts(t time.Time) int64 { return t.Unix() }

func TestPriceBuckets(t *testing.T) {
	now := time.Date(2026, 8, 28, 15, 0, 0, 0, time.UTC)

	cases := []struct {
		name  string
		event time.Time
		want  Bucket
	}{
		{"exactly now", now, BucketLive},
		{"59m ago", now.Add(-59 * time.Minute), BucketLive},
		{"exactly 1h ago", now.Add(-time.Hour), BucketLive},
		{"61m ago same day", now.Add(-61 * time.Minute), BucketToday},
		{"this morning", time.Date(2026, 8, 28, 0, 30, 0, 0, time.UTC), BucketToday},
		{"yesterday evening", time.Date(2026, 8, 27, 23, 59, 0, 0, time.UTC), BucketYesterday},
		{"yesterday morning", time.Date(2026, 8, 27, 1, 0, 0, 0, time.UTC), BucketYesterday},
		{"two days ago", time.Date(2026, 8, 26, 23, 59, 0, 0, time.UTC), BucketOlder},
		{"last month", time.Date(2026, 7, 28, 15, 0, 0, 0, time.UTC), BucketOlder},
	}
	for _, c := range cases {
		if got := utc.Price(now, ts(c.event)); got != c.want {
			t.Fatalf("%s: got %s, want %s", c.name, got, c.want)
		}
	}
}

func TestPredictionBuckets(t *testing.T) {
	now := time.Date(2026, 8, 28, 15, 0, 0, 0, time.UTC)

	cases := []struct {
		name  string
		event time.Time
		want  Bucket
	}{
		{"just now", now.Add(-time.Minute), BucketCurrent},
		{"this morning", time.Date(2026, 8, 28, 0, 1, 0, 0, time.UTC), BucketCurrent},
		{"yesterday", time.Date(2026, 8, 27, 12, 0, 0, 0, time.UTC), BucketYesterday},
		{"two days ago", time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC), BucketOlder},
	}
	for _, c := range cases {
		if got := utc.Prediction(now, ts(c.event)); got != c.want {
			t.Fatalf("%s: got %s, want %s", c.name, got, c.want)
		}
	}
}

// A record classified yesterday just before midnight flips to yesterday right
// after midnight even though under an hour passed. Documented wall-clock
// behavior.
func TestMidnightFlip(t *testing.T) {
	event := time.Date(2026, 8, 27, 23, 30, 0, 0, time.UTC)

	before := time.Date(2026, 8, 27, 23, 50, 0, 0, time.UTC)
	if got := utc.Price(before, ts(event)); got != BucketLive {
		t.Fatalf("before midnight: got %s, want live", got)
	}

	// 40 minutes after the event, still inside the live window
	after := time.Date(2026, 8, 28, 0, 10, 0, 0, time.UTC)
	if got := utc.Price(after, ts(event)); got != BucketLive {
		t.Fatalf("just after midnight within 1h: got %s, want live", got)
	}

	// past the live window the calendar day decides
	later := time.Date(2026, 8, 28, 0, 45, 0, 0, time.UTC)
	if got := utc.Price(later, ts(event)); got != BucketYesterday {
		t.Fatalf("after midnight past 1h: got %s, want yesterday", got)
	}
}

func TestTimezoneBoundary(t *testing.T) {
	// 23:30 UTC on the 27th is already the 28th in UTC+7
	loc := time.FixedZone("UTC+7", 7*3600)
	c := NewClassifier(loc)

	event := time.Date(2026, 8, 27, 16, 0, 0, 0, time.UTC) // 23:00 on the 27th local
	now := time.Date(2026, 8, 27, 18, 0, 0, 0, time.UTC)   // 01:00 on the 28th local

	if got := c.Price(now, ts(event)); got != BucketYesterday {
		t.Fatalf("got %s, want yesterday in UTC+7", got)
	}
	if got := utc.Price(now, ts(event)); got != BucketToday {
		t.Fatalf("got %s, want today in UTC", got)
	}
}

// Freshness may only degrade as now advances while the event stays fixed.
func TestMonotonicity(t *testing.T) {
	event := time.Date(2026, 8, 28, 9, 0, 0, 0, time.UTC)

	prev := -1
	for offset := time.Duration(0); offset <= 96*time.Hour; offset += 13 * time.Minute {
		now := event.Add(offset)
		rank := utc.Price(now, ts(event)).Rank()
		if rank < prev {
			t.Fatalf("freshness improved over time at offset %v: rank %d -> %d", offset, prev, rank)
		}
		prev = rank
	}
}

func TestAges(t *testing.T) {
	now := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)

	if got := AgeSeconds(now, ts(now.Add(-90*time.Second))); got != 90 {
		t.Fatalf("AgeSeconds = %d, want 90", got)
	}
	// clock skew: events slightly ahead of now clamp to zero
	if got := AgeSeconds(now, ts(now.Add(30*time.Second))); got != 0 {
		t.Fatalf("AgeSeconds ahead of now = %d, want 0", got)
	}
	if got := AgeMinutes(now, ts(now.Add(-150*time.Second))); got != 2 {
		t.Fatalf("AgeMinutes = %d, want 2", got)
	}
}

func TestHoursAgoRounds(t *testing.T) {
	now := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		age  time.Duration
		want int
	}{
		{20 * time.Minute, 0},
		{31 * time.Minute, 1},
		{89 * time.Minute, 1},
		{91 * time.Minute, 2},
		{24 * time.Hour, 24},
	}
	for _, c := range cases {
		if got := HoursAgo(now, ts(now.Add(-c.age))); got != c.want {
			t.Fatalf("HoursAgo(%v) = %d, want %d", c.age, got, c.want)
		}
	}
}

func TestMinutesToTarget(t *testing.T) {
	now := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	event := now.Add(-30 * time.Minute)

	// 1hour horizon placed 30m ago: 30m left
	if got := MinutesToTarget(now, ts(event), 60); got != 30 {
		t.Fatalf("MinutesToTarget = %d, want 30", got)
	}
	// 15min horizon placed 30m ago: already elapsed, negative is valid
	if got := MinutesToTarget(now, ts(event), 15); got != -15 {
		t.Fatalf("MinutesToTarget elapsed = %d, want -15", got)
	}
}

func TestDaysOld(t *testing.T) {
	now := time.Date(2026, 8, 28, 1, 0, 0, 0, time.UTC)

	if got := utc.DaysOld(now, ts(time.Date(2026, 8, 28, 0, 30, 0, 0, time.UTC))); got != 0 {
		t.Fatalf("same day DaysOld = %d, want 0", got)
	}
	if got := utc.DaysOld(now, ts(time.Date(2026, 8, 27, 23, 30, 0, 0, time.UTC))); got != 1 {
		t.Fatalf("yesterday DaysOld = %d, want 1", got)
	}
	if got := utc.DaysOld(now, ts(time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC))); got != 8 {
		t.Fatalf("DaysOld = %d, want 8", got)
	}
}
