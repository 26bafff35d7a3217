// Package freshness classifies the age of a time-series point into a small
// ordered staleness taxonomy. Classification is a pure function of
// (now, event timestamp) and the engine's configured timezone; it is kept
// free of market trading-calendar state on purpose: "today" is the wall-clock
// calendar day, so right after midnight a closed market's last price flips
// from today to yesterday even though nothing new arrived. The original
// system behaves the same way and the behavior is kept as-is.
package freshness

import (
	"time"

	"FreshSnap/pkg/util"
)

// Bucket is a staleness class. Buckets are totally ordered from freshest to
// stalest via Rank.
type Bucket string

// Price buckets.
const (
	BucketLive      Bucket = "live"
	BucketToday     Bucket = "today"
	BucketYesterday Bucket = "yesterday"
	BucketOlder     Bucket = "older"
)

// Prediction buckets. Predictions have no intraday "live" class; anything
// from the current calendar day is current.
const (
	BucketCurrent Bucket = "current"
)

// liveWindow is the maximum age for a price to count as live.
const liveWindow = time.Hour

// Rank orders buckets from freshest (0) to stalest. Unknown buckets rank
// stalest.
func (b Bucket) Rank() int {
	switch b {
	case BucketLive:
		return 0
	case BucketToday, BucketCurrent:
		return 1
	case BucketYesterday:
		return 2
	case BucketOlder:
		return 3
	default:
		return 4
	}
}

// Classifier maps event timestamps to buckets using a fixed timezone for
// calendar-day boundaries.
type Classifier struct {
	loc *time.Location
}

// NewClassifier creates a classifier for the given timezone. A nil location
// falls back to UTC.
func NewClassifier(loc *time.Location) *Classifier {
	if loc == nil {
		loc = time.UTC
	}
	return &Classifier{loc: loc}
}

// Location returns the classifier's timezone.
func (c *Classifier) Location() *time.Location { return c.loc }

// Price classifies a price event timestamp (unix seconds) at the given now.
//
//	live       age <= 1h
//	today      same calendar date as now
//	yesterday  previous calendar date
//	older      anything earlier
func (c *Classifier) Price(now time.Time, ts int64) Bucket {
	event := time.Unix(ts, 0)
	if now.Sub(event) <= liveWindow {
		return BucketLive
	}
	switch c.daysBetween(now, event) {
	case 0:
		return BucketToday
	case 1:
		return BucketYesterday
	default:
		return BucketOlder
	}
}

// Prediction classifies a prediction event timestamp at the given now.
// Same day boundaries as Price but without the intraday live window.
func (c *Classifier) Prediction(now time.Time, ts int64) Bucket {
	event := time.Unix(ts, 0)
	switch c.daysBetween(now, event) {
	case 0:
		return BucketCurrent
	case 1:
		return BucketYesterday
	default:
		return BucketOlder
	}
}

// AgeSeconds returns now - ts in whole seconds. Negative ages (clock skew,
// event timestamps slightly ahead of now) clamp to zero.
func AgeSeconds(now time.Time, ts int64) int64 {
	age := now.Unix() - ts
	if age < 0 {
		return 0
	}
	return age
}

// AgeMinutes returns the event age in whole minutes, clamped at zero.
func AgeMinutes(now time.Time, ts int64) int64 {
	return AgeSeconds(now, ts) / 60
}

// HoursAgo rounds the event age to the nearest hour, matching the derived
// hours_ago field of the original latest-price view.
func HoursAgo(now time.Time, ts int64) int {
	return int((AgeSeconds(now, ts) + 1800) / 3600)
}

// DaysOld returns how many calendar days ago the event fell, in the
// classifier's timezone.
func (c *Classifier) DaysOld(now time.Time, ts int64) int {
	d := c.daysBetween(now, time.Unix(ts, 0))
	if d < 0 {
		return 0
	}
	return d
}

// MinutesToTarget returns (target - now) in whole minutes where
// target = ts + horizonMinutes*60. Negative when the predicted horizon has
// already elapsed; that is a valid, expected state.
func MinutesToTarget(now time.Time, ts int64, horizonMinutes int) int64 {
	target := ts + int64(horizonMinutes)*60
	return (target - now.Unix()) / 60
}

// daysBetween counts calendar-day boundaries between event and now in the
// classifier's timezone. 0 = same date, 1 = event was yesterday.
func (c *Classifier) daysBetween(now, event time.Time) int {
	return util.DaysBetween(event, now, c.loc)
}
