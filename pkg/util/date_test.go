package util

import (
    "strconv"
    "testing"
    "time"
)

func TestParseTimeRFC3339(t *testing.T) {
    s := "2024-10-10T10:10:10Z"
    got, ok := ParseTime(s)
    if !ok {
        t.Fatalf("expected ok")
    }
    if got.UTC().Format(time.RFC3339) != s {
        t.Fatalf("unexpected time %v", got)
    }
}

func TestParseTimeUnix(t *testing.T) {
    ts := time.Date(2024, 10, 10, 10, 10, 10, 0, time.UTC).Unix()
    got, ok := ParseTime(strconv.FormatInt(ts, 10))
    if !ok {
        t.Fatalf("expected ok")
    }
    if got.Unix() != ts {
        t.Fatalf("unexpected unix %v", got.Unix())
    }
}

func TestParseTimeDefault(t *testing.T) {
    def := time.Date(2024, 10, 10, 10, 10, 10, 0, time.UTC)
    got := ParseTimeDefault("", def)
    if !got.Equal(def) {
        t.Fatalf("expected default")
    }
}

func TestDayStart(t *testing.T) {
    loc := time.FixedZone("UTC+7", 7*3600)
    ts := time.Date(2026, 8, 27, 18, 30, 0, 0, time.UTC) // 01:30 on the 28th local
    got := DayStart(ts, loc)
    want := time.Date(2026, 8, 28, 0, 0, 0, 0, loc)
    if !got.Equal(want) {
        t.Fatalf("got %v, want %v", got, want)
    }
}

func TestDaysBetween(t *testing.T) {
    utc := time.UTC
    day := func(d, h int) time.Time { return time.Date(2026, 8, d, h, 0, 0, 0, utc) }

    if got := DaysBetween(day(28, 1), day(28, 23), utc); got != 0 {
        t.Fatalf("same day: got %d, want 0", got)
    }
    if got := DaysBetween(day(27, 23), day(28, 1), utc); got != 1 {
        t.Fatalf("adjacent days: got %d, want 1", got)
    }
    if got := DaysBetween(day(20, 12), day(28, 12), utc); got != 8 {
        t.Fatalf("got %d, want 8", got)
    }
}

func TestDaysBetweenTimezone(t *testing.T) {
    loc := time.FixedZone("UTC+7", 7*3600)
    a := time.Date(2026, 8, 27, 16, 0, 0, 0, time.UTC) // 23:00 on the 27th local
    b := time.Date(2026, 8, 27, 18, 0, 0, 0, time.UTC) // 01:00 on the 28th local

    if got := DaysBetween(a, b, time.UTC); got != 0 {
        t.Fatalf("UTC: got %d, want 0", got)
    }
    if got := DaysBetween(a, b, loc); got != 1 {
        t.Fatalf("UTC+7: got %d, want 1", got)
    }
}