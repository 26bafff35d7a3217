package horizon

import "testing"

func TestMinutes(t *testing.T) {
	cases := []struct {
		code string
		want int
	}{
		{"2min", 2},
		{"5min", 5},
		{"15min", 15},
		{"1hour", 60},
		{"1day", 1440},
		{"1week", 10080},
		{"1month", 43200},
		{"3month", 129600},
		{"6month", 259200},
		{"1year", 525600},
	}
	for _, c := range cases {
		if got := Minutes(c.code); got != c.want {
			t.Fatalf("Minutes(%q) = %d, want %d", c.code, got, c.want)
		}
	}
}

func TestUnknownCode(t *testing.T) {
	if Minutes("4hour") != 0 {
		t.Fatalf("unknown code must map to 0 minutes")
	}
	// unknown codes echo back instead of erroring
	if got := Label("4hour"); got != "4hour" {
		t.Fatalf("Label(unknown) = %q, want echo", got)
	}
	if Known("4hour") {
		t.Fatalf("Known(unknown) must be false")
	}
}

func TestLabel(t *testing.T) {
	cases := map[string]string{
		"2min":   "2m",
		"1hour":  "1H",
		"1day":   "1D",
		"1week":  "1W",
		"1month": "1M",
		"1year":  "1Y",
	}
	for code, want := range cases {
		if got := Label(code); got != want {
			t.Fatalf("Label(%q) = %q, want %q", code, got, want)
		}
	}
}

func TestOptionsOrdered(t *testing.T) {
	opts := Options()
	if len(opts) != 10 {
		t.Fatalf("expected 10 horizons, got %d", len(opts))
	}
	for i := 1; i < len(opts); i++ {
		if Minutes(opts[i-1].Value) >= Minutes(opts[i].Value) {
			t.Fatalf("options not ordered by duration at %d: %s >= %s", i, opts[i-1].Value, opts[i].Value)
		}
	}
}

func TestAllKnown(t *testing.T) {
	for _, code := range All() {
		if !Known(code) {
			t.Fatalf("All() returned unknown code %q", code)
		}
	}
}
