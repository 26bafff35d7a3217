// Package horizon holds the fixed table of prediction horizons. The table is
// static configuration, not state; lookups for unknown codes return zero
// values instead of errors so one malformed point can never abort a refresh
// cycle.
package horizon

// Horizon codes as stored in the prediction series.
const (
	TwoMin      = "2min"
	FiveMin     = "5min"
	FifteenMin  = "15min"
	OneHour     = "1hour"
	OneDay      = "1day"
	OneWeek     = "1week"
	OneMonth    = "1month"
	ThreeMonths = "3month"
	SixMonths   = "6month"
	OneYear     = "1year"
)

type entry struct {
	minutes int
	label   string
}

// codes is ordered by strictly increasing duration; All relies on this order.
var codes = []string{
	TwoMin, FiveMin, FifteenMin, OneHour, OneDay,
	OneWeek, OneMonth, ThreeMonths, SixMonths, OneYear,
}

var table = map[string]entry{
	TwoMin:      {2, "2m"},
	FiveMin:     {5, "5m"},
	FifteenMin:  {15, "15m"},
	OneHour:     {60, "1H"},
	OneDay:      {1440, "1D"},
	OneWeek:     {10080, "1W"},
	OneMonth:    {43200, "1M"},
	ThreeMonths: {129600, "3M"},
	SixMonths:   {259200, "6M"},
	OneYear:     {525600, "1Y"},
}

// Minutes returns the horizon duration in minutes, or 0 for unknown codes.
func Minutes(code string) int {
	return table[code].minutes
}

// Label returns the display label for a code. Unknown codes echo the code so
// callers always have something renderable.
func Label(code string) string {
	if e, ok := table[code]; ok {
		return e.label
	}
	return code
}

// Known reports whether code is a registered horizon.
func Known(code string) bool {
	_, ok := table[code]
	return ok
}

// All returns the horizon codes ordered from shortest to longest.
func All() []string {
	out := make([]string, len(codes))
	copy(out, codes)
	return out
}

// Option is a (value, label) pair for selection UIs.
type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// Options returns all horizons as ordered option pairs.
func Options() []Option {
	out := make([]Option, 0, len(codes))
	for _, c := range codes {
		out = append(out, Option{Value: c, Label: table[c].label})
	}
	return out
}
