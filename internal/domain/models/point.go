package models

// PricePoint is one append-only row of the price series. Timestamp is event
// time in unix seconds, not ingestion time. Rows are never mutated or deleted.
type PricePoint struct {
	PID       string  `json:"pid"`
	Timestamp int64   `json:"timestamp"`
	Last      float64 `json:"last"`
	Bid       float64 `json:"bid"`
	Ask       float64 `json:"ask"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	LastClose float64 `json:"last_close"`
	ChangePct float64 `json:"change_pct"`
	Volume    float64 `json:"volume"`
}

// PredictionPoint is one append-only row of the prediction series. Horizon is
// part of the row identity: an instrument has one current prediction per
// horizon, not one overall.
type PredictionPoint struct {
	PID        string  `json:"pid"`
	Symbol     string  `json:"symbol"`
	Model      string  `json:"model"`
	Timestamp  int64   `json:"timestamp"`
	Predicted  float64 `json:"predicted"`
	Confidence float64 `json:"confidence"`
	Horizon    string  `json:"horizon"`
}
