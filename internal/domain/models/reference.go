package models

// Reference (dimension) entities. Owned by the write path; the engine only
// reads cached copies. Instruments are soft-retired, never deleted, while
// historical series rows still reference their PID.

const StatusRetired = "retired"

type Country struct {
	ID   string `json:"id"`
	Code string `json:"code"`
	Name string `json:"name"`
}

type Market struct {
	ID        string `json:"id"`
	Code      string `json:"code"`
	Name      string `json:"name"`
	CountryID string `json:"country_id"`
}

type Sector struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Instrument struct {
	ID        string `json:"id"`
	PID       string `json:"pid"`
	Symbol    string `json:"symbol"`
	Name      string `json:"name"`
	MarketID  string `json:"market_id"`
	SectorID  string `json:"sector_id"`
	CountryID string `json:"country_id"`
	Status    string `json:"status"`
}

// Retired reports whether the instrument is soft-retired and therefore
// excluded from the projection universe.
func (i *Instrument) Retired() bool {
	return i.Status == StatusRetired
}
