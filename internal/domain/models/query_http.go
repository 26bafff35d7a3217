package models

// HTTP request bindings for the read surface.

type PricesRequest struct {
	Market    string `query:"market" json:"market"`
	Sector    string `query:"sector" json:"sector"`
	Search    string `query:"search" json:"search"`
	Freshness string `query:"freshness" json:"freshness" validate:"omitempty,oneof=live today yesterday older"`
	Page      int    `query:"page" json:"page" default:"1" validate:"gte=1"`
	PerPage   int    `query:"per_page" json:"per_page" default:"50" validate:"gte=1,lte=500"`
}

type SearchRequest struct {
	Q     string `query:"q" json:"q" validate:"required,min=1"`
	Limit int    `query:"limit" json:"limit" default:"50" validate:"gte=1,lte=500"`
}
