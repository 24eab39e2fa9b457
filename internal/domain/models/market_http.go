package models

// Requests for market HTTP endpoints. Defined in domain for consistency and reuse.

type QuotesRequest struct {
	Code string `query:"code" json:"code"`
	Date string `query:"date" json:"date"`
	From string `query:"from" json:"from"`
	To   string `query:"to" json:"to"`
	N    int    `query:"n" json:"n" default:"500" validate:"gte=1,lte=10000"`
}

type FeaturesRequest struct {
	Code string `query:"code" json:"code" validate:"required"`
	N    int    `query:"n" json:"n" default:"30" validate:"gte=1,lte=1000"`
}

type RankingRequest struct {
	Date string `query:"date" json:"date"`
	Top  int    `query:"top" json:"top" default:"50" validate:"gte=1,lte=500"`
}

type ListedRequest struct {
	Code string `query:"code" json:"code"`
	Date string `query:"date" json:"date"`
}

// BackfillRequest is both the HTTP body of POST /api/backfill and the
// queue payload of the resulting job.
type BackfillRequest struct {
	From string `query:"from" json:"from" validate:"required"`
	To   string `query:"to" json:"to" validate:"required"`
}
