package models

import "time"

// RankedStock is one entry of a ranking snapshot.
type RankedStock struct {
	Rank  int     `json:"rank"`
	Code  string  `json:"code"`
	Score float64 `json:"score"`
	Close float64 `json:"close"`
}

// RankingSnapshot is the scored ranking of all tracked securities as of
// one trading day.
type RankingSnapshot struct {
	Date        string        `json:"date"`
	Model       string        `json:"model"`
	GeneratedAt time.Time     `json:"generated_at"`
	Entries     []RankedStock `json:"entries"`
}
