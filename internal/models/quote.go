package models

// Quote is the shape returned by GET /stock-info. Values come from the
// latest daily bar of the upstream provider; Variation is the latest
// close minus the previous close, rounded to two decimals. Quotes are
// transient and never persisted.
type Quote struct {
	Symbol    string  `json:"symbol"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Variation float64 `json:"variation"`
}
