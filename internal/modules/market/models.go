package market

// PriceBar represents one daily OHLCV price record for a symbol
type PriceBar struct {
	ID     int64   `json:"id,omitempty"`
	Symbol string  `json:"symbol"`
	Date   string  `json:"date"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume int64   `json:"volume"`
}

// DatedClose is a (date, close) pair from an ordered price series
type DatedClose struct {
	Date  string  `json:"date"`
	Close float64 `json:"close"`
}

// SymbolStats aggregates the recorded history of one symbol
type SymbolStats struct {
	Symbol       string  `json:"symbol"`
	TotalRecords int     `json:"total_records"`
	EarliestDate string  `json:"earliest_date"`
	LatestDate   string  `json:"latest_date"`
	AvgClose     float64 `json:"avg_close"`
	AllTimeHigh  float64 `json:"all_time_high"`
	AllTimeLow   float64 `json:"all_time_low"`
	TotalVolume  int64   `json:"total_volume"`
}

// Indicators carries technical indicator values over recent closes
type Indicators struct {
	Symbol string   `json:"symbol"`
	Period int      `json:"period"`
	SMA    *float64 `json:"sma"`
	EMA    *float64 `json:"ema"`
	RSI    *float64 `json:"rsi"`
}
