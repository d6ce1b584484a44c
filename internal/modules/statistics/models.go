package statistics

// SymbolStats holds the risk figures for one held symbol over a date range.
// COV and Beta are nil when the range contains too little price history to
// define them.
type SymbolStats struct {
	Symbol string   `json:"symbol"`
	COV    *float64 `json:"cov"`
	Beta   *float64 `json:"beta"`
	Cached bool     `json:"cached"`
}

// Report is the statistics response for a portfolio.
type Report struct {
	PortfolioID int64         `json:"portfolio_id"`
	StartDate   string        `json:"start_date"`
	EndDate     string        `json:"end_date"`
	Stats       []SymbolStats `json:"stats"`
}

// CorrelationPair is one unordered pair of held symbols with its Pearson
// correlation and population covariance over the days both symbols have a
// defined daily return. Correlation is nil when the overlap is too small or
// either series is constant; Covariance is nil only when there is no overlap.
type CorrelationPair struct {
	Symbol1      string   `json:"symbol1"`
	Symbol2      string   `json:"symbol2"`
	Correlation  *float64 `json:"correlation"`
	Covariance   *float64 `json:"covariance"`
	Observations int      `json:"observations"`
}

// CorrelationMatrix is the correlation response for a portfolio.
type CorrelationMatrix struct {
	PortfolioID int64             `json:"portfolio_id"`
	StartDate   string            `json:"start_date"`
	EndDate     string            `json:"end_date"`
	Pairs       []CorrelationPair `json:"pairs"`
}

// CacheEntry is a persisted statistics result keyed by the exact request
// parameters. A nil COV or Beta is cached as NULL so an undefined figure is
// not recomputed on every request.
type CacheEntry struct {
	PortfolioID int64
	Symbol      string
	StartDate   string
	EndDate     string
	COV         *float64
	Beta        *float64
}
