package models

// Statement is one financial-statements summary record from /fins/statements.
// Numeric columns arrive as strings upstream, empty when not disclosed, so
// they are kept as strings and parsed by consumers that need numbers.
type Statement struct {
	DisclosedDate              string `json:"DisclosedDate"`
	DisclosedTime              string `json:"DisclosedTime"`
	DisclosedUnixTime          string `json:"DisclosedUnixTime"`
	LocalCode                  string `json:"LocalCode"`
	DisclosureNumber           string `json:"DisclosureNumber"`
	TypeOfDocument             string `json:"TypeOfDocument"`
	TypeOfCurrentPeriod        string `json:"TypeOfCurrentPeriod"`
	CurrentPeriodStartDate     string `json:"CurrentPeriodStartDate"`
	CurrentPeriodEndDate       string `json:"CurrentPeriodEndDate"`
	CurrentFiscalYearStartDate string `json:"CurrentFiscalYearStartDate"`
	CurrentFiscalYearEndDate   string `json:"CurrentFiscalYearEndDate"`
	NetSales                   string `json:"NetSales"`
	OperatingProfit            string `json:"OperatingProfit"`
	OrdinaryProfit             string `json:"OrdinaryProfit"`
	Profit                     string `json:"Profit"`
	EarningsPerShare           string `json:"EarningsPerShare"`
	DilutedEarningsPerShare    string `json:"DilutedEarningsPerShare"`
	TotalAssets                string `json:"TotalAssets"`
	Equity                     string `json:"Equity"`
	EquityToAssetRatio         string `json:"EquityToAssetRatio"`
	BookValuePerShare          string `json:"BookValuePerShare"`

	ResultDividendPerShareAnnual   string `json:"ResultDividendPerShareAnnual"`
	ForecastDividendPerShareAnnual string `json:"ForecastDividendPerShareAnnual"`
	ForecastNetSales               string `json:"ForecastNetSales"`
	ForecastOperatingProfit        string `json:"ForecastOperatingProfit"`
	ForecastOrdinaryProfit         string `json:"ForecastOrdinaryProfit"`
	ForecastProfit                 string `json:"ForecastProfit"`
	ForecastEarningsPerShare       string `json:"ForecastEarningsPerShare"`

	NumberOfIssuedAndOutstandingSharesAtTheEndOfFiscalYearIncludingTreasuryStock string `json:"NumberOfIssuedAndOutstandingSharesAtTheEndOfFiscalYearIncludingTreasuryStock"`
}
