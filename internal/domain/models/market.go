package models

// TopixBar is one daily TOPIX index bar from /indices/topix.
type TopixBar struct {
	Date  string  `json:"Date"`
	Open  float64 `json:"Open"`
	High  float64 `json:"High"`
	Low   float64 `json:"Low"`
	Close float64 `json:"Close"`
}

// TradesSpec is one weekly trading-by-investor-type record from
// /markets/trades_spec. Values are in thousands of yen.
type TradesSpec struct {
	PublishedDate string `json:"PublishedDate"`
	StartDate     string `json:"StartDate"`
	EndDate       string `json:"EndDate"`
	Section       string `json:"Section"`

	TotalSales     *float64 `json:"TotalSales"`
	TotalPurchases *float64 `json:"TotalPurchases"`
	TotalTotal     *float64 `json:"TotalTotal"`
	TotalBalance   *float64 `json:"TotalBalance"`

	ProprietarySales     *float64 `json:"ProprietarySales"`
	ProprietaryPurchases *float64 `json:"ProprietaryPurchases"`
	BrokerageSales       *float64 `json:"BrokerageSales"`
	BrokeragePurchases   *float64 `json:"BrokeragePurchases"`
	IndividualsSales     *float64 `json:"IndividualsSales"`
	IndividualsPurchases *float64 `json:"IndividualsPurchases"`
	ForeignersSales      *float64 `json:"ForeignersSales"`
	ForeignersPurchases  *float64 `json:"ForeignersPurchases"`

	SecuritiesCosSales        *float64 `json:"SecuritiesCosSales"`
	SecuritiesCosPurchases    *float64 `json:"SecuritiesCosPurchases"`
	InvestmentTrustsSales     *float64 `json:"InvestmentTrustsSales"`
	InvestmentTrustsPurchases *float64 `json:"InvestmentTrustsPurchases"`
	BusinessCosSales          *float64 `json:"BusinessCosSales"`
	BusinessCosPurchases      *float64 `json:"BusinessCosPurchases"`
	InsuranceCosSales         *float64 `json:"InsuranceCosSales"`
	InsuranceCosPurchases     *float64 `json:"InsuranceCosPurchases"`
	TrustBanksSales           *float64 `json:"TrustBanksSales"`
	TrustBanksPurchases       *float64 `json:"TrustBanksPurchases"`

	CityBKsRegionalBKsEtcSales          *float64 `json:"CityBKsRegionalBKsEtcSales"`
	CityBKsRegionalBKsEtcPurchases      *float64 `json:"CityBKsRegionalBKsEtcPurchases"`
	OtherFinancialInstitutionsSales     *float64 `json:"OtherFinancialInstitutionsSales"`
	OtherFinancialInstitutionsPurchases *float64 `json:"OtherFinancialInstitutionsPurchases"`
	OtherCosSales                       *float64 `json:"OtherCosSales"`
	OtherCosPurchases                   *float64 `json:"OtherCosPurchases"`
}

// Announcement is one earnings-announcement schedule entry from
// /fins/announcement.
type Announcement struct {
	Date          string `json:"Date"`
	Code          string `json:"Code"`
	CompanyName   string `json:"CompanyName"`
	FiscalYear    string `json:"FiscalYear"`
	SectorName    string `json:"SectorName"`
	FiscalQuarter string `json:"FiscalQuarter"`
	Section       string `json:"Section"`
}
