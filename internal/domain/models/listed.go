package models

// ListedCompany describes one listed security as returned by /listed/info.
type ListedCompany struct {
	Date               string `json:"Date"`
	Code               string `json:"Code"`
	CompanyName        string `json:"CompanyName"`
	CompanyNameEnglish string `json:"CompanyNameEnglish"`
	Sector17Code       string `json:"Sector17Code"`
	Sector17CodeName   string `json:"Sector17CodeName"`
	Sector33Code       string `json:"Sector33Code"`
	Sector33CodeName   string `json:"Sector33CodeName"`
	ScaleCategory      string `json:"ScaleCategory"`
	MarketCode         string `json:"MarketCode"`
	MarketCodeName     string `json:"MarketCodeName"`
}

// ListedSection is one sector entry from /listed/sections.
type ListedSection struct {
	SectorCode string `json:"SectorCode"`
	SectorName string `json:"SectorName"`
}

// Sector17 is a row of the 17-sector classification table.
type Sector17 struct {
	Code        string
	Name        string
	NameEnglish string
}

// Sector33 is a row of the 33-sector classification table with its
// mapping into the 17-sector scheme.
type Sector33 struct {
	Code         string
	Name         string
	NameEnglish  string
	Sector17Code string
}

// MarketSegment is a row of the market segment table.
type MarketSegment struct {
	Code        string
	Name        string
	NameEnglish string
}
