package jquants

import "KabuFeed/internal/domain/models"

// Market section names accepted by the trades_spec endpoint.
const (
	SectionTSE1st      = "TSE1st"
	SectionTSE2nd      = "TSE2nd"
	SectionTSEMothers  = "TSEMothers"
	SectionTSEJASDAQ   = "TSEJASDAQ"
	SectionTSEPrime    = "TSEPrime"
	SectionTSEStandard = "TSEStandard"
	SectionTSEGrowth   = "TSEGrowth"
	SectionTokyoNagoya = "TokyoNagoya"
)

// Sector17Table is the static 17-sector classification published by JPX.
// The upstream API only returns codes; names are joined locally.
var Sector17Table = []models.Sector17{
	{Code: "1", Name: "食品", NameEnglish: "FOODS"},
	{Code: "2", Name: "エネルギー資源", NameEnglish: "ENERGY RESOURCES"},
	{Code: "3", Name: "建設・資材", NameEnglish: "CONSTRUCTION & MATERIALS"},
	{Code: "4", Name: "素材・化学", NameEnglish: "RAW MATERIALS & CHEMICALS"},
	{Code: "5", Name: "医薬品", NameEnglish: "PHARMACEUTICAL"},
	{Code: "6", Name: "自動車・輸送機", NameEnglish: "AUTOMOBILES & TRANSPORTATION EQUIPMEN"},
	{Code: "7", Name: "鉄鋼・非鉄", NameEnglish: "STEEL & NONFERROUS METALS"},
	{Code: "8", Name: "機械", NameEnglish: "MACHINERY"},
	{Code: "9", Name: "電機・精密", NameEnglish: "ELECTRIC APPLIANCES & PRECISION INSTRUMENTS"},
	{Code: "10", Name: "情報通信・サービスその他", NameEnglish: "IT & SERVICES, OTHERS "},
	{Code: "11", Name: "電気・ガス", NameEnglish: "ELECTRIC POWER & GAS"},
	{Code: "12", Name: "運輸・物流", NameEnglish: "TRANSPORTATION & LOGISTICS"},
	{Code: "13", Name: "商社・卸売", NameEnglish: "COMMERCIAL & WHOLESALE TRADE"},
	{Code: "14", Name: "小売", NameEnglish: "RETAIL TRADE"},
	{Code: "15", Name: "銀行", NameEnglish: "BANKS"},
	{Code: "16", Name: "金融（除く銀行）", NameEnglish: "FINANCIALS (EX BANKS) "},
	{Code: "17", Name: "不動産", NameEnglish: "REAL ESTATE"},
	{Code: "99", Name: "その他", NameEnglish: "OTHER"},
}

// Sector33Table is the static 33-sector classification with its mapping
// into the 17-sector scheme.
var Sector33Table = []models.Sector33{
	{Code: "0050", Name: "水産・農林業", NameEnglish: "Fishery, Agriculture & Forestry", Sector17Code: "1"},
	{Code: "1050", Name: "鉱業", NameEnglish: "Mining", Sector17Code: "2"},
	{Code: "2050", Name: "建設業", NameEnglish: "Construction", Sector17Code: "3"},
	{Code: "3050", Name: "食料品", NameEnglish: "Foods", Sector17Code: "1"},
	{Code: "3100", Name: "繊維製品", NameEnglish: "Textiles & Apparels", Sector17Code: "4"},
	{Code: "3150", Name: "パルプ・紙", NameEnglish: "Pulp & Paper", Sector17Code: "4"},
	{Code: "3200", Name: "化学", NameEnglish: "Chemicals", Sector17Code: "4"},
	{Code: "3250", Name: "医薬品", NameEnglish: "Pharmaceutical", Sector17Code: "5"},
	{Code: "3300", Name: "石油･石炭製品", NameEnglish: "Oil & Coal Products", Sector17Code: "2"},
	{Code: "3350", Name: "ゴム製品", NameEnglish: "Rubber Products", Sector17Code: "6"},
	{Code: "3400", Name: "ガラス･土石製品", NameEnglish: "Glass & Ceramics Products", Sector17Code: "3"},
	{Code: "3450", Name: "鉄鋼", NameEnglish: "Iron & Steel", Sector17Code: "7"},
	{Code: "3500", Name: "非鉄金属", NameEnglish: "Nonferrous Metals", Sector17Code: "7"},
	{Code: "3550", Name: "金属製品", NameEnglish: "Metal Products", Sector17Code: "3"},
	{Code: "3600", Name: "機械", NameEnglish: "Machinery", Sector17Code: "8"},
	{Code: "3650", Name: "電気機器", NameEnglish: "Electric Appliances", Sector17Code: "9"},
	{Code: "3700", Name: "輸送用機器", NameEnglish: "Transportation Equipment", Sector17Code: "6"},
	{Code: "3750", Name: "精密機器", NameEnglish: "Precision Instruments", Sector17Code: "9"},
	{Code: "3800", Name: "その他製品", NameEnglish: "Other Products", Sector17Code: "10"},
	{Code: "4050", Name: "電気･ガス業", NameEnglish: "Electric Power & Gas", Sector17Code: "11"},
	{Code: "5050", Name: "陸運業", NameEnglish: "Land Transportation", Sector17Code: "12"},
	{Code: "5100", Name: "海運業", NameEnglish: "Marine Transportation", Sector17Code: "12"},
	{Code: "5150", Name: "空運業", NameEnglish: "Air Transportation", Sector17Code: "12"},
	{Code: "5200", Name: "倉庫･運輸関連業", NameEnglish: "Warehousing & Harbor Transportation Services", Sector17Code: "12"},
	{Code: "5250", Name: "情報･通信業", NameEnglish: "Information & Communication", Sector17Code: "10"},
	{Code: "6050", Name: "卸売業", NameEnglish: "Wholesale Trade", Sector17Code: "13"},
	{Code: "6100", Name: "小売業", NameEnglish: "Retail Trade", Sector17Code: "14"},
	{Code: "7050", Name: "銀行業", NameEnglish: "Banks", Sector17Code: "15"},
	{Code: "7100", Name: "証券､商品先物取引業", NameEnglish: "Securities & Commodity Futures", Sector17Code: "16"},
	{Code: "7150", Name: "保険業", NameEnglish: "Insurance", Sector17Code: "16"},
	{Code: "7200", Name: "その他金融業", NameEnglish: "Other Financing Business", Sector17Code: "16"},
	{Code: "8050", Name: "不動産業", NameEnglish: "Real Estate", Sector17Code: "17"},
	{Code: "9050", Name: "サービス業", NameEnglish: "Services", Sector17Code: "10"},
	{Code: "9999", Name: "その他", NameEnglish: "Other", Sector17Code: "99"},
}

// MarketSegmentTable is the static market segment table covering both the
// pre and post April 2022 segment reorganization.
var MarketSegmentTable = []models.MarketSegment{
	{Code: "101", Name: "東証一部", NameEnglish: "1st Section"},
	{Code: "102", Name: "東証二部", NameEnglish: "2nd Section"},
	{Code: "104", Name: "マザーズ", NameEnglish: "Mothers"},
	{Code: "105", Name: "TOKYO PRO MARKET", NameEnglish: "TOKYO PRO MARKET"},
	{Code: "106", Name: "JASDAQ スタンダード", NameEnglish: "JASDAQ Standard"},
	{Code: "107", Name: "JASDAQ グロース", NameEnglish: "JASDAQ Growth"},
	{Code: "109", Name: "その他", NameEnglish: "Others"},
	{Code: "111", Name: "プライム", NameEnglish: "Prime"},
	{Code: "112", Name: "スタンダード", NameEnglish: "Standard"},
	{Code: "113", Name: "グロース", NameEnglish: "Growth"},
}

var (
	sector17ByCode      map[string]models.Sector17
	sector33ByCode      map[string]models.Sector33
	marketSegmentByCode map[string]models.MarketSegment
)

func init() {
	sector17ByCode = make(map[string]models.Sector17, len(Sector17Table))
	for _, s := range Sector17Table {
		sector17ByCode[s.Code] = s
	}
	sector33ByCode = make(map[string]models.Sector33, len(Sector33Table))
	for _, s := range Sector33Table {
		sector33ByCode[s.Code] = s
	}
	marketSegmentByCode = make(map[string]models.MarketSegment, len(MarketSegmentTable))
	for _, m := range MarketSegmentTable {
		marketSegmentByCode[m.Code] = m
	}
}

// Sector17ByCode looks up a 17-sector row by code.
func Sector17ByCode(code string) (models.Sector17, bool) {
	s, ok := sector17ByCode[code]
	return s, ok
}

// Sector33ByCode looks up a 33-sector row by code.
func Sector33ByCode(code string) (models.Sector33, bool) {
	s, ok := sector33ByCode[code]
	return s, ok
}

// MarketSegmentByCode looks up a market segment row by code.
func MarketSegmentByCode(code string) (models.MarketSegment, bool) {
	m, ok := marketSegmentByCode[code]
	return m, ok
}
