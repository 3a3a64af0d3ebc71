// Package reference holds the static market and crop tables consulted by the
// forecast generators.
package reference

import (
	"strings"

	"github.com/mamadbah2/agriforecast/internal/domain/models"
)

const (
	// DefaultRegion is used when a region is not in the tables.
	DefaultRegion = "Karnataka"
	// DefaultCrop is used when a crop is not in the tables.
	DefaultCrop = "Rice"
)

// EconomicParams are the baseline economics of a crop.
type EconomicParams struct {
	BasePrice        float64
	Volatility       float64
	DemandMultiplier float64
}

// Coordinate is a latitude/longitude pair.
type Coordinate struct {
	Lat float64
	Lng float64
}

// DefaultCoordinate anchors markets whose location is unknown.
var DefaultCoordinate = Coordinate{Lat: 12.9716, Lng: 77.5946}

var regionMarkets = map[string][]models.MarketRecord{
	"karnataka": {
		{Name: "Bangalore APMC", Lat: 12.9716, Lng: 77.5946, Demand: "high"},
		{Name: "Mysore Market", Lat: 12.2958, Lng: 76.6394, Demand: "medium"},
		{Name: "Hubli APMC", Lat: 15.3647, Lng: 75.1240, Demand: "high"},
		{Name: "Belgaum Market", Lat: 15.8497, Lng: 74.4977, Demand: "medium"},
	},
	"maharashtra": {
		{Name: "Vashi APMC", Lat: 19.0771, Lng: 72.9986, Demand: "high"},
		{Name: "Pune Market Yard", Lat: 18.4900, Lng: 73.8700, Demand: "high"},
		{Name: "Nashik APMC", Lat: 19.9975, Lng: 73.7898, Demand: "medium"},
		{Name: "Nagpur Kalamna", Lat: 21.1702, Lng: 79.1300, Demand: "medium"},
	},
	"punjab": {
		{Name: "Ludhiana Mandi", Lat: 30.9010, Lng: 75.8573, Demand: "high"},
		{Name: "Amritsar Mandi", Lat: 31.6340, Lng: 74.8723, Demand: "medium"},
		{Name: "Jalandhar Mandi", Lat: 31.3260, Lng: 75.5762, Demand: "medium"},
	},
	"tamil nadu": {
		{Name: "Koyambedu Market", Lat: 13.0694, Lng: 80.1948, Demand: "high"},
		{Name: "Coimbatore Market", Lat: 11.0168, Lng: 76.9558, Demand: "medium"},
		{Name: "Madurai Market", Lat: 9.9252, Lng: 78.1198, Demand: "low"},
	},
	"andhra pradesh": {
		{Name: "Guntur Mirchi Yard", Lat: 16.3067, Lng: 80.4365, Demand: "high"},
		{Name: "Vijayawada Market", Lat: 16.5062, Lng: 80.6480, Demand: "medium"},
		{Name: "Kurnool Market", Lat: 15.8281, Lng: 78.0373, Demand: "low"},
	},
	"uttar pradesh": {
		{Name: "Lucknow Mandi", Lat: 26.8467, Lng: 80.9462, Demand: "high"},
		{Name: "Kanpur Mandi", Lat: 26.4499, Lng: 80.3319, Demand: "medium"},
		{Name: "Agra Mandi", Lat: 27.1767, Lng: 78.0081, Demand: "medium"},
	},
}

// suggestedMarkets is the shortlist the mock generator recommends per region.
var suggestedMarkets = map[string][]string{
	"karnataka":      {"Bangalore APMC", "Hubli APMC", "Mysore Market"},
	"maharashtra":    {"Vashi APMC", "Pune Market Yard"},
	"punjab":         {"Ludhiana Mandi", "Amritsar Mandi"},
	"tamil nadu":     {"Koyambedu Market", "Coimbatore Market"},
	"andhra pradesh": {"Guntur Mirchi Yard", "Vijayawada Market"},
	"uttar pradesh":  {"Lucknow Mandi", "Kanpur Mandi", "Agra Mandi"},
}

var cropParams = map[string]EconomicParams{
	"rice":      {BasePrice: 28, Volatility: 0.10, DemandMultiplier: 1.2},
	"wheat":     {BasePrice: 24, Volatility: 0.08, DemandMultiplier: 1.1},
	"maize":     {BasePrice: 20, Volatility: 0.12, DemandMultiplier: 1.0},
	"tomato":    {BasePrice: 18, Volatility: 0.35, DemandMultiplier: 0.8},
	"onion":     {BasePrice: 22, Volatility: 0.30, DemandMultiplier: 0.9},
	"potato":    {BasePrice: 15, Volatility: 0.20, DemandMultiplier: 1.0},
	"cotton":    {BasePrice: 62, Volatility: 0.15, DemandMultiplier: 0.6},
	"sugarcane": {BasePrice: 3.5, Volatility: 0.05, DemandMultiplier: 1.3},
	"groundnut": {BasePrice: 55, Volatility: 0.14, DemandMultiplier: 0.9},
}

// knownLocations maps market city names to coordinates for AI-suggested markets.
var knownLocations = map[string]Coordinate{
	"bangalore":  {Lat: 12.9716, Lng: 77.5946},
	"bengaluru":  {Lat: 12.9716, Lng: 77.5946},
	"mysore":     {Lat: 12.2958, Lng: 76.6394},
	"mysuru":     {Lat: 12.2958, Lng: 76.6394},
	"hubli":      {Lat: 15.3647, Lng: 75.1240},
	"belgaum":    {Lat: 15.8497, Lng: 74.4977},
	"mangalore":  {Lat: 12.9141, Lng: 74.8560},
	"mumbai":     {Lat: 19.0760, Lng: 72.8777},
	"vashi":      {Lat: 19.0771, Lng: 72.9986},
	"pune":       {Lat: 18.5204, Lng: 73.8567},
	"nashik":     {Lat: 19.9975, Lng: 73.7898},
	"nagpur":     {Lat: 21.1458, Lng: 79.0882},
	"ludhiana":   {Lat: 30.9010, Lng: 75.8573},
	"amritsar":   {Lat: 31.6340, Lng: 74.8723},
	"jalandhar":  {Lat: 31.3260, Lng: 75.5762},
	"chennai":    {Lat: 13.0827, Lng: 80.2707},
	"koyambedu":  {Lat: 13.0694, Lng: 80.1948},
	"coimbatore": {Lat: 11.0168, Lng: 76.9558},
	"madurai":    {Lat: 9.9252, Lng: 78.1198},
	"guntur":     {Lat: 16.3067, Lng: 80.4365},
	"vijayawada": {Lat: 16.5062, Lng: 80.6480},
	"hyderabad":  {Lat: 17.3850, Lng: 78.4867},
	"delhi":      {Lat: 28.7041, Lng: 77.1025},
	"azadpur":    {Lat: 28.7100, Lng: 77.1700},
	"lucknow":    {Lat: 26.8467, Lng: 80.9462},
	"kanpur":     {Lat: 26.4499, Lng: 80.3319},
	"agra":       {Lat: 27.1767, Lng: 78.0081},
}

func key(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// MarketsFor returns the markets of region, or the default region's markets.
// The returned slice is a copy.
func MarketsFor(region string) []models.MarketRecord {
	markets, ok := regionMarkets[key(region)]
	if !ok {
		markets = regionMarkets[key(DefaultRegion)]
	}
	return append([]models.MarketRecord(nil), markets...)
}

// SuggestedMarketsFor returns the mock shortlist for region.
func SuggestedMarketsFor(region string) []string {
	names, ok := suggestedMarkets[key(region)]
	if !ok {
		names = suggestedMarkets[key(DefaultRegion)]
	}
	return append([]string(nil), names...)
}

// Economics returns the parameters of crop, or the default crop's.
func Economics(crop string) EconomicParams {
	if params, ok := cropParams[key(crop)]; ok {
		return params
	}
	return cropParams[key(DefaultCrop)]
}

// Locate finds coordinates for a market name. An exact city match wins,
// otherwise the first known city contained in the name is used.
func Locate(name string) (Coordinate, bool) {
	k := key(name)
	if c, ok := knownLocations[k]; ok {
		return c, true
	}
	for _, word := range strings.FieldsFunc(k, func(r rune) bool {
		return r == ' ' || r == ',' || r == '-' || r == '(' || r == ')'
	}) {
		if c, ok := knownLocations[word]; ok {
			return c, true
		}
	}
	return Coordinate{}, false
}
