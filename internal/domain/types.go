package domain

import (
	"encoding/json"
	"time"
)

// Coordinate is a geographic position in decimal degrees.
type Coordinate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Suggestion is a single place candidate returned by the suggest operation.
type Suggestion struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	FullAddress    string `json:"full_address,omitempty"`
	PlaceFormatted string `json:"place_formatted,omitempty"`
}

// Place is a fully resolved place record, including its coordinate.
type Place struct {
	ID             string     `json:"id"`
	Name           string     `json:"name"`
	FullAddress    string     `json:"full_address,omitempty"`
	PlaceFormatted string     `json:"place_formatted,omitempty"`
	Coordinate     Coordinate `json:"coordinate"`
}

// WeatherReading is a normalized view of current weather conditions.
// Produced once per fetch and never mutated.
type WeatherReading struct {
	Timestamp   time.Time       `json:"timestamp"`
	TempCelsius float64         `json:"temp_celsius"`
	Humidity    int             `json:"humidity"`
	WindSpeed   float64         `json:"wind_speed"`
	Raw         json.RawMessage `json:"raw,omitempty"`
}

// PollutionReading is a normalized view of current air pollution data.
// Components maps pollutant names (pm2_5, pm10, o3, no2, so2, co) to
// concentrations in µg/m³.
type PollutionReading struct {
	Timestamp  time.Time          `json:"timestamp"`
	AQI        int                `json:"aqi,omitempty"`
	Components map[string]float64 `json:"components"`
	Raw        json.RawMessage    `json:"raw,omitempty"`
}

// NormalizedFactors maps each weighted factor name to its [0,1] partial score.
type NormalizedFactors map[string]float64

// RiskLabel is the categorical classification of a risk index.
type RiskLabel string

const (
	LabelLow      RiskLabel = "Low"
	LabelModerate RiskLabel = "Moderate"
	LabelHigh     RiskLabel = "High"
)

// RiskReading is the derived risk result for one weather/pollution pair.
// It is stateless: identical inputs always produce identical readings.
type RiskReading struct {
	Index   float64           `json:"risk_index"`
	Label   RiskLabel         `json:"risk_label"`
	Factors NormalizedFactors `json:"norm"`
}

// Assessment is the full result returned to a caller: the resolved place,
// the computed risk, and an echo of both raw readings.
type Assessment struct {
	Place     Place             `json:"place"`
	Location  Coordinate        `json:"location"`
	RiskIndex float64           `json:"risk_index"`
	RiskLabel RiskLabel         `json:"risk_label"`
	Weather   WeatherReading    `json:"weather"`
	Pollution PollutionReading  `json:"pollution"`
	Norm      NormalizedFactors `json:"norm"`
}

// MeasuredAt returns the timestamp the risk row is keyed by: the later of
// the weather and pollution timestamps.
func (a Assessment) MeasuredAt() time.Time {
	if a.Weather.Timestamp.After(a.Pollution.Timestamp) {
		return a.Weather.Timestamp
	}
	return a.Pollution.Timestamp
}
