package domain

// weights for the final risk index. Must sum to 1.0; see TestWeightsSumToOne.
var weights = map[string]float64{
	"pm2_5": 0.25,
	"o3":    0.20,
	"pm10":  0.10,
	"no2":   0.10,
	"co":    0.05,
	"so2":   0.05,
	"temp":  0.15,
	"hum":   0.05,
	"wind":  0.05,
}

// Label thresholds. An index of exactly 0.20 is still Low and exactly 0.40
// is still Moderate.
const (
	lowMax      = 0.20
	moderateMax = 0.40
)

// normTemp maps temperature in °C to [0,1]. The 15–25 °C band is ideal
// (risk 0); risk ramps linearly outside it, saturating 15 degrees past
// either bound.
func normTemp(t float64) float64 {
	switch {
	case t < 15:
		return min((15-t)/15, 1.0)
	case t > 25:
		return min((t-25)/15, 1.0)
	default:
		return 0.0
	}
}

// normHum maps relative humidity in percent to [0,1] around the 30–50 %
// comfort band.
func normHum(h float64) float64 {
	switch {
	case h < 30:
		return min((30-h)/30, 1.0)
	case h > 50:
		return min((h-50)/50, 1.0)
	default:
		return 0.0
	}
}

// normWind maps wind speed in m/s to [0,1]. Calm air disperses pollutants
// poorly, so risk falls linearly with wind and reaches 0 at 10 m/s.
func normWind(v float64) float64 {
	return clamp((10 - v) / 10)
}

func normPM25(c float64) float64 { return min(c/25, 1.0) }
func normPM10(c float64) float64 { return min(c/50, 1.0) }
func normO3(c float64) float64   { return min(c/100, 1.0) }
func normNO2(c float64) float64  { return min(c/200, 1.0) }

// normCO saturates at 10000 µg/m³; CO concentrations run at roughly a
// thousand times the scale of the other pollutants.
func normCO(c float64) float64  { return min(c/10000, 1.0) }
func normSO2(c float64) float64 { return min(c/40, 1.0) }

func clamp(v float64) float64 {
	return max(0.0, min(1.0, v))
}

// component reads a pollutant concentration, defaulting to 0 when the
// provider omitted the key.
func component(m map[string]float64, key string) float64 {
	return m[key]
}

// ComputeRisk derives the respiratory risk index from a weather and
// pollution reading pair. It returns the index, clamped to [0,1], and the
// normalized per-factor scores. Pure and deterministic: no I/O, no hidden
// state.
func ComputeRisk(w WeatherReading, p PollutionReading) (float64, NormalizedFactors) {
	comp := p.Components
	normed := NormalizedFactors{
		"pm2_5": normPM25(component(comp, "pm2_5")),
		"o3":    normO3(component(comp, "o3")),
		"pm10":  normPM10(component(comp, "pm10")),
		"no2":   normNO2(component(comp, "no2")),
		"co":    normCO(component(comp, "co")),
		"so2":   normSO2(component(comp, "so2")),
		"temp":  normTemp(w.TempCelsius),
		"hum":   normHum(float64(w.Humidity)),
		"wind":  normWind(w.WindSpeed),
	}

	var idx float64
	for f, weight := range weights {
		idx += weight * normed[f]
	}
	// Algebraically already in [0,1] since the weights sum to 1, but clamp
	// anyway so float drift can never leak out of range.
	return clamp(idx), normed
}

// LabelFor classifies a risk index.
func LabelFor(index float64) RiskLabel {
	switch {
	case index <= lowMax:
		return LabelLow
	case index <= moderateMax:
		return LabelModerate
	default:
		return LabelHigh
	}
}

// NewRiskReading computes the full derived reading for a weather and
// pollution pair.
func NewRiskReading(w WeatherReading, p PollutionReading) RiskReading {
	idx, normed := ComputeRisk(w, p)
	return RiskReading{Index: idx, Label: LabelFor(idx), Factors: normed}
}
