// Package domain models respiratory risk assessment data.
//
// # Data Sources
//
// Place resolution uses the Mapbox Search Box API (suggest + retrieve).
// Weather and air pollution come from the OpenWeather current-weather and
// air-pollution endpoints. All three are consumed through the client
// interfaces declared in this package; the adapters under internal/adapter
// provide live and stub implementations.
//
// # Risk Model
//
// The risk index is a weighted sum of nine normalized factors, six pollutant
// concentrations (µg/m³) and three weather measurements:
//
//	pm2_5 0.25 | o3 0.20 | pm10 0.10 | no2 0.10 | co 0.05 | so2 0.05
//	temp  0.15 | hum 0.05 | wind 0.05
//
// Each normalization maps a raw measurement onto [0,1]. Pollutants scale
// linearly against a reference concentration and saturate at 1 (for example
// pm2_5 saturates at 25 µg/m³; co at 10000 µg/m³ since CO is reported at
// roughly a thousand times the scale of the other pollutants). Temperature is
// zero inside the 15–25 °C comfort band and ramps linearly outside it;
// humidity behaves the same around 30–50 %; wind risk falls linearly from 1
// at calm to 0 at 10 m/s. Missing pollutant keys read as 0 (no measured
// contribution), never an error.
//
// The index is clamped to [0,1] and classified: ≤0.20 Low, ≤0.40 Moderate,
// otherwise High.
//
// # Persistence Keys
//
// Persisted rows are keyed by (latitude, longitude, measured_at) and written
// with conflict-ignore semantics, so duplicate or retried writes for the same
// location and instant are no-ops. The risk row uses the later of the weather
// and pollution timestamps: the index is only meaningful once both sources
// are available.
package domain
