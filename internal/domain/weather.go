package domain

import "time"

// WeatherSample is one pre-aggregated (1h mean) observation from the weather
// store, keyed by field name and UTC timestamp.
type WeatherSample struct {
	Time  time.Time
	Field string
	Value float64
}

// WeatherStatus tags the outcome of the weather join for one incident.
type WeatherStatus string

const (
	// WeatherOK means samples were fetched for the incident's district.
	WeatherOK WeatherStatus = "ok"
	// WeatherNoData means the district resolved to a site tag but the store
	// returned no samples for the window.
	WeatherNoData WeatherStatus = "sin_datos"
	// WeatherNoTag means the district has no entry in the reference table.
	// This is a valid state, not an error; no store query is issued.
	WeatherNoTag WeatherStatus = "sin_tag"
)

// WeatherMetrics holds the derived per-incident weather features. A nil
// member means the field was not configured or had no samples in the
// window — never zero, never an error.
type WeatherMetrics struct {
	WindMax         *float64 `json:"viento_max"`
	WindMean        *float64 `json:"viento_prom"`
	TemperatureMean *float64 `json:"temp_prom"`
	HumidityMean    *float64 `json:"humedad_prom"`
	// HumidityPre6h is the mean humidity over [start-6h, start), a
	// leading-indicator feature.
	HumidityPre6h *float64 `json:"humedad_prev_6h"`
}
