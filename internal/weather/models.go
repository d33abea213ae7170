package weather

import "strings"

// Reading is the current conditions for a single searched city. It lives for
// one search only and is replaced by the next one.
type Reading struct {
	CityName     string  `json:"cityName"`
	Lat          float64 `json:"lat"`
	Lon          float64 `json:"lon"`
	Description  string  `json:"description"`
	TemperatureC float64 `json:"temperatureC"`
	HumidityPct  float64 `json:"humidityPct"`
	PressureHPa  float64 `json:"pressureHPa"`
	WindSpeedMs  float64 `json:"windSpeedMs"`

	// Provider that produced the reading.
	Provider string `json:"provider,omitempty"`
}

// CacheKey returns the canonical cache key for a city query in a language.
func CacheKey(city, lang string) string {
	return "weather:city:" + lang + ":" + strings.ToLower(strings.TrimSpace(city))
}
