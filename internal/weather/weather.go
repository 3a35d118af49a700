// Package weather answers "what is the weather in X" against two
// independent upstreams: Open-Meteo (primary, keyless) and OpenWeatherMap
// (fallback, requires an API key). The two use different request shapes;
// callers only see a normalized Reading that names which source answered.
package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const (
	SourceOpenMeteo      = "open-meteo"
	SourceOpenWeatherMap = "openweathermap"

	defaultGeocodingURL = "https://geocoding-api.open-meteo.com/v1/search"
	defaultForecastURL  = "https://api.open-meteo.com/v1/forecast"
	defaultBackupURL    = "https://api.openweathermap.org/data/2.5/weather"
)

// ErrLocationNotFound means geocoding produced zero matches for the name.
var ErrLocationNotFound = errors.New("location not found")

// UnavailableError aggregates the errors of every attempted source.
type UnavailableError struct {
	Errs []error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("weather unavailable: %v", errors.Join(e.Errs...))
}

func (e *UnavailableError) Unwrap() []error { return e.Errs }

type Reading struct {
	Location      string  `json:"location"`
	Date          string  `json:"date"`
	Temperature   float64 `json:"temperature"`
	Description   string  `json:"description"`
	Humidity      float64 `json:"humidity,omitempty"`
	WindSpeed     float64 `json:"windSpeed"`
	Precipitation float64 `json:"precipitation,omitempty"`
	Units         string  `json:"units"`
	Source        string  `json:"source"`
}

type Service struct {
	httpClient   *http.Client
	geocodingURL string
	forecastURL  string
	backupURL    string
	backupAPIKey string
}

// New builds a weather service. backupAPIKey may be empty, in which case
// only the primary source is attempted.
func New(backupAPIKey string) *Service {
	return &Service{
		httpClient:   &http.Client{Timeout: 15 * time.Second},
		geocodingURL: defaultGeocodingURL,
		forecastURL:  defaultForecastURL,
		backupURL:    defaultBackupURL,
		backupAPIKey: backupAPIKey,
	}
}

type attempt struct {
	source string
	fn     func(ctx context.Context, location, date string) (Reading, error)
}

// GetWeather tries each configured source in order and returns the first
// reading. When every attempt fails the errors are aggregated into an
// UnavailableError so the caller sees what went wrong on each path.
func (s *Service) GetWeather(ctx context.Context, location, date string) (Reading, error) {
	if date == "" {
		date = time.Now().UTC().Format("2006-01-02")
	}

	attempts := []attempt{{source: SourceOpenMeteo, fn: s.openMeteo}}
	if s.backupAPIKey != "" {
		attempts = append(attempts, attempt{source: SourceOpenWeatherMap, fn: s.openWeatherMap})
	}

	var errs []error
	for _, a := range attempts {
		reading, err := a.fn(ctx, location, date)
		if err == nil {
			return reading, nil
		}
		log.Printf("weather source %s failed: %v", a.source, err)
		errs = append(errs, fmt.Errorf("%s: %w", a.source, err))
	}
	if s.backupAPIKey == "" {
		errs = append(errs, errors.New("no backup weather provider configured"))
	}
	return Reading{}, &UnavailableError{Errs: errs}
}

type geocodingResponse struct {
	Results []struct {
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
		Name      string  `json:"name"`
	} `json:"results"`
}

type forecastResponse struct {
	Current struct {
		Temperature float64 `json:"temperature_2m"`
		Humidity    float64 `json:"relative_humidity_2m"`
		WeatherCode int     `json:"weather_code"`
		WindSpeed   float64 `json:"wind_speed_10m"`
	} `json:"current"`
	Daily struct {
		PrecipitationSum []float64 `json:"precipitation_sum"`
	} `json:"daily"`
}

func (s *Service) openMeteo(ctx context.Context, location, date string) (Reading, error) {
	var geo geocodingResponse
	err := s.getJSON(ctx, s.geocodingURL, url.Values{
		"name":     {location},
		"count":    {"1"},
		"language": {"en"},
		"format":   {"json"},
	}, &geo)
	if err != nil {
		return Reading{}, fmt.Errorf("geocoding: %w", err)
	}
	if len(geo.Results) == 0 {
		return Reading{}, fmt.Errorf("%w: %q", ErrLocationNotFound, location)
	}
	match := geo.Results[0]

	var forecast forecastResponse
	err = s.getJSON(ctx, s.forecastURL, url.Values{
		"latitude":      {strconv.FormatFloat(match.Latitude, 'f', -1, 64)},
		"longitude":     {strconv.FormatFloat(match.Longitude, 'f', -1, 64)},
		"daily":         {"temperature_2m_max,temperature_2m_min,precipitation_sum,windspeed_10m_max"},
		"current":       {"temperature_2m,relative_humidity_2m,weather_code,wind_speed_10m"},
		"timezone":      {"auto"},
		"forecast_days": {"1"},
	}, &forecast)
	if err != nil {
		return Reading{}, fmt.Errorf("forecast: %w", err)
	}

	var precipitation float64
	if len(forecast.Daily.PrecipitationSum) > 0 {
		precipitation = forecast.Daily.PrecipitationSum[0]
	}
	return Reading{
		Location:      match.Name,
		Date:          date,
		Temperature:   forecast.Current.Temperature,
		Description:   describeWeatherCode(forecast.Current.WeatherCode),
		Humidity:      forecast.Current.Humidity,
		WindSpeed:     forecast.Current.WindSpeed,
		Precipitation: precipitation,
		Units:         "metric",
		Source:        SourceOpenMeteo,
	}, nil
}

type backupResponse struct {
	Name string `json:"name"`
	Main struct {
		Temp     float64 `json:"temp"`
		Humidity float64 `json:"humidity"`
	} `json:"main"`
	Weather []struct {
		Description string `json:"description"`
	} `json:"weather"`
	Wind struct {
		Speed float64 `json:"speed"`
	} `json:"wind"`
}

func (s *Service) openWeatherMap(ctx context.Context, location, date string) (Reading, error) {
	var resp backupResponse
	err := s.getJSON(ctx, s.backupURL, url.Values{
		"q":     {location},
		"appid": {s.backupAPIKey},
		"units": {"metric"},
	}, &resp)
	if err != nil {
		return Reading{}, err
	}

	description := "unknown weather"
	if len(resp.Weather) > 0 {
		description = resp.Weather[0].Description
	}
	return Reading{
		Location:    resp.Name,
		Date:        date,
		Temperature: resp.Main.Temp,
		Description: description,
		Humidity:    resp.Main.Humidity,
		WindSpeed:   resp.Wind.Speed,
		Units:       "metric",
		Source:      SourceOpenWeatherMap,
	}, nil
}

func (s *Service) getJSON(ctx context.Context, rawURL string, params url.Values, target any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL+"?"+params.Encode(), nil)
	if err != nil {
		return err
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// describeWeatherCode maps WMO weather interpretation codes to text.
func describeWeatherCode(code int) string {
	descriptions := map[int]string{
		0:  "clear sky",
		1:  "mainly clear",
		2:  "partly cloudy",
		3:  "overcast",
		45: "fog",
		48: "depositing rime fog",
		51: "light drizzle",
		53: "moderate drizzle",
		55: "dense drizzle",
		56: "light freezing drizzle",
		57: "dense freezing drizzle",
		61: "slight rain",
		63: "moderate rain",
		65: "heavy rain",
		66: "light freezing rain",
		67: "heavy freezing rain",
		71: "slight snow fall",
		73: "moderate snow fall",
		75: "heavy snow fall",
		77: "snow grains",
		80: "slight rain showers",
		81: "moderate rain showers",
		82: "violent rain showers",
		85: "slight snow showers",
		86: "heavy snow showers",
		95: "thunderstorm",
		96: "thunderstorm with slight hail",
		99: "thunderstorm with heavy hail",
	}
	if d, ok := descriptions[code]; ok {
		return d
	}
	return "unknown weather"
}
