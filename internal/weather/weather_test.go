package weather

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func testService(geocodingURL, forecastURL, backupURL, backupKey string) *Service {
	return &Service{
		httpClient:   &http.Client{Timeout: 5 * time.Second},
		geocodingURL: geocodingURL,
		forecastURL:  forecastURL,
		backupURL:    backupURL,
		backupAPIKey: backupKey,
	}
}

func TestGetWeather_PrimarySource(t *testing.T) {
	geo := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("name") != "Hanoi" {
			t.Errorf("unexpected geocoding query: %s", r.URL.RawQuery)
		}
		_, _ = w.Write([]byte(`{"results":[{"latitude":21.03,"longitude":105.85,"name":"Hanoi"}]}`))
	}))
	defer geo.Close()

	forecast := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{
			"current":{"temperature_2m":31.4,"relative_humidity_2m":74,"weather_code":3,"wind_speed_10m":9.7},
			"daily":{"precipitation_sum":[1.2]}
		}`))
	}))
	defer forecast.Close()

	s := testService(geo.URL, forecast.URL, "", "")
	reading, err := s.GetWeather(context.Background(), "Hanoi", "2026-09-01")
	if err != nil {
		t.Fatalf("GetWeather: %v", err)
	}
	if reading.Location != "Hanoi" || reading.Source != SourceOpenMeteo {
		t.Fatalf("unexpected reading: %+v", reading)
	}
	if reading.Description != "overcast" {
		t.Fatalf("weather code 3 should map to overcast, got %q", reading.Description)
	}
	if reading.Temperature != 31.4 || reading.Precipitation != 1.2 {
		t.Fatalf("unexpected values: %+v", reading)
	}
}

func TestGetWeather_LocationNotFoundWithoutBackup(t *testing.T) {
	geo := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"results":[]}`))
	}))
	defer geo.Close()

	var backupCalls int32
	backup := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&backupCalls, 1)
	}))
	defer backup.Close()

	s := testService(geo.URL, geo.URL, backup.URL, "")
	_, err := s.GetWeather(context.Background(), "Nowhereville", "")

	var unavailable *UnavailableError
	if !errors.As(err, &unavailable) {
		t.Fatalf("expected UnavailableError, got %v", err)
	}
	if !errors.Is(err, ErrLocationNotFound) {
		t.Fatalf("primary failure cause lost: %v", err)
	}
	if atomic.LoadInt32(&backupCalls) != 0 {
		t.Fatalf("backup must not be called without a credential")
	}
}

func TestGetWeather_FallsBackToBackup(t *testing.T) {
	geo := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer geo.Close()

	backup := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("appid") != "backup-key" {
			t.Errorf("api key missing from backup request: %s", r.URL.RawQuery)
		}
		_, _ = w.Write([]byte(`{
			"name":"Hanoi",
			"main":{"temp":30.1,"humidity":70},
			"weather":[{"description":"scattered clouds"}],
			"wind":{"speed":4.2}
		}`))
	}))
	defer backup.Close()

	s := testService(geo.URL, geo.URL, backup.URL, "backup-key")
	reading, err := s.GetWeather(context.Background(), "Hanoi", "")
	if err != nil {
		t.Fatalf("GetWeather: %v", err)
	}
	if reading.Source != SourceOpenWeatherMap {
		t.Fatalf("expected backup source, got %q", reading.Source)
	}
	if reading.Description != "scattered clouds" || reading.Temperature != 30.1 {
		t.Fatalf("unexpected reading: %+v", reading)
	}
}

func TestGetWeather_AllSourcesFail(t *testing.T) {
	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer broken.Close()

	s := testService(broken.URL, broken.URL, broken.URL, "backup-key")
	_, err := s.GetWeather(context.Background(), "Hanoi", "")

	var unavailable *UnavailableError
	if !errors.As(err, &unavailable) {
		t.Fatalf("expected UnavailableError, got %v", err)
	}
	if len(unavailable.Errs) != 2 {
		t.Fatalf("expected one error per attempted source, got %v", unavailable.Errs)
	}
}

func TestDescribeWeatherCode_Unknown(t *testing.T) {
	if got := describeWeatherCode(1234); got != "unknown weather" {
		t.Fatalf("unmapped code must not fail, got %q", got)
	}
}
