package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const providerPayload = `{
	"location": {
		"name": "London",
		"region": "City of London, Greater London",
		"country": "United Kingdom",
		"lat": 51.52,
		"lon": -0.11,
		"localtime": "2026-03-01 12:00"
	},
	"current": {
		"temp_c": 11.0,
		"temp_f": 51.8,
		"condition": {"text": "Partly cloudy", "icon": "//cdn.weatherapi.com/icon.png"},
		"wind_kph": 22.3,
		"wind_mph": 13.9,
		"feelslike_c": 9.5,
		"feelslike_f": 49.1,
		"uv": 2.0
	}
}`

func TestGetWeatherNormalizesResponse(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/current.json", r.URL.Path)
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))
		assert.Equal(t, "London", r.URL.Query().Get("q"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(providerPayload))
	}))
	defer upstream.Close()

	svc := NewWeatherService("test-key", upstream.URL)

	weather, err := svc.GetWeather(context.Background(), "London")
	require.NoError(t, err)

	assert.Equal(t, "London", weather.Location.Name)
	assert.Equal(t, "United Kingdom", weather.Location.Country)
	assert.Equal(t, 11.0, weather.Temperature.Celsius)
	assert.Equal(t, 51.8, weather.Temperature.Fahrenheit)
	assert.Equal(t, 9.5, weather.FeelsLike.Celsius)
	assert.Equal(t, 22.3, weather.WindSpeed.KPH)
	assert.Equal(t, 13.9, weather.WindSpeed.MPH)
	assert.Equal(t, "Partly cloudy", weather.Condition.Text)
	assert.Equal(t, 2.0, weather.UVIndex)
}

func TestGetWeatherUnknownLocation(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"code":1006,"message":"No matching location found."}}`))
	}))
	defer upstream.Close()

	svc := NewWeatherService("test-key", upstream.URL)

	_, err := svc.GetWeather(context.Background(), "Nowheresville-xyz")
	assert.ErrorIs(t, err, ErrLocationNotFound)
}

func TestGetWeatherBadAPIKey(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer upstream.Close()

	svc := NewWeatherService("bad-key", upstream.URL)

	_, err := svc.GetWeather(context.Background(), "London")
	assert.ErrorIs(t, err, ErrUpstreamAuth)
}

func TestGetWeatherUpstreamFailure(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer upstream.Close()

	svc := NewWeatherService("test-key", upstream.URL)

	_, err := svc.GetWeather(context.Background(), "London")
	assert.ErrorIs(t, err, ErrUpstreamUnavailable)
}

func TestGetWeatherUnreachableUpstream(t *testing.T) {
	svc := NewWeatherService("test-key", "http://127.0.0.1:1")

	_, err := svc.GetWeather(context.Background(), "London")
	assert.ErrorIs(t, err, ErrUpstreamUnavailable)
}

func TestGetWeatherRequiresLocation(t *testing.T) {
	svc := NewWeatherService("test-key", "http://example.invalid")

	_, err := svc.GetWeather(context.Background(), "")
	assert.ErrorIs(t, err, ErrValidation)
}
