package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/skyreport/skyreport/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func weatherUpstream(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
}

func TestHandleGetWeather(t *testing.T) {
	upstream := weatherUpstream(t, http.StatusOK, `{
		"location": {"name": "Oslo", "country": "Norway", "lat": 59.91, "lon": 10.75, "localtime": "2026-03-01 13:00"},
		"current": {
			"temp_c": -2.0, "temp_f": 28.4,
			"condition": {"text": "Snow", "icon": "//cdn.example.com/snow.png"},
			"wind_kph": 10, "wind_mph": 6.2,
			"feelslike_c": -6.0, "feelslike_f": 21.2, "uv": 1
		}
	}`)
	defer upstream.Close()

	h := NewWeatherHandler(service.NewWeatherService("k", upstream.URL))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/weather?location=Oslo", nil)
	h.HandleGetWeather(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	location := body["location"].(map[string]any)
	assert.Equal(t, "Oslo", location["name"])
	temperature := body["temperature"].(map[string]any)
	assert.Equal(t, -2.0, temperature["celsius"])
}

func TestHandleGetWeatherUnknownLocation(t *testing.T) {
	upstream := weatherUpstream(t, http.StatusBadRequest, `{"error":{"code":1006}}`)
	defer upstream.Close()

	h := NewWeatherHandler(service.NewWeatherService("k", upstream.URL))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/weather?location=nope", nil)
	h.HandleGetWeather(rec, req)

	// Upstream 400 is the caller's bad location, not a server fault
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleGetWeatherUpstreamAuthFailure(t *testing.T) {
	upstream := weatherUpstream(t, http.StatusForbidden, "")
	defer upstream.Close()

	h := NewWeatherHandler(service.NewWeatherService("bad", upstream.URL))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/weather?location=Oslo", nil)
	h.HandleGetWeather(rec, req)

	// Key problems stay hidden behind a generic 500
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "key")
}

func TestHandleGetWeatherUpstreamDown(t *testing.T) {
	upstream := weatherUpstream(t, http.StatusBadGateway, "")
	defer upstream.Close()

	h := NewWeatherHandler(service.NewWeatherService("k", upstream.URL))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/weather?location=Oslo", nil)
	h.HandleGetWeather(rec, req)

	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestHandleGetWeatherMissingLocation(t *testing.T) {
	h := NewWeatherHandler(service.NewWeatherService("k", "http://example.invalid"))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/weather", nil)
	h.HandleGetWeather(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
