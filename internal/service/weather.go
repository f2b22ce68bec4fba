package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/skyreport/skyreport/internal/model"
)

var (
	ErrLocationNotFound    = errors.New("location not found")
	ErrUpstreamAuth        = errors.New("weather provider rejected the API key")
	ErrUpstreamUnavailable = errors.New("weather provider unavailable")
)

// WeatherService proxies the third-party current-weather API and
// normalizes its response. A straight passthrough: no caching, no retry.
type WeatherService struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

func NewWeatherService(apiKey, baseURL string) *WeatherService {
	return &WeatherService{
		apiKey:  apiKey,
		baseURL: baseURL,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// providerResponse mirrors the upstream current.json payload.
type providerResponse struct {
	Location struct {
		Name      string  `json:"name"`
		Region    string  `json:"region"`
		Country   string  `json:"country"`
		Lat       float64 `json:"lat"`
		Lon       float64 `json:"lon"`
		Localtime string  `json:"localtime"`
	} `json:"location"`
	Current struct {
		TempC     float64 `json:"temp_c"`
		TempF     float64 `json:"temp_f"`
		Condition struct {
			Text string `json:"text"`
			Icon string `json:"icon"`
		} `json:"condition"`
		WindKPH    float64 `json:"wind_kph"`
		WindMPH    float64 `json:"wind_mph"`
		FeelsLikeC float64 `json:"feelslike_c"`
		FeelsLikeF float64 `json:"feelslike_f"`
		UV         float64 `json:"uv"`
	} `json:"current"`
}

// GetWeather fetches current conditions for a free-form location query.
// Upstream 400 means the location does not resolve; 401/403 means the
// configured key is bad (never surfaced to callers in detail).
func (s *WeatherService) GetWeather(ctx context.Context, location string) (*model.Weather, error) {
	if location == "" {
		return nil, validationError(errors.New("location is required"))
	}

	endpoint := fmt.Sprintf("%s/current.json?key=%s&q=%s",
		s.baseURL, url.QueryEscape(s.apiKey), url.QueryEscape(location))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		slog.Error("weather provider request failed", "error", err)
		return nil, ErrUpstreamUnavailable
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		// fall through to decode
	case resp.StatusCode == http.StatusBadRequest:
		return nil, ErrLocationNotFound
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		slog.Error("weather provider rejected API key", "status", resp.StatusCode)
		return nil, ErrUpstreamAuth
	default:
		slog.Error("weather provider error", "status", resp.StatusCode)
		return nil, ErrUpstreamUnavailable
	}

	var provider providerResponse
	err = json.NewDecoder(resp.Body).Decode(&provider)
	if err != nil {
		slog.Error("weather provider response malformed", "error", err)
		return nil, ErrUpstreamUnavailable
	}

	return normalizeWeather(&provider), nil
}

func normalizeWeather(p *providerResponse) *model.Weather {
	return &model.Weather{
		Location: model.WeatherLocation{
			Name:      p.Location.Name,
			Country:   p.Location.Country,
			Region:    p.Location.Region,
			Lat:       p.Location.Lat,
			Lon:       p.Location.Lon,
			Localtime: p.Location.Localtime,
		},
		Temperature: model.WeatherReading{
			Celsius:    p.Current.TempC,
			Fahrenheit: p.Current.TempF,
		},
		FeelsLike: model.WeatherReading{
			Celsius:    p.Current.FeelsLikeC,
			Fahrenheit: p.Current.FeelsLikeF,
		},
		WindSpeed: model.WeatherWind{
			KPH: p.Current.WindKPH,
			MPH: p.Current.WindMPH,
		},
		Condition: model.WeatherCondition{
			Text: p.Current.Condition.Text,
			Icon: p.Current.Condition.Icon,
		},
		UVIndex: p.Current.UV,
	}
}
