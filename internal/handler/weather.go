package handler

import (
	"errors"
	"net/http"

	"github.com/skyreport/skyreport/internal/service"
)

// WeatherHandler handles HTTP requests for the weather lookup proxy.
type WeatherHandler struct {
	service *service.WeatherService
}

func NewWeatherHandler(svc *service.WeatherService) *WeatherHandler {
	return &WeatherHandler{service: svc}
}

// HandleGetWeather handles GET /weather?location= requests. An upstream
// auth failure is a misconfigured server key, never the caller's fault,
// so it surfaces as a generic 500.
func (h *WeatherHandler) HandleGetWeather(w http.ResponseWriter, r *http.Request) {
	weather, err := h.service.GetWeather(r.Context(), r.URL.Query().Get("location"))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrLocationNotFound):
			writeJSON(w, http.StatusNotFound, errorResponse("location not found"))
		case errors.Is(err, service.ErrUpstreamAuth):
			writeJSON(w, http.StatusInternalServerError, errorResponse("internal server error"))
		case errors.Is(err, service.ErrUpstreamUnavailable):
			writeJSON(w, http.StatusBadGateway, errorResponse("weather service unavailable"))
		default:
			writeServiceError(w, err)
		}
		return
	}

	writeJSON(w, http.StatusOK, weather)
}
