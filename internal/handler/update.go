package handler

import (
	"net/http"
	"strconv"

	"github.com/skyreport/skyreport/internal/ctxkeys"
	"github.com/skyreport/skyreport/internal/service"
)

const maxImageBytes = 10 << 20 // 10MB

// UpdateHandler handles HTTP requests for weather and risk updates.
type UpdateHandler struct {
	service *service.UpdateService
}

func NewUpdateHandler(svc *service.UpdateService) *UpdateHandler {
	return &UpdateHandler{service: svc}
}

type createGeneralRequest struct {
	LocationName string  `json:"locationName"`
	Lat          float64 `json:"lat"`
	Lon          float64 `json:"lon"`
	Temperature  float64 `json:"temperature"`
	Conditions   string  `json:"conditions"`
}

// HandleCreateGeneral handles POST /weather-updates requests.
func (h *UpdateHandler) HandleCreateGeneral(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())

	var req createGeneralRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	update, err := h.service.CreateGeneral(user.ID, service.CreateGeneralInput{
		LocationName: req.LocationName,
		Lat:          req.Lat,
		Lon:          req.Lon,
		Temperature:  req.Temperature,
		Conditions:   req.Conditions,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{"update": update})
}

// HandleCreateRisk handles POST /risk-updates requests. The body is
// multipart form data carrying the report image.
func (h *UpdateHandler) HandleCreateRisk(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, maxImageBytes)
	err := r.ParseMultipartForm(maxImageBytes)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse("invalid multipart form"))
		return
	}

	lat, latErr := strconv.ParseFloat(r.FormValue("lat"), 64)
	lon, lonErr := strconv.ParseFloat(r.FormValue("lon"), 64)
	if latErr != nil || lonErr != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse("lat and lon must be numbers"))
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse("image file is required"))
		return
	}
	defer file.Close()

	update, err := h.service.CreateRisk(user.ID, service.CreateRiskInput{
		LocationName: r.FormValue("locationName"),
		Lat:          lat,
		Lon:          lon,
		DisasterType: r.FormValue("disasterType"),
		Image:        file,
		ImageName:    header.Filename,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{"update": update})
}

// HandleListByAuthor handles GET /all-updates?page= requests, returning
// the caller's own updates of both kinds merged newest first.
func (h *UpdateHandler) HandleListByAuthor(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())

	page := 1
	if raw := r.URL.Query().Get("page"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			writeJSON(w, http.StatusBadRequest, errorResponse("page must be a positive integer"))
			return
		}
		page = parsed
	}

	result, err := h.service.ListByAuthor(user.ID, page)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// HandleListNearby handles GET /nearby-updates?lat=&lon=&radius= requests.
func (h *UpdateHandler) HandleListNearby(w http.ResponseWriter, r *http.Request) {
	lat, latErr := strconv.ParseFloat(r.URL.Query().Get("lat"), 64)
	lon, lonErr := strconv.ParseFloat(r.URL.Query().Get("lon"), 64)
	radius, radiusErr := strconv.ParseFloat(r.URL.Query().Get("radius"), 64)
	if latErr != nil || lonErr != nil || radiusErr != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse("lat, lon and radius must be numbers"))
		return
	}

	updates, err := h.service.ListNearby(lat, lon, radius)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"updates": updates})
}

// HandleListByCountry handles GET /country-updates?country= requests.
func (h *UpdateHandler) HandleListByCountry(w http.ResponseWriter, r *http.Request) {
	updates, err := h.service.ListByCountry(r.URL.Query().Get("country"))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"updates": updates})
}
