package service

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/skyreport/skyreport/internal/geo"
	"github.com/skyreport/skyreport/internal/model"
	"github.com/skyreport/skyreport/internal/repository"
	"github.com/skyreport/skyreport/internal/storage"
	"github.com/skyreport/skyreport/internal/validation"
)

const (
	// PageSize is the per-page row count for the by-author listing.
	PageSize = 10
	// NearbyLimit caps proximity and country listings.
	NearbyLimit = 20
)

// UpdateService owns creation and the union listings across both update
// kinds. The two tables are fetched separately and merged here, so the
// ordering and pagination rules live in plain Go instead of SQL.
type UpdateService struct {
	updateRepository repository.UpdateRepository
	imageStorage     storage.Storage
}

func NewUpdateService(updateRepository repository.UpdateRepository, imageStorage storage.Storage) *UpdateService {
	return &UpdateService{
		updateRepository: updateRepository,
		imageStorage:     imageStorage,
	}
}

type CreateGeneralInput struct {
	LocationName string
	Lat          float64
	Lon          float64
	Temperature  float64
	Conditions   string
}

type CreateRiskInput struct {
	LocationName string
	Lat          float64
	Lon          float64
	DisasterType string
	Image        io.Reader
	ImageName    string
}

// UpdatePage is one page of the merged by-author listing.
type UpdatePage struct {
	Updates     []model.Update `json:"updates"`
	TotalPages  int            `json:"totalPages"`
	CurrentPage int            `json:"currentPage"`
}

func (s *UpdateService) CreateGeneral(authorID string, in CreateGeneralInput) (*model.GeneralUpdate, error) {
	in.LocationName = strings.TrimSpace(in.LocationName)
	in.Conditions = strings.TrimSpace(in.Conditions)

	if in.LocationName == "" {
		return nil, validationError(errors.New("location name is required"))
	}
	if in.Conditions == "" {
		return nil, validationError(errors.New("conditions are required"))
	}
	if err := validation.ValidateCoordinates(in.Lat, in.Lon); err != nil {
		return nil, validationError(err)
	}

	update := &model.GeneralUpdate{
		ID:           uuid.New().String(),
		AuthorID:     authorID,
		LocationName: in.LocationName,
		Lat:          in.Lat,
		Lon:          in.Lon,
		Temperature:  in.Temperature,
		Conditions:   in.Conditions,
		CreatedAt:    time.Now().UTC(),
	}

	err := s.updateRepository.CreateGeneral(update)
	if err != nil {
		return nil, fmt.Errorf("failed to create update: %w", err)
	}

	slog.Info("general update created", "id", update.ID, "author_id", authorID)
	return update, nil
}

// CreateRisk uploads the report image first; the row is only inserted
// once the hosted URL exists.
func (s *UpdateService) CreateRisk(authorID string, in CreateRiskInput) (*model.RiskUpdate, error) {
	in.LocationName = strings.TrimSpace(in.LocationName)
	in.DisasterType = strings.TrimSpace(in.DisasterType)

	if in.LocationName == "" {
		return nil, validationError(errors.New("location name is required"))
	}
	if in.DisasterType == "" {
		return nil, validationError(errors.New("disaster type is required"))
	}
	if err := validation.ValidateCoordinates(in.Lat, in.Lon); err != nil {
		return nil, validationError(err)
	}
	if in.Image == nil {
		return nil, validationError(errors.New("image is required"))
	}

	id := uuid.New().String()
	key := "risk-updates/" + id + strings.ToLower(path.Ext(in.ImageName))

	err := s.imageStorage.Save(key, in.Image)
	if err != nil {
		return nil, fmt.Errorf("failed to upload image: %w", err)
	}

	update := &model.RiskUpdate{
		ID:           id,
		AuthorID:     authorID,
		LocationName: in.LocationName,
		Lat:          in.Lat,
		Lon:          in.Lon,
		DisasterType: in.DisasterType,
		ImageURL:     s.imageStorage.URL(key),
		CreatedAt:    time.Now().UTC(),
	}

	err = s.updateRepository.CreateRisk(update)
	if err != nil {
		return nil, fmt.Errorf("failed to create update: %w", err)
	}

	slog.Info("risk update created", "id", update.ID, "author_id", authorID, "disaster_type", update.DisasterType)
	return update, nil
}

// ListByAuthor returns one page of the merged kinds, newest first.
func (s *UpdateService) ListByAuthor(authorID string, page int) (*UpdatePage, error) {
	if page < 1 {
		page = 1
	}

	rows, err := s.updateRepository.ByAuthor(authorID)
	if err != nil {
		return nil, fmt.Errorf("failed to list updates: %w", err)
	}

	sortNewestFirst(rows)
	pageRows, totalPages := paginate(rows, page, PageSize)

	return &UpdatePage{
		Updates:     pageRows,
		TotalPages:  totalPages,
		CurrentPage: page,
	}, nil
}

// ListNearby returns updates within radiusKm of the point, closest first
// (createdAt descending breaks distance ties), capped at NearbyLimit.
func (s *UpdateService) ListNearby(lat, lon, radiusKm float64) ([]model.Update, error) {
	if err := validation.ValidateCoordinates(lat, lon); err != nil {
		return nil, validationError(err)
	}
	if radiusKm <= 0 {
		return nil, validationError(errors.New("radius must be positive"))
	}

	minLat, maxLat, minLon, maxLon := geo.BoundingBox(lat, lon, radiusKm)
	candidates, err := s.updateRepository.WithinBox(minLat, maxLat, minLon, maxLon)
	if err != nil {
		return nil, fmt.Errorf("failed to list updates: %w", err)
	}

	return filterNearby(candidates, lat, lon, radiusKm, NearbyLimit), nil
}

// ListByCountry matches the country name case-insensitively against each
// update's location name. A known approximation: updates carry no country
// column, but geocoded location names embed the country.
func (s *UpdateService) ListByCountry(country string) ([]model.Update, error) {
	country = strings.TrimSpace(country)
	if country == "" {
		return nil, validationError(errors.New("country is required"))
	}

	rows, err := s.updateRepository.ByLocationName(country)
	if err != nil {
		return nil, fmt.Errorf("failed to list updates: %w", err)
	}

	sortNewestFirst(rows)
	if len(rows) > NearbyLimit {
		rows = rows[:NearbyLimit]
	}

	return rows, nil
}

// sortNewestFirst orders by createdAt descending. The sort is stable:
// both kinds can share second-granularity timestamps and the merged order
// must not shuffle between reads.
func sortNewestFirst(rows []model.Update) {
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].CreatedAt.After(rows[j].CreatedAt)
	})
}

// paginate slices one page out of the sorted rows and reports the total
// page count (at least 1 so an empty listing still renders page 1 of 1).
func paginate(rows []model.Update, page, pageSize int) ([]model.Update, int) {
	totalPages := (len(rows) + pageSize - 1) / pageSize
	if totalPages < 1 {
		totalPages = 1
	}

	start := (page - 1) * pageSize
	if start >= len(rows) {
		return []model.Update{}, totalPages
	}

	end := start + pageSize
	if end > len(rows) {
		end = len(rows)
	}

	return rows[start:end], totalPages
}

// filterNearby computes exact haversine distances, keeps rows within the
// radius, sorts by distance ascending with createdAt descending on ties,
// and caps the result.
func filterNearby(rows []model.Update, lat, lon, radiusKm float64, limit int) []model.Update {
	within := make([]model.Update, 0, len(rows))
	for _, row := range rows {
		d := geo.Distance(lat, lon, row.Lat, row.Lon)
		if d <= radiusKm {
			distance := d
			row.Distance = &distance
			within = append(within, row)
		}
	}

	sort.SliceStable(within, func(i, j int) bool {
		if *within[i].Distance != *within[j].Distance {
			return *within[i].Distance < *within[j].Distance
		}
		return within[i].CreatedAt.After(within[j].CreatedAt)
	})

	if len(within) > limit {
		within = within[:limit]
	}

	return within
}
