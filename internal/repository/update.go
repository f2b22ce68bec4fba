package repository

import (
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/skyreport/skyreport/internal/model"
)

// UpdateRepository persists the two update kinds and fetches them as the
// tagged Update union with the author's username joined in. Merging,
// ordering and pagination across the kinds happen in the service layer,
// which keeps the SQL portable and the union logic testable in isolation.
type UpdateRepository interface {
	CreateGeneral(u *model.GeneralUpdate) error
	CreateRisk(u *model.RiskUpdate) error
	ByAuthor(authorID string) ([]model.Update, error)
	WithinBox(minLat, maxLat, minLon, maxLon float64) ([]model.Update, error)
	ByLocationName(substr string) ([]model.Update, error)
}

type updateRepository struct {
	db *sqlx.DB
}

func NewUpdateRepository(db *sqlx.DB) UpdateRepository {
	return &updateRepository{db: db}
}

func (r *updateRepository) CreateGeneral(u *model.GeneralUpdate) error {
	query := `INSERT INTO weather_updates (id, author_id, location_name, lat, lon, temperature, conditions, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.db.Exec(query,
		u.ID,
		u.AuthorID,
		u.LocationName,
		u.Lat,
		u.Lon,
		u.Temperature,
		u.Conditions,
		u.CreatedAt,
	)
	return err
}

func (r *updateRepository) CreateRisk(u *model.RiskUpdate) error {
	query := `INSERT INTO risk_updates (id, author_id, location_name, lat, lon, disaster_type, image_url, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.db.Exec(query,
		u.ID,
		u.AuthorID,
		u.LocationName,
		u.Lat,
		u.Lon,
		u.DisasterType,
		u.ImageURL,
		u.CreatedAt,
	)
	return err
}

const generalColumns = `
	wu.id, 'general' AS type, wu.location_name, wu.lat, wu.lon,
	wu.temperature, wu.conditions, NULL AS disaster_type, NULL AS image_url,
	wu.author_id, u.username AS author_name, wu.created_at
	FROM weather_updates wu JOIN users u ON wu.author_id = u.id`

const riskColumns = `
	ru.id, 'risk' AS type, ru.location_name, ru.lat, ru.lon,
	NULL AS temperature, NULL AS conditions, ru.disaster_type, ru.image_url,
	ru.author_id, u.username AS author_name, ru.created_at
	FROM risk_updates ru JOIN users u ON ru.author_id = u.id`

func (r *updateRepository) ByAuthor(authorID string) ([]model.Update, error) {
	var general, risk []model.Update

	err := r.db.Select(&general, `SELECT `+generalColumns+` WHERE wu.author_id = $1`, authorID)
	if err != nil {
		return nil, err
	}

	err = r.db.Select(&risk, `SELECT `+riskColumns+` WHERE ru.author_id = $1`, authorID)
	if err != nil {
		return nil, err
	}

	return append(general, risk...), nil
}

func (r *updateRepository) WithinBox(minLat, maxLat, minLon, maxLon float64) ([]model.Update, error) {
	var general, risk []model.Update

	// minLon > maxLon means the box wraps the antimeridian and the
	// longitude match is the union of the two ranges.
	lonCond := func(col string) string {
		if minLon <= maxLon {
			return col + " BETWEEN $3 AND $4"
		}
		return "(" + col + " >= $3 OR " + col + " <= $4)"
	}

	err := r.db.Select(&general,
		`SELECT `+generalColumns+` WHERE wu.lat BETWEEN $1 AND $2 AND `+lonCond("wu.lon"),
		minLat, maxLat, minLon, maxLon)
	if err != nil {
		return nil, err
	}

	err = r.db.Select(&risk,
		`SELECT `+riskColumns+` WHERE ru.lat BETWEEN $1 AND $2 AND `+lonCond("ru.lon"),
		minLat, maxLat, minLon, maxLon)
	if err != nil {
		return nil, err
	}

	return append(general, risk...), nil
}

// likeEscaper neutralizes LIKE metacharacters so user input matches literally.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func likePattern(substr string) string {
	return "%" + likeEscaper.Replace(substr) + "%"
}

func (r *updateRepository) ByLocationName(substr string) ([]model.Update, error) {
	var general, risk []model.Update

	// LOWER-LIKE works on both SQLite and PostgreSQL; ILIKE is pg-only.
	pattern := likePattern(substr)

	err := r.db.Select(&general,
		`SELECT `+generalColumns+` WHERE LOWER(wu.location_name) LIKE LOWER($1) ESCAPE '\'`, pattern)
	if err != nil {
		return nil, err
	}

	err = r.db.Select(&risk,
		`SELECT `+riskColumns+` WHERE LOWER(ru.location_name) LIKE LOWER($1) ESCAPE '\'`, pattern)
	if err != nil {
		return nil, err
	}

	return append(general, risk...), nil
}
