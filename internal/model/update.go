package model

import (
	"time"
)

const (
	UpdateTypeGeneral = "general"
	UpdateTypeRisk    = "risk"
)

// GeneralUpdate is a routine weather observation. Immutable after creation.
type GeneralUpdate struct {
	ID           string    `db:"id" json:"id"`
	AuthorID     string    `db:"author_id" json:"authorId"`
	LocationName string    `db:"location_name" json:"locationName"`
	Lat          float64   `db:"lat" json:"lat"`
	Lon          float64   `db:"lon" json:"lon"`
	Temperature  float64   `db:"temperature" json:"temperature"`
	Conditions   string    `db:"conditions" json:"conditions"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
}

// RiskUpdate is a disaster report with an externally hosted image.
type RiskUpdate struct {
	ID           string    `db:"id" json:"id"`
	AuthorID     string    `db:"author_id" json:"authorId"`
	LocationName string    `db:"location_name" json:"locationName"`
	Lat          float64   `db:"lat" json:"lat"`
	Lon          float64   `db:"lon" json:"lon"`
	DisasterType string    `db:"disaster_type" json:"disasterType"`
	ImageURL     string    `db:"image_url" json:"imageUrl"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
}

// Update is the logical union of both update kinds used by the listing
// operations, discriminated by Type. Kind-specific fields are nil for the
// other kind. Distance is populated only by proximity queries.
type Update struct {
	ID           string    `db:"id" json:"id"`
	Type         string    `db:"type" json:"type"`
	LocationName string    `db:"location_name" json:"locationName"`
	Lat          float64   `db:"lat" json:"lat"`
	Lon          float64   `db:"lon" json:"lon"`
	Temperature  *float64  `db:"temperature" json:"temperature,omitempty"`
	Conditions   *string   `db:"conditions" json:"conditions,omitempty"`
	DisasterType *string   `db:"disaster_type" json:"disasterType,omitempty"`
	ImageURL     *string   `db:"image_url" json:"imageUrl,omitempty"`
	AuthorID     string    `db:"author_id" json:"authorId"`
	AuthorName   string    `db:"author_name" json:"authorName"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
	Distance     *float64  `db:"-" json:"distance,omitempty"`
}
