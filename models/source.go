package models

import "time"

// AvailableSource is a registry entry for a queryable article source.
// Counters are only ever mutated through atomic increments in the store, so
// concurrent runs touching the same source stay correct.
type AvailableSource struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Name     string `json:"name" gorm:"uniqueIndex;not null"`
	IsActive bool   `json:"is_active" gorm:"default:true;index"`

	QueryCount     int64      `json:"query_count"`
	ErrorCount     int64      `json:"error_count"`
	LastQueriedAt  *time.Time `json:"last_queried_at,omitempty"`
	LastFoundCount int        `json:"last_found_count"`
}

// TableName sets the explicit table name for GORM.
func (AvailableSource) TableName() string {
	return "available_sources"
}
