package models

import "time"

type Service struct {
	ID              int64     `yaml:"id" json:"id"`
	Name            string    `yaml:"name" json:"name"`
	Description     string    `yaml:"description" json:"description"`
	DurationMinutes int       `yaml:"duration_minutes" json:"duration_minutes"`
	Price           float64   `yaml:"price" json:"price"`
	Type            string    `yaml:"type" json:"type"`
	SortOrder       int64     `yaml:"sort_order" json:"sort_order"`
	IsActive        bool      `yaml:"is_active" json:"is_active"`
	CreatedAt       time.Time `yaml:"created_at" json:"created_at"`
	UpdatedAt       time.Time `yaml:"updated_at" json:"updated_at"`
}

// Duration returns the service duration in minutes, falling back to
// DefaultDurationMinutes when the stored value is missing or bad.
func (s *Service) Duration() int {
	if s == nil || s.DurationMinutes <= 0 {
		return DefaultDurationMinutes
	}
	return s.DurationMinutes
}
