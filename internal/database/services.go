package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"belleza/internal/models"
)

// SeedServices upserts the configured service catalog and refreshes the
// in-memory cache used by duration lookups.
func (db *DB) SeedServices(ctx context.Context, services []models.Service) error {
	query := `INSERT INTO services (id, name, description, duration_minutes, price, type, sort_order, is_active, created_at, updated_at)
              VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
              ON CONFLICT(id) DO UPDATE SET
                  name = excluded.name,
                  description = excluded.description,
                  duration_minutes = excluded.duration_minutes,
                  price = excluded.price,
                  type = excluded.type,
                  sort_order = excluded.sort_order,
                  is_active = excluded.is_active,
                  updated_at = excluded.updated_at`

	now := time.Now()
	for i := range services {
		svc := &services[i]
		if _, err := db.ExecContext(ctx, query,
			svc.ID,
			svc.Name,
			svc.Description,
			svc.Duration(),
			svc.Price,
			svc.Type,
			svc.SortOrder,
			svc.IsActive,
			now,
			now,
		); err != nil {
			return fmt.Errorf("failed to seed service %d: %w", svc.ID, err)
		}
	}

	db.mu.Lock()
	db.servicesCache = make(map[int64]models.Service, len(services))
	for _, svc := range services {
		db.servicesCache[svc.ID] = svc
	}
	db.mu.Unlock()

	return nil
}

func (db *DB) GetServiceByID(ctx context.Context, id int64) (*models.Service, error) {
	db.mu.RLock()
	cached, ok := db.servicesCache[id]
	db.mu.RUnlock()
	if ok {
		return &cached, nil
	}

	var svc models.Service
	query := `SELECT id, name, description, duration_minutes, price, type, sort_order, is_active, created_at, updated_at
              FROM services WHERE id = ?`
	err := db.QueryRowContext(ctx, query, id).Scan(
		&svc.ID, &svc.Name, &svc.Description, &svc.DurationMinutes, &svc.Price,
		&svc.Type, &svc.SortOrder, &svc.IsActive, &svc.CreatedAt, &svc.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrServiceNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get service: %w", err)
	}

	db.mu.Lock()
	db.servicesCache[svc.ID] = svc
	db.mu.Unlock()

	return &svc, nil
}

func (db *DB) GetActiveServices(ctx context.Context) ([]*models.Service, error) {
	query := `SELECT id, name, description, duration_minutes, price, type, sort_order, is_active, created_at, updated_at
              FROM services WHERE is_active = 1 ORDER BY sort_order, id`
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get active services: %w", err)
	}
	defer rows.Close()

	var services []*models.Service
	for rows.Next() {
		svc := &models.Service{}
		err := rows.Scan(
			&svc.ID, &svc.Name, &svc.Description, &svc.DurationMinutes, &svc.Price,
			&svc.Type, &svc.SortOrder, &svc.IsActive, &svc.CreatedAt, &svc.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan service: %w", err)
		}
		services = append(services, svc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.SliceStable(services, func(i, j int) bool {
		if services[i].SortOrder == services[j].SortOrder {
			return services[i].ID < services[j].ID
		}
		return services[i].SortOrder < services[j].SortOrder
	})
	return services, nil
}

// ServiceDuration resolves a service's duration in minutes. Unknown or
// malformed durations fall back to the default instead of failing the
// caller; the miss is logged for diagnostics.
func (db *DB) ServiceDuration(ctx context.Context, serviceID int64) int {
	svc, err := db.GetServiceByID(ctx, serviceID)
	if err != nil {
		db.logger.Warn().Err(err).Int64("service_id", serviceID).
			Msg("duration lookup failed, using default")
		return models.DefaultDurationMinutes
	}
	return svc.Duration()
}
