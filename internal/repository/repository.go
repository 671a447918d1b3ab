package repository

import (
	"context"
	"database/sql"
	"time"

	"deposition_dashboard/internal/models"
)

type Authorization interface {
	Create(username, hash string) (int, error)
	GetByUsername(username string) (*models.Operator, error)
}

type EventRepo interface {
	Append(ctx context.Context, e models.TelemetryEvent) error
	List(ctx context.Context, from, to time.Time, typ string, limit int) ([]models.TelemetryEvent, error)
	// Prune deletes events that occurred before cutoff and reports how many.
	Prune(ctx context.Context, cutoff time.Time) (int64, error)
}

type Repository struct {
	EventRepo EventRepo
	Auth      Authorization
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{
		EventRepo: NewEventSQLite(db),
		Auth:      NewOperatorRepository(db),
	}
}
