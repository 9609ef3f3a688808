package repository

import (
	"context"
	"database/sql"
	"time"

	"controlling_pump/internal/models"
)

// EventRepo is the append-only pump event log. Sensor readings are never
// stored here; only commands, transitions and faults.
type EventRepo interface {
	Append(ctx context.Context, e models.PumpEvent) error
	List(ctx context.Context, from, to time.Time, typ string, limit int) ([]models.PumpEvent, error)
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type Repository struct {
	EventRepo EventRepo
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{
		EventRepo: NewEventSQLite(db),
	}
}
