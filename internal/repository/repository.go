package repository

import (
	"context"
	"time"

	"tradedesk/internal/models"
)

// HiddenSetStore is the narrow persistence surface the reconciler needs
// for its exclusion set. Implementations must be safe for use from the
// single reconciliation goroutine plus request handlers.
type HiddenSetStore interface {
	ListHiddenIDs(ctx context.Context) ([]string, error)
	AddHiddenID(ctx context.Context, id string, at time.Time) error
}

// Repository is the full persistence surface of the dashboard service.
type Repository interface {
	HiddenSetStore

	InsertPublication(ctx context.Context, item *models.Publication) error
	ListPublications(ctx context.Context, limit int) ([]models.Publication, error)
}
