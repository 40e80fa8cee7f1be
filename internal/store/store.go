package store

import (
	"context"
	"errors"

	"github.com/envidicy/insights/internal/models"
)

var (
	ErrNotFound = errors.New("no dataset loaded")
	// ErrStale is returned when a newer ingestion has started for the same
	// session since the generation being committed was reserved.
	ErrStale = errors.New("dataset superseded by a newer upload")
)

// Store keeps the current dataset per session.
//
// Ingestion reserves a generation with Begin and finishes with Commit. Only
// the most recently reserved generation may commit, so a slow parse can
// never overwrite the result of a newer upload. Committing nil clears the
// session.
type Store interface {
	Begin(ctx context.Context, session string) (uint64, error)
	Commit(ctx context.Context, session string, gen uint64, ds *models.Dataset) error
	Current(ctx context.Context, session string) (*models.Dataset, error)
}
