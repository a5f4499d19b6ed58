package rollup

import (
	"context"
	"errors"

	"leadflow-workers/internal/models"
)

var (
	// ErrUnknownServer is returned for a server id with no row.
	ErrUnknownServer = errors.New("UNKNOWN_SERVER")
	ErrInvalidInput  = errors.New("INVALID_INPUT")
)

// Store gives the job a transactional view of the assignment log, spend and daily records.
type Store interface {
	InTx(ctx context.Context, fn func(Tx) error) error
	ActiveServers(ctx context.Context) ([]models.Server, error)
}

// Tx is every read and write of one rollup. Implementations run them in a
// single database transaction.
type Tx interface {
	ServerExists(ctx context.Context, serverID string) (bool, error)
	Totals(ctx context.Context, serverID, date string) (Totals, error)
	// Existing locks and returns the stored record for (server, date), if any.
	Existing(ctx context.Context, serverID, date string) (models.DailyRecord, bool, error)
	// Upsert writes rec keyed by (server, date) and returns the stored row. The
	// id of an existing row is kept.
	Upsert(ctx context.Context, rec models.DailyRecord) (models.DailyRecord, error)
}

// Indexer publishes finished records for reporting.
type Indexer interface {
	IndexDailyRecord(ctx context.Context, rec models.DailyRecord) error
}
