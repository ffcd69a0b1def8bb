package store

import (
	"context"
	"errors"
	"fmt"
)

// ErrCheckpointBusy is returned when a reader or writer kept the WAL from
// being fully copied back.
var ErrCheckpointBusy = errors.New("checkpoint incomplete: database busy")

// Checkpoint copies the write-ahead log into the database file and
// truncates it, so a store left on disk is a single cellrev.db. Called
// after vacuum and when the web or MCP server shuts down.
func (s *SQLiteStore) Checkpoint(ctx context.Context) error {
	var busy, logFrames, copied int
	err := s.db.QueryRowContext(ctx, `PRAGMA wal_checkpoint(TRUNCATE)`).Scan(&busy, &logFrames, &copied)
	if err != nil {
		return fmt.Errorf("WAL checkpoint: %w", err)
	}
	if busy != 0 {
		return fmt.Errorf("%w (%d of %d frames copied)", ErrCheckpointBusy, copied, logFrames)
	}
	return nil
}
