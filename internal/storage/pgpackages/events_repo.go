package pgpackages

import (
	"context"
	"time"

	"github.com/BearBump/PackBox/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"
)

// InsertStatusEvents records one status transition per affected package.
// Written by the broker consumer, not the webhook path itself.
func (s *Storage) InsertStatusEvents(ctx context.Context, packageIDs []uuid.UUID, code, status string, occurredAt time.Time) error {
	if len(packageIDs) == 0 {
		return nil
	}
	now := time.Now().UTC()

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return errors.Wrapf(models.ErrStorage, "begin tx: %v", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, id := range packageIDs {
		_, err := tx.Exec(ctx, `
INSERT INTO package_status_events (package_id, tracking_code, status, occurred_at, created_at)
VALUES ($1,$2,$3,$4,$5)
`, id, code, status, occurredAt.UTC(), now)
		if err != nil {
			return errors.Wrapf(models.ErrStorage, "insert status event: %v", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return errors.Wrapf(models.ErrStorage, "commit tx: %v", err)
	}
	return nil
}

func (s *Storage) ListStatusEvents(ctx context.Context, packageID uuid.UUID, limit, offset int) ([]*models.StatusEvent, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := s.db.Query(ctx, `
SELECT id, package_id, tracking_code, status, occurred_at, created_at
FROM package_status_events
WHERE package_id = $1
ORDER BY occurred_at DESC, id DESC
LIMIT $2 OFFSET $3
`, packageID, limit, offset)
	if err != nil {
		return nil, errors.Wrapf(models.ErrStorage, "select status events: %v", err)
	}
	defer rows.Close()

	out := []*models.StatusEvent{}
	for rows.Next() {
		var e models.StatusEvent
		if err := rows.Scan(&e.ID, &e.PackageID, &e.TrackingCode, &e.Status, &e.OccurredAt, &e.CreatedAt); err != nil {
			return nil, errors.Wrapf(models.ErrStorage, "scan status event: %v", err)
		}
		out = append(out, &e)
	}
	if rows.Err() != nil {
		return nil, errors.Wrapf(models.ErrStorage, "rows: %v", rows.Err())
	}
	return out, nil
}
