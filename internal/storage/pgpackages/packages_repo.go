package pgpackages

import (
	"context"
	"encoding/json"
	"time"

	"github.com/BearBump/PackBox/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pkg/errors"
)

const packageColumns = `id, owner_id, name, tracking_code, status, timeline, created_at, updated_at`

func (s *Storage) FindByOwnerAndCode(ctx context.Context, ownerID uuid.UUID, code string) (*models.Package, error) {
	row := s.db.QueryRow(ctx, `
SELECT `+packageColumns+`
FROM packages
WHERE owner_id = $1 AND tracking_code = $2
`, ownerID, code)
	return scanPackage(row)
}

// FindByOwnerAndID embeds the ownership check: a record owned by someone else
// comes back as absent, same as a missing one.
func (s *Storage) FindByOwnerAndID(ctx context.Context, id, ownerID uuid.UUID) (*models.Package, error) {
	row := s.db.QueryRow(ctx, `
SELECT `+packageColumns+`
FROM packages
WHERE id = $1 AND owner_id = $2
`, id, ownerID)
	return scanPackage(row)
}

func (s *Storage) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*models.Package, error) {
	rows, err := s.db.Query(ctx, `
SELECT `+packageColumns+`
FROM packages
WHERE owner_id = $1
ORDER BY updated_at DESC
`, ownerID)
	if err != nil {
		return nil, errors.Wrapf(models.ErrStorage, "select packages: %v", err)
	}
	defer rows.Close()

	out := []*models.Package{}
	for rows.Next() {
		p, err := scanPackageValues(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if rows.Err() != nil {
		return nil, errors.Wrapf(models.ErrStorage, "rows: %v", rows.Err())
	}
	return out, nil
}

func (s *Storage) Insert(ctx context.Context, in models.PackageCreateInput) (*models.Package, error) {
	now := time.Now().UTC()
	id := uuid.New()

	timeline, err := marshalTimeline(in.Timeline)
	if err != nil {
		return nil, errors.Wrapf(models.ErrStorage, "marshal timeline: %v", err)
	}

	row := s.db.QueryRow(ctx, `
INSERT INTO packages (id, owner_id, name, tracking_code, status, timeline, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$7)
RETURNING `+packageColumns+`
`, id, in.OwnerID, in.Name, in.TrackingCode, in.Status, timeline, now)

	p, err := scanPackage(row)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, errors.Wrap(models.ErrConflict, "owner already tracks this code")
		}
		return nil, err
	}
	return p, nil
}

func (s *Storage) RenameByID(ctx context.Context, id uuid.UUID, name string) (*models.Package, error) {
	row := s.db.QueryRow(ctx, `
UPDATE packages
SET name = $2, updated_at = now()
WHERE id = $1
RETURNING `+packageColumns+`
`, id, name)
	p, err := scanPackage(row)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, errors.Wrap(models.ErrNotFound, "package")
	}
	return p, nil
}

func (s *Storage) DeleteByID(ctx context.Context, id uuid.UUID) error {
	if _, err := s.db.Exec(ctx, `DELETE FROM packages WHERE id = $1`, id); err != nil {
		return errors.Wrapf(models.ErrStorage, "delete package: %v", err)
	}
	return nil
}

// UpdateStatusForAllByCode applies a carrier push to every record holding the
// code, across owners, forcing updated_at forward. Returns the affected ids.
func (s *Storage) UpdateStatusForAllByCode(ctx context.Context, code, status string, timeline []models.Checkpoint) ([]uuid.UUID, error) {
	b, err := marshalTimeline(timeline)
	if err != nil {
		return nil, errors.Wrapf(models.ErrStorage, "marshal timeline: %v", err)
	}

	rows, err := s.db.Query(ctx, `
UPDATE packages
SET status = $2, timeline = $3, updated_at = now()
WHERE tracking_code = $1
RETURNING id
`, code, status, b)
	if err != nil {
		return nil, errors.Wrapf(models.ErrStorage, "update by code: %v", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, errors.Wrapf(models.ErrStorage, "scan id: %v", err)
		}
		ids = append(ids, id)
	}
	if rows.Err() != nil {
		return nil, errors.Wrapf(models.ErrStorage, "rows: %v", rows.Err())
	}
	return ids, nil
}

func (s *Storage) CountByCode(ctx context.Context, code string) (int64, error) {
	var n int64
	err := s.db.QueryRow(ctx, `SELECT count(*) FROM packages WHERE tracking_code = $1`, code).Scan(&n)
	if err != nil {
		return 0, errors.Wrapf(models.ErrStorage, "count by code: %v", err)
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPackage(row rowScanner) (*models.Package, error) {
	p, err := scanPackageValues(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return p, nil
}

func scanPackageValues(row rowScanner) (*models.Package, error) {
	var p models.Package
	var timeline []byte
	if err := row.Scan(
		&p.ID, &p.OwnerID, &p.Name, &p.TrackingCode,
		&p.Status, &timeline, &p.CreatedAt, &p.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		if isUniqueViolation(err) {
			return nil, err
		}
		return nil, errors.Wrapf(models.ErrStorage, "scan package: %v", err)
	}
	if len(timeline) > 0 {
		if err := json.Unmarshal(timeline, &p.Timeline); err != nil {
			return nil, errors.Wrapf(models.ErrStorage, "unmarshal timeline: %v", err)
		}
	}
	if p.Timeline == nil {
		p.Timeline = []models.Checkpoint{}
	}
	return &p, nil
}

func marshalTimeline(timeline []models.Checkpoint) ([]byte, error) {
	if timeline == nil {
		timeline = []models.Checkpoint{}
	}
	return json.Marshal(timeline)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}
