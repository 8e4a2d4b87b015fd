package pgpackages

import (
	"context"
	"time"

	"github.com/BearBump/PackBox/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"
)

const userColumns = `id, name, email, password_hash, created_at, updated_at`

func (s *Storage) InsertUser(ctx context.Context, name, email, passwordHash string) (*models.User, error) {
	now := time.Now().UTC()
	row := s.db.QueryRow(ctx, `
INSERT INTO users (id, name, email, password_hash, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$5)
RETURNING `+userColumns+`
`, uuid.New(), name, email, passwordHash, now)

	u, err := scanUser(row)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, errors.Wrap(models.ErrConflict, "email already registered")
		}
		return nil, err
	}
	return u, nil
}

func (s *Storage) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	row := s.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return u, nil
}

func (s *Storage) FindUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	row := s.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return u, nil
}

func scanUser(row rowScanner) (*models.User, error) {
	var u models.User
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) || isUniqueViolation(err) {
			return nil, err
		}
		return nil, errors.Wrapf(models.ErrStorage, "scan user: %v", err)
	}
	return &u, nil
}
