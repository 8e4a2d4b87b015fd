package packages

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/BearBump/PackBox/internal/cache"
	"github.com/BearBump/PackBox/internal/integrations/tracking"
	"github.com/BearBump/PackBox/internal/models"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

type Repository interface {
	FindByOwnerAndCode(ctx context.Context, ownerID uuid.UUID, code string) (*models.Package, error)
	FindByOwnerAndID(ctx context.Context, id, ownerID uuid.UUID) (*models.Package, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*models.Package, error)
	Insert(ctx context.Context, in models.PackageCreateInput) (*models.Package, error)
	RenameByID(ctx context.Context, id uuid.UUID, name string) (*models.Package, error)
	DeleteByID(ctx context.Context, id uuid.UUID) error
	CountByCode(ctx context.Context, code string) (int64, error)
	ListStatusEvents(ctx context.Context, packageID uuid.UUID, limit, offset int) ([]*models.StatusEvent, error)
}

// Service reconciles local package records with the remote tracking
// subscription. It owns the create/remove ordering: never subscribe for a
// request that is already known to be a duplicate, never let remote cleanup
// block a local delete.
type Service struct {
	repo     Repository
	provider tracking.Provider
	cache    cache.BytesCache
	cacheTTL time.Duration
	log      *slog.Logger
}

func New(repo Repository, provider tracking.Provider, c cache.BytesCache, cacheTTL time.Duration, log *slog.Logger) *Service {
	return &Service{repo: repo, provider: provider, cache: c, cacheTTL: cacheTTL, log: log}
}

func (s *Service) Create(ctx context.Context, ownerID uuid.UUID, name, code string) (*models.Package, error) {
	if name == "" {
		return nil, errors.New("name is required")
	}
	if code == "" {
		return nil, errors.New("trackingCode is required")
	}

	// Pre-check before touching the provider so rejected duplicates never
	// leak a remote subscription.
	existing, err := s.repo.FindByOwnerAndCode(ctx, ownerID, code)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, errors.Wrap(models.ErrConflict, "already tracking this code")
	}

	data, err := s.provider.CreateTracking(ctx, code)
	if err != nil {
		return nil, err
	}

	// A concurrent create may have won the race since the pre-check; the
	// unique constraint turns that into ErrConflict here. The subscription
	// created above is orphaned then, which is the accepted failure mode.
	p, err := s.repo.Insert(ctx, models.PackageCreateInput{
		OwnerID:      ownerID,
		Name:         name,
		TrackingCode: code,
		Status:       data.Status,
		Timeline:     data.Timeline,
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) List(ctx context.Context, ownerID uuid.UUID) ([]*models.Package, error) {
	return s.repo.ListByOwner(ctx, ownerID)
}

func (s *Service) Get(ctx context.Context, id, ownerID uuid.UUID) (*models.Package, error) {
	if s.cache != nil && s.cacheTTL > 0 {
		if b, ok, err := s.cache.Get(ctx, CacheKey(id)); err == nil && ok {
			var p models.Package
			if json.Unmarshal(b, &p) == nil && p.OwnerID == ownerID {
				return &p, nil
			}
		}
	}

	p, err := s.repo.FindByOwnerAndID(ctx, id, ownerID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, errors.Wrap(models.ErrNotFound, "package")
	}

	if s.cache != nil && s.cacheTTL > 0 {
		b, _ := json.Marshal(p)
		_ = s.cache.Set(ctx, CacheKey(p.ID), b, s.cacheTTL)
	}
	return p, nil
}

func (s *Service) Rename(ctx context.Context, id, ownerID uuid.UUID, newName string) (*models.Package, error) {
	p, err := s.repo.FindByOwnerAndID(ctx, id, ownerID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, errors.Wrap(models.ErrNotFound, "package")
	}

	// Empty name is an idempotent no-op, not an error.
	if newName == "" {
		return p, nil
	}

	renamed, err := s.repo.RenameByID(ctx, id, newName)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, id)
	return renamed, nil
}

func (s *Service) Remove(ctx context.Context, id, ownerID uuid.UUID) error {
	p, err := s.repo.FindByOwnerAndID(ctx, id, ownerID)
	if err != nil {
		return err
	}
	if p == nil {
		return errors.Wrap(models.ErrNotFound, "package")
	}

	// The remote subscription is shared by every record holding the code,
	// across owners. Unsubscribe only when this record is the last one.
	last := true
	if n, err := s.repo.CountByCode(ctx, p.TrackingCode); err != nil {
		s.log.Warn("count by code failed, skipping remote unsubscribe", "code", p.TrackingCode, "error", err)
		last = false
	} else if n > 1 {
		last = false
	}

	if last {
		// Best-effort: a failed remote delete leaks the subscription but
		// must never block the local delete.
		if err := s.provider.DeleteTracking(ctx, p.TrackingCode); err != nil {
			s.log.Warn("failed to delete remote tracking", "code", p.TrackingCode, "error", err)
		}
	}

	if err := s.repo.DeleteByID(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx, id)
	return nil
}

// ListEvents returns the recorded status history of an owned package.
func (s *Service) ListEvents(ctx context.Context, id, ownerID uuid.UUID, limit, offset int) ([]*models.StatusEvent, error) {
	p, err := s.repo.FindByOwnerAndID(ctx, id, ownerID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, errors.Wrap(models.ErrNotFound, "package")
	}
	return s.repo.ListStatusEvents(ctx, p.ID, limit, offset)
}

func (s *Service) invalidate(ctx context.Context, id uuid.UUID) {
	if s.cache == nil || s.cacheTTL <= 0 {
		return
	}
	if err := s.cache.Del(ctx, CacheKey(id)); err != nil {
		s.log.Warn("cache invalidation failed", "id", id, "error", err)
	}
}

// CacheKey is shared with the webhook path, which invalidates entries after a
// fan-out update.
func CacheKey(id uuid.UUID) string {
	return fmt.Sprintf("package:%s:current", id)
}
