package webhooks

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/BearBump/PackBox/internal/broker/messages"
	"github.com/BearBump/PackBox/internal/cache"
	"github.com/BearBump/PackBox/internal/models"
	"github.com/BearBump/PackBox/internal/services/packages"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// UpdatePayload is the AfterShip push body. The interesting part sits under
// "msg"; pushes without it are expected provider noise.
type UpdatePayload struct {
	Msg *TrackingMsg `json:"msg"`
}

type TrackingMsg struct {
	TrackingNumber string              `json:"tracking_number"`
	Tag            string              `json:"tag"`
	Checkpoints    []models.Checkpoint `json:"checkpoints"`
}

type Result struct {
	Success bool `json:"success"`
	Updated int  `json:"updated"`
}

type Repository interface {
	UpdateStatusForAllByCode(ctx context.Context, code, status string, timeline []models.Checkpoint) ([]uuid.UUID, error)
	InsertStatusEvents(ctx context.Context, packageIDs []uuid.UUID, code, status string, occurredAt time.Time) error
}

type Producer interface {
	Publish(ctx context.Context, topic string, key, value []byte) error
}

// Service applies carrier pushes to every local record sharing the tracking
// code. It is terminal for errors: the provider must always see a 200, or its
// retries amplify an internal problem.
type Service struct {
	repo     Repository
	cache    cache.BytesCache
	producer Producer
	topic    string
	log      *slog.Logger
}

func New(repo Repository, c cache.BytesCache, producer Producer, topic string, log *slog.Logger) *Service {
	return &Service{repo: repo, cache: c, producer: producer, topic: topic, log: log}
}

func (s *Service) HandleAfterShipUpdate(ctx context.Context, payload UpdatePayload) Result {
	if payload.Msg == nil {
		s.log.Warn("webhook received without msg envelope")
		return Result{Success: true, Updated: 0}
	}

	code := payload.Msg.TrackingNumber
	status := payload.Msg.Tag
	timeline := payload.Msg.Checkpoints
	if timeline == nil {
		timeline = []models.Checkpoint{}
	}

	s.log.Info("applying carrier push", "code", code, "status", status)

	ids, err := s.repo.UpdateStatusForAllByCode(ctx, code, status, timeline)
	if err != nil {
		s.log.Error("webhook fan-out update failed", "code", code, "error", err)
		return Result{Success: false}
	}

	s.invalidate(ctx, ids)
	s.publish(ctx, code, status, ids)

	s.log.Info("carrier push applied", "code", code, "updated", len(ids))
	return Result{Success: true, Updated: len(ids)}
}

// RecordStatusEvents is the broker-consumer side: it appends one history row
// per package the fan-out touched.
func (s *Service) RecordStatusEvents(ctx context.Context, msg messages.PackageStatusUpdated) error {
	if msg.TrackingCode == "" {
		return errors.New("tracking_code is required")
	}
	if msg.OccurredAt.IsZero() {
		msg.OccurredAt = time.Now().UTC()
	}
	return s.repo.InsertStatusEvents(ctx, msg.PackageIDs, msg.TrackingCode, msg.Status, msg.OccurredAt)
}

func (s *Service) invalidate(ctx context.Context, ids []uuid.UUID) {
	if s.cache == nil || len(ids) == 0 {
		return
	}
	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, packages.CacheKey(id))
	}
	if err := s.cache.Del(ctx, keys...); err != nil {
		s.log.Warn("cache invalidation failed", "keys", len(keys), "error", err)
	}
}

func (s *Service) publish(ctx context.Context, code, status string, ids []uuid.UUID) {
	if s.producer == nil || len(ids) == 0 {
		return
	}
	msg := messages.PackageStatusUpdated{
		TrackingCode: code,
		Status:       status,
		PackageIDs:   ids,
		Updated:      len(ids),
		OccurredAt:   time.Now().UTC(),
	}
	b, err := json.Marshal(msg)
	if err != nil {
		s.log.Warn("marshal status event failed", "code", code, "error", err)
		return
	}
	if err := s.producer.Publish(ctx, s.topic, []byte(code), b); err != nil {
		s.log.Warn("publish status event failed", "code", code, "error", err)
	}
}
