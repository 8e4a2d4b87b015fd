package httpapi

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/BearBump/PackBox/internal/models"
	"github.com/BearBump/PackBox/internal/services/webhooks"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type PackagesService interface {
	Create(ctx context.Context, ownerID uuid.UUID, name, code string) (*models.Package, error)
	List(ctx context.Context, ownerID uuid.UUID) ([]*models.Package, error)
	Get(ctx context.Context, id, ownerID uuid.UUID) (*models.Package, error)
	Rename(ctx context.Context, id, ownerID uuid.UUID, newName string) (*models.Package, error)
	Remove(ctx context.Context, id, ownerID uuid.UUID) error
	ListEvents(ctx context.Context, id, ownerID uuid.UUID, limit, offset int) ([]*models.StatusEvent, error)
}

type UsersService interface {
	Register(ctx context.Context, name, email, password string) (*models.Identity, error)
	Login(ctx context.Context, email, password string) (string, *models.Identity, error)
	Profile(ctx context.Context, id uuid.UUID) (*models.Identity, error)
	ParseToken(tokenString string) (*models.Identity, error)
}

type WebhooksService interface {
	HandleAfterShipUpdate(ctx context.Context, payload webhooks.UpdatePayload) webhooks.Result
}

// LoginLimiter throttles password attempts; nil disables throttling.
type LoginLimiter interface {
	Allow(ctx context.Context, key string) (bool, int64, error)
}

type API struct {
	packages PackagesService
	users    UsersService
	webhooks WebhooksService
	limiter  LoginLimiter
	log      *slog.Logger
}

func New(packages PackagesService, users UsersService, wh WebhooksService, limiter LoginLimiter, log *slog.Logger) *API {
	return &API{packages: packages, users: users, webhooks: wh, limiter: limiter, log: log}
}

// Router wires every route. The webhook route stays public: the provider does
// not authenticate its pushes.
func (a *API) Router() chi.Router {
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ready"}`))
	})

	r.Post("/auth/register", a.handleRegister)
	r.Post("/auth/login", a.handleLogin)
	r.With(a.requireAuth).Get("/auth/me", a.handleMe)

	r.Post("/webhooks/aftership-update", a.handleAfterShipWebhook)

	r.Route("/packages", func(r chi.Router) {
		r.Use(a.requireAuth)
		r.Post("/", a.handleCreatePackage)
		r.Get("/", a.handleListPackages)
		r.Get("/{id}", a.handleGetPackage)
		r.Get("/{id}/events", a.handleListPackageEvents)
		r.Patch("/{id}", a.handleUpdatePackage)
		r.Delete("/{id}", a.handleDeletePackage)
	})

	return r
}
