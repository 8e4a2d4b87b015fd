package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/BearBump/PackBox/internal/models"
	"github.com/BearBump/PackBox/internal/services/webhooks"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

type fakePackages struct {
	pkg       *models.Package
	events    []*models.StatusEvent
	err       error
	lastLimit int
	removed   []uuid.UUID
}

func (f *fakePackages) Create(ctx context.Context, ownerID uuid.UUID, name, code string) (*models.Package, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.pkg, nil
}
func (f *fakePackages) List(ctx context.Context, ownerID uuid.UUID) ([]*models.Package, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []*models.Package{f.pkg}, nil
}
func (f *fakePackages) Get(ctx context.Context, id, ownerID uuid.UUID) (*models.Package, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.pkg, nil
}
func (f *fakePackages) Rename(ctx context.Context, id, ownerID uuid.UUID, newName string) (*models.Package, error) {
	if f.err != nil {
		return nil, f.err
	}
	p := *f.pkg
	if newName != "" {
		p.Name = newName
	}
	return &p, nil
}
func (f *fakePackages) Remove(ctx context.Context, id, ownerID uuid.UUID) error {
	if f.err != nil {
		return f.err
	}
	f.removed = append(f.removed, id)
	return nil
}
func (f *fakePackages) ListEvents(ctx context.Context, id, ownerID uuid.UUID, limit, offset int) ([]*models.StatusEvent, error) {
	f.lastLimit = limit
	if f.err != nil {
		return nil, f.err
	}
	return f.events, nil
}

type fakeUsers struct {
	identity *models.Identity
	token    string
	loginErr error
}

func (f *fakeUsers) Register(ctx context.Context, name, email, password string) (*models.Identity, error) {
	return f.identity, nil
}
func (f *fakeUsers) Login(ctx context.Context, email, password string) (string, *models.Identity, error) {
	if f.loginErr != nil {
		return "", nil, f.loginErr
	}
	return f.token, f.identity, nil
}
func (f *fakeUsers) Profile(ctx context.Context, id uuid.UUID) (*models.Identity, error) {
	if id != f.identity.ID {
		return nil, errors.Wrap(models.ErrNotFound, "user not found")
	}
	return f.identity, nil
}
func (f *fakeUsers) ParseToken(tokenString string) (*models.Identity, error) {
	if tokenString != f.token {
		return nil, errors.Wrap(models.ErrUnauthorized, "bad token")
	}
	return f.identity, nil
}

type fakeWebhooks struct {
	got    *webhooks.UpdatePayload
	result webhooks.Result
}

func (f *fakeWebhooks) HandleAfterShipUpdate(ctx context.Context, payload webhooks.UpdatePayload) webhooks.Result {
	f.got = &payload
	return f.result
}

type fakeLimiter struct {
	allowed bool
	count   int64
	err     error
}

func (f *fakeLimiter) Allow(ctx context.Context, key string) (bool, int64, error) {
	return f.allowed, f.count, f.err
}

func discardLogger() *slog.Logger { return slog.New(slog.DiscardHandler) }

func testPackage(ownerID uuid.UUID) *models.Package {
	now := time.Now().UTC()
	return &models.Package{
		ID:           uuid.New(),
		OwnerID:      ownerID,
		Name:         "books",
		TrackingCode: "RR123456789CN",
		Status:       "InTransit",
		Timeline:     []models.Checkpoint{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

type env struct {
	packages *fakePackages
	users    *fakeUsers
	webhooks *fakeWebhooks
	limiter  *fakeLimiter
	srv      *httptest.Server
}

func newEnv(t *testing.T) *env {
	t.Helper()
	ownerID := uuid.New()
	e := &env{
		packages: &fakePackages{pkg: testPackage(ownerID)},
		users:    &fakeUsers{identity: &models.Identity{ID: ownerID, Email: "a@b.c", Name: "A"}, token: "good-token"},
		webhooks: &fakeWebhooks{result: webhooks.Result{Success: true, Updated: 2}},
		limiter:  &fakeLimiter{allowed: true},
	}
	api := New(e.packages, e.users, e.webhooks, e.limiter, discardLogger())
	e.srv = httptest.NewServer(api.Router())
	t.Cleanup(e.srv.Close)
	return e
}

func (e *env) do(t *testing.T, method, path, token string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, e.srv.URL+path, &buf)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func TestAuth_RegisterAndLogin(t *testing.T) {
	e := newEnv(t)

	resp := e.do(t, http.MethodPost, "/auth/register", "", registerRequest{Name: "A", Email: "a@b.c", Password: "secret"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var ident models.Identity
	decodeBody(t, resp, &ident)
	require.Equal(t, "a@b.c", ident.Email)

	resp = e.do(t, http.MethodPost, "/auth/login", "", loginRequest{Email: "a@b.c", Password: "secret"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var login loginResponse
	decodeBody(t, resp, &login)
	require.Equal(t, "good-token", login.AccessToken)
	require.Equal(t, "a@b.c", login.User.Email)
}

func TestAuth_RegisterValidation(t *testing.T) {
	e := newEnv(t)
	resp := e.do(t, http.MethodPost, "/auth/register", "", registerRequest{Name: "A"})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestAuth_Me(t *testing.T) {
	e := newEnv(t)

	resp := e.do(t, http.MethodGet, "/auth/me", "good-token", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var ident models.Identity
	decodeBody(t, resp, &ident)
	require.Equal(t, "a@b.c", ident.Email)

	resp = e.do(t, http.MethodGet, "/auth/me", "", nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()
}

func TestAuth_LoginThrottled(t *testing.T) {
	e := newEnv(t)
	e.limiter.allowed = false
	e.limiter.count = 11

	resp := e.do(t, http.MethodPost, "/auth/login", "", loginRequest{Email: "a@b.c", Password: "secret"})
	require.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	resp.Body.Close()
}

func TestAuth_LoginLimiterDownStillWorks(t *testing.T) {
	e := newEnv(t)
	e.limiter.err = errors.New("redis down")

	resp := e.do(t, http.MethodPost, "/auth/login", "", loginRequest{Email: "a@b.c", Password: "secret"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
}

func TestAuth_BadCredentials(t *testing.T) {
	e := newEnv(t)
	e.users.loginErr = errors.Wrap(models.ErrUnauthorized, "invalid credentials")

	resp := e.do(t, http.MethodPost, "/auth/login", "", loginRequest{Email: "a@b.c", Password: "nope"})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()
}

func TestPackages_RequireAuth(t *testing.T) {
	e := newEnv(t)

	resp := e.do(t, http.MethodGet, "/packages", "", nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()

	resp = e.do(t, http.MethodGet, "/packages", "forged", nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()
}

func TestPackages_CreateAndList(t *testing.T) {
	e := newEnv(t)

	resp := e.do(t, http.MethodPost, "/packages", "good-token", createPackageRequest{Name: "books", TrackingCode: "RR123456789CN"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var created packageResponse
	decodeBody(t, resp, &created)
	require.Equal(t, "RR123456789CN", created.TrackingCode)
	require.NotNil(t, created.Timeline)

	resp = e.do(t, http.MethodGet, "/packages", "good-token", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var listed []packageResponse
	decodeBody(t, resp, &listed)
	require.Len(t, listed, 1)
}

func TestPackages_CreateValidation(t *testing.T) {
	e := newEnv(t)
	resp := e.do(t, http.MethodPost, "/packages", "good-token", createPackageRequest{Name: "books"})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestPackages_ErrorMapping(t *testing.T) {
	e := newEnv(t)
	id := e.packages.pkg.ID

	cases := []struct {
		err    error
		status int
	}{
		{errors.Wrap(models.ErrConflict, "tracking code already registered"), http.StatusConflict},
		{errors.Wrap(models.ErrNotFound, "package not found"), http.StatusNotFound},
		{errors.Wrap(models.ErrProviderFailure, "aftership 500"), http.StatusBadGateway},
		{errors.Wrap(models.ErrStorage, "query failed"), http.StatusInternalServerError},
	}
	for _, c := range cases {
		e.packages.err = c.err
		resp := e.do(t, http.MethodGet, "/packages/"+id.String(), "good-token", nil)
		require.Equal(t, c.status, resp.StatusCode)
		resp.Body.Close()
	}
}

func TestPackages_GetBadID(t *testing.T) {
	e := newEnv(t)
	resp := e.do(t, http.MethodGet, "/packages/not-a-uuid", "good-token", nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestPackages_RenameAndDelete(t *testing.T) {
	e := newEnv(t)
	id := e.packages.pkg.ID

	resp := e.do(t, http.MethodPatch, "/packages/"+id.String(), "good-token", updatePackageRequest{Name: "gifts"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var renamed packageResponse
	decodeBody(t, resp, &renamed)
	require.Equal(t, "gifts", renamed.Name)

	resp = e.do(t, http.MethodDelete, "/packages/"+id.String(), "good-token", nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp.Body.Close()
	require.Equal(t, []uuid.UUID{id}, e.packages.removed)
}

func TestPackages_ListEvents(t *testing.T) {
	e := newEnv(t)
	id := e.packages.pkg.ID
	now := time.Now().UTC()
	e.packages.events = []*models.StatusEvent{{
		ID:           1,
		PackageID:    id,
		TrackingCode: "RR123456789CN",
		Status:       "Delivered",
		OccurredAt:   now,
		CreatedAt:    now,
	}}

	resp := e.do(t, http.MethodGet, "/packages/"+id.String()+"/events?limit=5", "good-token", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var evs []statusEventResponse
	decodeBody(t, resp, &evs)
	require.Len(t, evs, 1)
	require.Equal(t, "Delivered", evs[0].Status)
	require.Equal(t, 5, e.packages.lastLimit)
}

func TestWebhook_PassesPayloadThrough(t *testing.T) {
	e := newEnv(t)

	payload := webhooks.UpdatePayload{Msg: &webhooks.TrackingMsg{
		TrackingNumber: "RR123456789CN",
		Tag:            "Delivered",
	}}
	resp := e.do(t, http.MethodPost, "/webhooks/aftership-update", "", payload)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var result webhooks.Result
	decodeBody(t, resp, &result)
	require.True(t, result.Success)
	require.Equal(t, 2, result.Updated)
	require.NotNil(t, e.webhooks.got)
	require.Equal(t, "RR123456789CN", e.webhooks.got.Msg.TrackingNumber)
}

func TestWebhook_MalformedBodyStill200(t *testing.T) {
	e := newEnv(t)

	req, err := http.NewRequest(http.MethodPost, e.srv.URL+"/webhooks/aftership-update", bytes.NewBufferString("{not json"))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var result webhooks.Result
	decodeBody(t, resp, &result)
	require.True(t, result.Success)
	require.Zero(t, result.Updated)
	require.Nil(t, e.webhooks.got)
}

func TestHealthz(t *testing.T) {
	e := newEnv(t)
	resp := e.do(t, http.MethodGet, "/healthz", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
}
