package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/BearBump/PackBox/internal/models"
)

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	AccessToken string           `json:"access_token"`
	User        *models.Identity `json:"user"`
}

func (a *API) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.writeErrorMessage(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Name == "" || req.Email == "" || req.Password == "" {
		a.writeErrorMessage(w, http.StatusBadRequest, "name, email and password are required")
		return
	}

	identity, err := a.users.Register(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		a.writeError(w, err)
		return
	}
	a.writeJSON(w, http.StatusCreated, identity)
}

func (a *API) handleMe(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFromContext(r.Context())
	if !ok {
		a.writeErrorMessage(w, http.StatusUnauthorized, "missing identity")
		return
	}

	profile, err := a.users.Profile(r.Context(), identity.ID)
	if err != nil {
		a.writeError(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, profile)
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.writeErrorMessage(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Email == "" || req.Password == "" {
		a.writeErrorMessage(w, http.StatusBadRequest, "email and password are required")
		return
	}

	if a.limiter != nil {
		allowed, n, err := a.limiter.Allow(r.Context(), "login:"+req.Email)
		if err != nil {
			// Redis being down must not lock everyone out.
			a.log.Warn("login rate limiter unavailable", "error", err)
		} else if !allowed {
			a.log.Warn("login throttled", "email", req.Email, "attempts", n)
			a.writeErrorMessage(w, http.StatusTooManyRequests, "too many login attempts")
			return
		}
	}

	token, identity, err := a.users.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		a.writeError(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, loginResponse{AccessToken: token, User: identity})
}
