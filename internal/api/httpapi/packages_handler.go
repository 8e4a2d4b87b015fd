package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/BearBump/PackBox/internal/models"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type createPackageRequest struct {
	Name         string `json:"name"`
	TrackingCode string `json:"trackingCode"`
}

type updatePackageRequest struct {
	Name string `json:"name"`
}

func (a *API) handleCreatePackage(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFromContext(r.Context())
	if !ok {
		a.writeErrorMessage(w, http.StatusUnauthorized, "missing identity")
		return
	}

	var req createPackageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.writeErrorMessage(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Name == "" || req.TrackingCode == "" {
		a.writeErrorMessage(w, http.StatusBadRequest, "name and trackingCode are required")
		return
	}

	p, err := a.packages.Create(r.Context(), identity.ID, req.Name, req.TrackingCode)
	if err != nil {
		a.writeError(w, err)
		return
	}
	a.writeJSON(w, http.StatusCreated, toPackageResponse(p))
}

func (a *API) handleListPackages(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFromContext(r.Context())
	if !ok {
		a.writeErrorMessage(w, http.StatusUnauthorized, "missing identity")
		return
	}

	ps, err := a.packages.List(r.Context(), identity.ID)
	if err != nil {
		a.writeError(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, toPackageResponses(ps))
}

func (a *API) handleGetPackage(w http.ResponseWriter, r *http.Request) {
	identity, id, ok := a.identityAndID(w, r)
	if !ok {
		return
	}

	p, err := a.packages.Get(r.Context(), id, identity.ID)
	if err != nil {
		a.writeError(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, toPackageResponse(p))
}

func (a *API) handleListPackageEvents(w http.ResponseWriter, r *http.Request) {
	identity, id, ok := a.identityAndID(w, r)
	if !ok {
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	evs, err := a.packages.ListEvents(r.Context(), id, identity.ID, limit, offset)
	if err != nil {
		a.writeError(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, toStatusEventResponses(evs))
}

func (a *API) handleUpdatePackage(w http.ResponseWriter, r *http.Request) {
	identity, id, ok := a.identityAndID(w, r)
	if !ok {
		return
	}

	var req updatePackageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.writeErrorMessage(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	p, err := a.packages.Rename(r.Context(), id, identity.ID, req.Name)
	if err != nil {
		a.writeError(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, toPackageResponse(p))
}

func (a *API) handleDeletePackage(w http.ResponseWriter, r *http.Request) {
	identity, id, ok := a.identityAndID(w, r)
	if !ok {
		return
	}

	if err := a.packages.Remove(r.Context(), id, identity.ID); err != nil {
		a.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) identityAndID(w http.ResponseWriter, r *http.Request) (*models.Identity, uuid.UUID, bool) {
	identity, ok := identityFromContext(r.Context())
	if !ok {
		a.writeErrorMessage(w, http.StatusUnauthorized, "missing identity")
		return nil, uuid.Nil, false
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		a.writeErrorMessage(w, http.StatusBadRequest, "invalid package id")
		return nil, uuid.Nil, false
	}
	return identity, id, true
}
