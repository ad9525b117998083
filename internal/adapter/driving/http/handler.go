// Package httphandler is the HTTP driving adapter serving the REST API.
package httphandler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"clientdesk/internal/domain/model"
	"clientdesk/internal/domain/port/driven"
)

// Handler serves the client CRUD API on top of the ClientStore port.
type Handler struct {
	store  driven.ClientStore
	logger *slog.Logger
}

// NewHandler creates a Handler with all required dependencies.
func NewHandler(store driven.ClientStore, logger *slog.Logger) *Handler {
	return &Handler{store: store, logger: logger}
}

// NewServeMux creates an http.Handler with all routes registered and wrapped
// with logging and recovery middleware.
func NewServeMux(h *Handler, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/v1/clients", h.ListClients)
	mux.HandleFunc("POST /api/v1/clients", h.CreateClient)
	mux.HandleFunc("GET /api/v1/clients/{id}", h.GetClient)
	mux.HandleFunc("PUT /api/v1/clients/{id}", h.UpdateClient)
	mux.HandleFunc("DELETE /api/v1/clients/{id}", h.DeleteClient)
	mux.HandleFunc("GET /api/v1/clients/{id}/notes", h.GetClientNotes)
	mux.HandleFunc("GET /api/v1/health", h.Health)

	// Recovery innermost so panics are caught before logging.
	wrapped := recoveryMiddleware(logger, mux)
	wrapped = loggingMiddleware(logger, wrapped)

	return wrapped
}

// ListClients returns all client records. Passwords are stripped from list
// responses; operators fetch the single-record endpoint when they need one.
func (h *Handler) ListClients(w http.ResponseWriter, r *http.Request) {
	clients, err := h.store.ListAll(r.Context())
	if err != nil {
		h.writeStoreError(w, "list clients", err)
		return
	}

	resp := make([]ClientSummaryResponse, 0, len(clients))
	for _, c := range clients {
		resp = append(resp, toClientSummaryResponse(c))
	}

	writeJSON(w, http.StatusOK, resp)
}

// GetClient returns a single client record including its plaintext password,
// which the operator edit form needs.
func (h *Handler) GetClient(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	client, err := h.store.Get(r.Context(), id)
	if err != nil {
		h.writeStoreError(w, "get client", err)
		return
	}
	if client == nil {
		writeError(w, http.StatusNotFound, "client not found")
		return
	}

	writeJSON(w, http.StatusOK, toClientResponse(*client))
}

// CreateClient adds a new client record.
func (h *Handler) CreateClient(w http.ResponseWriter, r *http.Request) {
	var req CreateClientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	client, err := h.store.Add(r.Context(), model.NewClient{
		Name:     req.Name,
		Company:  req.Company,
		Email:    req.Email,
		Phone:    req.Phone,
		Plan:     req.Plan,
		Status:   req.Status,
		Password: req.Password,
		Notes:    req.Notes,
	})
	if err != nil {
		h.writeStoreError(w, "create client", err)
		return
	}

	writeJSON(w, http.StatusCreated, toClientResponse(client))
}

// UpdateClient applies a partial update. Fields absent from the body keep
// their stored values; an explicit empty password is rejected.
func (h *Handler) UpdateClient(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req UpdateClientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	client, err := h.store.Update(r.Context(), id, model.ClientPatch{
		Name:     req.Name,
		Company:  req.Company,
		Email:    req.Email,
		Phone:    req.Phone,
		Plan:     req.Plan,
		Status:   req.Status,
		Password: req.Password,
		Notes:    req.Notes,
	})
	if err != nil {
		h.writeStoreError(w, "update client", err)
		return
	}

	writeJSON(w, http.StatusOK, toClientResponse(client))
}

// DeleteClient removes a client record. Deleting an absent id is not an
// error; the response says whether anything was removed.
func (h *Handler) DeleteClient(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	removed, err := h.store.Remove(r.Context(), id)
	if err != nil {
		h.writeStoreError(w, "delete client", err)
		return
	}

	writeJSON(w, http.StatusOK, RemoveResponse{Removed: removed})
}

// GetClientNotes returns the client's notes rendered from markdown to
// sanitized HTML.
func (h *Handler) GetClientNotes(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	client, err := h.store.Get(r.Context(), id)
	if err != nil {
		h.writeStoreError(w, "get client notes", err)
		return
	}
	if client == nil {
		writeError(w, http.StatusNotFound, "client not found")
		return
	}

	writeJSON(w, http.StatusOK, NotesResponse{HTML: renderMarkdown(client.Notes)})
}

// Health reports liveness.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status: "ok",
		Time:   time.Now().UTC().Format(time.RFC3339),
	})
}

// writeStoreError maps store failures onto HTTP statuses: bad input 400,
// conflicts 409, missing 404, contended store 503, anything else 500.
func (h *Handler) writeStoreError(w http.ResponseWriter, op string, err error) {
	var vErr *model.ValidationError
	switch {
	case errors.As(err, &vErr):
		writeError(w, http.StatusBadRequest, vErr.Error())
	case errors.Is(err, driven.ErrEmptyPassword):
		writeError(w, http.StatusBadRequest, "password must not be empty")
	case errors.Is(err, driven.ErrDuplicateEmail):
		writeError(w, http.StatusConflict, "email already in use")
	case errors.Is(err, driven.ErrClientNotFound):
		writeError(w, http.StatusNotFound, "client not found")
	case errors.Is(err, driven.ErrStoreUnavailable):
		writeError(w, http.StatusServiceUnavailable, "store busy, try again")
	default:
		h.logger.Error("store operation failed", "op", op, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
