package httphandler

import (
	"encoding/json"
	"net/http"
	"time"

	"clientdesk/internal/domain/model"
)

// writeJSON marshals v to JSON and writes it to the response with the given
// status code. If marshaling fails, a 500 error is written instead.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// writeError writes a JSON error response with the given status code and message.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// errorResponse is the standard error response body.
type errorResponse struct {
	Error string `json:"error"`
}

// ClientResponse is the JSON representation of a single client record,
// password included. Served only from single-record endpoints.
type ClientResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Company   string `json:"company"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Plan      string `json:"plan"`
	Status    string `json:"status"`
	Password  string `json:"password"`
	Notes     string `json:"notes"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// ClientSummaryResponse is the list-endpoint shape: same fields minus the
// password. Redaction here is deliberate caller policy, not a store concern.
type ClientSummaryResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Company   string `json:"company"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Plan      string `json:"plan"`
	Status    string `json:"status"`
	Notes     string `json:"notes"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// RemoveResponse is the body of a delete call.
type RemoveResponse struct {
	Removed bool `json:"removed"`
}

// NotesResponse carries the client notes rendered to sanitized HTML.
type NotesResponse struct {
	HTML string `json:"html"`
}

// HealthResponse is the JSON representation of the health check endpoint.
type HealthResponse struct {
	Status string `json:"status"`
	Time   string `json:"time"`
}

// CreateClientRequest is the JSON body for the create endpoint.
type CreateClientRequest struct {
	Name     string `json:"name"`
	Company  string `json:"company"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Plan     string `json:"plan"`
	Status   string `json:"status"`
	Password string `json:"password"`
	Notes    string `json:"notes"`
}

// UpdateClientRequest is the JSON body for the update endpoint. Pointer
// fields distinguish "absent" from "present but empty"; the store depends on
// that distinction for the password.
type UpdateClientRequest struct {
	Name     *string `json:"name"`
	Company  *string `json:"company"`
	Email    *string `json:"email"`
	Phone    *string `json:"phone"`
	Plan     *string `json:"plan"`
	Status   *string `json:"status"`
	Password *string `json:"password"`
	Notes    *string `json:"notes"`
}

func toClientResponse(c model.Client) ClientResponse {
	return ClientResponse{
		ID:        c.ID,
		Name:      c.Name,
		Company:   c.Company,
		Email:     c.Email,
		Phone:     c.Phone,
		Plan:      string(c.Plan),
		Status:    string(c.Status),
		Password:  c.Password,
		Notes:     c.Notes,
		CreatedAt: c.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt: c.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func toClientSummaryResponse(c model.Client) ClientSummaryResponse {
	return ClientSummaryResponse{
		ID:        c.ID,
		Name:      c.Name,
		Company:   c.Company,
		Email:     c.Email,
		Phone:     c.Phone,
		Plan:      string(c.Plan),
		Status:    string(c.Status),
		Notes:     c.Notes,
		CreatedAt: c.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt: c.UpdatedAt.UTC().Format(time.RFC3339),
	}
}
