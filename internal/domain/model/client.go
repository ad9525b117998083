package model

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Client is one client relationship as seen by callers of the store.
// Password is always plaintext at this boundary; adapters encrypt it before
// persisting and decrypt it on the way back out.
//
// Invariants:
//   - Name is non-empty after trimming
//   - Email is well-formed and lower-cased, unique across all records
//   - Plan and Status are always drawn from the defined enums
//   - CreatedAt is immutable after creation; UpdatedAt refreshes on every mutation
type Client struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Company   string    `json:"company"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	Plan      Plan      `json:"plan"`
	Status    Status    `json:"status"`
	Password  string    `json:"password"`
	Notes     string    `json:"notes"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewClient carries the caller-supplied fields for creating a client.
// Plan and Status are free-form here and normalized on write.
type NewClient struct {
	Name     string
	Company  string
	Email    string
	Phone    string
	Plan     string
	Status   string
	Password string
	Notes    string
}

// ClientPatch carries a partial update. Nil fields are left untouched.
// A nil Password keeps the stored secret; an empty non-nil Password is
// rejected by the store. The absent-vs-empty distinction is load-bearing.
type ClientPatch struct {
	Name     *string
	Company  *string
	Email    *string
	Phone    *string
	Plan     *string
	Status   *string
	Password *string
	Notes    *string
}

// ValidationError describes a rejected input field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Intentionally loose: just "something@something.tld" shaped, no attempt at
// full RFC 5322.
var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// NormalizeEmail trims and lower-cases an email address. Uniqueness checks
// and persistence always operate on the normalized form.
func NormalizeEmail(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

// ValidEmail reports whether raw looks like a mailbox address after trimming.
func ValidEmail(raw string) bool {
	return emailPattern.MatchString(strings.TrimSpace(raw))
}

// Validate checks the required fields for a create. Company, phone, and notes
// are free text and never rejected.
func (in NewClient) Validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return &ValidationError{Field: "name", Reason: "must not be empty"}
	}
	if strings.TrimSpace(in.Email) == "" {
		return &ValidationError{Field: "email", Reason: "must not be empty"}
	}
	if !ValidEmail(in.Email) {
		return &ValidationError{Field: "email", Reason: "must be a valid address"}
	}
	if in.Password == "" {
		return &ValidationError{Field: "password", Reason: "must not be empty"}
	}
	return nil
}

// Validate checks the supplied fields of a patch. Password emptiness is the
// store's concern (it maps to a dedicated sentinel), so it is not checked here.
func (p ClientPatch) Validate() error {
	if p.Name != nil && strings.TrimSpace(*p.Name) == "" {
		return &ValidationError{Field: "name", Reason: "must not be empty"}
	}
	if p.Email != nil {
		if strings.TrimSpace(*p.Email) == "" {
			return &ValidationError{Field: "email", Reason: "must not be empty"}
		}
		if !ValidEmail(*p.Email) {
			return &ValidationError{Field: "email", Reason: "must be a valid address"}
		}
	}
	return nil
}

// Build constructs a fully normalized Client from validated input.
// The caller supplies the fresh id; both timestamps start equal.
func (in NewClient) Build(id string, now time.Time) Client {
	return Client{
		ID:        id,
		Name:      strings.TrimSpace(in.Name),
		Company:   strings.TrimSpace(in.Company),
		Email:     NormalizeEmail(in.Email),
		Phone:     strings.TrimSpace(in.Phone),
		Plan:      NormalizePlan(in.Plan),
		Status:    NormalizeStatus(in.Status),
		Password:  in.Password,
		Notes:     in.Notes,
		CreatedAt: now.UTC(),
		UpdatedAt: now.UTC(),
	}
}

// Apply copies the patch's non-nil fields onto c and refreshes UpdatedAt.
// Password is deliberately not applied here; its keep/re-encrypt/reject
// handling lives in the store adapters.
func (p ClientPatch) Apply(c *Client, now time.Time) {
	if p.Name != nil {
		c.Name = strings.TrimSpace(*p.Name)
	}
	if p.Company != nil {
		c.Company = strings.TrimSpace(*p.Company)
	}
	if p.Email != nil {
		c.Email = NormalizeEmail(*p.Email)
	}
	if p.Phone != nil {
		c.Phone = strings.TrimSpace(*p.Phone)
	}
	if p.Plan != nil {
		c.Plan = NormalizePlan(*p.Plan)
	}
	if p.Status != nil {
		c.Status = NormalizeStatus(*p.Status)
	}
	if p.Notes != nil {
		c.Notes = *p.Notes
	}
	c.UpdatedAt = now.UTC()
}
