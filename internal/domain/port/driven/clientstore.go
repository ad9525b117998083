package driven

import (
	"context"
	"errors"

	"clientdesk/internal/domain/model"
)

// ErrDuplicateEmail is returned when a create or update would leave two
// records sharing the same normalized email address.
var ErrDuplicateEmail = errors.New("email already in use")

// ErrClientNotFound is returned by Update when the target id does not exist.
// Remove does not use it; removing an absent id is not an error.
var ErrClientNotFound = errors.New("client not found")

// ErrEmptyPassword is returned by Update when the patch carries a password
// field that is present but blank. An absent password field keeps the stored
// secret unchanged.
var ErrEmptyPassword = errors.New("password must not be empty")

// ErrStoreUnavailable is returned when the backing store cannot be claimed,
// e.g. the file-variant write lock stayed contended past the retry budget.
// Callers should treat it as retryable.
var ErrStoreUnavailable = errors.New("client store unavailable")

// ClientStore defines the driven port for durable client record persistence.
// Implementations encrypt the password field at rest; this interface operates
// on plaintext at the domain boundary.
type ClientStore interface {
	// ListAll returns every record, newest CreatedAt first. Records whose
	// stored secret cannot be decrypted are logged and omitted, never fatal
	// for the whole listing.
	ListAll(ctx context.Context) ([]model.Client, error)

	// Get retrieves one record by id. Returns (nil, nil) if absent.
	Get(ctx context.Context, id string) (*model.Client, error)

	// Add validates, normalizes, and persists a new record, assigning a fresh
	// id and timestamps. Fails with *model.ValidationError on bad input and
	// ErrDuplicateEmail when the normalized email is already taken.
	Add(ctx context.Context, in model.NewClient) (model.Client, error)

	// Update applies a partial patch. Omitted fields keep their values; see
	// ErrEmptyPassword for the password rules. Fails with ErrClientNotFound
	// when id is absent and ErrDuplicateEmail when a supplied email collides
	// with a different record. Returns the full record with the resolved
	// plaintext password.
	Update(ctx context.Context, id string, patch model.ClientPatch) (model.Client, error)

	// Remove deletes the record if present. Idempotent: removing an absent id
	// returns (false, nil).
	Remove(ctx context.Context, id string) (bool, error)
}
