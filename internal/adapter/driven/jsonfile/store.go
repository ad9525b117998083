// Package jsonfile implements the ClientStore port on top of a single JSON
// document. Mutations are serialized across processes by a pid-stamped lock
// marker and made crash-safe by write-to-temp plus atomic rename; reads go
// straight to the document and may observe a slightly stale but always
// well-formed array.
package jsonfile

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/natefinch/atomic"

	"clientdesk/internal/domain/model"
	"clientdesk/internal/domain/port/driven"
	"clientdesk/internal/secrets"
)

// Compile-time interface satisfaction check.
var _ driven.ClientStore = (*Store)(nil)

const documentName = "clients.json"

// Store is the file-backed implementation of the ClientStore port.
type Store struct {
	path     string
	lockPath string
	cipher   *secrets.Cipher
	logger   *slog.Logger

	// Serializes in-process writers so they don't burn lock-file retries
	// against each other. The marker file remains the cross-process authority.
	mu sync.Mutex
}

// NewStore creates the data directory if needed and returns a Store persisting
// to <dir>/clients.json, with the write marker at <dir>/clients.json.lock.
func NewStore(dir string, cipher *secrets.Cipher, logger *slog.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir %s: %w", dir, err)
	}

	path := filepath.Join(dir, documentName)
	return &Store{
		path:     path,
		lockPath: path + ".lock",
		cipher:   cipher,
		logger:   logger,
	}, nil
}

// ListAll returns every record, newest CreatedAt first. A record whose
// envelope fails to parse or authenticate is logged and skipped so one bad
// row never fails the listing.
func (s *Store) ListAll(ctx context.Context) ([]model.Client, error) {
	records, err := s.load()
	if err != nil {
		return nil, err
	}

	clients := make([]model.Client, 0, len(records))
	for _, rec := range records {
		password, err := s.cipher.Decrypt(rec.PasswordCiphertext)
		if err != nil {
			s.logger.Warn("skipping client record with unreadable secret", "id", rec.ID, "error", err)
			continue
		}
		c := toDomain(rec)
		c.Password = password
		clients = append(clients, c)
	}

	sort.SliceStable(clients, func(i, j int) bool {
		return clients[i].CreatedAt.After(clients[j].CreatedAt)
	})

	return clients, nil
}

// Get retrieves one record by id. Returns (nil, nil) if absent.
func (s *Store) Get(ctx context.Context, id string) (*model.Client, error) {
	records, err := s.load()
	if err != nil {
		return nil, err
	}

	for _, rec := range records {
		if rec.ID != id {
			continue
		}
		password, err := s.cipher.Decrypt(rec.PasswordCiphertext)
		if err != nil {
			return nil, fmt.Errorf("decrypt secret for client %s: %w", id, err)
		}
		c := toDomain(rec)
		c.Password = password
		return &c, nil
	}

	return nil, nil
}

// Add validates and persists a new record under the write lock.
func (s *Store) Add(ctx context.Context, in model.NewClient) (model.Client, error) {
	if err := in.Validate(); err != nil {
		return model.Client{}, err
	}

	client := in.Build(uuid.NewString(), time.Now())

	envelope, err := s.cipher.Encrypt(client.Password)
	if err != nil {
		return model.Client{}, fmt.Errorf("encrypt secret: %w", err)
	}

	err = s.withLock(ctx, func(records []persistedClient) ([]persistedClient, error) {
		for _, rec := range records {
			if model.NormalizeEmail(rec.Email) == client.Email {
				return nil, fmt.Errorf("add client: %w", driven.ErrDuplicateEmail)
			}
		}
		return append(records, toPersisted(client, envelope)), nil
	})
	if err != nil {
		return model.Client{}, err
	}

	return client, nil
}

// Update applies a partial patch under the write lock. An absent password
// keeps the stored ciphertext untouched; a present-but-blank one is rejected
// before anything is written.
func (s *Store) Update(ctx context.Context, id string, patch model.ClientPatch) (model.Client, error) {
	if err := patch.Validate(); err != nil {
		return model.Client{}, err
	}
	if patch.Password != nil && *patch.Password == "" {
		return model.Client{}, fmt.Errorf("update client %s: %w", id, driven.ErrEmptyPassword)
	}

	var updated model.Client
	err := s.withLock(ctx, func(records []persistedClient) ([]persistedClient, error) {
		idx := -1
		for i, rec := range records {
			if rec.ID == id {
				idx = i
				break
			}
		}
		if idx < 0 {
			return nil, fmt.Errorf("update client %s: %w", id, driven.ErrClientNotFound)
		}

		client := toDomain(records[idx])
		patch.Apply(&client, time.Now())

		for i, rec := range records {
			if i != idx && model.NormalizeEmail(rec.Email) == client.Email {
				return nil, fmt.Errorf("update client %s: %w", id, driven.ErrDuplicateEmail)
			}
		}

		envelope := records[idx].PasswordCiphertext
		if patch.Password != nil {
			client.Password = *patch.Password
			var err error
			if envelope, err = s.cipher.Encrypt(client.Password); err != nil {
				return nil, fmt.Errorf("encrypt secret: %w", err)
			}
		} else {
			var err error
			if client.Password, err = s.cipher.Decrypt(envelope); err != nil {
				return nil, fmt.Errorf("decrypt secret for client %s: %w", id, err)
			}
		}

		records[idx] = toPersisted(client, envelope)
		updated = client
		return records, nil
	})
	if err != nil {
		return model.Client{}, err
	}

	return updated, nil
}

// Remove deletes the record if present. Removing an absent id rewrites
// nothing and reports (false, nil).
func (s *Store) Remove(ctx context.Context, id string) (bool, error) {
	removed := false
	err := s.withLock(ctx, func(records []persistedClient) ([]persistedClient, error) {
		kept := records[:0]
		for _, rec := range records {
			if rec.ID == id {
				removed = true
				continue
			}
			kept = append(kept, rec)
		}
		if !removed {
			return nil, errNoWrite
		}
		return kept, nil
	})
	if err != nil {
		return false, err
	}

	return removed, nil
}

// errNoWrite signals withLock to release without rewriting the document.
var errNoWrite = errors.New("no write needed")

// withLock runs a read-modify-write section exclusively: claim the marker,
// reload the current document, apply fn, and atomically replace the document
// with fn's result.
func (s *Store) withLock(ctx context.Context, fn func([]persistedClient) ([]persistedClient, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := acquireLock(ctx, s.lockPath); err != nil {
		return err
	}
	defer releaseLock(s.lockPath)

	records, err := s.load()
	if err != nil {
		return err
	}

	next, err := fn(records)
	if err != nil {
		if errors.Is(err, errNoWrite) {
			return nil
		}
		return err
	}

	return s.save(next)
}

// load reads the whole document. A missing file is an empty store.
func (s *Store) load() ([]persistedClient, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read %s: %w", s.path, err)
	}

	var records []persistedClient
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parse %s: %w", s.path, err)
	}

	return records, nil
}

// save writes the document to a temp file and renames it into place, so a
// crash mid-write can never leave a truncated array behind.
func (s *Store) save(records []persistedClient) error {
	if records == nil {
		records = []persistedClient{}
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", s.path, err)
	}

	if err := atomic.WriteFile(s.path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("write %s: %w", s.path, err)
	}

	return nil
}
