package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"clientdesk/internal/domain/model"
	"clientdesk/internal/domain/port/driven"
	"clientdesk/internal/secrets"
)

// Compile-time interface satisfaction check.
var _ driven.ClientStore = (*ClientRepo)(nil)

// ClientRepo is the PostgreSQL implementation of the ClientStore port.
// Email uniqueness is enforced by a unique index on lower(email); no
// application-level locking is needed.
type ClientRepo struct {
	db     *sql.DB
	cipher *secrets.Cipher
	logger *slog.Logger

	schemaOnce sync.Once
	schemaErr  error
}

// NewClientRepo creates a ClientRepo. The clients table is created lazily on
// first use.
func NewClientRepo(db *sql.DB, cipher *secrets.Cipher, logger *slog.Logger) *ClientRepo {
	return &ClientRepo{db: db, cipher: cipher, logger: logger}
}

// ensureSchema creates the table and unique index if they do not exist yet.
// Idempotent, run once per process.
func (r *ClientRepo) ensureSchema(ctx context.Context) error {
	r.schemaOnce.Do(func() {
		const ddl = `
CREATE TABLE IF NOT EXISTS clients (
	id                  TEXT PRIMARY KEY,
	name                TEXT NOT NULL,
	company             TEXT NOT NULL DEFAULT '',
	email               TEXT NOT NULL,
	phone               TEXT NOT NULL DEFAULT '',
	plan                TEXT NOT NULL,
	status              TEXT NOT NULL,
	password_ciphertext TEXT NOT NULL,
	notes               TEXT NOT NULL DEFAULT '',
	created_at          TIMESTAMPTZ NOT NULL,
	updated_at          TIMESTAMPTZ NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS clients_email_unique ON clients (lower(email));`

		if _, err := r.db.ExecContext(ctx, ddl); err != nil {
			r.schemaErr = fmt.Errorf("ensure clients schema: %w", err)
		}
	})
	return r.schemaErr
}

// isUniqueViolation reports whether err is the engine rejecting a duplicate
// value on a unique index (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

const clientColumns = `id, name, company, email, phone, plan, status, password_ciphertext, notes, created_at, updated_at`

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// scanClient reads one row into the domain shape plus its envelope. Plan and
// status are re-normalized on the way out so rows written by older versions
// still surface valid enum values.
func scanClient(s scanner) (model.Client, string, error) {
	var c model.Client
	var plan, status, envelope string
	err := s.Scan(&c.ID, &c.Name, &c.Company, &c.Email, &c.Phone, &plan, &status, &envelope, &c.Notes, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return model.Client{}, "", err
	}
	c.Email = model.NormalizeEmail(c.Email)
	c.Plan = model.NormalizePlan(plan)
	c.Status = model.NormalizeStatus(status)
	return c, envelope, nil
}

// ListAll returns every record, newest first. Rows whose envelope fails to
// decrypt are logged and omitted.
func (r *ClientRepo) ListAll(ctx context.Context) ([]model.Client, error) {
	if err := r.ensureSchema(ctx); err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, `SELECT `+clientColumns+` FROM clients ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list clients: %w", err)
	}
	defer rows.Close()

	var clients []model.Client
	for rows.Next() {
		c, envelope, err := scanClient(rows)
		if err != nil {
			return nil, fmt.Errorf("scan client: %w", err)
		}
		if c.Password, err = r.cipher.Decrypt(envelope); err != nil {
			r.logger.Warn("skipping client record with unreadable secret", "id", c.ID, "error", err)
			continue
		}
		clients = append(clients, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate clients: %w", err)
	}

	if clients == nil {
		clients = []model.Client{}
	}
	return clients, nil
}

// Get retrieves one record by id. Returns (nil, nil) if absent.
func (r *ClientRepo) Get(ctx context.Context, id string) (*model.Client, error) {
	if err := r.ensureSchema(ctx); err != nil {
		return nil, err
	}

	row := r.db.QueryRowContext(ctx, `SELECT `+clientColumns+` FROM clients WHERE id = $1`, id)
	c, envelope, err := scanClient(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get client %s: %w", id, err)
	}

	if c.Password, err = r.cipher.Decrypt(envelope); err != nil {
		return nil, fmt.Errorf("decrypt secret for client %s: %w", id, err)
	}
	return &c, nil
}

// Add validates, encrypts, and inserts a new record. A duplicate normalized
// email is rejected by the unique index and surfaces as ErrDuplicateEmail.
func (r *ClientRepo) Add(ctx context.Context, in model.NewClient) (model.Client, error) {
	if err := in.Validate(); err != nil {
		return model.Client{}, err
	}
	if err := r.ensureSchema(ctx); err != nil {
		return model.Client{}, err
	}

	client := in.Build(uuid.NewString(), time.Now())

	envelope, err := r.cipher.Encrypt(client.Password)
	if err != nil {
		return model.Client{}, fmt.Errorf("encrypt secret: %w", err)
	}

	const query = `
INSERT INTO clients (` + clientColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err = r.db.ExecContext(ctx, query,
		client.ID, client.Name, client.Company, client.Email, client.Phone,
		string(client.Plan), string(client.Status), envelope, client.Notes,
		client.CreatedAt, client.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return model.Client{}, fmt.Errorf("add client: %w", driven.ErrDuplicateEmail)
		}
		return model.Client{}, fmt.Errorf("add client: %w", err)
	}

	return client, nil
}

// Update applies a partial patch inside a transaction, holding the target row
// with FOR UPDATE for the read-modify-write.
func (r *ClientRepo) Update(ctx context.Context, id string, patch model.ClientPatch) (model.Client, error) {
	if err := patch.Validate(); err != nil {
		return model.Client{}, err
	}
	if patch.Password != nil && *patch.Password == "" {
		return model.Client{}, fmt.Errorf("update client %s: %w", id, driven.ErrEmptyPassword)
	}
	if err := r.ensureSchema(ctx); err != nil {
		return model.Client{}, err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Client{}, fmt.Errorf("begin update: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	row := tx.QueryRowContext(ctx, `SELECT `+clientColumns+` FROM clients WHERE id = $1 FOR UPDATE`, id)
	client, envelope, err := scanClient(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Client{}, fmt.Errorf("update client %s: %w", id, driven.ErrClientNotFound)
	}
	if err != nil {
		return model.Client{}, fmt.Errorf("update client %s: %w", id, err)
	}

	patch.Apply(&client, time.Now())

	if patch.Password != nil {
		client.Password = *patch.Password
		if envelope, err = r.cipher.Encrypt(client.Password); err != nil {
			return model.Client{}, fmt.Errorf("encrypt secret: %w", err)
		}
	} else if client.Password, err = r.cipher.Decrypt(envelope); err != nil {
		return model.Client{}, fmt.Errorf("decrypt secret for client %s: %w", id, err)
	}

	const query = `
UPDATE clients
SET name = $2, company = $3, email = $4, phone = $5, plan = $6, status = $7,
    password_ciphertext = $8, notes = $9, updated_at = $10
WHERE id = $1`

	_, err = tx.ExecContext(ctx, query,
		client.ID, client.Name, client.Company, client.Email, client.Phone,
		string(client.Plan), string(client.Status), envelope, client.Notes,
		client.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return model.Client{}, fmt.Errorf("update client %s: %w", id, driven.ErrDuplicateEmail)
		}
		return model.Client{}, fmt.Errorf("update client %s: %w", id, err)
	}

	if err := tx.Commit(); err != nil {
		return model.Client{}, fmt.Errorf("commit update: %w", err)
	}

	return client, nil
}

// Remove deletes the record if present. Idempotent.
func (r *ClientRepo) Remove(ctx context.Context, id string) (bool, error) {
	if err := r.ensureSchema(ctx); err != nil {
		return false, err
	}

	result, err := r.db.ExecContext(ctx, `DELETE FROM clients WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("remove client %s: %w", id, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("check rows affected: %w", err)
	}

	return rows > 0, nil
}
