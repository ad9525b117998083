package jsonfile

import (
	"time"

	"clientdesk/internal/domain/model"
)

// persistedClient is the on-disk element shape. The password travels only as
// its ciphertext envelope; the plaintext field of model.Client is never
// written.
type persistedClient struct {
	ID                 string    `json:"id"`
	Name               string    `json:"name"`
	Company            string    `json:"company"`
	Email              string    `json:"email"`
	Phone              string    `json:"phone"`
	Plan               string    `json:"plan"`
	Status             string    `json:"status"`
	PasswordCiphertext string    `json:"passwordCiphertext"`
	Notes              string    `json:"notes"`
	CreatedAt          time.Time `json:"createdAt"`
	UpdatedAt          time.Time `json:"updatedAt"`
}

// toPersisted maps a domain client plus its envelope to the disk shape.
func toPersisted(c model.Client, envelope string) persistedClient {
	return persistedClient{
		ID:                 c.ID,
		Name:               c.Name,
		Company:            c.Company,
		Email:              c.Email,
		Phone:              c.Phone,
		Plan:               string(c.Plan),
		Status:             string(c.Status),
		PasswordCiphertext: envelope,
		Notes:              c.Notes,
		CreatedAt:          c.CreatedAt,
		UpdatedAt:          c.UpdatedAt,
	}
}

// toDomain maps a disk record to the domain shape, re-normalizing the fields
// a legacy document may carry loosely (mixed-case email, free-form plan and
// status, both possibly absent). Password is filled in by the caller after
// decryption.
func toDomain(p persistedClient) model.Client {
	return model.Client{
		ID:        p.ID,
		Name:      p.Name,
		Company:   p.Company,
		Email:     model.NormalizeEmail(p.Email),
		Phone:     p.Phone,
		Plan:      model.NormalizePlan(p.Plan),
		Status:    model.NormalizeStatus(p.Status),
		Notes:     p.Notes,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}
