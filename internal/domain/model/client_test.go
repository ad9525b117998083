package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestNewClient_Validate(t *testing.T) {
	valid := NewClient{Name: "Ahmed", Email: "a@x.com", Password: "p1"}
	assert.NoError(t, valid.Validate())

	tests := []struct {
		name  string
		in    NewClient
		field string
	}{
		{"missing name", NewClient{Email: "a@x.com", Password: "p1"}, "name"},
		{"whitespace name", NewClient{Name: "   ", Email: "a@x.com", Password: "p1"}, "name"},
		{"missing email", NewClient{Name: "Ahmed", Password: "p1"}, "email"},
		{"malformed email", NewClient{Name: "Ahmed", Email: "not-an-email", Password: "p1"}, "email"},
		{"no domain dot", NewClient{Name: "Ahmed", Email: "a@x", Password: "p1"}, "email"},
		{"missing password", NewClient{Name: "Ahmed", Email: "a@x.com"}, "password"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.in.Validate()
			var vErr *ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Equal(t, tt.field, vErr.Field)
		})
	}
}

func TestNewClient_Build(t *testing.T) {
	now := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	in := NewClient{
		Name:     "  Ahmed  ",
		Company:  " Acme ",
		Email:    "A@X.com",
		Plan:     "Growth",
		Status:   "Churn Risk",
		Password: "p1",
	}

	c := in.Build("id-1", now)

	assert.Equal(t, "id-1", c.ID)
	assert.Equal(t, "Ahmed", c.Name)
	assert.Equal(t, "Acme", c.Company)
	assert.Equal(t, "a@x.com", c.Email, "email is case-normalized")
	assert.Equal(t, PlanGrowth, c.Plan)
	assert.Equal(t, StatusChurnRisk, c.Status)
	assert.Equal(t, "p1", c.Password)
	assert.Equal(t, now, c.CreatedAt)
	assert.Equal(t, now, c.UpdatedAt)
}

func TestNewClient_BuildAppliesDefaults(t *testing.T) {
	c := NewClient{Name: "Ahmed", Email: "a@x.com", Password: "p1"}.Build("id-1", time.Now())

	assert.Equal(t, DefaultPlan, c.Plan)
	assert.Equal(t, DefaultStatus, c.Status)
}

func TestClientPatch_Validate(t *testing.T) {
	assert.NoError(t, ClientPatch{}.Validate(), "empty patch is valid")
	assert.NoError(t, ClientPatch{Name: strPtr("New Name")}.Validate())

	var vErr *ValidationError
	require.ErrorAs(t, ClientPatch{Name: strPtr("  ")}.Validate(), &vErr)
	assert.Equal(t, "name", vErr.Field)

	require.ErrorAs(t, ClientPatch{Email: strPtr("nope")}.Validate(), &vErr)
	assert.Equal(t, "email", vErr.Field)
}

func TestClientPatch_Apply(t *testing.T) {
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	c := Client{
		ID:        "id-1",
		Name:      "Ahmed",
		Email:     "a@x.com",
		Plan:      PlanStarter,
		Status:    StatusPending,
		Password:  "p1",
		CreatedAt: created,
		UpdatedAt: created,
	}

	now := created.Add(48 * time.Hour)
	ClientPatch{Plan: strPtr("Growth")}.Apply(&c, now)

	assert.Equal(t, PlanGrowth, c.Plan)
	assert.Equal(t, "Ahmed", c.Name, "omitted fields keep prior values")
	assert.Equal(t, "p1", c.Password, "Apply never touches the password")
	assert.Equal(t, created, c.CreatedAt, "CreatedAt is immutable")
	assert.Equal(t, now, c.UpdatedAt, "UpdatedAt refreshes on every mutation")
}

func TestClientPatch_ApplyNormalizes(t *testing.T) {
	c := Client{Email: "a@x.com", Plan: PlanStarter, Status: StatusPending}

	ClientPatch{
		Email:  strPtr("  B@Y.org "),
		Status: strPtr("OFFBOARDED"),
	}.Apply(&c, time.Now())

	assert.Equal(t, "b@y.org", c.Email)
	assert.Equal(t, StatusOffboarded, c.Status)
}
