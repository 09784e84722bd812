package crmcitas

import (
	"context"
	"errors"
)

var (
	// ErrLeadNotFound is returned when the referenced lead does not exist.
	ErrLeadNotFound = errors.New("lead not found")
)

// Lead is a prospective customer. Leads are immutable once registered:
// there is no update or delete operation in this system.
type Lead struct {
	ID            int    `json:"id"`
	Nombre        string `json:"nombre"`
	Email         string `json:"email"`
	Telefono      string `json:"telefono"`
	Empresa       string `json:"empresa"`
	FechaRegistro string `json:"fechaRegistro"`
}

// NewLead holds the caller-supplied fields for registering a lead. All
// fields are required; presence is validated at the transport boundary.
type NewLead struct {
	Nombre   string `json:"nombre"`
	Email    string `json:"email"`
	Telefono string `json:"telefono"`
	Empresa  string `json:"empresa"`
}

// LeadFilter narrows and pages a lead listing. Nombre and Empresa are
// case-insensitive substring matches. Page and Limit must be positive.
type LeadFilter struct {
	Nombre  string
	Empresa string
	Page    int
	Limit   int
}

// LeadPage is one window of a filtered lead listing.
type LeadPage struct {
	Leads       []Lead `json:"leads"`
	TotalLeads  int    `json:"totalLeads"`
	TotalPages  int    `json:"totalPages"`
	CurrentPage int    `json:"currentPage"`
}

type LeadService interface {
	Create(ctx context.Context, nl NewLead) (Lead, error)
	List(ctx context.Context, filter LeadFilter) (LeadPage, error)
	GetByID(ctx context.Context, id int) (Lead, error)
}
