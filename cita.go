package crmcitas

import (
	"context"
	"errors"
	"time"
)

// Cita estados. A cita starts as programada and may move to cancelada
// exactly once. Completada exists in the taxonomy but no operation here
// transitions into it.
const (
	EstadoProgramada = "programada"
	EstadoCompletada = "completada"
	EstadoCancelada  = "cancelada"
)

var (
	// ErrCitaNotFound is returned when the referenced cita does not exist.
	ErrCitaNotFound = errors.New("cita not found")

	// ErrCitaCancelled is returned when cancelling a cita that is already
	// cancelled. Re-cancelling is an error, not a no-op.
	ErrCitaCancelled = errors.New("cita is already cancelled")

	// ErrSlotUnavailable is returned when the requested slot overlaps an
	// existing cita or falls outside the working hours window.
	ErrSlotUnavailable = errors.New("requested time slot is not available")
)

// Cita is a scheduled appointment tied to exactly one Lead. Besides the
// programada -> cancelada transition, citas are immutable: no edit, no
// reschedule, no hard delete.
type Cita struct {
	ID               int        `json:"id"`
	LeadID           int        `json:"leadId"`
	Fecha            string     `json:"fecha"`
	Hora             string     `json:"hora"`
	Duracion         int        `json:"duracion"`
	Notas            string     `json:"notas"`
	Estado           string     `json:"estado"`
	FechaCreacion    time.Time  `json:"fechaCreacion"`
	FechaCancelacion *time.Time `json:"fechaCancelacion,omitempty"`
}

// NewCita holds the caller-supplied fields for booking a cita. Fecha is
// YYYY-MM-DD and Hora is zero-padded 24-hour HH:MM; both formats, and
// Duracion being positive, are validated at the transport boundary.
type NewCita struct {
	LeadID   int    `json:"leadId"`
	Fecha    string `json:"fecha"`
	Hora     string `json:"hora"`
	Duracion int    `json:"duracion"`
	Notas    string `json:"notas"`
}

// CitaFilter narrows and pages a cita listing. Estado is an exact match.
// FechaInicio/FechaFin bound an inclusive calendar-date range; either may
// be empty. Page and Limit must be positive.
type CitaFilter struct {
	Estado      string
	FechaInicio string
	FechaFin    string
	Page        int
	Limit       int
}

// CitaPage is one window of a filtered cita listing.
type CitaPage struct {
	Citas       []Cita `json:"citas"`
	TotalCitas  int    `json:"totalCitas"`
	TotalPages  int    `json:"totalPages"`
	CurrentPage int    `json:"currentPage"`
}

type CitaService interface {
	Create(ctx context.Context, nc NewCita) (Cita, error)
	Cancel(ctx context.Context, id int) (Cita, error)
	List(ctx context.Context, filter CitaFilter) (CitaPage, error)
	AvailableSlots(ctx context.Context, fecha string) ([]string, error)
}
