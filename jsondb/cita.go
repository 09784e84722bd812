package jsondb

import (
	"context"
	"fmt"
	"time"

	crmcitas "github.com/phbpx/crm-citas"
	"github.com/phbpx/crm-citas/scheduling"
)

type CitaService struct {
	store *Store
	sched scheduling.Config
}

func NewCitaService(store *Store, sched scheduling.Config) crmcitas.CitaService {
	return &CitaService{store: store, sched: sched}
}

func (cs *CitaService) Create(ctx context.Context, nc crmcitas.NewCita) (crmcitas.Cita, error) {
	cs.store.mu.Lock()
	defer cs.store.mu.Unlock()

	db, err := cs.store.load()
	if err != nil {
		return crmcitas.Cita{}, err
	}

	if !leadExists(db.Leads, nc.LeadID) {
		return crmcitas.Cita{}, crmcitas.ErrLeadNotFound
	}

	ok, err := cs.sched.IsAvailable(db.Citas, nc.Fecha, nc.Hora, nc.Duracion, 0)
	if err != nil {
		return crmcitas.Cita{}, err
	}
	if !ok {
		return crmcitas.Cita{}, crmcitas.ErrSlotUnavailable
	}

	cita := crmcitas.Cita{
		ID:            nextCitaID(db.Citas),
		LeadID:        nc.LeadID,
		Fecha:         nc.Fecha,
		Hora:          nc.Hora,
		Duracion:      nc.Duracion,
		Notas:         nc.Notas,
		Estado:        crmcitas.EstadoProgramada,
		FechaCreacion: time.Now().UTC(),
	}

	db.Citas = append(db.Citas, cita)
	if err := cs.store.save(db); err != nil {
		return crmcitas.Cita{}, err
	}

	return cita, nil
}

func (cs *CitaService) Cancel(ctx context.Context, id int) (crmcitas.Cita, error) {
	cs.store.mu.Lock()
	defer cs.store.mu.Unlock()

	db, err := cs.store.load()
	if err != nil {
		return crmcitas.Cita{}, err
	}

	for i := range db.Citas {
		if db.Citas[i].ID != id {
			continue
		}
		if db.Citas[i].Estado == crmcitas.EstadoCancelada {
			return crmcitas.Cita{}, crmcitas.ErrCitaCancelled
		}

		now := time.Now().UTC()
		db.Citas[i].Estado = crmcitas.EstadoCancelada
		db.Citas[i].FechaCancelacion = &now

		if err := cs.store.save(db); err != nil {
			return crmcitas.Cita{}, err
		}
		return db.Citas[i], nil
	}

	return crmcitas.Cita{}, crmcitas.ErrCitaNotFound
}

func (cs *CitaService) List(ctx context.Context, filter crmcitas.CitaFilter) (crmcitas.CitaPage, error) {
	cs.store.mu.RLock()
	defer cs.store.mu.RUnlock()

	db, err := cs.store.load()
	if err != nil {
		return crmcitas.CitaPage{}, err
	}

	var desde, hasta time.Time
	if filter.FechaInicio != "" {
		if desde, err = parseFecha(filter.FechaInicio); err != nil {
			return crmcitas.CitaPage{}, err
		}
	}
	if filter.FechaFin != "" {
		if hasta, err = parseFecha(filter.FechaFin); err != nil {
			return crmcitas.CitaPage{}, err
		}
	}

	filtered := make([]crmcitas.Cita, 0, len(db.Citas))
	for _, c := range db.Citas {
		if filter.Estado != "" && c.Estado != filter.Estado {
			continue
		}
		if filter.FechaInicio != "" || filter.FechaFin != "" {
			fecha, err := parseFecha(c.Fecha)
			if err != nil {
				return crmcitas.CitaPage{}, fmt.Errorf("cita %d: %w", c.ID, err)
			}
			// Inclusive calendar-date range on both ends.
			if filter.FechaInicio != "" && fecha.Before(desde) {
				continue
			}
			if filter.FechaFin != "" && fecha.After(hasta) {
				continue
			}
		}
		filtered = append(filtered, c)
	}

	page, limit := normalizePaging(filter.Page, filter.Limit)
	start, end := pageBounds(len(filtered), page, limit)

	return crmcitas.CitaPage{
		Citas:       filtered[start:end],
		TotalCitas:  len(filtered),
		TotalPages:  totalPages(len(filtered), limit),
		CurrentPage: page,
	}, nil
}

func (cs *CitaService) AvailableSlots(ctx context.Context, fecha string) ([]string, error) {
	cs.store.mu.RLock()
	defer cs.store.mu.RUnlock()

	db, err := cs.store.load()
	if err != nil {
		return nil, err
	}

	return cs.sched.AvailableSlots(db.Citas, fecha)
}

func leadExists(leads []crmcitas.Lead, id int) bool {
	for _, l := range leads {
		if l.ID == id {
			return true
		}
	}
	return false
}

func parseFecha(s string) (time.Time, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing fecha %q: want YYYY-MM-DD", s)
	}
	return t, nil
}
