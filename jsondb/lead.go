package jsondb

import (
	"context"
	"strings"
	"time"

	crmcitas "github.com/phbpx/crm-citas"
)

type LeadService struct {
	store *Store
}

func NewLeadService(store *Store) crmcitas.LeadService {
	return &LeadService{store: store}
}

func (ls *LeadService) Create(ctx context.Context, nl crmcitas.NewLead) (crmcitas.Lead, error) {
	ls.store.mu.Lock()
	defer ls.store.mu.Unlock()

	db, err := ls.store.load()
	if err != nil {
		return crmcitas.Lead{}, err
	}

	lead := crmcitas.Lead{
		ID:            nextLeadID(db.Leads),
		Nombre:        nl.Nombre,
		Email:         nl.Email,
		Telefono:      nl.Telefono,
		Empresa:       nl.Empresa,
		FechaRegistro: time.Now().UTC().Format("2006-01-02"),
	}

	db.Leads = append(db.Leads, lead)
	if err := ls.store.save(db); err != nil {
		return crmcitas.Lead{}, err
	}

	return lead, nil
}

func (ls *LeadService) List(ctx context.Context, filter crmcitas.LeadFilter) (crmcitas.LeadPage, error) {
	ls.store.mu.RLock()
	defer ls.store.mu.RUnlock()

	db, err := ls.store.load()
	if err != nil {
		return crmcitas.LeadPage{}, err
	}

	filtered := make([]crmcitas.Lead, 0, len(db.Leads))
	for _, l := range db.Leads {
		if filter.Nombre != "" && !containsFold(l.Nombre, filter.Nombre) {
			continue
		}
		if filter.Empresa != "" && !containsFold(l.Empresa, filter.Empresa) {
			continue
		}
		filtered = append(filtered, l)
	}

	page, limit := normalizePaging(filter.Page, filter.Limit)
	start, end := pageBounds(len(filtered), page, limit)

	return crmcitas.LeadPage{
		Leads:       filtered[start:end],
		TotalLeads:  len(filtered),
		TotalPages:  totalPages(len(filtered), limit),
		CurrentPage: page,
	}, nil
}

func (ls *LeadService) GetByID(ctx context.Context, id int) (crmcitas.Lead, error) {
	ls.store.mu.RLock()
	defer ls.store.mu.RUnlock()

	db, err := ls.store.load()
	if err != nil {
		return crmcitas.Lead{}, err
	}

	for _, l := range db.Leads {
		if l.ID == id {
			return l, nil
		}
	}
	return crmcitas.Lead{}, crmcitas.ErrLeadNotFound
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
