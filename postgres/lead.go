package postgres

import (
	"context"
	"database/sql"
	"time"

	crmcitas "github.com/phbpx/crm-citas"
)

type LeadService struct {
	db *sql.DB
}

func NewLeadService(db *sql.DB) crmcitas.LeadService {
	return &LeadService{
		db: db,
	}
}

func (ls LeadService) Create(ctx context.Context, nl crmcitas.NewLead) (crmcitas.Lead, error) {
	tx, err := ls.db.BeginTx(ctx, nil)
	if err != nil {
		return crmcitas.Lead{}, err
	}
	defer tx.Rollback()

	lead := crmcitas.Lead{
		Nombre:        nl.Nombre,
		Email:         nl.Email,
		Telefono:      nl.Telefono,
		Empresa:       nl.Empresa,
		FechaRegistro: time.Now().UTC().Format("2006-01-02"),
	}

	// max+1 allocation, same policy as the flat-file store. The insert and
	// the id computation share one transaction.
	row := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(id), 0) + 1 FROM leads`)
	if err := row.Scan(&lead.ID); err != nil {
		return crmcitas.Lead{}, err
	}

	query := `
	INSERT INTO leads (
		id, nombre, email, telefono, empresa, fecha_registro
	) VALUES (
		$1, $2, $3, $4, $5, $6
	)`

	_, err = tx.ExecContext(ctx, query,
		lead.ID,
		lead.Nombre,
		lead.Email,
		lead.Telefono,
		lead.Empresa,
		lead.FechaRegistro,
	)
	if err != nil {
		return crmcitas.Lead{}, err
	}

	if err := tx.Commit(); err != nil {
		return crmcitas.Lead{}, err
	}
	return lead, nil
}

func (ls LeadService) List(ctx context.Context, filter crmcitas.LeadFilter) (crmcitas.LeadPage, error) {
	page, limit := normalizePaging(filter.Page, filter.Limit)

	where := `
	WHERE ($1 = '' OR nombre ILIKE '%' || $1 || '%')
	  AND ($2 = '' OR empresa ILIKE '%' || $2 || '%')`

	var total int
	row := ls.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM leads`+where, filter.Nombre, filter.Empresa)
	if err := row.Scan(&total); err != nil {
		return crmcitas.LeadPage{}, err
	}

	query := `
	SELECT
		id,
		nombre,
		email,
		telefono,
		empresa,
		fecha_registro
	FROM leads` + where + `
	ORDER BY id
	LIMIT $3 OFFSET $4`

	rows, err := ls.db.QueryContext(ctx, query,
		filter.Nombre,
		filter.Empresa,
		limit,
		(page-1)*limit,
	)
	if err != nil {
		return crmcitas.LeadPage{}, err
	}
	defer rows.Close()

	leads := []crmcitas.Lead{}
	for rows.Next() {
		var l crmcitas.Lead
		if err := rows.Scan(&l.ID, &l.Nombre, &l.Email, &l.Telefono, &l.Empresa, &l.FechaRegistro); err != nil {
			return crmcitas.LeadPage{}, err
		}
		leads = append(leads, l)
	}
	if err := rows.Err(); err != nil {
		return crmcitas.LeadPage{}, err
	}

	return crmcitas.LeadPage{
		Leads:       leads,
		TotalLeads:  total,
		TotalPages:  totalPages(total, limit),
		CurrentPage: page,
	}, nil
}

func (ls LeadService) GetByID(ctx context.Context, id int) (crmcitas.Lead, error) {
	query := `
	SELECT
		id,
		nombre,
		email,
		telefono,
		empresa,
		fecha_registro
	FROM leads
	WHERE id = $1`

	row := ls.db.QueryRowContext(ctx, query, id)

	lead := crmcitas.Lead{}
	err := row.Scan(
		&lead.ID,
		&lead.Nombre,
		&lead.Email,
		&lead.Telefono,
		&lead.Empresa,
		&lead.FechaRegistro,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return lead, crmcitas.ErrLeadNotFound
		}
		return lead, err
	}

	return lead, nil
}
