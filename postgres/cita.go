package postgres

import (
	"context"
	"database/sql"
	"time"

	crmcitas "github.com/phbpx/crm-citas"
	"github.com/phbpx/crm-citas/scheduling"
)

type CitaService struct {
	db    *sql.DB
	sched scheduling.Config
}

func NewCitaService(db *sql.DB, sched scheduling.Config) crmcitas.CitaService {
	return &CitaService{
		db:    db,
		sched: sched,
	}
}

const citaColumns = `
	id,
	lead_id,
	fecha,
	hora,
	duracion,
	notas,
	estado,
	fecha_creacion,
	fecha_cancelacion`

func scanCita(row interface{ Scan(...interface{}) error }) (crmcitas.Cita, error) {
	var c crmcitas.Cita
	var cancelacion sql.NullTime
	err := row.Scan(
		&c.ID,
		&c.LeadID,
		&c.Fecha,
		&c.Hora,
		&c.Duracion,
		&c.Notas,
		&c.Estado,
		&c.FechaCreacion,
		&cancelacion,
	)
	if err != nil {
		return crmcitas.Cita{}, err
	}
	if cancelacion.Valid {
		c.FechaCancelacion = &cancelacion.Time
	}
	return c, nil
}

// Create checks lead existence and slot availability inside the same
// transaction that inserts the cita. The transaction alone is not enough:
// under READ COMMITTED two concurrent bookings can both pass the
// availability check before either commits, so an advisory lock on the
// fecha serializes the whole check-then-insert cycle per day.
func (cs CitaService) Create(ctx context.Context, nc crmcitas.NewCita) (crmcitas.Cita, error) {
	tx, err := cs.db.BeginTx(ctx, nil)
	if err != nil {
		return crmcitas.Cita{}, err
	}
	defer tx.Rollback()

	// Held until commit or rollback.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, nc.Fecha); err != nil {
		return crmcitas.Cita{}, err
	}

	var leadExists bool
	row := tx.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM leads WHERE id = $1)`, nc.LeadID)
	if err := row.Scan(&leadExists); err != nil {
		return crmcitas.Cita{}, err
	}
	if !leadExists {
		return crmcitas.Cita{}, crmcitas.ErrLeadNotFound
	}

	// Load the day's citas and run the availability check in memory. The
	// engine owns the overlap semantics; SQL only supplies the snapshot.
	snapshot, err := citasForFecha(ctx, tx, nc.Fecha)
	if err != nil {
		return crmcitas.Cita{}, err
	}

	ok, err := cs.sched.IsAvailable(snapshot, nc.Fecha, nc.Hora, nc.Duracion, 0)
	if err != nil {
		return crmcitas.Cita{}, err
	}
	if !ok {
		return crmcitas.Cita{}, crmcitas.ErrSlotUnavailable
	}

	cita := crmcitas.Cita{
		LeadID:        nc.LeadID,
		Fecha:         nc.Fecha,
		Hora:          nc.Hora,
		Duracion:      nc.Duracion,
		Notas:         nc.Notas,
		Estado:        crmcitas.EstadoProgramada,
		FechaCreacion: time.Now().UTC(),
	}

	row = tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(id), 0) + 1 FROM citas`)
	if err := row.Scan(&cita.ID); err != nil {
		return crmcitas.Cita{}, err
	}

	query := `
	INSERT INTO citas (
		id, lead_id, fecha, hora, duracion, notas, estado, fecha_creacion
	) VALUES (
		$1, $2, $3, $4, $5, $6, $7, $8
	)`

	_, err = tx.ExecContext(ctx, query,
		cita.ID,
		cita.LeadID,
		cita.Fecha,
		cita.Hora,
		cita.Duracion,
		cita.Notas,
		cita.Estado,
		cita.FechaCreacion,
	)
	if err != nil {
		return crmcitas.Cita{}, err
	}

	if err := tx.Commit(); err != nil {
		return crmcitas.Cita{}, err
	}
	return cita, nil
}

func (cs CitaService) Cancel(ctx context.Context, id int) (crmcitas.Cita, error) {
	tx, err := cs.db.BeginTx(ctx, nil)
	if err != nil {
		return crmcitas.Cita{}, err
	}
	defer tx.Rollback()

	cita, err := scanCita(tx.QueryRowContext(ctx, `SELECT`+citaColumns+` FROM citas WHERE id = $1`, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return crmcitas.Cita{}, crmcitas.ErrCitaNotFound
		}
		return crmcitas.Cita{}, err
	}
	if cita.Estado == crmcitas.EstadoCancelada {
		return crmcitas.Cita{}, crmcitas.ErrCitaCancelled
	}

	now := time.Now().UTC()
	_, err = tx.ExecContext(ctx,
		`UPDATE citas SET estado = $1, fecha_cancelacion = $2 WHERE id = $3`,
		crmcitas.EstadoCancelada, now, id,
	)
	if err != nil {
		return crmcitas.Cita{}, err
	}

	if err := tx.Commit(); err != nil {
		return crmcitas.Cita{}, err
	}

	cita.Estado = crmcitas.EstadoCancelada
	cita.FechaCancelacion = &now
	return cita, nil
}

func (cs CitaService) List(ctx context.Context, filter crmcitas.CitaFilter) (crmcitas.CitaPage, error) {
	page, limit := normalizePaging(filter.Page, filter.Limit)

	// Fechas are zero-padded ISO dates, so text comparison orders them
	// chronologically.
	where := `
	WHERE ($1 = '' OR estado = $1)
	  AND ($2 = '' OR fecha >= $2)
	  AND ($3 = '' OR fecha <= $3)`

	var total int
	row := cs.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM citas`+where,
		filter.Estado, filter.FechaInicio, filter.FechaFin)
	if err := row.Scan(&total); err != nil {
		return crmcitas.CitaPage{}, err
	}

	query := `
	SELECT` + citaColumns + `
	FROM citas` + where + `
	ORDER BY id
	LIMIT $4 OFFSET $5`

	rows, err := cs.db.QueryContext(ctx, query,
		filter.Estado,
		filter.FechaInicio,
		filter.FechaFin,
		limit,
		(page-1)*limit,
	)
	if err != nil {
		return crmcitas.CitaPage{}, err
	}
	defer rows.Close()

	citas := []crmcitas.Cita{}
	for rows.Next() {
		c, err := scanCita(rows)
		if err != nil {
			return crmcitas.CitaPage{}, err
		}
		citas = append(citas, c)
	}
	if err := rows.Err(); err != nil {
		return crmcitas.CitaPage{}, err
	}

	return crmcitas.CitaPage{
		Citas:       citas,
		TotalCitas:  total,
		TotalPages:  totalPages(total, limit),
		CurrentPage: page,
	}, nil
}

func (cs CitaService) AvailableSlots(ctx context.Context, fecha string) ([]string, error) {
	snapshot, err := citasForFecha(ctx, cs.db, fecha)
	if err != nil {
		return nil, err
	}
	return cs.sched.AvailableSlots(snapshot, fecha)
}

// normalizePaging falls back to the transport boundary's defaults for
// non-positive page or limit, so a direct caller cannot produce a negative
// offset or divide by zero.
func normalizePaging(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}
	return page, limit
}

func totalPages(n, limit int) int {
	return (n + limit - 1) / limit
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
}

func citasForFecha(ctx context.Context, q querier, fecha string) ([]crmcitas.Cita, error) {
	rows, err := q.QueryContext(ctx, `SELECT`+citaColumns+` FROM citas WHERE fecha = $1`, fecha)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	citas := []crmcitas.Cita{}
	for rows.Next() {
		c, err := scanCita(rows)
		if err != nil {
			return nil, err
		}
		citas = append(citas, c)
	}
	return citas, rows.Err()
}
