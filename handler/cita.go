package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	crmcitas "github.com/phbpx/crm-citas"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
)

type CitaHandler struct {
	service         crmcitas.CitaService
	defaultDuracion int
	log             *otelzap.SugaredLogger
}

func NewCitaHandler(service crmcitas.CitaService, defaultDuracion int, log *otelzap.SugaredLogger) *CitaHandler {
	return &CitaHandler{
		service:         service,
		defaultDuracion: defaultDuracion,
		log:             log,
	}
}

// createCitaRequest uses a pointer for duracion to tell an omitted field
// (which takes the configured default) apart from an explicit zero, which
// is a client error.
type createCitaRequest struct {
	LeadID   int    `json:"leadId"`
	Fecha    string `json:"fecha"`
	Hora     string `json:"hora"`
	Duracion *int   `json:"duracion"`
	Notas    string `json:"notas"`
}

func (ch CitaHandler) Create(rw http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req createCitaRequest
	if err := decode(r, &req); err != nil {
		ch.log.Errorw("Create", "error", err.Error())
		respondErr(ctx, rw, http.StatusBadRequest, err)
		return
	}

	if req.LeadID == 0 || req.Fecha == "" || req.Hora == "" {
		respondErr(ctx, rw, http.StatusBadRequest, errors.New("leadId, fecha, and hora are required"))
		return
	}

	duracion := ch.defaultDuracion
	if req.Duracion != nil {
		duracion = *req.Duracion
	}
	if duracion <= 0 {
		respondErr(ctx, rw, http.StatusBadRequest, errors.New("duracion must be a positive number"))
		return
	}

	if !validFecha(req.Fecha) {
		respondErr(ctx, rw, http.StatusBadRequest, errors.New("invalid fecha format, use YYYY-MM-DD"))
		return
	}
	if !validHora(req.Hora) {
		respondErr(ctx, rw, http.StatusBadRequest, errors.New("invalid hora format, use HH:MM"))
		return
	}

	cita, err := ch.service.Create(ctx, crmcitas.NewCita{
		LeadID:   req.LeadID,
		Fecha:    req.Fecha,
		Hora:     req.Hora,
		Duracion: duracion,
		Notas:    req.Notas,
	})
	if err != nil {
		ch.log.Errorw("Create", "error", err.Error())
		switch {
		case errors.Is(err, crmcitas.ErrLeadNotFound):
			respondErr(ctx, rw, http.StatusNotFound, err)
		case errors.Is(err, crmcitas.ErrSlotUnavailable):
			respondErr(ctx, rw, http.StatusConflict, err)
		default:
			respondErr(ctx, rw, http.StatusInternalServerError, err)
		}
		return
	}

	respond(ctx, rw, http.StatusCreated, cita)
}

func (ch CitaHandler) List(rw http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	page, limit, err := pageParams(r)
	if err != nil {
		respondErr(ctx, rw, http.StatusBadRequest, err)
		return
	}

	q := r.URL.Query()
	filter := crmcitas.CitaFilter{
		Estado:      q.Get("estado"),
		FechaInicio: q.Get("fechaInicio"),
		FechaFin:    q.Get("fechaFin"),
		Page:        page,
		Limit:       limit,
	}

	if filter.FechaInicio != "" && !validFecha(filter.FechaInicio) {
		respondErr(ctx, rw, http.StatusBadRequest, errors.New("invalid fechaInicio format, use YYYY-MM-DD"))
		return
	}
	if filter.FechaFin != "" && !validFecha(filter.FechaFin) {
		respondErr(ctx, rw, http.StatusBadRequest, errors.New("invalid fechaFin format, use YYYY-MM-DD"))
		return
	}

	citas, err := ch.service.List(ctx, filter)
	if err != nil {
		ch.log.Errorw("List", "error", err.Error())
		respondErr(ctx, rw, http.StatusInternalServerError, err)
		return
	}

	respond(ctx, rw, http.StatusOK, citas)
}

func (ch CitaHandler) AvailableSlots(rw http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	fecha := r.URL.Query().Get("fecha")
	if fecha == "" {
		respondErr(ctx, rw, http.StatusBadRequest, errors.New("fecha query parameter is required"))
		return
	}
	if !validFecha(fecha) {
		respondErr(ctx, rw, http.StatusBadRequest, errors.New("invalid fecha format, use YYYY-MM-DD"))
		return
	}

	slots, err := ch.service.AvailableSlots(ctx, fecha)
	if err != nil {
		ch.log.Errorw("AvailableSlots", "error", err.Error())
		respondErr(ctx, rw, http.StatusInternalServerError, err)
		return
	}

	respond(ctx, rw, http.StatusOK, slots)
}

// Cancel marks a cita cancelada. Cancelling twice is a conflict, not a
// no-op.
func (ch CitaHandler) Cancel(rw http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		respondErr(ctx, rw, http.StatusBadRequest, errors.New("ID is not in its proper form"))
		return
	}

	cita, err := ch.service.Cancel(ctx, id)
	if err != nil {
		ch.log.Errorw("Cancel", "error", err.Error())
		switch {
		case errors.Is(err, crmcitas.ErrCitaNotFound):
			respondErr(ctx, rw, http.StatusNotFound, err)
		case errors.Is(err, crmcitas.ErrCitaCancelled):
			respondErr(ctx, rw, http.StatusConflict, err)
		default:
			respondErr(ctx, rw, http.StatusInternalServerError, err)
		}
		return
	}

	respond(ctx, rw, http.StatusOK, cita)
}
