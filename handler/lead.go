package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	crmcitas "github.com/phbpx/crm-citas"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
)

type LeadHandler struct {
	service crmcitas.LeadService
	log     *otelzap.SugaredLogger
}

func NewLeadHandler(service crmcitas.LeadService, log *otelzap.SugaredLogger) *LeadHandler {
	return &LeadHandler{
		service: service,
		log:     log,
	}
}

func (lh LeadHandler) Create(rw http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var nl crmcitas.NewLead
	if err := decode(r, &nl); err != nil {
		lh.log.Errorw("Create", "error", err.Error())
		respondErr(ctx, rw, http.StatusBadRequest, err)
		return
	}

	if nl.Nombre == "" || nl.Email == "" || nl.Telefono == "" || nl.Empresa == "" {
		respondErr(ctx, rw, http.StatusBadRequest, errors.New("nombre, email, telefono, and empresa are required"))
		return
	}

	lead, err := lh.service.Create(ctx, nl)
	if err != nil {
		lh.log.Errorw("Create", "error", err.Error())
		respondErr(ctx, rw, http.StatusInternalServerError, err)
		return
	}

	respond(ctx, rw, http.StatusCreated, lead)
}

func (lh LeadHandler) List(rw http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	page, limit, err := pageParams(r)
	if err != nil {
		respondErr(ctx, rw, http.StatusBadRequest, err)
		return
	}

	filter := crmcitas.LeadFilter{
		Nombre:  r.URL.Query().Get("nombre"),
		Empresa: r.URL.Query().Get("empresa"),
		Page:    page,
		Limit:   limit,
	}

	leads, err := lh.service.List(ctx, filter)
	if err != nil {
		lh.log.Errorw("List", "error", err.Error())
		respondErr(ctx, rw, http.StatusInternalServerError, err)
		return
	}

	respond(ctx, rw, http.StatusOK, leads)
}

func (lh LeadHandler) GetByID(rw http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		respondErr(ctx, rw, http.StatusBadRequest, errors.New("ID is not in its proper form"))
		return
	}

	lead, err := lh.service.GetByID(ctx, id)
	if err != nil {
		lh.log.Errorw("GetByID", "error", err.Error())
		switch {
		case errors.Is(err, crmcitas.ErrLeadNotFound):
			respondErr(ctx, rw, http.StatusNotFound, err)
		default:
			respondErr(ctx, rw, http.StatusInternalServerError, err)
		}
		return
	}

	respond(ctx, rw, http.StatusOK, lead)
}
