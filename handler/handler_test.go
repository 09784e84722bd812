package handler_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	crmcitas "github.com/phbpx/crm-citas"
	"github.com/phbpx/crm-citas/handler"
	"github.com/phbpx/crm-citas/jsondb"
	"github.com/phbpx/crm-citas/scheduling"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

func newServer(t *testing.T) http.Handler {
	t.Helper()

	sched, err := scheduling.NewConfig("09:00", "18:00", 30)
	if err != nil {
		t.Fatalf("scheduling config: %v", err)
	}

	store := jsondb.NewStore(filepath.Join(t.TempDir(), "db.json"))
	log := otelzap.New(zap.NewNop()).Sugar()

	leadHandler := handler.NewLeadHandler(jsondb.NewLeadService(store), log)
	citaHandler := handler.NewCitaHandler(jsondb.NewCitaService(store, sched), sched.SlotDuration, log)

	r := chi.NewRouter()
	r.Route("/api", func(r chi.Router) {
		r.Route("/leads", func(r chi.Router) {
			r.Post("/", leadHandler.Create)
			r.Get("/", leadHandler.List)
			r.Get("/{id}", leadHandler.GetByID)
		})
		r.Route("/citas", func(r chi.Router) {
			r.Post("/", citaHandler.Create)
			r.Get("/", citaHandler.List)
			r.Get("/disponibles", citaHandler.AvailableSlots)
			r.Delete("/{id}", citaHandler.Cancel)
		})
	})
	return r
}

func do(t *testing.T, srv http.Handler, method, target string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encoding body: %v", err)
		}
	}

	req := httptest.NewRequest(method, target, &buf)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, into interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), into); err != nil {
		t.Fatalf("decoding response %q: %v", rec.Body.String(), err)
	}
}

func createLead(t *testing.T, srv http.Handler) crmcitas.Lead {
	t.Helper()

	rec := do(t, srv, http.MethodPost, "/api/leads", map[string]string{
		"nombre":   "Ana Garcia",
		"email":    fmt.Sprintf("%s@test.com", uuid.NewString()[:8]),
		"telefono": "555-0101",
		"empresa":  "Acme",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create lead: status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var lead crmcitas.Lead
	decodeBody(t, rec, &lead)
	return lead
}

func TestCreateLead(t *testing.T) {
	srv := newServer(t)

	lead := createLead(t, srv)
	if lead.ID != 1 {
		t.Errorf("id = %d, want 1", lead.ID)
	}

	rec := do(t, srv, http.MethodPost, "/api/leads", map[string]string{"nombre": "incomplete"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing fields: status = %d, want 400", rec.Code)
	}
}

func TestGetLeadByID(t *testing.T) {
	srv := newServer(t)
	lead := createLead(t, srv)

	rec := do(t, srv, http.MethodGet, fmt.Sprintf("/api/leads/%d", lead.ID), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	if rec := do(t, srv, http.MethodGet, "/api/leads/99", nil); rec.Code != http.StatusNotFound {
		t.Errorf("missing lead: status = %d, want 404", rec.Code)
	}
	if rec := do(t, srv, http.MethodGet, "/api/leads/abc", nil); rec.Code != http.StatusBadRequest {
		t.Errorf("malformed id: status = %d, want 400", rec.Code)
	}
}

func TestListLeads(t *testing.T) {
	srv := newServer(t)
	createLead(t, srv)
	createLead(t, srv)

	rec := do(t, srv, http.MethodGet, "/api/leads?empresa=acme", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var page crmcitas.LeadPage
	decodeBody(t, rec, &page)
	if page.TotalLeads != 2 || page.CurrentPage != 1 {
		t.Errorf("totals = %d/%d, want 2/1", page.TotalLeads, page.CurrentPage)
	}

	if rec := do(t, srv, http.MethodGet, "/api/leads?page=0", nil); rec.Code != http.StatusBadRequest {
		t.Errorf("page=0: status = %d, want 400", rec.Code)
	}
	if rec := do(t, srv, http.MethodGet, "/api/leads?limit=abc", nil); rec.Code != http.StatusBadRequest {
		t.Errorf("limit=abc: status = %d, want 400", rec.Code)
	}
}

func TestCreateCita(t *testing.T) {
	srv := newServer(t)
	lead := createLead(t, srv)

	rec := do(t, srv, http.MethodPost, "/api/citas", map[string]interface{}{
		"leadId":   lead.ID,
		"fecha":    "2024-08-15",
		"hora":     "09:00",
		"duracion": 30,
		"notas":    "primera visita",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var cita crmcitas.Cita
	decodeBody(t, rec, &cita)
	if cita.ID != 1 || cita.Estado != crmcitas.EstadoProgramada {
		t.Errorf("cita = %+v, want id 1 estado programada", cita)
	}

	// Same slot conflicts; the adjacent slot does not.
	rec = do(t, srv, http.MethodPost, "/api/citas", map[string]interface{}{
		"leadId": lead.ID, "fecha": "2024-08-15", "hora": "09:00", "duracion": 30,
	})
	if rec.Code != http.StatusConflict {
		t.Errorf("duplicate slot: status = %d, want 409", rec.Code)
	}
	rec = do(t, srv, http.MethodPost, "/api/citas", map[string]interface{}{
		"leadId": lead.ID, "fecha": "2024-08-15", "hora": "09:30", "duracion": 30,
	})
	if rec.Code != http.StatusCreated {
		t.Errorf("adjacent slot: status = %d, want 201", rec.Code)
	}
}

func TestCreateCitaDefaultsDuracion(t *testing.T) {
	srv := newServer(t)
	lead := createLead(t, srv)

	rec := do(t, srv, http.MethodPost, "/api/citas", map[string]interface{}{
		"leadId": lead.ID, "fecha": "2024-08-15", "hora": "09:00",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var cita crmcitas.Cita
	decodeBody(t, rec, &cita)
	if cita.Duracion != 30 {
		t.Errorf("duracion = %d, want 30", cita.Duracion)
	}
}

func TestCreateCitaValidation(t *testing.T) {
	srv := newServer(t)
	lead := createLead(t, srv)

	tests := []struct {
		name string
		body map[string]interface{}
		want int
	}{
		{"missing fields", map[string]interface{}{"fecha": "2024-08-15"}, http.StatusBadRequest},
		{"bad fecha", map[string]interface{}{"leadId": lead.ID, "fecha": "15/08/2024", "hora": "09:00"}, http.StatusBadRequest},
		{"impossible fecha", map[string]interface{}{"leadId": lead.ID, "fecha": "2024-13-40", "hora": "09:00"}, http.StatusBadRequest},
		{"bad hora", map[string]interface{}{"leadId": lead.ID, "fecha": "2024-08-15", "hora": "9am"}, http.StatusBadRequest},
		{"zero duracion", map[string]interface{}{"leadId": lead.ID, "fecha": "2024-08-15", "hora": "09:00", "duracion": 0}, http.StatusBadRequest},
		{"negative duracion", map[string]interface{}{"leadId": lead.ID, "fecha": "2024-08-15", "hora": "09:00", "duracion": -30}, http.StatusBadRequest},
		{"unknown lead", map[string]interface{}{"leadId": 42, "fecha": "2024-08-15", "hora": "09:00"}, http.StatusNotFound},
		{"before working hours", map[string]interface{}{"leadId": lead.ID, "fecha": "2024-08-15", "hora": "08:30"}, http.StatusConflict},
		{"runs past working hours", map[string]interface{}{"leadId": lead.ID, "fecha": "2024-08-15", "hora": "09:00", "duracion": 600}, http.StatusConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, srv, http.MethodPost, "/api/citas", tt.body)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d (body %s)", rec.Code, tt.want, rec.Body.String())
			}
		})
	}
}

func TestAvailableSlots(t *testing.T) {
	srv := newServer(t)
	lead := createLead(t, srv)

	rec := do(t, srv, http.MethodGet, "/api/citas/disponibles?fecha=2024-08-15", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var slots []string
	decodeBody(t, rec, &slots)
	if len(slots) != 18 || slots[0] != "09:00" || slots[17] != "17:30" {
		t.Fatalf("slots = %v, want 18 from 09:00 to 17:30", slots)
	}

	do(t, srv, http.MethodPost, "/api/citas", map[string]interface{}{
		"leadId": lead.ID, "fecha": "2024-08-15", "hora": "10:00", "duracion": 30,
	})

	rec = do(t, srv, http.MethodGet, "/api/citas/disponibles?fecha=2024-08-15", nil)
	decodeBody(t, rec, &slots)
	if len(slots) != 17 {
		t.Errorf("slots after booking = %d, want 17", len(slots))
	}

	if rec := do(t, srv, http.MethodGet, "/api/citas/disponibles", nil); rec.Code != http.StatusBadRequest {
		t.Errorf("missing fecha: status = %d, want 400", rec.Code)
	}
	if rec := do(t, srv, http.MethodGet, "/api/citas/disponibles?fecha=soon", nil); rec.Code != http.StatusBadRequest {
		t.Errorf("bad fecha: status = %d, want 400", rec.Code)
	}
}

func TestCancelCita(t *testing.T) {
	srv := newServer(t)
	lead := createLead(t, srv)

	rec := do(t, srv, http.MethodPost, "/api/citas", map[string]interface{}{
		"leadId": lead.ID, "fecha": "2024-08-15", "hora": "09:00", "duracion": 30,
	})
	var cita crmcitas.Cita
	decodeBody(t, rec, &cita)

	rec = do(t, srv, http.MethodDelete, fmt.Sprintf("/api/citas/%d", cita.ID), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("cancel: status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var cancelled crmcitas.Cita
	decodeBody(t, rec, &cancelled)
	if cancelled.Estado != crmcitas.EstadoCancelada || cancelled.FechaCancelacion == nil {
		t.Errorf("cancelled = %+v, want estado cancelada with fechaCancelacion", cancelled)
	}

	if rec := do(t, srv, http.MethodDelete, fmt.Sprintf("/api/citas/%d", cita.ID), nil); rec.Code != http.StatusConflict {
		t.Errorf("re-cancel: status = %d, want 409", rec.Code)
	}
	if rec := do(t, srv, http.MethodDelete, "/api/citas/99", nil); rec.Code != http.StatusNotFound {
		t.Errorf("missing cita: status = %d, want 404", rec.Code)
	}
	if rec := do(t, srv, http.MethodDelete, "/api/citas/abc", nil); rec.Code != http.StatusBadRequest {
		t.Errorf("malformed id: status = %d, want 400", rec.Code)
	}
}

func TestListCitas(t *testing.T) {
	srv := newServer(t)
	lead := createLead(t, srv)

	for _, c := range []struct{ fecha, hora string }{
		{"2024-08-14", "09:00"},
		{"2024-08-15", "10:00"},
		{"2024-08-16", "11:00"},
	} {
		rec := do(t, srv, http.MethodPost, "/api/citas", map[string]interface{}{
			"leadId": lead.ID, "fecha": c.fecha, "hora": c.hora, "duracion": 30,
		})
		if rec.Code != http.StatusCreated {
			t.Fatalf("seed %s: status = %d", c.fecha, rec.Code)
		}
	}
	do(t, srv, http.MethodDelete, "/api/citas/1", nil)

	rec := do(t, srv, http.MethodGet, "/api/citas?estado=programada&fechaInicio=2024-08-15&fechaFin=2024-08-16", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var page crmcitas.CitaPage
	decodeBody(t, rec, &page)
	if page.TotalCitas != 2 || page.TotalPages != 1 {
		t.Errorf("totals = %d/%d, want 2/1", page.TotalCitas, page.TotalPages)
	}

	if rec := do(t, srv, http.MethodGet, "/api/citas?fechaInicio=nope", nil); rec.Code != http.StatusBadRequest {
		t.Errorf("bad fechaInicio: status = %d, want 400", rec.Code)
	}
}
