package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var (
	fechaFormat = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	horaFormat  = regexp.MustCompile(`^\d{2}:\d{2}$`)
)

// validFecha accepts zero-padded YYYY-MM-DD strings naming real calendar
// dates. Everything behind the boundary assumes fechas parse.
func validFecha(s string) bool {
	if !fechaFormat.MatchString(s) {
		return false
	}
	_, err := time.Parse("2006-01-02", s)
	return err == nil
}

// validHora accepts zero-padded HH:MM strings. Out-of-clock values such as
// 25:00 are left to the availability check, which rejects them as outside
// working hours.
func validHora(s string) bool {
	return horaFormat.MatchString(s)
}

// pageParams reads page/limit from the query string, defaulting to 1 and 10.
// Non-numeric or non-positive values are a client error.
func pageParams(r *http.Request) (page, limit int, err error) {
	page, limit = 1, 10

	if v := r.URL.Query().Get("page"); v != "" {
		page, err = strconv.Atoi(v)
		if err != nil || page < 1 {
			return 0, 0, errors.New("page must be a positive integer")
		}
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		limit, err = strconv.Atoi(v)
		if err != nil || limit < 1 {
			return 0, 0, errors.New("limit must be a positive integer")
		}
	}
	return page, limit, nil
}

func decode(r *http.Request, into interface{}) error {
	rawJson, err := io.ReadAll(r.Body)
	if err != nil {
		return err
	}
	return json.Unmarshal(rawJson, into)
}

func respond(ctx context.Context, rw http.ResponseWriter, status int, data interface{}) {
	ctx, span := otel.GetTracerProvider().Tracer("").Start(ctx, "handler.respond")
	span.SetAttributes(attribute.Int("http.status", status))
	defer span.End()

	if status == http.StatusNoContent || data == nil {
		rw.WriteHeader(status)
		return
	}

	rawJson, err := json.Marshal(data)
	if err != nil {
		panic("respond-json-marshal:" + err.Error())
	}

	rw.Header().Add("Content-Type", "application/json")
	rw.WriteHeader(status)
	rw.Write(rawJson)
}

func respondErr(ctx context.Context, rw http.ResponseWriter, status int, err error) {
	respond(ctx, rw, status, map[string]string{
		"code":  http.StatusText(status),
		"error": err.Error(),
	})
}
