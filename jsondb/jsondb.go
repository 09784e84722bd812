// Package jsondb persists the whole CRM dataset as a single flat JSON file.
// Every operation reads the entire file, works on the in-memory snapshot and
// writes the entire file back; a store-wide lock serializes each
// read-modify-write cycle so the availability check and the write that
// depends on it are atomic within the process.
package jsondb

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	crmcitas "github.com/phbpx/crm-citas"
)

// Store owns the database file. Share one Store between the services built
// on top of it; the embedded lock is what guards the file.
type Store struct {
	path string
	mu   sync.RWMutex
}

// database is the on-disk document, matching the layout the browser app's
// original backend used.
type database struct {
	Leads []crmcitas.Lead `json:"leads"`
	Citas []crmcitas.Cita `json:"citas"`
}

func NewStore(path string) *Store {
	return &Store{path: path}
}

// load reads and decodes the whole database file. A missing file is an
// empty database, not an error.
func (s *Store) load() (*database, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return &database{Leads: []crmcitas.Lead{}, Citas: []crmcitas.Cita{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading database file: %w", err)
	}

	var db database
	if err := json.Unmarshal(data, &db); err != nil {
		return nil, fmt.Errorf("decoding database file: %w", err)
	}
	return &db, nil
}

// save encodes and writes the whole database file. The document goes to a
// sibling temp file first and is renamed into place, so a crash mid-write
// cannot leave a truncated database behind.
func (s *Store) save(db *database) error {
	data, err := json.MarshalIndent(db, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding database: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+"-*.tmp")
	if err != nil {
		return fmt.Errorf("writing database file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing database file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing database file: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("writing database file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replacing database file: %w", err)
	}
	return nil
}

// nextLeadID and nextCitaID implement the max+1 allocation policy: ids grow
// monotonically and are never recycled, not even after a cancellation.
func nextLeadID(leads []crmcitas.Lead) int {
	max := 0
	for _, l := range leads {
		if l.ID > max {
			max = l.ID
		}
	}
	return max + 1
}

func nextCitaID(citas []crmcitas.Cita) int {
	max := 0
	for _, c := range citas {
		if c.ID > max {
			max = c.ID
		}
	}
	return max + 1
}

// normalizePaging falls back to the transport boundary's defaults for
// non-positive page or limit, so a direct caller cannot produce a negative
// window or divide by zero.
func normalizePaging(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}
	return page, limit
}

// pageBounds clamps the [start,end) window for a page/limit pair over n
// items. Page and limit must already be normalized.
func pageBounds(n, page, limit int) (int, int) {
	start := (page - 1) * limit
	if start > n {
		start = n
	}
	end := start + limit
	if end > n {
		end = n
	}
	return start, end
}

func totalPages(n, limit int) int {
	return (n + limit - 1) / limit
}
