// Package scheduling implements the slot-availability engine: time-of-day
// arithmetic, the interval overlap predicate and slot enumeration over a
// snapshot of citas. It is pure; callers load the snapshot and persist
// results.
package scheduling

import (
	"fmt"
	"strconv"
	"strings"

	crmcitas "github.com/phbpx/crm-citas"
)

// Config is the working-hours regime the engine operates under. Bounds are
// minutes from midnight, with a closed window: a slot may start exactly at
// WorkStart and must end at or before WorkEnd.
type Config struct {
	WorkStart    int
	WorkEnd      int
	SlotDuration int
}

// NewConfig builds a Config from HH:MM bounds and a default slot duration
// in minutes.
func NewConfig(workStart, workEnd string, slotDuration int) (Config, error) {
	ws, err := TimeToMinutes(workStart)
	if err != nil {
		return Config{}, fmt.Errorf("work start: %w", err)
	}
	we, err := TimeToMinutes(workEnd)
	if err != nil {
		return Config{}, fmt.Errorf("work end: %w", err)
	}
	if we <= ws {
		return Config{}, fmt.Errorf("work end %s must be after work start %s", workEnd, workStart)
	}
	if slotDuration <= 0 {
		return Config{}, fmt.Errorf("slot duration must be positive, got %d", slotDuration)
	}
	return Config{WorkStart: ws, WorkEnd: we, SlotDuration: slotDuration}, nil
}

// TimeToMinutes parses a zero-padded 24-hour HH:MM clock value into minutes
// from midnight.
func TimeToMinutes(s string) (int, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return 0, fmt.Errorf("parsing time %q: want HH:MM", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("parsing time %q: want HH:MM", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("parsing time %q: want HH:MM", s)
	}
	return h*60 + m, nil
}

// MinutesToTime formats minutes from midnight as zero-padded HH:MM. It is
// the exact inverse of TimeToMinutes for 0 <= m < 1440.
func MinutesToTime(m int) string {
	return fmt.Sprintf("%02d:%02d", m/60, m%60)
}

// IsAvailable reports whether a cita of duracion minutes starting at hora on
// fecha would fit inside working hours without overlapping any existing
// non-cancelled cita on that date. Intervals are half-open, so a candidate
// touching an existing cita's boundary does not conflict. excludeID skips
// one cita from the conflict check (0 means none); it exists so a future
// reschedule can re-evaluate a cita against itself.
//
// This is the single source of conflict detection: creation and slot
// enumeration both go through it.
func (c Config) IsAvailable(citas []crmcitas.Cita, fecha, hora string, duracion, excludeID int) (bool, error) {
	reqStart, err := TimeToMinutes(hora)
	if err != nil {
		return false, err
	}
	reqEnd := reqStart + duracion

	if reqStart < c.WorkStart || reqEnd > c.WorkEnd {
		return false, nil
	}

	for _, cita := range citas {
		if cita.Fecha != fecha || cita.Estado == crmcitas.EstadoCancelada {
			continue
		}
		if excludeID != 0 && cita.ID == excludeID {
			continue
		}
		start, err := TimeToMinutes(cita.Hora)
		if err != nil {
			return false, fmt.Errorf("cita %d: %w", cita.ID, err)
		}
		end := start + cita.Duracion

		// [reqStart,reqEnd) overlaps [start,end) iff reqStart < end && reqEnd > start.
		if reqStart < end && reqEnd > start {
			return false, nil
		}
	}

	return true, nil
}

// AvailableSlots walks the working day from WorkStart in SlotDuration steps
// and returns the HH:MM start of every bookable slot on fecha, in order.
// Slots that would overrun WorkEnd are skipped.
//
// Enumeration always probes with the configured SlotDuration, independent of
// the duracion a caller later books: a listed slot is not guaranteed to fit
// a longer booking. This coarse granularity is the intended contract.
func (c Config) AvailableSlots(citas []crmcitas.Cita, fecha string) ([]string, error) {
	slots := []string{}
	for cur := c.WorkStart; cur < c.WorkEnd; cur += c.SlotDuration {
		if cur+c.SlotDuration > c.WorkEnd {
			continue
		}
		hora := MinutesToTime(cur)
		ok, err := c.IsAvailable(citas, fecha, hora, c.SlotDuration, 0)
		if err != nil {
			return nil, err
		}
		if ok {
			slots = append(slots, hora)
		}
	}
	return slots, nil
}
