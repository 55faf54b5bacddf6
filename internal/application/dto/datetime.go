package dto

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// LocalDateTimeLayout formato ISO sin zona usado por FechaHoraSalidaLlegada.
const LocalDateTimeLayout = "2006-01-02T15:04:05"

var dateTimeLayouts = []string{
	time.RFC3339Nano,
	LocalDateTimeLayout,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
}

// ParseDateTime acepta ISO 8601 con o sin zona y con "T" o espacio. El SAT registra la
// hora local de la ubicación, así que una zona explícita se descarta y se conserva la hora
// de reloj: 08:00-06:00 queda como 08:00 (en UTC, como toda hora sin zona).
func ParseDateTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return WallClock(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("fecha/hora inválida %q, se espera ISO 8601 (2006-01-02T15:04:05)", s)
}

// WallClock la misma hora de reloj de t, expresada en UTC.
func WallClock(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
}

// DateTime fecha y hora local de una ubicación (sin zona, como en el SAT).
type DateTime struct {
	time.Time
}

// UnmarshalJSON acepta los formatos de ParseDateTime.
func (d *DateTime) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("fecha/hora debe ser texto: %w", err)
	}
	if s == "" {
		d.Time = time.Time{}
		return nil
	}
	t, err := ParseDateTime(s)
	if err != nil {
		return err
	}
	d.Time = t
	return nil
}

// MarshalJSON siempre en LocalDateTimeLayout.
func (d DateTime) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Format(LocalDateTimeLayout))
}
