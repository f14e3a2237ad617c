package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrMissingDate         = errors.New("missing close_approach_date")
	ErrInvalidDate         = errors.New("invalid close_approach_date")
	ErrMissingMissDistance = errors.New("missing miss_distance_au")
)

// wireRecord mirrors NeoRecord with pointer fields so absent values can be
// told apart from zero values.
type wireRecord struct {
	ID                RecordID `json:"id"`
	NeoID             string   `json:"neo_id"`
	Name              string   `json:"name"`
	CloseApproachDate *string  `json:"close_approach_date"`
	DiameterKm        *float64 `json:"diameter_km"`
	VelocityKmS       *float64 `json:"velocity_km_s"`
	MissDistanceAu    *float64 `json:"miss_distance_au"`
	Hazardous         bool     `json:"hazardous"`
}

// ParseRecord decodes one feed payload into a NeoRecord. A payload is
// rejected when it is not a JSON object, has no parseable
// close_approach_date, or has no miss_distance_au. Dates carrying a time
// component are truncated to the calendar date.
func ParseRecord(payload []byte) (NeoRecord, error) {
	var w wireRecord
	if err := json.Unmarshal(payload, &w); err != nil {
		return NeoRecord{}, fmt.Errorf("parse neo record: %w", err)
	}
	if w.CloseApproachDate == nil || strings.TrimSpace(*w.CloseApproachDate) == "" {
		return NeoRecord{}, ErrMissingDate
	}
	date, err := NormalizeDate(*w.CloseApproachDate)
	if err != nil {
		return NeoRecord{}, err
	}
	if w.MissDistanceAu == nil {
		return NeoRecord{}, ErrMissingMissDistance
	}

	rec := NeoRecord{
		ID:                w.ID,
		NeoID:             w.NeoID,
		Name:              w.Name,
		CloseApproachDate: date,
		MissDistanceAu:    *w.MissDistanceAu,
		Hazardous:         w.Hazardous,
	}
	if w.DiameterKm != nil {
		rec.DiameterKm = *w.DiameterKm
	}
	if w.VelocityKmS != nil {
		rec.VelocityKmS = *w.VelocityKmS
	}
	return rec, nil
}

// ParseRecords decodes a JSON array of records, skipping entries that fail
// ParseRecord. It returns the number of skipped entries alongside the records.
func ParseRecords(payload []byte) ([]NeoRecord, int, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, 0, fmt.Errorf("parse neo records: %w", err)
	}
	records := make([]NeoRecord, 0, len(raw))
	skipped := 0
	for _, item := range raw {
		rec, err := ParseRecord(item)
		if err != nil {
			skipped++
			continue
		}
		records = append(records, rec)
	}
	return records, skipped, nil
}

// NormalizeDate validates s as a calendar date and returns it in DateLayout.
// Timestamps such as "2024-04-26T00:00:00Z" are cut to their date part.
func NormalizeDate(s string) (string, error) {
	s = strings.TrimSpace(s)
	if len(s) > len(DateLayout) && (s[len(DateLayout)] == 'T' || s[len(DateLayout)] == ' ') {
		s = s[:len(DateLayout)]
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return t.Format(DateLayout), nil
}
