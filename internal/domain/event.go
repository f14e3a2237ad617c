package domain

import (
	"bytes"
	"encoding/json"
)

// DateLayout is the ISO 8601 calendar date layout used for close-approach dates.
const DateLayout = "2006-01-02"

// RecordID is the opaque storage identifier. The upstream API emits an
// integer; other producers may send a string.
type RecordID string

// UnmarshalJSON accepts either a JSON string or a bare JSON number.
func (id *RecordID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = RecordID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*id = RecordID(n.String())
	return nil
}

// NeoRecord is one close-approach observation. It is immutable once received.
type NeoRecord struct {
	ID                RecordID `json:"id"`
	NeoID             string   `json:"neo_id,omitempty"`
	Name              string   `json:"name,omitempty"`
	CloseApproachDate string   `json:"close_approach_date"`
	DiameterKm        float64  `json:"diameter_km"`
	VelocityKmS       float64  `json:"velocity_km_s,omitempty"`
	MissDistanceAu    float64  `json:"miss_distance_au"`
	Hazardous         bool     `json:"hazardous"`
}

// Query narrows a bulk snapshot read. Empty dates are unbounded; both bounds
// are inclusive.
type Query struct {
	StartDate string
	EndDate   string
	Hazardous *bool
}

// Day returns a query matching a single calendar date.
func Day(date string) Query {
	return Query{StartDate: date, EndDate: date}
}

// Matches reports whether r satisfies q.
func (q Query) Matches(r NeoRecord) bool {
	if q.StartDate != "" && r.CloseApproachDate < q.StartDate {
		return false
	}
	if q.EndDate != "" && r.CloseApproachDate > q.EndDate {
		return false
	}
	if q.Hazardous != nil && r.Hazardous != *q.Hazardous {
		return false
	}
	return true
}
