package emergency

import (
	"time"

	"github.com/google/uuid"
)

const (
	StatusActive   = "active"
	StatusResolved = "resolved"
)

// Location is a reported position. Accuracy and address are optional: the
// reporting device may not resolve either before the alert goes out.
type Location struct {
	Latitude       float64  `json:"latitude"`
	Longitude      float64  `json:"longitude"`
	AccuracyMeters *float64 `json:"accuracy_meters,omitempty"`
	Address        *string  `json:"address,omitempty"`
}

// Record is a single emergency report.
type Record struct {
	ID         uuid.UUID  `json:"id"`
	ReporterID string     `json:"reporter_id"`
	Location   Location   `json:"location"`
	Status     string     `json:"status"`
	ReportedAt time.Time  `json:"reported_at"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
	ResolvedBy *string    `json:"resolved_by,omitempty"`
}

func (r *Record) Active() bool { return r.Status == StatusActive }
