package mqtt

import (
	"time"

	"github.com/Samuel-Bradshaw/wcmc-solution/internal/survey"
)

// ObservationEvent is the payload published for each committed observation.
//
// Field names are part of the topic contract consumed by downstream subscribers.
type ObservationEvent struct {
	ObservationID uint      `json:"observation_id"`
	SpeciesID     int64     `json:"species_id"`
	SpeciesName   string    `json:"species_name"`
	LocationID    uint      `json:"location_id"`
	Latitude      float64   `json:"latitude"`
	Longitude     float64   `json:"longitude"`
	Locality      *string   `json:"locality,omitempty"`
	ReportedAt    time.Time `json:"reported_at"`
}

// NewObservationEvent flattens a survey report into an event.
func NewObservationEvent(report *survey.Report) ObservationEvent {
	return ObservationEvent{
		ObservationID: report.ObservationID,
		SpeciesID:     report.Species.ID,
		SpeciesName:   report.Species.Name,
		LocationID:    report.Location.ID,
		Latitude:      report.Location.Latitude,
		Longitude:     report.Location.Longitude,
		Locality:      report.Location.Locality,
		ReportedAt:    report.ReportedAt.UTC(),
	}
}
