package api

import (
	"github.com/Samuel-Bradshaw/wcmc-solution/internal/datastore/entities"
	"github.com/Samuel-Bradshaw/wcmc-solution/internal/survey"
)

// SpeciesDTO is the JSON representation of a species.
type SpeciesDTO struct {
	ID                       int64  `json:"id"`
	Name                     string `json:"name"`
	Kingdom                  string `json:"kingdom"`
	Phylum                   string `json:"phylum"`
	SpeciesClass             string `json:"species_class"`
	Order                    string `json:"order"`
	Family                   string `json:"family"`
	Genus                    string `json:"genus"`
	ScientificNameAuthorship string `json:"scientific_name_authorship"`
}

// LocationDTO is a survey location in listings; locality is omitted when unknown.
type LocationDTO struct {
	ID        uint    `json:"id"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Locality  *string `json:"locality,omitempty"`
}

// SurveyLocationDTO is a survey location in a report response; locality is
// always present and null when unknown.
type SurveyLocationDTO struct {
	ID        uint    `json:"id"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Locality  *string `json:"locality"`
}

// PaginatedResponse is one page of the species listing.
type PaginatedResponse struct {
	Page     int          `json:"page"`
	PageSize int          `json:"page_size"`
	LastPage int          `json:"last_page"`
	Data     []SpeciesDTO `json:"data"`
}

// SpeciesLocationResponse is returned after an observation is reported.
type SpeciesLocationResponse struct {
	Species        SpeciesDTO        `json:"species"`
	SurveyLocation SurveyLocationDTO `json:"survey_location"`
}

// SpeciesPatchRequest is the PATCH /species/{id} body.
type SpeciesPatchRequest struct {
	Name *string `json:"name"`
}

// SpeciesLocationCreate is the POST /species/{id}/locations body.
type SpeciesLocationCreate struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

func newSpeciesDTO(sp *entities.Species) SpeciesDTO {
	return SpeciesDTO{
		ID:                       sp.ID,
		Name:                     sp.Name,
		Kingdom:                  sp.Kingdom,
		Phylum:                   sp.Phylum,
		SpeciesClass:             sp.Class,
		Order:                    sp.Order,
		Family:                   sp.Family,
		Genus:                    sp.Genus,
		ScientificNameAuthorship: sp.Authorship,
	}
}

func newSpeciesDTOs(species []entities.Species) []SpeciesDTO {
	out := make([]SpeciesDTO, 0, len(species))
	for i := range species {
		out = append(out, newSpeciesDTO(&species[i]))
	}
	return out
}

func newLocationDTOs(locations []entities.Location) []LocationDTO {
	out := make([]LocationDTO, 0, len(locations))
	for i := range locations {
		loc := &locations[i]
		out = append(out, LocationDTO{
			ID:        loc.ID,
			Latitude:  loc.Latitude,
			Longitude: loc.Longitude,
			Locality:  loc.Locality,
		})
	}
	return out
}

func newSpeciesLocationResponse(report *survey.Report) SpeciesLocationResponse {
	return SpeciesLocationResponse{
		Species: newSpeciesDTO(&report.Species),
		SurveyLocation: SurveyLocationDTO{
			ID:        report.Location.ID,
			Latitude:  report.Location.Latitude,
			Longitude: report.Location.Longitude,
			Locality:  report.Location.Locality,
		},
	}
}
