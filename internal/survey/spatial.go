package survey

import (
	"context"

	"github.com/Samuel-Bradshaw/wcmc-solution/internal/datastore"
	"github.com/Samuel-Bradshaw/wcmc-solution/internal/datastore/entities"
)

// SpeciesAtPoint returns the species observed at exactly (latitude, longitude),
// each once, ordered by first matching observation.
func (s *Service) SpeciesAtPoint(ctx context.Context, latitude, longitude float64) ([]entities.Species, error) {
	if !isFinite(latitude) || !isFinite(longitude) {
		return nil, invalidInput("species_at_point", "coordinates must be finite numbers")
	}
	return s.store.QuerySpecies(ctx, datastore.SpeciesAt(latitude, longitude))
}

// SpeciesWithinRadius returns the species observed at a location whose planar
// distance from (latitude, longitude) is at most radius degrees. The boundary
// is inclusive. A radius of zero or less falls back to SpeciesAtPoint.
func (s *Service) SpeciesWithinRadius(ctx context.Context, latitude, longitude, radius float64) ([]entities.Species, error) {
	if !isFinite(radius) {
		return nil, invalidInput("species_within_radius", "radius must be a finite number")
	}
	if radius <= 0 {
		return s.SpeciesAtPoint(ctx, latitude, longitude)
	}
	if !isFinite(latitude) || !isFinite(longitude) {
		return nil, invalidInput("species_within_radius", "coordinates must be finite numbers")
	}
	return s.store.QuerySpecies(ctx, datastore.SpeciesWithin(latitude, longitude, radius))
}

// SpeciesLocations returns the distinct locations where a species was
// observed, ordered by location id.
func (s *Service) SpeciesLocations(ctx context.Context, speciesID int64) ([]entities.Location, error) {
	var locations []entities.Location
	err := s.store.Transaction(ctx, func(tx *datastore.Store) error {
		if _, err := tx.GetSpecies(ctx, speciesID); err != nil {
			return s.mapNotFound(err, "species_locations", speciesID)
		}
		var err error
		locations, err = tx.QueryLocations(ctx, datastore.LocationsOfSpecies(speciesID))
		return err
	})
	if err != nil {
		return nil, err
	}
	return locations, nil
}
