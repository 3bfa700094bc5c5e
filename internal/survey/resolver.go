package survey

import (
	"context"
	"fmt"
	"math"

	"github.com/Samuel-Bradshaw/wcmc-solution/internal/datastore"
	"github.com/Samuel-Bradshaw/wcmc-solution/internal/datastore/entities"
	"github.com/Samuel-Bradshaw/wcmc-solution/internal/errors"
	"github.com/Samuel-Bradshaw/wcmc-solution/internal/logger"
)

// ResolveLocation returns the location at exactly (latitude, longitude),
// creating it with the given locality if none exists. The locality of an
// existing location is never changed. The write happens in tx, which may be
// nil to run outside a caller transaction.
func (s *Service) ResolveLocation(ctx context.Context, tx *datastore.Store, latitude, longitude float64, locality *string) (*entities.Location, error) {
	if !isFinite(latitude) || !isFinite(longitude) {
		return nil, invalidInput("resolve_location", "coordinates must be finite numbers")
	}
	store := s.storeFor(tx)

	loc, err := store.FindLocationAt(ctx, latitude, longitude)
	if err == nil {
		return loc, nil
	}
	if !errors.Is(err, datastore.ErrLocationNotFound) {
		return nil, err
	}

	created := &entities.Location{
		Latitude:  latitude,
		Longitude: longitude,
		Locality:  cloneString(locality),
	}
	inserted, err := store.InsertLocation(ctx, created)
	if err != nil {
		return nil, err
	}
	if inserted {
		s.log.Debug("survey location created",
			logger.Uint("location_id", created.ID),
			logger.Float64("latitude", latitude),
			logger.Float64("longitude", longitude))
		return created, nil
	}

	// A concurrent writer created the same coordinates first.
	loc, err = store.FindLocationAt(ctx, latitude, longitude)
	if errors.Is(err, datastore.ErrLocationNotFound) {
		return nil, newError(ErrConflict, errors.CategoryConflict, "resolve_location",
			fmt.Sprintf("location (%v, %v) was created concurrently", latitude, longitude))
	}
	return loc, err
}

// ResolveSpecies returns the species with the record's id, creating it from
// the record if none exists. An existing species is returned unchanged even if
// the supplied taxonomy differs. The write happens in tx, which may be nil.
func (s *Service) ResolveSpecies(ctx context.Context, tx *datastore.Store, record *SpeciesRecord) (*entities.Species, error) {
	if record == nil {
		return nil, invalidInput("resolve_species", "species record is required")
	}
	id, err := ParseSpeciesID(record.ExternalID)
	if err != nil {
		return nil, err
	}
	store := s.storeFor(tx)

	sp, err := store.GetSpecies(ctx, id)
	if err == nil {
		return sp, nil
	}
	if !errors.Is(err, datastore.ErrSpeciesNotFound) {
		return nil, err
	}

	created := record.entity(id)
	if created.Name == "" {
		return nil, invalidInput("resolve_species", "species %d has no name", id)
	}
	inserted, err := store.InsertSpecies(ctx, created)
	if err != nil {
		return nil, err
	}
	if inserted {
		s.log.Debug("species created",
			logger.Int64("species_id", id),
			logger.String("name", created.Name))
		return created, nil
	}

	// A concurrent writer created the same id first.
	sp, err = store.GetSpecies(ctx, id)
	if errors.Is(err, datastore.ErrSpeciesNotFound) {
		return nil, newError(ErrConflict, errors.CategoryConflict, "resolve_species",
			fmt.Sprintf("species %d was created concurrently", id))
	}
	return sp, err
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
