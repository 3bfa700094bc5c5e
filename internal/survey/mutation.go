package survey

import (
	"context"

	"github.com/Samuel-Bradshaw/wcmc-solution/internal/datastore"
	"github.com/Samuel-Bradshaw/wcmc-solution/internal/datastore/entities"
	"github.com/Samuel-Bradshaw/wcmc-solution/internal/errors"
	"github.com/Samuel-Bradshaw/wcmc-solution/internal/logger"
)

// SpeciesPatch lists the species fields that may be changed. Nil fields are
// left untouched.
type SpeciesPatch struct {
	Name *string
}

// PatchSpecies applies patch to the species with the given id and returns the
// updated record.
func (s *Service) PatchSpecies(ctx context.Context, id int64, patch SpeciesPatch) (*entities.Species, error) {
	var name string
	if patch.Name != nil {
		name = normalizeText(*patch.Name)
		if name == "" {
			return nil, invalidInput("patch_species", "name must not be empty")
		}
	}

	var updated *entities.Species
	err := s.store.Transaction(ctx, func(tx *datastore.Store) error {
		sp, err := tx.GetSpecies(ctx, id)
		if err != nil {
			return s.mapNotFound(err, "patch_species", id)
		}
		if patch.Name != nil {
			if err := tx.UpdateSpeciesName(ctx, id, name); err != nil {
				return err
			}
			sp.Name = name
		}
		updated = sp
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("species patched",
		logger.Int64("species_id", id),
		logger.Bool("name_changed", patch.Name != nil))
	return updated, nil
}

// DeleteSpecies removes a species and all of its observations. Locations are
// kept even when no observation references them any more.
func (s *Service) DeleteSpecies(ctx context.Context, id int64) error {
	removed, err := s.store.DeleteSpeciesCascade(ctx, id)
	if err != nil {
		return s.mapNotFound(err, "delete_species", id)
	}

	s.log.Info("species deleted",
		logger.Int64("species_id", id),
		logger.Int64("observations_removed", removed))
	return nil
}

// ReportObservation records that the species was seen at (latitude, longitude),
// creating the location if needed. Both writes commit together.
func (s *Service) ReportObservation(ctx context.Context, speciesID int64, latitude, longitude float64) (*Report, error) {
	report := &Report{}
	err := s.store.Transaction(ctx, func(tx *datastore.Store) error {
		sp, err := tx.GetSpecies(ctx, speciesID)
		if err != nil {
			return s.mapNotFound(err, "report_observation", speciesID)
		}

		loc, err := s.ResolveLocation(ctx, tx, latitude, longitude, nil)
		if err != nil {
			return err
		}

		obs := &entities.Observation{SpeciesID: sp.ID, LocationID: loc.ID}
		if err := tx.InsertObservation(ctx, obs); err != nil {
			return err
		}

		report.Species = *sp
		report.Location = *loc
		report.ObservationID = obs.ID
		report.ReportedAt = obs.CreatedAt
		return nil
	})
	if err != nil {
		return nil, err
	}
	if report.ReportedAt.IsZero() {
		report.ReportedAt = s.now()
	}

	s.log.Info("observation reported",
		logger.Int64("species_id", speciesID),
		logger.Uint("location_id", report.Location.ID),
		logger.Uint("observation_id", report.ObservationID))

	if s.sink != nil {
		s.sink.ObservationReported(ctx, report)
	}
	return report, nil
}

// mapNotFound turns a datastore not-found error into ErrNotFound for the species.
func (s *Service) mapNotFound(err error, operation string, speciesID int64) error {
	if errors.Is(err, datastore.ErrSpeciesNotFound) {
		return speciesNotFound(operation, speciesID)
	}
	return err
}
