package datastore

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Samuel-Bradshaw/wcmc-solution/internal/datastore/entities"
	"github.com/Samuel-Bradshaw/wcmc-solution/internal/errors"
)

const (
	tableSpecies      = "species"
	tableLocations    = "survey_locations"
	tableObservations = "species_locations"
)

// OperationRecorder receives per-operation outcomes and timings.
// *metrics.DatastoreMetrics implements it.
type OperationRecorder interface {
	RecordDbOperation(operation, table, status string)
	RecordDbOperationDuration(operation, table string, seconds float64)
	RecordDbOperationError(operation, table, errorType string)
	RecordTransaction(status string)
	RecordTransactionDuration(seconds float64)
}

// Store provides typed persistence primitives over a GORM connection.
// A Store handed to a Transaction callback is bound to that transaction.
// All methods are safe for concurrent use.
type Store struct {
	db      *gorm.DB
	metrics OperationRecorder
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithMetrics records operation metrics on every call.
func WithMetrics(recorder OperationRecorder) StoreOption {
	return func(s *Store) {
		s.metrics = recorder
	}
}

// NewStore creates a Store over db.
func NewStore(db *gorm.DB, opts ...StoreOption) *Store {
	s := &Store{db: db}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Transaction runs fn in a single database transaction. The transaction
// commits when fn returns nil and rolls back otherwise; fn's error is
// returned unchanged. Nested calls use savepoints.
func (s *Store) Transaction(ctx context.Context, fn func(tx *Store) error) error {
	if s.db == nil {
		return ErrNotInitialized
	}
	start := time.Now()

	err := s.db.WithContext(ctx).Transaction(func(gtx *gorm.DB) error {
		return fn(&Store{db: gtx, metrics: s.metrics})
	})

	if s.metrics != nil {
		status := "committed"
		if err != nil {
			status = "rolled_back"
		}
		s.metrics.RecordTransaction(status)
		s.metrics.RecordTransactionDuration(time.Since(start).Seconds())
	}

	if err == nil {
		return nil
	}
	var enhanced *errors.EnhancedError
	if errors.As(err, &enhanced) {
		return err
	}
	return dbError(err, "transaction", "-")
}

// GetSpecies returns the species with the given catalogue id.
func (s *Store) GetSpecies(ctx context.Context, id int64) (species *entities.Species, err error) {
	defer s.track("get", tableSpecies, time.Now(), &err)

	var sp entities.Species
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&sp).Error; err != nil {
		if isRecordNotFound(err) {
			return nil, notFoundError(ErrSpeciesNotFound, "get_species", id)
		}
		return nil, dbError(err, "get", tableSpecies)
	}
	return &sp, nil
}

// GetLocation returns the survey location with the given id.
func (s *Store) GetLocation(ctx context.Context, id uint) (location *entities.Location, err error) {
	defer s.track("get", tableLocations, time.Now(), &err)

	var loc entities.Location
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&loc).Error; err != nil {
		if isRecordNotFound(err) {
			return nil, notFoundError(ErrLocationNotFound, "get_location", id)
		}
		return nil, dbError(err, "get", tableLocations)
	}
	return &loc, nil
}

// FindLocationAt returns the location with exactly these coordinates.
func (s *Store) FindLocationAt(ctx context.Context, lat, lon float64) (location *entities.Location, err error) {
	defer s.track("find", tableLocations, time.Now(), &err)

	var loc entities.Location
	if err := s.db.WithContext(ctx).Scopes(LocationAt(lat, lon)).First(&loc).Error; err != nil {
		if isRecordNotFound(err) {
			return nil, notFoundError(ErrLocationNotFound, "find_location", [2]float64{lat, lon})
		}
		return nil, dbError(err, "find", tableLocations)
	}
	return &loc, nil
}

// QuerySpecies returns the species matching all predicates.
func (s *Store) QuerySpecies(ctx context.Context, preds ...Predicate) (result []entities.Species, err error) {
	defer s.track("query", tableSpecies, time.Now(), &err)

	var out []entities.Species
	if err := s.db.WithContext(ctx).Model(&entities.Species{}).Scopes(preds...).Find(&out).Error; err != nil {
		return nil, dbError(err, "query", tableSpecies)
	}
	return out, nil
}

// QueryLocations returns the survey locations matching all predicates.
func (s *Store) QueryLocations(ctx context.Context, preds ...Predicate) (result []entities.Location, err error) {
	defer s.track("query", tableLocations, time.Now(), &err)

	var out []entities.Location
	if err := s.db.WithContext(ctx).Model(&entities.Location{}).Scopes(preds...).Find(&out).Error; err != nil {
		return nil, dbError(err, "query", tableLocations)
	}
	return out, nil
}

// CountSpecies counts the species matching all predicates.
func (s *Store) CountSpecies(ctx context.Context, preds ...Predicate) (count int64, err error) {
	defer s.track("count", tableSpecies, time.Now(), &err)

	if err := s.db.WithContext(ctx).Model(&entities.Species{}).Scopes(preds...).Count(&count).Error; err != nil {
		return 0, dbError(err, "count", tableSpecies)
	}
	return count, nil
}

// CountObservations counts the observations matching all predicates.
func (s *Store) CountObservations(ctx context.Context, preds ...Predicate) (count int64, err error) {
	defer s.track("count", tableObservations, time.Now(), &err)

	if err := s.db.WithContext(ctx).Model(&entities.Observation{}).Scopes(preds...).Count(&count).Error; err != nil {
		return 0, dbError(err, "count", tableObservations)
	}
	return count, nil
}

// InsertSpecies inserts sp unless a species with the same id exists.
// created is false when the row was already present; sp is left unchanged.
func (s *Store) InsertSpecies(ctx context.Context, sp *entities.Species) (created bool, err error) {
	defer s.track("insert", tableSpecies, time.Now(), &err)

	result := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(sp)
	if result.Error != nil {
		return false, dbError(result.Error, "insert", tableSpecies)
	}
	return result.RowsAffected > 0, nil
}

// InsertLocation inserts loc unless a location with the same coordinates exists.
// On success loc.ID holds the generated id.
func (s *Store) InsertLocation(ctx context.Context, loc *entities.Location) (created bool, err error) {
	defer s.track("insert", tableLocations, time.Now(), &err)

	result := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(loc)
	if result.Error != nil {
		return false, dbError(result.Error, "insert", tableLocations)
	}
	return result.RowsAffected > 0, nil
}

// InsertObservation records obs. Both referenced rows must exist.
func (s *Store) InsertObservation(ctx context.Context, obs *entities.Observation) (err error) {
	defer s.track("insert", tableObservations, time.Now(), &err)

	if err := s.db.WithContext(ctx).Omit(clause.Associations).Create(obs).Error; err != nil {
		return dbError(err, "insert", tableObservations)
	}
	return nil
}

// UpdateSpeciesName sets the name of an existing species. Callers check
// existence first: MySQL reports zero affected rows for unchanged values.
func (s *Store) UpdateSpeciesName(ctx context.Context, id int64, name string) (err error) {
	defer s.track("update", tableSpecies, time.Now(), &err)

	if err := s.db.WithContext(ctx).Model(&entities.Species{}).Where("id = ?", id).Update("name", name).Error; err != nil {
		return dbError(err, "update", tableSpecies)
	}
	return nil
}

// DeleteSpeciesCascade removes a species and all its observations atomically
// and returns the number of observations removed. Locations are kept.
func (s *Store) DeleteSpeciesCascade(ctx context.Context, id int64) (removed int64, err error) {
	defer s.track("delete", tableSpecies, time.Now(), &err)

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		obs := tx.Where("species_id = ?", id).Delete(&entities.Observation{})
		if obs.Error != nil {
			return dbError(obs.Error, "delete", tableObservations)
		}
		removed = obs.RowsAffected

		sp := tx.Where("id = ?", id).Delete(&entities.Species{})
		if sp.Error != nil {
			return dbError(sp.Error, "delete", tableSpecies)
		}
		if sp.RowsAffected == 0 {
			return notFoundError(ErrSpeciesNotFound, "delete_species", id)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}

// Ping verifies the underlying connection.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return dbError(err, "ping", "connection")
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return dbError(err, "ping", "connection")
	}
	return nil
}

func (s *Store) track(operation, table string, start time.Time, errp *error) {
	if s.metrics == nil {
		return
	}
	status := "success"
	if err := *errp; err != nil {
		status = "error"
		if errors.IsNotFound(err) {
			status = "not_found"
		} else {
			s.metrics.RecordDbOperationError(operation, table, string(errors.CategoryFor(err)))
		}
	}
	s.metrics.RecordDbOperation(operation, table, status)
	s.metrics.RecordDbOperationDuration(operation, table, time.Since(start).Seconds())
}
