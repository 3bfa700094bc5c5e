// Package datastore is the persistence layer for species, survey locations
// and observations.
//
// # Backends
//
// SQLite (default) and MySQL are supported through GORM. The Manager owns the
// connection and schema; the Store exposes typed primitives over it.
//
// # Error Handling
//
// Store methods return sentinel errors (ErrSpeciesNotFound, ErrLocationNotFound)
// wrapped in EnhancedErrors instead of leaking GORM errors. Storage failures
// carry CategoryDatabase.
//
// # Required Schema Constraints
//
// Get-or-create in the survey package relies on unique constraints for race
// safety:
//
//   - species: PRIMARY KEY(id), the external catalogue id
//   - survey_locations: UNIQUE(latitude, longitude)
//
// Inserts use ON CONFLICT DO NOTHING and report whether a row was written, so
// a lost race is detected without a constraint violation error.
package datastore
