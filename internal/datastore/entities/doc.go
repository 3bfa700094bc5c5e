// Package entities defines the GORM entity models for the survey schema.
//
// # Core Entities
//
//   - Species: Taxa keyed by their external catalogue id (WoRMS AphiaID)
//   - Location: Survey sites, unique by exact (latitude, longitude)
//   - Observation: A species recorded at a location (table species_locations)
//
// Species and locations are never duplicated: both carry unique constraints
// on their natural keys and are resolved through get-or-create.
package entities
