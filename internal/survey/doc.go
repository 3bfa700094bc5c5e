// Package survey implements the consistency and query rules for species
// observations on top of the datastore.
//
// # Resolution
//
// ResolveLocation and ResolveSpecies are find-or-create operations keyed on
// natural keys: exact (latitude, longitude) for locations and the external
// catalogue id for species. Existing rows are returned unchanged (first write
// wins). Both run inside the caller's transaction so a batch of resolutions
// commits or rolls back together.
//
// Concurrent resolution of the same key is safe: inserts skip rows that a
// concurrent writer created first and the winner's row is read back.
//
// # Queries
//
// SpeciesAtPoint and SpeciesWithinRadius return each species once, in the
// order of its first matching observation. Distance is planar, in degrees.
// ListSpecies pages species by name.
//
// # Mutation
//
// PatchSpecies applies a closed SpeciesPatch, DeleteSpecies removes a species
// with its observations, and ReportObservation records a sighting in one
// transaction.
package survey
