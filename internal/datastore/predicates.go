package datastore

import "gorm.io/gorm"

// Predicate narrows a query. Predicates are GORM scopes and compose with AND.
type Predicate = func(*gorm.DB) *gorm.DB

// SpeciesAt matches species observed at exactly (lat, lon), once per species,
// ordered by their first matching observation.
func SpeciesAt(lat, lon float64) Predicate {
	return speciesObservedWhere(
		"survey_locations.latitude = ? AND survey_locations.longitude = ?",
		lat, lon)
}

// SpeciesWithin matches species observed at a location whose planar distance
// to (lat, lon) in degrees is at most radius. The comparison is done on
// squared distances so the boundary is inclusive without a sqrt.
func SpeciesWithin(lat, lon, radius float64) Predicate {
	return speciesObservedWhere(
		"(survey_locations.latitude - ?) * (survey_locations.latitude - ?)"+
			" + (survey_locations.longitude - ?) * (survey_locations.longitude - ?) <= ?",
		lat, lat, lon, lon, radius*radius)
}

func speciesObservedWhere(cond string, args ...any) Predicate {
	return func(db *gorm.DB) *gorm.DB {
		return db.
			Joins("JOIN species_locations ON species_locations.species_id = species.id").
			Joins("JOIN survey_locations ON survey_locations.id = species_locations.location_id").
			Where(cond, args...).
			Group("species.id").
			Order("MIN(species_locations.id)")
	}
}

// OrderedByName sorts species by name, then id for a stable page order.
func OrderedByName() Predicate {
	return func(db *gorm.DB) *gorm.DB {
		return db.Order("species.name ASC").Order("species.id ASC")
	}
}

// Window limits results to limit rows starting at offset.
func Window(offset, limit int) Predicate {
	return func(db *gorm.DB) *gorm.DB {
		return db.Offset(offset).Limit(limit)
	}
}

// LocationAt matches the survey location with exactly these coordinates.
func LocationAt(lat, lon float64) Predicate {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("survey_locations.latitude = ? AND survey_locations.longitude = ?", lat, lon)
	}
}

// LocationsOfSpecies matches the distinct locations where a species was
// observed, ordered by location id.
func LocationsOfSpecies(speciesID int64) Predicate {
	return func(db *gorm.DB) *gorm.DB {
		return db.
			Joins("JOIN species_locations ON species_locations.location_id = survey_locations.id").
			Where("species_locations.species_id = ?", speciesID).
			Group("survey_locations.id").
			Order("survey_locations.id ASC")
	}
}

// ObservationsOfSpecies matches the observations of one species.
func ObservationsOfSpecies(speciesID int64) Predicate {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("species_locations.species_id = ?", speciesID)
	}
}
