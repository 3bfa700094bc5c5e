package entities

import "time"

// Observation records that a species was seen at a location.
// Removing a species removes its observations; a location that is still
// referenced cannot be removed.
type Observation struct {
	ID         uint      `gorm:"primaryKey"`
	SpeciesID  int64     `gorm:"not null;index:idx_species_locations_species"`
	LocationID uint      `gorm:"not null;index:idx_species_locations_location"`
	CreatedAt  time.Time `gorm:"autoCreateTime"`

	Species  *Species  `gorm:"foreignKey:SpeciesID;constraint:OnDelete:CASCADE"`
	Location *Location `gorm:"foreignKey:LocationID;constraint:OnDelete:RESTRICT"`
}

// TableName returns the table name for GORM
func (Observation) TableName() string {
	return "species_locations"
}

// All returns every entity in migration order.
func All() []any {
	return []any{&Species{}, &Location{}, &Observation{}}
}
