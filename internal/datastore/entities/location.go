package entities

// Location is a survey site. Coordinates are compared exactly; two locations
// never share the same (latitude, longitude) pair.
type Location struct {
	ID        uint    `gorm:"primaryKey"`
	Latitude  float64 `gorm:"not null;uniqueIndex:idx_survey_location_coords,priority:1"`
	Longitude float64 `gorm:"not null;uniqueIndex:idx_survey_location_coords,priority:2"`
	Locality  *string `gorm:"size:500"` // nil when unknown
}

// TableName returns the table name for GORM
func (Location) TableName() string {
	return "survey_locations"
}

// HasLocality reports whether a locality name was recorded.
func (l *Location) HasLocality() bool {
	return l.Locality != nil
}
