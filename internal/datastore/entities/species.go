package entities

// Species is a taxon with its full classification. The primary key is the
// externally assigned catalogue id, never generated locally.
type Species struct {
	ID         int64  `gorm:"primaryKey;autoIncrement:false"`
	Name       string `gorm:"size:255;not null;index:idx_species_name"`
	Kingdom    string `gorm:"size:100;not null"`
	Phylum     string `gorm:"size:100;not null;index:idx_species_phylum"`
	Class      string `gorm:"column:species_class;size:100;not null"`
	Order      string `gorm:"column:order;size:100;not null"`
	Family     string `gorm:"size:100;not null"`
	Genus      string `gorm:"size:100;not null"`
	Authorship string `gorm:"column:scientific_name_authorship;size:255;not null"`
}

// TableName returns the table name for GORM
func (Species) TableName() string {
	return "species"
}
