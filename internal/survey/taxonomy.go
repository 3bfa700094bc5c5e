package survey

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/Samuel-Bradshaw/wcmc-solution/internal/datastore/entities"
	"github.com/Samuel-Bradshaw/wcmc-solution/internal/errors"
)

// SpeciesRecord is a taxonomic record as supplied by an import or a caller.
// ExternalID is either a plain integer or a colon-delimited identifier whose
// last segment is the integer id, e.g. "urn:lsid:marinespecies.org:taxname:145123".
type SpeciesRecord struct {
	ExternalID string
	Name       string
	Kingdom    string
	Phylum     string
	Class      string
	Order      string
	Family     string
	Genus      string
	Authorship string
}

// ParseSpeciesID extracts the integer species id from an external identifier.
func ParseSpeciesID(externalID string) (int64, error) {
	raw := strings.TrimSpace(externalID)
	if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return id, nil
	}
	if idx := strings.LastIndexByte(raw, ':'); idx >= 0 {
		if id, err := strconv.ParseInt(strings.TrimSpace(raw[idx+1:]), 10, 64); err == nil {
			return id, nil
		}
	}
	return 0, newError(ErrParse, errors.CategoryValidation, "parse_species_id",
		fmt.Sprintf("cannot parse species id from %q", externalID))
}

// entity builds the stored form of the record. Text is NFC-normalised so
// composed and decomposed spellings of the same name sort and compare equal.
func (r *SpeciesRecord) entity(id int64) *entities.Species {
	return &entities.Species{
		ID:         id,
		Name:       normalizeText(r.Name),
		Kingdom:    normalizeText(r.Kingdom),
		Phylum:     normalizeText(r.Phylum),
		Class:      normalizeText(r.Class),
		Order:      normalizeText(r.Order),
		Family:     normalizeText(r.Family),
		Genus:      normalizeText(r.Genus),
		Authorship: normalizeText(r.Authorship),
	}
}

func normalizeText(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}
