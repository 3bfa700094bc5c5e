package reportclient

import (
	"cmp"
	"fmt"
	"io"
	"slices"
	"strings"
	"text/tabwriter"
)

// PhylumSummary lists the species of one phylum observed at the most locations.
type PhylumSummary struct {
	Kingdom   string   `json:"kingdom"`
	Phylum    string   `json:"phylum"`
	Species   []string `json:"most_observed_species"` // every species tied at the maximum
	Locations int      `json:"observed_locations_count"`
}

// Summarize groups species by phylum and keeps, for each phylum, the species
// with the highest location count. The kingdom is taken from the first species
// seen in the phylum. Results are sorted by kingdom, then phylum. Ties keep the
// order of the input.
func Summarize(species []Species, counts map[int64]int) []PhylumSummary {
	byPhylum := make(map[string]*PhylumSummary)
	var order []string

	for _, sp := range species {
		n := counts[sp.ID]
		s, ok := byPhylum[sp.Phylum]
		if !ok {
			s = &PhylumSummary{Kingdom: sp.Kingdom, Phylum: sp.Phylum, Locations: n}
			byPhylum[sp.Phylum] = s
			order = append(order, sp.Phylum)
		}
		switch {
		case n > s.Locations:
			s.Locations = n
			s.Species = []string{sp.Name}
		case n == s.Locations:
			s.Species = append(s.Species, sp.Name)
		}
	}

	result := make([]PhylumSummary, 0, len(order))
	for _, phylum := range order {
		result = append(result, *byPhylum[phylum])
	}
	slices.SortStableFunc(result, func(a, b PhylumSummary) int {
		return cmp.Or(cmp.Compare(a.Kingdom, b.Kingdom), cmp.Compare(a.Phylum, b.Phylum))
	})
	return result
}

// WriteTable prints the summary as an aligned text table.
func WriteTable(w io.Writer, rows []PhylumSummary) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if _, err := fmt.Fprintln(tw, "KINGDOM\tPHYLUM\tLOCATIONS\tMOST OBSERVED SPECIES"); err != nil {
		return err
	}
	for _, r := range rows {
		if _, err := fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n",
			r.Kingdom, r.Phylum, r.Locations, strings.Join(r.Species, ", ")); err != nil {
			return err
		}
	}
	return tw.Flush()
}
