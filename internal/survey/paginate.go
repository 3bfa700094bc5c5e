package survey

import (
	"context"

	"github.com/Samuel-Bradshaw/wcmc-solution/internal/datastore"
	"github.com/Samuel-Bradshaw/wcmc-solution/internal/datastore/entities"
)

// Page size bounds accepted by ListSpecies.
const (
	MinPageSize = 1
	MaxPageSize = 100
)

// Page is one window of the name-ordered species listing.
type Page struct {
	Page     int
	PageSize int
	LastPage int
	Data     []entities.Species
}

// LastPage returns the index of the last populated page for count items.
// An empty listing still has page 0.
func LastPage(count int64, pageSize int) int {
	if count <= 0 || pageSize <= 0 {
		return 0
	}
	return int((count - 1) / int64(pageSize))
}

// ListSpecies returns page (zero based) of all species ordered by name, then id.
// A page past LastPage fails with ErrPageOutOfRange.
func (s *Service) ListSpecies(ctx context.Context, page, pageSize int) (*Page, error) {
	if pageSize < MinPageSize || pageSize > MaxPageSize {
		return nil, invalidInput("list_species", "page size must be between %d and %d", MinPageSize, MaxPageSize)
	}
	if page < 0 {
		return nil, invalidInput("list_species", "page must not be negative")
	}

	result := &Page{Page: page, PageSize: pageSize}
	err := s.store.Transaction(ctx, func(tx *datastore.Store) error {
		count, err := tx.CountSpecies(ctx)
		if err != nil {
			return err
		}
		result.LastPage = LastPage(count, pageSize)
		if page > result.LastPage {
			return pageOutOfRange(page)
		}

		result.Data, err = tx.QuerySpecies(ctx,
			datastore.OrderedByName(),
			datastore.Window(page*pageSize, pageSize))
		return err
	})
	if err != nil {
		return nil, err
	}
	if result.Data == nil {
		result.Data = []entities.Species{}
	}
	return result, nil
}
