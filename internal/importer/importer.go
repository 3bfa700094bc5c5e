// Package importer loads survey CSV exports into the datastore.
//
// A file is imported atomically: every row resolves its location and species
// through the survey service and records one observation, all inside a single
// transaction. Any malformed row rolls the whole file back.
package importer

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/Samuel-Bradshaw/wcmc-solution/internal/datastore"
	"github.com/Samuel-Bradshaw/wcmc-solution/internal/datastore/entities"
	"github.com/Samuel-Bradshaw/wcmc-solution/internal/errors"
	"github.com/Samuel-Bradshaw/wcmc-solution/internal/logger"
	"github.com/Samuel-Bradshaw/wcmc-solution/internal/observability/metrics"
	"github.com/Samuel-Bradshaw/wcmc-solution/internal/survey"
)

const componentImporter = "importer"

// CSV column names.
const (
	ColLatitude   = "decimalLatitude"
	ColLongitude  = "decimalLongitude"
	ColLocality   = "locality"
	ColSpeciesID  = "scientificNameID"
	ColName       = "scientificName"
	ColKingdom    = "kingdom"
	ColPhylum     = "phylum"
	ColClass      = "class"
	ColOrder      = "order_"
	ColFamily     = "family"
	ColGenus      = "genus"
	ColAuthorship = "scientificNameAuthorship"
)

var requiredColumns = []string{
	ColLatitude, ColLongitude, ColLocality, ColSpeciesID, ColName, ColKingdom,
	ColPhylum, ColClass, ColOrder, ColFamily, ColGenus, ColAuthorship,
}

// Result summarises a committed import.
type Result struct {
	Source    string
	Rows      int
	Species   int // distinct species referenced
	Locations int // distinct locations referenced
	Duration  time.Duration
}

// Importer imports CSV survey data through a survey.Service.
type Importer struct {
	service  *survey.Service
	log      logger.Logger
	recorder metrics.Recorder
}

// Option configures an Importer.
type Option func(*Importer)

// WithLogger sets the importer logger.
func WithLogger(log logger.Logger) Option {
	return func(im *Importer) {
		if log != nil {
			im.log = log
		}
	}
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r metrics.Recorder) Option {
	return func(im *Importer) {
		if r != nil {
			im.recorder = r
		}
	}
}

// New creates an Importer.
func New(svc *survey.Service, opts ...Option) *Importer {
	im := &Importer{
		service:  svc,
		log:      logger.Global().Module(componentImporter),
		recorder: metrics.NewNoOpRecorder(),
	}
	for _, opt := range opts {
		opt(im)
	}
	return im
}

// Import reads CSV rows from r and commits them in one transaction.
// source only labels logs and the result.
func (im *Importer) Import(ctx context.Context, r io.Reader, source string) (result *Result, err error) {
	start := time.Now()
	log := im.log.WithContext(ctx).With(logger.String("source", source))

	defer func() {
		im.recorder.RecordDuration(metrics.OpImportBatch, time.Since(start).Seconds())
		if err != nil {
			im.recorder.RecordOperation(metrics.OpImportBatch, metrics.StatusError)
			im.recorder.RecordError(metrics.OpImportBatch, string(errors.CategoryFor(err)))
			log.Error("import rolled back", logger.Error(err))
			return
		}
		im.recorder.RecordOperation(metrics.OpImportBatch, metrics.StatusSuccess)
	}()

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, parseError(source, 1, "file is empty")
		}
		return nil, parseError(source, 1, err.Error())
	}
	cols, err := indexColumns(header)
	if err != nil {
		return nil, parseError(source, 1, err.Error())
	}

	result = &Result{Source: source}
	species := make(map[int64]struct{})
	locations := make(map[uint]struct{})

	err = im.service.Store().Transaction(ctx, func(tx *datastore.Store) error {
		for line := 2; ; line++ {
			if err := ctx.Err(); err != nil {
				return errors.New(err).
					Component(componentImporter).
					Category(errors.CategoryCancellation).
					Context("source", source).
					Build()
			}

			rec, err := reader.Read()
			if errors.Is(err, io.EOF) {
				return nil
			}
			if err != nil {
				return parseError(source, line, err.Error())
			}

			obs, err := im.importRow(ctx, tx, cols.row(rec), source, line)
			if err != nil {
				im.recorder.RecordOperation(metrics.OpImportRow, metrics.StatusError)
				return err
			}
			im.recorder.RecordOperation(metrics.OpImportRow, metrics.StatusSuccess)

			result.Rows++
			species[obs.SpeciesID] = struct{}{}
			locations[obs.LocationID] = struct{}{}
		}
	})
	if err != nil {
		return nil, err
	}

	result.Species = len(species)
	result.Locations = len(locations)
	result.Duration = time.Since(start)

	log.Info("import committed",
		logger.Int("rows", result.Rows),
		logger.Int("species", result.Species),
		logger.Int("locations", result.Locations),
		logger.Duration("duration", result.Duration))
	return result, nil
}

func (im *Importer) importRow(ctx context.Context, tx *datastore.Store, row map[string]string, source string, line int) (*entities.Observation, error) {
	lat, err := parseCoordinate(row[ColLatitude])
	if err != nil {
		return nil, parseError(source, line, fmt.Sprintf("invalid %s %q", ColLatitude, row[ColLatitude]))
	}
	lon, err := parseCoordinate(row[ColLongitude])
	if err != nil {
		return nil, parseError(source, line, fmt.Sprintf("invalid %s %q", ColLongitude, row[ColLongitude]))
	}

	var locality *string
	if v := strings.TrimSpace(row[ColLocality]); v != "" {
		locality = &v
	}

	loc, err := im.service.ResolveLocation(ctx, tx, lat, lon, locality)
	if err != nil {
		return nil, rowError(err, source, line)
	}

	sp, err := im.service.ResolveSpecies(ctx, tx, &survey.SpeciesRecord{
		ExternalID: row[ColSpeciesID],
		Name:       row[ColName],
		Kingdom:    row[ColKingdom],
		Phylum:     row[ColPhylum],
		Class:      row[ColClass],
		Order:      row[ColOrder],
		Family:     row[ColFamily],
		Genus:      row[ColGenus],
		Authorship: row[ColAuthorship],
	})
	if err != nil {
		return nil, rowError(err, source, line)
	}

	obs := &entities.Observation{SpeciesID: sp.ID, LocationID: loc.ID}
	if err := tx.InsertObservation(ctx, obs); err != nil {
		return nil, rowError(err, source, line)
	}
	return obs, nil
}

// columns maps header names to field positions.
type columns map[string]int

func indexColumns(header []string) (columns, error) {
	cols := make(columns, len(header))
	for i, name := range header {
		if i == 0 {
			name = strings.TrimPrefix(name, "\ufeff")
		}
		cols[strings.TrimSpace(name)] = i
	}

	var missing []string
	for _, name := range requiredColumns {
		if _, ok := cols[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required columns: %s", strings.Join(missing, ", "))
	}
	return cols, nil
}

func (c columns) row(rec []string) map[string]string {
	row := make(map[string]string, len(requiredColumns))
	for _, name := range requiredColumns {
		if idx := c[name]; idx < len(rec) {
			row[name] = rec[idx]
		}
	}
	return row
}

func parseCoordinate(s string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(s), 64)
}

func parseError(source string, line int, msg string) error {
	return errors.Newf("%s:%d: %s", source, line, msg).
		Component(componentImporter).
		Category(errors.CategoryFileParsing).
		Context("source", source).
		Context("line", line).
		Build()
}

// rowError annotates a service error with its position, keeping the category.
func rowError(err error, source string, line int) error {
	return errors.New(fmt.Errorf("%s:%d: %w", source, line, err)).
		Component(componentImporter).
		Category(errors.CategoryFor(err)).
		Context("source", source).
		Context("line", line).
		Build()
}
