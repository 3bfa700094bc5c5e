package survey

import (
	"context"
	"time"

	"github.com/Samuel-Bradshaw/wcmc-solution/internal/datastore"
	"github.com/Samuel-Bradshaw/wcmc-solution/internal/datastore/entities"
	"github.com/Samuel-Bradshaw/wcmc-solution/internal/logger"
)

// ObservationSink is notified after an observation report has committed.
// Implementations must not block.
type ObservationSink interface {
	ObservationReported(ctx context.Context, report *Report)
}

// Report is the outcome of ReportObservation.
type Report struct {
	Species       entities.Species
	Location      entities.Location
	ObservationID uint
	ReportedAt    time.Time
}

// Service exposes the survey operations over a Store.
type Service struct {
	store *datastore.Store
	log   logger.Logger
	sink  ObservationSink
	now   func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(log logger.Logger) Option {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}

// WithObservationSink registers a receiver for committed observation reports.
func WithObservationSink(sink ObservationSink) Option {
	return func(s *Service) {
		s.sink = sink
	}
}

// NewService creates a Service over store.
func NewService(store *datastore.Store, opts ...Option) *Service {
	s := &Service{
		store: store,
		log:   logger.Global().Module(componentSurvey),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Store returns the underlying store, for callers that group resolutions
// into their own transaction.
func (s *Service) Store() *datastore.Store {
	return s.store
}

// storeFor returns tx when the caller supplied a transaction.
func (s *Service) storeFor(tx *datastore.Store) *datastore.Store {
	if tx != nil {
		return tx
	}
	return s.store
}
