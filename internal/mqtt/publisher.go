package mqtt

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Samuel-Bradshaw/wcmc-solution/internal/logger"
	"github.com/Samuel-Bradshaw/wcmc-solution/internal/observability/metrics"
	"github.com/Samuel-Bradshaw/wcmc-solution/internal/survey"
)

// DefaultQueueSize is used when a publisher is created with a non-positive queue size.
const DefaultQueueSize = 256

// DefaultDrainTimeout bounds how long shutdown spends publishing queued events.
const DefaultDrainTimeout = 5 * time.Second

// Publisher queues observation events and publishes them from a single
// background worker. Enqueueing never blocks; events are dropped when the
// queue is full or the publisher has stopped. Every event is either
// published or counted in Dropped.
type Publisher struct {
	client         Client
	topic          string
	queue          chan ObservationEvent
	metrics        *metrics.MQTTMetrics
	log            logger.Logger
	publishTimeout time.Duration
	drainTimeout   time.Duration

	dropped atomic.Uint64

	// mu orders enqueues against shutdown so nothing lands in the queue
	// after the worker's final drain.
	mu      sync.Mutex
	stopped bool

	startOnce sync.Once
	stopOnce  sync.Once
	done      chan struct{}
	wg        sync.WaitGroup
}

var _ survey.ObservationSink = (*Publisher)(nil)

// PublisherOption configures a Publisher.
type PublisherOption func(*Publisher)

// WithPublisherMetrics attaches MQTT metrics to the publisher.
func WithPublisherMetrics(m *metrics.MQTTMetrics) PublisherOption {
	return func(p *Publisher) {
		p.metrics = m
	}
}

// WithPublisherLogger overrides the module logger.
func WithPublisherLogger(log logger.Logger) PublisherOption {
	return func(p *Publisher) {
		if log != nil {
			p.log = log
		}
	}
}

// WithPublishTimeout bounds each publish made by the worker.
func WithPublishTimeout(d time.Duration) PublisherOption {
	return func(p *Publisher) {
		if d > 0 {
			p.publishTimeout = d
		}
	}
}

// WithDrainTimeout bounds the shutdown drain. Events still queued when it
// expires are dropped.
func WithDrainTimeout(d time.Duration) PublisherOption {
	return func(p *Publisher) {
		if d > 0 {
			p.drainTimeout = d
		}
	}
}

// NewPublisher creates a publisher for topic. Call Start to begin publishing.
func NewPublisher(client Client, topic string, queueSize int, opts ...PublisherOption) *Publisher {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	p := &Publisher{
		client:         client,
		topic:          topic,
		queue:          make(chan ObservationEvent, queueSize),
		log:            moduleLogger(),
		publishTimeout: DefaultConfig().PublishTimeout,
		drainTimeout:   DefaultDrainTimeout,
		done:           make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ObservationReported queues an event for report.
func (p *Publisher) ObservationReported(_ context.Context, report *survey.Report) {
	if report == nil {
		return
	}
	event := NewObservationEvent(report)

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stopped {
		p.drop("publisher stopped", &event)
		return
	}
	select {
	case p.queue <- event:
		p.setQueueDepth()
	default:
		p.drop("queue full", &event)
	}
}

// Start launches the worker. It returns immediately. Cancelling ctx has the
// same effect as Stop: the worker publishes what is queued and exits.
// Publishes never inherit ctx, so a cancelled ctx does not fail them.
func (p *Publisher) Start(ctx context.Context) {
	p.startOnce.Do(func() {
		p.wg.Add(1)
		go p.run(ctx)
	})
}

// Stop publishes what is already queued, bounded by the drain timeout, and
// waits for the worker to exit. Later events are dropped.
func (p *Publisher) Stop() {
	p.stopOnce.Do(func() {
		p.markStopped()
		close(p.done)
	})
	p.wg.Wait()
}

// Dropped returns the number of events that were not published.
func (p *Publisher) Dropped() uint64 {
	return p.dropped.Load()
}

func (p *Publisher) markStopped() {
	p.mu.Lock()
	p.stopped = true
	p.mu.Unlock()
}

func (p *Publisher) run(ctx context.Context) {
	defer p.wg.Done()

	for {
		select {
		case <-ctx.Done():
			p.markStopped()
			p.drain()
			return
		case <-p.done:
			p.drain()
			return
		case event := <-p.queue:
			p.setQueueDepth()
			p.publish(context.Background(), &event)
		}
	}
}

// drain publishes events queued before shutdown. The publisher is already
// marked stopped, so the queue only shrinks.
func (p *Publisher) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), p.drainTimeout)
	defer cancel()

	for {
		select {
		case event := <-p.queue:
			if ctx.Err() != nil {
				p.drop("shutdown deadline exceeded", &event)
				continue
			}
			p.publish(ctx, &event)
		default:
			p.setQueueDepth()
			return
		}
	}
}

func (p *Publisher) publish(ctx context.Context, event *ObservationEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		p.log.Error("failed to encode observation event",
			logger.Uint("observation_id", event.ObservationID),
			logger.Error(err))
		p.drop("encoding failed", event)
		return
	}

	pubCtx, cancel := context.WithTimeout(ctx, p.publishTimeout)
	defer cancel()

	if err := p.client.Publish(pubCtx, p.topic, payload); err != nil {
		p.log.Warn("failed to publish observation event",
			logger.String("topic", p.topic),
			logger.Uint("observation_id", event.ObservationID),
			logger.Error(err))
		p.drop("publish failed", event)
		return
	}

	p.log.Debug("published observation event",
		logger.String("topic", p.topic),
		logger.Uint("observation_id", event.ObservationID),
		logger.Int64("species_id", event.SpeciesID))
}

func (p *Publisher) drop(reason string, event *ObservationEvent) {
	p.dropped.Add(1)
	if p.metrics != nil {
		p.metrics.RecordEventDropped(reason)
	}
	p.log.Warn("dropped observation event",
		logger.String("reason", reason),
		logger.Uint("observation_id", event.ObservationID))
}

func (p *Publisher) setQueueDepth() {
	if p.metrics != nil {
		p.metrics.SetQueueDepth(len(p.queue))
	}
}
