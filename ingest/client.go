// Package ingest delivers log events to the hosted ingestion endpoint.
//
// The Client interface is what loggers depend on. AxiomClient is the
// production implementation: it buffers events per dataset in memory and
// ships them in batches through the axiom-go SDK, either when Flush is
// called, when a batch fills up, or on a timer once Start has been called.
package ingest

import (
	"context"
	stderrs "errors"
	"fmt"
	"sync"
	"time"

	"github.com/Station-Manager/errors"
	"github.com/axiomhq/axiom-go/axiom"
	axingest "github.com/axiomhq/axiom-go/axiom/ingest"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"go.uber.org/atomic"
)

// Event is a single structured event as sent over the wire.
type Event = axiom.Event

// Client accepts events for a dataset and owns their delivery.
type Client interface {
	// Ingest queues events for dataset. It must not block on network I/O.
	Ingest(dataset string, events ...Event) error
	// Flush delivers everything queued so far.
	Flush(ctx context.Context) error
}

const (
	DefaultBatchSize     = 1000
	DefaultMaxBuffered   = 10000
	DefaultFlushInterval = time.Second
	DefaultFlushTimeout  = 10 * time.Second
)

var ErrClosed = stderrs.New("ingest client is closed")

// Options configures an AxiomClient.
type Options struct {
	Token string
	OrgID string
	URL   string

	BatchSize     int
	MaxBuffered   int
	FlushInterval time.Duration
	FlushTimeout  time.Duration

	// Registerer receives the client's counters. Nil disables registration.
	Registerer prometheus.Registerer
	// Logger receives background flush failures.
	Logger zerolog.Logger
}

func (o Options) withDefaults() Options {
	if o.BatchSize <= 0 {
		o.BatchSize = DefaultBatchSize
	}
	if o.MaxBuffered <= 0 {
		o.MaxBuffered = DefaultMaxBuffered
	}
	if o.MaxBuffered < o.BatchSize {
		o.MaxBuffered = o.BatchSize
	}
	if o.FlushInterval <= 0 {
		o.FlushInterval = DefaultFlushInterval
	}
	if o.FlushTimeout <= 0 {
		o.FlushTimeout = DefaultFlushTimeout
	}
	return o
}

// eventIngester is the slice of the axiom client we use.
type eventIngester interface {
	IngestEvents(ctx context.Context, id string, events []axiom.Event, options ...axingest.Option) (*axingest.Status, error)
}

// AxiomClient implements Client on top of axiom-go.
type AxiomClient struct {
	api     eventIngester
	opts    Options
	metrics *metrics
	log     zerolog.Logger

	mu      sync.Mutex
	buffers map[string][]Event
	// order holds the dataset of every buffered event in arrival order,
	// so overflow evicts the globally oldest event.
	order []string

	flushMu sync.Mutex

	signal  chan struct{}
	stop    chan struct{}
	done    chan struct{}
	started atomic.Bool
	closed  atomic.Bool
}

// NewAxiomClient builds a client authenticated with opts.Token. The SDK is
// not allowed to read its own environment variables.
func NewAxiomClient(opts Options) (*AxiomClient, error) {
	const op errors.Op = "ingest.NewAxiomClient"

	axOpts := []axiom.Option{axiom.SetNoEnv(), axiom.SetToken(opts.Token)}
	if opts.OrgID != "" {
		axOpts = append(axOpts, axiom.SetOrganizationID(opts.OrgID))
	}
	if opts.URL != "" {
		axOpts = append(axOpts, axiom.SetURL(opts.URL))
	}

	api, err := axiom.NewClient(axOpts...)
	if err != nil {
		return nil, errors.New(op).Err(err).Msg(errMsgClientCreate)
	}
	return newClient(api, opts), nil
}

func newClient(api eventIngester, opts Options) *AxiomClient {
	opts = opts.withDefaults()
	return &AxiomClient{
		api:     api,
		opts:    opts,
		metrics: newMetrics(opts.Registerer),
		log:     opts.Logger,
		buffers: make(map[string][]Event),
		signal:  make(chan struct{}, 1),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// Ingest queues events for dataset. When more than MaxBuffered events are
// queued across all datasets the oldest ones are dropped.
func (c *AxiomClient) Ingest(dataset string, events ...Event) error {
	const op errors.Op = "ingest.AxiomClient.Ingest"
	if c == nil {
		return errors.New(op).Msg(errMsgNilClient)
	}
	if c.closed.Load() {
		return ErrClosed
	}
	if dataset == "" {
		return errors.New(op).Msg(errMsgNoDataset)
	}
	if len(events) == 0 {
		return nil
	}

	c.mu.Lock()
	c.buffers[dataset] = append(c.buffers[dataset], events...)
	for range events {
		c.order = append(c.order, dataset)
	}
	dropped := 0
	for len(c.order) > c.opts.MaxBuffered {
		oldest := c.order[0]
		c.order = c.order[1:]
		if buf := c.buffers[oldest][1:]; len(buf) > 0 {
			c.buffers[oldest] = buf
		} else {
			delete(c.buffers, oldest)
		}
		dropped++
	}
	full := len(c.order) >= c.opts.BatchSize
	c.mu.Unlock()

	if dropped > 0 {
		c.metrics.dropped.Add(float64(dropped))
	}

	if full {
		select {
		case c.signal <- struct{}{}:
		default:
		}
	}
	return nil
}

// Buffered reports how many events are waiting to be flushed.
func (c *AxiomClient) Buffered() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.order)
}

// Flush sends every buffered event. Events of a failed request are counted
// and discarded; they are not retried.
func (c *AxiomClient) Flush(ctx context.Context) error {
	const op errors.Op = "ingest.AxiomClient.Flush"
	if c == nil {
		return errors.New(op).Msg(errMsgNilClient)
	}

	c.flushMu.Lock()
	defer c.flushMu.Unlock()

	c.mu.Lock()
	pending := c.buffers
	c.buffers = make(map[string][]Event)
	c.order = nil
	c.mu.Unlock()

	var errs []error
	for dataset, events := range pending {
		for start := 0; start < len(events); start += c.opts.BatchSize {
			end := min(start+c.opts.BatchSize, len(events))
			if err := c.send(ctx, dataset, events[start:end]); err != nil {
				errs = append(errs, err)
			}
		}
	}

	if len(errs) > 0 {
		c.metrics.flushes.WithLabelValues(flushFailed).Inc()
		return errors.New(op).Err(stderrs.Join(errs...)).Msg(errMsgFlushFailed)
	}
	c.metrics.flushes.WithLabelValues(flushOK).Inc()
	return nil
}

func (c *AxiomClient) send(ctx context.Context, dataset string, batch []Event) error {
	status, err := c.api.IngestEvents(ctx, dataset, batch)
	if err != nil {
		c.metrics.failed.Add(float64(len(batch)))
		return fmt.Errorf("dataset %q: %w", dataset, err)
	}
	if status == nil {
		c.metrics.ingested.Add(float64(len(batch)))
		return nil
	}
	c.metrics.ingested.Add(float64(status.Ingested))
	if status.Failed > 0 {
		c.metrics.failed.Add(float64(status.Failed))
		return fmt.Errorf("dataset %q: %d of %d events rejected", dataset, status.Failed, len(batch))
	}
	return nil
}

// Start runs the background flush loop. Calling Start more than once, or
// after Close, does nothing.
func (c *AxiomClient) Start() {
	if c == nil || c.closed.Load() || c.started.Swap(true) {
		return
	}
	go c.loop()
}

func (c *AxiomClient) loop() {
	defer close(c.done)

	ticker := time.NewTicker(c.opts.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
		case <-c.signal:
		}
		c.backgroundFlush()
	}
}

func (c *AxiomClient) backgroundFlush() {
	if c.Buffered() == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), c.opts.FlushTimeout)
	defer cancel()
	if err := c.Flush(ctx); err != nil {
		c.log.Warn().Err(err).Msg("background flush failed")
	}
}

// Close stops the background loop and flushes what is left. It is safe to
// call Close more than once.
func (c *AxiomClient) Close(ctx context.Context) error {
	if c == nil || c.closed.Swap(true) {
		return nil
	}
	if c.started.Load() {
		close(c.stop)
		select {
		case <-c.done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return c.Flush(ctx)
}
