package delivery

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"linksum/internal/config"
	"linksum/internal/logger"
	"linksum/pkg/metrics"
)

// SendFunc is one outbound send. Failures are the caller's business; the
// scheduler paces, it does not retry.
type SendFunc func(ctx context.Context) error

const queueCapacity = 256

type queuedSend struct {
	fn       SendFunc
	enqueued time.Time
}

type destination struct {
	id    string
	pacer *rate.Limiter
	queue chan queuedSend
	stop  chan struct{}

	// guarded by Scheduler.mu
	lastSeen time.Time
	pending  int // enqueued or in flight, not yet finished
}

// Scheduler enforces a minimum interval between sends per destination.
// Each destination gets a FIFO queue drained by a single worker goroutine,
// so sends to one channel are strictly sequential and ordered while
// different channels proceed independently. Destinations are created
// lazily and evicted once idle to bound memory on a long-lived process.
type Scheduler struct {
	mu    sync.Mutex
	dests map[string]*destination

	interval        time.Duration
	maxAge          time.Duration
	janitorInterval time.Duration

	baseCtx context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	logger  logger.Logger
}

func NewScheduler(cfg config.DeliveryConfig, log logger.Logger) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())

	s := &Scheduler{
		dests:           make(map[string]*destination),
		interval:        cfg.MinInterval,
		maxAge:          cfg.QueueMaxAge,
		janitorInterval: cfg.JanitorInterval,
		baseCtx:         ctx,
		cancel:          cancel,
		logger:          log,
	}

	s.wg.Add(1)
	go s.janitor()

	return s
}

// Schedule enqueues fn for rate-limited execution against destID and
// returns immediately. Arrival order is preserved per destination.
func (s *Scheduler) Schedule(destID string, fn SendFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.dests[destID]
	if !ok {
		d = &destination{
			id:    destID,
			pacer: rate.NewLimiter(rate.Every(s.interval), 1),
			queue: make(chan queuedSend, queueCapacity),
			stop:  make(chan struct{}),
		}
		s.dests[destID] = d
		metrics.DeliveryDestinations.Set(float64(len(s.dests)))

		s.wg.Add(1)
		go s.drain(d)
	}

	d.lastSeen = time.Now()

	select {
	case d.queue <- queuedSend{fn: fn, enqueued: time.Now()}:
		d.pending++
		metrics.DeliveryQueueDepth.Inc()
	default:
		// The queue holds hours of backlog at the minimum interval;
		// overflowing it means the channel is unreachable anyway.
		metrics.DeliverySendsTotal.WithLabelValues("dropped").Inc()
		s.logger.Errorw("Delivery queue full, dropping send",
			"destination", destID,
			"capacity", queueCapacity,
		)
	}
}

func (s *Scheduler) drain(d *destination) {
	defer s.wg.Done()

	for {
		select {
		case <-s.baseCtx.Done():
			return
		case <-d.stop:
			return
		case qs := <-d.queue:
			metrics.DeliveryQueueDepth.Dec()

			if err := d.pacer.Wait(s.baseCtx); err != nil {
				return
			}

			metrics.ObserveQueueWait(time.Since(qs.enqueued))
			s.run(d.id, qs.fn)
			s.finish(d)
		}
	}
}

// run executes one send, containing failures so the queue keeps moving.
func (s *Scheduler) run(destID string, fn SendFunc) {
	defer func() {
		if r := recover(); r != nil {
			metrics.DeliverySendsTotal.WithLabelValues("panic").Inc()
			s.logger.Errorw("Panic in scheduled send",
				"destination", destID,
				"panic", r,
			)
		}
	}()

	if err := fn(s.baseCtx); err != nil {
		metrics.DeliverySendsTotal.WithLabelValues("error").Inc()
		s.logger.Errorw("Scheduled send failed",
			"destination", destID,
			"error", err,
		)
		return
	}

	metrics.DeliverySendsTotal.WithLabelValues("ok").Inc()
}

func (s *Scheduler) finish(d *destination) {
	s.mu.Lock()
	d.pending--
	d.lastSeen = time.Now()
	s.mu.Unlock()
}

func (s *Scheduler) janitor() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.janitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.baseCtx.Done():
			return
		case <-ticker.C:
			s.evictIdle()
		}
	}
}

func (s *Scheduler) evictIdle() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for id, d := range s.dests {
		if d.pending == 0 && now.Sub(d.lastSeen) > s.maxAge {
			close(d.stop)
			delete(s.dests, id)
		}
	}
	metrics.DeliveryDestinations.Set(float64(len(s.dests)))
}

// Stop shuts the scheduler down. Queued sends that have not started are
// abandoned; in-flight sends run to completion.
func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
}

func (s *Scheduler) destinationCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.dests)
}
