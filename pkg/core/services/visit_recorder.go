package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"github.com/wadjakorntonsri/shortlink-analytics/pkg/core/domain"
	"github.com/wadjakorntonsri/shortlink-analytics/pkg/ports"
)

// RecorderConfig bounds background visit recording.
type RecorderConfig struct {
	Timeout     time.Duration // per visit, including queueing and retries
	MaxInFlight int64
	Retries     int // extra attempts after a store failure
	RetryDelay  time.Duration
	Location    *time.Location
}

func DefaultRecorderConfig() RecorderConfig {
	return RecorderConfig{
		Timeout:     5 * time.Second,
		MaxInFlight: 64,
		Retries:     1,
		RetryDelay:  50 * time.Millisecond,
		Location:    time.Local,
	}
}

// RecorderStats counts finished background recordings.
type RecorderStats struct {
	Recorded int64
	Failed   int64
	Dropped  int64
}

type visitFailure struct {
	slug string
	err  error
}

// VisitRecorder turns redirects into visit records off the request path.
// Dispatch never blocks and never reports errors to its caller; failures
// travel over an internal channel and are logged.
type VisitRecorder struct {
	repo ports.Repository
	cfg  RecorderConfig
	sem  *semaphore.Weighted
	now  func() time.Time
	log  zerolog.Logger

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup

	failures chan visitFailure
	drained  chan struct{}

	recorded atomic.Int64
	failed   atomic.Int64
	dropped  atomic.Int64
}

func NewVisitRecorder(repo ports.Repository, cfg RecorderConfig) *VisitRecorder {
	def := DefaultRecorderConfig()
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.MaxInFlight <= 0 {
		cfg.MaxInFlight = def.MaxInFlight
	}
	if cfg.Retries < 0 {
		cfg.Retries = 0
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = def.RetryDelay
	}
	if cfg.Location == nil {
		cfg.Location = def.Location
	}

	r := &VisitRecorder{
		repo:     repo,
		cfg:      cfg,
		sem:      semaphore.NewWeighted(cfg.MaxInFlight),
		now:      time.Now,
		log:      log.With().Str("component", "visit_recorder").Logger(),
		failures: make(chan visitFailure, cfg.MaxInFlight),
		drained:  make(chan struct{}),
	}
	go r.drain()
	return r
}

// Dispatch records a visit for slug in the background.
func (r *VisitRecorder) Dispatch(slug, userAgent string) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		r.dropped.Add(1)
		r.log.Warn().Str("slug", slug).Msg("recorder closed, visit dropped")
		return
	}
	r.wg.Add(1)
	r.mu.Unlock()

	go func() {
		defer r.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), r.cfg.Timeout)
		defer cancel()

		if err := r.sem.Acquire(ctx, 1); err != nil {
			r.dropped.Add(1)
			r.log.Warn().Err(err).Str("slug", slug).Msg("too many visits in flight, visit dropped")
			return
		}
		defer r.sem.Release(1)

		if err := r.recordWithRetry(ctx, slug, userAgent); err != nil {
			r.failures <- visitFailure{slug: slug, err: err}
			return
		}
		r.recorded.Add(1)
	}()
}

// Record looks up slug, bumps its counter and appends one visit.
func (r *VisitRecorder) Record(ctx context.Context, slug, userAgent string) error {
	link, err := r.repo.GetBySlug(ctx, slug)
	if err != nil {
		return fmt.Errorf("lookup %q: %w", slug, err)
	}
	if link == nil {
		return domain.ErrLinkNotFound
	}

	visit := domain.NewVisit(link.ID, r.now().UTC().Truncate(time.Millisecond), r.cfg.Location, ParseUserAgent(userAgent))
	if err := r.repo.RecordVisit(ctx, visit); err != nil {
		return fmt.Errorf("record visit for %q: %w", slug, err)
	}
	return nil
}

func (r *VisitRecorder) recordWithRetry(ctx context.Context, slug, userAgent string) error {
	var err error
	for attempt := 0; attempt <= r.cfg.Retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return errors.Join(err, ctx.Err())
			case <-time.After(time.Duration(attempt) * r.cfg.RetryDelay):
			}
		}
		err = r.Record(ctx, slug, userAgent)
		if err == nil || errors.Is(err, domain.ErrNotFound) || ctx.Err() != nil {
			return err
		}
	}
	return err
}

func (r *VisitRecorder) drain() {
	defer close(r.drained)
	for f := range r.failures {
		r.failed.Add(1)
		if errors.Is(f.err, domain.ErrNotFound) {
			r.log.Info().Str("slug", f.slug).Msg("link gone before visit was recorded")
			continue
		}
		r.log.Error().Err(f.err).Str("slug", f.slug).Msg("visit not recorded")
	}
}

// Close stops accepting visits and waits for in-flight ones until ctx ends.
func (r *VisitRecorder) Close(ctx context.Context) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(r.failures)
		<-r.drained
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stats reports counters; they are final once Close has returned nil.
func (r *VisitRecorder) Stats() RecorderStats {
	return RecorderStats{
		Recorded: r.recorded.Load(),
		Failed:   r.failed.Load(),
		Dropped:  r.dropped.Load(),
	}
}

var _ ports.VisitRecorder = (*VisitRecorder)(nil)
