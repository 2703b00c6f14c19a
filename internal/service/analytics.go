package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/folio-cms/folio/internal/metrics"
	"github.com/folio-cms/folio/internal/model"
	"github.com/folio-cms/folio/internal/store"
)

// ErrRecorderStopped is returned by Flush once the recorder has shut down.
var ErrRecorderStopped = errors.New("analytics recorder is not running")

const writeTimeout = 10 * time.Second

// RecorderConfig tunes ingestion and aggregation.
type RecorderConfig struct {
	QueueSize      int
	BatchSize      int
	FlushInterval  time.Duration
	SessionTimeout time.Duration
	StatsCacheTTL  time.Duration
	RecentVisitors int
}

func (c RecorderConfig) withDefaults() RecorderConfig {
	if c.QueueSize <= 0 {
		c.QueueSize = 1024
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 100
	}
	if c.FlushInterval <= 0 {
		c.FlushInterval = 2 * time.Second
	}
	if c.SessionTimeout <= 0 {
		c.SessionTimeout = 30 * time.Minute
	}
	if c.RecentVisitors <= 0 {
		c.RecentVisitors = 10
	}
	return c
}

type cachedStats struct {
	stats     *model.AnalyticsStats
	expiresAt time.Time
}

// Recorder accepts analytics events without blocking the caller, writes
// them to the store in batches, and computes dashboard aggregates.
type Recorder struct {
	store   *store.Store
	cfg     RecorderConfig
	logger  *slog.Logger
	breaker *gobreaker.CircuitBreaker[struct{}]
	now     func() time.Time

	queue   chan model.AnalyticsEvent
	flushCh chan chan struct{}

	mu      sync.Mutex // guards running and cancel
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	cacheMu  sync.Mutex
	cache    map[model.TimeRange]cachedStats
	cacheGen uint64 // bumped by purgeCache
}

func NewRecorder(st *store.Store, cfg RecorderConfig, logger *slog.Logger) *Recorder {
	cfg = cfg.withDefaults()
	r := &Recorder{
		store:   st,
		cfg:     cfg,
		logger:  logger,
		now:     time.Now,
		queue:   make(chan model.AnalyticsEvent, cfg.QueueSize),
		flushCh: make(chan chan struct{}),
		cache:   make(map[model.TimeRange]cachedStats),
	}
	r.breaker = gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        "analytics-writer",
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.AnalyticsBreakerState.Set(float64(to))
			logger.Warn("analytics writer breaker state changed",
				"breaker", name, "from", from.String(), "to", to.String())
		},
	})
	return r
}

// Start launches the background writer. Non-blocking.
func (r *Recorder) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel
	r.running = true

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.run(ctx)
	}()
}

// Shutdown stops the writer after persisting everything still queued.
func (r *Recorder) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return nil
	}
	r.running = false
	r.cancel()
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Track enqueues an event and reports whether it was accepted. The id and
// timestamp are assigned here. A full queue drops the event.
func (r *Recorder) Track(ev model.AnalyticsEvent) (model.AnalyticsEvent, bool) {
	ev.ID = uuid.Must(uuid.NewV7()).String()
	ev.Timestamp = r.now().UTC()
	if !ev.DeviceType.Valid() {
		ev.DeviceType = model.DeviceDesktop
	}

	r.mu.Lock()
	running := r.running
	r.mu.Unlock()
	if !running {
		metrics.AnalyticsEvents.WithLabelValues("dropped").Inc()
		return ev, false
	}

	select {
	case r.queue <- ev:
		metrics.AnalyticsEvents.WithLabelValues("queued").Inc()
		metrics.AnalyticsQueueDepth.Set(float64(len(r.queue)))
		return ev, true
	default:
		metrics.AnalyticsEvents.WithLabelValues("dropped").Inc()
		r.logger.Warn("analytics queue full, dropping event", "page", ev.Page)
		return ev, false
	}
}

// Flush blocks until every event queued before the call has been handed to
// the store.
func (r *Recorder) Flush(ctx context.Context) error {
	r.mu.Lock()
	running := r.running
	r.mu.Unlock()
	if !running {
		return ErrRecorderStopped
	}

	done := make(chan struct{})
	select {
	case r.flushCh <- done:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Recorder) run(ctx context.Context) {
	ticker := time.NewTicker(r.cfg.FlushInterval)
	defer ticker.Stop()

	batch := make([]model.AnalyticsEvent, 0, r.cfg.BatchSize)
	for {
		select {
		case ev := <-r.queue:
			batch = append(batch, ev)
			if len(batch) >= r.cfg.BatchSize {
				batch = r.write(batch)
			}
		case <-ticker.C:
			batch = r.write(batch)
		case done := <-r.flushCh:
			batch = r.write(r.drain(batch))
			close(done)
		case <-ctx.Done():
			r.write(r.drain(batch))
			return
		}
	}
}

// drain moves everything currently queued into batch, writing full
// batches along the way.
func (r *Recorder) drain(batch []model.AnalyticsEvent) []model.AnalyticsEvent {
	for {
		select {
		case ev := <-r.queue:
			batch = append(batch, ev)
			if len(batch) >= r.cfg.BatchSize {
				batch = r.write(batch)
			}
		default:
			return batch
		}
	}
}

// write persists batch through the breaker and returns it emptied. Failed
// batches are logged and discarded.
func (r *Recorder) write(batch []model.AnalyticsEvent) []model.AnalyticsEvent {
	if len(batch) == 0 {
		return batch
	}
	defer metrics.AnalyticsQueueDepth.Set(float64(len(r.queue)))

	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	_, err := r.breaker.Execute(func() (struct{}, error) {
		return struct{}{}, r.store.InsertEvents(ctx, batch)
	})
	if err != nil {
		metrics.AnalyticsEvents.WithLabelValues("failed").Add(float64(len(batch)))
		r.logger.Error("failed to persist analytics events", "count", len(batch), "error", err)
		return batch[:0]
	}

	metrics.AnalyticsEvents.WithLabelValues("persisted").Add(float64(len(batch)))
	r.purgeCache()
	return batch[:0]
}

// ---------------------------------------------------------------------------
// Aggregation
// ---------------------------------------------------------------------------

// Stats returns the dashboard aggregate for the range. Recent visitors are
// only included when withVisitors is set because they carry IP addresses.
func (r *Recorder) Stats(ctx context.Context, tr model.TimeRange, withVisitors bool) (*model.AnalyticsStats, error) {
	stats, err := r.cachedOrCompute(ctx, tr)
	if err != nil {
		return nil, err
	}
	out := *stats
	if !withVisitors {
		out.RecentVisitors = nil
	}
	return &out, nil
}

func (r *Recorder) cachedOrCompute(ctx context.Context, tr model.TimeRange) (*model.AnalyticsStats, error) {
	now := r.now()
	stats, gen, ok := r.cacheLookup(tr, now)
	if ok {
		metrics.StatsCacheLookups.WithLabelValues("hit").Inc()
		return stats, nil
	}
	if r.cfg.StatsCacheTTL > 0 {
		metrics.StatsCacheLookups.WithLabelValues("miss").Inc()
	}

	start := time.Now()
	stats, err := r.compute(ctx, tr, now)
	if err != nil {
		return nil, err
	}
	metrics.StatsDuration.WithLabelValues(string(tr)).Observe(time.Since(start).Seconds())

	r.cacheStore(tr, gen, stats, now)
	return stats, nil
}

// cacheLookup returns a live cached aggregate, plus the cache generation
// to hand back to cacheStore.
func (r *Recorder) cacheLookup(tr model.TimeRange, now time.Time) (*model.AnalyticsStats, uint64, bool) {
	r.cacheMu.Lock()
	defer r.cacheMu.Unlock()
	if r.cfg.StatsCacheTTL <= 0 {
		return nil, r.cacheGen, false
	}
	c, ok := r.cache[tr]
	if ok && now.Before(c.expiresAt) {
		return c.stats, r.cacheGen, true
	}
	return nil, r.cacheGen, false
}

// cacheStore keeps stats unless the cache was purged after gen was read;
// such a result may predate the newly written events.
func (r *Recorder) cacheStore(tr model.TimeRange, gen uint64, stats *model.AnalyticsStats, now time.Time) {
	if r.cfg.StatsCacheTTL <= 0 {
		return
	}
	r.cacheMu.Lock()
	defer r.cacheMu.Unlock()
	if gen != r.cacheGen {
		return
	}
	r.cache[tr] = cachedStats{stats: stats, expiresAt: now.Add(r.cfg.StatsCacheTTL)}
}

func (r *Recorder) purgeCache() {
	r.cacheMu.Lock()
	r.cacheGen++
	clear(r.cache)
	r.cacheMu.Unlock()
}

type visitorState struct {
	sessionStart time.Time
	lastSeen     time.Time
}

// aggregator folds a time-ordered event stream into stats.
type aggregator struct {
	sessionTimeout time.Duration

	visits, clicks int
	first          time.Time
	days           map[string]*model.VisitDataPoint
	pages          map[string]int
	devices        map[model.DeviceType]int
	events         int

	visitors       map[string]*visitorState
	sessions       int
	sessionSeconds float64
}

func newAggregator(sessionTimeout time.Duration) *aggregator {
	return &aggregator{
		sessionTimeout: sessionTimeout,
		days:           make(map[string]*model.VisitDataPoint),
		pages:          make(map[string]int),
		devices:        make(map[model.DeviceType]int),
		visitors:       make(map[string]*visitorState),
	}
}

func (a *aggregator) add(ev model.AnalyticsEvent) {
	ts := ev.Timestamp.UTC()
	if a.events == 0 {
		a.first = ts
	}
	a.events++

	day := a.day(ts)
	switch ev.EventType {
	case model.EventPageView:
		a.visits++
		day.Visits++
		a.pages[ev.Page]++
	case model.EventClick:
		a.clicks++
		day.Clicks++
	}

	device := ev.DeviceType
	if !device.Valid() {
		device = model.DeviceDesktop
	}
	a.devices[device]++

	// Visitors are approximated by IP and user agent. A gap longer than the
	// session timeout starts a new session.
	key := ev.IPAddress + "|" + ev.UserAgent
	v, ok := a.visitors[key]
	if !ok {
		a.visitors[key] = &visitorState{sessionStart: ts, lastSeen: ts}
		return
	}
	if ts.Sub(v.lastSeen) > a.sessionTimeout {
		a.closeSession(v)
		v.sessionStart = ts
	}
	v.lastSeen = ts
}

func (a *aggregator) closeSession(v *visitorState) {
	a.sessions++
	a.sessionSeconds += v.lastSeen.Sub(v.sessionStart).Seconds()
}

func (a *aggregator) day(ts time.Time) *model.VisitDataPoint {
	key := ts.Format(time.DateOnly)
	p, ok := a.days[key]
	if !ok {
		p = &model.VisitDataPoint{Date: key, Day: ts.Weekday().String()[:3]}
		a.days[key] = p
	}
	return p
}

func (a *aggregator) finish(tr model.TimeRange, now time.Time) *model.AnalyticsStats {
	for _, v := range a.visitors {
		a.closeSession(v)
	}

	stats := &model.AnalyticsStats{
		TimeRange:      tr,
		GeneratedAt:    now,
		TotalVisits:    a.visits,
		TotalClicks:    a.clicks,
		UniqueVisitors: len(a.visitors),
		VisitData:      []model.VisitDataPoint{},
		PageViews:      []model.PageView{},
		DeviceStats:    make([]model.DeviceStat, 0, len(model.DeviceTypes)),
	}

	if a.sessions > 0 {
		stats.AvgSessionSeconds = math.Round(a.sessionSeconds / float64(a.sessions))
	}
	stats.AvgSessionTime = formatSession(stats.AvgSessionSeconds)

	// Every day of the window appears, including days without events. The
	// unbounded range starts at the first recorded event.
	from := tr.Start(now)
	if from.IsZero() {
		from = model.StartOfDay(now)
		if a.events > 0 {
			from = model.StartOfDay(a.first)
		}
	}
	for d := from; !d.After(now); d = d.AddDate(0, 0, 1) {
		stats.VisitData = append(stats.VisitData, *a.day(d))
	}

	for page, views := range a.pages {
		stats.PageViews = append(stats.PageViews, model.PageView{Page: page, Views: views})
	}
	sort.Slice(stats.PageViews, func(i, j int) bool {
		pi, pj := stats.PageViews[i], stats.PageViews[j]
		if pi.Views != pj.Views {
			return pi.Views > pj.Views
		}
		return pi.Page < pj.Page
	})

	for _, d := range model.DeviceTypes {
		stat := model.DeviceStat{Name: d, Count: a.devices[d]}
		if a.events > 0 {
			stat.Value = math.Round(float64(stat.Count)/float64(a.events)*1000) / 10
		}
		stats.DeviceStats = append(stats.DeviceStats, stat)
	}
	return stats
}

func formatSession(seconds float64) string {
	s := int(seconds)
	return fmt.Sprintf("%dm %ds", s/60, s%60)
}

func (r *Recorder) compute(ctx context.Context, tr model.TimeRange, now time.Time) (*model.AnalyticsStats, error) {
	now = now.UTC()
	since := tr.Start(now)

	agg := newAggregator(r.cfg.SessionTimeout)
	err := r.store.ScanEvents(ctx, since, func(ev model.AnalyticsEvent) error {
		if ev.Timestamp.After(now) {
			return nil
		}
		agg.add(ev)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("aggregate analytics: %w", err)
	}
	stats := agg.finish(tr, now)

	recent, err := r.store.RecentEvents(ctx, since, r.cfg.RecentVisitors)
	if err != nil {
		return nil, err
	}
	stats.RecentVisitors = make([]model.RecentVisitor, 0, len(recent))
	for _, ev := range recent {
		stats.RecentVisitors = append(stats.RecentVisitors, model.RecentVisitor{
			IP:        ev.IPAddress,
			Timestamp: ev.Timestamp.UTC().Format(time.RFC3339),
			Page:      ev.Page,
			Device:    string(ev.DeviceType),
			Browser:   ev.Browser,
			OS:        ev.OS,
			Location:  ev.Location,
		})
	}
	return stats, nil
}
