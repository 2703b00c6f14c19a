package service

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/folio-cms/folio/internal/model"
	"github.com/folio-cms/folio/internal/store"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestRecorder(t *testing.T, cfg RecorderConfig) (*Recorder, *store.Store) {
	t.Helper()
	st := newTestStore(t)
	r := NewRecorder(st, cfg, discardLogger())
	r.Start()
	t.Cleanup(func() { r.Shutdown(context.Background()) })
	return r, st
}

func event(typ model.EventType, page string, device model.DeviceType, ip string, ts time.Time) model.AnalyticsEvent {
	return model.AnalyticsEvent{
		ID:         uuid.NewString(),
		EventType:  typ,
		Page:       page,
		DeviceType: device,
		IPAddress:  ip,
		UserAgent:  "test-agent",
		Timestamp:  ts,
	}
}

func TestTrackThenStats(t *testing.T) {
	r, _ := newTestRecorder(t, RecorderConfig{})
	ctx := context.Background()

	_, ok := r.Track(model.AnalyticsEvent{EventType: model.EventPageView, Page: "/projects", DeviceType: model.DeviceMobile})
	if !ok {
		t.Fatal("expected event to be accepted")
	}
	if err := r.Flush(ctx); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	stats, err := r.Stats(ctx, model.RangeAll, false)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.TotalVisits != 1 {
		t.Errorf("TotalVisits: got %d, want 1", stats.TotalVisits)
	}
	if len(stats.PageViews) != 1 || stats.PageViews[0].Page != "/projects" || stats.PageViews[0].Views < 1 {
		t.Errorf("PageViews: got %+v", stats.PageViews)
	}
	var mobile float64
	for _, d := range stats.DeviceStats {
		if d.Name == model.DeviceMobile {
			mobile = d.Value
		}
	}
	if mobile <= 0 {
		t.Errorf("mobile share: got %v, want > 0", mobile)
	}
	if stats.RecentVisitors != nil {
		t.Error("recent visitors must be omitted without admin access")
	}
}

func TestStatsAggregation(t *testing.T) {
	r, st := newTestRecorder(t, RecorderConfig{})
	ctx := context.Background()

	now := time.Date(2025, 6, 15, 18, 0, 0, 0, time.UTC) // a Sunday
	r.now = func() time.Time { return now }
	t0 := time.Date(2025, 6, 15, 9, 0, 0, 0, time.UTC)

	events := []model.AnalyticsEvent{
		event(model.EventPageView, "/", model.DeviceDesktop, "1.1.1.1", t0),
		event(model.EventClick, "/", model.DeviceDesktop, "1.1.1.1", t0.Add(5*time.Minute)),
		event(model.EventPageView, "/projects", model.DeviceDesktop, "1.1.1.1", t0.Add(50*time.Minute)),
		event(model.EventPageView, "/projects", model.DeviceMobile, "2.2.2.2", t0.Add(time.Hour)),
		event(model.EventPageView, "/about", model.DeviceTablet, "3.3.3.3", t0.AddDate(0, 0, -2)),
	}
	if err := st.InsertEvents(ctx, events); err != nil {
		t.Fatalf("InsertEvents: %v", err)
	}

	stats, err := r.Stats(ctx, model.Range7Days, true)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}

	if stats.TotalVisits != 4 || stats.TotalClicks != 1 {
		t.Errorf("totals: got %d visits %d clicks, want 4 and 1", stats.TotalVisits, stats.TotalClicks)
	}
	if stats.UniqueVisitors != 3 {
		t.Errorf("UniqueVisitors: got %d, want 3", stats.UniqueVisitors)
	}
	// Sessions: 300s, 0s (after a 45m gap), 0s and 0s.
	if stats.AvgSessionSeconds != 75 || stats.AvgSessionTime != "1m 15s" {
		t.Errorf("session: got %v (%s), want 75 (1m 15s)", stats.AvgSessionSeconds, stats.AvgSessionTime)
	}

	if len(stats.VisitData) != 7 {
		t.Fatalf("VisitData: got %d days, want 7", len(stats.VisitData))
	}
	first, last := stats.VisitData[0], stats.VisitData[6]
	if first.Date != "2025-06-09" || last.Date != "2025-06-15" || last.Day != "Sun" {
		t.Errorf("window: got %s..%s (%s)", first.Date, last.Date, last.Day)
	}
	if last.Visits != 3 || last.Clicks != 1 {
		t.Errorf("today: got %+v", last)
	}
	if stats.VisitData[4].Visits != 1 {
		t.Errorf("two days ago: got %+v", stats.VisitData[4])
	}

	wantPages := []model.PageView{{Page: "/projects", Views: 2}, {Page: "/", Views: 1}, {Page: "/about", Views: 1}}
	if len(stats.PageViews) != len(wantPages) {
		t.Fatalf("PageViews: got %+v", stats.PageViews)
	}
	for i, want := range wantPages {
		if stats.PageViews[i] != want {
			t.Errorf("PageViews[%d]: got %+v, want %+v", i, stats.PageViews[i], want)
		}
	}

	wantDevices := map[model.DeviceType]float64{
		model.DeviceDesktop: 60,
		model.DeviceMobile:  20,
		model.DeviceTablet:  20,
	}
	if len(stats.DeviceStats) != 3 {
		t.Fatalf("DeviceStats: got %+v", stats.DeviceStats)
	}
	for _, d := range stats.DeviceStats {
		if d.Value != wantDevices[d.Name] {
			t.Errorf("%s: got %v, want %v", d.Name, d.Value, wantDevices[d.Name])
		}
	}

	if len(stats.RecentVisitors) != 5 {
		t.Fatalf("RecentVisitors: got %d, want 5", len(stats.RecentVisitors))
	}
	if stats.RecentVisitors[0].IP != "2.2.2.2" {
		t.Errorf("most recent: got %+v", stats.RecentVisitors[0])
	}
}

func TestStatsRangesAgree(t *testing.T) {
	r, st := newTestRecorder(t, RecorderConfig{})
	ctx := context.Background()

	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return now }

	var events []model.AnalyticsEvent
	for day := 0; day < 12; day++ {
		ts := now.AddDate(0, 0, -day).Add(-time.Hour)
		for i := 0; i <= day%3; i++ {
			events = append(events, event(model.EventPageView, "/p", model.DeviceDesktop, "9.9.9.9", ts))
		}
		events = append(events, event(model.EventClick, "/p", model.DeviceMobile, "9.9.9.9", ts))
	}
	if err := st.InsertEvents(ctx, events); err != nil {
		t.Fatalf("InsertEvents: %v", err)
	}

	all, err := r.Stats(ctx, model.RangeAll, false)
	if err != nil {
		t.Fatalf("Stats all: %v", err)
	}
	week, err := r.Stats(ctx, model.Range7Days, false)
	if err != nil {
		t.Fatalf("Stats 7d: %v", err)
	}

	if len(all.VisitData) != 12 {
		t.Fatalf("all: got %d days, want 12", len(all.VisitData))
	}
	tail := all.VisitData[len(all.VisitData)-7:]
	visits, clicks := 0, 0
	for i, p := range week.VisitData {
		if p != tail[i] {
			t.Errorf("day %d: 7d %+v, all %+v", i, p, tail[i])
		}
		visits += p.Visits
		clicks += p.Clicks
	}
	if week.TotalVisits != visits || week.TotalClicks != clicks {
		t.Errorf("7d totals %d/%d do not match its days %d/%d", week.TotalVisits, week.TotalClicks, visits, clicks)
	}
	if week.PageViews[0].Views != week.TotalVisits {
		t.Errorf("page views %d, want %d", week.PageViews[0].Views, week.TotalVisits)
	}
}

func TestStatsEmpty(t *testing.T) {
	r, _ := newTestRecorder(t, RecorderConfig{})

	stats, err := r.Stats(context.Background(), model.Range30Days, true)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if len(stats.VisitData) != 30 {
		t.Errorf("VisitData: got %d days, want 30", len(stats.VisitData))
	}
	if stats.AvgSessionTime != "0m 0s" {
		t.Errorf("AvgSessionTime: got %q", stats.AvgSessionTime)
	}
	for _, d := range stats.DeviceStats {
		if d.Value != 0 || d.Count != 0 {
			t.Errorf("%s: got %+v, want zero", d.Name, d)
		}
	}
	if stats.PageViews == nil {
		t.Error("PageViews must be an empty list, not null")
	}
}

func TestStatsCache(t *testing.T) {
	r, st := newTestRecorder(t, RecorderConfig{StatsCacheTTL: time.Minute})
	ctx := context.Background()

	before, err := r.Stats(ctx, model.RangeAll, false)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}

	// Writes that bypass the recorder are not seen until the entry expires.
	if err := st.InsertEvents(ctx, []model.AnalyticsEvent{
		event(model.EventPageView, "/", model.DeviceDesktop, "1.1.1.1", time.Now().UTC()),
	}); err != nil {
		t.Fatalf("InsertEvents: %v", err)
	}
	cached, _ := r.Stats(ctx, model.RangeAll, false)
	if cached.TotalVisits != before.TotalVisits {
		t.Errorf("expected cached result, got %d visits", cached.TotalVisits)
	}

	// Persisting a batch through the recorder invalidates the cache.
	r.Track(model.AnalyticsEvent{EventType: model.EventPageView, Page: "/"})
	if err := r.Flush(ctx); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	fresh, _ := r.Stats(ctx, model.RangeAll, false)
	if fresh.TotalVisits != 2 {
		t.Errorf("after flush: got %d visits, want 2", fresh.TotalVisits)
	}
}

func TestStatsCacheDropsResultComputedBeforePurge(t *testing.T) {
	r := NewRecorder(newTestStore(t), RecorderConfig{StatsCacheTTL: time.Minute}, discardLogger())
	now := time.Now()

	_, gen, ok := r.cacheLookup(model.RangeAll, now)
	if ok {
		t.Fatal("empty cache reported a hit")
	}

	// A batch lands while the aggregate is being computed.
	r.purgeCache()
	r.cacheStore(model.RangeAll, gen, &model.AnalyticsStats{TotalVisits: 1}, now)
	if _, _, ok := r.cacheLookup(model.RangeAll, now); ok {
		t.Error("result computed before the purge should not be cached")
	}

	_, gen, _ = r.cacheLookup(model.RangeAll, now)
	r.cacheStore(model.RangeAll, gen, &model.AnalyticsStats{TotalVisits: 2}, now)
	got, _, ok := r.cacheLookup(model.RangeAll, now)
	if !ok || got.TotalVisits != 2 {
		t.Errorf("current-generation result should be cached, got %+v, %v", got, ok)
	}
	if _, _, ok := r.cacheLookup(model.RangeAll, now.Add(2*time.Minute)); ok {
		t.Error("expired entry reported a hit")
	}
}

func TestTrackDropsWhenQueueFull(t *testing.T) {
	st := newTestStore(t)
	r := NewRecorder(st, RecorderConfig{QueueSize: 1}, discardLogger())
	// Mark running without a writer so nothing drains the queue.
	r.running = true

	if _, ok := r.Track(model.AnalyticsEvent{EventType: model.EventClick, Page: "/"}); !ok {
		t.Error("first event should be accepted")
	}
	if _, ok := r.Track(model.AnalyticsEvent{EventType: model.EventClick, Page: "/"}); ok {
		t.Error("second event should be dropped")
	}
}

func TestTrackAfterShutdown(t *testing.T) {
	r, st := newTestRecorder(t, RecorderConfig{FlushInterval: time.Hour})
	ctx := context.Background()

	r.Track(model.AnalyticsEvent{EventType: model.EventPageView, Page: "/"})
	if err := r.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	n, err := st.CountEvents(ctx)
	if err != nil {
		t.Fatalf("CountEvents: %v", err)
	}
	if n != 1 {
		t.Errorf("got %d stored events, want 1 flushed on shutdown", n)
	}

	if _, ok := r.Track(model.AnalyticsEvent{EventType: model.EventPageView, Page: "/"}); ok {
		t.Error("expected events to be refused after shutdown")
	}
	if err := r.Flush(ctx); err != ErrRecorderStopped {
		t.Errorf("Flush: got %v, want ErrRecorderStopped", err)
	}
}

func TestBreakerOpensOnStoreFailure(t *testing.T) {
	r, st := newTestRecorder(t, RecorderConfig{})
	ctx := context.Background()
	st.Close()

	for i := 0; i < 3; i++ {
		r.Track(model.AnalyticsEvent{EventType: model.EventClick, Page: "/"})
		if err := r.Flush(ctx); err != nil {
			t.Fatalf("Flush: %v", err)
		}
	}
	if r.breaker.State() != gobreaker.StateOpen {
		t.Errorf("breaker: got %s, want open", r.breaker.State())
	}
}

func TestTrackAssignsDefaults(t *testing.T) {
	r, _ := newTestRecorder(t, RecorderConfig{})
	ev, ok := r.Track(model.AnalyticsEvent{EventType: model.EventClick, Page: "/", DeviceType: "fridge"})
	if !ok {
		t.Fatal("expected event to be accepted")
	}
	if ev.ID == "" || ev.Timestamp.IsZero() {
		t.Errorf("expected id and timestamp, got %+v", ev)
	}
	if ev.DeviceType != model.DeviceDesktop {
		t.Errorf("device: got %q, want desktop", ev.DeviceType)
	}
}
