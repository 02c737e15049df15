package screen

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/kjstillabower/weatherview/internal/models"
	"github.com/kjstillabower/weatherview/internal/observability"
)

type mockLocator struct {
	pos   models.Position
	err   error
	block chan struct{} // if set, CurrentPosition waits for it or ctx.Done()
	calls atomic.Int64
}

func (m *mockLocator) CurrentPosition(ctx context.Context) (models.Position, error) {
	m.calls.Add(1)
	if m.block != nil {
		select {
		case <-ctx.Done():
			return models.Position{}, ctx.Err()
		case <-m.block:
		}
	}
	return m.pos, m.err
}

type mockFetcher struct {
	conditions models.Conditions
	err        error
	calls      atomic.Int64
	lastPos    atomic.Value
}

func (m *mockFetcher) GetCurrentConditions(ctx context.Context, pos models.Position) (models.Conditions, error) {
	m.calls.Add(1)
	m.lastPos.Store(pos)
	return m.conditions, m.err
}

type recordingNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (n *recordingNotifier) Notify(message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, message)
}

func (n *recordingNotifier) Messages() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, len(n.messages))
	copy(out, n.messages)
	return out
}

func newTestView(loc *mockLocator, f *mockFetcher, n Notifier, opts Options) *WeatherView {
	if opts.AlertDelay == 0 {
		opts.AlertDelay = -1
	}
	return NewWeatherView(loc, f, n, opts)
}

func waitIdle(t *testing.T, v *WeatherView) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := v.WaitIdle(ctx, time.Millisecond); err != nil {
		t.Fatalf("WaitIdle() error = %v", err)
	}
}

var seoul = models.Position{Latitude: 37.5665, Longitude: 126.978}

// TestRefreshWeather_FieldMapping verifies that a successful flow stores
// temperature and condition label and renders them as the single list item.
func TestRefreshWeather_FieldMapping(t *testing.T) {
	loc := &mockLocator{pos: seoul}
	fetcher := &mockFetcher{conditions: models.Conditions{Temperature: 21.5, Weather: "Clouds"}}
	notifier := &recordingNotifier{}
	view := newTestView(loc, fetcher, notifier, Options{})

	if err := view.RefreshWeather(context.Background()); err != nil {
		t.Fatalf("RefreshWeather() error = %v", err)
	}

	snap := view.Snapshot()
	if snap.Temperature == nil || *snap.Temperature != 21.5 {
		t.Errorf("Temperature = %v, want 21.5", snap.Temperature)
	}
	if snap.Weather == nil || *snap.Weather != "Clouds" {
		t.Errorf("Weather = %v, want Clouds", snap.Weather)
	}
	if snap.Refreshing {
		t.Error("Refreshing = true after completed fetch, want false")
	}
	if got := fetcher.lastPos.Load().(models.Position); got != seoul {
		t.Errorf("fetcher position = %+v, want %+v", got, seoul)
	}

	rendered := view.View()
	if rendered.Loading {
		t.Error("View().Loading = true, want false")
	}
	if len(rendered.Items) != 1 {
		t.Fatalf("len(Items) = %d, want 1", len(rendered.Items))
	}
	if rendered.Items[0].Label != "Clouds" {
		t.Errorf("Label = %q, want %q", rendered.Items[0].Label, "Clouds")
	}
	if rendered.Items[0].Temperature != "(21.5°C)" {
		t.Errorf("Temperature text = %q, want %q", rendered.Items[0].Temperature, "(21.5°C)")
	}

	waitIdle(t, view)
	if msgs := notifier.Messages(); len(msgs) != 0 {
		t.Errorf("notifications = %v, want none", msgs)
	}
}

// TestRefreshWeather_IdempotentSuccess verifies that two flows with identical
// inputs yield the same display fields.
func TestRefreshWeather_IdempotentSuccess(t *testing.T) {
	loc := &mockLocator{pos: seoul}
	fetcher := &mockFetcher{conditions: models.Conditions{Temperature: 12, Weather: "Rain"}}
	view := newTestView(loc, fetcher, &recordingNotifier{}, Options{})

	if err := view.RefreshWeather(context.Background()); err != nil {
		t.Fatalf("first RefreshWeather() error = %v", err)
	}
	first := view.Snapshot()
	if err := view.RefreshWeather(context.Background()); err != nil {
		t.Fatalf("second RefreshWeather() error = %v", err)
	}
	second := view.Snapshot()

	if *first.Temperature != *second.Temperature || *first.Weather != *second.Weather || first.Refreshing != second.Refreshing {
		t.Errorf("snapshots differ: first=%+v second=%+v", first, second)
	}
	if Render(first).Items[0] != Render(second).Items[0] {
		t.Errorf("rendered items differ")
	}
}

// TestRefreshWeather_LocationFailure verifies that no network call is made and
// the display fields stay absent when the position cannot be obtained.
func TestRefreshWeather_LocationFailure(t *testing.T) {
	loc := &mockLocator{err: errors.New("permission denied")}
	fetcher := &mockFetcher{conditions: models.Conditions{Temperature: 1, Weather: "Snow"}}
	notifier := &recordingNotifier{}
	view := newTestView(loc, fetcher, notifier, Options{})

	err := view.RefreshWeather(context.Background())
	if !errors.Is(err, ErrLocationUnavailable) {
		t.Fatalf("RefreshWeather() error = %v, want ErrLocationUnavailable", err)
	}
	if got := fetcher.calls.Load(); got != 0 {
		t.Errorf("fetcher calls = %d, want 0", got)
	}

	snap := view.Snapshot()
	if snap.Temperature != nil || snap.Weather != nil {
		t.Errorf("snapshot fields = %+v, want absent", snap)
	}
	if snap.Refreshing {
		t.Error("Refreshing = true after failed fetch, want false")
	}

	waitIdle(t, view)
	msgs := notifier.Messages()
	if len(msgs) != 1 || msgs[0] != MessageLocationFailed {
		t.Errorf("notifications = %v, want [%q]", msgs, MessageLocationFailed)
	}
}

// TestRefreshWeather_WeatherFailure verifies that a failed weather call leaves
// the fields absent and raises exactly one notification.
func TestRefreshWeather_WeatherFailure(t *testing.T) {
	loc := &mockLocator{pos: seoul}
	fetcher := &mockFetcher{err: errors.New("connection refused")}
	notifier := &recordingNotifier{}
	view := newTestView(loc, fetcher, notifier, Options{})

	err := view.RefreshWeather(context.Background())
	if !errors.Is(err, ErrWeatherFetchFailed) {
		t.Fatalf("RefreshWeather() error = %v, want ErrWeatherFetchFailed", err)
	}

	snap := view.Snapshot()
	if snap.Temperature != nil || snap.Weather != nil {
		t.Errorf("snapshot fields = %+v, want absent", snap)
	}

	waitIdle(t, view)
	msgs := notifier.Messages()
	if len(msgs) != 1 {
		t.Fatalf("notifications = %d, want exactly 1 (%v)", len(msgs), msgs)
	}
	if msgs[0] != MessageWeatherFailed {
		t.Errorf("notification = %q, want %q", msgs[0], MessageWeatherFailed)
	}
}

// TestRefreshWeather_FailureClearsPreviousSnapshot verifies wholesale
// replacement: a failure after a success leaves no stale fields.
func TestRefreshWeather_FailureClearsPreviousSnapshot(t *testing.T) {
	loc := &mockLocator{pos: seoul}
	fetcher := &mockFetcher{conditions: models.Conditions{Temperature: 30, Weather: "Clear"}}
	view := newTestView(loc, fetcher, &recordingNotifier{}, Options{})

	if err := view.RefreshWeather(context.Background()); err != nil {
		t.Fatalf("RefreshWeather() error = %v", err)
	}
	fetcher.err = errors.New("boom")
	_ = view.RefreshWeather(context.Background())

	if view.Snapshot().Valid() {
		t.Error("snapshot still valid after failed refresh, want cleared")
	}
	waitIdle(t, view)
}

// TestEmptyStateRendering verifies that a fresh screen shows the loading
// placeholder and no data item.
func TestEmptyStateRendering(t *testing.T) {
	view := newTestView(&mockLocator{}, &mockFetcher{}, &recordingNotifier{}, Options{})

	rendered := view.View()
	if !rendered.Loading {
		t.Error("Loading = false before any fetch, want true")
	}
	if rendered.LoadingLabel != LoadingLabel {
		t.Errorf("LoadingLabel = %q, want %q", rendered.LoadingLabel, LoadingLabel)
	}
	if len(rendered.Items) != 0 {
		t.Errorf("Items = %v, want none", rendered.Items)
	}
}

// TestRefresh_InvokesFlowOncePerCall verifies that each pull-to-refresh gesture
// runs the fetch flow exactly once, regardless of prior state.
func TestRefresh_InvokesFlowOncePerCall(t *testing.T) {
	loc := &mockLocator{pos: seoul}
	fetcher := &mockFetcher{conditions: models.Conditions{Temperature: 5, Weather: "Fog"}}
	view := newTestView(loc, fetcher, &recordingNotifier{}, Options{})

	for i := 1; i <= 3; i++ {
		if err := view.Refresh(context.Background()); err != nil {
			t.Fatalf("Refresh() #%d error = %v", i, err)
		}
		waitIdle(t, view)
		if got := loc.calls.Load(); got != int64(i) {
			t.Errorf("after %d refreshes locator calls = %d, want %d", i, got, i)
		}
		if got := fetcher.calls.Load(); got != int64(i) {
			t.Errorf("after %d refreshes fetcher calls = %d, want %d", i, got, i)
		}
	}
}

// TestRefresh_IndicatorShownDuringFetch verifies that the refresh indicator is
// visible while a fetch is in flight and hidden afterwards.
func TestRefresh_IndicatorShownDuringFetch(t *testing.T) {
	loc := &mockLocator{pos: seoul, block: make(chan struct{})}
	fetcher := &mockFetcher{conditions: models.Conditions{Temperature: 18, Weather: "Clear"}}
	view := newTestView(loc, fetcher, &recordingNotifier{}, Options{})

	started := make(chan models.Snapshot, 4)
	unsubscribe := view.Subscribe(func(s models.Snapshot) { started <- s })
	defer unsubscribe()

	if err := view.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}

	select {
	case s := <-started:
		if !s.Refreshing {
			t.Error("first write Refreshing = false, want true")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for refreshing snapshot")
	}
	if !view.View().Refreshing {
		t.Error("View().Refreshing = false during fetch, want true")
	}
	if got := view.InFlight(); got != 1 {
		t.Errorf("InFlight() = %d, want 1", got)
	}

	close(loc.block)
	waitIdle(t, view)

	if view.View().Refreshing {
		t.Error("View().Refreshing = true after fetch, want false")
	}
	if got := view.InFlight(); got != 0 {
		t.Errorf("InFlight() = %d after fetch, want 0", got)
	}
}

func TestRefresh_IgnoreOverlapping(t *testing.T) {
	loc := &mockLocator{pos: seoul, block: make(chan struct{})}
	fetcher := &mockFetcher{conditions: models.Conditions{Temperature: 18, Weather: "Clear"}}
	view := newTestView(loc, fetcher, &recordingNotifier{}, Options{IgnoreOverlappingRefresh: true})

	if err := view.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	deadline := time.Now().Add(2 * time.Second)
	for view.InFlight() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}

	if err := view.Refresh(context.Background()); !errors.Is(err, ErrRefreshInProgress) {
		t.Errorf("overlapping Refresh() error = %v, want ErrRefreshInProgress", err)
	}

	close(loc.block)
	waitIdle(t, view)
	if got := loc.calls.Load(); got != 1 {
		t.Errorf("locator calls = %d, want 1", got)
	}
}

// TestRefresh_OverlappingWithoutGuard verifies that both flows run when the
// guard is off; the last write wins.
func TestRefresh_OverlappingWithoutGuard(t *testing.T) {
	loc := &mockLocator{pos: seoul}
	fetcher := &mockFetcher{conditions: models.Conditions{Temperature: 9, Weather: "Drizzle"}}
	view := newTestView(loc, fetcher, &recordingNotifier{}, Options{})

	_ = view.Refresh(context.Background())
	_ = view.Refresh(context.Background())
	waitIdle(t, view)

	if got := fetcher.calls.Load(); got != 2 {
		t.Errorf("fetcher calls = %d, want 2", got)
	}
	if !view.Snapshot().Valid() {
		t.Error("snapshot not valid after overlapping refreshes")
	}
}

func TestMount_TriggersInitialFetch(t *testing.T) {
	loc := &mockLocator{pos: seoul}
	fetcher := &mockFetcher{conditions: models.Conditions{Temperature: 21.5, Weather: "Clouds"}}
	view := newTestView(loc, fetcher, &recordingNotifier{}, Options{})

	view.Mount(context.Background())
	defer view.Unmount()
	waitIdle(t, view)

	if !view.Mounted() {
		t.Error("Mounted() = false after Mount")
	}
	if got := loc.calls.Load(); got != 1 {
		t.Errorf("locator calls after Mount = %d, want 1", got)
	}
	if !view.Snapshot().Valid() {
		t.Error("snapshot not valid after initial fetch")
	}

	view.Mount(context.Background())
	waitIdle(t, view)
	if got := loc.calls.Load(); got != 1 {
		t.Errorf("second Mount re-fetched: locator calls = %d, want 1", got)
	}
}

// TestUnmount_DiscardsLateResults verifies that a fetch finishing after
// unmount neither writes the snapshot nor raises an alert.
func TestUnmount_DiscardsLateResults(t *testing.T) {
	loc := &mockLocator{pos: seoul, block: make(chan struct{})}
	fetcher := &mockFetcher{conditions: models.Conditions{Temperature: 21.5, Weather: "Clouds"}}
	notifier := &recordingNotifier{}
	view := newTestView(loc, fetcher, notifier, Options{})

	view.Mount(context.Background())
	deadline := time.Now().Add(2 * time.Second)
	for view.InFlight() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	view.Unmount()
	waitIdle(t, view)

	if view.Snapshot().Valid() || view.Snapshot().Refreshing {
		t.Errorf("snapshot after unmount = %+v, want empty", view.Snapshot())
	}
	if msgs := notifier.Messages(); len(msgs) != 0 {
		t.Errorf("notifications after unmount = %v, want none", msgs)
	}
	if err := view.Refresh(context.Background()); !errors.Is(err, ErrNotMounted) {
		t.Errorf("Refresh() after unmount error = %v, want ErrNotMounted", err)
	}
}

func TestShowError_HonoursDelay(t *testing.T) {
	notifier := &recordingNotifier{}
	view := NewWeatherView(&mockLocator{err: errors.New("no fix")}, &mockFetcher{}, notifier, Options{AlertDelay: 100 * time.Millisecond})

	_ = view.RefreshWeather(context.Background())
	if msgs := notifier.Messages(); len(msgs) != 0 {
		t.Errorf("notification delivered before delay: %v", msgs)
	}
	waitIdle(t, view)
	if msgs := notifier.Messages(); len(msgs) != 1 {
		t.Errorf("notifications after delay = %v, want 1", msgs)
	}
}

func TestNewWeatherView_DefaultAlertDelay(t *testing.T) {
	view := NewWeatherView(&mockLocator{}, &mockFetcher{}, nil, Options{})
	if view.alertDelay != DefaultAlertDelay {
		t.Errorf("alertDelay = %v, want %v", view.alertDelay, DefaultAlertDelay)
	}
}

// TestRefreshWeather_UsesRequestLogger verifies that the flow logs through the
// logger carried in the context.
func TestRefreshWeather_UsesRequestLogger(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := zap.New(core)
	view := newTestView(&mockLocator{pos: seoul}, &mockFetcher{err: errors.New("boom")}, nil, Options{})

	ctx := observability.WithLogger(context.Background(), logger)
	_ = view.RefreshWeather(ctx)

	if logs.FilterMessage("weather fetch failed").Len() != 1 {
		t.Errorf("expected one 'weather fetch failed' log entry, got %d", logs.FilterMessage("weather fetch failed").Len())
	}
}
