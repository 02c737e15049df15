// Package screen implements the weather screen: the location+weather fetch
// flow, the snapshot it writes, and the alerts it raises on failure.
package screen

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/kjstillabower/weatherview/internal/location"
	"github.com/kjstillabower/weatherview/internal/models"
	"github.com/kjstillabower/weatherview/internal/observability"
	"github.com/kjstillabower/weatherview/internal/traffic"
)

// User-facing alert messages.
const (
	MessageLocationFailed = "failed to retrieve location"
	MessageWeatherFailed  = "failed to retrieve weather information"
)

// DefaultAlertDelay defers alerts so they do not race the re-render caused
// by the same snapshot write.
const DefaultAlertDelay = 500 * time.Millisecond

var (
	// ErrLocationUnavailable: the device position could not be obtained.
	ErrLocationUnavailable = errors.New("location unavailable")
	// ErrWeatherFetchFailed: the weather request failed or returned unusable data.
	// Transport errors and HTTP error statuses are not distinguished.
	ErrWeatherFetchFailed = errors.New("weather fetch failed")
	// ErrRefreshInProgress is returned when an overlapping refresh is ignored.
	ErrRefreshInProgress = errors.New("refresh already in progress")
	// ErrNotMounted is returned by Refresh after the screen was unmounted.
	ErrNotMounted = errors.New("screen not mounted")
)

// ConditionsFetcher retrieves current conditions for a position.
type ConditionsFetcher interface {
	GetCurrentConditions(ctx context.Context, pos models.Position) (models.Conditions, error)
}

// Options tunes a WeatherView. Zero values select the defaults.
type Options struct {
	// AlertDelay defers every alert; 0 uses DefaultAlertDelay, negative delivers immediately.
	AlertDelay time.Duration
	// IgnoreOverlappingRefresh drops Refresh calls while a fetch is in flight.
	IgnoreOverlappingRefresh bool
	Logger                   *zap.Logger
}

// WeatherView is one mounted weather screen.
type WeatherView struct {
	locator  location.Locator
	fetcher  ConditionsFetcher
	notifier Notifier
	store    *Store
	logger   *zap.Logger

	alertDelay    time.Duration
	ignoreOverlap bool

	fetching atomic.Int64
	guard    atomic.Bool
	work     workTracker

	mu      sync.Mutex
	mounted bool
	baseCtx context.Context
	cancel  context.CancelFunc
}

// NewWeatherView wires a screen from its locator, weather source and notifier.
func NewWeatherView(locator location.Locator, fetcher ConditionsFetcher, notifier Notifier, opts Options) *WeatherView {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	delay := opts.AlertDelay
	if delay == 0 {
		delay = DefaultAlertDelay
	}
	if delay < 0 {
		delay = 0
	}
	return &WeatherView{
		locator:       locator,
		fetcher:       fetcher,
		notifier:      notifier,
		store:         NewStore(),
		logger:        logger,
		alertDelay:    delay,
		ignoreOverlap: opts.IgnoreOverlappingRefresh,
	}
}

// Mount shows the screen: it resets the snapshot and starts the first fetch.
// parent bounds every fetch started while mounted.
func (v *WeatherView) Mount(parent context.Context) {
	v.mu.Lock()
	if v.mounted {
		v.mu.Unlock()
		return
	}
	v.baseCtx, v.cancel = context.WithCancel(parent)
	v.mounted = true
	v.mu.Unlock()

	v.store.Attach()
	v.logger.Info("screen mounted")
	_ = v.Refresh(parent)
}

// Unmount discards the snapshot and cancels in-flight fetches. Late results
// are dropped.
func (v *WeatherView) Unmount() {
	v.mu.Lock()
	if !v.mounted {
		v.mu.Unlock()
		return
	}
	v.mounted = false
	cancel := v.cancel
	v.mu.Unlock()

	cancel()
	v.store.Detach()
	v.logger.Info("screen unmounted")
}

// Mounted reports whether the screen is currently shown.
func (v *WeatherView) Mounted() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.mounted
}

// Snapshot returns the current snapshot.
func (v *WeatherView) Snapshot() models.Snapshot {
	return v.store.Get()
}

// View renders the current snapshot.
func (v *WeatherView) View() View {
	return Render(v.store.Get())
}

// Subscribe observes every snapshot write. The returned function unsubscribes.
func (v *WeatherView) Subscribe(fn func(models.Snapshot)) func() {
	return v.store.Subscribe(fn)
}

// InFlight returns the number of fetch flows currently running.
func (v *WeatherView) InFlight() int64 {
	return v.fetching.Load()
}

// WaitIdle blocks until no fetch is running and no alert is pending delivery.
func (v *WeatherView) WaitIdle(ctx context.Context, checkInterval time.Duration) error {
	return v.work.WaitForZero(ctx, checkInterval)
}

// Refresh is the pull-to-refresh gesture: it starts one fetch flow in the
// background and returns immediately. Request-scoped values in ctx (logger,
// correlation ID) carry over; its cancellation does not. Refresh reports
// ErrRefreshInProgress when the overlap guard drops the call and ErrNotMounted
// once the screen has been unmounted.
func (v *WeatherView) Refresh(ctx context.Context) error {
	v.mu.Lock()
	base, mounted := v.baseCtx, v.mounted
	v.mu.Unlock()
	if base != nil && !mounted {
		return ErrNotMounted
	}

	if v.ignoreOverlap && !v.guard.CompareAndSwap(false, true) {
		observability.RefreshDeniedTotal.WithLabelValues("in_progress").Inc()
		traffic.RecordRefreshDenied()
		return ErrRefreshInProgress
	}

	fctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	stop := func() bool { return false }
	if base != nil {
		stop = context.AfterFunc(base, cancel)
	}

	v.work.Add(1)
	go func() {
		defer v.work.Done()
		defer cancel()
		defer stop()
		if v.ignoreOverlap {
			defer v.guard.Store(false)
		}
		if err := v.RefreshWeather(fctx); err != nil {
			observability.LoggerFromContext(fctx, v.logger).Debug("refresh finished with error", zap.Error(err))
		}
	}()
	return nil
}

// RefreshWeather runs one location+weather flow synchronously and writes the
// outcome to the snapshot. Failures raise an alert and are returned wrapped in
// ErrLocationUnavailable or ErrWeatherFetchFailed. No alert is raised once the
// screen is unmounted.
func (v *WeatherView) RefreshWeather(ctx context.Context) error {
	logger := observability.LoggerFromContext(ctx, v.logger)
	start := time.Now()

	v.fetching.Add(1)
	observability.FetchesInFlight.Inc()
	defer func() {
		v.fetching.Add(-1)
		observability.FetchesInFlight.Dec()
		observability.FetchDuration.Observe(time.Since(start).Seconds())
	}()

	v.store.Set(models.Snapshot{Refreshing: true})

	pos, err := v.locator.CurrentPosition(ctx)
	if err != nil {
		observability.FetchesTotal.WithLabelValues("location_failed").Inc()
		traffic.RecordFetchFailed()
		logger.Warn("location lookup failed", zap.Error(err))
		if v.store.Set(models.Snapshot{}) {
			v.showError(MessageLocationFailed)
		}
		return fmt.Errorf("%w: %v", ErrLocationUnavailable, err)
	}

	conditions, err := v.fetcher.GetCurrentConditions(ctx, pos)
	if err != nil {
		observability.FetchesTotal.WithLabelValues("weather_failed").Inc()
		traffic.RecordFetchFailed()
		logger.Warn("weather fetch failed", zap.Error(err))
		if v.store.Set(models.Snapshot{}) {
			v.showError(MessageWeatherFailed)
		}
		return fmt.Errorf("%w: %v", ErrWeatherFetchFailed, err)
	}

	v.store.Set(models.SnapshotFromConditions(conditions))
	observability.FetchesTotal.WithLabelValues("success").Inc()
	traffic.RecordFetchSucceeded()
	logger.Debug("weather updated",
		zap.Float64("temperature", conditions.Temperature),
		zap.String("weather", conditions.Weather),
		zap.Duration("duration", time.Since(start)))
	return nil
}

// showError delivers message after the alert delay.
func (v *WeatherView) showError(message string) {
	if v.notifier == nil {
		return
	}
	v.work.Add(1)
	time.AfterFunc(v.alertDelay, func() {
		defer v.work.Done()
		v.notifier.Notify(message)
	})
}
