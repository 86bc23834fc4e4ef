package observability

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"

	"github.com/jensroland/git-trueblame/internal/git"
)

const (
	metricCacheHits   = "trueblame.cache.hits"
	metricCacheMisses = "trueblame.cache.misses"
	metricGitCommands = "trueblame.git.commands"
	metricGitDuration = "trueblame.git.duration.seconds"
	metricResolutions = "trueblame.resolutions"
	metricHops        = "trueblame.hops"
	meterName         = "github.com/jensroland/git-trueblame"
	attrOp            = "op"
	attrStatus        = "status"
	statusOK          = "ok"
	statusError       = "error"
	statusCanceled    = "canceled"
	statusTimeout     = "timeout"
)

// gitBucketBoundaries covers 1ms to 60s subprocess runtimes.
var gitBucketBoundaries = []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 5, 30, 60}

// hopBucketBoundaries covers direct hits up to pathological chains.
var hopBucketBoundaries = []float64{0, 1, 2, 3, 5, 10, 25, 100, 1000}

// Metrics holds the OTel instruments of a run. Its methods satisfy the
// cache, git and resolver observer interfaces and are safe on a nil
// receiver.
type Metrics struct {
	cacheHits   metric.Int64Counter
	cacheMisses metric.Int64Counter
	gitCommands metric.Int64Counter
	gitDuration metric.Float64Histogram
	resolutions metric.Int64Counter
	hops        metric.Int64Histogram
}

// NewMetrics creates instruments from mp. A nil provider yields no-op
// instruments.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	if mp == nil {
		mp = noop.NewMeterProvider()
	}
	mt := mp.Meter(meterName)

	hits, err := mt.Int64Counter(metricCacheHits,
		metric.WithDescription("Diff cache hits"),
		metric.WithUnit("{hit}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricCacheHits, err)
	}

	misses, err := mt.Int64Counter(metricCacheMisses,
		metric.WithDescription("Diff cache misses"),
		metric.WithUnit("{miss}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricCacheMisses, err)
	}

	cmds, err := mt.Int64Counter(metricGitCommands,
		metric.WithDescription("git subprocesses run, by subcommand and status"),
		metric.WithUnit("{command}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricGitCommands, err)
	}

	dur, err := mt.Float64Histogram(metricGitDuration,
		metric.WithDescription("git subprocess duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(gitBucketBoundaries...),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricGitDuration, err)
	}

	res, err := mt.Int64Counter(metricResolutions,
		metric.WithDescription("Line queries resolved, by status"),
		metric.WithUnit("{line}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricResolutions, err)
	}

	hops, err := mt.Int64Histogram(metricHops,
		metric.WithDescription("Rewrites followed per line"),
		metric.WithUnit("{hop}"),
		metric.WithExplicitBucketBoundaries(hopBucketBoundaries...),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricHops, err)
	}

	return &Metrics{
		cacheHits:   hits,
		cacheMisses: misses,
		gitCommands: cmds,
		gitDuration: dur,
		resolutions: res,
		hops:        hops,
	}, nil
}

// CacheHit counts a diff cache hit.
func (m *Metrics) CacheHit(ctx context.Context) {
	if m == nil {
		return
	}
	m.cacheHits.Add(ctx, 1)
}

// CacheMiss counts a diff cache miss.
func (m *Metrics) CacheMiss(ctx context.Context) {
	if m == nil {
		return
	}
	m.cacheMisses.Add(ctx, 1)
}

// GitCommand records one git subprocess.
func (m *Metrics) GitCommand(ctx context.Context, op string, d time.Duration, err error) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String(attrOp, op), attribute.String(attrStatus, status(err)))
	m.gitCommands.Add(ctx, 1, attrs)
	m.gitDuration.Record(ctx, d.Seconds(), metric.WithAttributes(attribute.String(attrOp, op)))
}

// Resolved records the outcome of one line query.
func (m *Metrics) Resolved(ctx context.Context, hops int, err error) {
	if m == nil {
		return
	}
	m.resolutions.Add(ctx, 1, metric.WithAttributes(attribute.String(attrStatus, status(err))))
	if err == nil {
		m.hops.Record(ctx, int64(hops))
	}
}

func status(err error) string {
	switch {
	case err == nil:
		return statusOK
	case errors.Is(err, context.Canceled):
		return statusCanceled
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, git.ErrTimeout):
		return statusTimeout
	default:
		return statusError
	}
}
