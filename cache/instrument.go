package cache

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Instrumented decorates a region with OpenTelemetry metrics: lookup
// outcomes, writes, evictions, and loader latency, all attributed to
// the region name.
type Instrumented struct {
	inner Cache

	getCount     metric.Int64Counter
	putCount     metric.Int64Counter
	evictCount   metric.Int64Counter
	loadDuration metric.Float64Histogram
}

// NewInstrumented wraps inner with metrics recorded against meter.
func NewInstrumented(inner Cache, meter metric.Meter) (*Instrumented, error) {
	getCount, err := meter.Int64Counter(
		"cache.gets.total",
		metric.WithDescription("Total number of cache lookups"),
		metric.WithUnit("{lookup}"),
	)
	if err != nil {
		return nil, err
	}

	putCount, err := meter.Int64Counter(
		"cache.puts.total",
		metric.WithDescription("Total number of cache writes"),
		metric.WithUnit("{write}"),
	)
	if err != nil {
		return nil, err
	}

	evictCount, err := meter.Int64Counter(
		"cache.evictions.total",
		metric.WithDescription("Total number of cache evictions"),
		metric.WithUnit("{eviction}"),
	)
	if err != nil {
		return nil, err
	}

	loadDuration, err := meter.Float64Histogram(
		"cache.load.duration_ms",
		metric.WithDescription("Loader execution duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	return &Instrumented{
		inner:        inner,
		getCount:     getCount,
		putCount:     putCount,
		evictCount:   evictCount,
		loadDuration: loadDuration,
	}, nil
}

// Name returns the wrapped region's name.
func (c *Instrumented) Name() string {
	return c.inner.Name()
}

// Get records the lookup outcome and delegates.
func (c *Instrumented) Get(ctx context.Context, key any) (ValueWrapper, bool) {
	w, ok := c.inner.Get(ctx, key)
	c.getCount.Add(ctx, 1, c.lookupAttrs(ok))
	return w, ok
}

// GetOrLoad delegates and records loader latency when the loader runs.
// The lookup outcome is attributed from the store itself: a caller that
// joins another caller's in-flight load was not served from the store
// and counts as a miss even though its own loader never ran.
func (c *Instrumented) GetOrLoad(ctx context.Context, key any, loader Loader) (any, error) {
	if w, ok := c.inner.Get(ctx, key); ok {
		c.getCount.Add(ctx, 1, c.lookupAttrs(true))
		return w.Get(), nil
	}

	timed := func(ctx context.Context) (any, error) {
		start := time.Now()
		v, err := loader(ctx)
		c.loadDuration.Record(ctx, float64(time.Since(start).Milliseconds()), c.regionAttrs())
		return v, err
	}

	v, err := c.inner.GetOrLoad(ctx, key, timed)
	c.getCount.Add(ctx, 1, c.lookupAttrs(false))
	return v, err
}

// Put records the write and delegates.
func (c *Instrumented) Put(ctx context.Context, key any, value any) {
	c.inner.Put(ctx, key, value)
	c.putCount.Add(ctx, 1, c.regionAttrs())
}

// PutIfAbsent records the write attempt and delegates.
func (c *Instrumented) PutIfAbsent(ctx context.Context, key any, value any) (ValueWrapper, bool) {
	w, present := c.inner.PutIfAbsent(ctx, key, value)
	if !present {
		c.putCount.Add(ctx, 1, c.regionAttrs())
	}
	return w, present
}

// Evict records the eviction and delegates.
func (c *Instrumented) Evict(ctx context.Context, key any) {
	c.inner.Evict(ctx, key)
	c.evictCount.Add(ctx, 1, c.regionAttrs())
}

// Clear delegates. Individual entry counts are not observable here.
func (c *Instrumented) Clear(ctx context.Context) {
	c.inner.Clear(ctx)
}

func (c *Instrumented) regionAttrs() metric.MeasurementOption {
	return metric.WithAttributes(attribute.String("cache.region", c.inner.Name()))
}

func (c *Instrumented) lookupAttrs(hit bool) metric.MeasurementOption {
	result := "miss"
	if hit {
		result = "hit"
	}
	return metric.WithAttributes(
		attribute.String("cache.region", c.inner.Name()),
		attribute.String("cache.result", result),
	)
}

// Ensure Instrumented implements Cache
var _ Cache = (*Instrumented)(nil)
