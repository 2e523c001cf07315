package metric

import (
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	dto "github.com/prometheus/client_model/go"
)

// IncrementalCounter counts events by label values.
type IncrementalCounter interface {
	Increment(val ...string)
}

// Counter is a labelled Prometheus counter.
type Counter struct {
	Name string
	Help string

	vec *prometheus.CounterVec
}

// Increment adds one to the series identified by the label values.
func (c *Counter) Increment(val ...string) {
	c.vec.WithLabelValues(val...).Inc()
}

// Value returns the current value of one series. It is meant for tests and
// debug output.
func (c *Counter) Value(val ...string) float64 {
	var m dto.Metric
	if err := c.vec.WithLabelValues(val...).Write(&m); err != nil {
		return 0
	}
	return m.GetCounter().GetValue()
}

// NewCounter registers a counter with the default registerer.
func NewCounter(name, help string, labels ...string) (*Counter, error) {
	return NewCounterWithRegistry(prometheus.DefaultRegisterer, name, help, labels...)
}

// NewCounterWithRegistry registers a counter with reg. Registering the same
// counter twice returns the collector registered first, so several
// components can share one series.
func NewCounterWithRegistry(reg prometheus.Registerer, name, help string, labels ...string) (*Counter, error) {
	counter := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: name,
		Help: help,
	}, labels)

	if err := reg.Register(counter); err != nil {
		var are prometheus.AlreadyRegisteredError
		if !errors.As(err, &are) {
			return nil, err
		}
		existing, ok := are.ExistingCollector.(*prometheus.CounterVec)
		if !ok {
			return nil, err
		}
		counter = existing
	}

	return &Counter{
		Name: name,
		Help: help,
		vec:  counter,
	}, nil
}

type nop struct{}

func (nop) Increment(...string) {}

// Nop returns a counter that discards increments.
func Nop() IncrementalCounter {
	return nop{}
}

// GetHandler returns an HTTP handler for serving Prometheus metrics.
func GetHandler() http.Handler {
	return promhttp.Handler()
}

// GetHandlerForRegistry returns an HTTP handler for serving Prometheus metrics from a custom registry.
func GetHandlerForRegistry(reg prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}
