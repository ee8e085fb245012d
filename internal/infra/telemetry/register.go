package telemetry

import (
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// Register registers collector with reg, returning the already registered collector when an
// identical one exists so constructors can be called more than once per process.
func Register[T prometheus.Collector](reg prometheus.Registerer, collector T) (T, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	if err := reg.Register(collector); err != nil {
		var already prometheus.AlreadyRegisteredError
		if !errors.As(err, &already) {
			return collector, fmt.Errorf("register collector: %w", err)
		}
		existing, ok := already.ExistingCollector.(T)
		if !ok {
			return collector, fmt.Errorf("existing collector has unexpected type %T", already.ExistingCollector)
		}
		return existing, nil
	}
	return collector, nil
}
