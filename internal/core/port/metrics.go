package port

import "time"

// ResolutionMetrics captures telemetry hooks for permission resolution.
type ResolutionMetrics interface {
	IncCacheHit()
	IncCacheMiss()
	IncCacheError(operation string)
	ObserveResolution(administrator bool, duration time.Duration)
}
