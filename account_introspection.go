package goAccount

import (
	"context"
	"time"
)

// Health pings the registry store and reports its latency.
func (a *Account) Health(ctx context.Context) HealthStatus {
	if a.ready() != nil {
		return HealthStatus{}
	}

	start := time.Now()
	err := a.store.Ping(ctx)
	return HealthStatus{
		StoreAvailable: err == nil,
		StoreLatency:   time.Since(start),
	}
}
