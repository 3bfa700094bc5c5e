package datastore

import (
	"context"
	"time"
)

// ConnectionRecorder receives connection pool gauges.
type ConnectionRecorder interface {
	UpdateConnectionMetrics(active, idle, maxConn int)
}

// MonitorConnections publishes pool statistics every interval until ctx is done.
func MonitorConnections(ctx context.Context, mgr Manager, recorder ConnectionRecorder, interval time.Duration) {
	if mgr == nil || recorder == nil || interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		stats := mgr.Stats()
		recorder.UpdateConnectionMetrics(stats.InUse, stats.Idle, stats.MaxOpenConnections)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
