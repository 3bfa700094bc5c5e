// Package observability wires the Prometheus registry and exposes it over HTTP.
package observability

import (
	"fmt"

	"github.com/Samuel-Bradshaw/wcmc-solution/internal/logger"
)

// promLogger adapts the module logger to promhttp.Logger.
type promLogger struct {
	log logger.Logger
}

func (p promLogger) Println(v ...any) {
	p.log.Error("metrics handler error", logger.String("detail", fmt.Sprint(v...)))
}
