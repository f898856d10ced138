package middleware

import (
	"sync"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// RedisErrors counts failed Redis commands by command name.
var RedisErrors = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "socialrank_redis_errors_total",
	Help: "Total number of Redis command errors",
}, []string{"command"})

// RateLimited counts requests rejected by the rate limiter.
var RateLimited = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "socialrank_rate_limited_total",
	Help: "Requests rejected by the rate limiter",
}, []string{"resource"})

// ActiveWebSockets tracks open notification streams.
var ActiveWebSockets = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "socialrank_active_websockets",
	Help: "Number of open notification WebSocket connections",
})

var (
	promOnce sync.Once
	prom     *fiberprometheus.FiberPrometheus
)

// InitMetrics returns the process-wide HTTP metrics collector. The collector
// registers with the default registry, so it is created once.
func InitMetrics(serviceName string) *fiberprometheus.FiberPrometheus {
	promOnce.Do(func() {
		prom = fiberprometheus.New(serviceName)
	})
	return prom
}

// MetricsMiddleware records request metrics, skipping the scrape endpoint itself.
func MetricsMiddleware(p *fiberprometheus.FiberPrometheus) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if c.Path() == "/metrics" {
			return c.Next()
		}
		return p.Middleware(c)
	}
}
