package observability

import (
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Concurrent scrapes beyond this limit get a 503.
const maxConcurrentScrapes = 4

var (
	scrapeOnce    sync.Once
	scrapeHandler fiber.Handler
)

// MetricsHandler serves the workflow, deposit and stream collectors in the OpenMetrics
// format when the scraper asks for it. A collector that fails to gather is skipped
// instead of failing the whole scrape.
func MetricsHandler() fiber.Handler {
	scrapeOnce.Do(func() {
		RegisterMetrics()
		inner := promhttp.HandlerFor(prometheus.DefaultGatherer, promhttp.HandlerOpts{
			EnableOpenMetrics:   true,
			ErrorHandling:       promhttp.ContinueOnError,
			MaxRequestsInFlight: maxConcurrentScrapes,
		})
		scrapeHandler = adaptor.HTTPHandler(promhttp.InstrumentMetricHandler(prometheus.DefaultRegisterer, inner))
	})
	return scrapeHandler
}
