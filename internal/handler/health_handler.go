package handler

import (
	"context"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/testseries-api/internal/config"
	"github.com/noah-isme/testseries-api/internal/utils"
)

// HealthResponse represents the payload returned by the health endpoint.
type HealthResponse struct {
	Status      string            `json:"status"`
	Timestamp   time.Time         `json:"timestamp"`
	Service     string            `json:"service"`
	Environment string            `json:"environment"`
	Checks      map[string]string `json:"checks,omitempty"`
}

// HealthProbe reports whether a backing dependency answers.
type HealthProbe func(ctx context.Context) error

const probeTimeout = 2 * time.Second

// HealthCheck reports the service identity plus one line per probe. Probes run in
// parallel under a shared timeout; any failure turns the answer into a 503 "degraded".
func HealthCheck(cfg config.Config, probes map[string]HealthProbe) fiber.Handler {
	return func(c *fiber.Ctx) error {
		report := HealthResponse{
			Status:      "ok",
			Timestamp:   time.Now().UTC(),
			Service:     cfg.AppName,
			Environment: cfg.AppEnv,
		}

		if len(probes) > 0 {
			report.Checks = runProbes(requestContext(c), probes)
			for _, result := range report.Checks {
				if result != "ok" {
					report.Status = "degraded"
				}
			}
		}

		if report.Status != "ok" {
			return utils.SendSuccessWithStatus(c, fiber.StatusServiceUnavailable, "service degraded", report)
		}
		return utils.SendSuccess(c, "service healthy", report)
	}
}

func runProbes(parent context.Context, probes map[string]HealthProbe) map[string]string {
	ctx, cancel := context.WithTimeout(parent, probeTimeout)
	defer cancel()

	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		results = make(map[string]string, len(probes))
	)
	for name, probe := range probes {
		wg.Add(1)
		go func(name string, probe HealthProbe) {
			defer wg.Done()
			result := "ok"
			if err := probe(ctx); err != nil {
				result = err.Error()
			}
			mu.Lock()
			results[name] = result
			mu.Unlock()
		}(name, probe)
	}
	wg.Wait()
	return results
}
