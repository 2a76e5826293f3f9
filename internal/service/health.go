package service

import (
	"context"
	"sync"
	"time"

	"github.com/dtroode/medisupply-security/internal/logger"
	"github.com/dtroode/medisupply-security/internal/model"
)

// Health statuses.
const (
	StatusHealthy  = "healthy"
	StatusDegraded = "degraded"

	componentUp   = "up"
	componentDown = "down"
)

// HealthReport is the result of a health check.
type HealthReport struct {
	Status    string
	Timestamp time.Time
	Version   string
	Services  map[string]string
}

// Healthy reports whether every dependency answered.
func (r HealthReport) Healthy() bool {
	return r.Status == StatusHealthy
}

type healthCheck struct {
	name   string
	pinger model.Pinger
	static string
}

// Health pings the service's dependencies.
type Health struct {
	checks  []healthCheck
	version string
	timeout time.Duration
	logger  *logger.Logger
}

func NewHealth(version string, timeout time.Duration, logger *logger.Logger) *Health {
	return &Health{version: version, timeout: timeout, logger: logger}
}

// AddPinger registers a dependency pinged on every check.
func (h *Health) AddPinger(name string, p model.Pinger) {
	h.checks = append(h.checks, healthCheck{name: name, pinger: p})
}

// AddStatic registers a component whose status never changes.
func (h *Health) AddStatic(name, status string) {
	h.checks = append(h.checks, healthCheck{name: name, static: status})
}

// Check pings all dependencies concurrently.
func (h *Health) Check(ctx context.Context) HealthReport {
	report := HealthReport{
		Status:    StatusHealthy,
		Timestamp: time.Now().UTC(),
		Version:   h.version,
		Services:  make(map[string]string, len(h.checks)),
	}

	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	for _, c := range h.checks {
		if c.pinger == nil {
			report.Services[c.name] = c.static
			continue
		}

		wg.Add(1)
		go func(c healthCheck) {
			defer wg.Done()

			pctx, cancel := context.WithTimeout(ctx, h.timeout)
			defer cancel()

			status := componentUp
			if err := c.pinger.Ping(pctx); err != nil {
				status = componentDown
				h.logger.Warn("Health service: dependency unreachable",
					"component", c.name,
					"error", err.Error())
			}

			mu.Lock()
			report.Services[c.name] = status
			if status == componentDown {
				report.Status = StatusDegraded
			}
			mu.Unlock()
		}(c)
	}
	wg.Wait()

	return report
}
