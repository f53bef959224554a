package health

import (
	"context"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const checkTimeout = 3 * time.Second

// CheckFunc probes one dependency.
type CheckFunc func(ctx context.Context) error

// ComponentHealth is the result of one probe.
type ComponentHealth struct {
	Healthy   bool      `json:"healthy"`
	Error     string    `json:"error,omitempty"`
	LatencyMS int64     `json:"latency_ms"`
	CheckedAt time.Time `json:"checked_at"`
}

// Report aggregates all probes.
type Report struct {
	Healthy    bool                       `json:"healthy"`
	Components map[string]ComponentHealth `json:"components"`
}

// Checker runs named probes concurrently.
type Checker struct {
	checks map[string]CheckFunc
}

// NewChecker creates an empty checker.
func NewChecker() *Checker {
	return &Checker{checks: map[string]CheckFunc{}}
}

// Add registers a probe under name.
func (c *Checker) Add(name string, fn CheckFunc) *Checker {
	c.checks[name] = fn
	return c
}

// Check runs every probe with a bounded timeout.
func (c *Checker) Check(ctx context.Context) Report {
	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	report := Report{Healthy: true, Components: make(map[string]ComponentHealth, len(c.checks))}
	var mu sync.Mutex
	var wg sync.WaitGroup
	for name, fn := range c.checks {
		wg.Add(1)
		go func(name string, fn CheckFunc) {
			defer wg.Done()
			start := time.Now()
			err := fn(ctx)
			h := ComponentHealth{Healthy: err == nil, LatencyMS: time.Since(start).Milliseconds(), CheckedAt: start.UTC()}
			if err != nil {
				h.Error = err.Error()
				log.Warnf("[Health] %s unhealthy: %v", name, err)
			}
			mu.Lock()
			report.Components[name] = h
			if err != nil {
				report.Healthy = false
			}
			mu.Unlock()
		}(name, fn)
	}
	wg.Wait()
	return report
}

// Handler answers 200 when every probe passes, 503 otherwise.
func (c *Checker) Handler() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		report := c.Check(ctx.UserContext())
		status := fiber.StatusOK
		if !report.Healthy {
			status = fiber.StatusServiceUnavailable
		}
		return ctx.Status(status).JSON(report)
	}
}

// Database pings the SQL connection behind db.
func Database(db *gorm.DB) CheckFunc {
	return func(ctx context.Context) error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.PingContext(ctx)
	}
}

// Redis pings the cache server.
func Redis(client *redis.Client) CheckFunc {
	return func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	}
}
