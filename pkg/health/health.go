package health

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"roleplay-chat/backend/pkg/logger"

	"github.com/gin-gonic/gin"
)

// Status represents the health status of a component
type Status string

const (
	// StatusUp indicates a component is working correctly
	StatusUp Status = "up"
	// StatusDown indicates a component is not working
	StatusDown Status = "down"
	// StatusDegraded indicates a component is working but with reduced functionality
	StatusDegraded Status = "degraded"
)

// Component represents a system component that can be health-checked
type Component struct {
	Name        string    `json:"name"`
	Status      Status    `json:"status"`
	Critical    bool      `json:"critical"`
	Description string    `json:"description,omitempty"`
	Error       string    `json:"error,omitempty"`
	LastChecked time.Time `json:"last_checked"`
}

// Check represents a health check function
type Check func(ctx context.Context) (Status, string, error)

type registration struct {
	check    Check
	critical bool
}

// Checker manages health checks for the system
type Checker struct {
	checks      map[string]registration
	components  map[string]*Component
	checkPeriod time.Duration
	mu          sync.RWMutex
	log         *logger.Logger
}

// NewChecker creates a new health checker
func NewChecker(log *logger.Logger, checkPeriod time.Duration) *Checker {
	checker := &Checker{
		checks:      make(map[string]registration),
		components:  make(map[string]*Component),
		checkPeriod: checkPeriod,
		log:         logger.OrNop(log).WithComponent("health"),
	}

	checker.RegisterCheck("self", false, func(context.Context) (Status, string, error) {
		return StatusUp, "Health checker is running", nil
	})

	return checker
}

// RegisterCheck registers a new health check. A critical component that is
// down makes the whole system unhealthy.
func (c *Checker) RegisterCheck(name string, critical bool, check Check) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.checks[name] = registration{check: check, critical: critical}
	c.components[name] = &Component{
		Name:        name,
		Status:      StatusDown,
		Critical:    critical,
		Description: "Not checked yet",
	}
}

// RunCheck executes one registered check and records its result
func (c *Checker) RunCheck(ctx context.Context, name string) (Status, error) {
	c.mu.RLock()
	reg, ok := c.checks[name]
	c.mu.RUnlock()
	if !ok {
		return StatusDown, fmt.Errorf("unknown health check %q", name)
	}

	status, description, err := reg.check(ctx)

	c.mu.Lock()
	component := c.components[name]
	component.Status = status
	component.Description = description
	component.LastChecked = time.Now()
	if err != nil {
		component.Error = err.Error()
	} else {
		component.Error = ""
	}
	c.mu.Unlock()

	if err != nil {
		c.log.Warn("Health check failed",
			"check", name,
			"status", string(status),
			"error", err.Error(),
		)
	} else {
		c.log.Debug("Health check completed", "check", name, "status", string(status))
	}

	return status, err
}

// RunChecks executes all registered health checks
func (c *Checker) RunChecks(ctx context.Context) {
	c.mu.RLock()
	names := make([]string, 0, len(c.checks))
	for name := range c.checks {
		names = append(names, name)
	}
	c.mu.RUnlock()

	for _, name := range names {
		_, _ = c.RunCheck(ctx, name)
	}
}

// Start runs the checks immediately and then periodically until ctx is done
func (c *Checker) Start(ctx context.Context) {
	go func() {
		c.RunChecks(ctx)
		if c.checkPeriod <= 0 {
			return
		}

		ticker := time.NewTicker(c.checkPeriod)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				c.RunChecks(ctx)
			}
		}
	}()
}

// GetStatus returns a copy of the current component statuses
func (c *Checker) GetStatus() map[string]Component {
	c.mu.RLock()
	defer c.mu.RUnlock()

	result := make(map[string]Component, len(c.components))
	for k, v := range c.components {
		result[k] = *v
	}
	return result
}

// IsSystemHealthy returns true if all critical components are up
func (c *Checker) IsSystemHealthy() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, component := range c.components {
		if component.Critical && component.Status == StatusDown {
			return false
		}
	}
	return true
}

// Handler returns a gin handler reporting component health
func (c *Checker) Handler() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		status := http.StatusOK
		overall := "ok"
		if !c.IsSystemHealthy() {
			status = http.StatusServiceUnavailable
			overall = "unhealthy"
		}

		ctx.JSON(status, gin.H{
			"status":     overall,
			"timestamp":  time.Now().Format(time.RFC3339),
			"components": c.GetStatus(),
		})
	}
}

// RegisterHTTPProbe registers a GET probe against endpoint. A non-2xx reply
// marks the component degraded, a transport error marks it down.
func (c *Checker) RegisterHTTPProbe(name, endpoint string, timeout time.Duration, critical bool) {
	client := &http.Client{Timeout: timeout}

	c.RegisterCheck(name, critical, func(ctx context.Context) (Status, string, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return StatusDown, "invalid probe endpoint", err
		}

		start := time.Now()
		resp, err := client.Do(req)
		elapsed := time.Since(start)
		if err != nil {
			return StatusDown, "request failed", err
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return StatusDegraded, fmt.Sprintf("returned status %d", resp.StatusCode),
				fmt.Errorf("unexpected status code: %d", resp.StatusCode)
		}

		return StatusUp, fmt.Sprintf("responding (latency: %s)", elapsed), nil
	})
}
