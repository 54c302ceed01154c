package resilience

import (
	"context"
	"errors"
	"sync"
	"time"

	"roleplay-chat/backend/pkg/logger"
)

// ErrCircuitOpen is returned without calling the protected function while
// the breaker is open
var ErrCircuitOpen = errors.New("circuit open")

// CircuitBreakerState represents the current state of a circuit breaker
type CircuitBreakerState string

const (
	// StateClosed lets every request through
	StateClosed CircuitBreakerState = "closed"
	// StateOpen short-circuits requests until RetryTimeout elapses
	StateOpen CircuitBreakerState = "open"
	// StateHalfOpen lets a limited number of trial requests through
	StateHalfOpen CircuitBreakerState = "half-open"
)

// CircuitBreakerConfig holds configuration for a circuit breaker
type CircuitBreakerConfig struct {
	Name             string
	FailureThreshold uint
	SuccessThreshold uint
	RetryTimeout     time.Duration
	// IsFailure decides which errors count against the breaker. Context
	// cancellation never does.
	IsFailure func(error) bool
}

// DefaultCircuitBreakerConfig returns a default circuit breaker configuration
func DefaultCircuitBreakerConfig(name string) CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Name:             name,
		FailureThreshold: 5,
		SuccessThreshold: 2,
		RetryTimeout:     60 * time.Second,
	}
}

// CircuitBreaker implements the Circuit Breaker pattern
type CircuitBreaker struct {
	config CircuitBreakerConfig
	log    *logger.Logger
	now    func() time.Time

	mu              sync.Mutex
	state           CircuitBreakerState
	failureCount    uint
	successCount    uint
	lastFailureTime time.Time
	nextAttemptTime time.Time

	totalRequests    uint64
	totalFailures    uint64
	totalSuccesses   uint64
	openCircuitCount uint64
}

// NewCircuitBreaker creates a new circuit breaker
func NewCircuitBreaker(config CircuitBreakerConfig, log *logger.Logger) *CircuitBreaker {
	if config.FailureThreshold == 0 {
		config.FailureThreshold = 1
	}
	if config.SuccessThreshold == 0 {
		config.SuccessThreshold = 1
	}
	return &CircuitBreaker{
		config: config,
		log:    logger.OrNop(log).WithComponent("circuit-breaker"),
		now:    time.Now,
		state:  StateClosed,
	}
}

// Execute runs fn through the circuit breaker
func (cb *CircuitBreaker) Execute(ctx context.Context, fn func(context.Context) error) error {
	if !cb.allowRequest() {
		cb.log.Debug("Circuit breaker preventing request", "name", cb.config.Name)
		return ErrCircuitOpen
	}

	start := cb.now()
	err := fn(ctx)

	switch {
	case err == nil:
		cb.recordSuccess()
	case errors.Is(err, context.Canceled):
		// caller gave up; says nothing about the remote side
	case cb.config.IsFailure == nil || cb.config.IsFailure(err):
		cb.recordFailure()
		cb.log.Warn("Circuit breaker recorded failure",
			"name", cb.config.Name,
			"error", err.Error(),
			"duration", cb.now().Sub(start).String(),
		)
	}

	return err
}

func (cb *CircuitBreaker) allowRequest() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.totalRequests++

	switch cb.state {
	case StateOpen:
		if cb.now().After(cb.nextAttemptTime) {
			cb.toHalfOpen()
			return true
		}
		cb.totalRequests--
		return false
	case StateHalfOpen:
		return cb.successCount < cb.config.SuccessThreshold
	default:
		return true
	}
}

func (cb *CircuitBreaker) recordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.totalSuccesses++

	switch cb.state {
	case StateClosed:
		cb.failureCount = 0
	case StateHalfOpen:
		cb.successCount++
		if cb.successCount >= cb.config.SuccessThreshold {
			cb.toClosed()
		}
	}
}

func (cb *CircuitBreaker) recordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.totalFailures++
	cb.lastFailureTime = cb.now()

	switch cb.state {
	case StateClosed:
		cb.failureCount++
		if cb.failureCount >= cb.config.FailureThreshold {
			cb.toOpen()
		}
	case StateHalfOpen:
		cb.toOpen()
	}
}

func (cb *CircuitBreaker) toOpen() {
	cb.state = StateOpen
	cb.openCircuitCount++
	cb.nextAttemptTime = cb.now().Add(cb.config.RetryTimeout)

	cb.log.Info("Circuit breaker opened",
		"name", cb.config.Name,
		"failures", cb.failureCount,
		"nextAttempt", cb.nextAttemptTime.Format(time.RFC3339),
	)
}

func (cb *CircuitBreaker) toHalfOpen() {
	cb.state = StateHalfOpen
	cb.successCount = 0
	cb.log.Info("Circuit breaker half-open", "name", cb.config.Name)
}

func (cb *CircuitBreaker) toClosed() {
	cb.state = StateClosed
	cb.failureCount = 0
	cb.successCount = 0
	cb.log.Info("Circuit breaker closed", "name", cb.config.Name)
}

// GetState returns the current state of the circuit breaker
func (cb *CircuitBreaker) GetState() CircuitBreakerState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// GetMetrics returns counters for health and debug endpoints
func (cb *CircuitBreaker) GetMetrics() map[string]any {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	return map[string]any{
		"name":               cb.config.Name,
		"state":              string(cb.state),
		"total_requests":     cb.totalRequests,
		"total_failures":     cb.totalFailures,
		"total_successes":    cb.totalSuccesses,
		"open_circuit_count": cb.openCircuitCount,
		"last_failure_time":  cb.lastFailureTime,
	}
}
