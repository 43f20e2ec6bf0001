package httpx

import (
	"log/slog"
	"time"

	"github.com/sony/gobreaker/v2"
)

const (
	defaultMaxFailures uint32        = 5
	defaultOpenTimeout time.Duration = 15 * time.Second
	defaultResetWindow time.Duration = 60 * time.Second
)

// BreakerConfig configures a circuit breaker guarding a store backend.
type BreakerConfig struct {
	MaxFailures uint32
	OpenTimeout time.Duration
	ResetWindow time.Duration
}

// NewBreaker wraps any single-valued call behind a circuit breaker named
// after the backend it protects. Every store adapter's transport executes
// its requests through one of these rather than reimplementing the state
// machine per package.
func NewBreaker(name string, cfg BreakerConfig, logger *slog.Logger) *gobreaker.CircuitBreaker[struct{}] {
	maxFailures := cfg.MaxFailures
	if maxFailures == 0 {
		maxFailures = defaultMaxFailures
	}
	openTimeout := cfg.OpenTimeout
	if openTimeout == 0 {
		openTimeout = defaultOpenTimeout
	}
	resetWindow := cfg.ResetWindow
	if resetWindow == 0 {
		resetWindow = defaultResetWindow
	}
	if logger == nil {
		logger = slog.Default()
	}

	return gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    resetWindow,
		Timeout:     openTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(breakerName string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change",
				"breaker", breakerName,
				"from", from.String(),
				"to", to.String(),
			)
		},
		IsSuccessful: func(err error) bool {
			return err == nil
		},
	})
}
