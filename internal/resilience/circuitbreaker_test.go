package resilience

import (
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/mkarvo/reelscout/internal/config"
)

func TestNewCircuitBreaker(t *testing.T) {
	logger := zap.NewNop()
	cfg := config.CircuitBreakerConfig{
		MaxRequests:      100,
		Interval:         30 * time.Second,
		Timeout:          30 * time.Second,
		FailureThreshold: 5,
	}

	cb := NewCircuitBreaker("test-cb", cfg, logger)
	if cb == nil {
		t.Fatal("expected non-nil circuit breaker")
	}
	if cb.Name() != "test-cb" {
		t.Errorf("expected name 'test-cb', got %q", cb.Name())
	}
}

func TestNewCircuitBreaker_ExecuteSuccess(t *testing.T) {
	logger := zap.NewNop()
	cfg := config.CircuitBreakerConfig{
		MaxRequests:      10,
		Interval:         time.Second,
		Timeout:          time.Second,
		FailureThreshold: 3,
	}

	cb := NewCircuitBreaker("test-cb", cfg, logger)

	result, err := cb.Execute(func() (any, error) {
		return "ok", nil
	})

	if err != nil {
		t.Errorf("expected no error, got %v", err)
	}
	if result != "ok" {
		t.Errorf("expected 'ok', got %v", result)
	}
}

func TestNewCircuitBreaker_ExecuteFailure(t *testing.T) {
	logger := zap.NewNop()
	cfg := config.CircuitBreakerConfig{
		MaxRequests:      10,
		Interval:         time.Second,
		Timeout:          time.Second,
		FailureThreshold: 3,
	}

	cb := NewCircuitBreaker("test-cb", cfg, logger)

	_, err := cb.Execute(func() (any, error) {
		return nil, errors.New("fail")
	})

	if err == nil {
		t.Error("expected error")
	}
}

func TestNewCircuitBreaker_OpensAfterThreshold(t *testing.T) {
	logger := zap.NewNop()
	cfg := config.CircuitBreakerConfig{
		MaxRequests:      1,
		Interval:         10 * time.Second,
		Timeout:          10 * time.Second,
		FailureThreshold: 3,
	}

	cb := NewCircuitBreaker("test-cb", cfg, logger)

	// Fail enough times to trip the breaker.
	for i := 0; i < 3; i++ {
		cb.Execute(func() (any, error) {
			return nil, errors.New("fail")
		})
	}

	_, err := cb.Execute(func() (any, error) {
		return "should not reach", nil
	})

	if err == nil {
		t.Error("expected circuit breaker to reject request after threshold")
	}
}
