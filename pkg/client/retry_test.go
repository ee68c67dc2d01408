package client

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

// fastRetrier retries with millisecond backoffs for every class.
func fastRetrier(attempts int) retrier {
	return retrier{
		configFor: func(ErrorClass) RetryConfig {
			return RetryConfig{
				MaxAttempts:       attempts,
				InitialBackoff:    10 * time.Millisecond,
				MaxBackoff:        40 * time.Millisecond,
				BackoffMultiplier: 2.0,
			}
		},
		logger: zerolog.Nop(),
	}
}

func classAs(class ErrorClass) func(error) ErrorClass {
	return func(error) ErrorClass { return class }
}

func TestDefaultRetryConfig(t *testing.T) {
	config := DefaultRetryConfig()

	if config.MaxAttempts != 3 {
		t.Errorf("MaxAttempts = %d, want 3", config.MaxAttempts)
	}
	if config.InitialBackoff != 250*time.Millisecond {
		t.Errorf("InitialBackoff = %v, want 250ms", config.InitialBackoff)
	}
	if config.MaxBackoff != 5*time.Second {
		t.Errorf("MaxBackoff = %v, want 5s", config.MaxBackoff)
	}
	if config.BackoffMultiplier != 2.0 {
		t.Errorf("BackoffMultiplier = %v, want 2.0", config.BackoffMultiplier)
	}
}

func TestRetryConfigForErrorClass(t *testing.T) {
	tests := []struct {
		name            string
		errorClass      ErrorClass
		expectedInitial time.Duration
		expectedMax     time.Duration
	}{
		{name: "server error config", errorClass: ErrorClassServer, expectedInitial: 200 * time.Millisecond, expectedMax: 2 * time.Second},
		{name: "rate limit config", errorClass: ErrorClassRateLimit, expectedInitial: 1 * time.Second, expectedMax: 10 * time.Second},
		{name: "network error config", errorClass: ErrorClassNetwork, expectedInitial: 500 * time.Millisecond, expectedMax: 5 * time.Second},
		{name: "unknown error class uses default", errorClass: "", expectedInitial: 250 * time.Millisecond, expectedMax: 5 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := RetryConfigForErrorClass(tt.errorClass)

			if config.InitialBackoff != tt.expectedInitial {
				t.Errorf("InitialBackoff = %v, want %v", config.InitialBackoff, tt.expectedInitial)
			}
			if config.MaxBackoff != tt.expectedMax {
				t.Errorf("MaxBackoff = %v, want %v", config.MaxBackoff, tt.expectedMax)
			}
			if config.MaxAttempts != 3 {
				t.Errorf("MaxAttempts = %d, want 3", config.MaxAttempts)
			}
		})
	}
}

func TestRetry_Success(t *testing.T) {
	callCount := 0
	err := fastRetrier(3).do(context.Background(), func() error {
		callCount++
		return nil
	}, classAs(ErrorClassServer))

	if err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
	if callCount != 1 {
		t.Errorf("Expected 1 call, got %d", callCount)
	}
}

func TestRetry_SuccessAfterRetry(t *testing.T) {
	callCount := 0
	start := time.Now()
	err := fastRetrier(3).do(context.Background(), func() error {
		callCount++
		if callCount < 3 {
			return errors.New("temporary error")
		}
		return nil
	}, classAs(ErrorClassServer))
	duration := time.Since(start)

	if err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
	if callCount != 3 {
		t.Errorf("Expected 3 calls, got %d", callCount)
	}
	// 10ms and 20ms backoffs, each at least 80% of nominal.
	if duration < 24*time.Millisecond {
		t.Errorf("Expected some backoff delay, got %v", duration)
	}
}

func TestRetry_MaxAttemptsExhausted(t *testing.T) {
	callCount := 0
	testErr := errors.New("persistent error")
	err := fastRetrier(3).do(context.Background(), func() error {
		callCount++
		return testErr
	}, classAs(ErrorClassServer))

	if !errors.Is(err, ErrRetryExhausted) {
		t.Errorf("Expected ErrRetryExhausted, got %v", err)
	}
	if !errors.Is(err, testErr) {
		t.Errorf("Expected the last error to be wrapped, got %v", err)
	}
	if callCount != 3 {
		t.Errorf("Expected 3 calls (MaxAttempts), got %d", callCount)
	}
}

func TestRetry_ClientErrorNoRetry(t *testing.T) {
	callCount := 0
	testErr := errors.New("client error")
	err := fastRetrier(3).do(context.Background(), func() error {
		callCount++
		return testErr
	}, classAs(ErrorClassClient))

	if callCount != 1 {
		t.Errorf("Expected 1 call (no retry for client errors), got %d", callCount)
	}
	if errors.Is(err, ErrRetryExhausted) {
		t.Error("Should not return ErrRetryExhausted for client errors (no retry attempted)")
	}
	if !errors.Is(err, testErr) {
		t.Errorf("Expected original error, got %v", err)
	}
}

func TestRetry_StopsOnNonRetryableFailure(t *testing.T) {
	callCount := 0
	notFound := &StorefrontError{StatusCode: 404, ErrorClass: ErrorClassClient}
	err := fastRetrier(5).do(context.Background(), func() error {
		callCount++
		if callCount == 1 {
			return &StorefrontError{StatusCode: 503, ErrorClass: ErrorClassServer}
		}
		return notFound
	}, classifyError)

	if callCount != 2 {
		t.Errorf("Expected 2 calls, got %d", callCount)
	}
	if !errors.Is(err, notFound) {
		t.Errorf("Expected the client error, got %v", err)
	}
}

func TestRetry_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	callCount := 0
	err := fastRetrier(3).do(ctx, func() error {
		callCount++
		if callCount == 1 {
			cancel()
		}
		return errors.New("error")
	}, classAs(ErrorClassServer))

	if !errors.Is(err, ErrContextCancelled) {
		t.Errorf("Expected ErrContextCancelled, got %v", err)
	}
	if callCount != 1 {
		t.Errorf("Expected 1 call due to cancellation, got %d", callCount)
	}
}

func TestRetry_ExponentialBackoff(t *testing.T) {
	r := retrier{
		configFor: func(ErrorClass) RetryConfig {
			return RetryConfig{
				MaxAttempts:       3,
				InitialBackoff:    50 * time.Millisecond,
				MaxBackoff:        time.Second,
				BackoffMultiplier: 2.0,
			}
		},
		logger: zerolog.Nop(),
	}

	timestamps := []time.Time{}
	_ = r.do(context.Background(), func() error {
		timestamps = append(timestamps, time.Now())
		return errors.New("error")
	}, classAs(ErrorClassNetwork))

	if len(timestamps) != 3 {
		t.Fatalf("Expected 3 timestamps, got %d", len(timestamps))
	}

	firstDelay := timestamps[1].Sub(timestamps[0])
	secondDelay := timestamps[2].Sub(timestamps[1])

	// ±20% jitter: [40ms, 60ms] then [80ms, 120ms], with scheduling slack.
	if firstDelay < 40*time.Millisecond || firstDelay > 200*time.Millisecond {
		t.Errorf("First retry delay %v outside expected range", firstDelay)
	}
	if secondDelay < 80*time.Millisecond || secondDelay > 400*time.Millisecond {
		t.Errorf("Second retry delay %v outside expected range", secondDelay)
	}
}

func TestRetry_MaxBackoffCap(t *testing.T) {
	config := RetryConfig{
		InitialBackoff:    1 * time.Second,
		MaxBackoff:        3 * time.Second,
		BackoffMultiplier: 10.0,
	}

	backoff := config.InitialBackoff
	for i := 0; i < 3; i++ {
		backoff = time.Duration(float64(backoff) * config.BackoffMultiplier)
		if backoff > config.MaxBackoff {
			backoff = config.MaxBackoff
		}
	}

	if backoff != config.MaxBackoff {
		t.Errorf("Expected backoff to cap at %v, got %v", config.MaxBackoff, backoff)
	}
}
