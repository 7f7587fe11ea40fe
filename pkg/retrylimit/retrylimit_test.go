package retrylimit

import (
	"context"
	"errors"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

func fastConfig(attempts int) RetryConfig {
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	cfg := DefaultRetryConfig()
	cfg.MaxAttempts = attempts
	cfg.InitialDelay = time.Millisecond
	cfg.MaxDelay = 2 * time.Millisecond
	cfg.RateLimitDelay = time.Millisecond
	cfg.Jitter = false
	cfg.Logger = logger
	return cfg
}

func TestWithRetryConfig_SucceedsAfterFailures(t *testing.T) {
	calls := 0
	err := WithRetryConfig(context.Background(), func() error {
		calls++
		if calls < 3 {
			return errors.New("flaky")
		}
		return nil
	}, nil, fastConfig(5))

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestWithRetryConfig_GivesUp(t *testing.T) {
	boom := errors.New("boom")
	calls := 0
	err := WithRetryConfig(context.Background(), func() error {
		calls++
		return boom
	}, nil, fastConfig(3))

	if !errors.Is(err, ErrMaxAttempts) || !errors.Is(err, boom) {
		t.Fatalf("err = %v, want ErrMaxAttempts wrapping the last error", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestWithRetryConfig_FatalStopsImmediately(t *testing.T) {
	private := errors.New("video is private")
	calls := 0
	err := WithRetryConfig(context.Background(), func() error {
		calls++
		return Fatal(private)
	}, nil, fastConfig(5))

	if !errors.Is(err, private) {
		t.Fatalf("err = %v", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestWithRetryConfig_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := WithRetryConfig(ctx, func() error {
		t.Fatal("fn must not run with a cancelled context")
		return nil
	}, nil, fastConfig(5))

	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestWithRetryConfig_RateLimitSlowsLimiter(t *testing.T) {
	lim := NewAdaptiveLimiter(10, 1, 20, 1, 0.5)
	calls := 0
	err := WithRetryConfig(context.Background(), func() error {
		calls++
		if calls == 1 {
			return &StatusError{Code: http.StatusTooManyRequests}
		}
		return nil
	}, lim, fastConfig(3))

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := lim.CurrentLimit(); got != 5 {
		t.Errorf("limit = %v, want 5 after one 429", got)
	}
}

func TestClassifiers(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"plain", errors.New("x"), false},
		{"not found", &StatusError{Code: 404}, false},
		{"rate limited", &StatusError{Code: 429}, true},
		{"server", &StatusError{Code: 503}, true},
		{"wrapped server", Fatal(&StatusError{Code: 500}), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DefaultClassifier(tt.err); got != tt.want {
				t.Errorf("DefaultClassifier() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAdaptiveLimiter_Bounds(t *testing.T) {
	lim := NewAdaptiveLimiter(50, 2, 4, 1, 0.5)
	if got := lim.CurrentLimit(); got != 4 {
		t.Fatalf("initial limit = %v, want clamped to 4", got)
	}

	for i := 0; i < 5; i++ {
		lim.RateLimited()
	}
	if got := lim.CurrentLimit(); got != 2 {
		t.Errorf("limit = %v, want floor of 2", got)
	}
}
