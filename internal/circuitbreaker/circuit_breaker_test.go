package circuitbreaker

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	return logger
}

func newTestBreaker(maxFailures int, timeout time.Duration) *CircuitBreaker {
	return New(Config{
		Name:        "test",
		MaxFailures: maxFailures,
		Timeout:     timeout,
		MaxRequests: 1,
	}, testLogger())
}

var errBoom = errors.New("boom")

func fail() error    { return errBoom }
func succeed() error { return nil }

func TestStaysClosedBelowThreshold(t *testing.T) {
	cb := newTestBreaker(3, time.Minute)

	cb.Execute(fail)
	cb.Execute(fail)

	if cb.State() != StateClosed {
		t.Errorf("state = %s, want closed", cb.State())
	}
	if err := cb.Execute(succeed); err != nil {
		t.Errorf("call through closed breaker failed: %v", err)
	}
}

func TestOpensAfterMaxFailures(t *testing.T) {
	cb := newTestBreaker(3, time.Minute)

	for i := 0; i < 3; i++ {
		if err := cb.Execute(fail); !errors.Is(err, errBoom) {
			t.Fatalf("failure %d: err = %v", i, err)
		}
	}

	if cb.State() != StateOpen {
		t.Fatalf("state = %s, want open", cb.State())
	}
	if err := cb.Execute(succeed); !errors.Is(err, ErrOpen) {
		t.Errorf("open breaker should reject, got %v", err)
	}
}

func TestSuccessResetsFailureCount(t *testing.T) {
	cb := newTestBreaker(3, time.Minute)

	cb.Execute(fail)
	cb.Execute(fail)
	cb.Execute(succeed)
	cb.Execute(fail)
	cb.Execute(fail)

	if cb.State() != StateClosed {
		t.Errorf("state = %s, want closed after interleaved success", cb.State())
	}
}

func TestHalfOpenClosesOnSuccess(t *testing.T) {
	cb := newTestBreaker(1, 20*time.Millisecond)

	cb.Execute(fail)
	if cb.State() != StateOpen {
		t.Fatalf("state = %s, want open", cb.State())
	}

	time.Sleep(30 * time.Millisecond)

	if err := cb.Execute(succeed); err != nil {
		t.Fatalf("probe after timeout failed: %v", err)
	}
	if cb.State() != StateClosed {
		t.Errorf("state = %s, want closed after successful probe", cb.State())
	}
}

func TestHalfOpenReopensOnFailure(t *testing.T) {
	cb := newTestBreaker(1, 20*time.Millisecond)

	cb.Execute(fail)
	time.Sleep(30 * time.Millisecond)

	if err := cb.Execute(fail); !errors.Is(err, errBoom) {
		t.Fatalf("probe err = %v", err)
	}
	if cb.State() != StateOpen {
		t.Errorf("state = %s, want open after failed probe", cb.State())
	}
	if err := cb.Execute(succeed); !errors.Is(err, ErrOpen) {
		t.Errorf("reopened breaker should reject, got %v", err)
	}
}

func TestHalfOpenLimitsProbes(t *testing.T) {
	cb := New(Config{
		Name:        "test",
		MaxFailures: 1,
		Timeout:     20 * time.Millisecond,
		MaxRequests: 1,
	}, testLogger())

	cb.Execute(fail)
	time.Sleep(30 * time.Millisecond)

	var wg sync.WaitGroup
	release := make(chan struct{})
	var rejected int
	var mu sync.Mutex

	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := cb.Execute(func() error {
				<-release
				return nil
			})
			if errors.Is(err, ErrOpen) {
				mu.Lock()
				rejected++
				mu.Unlock()
			}
		}()
	}

	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	if rejected != 4 {
		t.Errorf("rejected = %d, want 4 of 5 while one probe is in flight", rejected)
	}
}

func TestDefaultsApplied(t *testing.T) {
	cb := New(Config{}, testLogger())

	if cb.maxFailures != 5 {
		t.Errorf("maxFailures = %d, want 5", cb.maxFailures)
	}
	if cb.timeout != 30*time.Second {
		t.Errorf("timeout = %v, want 30s", cb.timeout)
	}
	if cb.maxRequests != 1 {
		t.Errorf("maxRequests = %d, want 1", cb.maxRequests)
	}
	if cb.name != "unnamed" {
		t.Errorf("name = %q", cb.name)
	}
}
