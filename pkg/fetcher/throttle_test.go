package fetcher

import (
	"context"
	"testing"
	"time"
)

func fastThrottle() *Throttle {
	return &Throttle{
		MinGap: 50 * time.Millisecond,
		MaxGap: 60 * time.Millisecond,
	}
}

func TestThrottle_FirstRequestNotDelayed(t *testing.T) {
	th := fastThrottle()

	start := time.Now()
	if err := th.Wait(context.Background(), "example.com"); err != nil {
		t.Fatalf("Wait() returned error: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 20*time.Millisecond {
		t.Errorf("first request should not be delayed, waited %v", elapsed)
	}
}

func TestThrottle_EnforcesGap(t *testing.T) {
	th := fastThrottle()

	th.Record("example.com")
	start := time.Now()
	if err := th.Wait(context.Background(), "example.com"); err != nil {
		t.Fatalf("Wait() returned error: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 40*time.Millisecond {
		t.Errorf("expected at least ~50ms gap, waited only %v", elapsed)
	}
}

func TestThrottle_DomainsIndependent(t *testing.T) {
	th := fastThrottle()

	th.Record("example.com")
	start := time.Now()
	if err := th.Wait(context.Background(), "other.com"); err != nil {
		t.Fatalf("Wait() returned error: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 20*time.Millisecond {
		t.Errorf("unrelated domain should not be delayed, waited %v", elapsed)
	}
}

func TestThrottle_DomainCaseInsensitive(t *testing.T) {
	th := fastThrottle()

	th.Record("Example.COM")
	if _, ok := th.Last("example.com"); !ok {
		t.Error("expected recorded timestamp under lowercased domain")
	}
}

func TestThrottle_WaitHonorsContext(t *testing.T) {
	th := fastThrottle()
	th.MinGap = 5 * time.Second
	th.MaxGap = 6 * time.Second
	th.Record("example.com")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	err := th.Wait(ctx, "example.com")
	if err == nil {
		t.Fatal("expected context error")
	}
}

func TestThrottle_ConcurrentWaitersKeepGap(t *testing.T) {
	th := &Throttle{
		MinGap: 200 * time.Millisecond,
		MaxGap: 210 * time.Millisecond,
	}
	th.Record("example.com")

	grants := make(chan time.Time, 2)
	for i := 0; i < 2; i++ {
		go func() {
			if err := th.Wait(context.Background(), "example.com"); err != nil {
				t.Errorf("Wait() returned error: %v", err)
			}
			grants <- time.Now()
			th.Record("example.com")
		}()
	}

	first, second := <-grants, <-grants
	gap := second.Sub(first)
	if gap < 0 {
		gap = -gap
	}
	if gap < 180*time.Millisecond {
		t.Errorf("concurrent requests to one domain granted %v apart, want at least ~200ms", gap)
	}
}

func TestThrottle_ConcurrentAccess(t *testing.T) {
	th := fastThrottle()
	done := make(chan struct{})

	for i := 0; i < 10; i++ {
		go func() {
			defer func() { done <- struct{}{} }()
			_ = th.Wait(context.Background(), "example.com")
			th.Record("example.com")
		}()
	}

	for i := 0; i < 10; i++ {
		<-done
	}
}
