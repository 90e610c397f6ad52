package resilience

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestSingleFlight_Do(t *testing.T) {
	var g SingleFlight[string]
	var counter int32

	const workers = 20
	start := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(workers)

	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			<-start
			_, err, _ := g.Do("EPL/2023", func() (string, error) {
				atomic.AddInt32(&counter, 1)
				time.Sleep(20 * time.Millisecond)
				return "ok", nil
			})
			if err != nil {
				t.Errorf("singleflight call failed: %v", err)
			}
		}()
	}

	close(start)
	wg.Wait()

	if got := atomic.LoadInt32(&counter); got != 1 {
		t.Fatalf("expected function to run once, got %d", got)
	}

	val, err, shared := g.Do("EPL/2023", func() (string, error) {
		t.Fatalf("kept result must be reused")
		return "", nil
	})
	if err != nil || val != "ok" || !shared {
		t.Fatalf("unexpected kept result: val=%q err=%v shared=%v", val, err, shared)
	}
}

func TestSingleFlight_FailuresAreNotKept(t *testing.T) {
	var g SingleFlight[int]
	boom := errors.New("boom")

	if _, err, _ := g.Do("k", func() (int, error) { return 0, boom }); !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	val, err, shared := g.Do("k", func() (int, error) { return 7, nil })
	if err != nil || val != 7 || shared {
		t.Fatalf("expected fresh call after failure: val=%d err=%v shared=%v", val, err, shared)
	}

	val, _, shared = g.Do("k", func() (int, error) { return 8, nil })
	if val != 7 || !shared {
		t.Fatalf("expected kept result once a call succeeded: val=%d shared=%v", val, shared)
	}
}
