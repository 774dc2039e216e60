package parallel

import (
	"runtime"
	"sync"
	"sync/atomic"
	"testing"
)

func TestWorkerPool_Create(t *testing.T) {
	pool := NewWorkerPool(4)
	defer pool.Close()

	if pool.Workers() != 4 {
		t.Errorf("Workers() = %d, want 4", pool.Workers())
	}
	if !pool.IsRunning() {
		t.Error("Pool should be running after creation")
	}
}

func TestWorkerPool_CreateDefaultWorkers(t *testing.T) {
	for _, n := range []int{0, -5} {
		pool := NewWorkerPool(n)
		if pool.Workers() != runtime.GOMAXPROCS(0) {
			t.Errorf("NewWorkerPool(%d).Workers() = %d, want GOMAXPROCS", n, pool.Workers())
		}
		pool.Close()
	}
}

func TestWorkerPool_ExecuteAll(t *testing.T) {
	pool := NewWorkerPool(4)
	defer pool.Close()

	var count atomic.Int64
	work := make([]func(), 1000)
	for i := range work {
		work[i] = func() { count.Add(1) }
	}
	pool.ExecuteAll(work)

	if got := count.Load(); got != 1000 {
		t.Errorf("executed %d items, want 1000", got)
	}
}

func TestWorkerPool_ExecuteAllAfterClose(t *testing.T) {
	pool := NewWorkerPool(2)
	pool.Close()
	pool.Close()

	ran := false
	pool.ExecuteAll([]func(){func() { ran = true }})
	if !ran {
		t.Error("work on a closed pool was dropped")
	}
	if pool.IsRunning() {
		t.Error("closed pool reports running")
	}
}

func TestWorkerPool_Bands(t *testing.T) {
	tests := []struct {
		name    string
		workers int
		rows    int
	}{
		{"more rows than workers", 4, 103},
		{"fewer rows than workers", 8, 3},
		{"single worker", 1, 17},
		{"exact multiple", 4, 64},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pool := NewWorkerPool(tt.workers)
			defer pool.Close()

			var mu sync.Mutex
			seen := make([]int, tt.rows)
			bands := 0
			pool.Bands(tt.rows, func(y0, y1 int) {
				mu.Lock()
				defer mu.Unlock()
				bands++
				for y := y0; y < y1; y++ {
					seen[y]++
				}
			})

			for y, n := range seen {
				if n != 1 {
					t.Fatalf("row %d visited %d times", y, n)
				}
			}
			if bands > tt.workers {
				t.Errorf("%d bands for %d workers", bands, tt.workers)
			}
		})
	}
}

func TestWorkerPool_BandsEmpty(t *testing.T) {
	pool := NewWorkerPool(2)
	defer pool.Close()

	pool.Bands(0, func(int, int) { t.Error("called for zero rows") })
}

func TestWorkerPool_ConcurrentCallers(t *testing.T) {
	pool := NewWorkerPool(4)
	defer pool.Close()

	var total atomic.Int64
	var wg sync.WaitGroup
	for range 2 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 50 {
				pool.Bands(64, func(y0, y1 int) { total.Add(int64(y1 - y0)) })
			}
		}()
	}
	wg.Wait()

	if got := total.Load(); got != 2*50*64 {
		t.Errorf("total rows = %d, want %d", got, 2*50*64)
	}
}
