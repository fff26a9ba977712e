package batch_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/VersatilVC/organize-prime-sub010/batch"
)

func TestRunAllSucceed(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}

	outcomes := batch.Run(context.Background(), items, 2, func(_ context.Context, n int) (int, error) {
		return n * 10, nil
	})

	if len(outcomes) != len(items) {
		t.Fatalf("expected %d outcomes, got %d", len(items), len(outcomes))
	}
	for i, o := range outcomes {
		if o.Err != nil {
			t.Fatalf("item %d: unexpected error %v", i, o.Err)
		}
		if o.Item != items[i] {
			t.Fatalf("outcome %d out of order: item %d", i, o.Item)
		}
		if o.Result != items[i]*10 {
			t.Fatalf("item %d: result %d", i, o.Result)
		}
	}
}

func TestRunPartialFailure(t *testing.T) {
	errBoom := errors.New("boom")

	outcomes := batch.Run(context.Background(), []int{1, 2, 3}, 4, func(_ context.Context, n int) (int, error) {
		if n == 2 {
			return 0, errBoom
		}
		return n, nil
	})

	if outcomes[0].Err != nil || outcomes[2].Err != nil {
		t.Fatal("siblings of a failing item must not fail")
	}
	if !errors.Is(outcomes[1].Err, errBoom) {
		t.Fatalf("expected boom for item 2, got %v", outcomes[1].Err)
	}
}

func TestRunBoundedParallelism(t *testing.T) {
	const width = 3

	var inFlight, peak int64
	var mu sync.Mutex

	items := make([]int, 20)
	barrier := make(chan struct{})
	go func() { close(barrier) }()

	batch.Run(context.Background(), items, width, func(_ context.Context, _ int) (struct{}, error) {
		n := atomic.AddInt64(&inFlight, 1)
		mu.Lock()
		if n > peak {
			peak = n
		}
		mu.Unlock()
		<-barrier
		atomic.AddInt64(&inFlight, -1)
		return struct{}{}, nil
	})

	mu.Lock()
	defer mu.Unlock()
	if peak > width {
		t.Fatalf("parallelism exceeded width: peak %d > %d", peak, width)
	}
}

func TestRunCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	outcomes := batch.Run(ctx, []int{1, 2}, 1, func(_ context.Context, n int) (int, error) {
		return n, nil
	})

	// With width 1 and a cancelled context, later items must fail with the
	// context error rather than running.
	failed := 0
	for _, o := range outcomes {
		if errors.Is(o.Err, context.Canceled) {
			failed++
		}
	}
	if failed == 0 {
		t.Fatal("expected cancelled context to fail pending items")
	}
}

func TestRunZeroWidthFallsBack(t *testing.T) {
	outcomes := batch.Run(context.Background(), []int{1}, 0, func(_ context.Context, n int) (int, error) {
		return n, nil
	})
	if outcomes[0].Err != nil || outcomes[0].Result != 1 {
		t.Fatalf("unexpected outcome %+v", outcomes[0])
	}
}
