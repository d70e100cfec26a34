package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestMap_PreservesOrder(t *testing.T) {
	items := []int{5, 4, 3, 2, 1}

	got := Map(context.Background(), items, 0, func(ctx context.Context, i int, item int) int {
		// Larger items sleep longer so completion order differs from input order
		time.Sleep(time.Duration(item) * 3 * time.Millisecond)
		return item * 10
	})

	want := []int{50, 40, 30, 20, 10}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("index %d: expected %d, got %d", i, want[i], got[i])
		}
	}
}

func TestMap_Empty(t *testing.T) {
	got := Map(context.Background(), []string{}, 2, func(ctx context.Context, i int, item string) string {
		t.Error("fn must not be called")
		return item
	})
	if len(got) != 0 {
		t.Errorf("expected empty result, got %d", len(got))
	}
}

func TestMap_Limit(t *testing.T) {
	var current, peak int32
	items := make([]int, 20)

	Map(context.Background(), items, 3, func(ctx context.Context, i int, item int) struct{} {
		n := atomic.AddInt32(&current, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		atomic.AddInt32(&current, -1)
		return struct{}{}
	})

	if peak > 3 {
		t.Errorf("expected at most 3 concurrent calls, saw %d", peak)
	}
}

func TestMap_FailuresStayLocal(t *testing.T) {
	type outcome struct {
		val int
		err error
	}

	got := Map(context.Background(), []int{1, 2, 3}, 0, func(ctx context.Context, i int, item int) outcome {
		if item == 2 {
			return outcome{err: errors.New("boom")}
		}
		// Siblings of a failing item still see a live context
		if ctx.Err() != nil {
			return outcome{err: ctx.Err()}
		}
		return outcome{val: item}
	})

	if got[0].err != nil || got[0].val != 1 {
		t.Errorf("unexpected first outcome %+v", got[0])
	}
	if got[1].err == nil {
		t.Error("expected second item to fail")
	}
	if got[2].err != nil || got[2].val != 3 {
		t.Errorf("unexpected third outcome %+v", got[2])
	}
}
