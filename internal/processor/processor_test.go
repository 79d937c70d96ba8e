package processor

import (
	"context"
	"errors"
	"testing"

	"github.com/lugondev/go-cpamm/internal/metrics"
)

func TestErrorHandlingProcessor(t *testing.T) {
	boom := errors.New("boom")
	var seen error
	p := NewErrorHandlingProcessor[int](ProcessorFunc[int](func(_ context.Context, v int, _ *metrics.Collection) error {
		if v < 0 {
			return boom
		}
		return nil
	}), func(err error) error {
		seen = err
		return errors.Join(errors.New("wrapped"), err)
	})

	if err := p.Process(context.Background(), 1, metrics.NewCollection()); err != nil || seen != nil {
		t.Fatalf("success path: err=%v seen=%v", err, seen)
	}
	err := p.Process(context.Background(), -1, metrics.NewCollection())
	if !errors.Is(err, boom) || seen != boom {
		t.Errorf("failure path: err=%v seen=%v", err, seen)
	}
}

func BenchmarkSwap(b *testing.B) {
	h := newHarness(b, 30)
	if _, err := h.deposit(h.alice, 2_000_000_000, 1_000_000_000, 2_000_000_000); err != nil {
		b.Fatalf("deposit error: %v", err)
	}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := h.swap(h.alice, i%2 == 0, 1_000, 1); err != nil {
			b.Fatalf("swap error: %v", err)
		}
	}
}
