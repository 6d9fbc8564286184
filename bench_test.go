package anybox_test

import (
	"context"
	"testing"

	"github.com/AndrewDonelson/anybox"
)

// ── Box benchmarks ────────────────────────────────────────────────────────────

func BenchmarkBox_New_Inline(b *testing.B) {
	for i := 0; i < b.N; i++ {
		bx := anybox.New(int64(i))
		_ = bx
	}
}

func BenchmarkBox_New_Heap(b *testing.B) {
	p := Product{ID: "b1", Name: "Bench", Price: 1.0}
	for i := 0; i < b.N; i++ {
		bx := anybox.New(p)
		_ = bx
	}
}

func BenchmarkBox_Get_Inline(b *testing.B) {
	bx := anybox.New(int64(42))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = anybox.Get[int64](&bx)
	}
}

func BenchmarkBox_Get_Heap(b *testing.B) {
	bx := anybox.New(Product{ID: "b2"})
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = anybox.Get[Product](&bx)
	}
}

func BenchmarkBox_Clone_Heap(b *testing.B) {
	bx := anybox.New(Product{ID: "b3", Name: "Clone"})
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		cp := bx.Clone()
		_ = cp
	}
}

func BenchmarkBox_Swap(b *testing.B) {
	x := anybox.New(int64(1))
	y := anybox.New("two")
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		x.Swap(&y)
	}
}

// ── Store benchmarks ──────────────────────────────────────────────────────────

func benchNewStore(b *testing.B) *anybox.Store {
	b.Helper()
	s, err := anybox.NewStore(anybox.Config{})
	if err != nil {
		b.Fatal(err)
	}
	return s
}

func BenchmarkStore_Put_L1(b *testing.B) {
	s := benchNewStore(b)
	defer s.Close()

	ctx := context.Background()
	bx := anybox.New(Product{ID: "b1", Name: "BenchPut", Price: 1.0})

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = s.Put(ctx, "b1", &bx)
	}
}

func BenchmarkStore_Get_L1_Hit(b *testing.B) {
	s := benchNewStore(b)
	defer s.Close()

	ctx := context.Background()
	bx := anybox.New(Product{ID: "b1", Name: "BenchGet", Price: 1.0})
	_ = s.Put(ctx, "b1", &bx)

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			_, _ = s.Get(ctx, "b1")
		}
	})
}
