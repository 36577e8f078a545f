package cache

import (
	"context"
	"strconv"
	"testing"
)

// BenchmarkMemory_Get measures the hit path.
func BenchmarkMemory_Get(b *testing.B) {
	ctx := context.Background()
	m := NewMemory("bench")
	m.Put(ctx, "k", "v")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, ok := m.Get(ctx, "k"); !ok {
			b.Fatal("unexpected miss")
		}
	}
}

// BenchmarkMemory_Put measures writes over a spread of keys.
func BenchmarkMemory_Put(b *testing.B) {
	ctx := context.Background()
	m := NewMemory("bench")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		m.Put(ctx, strconv.Itoa(i%1024), i)
	}
}

// BenchmarkMemory_GetOrLoad_Hit measures load-if-absent on a warm key.
func BenchmarkMemory_GetOrLoad_Hit(b *testing.B) {
	ctx := context.Background()
	m := NewMemory("bench")
	m.Put(ctx, "k", "v")
	loader := func(context.Context) (any, error) { return "v", nil }

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := m.GetOrLoad(ctx, "k", loader); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkMemory_GetParallel measures concurrent read throughput.
func BenchmarkMemory_GetParallel(b *testing.B) {
	ctx := context.Background()
	m := NewMemory("bench")
	m.Put(ctx, "k", "v")

	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			if _, ok := m.Get(ctx, "k"); !ok {
				b.Error("unexpected miss")
				return
			}
		}
	})
}
