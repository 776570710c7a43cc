package treeset

import (
	"testing"
)

func benchmarkInsert(factor int, b *testing.B) {
	s := New(Config{})
	defer s.Close()
	for n := 0; n < factor*b.N; n++ {
		if err := s.Insert(ctx, n); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkInsert1(b *testing.B)   { benchmarkInsert(1, b) }
func BenchmarkInsert10(b *testing.B)  { benchmarkInsert(10, b) }
func BenchmarkInsert100(b *testing.B) { benchmarkInsert(100, b) }

func benchmarkContains(factor int, b *testing.B) {
	s := New(Config{})
	defer s.Close()
	b.StopTimer()
	for n := 0; n < factor*b.N; n++ {
		if err := s.Insert(ctx, n); err != nil {
			b.Fatal(err)
		}
	}
	b.StartTimer()
	for n := 0; n < factor*b.N; n++ {
		if _, err := s.Contains(ctx, n); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkContains1(b *testing.B)   { benchmarkContains(1, b) }
func BenchmarkContains10(b *testing.B)  { benchmarkContains(10, b) }
func BenchmarkContains100(b *testing.B) { benchmarkContains(100, b) }

func BenchmarkCompact(b *testing.B) {
	s := New(Config{})
	defer s.Close()
	for n := 0; n < 1000; n++ {
		if err := s.Insert(ctx, n); err != nil {
			b.Fatal(err)
		}
	}
	b.ResetTimer()
	for n := 0; n < b.N; n++ {
		s.Compact()
		// Contains rides behind the replay queue, so its reply marks
		// the end of the cycle.
		if _, err := s.Contains(ctx, 0); err != nil {
			b.Fatal(err)
		}
	}
}
