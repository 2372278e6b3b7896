package utils

import (
	"math"
	"testing"
)

func TestRandomReproducibility(t *testing.T) {
	seed := int64(42)

	rng1 := NewRandom(seed)
	rng2 := NewRandom(seed)

	t.Run("IntN", func(t *testing.T) {
		for i := 0; i < 1000; i++ {
			v1 := rng1.IntN(1000)
			v2 := rng2.IntN(1000)
			if v1 != v2 {
				t.Errorf("Mismatch at iteration %d: %d != %d", i, v1, v2)
				return
			}
		}
	})

	rng1 = NewRandom(seed)
	rng2 = NewRandom(seed)

	t.Run("NormalFloat64", func(t *testing.T) {
		for i := 0; i < 1000; i++ {
			v1 := rng1.NormalFloat64()
			v2 := rng2.NormalFloat64()
			if v1 != v2 {
				t.Errorf("Mismatch at iteration %d: %f != %f", i, v1, v2)
				return
			}
		}
	})
}

func TestRandomSeedStorage(t *testing.T) {
	rng := NewRandom(12345)
	if rng.Seed() != 12345 {
		t.Errorf("Expected seed 12345, got %d", rng.Seed())
	}

	rng = NewRandom(0)
	if rng.Seed() == 0 {
		t.Error("Expected non-zero auto-generated seed")
	}
	if int64(rng.Seed()) < 0 {
		t.Errorf("Expected auto-generated seed to fit a positive int64, got %d", rng.Seed())
	}
}

func TestDeriveIsPositionAddressed(t *testing.T) {
	root := NewRandom(7)

	a := root.Derive(1, 100).NormalFloat64()

	// Drawing from the parent must not change derived streams.
	for i := 0; i < 50; i++ {
		root.Float64()
	}
	b := root.Derive(1, 100).NormalFloat64()

	if a != b {
		t.Errorf("Expected derived stream to ignore parent state, got %f and %f", a, b)
	}

	other := NewRandom(7).Derive(1, 100).NormalFloat64()
	if a != other {
		t.Errorf("Expected same seed and keys to reproduce, got %f and %f", a, other)
	}
}

func TestDeriveKeysSeparateStreams(t *testing.T) {
	root := NewRandom(7)

	tests := []struct {
		name          string
		stream, index uint64
	}{
		{"next index", 1, 101},
		{"other stream", 2, 100},
		{"swapped keys", 100, 1},
	}

	base := root.Derive(1, 100).Float64()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := root.Derive(tt.stream, tt.index).Float64()
			if v == base {
				t.Errorf("Expected a different stream for (%d,%d)", tt.stream, tt.index)
			}
		})
	}
}

func TestForkDeterminism(t *testing.T) {
	children1 := NewRandom(99).ForkN(3)
	children2 := NewRandom(99).ForkN(3)

	for i := range children1 {
		if children1[i].Seed() != children2[i].Seed() {
			t.Errorf("Fork %d: expected seed %d, got %d", i, children1[i].Seed(), children2[i].Seed())
		}
	}
	if children1[0].Seed() == children1[1].Seed() {
		t.Error("Expected forks to have distinct seeds")
	}
}

func TestNormalFloat64Range(t *testing.T) {
	rng := NewRandom(42)

	t.Run("zero stddev returns mean", func(t *testing.T) {
		for i := 0; i < 100; i++ {
			if v := rng.NormalFloat64Range(3500, 0); v != 3500 {
				t.Fatalf("Expected 3500, got %f", v)
			}
		}
	})

	t.Run("sample moments", func(t *testing.T) {
		const n = 20000
		sum, sumSq := 0.0, 0.0
		for i := 0; i < n; i++ {
			v := rng.NormalFloat64Range(10, 2)
			sum += v
			sumSq += v * v
		}
		mean := sum / n
		std := math.Sqrt(sumSq/n - mean*mean)
		if math.Abs(mean-10) > 0.1 {
			t.Errorf("Expected mean near 10, got %f", mean)
		}
		if math.Abs(std-2) > 0.1 {
			t.Errorf("Expected stddev near 2, got %f", std)
		}
	})
}

func TestRangesAndPicks(t *testing.T) {
	rng := NewRandom(1)

	for i := 0; i < 1000; i++ {
		if v := rng.IntN(3); v < 0 || v >= 3 {
			t.Fatalf("IntN out of bounds: %d", v)
		}
		if v := rng.Float64(); v < 0 || v >= 1 {
			t.Fatalf("Float64 out of bounds: %f", v)
		}
	}

	if rng.IntN(0) != 0 {
		t.Error("Expected IntN(0) to return 0")
	}
	if rng.WeightedPickFloat(nil) != -1 {
		t.Error("Expected -1 for empty weights")
	}

	counts := make([]int, 3)
	for i := 0; i < 10000; i++ {
		counts[rng.WeightedPickFloat([]float64{0, 1, 3})]++
	}
	if counts[0] != 0 {
		t.Errorf("Expected zero-weight index never picked, got %d", counts[0])
	}
	if counts[2] < counts[1]*2 {
		t.Errorf("Expected index 2 to dominate, got %v", counts)
	}
}
