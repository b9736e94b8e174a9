package simba

import (
	"math"
	"math/rand"
	"testing"
)

func TestSoftmax_SumsToOne(t *testing.T) {
	weights := Softmax([]float64{0.1, 0.5, 0.9, 0.3}, 0.2)
	var sum float64
	for _, w := range weights {
		sum += w
	}
	if math.Abs(sum-1.0) > 1e-9 {
		t.Errorf("sum(weights) = %v, want ~1.0", sum)
	}
}

func TestSoftmax_MonotoneInScore(t *testing.T) {
	weights := Softmax([]float64{0.1, 0.5, 0.9}, 0.2)
	if !(weights[2] > weights[1] && weights[1] > weights[0]) {
		t.Errorf("weights not monotone in score: %v", weights)
	}
}

func TestSoftmax_EmptyInput(t *testing.T) {
	if got := Softmax(nil, 0.2); len(got) != 0 {
		t.Errorf("Softmax(nil) = %v, want empty", got)
	}
}

func TestSoftmax_NonPositiveTemperatureDefaultsToOne(t *testing.T) {
	a := Softmax([]float64{1, 2, 3}, 0)
	b := Softmax([]float64{1, 2, 3}, 1)
	for i := range a {
		if math.Abs(a[i]-b[i]) > 1e-9 {
			t.Fatalf("Softmax with temperature<=0 should behave like temperature=1: %v vs %v", a, b)
		}
	}
}

func TestWeightedSample_AllMassOnOneIndex(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	weights := []float64{0, 1, 0}
	picks := WeightedSample(rng, weights, 20)
	for _, p := range picks {
		if p != 1 {
			t.Fatalf("WeightedSample() picked index %d, want 1 (only nonzero weight)", p)
		}
	}
}

func TestPoissonEvictionCount_GuaranteesEvictionWhenFull(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	for i := 0; i < 50; i++ {
		k := PoissonEvictionCount(rng, 4, 4)
		if k < 1 {
			t.Fatalf("PoissonEvictionCount() = %d, want >= 1 when n >= maxDemos", k)
		}
	}
}

func TestPoissonEvictionCount_ClampedToN(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	for i := 0; i < 50; i++ {
		k := PoissonEvictionCount(rng, 2, 1)
		if k > 2 {
			t.Fatalf("PoissonEvictionCount() = %d, want <= n=2", k)
		}
	}
}

func TestPoissonEvictionCount_ZeroDemos(t *testing.T) {
	rng := rand.New(rand.NewSource(4))
	if k := PoissonEvictionCount(rng, 0, 4); k != 0 {
		t.Errorf("PoissonEvictionCount(0, 4) = %d, want 0", k)
	}
}
