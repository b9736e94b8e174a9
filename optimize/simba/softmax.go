package simba

import (
	"math"
	"math/rand"
)

// Softmax computes exp(scores[i]/temperature) normalized to sum to 1. A
// temperature <= 0 is treated as 1 to avoid division by zero; an empty
// input returns an empty output.
func Softmax(scores []float64, temperature float64) []float64 {
	if temperature <= 0 {
		temperature = 1
	}
	out := make([]float64, len(scores))
	if len(scores) == 0 {
		return out
	}

	max := scores[0]
	for _, s := range scores {
		if s > max {
			max = s
		}
	}

	var sum float64
	for i, s := range scores {
		v := math.Exp((s - max) / temperature)
		out[i] = v
		sum += v
	}
	if sum == 0 {
		uniform := 1.0 / float64(len(out))
		for i := range out {
			out[i] = uniform
		}
		return out
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}

// WeightedSample draws n indices into weights with replacement, using the
// categorical distribution weights describes. weights need not be
// normalized in advance. Callers pass the result of Softmax.
func WeightedSample(rng *rand.Rand, weights []float64, n int) []int {
	out := make([]int, n)
	if len(weights) == 0 {
		return out
	}
	cum := make([]float64, len(weights))
	var running float64
	for i, w := range weights {
		running += w
		cum[i] = running
	}
	total := cum[len(cum)-1]
	for i := 0; i < n; i++ {
		r := rng.Float64() * total
		idx := 0
		for idx < len(cum)-1 && cum[idx] < r {
			idx++
		}
		out[i] = idx
	}
	return out
}

// PoissonEvictionCount samples how many demos to evict when minting a new
// one for a program that already holds n demos against a cap of maxDemos:
// k ~ max(Poisson(n/maxDemos), 1[n >= maxDemos]), clamped to [0, n]. This
// guarantees at least one eviction once the demo set is full, and in
// expectation evicts n/maxDemos demos otherwise, preserving diversity as
// the set fills.
func PoissonEvictionCount(rng *rand.Rand, n, maxDemos int) int {
	if n <= 0 {
		return 0
	}
	if maxDemos <= 0 {
		maxDemos = 1
	}
	lambda := float64(n) / float64(maxDemos)
	k := poisson(rng, lambda)
	if n >= maxDemos && k < 1 {
		k = 1
	}
	if k > n {
		k = n
	}
	if k < 0 {
		k = 0
	}
	return k
}

// poisson draws a single sample from a Poisson(lambda) distribution using
// Knuth's algorithm. lambda <= 0 always returns 0.
func poisson(rng *rand.Rand, lambda float64) int {
	if lambda <= 0 {
		return 0
	}
	l := math.Exp(-lambda)
	k := 0
	p := 1.0
	for {
		k++
		p *= rng.Float64()
		if p <= l {
			break
		}
	}
	return k - 1
}
