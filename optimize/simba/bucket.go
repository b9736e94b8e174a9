package simba

import "sort"

// Bucket groups the trajectories collected for a single example across a
// mini-batch of candidate programs, kept sorted by score descending so Best
// and Worst are O(1).
type Bucket struct {
	Trajectories []Trajectory
}

// NewBucket builds a Bucket from a set of trajectories, sorting them by
// score descending.
func NewBucket(trajectories []Trajectory) *Bucket {
	cp := append([]Trajectory{}, trajectories...)
	sort.SliceStable(cp, func(i, j int) bool { return cp[i].Score > cp[j].Score })
	return &Bucket{Trajectories: cp}
}

// Best returns the highest-scoring trajectory in the bucket.
func (b *Bucket) Best() Trajectory {
	return b.Trajectories[0]
}

// Worst returns the lowest-scoring trajectory in the bucket.
func (b *Bucket) Worst() Trajectory {
	return b.Trajectories[len(b.Trajectories)-1]
}

// Max returns the highest score in the bucket.
func (b *Bucket) Max() float64 {
	return b.Best().Score
}

// Min returns the lowest score in the bucket.
func (b *Bucket) Min() float64 {
	return b.Worst().Score
}

// Avg returns the mean score across the bucket.
func (b *Bucket) Avg() float64 {
	if len(b.Trajectories) == 0 {
		return 0
	}
	var sum float64
	for _, t := range b.Trajectories {
		sum += t.Score
	}
	return sum / float64(len(b.Trajectories))
}

// Gap returns the spread between the best and worst score in the bucket,
// the value HasImprovementPotential compares against its threshold.
func (b *Bucket) Gap() float64 {
	return b.Max() - b.Min()
}

// HasImprovementPotential reports whether the bucket's spread exceeds
// threshold, meaning at least one candidate is meaningfully weaker than
// the best and might benefit from a mutation.
func (b *Bucket) HasImprovementPotential(threshold float64) bool {
	return len(b.Trajectories) > 1 && b.Gap() > threshold
}
