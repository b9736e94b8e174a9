package simba

import "testing"

func mkTrajectory(score float64, success bool) Trajectory {
	return Trajectory{Score: score, Success: success}
}

func TestNewBucket_SortsDescending(t *testing.T) {
	b := NewBucket([]Trajectory{
		mkTrajectory(0.2, true),
		mkTrajectory(0.9, true),
		mkTrajectory(0.5, true),
	})

	if b.Max() != 0.9 {
		t.Errorf("Max() = %v, want 0.9", b.Max())
	}
	if b.Min() != 0.2 {
		t.Errorf("Min() = %v, want 0.2", b.Min())
	}
	for i := 1; i < len(b.Trajectories); i++ {
		if b.Trajectories[i-1].Score < b.Trajectories[i].Score {
			t.Fatalf("Trajectories not sorted descending: %v", b.Trajectories)
		}
	}
}

func TestBucket_TieBreakStable(t *testing.T) {
	a := Trajectory{Score: 0.5, Metadata: map[string]any{"id": "a"}}
	c := Trajectory{Score: 0.5, Metadata: map[string]any{"id": "b"}}
	b := NewBucket([]Trajectory{a, c})

	if b.Trajectories[0].Metadata["id"] != "a" || b.Trajectories[1].Metadata["id"] != "b" {
		t.Fatalf("expected stable order to be preserved for equal scores, got %v", b.Trajectories)
	}
}

func TestBucket_Avg(t *testing.T) {
	b := NewBucket([]Trajectory{mkTrajectory(1.0, true), mkTrajectory(0.0, false)})
	if got, want := b.Avg(), 0.5; got != want {
		t.Errorf("Avg() = %v, want %v", got, want)
	}
	if got, want := b.Gap(), 1.0; got != want {
		t.Errorf("Gap() = %v, want %v", got, want)
	}
}

func TestBucket_Invariant_MinLeAvgLeMax(t *testing.T) {
	b := NewBucket([]Trajectory{mkTrajectory(0.1, true), mkTrajectory(0.4, true), mkTrajectory(0.9, true)})
	if !(b.Min() <= b.Avg() && b.Avg() <= b.Max()) {
		t.Fatalf("invariant violated: min=%v avg=%v max=%v", b.Min(), b.Avg(), b.Max())
	}
}

func TestBucket_HasImprovementPotential(t *testing.T) {
	tests := []struct {
		name   string
		scores []float64
		want   bool
	}{
		{"large gap", []float64{0.9, 0.1}, true},
		{"small gap", []float64{0.9, 0.85}, false},
		{"single trajectory", []float64{0.9}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var trajs []Trajectory
			for _, s := range tt.scores {
				trajs = append(trajs, mkTrajectory(s, true))
			}
			b := NewBucket(trajs)
			if got := b.HasImprovementPotential(0.1); got != tt.want {
				t.Errorf("HasImprovementPotential() = %v, want %v", got, tt.want)
			}
		})
	}
}
