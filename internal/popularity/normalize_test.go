package popularity

import (
	"math"
	"testing"
)

func TestLogTransform(t *testing.T) {
	got := LogTransform([]float64{-3, 0, 1, math.E - 1})
	want := []float64{0, 0, math.Log(2), 1}
	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-12 {
			t.Errorf("LogTransform[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestPercentileRank(t *testing.T) {
	tests := []struct {
		name string
		in   []float64
		want []float64
	}{
		{"empty", []float64{}, []float64{}},
		{"single", []float64{42}, []float64{0}},
		{"increasing", []float64{1, 2, 3, 4, 5}, []float64{0, 0.25, 0.5, 0.75, 1}},
		{"unsorted", []float64{3, 1, 2}, []float64{1, 0, 0.5}},
		{"ties averaged", []float64{1, 2, 2, 3}, []float64{0, 0.5, 0.5, 1}},
		{"all tied", []float64{7, 7, 7}, []float64{0.5, 0.5, 0.5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PercentileRank(tt.in)
			if got == nil {
				t.Fatal("expected non-nil slice")
			}
			if len(got) != len(tt.want) {
				t.Fatalf("len = %d, want %d", len(got), len(tt.want))
			}
			for i := range tt.want {
				if math.Abs(got[i]-tt.want[i]) > 1e-12 {
					t.Errorf("PercentileRank = %v, want %v", got, tt.want)
					break
				}
			}
		})
	}
}

func TestPercentileRank_Monotonic(t *testing.T) {
	in := []float64{0.3, 0.1, 0.9, 0.1, 0.5, 0.7, 0.3}
	got := PercentileRank(in)
	for i := range in {
		for j := range in {
			if in[i] < in[j] && got[i] > got[j] {
				t.Fatalf("rank not monotonic: %v -> %v, %v -> %v", in[i], got[i], in[j], got[j])
			}
			if in[i] == in[j] && got[i] != got[j] {
				t.Fatalf("ties differ: %v -> %v vs %v", in[i], got[i], got[j])
			}
		}
	}
}

func TestLogPercentileTransform(t *testing.T) {
	got := LogPercentileTransform([]float64{0.0, 1.0, 10.0})
	if got[0] != 0.0 || got[2] != 1.0 {
		t.Errorf("extremes = %v", got)
	}
	if got[1] <= 0 || got[1] >= 1 {
		t.Errorf("middle = %v, want strictly in (0,1)", got[1])
	}
}
