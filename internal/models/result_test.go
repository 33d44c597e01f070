package models

import (
	"testing"

	"github.com/hyperjump/rankdaora/internal/popularity"
)

func TestBiasCurve(t *testing.T) {
	bias := popularity.NewPositionBias(map[int]popularity.PositionStats{
		3: {Impressions: 10, Clicks: 1},
		0: {Impressions: 10, Clicks: 5},
		1: {Impressions: 0, Clicks: 0},
	})
	points := BiasCurve(bias)
	if len(points) != 3 {
		t.Fatalf("got %d points", len(points))
	}
	for i, want := range []int{0, 1, 3} {
		if points[i].Position != want {
			t.Errorf("point %d position = %d, want %d", i, points[i].Position, want)
		}
	}
	if points[1].Probability != 0 {
		t.Errorf("zero-impression position probability = %v", points[1].Probability)
	}
	if points[0].Clicks != 5 || points[0].Probability <= points[2].Probability {
		t.Errorf("unexpected points %+v", points)
	}
	if got := BiasCurve(nil); got == nil || len(got) != 0 {
		t.Errorf("nil bias should give an empty slice, got %v", got)
	}
}
