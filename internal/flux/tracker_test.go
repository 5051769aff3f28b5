package flux

import (
	"math"
	"testing"
)

func TestCarryConservesFractionalDrift(t *testing.T) {
	// Sequences whose exact sum is an integer must emit exactly that
	// integer, however the fractions are split across cadences.
	// Dyadic fractions keep the arithmetic exact, so the property holds
	// with no float slop.
	cases := []struct {
		name   string
		fluxes []float64
		want   int
	}{
		{"steady negative", []float64{-0.375, -0.375, -0.375, -0.375, -0.375, -0.375, -0.375, -0.375}, -3},
		{"steady positive", []float64{0.25, 0.25, 0.25, 0.25}, 1},
		{"mixed signs", []float64{-0.75, 0.25, -0.5, -0.625, 0.625, -1.0}, -2},
		{"whole units", []float64{-2.0, 1.0, -1.0}, -2},
		{"sums to zero", []float64{0.5, -0.5, 0.875, -0.875}, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tr := &tracker{}
			total := 0
			for _, f := range tc.fluxes {
				total += tr.carry(f)
			}
			if total != tc.want {
				t.Fatalf("emitted %d, want %d (residual %f)", total, tc.want, tr.residual)
			}
			if math.Abs(tr.residual) > 1e-9 {
				t.Fatalf("residual %f left over from an integral sum", tr.residual)
			}
		})
	}
}

func TestCarryEmissionDirection(t *testing.T) {
	tr := &tracker{}
	if got := tr.carry(1.7); got != 1 {
		t.Fatalf("positive crossing emitted %d, want 1", got)
	}
	if math.Abs(tr.residual-0.7) > 1e-9 {
		t.Fatalf("residual %f, want 0.7", tr.residual)
	}

	tr = &tracker{}
	if got := tr.carry(-1.7); got != -1 {
		t.Fatalf("negative crossing emitted %d, want -1", got)
	}
	if math.Abs(tr.residual+0.7) > 1e-9 {
		t.Fatalf("residual %f, want -0.7", tr.residual)
	}

	tr = &tracker{}
	if got := tr.carry(0.9); got != 0 {
		t.Fatalf("sub-unit flux emitted %d", got)
	}
}

func TestVisitTracksRoomTenure(t *testing.T) {
	tr := &tracker{}
	tr.visit("a")
	tr.visit("a")
	tr.visit("a")
	if tr.cadencesInRoom != 3 {
		t.Fatalf("cadences = %d, want 3", tr.cadencesInRoom)
	}
	tr.visit("b")
	if tr.cadencesInRoom != 1 {
		t.Fatalf("move should reset to 1, got %d", tr.cadencesInRoom)
	}
}

func TestResistanceFactor(t *testing.T) {
	const window = 10
	cases := []struct {
		cadences int
		want     float64
	}{
		{1, 1.0},
		{10, 1.0},
		{11, 0.75},
		{20, 0.75},
		{21, 0.5},
		{500, 0.5},
	}
	for _, tc := range cases {
		if got := resistanceFactor(tc.cadences, window); got != tc.want {
			t.Errorf("resistanceFactor(%d, %d) = %f, want %f", tc.cadences, window, got, tc.want)
		}
	}
	if got := resistanceFactor(100, 0); got != 1.0 {
		t.Errorf("zero window must disable resistance, got %f", got)
	}
}
