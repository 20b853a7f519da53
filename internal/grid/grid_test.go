package grid_test

import (
	"math"
	"testing"

	"openbst/internal/grid"
)

func TestBinaryRoundTripPreservesBits(t *testing.T) {
	g := grid.New(2, 3)
	g.Set(0, 0, -12.25)
	g.Set(1, 2, math.Inf(1))
	g.Set(0, 1, math.SmallestNonzeroFloat64)

	blob, err := g.MarshalBinary()
	if err != nil {
		t.Fatalf("MarshalBinary: %v", err)
	}
	back, err := grid.Decode(2, 3, blob)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	for i := range g.Data {
		if math.Float64bits(g.Data[i]) != math.Float64bits(back.Data[i]) {
			t.Fatalf("value %d changed: %v -> %v", i, g.Data[i], back.Data[i])
		}
	}
}

func TestDecodeRejectsShapeMismatch(t *testing.T) {
	if _, err := grid.Decode(2, 2, make([]byte, 24)); err == nil {
		t.Fatal("expected error for short blob")
	}
}

func TestNewFillsNaN(t *testing.T) {
	g := grid.New(1, 2)
	if !math.IsNaN(g.At(0, 1)) {
		t.Fatalf("expected NaN fill, got %v", g.At(0, 1))
	}
	col := grid.Column([]float64{1, 2})
	if col.Rows != 2 || col.Cols != 1 || col.At(1, 0) != 2 {
		t.Fatalf("unexpected column grid: %+v", col)
	}
}
