// Package grid holds the two-dimensional float64 arrays that flow between
// correction steps: one row per ping, one column per beam (or a single column
// for per-ping values). Missing values are NaN.
package grid

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Grid is a dense row-major matrix.
type Grid struct {
	Rows int
	Cols int
	Data []float64
}

// New allocates a rows x cols grid filled with NaN.
func New(rows, cols int) *Grid {
	data := make([]float64, rows*cols)
	for i := range data {
		data[i] = math.NaN()
	}
	return &Grid{Rows: rows, Cols: cols, Data: data}
}

// Column builds a rows x 1 grid from per-ping values.
func Column(values []float64) *Grid {
	data := make([]float64, len(values))
	copy(data, values)
	return &Grid{Rows: len(values), Cols: 1, Data: data}
}

// At returns the value at row r, column c.
func (g *Grid) At(r, c int) float64 { return g.Data[r*g.Cols+c] }

// Set stores v at row r, column c.
func (g *Grid) Set(r, c int, v float64) { g.Data[r*g.Cols+c] = v }

// Row returns a view of row r.
func (g *Grid) Row(r int) []float64 { return g.Data[r*g.Cols : (r+1)*g.Cols] }

// Clone returns a deep copy.
func (g *Grid) Clone() *Grid {
	data := make([]float64, len(g.Data))
	copy(data, g.Data)
	return &Grid{Rows: g.Rows, Cols: g.Cols, Data: data}
}

// SameShape reports whether both grids have identical dimensions.
func (g *Grid) SameShape(o *Grid) bool {
	return g != nil && o != nil && g.Rows == o.Rows && g.Cols == o.Cols
}

// Valid reports whether the data length matches the declared shape.
func (g *Grid) Valid() bool {
	return g != nil && g.Rows >= 0 && g.Cols >= 0 && len(g.Data) == g.Rows*g.Cols
}

// MarshalBinary encodes the values as little-endian IEEE-754 doubles. The
// shape is stored separately by the caller.
func (g *Grid) MarshalBinary() ([]byte, error) {
	if !g.Valid() {
		return nil, fmt.Errorf("grid shape %dx%d does not match %d values", g.Rows, g.Cols, len(g.Data))
	}
	out := make([]byte, 8*len(g.Data))
	for i, v := range g.Data {
		binary.LittleEndian.PutUint64(out[8*i:], math.Float64bits(v))
	}
	return out, nil
}

// Decode rebuilds a grid of the given shape from MarshalBinary output.
func Decode(rows, cols int, blob []byte) (*Grid, error) {
	if rows < 0 || cols < 0 || len(blob) != 8*rows*cols {
		return nil, fmt.Errorf("blob of %d bytes does not hold a %dx%d grid", len(blob), rows, cols)
	}
	data := make([]float64, rows*cols)
	for i := range data {
		data[i] = math.Float64frombits(binary.LittleEndian.Uint64(blob[8*i:]))
	}
	return &Grid{Rows: rows, Cols: cols, Data: data}, nil
}
