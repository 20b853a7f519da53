package corrections

import (
	"context"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"openbst/internal/grid"
)

// prior fetches the upstream backscatter and returns a copy to correct.
func prior(ctx context.Context, in Input) (*grid.Grid, error) {
	found, err := require(ctx, in, VarBackscatter)
	if err != nil {
		return nil, err
	}
	return found[0].Clone(), nil
}

// subtractPerPing subtracts one value per row from every beam of that row.
func subtractPerPing(bs, perPing *grid.Grid) error {
	if perPing.Rows != bs.Rows || perPing.Cols != 1 {
		return fmt.Errorf("per-ping grid is %dx%d, backscatter has %d pings", perPing.Rows, perPing.Cols, bs.Rows)
	}
	for r := range bs.Rows {
		floats.AddConst(-perPing.At(r, 0), bs.Row(r))
	}
	return nil
}

func subtractConst(bs *grid.Grid, value float64) {
	floats.AddConst(-value, bs.Data)
}

func subtractGrid(bs, g *grid.Grid) error {
	if !bs.SameShape(g) {
		return fmt.Errorf("grid is %dx%d, backscatter is %dx%d", g.Rows, g.Cols, bs.Rows, bs.Cols)
	}
	floats.Sub(bs.Data, g.Data)
	return nil
}

func addGrid(bs, g *grid.Grid) error {
	if !bs.SameShape(g) {
		return fmt.Errorf("grid is %dx%d, backscatter is %dx%d", g.Rows, g.Cols, bs.Rows, bs.Cols)
	}
	floats.Add(bs.Data, g.Data)
	return nil
}

// perBeam builds a grid shaped like bs by evaluating fn for every cell.
func perBeam(bs *grid.Grid, fn func(r, c int) float64) *grid.Grid {
	out := grid.New(bs.Rows, bs.Cols)
	for r := range bs.Rows {
		for c := range bs.Cols {
			out.Set(r, c, fn(r, c))
		}
	}
	return out
}

func checkRows(bs *grid.Grid, grids ...*grid.Grid) error {
	for _, g := range grids {
		if g.Rows != bs.Rows {
			return fmt.Errorf("upstream grid has %d pings, backscatter has %d", g.Rows, bs.Rows)
		}
		if g.Cols != 1 && g.Cols != bs.Cols {
			return fmt.Errorf("upstream grid has %d beams, backscatter has %d", g.Cols, bs.Cols)
		}
	}
	return nil
}

// cell reads g at (r, c), broadcasting per-ping columns across beams.
func cell(g *grid.Grid, r, c int) float64 {
	if g.Cols == 1 {
		return g.At(r, 0)
	}
	return g.At(r, c)
}

func positive(v float64) bool {
	return v > 0 && !math.IsInf(v, 0)
}
