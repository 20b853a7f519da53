package corrections

import (
	"context"
	"fmt"
	"math"

	"gonum.org/v1/gonum/interp"

	"openbst/internal/grid"
)

func calibrationNone(ctx context.Context, in Input, _ Params) (Output, error) {
	bs, err := prior(ctx, in)
	if err != nil {
		return nil, err
	}
	offsets := &grid.Grid{Rows: bs.Rows, Cols: bs.Cols, Data: make([]float64, len(bs.Data))}
	return Output{VarBackscatter: bs, VarCalibration: offsets}, nil
}

// calibrationCurve subtracts an angular offset interpolated linearly from the
// configured curve. Angles outside the curve take the nearest end value.
func calibrationCurve(ctx context.Context, in Input, params Params) (Output, error) {
	p, ok := params.(CalibrationParams)
	if !ok {
		return nil, fmt.Errorf("calibration: unexpected parameters %T", params)
	}
	bs, err := prior(ctx, in)
	if err != nil {
		return nil, err
	}
	found, err := require(ctx, in, VarDetectionAngle)
	if err != nil {
		return nil, err
	}
	angle := found[0]
	if err := checkRows(bs, angle); err != nil {
		return nil, fmt.Errorf("calibration: %w", err)
	}

	var curve interp.PiecewiseLinear
	if err := curve.Fit(p.AnglesDeg, p.OffsetsDB); err != nil {
		return nil, fmt.Errorf("calibration: fit curve: %w", err)
	}
	offsets := perBeam(bs, func(r, c int) float64 {
		a := cell(angle, r, c)
		if math.IsNaN(a) {
			return math.NaN()
		}
		return curve.Predict(a)
	})
	if err := subtractGrid(bs, offsets); err != nil {
		return nil, fmt.Errorf("calibration: %w", err)
	}
	return Output{VarBackscatter: bs, VarCalibration: offsets}, nil
}
