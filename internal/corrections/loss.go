package corrections

import (
	"context"
	"fmt"
	"math"

	"openbst/internal/grid"
)

// transmissionLossSpherical adds back the two-way spherical spreading and
// absorption loss: 40*log10(R) + 2*alpha*R/1000.
func transmissionLossSpherical(ctx context.Context, in Input, params Params) (Output, error) {
	p, ok := params.(TransmissionLossParams)
	if !ok {
		return nil, fmt.Errorf("transmission loss: unexpected parameters %T", params)
	}
	bs, err := prior(ctx, in)
	if err != nil {
		return nil, err
	}
	found, err := require(ctx, in, VarDetectionRange)
	if err != nil {
		return nil, err
	}
	rng := found[0]

	var runtime *grid.Grid
	if p.UseRuntimeAbsorption {
		found, err := require(ctx, in, VarAbsorption)
		if err != nil {
			return nil, err
		}
		runtime = found[0]
		if err := checkRows(bs, runtime); err != nil {
			return nil, fmt.Errorf("transmission loss: %w", err)
		}
	}
	if err := checkRows(bs, rng); err != nil {
		return nil, fmt.Errorf("transmission loss: %w", err)
	}

	loss := perBeam(bs, func(r, c int) float64 {
		alpha := p.AbsorptionDBPerKm
		if runtime != nil {
			alpha = cell(runtime, r, c)
		}
		return sphericalLoss(cell(rng, r, c), alpha)
	})
	if err := addGrid(bs, loss); err != nil {
		return nil, fmt.Errorf("transmission loss: %w", err)
	}
	return Output{VarBackscatter: bs, VarTransmissionLoss: loss}, nil
}

func sphericalLoss(rangeM, absorptionDBPerKm float64) float64 {
	if !positive(rangeM) {
		return math.NaN()
	}
	return 40*math.Log10(rangeM) + 2*absorptionDBPerKm*rangeM/1000
}
