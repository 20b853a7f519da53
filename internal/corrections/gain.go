package corrections

import (
	"context"
	"fmt"
	"math"
)

func staticGain(ctx context.Context, in Input, params Params) (Output, error) {
	p, ok := params.(StaticGainParams)
	if !ok {
		return nil, fmt.Errorf("static gain: unexpected parameters %T", params)
	}
	bs, err := prior(ctx, in)
	if err != nil {
		return nil, err
	}
	if p.Method == StaticGainFixed {
		subtractConst(bs, p.FixedGainDB)
		return Output{VarBackscatter: bs}, nil
	}
	found, err := require(ctx, in, VarGainSelection)
	if err != nil {
		return nil, err
	}
	if err := subtractPerPing(bs, found[0]); err != nil {
		return nil, fmt.Errorf("static gain: %w", err)
	}
	return Output{VarBackscatter: bs}, nil
}

func sourceLevel(ctx context.Context, in Input, params Params) (Output, error) {
	p, ok := params.(SourceLevelParams)
	if !ok {
		return nil, fmt.Errorf("source level: unexpected parameters %T", params)
	}
	bs, err := prior(ctx, in)
	if err != nil {
		return nil, err
	}
	if p.Method == SourceLevelFixed {
		subtractConst(bs, p.FixedSourceLevelDB)
		return Output{VarBackscatter: bs}, nil
	}
	found, err := require(ctx, in, VarPowerSelection)
	if err != nil {
		return nil, err
	}
	if err := subtractPerPing(bs, found[0]); err != nil {
		return nil, fmt.Errorf("source level: %w", err)
	}
	return Output{VarBackscatter: bs}, nil
}

func tvgDatagramCurve(ctx context.Context, in Input, _ Params) (Output, error) {
	bs, err := prior(ctx, in)
	if err != nil {
		return nil, err
	}
	found, err := require(ctx, in, VarTVGGain)
	if err != nil {
		return nil, err
	}
	curve := found[0].Clone()
	if err := subtractGrid(bs, curve); err != nil {
		return nil, fmt.Errorf("tvg: %w", err)
	}
	return Output{VarBackscatter: bs, VarTVGCurve: curve}, nil
}

// tvgLambert rebuilds the receiver gain from the runtime spreading and
// absorption coefficients: spreading*log10(R) + 2*alpha*R/1000.
func tvgLambert(ctx context.Context, in Input, _ Params) (Output, error) {
	bs, err := prior(ctx, in)
	if err != nil {
		return nil, err
	}
	found, err := require(ctx, in, VarDetectionRange, VarSpreading, VarAbsorption)
	if err != nil {
		return nil, err
	}
	rng, spreading, absorption := found[0], found[1], found[2]
	if err := checkRows(bs, rng, spreading, absorption); err != nil {
		return nil, fmt.Errorf("tvg: %w", err)
	}
	curve := perBeam(bs, func(r, c int) float64 {
		return lambertGain(cell(rng, r, c), cell(spreading, r, c), cell(absorption, r, c))
	})
	if err := subtractGrid(bs, curve); err != nil {
		return nil, fmt.Errorf("tvg: %w", err)
	}
	return Output{VarBackscatter: bs, VarTVGCurve: curve}, nil
}

func lambertGain(rangeM, spreading, absorptionDBPerKm float64) float64 {
	if !positive(rangeM) {
		return math.NaN()
	}
	return spreading*math.Log10(rangeM) + 2*absorptionDBPerKm*rangeM/1000
}

