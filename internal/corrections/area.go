package corrections

import (
	"context"
	"fmt"
	"math"
)

// areaCorrection removes the ensonified footprint area from backscatter.
// Beam-limited area is R^2 * psiTx * psiRx / cos(theta); pulse-limited area
// is R * psiTx * c*tau / (2*sin|theta|). The flat seafloor model uses the
// smaller of the two.
func areaCorrection(ctx context.Context, in Input, params Params) (Output, error) {
	p, ok := params.(AreaParams)
	if !ok {
		return nil, fmt.Errorf("area correction: unexpected parameters %T", params)
	}
	bs, err := prior(ctx, in)
	if err != nil {
		return nil, err
	}
	found, err := require(ctx, in,
		VarDetectionRange, VarDetectionAngle, VarTxBeamwidth, VarRxBeamwidth, VarPulseWidth, VarSoundVelocity)
	if err != nil {
		return nil, err
	}
	rng, angle, tx, rx, tau, c := found[0], found[1], found[2], found[3], found[4], found[5]
	if err := checkRows(bs, found...); err != nil {
		return nil, fmt.Errorf("area correction: %w", err)
	}

	beam := perBeam(bs, func(r, col int) float64 {
		return beamLimitedArea(cell(rng, r, col), cell(angle, r, col), cell(tx, r, col), cell(rx, r, col))
	})
	pulse := perBeam(bs, func(r, col int) float64 {
		return pulseLimitedArea(cell(rng, r, col), cell(angle, r, col), cell(tx, r, col), cell(tau, r, col), cell(c, r, col))
	})
	applied := perBeam(bs, func(r, col int) float64 {
		switch p.Method {
		case AreaBeamLimited:
			return beam.At(r, col)
		case AreaPulseLimited:
			return pulse.At(r, col)
		default:
			return finiteMin(beam.At(r, col), pulse.At(r, col))
		}
	})
	if err := subtractGrid(bs, applied); err != nil {
		return nil, fmt.Errorf("area correction: %w", err)
	}
	return Output{
		VarBackscatter:    bs,
		VarAreaBeam:       beam,
		VarAreaPulse:      pulse,
		VarAreaCorrection: applied,
	}, nil
}

// beamLimitedArea returns the beam-limited footprint in dB re 1 m^2.
func beamLimitedArea(rangeM, angleDeg, txDeg, rxDeg float64) float64 {
	cos := math.Cos(radians(angleDeg))
	if !positive(rangeM) || !positive(cos) {
		return math.NaN()
	}
	area := rangeM * rangeM * radians(txDeg) * radians(rxDeg) / cos
	return areaDB(area)
}

// pulseLimitedArea returns the pulse-limited footprint in dB re 1 m^2.
func pulseLimitedArea(rangeM, angleDeg, txDeg, pulseWidthS, soundVelocity float64) float64 {
	sin := math.Abs(math.Sin(radians(angleDeg)))
	if !positive(rangeM) || !positive(sin) {
		return math.NaN()
	}
	area := rangeM * radians(txDeg) * soundVelocity * pulseWidthS / (2 * sin)
	return areaDB(area)
}

func areaDB(area float64) float64 {
	if !positive(area) {
		return math.NaN()
	}
	return 10 * math.Log10(area)
}

// finiteMin returns the smaller value, ignoring NaN operands.
func finiteMin(a, b float64) float64 {
	switch {
	case math.IsNaN(a):
		return b
	case math.IsNaN(b):
		return a
	default:
		return math.Min(a, b)
	}
}
