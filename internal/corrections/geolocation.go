package corrections

import (
	"context"
	"math"
)

const earthRadius = 6371008.8 // metres, mean radius

// geolocateFlatEarth places each beam footprint across-track from the vessel
// position, R*sin(theta) metres to starboard of the heading. Backscatter is
// passed through unchanged.
func geolocateFlatEarth(ctx context.Context, in Input, _ Params) (Output, error) {
	bs, err := prior(ctx, in)
	if err != nil {
		return nil, err
	}
	found, err := require(ctx, in, VarLatitude, VarLongitude, VarHeading, VarDetectionRange, VarDetectionAngle)
	if err != nil {
		return nil, err
	}
	lat, lon, heading, rng, angle := found[0], found[1], found[2], found[3], found[4]
	if err := checkRows(bs, found...); err != nil {
		return nil, err
	}

	beamLat := perBeam(bs, func(r, c int) float64 {
		north, _ := acrossTrack(cell(rng, r, c), cell(angle, r, c), cell(heading, r, c))
		return cell(lat, r, c) + north/earthRadius*180/math.Pi
	})
	beamLon := perBeam(bs, func(r, c int) float64 {
		_, east := acrossTrack(cell(rng, r, c), cell(angle, r, c), cell(heading, r, c))
		return cell(lon, r, c) + east/(earthRadius*math.Cos(radians(cell(lat, r, c))))*180/math.Pi
	})
	return Output{VarBackscatter: bs, VarBeamLatitude: beamLat, VarBeamLongitude: beamLon}, nil
}

// acrossTrack returns the north and east offsets in metres of a beam footprint.
func acrossTrack(rangeM, angleDeg, headingDeg float64) (north, east float64) {
	y := rangeM * math.Sin(radians(angleDeg))
	bearing := radians(headingDeg + 90)
	return y * math.Cos(bearing), y * math.Sin(bearing)
}
