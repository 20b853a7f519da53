package corrections

import (
	"context"
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"openbst/internal/grid"
	"openbst/internal/s7k"
)

func decodeRaw(_ context.Context, in Input, params Params) (Output, error) {
	p, ok := params.(RawDecodeParams)
	if !ok {
		return nil, fmt.Errorf("raw decoding: unexpected parameters %T", params)
	}
	survey := in.Survey
	if survey == nil || len(survey.Pings) == 0 || survey.Beams == 0 {
		return nil, fmt.Errorf("%w: no pings in raw survey", ErrMissingInput)
	}

	rows, cols := len(survey.Pings), survey.Beams
	out := Output{
		VarBackscatter:    grid.New(rows, cols),
		VarDetectionRange: grid.New(rows, cols),
		VarDetectionAngle: grid.New(rows, cols),
		VarTVGGain:        grid.New(rows, cols),
	}
	perPing := map[string][]float64{
		VarPingTime:       make([]float64, rows),
		VarFrequency:      make([]float64, rows),
		VarSampleRate:     make([]float64, rows),
		VarSoundVelocity:  make([]float64, rows),
		VarAbsorption:     make([]float64, rows),
		VarSpreading:      make([]float64, rows),
		VarPowerSelection: make([]float64, rows),
		VarGainSelection:  make([]float64, rows),
		VarPulseWidth:     make([]float64, rows),
		VarRxBeamwidth:    make([]float64, rows),
		VarTxBeamwidth:    make([]float64, rows),
		VarLatitude:       make([]float64, rows),
		VarLongitude:      make([]float64, rows),
		VarHeading:        make([]float64, rows),
		VarRoll:           make([]float64, rows),
	}

	for r, ping := range survey.Pings {
		st := ping.Settings
		perPing[VarPingTime][r] = float64(ping.Time)
		perPing[VarFrequency][r] = float64(st.Frequency)
		perPing[VarSampleRate][r] = ping.sampleRate()
		perPing[VarSoundVelocity][r] = ping.soundVelocity()
		perPing[VarAbsorption][r] = float64(st.Absorption)
		perPing[VarSpreading][r] = float64(st.Spreading)
		perPing[VarPowerSelection][r] = float64(st.PowerSelection)
		perPing[VarGainSelection][r] = float64(st.GainSelection)
		perPing[VarPulseWidth][r] = float64(st.TxPulseWidth)
		perPing[VarRxBeamwidth][r] = degrees(float64(st.ReceiveBeamWidth))
		perPing[VarTxBeamwidth][r] = degrees(float64(st.ProjectorBeamWidthHorizontal))
		perPing[VarLatitude][r] = ping.Latitude
		perPing[VarLongitude][r] = ping.Longitude
		perPing[VarHeading][r] = ping.Heading
		perPing[VarRoll][r] = ping.Roll

		rate := ping.sampleRate()
		for _, d := range ping.Detections {
			b := int(d.Beam)
			if b >= cols {
				continue
			}
			if rate > 0 {
				out[VarDetectionRange].Set(r, b, float64(d.Point)/rate*ping.soundVelocity()/2)
			}
			out[VarDetectionAngle].Set(r, b, degrees(float64(d.RxAngle)))
			if len(ping.TVG) > 0 {
				out[VarTVGGain].Set(r, b, float64(ping.TVG[clampIndex(int(math.Round(float64(d.Point))), len(ping.TVG))]))
			}
		}

		if ping.Snippet == nil {
			continue
		}
		for _, beam := range ping.Snippet.Beams {
			b := int(beam.Beam)
			if b >= cols {
				continue
			}
			out[VarBackscatter].Set(r, b, snippetLevel(beam, p))
		}
	}

	for name, values := range perPing {
		out[name] = grid.Column(values)
	}
	return out, nil
}

// snippetLevel reduces one beam's snippet samples to a level in dB.
func snippetLevel(beam s7k.SnippetBeam, p RawDecodeParams) float64 {
	samples := beam.Samples
	if p.UseWindow && p.WindowSize > 0 {
		samples = window(beam, p.WindowSize)
	}
	if len(samples) == 0 {
		return math.NaN()
	}

	switch p.Method {
	case RawDetectionSample:
		var amplitude float64
		if p.UseWindow {
			values := make([]float64, len(samples))
			for i, s := range samples {
				values[i] = float64(s)
			}
			amplitude = stat.Mean(values, nil)
		} else {
			idx := clampIndex(int(beam.Detection)-int(beam.Start), len(beam.Samples))
			amplitude = float64(beam.Samples[idx])
		}
		return toDB(amplitude, 20)
	default:
		power := make([]float64, len(samples))
		for i, s := range samples {
			power[i] = float64(s) * float64(s)
		}
		return toDB(stat.Mean(power, nil), 10)
	}
}

// window returns the samples within size/2 of the detection sample.
func window(beam s7k.SnippetBeam, size int) []uint32 {
	center := int(beam.Detection) - int(beam.Start)
	half := size / 2
	lo, hi := center-half, center+half+1
	if lo < 0 {
		lo = 0
	}
	if hi > len(beam.Samples) {
		hi = len(beam.Samples)
	}
	if lo >= hi {
		return nil
	}
	return beam.Samples[lo:hi]
}

func toDB(value, factor float64) float64 {
	if value <= 0 || math.IsNaN(value) {
		return math.NaN()
	}
	return factor * math.Log10(value)
}

func clampIndex(i, n int) int {
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}
