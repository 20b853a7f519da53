package corrections

import (
	"math"

	"openbst/internal/s7k"
)

// Ping gathers the raw records belonging to one sonar ping. Navigation values
// are interpolated to the ping time; unknown values are NaN.
type Ping struct {
	Time       int64 // milliseconds since the Unix epoch
	Number     uint32
	Settings   s7k.SonarSettings
	SampleRate float32 // from the detection record, zero when absent
	Detections []s7k.Detection
	Snippet    *s7k.Snippet
	TVG        []float32

	Latitude  float64 // degrees
	Longitude float64 // degrees
	Heading   float64 // degrees
	Roll      float64 // degrees
}

// Survey is the raw context for raw decoding: pings in file order and the
// beam count used for per-beam grids.
type Survey struct {
	Beams int
	Pings []Ping
}

const defaultSoundVelocity = 1500.0

func (p Ping) sampleRate() float64 {
	if p.SampleRate > 0 {
		return float64(p.SampleRate)
	}
	return float64(p.Settings.SampleRate)
}

func (p Ping) soundVelocity() float64 {
	if p.Settings.SoundVelocity > 0 {
		return float64(p.Settings.SoundVelocity)
	}
	return defaultSoundVelocity
}

func degrees(rad float64) float64 {
	return rad * 180 / math.Pi
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}
