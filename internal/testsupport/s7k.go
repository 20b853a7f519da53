package testsupport

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"openbst/internal/s7k"
)

// S7KWriter assembles an in-memory s7k container from records.
type S7KWriter struct {
	t       testing.TB
	buf     bytes.Buffer
	offsets []int64
}

// NewS7KWriter returns an empty container writer.
func NewS7KWriter(t testing.TB) *S7KWriter {
	return &S7KWriter{t: t}
}

// Add appends one frame stamped at ts and returns its byte offset.
func (w *S7KWriter) Add(ts time.Time, rec s7k.Record) int64 {
	w.t.Helper()
	offset := int64(w.buf.Len())
	if err := s7k.WriteFrame(&w.buf, s7k.Frame{Time: ts, DeviceID: 7125}, rec); err != nil {
		w.t.Fatalf("write %s frame: %v", rec.Type(), err)
	}
	w.offsets = append(w.offsets, offset)
	return offset
}

// AddRaw appends arbitrary bytes, such as a corrupted region.
func (w *S7KWriter) AddRaw(data []byte) {
	w.buf.Write(data)
}

// Offsets returns the start offset of every frame added with Add.
func (w *S7KWriter) Offsets() []int64 {
	return append([]int64(nil), w.offsets...)
}

// Bytes returns the container contents.
func (w *S7KWriter) Bytes() []byte {
	return w.buf.Bytes()
}

// WriteFile stores the container under the test's temp directory and
// returns its path.
func (w *S7KWriter) WriteFile(name string) string {
	w.t.Helper()
	path := filepath.Join(w.t.TempDir(), name)
	if err := os.WriteFile(path, w.buf.Bytes(), 0o644); err != nil {
		w.t.Fatalf("write %s: %v", path, err)
	}
	return path
}

// SurveyStart is the timestamp of the first ping written by WriteSurvey.
var SurveyStart = time.Date(2024, time.June, 3, 12, 0, 0, 0, time.UTC)

// SurveySnippetLevel is the level in dB of every snippet sample written by
// WriteSurvey.
const SurveySnippetLevel = 40.0

// WriteSurvey appends a small but complete multibeam survey: beam geometry
// once, then per ping navigation, settings, TVG, detections and snippets.
// Pings are 100 ms apart; detection sample for beam b is 100+b.
func WriteSurvey(w *S7KWriter, pings, beams int) {
	w.t.Helper()
	geometry := &s7k.BeamGeometry{SonarID: 1}
	for b := range beams {
		geometry.SteeringVertical = append(geometry.SteeringVertical, 0)
		geometry.SteeringHorizontal = append(geometry.SteeringHorizontal, beamAngle(b, beams))
		geometry.BeamWidthVertical = append(geometry.BeamWidthVertical, 0.02)
		geometry.BeamWidthHorizontal = append(geometry.BeamWidthHorizontal, 0.01)
	}
	w.Add(SurveyStart, geometry)

	for p := range pings {
		ts := SurveyStart.Add(time.Duration(p) * 100 * time.Millisecond)
		number := uint32(p + 1)
		w.Add(ts, &s7k.Position{
			Latitude:  (45 + float64(p)*1e-5) * math.Pi / 180,
			Longitude: -63 * math.Pi / 180,
		})
		w.Add(ts, &s7k.Attitude{Roll: 0.01})
		w.Add(ts, &s7k.Heading{Heading: float32(math.Pi / 2)})
		w.Add(ts, &s7k.SonarSettings{
			SonarID:                      1,
			PingNumber:                   number,
			Frequency:                    400000,
			SampleRate:                   1000,
			TxPulseWidth:                 0.0001,
			PowerSelection:               220,
			GainSelection:                30,
			ReceiveBeamWidth:             0.01,
			ProjectorBeamWidthHorizontal: 0.02,
			Absorption:                   80,
			SoundVelocity:                1500,
			Spreading:                    30,
		})
		gains := make([]float32, 256)
		for i := range gains {
			gains[i] = float32(i) / 10
		}
		w.Add(ts, &s7k.TVG{SonarID: 1, PingNumber: number, Gains: gains})

		detections := &s7k.RawDetection{SonarID: 1, PingNumber: number, SampleRate: 1000}
		snippet := &s7k.Snippet{SonarID: 1, PingNumber: number}
		amplitude := uint32(math.Round(math.Pow(10, SurveySnippetLevel/20)))
		for b := range beams {
			point := uint32(100 + b)
			detections.Detections = append(detections.Detections, s7k.Detection{
				Beam:    uint16(b),
				Point:   float32(point),
				RxAngle: beamAngle(b, beams),
				Quality: 3,
			})
			snippet.Beams = append(snippet.Beams, s7k.SnippetBeam{
				Beam:      uint16(b),
				Start:     point - 2,
				Detection: point,
				End:       point + 2,
				Samples:   []uint32{amplitude, amplitude, amplitude, amplitude, amplitude},
			})
		}
		w.Add(ts, detections)
		w.Add(ts, snippet)
	}
}

func beamAngle(b, beams int) float32 {
	return float32(b-beams/2) * 0.1
}
