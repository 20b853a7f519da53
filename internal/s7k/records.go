package s7k

import "bytes"

// Record is a decoded record body. The set of implementations is closed.
type Record interface {
	Type() RecordType
	encode(*bytes.Buffer) error
}

// Position is record 1003. Latitude and Longitude are radians when Datum
// describes a geographic position.
type Position struct {
	Datum        uint32
	Latency      float32
	Latitude     float64
	Longitude    float64
	Height       float64
	PositionType uint8
	UTMZone      uint8
	Quality      uint8
	Method       uint8
}

func (*Position) Type() RecordType { return TypePosition }

// Attitude is record 1012 (roll, pitch, heave). Angles are radians.
type Attitude struct {
	Roll  float32
	Pitch float32
	Heave float32
}

func (*Attitude) Type() RecordType { return TypeAttitude }

// Heading is record 1013, in radians.
type Heading struct {
	Heading float32
}

func (*Heading) Type() RecordType { return TypeHeading }

// SonarSettings is record 7000, the per-ping runtime settings.
type SonarSettings struct {
	SonarID                      uint64
	PingNumber                   uint32
	MultiPingSequence            uint16
	Frequency                    float32
	SampleRate                   float32
	ReceiverBandwidth            float32
	TxPulseWidth                 float32
	TxPulseType                  uint32
	TxPulseEnvelope              uint32
	TxPulseEnvelopeParam         float32
	TxPulseMode                  uint16
	TxPulseReserved              uint16
	MaxPingRate                  float32
	PingPeriod                   float32
	RangeSelection               float32
	PowerSelection               float32
	GainSelection                float32
	ControlFlags                 uint32
	ProjectorID                  uint32
	ProjectorSteeringVertical    float32
	ProjectorSteeringHorizontal  float32
	ProjectorBeamWidthVertical   float32
	ProjectorBeamWidthHorizontal float32
	ProjectorFocalPoint          float32
	ProjectorWeightingWindow     uint32
	ProjectorWeightingParam      float32
	TransmitFlags                uint32
	HydrophoneID                 uint32
	ReceiveWeightingWindow       uint32
	ReceiveWeightingParam        float32
	ReceiveFlags                 uint32
	ReceiveBeamWidth             float32
	RangeFilterMin               float32
	RangeFilterMax               float32
	DepthFilterMin               float32
	DepthFilterMax               float32
	Absorption                   float32 // dB/km
	SoundVelocity                float32 // m/s
	Spreading                    float32 // dB
	Reserved                     uint16
}

func (*SonarSettings) Type() RecordType { return TypeSonarSettings }

// BeamGeometry is record 7004. Each slice holds one value per receive beam.
type BeamGeometry struct {
	SonarID             uint64
	SteeringVertical    []float32
	SteeringHorizontal  []float32
	BeamWidthVertical   []float32
	BeamWidthHorizontal []float32
}

func (*BeamGeometry) Type() RecordType { return TypeBeamGeometry }

// Beams returns the number of receive beams described.
func (g *BeamGeometry) Beams() int { return len(g.SteeringHorizontal) }

// TVG is record 7010: the gain curve applied by the sonar, one value per sample.
type TVG struct {
	SonarID           uint64
	PingNumber        uint32
	MultiPingSequence uint16
	Gains             []float32
}

func (*TVG) Type() RecordType { return TypeTVG }

// Detection is one bottom detection of a 7027 record.
type Detection struct {
	Beam           uint16
	Point          float32 // fractional sample index
	RxAngle        float32
	Flags          uint32
	Quality        uint32
	Uncertainty    float32
	SignalStrength float32
	MinLimit       float32
	MaxLimit       float32
}

// RawDetection is record 7027.
type RawDetection struct {
	SonarID           uint64
	PingNumber        uint32
	MultiPingSequence uint16
	FieldSize         uint32
	Algorithm         uint8
	Flags             uint32
	SampleRate        float32
	TxAngle           float32
	AppliedRoll       float32
	Detections        []Detection
}

func (*RawDetection) Type() RecordType { return TypeRawDetection }

// SnippetBeam is the sample window recorded around one beam's detection.
type SnippetBeam struct {
	Beam      uint16
	Start     uint32
	Detection uint32
	End       uint32
	Samples   []uint32
}

// Window returns end - start + 1.
func (b SnippetBeam) Window() int { return int(b.End) - int(b.Start) + 1 }

// Snippet is record 7028.
type Snippet struct {
	SonarID           uint64
	PingNumber        uint32
	MultiPingSequence uint16
	ErrorFlag         uint8
	ControlFlags      uint8
	Flags             uint32
	Beams             []SnippetBeam
}

func (*Snippet) Type() RecordType { return TypeSnippet }

// Wide reports whether samples are stored as 32-bit values.
func (s *Snippet) Wide() bool { return s.Flags&snippetFlagWide != 0 }

const snippetFlagWide = 0x1
