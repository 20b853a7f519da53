package s7k

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

type decoder func(data []byte) (Record, error)

var decoders = map[RecordType]decoder{
	TypePosition:      decodeFixed[Position](TypePosition),
	TypeAttitude:      decodeFixed[Attitude](TypeAttitude),
	TypeHeading:       decodeFixed[Heading](TypeHeading),
	TypeSonarSettings: decodeFixed[SonarSettings](TypeSonarSettings),
	TypeBeamGeometry:  decodeBeamGeometry,
	TypeTVG:           decodeTVG,
	TypeRawDetection:  decodeRawDetection,
	TypeSnippet:       decodeSnippet,
}

// Decode parses a record body. optionalOffset is the frame's optional data
// offset (measured from the start of the frame); when non-zero the record
// data ends where the optional data begins. The input is never modified.
func Decode(t RecordType, body []byte, optionalOffset uint32) (Record, error) {
	dec, ok := decoders[t]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedRecord, uint32(t))
	}
	data := body
	if optionalOffset != 0 {
		end := int64(optionalOffset) - HeaderSize
		if end < 0 || end > int64(len(body)) {
			return nil, malformed(t, "optional data offset %d outside body of %d bytes", optionalOffset, len(body))
		}
		data = body[:end]
	}
	return dec(data)
}

type fixedRecord interface {
	Position | Attitude | Heading | SonarSettings
}

// decodeFixed unpacks a record whose body is a single fixed layout. Trailing
// bytes are tolerated so newer protocol revisions that append fields decode.
func decodeFixed[T fixedRecord](t RecordType) decoder {
	return func(data []byte) (Record, error) {
		var rec T
		size := binary.Size(&rec)
		if len(data) < size {
			return nil, malformed(t, "body is %d bytes, need %d", len(data), size)
		}
		if err := binary.Read(bytes.NewReader(data[:size]), binary.LittleEndian, &rec); err != nil {
			return nil, malformed(t, "unpack: %v", err)
		}
		return any(&rec).(Record), nil
	}
}

type beamGeometryHeader struct {
	SonarID uint64
	Beams   uint32
}

func decodeBeamGeometry(data []byte) (Record, error) {
	var hdr beamGeometryHeader
	r, err := readHeader(TypeBeamGeometry, data, &hdr)
	if err != nil {
		return nil, err
	}
	n := int64(hdr.Beams)
	if err := expectSize(TypeBeamGeometry, data, int64(binary.Size(hdr))+4*4*n); err != nil {
		return nil, err
	}
	arrays := make([][]float32, 4)
	for i := range arrays {
		arrays[i] = make([]float32, n)
		if err := binary.Read(r, binary.LittleEndian, arrays[i]); err != nil {
			return nil, malformed(TypeBeamGeometry, "beam array %d: %v", i, err)
		}
	}
	return &BeamGeometry{
		SonarID:             hdr.SonarID,
		SteeringVertical:    arrays[0],
		SteeringHorizontal:  arrays[1],
		BeamWidthVertical:   arrays[2],
		BeamWidthHorizontal: arrays[3],
	}, nil
}

type tvgHeader struct {
	SonarID           uint64
	PingNumber        uint32
	MultiPingSequence uint16
	Samples           uint32
	Reserved          [8]uint32
}

func decodeTVG(data []byte) (Record, error) {
	var hdr tvgHeader
	r, err := readHeader(TypeTVG, data, &hdr)
	if err != nil {
		return nil, err
	}
	if err := expectSize(TypeTVG, data, int64(binary.Size(hdr))+4*int64(hdr.Samples)); err != nil {
		return nil, err
	}
	gains := make([]float32, hdr.Samples)
	if err := binary.Read(r, binary.LittleEndian, gains); err != nil {
		return nil, malformed(TypeTVG, "gain curve: %v", err)
	}
	return &TVG{
		SonarID:           hdr.SonarID,
		PingNumber:        hdr.PingNumber,
		MultiPingSequence: hdr.MultiPingSequence,
		Gains:             gains,
	}, nil
}

type rawDetectionHeader struct {
	SonarID           uint64
	PingNumber        uint32
	MultiPingSequence uint16
	Detections        uint32
	FieldSize         uint32
	Algorithm         uint8
	Flags             uint32
	SampleRate        float32
	TxAngle           float32
	AppliedRoll       float32
	Reserved          [15]uint32
}

// detectionCoreSize covers beam..uncertainty; detectionFullSize adds
// signal strength and the detection limits.
const (
	detectionCoreSize = 22
	detectionFullSize = 34
)

type detectionCore struct {
	Beam        uint16
	Point       float32
	RxAngle     float32
	Flags       uint32
	Quality     uint32
	Uncertainty float32
}

type detectionExtra struct {
	SignalStrength float32
	MinLimit       float32
	MaxLimit       float32
}

func decodeRawDetection(data []byte) (Record, error) {
	var hdr rawDetectionHeader
	if _, err := readHeader(TypeRawDetection, data, &hdr); err != nil {
		return nil, err
	}
	if hdr.FieldSize < detectionCoreSize {
		return nil, malformed(TypeRawDetection, "detection field size %d below %d", hdr.FieldSize, detectionCoreSize)
	}
	headerSize := int64(binary.Size(hdr))
	if err := expectSize(TypeRawDetection, data, headerSize+int64(hdr.Detections)*int64(hdr.FieldSize)); err != nil {
		return nil, err
	}

	detections := make([]Detection, hdr.Detections)
	for i := range detections {
		start := headerSize + int64(i)*int64(hdr.FieldSize)
		field := data[start : start+int64(hdr.FieldSize)]
		var core detectionCore
		if err := binary.Read(bytes.NewReader(field[:detectionCoreSize]), binary.LittleEndian, &core); err != nil {
			return nil, malformed(TypeRawDetection, "detection %d: %v", i, err)
		}
		det := Detection{
			Beam:        core.Beam,
			Point:       core.Point,
			RxAngle:     core.RxAngle,
			Flags:       core.Flags,
			Quality:     core.Quality,
			Uncertainty: core.Uncertainty,
		}
		if hdr.FieldSize >= detectionFullSize {
			var extra detectionExtra
			if err := binary.Read(bytes.NewReader(field[detectionCoreSize:detectionFullSize]), binary.LittleEndian, &extra); err != nil {
				return nil, malformed(TypeRawDetection, "detection %d limits: %v", i, err)
			}
			det.SignalStrength = extra.SignalStrength
			det.MinLimit = extra.MinLimit
			det.MaxLimit = extra.MaxLimit
		}
		detections[i] = det
	}

	return &RawDetection{
		SonarID:           hdr.SonarID,
		PingNumber:        hdr.PingNumber,
		MultiPingSequence: hdr.MultiPingSequence,
		FieldSize:         hdr.FieldSize,
		Algorithm:         hdr.Algorithm,
		Flags:             hdr.Flags,
		SampleRate:        hdr.SampleRate,
		TxAngle:           hdr.TxAngle,
		AppliedRoll:       hdr.AppliedRoll,
		Detections:        detections,
	}, nil
}

type snippetHeader struct {
	SonarID           uint64
	PingNumber        uint32
	MultiPingSequence uint16
	Beams             uint16
	ErrorFlag         uint8
	ControlFlags      uint8
	Flags             uint32
	Reserved          [6]uint32
}

type snippetDescriptor struct {
	Beam      uint16
	Start     uint32
	Detection uint32
	End       uint32
}

func decodeSnippet(data []byte) (Record, error) {
	var hdr snippetHeader
	r, err := readHeader(TypeSnippet, data, &hdr)
	if err != nil {
		return nil, err
	}
	descSize := int64(binary.Size(snippetDescriptor{}))
	descEnd := int64(binary.Size(hdr)) + int64(hdr.Beams)*descSize
	if descEnd > int64(len(data)) {
		return nil, malformed(TypeSnippet, "%d beam descriptors need %d bytes, body has %d", hdr.Beams, descEnd, len(data))
	}
	descriptors := make([]snippetDescriptor, hdr.Beams)
	if err := binary.Read(r, binary.LittleEndian, descriptors); err != nil {
		return nil, malformed(TypeSnippet, "beam descriptors: %v", err)
	}

	width := int64(2)
	if hdr.Flags&snippetFlagWide != 0 {
		width = 4
	}
	total := descEnd
	for i, d := range descriptors {
		if d.End < d.Start {
			return nil, malformed(TypeSnippet, "beam %d window end %d before start %d", i, d.End, d.Start)
		}
		total += (int64(d.End) - int64(d.Start) + 1) * width
	}
	if err := expectSize(TypeSnippet, data, total); err != nil {
		return nil, err
	}

	beams := make([]SnippetBeam, len(descriptors))
	for i, d := range descriptors {
		count := int(d.End-d.Start) + 1
		samples := make([]uint32, count)
		if width == 4 {
			if err := binary.Read(r, binary.LittleEndian, samples); err != nil {
				return nil, malformed(TypeSnippet, "beam %d samples: %v", i, err)
			}
		} else {
			narrow := make([]uint16, count)
			if err := binary.Read(r, binary.LittleEndian, narrow); err != nil {
				return nil, malformed(TypeSnippet, "beam %d samples: %v", i, err)
			}
			for j, v := range narrow {
				samples[j] = uint32(v)
			}
		}
		beams[i] = SnippetBeam{
			Beam:      d.Beam,
			Start:     d.Start,
			Detection: d.Detection,
			End:       d.End,
			Samples:   samples,
		}
	}

	return &Snippet{
		SonarID:           hdr.SonarID,
		PingNumber:        hdr.PingNumber,
		MultiPingSequence: hdr.MultiPingSequence,
		ErrorFlag:         hdr.ErrorFlag,
		ControlFlags:      hdr.ControlFlags,
		Flags:             hdr.Flags,
		Beams:             beams,
	}, nil
}

func readHeader(t RecordType, data []byte, hdr any) (*bytes.Reader, error) {
	size := binary.Size(hdr)
	if len(data) < size {
		return nil, malformed(t, "body is %d bytes, header needs %d", len(data), size)
	}
	r := bytes.NewReader(data)
	if err := binary.Read(r, binary.LittleEndian, hdr); err != nil {
		return nil, malformed(t, "unpack header: %v", err)
	}
	return r, nil
}

// expectSize enforces that count-driven framing accounts for the whole data
// section.
func expectSize(t RecordType, data []byte, want int64) error {
	if want != int64(len(data)) {
		return malformed(t, "framing expects %d bytes, data section has %d", want, len(data))
	}
	return nil
}
