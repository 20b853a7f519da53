package s7k

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
)

// Encode serializes a record body using the same layout Decode reads.
func Encode(rec Record) ([]byte, error) {
	if rec == nil {
		return nil, fmt.Errorf("encode: nil record")
	}
	var buf bytes.Buffer
	if err := rec.encode(&buf); err != nil {
		return nil, fmt.Errorf("encode %s: %w", rec.Type(), err)
	}
	return buf.Bytes(), nil
}

func write(buf *bytes.Buffer, values ...any) error {
	for _, v := range values {
		if err := binary.Write(buf, binary.LittleEndian, v); err != nil {
			return err
		}
	}
	return nil
}

func (p *Position) encode(buf *bytes.Buffer) error      { return write(buf, p) }
func (a *Attitude) encode(buf *bytes.Buffer) error      { return write(buf, a) }
func (h *Heading) encode(buf *bytes.Buffer) error       { return write(buf, h) }
func (s *SonarSettings) encode(buf *bytes.Buffer) error { return write(buf, s) }

func (g *BeamGeometry) encode(buf *bytes.Buffer) error {
	n := len(g.SteeringHorizontal)
	for _, arr := range [][]float32{g.SteeringVertical, g.BeamWidthVertical, g.BeamWidthHorizontal} {
		if len(arr) != n {
			return fmt.Errorf("beam arrays differ in length")
		}
	}
	hdr := beamGeometryHeader{SonarID: g.SonarID, Beams: uint32(n)}
	return write(buf, hdr, g.SteeringVertical, g.SteeringHorizontal, g.BeamWidthVertical, g.BeamWidthHorizontal)
}

func (t *TVG) encode(buf *bytes.Buffer) error {
	hdr := tvgHeader{
		SonarID:           t.SonarID,
		PingNumber:        t.PingNumber,
		MultiPingSequence: t.MultiPingSequence,
		Samples:           uint32(len(t.Gains)),
	}
	return write(buf, hdr, t.Gains)
}

func (d *RawDetection) encode(buf *bytes.Buffer) error {
	fieldSize := d.FieldSize
	if fieldSize == 0 {
		fieldSize = detectionFullSize
	}
	if fieldSize < detectionCoreSize {
		return fmt.Errorf("detection field size %d below %d", fieldSize, detectionCoreSize)
	}
	hdr := rawDetectionHeader{
		SonarID:           d.SonarID,
		PingNumber:        d.PingNumber,
		MultiPingSequence: d.MultiPingSequence,
		Detections:        uint32(len(d.Detections)),
		FieldSize:         fieldSize,
		Algorithm:         d.Algorithm,
		Flags:             d.Flags,
		SampleRate:        d.SampleRate,
		TxAngle:           d.TxAngle,
		AppliedRoll:       d.AppliedRoll,
	}
	if err := write(buf, hdr); err != nil {
		return err
	}
	for _, det := range d.Detections {
		field := bytes.NewBuffer(make([]byte, 0, fieldSize))
		core := detectionCore{
			Beam:        det.Beam,
			Point:       det.Point,
			RxAngle:     det.RxAngle,
			Flags:       det.Flags,
			Quality:     det.Quality,
			Uncertainty: det.Uncertainty,
		}
		if err := write(field, core); err != nil {
			return err
		}
		if fieldSize >= detectionFullSize {
			extra := detectionExtra{SignalStrength: det.SignalStrength, MinLimit: det.MinLimit, MaxLimit: det.MaxLimit}
			if err := write(field, extra); err != nil {
				return err
			}
		}
		for field.Len() < int(fieldSize) {
			field.WriteByte(0)
		}
		buf.Write(field.Bytes())
	}
	return nil
}

func (s *Snippet) encode(buf *bytes.Buffer) error {
	if len(s.Beams) > math.MaxUint16 {
		return fmt.Errorf("%d beams exceed the 16-bit beam count", len(s.Beams))
	}
	hdr := snippetHeader{
		SonarID:           s.SonarID,
		PingNumber:        s.PingNumber,
		MultiPingSequence: s.MultiPingSequence,
		Beams:             uint16(len(s.Beams)),
		ErrorFlag:         s.ErrorFlag,
		ControlFlags:      s.ControlFlags,
		Flags:             s.Flags,
	}
	if err := write(buf, hdr); err != nil {
		return err
	}
	for _, b := range s.Beams {
		if b.Window() != len(b.Samples) {
			return fmt.Errorf("beam %d window %d holds %d samples", b.Beam, b.Window(), len(b.Samples))
		}
		if err := write(buf, snippetDescriptor{Beam: b.Beam, Start: b.Start, Detection: b.Detection, End: b.End}); err != nil {
			return err
		}
	}
	for _, b := range s.Beams {
		if s.Wide() {
			if err := write(buf, b.Samples); err != nil {
				return err
			}
			continue
		}
		narrow := make([]uint16, len(b.Samples))
		for i, v := range b.Samples {
			if v > math.MaxUint16 {
				return fmt.Errorf("beam %d sample %d exceeds 16 bits", b.Beam, v)
			}
			narrow[i] = uint16(v)
		}
		if err := write(buf, narrow); err != nil {
			return err
		}
	}
	return nil
}
