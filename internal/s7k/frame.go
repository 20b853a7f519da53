package s7k

import (
	"bytes"
	"encoding/binary"
	"io"
	"math"
	"time"
)

const (
	// HeaderSize is the size of the Data Record Frame header.
	HeaderSize = 64
	// FooterSize is the size of the trailing checksum.
	FooterSize = 4
	// SyncPattern is the value of the header's sync field.
	SyncPattern uint32 = 0x0000FFFF

	protocolVersion = 5
	// offset from the sync field to the start of the record body
	bodyOffset        = HeaderSize - 4
	flagChecksumValid = 0x1
)

// Time7K is the 7KTIME stamp embedded in every frame header.
type Time7K struct {
	Year    uint16
	Day     uint16 // day of year, 1-366
	Seconds float32
	Hours   uint8
	Minutes uint8
}

// UnixMilli converts the stamp to milliseconds since the Unix epoch.
func (t Time7K) UnixMilli() int64 {
	base := time.Date(int(t.Year), time.January, 1, int(t.Hours), int(t.Minutes), 0, 0, time.UTC).
		AddDate(0, 0, int(t.Day)-1)
	return base.UnixMilli() + int64(math.Round(float64(t.Seconds)*1000))
}

// Time converts the stamp to a UTC time.
func (t Time7K) Time() time.Time {
	return time.UnixMilli(t.UnixMilli()).UTC()
}

// Time7KFrom builds a 7KTIME stamp from a wall-clock time.
func Time7KFrom(ts time.Time) Time7K {
	ts = ts.UTC()
	seconds := float64(ts.Second()) + float64(ts.Nanosecond())/1e9
	return Time7K{
		Year:    uint16(ts.Year()),
		Day:     uint16(ts.YearDay()),
		Seconds: float32(seconds),
		Hours:   uint8(ts.Hour()),
		Minutes: uint8(ts.Minute()),
	}
}

// FrameHeader is the 64-byte Data Record Frame header.
type FrameHeader struct {
	ProtocolVersion  uint16
	Offset           uint16
	SyncPattern      uint32
	Size             uint32
	OptionalOffset   uint32
	OptionalID       uint32
	Time             Time7K
	Reserved1        uint16
	RecordType       RecordType
	DeviceID         uint32
	Reserved2        uint16
	SystemEnumerator uint16
	Reserved3        uint32
	Flags            uint16
	Reserved4        uint16
	Reserved5        uint32
	TotalFragments   uint32
	FragmentNumber   uint32
}

// BodySize is the number of bytes between the header and the checksum.
func (h FrameHeader) BodySize() int {
	return int(h.Size) - HeaderSize - FooterSize
}

func parseHeader(buf []byte) FrameHeader {
	le := binary.LittleEndian
	return FrameHeader{
		ProtocolVersion: le.Uint16(buf[0:]),
		Offset:          le.Uint16(buf[2:]),
		SyncPattern:     le.Uint32(buf[4:]),
		Size:            le.Uint32(buf[8:]),
		OptionalOffset:  le.Uint32(buf[12:]),
		OptionalID:      le.Uint32(buf[16:]),
		Time: Time7K{
			Year:    le.Uint16(buf[20:]),
			Day:     le.Uint16(buf[22:]),
			Seconds: math.Float32frombits(le.Uint32(buf[24:])),
			Hours:   buf[28],
			Minutes: buf[29],
		},
		Reserved1:        le.Uint16(buf[30:]),
		RecordType:       RecordType(le.Uint32(buf[32:])),
		DeviceID:         le.Uint32(buf[36:]),
		Reserved2:        le.Uint16(buf[40:]),
		SystemEnumerator: le.Uint16(buf[42:]),
		Reserved3:        le.Uint32(buf[44:]),
		Flags:            le.Uint16(buf[48:]),
		Reserved4:        le.Uint16(buf[50:]),
		Reserved5:        le.Uint32(buf[52:]),
		TotalFragments:   le.Uint32(buf[56:]),
		FragmentNumber:   le.Uint32(buf[60:]),
	}
}

// Frame carries the header fields a writer may choose; the rest are derived.
type Frame struct {
	Time           time.Time
	DeviceID       uint32
	OptionalOffset uint32
	OptionalID     uint32
}

// WriteFrame encodes rec and writes a complete frame (header, body, checksum) to w.
func WriteFrame(w io.Writer, frame Frame, rec Record) error {
	body, err := Encode(rec)
	if err != nil {
		return err
	}
	header := FrameHeader{
		ProtocolVersion: protocolVersion,
		Offset:          bodyOffset,
		SyncPattern:     SyncPattern,
		Size:            uint32(HeaderSize + len(body) + FooterSize),
		OptionalOffset:  frame.OptionalOffset,
		OptionalID:      frame.OptionalID,
		Time:            Time7KFrom(frame.Time),
		RecordType:      rec.Type(),
		DeviceID:        frame.DeviceID,
		Flags:           flagChecksumValid,
		TotalFragments:  1,
	}

	var buf bytes.Buffer
	buf.Grow(int(header.Size))
	if err := binary.Write(&buf, binary.LittleEndian, header); err != nil {
		return err
	}
	buf.Write(body)
	if err := binary.Write(&buf, binary.LittleEndian, checksum(buf.Bytes())); err != nil {
		return err
	}
	_, err = w.Write(buf.Bytes())
	return err
}

func checksum(data []byte) uint32 {
	var sum uint32
	for _, b := range data {
		sum += uint32(b)
	}
	return sum
}
