package s7k

import (
	"fmt"
	"sort"
)

// RecordType identifies the layout of a record body.
type RecordType uint32

const (
	TypePosition      RecordType = 1003
	TypeAttitude      RecordType = 1012
	TypeHeading       RecordType = 1013
	TypeSonarSettings RecordType = 7000
	TypeBeamGeometry  RecordType = 7004
	TypeTVG           RecordType = 7010
	TypeRawDetection  RecordType = 7027
	TypeSnippet       RecordType = 7028
)

var recordNames = map[RecordType]string{
	TypePosition:      "position",
	TypeAttitude:      "roll_pitch_heave",
	TypeHeading:       "heading",
	TypeSonarSettings: "sonar_settings",
	TypeBeamGeometry:  "beam_geometry",
	TypeTVG:           "tvg",
	TypeRawDetection:  "raw_detection",
	TypeSnippet:       "snippet",
}

// String returns the record name, or the numeric identifier for types the
// codec does not decode.
func (t RecordType) String() string {
	if name, ok := recordNames[t]; ok {
		return name
	}
	return fmt.Sprintf("record_%d", uint32(t))
}

// Supported reports whether Decode understands the record type.
func (t RecordType) Supported() bool {
	_, ok := decoders[t]
	return ok
}

// SupportedTypes lists the decodable record types in ascending order.
func SupportedTypes() []RecordType {
	types := make([]RecordType, 0, len(decoders))
	for t := range decoders {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}
