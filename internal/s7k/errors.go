package s7k

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedRecord marks record bodies whose framing disagrees with their length.
	ErrMalformedRecord = errors.New("malformed record")
	// ErrUnsupportedRecord is returned when no decoder exists for a record type.
	ErrUnsupportedRecord = errors.New("unsupported record type")
	// ErrIndexOutOfRange is returned when a requested record index exceeds the type's count.
	ErrIndexOutOfRange = errors.New("record index out of range")
)

// MalformedRecordError describes why a record body could not be decoded.
type MalformedRecordError struct {
	Type   RecordType
	Reason string
}

func (e *MalformedRecordError) Error() string {
	return fmt.Sprintf("%s %d (%s): %s", ErrMalformedRecord, uint32(e.Type), e.Type, e.Reason)
}

func (e *MalformedRecordError) Unwrap() error { return ErrMalformedRecord }

func malformed(t RecordType, format string, args ...any) error {
	return &MalformedRecordError{Type: t, Reason: fmt.Sprintf(format, args...)}
}
