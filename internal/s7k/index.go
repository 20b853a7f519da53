package s7k

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"

	"openbst/internal/logging"
)

// Entry locates one frame's record body inside a container.
type Entry struct {
	Offset         int64  // first byte of the record body
	Timestamp      int64  // milliseconds since the Unix epoch
	Size           int    // body size, excluding frame header and checksum
	OptionalOffset uint32 // optional data offset from the frame start, 0 when absent
}

// Index maps record types to their frames in file order. Timestamps within a
// type are usually, but not necessarily, increasing.
type Index struct {
	entries   map[RecordType][]Entry
	corrupted int64
	frames    int
}

// Entries returns the frames recorded for t in file order.
func (ix *Index) Entries(t RecordType) []Entry {
	return ix.entries[t]
}

// Count returns the number of frames of type t.
func (ix *Index) Count(t RecordType) int {
	return len(ix.entries[t])
}

// Types returns every record type seen, in ascending order.
func (ix *Index) Types() []RecordType {
	types := make([]RecordType, 0, len(ix.entries))
	for t := range ix.entries {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}

// Frames returns the total number of indexed frames.
func (ix *Index) Frames() int { return ix.frames }

// Corrupted returns the number of bytes skipped while resynchronizing.
func (ix *Index) Corrupted() int64 { return ix.corrupted }

// Scan reads frame headers from r, which holds size bytes, and builds an
// Index. Bodies are skipped, not buffered. A header that fails the sync check,
// declares an impossible size, or runs past the end of the data is treated as
// corruption: the cursor advances one byte and the header read is retried.
// A short header read ends the scan.
func Scan(r io.ReaderAt, size int64, logger *slog.Logger) (*Index, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	ix := &Index{entries: make(map[RecordType][]Entry)}
	buf := make([]byte, HeaderSize)

	var pos int64
	for {
		n, err := r.ReadAt(buf, pos)
		if n < HeaderSize {
			if err != nil && !errors.Is(err, io.EOF) {
				return nil, fmt.Errorf("read frame header at %d: %w", pos, err)
			}
			break
		}
		hdr := parseHeader(buf)
		if hdr.SyncPattern != SyncPattern || hdr.BodySize() < 0 || pos+int64(hdr.Size) > size {
			ix.corrupted++
			pos++
			continue
		}

		t := hdr.RecordType
		ix.entries[t] = append(ix.entries[t], Entry{
			Offset:         pos + HeaderSize,
			Timestamp:      hdr.Time.UnixMilli(),
			Size:           hdr.BodySize(),
			OptionalOffset: hdr.OptionalOffset,
		})
		ix.frames++
		pos += int64(hdr.Size)
	}

	if ix.corrupted > 0 {
		logging.WarnWithContext(logger, "s7k container required resynchronization", "s7k_resync",
			logging.Int64("skipped_bytes", ix.corrupted),
			logging.Int("frames", ix.frames),
			logging.String(logging.FieldErrorHint, "the file contains corrupted or truncated frames"),
			logging.String(logging.FieldImpact, "records inside the corrupted region are unavailable"),
		)
	}
	logger.Debug("s7k index built",
		logging.Int("frames", ix.frames),
		logging.Int("types", len(ix.entries)),
	)
	return ix, nil
}
