package s7k

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"openbst/internal/logging"
)

// Datagram is one decoded record together with its frame timestamp.
type Datagram struct {
	Type      RecordType
	Timestamp int64 // milliseconds since the Unix epoch
	Record    Record
}

// File gives random access to the records of an s7k container. The index is
// built on first use; records are re-read from disk on every request.
type File struct {
	path   string
	file   *os.File
	size   int64
	logger *slog.Logger

	once     sync.Once
	index    *Index
	indexErr error
}

// Open opens an s7k container without scanning it.
func Open(path string, logger *slog.Logger) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open s7k file: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("stat s7k file: %w", err)
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &File{
		path:   path,
		file:   f,
		size:   info.Size(),
		logger: logger.With(logging.String("s7k_file", path)),
	}, nil
}

// Path returns the container path.
func (f *File) Path() string { return f.path }

// Close releases the file handle.
func (f *File) Close() error {
	if f == nil || f.file == nil {
		return nil
	}
	return f.file.Close()
}

// Index returns the frame index, scanning the file on the first call.
func (f *File) Index() (*Index, error) {
	f.once.Do(func() {
		f.index, f.indexErr = Scan(f.file, f.size, f.logger)
	})
	return f.index, f.indexErr
}

// Datagram reads and decodes the i-th record of type t.
func (f *File) Datagram(t RecordType, i int) (Datagram, error) {
	ix, err := f.Index()
	if err != nil {
		return Datagram{}, err
	}
	entries := ix.Entries(t)
	if i < 0 || i >= len(entries) {
		return Datagram{}, fmt.Errorf("%w: %s index %d of %d", ErrIndexOutOfRange, t, i, len(entries))
	}
	return f.read(t, entries[i])
}

// Datagrams decodes every record of type t chosen by sel. The first decode
// failure aborts the call.
func (f *File) Datagrams(t RecordType, sel Selection) ([]Datagram, error) {
	var out []Datagram
	_, err := f.walk(t, sel, true, func(dg Datagram) error {
		out = append(out, dg)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Walk decodes the records chosen by sel and hands each to fn. Malformed
// records are skipped and counted; I/O failures and errors from fn stop the walk.
func (f *File) Walk(t RecordType, sel Selection, fn func(Datagram) error) (int, error) {
	return f.walk(t, sel, false, fn)
}

func (f *File) walk(t RecordType, sel Selection, strict bool, fn func(Datagram) error) (int, error) {
	ix, err := f.Index()
	if err != nil {
		return 0, err
	}
	entries := ix.Entries(t)
	positions, err := sel.resolve(entries)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", t, err)
	}
	skipped := 0
	for _, i := range positions {
		dg, err := f.read(t, entries[i])
		if err != nil {
			if !strict && errors.Is(err, ErrMalformedRecord) {
				skipped++
				f.logger.Debug("skipping malformed record",
					logging.String("record_type", t.String()),
					logging.Int("record_index", i),
					logging.Error(err),
				)
				continue
			}
			return skipped, err
		}
		if err := fn(dg); err != nil {
			return skipped, err
		}
	}
	if skipped > 0 {
		logging.WarnWithContext(f.logger, "malformed records skipped", "s7k_decode",
			logging.String("record_type", t.String()),
			logging.Int("skipped", skipped),
			logging.String(logging.FieldImpact, "affected pings are excluded from processing"),
		)
	}
	return skipped, nil
}

func (f *File) read(t RecordType, e Entry) (Datagram, error) {
	body := make([]byte, e.Size)
	if _, err := f.file.ReadAt(body, e.Offset); err != nil && !(errors.Is(err, io.EOF) && e.Size == 0) {
		return Datagram{}, fmt.Errorf("read %s body at %d: %w", t, e.Offset, err)
	}
	rec, err := Decode(t, body, e.OptionalOffset)
	if err != nil {
		return Datagram{}, err
	}
	return Datagram{Type: t, Timestamp: e.Timestamp, Record: rec}, nil
}
