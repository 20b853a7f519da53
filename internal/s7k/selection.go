package s7k

import "fmt"

type selectionMode int

const (
	selectAll selectionMode = iota
	selectRange
	selectIndices
	selectTime
)

// Selection chooses which records of a type to read. The zero value selects
// every record.
type Selection struct {
	mode    selectionMode
	start   int
	end     int
	indices []int
	from    int64
	to      int64
}

// All selects every record.
func All() Selection { return Selection{} }

// Range selects records start (inclusive) through end (exclusive).
func Range(start, end int) Selection {
	return Selection{mode: selectRange, start: start, end: end}
}

// Indices selects the listed records in the given order.
func Indices(indices ...int) Selection {
	cp := make([]int, len(indices))
	copy(cp, indices)
	return Selection{mode: selectIndices, indices: cp}
}

// TimeRange selects records stamped between from and to (milliseconds, inclusive).
func TimeRange(from, to int64) Selection {
	return Selection{mode: selectTime, from: from, to: to}
}

func (s Selection) resolve(entries []Entry) ([]int, error) {
	n := len(entries)
	switch s.mode {
	case selectAll:
		return sequence(0, n), nil
	case selectRange:
		if s.start < 0 || s.end < s.start || s.end > n {
			return nil, fmt.Errorf("%w: range [%d, %d) of %d records", ErrIndexOutOfRange, s.start, s.end, n)
		}
		return sequence(s.start, s.end), nil
	case selectIndices:
		for _, i := range s.indices {
			if i < 0 || i >= n {
				return nil, fmt.Errorf("%w: index %d of %d records", ErrIndexOutOfRange, i, n)
			}
		}
		return s.indices, nil
	case selectTime:
		var out []int
		for i, e := range entries {
			if e.Timestamp >= s.from && e.Timestamp <= s.to {
				out = append(out, i)
			}
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unknown selection mode %d", s.mode)
	}
}

func sequence(start, end int) []int {
	out := make([]int, 0, end-start)
	for i := start; i < end; i++ {
		out = append(out, i)
	}
	return out
}
