package s7k_test

import (
	"bytes"
	"reflect"
	"testing"
	"time"

	"openbst/internal/s7k"
	"openbst/internal/testsupport"
)

func scan(t *testing.T, data []byte) *s7k.Index {
	t.Helper()
	ix, err := s7k.Scan(bytes.NewReader(data), int64(len(data)), nil)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	return ix
}

func TestScanIndexesSurvey(t *testing.T) {
	w := testsupport.NewS7KWriter(t)
	testsupport.WriteSurvey(w, 3, 4)

	ix := scan(t, w.Bytes())
	if ix.Frames() != 1+3*7 {
		t.Fatalf("expected 22 frames, got %d", ix.Frames())
	}
	if ix.Corrupted() != 0 {
		t.Fatalf("expected clean scan, skipped %d bytes", ix.Corrupted())
	}
	want := []s7k.RecordType{
		s7k.TypePosition, s7k.TypeAttitude, s7k.TypeHeading, s7k.TypeSonarSettings,
		s7k.TypeBeamGeometry, s7k.TypeTVG, s7k.TypeRawDetection, s7k.TypeSnippet,
	}
	if got := ix.Types(); !reflect.DeepEqual(got, want) {
		t.Fatalf("Types = %v, want %v", got, want)
	}
	if ix.Count(s7k.TypeBeamGeometry) != 1 || ix.Count(s7k.TypeSnippet) != 3 {
		t.Fatalf("unexpected counts: geometry=%d snippet=%d", ix.Count(s7k.TypeBeamGeometry), ix.Count(s7k.TypeSnippet))
	}

	entries := ix.Entries(s7k.TypeSonarSettings)
	for i, e := range entries {
		wantTS := testsupport.SurveyStart.Add(time.Duration(i) * 100 * time.Millisecond).UnixMilli()
		if e.Timestamp != wantTS {
			t.Fatalf("entry %d timestamp %d, want %d", i, e.Timestamp, wantTS)
		}
	}

	offsets := w.Offsets()
	if first := ix.Entries(s7k.TypeBeamGeometry)[0]; first.Offset != offsets[0]+s7k.HeaderSize {
		t.Fatalf("body offset %d, want %d", first.Offset, offsets[0]+s7k.HeaderSize)
	}
	if got := ix.Count(s7k.RecordType(7030)); got != 0 {
		t.Fatalf("expected no entries for absent type, got %d", got)
	}
}

func TestScanResynchronizesAfterBrokenSync(t *testing.T) {
	w := testsupport.NewS7KWriter(t)
	ts := testsupport.SurveyStart
	w.Add(ts, &s7k.Position{Latitude: 0.5})
	heading := w.Add(ts, &s7k.Heading{Heading: 1})
	w.Add(ts, &s7k.Attitude{Roll: 0.1})

	data := append([]byte(nil), w.Bytes()...)
	data[heading+4] = 0x00

	ix := scan(t, data)
	if ix.Count(s7k.TypeHeading) != 0 {
		t.Fatal("frame with broken sync should not be indexed")
	}
	if ix.Count(s7k.TypePosition) != 1 || ix.Count(s7k.TypeAttitude) != 1 {
		t.Fatalf("neighbouring frames lost: position=%d attitude=%d", ix.Count(s7k.TypePosition), ix.Count(s7k.TypeAttitude))
	}
	// Every byte of the broken heading frame is skipped exactly once.
	if ix.Corrupted() != s7k.HeaderSize+4+s7k.FooterSize {
		t.Fatalf("skipped %d bytes, want %d", ix.Corrupted(), s7k.HeaderSize+4+s7k.FooterSize)
	}
}

func TestScanSkipsInsertedGarbage(t *testing.T) {
	w := testsupport.NewS7KWriter(t)
	ts := testsupport.SurveyStart
	w.Add(ts, &s7k.Position{Latitude: 0.5})
	w.AddRaw(bytes.Repeat([]byte{0xab}, 17))
	w.Add(ts.Add(time.Second), &s7k.Attitude{Roll: 0.1})

	ix := scan(t, w.Bytes())
	if ix.Corrupted() != 17 {
		t.Fatalf("skipped %d bytes, want 17", ix.Corrupted())
	}
	entries := ix.Entries(s7k.TypeAttitude)
	if len(entries) != 1 {
		t.Fatalf("attitude frame not recovered: %d entries", len(entries))
	}
	if want := w.Offsets()[1] + s7k.HeaderSize; entries[0].Offset != want {
		t.Fatalf("attitude body at %d, want %d", entries[0].Offset, want)
	}
	if entries[0].Timestamp != ts.Add(time.Second).UnixMilli() {
		t.Fatalf("unexpected timestamp %d", entries[0].Timestamp)
	}
}

func TestScanIgnoresTruncatedTail(t *testing.T) {
	w := testsupport.NewS7KWriter(t)
	testsupport.WriteSurvey(w, 2, 2)
	full := len(w.Bytes())
	extra := testsupport.NewS7KWriter(t)
	extra.Add(testsupport.SurveyStart, &s7k.Heading{Heading: 1})

	cases := map[string]int{
		"partial header": 40,
		"partial body":   s7k.HeaderSize + 2,
	}
	for name, keep := range cases {
		data := append(append([]byte(nil), w.Bytes()[:full]...), extra.Bytes()[:keep]...)
		ix := scan(t, data)
		if ix.Count(s7k.TypeHeading) != 2 {
			t.Fatalf("%s: truncated frame was indexed (%d headings)", name, ix.Count(s7k.TypeHeading))
		}
		if ix.Frames() != 1+2*7 {
			t.Fatalf("%s: expected 15 frames, got %d", name, ix.Frames())
		}
	}
}

func TestScanEmptyInput(t *testing.T) {
	ix := scan(t, nil)
	if ix.Frames() != 0 || len(ix.Types()) != 0 || ix.Corrupted() != 0 {
		t.Fatalf("expected empty index, got frames=%d types=%v", ix.Frames(), ix.Types())
	}
}
