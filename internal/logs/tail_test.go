package logs_test

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"sync"
	"testing"
	"time"

	"openbst/internal/logs"
)

func collect(t *testing.T, ctx context.Context, path string, opts logs.Options) []string {
	t.Helper()
	var lines []string
	err := logs.Tail(ctx, path, opts, func(line string) error {
		lines = append(lines, line)
		return nil
	})
	if err != nil {
		t.Fatalf("tail returned error: %v", err)
	}
	return lines
}

func TestTailLastLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "openbst.log")
	if err := os.WriteFile(path, []byte("a\nb\nc\n"), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}

	tests := []struct {
		name string
		opts logs.Options
		want []string
	}{
		{name: "last two", opts: logs.Options{Lines: 2}, want: []string{"b", "c"}},
		{name: "more than available", opts: logs.Options{Lines: 10}, want: []string{"a", "b", "c"}},
		{name: "everything", opts: logs.Options{}, want: []string{"a", "b", "c"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := collect(t, context.Background(), path, tt.opts); !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("got %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestTailMatchesRunID(t *testing.T) {
	path := filepath.Join(t.TempDir(), "openbst.log")
	content := "INFO step requested run=r1\nINFO step requested run=r2\nINFO step completed run=r1\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}

	got := collect(t, context.Background(), path, logs.Options{Lines: 5, Match: "run=r1"})
	want := []string{"INFO step requested run=r1", "INFO step completed run=r1"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %#v, want %#v", got, want)
	}
}

func TestTailMissingFile(t *testing.T) {
	got := collect(t, context.Background(), filepath.Join(t.TempDir(), "absent.log"), logs.Options{Lines: 3})
	if len(got) != 0 {
		t.Fatalf("expected no lines, got %#v", got)
	}
}

func TestTailRejectsDirectory(t *testing.T) {
	err := logs.Tail(context.Background(), t.TempDir(), logs.Options{}, func(string) error { return nil })
	if err == nil {
		t.Fatal("expected error for directory path")
	}
}

func TestTailFollowEmitsAppendedLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "openbst.log")
	if err := os.WriteFile(path, []byte("start\n"), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	var mu sync.Mutex
	var lines []string
	started := make(chan struct{})
	later := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- logs.Tail(ctx, path, logs.Options{Lines: 1, Follow: true, Poll: 10 * time.Millisecond}, func(line string) error {
			mu.Lock()
			defer mu.Unlock()
			lines = append(lines, line)
			switch line {
			case "start":
				close(started)
			case "later":
				close(later)
			}
			return nil
		})
	}()

	select {
	case <-started:
	case <-time.After(10 * time.Second):
		t.Fatal("tail did not emit the existing line")
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("open append: %v", err)
	}
	if _, err := f.WriteString("later\n"); err != nil {
		t.Fatalf("append log: %v", err)
	}
	_ = f.Close()

	select {
	case <-later:
	case <-time.After(10 * time.Second):
		t.Fatal("follow did not emit the appended line")
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("follow returned error: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if want := []string{"start", "later"}; !reflect.DeepEqual(lines, want) {
		t.Fatalf("got %#v, want %#v", lines, want)
	}
}
