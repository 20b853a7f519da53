package main

import (
	"bytes"
	"strings"
	"testing"

	"openbst/internal/identity"
	"openbst/internal/nodestore"
)

func TestKindLabel(t *testing.T) {
	tests := map[identity.Kind]string{
		identity.KindRawDecoding:      "Raw Decoding",
		identity.KindTVGGain:          "Tvg Gain Compensation",
		identity.KindTransmissionLoss: "Transmission Loss Compensation",
	}
	for kind, want := range tests {
		if got := kindLabel(kind); got != want {
			t.Fatalf("kindLabel(%s) = %q, want %q", kind, got, want)
		}
	}
}

func TestRenderTree(t *testing.T) {
	nodes := []nodestore.Node{
		{Name: "raw", Kind: identity.KindRawDecoding, Hash: "aaaaaaaaaaaa", Step: 0, Parent: nodestore.Root},
		{Name: "gain-old", Kind: identity.KindStaticGain, Hash: "bbbbbbbbbbbb", Step: 1, Parent: "raw", SupersededBy: "gain"},
		{Name: "gain", Kind: identity.KindStaticGain, Hash: "cccccccccccc", Step: 1, Parent: "raw"},
		{Name: "raw2", Kind: identity.KindRawDecoding, Hash: "dddddddd", Step: 0, Parent: nodestore.Root},
	}
	view := treeView{
		nodes:    map[string]nodestore.Node{},
		children: map[string][]string{nodestore.Root: {"raw", "raw2"}, "raw": {"gain-old", "gain"}},
		active:   map[string]bool{"raw": true, "gain": true},
		current:  "gain",
	}
	for _, n := range nodes {
		view.nodes[n.Name] = n
	}

	want := strings.Join([]string{
		"ROOT",
		"├── * 00 Raw Decoding [aaaaaaaa]",
		"│   ├── 01 Static Gain Compensation [bbbbbbbb] (superseded)",
		"│   └── * 01 Static Gain Compensation [cccccccc]  <- current",
		"└── 00 Raw Decoding [dddddddd]",
		"",
	}, "\n")
	if got := renderTree(view); got != want {
		t.Fatalf("renderTree mismatch:\n%s\nwant:\n%s", got, want)
	}

	view.colorize = true
	colored := renderTree(view)
	requireContains(t, colored, ansiYellow+"* 01 Static Gain Compensation [cccccccc]  <- current"+ansiReset)
	requireContains(t, colored, ansiDim)
}

func TestRenderTreeMissingNodeAndRootCurrent(t *testing.T) {
	view := treeView{
		nodes:    map[string]nodestore.Node{},
		children: map[string][]string{nodestore.Root: {"ghost"}},
		current:  nodestore.Root,
	}
	got := renderTree(view)
	requireContains(t, got, "ROOT  <- current")
	requireContains(t, got, "└── ghost (missing)")
}

func TestShouldColorizeIgnoresBuffers(t *testing.T) {
	if shouldColorize(&bytes.Buffer{}) {
		t.Fatal("buffers are never terminals")
	}
}

func TestFormatMillis(t *testing.T) {
	if got := formatMillis(1717416000123); got != "2024-06-03T12:00:00.123Z" {
		t.Fatalf("formatMillis = %q", got)
	}
}

func TestRenderTablePadsShortRowsAndAlignsNumbers(t *testing.T) {
	out := renderTable([]column{textCol("Variable"), numCol("Rows")}, [][]string{
		{"backscatter_data", "5"},
		{"tvg_gain"},
	})
	lines := strings.Split(out, "\n")
	if len(lines) != 6 {
		t.Fatalf("expected 6 lines, got %d:\n%s", len(lines), out)
	}
	if header := strings.ToLower(lines[1]); !strings.Contains(header, "variable") || !strings.Contains(header, "rows") {
		t.Fatalf("unexpected header %q", lines[1])
	}
	if !strings.HasSuffix(lines[3], "    5 │") {
		t.Fatalf("numeric cell not right-aligned: %q", lines[3])
	}
	if !strings.Contains(lines[4], "tvg_gain") {
		t.Fatalf("short row missing: %q", lines[4])
	}
	if renderTable(nil, [][]string{{"x"}}) != "" {
		t.Fatal("expected empty output without columns")
	}
}
