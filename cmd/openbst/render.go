package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"openbst/internal/identity"
	"openbst/internal/nodestore"
)

const (
	ansiReset  = "\x1b[0m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiDim    = "\x1b[2m"
)

const hashDisplayLength = 8

var titleCaser = cases.Title(language.English)

// kindLabel turns a kind such as tvg_gain_compensation into "Tvg Gain Compensation".
func kindLabel(kind identity.Kind) string {
	return titleCaser.String(strings.ReplaceAll(string(kind), "_", " "))
}

func shortHash(hash string) string {
	if len(hash) > hashDisplayLength {
		return hash[:hashDisplayLength]
	}
	return hash
}

func formatMillis(ms int64) string {
	return time.UnixMilli(ms).UTC().Format("2006-01-02T15:04:05.000Z")
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

type treeView struct {
	nodes    map[string]nodestore.Node
	children map[string][]string
	active   map[string]bool
	current  string
	colorize bool
}

// renderTree draws the provenance tree below ROOT. Nodes on the active path
// are starred and the current node is marked.
func renderTree(v treeView) string {
	var b strings.Builder
	label := nodestore.Root
	if v.current == nodestore.Root {
		label += "  <- current"
	}
	b.WriteString(label)
	b.WriteByte('\n')
	v.renderChildren(&b, nodestore.Root, "")
	return b.String()
}

func (v treeView) renderChildren(b *strings.Builder, parent, prefix string) {
	children := v.children[parent]
	for i, name := range children {
		last := i == len(children)-1
		branch, next := "├── ", "│   "
		if last {
			branch, next = "└── ", "    "
		}
		b.WriteString(prefix)
		b.WriteString(branch)
		b.WriteString(v.nodeLine(name))
		b.WriteByte('\n')
		v.renderChildren(b, name, prefix+next)
	}
}

func (v treeView) nodeLine(name string) string {
	node, ok := v.nodes[name]
	if !ok {
		return name + " (missing)"
	}
	line := fmt.Sprintf("%02d %s [%s]", node.Step, kindLabel(node.Kind), shortHash(node.Hash))
	color := ""
	switch {
	case v.active[name]:
		line = "* " + line
		color = ansiGreen
	case node.Superseded():
		line += " (superseded)"
		color = ansiDim
	}
	if name == v.current {
		line += "  <- current"
		color = ansiYellow
	}
	if v.colorize && color != "" {
		return color + line + ansiReset
	}
	return line
}
