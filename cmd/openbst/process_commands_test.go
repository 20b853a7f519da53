package main

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"openbst/internal/services"
)

func decodeSteps(t *testing.T, out string) []stepOutput {
	t.Helper()
	var steps []stepOutput
	if err := json.Unmarshal([]byte(out), &steps); err != nil {
		t.Fatalf("decode output: %v\n%s", err, out)
	}
	return steps
}

func TestChainTreeShowResetPrune(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, env.configPath, "chain", "--json", "--raw", env.rawPath, "raw_decoding", "static-gain-compensation")
	if err != nil {
		t.Fatalf("chain: %v", err)
	}
	steps := decodeSteps(t, out)
	if len(steps) != 2 {
		t.Fatalf("expected 2 steps, got %d", len(steps))
	}
	if steps[0].Status != "ROOTNODE" || steps[1].Status != "NEWNODE" || !steps[0].Computed || !steps[1].Computed {
		t.Fatalf("unexpected steps: %+v", steps)
	}
	rawNode, gainNode := steps[0].Node, steps[1].Node
	if !strings.HasPrefix(rawNode, "00__raw_decoding__") || !strings.HasPrefix(gainNode, "01__static_gain_compensation__") {
		t.Fatalf("unexpected node names %q %q", rawNode, gainNode)
	}

	// The persisted current node carries over to a new invocation.
	out, _, err = runCLI(t, env.configPath, "process", "static_gain_compensation")
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	requireContains(t, out, "Status:   CURRENTNODE")
	requireContains(t, out, "Computed: no")

	out, _, err = runCLI(t, env.configPath, "tree")
	if err != nil {
		t.Fatalf("tree: %v", err)
	}
	requireContains(t, out, "└── * 00 Raw Decoding [")
	requireContains(t, out, "    └── * 01 Static Gain Compensation [")
	requireContains(t, out, "]  <- current")

	out, _, err = runCLI(t, env.configPath, "show", rawNode)
	if err != nil {
		t.Fatalf("show: %v", err)
	}
	requireContains(t, out, "Kind:    Raw Decoding")
	requireContains(t, out, "Parent:  ROOT")
	requireContains(t, out, "snippet_power_mean")
	requireContains(t, out, "raw_file")
	requireContains(t, out, "backscatter_data")
	requireContains(t, out, "40.000")

	out, _, err = runCLI(t, env.configPath, "process", "static_gain_compensation", "--method", "fixed", "--gain-db", "5", "--json")
	if err != nil {
		t.Fatalf("process modified: %v", err)
	}
	var modified stepOutput
	if err := json.Unmarshal([]byte(out), &modified); err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if modified.Status != "MODIFIEDCURRENTNODE" || !modified.Computed || modified.Node == gainNode {
		t.Fatalf("unexpected modified step: %+v", modified)
	}

	out, _, err = runCLI(t, env.configPath, "tree")
	if err != nil {
		t.Fatalf("tree: %v", err)
	}
	requireContains(t, out, "(superseded)")

	out, _, err = runCLI(t, env.configPath, "prune")
	if err != nil {
		t.Fatalf("prune: %v", err)
	}
	requireContains(t, out, "Removed 1 node(s):")
	requireContains(t, out, gainNode)

	out, _, err = runCLI(t, env.configPath, "prune")
	if err != nil {
		t.Fatalf("second prune: %v", err)
	}
	requireContains(t, out, "Nothing to prune")

	out, _, err = runCLI(t, env.configPath, "reset")
	if err != nil {
		t.Fatalf("reset: %v", err)
	}
	requireContains(t, out, "Current node: ROOT")

	out, _, err = runCLI(t, env.configPath, "tree")
	if err != nil {
		t.Fatalf("tree after reset: %v", err)
	}
	requireContains(t, out, "ROOT  <- current")
	if strings.Contains(out, "* ") {
		t.Fatalf("no node should be active after reset:\n%s", out)
	}
}

func TestChainTableReportsSkippedSteps(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, env.configPath, "chain", "--raw", env.rawPath, "static_gain_compensation", "raw_decoding")
	if err != nil {
		t.Fatalf("chain: %v", err)
	}
	requireContains(t, out, "ROOTNODE")
	requireContains(t, out, "skipped: requires raw_decoding")
}

func TestProcessRejectsBadInput(t *testing.T) {
	env := setupCLITestEnv(t)

	tests := []struct {
		name   string
		args   []string
		marker error
	}{
		{name: "unknown kind", args: []string{"process", "despeckle"}, marker: services.ErrValidation},
		{name: "unknown method", args: []string{"process", "tvg_gain_compensation", "--method", "magic"}, marker: services.ErrConfiguration},
		{name: "raw decoding without file", args: []string{"process", "raw_decoding"}, marker: services.ErrValidation},
		{name: "missing raw file", args: []string{"process", "raw_decoding", "--raw", "/nonexistent/survey.s7k"}, marker: services.ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := runCLI(t, env.configPath, tt.args...)
			if err == nil {
				t.Fatal("expected error")
			}
			if !errors.Is(err, tt.marker) {
				t.Fatalf("expected %v, got %v", tt.marker, err)
			}
			if code := services.ExitCode(err); code != 2 {
				t.Fatalf("exit code = %d, want 2", code)
			}
		})
	}
}

func TestShowUnknownNode(t *testing.T) {
	env := setupCLITestEnv(t)

	_, _, err := runCLI(t, env.configPath, "show", "07__calibration__deadbeef")
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestLogsCommandFiltersLines(t *testing.T) {
	env := setupCLITestEnv(t)

	if _, _, err := runCLI(t, env.configPath, "chain", "--raw", env.rawPath, "raw_decoding", "static_gain_compensation"); err != nil {
		t.Fatalf("chain: %v", err)
	}

	out, _, err := runCLI(t, env.configPath, "logs", "--lines", "0", "--match", "step_complete")
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 completed steps in the log, got %d:\n%s", len(lines), out)
	}
	requireContains(t, lines[0], "step completed")
	requireContains(t, lines[0], "status=ROOTNODE")
	requireContains(t, lines[1], "status=NEWNODE")
}
