package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"openbst/internal/s7k"
	"openbst/internal/services"
)

type indexSummary struct {
	File           string        `json:"file"`
	Frames         int           `json:"frames"`
	CorruptedBytes int64         `json:"corrupted_bytes"`
	Types          []typeSummary `json:"types"`
}

type typeSummary struct {
	Type  uint32 `json:"type"`
	Name  string `json:"name"`
	Count int    `json:"count"`
	First int64  `json:"first_ms"`
	Last  int64  `json:"last_ms"`
}

func newIndexCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "index <file.s7k>",
		Short: "Summarize the records of a raw s7k file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			f, err := s7k.Open(args[0], logger)
			if err != nil {
				return services.Wrap(services.ErrNotFound, "cli", "index", "", err)
			}
			defer f.Close()

			ix, err := f.Index()
			if err != nil {
				return err
			}
			summary := summarizeIndex(args[0], ix)
			if jsonOutput {
				return printJSON(cmd, summary)
			}

			rows := make([][]string, 0, len(summary.Types))
			for _, t := range summary.Types {
				rows = append(rows, []string{
					strconv.FormatUint(uint64(t.Type), 10),
					t.Name,
					strconv.Itoa(t.Count),
					formatMillis(t.First),
					formatMillis(t.Last),
				})
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable(
				[]column{numCol("Type"), textCol("Name"), numCol("Count"), textCol("First"), textCol("Last")},
				rows,
			))
			fmt.Fprintf(out, "Frames: %d\n", summary.Frames)
			if summary.CorruptedBytes > 0 {
				fmt.Fprintf(out, "Corrupted bytes skipped: %d\n", summary.CorruptedBytes)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit JSON output")
	return cmd
}

// summarizeIndex reports the earliest and latest timestamp per type; file
// order is not guaranteed to be chronological.
func summarizeIndex(path string, ix *s7k.Index) indexSummary {
	summary := indexSummary{
		File:           path,
		Frames:         ix.Frames(),
		CorruptedBytes: ix.Corrupted(),
		Types:          []typeSummary{},
	}
	for _, t := range ix.Types() {
		entries := ix.Entries(t)
		ts := typeSummary{Type: uint32(t), Name: t.String(), Count: len(entries)}
		for i, e := range entries {
			if i == 0 || e.Timestamp < ts.First {
				ts.First = e.Timestamp
			}
			if i == 0 || e.Timestamp > ts.Last {
				ts.Last = e.Timestamp
			}
		}
		summary.Types = append(summary.Types, ts)
	}
	return summary
}
