package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"openbst/internal/s7k"
	"openbst/internal/services"
)

type datagramOutput struct {
	Type      string     `json:"type"`
	Timestamp int64      `json:"timestamp_ms"`
	Time      string     `json:"time"`
	Record    s7k.Record `json:"record"`
}

func newDatagramCommand(ctx *commandContext) *cobra.Command {
	var typeFlag string
	var index, count int
	var from, to int64

	cmd := &cobra.Command{
		Use:   "datagram <file.s7k>",
		Short: "Decode records of one type as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := parseRecordType(typeFlag)
			if err != nil {
				return err
			}
			sel, err := selectionFromFlags(cmd, index, count, from, to)
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			f, err := s7k.Open(args[0], logger)
			if err != nil {
				return services.Wrap(services.ErrNotFound, "cli", "datagram", "", err)
			}
			defer f.Close()

			dgs, err := f.Datagrams(t, sel)
			if err != nil {
				return services.Wrap(services.ErrValidation, "cli", "datagram", "", err)
			}
			out := make([]datagramOutput, 0, len(dgs))
			for _, dg := range dgs {
				out = append(out, datagramOutput{
					Type:      dg.Type.String(),
					Timestamp: dg.Timestamp,
					Time:      formatMillis(dg.Timestamp),
					Record:    dg.Record,
				})
			}
			return printJSON(cmd, out)
		},
	}

	cmd.Flags().StringVarP(&typeFlag, "type", "t", "", "Record type number or name (e.g. 7028 or snippet)")
	cmd.Flags().IntVar(&index, "index", 0, "First record index")
	cmd.Flags().IntVar(&count, "count", 1, "Number of records starting at --index")
	cmd.Flags().Int64Var(&from, "from", 0, "Earliest timestamp in milliseconds (inclusive)")
	cmd.Flags().Int64Var(&to, "to", 0, "Latest timestamp in milliseconds (inclusive)")
	_ = cmd.MarkFlagRequired("type")
	return cmd
}

func parseRecordType(value string) (s7k.RecordType, error) {
	value = strings.TrimSpace(value)
	if n, err := strconv.ParseUint(value, 10, 32); err == nil {
		t := s7k.RecordType(n)
		if !t.Supported() {
			return 0, services.Wrap(services.ErrValidation, "cli", "datagram", fmt.Sprintf("record type %d is not decoded", n), s7k.ErrUnsupportedRecord)
		}
		return t, nil
	}
	names := make([]string, 0, len(s7k.SupportedTypes()))
	for _, t := range s7k.SupportedTypes() {
		if strings.EqualFold(t.String(), value) {
			return t, nil
		}
		names = append(names, t.String())
	}
	return 0, services.Wrap(services.ErrValidation, "cli", "datagram",
		fmt.Sprintf("unknown record type %q (known: %s)", value, strings.Join(names, ", ")), nil)
}

// selectionFromFlags prefers a time window, then an index range, and
// otherwise selects every record.
func selectionFromFlags(cmd *cobra.Command, index, count int, from, to int64) (s7k.Selection, error) {
	flags := cmd.Flags()
	switch {
	case flags.Changed("from") || flags.Changed("to"):
		if !flags.Changed("to") {
			to = 1<<63 - 1
		}
		if to < from {
			return s7k.Selection{}, services.Wrap(services.ErrValidation, "cli", "datagram", "--to is before --from", nil)
		}
		return s7k.TimeRange(from, to), nil
	case flags.Changed("index") || flags.Changed("count"):
		if count < 0 {
			return s7k.Selection{}, services.Wrap(services.ErrValidation, "cli", "datagram", "--count must not be negative", nil)
		}
		return s7k.Range(index, index+count), nil
	default:
		return s7k.All(), nil
	}
}
