package main

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"openbst/internal/config"
	"openbst/internal/corrections"
	"openbst/internal/identity"
	"openbst/internal/logging"
	"openbst/internal/nodestore"
	"openbst/internal/processing"
	"openbst/internal/services"
)

type stepOutput struct {
	Kind     string `json:"kind"`
	Status   string `json:"status"`
	Computed bool   `json:"computed"`
	Node     string `json:"node"`
	Skipped  string `json:"skipped,omitempty"`
}

func toStepOutput(res processing.StepResult) stepOutput {
	return stepOutput{
		Kind:     string(res.Kind),
		Status:   res.Status.String(),
		Computed: res.Computed,
		Node:     res.Node,
		Skipped:  res.Skipped,
	}
}

// processOverrides are per-invocation replacements for configured defaults.
type processOverrides struct {
	method        string
	window        int
	absorption    float64
	gainDB        float64
	sourceLevelDB float64
}

func (o processOverrides) apply(cmd *cobra.Command, cfg *config.Config) *config.Config {
	local := *cfg
	flags := cmd.Flags()
	if flags.Changed("window") {
		local.RawDecoding.UseWindow = o.window > 0
		local.RawDecoding.WindowSize = o.window
	}
	if flags.Changed("absorption") {
		local.TransmissionLoss.UseRuntimeAbsorption = false
		local.TransmissionLoss.AbsorptionDBPerKm = o.absorption
	}
	if flags.Changed("gain-db") {
		local.StaticGain.FixedGainDB = o.gainDB
	}
	if flags.Changed("source-level-db") {
		local.SourceLevel.FixedSourceLevelDB = o.sourceLevelDB
	}
	return &local
}

func kindNames() string {
	names := make([]string, 0, len(identity.Kinds()))
	for _, k := range identity.Kinds() {
		names = append(names, string(k))
	}
	return strings.Join(names, ", ")
}

func parseKind(value string) (identity.Kind, error) {
	kind, err := identity.ParseKind(value)
	if err != nil {
		return "", services.Wrap(services.ErrValidation, "cli", "process",
			fmt.Sprintf("known kinds: %s", kindNames()), err)
	}
	return kind, nil
}

// withRunner opens the store and a processing session on it.
func (c *commandContext) withRunner(cmd *cobra.Command, rawPath string, fn func(*config.Config, *processing.Runner) error) error {
	return c.withStore(cmd, rawPath, func(cfg *config.Config, store *nodestore.Store, logger *slog.Logger) error {
		runner, err := processing.NewRunner(cmd.Context(), processing.Options{
			Config:  cfg,
			Store:   store,
			Logger:  logger,
			RawPath: rawPath,
		})
		if err != nil {
			return err
		}
		defer runner.Close()
		return fn(cfg, runner)
	})
}

func newProcessCommand(ctx *commandContext) *cobra.Command {
	var rawPath string
	var jsonOutput bool
	var overrides processOverrides

	cmd := &cobra.Command{
		Use:   "process <kind>",
		Short: "Run one correction step from the current node",
		Long: "Run one correction step from the current node.\n\n" +
			"Kinds: " + kindNames(),
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := parseKind(args[0])
			if err != nil {
				return err
			}
			return ctx.withRunner(cmd, rawPath, func(cfg *config.Config, runner *processing.Runner) error {
				params, err := processing.ParametersFromConfig(overrides.apply(cmd, cfg), kind, overrides.method)
				if err != nil {
					return err
				}
				res, err := runner.Run(cmd.Context(), params)
				if err != nil {
					return err
				}
				step := toStepOutput(res)
				if jsonOutput {
					return printJSON(cmd, step)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Status:   %s\n", step.Status)
				fmt.Fprintf(out, "Node:     %s\n", step.Node)
				fmt.Fprintf(out, "Computed: %s\n", yesNo(step.Computed))
				if step.Skipped != "" {
					fmt.Fprintf(out, "Skipped:  %s\n", step.Skipped)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&rawPath, "raw", "", "Raw s7k file for raw decoding")
	cmd.Flags().StringVar(&overrides.method, "method", "", "Method to use instead of the configured one")
	cmd.Flags().IntVar(&overrides.window, "window", 0, "Raw decoding window size (0 disables windowing)")
	cmd.Flags().Float64Var(&overrides.absorption, "absorption", 0, "Absorption coefficient in dB/km")
	cmd.Flags().Float64Var(&overrides.gainDB, "gain-db", 0, "Fixed static gain in dB")
	cmd.Flags().Float64Var(&overrides.sourceLevelDB, "source-level-db", 0, "Fixed source level in dB")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit JSON output")
	return cmd
}

func newChainCommand(ctx *commandContext) *cobra.Command {
	var rawPath string
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "chain <kind>...",
		Short: "Run several correction steps in order with configured defaults",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kinds := make([]identity.Kind, 0, len(args))
			for _, arg := range args {
				kind, err := parseKind(arg)
				if err != nil {
					return err
				}
				kinds = append(kinds, kind)
			}
			return ctx.withRunner(cmd, rawPath, func(cfg *config.Config, runner *processing.Runner) error {
				steps := make([]corrections.Params, 0, len(kinds))
				for _, kind := range kinds {
					params, err := processing.ParametersFromConfig(cfg, kind, "")
					if err != nil {
						return err
					}
					steps = append(steps, params)
				}
				results, chainErr := runner.Chain(cmd.Context(), steps)
				outputs := make([]stepOutput, 0, len(results))
				for _, res := range results {
					outputs = append(outputs, toStepOutput(res))
				}
				if jsonOutput {
					if err := printJSON(cmd, outputs); err != nil {
						return err
					}
					return chainErr
				}
				rows := make([][]string, 0, len(outputs))
				for i, step := range outputs {
					node := step.Node
					if step.Skipped != "" {
						node = "skipped: " + step.Skipped
					}
					rows = append(rows, []string{
						strconv.Itoa(i + 1),
						step.Kind,
						step.Status,
						yesNo(step.Computed),
						node,
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]column{numCol("Step"), textCol("Kind"), textCol("Status"), textCol("Computed"), textCol("Node")},
					rows,
				))
				return chainErr
			})
		},
	}

	cmd.Flags().StringVar(&rawPath, "raw", "", "Raw s7k file for raw decoding")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit JSON output")
	return cmd
}

func newResetCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Move the current node back to ROOT",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(cmd, "", func(cfg *config.Config, store *nodestore.Store, logger *slog.Logger) error {
				runner, err := processing.NewRunner(cmd.Context(), processing.Options{Config: cfg, Store: store, Logger: logger})
				if err != nil {
					// The persisted pointer may name a node that no longer exists.
					logging.WarnWithContext(logger, "current node unusable; clearing pointer", "session_reset",
						logging.Error(err),
						logging.String(logging.FieldImpact, "session restarts at ROOT"),
					)
					if err := store.SetCurrent(cmd.Context(), nodestore.Root); err != nil {
						return err
					}
				} else {
					defer runner.Close()
					if err := runner.Reset(cmd.Context()); err != nil {
						return err
					}
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Current node: %s\n", nodestore.Root)
				return nil
			})
		},
	}
}

func newPruneCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "prune",
		Short: "Delete superseded nodes that are not on the active path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(cmd, "", func(_ *config.Config, store *nodestore.Store, logger *slog.Logger) error {
				removed, err := store.Prune(cmd.Context())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(removed) == 0 {
					fmt.Fprintln(out, "Nothing to prune")
					return nil
				}
				logger.Info("pruned superseded nodes",
					logging.String(logging.FieldEventType, "prune_complete"),
					logging.Int("removed", len(removed)),
				)
				fmt.Fprintf(out, "Removed %d node(s):\n", len(removed))
				for _, name := range removed {
					fmt.Fprintf(out, "  %s\n", name)
				}
				return nil
			})
		},
	}
}
