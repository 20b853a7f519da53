package main

import (
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/stat"

	"openbst/internal/config"
	"openbst/internal/grid"
	"openbst/internal/nodestore"
	"openbst/internal/services"
)

func newTreeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "tree",
		Short: "Show the provenance tree of the project",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(cmd, "", func(_ *config.Config, store *nodestore.Store, _ *slog.Logger) error {
				view, err := loadTreeView(cmd, store)
				if err != nil {
					return err
				}
				fmt.Fprint(cmd.OutOrStdout(), renderTree(view))
				return nil
			})
		},
	}
}

func loadTreeView(cmd *cobra.Command, store *nodestore.Store) (treeView, error) {
	nodes, err := store.Nodes(cmd.Context())
	if err != nil {
		return treeView{}, err
	}
	edges, err := store.Edges(cmd.Context())
	if err != nil {
		return treeView{}, err
	}
	current, err := store.Current(cmd.Context())
	if err != nil {
		return treeView{}, err
	}
	view := treeView{
		nodes:    make(map[string]nodestore.Node, len(nodes)),
		children: edges,
		active:   make(map[string]bool),
		current:  current,
		colorize: shouldColorize(cmd.OutOrStdout()),
	}
	for _, n := range nodes {
		view.nodes[n.Name] = n
	}
	for name := current; name != nodestore.Root && !view.active[name]; {
		n, ok := view.nodes[name]
		if !ok {
			break
		}
		view.active[name] = true
		name = n.Parent
	}
	return view, nil
}

func newShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <node>",
		Short: "Show a node's parameters and stored variables",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			return ctx.withStore(cmd, "", func(_ *config.Config, store *nodestore.Store, _ *slog.Logger) error {
				node, err := store.Node(cmd.Context(), name)
				if err != nil {
					return err
				}
				if node == nil {
					return services.Wrap(services.ErrNotFound, "cli", "show", fmt.Sprintf("node %q", name), nil)
				}
				attrs, err := store.Attributes(cmd.Context(), name)
				if err != nil {
					return err
				}
				shapes, err := store.Variables(cmd.Context(), name)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Node:    %s\n", node.Name)
				fmt.Fprintf(out, "Kind:    %s\n", kindLabel(node.Kind))
				fmt.Fprintf(out, "Hash:    %s\n", node.Hash)
				fmt.Fprintf(out, "Step:    %d\n", node.Step)
				fmt.Fprintf(out, "Parent:  %s\n", node.Parent)
				if node.Superseded() {
					fmt.Fprintf(out, "Superseded by: %s\n", node.SupersededBy)
				}
				fmt.Fprintf(out, "Created: %s\n", node.CreatedAt.UTC().Format(time.RFC3339))

				if len(attrs) > 0 {
					keys := make([]string, 0, len(attrs))
					for k := range attrs {
						keys = append(keys, k)
					}
					sort.Strings(keys)
					rows := make([][]string, 0, len(keys))
					for _, k := range keys {
						rows = append(rows, []string{k, attrs[k]})
					}
					fmt.Fprintln(out)
					fmt.Fprintln(out, renderTable([]column{textCol("Attribute"), textCol("Value")}, rows))
				}

				if len(shapes) > 0 {
					rows := make([][]string, 0, len(shapes))
					for _, shape := range shapes {
						g, err := store.Variable(cmd.Context(), name, shape.Name)
						if err != nil {
							return err
						}
						rows = append(rows, []string{
							shape.Name,
							strconv.Itoa(shape.Rows),
							strconv.Itoa(shape.Cols),
							formatMean(g),
						})
					}
					fmt.Fprintln(out)
					fmt.Fprintln(out, renderTable(
						[]column{textCol("Variable"), numCol("Rows"), numCol("Cols"), numCol("Mean")},
						rows,
					))
				}
				return nil
			})
		},
	}
}

// formatMean averages the finite cells of g; NaN marks cells without data.
func formatMean(g *grid.Grid) string {
	if g == nil {
		return "-"
	}
	finite := make([]float64, 0, len(g.Data))
	for _, v := range g.Data {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			finite = append(finite, v)
		}
	}
	if len(finite) == 0 {
		return "-"
	}
	return strconv.FormatFloat(stat.Mean(finite, nil), 'f', 3, 64)
}
