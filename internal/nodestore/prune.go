package nodestore

import (
	"context"
	"database/sql"
	"fmt"
)

// Prune deletes superseded nodes and everything computed from them, except
// nodes on the active path (the current node and its ancestors). It returns
// the removed names.
func (s *Store) Prune(ctx context.Context) ([]string, error) {
	ctx = ensureContext(ctx)
	nodes, err := s.Nodes(ctx)
	if err != nil {
		return nil, err
	}
	edges, err := s.Edges(ctx)
	if err != nil {
		return nil, err
	}
	current, err := s.Current(ctx)
	if err != nil {
		return nil, err
	}

	byName := make(map[string]Node, len(nodes))
	for _, n := range nodes {
		byName[n.Name] = n
	}
	active := make(map[string]bool)
	for name := current; name != Root && !active[name]; {
		n, ok := byName[name]
		if !ok {
			break
		}
		active[name] = true
		name = n.Parent
	}

	doomed := make(map[string]bool)
	var order []string
	var mark func(name string)
	mark = func(name string) {
		if doomed[name] || active[name] {
			return
		}
		doomed[name] = true
		order = append(order, name)
		for _, child := range edges[name] {
			mark(child)
		}
	}
	for _, n := range nodes {
		if n.Superseded() {
			mark(n.Name)
		}
	}
	if len(order) == 0 {
		return nil, nil
	}

	err = s.withTx(ctx, func(tx *sql.Tx) error {
		for _, name := range order {
			if _, err := tx.ExecContext(ctx, `DELETE FROM node_edges WHERE parent = ? OR child = ?`, name, name); err != nil {
				return fmt.Errorf("delete edges of %s: %w", name, err)
			}
			if _, err := tx.ExecContext(ctx, `DELETE FROM nodes WHERE name = ?`, name); err != nil {
				return fmt.Errorf("delete node %s: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}
