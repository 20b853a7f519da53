package nodestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"openbst/internal/grid"
	"openbst/internal/identity"
)

// Node is one persisted correction step.
type Node struct {
	Name         string
	Kind         identity.Kind
	Hash         string
	Step         int
	Parent       string
	SupersededBy string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Identity returns the node's (kind, hash) pair.
func (n Node) Identity() identity.Identity {
	return identity.Identity{Kind: n.Kind, Hash: n.Hash}
}

// IsRoot reports whether the node hangs directly off the ROOT sentinel.
func (n Node) IsRoot() bool {
	return n.Parent == Root
}

// Superseded reports whether a modified sibling replaced this node.
func (n Node) Superseded() bool {
	return n.SupersededBy != ""
}

const nodeColumns = "name, kind, param_hash, step, parent, superseded_by, created_at, updated_at"

func scanNode(scanner interface{ Scan(dest ...any) error }) (*Node, error) {
	var (
		node         Node
		kind         string
		supersededBy sql.NullString
		createdRaw   string
		updatedRaw   string
	)
	if err := scanner.Scan(
		&node.Name,
		&kind,
		&node.Hash,
		&node.Step,
		&node.Parent,
		&supersededBy,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}
	node.Kind = identity.Kind(kind)
	node.SupersededBy = supersededBy.String
	if created, err := time.Parse(time.RFC3339Nano, createdRaw); err == nil {
		node.CreatedAt = created
	}
	if updated, err := time.Parse(time.RFC3339Nano, updatedRaw); err == nil {
		node.UpdatedAt = updated
	}
	return &node, nil
}

func scanNodes(rows *sql.Rows) ([]Node, error) {
	defer rows.Close()
	var nodes []Node
	for rows.Next() {
		node, err := scanNode(rows)
		if err != nil {
			return nil, fmt.Errorf("scan node: %w", err)
		}
		nodes = append(nodes, *node)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate nodes: %w", err)
	}
	return nodes, nil
}

// Count returns the number of persisted nodes.
func (s *Store) Count(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ensureContext(ctx), "SELECT COUNT(1) FROM nodes").Scan(&count); err != nil {
		return 0, fmt.Errorf("count nodes: %w", err)
	}
	return count, nil
}

// Node fetches a node by name. It returns nil when the node does not exist.
func (s *Store) Node(ctx context.Context, name string) (*Node, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), `SELECT `+nodeColumns+` FROM nodes WHERE name = ?`, name)
	node, err := scanNode(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get node: %w", err)
	}
	return node, nil
}

// Nodes lists every persisted node in insertion order.
func (s *Store) Nodes(ctx context.Context) ([]Node, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx), `SELECT `+nodeColumns+` FROM nodes ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("list nodes: %w", err)
	}
	return scanNodes(rows)
}

// FindByIdentity lists nodes with the given kind and parameter hash.
func (s *Store) FindByIdentity(ctx context.Context, id identity.Identity) ([]Node, error) {
	rows, err := s.db.QueryContext(
		ensureContext(ctx),
		`SELECT `+nodeColumns+` FROM nodes WHERE kind = ? AND param_hash = ? ORDER BY rowid`,
		string(id.Kind),
		id.Hash,
	)
	if err != nil {
		return nil, fmt.Errorf("find nodes by identity: %w", err)
	}
	return scanNodes(rows)
}

// Children returns the ordered child names of parent, which may be Root.
func (s *Store) Children(ctx context.Context, parent string) ([]string, error) {
	rows, err := s.db.QueryContext(
		ensureContext(ctx),
		`SELECT child FROM node_edges WHERE parent = ? ORDER BY position`,
		parent,
	)
	if err != nil {
		return nil, fmt.Errorf("list children: %w", err)
	}
	defer rows.Close()
	var children []string
	for rows.Next() {
		var child string
		if err := rows.Scan(&child); err != nil {
			return nil, fmt.Errorf("scan child: %w", err)
		}
		children = append(children, child)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate children: %w", err)
	}
	return children, nil
}

// Edges returns every parent to ordered children mapping in the store.
func (s *Store) Edges(ctx context.Context) (map[string][]string, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx), `SELECT parent, child FROM node_edges ORDER BY parent, position`)
	if err != nil {
		return nil, fmt.Errorf("list edges: %w", err)
	}
	defer rows.Close()
	edges := make(map[string][]string)
	for rows.Next() {
		var parent, child string
		if err := rows.Scan(&parent, &child); err != nil {
			return nil, fmt.Errorf("scan edge: %w", err)
		}
		edges[parent] = append(edges[parent], child)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate edges: %w", err)
	}
	return edges, nil
}

// Attributes returns the stored parameter attributes of a node.
func (s *Store) Attributes(ctx context.Context, name string) (map[string]string, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx), `SELECT key, value FROM node_attributes WHERE node = ?`, name)
	if err != nil {
		return nil, fmt.Errorf("list attributes: %w", err)
	}
	defer rows.Close()
	attrs := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("scan attribute: %w", err)
		}
		attrs[key] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attributes: %w", err)
	}
	return attrs, nil
}

// Variable loads a result grid. It returns nil when the node has no variable
// of that name.
func (s *Store) Variable(ctx context.Context, node, name string) (*grid.Grid, error) {
	var (
		rows, cols int
		data       []byte
	)
	err := s.db.QueryRowContext(
		ensureContext(ctx),
		`SELECT rows, cols, data FROM node_variables WHERE node = ? AND name = ?`,
		node,
		name,
	).Scan(&rows, &cols, &data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get variable %s/%s: %w", node, name, err)
	}
	g, err := grid.Decode(rows, cols, data)
	if err != nil {
		return nil, fmt.Errorf("decode variable %s/%s: %w", node, name, err)
	}
	return g, nil
}

// VariableShape describes a stored variable without loading its values.
type VariableShape struct {
	Name string
	Rows int
	Cols int
}

// Variables lists the variables stored on a node, sorted by name.
func (s *Store) Variables(ctx context.Context, node string) ([]VariableShape, error) {
	rows, err := s.db.QueryContext(
		ensureContext(ctx),
		`SELECT name, rows, cols FROM node_variables WHERE node = ?`,
		node,
	)
	if err != nil {
		return nil, fmt.Errorf("list variables: %w", err)
	}
	defer rows.Close()
	var shapes []VariableShape
	for rows.Next() {
		var shape VariableShape
		if err := rows.Scan(&shape.Name, &shape.Rows, &shape.Cols); err != nil {
			return nil, fmt.Errorf("scan variable: %w", err)
		}
		shapes = append(shapes, shape)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate variables: %w", err)
	}
	sort.Slice(shapes, func(i, j int) bool { return shapes[i].Name < shapes[j].Name })
	return shapes, nil
}

const currentKey = "current_node"

// Current returns the persisted session pointer, or Root when unset.
func (s *Store) Current(ctx context.Context) (string, error) {
	var value string
	err := s.db.QueryRowContext(ensureContext(ctx), `SELECT value FROM state WHERE key = ?`, currentKey).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return Root, nil
	}
	if err != nil {
		return "", fmt.Errorf("read current node: %w", err)
	}
	return value, nil
}

// SetCurrent persists the session pointer. Use Root after a reset.
func (s *Store) SetCurrent(ctx context.Context, name string) error {
	ctx = ensureContext(ctx)
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if name != Root {
			var exists int
			if err := tx.QueryRowContext(ctx, `SELECT COUNT(1) FROM nodes WHERE name = ?`, name).Scan(&exists); err != nil {
				return fmt.Errorf("check node: %w", err)
			}
			if exists == 0 {
				return fmt.Errorf("set current: node %q does not exist", name)
			}
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO state (key, value) VALUES (?, ?)
             ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
			currentKey, name,
		)
		if err != nil {
			return fmt.Errorf("write current node: %w", err)
		}
		return nil
	})
}
