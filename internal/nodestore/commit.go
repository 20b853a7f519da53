package nodestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"openbst/internal/grid"
	"openbst/internal/identity"
)

// ErrNameConflict indicates a node name is already taken under a different parent.
var ErrNameConflict = errors.New("node name already used under a different parent")

// Commit describes one node write.
type Commit struct {
	Name       string
	Kind       identity.Kind
	Hash       string
	Step       int
	Parent     string
	Attributes map[string]string
	Variables  map[string]*grid.Grid
	// Supersedes names a sibling this node replaces. The sibling stays in the
	// store, marked as superseded.
	Supersedes string
}

type encodedVariable struct {
	name string
	rows int
	cols int
	data []byte
}

func (c Commit) validate() error {
	switch {
	case strings.TrimSpace(c.Name) == "":
		return errors.New("commit: node name is required")
	case c.Name == Root:
		return errors.New("commit: ROOT is reserved")
	case c.Kind == "":
		return errors.New("commit: kind is required")
	case c.Hash == "":
		return errors.New("commit: parameter hash is required")
	case c.Parent == "":
		return errors.New("commit: parent is required")
	case c.Parent == c.Name:
		return errors.New("commit: node cannot be its own parent")
	}
	return nil
}

func (c Commit) encodeVariables() ([]encodedVariable, error) {
	names := make([]string, 0, len(c.Variables))
	for name := range c.Variables {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([]encodedVariable, 0, len(names))
	for _, name := range names {
		g := c.Variables[name]
		if g == nil {
			continue
		}
		data, err := g.MarshalBinary()
		if err != nil {
			return nil, fmt.Errorf("encode variable %s: %w", name, err)
		}
		out = append(out, encodedVariable{name: name, rows: g.Rows, cols: g.Cols, data: data})
	}
	return out, nil
}

// Commit writes a node with its attributes, variables and parent edge in a
// single transaction. Committing an existing name under the same parent
// replaces its attributes and variables and keeps its position among the
// parent's children.
func (s *Store) Commit(ctx context.Context, c Commit) error {
	if err := c.validate(); err != nil {
		return err
	}
	vars, err := c.encodeVariables()
	if err != nil {
		return err
	}
	ctx = ensureContext(ctx)
	now := time.Now().UTC().Format(time.RFC3339Nano)

	return s.withTx(ctx, func(tx *sql.Tx) error {
		if c.Parent != Root {
			var exists int
			if err := tx.QueryRowContext(ctx, `SELECT COUNT(1) FROM nodes WHERE name = ?`, c.Parent).Scan(&exists); err != nil {
				return fmt.Errorf("check parent: %w", err)
			}
			if exists == 0 {
				return fmt.Errorf("commit %s: parent %q does not exist", c.Name, c.Parent)
			}
		}

		var existingParent string
		err := tx.QueryRowContext(ctx, `SELECT parent FROM nodes WHERE name = ?`, c.Name).Scan(&existingParent)
		switch {
		case errors.Is(err, sql.ErrNoRows):
		case err != nil:
			return fmt.Errorf("check node: %w", err)
		case existingParent != c.Parent:
			return fmt.Errorf("%w: %s is a child of %s", ErrNameConflict, c.Name, existingParent)
		}

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO nodes (name, kind, param_hash, step, parent, superseded_by, created_at, updated_at)
             VALUES (?, ?, ?, ?, ?, NULL, ?, ?)
             ON CONFLICT(name) DO UPDATE SET
                 step = excluded.step,
                 superseded_by = NULL,
                 updated_at = excluded.updated_at`,
			c.Name, string(c.Kind), c.Hash, c.Step, c.Parent, now, now,
		); err != nil {
			return fmt.Errorf("write node: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM node_attributes WHERE node = ?`, c.Name); err != nil {
			return fmt.Errorf("clear attributes: %w", err)
		}
		for key, value := range c.Attributes {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO node_attributes (node, key, value) VALUES (?, ?, ?)`,
				c.Name, key, value,
			); err != nil {
				return fmt.Errorf("write attribute %s: %w", key, err)
			}
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM node_variables WHERE node = ?`, c.Name); err != nil {
			return fmt.Errorf("clear variables: %w", err)
		}
		for _, v := range vars {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO node_variables (node, name, rows, cols, data) VALUES (?, ?, ?, ?, ?)`,
				c.Name, v.name, v.rows, v.cols, v.data,
			); err != nil {
				return fmt.Errorf("write variable %s: %w", v.name, err)
			}
		}

		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO node_edges (parent, child, position)
             SELECT ?, ?, COALESCE(MAX(position) + 1, 0) FROM node_edges WHERE parent = ?`,
			c.Parent, c.Name, c.Parent,
		); err != nil {
			return fmt.Errorf("write edge: %w", err)
		}

		if c.Supersedes != "" && c.Supersedes != c.Name {
			if _, err := tx.ExecContext(ctx,
				`UPDATE nodes SET superseded_by = ?, updated_at = ? WHERE name = ?`,
				c.Name, now, c.Supersedes,
			); err != nil {
				return fmt.Errorf("mark superseded: %w", err)
			}
		}
		return nil
	})
}

// Revive clears the superseded mark on name. It reports whether the node
// was superseded.
func (s *Store) Revive(ctx context.Context, name string) (bool, error) {
	ctx = ensureContext(ctx)
	res, err := s.db.ExecContext(ctx,
		`UPDATE nodes SET superseded_by = NULL, updated_at = ? WHERE name = ? AND superseded_by IS NOT NULL`,
		time.Now().UTC().Format(time.RFC3339Nano), name,
	)
	if err != nil {
		return false, fmt.Errorf("revive %s: %w", name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("revive %s: %w", name, err)
	}
	return n > 0, nil
}
