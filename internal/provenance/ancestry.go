package provenance

import (
	"context"
	"errors"
	"fmt"

	"openbst/internal/grid"
	"openbst/internal/identity"
	"openbst/internal/nodestore"
)

// maxAncestorDepth bounds ancestor walks. Node names carry a two-digit step,
// so a sound tree is far shallower.
const maxAncestorDepth = 1000

// ErrStoreCycle indicates parent pointers that loop or never reach ROOT.
var ErrStoreCycle = errors.New("provenance tree contains a cycle")

// walkAncestors visits start and each of its ancestors up to ROOT, stopping
// when fn returns true.
func (m *Manager) walkAncestors(ctx context.Context, start string, fn func(*nodestore.Node) bool) error {
	visited := make(map[string]bool)
	name := start
	for depth := 0; name != nodestore.Root; depth++ {
		if visited[name] || depth >= maxAncestorDepth {
			return fmt.Errorf("%w: at %s", ErrStoreCycle, name)
		}
		visited[name] = true
		node, err := m.store.Node(ctx, name)
		if err != nil {
			return err
		}
		if node == nil {
			return fmt.Errorf("ancestor %q of %q is missing from the store", name, start)
		}
		if fn(node) {
			return nil
		}
		name = node.Parent
	}
	return nil
}

// FindKindInAncestors returns the nearest node of kind on the chain from start
// to ROOT, start included. It returns nil when the chain has none.
func (m *Manager) FindKindInAncestors(ctx context.Context, start string, kind identity.Kind) (*nodestore.Node, error) {
	var found *nodestore.Node
	err := m.walkAncestors(ctx, start, func(n *nodestore.Node) bool {
		if n.Kind == kind {
			found = n
			return true
		}
		return false
	})
	if err != nil {
		return nil, err
	}
	return found, nil
}

// FindInAncestors returns the nearest copy of a variable on the chain from
// start to ROOT, start included, along with the node holding it. Reaching ROOT
// without a match returns a nil grid and no error.
func (m *Manager) FindInAncestors(ctx context.Context, start, variable string) (*grid.Grid, string, error) {
	var (
		found  *grid.Grid
		holder string
		getErr error
	)
	err := m.walkAncestors(ctx, start, func(n *nodestore.Node) bool {
		g, err := m.store.Variable(ctx, n.Name, variable)
		if err != nil {
			getErr = err
			return true
		}
		if g != nil {
			found, holder = g, n.Name
			return true
		}
		return false
	})
	if err != nil {
		return nil, "", err
	}
	if getErr != nil {
		return nil, "", getErr
	}
	return found, holder, nil
}

// Path returns the chain from the root-level node down to name.
func (m *Manager) Path(ctx context.Context, name string) ([]nodestore.Node, error) {
	var chain []nodestore.Node
	if err := m.walkAncestors(ctx, name, func(n *nodestore.Node) bool {
		chain = append(chain, *n)
		return false
	}); err != nil {
		return nil, err
	}
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain, nil
}

// requirements maps each kind to the kind that must precede it.
var requirements = map[identity.Kind]identity.Kind{
	identity.KindStaticGain:       identity.KindRawDecoding,
	identity.KindSourceLevel:      identity.KindRawDecoding,
	identity.KindTVGGain:          identity.KindRawDecoding,
	identity.KindTransmissionLoss: identity.KindRawDecoding,
	identity.KindAreaCorrection:   identity.KindRawDecoding,
	identity.KindCalibration:      identity.KindRawDecoding,
	identity.KindGeolocation:      identity.KindRawDecoding,
}

// Requirement returns the kind that must precede kind, if any.
func Requirement(kind identity.Kind) (identity.Kind, bool) {
	req, ok := requirements[kind]
	return req, ok
}

// CheckRequirements reports whether kind's required predecessor is on the
// chain from parent to ROOT.
func (m *Manager) CheckRequirements(ctx context.Context, kind identity.Kind, parent string) (bool, error) {
	req, ok := requirements[kind]
	if !ok {
		return true, nil
	}
	node, err := m.FindKindInAncestors(ctx, parent, req)
	if err != nil {
		return false, err
	}
	return node != nil, nil
}
