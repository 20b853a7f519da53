package provenance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"openbst/internal/grid"
	"openbst/internal/identity"
	"openbst/internal/logging"
	"openbst/internal/nodestore"
)

var (
	// ErrInProgress indicates a computation was started while another is pending.
	ErrInProgress = errors.New("a computation is already in progress")
	// ErrNotInProgress indicates FinalizeProcess was called with nothing pending.
	ErrNotInProgress = errors.New("no computation in progress")
)

// Store is the node persistence the manager needs.
type Store interface {
	Count(ctx context.Context) (int, error)
	Node(ctx context.Context, name string) (*nodestore.Node, error)
	FindByIdentity(ctx context.Context, id identity.Identity) ([]nodestore.Node, error)
	Children(ctx context.Context, parent string) ([]string, error)
	Variable(ctx context.Context, node, name string) (*grid.Grid, error)
	Commit(ctx context.Context, c nodestore.Commit) error
	Revive(ctx context.Context, name string) (bool, error)
}

// Decision is the outcome of classifying one request.
type Decision struct {
	Status   Status
	Identity identity.Identity
	// Name is the node to create for computing statuses, or the existing node
	// the session moves to otherwise.
	Name string
	Step int
	// Parent is where a computed node attaches.
	Parent string
	// Replaces is the node a modified step supersedes.
	Replaces string
}

// Request asks for one correction step.
type Request struct {
	Identity   identity.Identity
	Attributes map[string]string
}

// Finder resolves a variable on the chain above the node being computed.
type Finder func(ctx context.Context, variable string) (*grid.Grid, error)

// ComputeFunc produces the output grids of a step.
type ComputeFunc func(ctx context.Context, find Finder) (map[string]*grid.Grid, error)

// Result reports what Run did.
type Result struct {
	Status   Status
	Computed bool
	// Node is the session parent after the call.
	Node string
	// MissingRequirement is set when the step was skipped because its
	// required predecessor is not on the chain.
	MissingRequirement identity.Kind
}

// Manager is a provenance session over one store.
type Manager struct {
	store  Store
	logger *slog.Logger

	step       int
	parent     string
	current    string
	inProgress bool
	status     Status
	pending    *Decision
}

// NewManager opens a session attached under parent, which may be
// nodestore.Root. The step is re-derived from the parent's name.
func NewManager(ctx context.Context, store Store, parent string, logger *slog.Logger) (*Manager, error) {
	if store == nil {
		return nil, errors.New("provenance manager requires a store")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	if parent == "" {
		parent = nodestore.Root
	}
	step, err := ParseStep(parent)
	if err != nil {
		return nil, err
	}
	if parent != nodestore.Root {
		node, err := store.Node(ctx, parent)
		if err != nil {
			return nil, err
		}
		if node == nil {
			return nil, fmt.Errorf("parent node %q does not exist", parent)
		}
	}
	return &Manager{
		store:  store,
		logger: logging.NewComponentLogger(logger, "provenance"),
		step:   step,
		parent: parent,
	}, nil
}

// Step returns the depth of the session parent.
func (m *Manager) Step() int { return m.step }

// Parent returns the node new work attaches under.
func (m *Manager) Parent() string { return m.parent }

// Current returns the name being computed, empty when idle.
func (m *Manager) Current() string { return m.current }

// InProgress reports whether a computation is pending finalization.
func (m *Manager) InProgress() bool { return m.inProgress }

// Status returns the last classification.
func (m *Manager) Status() Status { return m.status }

// Reset re-points the session at ROOT.
func (m *Manager) Reset() {
	m.Abort()
	m.step = 0
	m.parent = nodestore.Root
	m.status = 0
}

// Abort discards any pending computation without touching the parent pointer.
func (m *Manager) Abort() {
	m.inProgress = false
	m.current = ""
	m.pending = nil
}

// CheckForProcess classifies a request against the persisted tree.
func (m *Manager) CheckForProcess(ctx context.Context, id identity.Identity) (Decision, error) {
	count, err := m.store.Count(ctx)
	if err != nil {
		return Decision{}, err
	}
	if count == 0 {
		return rootDecision(id), nil
	}
	if m.parent == nodestore.Root {
		return m.classifyAfterReset(ctx, id)
	}
	return m.classifyFromParent(ctx, id)
}

func rootDecision(id identity.Identity) Decision {
	return Decision{
		Status:   StatusRootNode,
		Identity: id,
		Name:     NodeName(0, id),
		Step:     0,
		Parent:   nodestore.Root,
	}
}

func (m *Manager) classifyAfterReset(ctx context.Context, id identity.Identity) (Decision, error) {
	matches, err := m.store.FindByIdentity(ctx, id)
	if err != nil {
		return Decision{}, err
	}
	for _, match := range matches {
		if match.IsRoot() {
			return Decision{Status: StatusOldRootNode, Identity: id, Name: match.Name, Step: match.Step}, nil
		}
	}
	return rootDecision(id), nil
}

func (m *Manager) classifyFromParent(ctx context.Context, id identity.Identity) (Decision, error) {
	parent, err := m.store.Node(ctx, m.parent)
	if err != nil {
		return Decision{}, err
	}
	if parent == nil {
		return Decision{}, fmt.Errorf("session parent %q is missing from the store", m.parent)
	}

	if parent.Kind == id.Kind {
		if parent.Hash == id.Hash {
			return Decision{Status: StatusCurrentNode, Identity: id, Name: parent.Name, Step: parent.Step}, nil
		}
		return modifiedDecision(id, parent), nil
	}

	ancestor, err := m.FindKindInAncestors(ctx, parent.Parent, id.Kind)
	if err != nil {
		return Decision{}, err
	}
	if ancestor != nil {
		// Any step of this kind further up the chain wins, whatever its
		// settings. The session returns there instead of recomputing.
		return Decision{Status: StatusAncestorNode, Identity: id, Name: ancestor.Name, Step: ancestor.Step}, nil
	}

	children, err := m.store.Children(ctx, m.parent)
	if err != nil {
		return Decision{}, err
	}
	for _, name := range children {
		child, err := m.store.Node(ctx, name)
		if err != nil {
			return Decision{}, err
		}
		if child != nil && child.Identity().Equal(id) {
			return Decision{Status: StatusChildNode, Identity: id, Name: child.Name, Step: child.Step}, nil
		}
	}

	return Decision{
		Status:   StatusNewNode,
		Identity: id,
		Name:     NodeName(m.step+1, id),
		Step:     m.step + 1,
		Parent:   m.parent,
	}, nil
}

// modifiedDecision replaces target with a sibling that has new settings.
func modifiedDecision(id identity.Identity, target *nodestore.Node) Decision {
	return Decision{
		Status:   StatusModifiedCurrentNode,
		Identity: id,
		Name:     NodeName(target.Step, id),
		Step:     target.Step,
		Parent:   target.Parent,
		Replaces: target.Name,
	}
}

// StartProcess acts on a decision. Short-circuit statuses move the parent
// pointer and return false. Computing statuses check the required
// predecessor; when it is missing the step is skipped with a warning and
// false is returned. Otherwise the computation is marked in progress and
// true is returned.
func (m *Manager) StartProcess(ctx context.Context, dec Decision) (bool, error) {
	if !dec.Status.Valid() {
		return false, fmt.Errorf("%w: %v", ErrInvalidStatus, dec.Status)
	}
	if m.inProgress {
		return false, fmt.Errorf("%w: %s", ErrInProgress, m.current)
	}
	logger := logging.WithContext(ctx, m.logger)
	m.status = dec.Status

	if !dec.Status.Computes() {
		if dec.Status != StatusCurrentNode {
			revived, err := m.store.Revive(ctx, dec.Name)
			if err != nil {
				return false, err
			}
			if revived {
				logger.Info("superseded process revived",
					logging.String(logging.FieldStatus, dec.Status.String()),
					logging.String(logging.FieldNode, dec.Name),
				)
			}
			m.parent = dec.Name
			m.step = dec.Step
		}
		logger.Info("process already computed",
			logging.String(logging.FieldStatus, dec.Status.String()),
			logging.String(logging.FieldKind, string(dec.Identity.Kind)),
			logging.String(logging.FieldNode, m.parent),
		)
		return false, nil
	}

	ok, err := m.CheckRequirements(ctx, dec.Identity.Kind, dec.Parent)
	if err != nil {
		return false, err
	}
	if !ok {
		req, _ := Requirement(dec.Identity.Kind)
		logging.WarnWithContext(logger, "process requirement not met", "provenance_requirement",
			logging.String(logging.FieldKind, string(dec.Identity.Kind)),
			logging.String("required_kind", string(req)),
			logging.String(logging.FieldNode, dec.Parent),
			logging.String(logging.FieldErrorHint, "run "+string(req)+" first"),
			logging.String(logging.FieldImpact, "step was not computed"),
		)
		m.Abort()
		return false, nil
	}

	name, err := m.resolveName(ctx, dec.Name, dec.Parent)
	if err != nil {
		return false, err
	}
	dec.Name = name
	m.pending = &dec
	m.current = name
	m.inProgress = true
	logger.Info("process started",
		logging.String(logging.FieldStatus, dec.Status.String()),
		logging.String(logging.FieldKind, string(dec.Identity.Kind)),
		logging.String(logging.FieldNode, name),
		logging.Int(logging.FieldStep, dec.Step),
	)
	return true, nil
}

// resolveName returns base, or a branch-suffixed variant when base already
// exists under a different parent.
func (m *Manager) resolveName(ctx context.Context, base, parent string) (string, error) {
	name := base
	for attempt := 0; attempt < 2; attempt++ {
		existing, err := m.store.Node(ctx, name)
		if err != nil {
			return "", err
		}
		if existing == nil || existing.Parent == parent {
			return name, nil
		}
		name = branchName(base, parent)
	}
	return "", fmt.Errorf("%w: %s", nodestore.ErrNameConflict, base)
}

// FinalizeProcess commits the pending node with its attributes and outputs
// and advances the session to it.
func (m *Manager) FinalizeProcess(ctx context.Context, attrs map[string]string, outputs map[string]*grid.Grid) error {
	if !m.inProgress || m.pending == nil {
		return ErrNotInProgress
	}
	dec := *m.pending
	if !dec.Status.Computes() {
		m.Abort()
		return fmt.Errorf("%w: cannot finalize %v", ErrInvalidStatus, dec.Status)
	}

	commit := nodestore.Commit{
		Name:       m.current,
		Kind:       dec.Identity.Kind,
		Hash:       dec.Identity.Hash,
		Step:       dec.Step,
		Parent:     dec.Parent,
		Attributes: attrs,
		Variables:  outputs,
		Supersedes: dec.Replaces,
	}
	if err := m.store.Commit(ctx, commit); err != nil {
		m.Abort()
		return err
	}

	m.parent = m.current
	m.step = dec.Step
	m.Abort()
	logging.WithContext(ctx, m.logger).Info("process finalized",
		logging.String(logging.FieldStatus, dec.Status.String()),
		logging.String(logging.FieldNode, m.parent),
		logging.String("parent_process", dec.Parent),
		logging.Int("variables", len(outputs)),
	)
	return nil
}

// Run classifies req and computes it when required.
func (m *Manager) Run(ctx context.Context, req Request, compute ComputeFunc) (Result, error) {
	dec, err := m.CheckForProcess(ctx, req.Identity)
	if err != nil {
		return Result{}, err
	}
	proceed, err := m.StartProcess(ctx, dec)
	if err != nil {
		return Result{Status: dec.Status, Node: m.parent}, err
	}
	if !proceed {
		res := Result{Status: dec.Status, Node: m.parent}
		if dec.Status.Computes() {
			res.MissingRequirement, _ = Requirement(dec.Identity.Kind)
		}
		return res, nil
	}

	attach := dec.Parent
	outputs, err := compute(ctx, func(ctx context.Context, variable string) (*grid.Grid, error) {
		g, _, err := m.FindInAncestors(ctx, attach, variable)
		return g, err
	})
	if err != nil {
		m.Abort()
		return Result{Status: dec.Status, Node: m.parent}, err
	}
	if err := m.FinalizeProcess(ctx, req.Attributes, outputs); err != nil {
		return Result{Status: dec.Status, Node: m.parent}, err
	}
	return Result{Status: dec.Status, Computed: true, Node: m.parent}, nil
}
