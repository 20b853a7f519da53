package processing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"openbst/internal/config"
	"openbst/internal/corrections"
	"openbst/internal/grid"
	"openbst/internal/identity"
	"openbst/internal/logging"
	"openbst/internal/nodestore"
	"openbst/internal/provenance"
	"openbst/internal/s7k"
	"openbst/internal/services"
)

// Attribute keys the runner adds next to the parameter settings.
const (
	AttrRunID   = "run_id"
	AttrRawFile = "raw_file"
	AttrMethod  = "method_type"
)

// Options configures a Runner.
type Options struct {
	Config *config.Config
	Store  *nodestore.Store
	Logger *slog.Logger
	// RawPath is the s7k container raw decoding reads. It may be empty when
	// no raw decoding step needs computing.
	RawPath string
}

// StepResult reports one step of a chain.
type StepResult struct {
	Kind     identity.Kind
	Identity identity.Identity
	provenance.Result
	// Skipped holds the reason a computing step produced nothing.
	Skipped string
}

// Runner executes correction steps for one invocation.
type Runner struct {
	cfg     *config.Config
	store   *nodestore.Store
	logger  *slog.Logger
	manager *provenance.Manager
	runID   string
	rawPath string

	rawSource string
	raw       *s7k.File
	survey *corrections.Survey
}

// NewRunner opens a provenance session at the store's persisted current node.
func NewRunner(ctx context.Context, opts Options) (*Runner, error) {
	if opts.Store == nil {
		return nil, errors.New("node store is required")
	}
	if opts.Config == nil {
		return nil, services.Wrap(services.ErrConfiguration, "processing", "init", "configuration unavailable", nil)
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logging.NewComponentLogger(logger, "processing")

	current, err := opts.Store.Current(ctx)
	if err != nil {
		return nil, fmt.Errorf("load current node: %w", err)
	}
	manager, err := provenance.NewManager(ctx, opts.Store, current, logger)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "processing", "init",
			"current node is not usable; run reset", err)
	}
	return &Runner{
		cfg:     opts.Config,
		store:   opts.Store,
		logger:  logger,
		manager: manager,
		runID:   uuid.NewString(),
		rawPath: strings.TrimSpace(opts.RawPath),
	}, nil
}

// RunID identifies this invocation in logs and node attributes.
func (r *Runner) RunID() string { return r.runID }

// Current returns the session's current node.
func (r *Runner) Current() string { return r.manager.Parent() }

// ActivePath returns the chain from the root-level node down to the current
// node. It is empty at ROOT.
func (r *Runner) ActivePath(ctx context.Context) ([]nodestore.Node, error) {
	return r.manager.Path(ctx, r.manager.Parent())
}

// Close releases the raw container when one was opened.
func (r *Runner) Close() error {
	if r.raw == nil {
		return nil
	}
	err := r.raw.Close()
	r.raw = nil
	return err
}

// Reset re-points the session and the persisted current node at ROOT.
func (r *Runner) Reset(ctx context.Context) error {
	r.manager.Reset()
	if err := r.store.SetCurrent(ctx, nodestore.Root); err != nil {
		return fmt.Errorf("persist reset: %w", err)
	}
	logging.WithContext(services.WithRunID(ctx, r.runID), r.logger).Info("session reset",
		logging.String(logging.FieldEventType, "session_reset"),
	)
	return nil
}

// Run requests one correction step. Missing prerequisites and missing
// upstream data are reported through StepResult with a nil error.
func (r *Runner) Run(ctx context.Context, params corrections.Params) (StepResult, error) {
	if raw, ok := params.(corrections.RawDecodeParams); ok {
		source, err := r.fingerprint(ctx)
		if err != nil {
			return StepResult{}, err
		}
		raw.Source = source
		params = raw
	}
	id, err := corrections.Identifiers(params)
	if err != nil {
		return StepResult{}, err
	}
	attrs, err := corrections.Attributes(params)
	if err != nil {
		return StepResult{}, err
	}
	attrs[AttrRunID] = r.runID
	if id.Kind == identity.KindRawDecoding && r.rawPath != "" {
		attrs[AttrRawFile] = r.rawPath
	}

	ctx = services.WithRunID(ctx, r.runID)
	ctx = services.WithKind(ctx, string(id.Kind))
	logger := logging.WithContext(ctx, r.logger)
	logger.Info("step requested",
		logging.String(logging.FieldEventType, "step_start"),
		logging.String(AttrMethod, params.MethodName()),
		logging.String(logging.FieldNode, r.manager.Parent()),
	)

	res, err := r.manager.Run(ctx, provenance.Request{Identity: id, Attributes: attrs}, r.compute(params))
	step := StepResult{Kind: id.Kind, Identity: id, Result: res}
	switch {
	case errors.Is(err, corrections.ErrMissingInput):
		step.Skipped = err.Error()
		logging.WarnWithContext(logger, "step skipped", "step_skipped",
			logging.String(logging.FieldStatus, res.Status.String()),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "run the steps that produce the missing data first"),
			logging.String(logging.FieldImpact, "no node was created"),
		)
	case err != nil:
		logger.Error("step failed",
			logging.String(logging.FieldEventType, "step_failure"),
			logging.String(logging.FieldStatus, res.Status.String()),
			logging.Error(err),
		)
		return step, err
	case res.MissingRequirement != "":
		step.Skipped = fmt.Sprintf("requires %s", res.MissingRequirement)
	}

	if err := r.store.SetCurrent(ctx, r.manager.Parent()); err != nil {
		return step, fmt.Errorf("persist current node: %w", err)
	}
	logger.Info("step completed",
		logging.String(logging.FieldEventType, "step_complete"),
		logging.String(logging.FieldStatus, res.Status.String()),
		logging.String(logging.FieldNode, res.Node),
		logging.Int(logging.FieldStep, r.manager.Step()),
		logging.Bool("computed", res.Computed),
	)
	return step, nil
}

// Chain runs steps in order. Skipped steps do not stop the chain; the first
// error does.
func (r *Runner) Chain(ctx context.Context, steps []corrections.Params) ([]StepResult, error) {
	results := make([]StepResult, 0, len(steps))
	for _, params := range steps {
		res, err := r.Run(ctx, params)
		results = append(results, res)
		if err != nil {
			return results, fmt.Errorf("%s: %w", params.Kind(), err)
		}
	}
	return results, nil
}

func (r *Runner) compute(params corrections.Params) provenance.ComputeFunc {
	return func(ctx context.Context, find provenance.Finder) (map[string]*grid.Grid, error) {
		in := corrections.Input{Find: corrections.VariableLookup(find)}
		if params.Kind() == identity.KindRawDecoding {
			survey, err := r.loadSurvey(ctx)
			if err != nil {
				return nil, err
			}
			in.Survey = survey
		}
		return corrections.Apply(ctx, in, params)
	}
}

// fingerprint returns the raw file fingerprint, empty when no file was given.
func (r *Runner) fingerprint(ctx context.Context) (string, error) {
	if r.rawPath == "" || r.rawSource != "" {
		return r.rawSource, nil
	}
	source, err := FingerprintRaw(ctx, r.rawPath)
	if err != nil {
		return "", services.Wrap(services.ErrNotFound, "processing", "raw decoding", "fingerprint raw file", err)
	}
	r.rawSource = source
	return source, nil
}

func (r *Runner) loadSurvey(ctx context.Context) (*corrections.Survey, error) {
	if r.survey != nil {
		return r.survey, nil
	}
	if r.rawPath == "" {
		return nil, services.Wrap(services.ErrValidation, "processing", "raw decoding",
			"raw decoding needs an s7k file (--raw)", nil)
	}
	if r.raw == nil {
		f, err := s7k.Open(r.rawPath, r.logger)
		if err != nil {
			return nil, services.Wrap(services.ErrNotFound, "processing", "raw decoding", "open raw file", err)
		}
		r.raw = f
	}
	survey, err := LoadSurvey(ctx, r.raw, r.logger)
	if err != nil {
		return nil, err
	}
	r.survey = survey
	return survey, nil
}
