package processing_test

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"openbst/internal/config"
	"openbst/internal/corrections"
	"openbst/internal/identity"
	"openbst/internal/nodestore"
	"openbst/internal/processing"
	"openbst/internal/provenance"
	"openbst/internal/s7k"
	"openbst/internal/services"
	"openbst/internal/testsupport"
)

const tolerance = 1e-4

func surveyFile(t *testing.T, pings, beams int) string {
	t.Helper()
	w := testsupport.NewS7KWriter(t)
	testsupport.WriteSurvey(w, pings, beams)
	return w.WriteFile("survey.s7k")
}

func newRunner(t *testing.T, cfg *config.Config, store *nodestore.Store, raw string) *processing.Runner {
	t.Helper()
	runner, err := processing.NewRunner(context.Background(), processing.Options{Config: cfg, Store: store, RawPath: raw})
	if err != nil {
		t.Fatalf("NewRunner: %v", err)
	}
	t.Cleanup(func() { _ = runner.Close() })
	return runner
}

func params(t *testing.T, cfg *config.Config, kind identity.Kind, method string) corrections.Params {
	t.Helper()
	p, err := processing.ParametersFromConfig(cfg, kind, method)
	if err != nil {
		t.Fatalf("ParametersFromConfig(%s): %v", kind, err)
	}
	return p
}

func assertBackscatter(t *testing.T, store *nodestore.Store, node string, want float64) {
	t.Helper()
	g, err := store.Variable(context.Background(), node, corrections.VarBackscatter)
	if err != nil {
		t.Fatalf("Variable: %v", err)
	}
	if g == nil {
		t.Fatalf("node %s has no backscatter", node)
	}
	for i, v := range g.Data {
		if math.Abs(v-want) > tolerance {
			t.Fatalf("node %s cell %d = %v, want %v", node, i, v, want)
		}
	}
}

func TestLoadSurveyJoinsRecordsByPing(t *testing.T) {
	f, err := s7k.Open(surveyFile(t, 3, 4), nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer f.Close()

	survey, err := processing.LoadSurvey(context.Background(), f, nil)
	if err != nil {
		t.Fatalf("LoadSurvey: %v", err)
	}
	if survey.Beams != 4 || len(survey.Pings) != 3 {
		t.Fatalf("unexpected survey shape: beams=%d pings=%d", survey.Beams, len(survey.Pings))
	}

	p := survey.Pings[1]
	if p.Number != 2 {
		t.Fatalf("ping number %d, want 2", p.Number)
	}
	if want := testsupport.SurveyStart.Add(100 * time.Millisecond).UnixMilli(); p.Time != want {
		t.Fatalf("ping time %d, want %d", p.Time, want)
	}
	if len(p.Detections) != 4 || p.Snippet == nil || len(p.TVG) != 256 {
		t.Fatalf("records not joined: detections=%d snippet=%v tvg=%d", len(p.Detections), p.Snippet != nil, len(p.TVG))
	}
	if p.SampleRate != 1000 {
		t.Fatalf("sample rate %v, want 1000", p.SampleRate)
	}
	checks := map[string][2]float64{
		"latitude":  {p.Latitude, 45.00001},
		"longitude": {p.Longitude, -63},
		"heading":   {p.Heading, 90},
		"roll":      {p.Roll, 0.01 * 180 / math.Pi},
	}
	for name, c := range checks {
		if math.Abs(c[0]-c[1]) > tolerance {
			t.Fatalf("%s = %v, want %v", name, c[0], c[1])
		}
	}
}

func TestLoadSurveyInterpolatesHeadingAcrossNorth(t *testing.T) {
	w := testsupport.NewS7KWriter(t)
	start := testsupport.SurveyStart
	w.Add(start, &s7k.Heading{Heading: float32(359 * math.Pi / 180)})
	w.Add(start.Add(time.Second), &s7k.Heading{Heading: float32(1 * math.Pi / 180)})
	w.Add(start.Add(500*time.Millisecond), &s7k.SonarSettings{PingNumber: 1})
	w.Add(start.Add(2*time.Second), &s7k.SonarSettings{PingNumber: 2})

	f, err := s7k.Open(w.WriteFile("heading.s7k"), nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer f.Close()

	survey, err := processing.LoadSurvey(context.Background(), f, nil)
	if err != nil {
		t.Fatalf("LoadSurvey: %v", err)
	}
	mid := survey.Pings[0].Heading
	if d := math.Min(mid, 360-mid); d > 1e-3 {
		t.Fatalf("heading between 359 and 1 = %v, want 0", mid)
	}
	if late := survey.Pings[1].Heading; math.Abs(late-1) > 1e-3 {
		t.Fatalf("heading after last fix = %v, want 1", late)
	}
	if !math.IsNaN(survey.Pings[0].Latitude) {
		t.Fatalf("latitude without positions = %v, want NaN", survey.Pings[0].Latitude)
	}
}

func TestRunnerComputesChainAndPersistsCurrent(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()
	runner := newRunner(t, cfg, store, surveyFile(t, 3, 4))

	results, err := runner.Chain(ctx, []corrections.Params{
		params(t, cfg, identity.KindRawDecoding, ""),
		params(t, cfg, identity.KindStaticGain, ""),
		params(t, cfg, identity.KindSourceLevel, ""),
	})
	if err != nil {
		t.Fatalf("Chain: %v", err)
	}
	want := []provenance.Status{provenance.StatusRootNode, provenance.StatusNewNode, provenance.StatusNewNode}
	for i, res := range results {
		if res.Status != want[i] || !res.Computed {
			t.Fatalf("step %d: status=%v computed=%v", i, res.Status, res.Computed)
		}
	}

	raw, gain, level := results[0].Node, results[1].Node, results[2].Node
	assertBackscatter(t, store, raw, testsupport.SurveySnippetLevel)
	assertBackscatter(t, store, gain, testsupport.SurveySnippetLevel-30)
	assertBackscatter(t, store, level, testsupport.SurveySnippetLevel-30-220)

	current, err := store.Current(ctx)
	if err != nil {
		t.Fatalf("Current: %v", err)
	}
	if current != level || runner.Current() != level {
		t.Fatalf("current = %q (runner %q), want %q", current, runner.Current(), level)
	}
	path, err := runner.ActivePath(ctx)
	if err != nil {
		t.Fatalf("ActivePath: %v", err)
	}
	if len(path) != 3 || path[0].Name != raw || path[2].Name != level {
		t.Fatalf("unexpected active path %+v", path)
	}

	attrs, err := store.Attributes(ctx, raw)
	if err != nil {
		t.Fatalf("Attributes: %v", err)
	}
	if attrs[processing.AttrRunID] != runner.RunID() || attrs[processing.AttrRawFile] == "" {
		t.Fatalf("run attributes missing: %v", attrs)
	}
	if attrs["method_type"] != "snippet_power_mean" {
		t.Fatalf("method attribute %q", attrs["method_type"])
	}

	// A later invocation resumes from the persisted node.
	next := newRunner(t, cfg, store, "")
	if next.Current() != level {
		t.Fatalf("resumed at %q, want %q", next.Current(), level)
	}
	if next.RunID() == runner.RunID() {
		t.Fatal("run ids should differ between invocations")
	}
	res, err := next.Run(ctx, params(t, cfg, identity.KindStaticGain, ""))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Status != provenance.StatusAncestorNode || res.Computed || res.Node != gain {
		t.Fatalf("expected ancestor move to %s, got %+v", gain, res)
	}
}

func TestRunnerResetRevisitsOldRoot(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()
	runner := newRunner(t, cfg, store, surveyFile(t, 2, 3))
	raw := params(t, cfg, identity.KindRawDecoding, "")

	first, err := runner.Run(ctx, raw)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if err := runner.Reset(ctx); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if current, _ := store.Current(ctx); current != nodestore.Root {
		t.Fatalf("current after reset = %q", current)
	}

	again, err := runner.Run(ctx, raw)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if again.Status != provenance.StatusOldRootNode || again.Computed || again.Node != first.Node {
		t.Fatalf("expected OLDROOTNODE back to %s, got %+v", first.Node, again)
	}
	if count, _ := store.Count(ctx); count != 1 {
		t.Fatalf("expected one node, got %d", count)
	}
}

func TestRunnerRecomputesForDifferentRawFile(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()
	raw := params(t, cfg, identity.KindRawDecoding, "")

	first, err := newRunner(t, cfg, store, surveyFile(t, 2, 3)).Run(ctx, raw)
	if err != nil {
		t.Fatalf("Run a: %v", err)
	}

	second, err := newRunner(t, cfg, store, surveyFile(t, 5, 4)).Run(ctx, raw)
	if err != nil {
		t.Fatalf("Run b: %v", err)
	}
	if !second.Computed || second.Node == first.Node {
		t.Fatalf("second file reused %s: %+v", first.Node, second)
	}
	if second.Identity.Hash == first.Identity.Hash {
		t.Fatal("different raw files share a parameter hash")
	}
	g, err := store.Variable(ctx, second.Node, corrections.VarBackscatter)
	if err != nil || g == nil {
		t.Fatalf("Variable: %v, %v", g, err)
	}
	if g.Rows != 5 || g.Cols != 4 {
		t.Fatalf("grid shape = %dx%d, want 5x4", g.Rows, g.Cols)
	}

	// Reset then decoding the first file again returns to its root.
	runner := newRunner(t, cfg, store, surveyFile(t, 2, 3))
	if err := runner.Reset(ctx); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	again, err := runner.Run(ctx, raw)
	if err != nil {
		t.Fatalf("Run a again: %v", err)
	}
	if again.Status != provenance.StatusOldRootNode || again.Node != first.Node {
		t.Fatalf("expected OLDROOTNODE back to %s, got %+v", first.Node, again)
	}
}

func TestRunnerSoftFailures(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	t.Run("missing requirement", func(t *testing.T) {
		runner := newRunner(t, cfg, store, "")
		res, err := runner.Run(ctx, params(t, cfg, identity.KindTransmissionLoss, ""))
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
		if res.Computed || res.MissingRequirement != identity.KindRawDecoding || res.Skipped == "" {
			t.Fatalf("expected skipped step, got %+v", res)
		}
	})

	t.Run("no pings in raw file", func(t *testing.T) {
		w := testsupport.NewS7KWriter(t)
		w.Add(testsupport.SurveyStart, &s7k.Position{Latitude: 0.7})
		runner := newRunner(t, cfg, store, w.WriteFile("empty.s7k"))
		res, err := runner.Run(ctx, params(t, cfg, identity.KindRawDecoding, ""))
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
		if res.Computed || res.Skipped == "" {
			t.Fatalf("expected skipped step, got %+v", res)
		}
	})

	if count, _ := store.Count(ctx); count != 0 {
		t.Fatalf("soft failures created %d nodes", count)
	}
}

func TestRunnerRawDecodingNeedsFile(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	runner := newRunner(t, cfg, store, "")

	_, err := runner.Run(context.Background(), params(t, cfg, identity.KindRawDecoding, ""))
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if count, _ := store.Count(context.Background()); count != 0 {
		t.Fatalf("failed step created %d nodes", count)
	}
}

func TestParametersFromConfig(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithWindow(7), testsupport.WithCalibrationCurve([]float64{-60, 0, 60}, []float64{1, 0, 1}))

	for _, kind := range identity.Kinds() {
		p, err := processing.ParametersFromConfig(cfg, kind, "")
		if err != nil {
			t.Fatalf("%s: %v", kind, err)
		}
		if p.Kind() != kind {
			t.Fatalf("%s: parameters report kind %s", kind, p.Kind())
		}
	}

	raw := params(t, cfg, identity.KindRawDecoding, "Detection-Sample").(corrections.RawDecodeParams)
	if raw.Method != corrections.RawDetectionSample || !raw.UseWindow || raw.WindowSize != 7 {
		t.Fatalf("unexpected raw parameters %+v", raw)
	}
	cal := params(t, cfg, identity.KindCalibration, "curve").(corrections.CalibrationParams)
	if len(cal.AnglesDeg) != 3 || cal.OffsetsDB[0] != 1 {
		t.Fatalf("unexpected calibration parameters %+v", cal)
	}

	if _, err := processing.ParametersFromConfig(cfg, identity.KindStaticGain, "bogus"); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	if _, err := processing.ParametersFromConfig(cfg, identity.Kind("sediment_model"), ""); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
