package processing

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"

	"gonum.org/v1/gonum/interp"

	"openbst/internal/corrections"
	"openbst/internal/logging"
	"openbst/internal/s7k"
)

type pingKey struct {
	number   uint32
	sequence uint16
}

// LoadSurvey assembles per-ping raw context from an s7k container. Pings are
// the 7000 records in file order; detections, snippets and TVG curves are
// joined on ping number. Navigation is interpolated to each ping time and
// converted to degrees. Malformed records are skipped.
func LoadSurvey(ctx context.Context, f *s7k.File, logger *slog.Logger) (*corrections.Survey, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logging.WithContext(ctx, logger)

	survey := &corrections.Survey{}
	byKey := make(map[pingKey]int)

	skipped, err := f.Walk(s7k.TypeSonarSettings, s7k.All(), func(dg s7k.Datagram) error {
		st := dg.Record.(*s7k.SonarSettings)
		key := pingKey{st.PingNumber, st.MultiPingSequence}
		if _, dup := byKey[key]; dup {
			return nil
		}
		byKey[key] = len(survey.Pings)
		survey.Pings = append(survey.Pings, corrections.Ping{
			Time:     dg.Timestamp,
			Number:   st.PingNumber,
			Settings: *st,
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("read sonar settings: %w", err)
	}
	total := skipped

	ping := func(number uint32, sequence uint16) *corrections.Ping {
		if i, ok := byKey[pingKey{number, sequence}]; ok {
			return &survey.Pings[i]
		}
		return nil
	}

	maxBeam := -1
	skipped, err = f.Walk(s7k.TypeRawDetection, s7k.All(), func(dg s7k.Datagram) error {
		rec := dg.Record.(*s7k.RawDetection)
		if p := ping(rec.PingNumber, rec.MultiPingSequence); p != nil {
			p.Detections = rec.Detections
			p.SampleRate = rec.SampleRate
			for _, d := range rec.Detections {
				maxBeam = max(maxBeam, int(d.Beam))
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("read detections: %w", err)
	}
	total += skipped

	skipped, err = f.Walk(s7k.TypeSnippet, s7k.All(), func(dg s7k.Datagram) error {
		rec := dg.Record.(*s7k.Snippet)
		if p := ping(rec.PingNumber, rec.MultiPingSequence); p != nil {
			p.Snippet = rec
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("read snippets: %w", err)
	}
	total += skipped

	skipped, err = f.Walk(s7k.TypeTVG, s7k.All(), func(dg s7k.Datagram) error {
		rec := dg.Record.(*s7k.TVG)
		if p := ping(rec.PingNumber, rec.MultiPingSequence); p != nil {
			p.TVG = rec.Gains
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("read tvg: %w", err)
	}
	total += skipped

	survey.Beams = maxBeam + 1
	ix, err := f.Index()
	if err != nil {
		return nil, err
	}
	if ix.Count(s7k.TypeBeamGeometry) > 0 {
		dg, err := f.Datagram(s7k.TypeBeamGeometry, 0)
		if err == nil {
			if beams := dg.Record.(*s7k.BeamGeometry).Beams(); beams > 0 {
				survey.Beams = beams
			}
		} else {
			logger.Debug("beam geometry unreadable, using detection beam count", logging.Error(err))
		}
	}

	nav, err := loadNavigation(f)
	if err != nil {
		return nil, err
	}
	for i := range survey.Pings {
		p := &survey.Pings[i]
		t := float64(p.Time)
		p.Latitude = nav.latitude.at(t)
		p.Longitude = nav.longitude.at(t)
		p.Heading = nav.heading.at(t)
		p.Roll = nav.roll.at(t)
	}

	logger.Info("raw survey assembled",
		logging.String(logging.FieldEventType, "survey_loaded"),
		logging.String("s7k_file", f.Path()),
		logging.Int("pings", len(survey.Pings)),
		logging.Int("beams", survey.Beams),
		logging.Int("skipped_records", total),
	)
	return survey, nil
}

type navigation struct {
	latitude  series
	longitude series
	heading   series
	roll      series
}

func loadNavigation(f *s7k.File) (navigation, error) {
	var nav navigation
	nav.heading.circular = true

	if _, err := f.Walk(s7k.TypePosition, s7k.All(), func(dg s7k.Datagram) error {
		pos := dg.Record.(*s7k.Position)
		// Position type 1 holds grid coordinates, not latitude and longitude.
		if pos.PositionType != 0 {
			return nil
		}
		nav.latitude.add(dg.Timestamp, degrees(pos.Latitude))
		nav.longitude.add(dg.Timestamp, degrees(pos.Longitude))
		return nil
	}); err != nil {
		return nav, fmt.Errorf("read positions: %w", err)
	}
	if _, err := f.Walk(s7k.TypeAttitude, s7k.All(), func(dg s7k.Datagram) error {
		nav.roll.add(dg.Timestamp, degrees(float64(dg.Record.(*s7k.Attitude).Roll)))
		return nil
	}); err != nil {
		return nav, fmt.Errorf("read attitude: %w", err)
	}
	if _, err := f.Walk(s7k.TypeHeading, s7k.All(), func(dg s7k.Datagram) error {
		nav.heading.add(dg.Timestamp, degrees(float64(dg.Record.(*s7k.Heading).Heading)))
		return nil
	}); err != nil {
		return nav, fmt.Errorf("read heading: %w", err)
	}
	return nav, nil
}

// series is a time-stamped navigation channel. Circular channels hold
// degrees and interpolate across the 0/360 wrap.
type series struct {
	times    []float64
	values   []float64
	circular bool

	fitted bool
	curve  *interp.PiecewiseLinear
}

func (s *series) add(t int64, v float64) {
	s.times = append(s.times, float64(t))
	s.values = append(s.values, v)
	s.fitted = false
}

// at interpolates the channel at t. Times outside the recorded span take the
// nearest sample; an empty channel yields NaN.
func (s *series) at(t float64) float64 {
	switch len(s.times) {
	case 0:
		return math.NaN()
	case 1:
		return s.values[0]
	}
	if !s.fitted {
		s.fit()
	}
	if s.curve == nil {
		return s.values[len(s.values)-1]
	}
	v := s.curve.Predict(t)
	if s.circular {
		v = math.Mod(v, 360)
		if v < 0 {
			v += 360
		}
	}
	return v
}

func (s *series) fit() {
	s.fitted = true
	s.curve = nil

	order := make([]int, len(s.times))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return s.times[order[a]] < s.times[order[b]] })

	xs := make([]float64, 0, len(order))
	ys := make([]float64, 0, len(order))
	for _, i := range order {
		t, v := s.times[i], s.values[i]
		if math.IsNaN(v) {
			continue
		}
		if n := len(xs); n > 0 && xs[n-1] == t {
			continue
		}
		if s.circular && len(ys) > 0 {
			prev := ys[len(ys)-1]
			v = prev + math.Remainder(v-prev, 360)
		}
		xs = append(xs, t)
		ys = append(ys, v)
	}
	if len(xs) < 2 {
		if len(ys) == 1 {
			s.times, s.values = xs, ys
		}
		return
	}
	var curve interp.PiecewiseLinear
	if err := curve.Fit(xs, ys); err != nil {
		return
	}
	s.curve = &curve
}

func degrees(rad float64) float64 {
	return rad * 180 / math.Pi
}
