package dataset

import (
	"fmt"
	"math"
	"sort"

	"github.com/google/uuid"

	"github.com/OnChainFest/HRkey-App/internal/logger"
)

// Stat names a pivot may request per signal.
const (
	StatAvgRating    = "avg_rating"
	StatNObs         = "n_obs"
	StatNObservers   = "n_observers"
	StatVerifiedPct  = "verified_pct"
	StatStdDevRating = "stddev_rating"
	StatMinRating    = "min_rating"
	StatMaxRating    = "max_rating"
	StatSpanDays     = "span_days"
)

var knownStats = map[string]bool{
	StatAvgRating:    true,
	StatNObs:         true,
	StatNObservers:   true,
	StatVerifiedPct:  true,
	StatStdDevRating: true,
	StatMinRating:    true,
	StatMaxRating:    true,
	StatSpanDays:     true,
}

type Pivoter struct {
	log *logger.Logger
}

func NewPivoter(baseLog *logger.Logger) *Pivoter {
	return &Pivoter{log: baseLog.With("component", "pivoter")}
}

// Pivot turns signal aggregates into one wide row per key. Columns are named
// {prefix}_{signal}_{stat}; cells with no aggregate for that signal are NaN.
// An empty input still yields a frame carrying the key columns so downstream
// joins stay type-stable.
func (p *Pivoter) Pivot(aggs []SignalAggregate, spec SourceSpec) (*Frame, error) {
	stats := spec.Stats
	if len(stats) == 0 {
		stats = []string{StatAvgRating, StatNObs}
	}
	for _, s := range stats {
		if !knownStats[s] {
			return nil, fmt.Errorf("unknown pivot stat %q for source %q", s, spec.Name)
		}
	}

	type key struct {
		subject uuid.UUID
		role    uuid.UUID
	}
	var order []key
	rowIdx := map[key]int{}
	signalSet := map[string]bool{}
	// One aggregate per (key, signal): the earliest FirstObservedAt wins, ties
	// broken by keeping the first after the aggregator's stable sort.
	cells := map[key]map[string]SignalAggregate{}
	for _, a := range aggs {
		k := key{a.SubjectID, a.RoleID}
		if _, seen := rowIdx[k]; !seen {
			rowIdx[k] = len(order)
			order = append(order, k)
			cells[k] = map[string]SignalAggregate{}
		}
		signalSet[a.Signal] = true
		if prior, dup := cells[k][a.Signal]; !dup {
			cells[k][a.Signal] = a
		} else if a.FirstObservedAt.Before(prior.FirstObservedAt) {
			p.log.Warn("duplicate aggregate for key and signal",
				"source", spec.Name, "signal", a.Signal)
			cells[k][a.Signal] = a
		}
	}

	signals := make([]string, 0, len(signalSet))
	for s := range signalSet {
		signals = append(signals, s)
	}
	sort.Strings(signals)

	f := NewFrame()
	subjects := make([]string, len(order))
	roles := make([]string, len(order))
	for i, k := range order {
		subjects[i] = k.subject.String()
		if spec.PerRole {
			roles[i] = k.role.String()
		}
	}
	if err := f.AddString("subject_id", subjects); err != nil {
		return nil, err
	}
	if spec.PerRole {
		if err := f.AddString("role_id", roles); err != nil {
			return nil, err
		}
	}

	for _, sig := range signals {
		for _, st := range stats {
			vals := make([]float64, len(order))
			for i, k := range order {
				if a, ok := cells[k][sig]; ok {
					vals[i] = statValue(a, st)
				} else {
					vals[i] = math.NaN()
				}
			}
			name := fmt.Sprintf("%s_%s_%s", spec.Prefix, sig, st)
			if err := f.AddNumeric(name, vals); err != nil {
				return nil, err
			}
		}
	}

	p.log.Info("pivoted source", "source", spec.Name, "rows", f.NumRows(), "cols", f.NumCols())
	return f, nil
}

func statValue(a SignalAggregate, stat string) float64 {
	switch stat {
	case StatAvgRating:
		return a.AvgRating
	case StatNObs:
		return float64(a.NObservations)
	case StatNObservers:
		return float64(a.NObservers)
	case StatVerifiedPct:
		return a.VerifiedPct
	case StatStdDevRating:
		return a.StdDevRating
	case StatMinRating:
		return a.MinRating
	case StatMaxRating:
		return a.MaxRating
	case StatSpanDays:
		return a.SpanDays
	}
	return math.NaN()
}

// MetadataFrame summarizes coverage per key across all of a source's signals.
// These columns feed the quality filters during assembly.
func (p *Pivoter) MetadataFrame(aggs []SignalAggregate, perRole bool) (*Frame, error) {
	type key struct {
		subject uuid.UUID
		role    uuid.UUID
	}
	type acc struct {
		totalObs     int
		maxObservers int
		pctSum       float64
		pctN         int
		maxSpan      float64
		signals      map[string]bool
	}
	var order []key
	accs := map[key]*acc{}
	for _, a := range aggs {
		k := key{a.SubjectID, a.RoleID}
		e, ok := accs[k]
		if !ok {
			e = &acc{signals: map[string]bool{}}
			accs[k] = e
			order = append(order, k)
		}
		e.totalObs += a.NObservations
		if a.NObservers > e.maxObservers {
			e.maxObservers = a.NObservers
		}
		e.pctSum += a.VerifiedPct
		e.pctN++
		if a.SpanDays > e.maxSpan {
			e.maxSpan = a.SpanDays
		}
		e.signals[a.Signal] = true
	}

	f := NewFrame()
	subjects := make([]string, len(order))
	roles := make([]string, len(order))
	totals := make([]float64, len(order))
	observers := make([]float64, len(order))
	verified := make([]float64, len(order))
	spans := make([]float64, len(order))
	signals := make([]float64, len(order))
	for i, k := range order {
		e := accs[k]
		subjects[i] = k.subject.String()
		if perRole {
			roles[i] = k.role.String()
		}
		totals[i] = float64(e.totalObs)
		observers[i] = float64(e.maxObservers)
		verified[i] = e.pctSum / float64(e.pctN)
		spans[i] = e.maxSpan
		signals[i] = float64(len(e.signals))
	}
	if err := f.AddString("subject_id", subjects); err != nil {
		return nil, err
	}
	if perRole {
		if err := f.AddString("role_id", roles); err != nil {
			return nil, err
		}
	}
	for _, c := range []struct {
		name string
		vals []float64
	}{
		{"total_observations", totals},
		{"total_observers", observers},
		{"verified_percentage", verified},
		{"observation_span_days", spans},
		{"signals_evaluated", signals},
	} {
		if err := f.AddNumeric(c.name, c.vals); err != nil {
			return nil, err
		}
	}
	return f, nil
}
