package dataset

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/OnChainFest/HRkey-App/internal/logger"
)

// MissingPolicy controls how NaN feature cells are handled after joins.
type MissingPolicy string

const (
	MissingMedian MissingPolicy = "median"
	MissingMean   MissingPolicy = "mean"
	MissingDrop   MissingPolicy = "drop"
)

func ParseMissingPolicy(s string) (MissingPolicy, error) {
	switch MissingPolicy(strings.ToLower(s)) {
	case MissingMedian:
		return MissingMedian, nil
	case MissingMean:
		return MissingMean, nil
	case MissingDrop:
		return MissingDrop, nil
	}
	return "", fmt.Errorf("unknown missing policy %q", s)
}

// QualityFilters gate rows on evidence coverage. Nil optional thresholds
// disable the corresponding filter.
type QualityFilters struct {
	MinObservers   int
	MinSignals     int
	MinVerifiedPct *float64
	MinSpanDays    *float64
}

type AssembleConfig struct {
	MissingPolicy   MissingPolicy
	FeaturePrefixes []string
	TargetColumns   []string
	ExcludeColumns  []string
	Quality         QualityFilters
}

// FeatureBlock is one pivoted source frame plus the keys it joins on.
type FeatureBlock struct {
	Name     string
	Frame    *Frame
	JoinKeys []string
}

// DatasetManifest records what the assembled matrix contains and how many
// rows survived each quality filter.
type DatasetManifest struct {
	FeatureColumns    []string           `json:"feature_columns"`
	TargetColumns     []string           `json:"target_columns"`
	IdentifierColumns []string           `json:"identifier_columns"`
	Rows              int                `json:"rows"`
	SurvivalPct       map[string]float64 `json:"survival_pct"`
	ImputedCells      int                `json:"imputed_cells"`
	DroppedRows       int                `json:"dropped_rows"`
}

type Assembler struct {
	log *logger.Logger
	cfg AssembleConfig
}

func NewAssembler(baseLog *logger.Logger, cfg AssembleConfig) *Assembler {
	return &Assembler{log: baseLog.With("component", "assembler"), cfg: cfg}
}

// Assemble left-joins every feature block onto the target frame, applies the
// missing-value policy to feature columns, then applies the quality filters
// in order. It fails fast, naming the filter, if any filter leaves zero rows.
//
// Median and mean imputation here use the full assembled sample; model
// training re-imputes inside each split so held-out rows never leak into fit
// statistics.
func (s *Assembler) Assemble(targets *Frame, blocks []FeatureBlock) (*Frame, *DatasetManifest, error) {
	if targets == nil || targets.NumRows() == 0 {
		return nil, nil, fmt.Errorf("%w: no target rows to assemble", ErrEmptyDataset)
	}

	result := targets.Copy()
	var err error
	for _, b := range blocks {
		result, err = result.LeftJoin(b.Frame, b.JoinKeys)
		if err != nil {
			return nil, nil, fmt.Errorf("join block %q: %w", b.Name, err)
		}
	}

	features := s.featureColumns(result)
	if len(features) == 0 {
		return nil, nil, fmt.Errorf("%w: no feature columns after joins", ErrEmptyDataset)
	}

	manifest := &DatasetManifest{
		FeatureColumns: features,
		SurvivalPct:    map[string]float64{},
	}
	for _, t := range s.cfg.TargetColumns {
		if result.HasColumn(t) {
			manifest.TargetColumns = append(manifest.TargetColumns, t)
		}
	}
	for _, c := range result.Columns() {
		if kind, _ := result.Kind(c); kind == String {
			manifest.IdentifierColumns = append(manifest.IdentifierColumns, c)
		}
	}

	switch s.cfg.MissingPolicy {
	case MissingDrop:
		keep := make([]bool, result.NumRows())
		for i := range keep {
			keep[i] = true
		}
		for _, name := range features {
			vals, _ := result.Numeric(name)
			for i, v := range vals {
				if math.IsNaN(v) {
					keep[i] = false
				}
			}
		}
		before := result.NumRows()
		result, err = result.FilterRows(keep)
		if err != nil {
			return nil, nil, err
		}
		manifest.DroppedRows = before - result.NumRows()
		if result.NumRows() == 0 {
			return nil, nil, fmt.Errorf("%w: missing policy %q removed all %d rows", ErrEmptyDataset, MissingDrop, before)
		}
	case MissingMean, MissingMedian:
		for _, name := range features {
			vals, _ := result.Numeric(name)
			fill, nMissing := fillValue(vals, s.cfg.MissingPolicy)
			if nMissing == 0 {
				continue
			}
			filled := append([]float64(nil), vals...)
			for i, v := range filled {
				if math.IsNaN(v) {
					filled[i] = fill
				}
			}
			result, err = result.SetNumeric(name, filled)
			if err != nil {
				return nil, nil, err
			}
			manifest.ImputedCells += nMissing
		}
	default:
		return nil, nil, fmt.Errorf("unknown missing policy %q", s.cfg.MissingPolicy)
	}

	result, err = s.applyQualityFilters(result, manifest)
	if err != nil {
		return nil, nil, err
	}

	manifest.Rows = result.NumRows()
	s.log.Info("assembled dataset",
		"rows", manifest.Rows,
		"features", len(manifest.FeatureColumns),
		"targets", len(manifest.TargetColumns),
		"imputed_cells", manifest.ImputedCells,
		"dropped_rows", manifest.DroppedRows,
	)
	return result, manifest, nil
}

func (s *Assembler) featureColumns(f *Frame) []string {
	excluded := map[string]bool{}
	for _, c := range s.cfg.ExcludeColumns {
		excluded[c] = true
	}
	for _, t := range s.cfg.TargetColumns {
		excluded[t] = true
	}
	var out []string
	for _, name := range f.Columns() {
		if excluded[name] {
			continue
		}
		if kind, _ := f.Kind(name); kind != Numeric {
			continue
		}
		for _, p := range s.cfg.FeaturePrefixes {
			if strings.HasPrefix(name, p+"_") {
				out = append(out, name)
				break
			}
		}
	}
	return out
}

func fillValue(vals []float64, policy MissingPolicy) (float64, int) {
	present := make([]float64, 0, len(vals))
	missing := 0
	for _, v := range vals {
		if math.IsNaN(v) {
			missing++
		} else {
			present = append(present, v)
		}
	}
	if len(present) == 0 {
		return 0, missing
	}
	if policy == MissingMean {
		sum := 0.0
		for _, v := range present {
			sum += v
		}
		return sum / float64(len(present)), missing
	}
	sort.Float64s(present)
	mid := len(present) / 2
	if len(present)%2 == 1 {
		return present[mid], missing
	}
	return (present[mid-1] + present[mid]) / 2, missing
}

type qualityStep struct {
	name   string
	column string
	min    float64
}

func (s *Assembler) applyQualityFilters(f *Frame, manifest *DatasetManifest) (*Frame, error) {
	q := s.cfg.Quality
	var steps []qualityStep
	if q.MinObservers > 0 {
		steps = append(steps, qualityStep{"min_observers", "total_observers", float64(q.MinObservers)})
	}
	if q.MinSignals > 0 {
		steps = append(steps, qualityStep{"min_signals", "signals_evaluated", float64(q.MinSignals)})
	}
	if q.MinVerifiedPct != nil {
		steps = append(steps, qualityStep{"min_verified_pct", "verified_percentage", *q.MinVerifiedPct})
	}
	if q.MinSpanDays != nil {
		steps = append(steps, qualityStep{"min_span_days", "observation_span_days", *q.MinSpanDays})
	}

	initial := f.NumRows()
	for _, step := range steps {
		vals, err := f.Numeric(step.column)
		if err != nil {
			return nil, fmt.Errorf("quality filter %q: %w", step.name, err)
		}
		keep := make([]bool, len(vals))
		for i, v := range vals {
			keep[i] = !math.IsNaN(v) && v >= step.min
		}
		f, err = f.FilterRows(keep)
		if err != nil {
			return nil, err
		}
		pct := 100 * float64(f.NumRows()) / float64(initial)
		manifest.SurvivalPct[step.name] = pct
		s.log.Info("applied quality filter",
			"filter", step.name, "threshold", step.min,
			"rows", f.NumRows(), "survival_pct", pct)
		if f.NumRows() == 0 {
			return nil, fmt.Errorf("%w: quality filter %q (>= %g on %s) removed all rows",
				ErrEmptyDataset, step.name, step.min, step.column)
		}
	}
	return f, nil
}
