package dataset

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/stat"

	"github.com/OnChainFest/HRkey-App/internal/logger"
)

// Observation is the normalized row every source table is mapped into before
// aggregation. Cognitive scores have no observer; Observer stays uuid.Nil and
// is excluded from distinct-observer counts.
type Observation struct {
	SubjectID  uuid.UUID
	RoleID     uuid.UUID
	Signal     string
	Rating     float64
	Observer   uuid.UUID
	Verified   bool
	ObservedAt time.Time
}

// SignalAggregate is one (subject, role, signal) group after aggregation.
type SignalAggregate struct {
	SubjectID       uuid.UUID
	RoleID          uuid.UUID
	Signal          string
	NObservations   int
	AvgRating       float64
	StdDevRating    float64
	MinRating       float64
	MaxRating       float64
	NObservers      int
	NVerified       int
	VerifiedPct     float64
	FirstObservedAt time.Time
	LastObservedAt  time.Time
	SpanDays        float64
}

// AggregateReport accounts for every input row so pipeline logs can show
// where data was lost.
type AggregateReport struct {
	InputRows          int
	DroppedMissingKey  int
	DroppedOutOfRange  int
	DroppedBelowMinObs int
	GroupsKept         int
}

type Aggregator struct {
	log *logger.Logger
}

func NewAggregator(baseLog *logger.Logger) *Aggregator {
	return &Aggregator{log: baseLog.With("component", "aggregator")}
}

// Aggregate groups observations by (subject, role, signal) and computes the
// per-group stats. Rows with a missing subject key, a missing role key when
// the source is per-role, or a rating outside the source's rating range are dropped
// and counted. Groups below MinObservations are dropped after aggregation.
func (a *Aggregator) Aggregate(obs []Observation, spec SourceSpec) ([]SignalAggregate, AggregateReport, error) {
	report := AggregateReport{InputRows: len(obs)}

	kept := make([]Observation, 0, len(obs))
	for _, o := range obs {
		if o.SubjectID == uuid.Nil || (spec.PerRole && o.RoleID == uuid.Nil) || o.Signal == "" {
			report.DroppedMissingKey++
			continue
		}
		if spec.RatingMax > spec.RatingMin && (o.Rating < spec.RatingMin || o.Rating > spec.RatingMax) {
			report.DroppedOutOfRange++
			continue
		}
		if !spec.PerRole {
			o.RoleID = uuid.Nil
		}
		kept = append(kept, o)
	}

	// Sorted input makes group order, and therefore pivot column row order,
	// stable across runs regardless of fetch order.
	sort.SliceStable(kept, func(i, j int) bool {
		a, b := kept[i], kept[j]
		if a.SubjectID != b.SubjectID {
			return a.SubjectID.String() < b.SubjectID.String()
		}
		if a.RoleID != b.RoleID {
			return a.RoleID.String() < b.RoleID.String()
		}
		if a.Signal != b.Signal {
			return a.Signal < b.Signal
		}
		if !a.ObservedAt.Equal(b.ObservedAt) {
			return a.ObservedAt.Before(b.ObservedAt)
		}
		return a.Observer.String() < b.Observer.String()
	})

	var aggs []SignalAggregate
	for start := 0; start < len(kept); {
		end := start + 1
		for end < len(kept) && sameGroup(kept[start], kept[end]) {
			end++
		}
		group := kept[start:end]
		agg := summarize(group)
		if agg.NObservations < spec.MinObservations {
			report.DroppedBelowMinObs += len(group)
		} else {
			aggs = append(aggs, agg)
		}
		start = end
	}
	report.GroupsKept = len(aggs)

	a.log.Info("aggregated source",
		"source", spec.Name,
		"input_rows", report.InputRows,
		"dropped_missing_key", report.DroppedMissingKey,
		"dropped_out_of_range", report.DroppedOutOfRange,
		"dropped_below_min_obs", report.DroppedBelowMinObs,
		"groups", report.GroupsKept,
	)
	return aggs, report, nil
}

func sameGroup(a, b Observation) bool {
	return a.SubjectID == b.SubjectID && a.RoleID == b.RoleID && a.Signal == b.Signal
}

func summarize(group []Observation) SignalAggregate {
	agg := SignalAggregate{
		SubjectID:       group[0].SubjectID,
		RoleID:          group[0].RoleID,
		Signal:          group[0].Signal,
		NObservations:   len(group),
		MinRating:       group[0].Rating,
		MaxRating:       group[0].Rating,
		FirstObservedAt: group[0].ObservedAt,
		LastObservedAt:  group[0].ObservedAt,
	}
	ratings := make([]float64, len(group))
	observers := map[uuid.UUID]bool{}
	for i, o := range group {
		ratings[i] = o.Rating
		if o.Rating < agg.MinRating {
			agg.MinRating = o.Rating
		}
		if o.Rating > agg.MaxRating {
			agg.MaxRating = o.Rating
		}
		if o.Observer != uuid.Nil {
			observers[o.Observer] = true
		}
		if o.Verified {
			agg.NVerified++
		}
		if o.ObservedAt.Before(agg.FirstObservedAt) {
			agg.FirstObservedAt = o.ObservedAt
		}
		if o.ObservedAt.After(agg.LastObservedAt) {
			agg.LastObservedAt = o.ObservedAt
		}
	}
	agg.AvgRating = stat.Mean(ratings, nil)
	if len(ratings) > 1 {
		agg.StdDevRating = stat.StdDev(ratings, nil)
	}
	agg.NObservers = len(observers)
	agg.VerifiedPct = 100 * float64(agg.NVerified) / float64(len(group))
	agg.SpanDays = agg.LastObservedAt.Sub(agg.FirstObservedAt).Hours() / 24
	return agg
}
