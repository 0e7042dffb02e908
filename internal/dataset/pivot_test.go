package dataset

import (
	"math"
	"testing"
)

func TestPivotColumnNamingAndFill(t *testing.T) {
	p := NewPivoter(testLogger(t))
	aggs := []SignalAggregate{
		{SubjectID: subjA, RoleID: roleX, Signal: "leadership", NObservations: 3, AvgRating: 4.0, NObservers: 2, VerifiedPct: 50},
		{SubjectID: subjA, RoleID: roleX, Signal: "focus", NObservations: 2, AvgRating: 3.5, NObservers: 1, VerifiedPct: 100},
		{SubjectID: subjB, RoleID: roleX, Signal: "leadership", NObservations: 4, AvgRating: 2.0, NObservers: 3, VerifiedPct: 25},
	}
	f, err := p.Pivot(aggs, kpiSpec())
	if err != nil {
		t.Fatalf("Pivot: %v", err)
	}
	if f.NumRows() != 2 {
		t.Fatalf("rows = %d, want 2", f.NumRows())
	}
	want := []string{
		"subject_id", "role_id",
		"kpi_focus_avg_rating", "kpi_focus_n_obs", "kpi_focus_n_observers", "kpi_focus_verified_pct",
		"kpi_leadership_avg_rating", "kpi_leadership_n_obs", "kpi_leadership_n_observers", "kpi_leadership_verified_pct",
	}
	got := f.Columns()
	if len(got) != len(want) {
		t.Fatalf("columns = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("column %d = %q, want %q", i, got[i], want[i])
		}
	}
	lead, err := f.Numeric("kpi_leadership_avg_rating")
	if err != nil {
		t.Fatalf("Numeric: %v", err)
	}
	if lead[0] != 4.0 || lead[1] != 2.0 {
		t.Fatalf("kpi_leadership_avg_rating = %v", lead)
	}
	// Subject B never has a focus aggregate; the cell must be NaN.
	focus, _ := f.Numeric("kpi_focus_avg_rating")
	if focus[0] != 3.5 || !math.IsNaN(focus[1]) {
		t.Fatalf("kpi_focus_avg_rating = %v", focus)
	}
}

func TestPivotEmptyInputKeepsKeyColumns(t *testing.T) {
	p := NewPivoter(testLogger(t))
	f, err := p.Pivot(nil, kpiSpec())
	if err != nil {
		t.Fatalf("Pivot: %v", err)
	}
	if f.NumRows() != 0 {
		t.Fatalf("rows = %d, want 0", f.NumRows())
	}
	if !f.HasColumn("subject_id") || !f.HasColumn("role_id") {
		t.Fatalf("key columns missing: %v", f.Columns())
	}
}

func TestPivotRejectsUnknownStat(t *testing.T) {
	p := NewPivoter(testLogger(t))
	spec := kpiSpec()
	spec.Stats = []string{"mode_rating"}
	if _, err := p.Pivot(nil, spec); err == nil {
		t.Fatalf("expected error for unknown stat")
	}
}

func TestMetadataFrame(t *testing.T) {
	p := NewPivoter(testLogger(t))
	aggs := []SignalAggregate{
		{SubjectID: subjA, RoleID: roleX, Signal: "leadership", NObservations: 3, NObservers: 2, VerifiedPct: 100, SpanDays: 10},
		{SubjectID: subjA, RoleID: roleX, Signal: "focus", NObservations: 2, NObservers: 4, VerifiedPct: 50, SpanDays: 3},
	}
	f, err := p.MetadataFrame(aggs, true)
	if err != nil {
		t.Fatalf("MetadataFrame: %v", err)
	}
	if f.NumRows() != 1 {
		t.Fatalf("rows = %d, want 1", f.NumRows())
	}
	total, _ := f.Numeric("total_observations")
	if total[0] != 5 {
		t.Fatalf("total_observations = %v, want 5", total[0])
	}
	observers, _ := f.Numeric("total_observers")
	if observers[0] != 4 {
		t.Fatalf("total_observers = %v, want max 4", observers[0])
	}
	verified, _ := f.Numeric("verified_percentage")
	if verified[0] != 75 {
		t.Fatalf("verified_percentage = %v, want mean 75", verified[0])
	}
	span, _ := f.Numeric("observation_span_days")
	if span[0] != 10 {
		t.Fatalf("observation_span_days = %v, want max 10", span[0])
	}
	signals, _ := f.Numeric("signals_evaluated")
	if signals[0] != 2 {
		t.Fatalf("signals_evaluated = %v, want 2", signals[0])
	}
}
