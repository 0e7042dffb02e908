package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/OnChainFest/HRkey-App/internal/app"
)

// analyze runs the full correlation and baseline-model pipeline once and
// exits: 0 on success, 1 on any failure.
func main() {
	version := flag.String("version", "", "analysis version tag (overrides ANALYSIS_VERSION)")
	missing := flag.String("missing", "", "missing-value policy: median, mean, or drop")
	minObservers := flag.Int("min-observers", 0, "quality filter: minimum distinct observers per row")
	minSignals := flag.Int("min-signals", 0, "quality filter: minimum distinct signals per row")
	minVerified := flag.Float64("min-verified-pct", 0, "quality filter: minimum verified fraction (0-100)")
	minSpanDays := flag.Float64("min-span-days", 0, "quality filter: minimum observation span in days")
	skipModels := flag.Bool("skip-models", false, "compute correlations only")
	skipStorage := flag.Bool("skip-storage", false, "do not write results to the database")
	skipArtifacts := flag.Bool("skip-artifacts", false, "do not write model bundles")
	flag.Parse()

	if *version != "" {
		os.Setenv("ANALYSIS_VERSION", *version)
	}
	if *missing != "" {
		os.Setenv("MISSING_POLICY", *missing)
	}
	// Quality flags override env only when passed explicitly, so zero stays a
	// valid threshold.
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "min-observers":
			os.Setenv("QUALITY_MIN_OBSERVERS", strconv.Itoa(*minObservers))
		case "min-signals":
			os.Setenv("QUALITY_MIN_SIGNALS", strconv.Itoa(*minSignals))
		case "min-verified-pct":
			os.Setenv("QUALITY_MIN_VERIFIED_PCT", strconv.FormatFloat(*minVerified, 'f', -1, 64))
		case "min-span-days":
			os.Setenv("QUALITY_MIN_SPAN_DAYS", strconv.FormatFloat(*minSpanDays, 'f', -1, 64))
		}
	})

	a, err := app.New()
	if err != nil {
		fmt.Printf("Failed to start: %v\n", err)
		os.Exit(1)
	}
	defer a.Close()

	cfg := a.Cfg.AnalysisConfig()
	cfg.SkipModels = *skipModels
	cfg.SkipStorage = *skipStorage
	cfg.SkipArtifacts = *skipArtifacts
	svc := app.NewAnalysisService(a, cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	report, err := svc.Run(ctx)
	if err != nil {
		a.Log.Error("Analysis run failed", "error", err)
		a.Close()
		os.Exit(1)
	}

	for _, s := range report.Stages {
		a.Log.Info("stage complete", "stage", s.Stage, "duration", s.Duration.String(), "detail", s.Detail)
	}
	a.Log.Info("Analysis run succeeded",
		"version", report.Version,
		"rows", report.DatasetRows,
		"correlations", report.CorrelationsComputed,
		"targets_trained", report.TargetsTrained,
		"targets_skipped", report.TargetsSkipped,
		"artifacts", report.ArtifactsWritten,
	)
}
