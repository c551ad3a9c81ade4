package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"

	"hypertune/internal/objective"
	hyperapi "hypertune/pkg/hypertune"
)

const defaultDBPath = "hypertune.db"

func main() {
	if err := run(context.Background(), os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usageError("missing command")
	}

	switch args[0] {
	case "run":
		return runRun(ctx, args[1:])
	case "best":
		return runBest(ctx, args[1:])
	case "trials":
		return runTrials(ctx, args[1:])
	case "lineage":
		return runLineage(ctx, args[1:])
	case "objectives":
		return runObjectives(ctx, args[1:])
	default:
		return usageError(fmt.Sprintf("unknown command: %s", args[0]))
	}
}

func newClient(storeKind, dbPath string, verbose bool) (*hyperapi.Client, error) {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	return hyperapi.New(hyperapi.Options{
		StoreKind: storeKind,
		DBPath:    dbPath,
		Logger:    logger,
	})
}

func runRun(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	configPath := fs.String("config", "", "optional study config JSON path")
	objectiveName := fs.String("objective", "sphere", "benchmark objective name")
	algorithmName := fs.String("algorithm", "random_search", "algorithm: random_search|grid_search|iterate|local_search|population_based_training|genetic")
	resumeID := fs.String("resume", "", "resume a persisted study by id")
	maxTrials := fs.Int("max-trials", 20, "maximum number of trials")
	iterations := fs.Int("iterations", 5, "observations per trial")
	seed := fs.Int64("seed", 1, "rng seed")
	gridPoints := fs.Int("grid-points", 2, "grid points per continuous parameter")
	population := fs.Int("pop", 0, "population size for population_based_training")
	mutationRate := fs.Float64("mutation-rate", 0.1, "mutation rate for genetic (0 means pure crossover)")
	repeat := fs.Int("repeat", 0, "repeat every configuration this many times and average")
	medianStop := fs.Bool("median-stop", false, "stop underperforming trials by the median rule")
	minIterations := fs.Int("min-iterations", 1, "iterations before a trial can be stopped")
	minTrials := fs.Int("min-trials", 1, "comparison trials required before stopping")
	storeKind := fs.String("store", "", "store backend: memory|sqlite")
	dbPath := fs.String("db-path", defaultDBPath, "sqlite database path")
	verbose := fs.Bool("v", false, "verbose logging")
	if err := fs.Parse(args); err != nil {
		return err
	}
	req, err := loadOrDefaultRunRequest(*configPath)
	if err != nil {
		return err
	}
	if *configPath == "" {
		req = hyperapi.RunRequest{
			Objective:      *objectiveName,
			Algorithm:      *algorithmName,
			ResumeID:       *resumeID,
			MaxTrials:      *maxTrials,
			Iterations:     *iterations,
			Seed:           *seed,
			GridPoints:     *gridPoints,
			PopulationSize: *population,
			MutationRate:   mutationRate,
			Repeat:         *repeat,
			MedianStop:     *medianStop,
			MinIterations:  *minIterations,
			MinTrials:      *minTrials,
		}
	}

	client, err := newClient(*storeKind, *dbPath, *verbose)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()
	if err := client.Init(ctx); err != nil {
		return err
	}

	summary, err := client.Run(ctx, req)
	if err != nil {
		return err
	}

	fmt.Printf("study=%s algorithm=%s objective=%s\n", summary.StudyID, summary.Algorithm, summary.Objective)
	fmt.Printf("trials=%d stopped-early=%d\n", summary.NumTrials, summary.StoppedEarly)
	fmt.Printf("best objective=%g\n", summary.BestObjective)
	printParameters(summary.BestParameters)
	return nil
}

func runBest(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("best", flag.ContinueOnError)
	studyID := fs.String("study", "", "study id")
	storeKind := fs.String("store", "sqlite", "store backend: memory|sqlite")
	dbPath := fs.String("db-path", defaultDBPath, "sqlite database path")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *studyID == "" {
		return usageError("best requires -study")
	}

	client, err := newClient(*storeKind, *dbPath, false)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()
	if err := client.Init(ctx); err != nil {
		return err
	}

	best, err := client.Best(ctx, hyperapi.BestRequest{StudyID: *studyID})
	if err != nil {
		return err
	}

	direction := "maximize"
	if best.LowerIsBetter {
		direction = "minimize"
	}
	fmt.Printf("study=%s algorithm=%s direction=%s trials=%d\n",
		best.StudyID, best.Algorithm, direction, best.NumTrials)
	fmt.Printf("best objective=%g\n", best.Objective)
	printParameters(best.Parameters)
	return nil
}

func runTrials(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("trials", flag.ContinueOnError)
	studyID := fs.String("study", "", "study id")
	limit := fs.Int("limit", 0, "maximum trials to list (0 lists all)")
	storeKind := fs.String("store", "sqlite", "store backend: memory|sqlite")
	dbPath := fs.String("db-path", defaultDBPath, "sqlite database path")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *studyID == "" {
		return usageError("trials requires -study")
	}

	client, err := newClient(*storeKind, *dbPath, false)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()
	if err := client.Init(ctx); err != nil {
		return err
	}

	items, err := client.Trials(ctx, hyperapi.TrialsRequest{StudyID: *studyID, Limit: *limit})
	if err != nil {
		return err
	}
	for _, item := range items {
		fmt.Printf("trial=%-4d status=%-10s iteration=%-3d objective=%-12g %s\n",
			item.TrialID, item.Status, item.Iteration, item.Objective, formatParameters(item.Parameters))
	}
	return nil
}

func runLineage(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("lineage", flag.ContinueOnError)
	studyID := fs.String("study", "", "study id")
	trialID := fs.Int("trial", 0, "trial id to trace")
	storeKind := fs.String("store", "sqlite", "store backend: memory|sqlite")
	dbPath := fs.String("db-path", defaultDBPath, "sqlite database path")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *studyID == "" || *trialID == 0 {
		return usageError("lineage requires -study and -trial")
	}

	client, err := newClient(*storeKind, *dbPath, false)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()
	if err := client.Init(ctx); err != nil {
		return err
	}

	chain, err := client.Lineage(ctx, hyperapi.LineageRequest{StudyID: *studyID, TrialID: *trialID})
	if err != nil {
		return err
	}
	for _, item := range chain {
		fmt.Printf("trial=%-4d generation=%-3d save_to=%-6s load_from=%-6s objective=%g\n",
			item.TrialID, item.Generation, item.SaveTo, item.LoadFrom, item.Objective)
	}
	return nil
}

func runObjectives(_ context.Context, args []string) error {
	fs := flag.NewFlagSet("objectives", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	for _, name := range objective.Names() {
		fmt.Println(name)
	}
	return nil
}

func printParameters(params map[string]any) {
	if s := formatParameters(params); s != "" {
		fmt.Println(s)
	}
}

func formatParameters(params map[string]any) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, params[k]))
	}
	return strings.Join(parts, " ")
}

func usageError(msg string) error {
	return fmt.Errorf("%s\nusage: hypertunectl <run|best|trials|lineage|objectives> [flags]", msg)
}
