package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/flanksource/clicky"
	"github.com/flanksource/clicky/task"
	commonsCtx "github.com/flanksource/commons/context"
	"github.com/flanksource/commons/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/flanksource/quality-unit/analysis"
	"github.com/flanksource/quality-unit/analyzers"
	"github.com/flanksource/quality-unit/internal/cache"
	"github.com/flanksource/quality-unit/internal/files"
	"github.com/flanksource/quality-unit/models"
	"github.com/flanksource/quality-unit/parsers"
)

var analyzeFlags struct {
	optionsFile string
	include     []string
	exclude     []string
	parallel    bool
	maxWorkers  int
	noCache     bool
	noIncrement bool
	confidence  float64
	maxFileSize float64
	ttlHours    float64
	categories  []string
	languages   []string
	format      string
	noPersist   bool
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze [path]",
	Short: "Analyze a codebase for quality issues",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		root := "."
		if len(args) > 0 {
			root = args[0]
		}

		opts, err := optionsFromFlags(cmd)
		if err != nil {
			return err
		}

		orch, err := buildOrchestrator(opts)
		if err != nil {
			return err
		}
		defer orch.Close()

		analysisTask := clicky.StartTask[*models.AnalysisRunResult](fmt.Sprintf("Analyzing %s", root), func(fctx commonsCtx.Context, t *task.Task) (*models.AnalysisRunResult, error) {
			var lastPhase string
			return orch.Run(context.Background(), root, opts, func(state analysis.ProgressState) {
				if state.Phase != lastPhase {
					lastPhase = state.Phase
					t.Infof("%s (%.0f%%)", state.Phase, state.Percentage())
				}
			})
		})

		result, err := analysisTask.GetResult()
		if err != nil {
			return fmt.Errorf("analysis failed: %w", err)
		}

		if analyzeFlags.format == "json" {
			return printJSON(result)
		}
		printSummary(result)
		return nil
	},
}

// optionsFromFlags layers run options: defaults first, then an options
// file (or the viper config), then any flag explicitly set on the
// command line.
func optionsFromFlags(cmd *cobra.Command) (models.AnalysisOptions, error) {
	opts := models.DefaultOptions()

	if analyzeFlags.optionsFile != "" {
		loaded, err := models.LoadOptionsFile(analyzeFlags.optionsFile)
		if err != nil {
			return opts, err
		}
		opts = loaded
	} else {
		if configured := viper.GetStringSlice("include_patterns"); len(configured) > 0 {
			opts.IncludePatterns = configured
		}
		if configured := viper.GetStringSlice("exclude_patterns"); len(configured) > 0 {
			opts.ExcludePatterns = configured
		}
	}

	flags := cmd.Flags()
	if flags.Changed("include") {
		opts.IncludePatterns = analyzeFlags.include
	}
	if flags.Changed("exclude") {
		opts.ExcludePatterns = analyzeFlags.exclude
	}
	if flags.Changed("parallel") {
		opts.ParallelProcessing = analyzeFlags.parallel
	}
	if flags.Changed("max-workers") {
		opts.MaxWorkers = analyzeFlags.maxWorkers
	}
	if flags.Changed("no-cache") {
		opts.UseCache = !analyzeFlags.noCache
	}
	if flags.Changed("no-incremental") {
		opts.Incremental = !analyzeFlags.noIncrement
	}
	if flags.Changed("confidence") {
		opts.ConfidenceThreshold = analyzeFlags.confidence
	}
	if flags.Changed("max-file-size") {
		opts.MaxFileSizeMB = analyzeFlags.maxFileSize
	}
	if flags.Changed("cache-ttl") {
		opts.CacheTTLHours = analyzeFlags.ttlHours
	}
	if flags.Changed("category") {
		opts.CategoryFilter = analyzeFlags.categories
	}
	if flags.Changed("language") {
		opts.LanguageFilter = analyzeFlags.languages
	}
	opts.Normalize()
	return opts, nil
}

func buildOrchestrator(opts models.AnalysisOptions) (*analysis.Orchestrator, error) {
	registry := analysis.NewRegistry()
	registry.Register(analyzers.NewComplexityAnalyzer(), analysis.PriorityHigh)
	registry.Register(analyzers.NewDocumentationAnalyzer(), analysis.PriorityLow)

	ttl := time.Duration(opts.CacheTTLHours * float64(time.Hour))

	var fileCache *cache.Store
	if analyzeFlags.noPersist {
		fileCache = cache.NewStore(ttl)
	} else {
		persist, err := cache.NewPersistence()
		if err != nil {
			logger.Warnf("cache persistence unavailable, continuing in-memory: %v", err)
			fileCache = cache.NewStore(ttl)
		} else {
			fileCache = cache.NewStoreWithPersistence(ttl, persist)
		}
	}

	return analysis.New(analysis.Config{
		Parser:    parsers.NewSourceParser(),
		Discovery: &files.Discovery{MaxFileSizeMB: opts.MaxFileSizeMB},
		Registry:  registry,
		FileCache: fileCache,
	}), nil
}

func printJSON(result *models.AnalysisRunResult) error {
	// Drop raw file contents from machine output
	trimmed := *result
	trimmed.ParsedFiles = nil
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(&trimmed)
}

func printSummary(result *models.AnalysisRunResult) {
	bold := color.New(color.Bold)
	severityColors := map[models.Severity]*color.Color{
		models.SeverityCritical: color.New(color.FgRed, color.Bold),
		models.SeverityHigh:     color.New(color.FgRed),
		models.SeverityMedium:   color.New(color.FgYellow),
		models.SeverityLow:      color.New(color.FgCyan),
		models.SeverityInfo:     color.New(color.FgWhite),
	}

	fmt.Println()
	bold.Printf("Analysis of %s", result.CodebasePath)
	if result.FromCache {
		fmt.Print(" (cached)")
	}
	fmt.Printf(": %d files, %d issues, score %.1f/100\n\n", len(result.ParsedFiles), len(result.Issues), result.Metrics.OverallScore)

	for _, issue := range result.Issues {
		c, ok := severityColors[issue.Severity]
		if !ok {
			c = color.New(color.FgWhite)
		}
		c.Printf("  %-8s", issue.Severity)
		fmt.Printf(" %s  %s\n", issue.Location, issue.Title)
	}

	if !result.Ledger.Empty() {
		fmt.Println()
		color.Yellow("%d recovered failures during this run:", result.Ledger.Count())
		for _, e := range append(result.Ledger.ParsingErrors, result.Ledger.AnalysisErrors...) {
			fmt.Printf("  - %s\n", e.Message)
		}
	}
	fmt.Println()
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeFlags.optionsFile, "options-file", "", "YAML file with analysis options")
	analyzeCmd.Flags().StringSliceVar(&analyzeFlags.include, "include", nil, "include glob patterns")
	analyzeCmd.Flags().StringSliceVar(&analyzeFlags.exclude, "exclude", nil, "exclude glob patterns")
	analyzeCmd.Flags().BoolVar(&analyzeFlags.parallel, "parallel", true, "process files and analyzers concurrently")
	analyzeCmd.Flags().IntVar(&analyzeFlags.maxWorkers, "max-workers", 4, "worker pool size")
	analyzeCmd.Flags().BoolVar(&analyzeFlags.noCache, "no-cache", false, "bypass the whole-run cache")
	analyzeCmd.Flags().BoolVar(&analyzeFlags.noIncrement, "no-incremental", false, "reprocess all files regardless of fingerprints")
	analyzeCmd.Flags().Float64Var(&analyzeFlags.confidence, "confidence", 0.5, "minimum issue confidence")
	analyzeCmd.Flags().Float64Var(&analyzeFlags.maxFileSize, "max-file-size", 10, "skip files larger than this many MB")
	analyzeCmd.Flags().Float64Var(&analyzeFlags.ttlHours, "cache-ttl", 24, "cache entry TTL in hours")
	analyzeCmd.Flags().StringSliceVar(&analyzeFlags.categories, "category", nil, "restrict to issue categories")
	analyzeCmd.Flags().StringSliceVar(&analyzeFlags.languages, "language", nil, "restrict to languages")
	analyzeCmd.Flags().StringVar(&analyzeFlags.format, "format", "text", "output format (text, json)")
	analyzeCmd.Flags().BoolVar(&analyzeFlags.noPersist, "no-persist", false, "disable on-disk cache persistence")

	rootCmd.AddCommand(analyzeCmd)
}
