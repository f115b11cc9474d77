package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/flanksource/quality-unit/analysis"
	"github.com/flanksource/quality-unit/internal/cache"
	"github.com/flanksource/quality-unit/parsers"
)

var cacheTTLHours float64

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the analysis caches",
}

// cacheOrchestrator opens the persisted cache for admin operations
func cacheOrchestrator() (*analysis.Orchestrator, error) {
	persist, err := cache.NewPersistence()
	if err != nil {
		return nil, fmt.Errorf("failed to open cache: %w", err)
	}
	ttl := time.Duration(cacheTTLHours * float64(time.Hour))
	return analysis.New(analysis.Config{
		Parser:    parsers.NewSourceParser(),
		FileCache: cache.NewStoreWithPersistence(ttl, persist),
	}), nil
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cache entry counts and hit/miss counters",
	RunE: func(cmd *cobra.Command, args []string) error {
		orch, err := cacheOrchestrator()
		if err != nil {
			return err
		}
		defer orch.Close()

		stats := orch.CacheStats()
		fmt.Printf("file entries: %d\n", stats.FileEntries)
		fmt.Printf("run entries:  %d\n", stats.RunEntries)
		fmt.Printf("hits:         %d\n", stats.Hits)
		fmt.Printf("misses:       %d\n", stats.Misses)
		return nil
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all cached analysis results",
	RunE: func(cmd *cobra.Command, args []string) error {
		orch, err := cacheOrchestrator()
		if err != nil {
			return err
		}
		defer orch.Close()

		orch.ClearCache()
		fmt.Println("cache cleared")
		return nil
	},
}

var cacheCleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Remove expired cache entries",
	RunE: func(cmd *cobra.Command, args []string) error {
		orch, err := cacheOrchestrator()
		if err != nil {
			return err
		}
		defer orch.Close()

		removed := orch.CleanupExpired(time.Duration(cacheTTLHours * float64(time.Hour)))
		fmt.Printf("removed %d expired entries\n", removed)
		return nil
	},
}

func init() {
	cacheCmd.PersistentFlags().Float64Var(&cacheTTLHours, "cache-ttl", 24, "cache entry TTL in hours")
	cacheCmd.AddCommand(cacheStatsCmd, cacheClearCmd, cacheCleanupCmd)
	rootCmd.AddCommand(cacheCmd)
}
