package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Build and inspect course document indexes",
}

var indexBuildCmd = &cobra.Command{
	Use:   "build <course> [artifact-id]...",
	Short: "Index a course's artifacts (all when no ids are given)",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		ids, err := parseIDs(args[1:])
		if err != nil {
			return err
		}
		app, err := openApp(ctx, true)
		if err != nil {
			return err
		}
		defer app.Close()

		course, err := resolveCourse(ctx, app, args[0])
		if err != nil {
			return err
		}
		if rebuild, _ := cmd.Flags().GetBool("rebuild"); rebuild {
			ix, err := app.Index(ctx, course.ID)
			if err != nil {
				return err
			}
			if err := ix.Clear(ctx); err != nil {
				return err
			}
		}

		stats, err := app.IndexArtifacts(ctx, course.ID, ids)
		if err != nil {
			return err
		}
		if printJSON(stats) {
			return nil
		}
		fmt.Printf("Indexed %d file(s), skipped %d, added %d chunk(s)\n",
			stats.IndexedFiles, stats.SkippedFiles, stats.ChunksAdded)
		return nil
	},
}

var indexStatusCmd = &cobra.Command{
	Use:   "status <course>",
	Short: "Check index compatibility with the configured embedder",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		app, err := openApp(ctx, true)
		if err != nil {
			return err
		}
		defer app.Close()

		course, err := resolveCourse(ctx, app, args[0])
		if err != nil {
			return err
		}
		ix, err := app.Index(ctx, course.ID)
		if err != nil {
			return err
		}
		status, err := ix.Status(ctx)
		if err != nil {
			return err
		}
		if printJSON(status) {
			return nil
		}
		count, err := ix.ChunkCount(ctx)
		if err != nil {
			return err
		}

		fmt.Printf("Chunks: %d\n", count)
		if status.Compatible {
			fmt.Println("Index is compatible")
			return nil
		}
		fmt.Println("Index needs a rebuild (index build --rebuild):")
		for _, r := range status.Reasons {
			fmt.Printf("  - %s\n", r)
		}
		return nil
	},
}

var indexClearCmd = &cobra.Command{
	Use:   "clear <course>",
	Short: "Delete every indexed chunk of a course",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		app, err := openApp(ctx, true)
		if err != nil {
			return err
		}
		defer app.Close()

		course, err := resolveCourse(ctx, app, args[0])
		if err != nil {
			return err
		}
		ix, err := app.Index(ctx, course.ID)
		if err != nil {
			return err
		}
		return ix.Clear(ctx)
	},
}

var searchCmd = &cobra.Command{
	Use:   "search <course> <query>",
	Short: "Search a course's indexed documents",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		topK, _ := cmd.Flags().GetInt("top-k")
		if topK <= 0 {
			topK = cfg.Index.DefaultTopK
		}
		app, err := openApp(ctx, true)
		if err != nil {
			return err
		}
		defer app.Close()

		course, err := resolveCourse(ctx, app, args[0])
		if err != nil {
			return err
		}
		results, err := app.Search(ctx, course.ID, strings.Join(args[1:], " "), topK)
		if err != nil {
			return err
		}
		if printJSON(results) {
			return nil
		}
		if len(results) == 0 {
			fmt.Println("No results")
			return nil
		}
		for i, r := range results {
			text := r.Text
			if len([]rune(text)) > 160 {
				text = string([]rune(text)[:160]) + "..."
			}
			fmt.Printf("%d. %s p.%d (distance %.4f)\n   %s\n", i+1, r.FileName, r.Page, r.Distance, text)
		}
		return nil
	},
}

var metricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "Show operation timings",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		limit, _ := cmd.Flags().GetInt("limit")
		app, err := openApp(ctx, false)
		if err != nil {
			return err
		}
		defer app.Close()

		summary, err := app.Workspace.MetricsSummary(ctx)
		if err != nil {
			return err
		}
		recent, err := app.Workspace.RecentMetrics(ctx, limit)
		if err != nil {
			return err
		}
		if printJSON(map[string]any{"summary": summary, "recent": recent}) {
			return nil
		}

		for _, s := range summary {
			fmt.Printf("%-10s n=%-5d avg=%-10v min=%-10v max=%v\n", s.Operation, s.Total, s.Avg, s.Min, s.Max)
		}
		fmt.Println()
		for _, m := range recent {
			fmt.Printf("%s  %-10s %-10v %s\n", m.CreatedAt.Format("2006-01-02 15:04:05"), m.Operation, m.Elapsed, m.CourseID)
		}
		return nil
	},
}

func init() {
	indexCmd.AddCommand(indexBuildCmd, indexStatusCmd, indexClearCmd)
	indexBuildCmd.Flags().Bool("rebuild", false, "Clear the course index first")
	searchCmd.Flags().IntP("top-k", "k", 0, "Number of results (default from config)")
	metricsCmd.Flags().Int("limit", 20, "Recent entries to show")
}
