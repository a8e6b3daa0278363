package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	exammaster "github.com/shkienao-pixel/UNSW-Exam-Master"
	"github.com/shkienao-pixel/UNSW-Exam-Master/internal/config"
	"github.com/shkienao-pixel/UNSW-Exam-Master/pkg/logging"
	"github.com/shkienao-pixel/UNSW-Exam-Master/pkg/workspace"
)

var (
	configPath string
	outputJSON bool

	cfg    *config.AppConfig
	logger *logging.ZapLogger
)

var rootCmd = &cobra.Command{
	Use:           "exammaster",
	Short:         "Course workspace and document index for exam preparation",
	Long:          `Manage courses, uploaded materials, scope sets and generated outputs, and search indexed course documents.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		_ = godotenv.Load()

		var err error
		if configPath != "" {
			cfg, err = config.Load(configPath)
		} else {
			cfg, _, err = config.LoadDefault()
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		logger, err = logging.New(cfg.Log.Mode, cfg.Log.Level)
		if err != nil {
			return fmt.Errorf("failed to create logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			logger.Sync()
		}
	},
}

// openApp opens the workspace. The embedder is only built when needed so
// that workspace commands work without an API key.
func openApp(ctx context.Context, withEmbedder bool) (*exammaster.App, error) {
	appCfg := exammaster.Config{
		DBPath:       cfg.Paths.DBPath,
		VectorDBPath: cfg.Paths.VectorDBPath,
		ArtifactsDir: cfg.Paths.ArtifactsDir,
		BackupsDir:   cfg.Paths.BackupsDir,
		ChunkSize:    cfg.Index.ChunkSize,
		ChunkOverlap: cfg.Index.ChunkOverlap,
		Concurrency:  cfg.Index.Concurrency,
		Logger:       logger,
	}
	if withEmbedder {
		emb, err := cfg.NewEmbedder(logger)
		if err != nil {
			return nil, err
		}
		appCfg.Embedder = emb
	}
	return exammaster.Open(ctx, appCfg)
}

// resolveCourse accepts a course code or id
func resolveCourse(ctx context.Context, app *exammaster.App, ref string) (*workspace.Course, error) {
	course, err := app.Workspace.GetCourseByCode(ctx, ref)
	if err == nil {
		return course, nil
	}
	if byID, idErr := app.Workspace.GetCourse(ctx, ref); idErr == nil {
		return byID, nil
	}
	return nil, err
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}

func parseIDs(args []string) ([]int64, error) {
	ids := make([]int64, 0, len(args))
	for _, a := range args {
		id, err := parseID(a)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// printJSON writes v as indented JSON when --json is set and reports
// whether it did
func printJSON(v any) bool {
	if !outputJSON {
		return false
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to encode output: %v\n", err)
		return true
	}
	fmt.Println(string(data))
	return true
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default ./exammaster.yaml, then ~/.config/exammaster/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&outputJSON, "json", false, "Output as JSON")

	rootCmd.AddCommand(
		migrateCmd,
		courseCmd,
		artifactCmd,
		scopeCmd,
		outputCmd,
		deckCmd,
		cardCmd,
		mistakeCmd,
		indexCmd,
		searchCmd,
		metricsCmd,
		maintainCmd,
	)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
