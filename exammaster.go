// Package exammaster wires the exam workspace together: it brings the
// relational store to the latest schema, then exposes the workspace store
// and per-course vector indexes over one set of on-disk paths.
//
// # Quick Start
//
//	app, err := exammaster.Open(ctx, exammaster.Config{
//	    DBPath:       "data/app.db",
//	    VectorDBPath: "data/vectors.db",
//	    ArtifactsDir: "data/courses",
//	    BackupsDir:   "data/backups",
//	    Embedder:     embedding.NewHashing(256),
//	})
//	defer app.Close()
//
//	course, _ := app.Workspace.CreateCourse(ctx, "COMP3900", "Project")
//	art, _, _ := app.Workspace.SaveArtifact(ctx, course.ID, "week1.pdf", data)
//	stats, _ := app.IndexArtifacts(ctx, course.ID, []int64{art.ID})
//	hits, _ := app.Search(ctx, course.ID, "sprint planning", 5)
package exammaster

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/shkienao-pixel/UNSW-Exam-Master/internal/sqlitedb"
	"github.com/shkienao-pixel/UNSW-Exam-Master/pkg/embedding"
	"github.com/shkienao-pixel/UNSW-Exam-Master/pkg/extract"
	"github.com/shkienao-pixel/UNSW-Exam-Master/pkg/index"
	"github.com/shkienao-pixel/UNSW-Exam-Master/pkg/logging"
	"github.com/shkienao-pixel/UNSW-Exam-Master/pkg/migrate"
	"github.com/shkienao-pixel/UNSW-Exam-Master/pkg/vectordb"
	"github.com/shkienao-pixel/UNSW-Exam-Master/pkg/workspace"
)

// ErrNoEmbedder is returned by index operations when Config.Embedder is nil
var ErrNoEmbedder = errors.New("exammaster: no embedding provider configured")

// Config represents application configuration
type Config struct {
	DBPath       string // Relational store file
	VectorDBPath string // Vector store file
	ArtifactsDir string // Root for uploaded files, archived by migration backups
	BackupsDir   string // Migration backups

	ChunkSize    int
	ChunkOverlap int
	Concurrency  int

	Embedder  embedding.Provider // Needed only by indexing and search
	Extractor extract.Extractor  // Defaults to extract.NewAuto()
	Logger    logging.Logger
}

// App is an opened workspace
type App struct {
	Workspace *workspace.Store
	Vectors   *vectordb.Store

	// SchemaVersion is the schema version after migration
	SchemaVersion int

	cfg    Config
	db     *sql.DB
	logger logging.Logger

	mu      sync.Mutex
	indexes map[string]*index.Index
}

// Open migrates the relational store to the latest version and opens the
// workspace and vector stores. Nothing touches the stores before the
// migration has succeeded.
func Open(ctx context.Context, cfg Config) (*App, error) {
	if cfg.DBPath == "" || cfg.VectorDBPath == "" || cfg.ArtifactsDir == "" || cfg.BackupsDir == "" {
		return nil, errors.New("exammaster: db, vector db, artifacts and backups paths are required")
	}
	if cfg.Extractor == nil {
		cfg.Extractor = extract.NewAuto()
	}
	logger := logging.OrNop(cfg.Logger)

	runner, err := migrate.New(migrate.Config{
		DBPath:     cfg.DBPath,
		BackupsDir: cfg.BackupsDir,
		AssetsDir:  cfg.ArtifactsDir,
		Logger:     logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create migration runner: %w", err)
	}
	version, err := runner.ApplyLatest(ctx)
	if err != nil {
		return nil, err
	}

	db, err := sqlitedb.Open(ctx, cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	ws, err := workspace.New(db, workspace.Config{ArtifactsDir: cfg.ArtifactsDir, Logger: logger})
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	vectors, err := vectordb.New(vectordb.Config{Path: cfg.VectorDBPath, Logger: logger})
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := vectors.Init(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize vector store: %w", err)
	}

	logger.Info("workspace opened", "schema_version", version)
	return &App{
		Workspace:     ws,
		Vectors:       vectors,
		SchemaVersion: version,
		cfg:           cfg,
		db:            db,
		logger:        logger,
		indexes:       make(map[string]*index.Index),
	}, nil
}

// Index returns the vector index of an existing course
func (a *App) Index(ctx context.Context, courseID string) (*index.Index, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if ix, ok := a.indexes[courseID]; ok {
		return ix, nil
	}
	if a.cfg.Embedder == nil {
		return nil, ErrNoEmbedder
	}
	if _, err := a.Workspace.GetCourse(ctx, courseID); err != nil {
		return nil, err
	}
	ix, err := index.New(ctx, index.Config{
		CourseID:     courseID,
		Engine:       a.Vectors,
		Embedder:     a.cfg.Embedder,
		Extractor:    a.cfg.Extractor,
		ChunkSize:    a.cfg.ChunkSize,
		ChunkOverlap: a.cfg.ChunkOverlap,
		Concurrency:  a.cfg.Concurrency,
		Logger:       a.logger,
	})
	if err != nil {
		return nil, err
	}
	a.indexes[courseID] = ix
	return ix, nil
}

// IndexArtifacts indexes stored artifacts of a course. An empty id list
// means every artifact of the course. The run is recorded as an "index"
// metric whether or not it succeeds.
func (a *App) IndexArtifacts(ctx context.Context, courseID string, artifactIDs []int64) (index.Stats, error) {
	start := time.Now()
	stats, files, err := a.indexArtifacts(ctx, courseID, artifactIDs)

	meta := map[string]any{
		"files":         files,
		"indexed_files": stats.IndexedFiles,
		"skipped_files": stats.SkippedFiles,
		"chunks_added":  stats.ChunksAdded,
		"ok":            err == nil,
	}
	if err != nil {
		meta["error"] = err.Error()
	}
	a.Workspace.RecordMetric(ctx, "index", courseID, time.Since(start), meta)
	return stats, err
}

func (a *App) indexArtifacts(ctx context.Context, courseID string, artifactIDs []int64) (index.Stats, int, error) {
	ix, err := a.Index(ctx, courseID)
	if err != nil {
		return index.Stats{}, 0, err
	}

	var artifacts []workspace.Artifact
	if len(artifactIDs) == 0 {
		artifacts, err = a.Workspace.ListArtifacts(ctx, courseID)
	} else {
		artifacts, err = a.Workspace.ListArtifactsByIDs(ctx, courseID, artifactIDs)
	}
	if err != nil {
		return index.Stats{}, 0, err
	}

	files := make([]index.File, 0, len(artifacts))
	for i := range artifacts {
		data, err := a.Workspace.ReadArtifact(&artifacts[i])
		if err != nil {
			return index.Stats{}, len(artifacts), err
		}
		files = append(files, index.File{Name: artifacts[i].FileName, Data: data})
	}

	stats, err := ix.IndexFiles(ctx, files)
	return stats, len(files), err
}

// Search queries a course's index and records a "search" metric
func (a *App) Search(ctx context.Context, courseID, query string, topK int) ([]index.Result, error) {
	start := time.Now()
	ix, err := a.Index(ctx, courseID)
	if err != nil {
		return nil, err
	}

	results, err := ix.Search(ctx, query, topK)
	a.Workspace.RecordMetric(ctx, "search", courseID, time.Since(start), map[string]any{
		"top_k":   topK,
		"results": len(results),
		"ok":      err == nil,
	})
	return results, err
}

// Close closes both stores
func (a *App) Close() error {
	return errors.Join(a.Vectors.Close(), a.db.Close())
}
