// Package index makes a course's documents semantically searchable. Files
// are chunked per page, deduplicated by content hash, embedded and stored
// in a per-course vector namespace whose metadata tracks which index format
// and embedding model produced it.
package index

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/shkienao-pixel/UNSW-Exam-Master/pkg/embedding"
	"github.com/shkienao-pixel/UNSW-Exam-Master/pkg/extract"
	"github.com/shkienao-pixel/UNSW-Exam-Master/pkg/logging"
	"github.com/shkienao-pixel/UNSW-Exam-Master/pkg/vectordb"
)

// Version is the chunk layout version written to index metadata
const Version = "1"

const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 150
	DefaultTopK         = 8
)

// Collection metadata keys
const (
	MetaIndexVersion   = "index_version"
	MetaEmbeddingModel = "embedding_model_name"
	MetaEmbeddingDim   = "embedding_dim"
	MetaIncomplete     = "index_incomplete"
)

var namespaceUnsafe = regexp.MustCompile(`[^a-zA-Z0-9_-]`)

// Config configures an Index
type Config struct {
	CourseID  string
	Engine    *vectordb.Store
	Embedder  embedding.Provider
	Extractor extract.Extractor

	ChunkSize    int
	ChunkOverlap int
	// Concurrency is the number of files indexed in parallel
	Concurrency int
	Logger      logging.Logger
}

// File is a document to index
type File struct {
	Name string
	Data []byte
}

// Stats summarizes an IndexFiles call
type Stats struct {
	IndexedFiles int `json:"indexed_files"`
	SkippedFiles int `json:"skipped_files"`
	ChunksAdded  int `json:"chunks_added"`
}

// Status reports whether stored chunks are usable with the running
// embedder. Reasons holds one line per violated condition.
type Status struct {
	Compatible bool              `json:"compatible"`
	Reasons    []string          `json:"reasons"`
	Metadata   map[string]string `json:"metadata"`
	Expected   map[string]string `json:"expected"`
}

// Result is a ranked search hit
type Result struct {
	ID         string            `json:"id"`
	Text       string            `json:"text"`
	FileName   string            `json:"file_name"`
	FileHash   string            `json:"file_hash"`
	Page       int               `json:"page"`
	ChunkIndex int               `json:"chunk_index"`
	Distance   float64           `json:"distance"`
	Metadata   map[string]string `json:"metadata"`
}

// Index is the vector index of one course
type Index struct {
	cfg       Config
	namespace string
	chunker   Chunker
	logger    logging.Logger
}

// Namespace returns the vector namespace used for a course
func Namespace(courseID string) string {
	name := namespaceUnsafe.ReplaceAllString(courseID, "_")
	if len(name) > 64 {
		name = name[:64]
	}
	if name == "" {
		name = "default"
	}
	return "course_" + name
}

// New opens the index of cfg.CourseID, creating its namespace when needed
func New(ctx context.Context, cfg Config) (*Index, error) {
	if cfg.CourseID == "" {
		return nil, errors.New("index: course id is required")
	}
	if cfg.Engine == nil || cfg.Embedder == nil || cfg.Extractor == nil {
		return nil, errors.New("index: engine, embedder and extractor are required")
	}
	if cfg.ChunkSize == 0 {
		cfg.ChunkSize = DefaultChunkSize
		if cfg.ChunkOverlap == 0 {
			cfg.ChunkOverlap = DefaultChunkOverlap
		}
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	chunker, err := NewChunker(cfg.ChunkSize, cfg.ChunkOverlap)
	if err != nil {
		return nil, err
	}

	ix := &Index{
		cfg:       cfg,
		namespace: Namespace(cfg.CourseID),
		chunker:   chunker,
	}
	ix.logger = logging.OrNop(cfg.Logger).With("component", "index", "course_id", cfg.CourseID)

	_, err = cfg.Engine.EnsureCollection(ctx, ix.namespace, map[string]string{
		MetaIndexVersion:   Version,
		MetaEmbeddingModel: cfg.Embedder.Model(),
	})
	if err != nil {
		return nil, wrapError("open", err)
	}
	return ix, nil
}

// CourseID returns the course this index serves
func (ix *Index) CourseID() string { return ix.cfg.CourseID }

func (ix *Index) courseFilter() map[string]string {
	return map[string]string{"course_id": ix.cfg.CourseID}
}

// ContentHash is the hex SHA-256 used to deduplicate files
func ContentHash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// ChunkID is the deterministic id of a chunk
func ChunkID(fileHash string, page, chunkIndex int) string {
	return fmt.Sprintf("%s:%d:%d", fileHash, page, chunkIndex)
}

type fileJob struct {
	file File
	hash string
}

// IndexFiles indexes files into the course namespace. Empty files, files
// already indexed and repeats within the batch are skipped. Any failure
// marks the index incomplete and is returned as *Error; on success the
// index metadata is refreshed once every file has been processed. Chunks
// stored by another index version or embedding model must be cleared
// first: IndexFiles then fails with ErrIncompatible and leaves the index
// untouched.
func (ix *Index) IndexFiles(ctx context.Context, files []File) (Stats, error) {
	var (
		stats Stats
		jobs  []fileJob
		seen  = make(map[string]bool)
	)
	for _, f := range files {
		if len(f.Data) == 0 {
			stats.SkippedFiles++
			continue
		}
		h := ContentHash(f.Data)
		if seen[h] {
			stats.SkippedFiles++
			continue
		}
		seen[h] = true
		jobs = append(jobs, fileJob{file: f, hash: h})
	}

	storedDim, err := ix.checkCompatible(ctx)
	if err != nil {
		ix.logger.Warn("refusing to index into an incompatible index", "error", err)
		return Stats{}, err
	}

	var (
		mu  sync.Mutex
		dim = storedDim
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(ix.cfg.Concurrency)
	for _, job := range jobs {
		job := job
		g.Go(func() error {
			added, fileDim, err := ix.indexFile(gctx, job, storedDim)
			if err != nil {
				return &Error{Op: "index_files", File: job.file.Name, Err: err}
			}

			mu.Lock()
			defer mu.Unlock()
			if added < 0 {
				stats.SkippedFiles++
				return nil
			}
			if dim != 0 && fileDim != dim {
				return &Error{Op: "index_files", File: job.file.Name,
					Err: fmt.Errorf("%w: got %d, other files gave %d", vectordb.ErrDimensionMismatch, fileDim, dim)}
			}
			dim = fileDim
			stats.IndexedFiles++
			stats.ChunksAdded += added
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		if errors.Is(err, ErrIncompatible) {
			return Stats{}, err
		}
		ix.logger.Error("indexing failed, marking index incomplete", "error", err)
		if markErr := ix.MarkIncomplete(context.WithoutCancel(ctx)); markErr != nil {
			ix.logger.Error("failed to mark index incomplete", "error", markErr)
		}
		return Stats{}, err
	}

	meta := map[string]string{
		MetaIndexVersion:   Version,
		MetaEmbeddingModel: ix.cfg.Embedder.Model(),
		MetaIncomplete:     "0",
	}
	if dim > 0 {
		meta[MetaEmbeddingDim] = strconv.Itoa(dim)
	}
	if err := ix.cfg.Engine.UpdateCollectionMetadata(ctx, ix.namespace, meta); err != nil {
		return Stats{}, &Error{Op: "index_files", Err: err}
	}

	ix.logger.Info("indexed files",
		"indexed", stats.IndexedFiles, "skipped", stats.SkippedFiles, "chunks_added", stats.ChunksAdded)
	return stats, nil
}

// checkCompatible fails with ErrIncompatible when the namespace holds
// chunks written by another index version or embedding model. It returns
// the recorded dimension of existing chunks, or 0 when there are none.
func (ix *Index) checkCompatible(ctx context.Context) (int, error) {
	meta, err := ix.cfg.Engine.CollectionMetadata(ctx, ix.namespace)
	if err != nil {
		return 0, &Error{Op: "index_files", Err: err}
	}
	has, err := ix.HasIndexedContent(ctx)
	if err != nil {
		return 0, &Error{Op: "index_files", Err: err}
	}
	if !has {
		return 0, nil
	}

	model := ix.cfg.Embedder.Model()
	if v := meta[MetaIndexVersion]; v != Version {
		return 0, &Error{Op: "index_files",
			Err: fmt.Errorf("%w: %s=%s != %s", ErrIncompatible, MetaIndexVersion, orMissing(v), Version)}
	}
	if m := meta[MetaEmbeddingModel]; m != model {
		return 0, &Error{Op: "index_files",
			Err: fmt.Errorf("%w: %s=%s != %s", ErrIncompatible, MetaEmbeddingModel, orMissing(m), model)}
	}
	dim, err := strconv.Atoi(strings.TrimSpace(meta[MetaEmbeddingDim]))
	if err != nil || dim <= 0 {
		return 0, nil
	}
	return dim, nil
}

// indexFile returns the number of new chunks and the vector dimension, or
// added == -1 when the file was skipped. A positive want is the dimension
// of chunks already stored.
func (ix *Index) indexFile(ctx context.Context, job fileJob, want int) (int, int, error) {
	exists, err := ix.cfg.Engine.Exists(ctx, ix.namespace, map[string]string{
		"course_id": ix.cfg.CourseID,
		"file_hash": job.hash,
	})
	if err != nil {
		return 0, 0, err
	}
	if exists {
		ix.logger.Debug("file already indexed", "file", job.file.Name, "file_hash", job.hash)
		return -1, 0, nil
	}

	pages, err := ix.cfg.Extractor.ExtractPages(job.file.Data)
	if err != nil {
		return 0, 0, err
	}

	var embs []vectordb.Embedding
	var texts []string
	for _, page := range pages {
		for i, text := range ix.chunker.Split(page.Text) {
			texts = append(texts, text)
			embs = append(embs, vectordb.Embedding{
				ID:      ChunkID(job.hash, page.Number, i),
				Content: text,
				Metadata: map[string]string{
					"course_id":   ix.cfg.CourseID,
					"file_name":   job.file.Name,
					"file_hash":   job.hash,
					"page":        strconv.Itoa(page.Number),
					"chunk_index": strconv.Itoa(i),
				},
			})
		}
	}
	if len(embs) == 0 {
		ix.logger.Debug("file has no text", "file", job.file.Name)
		return -1, 0, nil
	}

	vectors, err := ix.cfg.Embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return 0, 0, err
	}
	if len(vectors) != len(embs) {
		return 0, 0, fmt.Errorf("embedder returned %d vectors for %d chunks", len(vectors), len(embs))
	}
	dim := len(vectors[0])
	for i := range embs {
		if len(vectors[i]) != dim || dim == 0 {
			return 0, 0, fmt.Errorf("%w: chunk %s", vectordb.ErrDimensionMismatch, embs[i].ID)
		}
		embs[i].Vector = vectors[i]
	}
	if want > 0 && dim != want {
		return 0, 0, fmt.Errorf("%w: %s=%d != %d", ErrIncompatible, MetaEmbeddingDim, want, dim)
	}

	added, err := ix.cfg.Engine.UpsertBatch(ctx, ix.namespace, embs)
	if err != nil {
		return 0, 0, err
	}
	ix.logger.Debug("indexed file", "file", job.file.Name, "chunks", len(embs), "added", added)
	return added, dim, nil
}

// Status compares the stored index metadata with what the running code
// expects
func (ix *Index) Status(ctx context.Context) (Status, error) {
	meta, err := ix.cfg.Engine.CollectionMetadata(ctx, ix.namespace)
	if err != nil {
		return Status{}, wrapError("status", err)
	}
	model := ix.cfg.Embedder.Model()

	var reasons []string
	if v := meta[MetaIndexVersion]; v != Version {
		reasons = append(reasons, fmt.Sprintf("%s=%s != %s", MetaIndexVersion, orMissing(v), Version))
	}
	if m := meta[MetaEmbeddingModel]; m != model {
		reasons = append(reasons, fmt.Sprintf("%s=%s != %s", MetaEmbeddingModel, orMissing(m), model))
	}
	if meta[MetaIncomplete] == "1" {
		reasons = append(reasons, MetaIncomplete+"=1")
	}
	if d := strings.TrimSpace(meta[MetaEmbeddingDim]); d != "" {
		if n, err := strconv.Atoi(d); err != nil || n <= 0 {
			reasons = append(reasons, fmt.Sprintf("%s invalid (%s)", MetaEmbeddingDim, d))
		}
	} else {
		has, err := ix.HasIndexedContent(ctx)
		if err != nil {
			return Status{}, wrapError("status", err)
		}
		if has {
			reasons = append(reasons, MetaEmbeddingDim+" missing")
		}
	}

	return Status{
		Compatible: len(reasons) == 0,
		Reasons:    reasons,
		Metadata:   meta,
		Expected: map[string]string{
			MetaIndexVersion:   Version,
			MetaEmbeddingModel: model,
		},
	}, nil
}

func orMissing(s string) string {
	if s == "" {
		return "missing"
	}
	return s
}

// Search returns up to topK chunks nearest to query, closest first. A
// blank query yields no results. topK == 0 means DefaultTopK and a
// negative topK is raised to 1.
func (ix *Index) Search(ctx context.Context, query string, topK int) ([]Result, error) {
	if strings.TrimSpace(query) == "" {
		return nil, nil
	}
	if topK == 0 {
		topK = DefaultTopK
	}
	topK = max(1, topK)

	vec, err := ix.cfg.Embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, wrapError("search", err)
	}

	count, err := ix.ChunkCount(ctx)
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, nil
	}

	k := min(topK, count)
	opts := vectordb.QueryOptions{TopK: k, Filter: ix.courseFilter()}
	matches, err := ix.cfg.Engine.Query(ctx, ix.namespace, vec, opts)

	// The population shrank between count and query, or part of it has
	// another dimension. Retry once with what is actually there.
	var short *vectordb.InsufficientCandidatesError
	if errors.As(err, &short) {
		if short.Available == 0 {
			return nil, nil
		}
		opts.TopK = short.Available
		matches, err = ix.cfg.Engine.Query(ctx, ix.namespace, vec, opts)
	}
	if err != nil {
		return nil, wrapError("search", err)
	}

	results := make([]Result, len(matches))
	for i, m := range matches {
		page, _ := strconv.Atoi(m.Metadata["page"])
		chunkIndex, _ := strconv.Atoi(m.Metadata["chunk_index"])
		results[i] = Result{
			ID:         m.ID,
			Text:       m.Content,
			FileName:   m.Metadata["file_name"],
			FileHash:   m.Metadata["file_hash"],
			Page:       page,
			ChunkIndex: chunkIndex,
			Distance:   m.Distance,
			Metadata:   m.Metadata,
		}
	}
	return results, nil
}

// Clear deletes every chunk of the course. Metadata is left alone.
func (ix *Index) Clear(ctx context.Context) error {
	n, err := ix.cfg.Engine.DeleteWhere(ctx, ix.namespace, ix.courseFilter())
	if err != nil {
		return wrapError("clear", err)
	}
	ix.logger.Info("cleared course index", "chunks", n)
	return nil
}

// HasIndexedContent reports whether the course has any chunks
func (ix *Index) HasIndexedContent(ctx context.Context) (bool, error) {
	ok, err := ix.cfg.Engine.Exists(ctx, ix.namespace, ix.courseFilter())
	return ok, wrapError("has_indexed_content", err)
}

// ChunkCount returns the number of chunks stored for the course
func (ix *Index) ChunkCount(ctx context.Context) (int, error) {
	n, err := ix.cfg.Engine.Count(ctx, ix.namespace, ix.courseFilter())
	return n, wrapError("chunk_count", err)
}

// MarkIncomplete flags the index as needing a rebuild
func (ix *Index) MarkIncomplete(ctx context.Context) error {
	err := ix.cfg.Engine.UpdateCollectionMetadata(ctx, ix.namespace, map[string]string{MetaIncomplete: "1"})
	return wrapError("mark_incomplete", err)
}
