package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shkienao-pixel/UNSW-Exam-Master/pkg/embedding"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, EmbedderOpenAI, cfg.Embedder.Type)
	assert.Equal(t, 1000, cfg.Index.ChunkSize)
	assert.Equal(t, 150, cfg.Index.ChunkOverlap)
	assert.Equal(t, filepath.Join("data", "app.db"), cfg.Paths.DBPath)
	assert.Equal(t, filepath.Join("data", "courses"), cfg.Paths.ArtifactsDir)
}

func TestLoadDerivesPathsFromDataDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "exammaster.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
paths:
  data_dir: /srv/exam
embedder:
  type: hashing
index:
  chunk_size: 400
  chunk_overlap: 50
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/srv/exam/app.db", filepath.ToSlash(cfg.Paths.DBPath))
	assert.Equal(t, "/srv/exam/backups", filepath.ToSlash(cfg.Paths.BackupsDir))
	assert.Equal(t, EmbedderHashing, cfg.Embedder.Type)
	assert.Equal(t, 400, cfg.Index.ChunkSize)
	assert.Equal(t, 50, cfg.Index.ChunkOverlap)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"unknown embedder", "embedder:\n  type: magic\n"},
		{"overlap too large", "index:\n  chunk_size: 100\n  chunk_overlap: 100\n"},
		{"malformed", "index: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "c.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.yaml), 0o644))
			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}

func TestSaveThenLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := Default()
	cfg.Embedder.OpenAI.Model = "text-embedding-3-large"

	require.NoError(t, Save(path, cfg))
	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "text-embedding-3-large", loaded.Embedder.OpenAI.Model)
}

func TestAPIKeyReadsConfiguredEnv(t *testing.T) {
	t.Setenv("EXAM_TEST_KEY", "sk-test")
	cfg := Default()
	cfg.Embedder.OpenAI.APIKeyEnv = "EXAM_TEST_KEY"
	assert.Equal(t, "sk-test", cfg.APIKey())
}

func TestNewEmbedder(t *testing.T) {
	cfg := Default()
	cfg.Embedder.Type = EmbedderHashing
	cfg.Embedder.HashSize = 32
	p, err := cfg.NewEmbedder(nil)
	require.NoError(t, err)
	assert.Equal(t, "hashing-32", p.Model())

	cfg = Default()
	cfg.Embedder.OpenAI.APIKeyEnv = "EXAMMASTER_TEST_KEY"
	t.Setenv("EXAMMASTER_TEST_KEY", "")
	_, err = cfg.NewEmbedder(nil)
	assert.ErrorIs(t, err, embedding.ErrMissingCredential)

	t.Setenv("EXAMMASTER_TEST_KEY", "sk-test")
	p, err = cfg.NewEmbedder(nil)
	require.NoError(t, err)
	assert.Equal(t, "text-embedding-3-small", p.Model())
}
