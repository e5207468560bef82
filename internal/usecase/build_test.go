package usecase

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hermes/config"
	"hermes/internal/adapter/embedding"
	"hermes/internal/domain"
	"hermes/internal/search"
)

func writeTestRepo(t *testing.T) string {
	t.Helper()
	repo := t.TempDir()

	files := map[string]string{
		"metrics/bmi.py": `def calculate_bmi(weight, height):
    """Body mass index from weight in kg and height in meters."""
    return weight / (height * height)
`,
		"util/parse.ts": `export function parseJson(s: string) {
    const value = JSON.parse(s)
    return value
}
`,
		"pkg/ratio.go": `package pkg

// WeightRatio computes the ratio between two measurements.
func WeightRatio(w, h float64) float64 {
	return w / h
}
`,
		"README.md": "# demo\n\nA small corpus used to exercise the indexing pipeline end to end.\n",
	}
	for path, content := range files {
		full := filepath.Join(repo, path)
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
	}
	return repo
}

func testBuildConfig(t *testing.T) *config.Config {
	cfg := config.Default()
	cfg.ArtifactsDir = t.TempDir()
	// Tiny corpus: keep every chunk.
	cfg.Chunk.MinChars = 10
	return cfg
}

func TestBuildIndexProducesAllArtifacts(t *testing.T) {
	repo := writeTestRepo(t)
	cfg := testBuildConfig(t)
	emb := embedding.NewHashEmbedder(64)

	summary, err := BuildIndex(repo, cfg, emb)
	require.NoError(t, err)

	assert.Equal(t, 4, summary.FilesScanned)
	assert.Greater(t, summary.NChunks, 0)
	assert.Equal(t, 64, summary.EmbeddingDim)
	assert.Positive(t, summary.ChunksPerLanguage["python"])
	assert.Positive(t, summary.ChunksPerLanguage["go"])

	for _, name := range []string{search.MetadataFile, search.DenseFile, search.SparseFile, search.EmbeddingsFile} {
		info, err := os.Stat(filepath.Join(cfg.ArtifactsDir, name))
		require.NoError(t, err, "artifact %s", name)
		assert.Equal(t, info.Size(), summary.ArtifactBytes[name])
	}

	// No staging leftovers after publish.
	_, err = os.Stat(filepath.Join(cfg.ArtifactsDir, ".staging"))
	assert.True(t, os.IsNotExist(err))
}

func TestBuildThenLoadAgree(t *testing.T) {
	repo := writeTestRepo(t)
	cfg := testBuildConfig(t)
	emb := embedding.NewHashEmbedder(64)

	summary, err := BuildIndex(repo, cfg, emb)
	require.NoError(t, err)

	p, err := search.Load(cfg, emb, &embedding.TermOverlapScorer{})
	require.NoError(t, err)
	defer p.Close()

	// Build summary and loaded stats agree on the chunk count, and the
	// dense index is the same size as the metadata store.
	stats := p.Stats()
	assert.Equal(t, summary.NChunks, stats.NChunks)
	assert.Equal(t, summary.NChunks, stats.IndexSize)
}

func TestBuildRejectsEmptyRepo(t *testing.T) {
	cfg := testBuildConfig(t)
	_, err := BuildIndex(t.TempDir(), cfg, embedding.NewHashEmbedder(64))
	require.Error(t, err)
}

func TestRebuildReplacesArtifacts(t *testing.T) {
	repo := writeTestRepo(t)
	cfg := testBuildConfig(t)
	emb := embedding.NewHashEmbedder(64)

	first, err := BuildIndex(repo, cfg, emb)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(repo, "extra.py"),
		[]byte("def added_later(x):\n    return x * 2\n"), 0o644))

	second, err := BuildIndex(repo, cfg, emb)
	require.NoError(t, err)
	assert.Greater(t, second.NChunks, first.NChunks)

	p, err := search.Load(cfg, emb, &embedding.TermOverlapScorer{})
	require.NoError(t, err)
	defer p.Close()
	assert.Equal(t, second.NChunks, p.NChunks())
}

func TestJobManagerLifecycle(t *testing.T) {
	repo := writeTestRepo(t)
	cfg := testBuildConfig(t)
	jobs := NewJobManager()

	assert.Equal(t, domain.JobIdle, jobs.Status().State)

	done := make(chan struct{})
	err := jobs.Start(repo, cfg, embedding.NewHashEmbedder(64), func(*domain.IndexSummary) {
		close(done)
	})
	require.NoError(t, err)

	select {
	case <-done:
	case <-time.After(30 * time.Second):
		t.Fatal("indexing job did not finish")
	}

	status := jobs.Status()
	assert.Equal(t, domain.JobDone, status.State)
	assert.Equal(t, repo, status.RepoPath)
	require.NotNil(t, status.Summary)
	assert.Greater(t, status.Summary.NChunks, 0)
	assert.Empty(t, status.Message)
}

func TestJobManagerErrorState(t *testing.T) {
	cfg := testBuildConfig(t)
	jobs := NewJobManager()

	// Empty directory: the build fails and the state machine lands in
	// error with a message.
	require.NoError(t, jobs.Start(t.TempDir(), cfg, embedding.NewHashEmbedder(64), nil))

	deadline := time.Now().Add(10 * time.Second)
	for jobs.Status().State == domain.JobIndexing && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}

	status := jobs.Status()
	require.Equal(t, domain.JobError, status.State)
	assert.NotEmpty(t, status.Message)
	assert.Nil(t, status.Summary)

	// A failed job does not block the next one.
	repo := writeTestRepo(t)
	require.NoError(t, jobs.Start(repo, cfg, embedding.NewHashEmbedder(64), nil))

	// Let the second job finish before the temp dirs are cleaned up.
	deadline = time.Now().Add(10 * time.Second)
	for jobs.Status().State == domain.JobIndexing && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
}
