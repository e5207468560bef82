package usecase

import (
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/schollz/progressbar/v3"

	"hermes/config"
	"hermes/internal/adapter/analyzer"
	"hermes/internal/adapter/chunker"
	"hermes/internal/adapter/fs"
	"hermes/internal/adapter/store"
	"hermes/internal/domain"
	"hermes/internal/index"
	"hermes/internal/port"
	"hermes/internal/search"
)

// BuildIndex runs the full offline pipeline: scan -> chunk -> embed ->
// build artifacts. All four artifacts are written to a staging directory
// and only renamed into place once every one of them has been built. The
// renames happen one file at a time, so a failure part-way through them can
// leave old and new artifacts side by side.
func BuildIndex(repoPath string, cfg *config.Config, embedder port.Embedder) (*domain.IndexSummary, error) {
	t0 := time.Now()

	// 1. Scan repository.
	slog.Info("phase_scan", "repo", repoPath)
	files, err := fs.NewScanner(nil).Scan(repoPath)
	if err != nil {
		return nil, fmt.Errorf("repository scan failed: %w", err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no indexable files found in %s", repoPath)
	}
	tScan := time.Now()

	// 2. Chunk files.
	slog.Info("phase_chunk", "n_files", len(files))
	var chunks []domain.Chunk
	perLanguage := make(map[string]int)
	for _, sf := range files {
		source, err := fs.ReadFile(sf.Path)
		if err != nil {
			slog.Warn("read_failed", "file", sf.RelativePath, "error", err)
			continue
		}
		c := chunker.ForLanguage(sf.Language, cfg.Chunk)
		fileChunks := c.ChunkFile(source, sf.RelativePath, sf.Language)
		for _, fc := range fileChunks {
			perLanguage[fc.Language]++
		}
		chunks = append(chunks, fileChunks...)
	}
	if len(chunks) == 0 {
		return nil, fmt.Errorf("chunking produced zero chunks")
	}
	slog.Info("chunking_complete", "n_chunks", len(chunks))
	tChunk := time.Now()

	// 3. Embed chunks in batches.
	slog.Info("phase_embed", "model", embedder.ModelName())
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.CodeText
	}
	embeddings, err := embedBatches(embedder, texts, cfg.Embed.BiencoderBatchSize)
	if err != nil {
		return nil, fmt.Errorf("embedding failed: %w", err)
	}
	tEmbed := time.Now()

	// 4. Build artifacts in a staging directory.
	artifacts := cfg.ArtifactsDir
	if err := os.MkdirAll(artifacts, 0o755); err != nil {
		return nil, err
	}
	staging := filepath.Join(artifacts, ".staging")
	if err := os.RemoveAll(staging); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(staging, 0o755); err != nil {
		return nil, err
	}
	defer os.RemoveAll(staging)

	if err := buildArtifacts(staging, cfg, chunks, texts, embeddings); err != nil {
		return nil, err
	}

	// 5. Rename the staged artifacts into place as a group.
	artifactNames := []string{search.MetadataFile, search.DenseFile, search.SparseFile, search.EmbeddingsFile}
	bytesPerArtifact := make(map[string]int64, len(artifactNames))
	for _, name := range artifactNames {
		src := filepath.Join(staging, name)
		info, err := os.Stat(src)
		if err != nil {
			return nil, fmt.Errorf("staged artifact %s missing: %w", name, err)
		}
		if err := os.Rename(src, filepath.Join(artifacts, name)); err != nil {
			return nil, fmt.Errorf("failed to publish artifact %s: %w", name, err)
		}
		bytesPerArtifact[name] = info.Size()
	}
	tEnd := time.Now()

	summary := &domain.IndexSummary{
		FilesScanned:      len(files),
		NChunks:           len(chunks),
		ChunksPerLanguage: perLanguage,
		EmbeddingDim:      embedder.Dimension(),
		BiencoderModel:    embedder.ModelName(),
		ArtifactBytes:     bytesPerArtifact,
		ScanSeconds:       roundSec(tScan.Sub(t0)),
		ChunkSeconds:      roundSec(tChunk.Sub(tScan)),
		EmbedSeconds:      roundSec(tEmbed.Sub(tChunk)),
		BuildSeconds:      roundSec(tEnd.Sub(tEmbed)),
		TotalSeconds:      roundSec(tEnd.Sub(t0)),
		ChunksPerSec:      math.Round(float64(len(chunks))/tEnd.Sub(t0).Seconds()*10) / 10,
	}
	slog.Info("indexing_complete", "n_files", summary.FilesScanned, "n_chunks", summary.NChunks,
		"time_total_s", summary.TotalSeconds)
	return summary, nil
}

// buildArtifacts writes all four co-registered artifacts from the same
// ordered chunk list, which is what keeps the chunk-id spaces aligned.
func buildArtifacts(staging string, cfg *config.Config, chunks []domain.Chunk, texts []string, embeddings [][]float32) error {
	// Metadata store: ids are assigned 0..n-1 in insertion order.
	st, err := store.Open(filepath.Join(staging, search.MetadataFile), false)
	if err != nil {
		return err
	}
	ids, err := st.InsertMany(chunks)
	if err != nil {
		st.Close()
		return err
	}
	if err := st.Close(); err != nil {
		return err
	}
	for i, id := range ids {
		if id != i {
			return fmt.Errorf("metadata ids not dense (got %d at row %d): %w", id, i, domain.ErrIntegrity)
		}
	}

	// Dense index over the embedding matrix, rows co-registered with ids.
	dim := 0
	if len(embeddings) > 0 {
		dim = len(embeddings[0])
	}
	dense := index.BuildDense(cfg.Index, embeddings, dim)
	if err := dense.WriteFile(filepath.Join(staging, search.DenseFile)); err != nil {
		return err
	}

	// Raw embeddings for IVF retraining and audit.
	if err := index.WriteNpy(filepath.Join(staging, search.EmbeddingsFile), embeddings); err != nil {
		return err
	}

	// Sparse BM25 index over the shared tokenization.
	tokenLists := make([][]string, len(texts))
	for i, t := range texts {
		tokenLists[i] = analyzer.Tokenize(t)
	}
	sparse := index.NewSparse(index.DefaultK1, index.DefaultB)
	sparse.Build(tokenLists)
	return sparse.Save(filepath.Join(staging, search.SparseFile))
}

func embedBatches(embedder port.Embedder, texts []string, batchSize int) ([][]float32, error) {
	if batchSize <= 0 {
		batchSize = 64
	}

	bar := progressbar.Default(int64(len(texts)), "embedding")
	embeddings := make([][]float32, 0, len(texts))
	for i := 0; i < len(texts); i += batchSize {
		end := min(i+batchSize, len(texts))
		vecs, err := embedder.EncodeBatch(texts[i:end], batchSize)
		if err != nil {
			return nil, err
		}
		embeddings = append(embeddings, vecs...)
		bar.Add(end - i)
	}
	bar.Finish()
	return embeddings, nil
}

func roundSec(d time.Duration) float64 {
	return float64(d.Milliseconds()) / 1000
}
