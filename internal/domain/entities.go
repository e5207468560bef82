package domain

// Chunk is one indexed region of a source file. Immutable once inserted.
// ChunkID is simultaneously the metadata store key, the row of the dense
// embedding matrix, and the document position in the sparse index.
type Chunk struct {
	ChunkID    int    `json:"chunk_id"`
	FilePath   string `json:"file_path"`
	Language   string `json:"language"`
	StartLine  int    `json:"start_line"`
	EndLine    int    `json:"end_line"`
	SymbolName string `json:"symbol_name"`
	CodeText   string `json:"code_text"`
}

// Candidate is the mutable per-request unit flowing through the search
// pipeline stages.
type Candidate struct {
	ChunkID        int
	RetrievalScore float64
	RetrievalRank  int
	RerankScore    *float64
}

// IndexSummary describes one completed build run.
type IndexSummary struct {
	FilesScanned      int              `json:"files_scanned"`
	NChunks           int              `json:"n_chunks"`
	ChunksPerLanguage map[string]int   `json:"chunks_per_language"`
	EmbeddingDim      int              `json:"embedding_dim"`
	BiencoderModel    string           `json:"biencoder_model"`
	ArtifactBytes     map[string]int64 `json:"artifact_bytes"`
	ScanSeconds       float64          `json:"time_scan_s"`
	ChunkSeconds      float64          `json:"time_chunk_s"`
	EmbedSeconds      float64          `json:"time_embed_s"`
	BuildSeconds      float64          `json:"time_build_s"`
	TotalSeconds      float64          `json:"time_total_s"`
	ChunksPerSec      float64          `json:"chunks_per_sec"`
}

// JobState is the indexing job lifecycle readable by the serving surface.
type JobState string

const (
	JobIdle     JobState = "idle"
	JobIndexing JobState = "indexing"
	JobDone     JobState = "done"
	JobError    JobState = "error"
)
