package port

// Embedder maps text to fixed-length L2-normalized vectors. Implementations
// are not assumed to be thread-safe; callers go through a single instance
// which serializes access internally.
type Embedder interface {
	// EncodeOne embeds a single text.
	EncodeOne(text string) ([]float32, error)

	// EncodeBatch embeds texts in sub-batches of batchSize, returning one
	// vector per input in input order.
	EncodeBatch(texts []string, batchSize int) ([][]float32, error)

	// Dimension returns the embedding vector dimension.
	Dimension() int

	// ModelName returns the name of the embedding model.
	ModelName() string
}

// PairScorer scores (query, passage) pairs. Higher is better; no
// normalization is guaranteed.
type PairScorer interface {
	// Score returns one relevance score per passage, in input order.
	Score(query string, passages []string) ([]float64, error)

	// ModelName returns the name of the scoring model.
	ModelName() string
}
