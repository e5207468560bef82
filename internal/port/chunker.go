package port

import "hermes/internal/domain"

// Chunker splits one source file into chunks. ChunkID is left unassigned;
// the build orchestrator assigns ids at insertion time.
type Chunker interface {
	ChunkFile(source, filePath, language string) []domain.Chunk
}
