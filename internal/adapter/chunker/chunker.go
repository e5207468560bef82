package chunker

import (
	"regexp"
	"strconv"
	"strings"

	"hermes/config"
	"hermes/internal/domain"
	"hermes/internal/port"
)

// ForLanguage returns a chunker for the language. Go files get AST-based
// chunking, Python and JavaScript/TypeScript get regex block detection, and
// everything else falls back to the heuristic line chunker.
func ForLanguage(language string, cfg config.ChunkConfig) port.Chunker {
	switch language {
	case "go":
		return &GoChunker{cfg: cfg}
	case "python":
		return &PythonChunker{cfg: cfg}
	case "javascript", "typescript":
		return &JSChunker{cfg: cfg}
	default:
		return &HeuristicChunker{cfg: cfg}
	}
}

// Patterns that hint at block boundaries, language-agnostic.
var blockHint = regexp.MustCompile(`^(?:func |fn |def |class |public |private |protected |interface |struct |impl |module )`)

// HeuristicChunker splits source into fixed-size windows with overlap,
// preferring to break at structural boundaries when one is in reach.
type HeuristicChunker struct {
	cfg config.ChunkConfig
}

func (c *HeuristicChunker) ChunkFile(source, filePath, language string) []domain.Chunk {
	lines := splitLines(source)
	if len(lines) == 0 {
		return nil
	}

	maxLines := windowLines(c.cfg)
	overlap := c.cfg.OverlapLines
	var chunks []domain.Chunk

	i := 0
	for i < len(lines) {
		windowEnd := min(i+maxLines, len(lines))
		breakAt := windowEnd

		// Back-scan the second half of the window for a block start.
		for j := windowEnd - 1; j > max(i+maxLines/2, i); j-- {
			if j < len(lines) && blockHint.MatchString(lines[j]) {
				breakAt = j
				break
			}
		}

		text := strings.Join(lines[i:breakAt], "")
		if len(strings.TrimSpace(text)) >= c.cfg.MinChars {
			chunks = append(chunks, domain.Chunk{
				FilePath:  filePath,
				Language:  language,
				StartLine: i + 1,
				EndLine:   breakAt,
				CodeText:  text,
			})
		}

		if breakAt >= len(lines) {
			break
		}
		if breakAt-overlap > i {
			i = breakAt - overlap
		} else {
			i = breakAt
		}
	}

	return chunks
}

// splitLines splits keeping line terminators, so chunk text is a verbatim
// slice of the file.
func splitLines(source string) []string {
	if source == "" {
		return nil
	}
	parts := strings.SplitAfter(source, "\n")
	if parts[len(parts)-1] == "" {
		parts = parts[:len(parts)-1]
	}
	return parts
}

func windowLines(cfg config.ChunkConfig) int {
	return max(10, cfg.MaxChars/80)
}

// splitLarge breaks an oversized block into line windows with overlap.
// globalStart is the 1-indexed line of the block in the file.
func splitLarge(lines []string, filePath, language string, globalStart int, symbol string, cfg config.ChunkConfig) []domain.Chunk {
	maxLines := windowLines(cfg)
	overlap := cfg.OverlapLines
	var chunks []domain.Chunk

	i := 0
	part := 0
	for i < len(lines) {
		end := min(i+maxLines, len(lines))
		text := strings.Join(lines[i:end], "")
		if len(strings.TrimSpace(text)) >= cfg.MinChars {
			name := symbol
			if name != "" {
				name = name + "::part" + strconv.Itoa(part)
			}
			chunks = append(chunks, domain.Chunk{
				FilePath:   filePath,
				Language:   language,
				StartLine:  globalStart + i,
				EndLine:    globalStart + end - 1,
				SymbolName: name,
				CodeText:   text,
			})
		}
		part++
		if end < len(lines) && end-overlap > i {
			i = end - overlap
		} else {
			i = end
		}
	}

	return chunks
}
