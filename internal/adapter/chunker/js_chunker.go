package chunker

import (
	"regexp"
	"strings"

	"hermes/config"
	"hermes/internal/domain"
)

var (
	jsBlockStart = regexp.MustCompile(`^(?:export\s+)?(?:default\s+)?(?:(?:async\s+)?function\s+\w+|class\s+\w+|const\s+\w+\s*=\s*(?:async\s*)?\()`)
	jsSymbol     = regexp.MustCompile(`(?:function|class|const|let|var)\s+(\w+)`)
)

// JSChunker splits JavaScript and TypeScript at regex-detected top-level
// block starts. With fewer than two boundaries the heuristic chunker takes
// over.
type JSChunker struct {
	cfg config.ChunkConfig
}

func (c *JSChunker) ChunkFile(source, filePath, language string) []domain.Chunk {
	lines := splitLines(source)
	boundaries := c.findBoundaries(lines)

	if len(boundaries) < 2 {
		return (&HeuristicChunker{cfg: c.cfg}).ChunkFile(source, filePath, language)
	}

	var chunks []domain.Chunk

	for idx, start := range boundaries {
		end := len(lines)
		if idx+1 < len(boundaries) {
			end = boundaries[idx+1]
		}
		blockLines := lines[start:end]
		text := strings.Join(blockLines, "")
		symbol := ""
		if m := jsSymbol.FindStringSubmatch(strings.TrimSpace(lines[start])); m != nil {
			symbol = m[1]
		}

		if len(text) > c.cfg.MaxChars {
			chunks = append(chunks, splitLarge(blockLines, filePath, language, start+1, symbol, c.cfg)...)
			continue
		}
		if len(strings.TrimSpace(text)) < c.cfg.MinChars {
			continue
		}
		chunks = append(chunks, domain.Chunk{
			FilePath:   filePath,
			Language:   language,
			StartLine:  start + 1,
			EndLine:    end,
			SymbolName: symbol,
			CodeText:   text,
		})
	}

	return chunks
}

func (c *JSChunker) findBoundaries(lines []string) []int {
	bounds := []int{0}
	for i, line := range lines {
		if i == 0 {
			continue
		}
		if jsBlockStart.MatchString(line) {
			bounds = append(bounds, i)
		}
	}
	return bounds
}
