package chunker

import (
	"regexp"
	"strings"

	"hermes/config"
	"hermes/internal/domain"
)

// Top-level Python definitions start at column zero.
var (
	pyBlockStart = regexp.MustCompile(`^(?:async\s+def|def|class)\s+\w+`)
	pySymbol     = regexp.MustCompile(`^(?:async\s+def|def|class)\s+(\w+)`)
)

// PythonChunker splits Python source at top-level def/class boundaries,
// keeping the module preamble (imports, constants) as its own chunk.
type PythonChunker struct {
	cfg config.ChunkConfig
}

func (c *PythonChunker) ChunkFile(source, filePath, language string) []domain.Chunk {
	lines := splitLines(source)
	boundaries := c.findBoundaries(lines)

	if len(boundaries) == 0 {
		return (&HeuristicChunker{cfg: c.cfg}).ChunkFile(source, filePath, language)
	}

	var chunks []domain.Chunk

	// Module preamble before the first definition.
	if first := boundaries[0]; first > 0 {
		preamble := strings.Join(lines[:first], "")
		if len(strings.TrimSpace(preamble)) >= c.cfg.MinChars {
			chunks = append(chunks, domain.Chunk{
				FilePath:   filePath,
				Language:   language,
				StartLine:  1,
				EndLine:    first,
				SymbolName: "<module>",
				CodeText:   preamble,
			})
		}
	}

	for idx, start := range boundaries {
		end := len(lines)
		if idx+1 < len(boundaries) {
			end = boundaries[idx+1]
		}
		blockLines := lines[start:end]
		text := strings.Join(blockLines, "")
		symbol := ""
		if m := pySymbol.FindStringSubmatch(lines[start]); m != nil {
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

// findBoundaries returns 0-indexed lines where top-level definitions begin.
// Decorator lines directly above a definition belong to its block.
func (c *PythonChunker) findBoundaries(lines []string) []int {
	var bounds []int
	for i, line := range lines {
		if !pyBlockStart.MatchString(line) {
			continue
		}
		start := i
		for start > 0 && strings.HasPrefix(lines[start-1], "@") {
			start--
		}
		bounds = append(bounds, start)
	}
	return bounds
}
