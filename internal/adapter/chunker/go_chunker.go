package chunker

import (
	"go/ast"
	"go/parser"
	"go/token"
	"strings"

	"hermes/config"
	"hermes/internal/domain"
)

// GoChunker splits Go source per top-level declaration using the standard
// parser. Files that fail to parse fall back to the heuristic chunker.
type GoChunker struct {
	cfg config.ChunkConfig
}

func (c *GoChunker) ChunkFile(source, filePath, language string) []domain.Chunk {
	fset := token.NewFileSet()
	f, err := parser.ParseFile(fset, filePath, source, parser.ParseComments)
	if err != nil {
		return (&HeuristicChunker{cfg: c.cfg}).ChunkFile(source, filePath, language)
	}

	lines := splitLines(source)
	var chunks []domain.Chunk

	type block struct {
		start, end int
		symbol     string
	}
	var blocks []block

	for _, decl := range f.Decls {
		start := fset.Position(decl.Pos()).Line
		end := fset.Position(decl.End()).Line
		symbol := ""

		switch d := decl.(type) {
		case *ast.FuncDecl:
			symbol = d.Name.Name
			// Attach the doc comment to the chunk.
			if d.Doc != nil {
				start = fset.Position(d.Doc.Pos()).Line
			}
		case *ast.GenDecl:
			if d.Doc != nil {
				start = fset.Position(d.Doc.Pos()).Line
			}
			if len(d.Specs) == 1 {
				if ts, ok := d.Specs[0].(*ast.TypeSpec); ok {
					symbol = ts.Name.Name
				}
			}
		}

		blocks = append(blocks, block{start: start, end: end, symbol: symbol})
	}

	if len(blocks) == 0 {
		return (&HeuristicChunker{cfg: c.cfg}).ChunkFile(source, filePath, language)
	}

	for _, b := range blocks {
		if b.start < 1 || b.end > len(lines) {
			continue
		}
		blockLines := lines[b.start-1 : b.end]
		text := strings.Join(blockLines, "")

		if len(text) > c.cfg.MaxChars {
			chunks = append(chunks, splitLarge(blockLines, filePath, language, b.start, b.symbol, c.cfg)...)
			continue
		}
		if len(strings.TrimSpace(text)) < c.cfg.MinChars {
			continue
		}
		chunks = append(chunks, domain.Chunk{
			FilePath:   filePath,
			Language:   language,
			StartLine:  b.start,
			EndLine:    b.end,
			SymbolName: b.symbol,
			CodeText:   text,
		})
	}

	return chunks
}
