package chunker

import (
	"strings"
	"testing"

	"hermes/config"
)

func testCfg() config.ChunkConfig {
	return config.ChunkConfig{MaxChars: 1500, OverlapLines: 3, MinChars: 50}
}

func TestForLanguageSelection(t *testing.T) {
	cfg := testCfg()

	if _, ok := ForLanguage("go", cfg).(*GoChunker); !ok {
		t.Error("go should use the AST chunker")
	}
	if _, ok := ForLanguage("python", cfg).(*PythonChunker); !ok {
		t.Error("python should use the python chunker")
	}
	if _, ok := ForLanguage("typescript", cfg).(*JSChunker); !ok {
		t.Error("typescript should use the js chunker")
	}
	if _, ok := ForLanguage("rust", cfg).(*HeuristicChunker); !ok {
		t.Error("unsupported languages should fall back to heuristic")
	}
}

func TestGoChunkerPerDeclaration(t *testing.T) {
	source := `package demo

import "fmt"

// Greet says hello.
func Greet(name string) string {
	return "hello " + name
}

// Add sums two ints and reports the result for logging purposes.
func Add(a, b int) int {
	fmt.Println("adding")
	return a + b
}
`
	chunks := (&GoChunker{cfg: testCfg()}).ChunkFile(source, "demo/demo.go", "go")

	var symbols []string
	for _, c := range chunks {
		symbols = append(symbols, c.SymbolName)
	}
	if len(chunks) < 2 {
		t.Fatalf("expected at least 2 chunks, got %d (%v)", len(chunks), symbols)
	}

	found := map[string]bool{}
	for _, c := range chunks {
		found[c.SymbolName] = true
		if c.StartLine < 1 || c.EndLine < c.StartLine {
			t.Errorf("chunk %q has bad line range %d-%d", c.SymbolName, c.StartLine, c.EndLine)
		}
		if !strings.Contains(source, strings.TrimRight(c.CodeText, "\n")) {
			t.Errorf("chunk %q text is not a verbatim slice", c.SymbolName)
		}
	}
	if !found["Greet"] || !found["Add"] {
		t.Errorf("missing function chunks, got %v", symbols)
	}
}

func TestGoChunkerFallsBackOnParseError(t *testing.T) {
	source := "this is not go code at all {{{\n" + strings.Repeat("some line of text that pads the file out\n", 10)
	chunks := (&GoChunker{cfg: testCfg()}).ChunkFile(source, "broken.go", "go")
	if len(chunks) == 0 {
		t.Fatal("expected heuristic fallback chunks")
	}
}

func TestPythonChunkerBoundaries(t *testing.T) {
	source := `import json
import sys

def parse_config(path):
    with open(path) as f:
        return json.load(f)

class Runner:
    def run(self):
        return parse_config("cfg.json")
`
	chunks := (&PythonChunker{cfg: testCfg()}).ChunkFile(source, "runner.py", "python")

	symbols := map[string]bool{}
	for _, c := range chunks {
		symbols[c.SymbolName] = true
	}
	if !symbols["parse_config"] {
		t.Errorf("missing parse_config chunk, got %v", symbols)
	}
	if !symbols["Runner"] {
		t.Errorf("missing Runner chunk, got %v", symbols)
	}
}

func TestHeuristicChunkerCoversFile(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 100; i++ {
		b.WriteString("let value = compute_something_interesting(context, options)\n")
	}
	source := b.String()

	chunks := (&HeuristicChunker{cfg: testCfg()}).ChunkFile(source, "big.lua", "lua")
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks for 100 lines, got %d", len(chunks))
	}

	if chunks[0].StartLine != 1 {
		t.Errorf("first chunk starts at %d, want 1", chunks[0].StartLine)
	}
	last := chunks[len(chunks)-1]
	if last.EndLine != 100 {
		t.Errorf("last chunk ends at %d, want 100", last.EndLine)
	}

	// Consecutive chunks leave no gap between them.
	for i := 1; i < len(chunks); i++ {
		if chunks[i].StartLine > chunks[i-1].EndLine+1 {
			t.Errorf("gap between chunk %d and %d", i-1, i)
		}
	}
}

func TestMinCharsDiscardsTinyChunks(t *testing.T) {
	chunks := (&HeuristicChunker{cfg: testCfg()}).ChunkFile("x = 1\n", "tiny.py", "python")
	if len(chunks) != 0 {
		t.Fatalf("expected no chunks below min_chars, got %d", len(chunks))
	}
}

func TestSplitLargeBlock(t *testing.T) {
	cfg := config.ChunkConfig{MaxChars: 400, OverlapLines: 2, MinChars: 20}
	var b strings.Builder
	b.WriteString("def giant_function():\n")
	for i := 0; i < 40; i++ {
		b.WriteString("    total = total + compute_row(row, weights)\n")
	}

	chunks := (&PythonChunker{cfg: cfg}).ChunkFile(b.String(), "giant.py", "python")
	if len(chunks) < 2 {
		t.Fatalf("oversized block should split, got %d chunks", len(chunks))
	}
	for _, c := range chunks {
		if !strings.HasPrefix(c.SymbolName, "giant_function::part") {
			t.Errorf("split chunk symbol = %q", c.SymbolName)
		}
	}
}
