package fs

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	full := filepath.Join(root, rel)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestScanFindsRecognizedLanguages(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "app/main.py", "print('hi')\n")
	writeFile(t, root, "web/index.ts", "export const x = 1\n")
	writeFile(t, root, "notes.bin", "\x00\x01\x02")

	files, err := NewScanner(nil).Scan(root)
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 2 {
		t.Fatalf("found %d files, want 2", len(files))
	}
	byPath := map[string]string{}
	for _, f := range files {
		byPath[f.RelativePath] = f.Language
		if strings.Contains(f.RelativePath, "\\") {
			t.Errorf("relative path %q not slash-normalized", f.RelativePath)
		}
	}
	if byPath["app/main.py"] != "python" {
		t.Errorf("main.py language = %q", byPath["app/main.py"])
	}
	if byPath["web/index.ts"] != "typescript" {
		t.Errorf("index.ts language = %q", byPath["web/index.ts"])
	}
}

func TestScanSkipsNoiseDirs(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "src/ok.go", "package ok\n")
	writeFile(t, root, "node_modules/lib/x.js", "module.exports = 1\n")
	writeFile(t, root, "vendor/dep/y.go", "package dep\n")
	writeFile(t, root, ".git/hooks/z.sh", "echo hi\n")
	writeFile(t, root, "artifacts/w.py", "x = 1\n")

	files, err := NewScanner(nil).Scan(root)
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 1 || files[0].RelativePath != "src/ok.go" {
		t.Fatalf("scan = %+v, want only src/ok.go", files)
	}
}

func TestScanExcludePatterns(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "src/real.py", "x = 1\n")
	writeFile(t, root, "src/gen/generated.py", "y = 2\n")

	files, err := NewScanner([]string{"**/gen/**"}).Scan(root)
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 1 || files[0].RelativePath != "src/real.py" {
		t.Fatalf("scan = %+v, want only src/real.py", files)
	}
}

func TestScanSkipsEmptyAndHugeFiles(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "empty.py", "")
	writeFile(t, root, "huge.py", strings.Repeat("x = 1\n", MaxFileBytes/6+1))
	writeFile(t, root, "ok.py", "x = 1\n")

	files, err := NewScanner(nil).Scan(root)
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 1 || files[0].RelativePath != "ok.py" {
		t.Fatalf("scan = %+v, want only ok.py", files)
	}
}

func TestDetectLanguage(t *testing.T) {
	cases := map[string]string{
		"a/b.py":     "python",
		"c.TS":       "typescript",
		"d.go":       "go",
		"e.rs":       "rust",
		"f.unknown":  "",
		"Makefile":   "",
		"styles.css": "css",
	}
	for path, want := range cases {
		if got := DetectLanguage(path); got != want {
			t.Errorf("DetectLanguage(%q) = %q, want %q", path, got, want)
		}
	}
}
