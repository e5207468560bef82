package fs

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// MaxFileBytes caps indexable file size, keeping binary blobs and
// generated bundles out of the corpus.
const MaxFileBytes = 1 << 20

var skipDirs = map[string]struct{}{
	".git": {}, ".hg": {}, ".svn": {},
	"node_modules": {}, "__pycache__": {}, ".tox": {}, ".nox": {},
	"venv": {}, ".venv": {}, "env": {},
	".idea": {}, ".vscode": {},
	"dist": {}, "build": {}, ".eggs": {},
	"vendor": {}, "third_party": {},
	"artifacts": {}, "reports": {},
}

// ScannedFile is a source file discovered in the repository.
type ScannedFile struct {
	Path         string // absolute
	RelativePath string // forward-slash normalized, relative to repo root
	Language     string
	SizeBytes    int64
}

// Scanner walks a repository and yields candidate source files.
type Scanner struct {
	excludes []string
}

// NewScanner creates a scanner. Excludes are doublestar patterns matched
// against the slash-normalized relative path, on top of the built-in
// skip-dir set.
func NewScanner(excludes []string) *Scanner {
	return &Scanner{excludes: excludes}
}

// Scan recursively walks root and returns indexable source files in
// deterministic (lexical walk) order.
func (s *Scanner) Scan(root string) ([]ScannedFile, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	var results []ScannedFile

	err = filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		name := info.Name()
		if info.IsDir() {
			if path == root {
				return nil
			}
			if _, skip := skipDirs[name]; skip || strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		if s.excluded(rel) {
			return nil
		}

		lang := DetectLanguage(path)
		if lang == "" {
			return nil
		}

		if info.Size() == 0 || info.Size() > MaxFileBytes {
			return nil
		}

		results = append(results, ScannedFile{
			Path:         path,
			RelativePath: rel,
			Language:     lang,
			SizeBytes:    info.Size(),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.Info("repo_scan_complete", "repo", root, "files_found", len(results))
	return results, nil
}

func (s *Scanner) excluded(rel string) bool {
	for _, pattern := range s.excludes {
		if matched, err := doublestar.Match(pattern, rel); err == nil && matched {
			return true
		}
	}
	return false
}

// ReadFile reads a file as a UTF-8 string.
func ReadFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
