package fs

import (
	"path/filepath"
	"strings"
)

var extensionMap = map[string]string{
	".py":    "python",
	".pyi":   "python",
	".js":    "javascript",
	".jsx":   "javascript",
	".ts":    "typescript",
	".tsx":   "typescript",
	".java":  "java",
	".go":    "go",
	".rs":    "rust",
	".c":     "c",
	".h":     "c",
	".cpp":   "cpp",
	".cc":    "cpp",
	".hpp":   "cpp",
	".cs":    "csharp",
	".rb":    "ruby",
	".php":   "php",
	".swift": "swift",
	".kt":    "kotlin",
	".scala": "scala",
	".r":     "r",
	".sh":    "shell",
	".bash":  "shell",
	".zsh":   "shell",
	".lua":   "lua",
	".sql":   "sql",
	".md":    "markdown",
	".yaml":  "yaml",
	".yml":   "yaml",
	".json":  "json",
	".toml":  "toml",
	".xml":   "xml",
	".html":  "html",
	".css":   "css",
	".scss":  "scss",
}

// DetectLanguage returns the lowercase language identifier for a file path,
// or "" if the extension is not recognized.
func DetectLanguage(path string) string {
	return extensionMap[strings.ToLower(filepath.Ext(path))]
}
