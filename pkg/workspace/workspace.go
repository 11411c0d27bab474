// Package workspace reads source files and summarizes the project the helper runs in.
package workspace

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Scan limits.
const (
	MaxDepth        = 5
	MaxFileSize     = 100000
	DefaultMaxFiles = 100
	SummaryMaxFiles = 50
)

var skipDirs = map[string]struct{}{
	"node_modules": {},
	".git":         {},
	"dist":         {},
	"build":        {},
	".next":        {},
	"__pycache__":  {},
}

var codeExtensions = map[string]struct{}{
	".js": {}, ".ts": {}, ".jsx": {}, ".tsx": {},
	".py": {}, ".java": {}, ".cpp": {}, ".c": {},
	".cs": {}, ".php": {}, ".rb": {}, ".go": {},
	".rs": {}, ".swift": {}, ".kt": {},
}

var mainFileHints = []string{"index", "main", "app", "server", "package.json", "readme"}

// File is a source file loaded into memory.
type File struct {
	Path      string    `json:"path"`
	Content   string    `json:"-"`
	Size      int64     `json:"size"`
	Modified  time.Time `json:"modified"`
	Extension string    `json:"extension"`
}

// Summary describes a project for prompts and the status view.
type Summary struct {
	TotalFiles int            `json:"totalFiles"`
	Languages  map[string]int `json:"languages"`
	TotalLines int            `json:"totalLines"`
	MainFiles  []string       `json:"mainFiles"`
}

// ReadFile loads path and its metadata.
func ReadFile(path string) (*File, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, fmt.Errorf("path is a directory: %s", path)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return &File{
		Path:      path,
		Content:   string(content),
		Size:      info.Size(),
		Modified:  info.ModTime(),
		Extension: filepath.Ext(path),
	}, nil
}

// WriteFile writes content to path, creating parent directories.
func WriteFile(path, content string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, []byte(content), 0o644)
}

var errLimitReached = errors.New("file limit reached")

// Scan collects code files under root in lexical order. Vendor and build
// directories are skipped, as are files at or above MaxFileSize.
func Scan(root string, maxFiles int) ([]*File, error) {
	if maxFiles <= 0 {
		maxFiles = DefaultMaxFiles
	}
	root = filepath.Clean(root)

	var files []*File
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			return nil
		}
		depth := depthOf(root, path)
		if d.IsDir() {
			if path == root {
				return nil
			}
			if _, skip := skipDirs[d.Name()]; skip || depth > MaxDepth {
				return filepath.SkipDir
			}
			return nil
		}
		if depth > MaxDepth+1 {
			return nil
		}
		if _, ok := codeExtensions[strings.ToLower(filepath.Ext(path))]; !ok {
			return nil
		}
		info, err := d.Info()
		if err != nil || info.Size() >= MaxFileSize {
			return nil
		}
		f, err := ReadFile(path)
		if err != nil {
			return nil
		}
		files = append(files, f)
		if len(files) >= maxFiles {
			return errLimitReached
		}
		return nil
	})
	if err != nil && !errors.Is(err, errLimitReached) {
		return nil, fmt.Errorf("scan %s: %w", root, err)
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].Path < files[j].Path
	})
	return files, nil
}

// Summarize scans up to SummaryMaxFiles files and reports counts per language.
func Summarize(root string) (*Summary, error) {
	files, err := Scan(root, SummaryMaxFiles)
	if err != nil {
		return nil, err
	}
	s := &Summary{
		TotalFiles: len(files),
		Languages:  map[string]int{},
		MainFiles:  []string{},
	}
	for _, f := range files {
		s.Languages[f.Extension]++
		s.TotalLines += len(strings.Split(f.Content, "\n"))
		if isMainFile(f.Path) {
			s.MainFiles = append(s.MainFiles, f.Path)
		}
	}
	return s, nil
}

// LanguageList returns the detected extensions in sorted order.
func (s *Summary) LanguageList() []string {
	out := make([]string, 0, len(s.Languages))
	for ext := range s.Languages {
		out = append(out, ext)
	}
	sort.Strings(out)
	return out
}

func isMainFile(path string) bool {
	name := strings.ToLower(filepath.Base(path))
	for _, hint := range mainFileHints {
		if strings.Contains(name, hint) {
			return true
		}
	}
	return false
}

// depthOf counts path segments below root; files directly in root have depth 1.
func depthOf(root, path string) int {
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == "." {
		return 0
	}
	return len(strings.Split(rel, string(filepath.Separator)))
}
