package vault

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// ErrVaultNotFound is returned when the vault root directory does not exist.
var ErrVaultNotFound = errors.New("vault path does not exist")

// Document is one ingestible unit of text read from the vault.
// Immutable once produced by the reader.
type Document struct {
	// Path is the document's identifier: its path relative to the vault root.
	Path    string
	Title   string
	Content string
	// FilePath is the absolute path the content was read from.
	FilePath string
}

// Reader walks a vault directory and produces documents for every file with
// the configured extension, recursively, in lexical order.
type Reader struct {
	Root      string
	Extension string
	// Exclude holds doublestar glob patterns matched against the
	// root-relative path; matching files are skipped.
	Exclude []string
	Logger  *slog.Logger
}

func NewReader(root string, opts ...Option) *Reader {
	r := &Reader{
		Root:      root,
		Extension: ".md",
		Logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

type Option func(*Reader)

func WithExtension(ext string) Option {
	return func(r *Reader) {
		if ext != "" {
			r.Extension = ext
		}
	}
}

func WithExclude(globs []string) Option {
	return func(r *Reader) { r.Exclude = globs }
}

func WithLogger(logger *slog.Logger) Option {
	return func(r *Reader) {
		if logger != nil {
			r.Logger = logger
		}
	}
}

// ReadAll returns every eligible document under the root. Unreadable files
// are logged and skipped; a missing root aborts with ErrVaultNotFound.
func (r *Reader) ReadAll() ([]Document, error) {
	info, err := os.Stat(r.Root)
	if err != nil || !info.IsDir() {
		return nil, ErrVaultNotFound
	}

	var docs []Document
	walkErr := filepath.WalkDir(r.Root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if d != nil && d.IsDir() {
				r.Logger.Warn("could not read directory", "path", path, "error", err)
				return filepath.SkipDir
			}
			r.Logger.Warn("could not read file", "path", path, "error", err)
			return nil
		}

		rel, relErr := filepath.Rel(r.Root, path)
		if relErr != nil {
			return relErr
		}
		if rel == "." {
			return nil
		}

		if hasHiddenComponent(rel) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			return nil
		}
		if filepath.Ext(path) != r.Extension {
			return nil
		}
		if r.excluded(filepath.ToSlash(rel)) {
			return nil
		}

		content, readErr := os.ReadFile(path)
		if readErr != nil {
			r.Logger.Warn("could not read file", "path", path, "error", readErr)
			return nil
		}

		docs = append(docs, Document{
			Path:     rel,
			Title:    deriveTitle(path, string(content)),
			Content:  string(content),
			FilePath: path,
		})
		return nil
	})
	if walkErr != nil {
		return nil, walkErr
	}

	return docs, nil
}

func (r *Reader) excluded(rel string) bool {
	for _, pattern := range r.Exclude {
		if ok, err := doublestar.Match(pattern, rel); err == nil && ok {
			return true
		}
	}
	return false
}

// hasHiddenComponent reports whether any path component starts with a dot.
func hasHiddenComponent(rel string) bool {
	for _, part := range strings.Split(filepath.ToSlash(rel), "/") {
		if strings.HasPrefix(part, ".") {
			return true
		}
	}
	return false
}

// deriveTitle takes the remainder of a leading "# " heading line, trimmed.
// Without one, the filename minus its extension is the title.
func deriveTitle(path, content string) string {
	if strings.HasPrefix(content, "# ") {
		firstLine, _, _ := strings.Cut(content, "\n")
		return strings.TrimSpace(firstLine[2:])
	}
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
