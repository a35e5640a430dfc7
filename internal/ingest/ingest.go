package ingest

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"evenflow/internal/affinity"
	"evenflow/internal/config"
	"evenflow/internal/parser"
)

// Loader receives parsed location definitions.
type Loader interface {
	AddLocation(def affinity.Definition) error
}

type Result struct {
	LocationsLoaded int
	FilesSkipped    int
	Documents       []*parser.Document
	Errors          []error
}

// Run walks the configured location paths and loads every definition into
// loader. A bad file or duplicate id fails that entry only; the error is
// collected and loading continues.
func Run(ctx context.Context, cfg *config.ProjectConfig, loader Loader) (*Result, error) {
	files, err := walkDefinitionFiles(cfg.LocationPaths(), cfg.ExcludePaths())
	if err != nil {
		return nil, fmt.Errorf("walking location files: %w", err)
	}

	result := &Result{}
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		data, err := os.ReadFile(path)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Errorf("reading %s: %w", path, err))
			continue
		}
		if len(bytes.TrimSpace(data)) == 0 {
			result.FilesSkipped++
			continue
		}

		doc, err := parser.Parse(data)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Errorf("parsing %s: %w", path, err))
			continue
		}
		doc.SourceFile = path

		if err := loader.AddLocation(doc.Definition); err != nil {
			result.Errors = append(result.Errors, fmt.Errorf("loading %s: %w", path, err))
			continue
		}
		result.LocationsLoaded++
		result.Documents = append(result.Documents, doc)
	}
	return result, nil
}

// ParseAll parses every definition file without loading it anywhere.
func ParseAll(cfg *config.ProjectConfig) ([]*parser.Document, []error, error) {
	files, err := walkDefinitionFiles(cfg.LocationPaths(), cfg.ExcludePaths())
	if err != nil {
		return nil, nil, fmt.Errorf("walking location files: %w", err)
	}
	var docs []*parser.Document
	var errs []error
	for _, path := range files {
		doc, err := parser.ParseFile(path)
		if err != nil {
			errs = append(errs, fmt.Errorf("parsing %s: %w", path, err))
			continue
		}
		docs = append(docs, doc)
	}
	return docs, errs, nil
}

func walkDefinitionFiles(roots []string, excludes []string) ([]string, error) {
	excluded := make([]string, 0, len(excludes))
	for _, path := range excludes {
		if path == "" {
			continue
		}
		excluded = append(excluded, filepath.Clean(path))
	}

	var files []string
	for _, root := range roots {
		if root == "" {
			continue
		}
		root = filepath.Clean(root)
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() && isExcluded(path, excluded) {
				return filepath.SkipDir
			}
			if d.IsDir() {
				return nil
			}
			if !isDefinitionFile(d.Name()) {
				return nil
			}
			if isExcluded(path, excluded) {
				return nil
			}
			files = append(files, path)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	sort.Strings(files)
	return files, nil
}

func isDefinitionFile(name string) bool {
	lower := strings.ToLower(name)
	return strings.HasSuffix(lower, ".yaml") || strings.HasSuffix(lower, ".yml")
}

func isExcluded(path string, excludes []string) bool {
	clean := filepath.Clean(path)
	for _, exclude := range excludes {
		if exclude == clean || strings.HasPrefix(clean, exclude+string(os.PathSeparator)) {
			return true
		}
	}
	return false
}
