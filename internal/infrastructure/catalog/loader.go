package catalog

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"

	"github.com/alem-hub/course-hub/internal/application/command"
)

//go:embed schema.json
var documentSchema string

// ErrInvalidDocument wraps schema violations.
var ErrInvalidDocument = errors.New("catalog: invalid document")

// Loader parses and validates catalog documents.
type Loader struct {
	schema *gojsonschema.Schema
	logger *slog.Logger
}

// NewLoader compiles the embedded document schema.
func NewLoader(logger *slog.Logger) (*Loader, error) {
	if logger == nil {
		logger = slog.Default()
	}
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(documentSchema))
	if err != nil {
		return nil, fmt.Errorf("compiling catalog schema: %w", err)
	}
	return &Loader{schema: schema, logger: logger.With("component", "catalog")}, nil
}

// Parse validates raw YAML against the schema and decodes it.
func (l *Loader) Parse(data []byte) (Document, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return Document{}, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	if len(root.Content) == 0 {
		return Document{}, fmt.Errorf("%w: empty document", ErrInvalidDocument)
	}

	var generic interface{}
	if err := root.Decode(&generic); err != nil {
		return Document{}, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	result, err := l.schema.Validate(gojsonschema.NewGoLoader(generic))
	if err != nil {
		return Document{}, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return Document{}, fmt.Errorf("%w: %s", ErrInvalidDocument, strings.Join(msgs, "; "))
	}

	var doc Document
	if err := root.Decode(&doc); err != nil {
		return Document{}, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	return doc, nil
}

// LoadFile reads and parses one document.
func (l *Loader) LoadFile(path string) (Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Document{}, err
	}
	doc, err := l.Parse(data)
	if err != nil {
		return Document{}, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

// Files lists the YAML documents under dir in lexical order.
func Files(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if ext := filepath.Ext(path); ext == ".yaml" || ext == ".yml" {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing catalog %s: %w", dir, err)
	}
	sort.Strings(files)
	return files, nil
}

// ═══════════════════════════════════════════════════════════════════════════
// IMPORT
// ═══════════════════════════════════════════════════════════════════════════

// CourseImporter stores one imported course.
type CourseImporter interface {
	Handle(ctx context.Context, cmd command.ImportCourseCommand) (*command.ImportCourseResult, error)
}

// ImportReport summarizes a directory import.
type ImportReport struct {
	Imported []*command.ImportCourseResult
	Failed   map[string]error
}

// ImportDir imports every document under dir. With failFast the first
// failing document stops the run; otherwise failures are collected and
// the rest still go through.
func (l *Loader) ImportDir(ctx context.Context, dir string, importer CourseImporter, failFast bool) (*ImportReport, error) {
	files, err := Files(dir)
	if err != nil {
		return nil, err
	}

	report := &ImportReport{Failed: make(map[string]error)}
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		res, err := l.importFile(ctx, path, importer)
		if err != nil {
			report.Failed[path] = err
			l.logger.Warn("catalog document rejected", "path", path, "error", err)
			if failFast {
				return report, err
			}
			continue
		}
		report.Imported = append(report.Imported, res)
	}

	l.logger.Info("catalog imported",
		"dir", dir,
		"documents", len(files),
		"imported", len(report.Imported),
		"failed", len(report.Failed),
	)
	return report, nil
}

func (l *Loader) importFile(ctx context.Context, path string, importer CourseImporter) (*command.ImportCourseResult, error) {
	doc, err := l.LoadFile(path)
	if err != nil {
		return nil, err
	}
	cmd, err := doc.ToCommand(filepath.Base(path))
	if err != nil {
		return nil, err
	}
	return importer.Handle(ctx, cmd)
}
