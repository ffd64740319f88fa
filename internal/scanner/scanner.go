// Package scanner walks a source tree, recognizes class-like declarations,
// and extracts trace annotations from their documentation blocks. Results
// are graph record batches: a CodeFile node per file, a Class node per
// declaration, IMPLEMENTS edges from file to class, and TRACE edges from
// class to the normalized use cases its annotation references.
package scanner

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"tracekg/internal/config"
	"tracekg/internal/errors"
	"tracekg/internal/logging"
	"tracekg/internal/model"
)

// Declaration is one class-like declaration found in a source file.
type Declaration struct {
	Name string
	Line int
	Doc  string // attached documentation block, "" when absent
}

// Extractor recognizes declarations in one or more languages.
type Extractor interface {
	// Supports reports whether the extractor handles files with this
	// extension (lowercase, including the dot).
	Supports(ext string) bool
	// Extract returns the declarations in the given source.
	Extract(ctx context.Context, path string, src []byte) ([]Declaration, error)
}

// Scanner scans source trees for design-element implementations.
type Scanner struct {
	cfg       config.ScanConfig
	logger    *logging.Logger
	extractor Extractor
}

// NewScanner creates a scanner using the best available extractor.
func NewScanner(cfg config.ScanConfig, logger *logging.Logger) *Scanner {
	return &Scanner{
		cfg:       cfg,
		logger:    logger,
		extractor: newExtractor(),
	}
}

// Scan walks the source tree under root and returns the extracted batch.
// Per-file failures become warnings; only an unusable root is an error.
func (s *Scanner) Scan(ctx context.Context, root string) (*model.Batch, error) {
	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		return nil, errors.Wrap(errors.ScanRootInvalid, "scan root "+root, err)
	}

	batch := model.NewBatch()
	filesScanned := 0

	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // unreadable entries are skipped
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if d.IsDir() {
			if path != root && s.skipDir(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}

		ext := strings.ToLower(filepath.Ext(path))
		if !s.extractor.Supports(ext) {
			return nil
		}

		s.scanFile(ctx, root, path, batch)
		filesScanned++
		return nil
	})
	if walkErr != nil {
		return nil, errors.Wrap(errors.ScanRootInvalid, "walking "+root, walkErr)
	}

	s.logger.Debug("scan complete", map[string]interface{}{
		"root":  root,
		"files": filesScanned,
		"nodes": len(batch.Nodes),
		"edges": len(batch.Edges),
	})

	return batch, nil
}

func (s *Scanner) skipDir(name string) bool {
	if strings.HasPrefix(name, ".") {
		return true
	}
	for _, ignored := range s.cfg.IgnoreDirs {
		if name == ignored {
			return true
		}
	}
	return false
}

func (s *Scanner) scanFile(ctx context.Context, root, path string, batch *model.Batch) {
	rel := relPath(root, path)

	if s.cfg.MaxFileSizeBytes > 0 {
		if info, err := os.Stat(path); err == nil && info.Size() > int64(s.cfg.MaxFileSizeBytes) {
			batch.Warn(model.WarnUnrecognizedLine, rel, 0, "file exceeds scan size limit, skipped")
			return
		}
	}

	src, err := os.ReadFile(path)
	if err != nil {
		batch.Warn(model.WarnUnrecognizedLine, rel, 0, "unreadable file: "+err.Error())
		return
	}

	decls, err := s.extractor.Extract(ctx, path, src)
	if err != nil {
		batch.Warn(model.WarnUnrecognizedLine, rel, 0, "extraction failed: "+err.Error())
		return
	}
	if len(decls) == 0 {
		return
	}

	batch.AddNode(model.Node{Label: model.LabelCodeFile, Key: rel, Props: map[string]interface{}{
		"path": rel,
	}})

	for _, decl := range decls {
		batch.AddNode(model.Node{Label: model.LabelClass, Key: decl.Name, Props: map[string]interface{}{
			"name":  decl.Name,
			"stage": string(model.StageCode),
		}})
		batch.AddEdge(model.Edge{
			Type:     model.EdgeImplements,
			SrcLabel: model.LabelCodeFile, SrcKey: rel,
			DstLabel: model.LabelClass, DstKey: decl.Name,
		})

		ann := ParseAnnotation(decl.Doc)
		for _, bad := range ann.Malformed {
			batch.Warn(model.WarnNormalization, rel, decl.Line,
				fmt.Sprintf("class %s: unparsable trace token %q", decl.Name, bad))
		}
		if len(ann.UseCases) == 0 {
			batch.Warn(model.WarnCoverageGap, rel, decl.Line,
				fmt.Sprintf("class %s has no trace annotation", decl.Name))
			continue
		}
		for _, uc := range ann.UseCases {
			batch.AddEdge(model.Edge{
				Type:     model.EdgeTrace,
				SrcLabel: model.LabelClass, SrcKey: decl.Name,
				DstLabel: model.LabelUseCase, DstKey: uc,
			})
		}
	}
}

// relPath normalizes a file path relative to the scan root with forward
// slashes, the canonical CodeFile key form.
func relPath(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		rel = path
	}
	return filepath.ToSlash(rel)
}
