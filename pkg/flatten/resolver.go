// Package flatten resolves the import tree of a Solidity entry file and
// concatenates the sources, dependencies first, into a single file.
package flatten

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/src-d/enry/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/Sumatoshi-tech/contractkit/pkg/importgraph"
	"github.com/Sumatoshi-tech/contractkit/pkg/textutil"
)

const (
	tracerName       = "contractkit/flatten"
	progressIndent   = "  "
	languageSolidity = "Solidity"
	cycleArrow       = " -> "
	solidityExt      = ".sol"
)

var pragmaPattern = regexp.MustCompile(`(?m)^[ \t]*pragma[ \t]+solidity\b`)

// Options configures a Resolver or an Emitter. Zero-value fields use defaults.
type Options struct {
	// WorkDir anchors relative entry paths and progress display.
	// Empty means paths are used and displayed as given.
	WorkDir string

	// Extractor finds import statements. Nil uses RegexExtractor.
	Extractor Extractor

	// Progress receives one indented line per visited file. Nil discards.
	Progress io.Writer

	// Logger is an optional structured logger. Nil uses slog default.
	Logger *slog.Logger

	// Tracer is an optional OTel tracer. Nil disables tracing.
	Tracer trace.Tracer
}

func (o Options) withDefaults() Options {
	if o.Extractor == nil {
		o.Extractor = NewRegexExtractor()
	}

	if o.Progress == nil {
		o.Progress = io.Discard
	}

	if o.Logger == nil {
		o.Logger = slog.Default()
	}

	if o.Tracer == nil {
		o.Tracer = noop.NewTracerProvider().Tracer(tracerName)
	}

	if o.WorkDir != "" {
		o.WorkDir = canonicalDir(o.WorkDir)
	}

	return o
}

// SourceFile is one file of the import tree.
type SourceFile struct {
	// Path is absolute and symlink-free.
	Path string
	// Content is the raw file text.
	Content []byte
	// Imports holds the raw import targets in source order.
	Imports []string
	// Language is "Solidity" for files with a .sol extension or a
	// pragma solidity directive. Other files get the language enry
	// detects, empty when unknown.
	Language string
}

// Resolution is the result of resolving an entry file.
type Resolution struct {
	// Entry is the canonical path of the entry file.
	Entry string
	// Order lists every file exactly once, each after all files it imports.
	Order []string
	// Graph holds every import edge seen during resolution.
	Graph *importgraph.Graph
}

// Resolver walks import trees depth first.
type Resolver struct {
	opts Options
}

// NewResolver creates a Resolver.
func NewResolver(opts Options) *Resolver {
	return &Resolver{opts: opts.withDefaults()}
}

type frame struct {
	file *SourceFile
	next int
}

// Resolve returns the files reachable from entry in emission order:
// each import subtree is fully resolved, in declaration order, before the
// importing file. A file already resolved is not visited again. An import
// that leads back to a file still being resolved fails with ErrCyclicImport.
func (r *Resolver) Resolve(ctx context.Context, entry string) (*Resolution, error) {
	ctx, span := r.opts.Tracer.Start(ctx, "flatten.resolve",
		trace.WithAttributes(attribute.String("flatten.entry", entry)))
	defer span.End()

	res, err := r.resolve(ctx, entry)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())

		return nil, err
	}

	span.SetAttributes(attribute.Int("flatten.files", len(res.Order)))

	return res, nil
}

func (r *Resolver) resolve(ctx context.Context, entry string) (*Resolution, error) {
	if strings.TrimSpace(entry) == "" {
		return nil, ErrNoEntry
	}

	if !filepath.IsAbs(entry) && r.opts.WorkDir != "" {
		entry = filepath.Join(r.opts.WorkDir, entry)
	}

	root, err := canonicalPath(entry)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", err, r.Display(entry))
	}

	res := &Resolution{Entry: root, Graph: importgraph.New()}

	addErr := res.Graph.AddFile(root)
	if addErr != nil {
		return nil, addErr
	}

	done := make(map[string]bool)
	onStack := make(map[string]bool)

	var stack []*frame

	push := func(path string) error {
		file, loadErr := r.Load(path)
		if loadErr != nil {
			return loadErr
		}

		fmt.Fprintf(r.opts.Progress, "%s%s\n", strings.Repeat(progressIndent, len(stack)), r.Display(path))

		stack = append(stack, &frame{file: file})
		onStack[path] = true

		return nil
	}

	pushErr := push(root)
	if pushErr != nil {
		return nil, pushErr
	}

	for len(stack) > 0 {
		ctxErr := ctx.Err()
		if ctxErr != nil {
			return nil, fmt.Errorf("resolve %s: %w", r.Display(root), ctxErr)
		}

		top := stack[len(stack)-1]

		if top.next < len(top.file.Imports) {
			target := top.file.Imports[top.next]
			top.next++

			child, childErr := r.resolveImport(top.file.Path, target)
			if childErr != nil {
				return nil, childErr
			}

			if onStack[child] {
				return nil, r.cycleError(stack, child)
			}

			edgeErr := res.Graph.AddImport(top.file.Path, child)
			if edgeErr != nil {
				return nil, edgeErr
			}

			if done[child] {
				continue
			}

			pushErr = push(child)
			if pushErr != nil {
				return nil, pushErr
			}

			continue
		}

		stack = stack[:len(stack)-1]
		delete(onStack, top.file.Path)
		done[top.file.Path] = true
		res.Order = append(res.Order, top.file.Path)
	}

	return res, nil
}

// Load reads path and extracts its imports.
func (r *Resolver) Load(path string) (*SourceFile, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrSourceNotFound, r.Display(path))
		}

		return nil, fmt.Errorf("%w: %s: %w", ErrSourceUnreadable, r.Display(path), err)
	}

	if textutil.IsBinary(content) {
		return nil, fmt.Errorf("%w: %s", ErrBinarySource, r.Display(path))
	}

	file := &SourceFile{
		Path:     path,
		Content:  content,
		Imports:  r.opts.Extractor.ExtractImports(content),
		Language: detectLanguage(path, content),
	}

	if file.Language != languageSolidity {
		r.opts.Logger.Warn("source not detected as Solidity",
			"path", r.Display(path), "language", file.Language)
	}

	r.opts.Logger.Debug("loaded source",
		"path", r.Display(path), "imports", len(file.Imports), "lines", textutil.CountLines(content))

	return file, nil
}

// detectLanguage reports Solidity by extension or pragma. enry has no
// Solidity entry, so it only names everything else.
func detectLanguage(path string, content []byte) string {
	if strings.EqualFold(filepath.Ext(path), solidityExt) || pragmaPattern.Match(content) {
		return languageSolidity
	}

	return enry.GetLanguage(filepath.Base(path), content)
}

// Display renders path relative to WorkDir with a "./" prefix. Paths
// outside WorkDir are returned unchanged.
func (r *Resolver) Display(path string) string {
	return DisplayPath(r.opts.WorkDir, path)
}

func (r *Resolver) resolveImport(importer, target string) (string, error) {
	joined := filepath.Join(filepath.Dir(importer), target)

	path, err := canonicalPath(joined)
	if err != nil {
		return "", fmt.Errorf("%w: %s (imported by %s)", err, r.Display(joined), r.Display(importer))
	}

	return path, nil
}

func (r *Resolver) cycleError(stack []*frame, repeated string) error {
	start := 0

	for i, fr := range stack {
		if fr.file.Path == repeated {
			start = i

			break
		}
	}

	names := make([]string, 0, len(stack)-start+1)
	for _, fr := range stack[start:] {
		names = append(names, r.Display(fr.file.Path))
	}

	names = append(names, r.Display(repeated))

	return fmt.Errorf("%w: %s", ErrCyclicImport, strings.Join(names, cycleArrow))
}

// DisplayPath renders path relative to workDir with a "./" prefix. Paths
// outside workDir, or any path when workDir is empty, are returned unchanged.
func DisplayPath(workDir, path string) string {
	if workDir == "" {
		return path
	}

	rel, err := filepath.Rel(workDir, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return path
	}

	return "." + string(filepath.Separator) + rel
}

// canonicalPath makes path absolute and resolves symlinks. A missing file
// is reported as ErrSourceNotFound.
func canonicalPath(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrSourceUnreadable, err)
	}

	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", ErrSourceNotFound
		}

		return "", fmt.Errorf("%w: %w", ErrSourceUnreadable, err)
	}

	return resolved, nil
}

func canonicalDir(dir string) string {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return filepath.Clean(dir)
	}

	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return abs
	}

	return resolved
}
