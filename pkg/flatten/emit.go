package flatten

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Sumatoshi-tech/contractkit/pkg/textutil"
)

const (
	fileHeaderFormat = "/**\n * File: %s\n */\n\n"
	fileSeparator    = "\n\n"
)

// Emitter concatenates resolved sources into one flattened file.
type Emitter struct {
	opts Options
}

// NewEmitter creates an Emitter.
func NewEmitter(opts Options) *Emitter {
	return &Emitter{opts: opts.withDefaults()}
}

// Emit writes files to w in the given order. Each file gets a comment header
// naming its base name, has its import statements removed and is followed
// by a blank separator.
func (e *Emitter) Emit(ctx context.Context, files []string, w io.Writer) error {
	ctx, span := e.opts.Tracer.Start(ctx, "flatten.emit",
		trace.WithAttributes(attribute.Int("flatten.files", len(files))))
	defer span.End()

	err := e.emit(ctx, files, w)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())

		return err
	}

	return nil
}

func (e *Emitter) emit(ctx context.Context, files []string, w io.Writer) error {
	lines := 0

	for _, path := range files {
		ctxErr := ctx.Err()
		if ctxErr != nil {
			return fmt.Errorf("emit: %w", ctxErr)
		}

		source, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("%w: %s", ErrSourceNotFound, DisplayPath(e.opts.WorkDir, path))
			}

			return fmt.Errorf("%w: %s: %w", ErrSourceUnreadable, DisplayPath(e.opts.WorkDir, path), err)
		}

		stripped := e.opts.Extractor.StripImports(source)
		lines += textutil.CountLines(stripped)

		_, err = fmt.Fprintf(w, fileHeaderFormat, filepath.Base(path))
		if err != nil {
			return fmt.Errorf("write header for %s: %w", path, err)
		}

		_, err = w.Write(stripped)
		if err != nil {
			return fmt.Errorf("write source %s: %w", path, err)
		}

		_, err = io.WriteString(w, fileSeparator)
		if err != nil {
			return fmt.Errorf("write separator for %s: %w", path, err)
		}
	}

	e.opts.Logger.Debug("emitted flattened source", "files", len(files), "source_lines", lines)

	return nil
}

// Flatten returns the flattened source of files.
func (e *Emitter) Flatten(ctx context.Context, files []string) ([]byte, error) {
	var buf bytes.Buffer

	err := e.Emit(ctx, files, &buf)
	if err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}
