// Package abiexport extracts the ABI array from a compiled contract artifact.
package abiexport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/tidwall/gjson"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/Sumatoshi-tech/contractkit/pkg/textutil"
)

// DefaultOutputPath is where the exported ABI is written.
const DefaultOutputPath = "build/abi.json"

const (
	tracerName = "contractkit/abiexport"
	abiField   = "abi"
	jsonIndent = "  "

	constructorQuery = `#(type=="constructor")`
)

// Sentinel errors.
var (
	ErrInvalidArtifact = errors.New("artifact is not valid JSON")
	ErrABINotFound     = errors.New("artifact has no abi field")
	ErrInvalidABI      = errors.New("invalid contract ABI")
)

// Options configures an Exporter.
type Options struct {
	// Validate parses the ABI with go-ethereum before accepting it.
	Validate bool
	// Pretty indents the output instead of writing it on one line.
	Pretty bool
	// Logger is an optional structured logger. Nil uses slog default.
	Logger *slog.Logger
	// Tracer is an optional OTel tracer. Nil disables tracing.
	Tracer trace.Tracer
}

// Summary describes an extracted ABI.
type Summary struct {
	Methods int  `json:"methods"`
	Events  int  `json:"events"`
	Errors  int  `json:"errors"`
	HasCtor bool `json:"constructor"`
}

// Result holds an extracted ABI.
type Result struct {
	// ABI is the abi field, on one line or indented per Options.Pretty.
	ABI []byte
	// Summary is only filled when the ABI was validated.
	Summary *Summary
}

// Exporter extracts ABIs from artifacts.
type Exporter struct {
	opts Options
}

// NewExporter creates an Exporter.
func NewExporter(opts Options) *Exporter {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	if opts.Tracer == nil {
		opts.Tracer = noop.NewTracerProvider().Tracer(tracerName)
	}

	return &Exporter{opts: opts}
}

// ExtractFile reads the artifact at path and extracts its ABI.
func (e *Exporter) ExtractFile(ctx context.Context, path string) (*Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read artifact: %w", err)
	}

	return e.Extract(ctx, data)
}

// Extract pulls the abi field out of artifact.
func (e *Exporter) Extract(ctx context.Context, artifact []byte) (*Result, error) {
	_, span := e.opts.Tracer.Start(ctx, "abiexport.extract",
		trace.WithAttributes(attribute.Int("abiexport.artifact_bytes", len(artifact))))
	defer span.End()

	res, err := e.extract(artifact)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())

		return nil, err
	}

	if res.Summary != nil {
		span.SetAttributes(
			attribute.Int("abiexport.methods", res.Summary.Methods),
			attribute.Int("abiexport.events", res.Summary.Events),
		)
	}

	return res, nil
}

func (e *Exporter) extract(artifact []byte) (*Result, error) {
	if !gjson.ValidBytes(artifact) {
		return nil, ErrInvalidArtifact
	}

	field := gjson.GetBytes(artifact, abiField)
	if !field.Exists() {
		return nil, ErrABINotFound
	}

	raw := []byte(field.Raw)
	res := &Result{}

	if e.opts.Validate {
		parsed, err := abi.JSON(bytes.NewReader(raw))
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidABI, err)
		}

		res.Summary = &Summary{
			Methods: len(parsed.Methods),
			Events:  len(parsed.Events),
			Errors:  len(parsed.Errors),
			HasCtor: field.Get(constructorQuery).Exists(),
		}

		e.opts.Logger.Debug("validated abi",
			"methods", res.Summary.Methods, "events", res.Summary.Events, "errors", res.Summary.Errors)
	}

	if e.opts.Pretty {
		var out bytes.Buffer

		err := json.Indent(&out, raw, "", jsonIndent)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidArtifact, err)
		}

		res.ABI = out.Bytes()

		return res, nil
	}

	line, err := encodeSingleLine(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidArtifact, err)
	}

	res.ABI = line

	return res, nil
}

// Export extracts the ABI from the artifact at path and writes it to output
// atomically.
func (e *Exporter) Export(ctx context.Context, path, output string) (*Result, error) {
	res, err := e.ExtractFile(ctx, path)
	if err != nil {
		return nil, err
	}

	err = textutil.WriteFileAtomic(output, res.ABI)
	if err != nil {
		return nil, fmt.Errorf("write abi: %w", err)
	}

	e.opts.Logger.Info("exported abi", "artifact", path, "output", output, "bytes", len(res.ABI))

	return res, nil
}
