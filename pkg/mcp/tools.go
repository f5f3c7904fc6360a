package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Sumatoshi-tech/contractkit/pkg/abiexport"
	"github.com/Sumatoshi-tech/contractkit/pkg/flatten"
	"github.com/Sumatoshi-tech/contractkit/pkg/sizereport"
)

// Tool name constants.
const (
	ToolNameFlatten = "flatten_contract"
	ToolNameSizes   = "contract_sizes"
	ToolNameABI     = "export_abi"
)

// Sentinel errors for tool input validation.
var (
	// ErrEmptyEntry indicates the entry parameter is empty.
	ErrEmptyEntry = errors.New("entry parameter is required and must not be empty")
	// ErrEmptyWorkDir indicates the work_dir parameter is empty.
	ErrEmptyWorkDir = errors.New("work_dir parameter is required and must not be empty")
	// ErrEmptyManifest indicates the manifest parameter is empty.
	ErrEmptyManifest = errors.New("manifest parameter is required and must not be empty")
	// ErrEmptyArtifact indicates the artifact parameter is empty.
	ErrEmptyArtifact = errors.New("artifact parameter is required and must not be empty")
	// ErrPathNotAbsolute indicates a path parameter is relative.
	ErrPathNotAbsolute = errors.New("path must be absolute")
	// ErrNegativeLimit indicates the limit parameter is negative.
	ErrNegativeLimit = errors.New("limit must not be negative")
)

// Input types (auto-generate JSON schemas via struct tags).

// FlattenInput is the input schema for the flatten_contract tool.
type FlattenInput struct {
	Entry   string `json:"entry"    jsonschema:"entry Solidity file, absolute or relative to work_dir"`
	WorkDir string `json:"work_dir" jsonschema:"absolute project directory used to resolve and display paths"`
}

// SizesInput is the input schema for the contract_sizes tool.
type SizesInput struct {
	Manifest string `json:"manifest"        jsonschema:"absolute path to a solc combined-json manifest"`
	Limit    int    `json:"limit,omitempty" jsonschema:"size limit in bytes (default: 24576)"`
}

// ABIInput is the input schema for the export_abi tool.
type ABIInput struct {
	Artifact string `json:"artifact" jsonschema:"absolute path to a compiled contract artifact JSON file"`
}

// Output types.

// ToolOutput is a generic wrapper for tool results.
type ToolOutput struct {
	Data any `json:"data"`
}

// FlattenResult is the payload of flatten_contract.
type FlattenResult struct {
	Order  []string `json:"order"`
	Source string   `json:"source"`
}

// ABIResult is the payload of export_abi.
type ABIResult struct {
	ABI     json.RawMessage    `json:"abi"`
	Summary *abiexport.Summary `json:"summary,omitempty"`
}

// Result helpers.

// errorResult builds a CallToolResult with isError set.
func errorResult(err error) (*mcpsdk.CallToolResult, ToolOutput, error) {
	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{
			&mcpsdk.TextContent{Text: err.Error()},
		},
		IsError: true,
	}, ToolOutput{}, nil
}

// jsonResult builds a CallToolResult with JSON-encoded content.
func jsonResult(value any) (*mcpsdk.CallToolResult, ToolOutput, error) {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return errorResult(fmt.Errorf("encode result: %w", err))
	}

	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{
			&mcpsdk.TextContent{Text: string(data)},
		},
	}, ToolOutput{Data: value}, nil
}

// requireAbsolute checks a required path parameter.
func requireAbsolute(path string, errEmpty error) error {
	if path == "" {
		return errEmpty
	}

	if !filepath.IsAbs(path) {
		return fmt.Errorf("%w: %s", ErrPathNotAbsolute, path)
	}

	return nil
}

func (s *Server) handleFlatten(
	ctx context.Context, _ *mcpsdk.CallToolRequest, input FlattenInput,
) (*mcpsdk.CallToolResult, ToolOutput, error) {
	if input.Entry == "" {
		return errorResult(ErrEmptyEntry)
	}

	err := requireAbsolute(input.WorkDir, ErrEmptyWorkDir)
	if err != nil {
		return errorResult(err)
	}

	opts := flatten.Options{WorkDir: input.WorkDir, Logger: s.logger, Tracer: s.tracer}

	res, err := flatten.NewResolver(opts).Resolve(ctx, input.Entry)
	if err != nil {
		return errorResult(err)
	}

	source, err := flatten.NewEmitter(opts).Flatten(ctx, res.Order)
	if err != nil {
		return errorResult(err)
	}

	order := make([]string, len(res.Order))
	for i, path := range res.Order {
		order[i] = flatten.DisplayPath(input.WorkDir, path)
	}

	s.logger.InfoContext(ctx, "flattened contract", "entry", input.Entry, "files", len(order))

	return jsonResult(FlattenResult{Order: order, Source: string(source)})
}

func (s *Server) handleSizes(
	ctx context.Context, _ *mcpsdk.CallToolRequest, input SizesInput,
) (*mcpsdk.CallToolResult, ToolOutput, error) {
	err := requireAbsolute(input.Manifest, ErrEmptyManifest)
	if err != nil {
		return errorResult(err)
	}

	if input.Limit < 0 {
		return errorResult(fmt.Errorf("%w: %d", ErrNegativeLimit, input.Limit))
	}

	report, err := sizereport.Load(ctx, s.tracer, input.Manifest, sizereport.Options{Limit: input.Limit})
	if err != nil {
		return errorResult(err)
	}

	return jsonResult(report)
}

func (s *Server) handleABI(
	ctx context.Context, _ *mcpsdk.CallToolRequest, input ABIInput,
) (*mcpsdk.CallToolResult, ToolOutput, error) {
	err := requireAbsolute(input.Artifact, ErrEmptyArtifact)
	if err != nil {
		return errorResult(err)
	}

	exporter := abiexport.NewExporter(abiexport.Options{
		Validate: s.validateABI,
		Logger:   s.logger,
		Tracer:   s.tracer,
	})

	res, err := exporter.ExtractFile(ctx, input.Artifact)
	if err != nil {
		return errorResult(err)
	}

	return jsonResult(ABIResult{ABI: res.ABI, Summary: res.Summary})
}
