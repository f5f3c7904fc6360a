// Package sizereport measures deployed bytecode sizes from a compiled
// contracts manifest and flags contracts above the EIP-170 limit.
package sizereport

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// EIP170Limit is the maximum deployed bytecode size in bytes (2^14 + 2^13).
const EIP170Limit = 1<<14 + 1<<13

// DefaultManifestPath is where solc combined-json output is expected.
const DefaultManifestPath = ".build/contracts.json"

//go:embed manifest.schema.json
var manifestSchema []byte

// Sentinel errors.
var (
	ErrInvalidManifest = errors.New("invalid contracts manifest")
	ErrOversized       = errors.New("contracts exceed the size limit")
	ErrUnknownFormat   = errors.New("unknown report format")
)

// Manifest is the compiled-artifacts manifest:
// {"contracts": {"<path>:<name>": {"bin": "<hex>"}}}.
type Manifest struct {
	Contracts map[string]CompiledContract `json:"contracts"`
}

// CompiledContract holds the fields of one manifest entry the report needs.
type CompiledContract struct {
	Bin string `json:"bin"`
}

// LoadManifest reads and validates the manifest at path.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	return ParseManifest(data)
}

// ParseManifest validates data against the manifest schema and decodes it.
func ParseManifest(data []byte) (*Manifest, error) {
	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(manifestSchema),
		gojsonschema.NewBytesLoader(data),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidManifest, err)
	}

	if !result.Valid() {
		problems := make([]string, 0, len(result.Errors()))
		for _, resultErr := range result.Errors() {
			problems = append(problems, resultErr.String())
		}

		return nil, fmt.Errorf("%w: %s", ErrInvalidManifest, strings.Join(problems, "; "))
	}

	var manifest Manifest

	err = json.Unmarshal(data, &manifest)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidManifest, err)
	}

	return &manifest, nil
}
