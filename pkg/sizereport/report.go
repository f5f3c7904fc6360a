package sizereport

import (
	"fmt"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

const (
	hexPrefix     = "0x"
	hexCharsPerB  = 2
	keySeparator  = ":"
	bytesPerKibi  = 1024
	percentFactor = 100
)

// Options controls how a Report is built.
type Options struct {
	// Limit is the maximum allowed size in bytes. Zero uses EIP170Limit.
	Limit int
	// Filter is an optional doublestar glob matched against the source path
	// and the contract name of each entry.
	Filter string
}

// Entry is the measured size of one compiled contract.
type Entry struct {
	Key    string `json:"key"    yaml:"key"`
	Source string `json:"source" yaml:"source"`
	Name   string `json:"name"   yaml:"name"`
	Bytes  int    `json:"bytes"  yaml:"bytes"`
}

// KiB returns the size in whole kibibytes.
func (e Entry) KiB() int {
	return e.Bytes / bytesPerKibi
}

// Report splits manifest entries into oversized contracts and the rest.
// Both lists are ordered largest first.
type Report struct {
	Limit       int     `json:"limit"        yaml:"limit"`
	Oversized   []Entry `json:"oversized"    yaml:"oversized"`
	WithinLimit []Entry `json:"within_limit" yaml:"within_limit"`
}

// HasOversized reports whether any contract exceeds the limit.
func (r *Report) HasOversized() bool {
	return len(r.Oversized) > 0
}

// Usage returns the size of e as a percentage of the limit.
func (r *Report) Usage(e Entry) float64 {
	if r.Limit == 0 {
		return 0
	}

	return float64(e.Bytes) * percentFactor / float64(r.Limit)
}

// Build measures every contract in manifest. A contract's size is half the
// length of its hex bytecode, ignoring an optional 0x prefix.
func Build(manifest *Manifest, opts Options) (*Report, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = EIP170Limit
	}

	if opts.Filter != "" && !doublestar.ValidatePattern(opts.Filter) {
		return nil, fmt.Errorf("invalid filter %q: %w", opts.Filter, doublestar.ErrBadPattern)
	}

	report := &Report{Limit: limit}

	for key, contract := range manifest.Contracts {
		entry := newEntry(key, contract)

		if opts.Filter != "" && !matches(opts.Filter, entry) {
			continue
		}

		if entry.Bytes > limit {
			report.Oversized = append(report.Oversized, entry)
		} else {
			report.WithinLimit = append(report.WithinLimit, entry)
		}
	}

	sortLargestFirst(report.Oversized)
	sortLargestFirst(report.WithinLimit)

	return report, nil
}

func newEntry(key string, contract CompiledContract) Entry {
	source, name := "", key
	if idx := strings.LastIndex(key, keySeparator); idx >= 0 {
		source, name = key[:idx], key[idx+1:]
	}

	bin := strings.TrimPrefix(contract.Bin, hexPrefix)

	return Entry{
		Key:    key,
		Source: source,
		Name:   name,
		Bytes:  len(bin) / hexCharsPerB,
	}
}

func matches(pattern string, entry Entry) bool {
	for _, candidate := range []string{entry.Source, entry.Name} {
		ok, err := doublestar.Match(pattern, candidate)
		if err == nil && ok {
			return true
		}
	}

	return false
}

func sortLargestFirst(entries []Entry) {
	slices.SortFunc(entries, func(a, b Entry) int {
		if a.Bytes != b.Bytes {
			return b.Bytes - a.Bytes
		}

		return strings.Compare(b.Name, a.Name)
	})
}
