package flatten

import "regexp"

// Extractor finds import statements in source text. The default
// implementation is a lexical scan; a real parser can replace it without
// touching the traversal.
type Extractor interface {
	// ExtractImports returns the raw import targets in source order.
	ExtractImports(src []byte) []string
	// StripImports returns src with every import statement removed,
	// including the line break that terminates it.
	StripImports(src []byte) []byte
}

var (
	importPattern     = regexp.MustCompile(`import "([^"\n]*)";`)
	importLinePattern = regexp.MustCompile(`import "[^"\n]*";\r?\n?`)
)

// RegexExtractor matches statements of the form `import "<path>";`.
// Aliased or braced imports are not recognized.
type RegexExtractor struct{}

// NewRegexExtractor creates the default lexical extractor.
func NewRegexExtractor() *RegexExtractor {
	return &RegexExtractor{}
}

// ExtractImports implements [Extractor].
func (RegexExtractor) ExtractImports(src []byte) []string {
	matches := importPattern.FindAllSubmatch(src, -1)

	targets := make([]string, 0, len(matches))
	for _, match := range matches {
		targets = append(targets, string(match[1]))
	}

	return targets
}

// StripImports implements [Extractor].
func (RegexExtractor) StripImports(src []byte) []byte {
	return importLinePattern.ReplaceAll(src, nil)
}
