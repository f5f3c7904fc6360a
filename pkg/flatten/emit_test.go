package flatten_test

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/contractkit/pkg/flatten"
)

var residualImport = regexp.MustCompile(`import "[^"\n]*";`)

func flattenTree(t *testing.T, dir, entry string) string {
	t.Helper()

	opts := flatten.Options{WorkDir: dir}
	res, err := flatten.NewResolver(opts).Resolve(context.Background(), entry)
	require.NoError(t, err)

	out, err := flatten.NewEmitter(opts).Flatten(context.Background(), res.Order)
	require.NoError(t, err)

	return string(out)
}

func TestEmit_ExactLayout(t *testing.T) {
	t.Parallel()

	dir := writeTree(t, map[string]string{
		"A.sol": "import \"./B.sol\";\ncontract A {}\n",
		"B.sol": "contract B {}\n",
	})

	got := flattenTree(t, dir, "A.sol")

	want := "/**\n * File: B.sol\n */\n\ncontract B {}\n\n\n" +
		"/**\n * File: A.sol\n */\n\ncontract A {}\n\n\n"

	assert.Equal(t, want, got)
}

func TestEmit_NoResidualImports(t *testing.T) {
	t.Parallel()

	dir := writeTree(t, map[string]string{
		"A.sol":     source("A", "./B.sol", "./lib/C.sol"),
		"B.sol":     source("B", "./lib/D.sol"),
		"lib/C.sol": source("C", "./D.sol"),
		"lib/D.sol": source("D"),
	})

	got := flattenTree(t, dir, "A.sol")

	assert.False(t, residualImport.MatchString(got), "flattened output still has imports:\n%s", got)

	for _, contract := range []string{"A", "B", "C", "D"} {
		assert.Equal(t, 1, strings.Count(got, "contract "+contract+" {}"))
	}
}

func TestEmit_OneHeaderPerFileInOrder(t *testing.T) {
	t.Parallel()

	dir := writeTree(t, map[string]string{
		"A.sol": source("A", "./B.sol", "./C.sol"),
		"B.sol": source("B", "./D.sol"),
		"C.sol": source("C", "./D.sol"),
		"D.sol": source("D"),
	})

	got := flattenTree(t, dir, "A.sol")

	headers := regexp.MustCompile(`\* File: (\S+)`).FindAllStringSubmatch(got, -1)
	names := make([]string, len(headers))

	for i, header := range headers {
		names[i] = header[1]
	}

	assert.Equal(t, []string{"D.sol", "B.sol", "C.sol", "A.sol"}, names)
}

func TestEmit_MissingFile(t *testing.T) {
	t.Parallel()

	dir := writeTree(t, nil)

	_, err := flatten.NewEmitter(flatten.Options{WorkDir: dir}).
		Flatten(context.Background(), []string{filepath.Join(dir, "Gone.sol")})

	require.ErrorIs(t, err, flatten.ErrSourceNotFound)
}

func TestEmit_CustomExtractor(t *testing.T) {
	t.Parallel()

	dir := writeTree(t, map[string]string{"A.sol": "KEEP\nDROP\n"})

	emitter := flatten.NewEmitter(flatten.Options{Extractor: dropExtractor{}})

	out, err := emitter.Flatten(context.Background(), []string{filepath.Join(dir, "A.sol")})
	require.NoError(t, err)

	assert.Contains(t, string(out), "KEEP\n")
	assert.NotContains(t, string(out), "DROP")
}

type dropExtractor struct{}

func (dropExtractor) ExtractImports([]byte) []string { return nil }

func (dropExtractor) StripImports(src []byte) []byte {
	return []byte(strings.ReplaceAll(string(src), "DROP\n", ""))
}

func TestLineDiff(t *testing.T) {
	t.Parallel()

	assert.Empty(t, flatten.LineDiff([]byte("a\nb\n"), []byte("a\nb\n")))

	changes := flatten.LineDiff([]byte("a\nb\nc\n"), []byte("a\nB\nc\nd\n"))

	rendered := make([]string, len(changes))
	for i, change := range changes {
		rendered[i] = change.String()
	}

	assert.Equal(t, []string{"-b", "+B", "+d"}, rendered)
}

func TestEmit_WritesThroughWriter(t *testing.T) {
	t.Parallel()

	dir := writeTree(t, map[string]string{"A.sol": source("A")})

	out, err := os.Create(filepath.Join(dir, "source.sol"))
	require.NoError(t, err)

	t.Cleanup(func() { _ = out.Close() })

	err = flatten.NewEmitter(flatten.Options{}).Emit(context.Background(), []string{filepath.Join(dir, "A.sol")}, out)
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, "source.sol"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "/**\n * File: A.sol\n */\n\n"+pragma))
}
