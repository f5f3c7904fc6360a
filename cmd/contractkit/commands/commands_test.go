package commands

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/contractkit/pkg/abiexport"
	"github.com/Sumatoshi-tech/contractkit/pkg/flatten"
	"github.com/Sumatoshi-tech/contractkit/pkg/sizereport"
)

type cliResult struct {
	stdout string
	stderr string
	err    error
}

// project writes files into a fresh directory plus an empty config file so
// no user config leaks into the test.
func project(t *testing.T, files map[string]string) string {
	t.Helper()

	dir, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)

	if _, ok := files[".contractkit.yaml"]; !ok {
		files[".contractkit.yaml"] = ""
	}

	for name, body := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
		require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	}

	return dir
}

func execute(t *testing.T, dir string, args ...string) cliResult {
	t.Helper()

	app := &App{}
	root := NewRootCommand(app)

	var stdout, stderr bytes.Buffer

	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(append([]string{"--config", filepath.Join(dir, ".contractkit.yaml")}, args...))

	err := root.Execute()

	require.NoError(t, app.Shutdown(t.Context()))

	return cliResult{stdout: stdout.String(), stderr: stderr.String(), err: err}
}

func diamond() map[string]string {
	return map[string]string{
		"contracts/A.sol": "pragma solidity ^0.5.16;\nimport \"./B.sol\";\nimport \"./C.sol\";\ncontract A {}\n",
		"contracts/B.sol": "import \"./lib/D.sol\";\ncontract B {}\n",
		"contracts/C.sol": "import \"./lib/D.sol\";\ncontract C {}\n",
		"contracts/lib/D.sol": "library D {}\n",
	}
}

func TestFlatten_WritesOutputAndProgress(t *testing.T) {
	t.Parallel()

	dir := project(t, diamond())

	res := execute(t, dir, "flatten", "contracts/A.sol", "-C", dir)
	require.NoError(t, res.err)

	want := "Using contract contracts/A.sol\n\n" +
		"Resolving contracts/A.sol contract import tree...\n\n" +
		"./contracts/A.sol\n" +
		"  ./contracts/B.sol\n" +
		"    ./contracts/lib/D.sol\n" +
		"  ./contracts/C.sol\n" +
		"\nImport order:\n\n" +
		"  1. ./contracts/lib/D.sol\n" +
		"  2. ./contracts/B.sol\n" +
		"  3. ./contracts/C.sol\n" +
		"  4. ./contracts/A.sol\n" +
		"\nExporting combined source code for contracts/A.sol to build/source.sol\n" +
		"\n\nDONE!\n"

	if filepath.Separator == '/' {
		assert.Equal(t, want, res.stdout)
	}

	source, err := os.ReadFile(filepath.Join(dir, "build", "source.sol"))
	require.NoError(t, err)

	text := string(source)
	assert.True(t, strings.HasPrefix(text, "/**\n * File: D.sol\n */\n\nlibrary D {}\n\n\n"))
	assert.NotContains(t, text, "import \"")
	assert.Less(t, strings.Index(text, "File: B.sol"), strings.Index(text, "File: C.sol"))
	assert.True(t, strings.HasSuffix(text, "contract A {}\n\n\n"))
}

func TestFlatten_QuietAndCustomOutput(t *testing.T) {
	t.Parallel()

	dir := project(t, diamond())

	res := execute(t, dir, "-q", "flatten", "contracts/A.sol", "-C", dir, "-o", "out/Flat.sol")
	require.NoError(t, res.err)
	assert.Empty(t, res.stdout)

	_, err := os.Stat(filepath.Join(dir, "out", "Flat.sol"))
	require.NoError(t, err)
}

func TestFlatten_OutputFromConfig(t *testing.T) {
	t.Parallel()

	files := diamond()
	files[".contractkit.yaml"] = "flatten:\n  output: dist/All.sol\n"
	dir := project(t, files)

	res := execute(t, dir, "flatten", "contracts/A.sol", "-C", dir)
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "to dist/All.sol")

	_, err := os.Stat(filepath.Join(dir, "dist", "All.sol"))
	require.NoError(t, err)
}

func TestFlatten_Check(t *testing.T) {
	t.Parallel()

	dir := project(t, diamond())

	res := execute(t, dir, "flatten", "contracts/A.sol", "-C", dir, "--check")
	require.ErrorIs(t, res.err, flatten.ErrStaleOutput)

	_, err := os.Stat(filepath.Join(dir, "build", "source.sol"))
	assert.True(t, os.IsNotExist(err), "check mode must not write")

	require.NoError(t, execute(t, dir, "flatten", "contracts/A.sol", "-C", dir).err)

	res = execute(t, dir, "flatten", "contracts/A.sol", "-C", dir, "--check")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "build/source.sol is up to date")

	require.NoError(t, os.WriteFile(filepath.Join(dir, "contracts", "lib", "D.sol"), []byte("library D2 {}\n"), 0o600))

	res = execute(t, dir, "flatten", "contracts/A.sol", "-C", dir, "--check", "--no-color")
	require.ErrorIs(t, res.err, flatten.ErrStaleOutput)
	assert.Contains(t, res.stdout, "-library D {}\n")
	assert.Contains(t, res.stdout, "+library D2 {}\n")
}

func TestFlatten_Errors(t *testing.T) {
	t.Parallel()

	dir := project(t, map[string]string{
		"A.sol":       "import \"./B.sol\";\n",
		"B.sol":       "import \"./A.sol\";\n",
		"Missing.sol": "import \"./Nope.sol\";\n",
	})

	res := execute(t, dir, "flatten", "A.sol", "-C", dir)
	require.ErrorIs(t, res.err, flatten.ErrCyclicImport)
	assert.Contains(t, res.err.Error(), "./A.sol -> ./B.sol -> ./A.sol")

	res = execute(t, dir, "flatten", "Missing.sol", "-C", dir)
	require.ErrorIs(t, res.err, flatten.ErrSourceNotFound)

	res = execute(t, dir, "flatten", "-C", dir)
	require.Error(t, res.err)

	_, err := os.Stat(filepath.Join(dir, "build", "source.sol"))
	assert.True(t, os.IsNotExist(err))
}

func TestGraph_PrintsDOT(t *testing.T) {
	t.Parallel()

	dir := project(t, diamond())

	res := execute(t, dir, "graph", "contracts/A.sol", "-C", dir)
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "digraph")
	assert.Contains(t, res.stdout, "D.sol")
	assert.Contains(t, res.stdout, "->")
}

func sizeManifest() string {
	return `{"contracts": {
  "contracts/Big.sol:Big": {"bin": "` + strings.Repeat("60", 25000) + `"},
  "contracts/Small.sol:Small": {"bin": "` + strings.Repeat("60", 100) + `"}
}}`
}

func TestSize_TextReport(t *testing.T) {
	t.Parallel()

	dir := project(t, map[string]string{"build/contracts.json": sizeManifest()})

	res := execute(t, dir, "size", filepath.Join(dir, "build", "contracts.json"), "--no-color")
	require.NoError(t, res.err)
	assert.Equal(t, "TOO BIG CONTRACTS\n25000 24 K   Big \n===================\n"+
		"Contracts smaller than EIP-170 says  24576\n00100 00 K   Small \n", res.stdout)
}

func TestSize_FailOnOversizeAndChart(t *testing.T) {
	t.Parallel()

	dir := project(t, map[string]string{"contracts.json": sizeManifest()})
	chart := filepath.Join(dir, "report", "sizes.html")

	res := execute(t, dir, "size", filepath.Join(dir, "contracts.json"),
		"--format", "json", "--html", chart, "--fail-on-oversize")
	require.ErrorIs(t, res.err, sizereport.ErrOversized)
	assert.Contains(t, res.stdout, `"oversized"`)

	html, err := os.ReadFile(chart)
	require.NoError(t, err)
	assert.Contains(t, string(html), "Big")
}

func TestSize_LimitAndFormatFromConfig(t *testing.T) {
	t.Parallel()

	dir := project(t, map[string]string{
		"contracts.json":    sizeManifest(),
		".contractkit.yaml": "size:\n  limit: 32 KiB\n  format: yaml\n",
	})

	res := execute(t, dir, "size", filepath.Join(dir, "contracts.json"))
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "limit: 32768")
	assert.Contains(t, res.stdout, "oversized: []")
}

func TestSize_BadFlags(t *testing.T) {
	t.Parallel()

	dir := project(t, map[string]string{"contracts.json": sizeManifest()})
	manifest := filepath.Join(dir, "contracts.json")

	require.ErrorIs(t, execute(t, dir, "size", manifest, "--format", "xml").err, sizereport.ErrUnknownFormat)
	require.Error(t, execute(t, dir, "size", manifest, "--limit", "huge").err)
	require.Error(t, execute(t, dir, "size", manifest, "--filter", "[").err)
}

func TestABI_Export(t *testing.T) {
	t.Parallel()

	dir := project(t, map[string]string{
		"artifacts/Token.json": `{"contractName": "Token", "abi": [
  {"type": "function", "name": "totalSupply", "inputs": [], "outputs": [{"name": "", "type": "uint256"}], "stateMutability": "view"}
]}`,
	})
	output := filepath.Join(dir, "build", "abi.json")

	res := execute(t, dir, "abi", filepath.Join(dir, "artifacts", "Token.json"), "-o", output)
	require.NoError(t, res.err)
	assert.Equal(t, "1 functions, 0 events, 0 errors\nABI exported to "+output+"\n", res.stdout)

	data, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), `[{"type": "function", "name": "totalSupply"`))
}

func TestABI_Errors(t *testing.T) {
	t.Parallel()

	dir := project(t, map[string]string{
		"NoABI.json":  `{"bytecode": "0x00"}`,
		"BadABI.json": `{"abi": [{"type": "function", "name": "f", "inputs": [{"type": "notatype"}]}]}`,
	})
	output := filepath.Join(dir, "abi.json")

	res := execute(t, dir, "abi", filepath.Join(dir, "NoABI.json"), "-o", output)
	require.ErrorIs(t, res.err, abiexport.ErrABINotFound)

	res = execute(t, dir, "abi", filepath.Join(dir, "BadABI.json"), "-o", output)
	require.ErrorIs(t, res.err, abiexport.ErrInvalidABI)
	assert.ErrorContains(t, res.err, "notatype")

	res = execute(t, dir, "abi", filepath.Join(dir, "BadABI.json"), "-o", output, "--no-validate")
	require.NoError(t, res.err)
	assert.Equal(t, "ABI exported to "+output+"\n", res.stdout)
}

func TestRoot_InvalidConfig(t *testing.T) {
	t.Parallel()

	dir := project(t, map[string]string{".contractkit.yaml": "logging:\n  level: loud\n"})

	res := execute(t, dir, "size")
	require.Error(t, res.err)
	assert.Contains(t, res.err.Error(), "logging.level")
}

func TestRoot_VerboseLogsToStderr(t *testing.T) {
	t.Parallel()

	dir := project(t, diamond())

	res := execute(t, dir, "-v", "--log-json", "flatten", "contracts/A.sol", "-C", dir)
	require.NoError(t, res.err)
	assert.Contains(t, res.stderr, `"msg":"loaded source"`)
	assert.Contains(t, res.stderr, `"service":"contractkit"`)
}
