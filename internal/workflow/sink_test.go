package workflow

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/grmgo/internal/graphspec"
)

func TestOpenStream_DashWritesToStdout(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	var stdout bytes.Buffer
	stream, err := OpenStream("-", false, &stdout)
	require.NoError(t, err)

	// --- Act ---
	_, err = io.WriteString(stream, `{"graph":0}`)
	require.NoError(t, err)
	require.NoError(t, stream.Close())

	// --- Assert ---
	assert.Equal(t, `{"graph":0}`, stdout.String())
}

func TestOpenStream_GzipRoundTrip(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	path := filepath.Join(t.TempDir(), "out.json.gz")
	stream, err := OpenStream(path, true, nil)
	require.NoError(t, err)

	// --- Act ---
	_, err = io.WriteString(stream, `[{"graph":0},{"graph":1}]`)
	require.NoError(t, err)
	require.NoError(t, stream.Close())

	// --- Assert ---
	file, err := os.Open(path)
	require.NoError(t, err)
	defer file.Close()

	gz, err := gzip.NewReader(file)
	require.NoError(t, err)
	defer gz.Close()

	content, err := io.ReadAll(gz)
	require.NoError(t, err)
	assert.Equal(t, `[{"graph":0},{"graph":1}]`, string(content))
}

func TestOpenStream_UnwritableFileFailsBeforeAnyPhase(t *testing.T) {
	t.Parallel()

	// --- Arrange / Act ---
	_, err := OpenStream(filepath.Join(t.TempDir(), "missing", "out.json"), false, nil)

	// --- Assert ---
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to open output file")
}

func TestFolderSink_NamesFilesAfterGraphSpecInput(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	dir := filepath.Join(t.TempDir(), "results")
	sink, err := NewFolderSink(dir, false)
	require.NoError(t, err)

	spec := graphspec.Spec{Index: 0, Path: "/data/graphs/chr1-del.json"}

	// --- Act ---
	require.NoError(t, sink.Write(spec, json.RawMessage(`{"graph":0}`)))

	// --- Assert ---
	content, err := os.ReadFile(filepath.Join(dir, "chr1-del.json"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"graph":0}`, string(content))
}

func TestFolderSink_GzipAppendsSuffix(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	dir := filepath.Join(t.TempDir(), "results")
	sink, err := NewFolderSink(dir, true)
	require.NoError(t, err)

	spec := graphspec.Spec{Index: 1, Path: "graphs/chr2-ins.json"}

	// --- Act ---
	require.NoError(t, sink.Write(spec, json.RawMessage(`{"graph":1}`)))

	// --- Assert ---
	file, err := os.Open(filepath.Join(dir, "chr2-ins.json.gz"))
	require.NoError(t, err)
	defer file.Close()

	gz, err := gzip.NewReader(file)
	require.NoError(t, err)
	content, err := io.ReadAll(gz)
	require.NoError(t, err)
	assert.JSONEq(t, `{"graph":1}`, string(content))
}

func TestFolderSink_NoGraphRunFallsBackToDefaultName(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	dir := t.TempDir()
	sink, err := NewFolderSink(dir, false)
	require.NoError(t, err)

	// --- Act ---
	require.NoError(t, sink.Write(graphspec.Spec{}, json.RawMessage(`{"samples":2}`)))

	// --- Assert ---
	_, err = os.Stat(filepath.Join(dir, "genotypes.json"))
	assert.NoError(t, err)
}
