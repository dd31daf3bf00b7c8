package toolchain

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/grmgo/internal/graphspec"
	"github.com/vk/grmgo/internal/manifest"
	"github.com/vk/grmgo/internal/workflow"
)

// alignedRow builds a two-sample aligned row for genotyper tests.
func alignedRow(t *testing.T) []workflow.AlignedSample {
	t.Helper()
	return []workflow.AlignedSample{
		{Sample: &manifest.Sample{Name: "s1"}, Alignment: json.RawMessage(`{"n":1}`)},
		{Sample: &manifest.Sample{Name: "s2"}, Alignment: json.RawMessage(`{"n":2}`)},
	}
}

// writeScript drops an executable shell script for collaborator tests.
func writeScript(t *testing.T, name, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script collaborators are not available on windows")
	}
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755))
	return path
}

// writeReads drops a throwaway reads file the aligner session can pin open.
func writeReads(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte("reads"), 0o644))
	return path
}

func TestExecAligner_UnconfiguredCommandFails(t *testing.T) {
	t.Parallel()

	aligner := &ExecAligner{}
	_, err := aligner.OpenSample(context.Background(), &manifest.Sample{Name: "s1"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "no aligner binary configured")
}

func TestExecAligner_MissingReadsFileFailsAtOpen(t *testing.T) {
	t.Parallel()

	script := writeScript(t, "fake-aligner", `echo '{"aligned":true}'`)
	aligner := &ExecAligner{Command: script}

	_, err := aligner.OpenSample(context.Background(),
		&manifest.Sample{Name: "s1", ReadsPath: filepath.Join(t.TempDir(), "no-such.bam")})

	require.Error(t, err)
	assert.Contains(t, err.Error(), `opening reads for sample "s1"`)
}

func TestExecAligner_SessionReturnsToolStdoutAsPayload(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	script := writeScript(t, "fake-aligner", `echo '{"aligned":true}'`)
	aligner := &ExecAligner{Command: script}
	sample := &manifest.Sample{Name: "s1", ReadsPath: writeReads(t, "s1.bam")}

	// --- Act ---
	session, err := aligner.OpenSample(context.Background(), sample)
	require.NoError(t, err)
	payload, err := session.Align(context.Background(), graphspec.Spec{Index: 0, Path: "g.json"}, "ref.fa")

	// --- Assert ---
	require.NoError(t, err)
	assert.JSONEq(t, `{"aligned":true}`, string(payload))
	require.NoError(t, session.Close())
}

func TestExecAligner_RejectsNonJSONOutput(t *testing.T) {
	t.Parallel()

	script := writeScript(t, "fake-aligner", `echo garbled`)
	aligner := &ExecAligner{Command: script}

	session, err := aligner.OpenSample(context.Background(), &manifest.Sample{Name: "s1"})
	require.NoError(t, err)
	defer session.Close()
	_, err = session.Align(context.Background(), graphspec.Spec{}, "ref.fa")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid JSON")
}

func TestExecAligner_SurfacesToolStderr(t *testing.T) {
	t.Parallel()

	script := writeScript(t, "fake-aligner", `echo "malformed graph spec" >&2; exit 3`)
	aligner := &ExecAligner{Command: script}

	session, err := aligner.OpenSample(context.Background(), &manifest.Sample{Name: "s1"})
	require.NoError(t, err)
	defer session.Close()
	_, err = session.Align(context.Background(), graphspec.Spec{}, "ref.fa")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "malformed graph spec")
}

func TestExecGenotyper_HandsAlignmentsFileToTool(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	// The script copies the alignments file it was handed back to stdout
	// wrapped in a record, proving the handover worked.
	script := writeScript(t, "fake-genotyper", `
while [ $# -gt 0 ]; do
  if [ "$1" = "--alignments" ]; then shift; printf '{"inputs":%s}' "$(cat "$1")"; exit 0; fi
  shift
done
exit 1`)
	genotyper := &ExecGenotyper{Command: script}

	samples := alignedRow(t)

	// --- Act ---
	record, err := genotyper.Genotype(context.Background(), graphspec.Spec{Index: 0, Path: "g.json"}, "ref.fa", "", samples)

	// --- Assert ---
	require.NoError(t, err)

	var decoded struct {
		Inputs []struct {
			Sample    string          `json:"sample"`
			Alignment json.RawMessage `json:"alignment"`
		} `json:"inputs"`
	}
	require.NoError(t, json.Unmarshal(record, &decoded))
	require.Len(t, decoded.Inputs, 2)
	assert.Equal(t, "s1", decoded.Inputs[0].Sample)
	assert.JSONEq(t, `{"n":1}`, string(decoded.Inputs[0].Alignment))
}

func TestExecGenotyper_UnconfiguredCommandFails(t *testing.T) {
	t.Parallel()

	genotyper := &ExecGenotyper{}
	_, err := genotyper.Genotype(context.Background(), graphspec.Spec{}, "ref.fa", "", nil)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "no genotyper binary configured")
}
