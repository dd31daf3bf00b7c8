// Package toolchain provides the production collaborators of the workflow:
// wrappers around the external aligner and genotyper binaries. The workflow
// itself depends only on the interfaces; tests substitute in-memory fakes.
package toolchain

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"

	"github.com/vk/grmgo/internal/ctxlog"
	"github.com/vk/grmgo/internal/graphspec"
	"github.com/vk/grmgo/internal/manifest"
	"github.com/vk/grmgo/internal/workflow"
)

// ExecAligner shells out to a single-sample graph aligner binary. The
// binary is expected to write the alignment payload as JSON on stdout.
type ExecAligner struct {
	// Command is the aligner executable. Empty means no aligner was
	// configured; any OpenSample call then fails.
	Command string
	// ExtraArgs are appended verbatim after the generated arguments.
	ExtraArgs []string
}

// OpenSample implements workflow.Aligner. It pins the sample's reads file
// open for the lifetime of the session, so the reads stay readable across
// every graph the sample is aligned against.
func (a *ExecAligner) OpenSample(_ context.Context, sample *manifest.Sample) (workflow.SampleSession, error) {
	if a.Command == "" {
		return nil, fmt.Errorf("no aligner binary configured")
	}

	var reads *os.File
	if sample.ReadsPath != "" {
		f, err := os.Open(sample.ReadsPath)
		if err != nil {
			return nil, fmt.Errorf("opening reads for sample %q: %w", sample.Name, err)
		}
		reads = f
	}
	return &execSampleSession{aligner: a, sample: sample, reads: reads}, nil
}

// execSampleSession is one sample's open handle on the aligner binary.
type execSampleSession struct {
	aligner *ExecAligner
	sample  *manifest.Sample
	reads   *os.File
}

// Align implements workflow.SampleSession.
func (s *execSampleSession) Align(ctx context.Context, graph graphspec.Spec, referencePath string) (json.RawMessage, error) {
	args := []string{
		"--reference", referencePath,
		"--graph-spec", graph.Path,
		"--bam", s.sample.ReadsPath,
		"--output", "-",
	}
	if s.sample.IndexPath != "" {
		args = append(args, "--bam-index", s.sample.IndexPath)
	}
	args = append(args, s.aligner.ExtraArgs...)

	out, err := runTool(ctx, s.aligner.Command, args)
	if err != nil {
		return nil, err
	}
	if !json.Valid(out) {
		return nil, fmt.Errorf("%s produced invalid JSON for sample %q", s.aligner.Command, s.sample.Name)
	}
	return json.RawMessage(out), nil
}

// Close implements workflow.SampleSession.
func (s *execSampleSession) Close() error {
	if s.reads == nil {
		return nil
	}
	return s.reads.Close()
}

// ExecGenotyper shells out to a genotyping binary. The aligned row is
// handed over through a temporary JSON file; the binary writes the result
// record on stdout.
type ExecGenotyper struct {
	Command   string
	ExtraArgs []string
}

// alignedInput is the wire form of one aligned sample handed to the
// genotyper binary.
type alignedInput struct {
	Name      string          `json:"sample"`
	Alignment json.RawMessage `json:"alignment"`
}

// Genotype implements workflow.Genotyper.
func (g *ExecGenotyper) Genotype(ctx context.Context, graph graphspec.Spec, referencePath, parameterPath string, samples []workflow.AlignedSample) (json.RawMessage, error) {
	if g.Command == "" {
		return nil, fmt.Errorf("no genotyper binary configured")
	}

	inputs := make([]alignedInput, 0, len(samples))
	for _, s := range samples {
		inputs = append(inputs, alignedInput{Name: s.Sample.Name, Alignment: s.Alignment})
	}
	payload, err := json.Marshal(inputs)
	if err != nil {
		return nil, fmt.Errorf("encoding aligned samples: %w", err)
	}

	tmp, err := os.CreateTemp("", "grmgo-aligned-*.json")
	if err != nil {
		return nil, fmt.Errorf("creating alignments file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(payload); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("writing alignments file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("writing alignments file: %w", err)
	}

	args := []string{
		"--reference", referencePath,
		"--alignments", tmp.Name(),
		"--output", "-",
	}
	if graph.Path != "" {
		args = append(args, "--graph-spec", graph.Path)
	}
	if parameterPath != "" {
		args = append(args, "--genotyping-parameters", parameterPath)
	}
	args = append(args, g.ExtraArgs...)

	out, err := runTool(ctx, g.Command, args)
	if err != nil {
		return nil, err
	}
	if !json.Valid(out) {
		return nil, fmt.Errorf("%s produced an invalid JSON record for graph %q", g.Command, graph.Path)
	}
	return json.RawMessage(out), nil
}

// runTool executes one collaborator invocation and returns its stdout.
// Stderr is folded into the error so a failing tool's diagnostics surface
// in the run log.
func runTool(ctx context.Context, command string, args []string) ([]byte, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Invoking external tool.", "command", command, "args", args)

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, command, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := bytes.TrimSpace(stderr.Bytes())
		if len(msg) > 0 {
			return nil, fmt.Errorf("%s failed: %w: %s", command, err, msg)
		}
		return nil, fmt.Errorf("%s failed: %w", command, err)
	}
	return stdout.Bytes(), nil
}
