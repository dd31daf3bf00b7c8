package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/vk/grmgo/internal/ctxlog"
	"github.com/vk/grmgo/internal/graphspec"
	"github.com/vk/grmgo/internal/manifest"
)

// Aligner is the external single-sample aligner. A worker opens one
// session per sample before draining that sample's claims, so the
// collaborator can hold the reads handle open across all of the sample's
// graphs instead of reacquiring it per pair. OpenSample and every session
// method are invoked with the run mutex released.
type Aligner interface {
	OpenSample(ctx context.Context, sample *manifest.Sample) (SampleSession, error)
}

// SampleSession aligns one sample against graphs, one call per graph. The
// returned payload is stored into the uniquely owned cell of the aligned
// table. Close releases the sample's reads handle; it is called exactly
// once, after the owning worker stops claiming for the sample.
type SampleSession interface {
	Align(ctx context.Context, graph graphspec.Spec, referencePath string) (json.RawMessage, error)
	Close() error
}

// Genotyper is the external genotyping model. It receives the full aligned
// row for one graph and returns the structured result record for that
// graph.
type Genotyper interface {
	Genotype(ctx context.Context, graph graphspec.Spec, referencePath, parameterPath string, samples []AlignedSample) (json.RawMessage, error)
}

// AlignedSample is one cell of the aligned table: a sample together with
// its alignment payload for one graph. The cell is written once, by the
// worker that claimed the (sample, graph) pair, and read later by exactly
// one genotyping worker; the phase barrier orders the two.
type AlignedSample struct {
	Sample    *manifest.Sample
	Alignment json.RawMessage
}

// Config carries the run parameters the driver needs.
type Config struct {
	ReferencePath           string
	GenotypingParameterPath string

	// OutputFilePath names the combined stream; "-" means stdout and ""
	// disables the stream entirely.
	OutputFilePath string
	// OutputFolderPath, when set, enables one output file per graph.
	OutputFolderPath string
	GzipOutput       bool

	// SampleThreads is the worker count for both phases.
	SampleThreads int

	// OrderedOutput buffers combined-stream records back into graph-index
	// order. Off by default: the stream then reflects completion order,
	// which is a permutation of index order when SampleThreads > 1.
	OrderedOutput bool

	// Progress enables per-item progress logging.
	Progress bool
}

// Workflow owns the data tables and run state for one align-then-genotype
// run and drives both phases through the worker pool.
type Workflow struct {
	cfg       Config
	graphs    []graphspec.Spec
	aligner   Aligner
	genotyper Genotyper
	stdout    io.Writer

	state   *runState
	aligned [][]AlignedSample

	pool   *Pool
	stream io.WriteCloser
	folder *FolderSink
	order  *orderBuffer
}

// New validates the manifest against the graph list and builds the run
// tables. Input errors here are fatal before any phase starts.
func New(cfg Config, graphs []graphspec.Spec, samples []*manifest.Sample, aligner Aligner, genotyper Genotyper, stdout io.Writer) (*Workflow, error) {
	if len(samples) == 0 {
		return nil, fmt.Errorf("no samples in manifest")
	}

	for _, sample := range samples {
		if len(graphs) > 1 && sample.PreAligned() {
			// A pre-aligned payload cannot be disambiguated per graph.
			return nil, fmt.Errorf("pre-aligned samples are allowed only when genotyping a single graph; %d graphs provided", len(graphs))
		}
		if len(graphs) == 0 && !sample.PreAligned() {
			return nil, fmt.Errorf("no graphs given and sample %q has no pre-computed alignment", sample.Name)
		}
	}

	// One row per graph; a no-graphs run gets a single row holding the
	// pre-aligned samples.
	rows := len(graphs)
	if rows == 0 {
		rows = 1
	}

	aligned := make([][]AlignedSample, rows)
	for g := range aligned {
		aligned[g] = make([]AlignedSample, len(samples))
		for s, sample := range samples {
			aligned[g][s] = AlignedSample{Sample: sample, Alignment: sample.Alignment}
		}
	}

	state := &runState{graphs: newWorkCursor(rows)}
	for slot, sample := range samples {
		cursor := newWorkCursor(len(graphs))
		if sample.PreAligned() {
			cursor = exhaustedCursor(len(graphs))
		}
		state.unaligned = append(state.unaligned, &unalignedSample{
			sample: sample,
			slot:   slot,
			graphs: cursor,
		})
	}

	w := &Workflow{
		cfg:       cfg,
		graphs:    graphs,
		aligner:   aligner,
		genotyper: genotyper,
		stdout:    stdout,
		state:     state,
		aligned:   aligned,
		pool:      NewPool(cfg.SampleThreads),
	}
	if cfg.OrderedOutput {
		w.order = newOrderBuffer()
	}
	return w, nil
}

// AlignedTable exposes the aligned table. This is primarily for testing:
// rows are graphs, columns are samples in manifest order.
func (w *Workflow) AlignedTable() [][]AlignedSample {
	return w.aligned
}

// graphAt returns the spec claimed under index, or a zero spec for the
// synthetic row of a no-graphs run.
func (w *Workflow) graphAt(index int) graphspec.Spec {
	if len(w.graphs) == 0 {
		return graphspec.Spec{}
	}
	return w.graphs[index]
}

// framed reports whether the combined stream gets JSON array framing. A
// single record is written bare, as is a folder-only run.
func (w *Workflow) framed() bool {
	return w.cfg.OutputFilePath != "" && len(w.graphs) > 1
}

// Run executes the alignment phase to completion, then the genotyping
// phase, each behind a full pool barrier, and finalizes the sinks. It
// returns a non-nil error if any worker in either phase failed. The
// combined stream is closed on every exit path once it was opened, so a
// framing write failure never leaves the file handle or an unflushed
// compressor behind.
func (w *Workflow) Run(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)

	if err := w.openSinks(ctx); err != nil {
		return err
	}

	err := w.execute(ctx)

	if w.stream != nil {
		if cerr := w.stream.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to finalize output stream: %w", cerr)
		}
	}
	if err != nil {
		return err
	}
	logger.Info("Workflow finished.")
	return nil
}

// execute drives the two phases and the stream framing. The caller owns
// closing the stream.
func (w *Workflow) execute(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)

	if w.framed() {
		if _, err := io.WriteString(w.stream, "["); err != nil {
			return fmt.Errorf("failed to write output stream: %w", err)
		}
	}

	logger.Info("Aligning samples.", "samples", len(w.state.unaligned), "graphs", len(w.graphs), "workers", w.pool.Workers())
	w.pool.Execute(ctx, w.alignSamples)

	logger.Info("Genotyping graphs.", "graphs", len(w.aligned), "workers", w.pool.Workers())
	w.pool.Execute(ctx, w.genotypeGraphs)

	if w.framed() {
		if _, err := io.WriteString(w.stream, "]\n"); err != nil {
			return fmt.Errorf("failed to write output stream: %w", err)
		}
	}

	if err := w.state.err(); err != nil {
		return fmt.Errorf("workflow failed: %w", err)
	}
	return nil
}

// openSinks opens the configured output sinks. Sink errors are fatal and
// reported before phase execution begins. Already-open sinks are kept.
func (w *Workflow) openSinks(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)
	if w.cfg.OutputFilePath != "" && w.stream == nil {
		if w.cfg.OutputFilePath == "-" {
			logger.Info("Writing combined output to stdout.")
		} else {
			logger.Info("Writing combined output.", "path", w.cfg.OutputFilePath)
		}
		stream, err := OpenStream(w.cfg.OutputFilePath, w.cfg.GzipOutput, w.stdout)
		if err != nil {
			return err
		}
		w.stream = stream
	}

	if w.cfg.OutputFolderPath != "" && w.folder == nil {
		logger.Info("Writing per-graph output.", "folder", w.cfg.OutputFolderPath)
		folder, err := NewFolderSink(w.cfg.OutputFolderPath, w.cfg.GzipOutput)
		if err != nil {
			return err
		}
		w.folder = folder
	}

	return nil
}

// writeRecord appends one genotyping record to the combined stream,
// emitting the separator unless it is the first record written overall.
// Callers must hold the run mutex.
func (w *Workflow) writeRecord(record json.RawMessage) error {
	if w.state.firstWritten {
		if _, err := io.WriteString(w.stream, ","); err != nil {
			return err
		}
	}
	if _, err := w.stream.Write(record); err != nil {
		return err
	}
	w.state.firstWritten = true
	return nil
}

// emit routes a finished record to the combined stream, directly in
// completion order or through the ordering buffer when ordered output is
// on. Callers must hold the run mutex.
func (w *Workflow) emit(index int, record json.RawMessage) error {
	if w.order == nil {
		return w.writeRecord(record)
	}
	for _, ready := range w.order.add(index, record) {
		if err := w.writeRecord(ready); err != nil {
			return err
		}
	}
	return nil
}
