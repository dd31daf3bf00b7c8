package workflow

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/gzip"
	"github.com/vk/grmgo/internal/graphspec"
)

// streamSink is the combined output stream: an optional gzip filter over a
// file or stdout. Close flushes the compressor before the file, never the
// caller-owned stdout writer.
type streamSink struct {
	io.Writer
	closers []io.Closer
}

func (s *streamSink) Close() error {
	var firstErr error
	for _, c := range s.closers {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// OpenStream opens the combined record stream. Path "-" selects the given
// stdout writer. A failure here is fatal to the run and happens before any
// phase starts.
func OpenStream(path string, gzipOutput bool, stdout io.Writer) (io.WriteCloser, error) {
	sink := &streamSink{}

	var out io.Writer = stdout
	if path != "-" {
		file, err := os.Create(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open output file %s: %w", path, err)
		}
		out = file
		sink.closers = []io.Closer{file}
	}

	if gzipOutput {
		gz := gzip.NewWriter(out)
		out = gz
		// The compressor must be closed before the file it writes into.
		sink.closers = append([]io.Closer{gz}, sink.closers...)
	}

	sink.Writer = out
	return sink, nil
}

// FolderSink writes one file per graph into an output folder. Files are
// named after the input graph spec file, with a .gz suffix when compression
// is on, so distinct input file names are required in folder mode.
type FolderSink struct {
	dir        string
	gzipOutput bool
}

// NewFolderSink creates the output folder (but not its parents) and returns
// the sink.
func NewFolderSink(dir string, gzipOutput bool) (*FolderSink, error) {
	if err := os.Mkdir(dir, 0o755); err != nil && !os.IsExist(err) {
		return nil, fmt.Errorf("failed to create output folder %s: %w", dir, err)
	}
	return &FolderSink{dir: dir, gzipOutput: gzipOutput}, nil
}

// Write stores the record for one graph. Each graph has its own file, so
// concurrent writers never collide and no locking is needed here.
func (f *FolderSink) Write(spec graphspec.Spec, record json.RawMessage) error {
	name := spec.FileName()
	if name == "" || name == "." {
		// No-graphs run: all samples pre-aligned against one implicit graph.
		name = "genotypes.json"
	}
	if f.gzipOutput {
		name += ".gz"
	}

	path := filepath.Join(f.dir, name)
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to open output file %s: %w", path, err)
	}
	defer file.Close()

	var out io.Writer = file
	if f.gzipOutput {
		gz := gzip.NewWriter(file)
		defer gz.Close()
		out = gz
	}

	if _, err := out.Write(record); err != nil {
		return fmt.Errorf("failed to write output file %s: %w", path, err)
	}
	return nil
}
