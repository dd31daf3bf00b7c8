package workflow

import (
	"context"

	"github.com/vk/grmgo/internal/ctxlog"
)

// genotypeGraphs is one worker's lifetime in the genotyping phase. Graph
// indices are claimed from the shared cursor under the run mutex; the
// genotyper call and the per-graph folder write run with the mutex
// released, and only the combined-stream append re-acquires it. Because the
// append happens after the unlocked compute, the stream observes completion
// order when more than one worker is active; the ordering buffer restores
// index order when configured.
func (w *Workflow) genotypeGraphs(ctx context.Context, workerID int) {
	logger := ctxlog.FromContext(ctx).With("workerID", workerID)
	st := w.state

	st.mu.Lock()
	defer st.mu.Unlock()

	for {
		graphIndex, ok := st.graphs.claim()
		if !ok {
			return
		}
		if st.terminating() || ctx.Err() != nil {
			logger.Warn("Terminating, leaving remaining graphs ungenotyped.")
			return
		}

		spec := w.graphAt(graphIndex)
		row := w.aligned[graphIndex]
		st.mu.Unlock()

		if w.cfg.Progress {
			logger.Info("Genotyping graph.", "graph", graphIndex+1, "graphs", len(w.aligned))
		}

		record, err := w.genotyper.Genotype(ctx, spec, w.cfg.ReferencePath, w.cfg.GenotypingParameterPath, row)
		if err == nil && w.folder != nil {
			// One file per graph, no shared state: written outside the lock.
			err = w.folder.Write(spec, record)
		}

		st.mu.Lock()
		if err != nil {
			gtErr := &GenotypingError{GraphIndex: graphIndex, Err: err}
			logger.Error("Genotyping failed.", "graphIndex", graphIndex, "error", err)
			st.fail(gtErr)
			return
		}

		if w.stream != nil {
			if err := w.emit(graphIndex, record); err != nil {
				logger.Error("Writing output record failed.", "graphIndex", graphIndex, "error", err)
				st.fail(&GenotypingError{GraphIndex: graphIndex, Err: err})
				return
			}
		}

		if w.cfg.Progress {
			logger.Info("Genotyping finished.", "graph", graphIndex+1, "graphs", len(w.aligned))
		}
	}
}
