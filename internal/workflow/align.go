package workflow

import (
	"context"
	"encoding/json"

	"github.com/vk/grmgo/internal/ctxlog"
)

// alignSamples is one worker's lifetime in the alignment phase. Under the
// run mutex it walks the sample list and claims the next graph index from
// the first sample whose cursor is not exhausted; the aligner calls
// themselves run with the mutex released. On the first claim for a sample
// the worker opens that sample's session and keeps it for every further
// graph it claims for the same sample, so the reads handle is acquired
// once per worker per sample. The aligned-table cell for a claimed pair is
// owned by this worker alone, so storing the payload needs no lock.
func (w *Workflow) alignSamples(ctx context.Context, workerID int) {
	logger := ctxlog.FromContext(ctx).With("workerID", workerID)
	st := w.state

	st.mu.Lock()
	defer st.mu.Unlock()

	for i, input := range st.unaligned {
		if w.cfg.Progress && !input.graphs.exhausted() {
			logger.Info("Starting alignment for sample.", "sample", input.sample.Name, "position", i+1, "samples", len(st.unaligned))
		}

		var session SampleSession
		stop := false
		for {
			if st.terminating() || ctx.Err() != nil {
				logger.Warn("Terminating, leaving remaining alignments unclaimed.")
				stop = true
				break
			}

			graphIndex, ok := input.graphs.claim()
			if !ok {
				break
			}

			sample := input.sample
			slot := input.slot
			st.mu.Unlock()

			var payload json.RawMessage
			var err error
			if session == nil {
				session, err = w.aligner.OpenSample(ctx, sample)
			}
			if err == nil {
				payload, err = session.Align(ctx, w.graphAt(graphIndex), w.cfg.ReferencePath)
			}
			if err == nil {
				// Uniquely owned cell; written outside the lock.
				w.aligned[graphIndex][slot].Alignment = payload
			}

			st.mu.Lock()
			if err != nil {
				alignErr := &AlignmentError{Sample: sample.Name, GraphIndex: graphIndex, Err: err}
				logger.Error("Alignment failed.", "sample", sample.Name, "graphIndex", graphIndex, "error", err)
				st.fail(alignErr)
				stop = true
				break
			}

			if w.cfg.Progress {
				logger.Info("Alignment finished.", "sample", sample.Name, "graph", graphIndex+1, "graphs", len(w.aligned))
			}
		}

		if session != nil {
			st.mu.Unlock()
			if err := session.Close(); err != nil {
				logger.Warn("Failed to release sample reads.", "sample", input.sample.Name, "error", err)
			}
			st.mu.Lock()
		}
		if stop {
			return
		}
	}
}
