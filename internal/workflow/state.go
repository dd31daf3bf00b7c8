package workflow

import (
	"sync"
	"sync/atomic"

	"github.com/vk/grmgo/internal/manifest"
)

// unalignedSample pairs a sample with the cursor over the graph indices it
// still needs aligning against. The cursor advances monotonically and never
// resets; a pre-aligned sample starts with its cursor already exhausted and
// is therefore never claimed by the alignment phase.
type unalignedSample struct {
	sample *manifest.Sample
	slot   int // the sample's column in the aligned table
	graphs workCursor
}

// runState is the mutable state shared by every worker of one run: both
// claim cursors, the first-record-written flag for separator emission, and
// the termination flag. One mutex guards the cursors and the sink
// bookkeeping; the termination flag is atomic so it can be read cheaply at
// claim boundaries.
type runState struct {
	mu sync.Mutex

	unaligned []*unalignedSample
	graphs    workCursor

	firstWritten bool

	terminated atomic.Bool
	failErr    error // first recorded failure, guarded by mu
}

// fail records a worker failure. The termination flag is monotonic: once
// set it is never cleared within the run. Only the first error is kept;
// later failures are logged where they occur. Callers must hold mu.
func (s *runState) fail(err error) {
	if s.failErr == nil {
		s.failErr = err
	}
	s.terminated.Store(true)
}

// terminating reports whether some worker has failed. Workers poll this at
// the top of every claim attempt and stop claiming once it is set.
func (s *runState) terminating() bool {
	return s.terminated.Load()
}

// err returns the first recorded failure, or nil. Call after a phase
// barrier; it takes the mutex only to order the read after worker writes.
func (s *runState) err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failErr
}
