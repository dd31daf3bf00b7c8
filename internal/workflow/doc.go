// Package workflow coordinates the two-phase align-then-genotype batch
// computation over the cross product of samples and graph specs.
//
// # Execution model
//
// A run owns two claim cursors: one per sample over the graph indices it
// still needs aligning against, and one shared cursor over graph indices
// for genotyping. A fixed pool of workers drains each cursor; claiming is
// serialized under one run mutex, while the aligner and genotyper calls
// themselves execute with the mutex released so the CPU-bound work runs in
// parallel.
//
// The pool join between the two phases is a hard barrier: no genotyping
// worker ever observes a partially populated aligned table. Within a phase,
// claim order is strictly the graph-index order; completion order is not
// guaranteed once more than one worker is active, so the combined output
// stream reflects completion order unless Config.OrderedOutput buffers
// records back into index order.
//
// On the first collaborator failure a worker sets the run's termination
// flag; every worker checks it at each claim boundary and stops claiming,
// leaving remaining items unprocessed. In-flight calls are never
// interrupted; the pool drains them and the failure surfaces after the
// barrier.
package workflow
