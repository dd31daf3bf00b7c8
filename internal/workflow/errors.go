package workflow

import "fmt"

// AlignmentError reports a failure from the external aligner for one
// (sample, graph) pair.
type AlignmentError struct {
	Sample     string
	GraphIndex int
	Err        error
}

func (e *AlignmentError) Error() string {
	return fmt.Sprintf("aligning sample %q against graph %d: %v", e.Sample, e.GraphIndex, e.Err)
}

func (e *AlignmentError) Unwrap() error {
	return e.Err
}

// GenotypingError reports a failure from the external genotyper for one
// graph.
type GenotypingError struct {
	GraphIndex int
	Err        error
}

func (e *GenotypingError) Error() string {
	return fmt.Sprintf("genotyping graph %d: %v", e.GraphIndex, e.Err)
}

func (e *GenotypingError) Unwrap() error {
	return e.Err
}
