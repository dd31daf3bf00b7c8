package manifest

import "encoding/json"

// Sample is one unit of genomic input: a name, the file locators for its
// reads, and an optional pre-computed alignment payload. A sample with a
// non-nil payload never enters the alignment phase; its payload is copied
// straight into the aligned table.
type Sample struct {
	Name      string
	ReadsPath string
	IndexPath string

	// Alignment holds the pre-computed alignment payload, or nil when the
	// sample still needs aligning.
	Alignment json.RawMessage
}

// PreAligned reports whether the sample carries a pre-computed alignment
// payload.
func (s *Sample) PreAligned() bool {
	return len(s.Alignment) > 0
}
