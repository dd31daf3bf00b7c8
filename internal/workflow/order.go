package workflow

import "encoding/json"

// orderBuffer reorders records produced in completion order back into
// graph-index order. A record is held until every lower index has been
// handed back, then released as part of a contiguous prefix. Callers must
// hold the run mutex.
type orderBuffer struct {
	pending map[int]json.RawMessage
	next    int
}

func newOrderBuffer() *orderBuffer {
	return &orderBuffer{pending: make(map[int]json.RawMessage)}
}

// add stores the record for index and returns the run of records that are
// now ready to write, in increasing index order. The returned slice is
// empty while the next expected index is still outstanding.
func (b *orderBuffer) add(index int, record json.RawMessage) []json.RawMessage {
	b.pending[index] = record

	var ready []json.RawMessage
	for {
		rec, ok := b.pending[b.next]
		if !ok {
			return ready
		}
		delete(b.pending, b.next)
		ready = append(ready, rec)
		b.next++
	}
}

// held returns the number of records still waiting on a lower index.
func (b *orderBuffer) held() int {
	return len(b.pending)
}
