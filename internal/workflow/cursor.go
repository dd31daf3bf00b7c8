package workflow

// workCursor hands out successive positions of an ordered sequence, each
// exactly once. It carries no locking of its own: callers must hold the run
// mutex, which also guards the output sink. Claiming and separator
// bookkeeping deliberately share one critical section.
type workCursor struct {
	next  int
	limit int
}

// newWorkCursor returns a cursor over positions [0, limit).
func newWorkCursor(limit int) workCursor {
	return workCursor{limit: limit}
}

// exhaustedCursor returns a cursor with nothing left to claim.
func exhaustedCursor(limit int) workCursor {
	return workCursor{next: limit, limit: limit}
}

// claim returns the next unclaimed position and advances. ok is false once
// the sequence is exhausted. Two claims never yield the same position.
func (c *workCursor) claim() (index int, ok bool) {
	if c.next >= c.limit {
		return 0, false
	}
	index = c.next
	c.next++
	return index, true
}

// exhausted reports whether every position has been claimed.
func (c *workCursor) exhausted() bool {
	return c.next >= c.limit
}

// remaining returns the number of unclaimed positions.
func (c *workCursor) remaining() int {
	return c.limit - c.next
}
