package delivery

import "github.com/concordhq/concord/internal/survey"

// Buffer is the in-memory ordered sequence of judgments produced by one
// session. It is owned by a single session and is not safe for concurrent
// use; the session runner's single-threaded cooperative model guarantees
// one in-flight transition at a time.
type Buffer struct {
	judgments []survey.Judgment
}

// NewBuffer creates an empty buffer.
func NewBuffer() *Buffer {
	return &Buffer{}
}

// Enqueue appends a judgment. Judgments are enqueued in strict
// presentation order; there is no size limit beyond the session cap.
func (b *Buffer) Enqueue(j survey.Judgment) {
	b.judgments = append(b.judgments, j)
}

// DropLast removes and returns the most recently enqueued judgment.
// This is the "go back" affordance: the judgment is discarded whole, never
// mutated. Returns false when the buffer is empty.
func (b *Buffer) DropLast() (survey.Judgment, bool) {
	if len(b.judgments) == 0 {
		return survey.Judgment{}, false
	}
	last := b.judgments[len(b.judgments)-1]
	b.judgments = b.judgments[:len(b.judgments)-1]
	return last, true
}

// Len returns the number of buffered judgments.
func (b *Buffer) Len() int {
	return len(b.judgments)
}

// drain removes and returns all buffered judgments in enqueue order.
func (b *Buffer) drain() []survey.Judgment {
	drained := b.judgments
	b.judgments = nil
	return drained
}
