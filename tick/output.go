package tick

import "strings"

// OutputBuffer accumulates `print!`-style native output for one working
// world, satisfying vm.OutputWriter. It is buffered per working world and
// flushed (read) on commit; a speculative tick's buffer is observable but
// never flushed anywhere external (spec.md §9 Open Question 2).
type OutputBuffer struct {
	buf strings.Builder
}

func NewOutputBuffer() *OutputBuffer {
	return &OutputBuffer{}
}

func (o *OutputBuffer) WriteString(s string) {
	o.buf.WriteString(s)
}

// String returns everything written so far.
func (o *OutputBuffer) String() string {
	return o.buf.String()
}

// Reset clears the buffer, used to recycle an OutputBuffer across ticks
// without reallocating.
func (o *OutputBuffer) Reset() {
	o.buf.Reset()
}
