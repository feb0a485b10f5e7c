// Package stream paces the release of rendered markdown into the
// transcript while an assistant response is still arriving. The
// controller recomputes everything from the raw source on every delta,
// so a table that only reveals itself as a table two lines in is still
// caught before any of its rows reach the transcript.
package stream

import "strings"

// Collector accumulates raw delta text and gates it on newlines: only
// complete lines become part of the committed source. The trailing
// partial line stays buffered until its newline arrives or the stream
// finishes.
type Collector struct {
	committed strings.Builder
	partial   string
}

// Push appends delta and moves any newly completed lines into the
// committed source. Returns true when the committed source grew.
func (c *Collector) Push(delta string) bool {
	if delta == "" {
		return false
	}
	buf := c.partial + delta
	idx := strings.LastIndexByte(buf, '\n')
	if idx < 0 {
		c.partial = buf
		return false
	}
	c.committed.WriteString(buf[:idx+1])
	c.partial = buf[idx+1:]
	return true
}

// Committed returns the complete-line source collected so far. It is
// empty or ends in a newline.
func (c *Collector) Committed() string {
	return c.committed.String()
}

// Partial returns the trailing text still waiting for its newline.
func (c *Collector) Partial() string {
	return c.partial
}

// All returns committed plus partial: byte for byte what arrived.
func (c *Collector) All() string {
	return c.committed.String() + c.partial
}

// Finalize moves the partial remainder into the committed source
// verbatim, inventing no newline, and returns the full source.
func (c *Collector) Finalize() string {
	if c.partial != "" {
		c.committed.WriteString(c.partial)
		c.partial = ""
	}
	return c.committed.String()
}
