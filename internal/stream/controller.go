package stream

import (
	"strings"
	"time"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/quillchat/quill/internal/config"
	"github.com/quillchat/quill/internal/render"
	"github.com/quillchat/quill/internal/tabledetect"
)

// Controller drives one streaming response. Deltas go in, rendered
// lines come out in three bands: released lines the transcript owns,
// queued lines waiting for their commit tick, and the mutable tail
// that re-renders on every delta.
//
// Nothing is carried between deltas except the raw source. The stable
// boundary is recomputed from scratch each time, so the controller
// holds no table state that could go stale; a line is released only
// once no suffix of the source before it can still change its
// rendering.
type Controller struct {
	width     int
	collector Collector
	queue     lineQueue
	emitted   []string
	finished  bool
	reflowed  bool
	diverged  bool
	log       *config.Logger
	now       func() time.Time
}

// NewController returns a controller rendering at the given width.
// log may be nil.
func NewController(width int, log *config.Logger) *Controller {
	return &Controller{width: width, log: log, now: time.Now}
}

// Push ingests a raw delta. Newly completed source lines may extend
// the stable region and enqueue rendered lines for release.
func (c *Controller) Push(delta string) {
	if c.finished {
		return
	}
	if c.collector.Push(delta) {
		c.advanceStable()
	}
}

// stableBoundary is the largest source prefix whose rendering can no
// longer change: everything before both the table holdback region and
// the unterminated-fence safe point. Both offsets fall on line starts,
// so the boundary does too.
func stableBoundary(raw string) int {
	_, scanOff := tabledetect.ScanSource(raw)
	safe := render.SafeCommitPrefix(raw)
	if safe < scanOff {
		return safe
	}
	return scanOff
}

func (c *Controller) advanceStable() {
	raw := c.collector.Committed()
	if raw == "" {
		return
	}
	b := stableBoundary(raw)
	if b == 0 {
		return
	}
	stable := render.Markdown(raw[:b], c.width)
	covered := len(c.emitted) + c.queue.len()
	if len(stable) <= covered {
		// A fresh candidate can pull the boundary back to a line whose
		// rendering is already queued. Hold position rather than claw
		// lines back; the queue only rebuilds on SetWidth.
		if len(stable) < covered {
			c.log.Warnf("stream: stable region shrank below released lines (%d < %d); holding position", len(stable), covered)
		}
		return
	}
	c.queue.push(c.now(), stable[covered:]...)
}

// OnCommitTick releases queued lines to the transcript: one per tick,
// or half the queue when the front line has waited past catchUpAge so
// a fast producer cannot leave the animation arbitrarily far behind.
func (c *Controller) OnCommitTick() []string {
	if c.queue.len() == 0 {
		return nil
	}
	n := 1
	if c.queue.len() > 1 && c.queue.oldestAge(c.now()) >= catchUpAge {
		n = (c.queue.len() + 1) / 2
	}
	lines := c.queue.drain(n)
	c.emitted = append(c.emitted, lines...)
	return lines
}

// TailLines renders everything past the released lines: queued lines
// still animating plus the mutable region, including any trailing
// partial line. The released lines are a prefix of the full rendering,
// so slicing them off is exact.
func (c *Controller) TailLines() []string {
	all := render.Markdown(c.collector.All(), c.width)
	if len(all) <= len(c.emitted) {
		return nil
	}
	return all[len(c.emitted):]
}

// Finalize ends the stream: the partial remainder joins the source
// verbatim, the full rendering replaces the stable one, and every line
// not yet released is returned at once. The transcript owns the whole
// response after this call.
func (c *Controller) Finalize() []string {
	if c.finished {
		return nil
	}
	full := c.collector.Finalize()
	all := render.Markdown(full, c.width)
	c.queue.clear()
	var rest []string
	if len(all) >= len(c.emitted) {
		rest = all[len(c.emitted):]
		c.emitted = all
	} else {
		c.log.Warnf("stream: final rendering shorter than released lines (%d < %d)", len(all), len(c.emitted))
	}
	c.finish()
	return rest
}

// Abort ends the stream early on user interrupt. Everything collected
// so far is still released so the transcript keeps the partial answer.
func (c *Controller) Abort() []string {
	return c.Finalize()
}

// finish is the single exit from streaming state; Finalize and Abort
// both land here, so the reflow flags cannot survive a stream.
func (c *Controller) finish() {
	c.finished = true
	c.reflowed = false
	c.diverged = false
}

// SetWidth re-renders the stream at a new terminal width. The source
// bytes the released lines covered at the old width are recovered,
// re-rendered at the new width, and the released count updated to
// match; the queue rebuilds for the rest of the stable region. A
// source line that was only partially released re-enters the queue
// whole.
func (c *Controller) SetWidth(width int) {
	if width == c.width {
		return
	}
	oldWidth := c.width
	c.width = width
	if c.finished {
		return
	}
	raw := c.collector.Committed()
	bytes := SourceBytesForRenderedCount(raw, oldWidth, len(c.emitted))

	// The remapped prefix must reproduce the released lines; anything
	// else means the prefix-stability assumption broke somewhere.
	check := render.Markdown(raw[:bytes], oldWidth)
	if !linesArePrefix(check, c.emitted) {
		c.reportDivergence(check)
	}

	c.emitted = render.Markdown(raw[:bytes], width)
	b := stableBoundary(raw)
	stable := render.Markdown(raw[:b], width)
	c.queue.clear()
	if len(stable) > len(c.emitted) {
		c.queue.push(c.now(), stable[len(c.emitted):]...)
	}
	c.reflowed = true
}

func (c *Controller) reportDivergence(check []string) {
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(strings.Join(check, "\n"), strings.Join(c.emitted, "\n"), false)
	c.log.Warnf("stream: released lines diverged from source remap at reflow:\n%s", dmp.DiffPrettyText(diffs))
	c.diverged = true
}

// linesArePrefix reports whether every line of prefix matches the
// corresponding line of full.
func linesArePrefix(prefix, full []string) bool {
	if len(prefix) > len(full) {
		return false
	}
	for i, l := range prefix {
		if full[i] != l {
			return false
		}
	}
	return true
}

// EmittedLines returns a copy of the lines released so far.
func (c *Controller) EmittedLines() []string {
	return append([]string(nil), c.emitted...)
}

// EmittedCount returns how many lines the transcript owns.
func (c *Controller) EmittedCount() int { return len(c.emitted) }

// QueuedLen returns how many rendered lines await their commit tick.
func (c *Controller) QueuedLen() int { return c.queue.len() }

// Finished reports whether Finalize or Abort has run.
func (c *Controller) Finished() bool { return c.finished }

// Reflowed reports whether a resize remapped this stream. The flag
// clears when the stream finishes.
func (c *Controller) Reflowed() bool { return c.reflowed }

// Diverged reports whether a reflow remap failed to reproduce the
// released lines.
func (c *Controller) Diverged() bool { return c.diverged }

// Source returns every raw byte pushed so far.
func (c *Controller) Source() string { return c.collector.All() }

// Width returns the current rendering width.
func (c *Controller) Width() int { return c.width }
