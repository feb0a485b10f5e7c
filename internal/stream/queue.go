package stream

import "time"

// catchUpAge is how stale the oldest queued line may get before commit
// ticks switch from one line per tick to draining half the queue.
const catchUpAge = 400 * time.Millisecond

type queuedLine struct {
	text     string
	queuedAt time.Time
}

// lineQueue is the FIFO of rendered lines waiting for their commit
// tick. Lines enter when the stable region grows and leave in order,
// so the transcript animation never reorders output.
type lineQueue struct {
	items []queuedLine
}

func (q *lineQueue) push(now time.Time, lines ...string) {
	for _, l := range lines {
		q.items = append(q.items, queuedLine{text: l, queuedAt: now})
	}
}

// drain removes and returns up to n lines from the front.
func (q *lineQueue) drain(n int) []string {
	if n <= 0 || len(q.items) == 0 {
		return nil
	}
	if n > len(q.items) {
		n = len(q.items)
	}
	out := make([]string, n)
	for i := 0; i < n; i++ {
		out[i] = q.items[i].text
	}
	q.items = q.items[n:]
	return out
}

func (q *lineQueue) drainAll() []string {
	return q.drain(len(q.items))
}

func (q *lineQueue) len() int {
	return len(q.items)
}

// oldestAge reports how long the front line has been waiting, zero for
// an empty queue.
func (q *lineQueue) oldestAge(now time.Time) time.Duration {
	if len(q.items) == 0 {
		return 0
	}
	return now.Sub(q.items[0].queuedAt)
}

func (q *lineQueue) clear() {
	q.items = nil
}
