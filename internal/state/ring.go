package state

import "github.com/alanyoungcy/oddsarb/internal/domain"

// ring is a fixed-capacity sample buffer. Once full, the oldest sample is
// overwritten.
type ring struct {
	buf   []domain.FeedSample
	start int
	count int
}

func newRing(capacity int) *ring {
	return &ring{buf: make([]domain.FeedSample, capacity)}
}

func (r *ring) push(s domain.FeedSample) {
	if r.count < len(r.buf) {
		r.buf[(r.start+r.count)%len(r.buf)] = s
		r.count++
		return
	}
	r.buf[r.start] = s
	r.start = (r.start + 1) % len(r.buf)
}

func (r *ring) snapshot() []domain.FeedSample {
	out := make([]domain.FeedSample, r.count)
	for i := 0; i < r.count; i++ {
		out[i] = r.buf[(r.start+i)%len(r.buf)]
	}
	return out
}
