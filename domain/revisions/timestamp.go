package revisions

import (
	"sync"
	"time"
)

// Timestamper hands out strictly increasing microsecond timestamps. When
// the clock has not advanced past the last one handed out it waits
// minDelay and reads the clock again.
type Timestamper struct {
	mu       sync.Mutex
	last     int64
	minDelay time.Duration
	now      func() time.Time
	sleep    func(time.Duration)
}

func NewTimestamper(minDelay time.Duration) *Timestamper {
	if minDelay <= 0 {
		minDelay = time.Microsecond
	}
	return &Timestamper{
		minDelay: minDelay,
		now:      time.Now,
		sleep:    time.Sleep,
	}
}

// Next returns a timestamp greater than every earlier one.
func (t *Timestamper) Next() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	ts := t.now().UnixMicro()
	for ts <= t.last {
		t.sleep(t.minDelay)
		ts = t.now().UnixMicro()
	}
	t.last = ts
	return ts
}
