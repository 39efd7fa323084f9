package auth

import (
	"crypto/rand"
	"math/big"
	"time"
)

// TimingDelay pads failed lookups so that an unknown account and a known one
// take about the same time to answer.
type TimingDelay struct {
	base   time.Duration
	jitter time.Duration
	sleep  func(time.Duration)
}

// NewTimingDelay creates a delay of base plus up to jitter.
func NewTimingDelay(base, jitter time.Duration) *TimingDelay {
	return &TimingDelay{base: base, jitter: jitter, sleep: time.Sleep}
}

func (td *TimingDelay) target() time.Duration {
	if td.jitter <= 0 {
		return td.base
	}
	n, err := rand.Int(rand.Reader, big.NewInt(int64(td.jitter)))
	if err != nil {
		return td.base
	}
	return td.base + time.Duration(n.Int64())
}

// WaitFrom sleeps until at least the target delay has passed since start.
// A nil TimingDelay does nothing.
func (td *TimingDelay) WaitFrom(start time.Time) {
	if td == nil {
		return
	}
	if remaining := td.target() - time.Since(start); remaining > 0 {
		td.sleep(remaining)
	}
}
