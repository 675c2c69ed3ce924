package olc

import (
	"runtime"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// retrier paces retries of a contended insertion: it yields the processor
// for the first spins attempts and sleeps with exponential backoff
// afterwards.
type retrier struct {
	spins    int
	attempts int
	total    uint64
	bo       *backoff.ExponentialBackOff
}

func newRetrier(spins int) *retrier {
	return &retrier{spins: spins}
}

// reset prepares the retrier for the next key.
func (r *retrier) reset() {
	if r.attempts > r.spins && r.bo != nil {
		r.bo.Reset()
	}
	r.attempts = 0
}

// wait blocks before the next attempt.
func (r *retrier) wait() {
	r.attempts++
	r.total++
	if r.attempts <= r.spins {
		runtime.Gosched()
		return
	}
	if r.bo == nil {
		r.bo = backoff.NewExponentialBackOff()
		r.bo.InitialInterval = time.Microsecond
		r.bo.MaxInterval = time.Millisecond
		r.bo.MaxElapsedTime = 0
		r.bo.Reset()
	}
	time.Sleep(r.bo.NextBackOff())
}
