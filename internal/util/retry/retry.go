package retry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Policy controls how often and how patiently an operation is retried.
type Policy struct {
	// Retries is the number of attempts after the first one.
	Retries int
	// Initial is the wait before the first retry.
	Initial time.Duration
	// Max caps the wait between attempts. Zero means no cap.
	Max time.Duration
	// Factor multiplies the wait after every retry. Values below 1 keep
	// the wait constant.
	Factor float64
	// OnRetry, if set, is called before each wait.
	OnRetry func(Attempt)
}

// Attempt describes a failed attempt that is about to be retried.
type Attempt struct {
	// Number counts attempts from 1.
	Number int
	Err    error
	Wait   time.Duration
}

// DefaultPolicy returns 5 retries starting at one second, doubling up to 30s.
func DefaultPolicy() Policy {
	return Policy{
		Retries: 5,
		Initial: time.Second,
		Max:     30 * time.Second,
		Factor:  2,
	}
}

// Do runs op until it succeeds, fails with an error marked Permanent, the
// retries are used up or ctx is done.
func (p Policy) Do(ctx context.Context, op func(context.Context) error) error {
	wait := p.Initial
	for attempt := 1; ; attempt++ {
		err := op(ctx)
		if err == nil {
			return nil
		}
		if IsPermanent(err) {
			return fmt.Errorf("not retrying: %w", err)
		}
		if attempt > p.Retries {
			return fmt.Errorf("giving up after %d attempts: %w", attempt, err)
		}

		if p.OnRetry != nil {
			p.OnRetry(Attempt{Number: attempt, Err: err, Wait: wait})
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("cancelled after %d attempts: %w", attempt, ctx.Err())
		case <-timer.C:
		}
		wait = p.next(wait)
	}
}

func (p Policy) next(wait time.Duration) time.Duration {
	if p.Factor > 1 {
		wait = time.Duration(float64(wait) * p.Factor)
	}
	if p.Max > 0 && wait > p.Max {
		wait = p.Max
	}
	return wait
}

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err so that Do returns it without retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err, or an error it wraps, was marked
// Permanent.
func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}
