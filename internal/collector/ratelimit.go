package collector

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"
)

// ErrCircuitOpen is returned once too many consecutive 429 responses were seen.
var ErrCircuitOpen = errors.New("circuit breaker open: too many 429 responses")

// LimiterConfig tunes request pacing and retry behaviour.
type LimiterConfig struct {
	Enabled           bool
	MinDelay          time.Duration
	MaxDelay          time.Duration
	MaxRetries        int
	BackoffBase       float64
	MaxConsecutive429 int
	// BreakerCooldown is how long a tripped breaker rejects calls before
	// letting a trial request through. Zero keeps it open until RecordSuccess.
	BreakerCooldown time.Duration
}

// DefaultLimiterConfig returns conservative Yahoo pacing.
func DefaultLimiterConfig() LimiterConfig {
	return LimiterConfig{
		Enabled:           true,
		MinDelay:          2 * time.Second,
		MaxDelay:          4 * time.Second,
		MaxRetries:        2,
		BackoffBase:       3,
		MaxConsecutive429: 2,
		BreakerCooldown:   5 * time.Minute,
	}
}

// RateLimiter spaces requests by a random delay, retries failures with
// exponential backoff and trips a breaker after repeated 429 responses.
// It is safe for concurrent use.
type RateLimiter struct {
	cfg LimiterConfig

	mu             sync.Mutex
	last           time.Time
	consecutive429 int
	trippedAt      time.Time
	rng            *rand.Rand

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// NewRateLimiter creates a limiter with the given config.
func NewRateLimiter(cfg LimiterConfig) *RateLimiter {
	return &RateLimiter{
		cfg:   cfg,
		rng:   rand.New(rand.NewSource(time.Now().UnixNano())),
		now:   time.Now,
		sleep: sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Wait blocks until a random delay in [MinDelay, MaxDelay] has passed since
// the previous request slot.
func (r *RateLimiter) Wait(ctx context.Context) error {
	if !r.cfg.Enabled {
		return ctx.Err()
	}
	r.mu.Lock()
	delay := r.cfg.MinDelay
	if span := r.cfg.MaxDelay - r.cfg.MinDelay; span > 0 {
		delay += time.Duration(r.rng.Int63n(int64(span)))
	}
	now := r.now()
	slot := now
	if !r.last.IsZero() && r.last.Add(delay).After(now) {
		slot = r.last.Add(delay)
	}
	r.last = slot
	r.mu.Unlock()

	return r.sleep(ctx, slot.Sub(now))
}

// RecordSuccess resets the 429 counter and closes the breaker.
func (r *RateLimiter) RecordSuccess() {
	r.mu.Lock()
	r.consecutive429 = 0
	r.trippedAt = time.Time{}
	r.mu.Unlock()
}

// Record429 counts a rate-limit response and reports ErrCircuitOpen at the
// threshold. A 429 on a trial request re-trips the breaker.
func (r *RateLimiter) Record429() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.consecutive429++
	if r.tripped() {
		r.trippedAt = r.now()
		return fmt.Errorf("%d consecutive: %w", r.consecutive429, ErrCircuitOpen)
	}
	return nil
}

func (r *RateLimiter) tripped() bool {
	return r.cfg.MaxConsecutive429 > 0 && r.consecutive429 >= r.cfg.MaxConsecutive429
}

// Open reports whether the breaker rejects calls. Once BreakerCooldown has
// passed since the trip it goes half-open: one caller gets false and the
// cooldown restarts for everyone else until that trial resolves.
func (r *RateLimiter) Open() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.tripped() {
		return false
	}
	if r.cfg.BreakerCooldown <= 0 {
		return true
	}
	if now := r.now(); now.Sub(r.trippedAt) >= r.cfg.BreakerCooldown {
		r.trippedAt = now
		return false
	}
	return true
}

// Do paces and retries fn. Attempt n (from 0) that fails waits BackoffBase^n
// seconds before the next one. ErrNoData is not retried.
func (r *RateLimiter) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	var err error
	for attempt := 0; attempt <= r.cfg.MaxRetries; attempt++ {
		if r.Open() {
			return ErrCircuitOpen
		}
		if werr := r.Wait(ctx); werr != nil {
			return werr
		}
		err = fn(ctx)
		if err == nil {
			r.RecordSuccess()
			return nil
		}
		if errors.Is(err, ErrNoData) || ctx.Err() != nil {
			return err
		}
		var herr *HTTPError
		if errors.As(err, &herr) && herr.StatusCode == 429 {
			if cerr := r.Record429(); cerr != nil {
				return cerr
			}
		}
		if attempt == r.cfg.MaxRetries {
			break
		}
		backoff := time.Duration(math.Pow(r.cfg.BackoffBase, float64(attempt)) * float64(time.Second))
		if serr := r.sleep(ctx, backoff); serr != nil {
			return serr
		}
	}
	return err
}
