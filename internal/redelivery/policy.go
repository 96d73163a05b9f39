package redelivery

import (
	"math"
	"math/rand"
	"os"
	"strconv"
	"strings"
	"time"
)

// BackoffType selects the delay curve between redelivery attempts.
type BackoffType int

const (
	BackoffExpJitter BackoffType = iota
	BackoffExp
	BackoffFixed
	BackoffNone
)

// RetryPolicy shapes redelivery timing and the attempt budget.
type RetryPolicy struct {
	Type        BackoffType
	Base        time.Duration
	Cap         time.Duration
	Factor      float64
	MaxAttempts uint32
}

// DefaultRetryPolicy matches the processing loop's retry budget: two
// redeliveries, then dead-letter.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{Type: BackoffExpJitter, Base: 200 * time.Millisecond, Cap: 30 * time.Second, Factor: 2.0, MaxAttempts: 2}
}

// ApplyPolicyEnv overrides policy fields from environment variables when set.
// SOCIAL_RETRY_BACKOFF_TYPE: exp|exp-jitter|fixed|none
// SOCIAL_RETRY_BACKOFF_BASE_MS, _CAP_MS, _FACTOR, SOCIAL_RETRY_MAX_ATTEMPTS
func ApplyPolicyEnv(pol *RetryPolicy) {
	if v := os.Getenv("SOCIAL_RETRY_BACKOFF_TYPE"); v != "" {
		switch strings.ToLower(v) {
		case "exp":
			pol.Type = BackoffExp
		case "exp-jitter":
			pol.Type = BackoffExpJitter
		case "fixed":
			pol.Type = BackoffFixed
		case "none":
			pol.Type = BackoffNone
		}
	}
	if v := os.Getenv("SOCIAL_RETRY_BACKOFF_BASE_MS"); v != "" {
		if ms, err := strconv.ParseInt(v, 10, 64); err == nil && ms >= 0 {
			pol.Base = time.Duration(ms) * time.Millisecond
		}
	}
	if v := os.Getenv("SOCIAL_RETRY_BACKOFF_CAP_MS"); v != "" {
		if ms, err := strconv.ParseInt(v, 10, 64); err == nil && ms >= 0 {
			pol.Cap = time.Duration(ms) * time.Millisecond
		}
	}
	if v := os.Getenv("SOCIAL_RETRY_BACKOFF_FACTOR"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			pol.Factor = f
		}
	}
	if v := os.Getenv("SOCIAL_RETRY_MAX_ATTEMPTS"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 32); err == nil && n >= 0 {
			pol.MaxAttempts = uint32(n)
		}
	}
}

// ComputeBackoff returns the delay before the given attempt (1-based).
func ComputeBackoff(pol RetryPolicy, attempts uint32) time.Duration {
	switch pol.Type {
	case BackoffNone:
		return 0
	case BackoffFixed:
		if pol.Base <= 0 {
			return 0
		}
		if pol.Cap > 0 && pol.Base > pol.Cap {
			return pol.Cap
		}
		return pol.Base
	default:
		base := pol.Base
		if base <= 0 {
			base = 200 * time.Millisecond
		}
		factor := pol.Factor
		if factor <= 0 {
			factor = 2.0
		}
		if attempts < 1 {
			attempts = 1
		}
		delay := float64(base) * math.Pow(factor, float64(attempts-1))
		d := time.Duration(delay)
		if pol.Cap > 0 && d > pol.Cap {
			d = pol.Cap
		}
		if pol.Type == BackoffExpJitter {
			if d <= 0 {
				return 0
			}
			return time.Duration(rand.Int63n(int64(d)))
		}
		return d
	}
}
