package workflow

import "time"

// Remaining returns whole seconds left until expiresAt, never negative.
func Remaining(expiresAt, now time.Time) int {
	if expiresAt.IsZero() {
		return 0
	}
	ms := expiresAt.UnixMilli() - now.UnixMilli()
	if ms <= 0 {
		return 0
	}
	return int(ms / 1000)
}

// Percent is remaining over the flow's fixed window, clamped to [0, 100].
// The window is a per-flow constant, not expiresAt minus createdAt.
func Percent(remaining int, window time.Duration) float64 {
	total := window.Seconds()
	if total <= 0 || remaining <= 0 {
		return 0
	}
	p := float64(remaining) / total * 100
	if p > 100 {
		return 100
	}
	return p
}
