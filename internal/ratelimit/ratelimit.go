// Package ratelimit implements a sliding-window request limiter keyed by client identity.
// Hit logs live in a pluggable Store so instances can share budgets.
package ratelimit

import (
	"context"
	"time"
)

// Decision is the outcome of one admission check.
type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

// Store records hits for a key and admits at most limit of them per window.
type Store interface {
	Take(ctx context.Context, key string, now time.Time, window time.Duration, limit int) (Decision, error)
}

// Rule is a request budget over a window.
type Rule struct {
	Limit  int
	Window time.Duration
}

// Limiter applies separate budgets to reads and writes.
type Limiter struct {
	store    Store
	reads    Rule
	writes   Rule
	prefix   string
	clockNow func() time.Time
}

func New(store Store, reads, writes Rule) *Limiter {
	return &Limiter{
		store:    store,
		reads:    reads,
		writes:   writes,
		clockNow: time.Now,
	}
}

// WithPrefix namespaces the limiter's keys so limiters can share a Store.
func (l *Limiter) WithPrefix(prefix string) *Limiter {
	l.prefix = prefix
	return l
}

// Allow charges one request by identity against the read or write budget.
func (l *Limiter) Allow(ctx context.Context, identity string, write bool) (Decision, error) {
	rule, prefix := l.reads, "read:"
	if write {
		rule, prefix = l.writes, "write:"
	}
	return l.store.Take(ctx, l.prefix+prefix+identity, l.clockNow(), rule.Window, rule.Limit)
}

// Slide drops hits older than the window and admits now if the budget allows.
// It returns the decision and the hits to persist, oldest first.
func Slide(hits []time.Time, now time.Time, window time.Duration, limit int) (Decision, []time.Time) {
	cutoff := now.Add(-window)
	kept := hits[:0:0]
	for _, h := range hits {
		if h.After(cutoff) {
			kept = append(kept, h)
		}
	}

	if len(kept) >= limit {
		retry := kept[len(kept)-limit].Add(window).Sub(now)
		if retry < 0 {
			retry = 0
		}
		return Decision{Allowed: false, Limit: limit, Remaining: 0, RetryAfter: retry}, kept
	}

	kept = append(kept, now)
	return Decision{Allowed: true, Limit: limit, Remaining: limit - len(kept)}, kept
}
