package llm

import (
	"log/slog"
	"sync"

	apperrors "github.com/aslab/autoscore/internal/errors"
)

// KeyRotator cycles through a provider's API keys, skipping ones flagged as
// rate-limited. It is shared by all workers of a job, so every method holds
// the mutex for its full body.
type KeyRotator struct {
	mu          sync.Mutex
	keys        []string
	next        int
	rateLimited map[int]struct{}
	logger      *slog.Logger
}

// NewKeyRotator creates a rotator over the given ordered key list.
func NewKeyRotator(keys []string, logger *slog.Logger) *KeyRotator {
	if logger == nil {
		logger = slog.Default()
	}
	return &KeyRotator{
		keys:        keys,
		rateLimited: make(map[int]struct{}),
		logger:      logger.With("component", "key_rotator"),
	}
}

// Len returns the number of configured keys.
func (r *KeyRotator) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.keys)
}

// Next returns the next usable credential as (index, key). Rate-limited keys
// are skipped while at least one unflagged key remains; once every key is
// flagged, all flags are cleared and rotation proceeds, treating exhaustion
// as a reset signal rather than a permanent failure. Skip attempts are
// bounded at twice the key count so the loop terminates under any flag state.
func (r *KeyRotator) Next() (int, string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.keys) == 0 {
		return 0, "", apperrors.Configuration("no API keys configured")
	}

	// Every key flagged means the provider is throttling globally; clearing
	// the flags and proceeding anyway beats looping forever.
	if len(r.rateLimited) >= len(r.keys) {
		r.logger.Warn("all API keys rate-limited, clearing flags and retrying",
			"key_count", len(r.keys))
		r.rateLimited = make(map[int]struct{})
	}

	maxAttempts := len(r.keys) * 2
	for attempt := 0; attempt < maxAttempts; attempt++ {
		idx := r.next
		r.next = (r.next + 1) % len(r.keys)

		if _, limited := r.rateLimited[idx]; limited {
			continue
		}
		return idx, r.keys[idx], nil
	}

	// Unreachable with the clear above, kept as a termination guarantee.
	idx := r.next
	r.next = (r.next + 1) % len(r.keys)
	return idx, r.keys[idx], nil
}

// MarkRateLimited flags the key at idx as rate-limited.
func (r *KeyRotator) MarkRateLimited(idx int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if idx < 0 || idx >= len(r.keys) {
		return
	}
	r.rateLimited[idx] = struct{}{}
	r.logger.Warn("API key rate-limited", "key_index", idx+1, "key_count", len(r.keys))
}

// ClearRateLimit removes the rate-limited flag from the key at idx.
func (r *KeyRotator) ClearRateLimit(idx int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.rateLimited, idx)
}

// RateLimitedCount returns how many keys are currently flagged.
func (r *KeyRotator) RateLimitedCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rateLimited)
}
