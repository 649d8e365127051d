// Package cache provides an in-memory memoizer with per-entry expiry for
// slow external calls.
//
// A Memoizer stores one value per key together with the time it was
// computed. A call with a fresh entry returns the stored value without
// running the producer; any other call runs the producer outside the
// cache lock and stores its result. Producer errors are returned to the
// caller and never stored.
//
// Concurrent misses on the same key each run the producer unless the
// memoizer was built WithSingleFlight, in which case callers share one
// producer run.
//
//	feeds := cache.NewMemoizer[[]byte](cache.WithName("feeds"))
//	body, err := feeds.Memoize(ctx, cache.Key(fetchCommits), 10*time.Minute,
//	    func(ctx context.Context) ([]byte, error) {
//	        return fetchCommits(ctx)
//	    })
//
// Time is read from a Clock so expiry can be tested without sleeping.
package cache
