// Package flight provides the single-flight primitive described in
// spec.md §5: at most one in-flight operation per key, with later callers
// joining the in-flight result. It is a typed façade over
// golang.org/x/sync/singleflight, grounded on claircore's
// internal/cache.Live[K,V] generic-wrapper pattern and rpm/files.go's
// direct singleflight.Group usage.
package flight

import (
	"context"
	"fmt"

	"golang.org/x/sync/singleflight"
)

// Keyed runs at most one Do per key at a time, for a fixed result type V.
type Keyed[K comparable, V any] struct {
	sf singleflight.Group
}

// Do executes fn if no call for key is in flight, or waits for the
// in-flight call's result otherwise. It respects ctx cancellation: if ctx
// is done before the (possibly shared) call completes, Do returns ctx's
// error without affecting other waiters.
func (k *Keyed[K, V]) Do(ctx context.Context, key K, fn func() (V, error)) (V, error) {
	strKey := any(key)
	ch := k.sf.DoChan(keyString(strKey), func() (any, error) {
		return fn()
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			var zero V
			return zero, res.Err
		}
		return res.Val.(V), nil
	case <-ctx.Done():
		var zero V
		return zero, ctx.Err()
	}
}

// Forget removes any in-flight or cached entry for key, so the next Do call
// runs fn again rather than joining a stale result.
func (k *Keyed[K, V]) Forget(key K) {
	k.sf.Forget(keyString(any(key)))
}

// keyString renders a comparable key as a string suitable for
// singleflight.Group, which only accepts strings. Using fmt.Sprint keeps
// this generic without requiring callers to implement Stringer.
func keyString(key any) string {
	switch v := key.(type) {
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(key)
	}
}
