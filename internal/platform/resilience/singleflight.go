package resilience

import "golang.org/x/sync/singleflight"

// SingleFlight deduplicates concurrent calls for the same key.
type SingleFlight[T any] struct {
	group singleflight.Group
}

func (g *SingleFlight[T]) Do(key string, fn func() (T, error)) (T, error, bool) {
	v, err, shared := g.group.Do(key, func() (any, error) {
		return fn()
	})
	out, _ := v.(T)
	return out, err, shared
}

func (g *SingleFlight[T]) Forget(key string) {
	g.group.Forget(key)
}

// Result is the outcome delivered by DoChan.
type Result[T any] struct {
	Val    T
	Err    error
	Shared bool
}

// DoChan is Do without blocking the caller, so each caller can give up on
// its own without cancelling the shared call.
func (g *SingleFlight[T]) DoChan(key string, fn func() (T, error)) <-chan Result[T] {
	out := make(chan Result[T], 1)
	ch := g.group.DoChan(key, func() (any, error) {
		return fn()
	})
	go func() {
		res := <-ch
		v, _ := res.Val.(T)
		out <- Result[T]{Val: v, Err: res.Err, Shared: res.Shared}
	}()
	return out
}
