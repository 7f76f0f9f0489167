package concurrent

import (
	"golang.org/x/sync/errgroup"

	"github.com/zeusync/rigsmith/pkg/sequence"
)

// Concurrent runs the action function for each element of the iterator in a separate goroutine.
// It waits for all goroutines to finish and returns the first error encountered.
func Concurrent[T any](i *sequence.Iterator[T], action func(T) error) error {
	return Limited(i, -1, action)
}

// Limited is Concurrent with at most limit goroutines in flight; a negative
// limit means no limit.
func Limited[T any](i *sequence.Iterator[T], limit int, action func(T) error) error {
	errGroup := errgroup.Group{}
	errGroup.SetLimit(limit)
	next, stop := i.Pull()
	defer stop()

	for {
		value, valid := next()
		if !valid {
			break
		}

		errGroup.Go(func() error {
			return action(value)
		})
	}

	return errGroup.Wait()
}

// Collect runs fn for every element concurrently and returns the results in
// input order together with the first error.
func Collect[T any, R any](i *sequence.Iterator[T], limit int, fn func(T) (R, error)) ([]R, error) {
	in := i.Collect()
	out := make([]R, len(in))
	idx := make([]int, len(in))
	for n := range idx {
		idx[n] = n
	}
	err := Limited(sequence.From(idx), limit, func(n int) error {
		r, err := fn(in[n])
		out[n] = r
		return err
	})
	return out, err
}
