package rasch

import "golang.org/x/sync/errgroup"

// forEachBlock splits [0, n) into contiguous blocks and runs fn on each block
// using at most workers goroutines. Blocks never overlap, so fn may write to
// per-index slots without locking.
func forEachBlock(n, workers int, fn func(lo, hi int)) {
	if n == 0 {
		return
	}
	if workers <= 1 || n == 1 {
		fn(0, n)
		return
	}

	size := (n + workers - 1) / workers
	var g errgroup.Group
	g.SetLimit(workers)
	for lo := 0; lo < n; lo += size {
		hi := min(lo+size, n)
		g.Go(func() error {
			fn(lo, hi)
			return nil
		})
	}
	_ = g.Wait()
}
