package utils

import (
	"context"
	"fmt"
	"image"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// ParallelFactor controls the max level of parallelization. This might be useful
// to set in tests where too much parallelism actually slows tests down in
// aggregate.
var ParallelFactor = runtime.GOMAXPROCS(0)

func init() {
	if ParallelFactor <= 0 {
		ParallelFactor = 1
	}
}

// GroupWorkFunc does the work of the group numbered groupNum, which owns the items [from, to).
type GroupWorkFunc func(groupNum, from, to int) error

// NumGroups returns how many groups GroupWorkParallel splits totalSize items into.
func NumGroups(totalSize, groupSize int) int {
	if totalSize <= 0 {
		return 0
	}
	if groupSize <= 0 {
		groupSize = 1
	}
	return (totalSize + groupSize - 1) / groupSize
}

// GroupWorkParallel splits [0, totalSize) into consecutive groups of groupSize items and runs the
// groups on at most ParallelFactor goroutines. Group boundaries depend only on the sizes, never on
// the number of processors, so per-group partial results reduced in group order are reproducible.
// The first error (or panic) cancels the remaining groups and is returned.
func GroupWorkParallel(ctx context.Context, totalSize, groupSize int, groupWork GroupWorkFunc) error {
	if groupSize <= 0 {
		groupSize = 1
	}
	numGroups := NumGroups(totalSize, groupSize)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(ParallelFactor)
	for groupNum := 0; groupNum < numGroups; groupNum++ {
		if gctx.Err() != nil {
			break
		}
		groupNum := groupNum
		from := groupNum * groupSize
		to := min(from+groupSize, totalSize)
		g.Go(func() (err error) {
			defer func() {
				if thePanic := recover(); thePanic != nil {
					err = fmt.Errorf("got panic running group %d in parallel: %v", groupNum, thePanic)
				}
			}()
			return groupWork(groupNum, from, to)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

// ParallelForEach calls f once for every index in [0, totalSize), in parallel groups.
func ParallelForEach(ctx context.Context, totalSize, groupSize int, f func(i int)) error {
	return GroupWorkParallel(ctx, totalSize, groupSize, func(_, from, to int) error {
		for i := from; i < to; i++ {
			f(i)
		}
		return nil
	})
}

// ParallelForEachPixel loops through the image and calls f for each [x, y] position. Rows are
// handed out in parallel groups; f must only write to storage owned by its pixel.
func ParallelForEachPixel(size image.Point, f func(x, y int)) {
	const rowsPerGroup = 8
	//nolint:errcheck
	GroupWorkParallel(context.Background(), size.Y, rowsPerGroup, func(_, from, to int) error {
		for y := from; y < to; y++ {
			for x := 0; x < size.X; x++ {
				f(x, y)
			}
		}
		return nil
	})
}
