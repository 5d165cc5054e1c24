package rig

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/Carmen-Shannon/oxy-spine/engine/async"
	"github.com/Carmen-Shannon/oxy-spine/engine/spine"
	"golang.org/x/sync/errgroup"
)

// Files names the atlas and skeleton files of a rig. Atlas page images are resolved
// against the atlas directory.
type Files struct {
	Atlas    string
	Skeleton string
}

// LoadResult is the outcome of LoadAsync.
type LoadResult struct {
	Rig Rig
	Err error
}

// SkeletonFormat picks the skeleton encoding from a file extension: ".json" is JSON, anything else is binary.
//
// Parameters:
//   - path: the skeleton file path
//
// Returns:
//   - spine.SkeletonFormat: the format
func SkeletonFormat(path string) spine.SkeletonFormat {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return spine.FormatJSON
	}
	return spine.FormatBinary
}

// ReadSource reads the atlas and skeleton files concurrently.
//
// Parameters:
//   - ctx: cancels the read
//   - rt: the runtime whose file reader is used
//   - files: the atlas and skeleton paths
//
// Returns:
//   - spine.SkeletonSource: the decoded source
//   - error: the first read error, or the context error
func ReadSource(ctx context.Context, rt Runtime, files Files) (spine.SkeletonSource, error) {
	src := spine.SkeletonSource{
		Dir:    filepath.Dir(files.Atlas),
		Format: SkeletonFormat(files.Skeleton),
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		data, err := rt.ReadFile(files.Atlas)
		if err != nil {
			return fmt.Errorf("failed to read atlas %q: %w", files.Atlas, err)
		}
		src.Atlas = data
		return ctx.Err()
	})
	g.Go(func() error {
		data, err := rt.ReadFile(files.Skeleton)
		if err != nil {
			return fmt.Errorf("failed to read skeleton %q: %w", files.Skeleton, err)
		}
		src.Skeleton = data
		return ctx.Err()
	})
	if err := g.Wait(); err != nil {
		return spine.SkeletonSource{}, err
	}
	return src, nil
}

// LoadFromFiles reads the atlas and skeleton files and creates a rig.
//
// Parameters:
//   - ctx: cancels the file reads
//   - rt: the runtime
//   - files: the atlas and skeleton paths
//   - options: variadic list of RigBuilderOption functions
//
// Returns:
//   - Rig: the new rig
//   - error: a read error or any error from NewRig
func LoadFromFiles(ctx context.Context, rt Runtime, files Files, options ...RigBuilderOption) (Rig, error) {
	src, err := ReadSource(ctx, rt, files)
	if err != nil {
		return nil, err
	}
	return NewRig(rt, src, options...)
}

// LoadAsync runs LoadFromFiles on its own goroutine. The returned state resolves once the rig is created or fails.
// A rig finished after ctx is cancelled is closed and reported with the context error.
//
// Parameters:
//   - ctx: cancels the load
//   - rt: the runtime
//   - files: the atlas and skeleton paths
//   - options: variadic list of RigBuilderOption functions
//
// Returns:
//   - *async.LoadState[LoadResult]: the pending result
func LoadAsync(ctx context.Context, rt Runtime, files Files, options ...RigBuilderOption) *async.LoadState[LoadResult] {
	ch := make(chan LoadResult, 1)
	go func() {
		defer close(ch)
		r, err := LoadFromFiles(ctx, rt, files, options...)
		if err == nil && ctx.Err() != nil {
			r.Close()
			r, err = nil, ctx.Err()
		}
		ch <- LoadResult{Rig: r, Err: err}
	}()
	return async.NewLoading(ch)
}
