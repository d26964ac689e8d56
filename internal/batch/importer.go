package batch

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"halfframe/internal/frame"
	"halfframe/internal/registry"
)

// DefaultGroupSize is how many files an import decodes at once.
const DefaultGroupSize = 3

// ImportResult summarizes one import batch.
type ImportResult struct {
	Imported  int
	Failed    int
	Ignored   int // sources that were not images
	Cancelled bool
}

// Importer splits source files in small groups and appends the pairs to a
// registry. Files inside a group are decoded concurrently; results are
// committed group by group in source order.
type Importer struct {
	Splitter  *frame.Splitter
	Registry  *registry.Registry
	GroupSize int
	// Hold keeps the final progress visible before going back to Idle.
	Hold     time.Duration
	Observer Observer

	t tracker
}

// Progress returns the current progress of the batch.
func (im *Importer) Progress() Progress {
	return im.t.snapshot()
}

// Cancel asks a running import to stop before its next group. Groups
// already committed stay in the registry.
func (im *Importer) Cancel() bool {
	return im.t.cancel()
}

// Run imports sources and blocks until the batch (including Hold) is over.
// Non-image sources are dropped and not counted in the total. Files that
// fail to decode are reported to the Observer and skipped.
func (im *Importer) Run(ctx context.Context, sources []Source) (ImportResult, error) {
	images, res, err := im.prepare(sources)
	if err != nil || len(images) == 0 {
		return res, err
	}
	return im.process(ctx, images, res), nil
}

// Start begins an import like Run but processes it on its own goroutine.
// It returns the number of images accepted, or ErrBusy. done, if not nil,
// is called with the result once the batch is over.
func (im *Importer) Start(ctx context.Context, sources []Source, done func(ImportResult)) (int, error) {
	images, res, err := im.prepare(sources)
	if err != nil || len(images) == 0 {
		return 0, err
	}
	go func() {
		r := im.process(ctx, images, res)
		if done != nil {
			done(r)
		}
	}()
	return len(images), nil
}

func (im *Importer) prepare(sources []Source) ([]Source, ImportResult, error) {
	images := filterImages(sources)
	res := ImportResult{Ignored: len(sources) - len(images)}
	if len(images) == 0 {
		return nil, res, nil
	}
	if err := im.t.begin(len(images)); err != nil {
		return nil, ImportResult{}, err
	}
	return images, res, nil
}

func (im *Importer) process(ctx context.Context, images []Source, res ImportResult) ImportResult {
	obs := observerOrNop(im.Observer)
	obs.OnStart(KindImport, len(images))

	size := im.GroupSize
	if size <= 0 {
		size = DefaultGroupSize
	}

	for start := 0; start < len(images); start += size {
		if im.t.stopRequested(ctx) {
			res.Cancelled = true
			break
		}
		group := images[start:min(start+size, len(images))]
		pairs, errs, err := im.splitGroup(ctx, group)
		if err != nil {
			res.Cancelled = true
			break
		}

		done := make([]frame.SplitPair, 0, len(group))
		for i := range group {
			if errs[i] != nil {
				res.Failed++
				obs.OnItemFailed(KindImport, group[i].Name, errs[i])
				continue
			}
			done = append(done, pairs[i])
		}
		im.Registry.Append(done...)
		res.Imported += len(done)

		p := im.t.advance(len(group))
		for i := range done {
			obs.OnItemDone(KindImport, done[i].FileName, p)
		}
	}

	obs.OnFinish(KindImport, im.t.finish(res.Cancelled))
	im.t.settle(ctx, im.Hold)
	return res
}

// splitGroup decodes a group concurrently. It fails only when ctx ends
// before the group is through; per-file errors are returned in errs.
func (im *Importer) splitGroup(ctx context.Context, group []Source) ([]frame.SplitPair, []error, error) {
	pairs := make([]frame.SplitPair, len(group))
	errs := make([]error, len(group))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(len(group))
	for i := range group {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			pairs[i], errs[i] = im.splitOne(group[i])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return pairs, errs, nil
}

func (im *Importer) splitOne(src Source) (frame.SplitPair, error) {
	rc, err := src.Open()
	if err != nil {
		return frame.SplitPair{}, &frame.DecodeError{Name: src.Name, Err: err}
	}
	defer rc.Close()
	return im.Splitter.Split(rc, src.Name)
}
