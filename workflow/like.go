package workflow

import (
	"context"
	"instagrow/executor"
	"instagrow/ledger"
	"instagrow/utils/slicesx"
	"time"

	"go.uber.org/zap"
)

// LikeUserMedia opens the target's profile, picks a random count of media
// within [minCount, maxCount], and likes each one accepted by the ShouldLike
// predicate. Every per-media step runs under the navigation retry policy; a
// single media failure aborts the remainder of the batch for this username
// rather than being silently skipped. Returns the number of likes performed.
func (w *Workflow) LikeUserMedia(ctx context.Context, username string, minCount int, maxCount int) (int, error) {
	if maxCount <= 0 {
		return 0, nil
	}
	if minCount < 0 {
		minCount = 0
	}
	if minCount > maxCount {
		minCount = maxCount
	}
	if err := w.navigate(ctx, username); err != nil {
		return 0, err
	}

	var refs []string
	if err := w.withRetries(ctx, "list media of "+username, func(ctx context.Context) error {
		var err error
		refs, err = w.exec.ListUserMedia(ctx, username)
		return err
	}); err != nil {
		return 0, err
	}
	if len(refs) == 0 {
		w.log.Info("no media to like", zap.String("username", username))
		return 0, nil
	}

	count := minCount + w.rnd.Intn(maxCount-minCount+1)
	targets := slicesx.Sample(refs, count, w.rnd)
	w.log.Info("liking media",
		zap.String("username", username),
		zap.Int("count", len(targets)),
		zap.Int("available", len(refs)))

	// OpenMedia moves the page off the profile, so the cached attributes no
	// longer describe what is on screen.
	w.cache = cachedProfile{}

	liked := 0
	for _, ref := range targets {
		if err := w.throttle.WaitLike(ctx); err != nil {
			return liked, err
		}
		if err := w.withRetries(ctx, "open media "+ref, func(ctx context.Context) error {
			return w.exec.OpenMedia(ctx, ref)
		}); err != nil {
			return liked, err
		}
		var result executor.LikeResult
		if err := w.withRetries(ctx, "like media "+ref, func(ctx context.Context) error {
			var err error
			result, err = w.exec.LikeCurrentMedia(ctx, w.opts.ShouldLike)
			return err
		}); err != nil {
			return liked, err
		}
		if result.Liked {
			mediaRef := result.MediaRef
			if mediaRef == "" {
				mediaRef = ref
			}
			w.ledger.AppendLike(ledger.LikeRecord{Username: username, MediaRef: mediaRef, Time: time.Now()})
			w.observer.OnLiked(username, mediaRef)
			liked++
		}
		if err := w.withRetries(ctx, "close media "+ref, func(ctx context.Context) error {
			return w.exec.CloseMedia(ctx)
		}); err != nil {
			return liked, err
		}
	}
	return liked, nil
}
